package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/boddenberg/realty-pipeline-go/internal/domain"
	"github.com/boddenberg/realty-pipeline-go/internal/port"
)

var identityTracer = otel.Tracer("service/identity")

// IdentityService turns a bearer token issued by the identity provider
// into an Actor. The token only proves the user id; role and team come
// from the stored profile.
type IdentityService struct {
	directory port.DirectoryStore
	secret    []byte
	logger    *zap.Logger
	now       func() time.Time
}

func NewIdentityService(directory port.DirectoryStore, secret string, logger *zap.Logger, opts ...Option) *IdentityService {
	o := newOptions(opts)
	return &IdentityService{directory: directory, secret: []byte(secret), logger: logger, now: o.now}
}

// IdentityClaims are the claims read from identity tokens.
type IdentityClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// ErrInvalidToken is returned for any token that fails verification.
var ErrInvalidToken = errors.New("invalid or expired identity token")

func (s *IdentityService) Authenticate(ctx context.Context, token string) (domain.Actor, error) {
	ctx, span := identityTracer.Start(ctx, "IdentityService.Authenticate")
	defer span.End()

	if len(s.secret) == 0 {
		return domain.Actor{}, fmt.Errorf("%w: verification secret not configured", ErrInvalidToken)
	}
	parsed, err := jwt.ParseWithClaims(token, &IdentityClaims{}, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
		jwt.WithLeeway(30*time.Second),
	)
	if err != nil {
		s.logger.Warn("identity token rejected", zap.Error(err))
		return domain.Actor{}, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*IdentityClaims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return domain.Actor{}, ErrInvalidToken
	}

	profile, err := s.directory.GetUser(ctx, claims.Subject)
	if err != nil {
		return domain.Actor{}, err
	}
	if profile == nil {
		s.logger.Warn("authenticated user has no profile", zap.String("user_id", claims.Subject))
		return domain.Actor{}, &domain.ErrUnauthorized{ActorID: claims.Subject, Action: "use the pipeline without a profile"}
	}
	return profile.Actor(), nil
}

// IssueToken signs a token for userID. Used by local tooling to act as a
// user without the identity provider.
func (s *IdentityService) IssueToken(userID string, ttl time.Duration) (string, error) {
	if len(s.secret) == 0 {
		return "", fmt.Errorf("identity secret not configured")
	}
	now := s.now()
	claims := IdentityClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    "realty-pipeline",
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

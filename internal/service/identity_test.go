package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/boddenberg/realty-pipeline-go/internal/domain"
	"github.com/boddenberg/realty-pipeline-go/internal/service"
)

func TestAuthenticateResolvesProfile(t *testing.T) {
	f := newFixture(t)

	token, err := f.identity.IssueToken(f.ana.ID, time.Hour)
	require.NoError(t, err)

	actor, err := f.identity.Authenticate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, f.ana, actor)
}

func TestAuthenticateRejectsBadTokens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	expired, err := f.identity.IssueToken(f.ana.ID, -time.Hour)
	require.NoError(t, err)
	_, err = f.identity.Authenticate(ctx, expired)
	assert.ErrorIs(t, err, service.ErrInvalidToken)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   f.admin.ID,
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}).SignedString([]byte("other-secret"))
	require.NoError(t, err)
	_, err = f.identity.Authenticate(ctx, forged)
	assert.ErrorIs(t, err, service.ErrInvalidToken)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: f.admin.ID}).
		SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = f.identity.Authenticate(ctx, noExpiry)
	assert.ErrorIs(t, err, service.ErrInvalidToken)

	_, err = f.identity.Authenticate(ctx, "not-a-jwt")
	assert.ErrorIs(t, err, service.ErrInvalidToken)
}

func TestAuthenticateWithoutProfile(t *testing.T) {
	f := newFixture(t)

	token, err := f.identity.IssueToken("u-ghost", time.Hour)
	require.NoError(t, err)
	_, err = f.identity.Authenticate(context.Background(), token)
	var unauth *domain.ErrUnauthorized
	require.ErrorAs(t, err, &unauth)
}

func TestIdentityWithoutSecret(t *testing.T) {
	s := service.NewIdentityService(nil, "", zap.NewNop())

	_, err := s.IssueToken("u", time.Hour)
	require.Error(t, err)
	_, err = s.Authenticate(context.Background(), "x")
	assert.ErrorIs(t, err, service.ErrInvalidToken)
}

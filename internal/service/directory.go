package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/boddenberg/realty-pipeline-go/internal/domain"
	"github.com/boddenberg/realty-pipeline-go/internal/infra/observability"
	"github.com/boddenberg/realty-pipeline-go/internal/port"
	"github.com/boddenberg/realty-pipeline-go/internal/scope"
)

var directoryTracer = otel.Tracer("service/directory")

// DirectoryService manages teams, user profiles and payment schemas.
// Reads follow the actor's scope; writes are super_admin only.
type DirectoryService struct {
	core
	store port.DirectoryStore
}

func NewDirectoryService(store port.DirectoryStore, cache Invalidator, metrics *observability.Metrics, logger *zap.Logger, opts ...Option) *DirectoryService {
	return &DirectoryService{core: newCore(nil, cache, metrics, logger, opts), store: store}
}

func (s *DirectoryService) manager(actor domain.Actor, action, resource, id string) error {
	sc, err := s.resolve(actor)
	if err != nil {
		return err
	}
	if !sc.CanManageDirectory() {
		return s.deny(actor, action, resource, id)
	}
	return nil
}

// ============================================================
// Teams
// ============================================================

func (s *DirectoryService) ListTeams(ctx context.Context, actor domain.Actor) (_ []domain.Team, err error) {
	ctx, span := directoryTracer.Start(ctx, "DirectoryService.ListTeams")
	defer span.End()
	defer s.observe("directory.list_teams", time.Now(), &err)

	sc, err := s.resolve(actor)
	if err != nil {
		return nil, err
	}
	return s.store.ListTeams(ctx, sc.Filter())
}

func (s *DirectoryService) CreateTeam(ctx context.Context, actor domain.Actor, in domain.TeamInput) (_ *domain.Team, err error) {
	ctx, span := directoryTracer.Start(ctx, "DirectoryService.CreateTeam")
	defer span.End()
	defer s.observe("directory.create_team", time.Now(), &err)

	if err := s.manager(actor, "create", "team", ""); err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := checkStruct(in); err != nil {
		return nil, err
	}
	t := &domain.Team{ID: uuid.NewString(), Name: in.Name}
	if err := s.store.CreateTeam(ctx, t); err != nil {
		return nil, err
	}
	s.logger.Info("team created", zap.String("team_id", t.ID), zap.String("actor_id", actor.ID))
	s.cache.Invalidate()
	return t, nil
}

func (s *DirectoryService) RenameTeam(ctx context.Context, actor domain.Actor, id string, in domain.TeamInput) (_ *domain.Team, err error) {
	ctx, span := directoryTracer.Start(ctx, "DirectoryService.RenameTeam")
	defer span.End()
	defer s.observe("directory.rename_team", time.Now(), &err)

	if err := s.manager(actor, "rename", "team", id); err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := checkStruct(in); err != nil {
		return nil, err
	}
	t, err := s.store.RenameTeam(ctx, id, in.Name)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, &domain.ErrNotFound{Resource: "team", ID: id}
	}
	s.logger.Info("team renamed", zap.String("team_id", id), zap.String("actor_id", actor.ID))
	s.cache.Invalidate()
	return t, nil
}

// ============================================================
// User profiles
// ============================================================

func (s *DirectoryService) ListUsers(ctx context.Context, actor domain.Actor) (_ []domain.UserProfile, err error) {
	ctx, span := directoryTracer.Start(ctx, "DirectoryService.ListUsers")
	defer span.End()
	defer s.observe("directory.list_users", time.Now(), &err)

	sc, err := s.resolve(actor)
	if err != nil {
		return nil, err
	}
	return s.store.ListUsers(ctx, sc.Filter())
}

// GetUser returns a profile when the actor's scope admits it.
func (s *DirectoryService) GetUser(ctx context.Context, actor domain.Actor, id string) (_ *domain.UserProfile, err error) {
	ctx, span := directoryTracer.Start(ctx, "DirectoryService.GetUser")
	defer span.End()
	defer s.observe("directory.get_user", time.Now(), &err)

	sc, err := s.resolve(actor)
	if err != nil {
		return nil, err
	}
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, &domain.ErrNotFound{Resource: "user", ID: id}
	}
	if !sc.Admits(u) && !sameTeam(sc, u) {
		return nil, s.deny(actor, "read", "user", id)
	}
	return u, nil
}

func sameTeam(sc scope.Scope, u *domain.UserProfile) bool {
	home := sc.Filter().HomeTeamID
	return home != "" && u.TeamID == home
}

// SaveUser creates or updates a profile. Roles other than super_admin must
// carry an existing team.
func (s *DirectoryService) SaveUser(ctx context.Context, actor domain.Actor, in domain.UserProfileInput) (_ *domain.UserProfile, err error) {
	ctx, span := directoryTracer.Start(ctx, "DirectoryService.SaveUser")
	defer span.End()
	defer s.observe("directory.save_user", time.Now(), &err)

	if err := s.manager(actor, "save", "user", in.ID); err != nil {
		return nil, err
	}
	in.FullName = strings.TrimSpace(in.FullName)
	if err := checkStruct(in); err != nil {
		return nil, err
	}
	if !in.Role.Valid() {
		return nil, &domain.ErrValidation{Field: "role", Value: string(in.Role), Message: "unknown role"}
	}
	switch {
	case in.Role == domain.RoleSuperAdmin:
		in.TeamID = ""
	case in.TeamID == "":
		return nil, &domain.ErrValidation{Field: "team_id", Message: "is required for role " + string(in.Role)}
	default:
		t, err := s.store.GetTeam(ctx, in.TeamID)
		if err != nil {
			return nil, err
		}
		if t == nil {
			return nil, &domain.ErrValidation{Field: "team_id", Value: in.TeamID, Message: "unknown team"}
		}
	}

	u := &domain.UserProfile{ID: in.ID, Email: in.Email, FullName: in.FullName, Role: in.Role, TeamID: in.TeamID}
	if existing, err := s.store.GetUser(ctx, in.ID); err != nil {
		return nil, err
	} else if existing != nil {
		u.CreatedAt = existing.CreatedAt
		if existing.Role != in.Role {
			s.logger.Info("user role changed",
				zap.String("user_id", in.ID),
				zap.String("from", string(existing.Role)),
				zap.String("to", string(in.Role)),
				zap.String("actor_id", actor.ID),
			)
		}
	}
	if err := s.store.SaveUser(ctx, u); err != nil {
		return nil, err
	}
	s.logger.Info("user profile saved", zap.String("user_id", u.ID), zap.String("role", string(u.Role)), zap.String("actor_id", actor.ID))
	s.cache.Invalidate()
	return u, nil
}

// ============================================================
// Payment schemas
// ============================================================

// ListPaymentSchemas is open to every resolved scope.
func (s *DirectoryService) ListPaymentSchemas(ctx context.Context, actor domain.Actor) (_ []domain.PaymentSchema, err error) {
	ctx, span := directoryTracer.Start(ctx, "DirectoryService.ListPaymentSchemas")
	defer span.End()
	defer s.observe("directory.list_payment_schemas", time.Now(), &err)

	if _, err := s.resolve(actor); err != nil {
		return nil, err
	}
	return s.store.ListPaymentSchemas(ctx)
}

func (s *DirectoryService) GetPaymentSchema(ctx context.Context, actor domain.Actor, id string) (_ *domain.PaymentSchema, err error) {
	ctx, span := directoryTracer.Start(ctx, "DirectoryService.GetPaymentSchema")
	defer span.End()
	defer s.observe("directory.get_payment_schema", time.Now(), &err)

	if _, err := s.resolve(actor); err != nil {
		return nil, err
	}
	ps, err := s.store.GetPaymentSchema(ctx, id)
	if err != nil {
		return nil, err
	}
	if ps == nil {
		return nil, &domain.ErrNotFound{Resource: "payment_schema", ID: id}
	}
	return ps, nil
}

func (s *DirectoryService) CreatePaymentSchema(ctx context.Context, actor domain.Actor, in domain.PaymentSchemaInput) (_ *domain.PaymentSchema, err error) {
	ctx, span := directoryTracer.Start(ctx, "DirectoryService.CreatePaymentSchema")
	defer span.End()
	defer s.observe("directory.create_payment_schema", time.Now(), &err)

	if err := s.manager(actor, "create", "payment_schema", ""); err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := checkStruct(in); err != nil {
		return nil, err
	}
	ps := schemaFrom(uuid.NewString(), in)
	if err := s.store.CreatePaymentSchema(ctx, ps); err != nil {
		return nil, err
	}
	s.logger.Info("payment schema created", zap.String("payment_schema_id", ps.ID), zap.String("actor_id", actor.ID))
	return ps, nil
}

func (s *DirectoryService) UpdatePaymentSchema(ctx context.Context, actor domain.Actor, id string, in domain.PaymentSchemaInput) (_ *domain.PaymentSchema, err error) {
	ctx, span := directoryTracer.Start(ctx, "DirectoryService.UpdatePaymentSchema")
	defer span.End()
	defer s.observe("directory.update_payment_schema", time.Now(), &err)

	if err := s.manager(actor, "update", "payment_schema", id); err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := checkStruct(in); err != nil {
		return nil, err
	}
	current, err := s.store.GetPaymentSchema(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, &domain.ErrNotFound{Resource: "payment_schema", ID: id}
	}
	ps := schemaFrom(id, in)
	ps.CreatedAt = current.CreatedAt
	if err := s.store.UpdatePaymentSchema(ctx, ps); err != nil {
		return nil, err
	}
	s.logger.Info("payment schema updated", zap.String("payment_schema_id", id), zap.String("actor_id", actor.ID))
	return ps, nil
}

func schemaFrom(id string, in domain.PaymentSchemaInput) *domain.PaymentSchema {
	return &domain.PaymentSchema{
		ID:             id,
		Name:           in.Name,
		Description:    in.Description,
		DownPaymentPct: in.DownPaymentPct,
		Months:         in.Months,
		TermNotes:      in.TermNotes,
	}
}

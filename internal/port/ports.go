// Package port defines the interfaces (ports) between the pipeline services
// and their backends. Following hexagonal architecture, services depend on
// these contracts only; adapters live under internal/infra.
package port

import (
	"context"
	"time"

	"github.com/boddenberg/realty-pipeline-go/internal/domain"
)

// InventoryProvider is the backend-agnostic contract over sellable units.
// Exactly one implementation is active per process, chosen at startup.
type InventoryProvider interface {
	// GetAll returns every unit ordered by (tower, unit_number) ascending.
	GetAll(ctx context.Context) ([]domain.Property, error)
	// GetByID returns (nil, nil) when the unit does not exist.
	GetByID(ctx context.Context, id string) (*domain.Property, error)
	Create(ctx context.Context, in domain.PropertyInput) (*domain.Property, error)
	// Update merges patch and stamps updated_at in a single conditional write.
	// A failed ExpectStatus precondition yields ErrConcurrentModification.
	Update(ctx context.Context, id string, patch domain.PropertyPatch) (*domain.Property, error)
	Remove(ctx context.Context, id string) error
	// Backend names the implementation for logs and metrics.
	Backend() string
}

// ProspectStore persists prospects. Every scoped method applies the filter in
// the same query that touches the row; a row outside the filter behaves
// exactly like a missing one and yields (nil, nil).
type ProspectStore interface {
	Create(ctx context.Context, p *domain.Prospect) error
	Get(ctx context.Context, f domain.ScopeFilter, id string) (*domain.Prospect, error)
	// Exists ignores scope. It only tells NotFound apart from Unauthorized.
	Exists(ctx context.Context, id string) (bool, error)
	List(ctx context.Context, f domain.ScopeFilter, q domain.ProspectListFilter) ([]domain.Prospect, error)

	RecordVisit(ctx context.Context, f domain.ScopeFilter, id string, in domain.RecordVisitInput) (*domain.Prospect, error)
	// SetTemperature writes only if the current temperature is still from,
	// and appends note in the same transaction.
	SetTemperature(ctx context.Context, f domain.ScopeFilter, id string, from, to domain.Temperature, note *domain.ProspectNote) (*domain.Prospect, error)
	// SaveQuote writes only if updated_at still equals expectUpdatedAt.
	SaveQuote(ctx context.Context, f domain.ScopeFilter, id string, expectUpdatedAt time.Time, q domain.QuoteWrite, note *domain.ProspectNote) (*domain.Prospect, error)
	CancelQuote(ctx context.Context, f domain.ScopeFilter, id string, note *domain.ProspectNote) (*domain.Prospect, error)
	SetArchived(ctx context.Context, f domain.ScopeFilter, id string, archived bool) (*domain.Prospect, error)
	Assign(ctx context.Context, f domain.ScopeFilter, id, advisorID, teamID string) (*domain.Prospect, error)
	// Delete removes a prospect that has neither notes nor activities.
	Delete(ctx context.Context, f domain.ScopeFilter, id string) (bool, error)

	CountActiveQuotes(ctx context.Context, propertyID string) (int64, error)
	// CountStale counts active prospects without an activity dated on or after since.
	CountStale(ctx context.Context, f domain.ScopeFilter, since string) (int64, error)
}

// NoteStore is an insert-only ledger. It deliberately has no update or delete.
type NoteStore interface {
	Append(ctx context.Context, n *domain.ProspectNote) error
	List(ctx context.Context, f domain.ScopeFilter, prospectID string, ascending bool) ([]domain.ProspectNote, error)
}

// ActivityStore persists follow-up activities.
type ActivityStore interface {
	Create(ctx context.Context, a *domain.Activity) error
	Get(ctx context.Context, f domain.ScopeFilter, id string) (*domain.Activity, error)
	Exists(ctx context.Context, id string) (bool, error)
	List(ctx context.Context, f domain.ScopeFilter, q domain.ActivityListFilter) ([]domain.Activity, error)
	// Transition applies upd only while the stored status is still from.
	Transition(ctx context.Context, f domain.ScopeFilter, id string, from domain.ActivityStatus, upd domain.ActivityUpdate) (*domain.Activity, error)
}

// DirectoryStore holds teams, user profiles and payment schemas.
type DirectoryStore interface {
	ListTeams(ctx context.Context, f domain.ScopeFilter) ([]domain.Team, error)
	GetTeam(ctx context.Context, id string) (*domain.Team, error)
	CreateTeam(ctx context.Context, t *domain.Team) error
	RenameTeam(ctx context.Context, id, name string) (*domain.Team, error)

	ListUsers(ctx context.Context, f domain.ScopeFilter) ([]domain.UserProfile, error)
	// GetUser is unscoped; identity resolution needs it before any scope exists.
	GetUser(ctx context.Context, id string) (*domain.UserProfile, error)
	SaveUser(ctx context.Context, u *domain.UserProfile) error
	CountAdvisorsByTeam(ctx context.Context) (map[string]int, error)

	ListPaymentSchemas(ctx context.Context) ([]domain.PaymentSchema, error)
	GetPaymentSchema(ctx context.Context, id string) (*domain.PaymentSchema, error)
	CreatePaymentSchema(ctx context.Context, s *domain.PaymentSchema) error
	UpdatePaymentSchema(ctx context.Context, s *domain.PaymentSchema) error
}

// EventPublisher announces committed changes. Publishing is best effort.
type EventPublisher interface {
	Publish(ctx context.Context, e domain.Event) error
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
	Clear()
}

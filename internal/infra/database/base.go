package database

import (
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/boddenberg/realty-pipeline-go/internal/domain"
)

// Option configures a store.
type Option func(*base)

// WithClock replaces the clock used to stamp created_at / updated_at.
func WithClock(now func() time.Time) Option {
	return func(b *base) { b.now = now }
}

type base struct {
	db     *gorm.DB
	logger *zap.Logger
	now    func() time.Time
}

func newBase(db *gorm.DB, logger *zap.Logger, opts []Option) base {
	b := base{db: db, logger: logger, now: time.Now}
	for _, o := range opts {
		o(&b)
	}
	return b
}

// stamp returns the current instant at the precision every driver keeps.
func (b *base) stamp() time.Time {
	return b.now().UTC().Truncate(time.Microsecond)
}

// after returns a stamp strictly greater than prev.
func (b *base) after(prev time.Time) time.Time {
	t := b.stamp()
	if !t.After(prev) {
		t = prev.Add(time.Microsecond)
	}
	return t
}

func (b *base) fail(op string, err error) error {
	if err == nil {
		return nil
	}
	b.logger.Error("database operation failed", zap.String("op", op), zap.Error(err))
	return domain.Provider(backendName, op, err)
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// ============================================================
// Scope predicates. Each is added to the query that reads or writes.
// ============================================================

func denyAll(db *gorm.DB) *gorm.DB {
	return db.Where("1 = 0")
}

func prospectScope(f domain.ScopeFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch {
		case f.Unrestricted:
			return db
		case f.TeamID != "":
			return db.Where("prospects.team_id = ?", f.TeamID)
		case f.AdvisorID != "":
			return db.Where("prospects.advisor_id = ?", f.AdvisorID)
		}
		return denyAll(db)
	}
}

// scopedProspectIDs is a subquery of the prospect ids visible under f.
func scopedProspectIDs(db *gorm.DB, f domain.ScopeFilter) *gorm.DB {
	return db.Session(&gorm.Session{NewDB: true}).
		Model(&prospectRow{}).
		Select("prospects.id").
		Scopes(prospectScope(f))
}

func activityScope(f domain.ScopeFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch {
		case f.Unrestricted:
			return db
		case f.TeamID != "":
			return db.Where("activities.prospect_id IN (?)", scopedProspectIDs(db, f))
		case f.AssigneeID != "":
			return db.Where("activities.assigned_to = ?", f.AssigneeID)
		}
		return denyAll(db)
	}
}

func noteScope(f domain.ScopeFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if f.Unrestricted {
			return db
		}
		if f.TeamID == "" && f.AdvisorID == "" {
			return denyAll(db)
		}
		return db.Where("prospect_notes.prospect_id IN (?)", scopedProspectIDs(db, f))
	}
}

func teamScope(f domain.ScopeFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch {
		case f.Unrestricted:
			return db
		case f.HomeTeamID != "":
			return db.Where("teams.id = ?", f.HomeTeamID)
		}
		return denyAll(db)
	}
}

func userScope(f domain.ScopeFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch {
		case f.Unrestricted:
			return db
		case f.HomeTeamID != "":
			return db.Where("user_profiles.team_id = ?", f.HomeTeamID)
		}
		return denyAll(db)
	}
}

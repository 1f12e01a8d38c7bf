package database

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/boddenberg/realty-pipeline-go/internal/domain"
)

// ProspectStore implements port.ProspectStore.
type ProspectStore struct {
	base
}

func NewProspectStore(db *gorm.DB, logger *zap.Logger, opts ...Option) *ProspectStore {
	return &ProspectStore{base: newBase(db, logger, opts)}
}

func (s *ProspectStore) Create(ctx context.Context, p *domain.Prospect) error {
	now := s.stamp()
	p.CreatedAt, p.UpdatedAt = now, now
	row := prospectToRow(p)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return s.fail("ProspectStore.Create", err)
	}
	return nil
}

func (s *ProspectStore) Get(ctx context.Context, f domain.ScopeFilter, id string) (*domain.Prospect, error) {
	p, err := s.get(s.db.WithContext(ctx), f, id)
	if err != nil {
		return nil, s.fail("ProspectStore.Get", err)
	}
	return p, nil
}

func (s *ProspectStore) get(db *gorm.DB, f domain.ScopeFilter, id string) (*domain.Prospect, error) {
	var row prospectRow
	err := db.Scopes(prospectScope(f)).Where("prospects.id = ?", id).First(&row).Error
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	p := row.toDomain()
	return &p, nil
}

func (s *ProspectStore) Exists(ctx context.Context, id string) (bool, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&prospectRow{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, s.fail("ProspectStore.Exists", err)
	}
	return n > 0, nil
}

func (s *ProspectStore) List(ctx context.Context, f domain.ScopeFilter, q domain.ProspectListFilter) ([]domain.Prospect, error) {
	tx := s.db.WithContext(ctx).Model(&prospectRow{}).Scopes(prospectScope(f))
	if !q.IncludeArchived {
		tx = tx.Where("prospects.archived = ?", false)
	}
	if q.Temperature != "" {
		tx = tx.Where("prospects.temperature = ?", string(q.Temperature))
	}
	if q.AdvisorID != "" {
		tx = tx.Where("prospects.advisor_id = ?", q.AdvisorID)
	}
	if term := strings.TrimSpace(q.Search); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		tx = tx.Where("LOWER(prospects.full_name) LIKE ? OR LOWER(prospects.email) LIKE ? OR prospects.phone LIKE ?", like, like, like)
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit).Offset(q.Offset)
	}

	var rows []prospectRow
	if err := tx.Order("prospects.created_at DESC").Order("prospects.id").Find(&rows).Error; err != nil {
		return nil, s.fail("ProspectStore.List", err)
	}
	out := make([]domain.Prospect, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *ProspectStore) RecordVisit(ctx context.Context, f domain.ScopeFilter, id string, in domain.RecordVisitInput) (*domain.Prospect, error) {
	return s.update(ctx, "ProspectStore.RecordVisit", f, id, nil, "", map[string]any{
		"visited":            true,
		"visit_date":         in.Date,
		"visit_observations": in.Observations,
	}, nil)
}

func (s *ProspectStore) SetTemperature(ctx context.Context, f domain.ScopeFilter, id string, from, to domain.Temperature, note *domain.ProspectNote) (*domain.Prospect, error) {
	cond := func(db *gorm.DB) *gorm.DB { return db.Where("prospects.temperature = ?", string(from)) }
	return s.update(ctx, "ProspectStore.SetTemperature", f, id, cond, "temperature", map[string]any{
		"temperature": string(to),
	}, note)
}

func (s *ProspectStore) SaveQuote(ctx context.Context, f domain.ScopeFilter, id string, expectUpdatedAt time.Time, q domain.QuoteWrite, note *domain.ProspectNote) (*domain.Prospect, error) {
	cond := func(db *gorm.DB) *gorm.DB { return db.Where("prospects.updated_at = ?", expectUpdatedAt) }
	return s.update(ctx, "ProspectStore.SaveQuote", f, id, cond, "updated_at", map[string]any{
		"has_quote":           true,
		"quote_date":          q.Date,
		"quoted_property_id":  q.PropertyID,
		"list_price_at_quote": decimal.NewNullDecimal(q.ListPrice),
		"offered_price":       decimal.NewNullDecimal(q.OfferedPrice),
		"payment_schema_id":   q.PaymentSchemaID,
		"quote_override_by":   q.OverrideBy,
	}, note)
}

// CancelQuote clears has_quote. The snapshot fields stay as history.
func (s *ProspectStore) CancelQuote(ctx context.Context, f domain.ScopeFilter, id string, note *domain.ProspectNote) (*domain.Prospect, error) {
	cond := func(db *gorm.DB) *gorm.DB { return db.Where("prospects.has_quote = ?", true) }
	return s.update(ctx, "ProspectStore.CancelQuote", f, id, cond, "has_quote", map[string]any{
		"has_quote": false,
	}, note)
}

func (s *ProspectStore) SetArchived(ctx context.Context, f domain.ScopeFilter, id string, archived bool) (*domain.Prospect, error) {
	return s.update(ctx, "ProspectStore.SetArchived", f, id, nil, "", map[string]any{
		"archived": archived,
	}, nil)
}

func (s *ProspectStore) Assign(ctx context.Context, f domain.ScopeFilter, id, advisorID, teamID string) (*domain.Prospect, error) {
	return s.update(ctx, "ProspectStore.Assign", f, id, nil, "", map[string]any{
		"advisor_id": advisorID,
		"team_id":    teamID,
	}, nil)
}

// update runs one scoped, optionally conditional UPDATE and, in the same
// transaction, appends note. When the scoped row exists but cond rejects
// it, the result is ErrConcurrentModification on field.
func (s *ProspectStore) update(ctx context.Context, op string, f domain.ScopeFilter, id string,
	cond func(*gorm.DB) *gorm.DB, field string, values map[string]any, note *domain.ProspectNote,
) (*domain.Prospect, error) {
	var out *domain.Prospect
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.stamp()
		values["updated_at"] = now

		q := tx.Model(&prospectRow{}).Scopes(prospectScope(f)).Where("prospects.id = ?", id)
		if cond != nil {
			q = q.Scopes(cond)
		}
		res := q.Updates(values)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			current, err := s.get(tx, f, id)
			if err != nil {
				return err
			}
			if current != nil && cond != nil {
				return &domain.ErrConcurrentModification{Resource: "prospect", ID: id, Field: field}
			}
			return nil
		}

		if note != nil {
			note.ProspectID = id
			note.CreatedAt = now
			row := noteRow{ID: note.ID, ProspectID: id, UserID: note.UserID, Note: note.Note, CreatedAt: now}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}

		p, err := s.get(tx, f, id)
		if err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, s.fail(op, err)
	}
	return out, nil
}

// Delete removes a prospect only while it has no notes and no activities.
func (s *ProspectStore) Delete(ctx context.Context, f domain.ScopeFilter, id string) (bool, error) {
	deleted := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := s.get(tx, f, id)
		if err != nil || p == nil {
			return err
		}
		var notes, activities int64
		if err := tx.Model(&noteRow{}).Where("prospect_id = ?", id).Count(&notes).Error; err != nil {
			return err
		}
		if err := tx.Model(&activityRow{}).Where("prospect_id = ?", id).Count(&activities).Error; err != nil {
			return err
		}
		if notes > 0 || activities > 0 {
			return &domain.ErrValidation{
				Field:   "prospect_id",
				Value:   id,
				Message: "prospect has notes or activities and can only be archived",
			}
		}
		res := tx.Scopes(prospectScope(f)).Where("prospects.id = ?", id).Delete(&prospectRow{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, s.fail("ProspectStore.Delete", err)
	}
	return deleted, nil
}

func (s *ProspectStore) CountActiveQuotes(ctx context.Context, propertyID string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&prospectRow{}).
		Where("has_quote = ? AND quoted_property_id = ?", true, propertyID).
		Count(&n).Error
	if err != nil {
		return 0, s.fail("ProspectStore.CountActiveQuotes", err)
	}
	return n, nil
}

func (s *ProspectStore) CountStale(ctx context.Context, f domain.ScopeFilter, since string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&prospectRow{}).
		Scopes(prospectScope(f)).
		Where("prospects.archived = ?", false).
		Where("NOT EXISTS (SELECT 1 FROM activities WHERE activities.prospect_id = prospects.id AND activities.activity_date >= ?)", since).
		Count(&n).Error
	if err != nil {
		return 0, s.fail("ProspectStore.CountStale", err)
	}
	return n, nil
}

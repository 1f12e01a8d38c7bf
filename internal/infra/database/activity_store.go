package database

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/boddenberg/realty-pipeline-go/internal/domain"
)

// ActivityStore implements port.ActivityStore.
type ActivityStore struct {
	base
}

func NewActivityStore(db *gorm.DB, logger *zap.Logger, opts ...Option) *ActivityStore {
	return &ActivityStore{base: newBase(db, logger, opts)}
}

func (s *ActivityStore) Create(ctx context.Context, a *domain.Activity) error {
	now := s.stamp()
	a.CreatedAt, a.UpdatedAt = now, now
	row := activityRow{
		ID:           a.ID,
		ProspectID:   a.ProspectID,
		AssignedTo:   a.AssignedTo,
		Type:         string(a.Type),
		ActivityDate: a.ActivityDate,
		ActivityTime: a.ActivityTime,
		Description:  a.Description,
		Status:       string(a.Status),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return s.fail("ActivityStore.Create", err)
	}
	return nil
}

func (s *ActivityStore) Get(ctx context.Context, f domain.ScopeFilter, id string) (*domain.Activity, error) {
	a, err := s.get(s.db.WithContext(ctx), f, id)
	if err != nil {
		return nil, s.fail("ActivityStore.Get", err)
	}
	return a, nil
}

func (s *ActivityStore) get(db *gorm.DB, f domain.ScopeFilter, id string) (*domain.Activity, error) {
	var row activityRow
	if err := db.Scopes(activityScope(f)).Where("activities.id = ?", id).First(&row).Error; err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	a := row.toDomain()
	return &a, nil
}

func (s *ActivityStore) Exists(ctx context.Context, id string) (bool, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&activityRow{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, s.fail("ActivityStore.Exists", err)
	}
	return n > 0, nil
}

func (s *ActivityStore) List(ctx context.Context, f domain.ScopeFilter, q domain.ActivityListFilter) ([]domain.Activity, error) {
	tx := s.db.WithContext(ctx).Model(&activityRow{}).Scopes(activityScope(f))
	if q.ProspectID != "" {
		tx = tx.Where("activities.prospect_id = ?", q.ProspectID)
	}
	if q.Date != "" {
		tx = tx.Where("activities.activity_date = ?", q.Date)
	}
	if q.Status != "" {
		tx = tx.Where("activities.status = ?", string(q.Status))
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit).Offset(q.Offset)
	}
	var rows []activityRow
	err := tx.Order("activities.activity_date ASC").
		Order("activities.activity_time ASC").
		Order("activities.id").
		Find(&rows).Error
	if err != nil {
		return nil, s.fail("ActivityStore.List", err)
	}
	out := make([]domain.Activity, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

// Transition applies upd only while the stored status equals from.
func (s *ActivityStore) Transition(ctx context.Context, f domain.ScopeFilter, id string, from domain.ActivityStatus, upd domain.ActivityUpdate) (*domain.Activity, error) {
	var out *domain.Activity
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		values := map[string]any{
			"status":     string(upd.Status),
			"updated_at": s.stamp(),
		}
		if upd.Date != "" {
			values["activity_date"] = upd.Date
		}
		if upd.Time != "" {
			values["activity_time"] = upd.Time
		}
		res := tx.Model(&activityRow{}).
			Scopes(activityScope(f)).
			Where("activities.id = ? AND activities.status = ?", id, string(from)).
			Updates(values)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			current, err := s.get(tx, f, id)
			if err != nil {
				return err
			}
			if current != nil {
				return &domain.ErrConcurrentModification{Resource: "activity", ID: id, Field: "status"}
			}
			return nil
		}
		a, err := s.get(tx, f, id)
		out = a
		return err
	})
	if err != nil {
		return nil, s.fail("ActivityStore.Transition", err)
	}
	return out, nil
}

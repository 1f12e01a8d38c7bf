package database

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/boddenberg/realty-pipeline-go/internal/domain"
)

// DirectoryStore implements port.DirectoryStore.
type DirectoryStore struct {
	base
}

func NewDirectoryStore(db *gorm.DB, logger *zap.Logger, opts ...Option) *DirectoryStore {
	return &DirectoryStore{base: newBase(db, logger, opts)}
}

// ============================================================
// Teams
// ============================================================

func (s *DirectoryStore) ListTeams(ctx context.Context, f domain.ScopeFilter) ([]domain.Team, error) {
	var rows []teamRow
	if err := s.db.WithContext(ctx).Scopes(teamScope(f)).Order("teams.name").Find(&rows).Error; err != nil {
		return nil, s.fail("DirectoryStore.ListTeams", err)
	}
	out := make([]domain.Team, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *DirectoryStore) GetTeam(ctx context.Context, id string) (*domain.Team, error) {
	var row teamRow
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, s.fail("DirectoryStore.GetTeam", err)
	}
	t := row.toDomain()
	return &t, nil
}

func (s *DirectoryStore) CreateTeam(ctx context.Context, t *domain.Team) error {
	t.CreatedAt = s.stamp()
	row := teamRow{ID: t.ID, Name: t.Name, CreatedAt: t.CreatedAt}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return s.fail("DirectoryStore.CreateTeam", err)
	}
	return nil
}

func (s *DirectoryStore) RenameTeam(ctx context.Context, id, name string) (*domain.Team, error) {
	res := s.db.WithContext(ctx).Model(&teamRow{}).Where("id = ?", id).Update("name", name)
	if res.Error != nil {
		return nil, s.fail("DirectoryStore.RenameTeam", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return s.GetTeam(ctx, id)
}

// ============================================================
// User profiles
// ============================================================

func (s *DirectoryStore) ListUsers(ctx context.Context, f domain.ScopeFilter) ([]domain.UserProfile, error) {
	var rows []userRow
	if err := s.db.WithContext(ctx).Scopes(userScope(f)).Order("user_profiles.full_name").Find(&rows).Error; err != nil {
		return nil, s.fail("DirectoryStore.ListUsers", err)
	}
	out := make([]domain.UserProfile, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *DirectoryStore) GetUser(ctx context.Context, id string) (*domain.UserProfile, error) {
	var row userRow
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, s.fail("DirectoryStore.GetUser", err)
	}
	u := row.toDomain()
	return &u, nil
}

// SaveUser inserts or updates a profile keyed by the identity provider id.
func (s *DirectoryStore) SaveUser(ctx context.Context, u *domain.UserProfile) error {
	now := s.stamp()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	row := userRow{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		Role:      string(u.Role),
		TeamID:    u.TeamID,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "full_name", "role", "team_id", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return s.fail("DirectoryStore.SaveUser", err)
	}
	return nil
}

func (s *DirectoryStore) CountAdvisorsByTeam(ctx context.Context) (map[string]int, error) {
	var rows []struct {
		TeamID string
		N      int
	}
	err := s.db.WithContext(ctx).Model(&userRow{}).
		Select("team_id, COUNT(*) AS n").
		Where("role = ? AND team_id <> ''", string(domain.RoleSalesAdvisor)).
		Group("team_id").
		Scan(&rows).Error
	if err != nil {
		return nil, s.fail("DirectoryStore.CountAdvisorsByTeam", err)
	}
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.TeamID] = r.N
	}
	return out, nil
}

// ============================================================
// Payment schemas
// ============================================================

func (s *DirectoryStore) ListPaymentSchemas(ctx context.Context) ([]domain.PaymentSchema, error) {
	var rows []paymentSchemaRow
	if err := s.db.WithContext(ctx).Order("name").Find(&rows).Error; err != nil {
		return nil, s.fail("DirectoryStore.ListPaymentSchemas", err)
	}
	out := make([]domain.PaymentSchema, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *DirectoryStore) GetPaymentSchema(ctx context.Context, id string) (*domain.PaymentSchema, error) {
	var row paymentSchemaRow
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, s.fail("DirectoryStore.GetPaymentSchema", err)
	}
	ps := row.toDomain()
	return &ps, nil
}

func (s *DirectoryStore) CreatePaymentSchema(ctx context.Context, ps *domain.PaymentSchema) error {
	now := s.stamp()
	ps.CreatedAt, ps.UpdatedAt = now, now
	row := paymentSchemaRow{
		ID:             ps.ID,
		Name:           ps.Name,
		Description:    ps.Description,
		DownPaymentPct: ps.DownPaymentPct,
		Months:         ps.Months,
		TermNotes:      ps.TermNotes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return s.fail("DirectoryStore.CreatePaymentSchema", err)
	}
	return nil
}

func (s *DirectoryStore) UpdatePaymentSchema(ctx context.Context, ps *domain.PaymentSchema) error {
	ps.UpdatedAt = s.stamp()
	res := s.db.WithContext(ctx).Model(&paymentSchemaRow{}).Where("id = ?", ps.ID).Updates(map[string]any{
		"name":             ps.Name,
		"description":      ps.Description,
		"down_payment_pct": ps.DownPaymentPct,
		"months":           ps.Months,
		"term_notes":       ps.TermNotes,
		"updated_at":       ps.UpdatedAt,
	})
	if res.Error != nil {
		return s.fail("DirectoryStore.UpdatePaymentSchema", res.Error)
	}
	if res.RowsAffected == 0 {
		return &domain.ErrNotFound{Resource: "payment_schema", ID: ps.ID}
	}
	return nil
}

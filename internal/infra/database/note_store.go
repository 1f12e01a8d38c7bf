package database

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/boddenberg/realty-pipeline-go/internal/domain"
)

// NoteStore implements port.NoteStore. Rows are only ever inserted.
type NoteStore struct {
	base
}

func NewNoteStore(db *gorm.DB, logger *zap.Logger, opts ...Option) *NoteStore {
	return &NoteStore{base: newBase(db, logger, opts)}
}

func (s *NoteStore) Append(ctx context.Context, n *domain.ProspectNote) error {
	n.CreatedAt = s.stamp()
	row := noteRow{ID: n.ID, ProspectID: n.ProspectID, UserID: n.UserID, Note: n.Note, CreatedAt: n.CreatedAt}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return s.fail("NoteStore.Append", err)
	}
	return nil
}

// List returns newest first for display or oldest first for audit replay.
func (s *NoteStore) List(ctx context.Context, f domain.ScopeFilter, prospectID string, ascending bool) ([]domain.ProspectNote, error) {
	order := "prospect_notes.created_at DESC"
	if ascending {
		order = "prospect_notes.created_at ASC"
	}
	var rows []noteRow
	err := s.db.WithContext(ctx).
		Scopes(noteScope(f)).
		Where("prospect_notes.prospect_id = ?", prospectID).
		Order(order).
		Find(&rows).Error
	if err != nil {
		return nil, s.fail("NoteStore.List", err)
	}
	out := make([]domain.ProspectNote, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

package database_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/boddenberg/realty-pipeline-go/internal/domain"
	"github.com/boddenberg/realty-pipeline-go/internal/infra/database"
)

type fixture struct {
	prospects  *database.ProspectStore
	notes      *database.NoteStore
	activities *database.ActivityStore
}

func newFixture(t *testing.T) fixture {
	db := openTestDB(t)
	log := zap.NewNop()
	clock := database.WithClock(tickingClock(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)))
	return fixture{
		prospects:  database.NewProspectStore(db, log, clock),
		notes:      database.NewNoteStore(db, log, clock),
		activities: database.NewActivityStore(db, log, clock),
	}
}

func (f fixture) seedProspect(t *testing.T, advisor, team string) *domain.Prospect {
	t.Helper()
	p := &domain.Prospect{
		ID:               uuid.NewString(),
		FullName:         "Prospect of " + advisor,
		FirstContactDate: "2024-05-01",
		AdvisorID:        advisor,
		TeamID:           team,
		Temperature:      domain.TempCold,
	}
	require.NoError(t, f.prospects.Create(context.Background(), p))
	return p
}

var (
	adminFilter   = domain.ScopeFilter{Unrestricted: true}
	team1Filter   = domain.ScopeFilter{TeamID: "team-1", HomeTeamID: "team-1"}
	advisorAScope = domain.ScopeFilter{AdvisorID: "adv-a", AssigneeID: "adv-a", HomeTeamID: "team-1"}
)

func TestProspectStore_ScopeIsolation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.seedProspect(t, "adv-a", "team-1")
	b := f.seedProspect(t, "adv-b", "team-1")
	c := f.seedProspect(t, "adv-c", "team-2")

	ids := func(ps []domain.Prospect) []string {
		out := make([]string, 0, len(ps))
		for _, p := range ps {
			out = append(out, p.ID)
		}
		return out
	}

	all, err := f.prospects.List(ctx, adminFilter, domain.ProspectListFilter{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a.ID, b.ID, c.ID}, ids(all))

	team, err := f.prospects.List(ctx, team1Filter, domain.ProspectListFilter{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a.ID, b.ID}, ids(team))

	own, err := f.prospects.List(ctx, advisorAScope, domain.ProspectListFilter{})
	require.NoError(t, err)
	require.Len(t, own, 1)
	for _, p := range own {
		assert.Equal(t, "adv-a", p.AdvisorID)
	}

	none, err := f.prospects.List(ctx, domain.ScopeFilter{}, domain.ProspectListFilter{})
	require.NoError(t, err)
	assert.Empty(t, none, "zero filter must deny all")

	got, err := f.prospects.Get(ctx, advisorAScope, b.ID)
	require.NoError(t, err)
	assert.Nil(t, got, "advisor must not read a teammate's prospect")

	exists, err := f.prospects.Exists(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestProspectStore_ScopedWritesNeverTouchForeignRows(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	b := f.seedProspect(t, "adv-b", "team-1")

	p, err := f.prospects.RecordVisit(ctx, advisorAScope, b.ID, domain.RecordVisitInput{Date: "2024-05-02", Observations: "x"})
	require.NoError(t, err)
	assert.Nil(t, p)

	stored, err := f.prospects.Get(ctx, adminFilter, b.ID)
	require.NoError(t, err)
	assert.False(t, stored.Visited)
}

func TestProspectStore_RecordVisitIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.seedProspect(t, "adv-a", "team-1")

	_, err := f.prospects.RecordVisit(ctx, advisorAScope, a.ID, domain.RecordVisitInput{Date: "2024-05-02", Observations: "first"})
	require.NoError(t, err)
	p, err := f.prospects.RecordVisit(ctx, advisorAScope, a.ID, domain.RecordVisitInput{Date: "2024-05-03", Observations: "second"})
	require.NoError(t, err)

	assert.True(t, p.Visited)
	assert.Equal(t, "2024-05-03", p.VisitDate)
	assert.Equal(t, "second", p.VisitObservations)

	notes, err := f.notes.List(ctx, adminFilter, a.ID, true)
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func TestProspectStore_SetTemperatureIsConditional(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.seedProspect(t, "adv-a", "team-1")

	note := &domain.ProspectNote{ID: uuid.NewString(), UserID: "adv-a", Note: "Temperatura cambiada"}
	p, err := f.prospects.SetTemperature(ctx, advisorAScope, a.ID, domain.TempCold, domain.TempWarm, note)
	require.NoError(t, err)
	assert.Equal(t, domain.TempWarm, p.Temperature)

	// A second writer still believing the prospect is cold loses.
	_, err = f.prospects.SetTemperature(ctx, advisorAScope, a.ID, domain.TempCold, domain.TempHot,
		&domain.ProspectNote{ID: uuid.NewString(), Note: "stale"})
	var conflict *domain.ErrConcurrentModification
	require.True(t, errors.As(err, &conflict), "got %v", err)
	assert.Equal(t, "temperature", conflict.Field)

	notes, err := f.notes.List(ctx, advisorAScope, a.ID, true)
	require.NoError(t, err)
	require.Len(t, notes, 1, "the losing write must not leave a note")
	assert.Equal(t, note.ID, notes[0].ID)
}

func TestProspectStore_SaveQuoteRejectsStaleVersion(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.seedProspect(t, "adv-a", "team-1")

	read, err := f.prospects.Get(ctx, advisorAScope, a.ID)
	require.NoError(t, err)

	_, err = f.prospects.RecordVisit(ctx, advisorAScope, a.ID, domain.RecordVisitInput{Date: "2024-05-02"})
	require.NoError(t, err)

	q := domain.QuoteWrite{
		PropertyID:   "prop-1",
		ListPrice:    decimal.NewFromInt(2_000_000),
		OfferedPrice: decimal.NewFromInt(1_900_000),
		Date:         "2024-05-04",
	}
	_, err = f.prospects.SaveQuote(ctx, advisorAScope, a.ID, read.UpdatedAt, q, nil)
	var conflict *domain.ErrConcurrentModification
	require.True(t, errors.As(err, &conflict), "got %v", err)

	fresh, err := f.prospects.Get(ctx, advisorAScope, a.ID)
	require.NoError(t, err)
	saved, err := f.prospects.SaveQuote(ctx, advisorAScope, a.ID, fresh.UpdatedAt, q, nil)
	require.NoError(t, err)
	assert.True(t, saved.HasQuote)
	assert.True(t, saved.ListPriceAtQuote.Decimal.Equal(q.ListPrice))
	assert.True(t, saved.OfferedPrice.Decimal.Equal(q.OfferedPrice))

	n, err := f.prospects.CountActiveQuotes(ctx, "prop-1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = f.prospects.CancelQuote(ctx, advisorAScope, a.ID, nil)
	require.NoError(t, err)
	n, err = f.prospects.CountActiveQuotes(ctx, "prop-1")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestProspectStore_DeleteRequiresEmptyHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.seedProspect(t, "adv-a", "team-1")
	b := f.seedProspect(t, "adv-a", "team-1")

	require.NoError(t, f.notes.Append(ctx, &domain.ProspectNote{ID: uuid.NewString(), ProspectID: a.ID, Note: "hola"}))

	_, err := f.prospects.Delete(ctx, advisorAScope, a.ID)
	var verr *domain.ErrValidation
	require.True(t, errors.As(err, &verr), "got %v", err)

	deleted, err := f.prospects.Delete(ctx, advisorAScope, b.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = f.prospects.Delete(ctx, advisorAScope, b.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestProspectStore_ListFiltersAndArchive(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.seedProspect(t, "adv-a", "team-1")
	b := f.seedProspect(t, "adv-a", "team-1")

	_, err := f.prospects.SetArchived(ctx, advisorAScope, b.ID, true)
	require.NoError(t, err)

	active, err := f.prospects.List(ctx, advisorAScope, domain.ProspectListFilter{})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, a.ID, active[0].ID)

	withArchived, err := f.prospects.List(ctx, advisorAScope, domain.ProspectListFilter{IncludeArchived: true})
	require.NoError(t, err)
	assert.Len(t, withArchived, 2)

	found, err := f.prospects.List(ctx, advisorAScope, domain.ProspectListFilter{Search: "PROSPECT OF"})
	require.NoError(t, err)
	assert.Len(t, found, 1)

	hot, err := f.prospects.List(ctx, advisorAScope, domain.ProspectListFilter{Temperature: domain.TempHot})
	require.NoError(t, err)
	assert.Empty(t, hot)
}

func TestProspectStore_CountStale(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.seedProspect(t, "adv-a", "team-1")
	f.seedProspect(t, "adv-a", "team-1")

	require.NoError(t, f.activities.Create(ctx, &domain.Activity{
		ID: uuid.NewString(), ProspectID: a.ID, AssignedTo: "adv-a", Type: domain.ActivityCall,
		ActivityDate: "2024-05-10", ActivityTime: "10:00", Status: domain.ActivityPending,
	}))

	n, err := f.prospects.CountStale(ctx, advisorAScope, "2024-05-05")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = f.prospects.CountStale(ctx, advisorAScope, "2024-05-11")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

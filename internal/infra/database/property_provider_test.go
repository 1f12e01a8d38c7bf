package database_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/boddenberg/realty-pipeline-go/internal/domain"
	"github.com/boddenberg/realty-pipeline-go/internal/infra/database"
)

func price(v int64) decimal.NullDecimal { return decimal.NewNullDecimal(decimal.NewFromInt(v)) }

func TestPropertyProvider_CreateValidates(t *testing.T) {
	p := database.NewPropertyProvider(openTestDB(t), zap.NewNop())

	_, err := p.Create(context.Background(), domain.PropertyInput{ListPrice: price(100)})
	var verr *domain.ErrValidation
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "unit_number", verr.Field)

	_, err = p.Create(context.Background(), domain.PropertyInput{UnitNumber: "101"})
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "list_price", verr.Field)
}

func TestPropertyProvider_GetAllOrdering(t *testing.T) {
	ctx := context.Background()
	p := database.NewPropertyProvider(openTestDB(t), zap.NewNop())
	for _, in := range []domain.PropertyInput{
		{Tower: "B", UnitNumber: "101", ListPrice: price(1)},
		{Tower: "A", UnitNumber: "202", ListPrice: price(1)},
		{Tower: "A", UnitNumber: "101", ListPrice: price(1)},
	} {
		_, err := p.Create(ctx, in)
		require.NoError(t, err)
	}
	all, err := p.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	got := []string{all[0].Tower + all[0].UnitNumber, all[1].Tower + all[1].UnitNumber, all[2].Tower + all[2].UnitNumber}
	assert.Equal(t, []string{"A101", "A202", "B101"}, got)
	assert.Equal(t, domain.PropertyAvailable, all[0].Status)
}

func TestPropertyProvider_UpdateRoundTrip(t *testing.T) {
	ctx := context.Background()
	// A frozen clock still has to produce a strictly later updated_at.
	clock := database.WithClock(fixedClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)))
	p := database.NewPropertyProvider(openTestDB(t), zap.NewNop(), clock)

	created, err := p.Create(ctx, domain.PropertyInput{Tower: "A", UnitNumber: "101", ListPrice: price(2_500_000)})
	require.NoError(t, err)

	status := domain.PropertyReserved
	_, err = p.Update(ctx, created.ID, domain.PropertyPatch{Status: &status})
	require.NoError(t, err)

	got, err := p.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.PropertyReserved, got.Status)
	assert.True(t, got.UpdatedAt.After(created.UpdatedAt), "updated_at must strictly increase")
	assert.True(t, got.ListPrice.Equal(decimal.NewFromInt(2_500_000)))
	assert.Equal(t, "101", got.UnitNumber)
}

func TestPropertyProvider_ExpectStatusPrecondition(t *testing.T) {
	ctx := context.Background()
	p := database.NewPropertyProvider(openTestDB(t), zap.NewNop())
	created, err := p.Create(ctx, domain.PropertyInput{UnitNumber: "7", ListPrice: price(10)})
	require.NoError(t, err)

	expect := domain.PropertyInProcess
	next := domain.PropertyReserved
	_, err = p.Update(ctx, created.ID, domain.PropertyPatch{Status: &next, ExpectStatus: &expect})
	var conflict *domain.ErrConcurrentModification
	require.True(t, errors.As(err, &conflict), "got %v", err)
	assert.Equal(t, "status", conflict.Field)
}

func TestPropertyProvider_AbsentAndRemove(t *testing.T) {
	ctx := context.Background()
	p := database.NewPropertyProvider(openTestDB(t), zap.NewNop())

	got, err := p.GetByID(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, got, "absence is not an error")

	var nf *domain.ErrNotFound
	_, err = p.Update(ctx, "missing", domain.PropertyPatch{})
	require.True(t, errors.As(err, &nf))
	require.True(t, errors.As(p.Remove(ctx, "missing"), &nf))

	created, err := p.Create(ctx, domain.PropertyInput{UnitNumber: "9", ListPrice: price(10), Attachments: []string{"https://cdn.example.com/9.pdf"}})
	require.NoError(t, err)
	got, err = p.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://cdn.example.com/9.pdf"}, got.Attachments)

	require.NoError(t, p.Remove(ctx, created.ID))
	got, err = p.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

package mongostore

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/boddenberg/realty-pipeline-go/internal/domain"
)

func TestDocRoundTrip(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	in := domain.Property{
		ID:              "p1",
		Tower:           "A",
		UnitNumber:      "101",
		SqmConstruction: decimal.NewNullDecimal(decimal.RequireFromString("85.50")),
		ListPrice:       decimal.RequireFromString("2450000.75"),
		Status:          domain.PropertyInProcess,
		Attachments:     []string{"https://cdn.example.com/a.pdf"},
		CreatedAt:       at,
		UpdatedAt:       at,
	}

	out := docFrom(in).toDomain()

	if !out.ListPrice.Equal(in.ListPrice) {
		t.Errorf("list price %s != %s", out.ListPrice, in.ListPrice)
	}
	if !out.SqmConstruction.Valid || !out.SqmConstruction.Decimal.Equal(in.SqmConstruction.Decimal) {
		t.Errorf("sqm_construction lost: %+v", out.SqmConstruction)
	}
	if out.SqmTerrace.Valid {
		t.Error("absent sqm_terrace must stay null")
	}
	if out.Status != in.Status || out.UnitNumber != in.UnitNumber || !out.UpdatedAt.Equal(at) {
		t.Errorf("fields not preserved: %+v", out)
	}
}

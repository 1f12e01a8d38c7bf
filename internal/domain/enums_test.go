package domain_test

import (
	"errors"
	"testing"

	"github.com/boddenberg/realty-pipeline-go/internal/domain"
)

func TestTemperatureOrder(t *testing.T) {
	for i := 1; i < len(domain.Temperatures); i++ {
		if domain.Temperatures[i-1].Rank() >= domain.Temperatures[i].Rank() {
			t.Fatalf("%s must rank below %s", domain.Temperatures[i-1], domain.Temperatures[i])
		}
	}
	if domain.Temperature("Helado").Valid() {
		t.Error("unknown temperature must be invalid")
	}
	if !domain.TempHot.IsHot() || !domain.TempImminent.IsHot() || domain.TempMedium.IsHot() {
		t.Error("hot set must be Caliente and Cierre Inminente")
	}
}

func TestPropertyStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to domain.PropertyStatus
		rollback bool
		want     bool
	}{
		{domain.PropertyAvailable, domain.PropertyReserved, false, true},
		{domain.PropertyReserved, domain.PropertySold, false, true},
		{domain.PropertySold, domain.PropertyAvailable, false, false},
		{domain.PropertySold, domain.PropertyAvailable, true, true},
		{domain.PropertyReserved, domain.PropertyInProcess, false, false},
		{domain.PropertyAvailable, "Rentado", true, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to, tt.rollback); got != tt.want {
			t.Errorf("%s -> %s (rollback=%v) = %v, want %v", tt.from, tt.to, tt.rollback, got, tt.want)
		}
	}
	if domain.PropertyReserved.Quotable() || !domain.PropertyInProcess.Quotable() {
		t.Error("only Disponible and En proceso are quotable")
	}
}

func TestProviderWrapping(t *testing.T) {
	raw := errors.New("connection reset")
	err := domain.Provider("supabase", "GetAll", raw)

	var perr *domain.ErrProvider
	if !errors.As(err, &perr) || perr.Backend != "supabase" {
		t.Fatalf("expected ErrProvider, got %v", err)
	}
	if !errors.Is(err, raw) {
		t.Error("cause must stay reachable through Unwrap")
	}

	nf := &domain.ErrNotFound{Resource: "property", ID: "p1"}
	if domain.Provider("supabase", "GetByID", nf) != error(nf) {
		t.Error("taxonomy errors must pass through unchanged")
	}
	if domain.Provider("x", "y", nil) != nil {
		t.Error("nil must stay nil")
	}
}

package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/boddenberg/realty-pipeline-go/internal/domain"
	"github.com/boddenberg/realty-pipeline-go/internal/infra/cache"
	"github.com/boddenberg/realty-pipeline-go/internal/infra/database"
	"github.com/boddenberg/realty-pipeline-go/internal/infra/observability"
	"github.com/boddenberg/realty-pipeline-go/internal/infra/provider"
	"github.com/boddenberg/realty-pipeline-go/internal/port"
	"github.com/boddenberg/realty-pipeline-go/internal/service"
)

// now is the business clock of every fixture: Sunday 2023-11-26 09:00 UTC.
var now = time.Date(2023, 11, 26, 9, 0, 0, 0, time.UTC)

type recordedEvents struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recordedEvents) Publish(_ context.Context, e domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordedEvents) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	pipeline   *service.PipelineService
	activities *service.ActivityService
	inventory  *service.InventoryService
	directory  *service.DirectoryService
	dashboard  *service.DashboardService
	identity   *service.IdentityService
	events     *recordedEvents

	admin, leader, ana, beto, carla domain.Actor
	teamNorth, teamSouth            string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, nil)
}

// newFixtureWith lets a test interpose on the inventory backend seen by
// every service.
func newFixtureWith(t *testing.T, wrap func(port.InventoryProvider) port.InventoryProvider) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := database.Open(database.Options{Driver: "sqlite", DSN: dsn, AutoMigrate: true}, logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	storeClock := database.WithClock(tickingClock(now.Add(-time.Hour)))
	prospects := database.NewProspectStore(db, logger, storeClock)
	notes := database.NewNoteStore(db, logger, storeClock)
	activities := database.NewActivityStore(db, logger, storeClock)
	dir := database.NewDirectoryStore(db, logger, storeClock)
	var units port.InventoryProvider = provider.NewGuard(database.NewPropertyProvider(db, logger, storeClock), prospects, logger)
	if wrap != nil {
		units = wrap(units)
	}

	results := cache.New[*domain.Dashboard](time.Minute)
	t.Cleanup(results.Close)

	opts := []service.Option{service.WithClock(func() time.Time { return now }), service.WithLocation(time.UTC)}
	events := &recordedEvents{}
	dash := service.NewDashboardService(prospects, activities, dir, units, results, metrics, logger, opts...)

	f := &fixture{
		pipeline:   service.NewPipelineService(prospects, notes, dir, units, events, dash, metrics, logger, opts...),
		activities: service.NewActivityService(activities, prospects, dir, 7, events, dash, metrics, logger, opts...),
		inventory:  service.NewInventoryService(units, events, dash, metrics, logger, opts...),
		directory:  service.NewDirectoryService(dir, dash, metrics, logger, opts...),
		dashboard:  dash,
		identity:   service.NewIdentityService(dir, "test-secret", logger, opts...),
		events:     events,
		teamNorth:  "team-north",
		teamSouth:  "team-south",
	}

	require.NoError(t, dir.CreateTeam(ctx, &domain.Team{ID: f.teamNorth, Name: "Norte"}))
	require.NoError(t, dir.CreateTeam(ctx, &domain.Team{ID: f.teamSouth, Name: "Sur"}))

	seed := func(id, name string, role domain.Role, team string) domain.Actor {
		u := &domain.UserProfile{ID: id, FullName: name, Role: role, TeamID: team}
		require.NoError(t, dir.SaveUser(ctx, u))
		return u.Actor()
	}
	f.admin = seed("u-admin", "Diana Directora", domain.RoleSuperAdmin, "")
	f.leader = seed("u-leader", "Luis Líder", domain.RoleTeamLeader, f.teamNorth)
	f.ana = seed("u-ana", "Ana Asesora", domain.RoleSalesAdvisor, f.teamNorth)
	f.beto = seed("u-beto", "Beto Asesor", domain.RoleSalesAdvisor, f.teamNorth)
	f.carla = seed("u-carla", "Carla Asesora", domain.RoleSalesAdvisor, f.teamSouth)
	return f
}

func tickingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	t := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

func (f *fixture) prospect(t *testing.T, owner domain.Actor, name string) *domain.Prospect {
	t.Helper()
	p, err := f.pipeline.CreateProspect(context.Background(), owner, domain.CreateProspectInput{FullName: name})
	require.NoError(t, err)
	return p
}

func (f *fixture) unit(t *testing.T, number string, price int64, status domain.PropertyStatus) *domain.Property {
	t.Helper()
	p, err := f.inventory.Create(context.Background(), f.admin, domain.PropertyInput{
		Tower:      "A",
		UnitNumber: number,
		ListPrice:  decimal.NewNullDecimal(decimal.NewFromInt(price)),
		Status:     status,
	})
	require.NoError(t, err)
	return p
}

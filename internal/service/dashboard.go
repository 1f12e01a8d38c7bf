package service

import (
	"context"
	"math"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/boddenberg/realty-pipeline-go/internal/domain"
	"github.com/boddenberg/realty-pipeline-go/internal/infra/observability"
	"github.com/boddenberg/realty-pipeline-go/internal/port"
)

var dashboardTracer = otel.Tracer("service/dashboard")

const dashboardCache = "dashboard"

// DashboardService derives read-only rollups from scoped state. Results may
// be cached per scope and day; any mutation clears the cache through
// Invalidate.
type DashboardService struct {
	core
	prospects  port.ProspectStore
	activities port.ActivityStore
	directory  port.DirectoryStore
	inventory  port.InventoryProvider
	results    port.Cache[*domain.Dashboard]

	// generation advances on every Invalidate. A rollup is cached only if no
	// invalidation happened while it was being loaded.
	generation atomic.Uint64
}

func NewDashboardService(
	prospects port.ProspectStore,
	activities port.ActivityStore,
	directory port.DirectoryStore,
	inventory port.InventoryProvider,
	results port.Cache[*domain.Dashboard],
	metrics *observability.Metrics,
	logger *zap.Logger,
	opts ...Option,
) *DashboardService {
	return &DashboardService{
		core:       newCore(nil, nil, metrics, logger, opts),
		prospects:  prospects,
		activities: activities,
		directory:  directory,
		inventory:  inventory,
		results:    results,
	}
}

// Invalidate implements Invalidator.
func (s *DashboardService) Invalidate() {
	s.generation.Add(1)
	if s.results != nil {
		s.results.Clear()
	}
}

func (s *DashboardService) Get(ctx context.Context, actor domain.Actor) (_ *domain.Dashboard, err error) {
	ctx, span := dashboardTracer.Start(ctx, "DashboardService.Get")
	defer span.End()
	defer s.observe("dashboard.get", time.Now(), &err)

	sc, err := s.resolve(actor)
	if err != nil {
		return nil, err
	}
	f := sc.Filter()
	today := s.opts.today()
	key := f.Key() + "|" + today
	span.SetAttributes(attribute.String("dashboard.scope", f.Key()))

	if s.results != nil {
		if d, ok := s.results.Get(key); ok {
			s.metrics.IncrCacheHit(dashboardCache)
			return d, nil
		}
		s.metrics.IncrCacheMiss(dashboardCache)
	}
	gen := s.generation.Load()

	var (
		prospects  []domain.Prospect
		activities []domain.Activity
		teams      []domain.Team
		advisors   map[string]int
		units      []domain.Property
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		prospects, err = s.prospects.List(gctx, f, domain.ProspectListFilter{})
		return err
	})
	g.Go(func() error {
		var err error
		activities, err = s.activities.List(gctx, f, domain.ActivityListFilter{Date: today})
		return err
	})
	g.Go(func() error {
		var err error
		teams, err = s.directory.ListTeams(gctx, f)
		return err
	})
	g.Go(func() error {
		var err error
		advisors, err = s.directory.CountAdvisorsByTeam(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		units, err = s.inventory.GetAll(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("dashboard load failed", zap.String("scope", f.Key()), zap.Error(err))
		return nil, err
	}

	now := s.opts.now()
	d := &domain.Dashboard{
		GeneratedAt:        now.UTC(),
		Scope:              f.Key(),
		Funnel:             FunnelOf(prospects),
		Temperatures:       TemperatureDistribution(prospects),
		Teams:              TeamSummaries(teams, advisors, prospects),
		Today:              TodayCounts(today, activities, now, s.opts.loc),
		Inventory:          InventoryCounts(units),
		AverageDiscountPct: AverageDiscountPct(prospects),
	}
	s.store(key, gen, d)
	return d, nil
}

// store caches d unless a mutation invalidated the cache after gen was read.
// The second check covers an Invalidate that lands between the first check
// and Set.
func (s *DashboardService) store(key string, gen uint64, d *domain.Dashboard) {
	if s.results == nil || s.generation.Load() != gen {
		return
	}
	s.results.Set(key, d)
	if s.generation.Load() != gen {
		s.results.Delete(key)
	}
}

// FunnelOf counts each prospect at every stage up to the furthest it
// reached, so Registered >= Visited >= Quoted >= ClosedImminent.
func FunnelOf(prospects []domain.Prospect) domain.Funnel {
	var f domain.Funnel
	for i := range prospects {
		p := &prospects[i]
		imminent := p.Temperature == domain.TempImminent
		quoted := p.HasQuote || imminent
		visited := p.Visited || quoted

		f.Registered++
		if visited {
			f.Visited++
		}
		if quoted {
			f.Quoted++
		}
		if imminent {
			f.ClosedImminent++
		}
	}
	return f
}

// TemperatureDistribution has one bucket per temperature in rank order.
// Unknown stored values are counted as the default temperature so the
// buckets always sum to len(prospects).
func TemperatureDistribution(prospects []domain.Prospect) []domain.TemperatureBucket {
	counts := make(map[domain.Temperature]int, len(domain.Temperatures))
	for i := range prospects {
		t := prospects[i].Temperature
		if !t.Valid() {
			t = domain.DefaultTemperature
		}
		counts[t]++
	}
	out := make([]domain.TemperatureBucket, 0, len(domain.Temperatures))
	for _, t := range domain.Temperatures {
		out = append(out, domain.TemperatureBucket{Temperature: t, Count: counts[t]})
	}
	return out
}

// TeamSummaries builds one row per team. ConversionPct is
// round(100 * hot / prospects) and 0 for a team without prospects.
func TeamSummaries(teams []domain.Team, advisors map[string]int, prospects []domain.Prospect) []domain.TeamSummary {
	type tally struct{ total, hot int }
	byTeam := make(map[string]*tally, len(teams))
	for i := range prospects {
		p := &prospects[i]
		t := byTeam[p.TeamID]
		if t == nil {
			t = &tally{}
			byTeam[p.TeamID] = t
		}
		t.total++
		if p.Temperature.IsHot() {
			t.hot++
		}
	}

	out := make([]domain.TeamSummary, 0, len(teams))
	for _, team := range teams {
		row := domain.TeamSummary{TeamID: team.ID, TeamName: team.Name, AdvisorCount: advisors[team.ID]}
		if t := byTeam[team.ID]; t != nil {
			row.ProspectCount = t.total
			row.HotCount = t.hot
		}
		row.ConversionPct = ConversionPct(row.HotCount, row.ProspectCount)
		out = append(out, row)
	}
	return out
}

func ConversionPct(hot, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(hot) * 100 / float64(total)))
}

// TodayCounts classifies the activities dated today at now.
func TodayCounts(today string, activities []domain.Activity, now time.Time, loc *time.Location) domain.TodayActivities {
	out := domain.TodayActivities{Date: today}
	for i := range activities {
		if activities[i].ActivityDate != today {
			continue
		}
		out.Add(domain.Classify(&activities[i], now, loc))
	}
	return out
}

func InventoryCounts(units []domain.Property) []domain.InventoryCount {
	counts := make(map[domain.PropertyStatus]int, len(domain.PropertyStatuses))
	for i := range units {
		counts[units[i].Status]++
	}
	out := make([]domain.InventoryCount, 0, len(domain.PropertyStatuses))
	for _, st := range domain.PropertyStatuses {
		out = append(out, domain.InventoryCount{Status: st, Count: counts[st]})
	}
	return out
}

// AverageDiscountPct averages (list - offered) / list over active quotes,
// as a percentage with one decimal.
func AverageDiscountPct(prospects []domain.Prospect) float64 {
	sum := decimal.Zero
	n := 0
	hundred := decimal.NewFromInt(100)
	for i := range prospects {
		p := &prospects[i]
		discount, ok := p.Discount()
		if !ok || !p.ListPriceAtQuote.Decimal.IsPositive() {
			continue
		}
		sum = sum.Add(discount.Div(p.ListPriceAtQuote.Decimal).Mul(hundred))
		n++
	}
	if n == 0 {
		return 0
	}
	return sum.Div(decimal.NewFromInt(int64(n))).Round(1).InexactFloat64()
}

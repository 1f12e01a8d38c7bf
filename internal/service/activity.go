package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/realty-pipeline-go/internal/domain"
	"github.com/boddenberg/realty-pipeline-go/internal/infra/observability"
	"github.com/boddenberg/realty-pipeline-go/internal/port"
	"github.com/boddenberg/realty-pipeline-go/internal/scope"
)

var activityTracer = otel.Tracer("service/activity")

// ActivityService schedules follow-ups and moves them through
// Pendiente -> {Realizada, No contestó, Reprogramada}, Reprogramada -> Pendiente.
// Classification is computed on every read and never stored.
type ActivityService struct {
	core
	activities port.ActivityStore
	prospects  port.ProspectStore
	directory  port.DirectoryStore
	staleDays  int
}

func NewActivityService(
	activities port.ActivityStore,
	prospects port.ProspectStore,
	directory port.DirectoryStore,
	staleDays int,
	events port.EventPublisher,
	cache Invalidator,
	metrics *observability.Metrics,
	logger *zap.Logger,
	opts ...Option,
) *ActivityService {
	if staleDays <= 0 {
		staleDays = 7
	}
	return &ActivityService{
		core:       newCore(events, cache, metrics, logger, opts),
		activities: activities,
		prospects:  prospects,
		directory:  directory,
		staleDays:  staleDays,
	}
}

func (s *ActivityService) view(a domain.Activity) domain.ActivityView {
	return domain.View(a, s.opts.now(), s.opts.loc)
}

// Schedule creates a Pendiente activity on a prospect in scope. The
// assignee defaults to the actor and must be admitted by the actor's scope.
func (s *ActivityService) Schedule(ctx context.Context, actor domain.Actor, in domain.ScheduleActivityInput) (_ *domain.ActivityView, err error) {
	ctx, span := activityTracer.Start(ctx, "ActivityService.Schedule")
	defer span.End()
	span.SetAttributes(attribute.String("prospect.id", in.ProspectID))
	defer s.observe("activity.schedule", time.Now(), &err)

	sc, err := s.resolve(actor)
	if err != nil {
		return nil, err
	}
	if in.ProspectID == "" {
		return nil, &domain.ErrValidation{Field: "prospect_id", Message: "is required"}
	}
	if !in.Type.Valid() {
		return nil, &domain.ErrValidation{Field: "type", Value: string(in.Type), Message: "unknown activity type"}
	}
	if _, err := domain.ParseDate("activity_date", in.Date, s.opts.loc); err != nil {
		return nil, err
	}
	clock, err := domain.ParseClock("activity_time", in.Time)
	if err != nil {
		return nil, err
	}

	p, err := s.prospects.Get(ctx, sc.Filter(), in.ProspectID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, s.outOfScope(ctx, s.prospects.Exists, actor, "schedule activity on", "prospect", in.ProspectID)
	}

	assignee := in.AssignedTo
	if assignee == "" {
		assignee = actor.ID
	}
	if err := s.checkAssignee(ctx, sc, assignee); err != nil {
		return nil, err
	}

	a := &domain.Activity{
		ID:           uuid.NewString(),
		ProspectID:   p.ID,
		AssignedTo:   assignee,
		Type:         in.Type,
		ActivityDate: strings.TrimSpace(in.Date),
		ActivityTime: clock,
		Description:  strings.TrimSpace(in.Description),
		Status:       domain.ActivityPending,
	}
	if err := s.activities.Create(ctx, a); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("activity.id", a.ID))

	s.logger.Info("activity scheduled",
		zap.String("activity_id", a.ID),
		zap.String("prospect_id", a.ProspectID),
		zap.String("assigned_to", a.AssignedTo),
		zap.String("actor_id", actor.ID),
	)
	s.publish(ctx, actor, domain.EventActivityScheduled, a.ID, map[string]string{
		"prospect_id":   a.ProspectID,
		"assigned_to":   a.AssignedTo,
		"activity_date": a.ActivityDate,
		"activity_time": a.ActivityTime,
	})
	v := s.view(*a)
	return &v, nil
}

// checkAssignee rejects assignees outside the acting scope as invalid input.
func (s *ActivityService) checkAssignee(ctx context.Context, sc scope.Scope, id string) error {
	u, err := s.directory.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if u == nil {
		return &domain.ErrValidation{Field: "assigned_to", Value: id, Message: "unknown user"}
	}
	if !sc.Admits(u) {
		return &domain.ErrValidation{Field: "assigned_to", Value: id, Message: "assignee is outside your scope"}
	}
	return nil
}

func (s *ActivityService) Get(ctx context.Context, actor domain.Actor, id string) (_ *domain.ActivityView, err error) {
	ctx, span := activityTracer.Start(ctx, "ActivityService.Get")
	defer span.End()
	defer s.observe("activity.get", time.Now(), &err)

	sc, err := s.resolve(actor)
	if err != nil {
		return nil, err
	}
	a, err := s.load(ctx, sc, "read", id)
	if err != nil {
		return nil, err
	}
	v := s.view(*a)
	return &v, nil
}

func (s *ActivityService) load(ctx context.Context, sc scope.Scope, action, id string) (*domain.Activity, error) {
	a, err := s.activities.Get(ctx, sc.Filter(), id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, s.outOfScope(ctx, s.activities.Exists, sc.Actor(), action, "activity", id)
	}
	return a, nil
}

func (s *ActivityService) List(ctx context.Context, actor domain.Actor, q domain.ActivityListFilter) (_ []domain.ActivityView, err error) {
	ctx, span := activityTracer.Start(ctx, "ActivityService.List")
	defer span.End()
	defer s.observe("activity.list", time.Now(), &err)

	sc, err := s.resolve(actor)
	if err != nil {
		return nil, err
	}
	if q.Date != "" {
		if _, err := domain.ParseDate("activity_date", q.Date, s.opts.loc); err != nil {
			return nil, err
		}
	}
	if q.Status != "" && !q.Status.Valid() {
		return nil, &domain.ErrValidation{Field: "status", Value: string(q.Status), Message: "unknown activity status"}
	}
	list, err := s.activities.List(ctx, sc.Filter(), q)
	if err != nil {
		return nil, err
	}
	now := s.opts.now()
	out := make([]domain.ActivityView, 0, len(list))
	for _, a := range list {
		out = append(out, domain.View(a, now, s.opts.loc))
	}
	return out, nil
}

// Complete moves Pendiente -> Realizada. Any other current status is
// rejected, a second completion included.
func (s *ActivityService) Complete(ctx context.Context, actor domain.Actor, id string) (*domain.ActivityView, error) {
	return s.transition(ctx, actor, "activity.complete", id, domain.ActivityDone, "", "")
}

// MarkNoAnswer moves Pendiente -> No contestó.
func (s *ActivityService) MarkNoAnswer(ctx context.Context, actor domain.Actor, id string) (*domain.ActivityView, error) {
	return s.transition(ctx, actor, "activity.no_answer", id, domain.ActivityNoAnswer, "", "")
}

// Reopen moves Reprogramada -> Pendiente keeping the new date and time.
func (s *ActivityService) Reopen(ctx context.Context, actor domain.Actor, id string) (*domain.ActivityView, error) {
	return s.transition(ctx, actor, "activity.reopen", id, domain.ActivityPending, "", "")
}

// Reschedule moves a non-terminal activity to Reprogramada with a new slot.
func (s *ActivityService) Reschedule(ctx context.Context, actor domain.Actor, id string, in domain.RescheduleInput) (*domain.ActivityView, error) {
	if _, err := domain.ParseDate("activity_date", in.Date, s.opts.loc); err != nil {
		return nil, err
	}
	clock, err := domain.ParseClock("activity_time", in.Time)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, actor, "activity.reschedule", id, domain.ActivityRescheduled, strings.TrimSpace(in.Date), clock)
}

func (s *ActivityService) transition(ctx context.Context, actor domain.Actor, op, id string, to domain.ActivityStatus, date, clock string) (_ *domain.ActivityView, err error) {
	ctx, span := activityTracer.Start(ctx, "ActivityService.Transition")
	defer span.End()
	span.SetAttributes(attribute.String("activity.id", id), attribute.String("status.to", string(to)))
	defer s.observe(op, time.Now(), &err)

	sc, err := s.resolve(actor)
	if err != nil {
		return nil, err
	}
	a, err := s.load(ctx, sc, "update", id)
	if err != nil {
		return nil, err
	}
	from := a.Status
	if !from.CanTransitionTo(to) {
		msg := "cannot move from " + string(from) + " to " + string(to)
		if from.Terminal() {
			msg = "activity is already " + string(from)
		}
		return nil, &domain.ErrValidation{Field: "status", Value: string(to), Message: msg}
	}

	updated, err := s.activities.Transition(ctx, sc.Filter(), id, from, domain.ActivityUpdate{Status: to, Date: date, Time: clock})
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, s.outOfScope(ctx, s.activities.Exists, actor, "update", "activity", id)
	}

	s.logger.Info("activity status changed",
		zap.String("activity_id", id),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("actor_id", actor.ID),
	)
	attrs := map[string]string{"prospect_id": updated.ProspectID, "from": string(from), "to": string(to)}
	if date != "" {
		attrs["activity_date"] = date
		attrs["activity_time"] = clock
	}
	s.publish(ctx, actor, domain.EventActivityStatusChanged, id, attrs)
	v := s.view(*updated)
	return &v, nil
}

// Summary totals the activities in scope by class and counts prospects
// with no activity dated within the last staleDays days. Temperatures are
// never changed as a consequence.
func (s *ActivityService) Summary(ctx context.Context, actor domain.Actor) (_ *domain.ActivitySummary, err error) {
	ctx, span := activityTracer.Start(ctx, "ActivityService.Summary")
	defer span.End()
	defer s.observe("activity.summary", time.Now(), &err)

	sc, err := s.resolve(actor)
	if err != nil {
		return nil, err
	}
	list, err := s.activities.List(ctx, sc.Filter(), domain.ActivityListFilter{})
	if err != nil {
		return nil, err
	}
	now := s.opts.now()
	out := &domain.ActivitySummary{StaleDays: s.staleDays}
	for i := range list {
		out.Add(domain.Classify(&list[i], now, s.opts.loc))
	}

	since := now.In(s.opts.loc).AddDate(0, 0, -s.staleDays).Format(domain.DateLayout)
	stale, err := s.prospects.CountStale(ctx, sc.Filter(), since)
	if err != nil {
		return nil, err
	}
	out.StaleProspects = int(stale)
	return out, nil
}

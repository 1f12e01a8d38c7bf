package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boddenberg/realty-pipeline-go/internal/domain"
)

func schedule(t *testing.T, f *fixture, actor domain.Actor, prospectID, date, clock string) *domain.ActivityView {
	t.Helper()
	v, err := f.activities.Schedule(context.Background(), actor, domain.ScheduleActivityInput{
		ProspectID: prospectID,
		Type:       domain.ActivityCall,
		Date:       date,
		Time:       clock,
	})
	require.NoError(t, err)
	return v
}

func TestOverdueActivityCanBeCompletedOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.prospect(t, f.ana, "Atrasado")

	v := schedule(t, f, f.ana, p.ID, "2023-11-24", "11:00")
	assert.Equal(t, domain.ActivityPending, v.Status)
	assert.Equal(t, domain.ClassOverdue, v.Class)
	assert.True(t, v.IsOverdue)
	assert.Equal(t, f.ana.ID, v.AssignedTo)

	done, err := f.activities.Complete(ctx, f.ana, v.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ActivityDone, done.Status)
	assert.Equal(t, domain.ClassCompleted, done.Class)
	assert.False(t, done.IsOverdue)

	_, err = f.activities.Complete(ctx, f.ana, v.ID)
	var verr *domain.ErrValidation
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "status", verr.Field)
}

func TestActivityLaterTodayIsPending(t *testing.T) {
	f := newFixture(t)
	p := f.prospect(t, f.ana, "Hoy")

	later := schedule(t, f, f.ana, p.ID, "2023-11-26", "09:30")
	assert.Equal(t, domain.ClassPending, later.Class)

	earlier := schedule(t, f, f.ana, p.ID, "2023-11-26", "08:59")
	assert.Equal(t, domain.ClassOverdue, earlier.Class)
}

func TestScheduleValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.prospect(t, f.ana, "Validado")
	var verr *domain.ErrValidation

	cases := []domain.ScheduleActivityInput{
		{Type: domain.ActivityCall, Date: "2023-11-27", Time: "10:00"},
		{ProspectID: p.ID, Type: "Telegrama", Date: "2023-11-27", Time: "10:00"},
		{ProspectID: p.ID, Type: domain.ActivityCall, Date: "27-11-2023", Time: "10:00"},
		{ProspectID: p.ID, Type: domain.ActivityCall, Date: "2023-11-27", Time: "25:00"},
	}
	for _, in := range cases {
		_, err := f.activities.Schedule(ctx, f.ana, in)
		require.ErrorAs(t, err, &verr, "%+v", in)
	}

	v, err := f.activities.Schedule(ctx, f.ana, domain.ScheduleActivityInput{
		ProspectID: p.ID, Type: domain.ActivityMeeting, Date: "2023-11-27", Time: "10:00:00",
	})
	require.NoError(t, err)
	assert.Equal(t, "10:00", v.ActivityTime)
}

func TestScheduleAssigneeMustBeInScope(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.prospect(t, f.ana, "Asignación")
	in := domain.ScheduleActivityInput{ProspectID: p.ID, Type: domain.ActivityCall, Date: "2023-11-27", Time: "10:00"}

	in.AssignedTo = f.beto.ID
	_, err := f.activities.Schedule(ctx, f.ana, in)
	var verr *domain.ErrValidation
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "assigned_to", verr.Field)

	in.AssignedTo = f.carla.ID
	_, err = f.activities.Schedule(ctx, f.leader, in)
	require.ErrorAs(t, err, &verr)

	in.AssignedTo = f.beto.ID
	v, err := f.activities.Schedule(ctx, f.leader, in)
	require.NoError(t, err)
	assert.Equal(t, f.beto.ID, v.AssignedTo)

	// the prospect itself must be in scope
	in.AssignedTo = ""
	_, err = f.activities.Schedule(ctx, f.carla, in)
	var unauth *domain.ErrUnauthorized
	require.ErrorAs(t, err, &unauth)
}

func TestRescheduleAndReopen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.prospect(t, f.ana, "Reprogramado")
	v := schedule(t, f, f.ana, p.ID, "2023-11-25", "10:00")

	moved, err := f.activities.Reschedule(ctx, f.ana, v.ID, domain.RescheduleInput{Date: "2023-11-28", Time: "16:15"})
	require.NoError(t, err)
	assert.Equal(t, domain.ActivityRescheduled, moved.Status)
	assert.Equal(t, domain.ClassRescheduled, moved.Class)
	assert.Equal(t, "2023-11-28", moved.ActivityDate)
	assert.Equal(t, "16:15", moved.ActivityTime)

	again, err := f.activities.Reschedule(ctx, f.ana, v.ID, domain.RescheduleInput{Date: "2023-11-29", Time: "09:00"})
	require.NoError(t, err)
	assert.Equal(t, "2023-11-29", again.ActivityDate)

	_, err = f.activities.Complete(ctx, f.ana, v.ID)
	var verr *domain.ErrValidation
	require.ErrorAs(t, err, &verr)

	reopened, err := f.activities.Reopen(ctx, f.ana, v.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ActivityPending, reopened.Status)
	assert.Equal(t, domain.ClassPending, reopened.Class)
	assert.Equal(t, "2023-11-29", reopened.ActivityDate)

	_, err = f.activities.Reopen(ctx, f.ana, v.ID)
	require.ErrorAs(t, err, &verr)

	_, err = f.activities.Reschedule(ctx, f.ana, v.ID, domain.RescheduleInput{Date: "mañana", Time: "09:00"})
	require.ErrorAs(t, err, &verr)
}

func TestNoAnswerIsTerminal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.prospect(t, f.ana, "Silencio")
	v := schedule(t, f, f.ana, p.ID, "2023-11-26", "08:00")

	got, err := f.activities.MarkNoAnswer(ctx, f.ana, v.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ActivityNoAnswer, got.Status)
	assert.Equal(t, domain.ClassCompleted, got.Class)

	var verr *domain.ErrValidation
	_, err = f.activities.Reschedule(ctx, f.ana, v.ID, domain.RescheduleInput{Date: "2023-11-27", Time: "08:00"})
	require.ErrorAs(t, err, &verr)
	_, err = f.activities.Complete(ctx, f.ana, v.ID)
	require.ErrorAs(t, err, &verr)
}

func TestActivityVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mine := f.prospect(t, f.ana, "Mío")
	theirs := f.prospect(t, f.beto, "Suyo")
	schedule(t, f, f.ana, mine.ID, "2023-11-27", "10:00")
	other := schedule(t, f, f.beto, theirs.ID, "2023-11-27", "11:00")

	list, err := f.activities.List(ctx, f.ana, domain.ActivityListFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, f.ana.ID, list[0].AssignedTo)

	_, err = f.activities.Get(ctx, f.ana, other.ID)
	var unauth *domain.ErrUnauthorized
	require.ErrorAs(t, err, &unauth)
	_, err = f.activities.Complete(ctx, f.ana, other.ID)
	require.ErrorAs(t, err, &unauth)

	_, err = f.activities.Get(ctx, f.ana, "missing")
	var nf *domain.ErrNotFound
	require.ErrorAs(t, err, &nf)

	team, err := f.activities.List(ctx, f.leader, domain.ActivityListFilter{})
	require.NoError(t, err)
	assert.Len(t, team, 2)

	south, err := f.activities.List(ctx, f.carla, domain.ActivityListFilter{})
	require.NoError(t, err)
	assert.Empty(t, south)

	byDate, err := f.activities.List(ctx, f.leader, domain.ActivityListFilter{Date: "2023-11-27", Status: domain.ActivityPending})
	require.NoError(t, err)
	assert.Len(t, byDate, 2)

	var verr *domain.ErrValidation
	_, err = f.activities.List(ctx, f.leader, domain.ActivityListFilter{Status: "Olvidada"})
	require.ErrorAs(t, err, &verr)
}

func TestActivitySummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	active := f.prospect(t, f.ana, "Activo")
	f.prospect(t, f.ana, "Abandonado")
	old := f.prospect(t, f.ana, "Antiguo")

	schedule(t, f, f.ana, active.ID, "2023-11-27", "10:00") // pending
	late := schedule(t, f, f.ana, active.ID, "2023-11-25", "10:00")
	schedule(t, f, f.ana, old.ID, "2023-11-01", "10:00") // overdue and older than the stale window
	_, err := f.activities.Complete(ctx, f.ana, late.ID)
	require.NoError(t, err)

	sum, err := f.activities.Summary(ctx, f.ana)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Total)
	assert.Equal(t, 1, sum.Pending)
	assert.Equal(t, 1, sum.Overdue)
	assert.Equal(t, 1, sum.Completed)
	assert.Equal(t, 0, sum.Rescheduled)
	assert.Equal(t, 7, sum.StaleDays)
	assert.Equal(t, 2, sum.StaleProspects)

	// staleness never touches temperature
	got, err := f.pipeline.GetProspect(ctx, f.ana, old.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TempCold, got.Temperature)
}

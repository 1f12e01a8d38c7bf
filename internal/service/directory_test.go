package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boddenberg/realty-pipeline-go/internal/domain"
)

func TestTeamsAreScoped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	all, err := f.directory.ListTeams(ctx, f.admin)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	own, err := f.directory.ListTeams(ctx, f.ana)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, "Norte", own[0].Name)

	var unauth *domain.ErrUnauthorized
	_, err = f.directory.CreateTeam(ctx, f.leader, domain.TeamInput{Name: "Oeste"})
	require.ErrorAs(t, err, &unauth)

	team, err := f.directory.CreateTeam(ctx, f.admin, domain.TeamInput{Name: " Oeste "})
	require.NoError(t, err)
	assert.Equal(t, "Oeste", team.Name)

	renamed, err := f.directory.RenameTeam(ctx, f.admin, team.ID, domain.TeamInput{Name: "Poniente"})
	require.NoError(t, err)
	assert.Equal(t, "Poniente", renamed.Name)

	_, err = f.directory.RenameTeam(ctx, f.admin, "missing", domain.TeamInput{Name: "X"})
	var nf *domain.ErrNotFound
	require.ErrorAs(t, err, &nf)
}

func TestUserProfiles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	team, err := f.directory.ListUsers(ctx, f.leader)
	require.NoError(t, err)
	assert.Len(t, team, 3)
	for _, u := range team {
		assert.Equal(t, f.teamNorth, u.TeamID)
	}

	mate, err := f.directory.GetUser(ctx, f.ana, f.beto.ID)
	require.NoError(t, err)
	assert.Equal(t, "Beto Asesor", mate.FullName)

	var unauth *domain.ErrUnauthorized
	_, err = f.directory.GetUser(ctx, f.ana, f.carla.ID)
	require.ErrorAs(t, err, &unauth)

	var verr *domain.ErrValidation
	_, err = f.directory.SaveUser(ctx, f.admin, domain.UserProfileInput{ID: "u-new", FullName: "Nuevo", Role: domain.RoleSalesAdvisor})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "team_id", verr.Field)

	_, err = f.directory.SaveUser(ctx, f.admin, domain.UserProfileInput{ID: "u-new", FullName: "Nuevo", Role: "intern", TeamID: f.teamNorth})
	require.ErrorAs(t, err, &verr)

	_, err = f.directory.SaveUser(ctx, f.admin, domain.UserProfileInput{ID: "u-new", FullName: "Nuevo", Role: domain.RoleSalesAdvisor, TeamID: "ghost"})
	require.ErrorAs(t, err, &verr)

	_, err = f.directory.SaveUser(ctx, f.leader, domain.UserProfileInput{ID: "u-new", FullName: "Nuevo", Role: domain.RoleSalesAdvisor, TeamID: f.teamNorth})
	require.ErrorAs(t, err, &unauth)

	promoted, err := f.directory.SaveUser(ctx, f.admin, domain.UserProfileInput{ID: f.beto.ID, FullName: "Beto Asesor", Role: domain.RoleTeamLeader, TeamID: f.teamNorth})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleTeamLeader, promoted.Role)

	admin, err := f.directory.SaveUser(ctx, f.admin, domain.UserProfileInput{ID: "u-boss", FullName: "Jefa", Role: domain.RoleSuperAdmin, TeamID: f.teamNorth})
	require.NoError(t, err)
	assert.Empty(t, admin.TeamID)
}

func TestPaymentSchemas(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := domain.PaymentSchemaInput{Name: "30/70", DownPaymentPct: 30, Months: 12}

	var unauth *domain.ErrUnauthorized
	_, err := f.directory.CreatePaymentSchema(ctx, f.ana, in)
	require.ErrorAs(t, err, &unauth)

	var verr *domain.ErrValidation
	_, err = f.directory.CreatePaymentSchema(ctx, f.admin, domain.PaymentSchemaInput{Name: "Mal", DownPaymentPct: 130})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "down_payment_pct", verr.Field)

	ps, err := f.directory.CreatePaymentSchema(ctx, f.admin, in)
	require.NoError(t, err)

	list, err := f.directory.ListPaymentSchemas(ctx, f.ana)
	require.NoError(t, err)
	require.Len(t, list, 1)

	in.Months = 24
	updated, err := f.directory.UpdatePaymentSchema(ctx, f.admin, ps.ID, in)
	require.NoError(t, err)
	assert.Equal(t, 24, updated.Months)

	got, err := f.directory.GetPaymentSchema(ctx, f.ana, ps.ID)
	require.NoError(t, err)
	assert.Equal(t, 24, got.Months)

	var nf *domain.ErrNotFound
	_, err = f.directory.GetPaymentSchema(ctx, f.ana, "missing")
	require.ErrorAs(t, err, &nf)
	_, err = f.directory.UpdatePaymentSchema(ctx, f.admin, "missing", in)
	require.ErrorAs(t, err, &nf)

	// quotes must reference a known schema
	p := f.prospect(t, f.ana, "Con esquema")
	u := f.unit(t, "101", 1_000_000, "")
	_, err = f.pipeline.IssueQuote(ctx, f.ana, p.ID, domain.IssueQuoteInput{PropertyID: u.ID, OfferedPrice: u.ListPrice, PaymentSchemaID: "ghost"})
	require.ErrorAs(t, err, &verr)
	quoted, err := f.pipeline.IssueQuote(ctx, f.ana, p.ID, domain.IssueQuoteInput{PropertyID: u.ID, OfferedPrice: u.ListPrice, PaymentSchemaID: ps.ID})
	require.NoError(t, err)
	assert.Equal(t, ps.ID, quoted.PaymentSchemaID)
}

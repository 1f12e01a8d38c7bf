package database_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/boddenberg/realty-pipeline-go/internal/domain"
	"github.com/boddenberg/realty-pipeline-go/internal/infra/database"
)

func TestNormalizeDSN(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"  'postgres://u:p@h:5432/db'  ", "postgres://u:p@h:5432/db"},
		{"host=h  user=u dbname=d", "host=h user=u dbname=d sslmode=disable"},
		{"host=h user=u dbname=d sslmode=require", "host=h user=u dbname=d sslmode=require"},
		{"garbage", "garbage"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, database.NormalizeDSN(tt.in), "input %q", tt.in)
	}
}

func TestMaskDSN(t *testing.T) {
	assert.Equal(t, "host=h password=*** dbname=d", database.MaskDSN("host=h password=secret dbname=d"))
	assert.Equal(t, "postgres://u:***@h/db", database.MaskDSN("postgres://u:secret@h/db"))
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := database.Open(database.Options{Driver: "oracle"}, zap.NewNop())
	require.Error(t, err)
}

func TestDirectoryStore(t *testing.T) {
	ctx := context.Background()
	s := database.NewDirectoryStore(openTestDB(t), zap.NewNop())

	t1 := &domain.Team{ID: uuid.NewString(), Name: "Norte"}
	t2 := &domain.Team{ID: uuid.NewString(), Name: "Sur"}
	require.NoError(t, s.CreateTeam(ctx, t1))
	require.NoError(t, s.CreateTeam(ctx, t2))

	for _, u := range []*domain.UserProfile{
		{ID: "adv-1", FullName: "Ana", Role: domain.RoleSalesAdvisor, TeamID: t1.ID},
		{ID: "adv-2", FullName: "Beto", Role: domain.RoleSalesAdvisor, TeamID: t1.ID},
		{ID: "lead-1", FullName: "Carla", Role: domain.RoleTeamLeader, TeamID: t1.ID},
		{ID: "adv-3", FullName: "Dario", Role: domain.RoleSalesAdvisor, TeamID: t2.ID},
	} {
		require.NoError(t, s.SaveUser(ctx, u))
	}

	counts, err := s.CountAdvisorsByTeam(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counts[t1.ID])
	assert.Equal(t, 1, counts[t2.ID])

	teams, err := s.ListTeams(ctx, domain.ScopeFilter{HomeTeamID: t1.ID})
	require.NoError(t, err)
	require.Len(t, teams, 1)
	assert.Equal(t, "Norte", teams[0].Name)

	users, err := s.ListUsers(ctx, domain.ScopeFilter{HomeTeamID: t2.ID})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "adv-3", users[0].ID)

	// Upsert keeps the id and replaces the role.
	require.NoError(t, s.SaveUser(ctx, &domain.UserProfile{ID: "adv-3", FullName: "Dario", Role: domain.RoleTeamLeader, TeamID: t2.ID}))
	u, err := s.GetUser(ctx, "adv-3")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleTeamLeader, u.Role)

	renamed, err := s.RenameTeam(ctx, t2.ID, "Sur Poniente")
	require.NoError(t, err)
	assert.Equal(t, "Sur Poniente", renamed.Name)

	missing, err := s.RenameTeam(ctx, "nope", "x")
	require.NoError(t, err)
	assert.Nil(t, missing)

	ps := &domain.PaymentSchema{ID: uuid.NewString(), Name: "30/70", DownPaymentPct: 30, Months: 12}
	require.NoError(t, s.CreatePaymentSchema(ctx, ps))
	ps.Months = 18
	require.NoError(t, s.UpdatePaymentSchema(ctx, ps))
	got, err := s.GetPaymentSchema(ctx, ps.ID)
	require.NoError(t, err)
	assert.Equal(t, 18, got.Months)
}

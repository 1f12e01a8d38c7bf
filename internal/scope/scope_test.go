package scope_test

import (
	"errors"
	"testing"

	"github.com/boddenberg/realty-pipeline-go/internal/domain"
	"github.com/boddenberg/realty-pipeline-go/internal/scope"
)

func TestFor_RejectsUnknownRoles(t *testing.T) {
	cases := []domain.Actor{
		{ID: "u1"},
		{ID: "u1", Role: "owner"},
		{ID: "", Role: domain.RoleSuperAdmin},
		{ID: "u1", Role: domain.RoleTeamLeader}, // leader without team
	}
	for _, a := range cases {
		s, err := scope.For(a)
		if s != nil {
			t.Errorf("actor %+v: expected nil scope", a)
		}
		var unauth *domain.ErrUnauthorized
		if !errors.As(err, &unauth) {
			t.Errorf("actor %+v: expected ErrUnauthorized, got %v", a, err)
		}
	}
}

func TestFor_Filters(t *testing.T) {
	tests := []struct {
		name  string
		actor domain.Actor
		want  domain.ScopeFilter
	}{
		{
			name:  "admin sees everything",
			actor: domain.Actor{ID: "a", Role: domain.RoleSuperAdmin},
			want:  domain.ScopeFilter{Unrestricted: true},
		},
		{
			name:  "leader sees the team",
			actor: domain.Actor{ID: "l", Role: domain.RoleTeamLeader, TeamID: "t1"},
			want:  domain.ScopeFilter{TeamID: "t1", HomeTeamID: "t1"},
		},
		{
			name:  "advisor sees own records",
			actor: domain.Actor{ID: "s", Role: domain.RoleSalesAdvisor, TeamID: "t1"},
			want:  domain.ScopeFilter{AdvisorID: "s", AssigneeID: "s", HomeTeamID: "t1"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := scope.For(tt.actor)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := s.Filter(); got != tt.want {
				t.Errorf("filter = %+v, want %+v", got, tt.want)
			}
			if s.Filter().Empty() {
				t.Error("resolved filter must not be empty")
			}
		})
	}
}

func TestFor_Capabilities(t *testing.T) {
	admin, _ := scope.For(domain.Actor{ID: "a", Role: domain.RoleSuperAdmin})
	leader, _ := scope.For(domain.Actor{ID: "l", Role: domain.RoleTeamLeader, TeamID: "t1"})
	advisor, _ := scope.For(domain.Actor{ID: "s", Role: domain.RoleSalesAdvisor, TeamID: "t1"})

	if !admin.CanMutateInventory() || !admin.CanOverrideQuote() || !admin.CanManageDirectory() {
		t.Error("admin should hold every capability")
	}
	if leader.CanMutateInventory() || leader.CanOverrideQuote() || leader.CanManageDirectory() {
		t.Error("leader must not mutate inventory, override quotes or manage the directory")
	}
	if !leader.CanAssignProspects() {
		t.Error("leader should assign prospects")
	}
	if advisor.CanAssignProspects() || advisor.CanMutateInventory() {
		t.Error("advisor capabilities too wide")
	}
}

func TestAdmits(t *testing.T) {
	teammate := &domain.UserProfile{ID: "s2", Role: domain.RoleSalesAdvisor, TeamID: "t1"}
	outsider := &domain.UserProfile{ID: "s3", Role: domain.RoleSalesAdvisor, TeamID: "t2"}
	self := &domain.UserProfile{ID: "s", Role: domain.RoleSalesAdvisor, TeamID: "t1"}

	leader, _ := scope.For(domain.Actor{ID: "l", Role: domain.RoleTeamLeader, TeamID: "t1"})
	advisor, _ := scope.For(domain.Actor{ID: "s", Role: domain.RoleSalesAdvisor, TeamID: "t1"})

	if !leader.Admits(teammate) || leader.Admits(outsider) {
		t.Error("leader should admit only team members")
	}
	if !advisor.Admits(self) || advisor.Admits(teammate) {
		t.Error("advisor should admit only itself")
	}
	if leader.Admits(nil) {
		t.Error("nil profile must never be admitted")
	}
}

func TestZeroFilterIsEmpty(t *testing.T) {
	if !(domain.ScopeFilter{}).Empty() {
		t.Fatal("zero filter must deny all")
	}
	if got := (domain.ScopeFilter{}).Key(); got != "none" {
		t.Fatalf("zero filter key = %q, want none", got)
	}
}

// Package scope resolves what an authenticated actor may read and mutate.
//
// Each role is one Scope variant. Callers never branch on the role
// themselves: they ask the resolved Scope for its storage filter or for a
// capability.
package scope

import "github.com/boddenberg/realty-pipeline-go/internal/domain"

// Scope is the capability set of one actor.
type Scope interface {
	Actor() domain.Actor
	// Filter is applied by every store query.
	Filter() domain.ScopeFilter
	// Admits reports whether u may own prospects or be assigned activities
	// inside this scope.
	Admits(u *domain.UserProfile) bool
	CanAssignProspects() bool
	CanMutateInventory() bool
	CanOverrideQuote() bool
	CanManageDirectory() bool
}

// For resolves the scope of actor. An absent or unknown role, or a team
// leader without a team, is rejected: the caller must deny everything.
func For(actor domain.Actor) (Scope, error) {
	if actor.ID == "" {
		return nil, &domain.ErrUnauthorized{Action: "resolve scope"}
	}
	switch actor.Role {
	case domain.RoleSuperAdmin:
		return adminScope{actor: actor}, nil
	case domain.RoleTeamLeader:
		if actor.TeamID == "" {
			return nil, &domain.ErrUnauthorized{ActorID: actor.ID, Action: "resolve scope without team"}
		}
		return teamLeaderScope{actor: actor}, nil
	case domain.RoleSalesAdvisor:
		return advisorScope{actor: actor}, nil
	}
	return nil, &domain.ErrUnauthorized{ActorID: actor.ID, Action: "resolve scope for role " + string(actor.Role)}
}

// ============================================================
// super_admin
// ============================================================

type adminScope struct{ actor domain.Actor }

func (s adminScope) Actor() domain.Actor { return s.actor }

func (s adminScope) Filter() domain.ScopeFilter {
	return domain.ScopeFilter{Unrestricted: true}
}

func (s adminScope) Admits(u *domain.UserProfile) bool { return u != nil }
func (s adminScope) CanAssignProspects() bool         { return true }
func (s adminScope) CanMutateInventory() bool         { return true }
func (s adminScope) CanOverrideQuote() bool           { return true }
func (s adminScope) CanManageDirectory() bool         { return true }

// ============================================================
// team_leader
// ============================================================

type teamLeaderScope struct{ actor domain.Actor }

func (s teamLeaderScope) Actor() domain.Actor { return s.actor }

func (s teamLeaderScope) Filter() domain.ScopeFilter {
	return domain.ScopeFilter{TeamID: s.actor.TeamID, HomeTeamID: s.actor.TeamID}
}

func (s teamLeaderScope) Admits(u *domain.UserProfile) bool {
	return u != nil && u.TeamID == s.actor.TeamID
}

func (s teamLeaderScope) CanAssignProspects() bool { return true }
func (s teamLeaderScope) CanMutateInventory() bool { return false }
func (s teamLeaderScope) CanOverrideQuote() bool   { return false }
func (s teamLeaderScope) CanManageDirectory() bool { return false }

// ============================================================
// sales_advisor
// ============================================================

type advisorScope struct{ actor domain.Actor }

func (s advisorScope) Actor() domain.Actor { return s.actor }

func (s advisorScope) Filter() domain.ScopeFilter {
	return domain.ScopeFilter{AdvisorID: s.actor.ID, AssigneeID: s.actor.ID, HomeTeamID: s.actor.TeamID}
}

func (s advisorScope) Admits(u *domain.UserProfile) bool {
	return u != nil && u.ID == s.actor.ID
}

func (s advisorScope) CanAssignProspects() bool { return false }
func (s advisorScope) CanMutateInventory() bool { return false }
func (s advisorScope) CanOverrideQuote() bool   { return false }
func (s advisorScope) CanManageDirectory() bool { return false }

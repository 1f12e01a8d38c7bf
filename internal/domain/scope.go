package domain

// Actor is the already-authenticated identity performing an operation.
type Actor struct {
	ID     string `json:"id"`
	Role   Role   `json:"role"`
	TeamID string `json:"team_id,omitempty"`
	Name   string `json:"name,omitempty"`
}

// DisplayName is used in audit notes.
func (a Actor) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return a.ID
}

// ScopeFilter is the storage-level predicate derived from an actor.
// Stores apply it inside the same query that reads the data.
//
// The zero value matches nothing.
type ScopeFilter struct {
	Unrestricted bool   `json:"unrestricted"`
	TeamID       string `json:"team_id,omitempty"`      // prospects.team_id = TeamID
	AdvisorID    string `json:"advisor_id,omitempty"`   // prospects.advisor_id = AdvisorID
	AssigneeID   string `json:"assignee_id,omitempty"`  // activities.assigned_to = AssigneeID
	HomeTeamID   string `json:"home_team_id,omitempty"` // directory reads: teams.id / user_profiles.team_id
}

// Empty reports whether the filter would deny every row.
func (f ScopeFilter) Empty() bool {
	return !f.Unrestricted && f.TeamID == "" && f.AdvisorID == "" && f.AssigneeID == "" && f.HomeTeamID == ""
}

// Key identifies the filter for cache keys.
func (f ScopeFilter) Key() string {
	switch {
	case f.Unrestricted:
		return "all"
	case f.TeamID != "":
		return "team:" + f.TeamID
	case f.AdvisorID != "":
		return "advisor:" + f.AdvisorID
	}
	return "none"
}

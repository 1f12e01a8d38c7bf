package domain

import "time"

// Event types published after a successful mutation.
const (
	EventProspectCreated       = "prospect.created"
	EventProspectAssigned      = "prospect.assigned"
	EventProspectArchived      = "prospect.archived"
	EventProspectDeleted       = "prospect.deleted"
	EventVisitRecorded         = "prospect.visit_recorded"
	EventQuoteIssued           = "prospect.quote_issued"
	EventQuoteCancelled        = "prospect.quote_cancelled"
	EventTemperatureChanged    = "prospect.temperature_changed"
	EventNoteAppended          = "prospect.note_appended"
	EventActivityScheduled     = "activity.scheduled"
	EventActivityStatusChanged = "activity.status_changed"
	EventPropertyCreated       = "property.created"
	EventPropertyStatusChanged = "property.status_changed"
	EventPropertyRemoved       = "property.removed"
)

// Event is a fact about a committed change.
type Event struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	OccurredAt time.Time         `json:"occurred_at"`
	ActorID    string            `json:"actor_id"`
	SubjectID  string            `json:"subject_id"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

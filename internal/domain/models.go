package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Organisation
// ============================================================

// Team groups advisors under one team leader.
type Team struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// UserProfile is the organisational profile of an authenticated user.
// TeamID is empty only for super_admin.
type UserProfile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email,omitempty"`
	FullName  string    `json:"full_name"`
	Role      Role      `json:"role"`
	TeamID    string    `json:"team_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Actor returns the identity triple used for scoping.
func (u *UserProfile) Actor() Actor {
	return Actor{ID: u.ID, Role: u.Role, TeamID: u.TeamID, Name: u.FullName}
}

// ============================================================
// Inventory
// ============================================================

// Property is a sellable unit of the development.
type Property struct {
	ID              string              `json:"id"`
	Tower           string              `json:"tower,omitempty"`
	UnitNumber      string              `json:"unit_number"`
	Floor           string              `json:"floor,omitempty"`
	Typology        string              `json:"typology,omitempty"`
	SqmConstruction decimal.NullDecimal `json:"sqm_construction"`
	SqmTerrace      decimal.NullDecimal `json:"sqm_terrace"`
	ListPrice       decimal.Decimal     `json:"list_price"`
	Status          PropertyStatus      `json:"status"`
	Description     string              `json:"description,omitempty"`
	Attachments     []string            `json:"attachments,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// PaymentSchema is reference data attached to quotes.
type PaymentSchema struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	DownPaymentPct float64   `json:"down_payment_pct"`
	Months         int       `json:"months"`
	TermNotes      string    `json:"term_notes,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ============================================================
// Pipeline
// ============================================================

// Prospect is a tracked potential buyer. Dates are kept in DateLayout.
type Prospect struct {
	ID               string      `json:"id"`
	FullName         string      `json:"full_name"`
	Phone            string      `json:"phone,omitempty"`
	Email            string      `json:"email,omitempty"`
	Source           LeadSource  `json:"source,omitempty"`
	FirstContactDate string      `json:"first_contact_date"`
	AdvisorID        string      `json:"advisor_id,omitempty"`
	TeamID           string      `json:"team_id,omitempty"`
	Temperature      Temperature `json:"temperature"`

	Visited           bool   `json:"visited"`
	VisitDate         string `json:"visit_date,omitempty"`
	VisitObservations string `json:"visit_observations,omitempty"`

	HasQuote         bool                `json:"has_quote"`
	QuoteDate        string              `json:"quote_date,omitempty"`
	QuotedPropertyID string              `json:"quoted_property_id,omitempty"`
	ListPriceAtQuote decimal.NullDecimal `json:"list_price_at_quote"`
	OfferedPrice     decimal.NullDecimal `json:"offered_price"`
	PaymentSchemaID  string              `json:"payment_schema_id,omitempty"`
	QuoteOverrideBy  string              `json:"quote_override_by,omitempty"` // set when offered_price > list_price_at_quote was approved

	PrefTypology      string `json:"pref_typology,omitempty"`
	PrefBedrooms      *int   `json:"pref_bedrooms,omitempty"`
	PrefPriceRange    string `json:"pref_price_range,omitempty"`
	PrefPaymentSchema string `json:"pref_payment_schema,omitempty"`

	Archived  bool      `json:"archived"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Discount returns list_price_at_quote - offered_price for an active quote.
func (p *Prospect) Discount() (decimal.Decimal, bool) {
	if !p.HasQuote || !p.ListPriceAtQuote.Valid || !p.OfferedPrice.Valid {
		return decimal.Zero, false
	}
	return p.ListPriceAtQuote.Decimal.Sub(p.OfferedPrice.Decimal), true
}

// ProspectNote is an immutable entry of a prospect's history.
type ProspectNote struct {
	ID         string    `json:"id"`
	ProspectID string    `json:"prospect_id"`
	UserID     string    `json:"user_id,omitempty"`
	Note       string    `json:"note"`
	CreatedAt  time.Time `json:"created_at"`
}

// Activity is a scheduled follow-up action tied to a prospect.
type Activity struct {
	ID           string         `json:"id"`
	ProspectID   string         `json:"prospect_id"`
	AssignedTo   string         `json:"assigned_to,omitempty"`
	Type         ActivityType   `json:"type"`
	ActivityDate string         `json:"activity_date"`
	ActivityTime string         `json:"activity_time"`
	Description  string         `json:"description,omitempty"`
	Status       ActivityStatus `json:"status"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// ActivityView is an Activity plus its classification at read time.
type ActivityView struct {
	Activity
	Class     ActivityClass `json:"class"`
	IsOverdue bool          `json:"is_overdue"`
}

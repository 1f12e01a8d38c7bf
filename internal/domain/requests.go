package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Prospects
// ============================================================

// CreateProspectInput is the payload of a first contact.
type CreateProspectInput struct {
	FullName          string      `json:"full_name" validate:"required,max=200"`
	Phone             string      `json:"phone,omitempty" validate:"max=40"`
	Email             string      `json:"email,omitempty" validate:"omitempty,email"`
	Source            LeadSource  `json:"source,omitempty"`
	FirstContactDate  string      `json:"first_contact_date,omitempty"` // defaults to today
	AdvisorID         string      `json:"advisor_id,omitempty"`         // defaults to the actor
	Temperature       Temperature `json:"temperature,omitempty"`
	PrefTypology      string      `json:"pref_typology,omitempty"`
	PrefBedrooms      *int        `json:"pref_bedrooms,omitempty" validate:"omitempty,gte=0,lte=20"`
	PrefPriceRange    string      `json:"pref_price_range,omitempty"`
	PrefPaymentSchema string      `json:"pref_payment_schema,omitempty"`
}

// ProspectListFilter narrows a prospect listing inside the actor's scope.
type ProspectListFilter struct {
	Temperature     Temperature `json:"temperature,omitempty"`
	AdvisorID       string      `json:"advisor_id,omitempty"`
	Search          string      `json:"search,omitempty"`
	IncludeArchived bool        `json:"include_archived,omitempty"`
	Limit           int         `json:"limit,omitempty"`
	Offset          int         `json:"offset,omitempty"`
}

type RecordVisitInput struct {
	Date         string `json:"visit_date"`
	Observations string `json:"visit_observations"`
}

// IssueQuoteInput offers a unit to a prospect. Override allows an offered
// price above the list price and is reserved to administrators.
type IssueQuoteInput struct {
	PropertyID      string          `json:"property_id"`
	OfferedPrice    decimal.Decimal `json:"offered_price"`
	PaymentSchemaID string          `json:"payment_schema_id,omitempty"`
	Date            string          `json:"quote_date,omitempty"`
	Override        bool            `json:"override,omitempty"`
}

type SetTemperatureInput struct {
	Temperature Temperature `json:"temperature"`
}

type AppendNoteInput struct {
	Note string `json:"note"`
}

type AssignProspectInput struct {
	AdvisorID string `json:"advisor_id"`
}

// QuoteWrite is the stored form of an accepted quote.
type QuoteWrite struct {
	PropertyID      string
	ListPrice       decimal.Decimal
	OfferedPrice    decimal.Decimal
	PaymentSchemaID string
	Date            string
	OverrideBy      string
}

// ============================================================
// Activities
// ============================================================

type ScheduleActivityInput struct {
	ProspectID  string       `json:"prospect_id"`
	Type        ActivityType `json:"type"`
	Date        string       `json:"activity_date"`
	Time        string       `json:"activity_time"`
	AssignedTo  string       `json:"assigned_to,omitempty"` // defaults to the actor
	Description string       `json:"description,omitempty"`
}

type RescheduleInput struct {
	Date string `json:"activity_date"`
	Time string `json:"activity_time"`
}

type ActivityListFilter struct {
	ProspectID string         `json:"prospect_id,omitempty"`
	Date       string         `json:"activity_date,omitempty"`
	Status     ActivityStatus `json:"status,omitempty"`
	Limit      int            `json:"limit,omitempty"`
	Offset     int            `json:"offset,omitempty"`
}

// ActivityUpdate is the stored effect of a state transition.
type ActivityUpdate struct {
	Status ActivityStatus
	Date   string // empty keeps the current value
	Time   string
}

// ============================================================
// Inventory
// ============================================================

// PropertyInput creates a unit. Status defaults to Disponible.
type PropertyInput struct {
	Tower           string              `json:"tower,omitempty" validate:"max=50"`
	UnitNumber      string              `json:"unit_number" validate:"required,max=50"`
	Floor           string              `json:"floor,omitempty" validate:"max=20"`
	Typology        string              `json:"typology,omitempty" validate:"max=100"`
	SqmConstruction decimal.NullDecimal `json:"sqm_construction"`
	SqmTerrace      decimal.NullDecimal `json:"sqm_terrace"`
	ListPrice       decimal.NullDecimal `json:"list_price"`
	Status          PropertyStatus      `json:"status,omitempty"`
	Description     string              `json:"description,omitempty"`
	Attachments     []string            `json:"attachments,omitempty" validate:"omitempty,dive,url"`
}

// Check enforces the fields every inventory backend requires.
func (in PropertyInput) Check() error {
	if in.UnitNumber == "" {
		return &ErrValidation{Field: "unit_number", Message: "is required"}
	}
	if !in.ListPrice.Valid {
		return &ErrValidation{Field: "list_price", Message: "is required"}
	}
	if in.ListPrice.Decimal.IsNegative() {
		return &ErrValidation{Field: "list_price", Value: in.ListPrice.Decimal.String(), Message: "must not be negative"}
	}
	if in.Status != "" && !in.Status.Valid() {
		return &ErrValidation{Field: "status", Value: string(in.Status), Message: "unknown property status"}
	}
	return nil
}

// NewProperty builds the stored form of in with the given id and stamp.
func (in PropertyInput) NewProperty(id string, now time.Time) Property {
	status := in.Status
	if status == "" {
		status = PropertyAvailable
	}
	return Property{
		ID:              id,
		Tower:           in.Tower,
		UnitNumber:      in.UnitNumber,
		Floor:           in.Floor,
		Typology:        in.Typology,
		SqmConstruction: in.SqmConstruction,
		SqmTerrace:      in.SqmTerrace,
		ListPrice:       in.ListPrice.Decimal,
		Status:          status,
		Description:     in.Description,
		Attachments:     in.Attachments,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// PropertyPatch merges into a unit; nil fields are left untouched.
// ExpectStatus, when set, makes the write conditional on the current status.
type PropertyPatch struct {
	Tower           *string              `json:"tower,omitempty"`
	UnitNumber      *string              `json:"unit_number,omitempty"`
	Floor           *string              `json:"floor,omitempty"`
	Typology        *string              `json:"typology,omitempty"`
	SqmConstruction *decimal.NullDecimal `json:"sqm_construction,omitempty"`
	SqmTerrace      *decimal.NullDecimal `json:"sqm_terrace,omitempty"`
	ListPrice       *decimal.Decimal     `json:"list_price,omitempty"`
	Status          *PropertyStatus      `json:"status,omitempty"`
	Description     *string              `json:"description,omitempty"`
	Attachments     *[]string            `json:"attachments,omitempty"`

	ExpectStatus *PropertyStatus `json:"expect_status,omitempty"`
	Rollback     bool            `json:"rollback,omitempty"`
}

// Empty reports whether the patch changes no field.
func (p PropertyPatch) Empty() bool {
	return p.Tower == nil && p.UnitNumber == nil && p.Floor == nil && p.Typology == nil &&
		p.SqmConstruction == nil && p.SqmTerrace == nil && p.ListPrice == nil &&
		p.Status == nil && p.Description == nil && p.Attachments == nil
}

// Check validates the values carried by the patch.
func (p PropertyPatch) Check() error {
	if p.UnitNumber != nil && *p.UnitNumber == "" {
		return &ErrValidation{Field: "unit_number", Message: "must not be empty"}
	}
	if p.ListPrice != nil && p.ListPrice.IsNegative() {
		return &ErrValidation{Field: "list_price", Value: p.ListPrice.String(), Message: "must not be negative"}
	}
	if p.Status != nil && !p.Status.Valid() {
		return &ErrValidation{Field: "status", Value: string(*p.Status), Message: "unknown property status"}
	}
	return nil
}

// Apply merges the patch into a copy of prop. Used by backends that cannot
// express a partial update natively.
func (p PropertyPatch) Apply(prop Property) Property {
	if p.Tower != nil {
		prop.Tower = *p.Tower
	}
	if p.UnitNumber != nil {
		prop.UnitNumber = *p.UnitNumber
	}
	if p.Floor != nil {
		prop.Floor = *p.Floor
	}
	if p.Typology != nil {
		prop.Typology = *p.Typology
	}
	if p.SqmConstruction != nil {
		prop.SqmConstruction = *p.SqmConstruction
	}
	if p.SqmTerrace != nil {
		prop.SqmTerrace = *p.SqmTerrace
	}
	if p.ListPrice != nil {
		prop.ListPrice = *p.ListPrice
	}
	if p.Status != nil {
		prop.Status = *p.Status
	}
	if p.Description != nil {
		prop.Description = *p.Description
	}
	if p.Attachments != nil {
		prop.Attachments = *p.Attachments
	}
	return prop
}

// ============================================================
// Directory
// ============================================================

type TeamInput struct {
	Name string `json:"name" validate:"required,max=100"`
}

// UserProfileInput creates or updates a profile. ID is the identity
// provider's user id.
type UserProfileInput struct {
	ID       string `json:"id" validate:"required"`
	Email    string `json:"email,omitempty" validate:"omitempty,email"`
	FullName string `json:"full_name" validate:"required,max=200"`
	Role     Role   `json:"role" validate:"required"`
	TeamID   string `json:"team_id,omitempty"`
}

type PaymentSchemaInput struct {
	Name           string  `json:"name" validate:"required,max=100"`
	Description    string  `json:"description,omitempty"`
	DownPaymentPct float64 `json:"down_payment_pct" validate:"gte=0,lte=100"`
	Months         int     `json:"months" validate:"gte=0"`
	TermNotes      string  `json:"term_notes,omitempty"`
}

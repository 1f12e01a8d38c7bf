package database

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/boddenberg/realty-pipeline-go/internal/domain"
)

// Row structs mirror the persisted contract. Timestamps are stamped by the
// stores' clock, never by gorm callbacks.

type teamRow struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)"`
	Name      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"autoCreateTime:false"`
}

func (teamRow) TableName() string { return "teams" }

func (r teamRow) toDomain() domain.Team {
	return domain.Team{ID: r.ID, Name: r.Name, CreatedAt: r.CreatedAt}
}

type userRow struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	Email     string
	FullName  string    `gorm:"not null"`
	Role      string    `gorm:"not null;index"`
	TeamID    string    `gorm:"index"`
	CreatedAt time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt time.Time `gorm:"autoUpdateTime:false"`
}

func (userRow) TableName() string { return "user_profiles" }

func (r userRow) toDomain() domain.UserProfile {
	return domain.UserProfile{
		ID:        r.ID,
		Email:     r.Email,
		FullName:  r.FullName,
		Role:      domain.Role(r.Role),
		TeamID:    r.TeamID,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

type paymentSchemaRow struct {
	ID             string `gorm:"primaryKey;type:varchar(36)"`
	Name           string `gorm:"not null"`
	Description    string
	DownPaymentPct float64
	Months         int
	TermNotes      string
	CreatedAt      time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime:false"`
}

func (paymentSchemaRow) TableName() string { return "payment_schemas" }

func (r paymentSchemaRow) toDomain() domain.PaymentSchema {
	return domain.PaymentSchema{
		ID:             r.ID,
		Name:           r.Name,
		Description:    r.Description,
		DownPaymentPct: r.DownPaymentPct,
		Months:         r.Months,
		TermNotes:      r.TermNotes,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

type propertyRow struct {
	ID              string `gorm:"primaryKey;type:varchar(36)"`
	Tower           string `gorm:"index:idx_properties_tower_unit"`
	UnitNumber      string `gorm:"not null;index:idx_properties_tower_unit"`
	Floor           string
	Typology        string
	SqmConstruction decimal.NullDecimal `gorm:"type:numeric(10,2)"`
	SqmTerrace      decimal.NullDecimal `gorm:"type:numeric(10,2)"`
	ListPrice       decimal.Decimal     `gorm:"type:numeric(14,2);not null"`
	Status          string              `gorm:"not null;index"`
	Description     string
	Attachments     []string  `gorm:"serializer:json"`
	CreatedAt       time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime:false"`
}

func (propertyRow) TableName() string { return "properties" }

func (r propertyRow) toDomain() domain.Property {
	return domain.Property{
		ID:              r.ID,
		Tower:           r.Tower,
		UnitNumber:      r.UnitNumber,
		Floor:           r.Floor,
		Typology:        r.Typology,
		SqmConstruction: r.SqmConstruction,
		SqmTerrace:      r.SqmTerrace,
		ListPrice:       r.ListPrice,
		Status:          domain.PropertyStatus(r.Status),
		Description:     r.Description,
		Attachments:     r.Attachments,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

type prospectRow struct {
	ID               string `gorm:"primaryKey;type:varchar(36)"`
	FullName         string `gorm:"not null"`
	Phone            string
	Email            string
	Source           string
	FirstContactDate string `gorm:"type:varchar(10);not null"`
	AdvisorID        string `gorm:"index"`
	TeamID           string `gorm:"index"`
	Temperature      string `gorm:"not null;index"`

	Visited           bool
	VisitDate         string `gorm:"type:varchar(10)"`
	VisitObservations string

	HasQuote         bool `gorm:"index"`
	QuoteDate        string
	QuotedPropertyID string              `gorm:"index"`
	ListPriceAtQuote decimal.NullDecimal `gorm:"type:numeric(14,2)"`
	OfferedPrice     decimal.NullDecimal `gorm:"type:numeric(14,2)"`
	PaymentSchemaID  string
	QuoteOverrideBy  string

	PrefTypology      string
	PrefBedrooms      *int
	PrefPriceRange    string
	PrefPaymentSchema string

	Archived  bool      `gorm:"index"`
	CreatedAt time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt time.Time `gorm:"autoUpdateTime:false"`
}

func (prospectRow) TableName() string { return "prospects" }

func prospectToRow(p *domain.Prospect) prospectRow {
	return prospectRow{
		ID:                p.ID,
		FullName:          p.FullName,
		Phone:             p.Phone,
		Email:             p.Email,
		Source:            string(p.Source),
		FirstContactDate:  p.FirstContactDate,
		AdvisorID:         p.AdvisorID,
		TeamID:            p.TeamID,
		Temperature:       string(p.Temperature),
		Visited:           p.Visited,
		VisitDate:         p.VisitDate,
		VisitObservations: p.VisitObservations,
		HasQuote:          p.HasQuote,
		QuoteDate:         p.QuoteDate,
		QuotedPropertyID:  p.QuotedPropertyID,
		ListPriceAtQuote:  p.ListPriceAtQuote,
		OfferedPrice:      p.OfferedPrice,
		PaymentSchemaID:   p.PaymentSchemaID,
		QuoteOverrideBy:   p.QuoteOverrideBy,
		PrefTypology:      p.PrefTypology,
		PrefBedrooms:      p.PrefBedrooms,
		PrefPriceRange:    p.PrefPriceRange,
		PrefPaymentSchema: p.PrefPaymentSchema,
		Archived:          p.Archived,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}

func (r prospectRow) toDomain() domain.Prospect {
	return domain.Prospect{
		ID:                r.ID,
		FullName:          r.FullName,
		Phone:             r.Phone,
		Email:             r.Email,
		Source:            domain.LeadSource(r.Source),
		FirstContactDate:  r.FirstContactDate,
		AdvisorID:         r.AdvisorID,
		TeamID:            r.TeamID,
		Temperature:       domain.Temperature(r.Temperature),
		Visited:           r.Visited,
		VisitDate:         r.VisitDate,
		VisitObservations: r.VisitObservations,
		HasQuote:          r.HasQuote,
		QuoteDate:         r.QuoteDate,
		QuotedPropertyID:  r.QuotedPropertyID,
		ListPriceAtQuote:  r.ListPriceAtQuote,
		OfferedPrice:      r.OfferedPrice,
		PaymentSchemaID:   r.PaymentSchemaID,
		QuoteOverrideBy:   r.QuoteOverrideBy,
		PrefTypology:      r.PrefTypology,
		PrefBedrooms:      r.PrefBedrooms,
		PrefPriceRange:    r.PrefPriceRange,
		PrefPaymentSchema: r.PrefPaymentSchema,
		Archived:          r.Archived,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

type noteRow struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)"`
	ProspectID string    `gorm:"not null;index"`
	UserID     string
	Note       string    `gorm:"not null"`
	CreatedAt  time.Time `gorm:"autoCreateTime:false;index"`
}

func (noteRow) TableName() string { return "prospect_notes" }

func (r noteRow) toDomain() domain.ProspectNote {
	return domain.ProspectNote{ID: r.ID, ProspectID: r.ProspectID, UserID: r.UserID, Note: r.Note, CreatedAt: r.CreatedAt}
}

type activityRow struct {
	ID           string `gorm:"primaryKey;type:varchar(36)"`
	ProspectID   string `gorm:"not null;index"`
	AssignedTo   string `gorm:"index"`
	Type         string `gorm:"not null"`
	ActivityDate string `gorm:"type:varchar(10);not null;index"`
	ActivityTime string `gorm:"type:varchar(8);not null"`
	Description  string
	Status       string    `gorm:"not null;index"`
	CreatedAt    time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime:false"`
}

func (activityRow) TableName() string { return "activities" }

func (r activityRow) toDomain() domain.Activity {
	return domain.Activity{
		ID:           r.ID,
		ProspectID:   r.ProspectID,
		AssignedTo:   r.AssignedTo,
		Type:         domain.ActivityType(r.Type),
		ActivityDate: r.ActivityDate,
		ActivityTime: r.ActivityTime,
		Description:  r.Description,
		Status:       domain.ActivityStatus(r.Status),
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

// jsonList encodes a list column the way the json serializer stores it.
func jsonList(v []string) string {
	if v == nil {
		v = []string{}
	}
	b, _ := json.Marshal(v)
	return string(b)
}

package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/boddenberg/realty-pipeline-go/internal/domain"
	"github.com/boddenberg/realty-pipeline-go/internal/infra/resilience"
)

const (
	backendName = "supabase"
	table       = "properties"
)

// propertyRecord maps the properties table columns.
type propertyRecord struct {
	ID              string              `json:"id"`
	Tower           *string             `json:"tower"`
	UnitNumber      string              `json:"unit_number"`
	Floor           *string             `json:"floor"`
	Typology        *string             `json:"typology"`
	SqmConstruction decimal.NullDecimal `json:"sqm_construction"`
	SqmTerrace      decimal.NullDecimal `json:"sqm_terrace"`
	ListPrice       decimal.Decimal     `json:"list_price"`
	Status          string              `json:"status"`
	Description     *string             `json:"description"`
	Attachments     []string            `json:"attachments"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (r propertyRecord) toDomain() domain.Property {
	return domain.Property{
		ID:              r.ID,
		Tower:           deref(r.Tower),
		UnitNumber:      r.UnitNumber,
		Floor:           deref(r.Floor),
		Typology:        deref(r.Typology),
		SqmConstruction: r.SqmConstruction,
		SqmTerrace:      r.SqmTerrace,
		ListPrice:       r.ListPrice,
		Status:          domain.PropertyStatus(r.Status),
		Description:     deref(r.Description),
		Attachments:     r.Attachments,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func recordFrom(p domain.Property) propertyRecord {
	return propertyRecord{
		ID:              p.ID,
		Tower:           nullable(p.Tower),
		UnitNumber:      p.UnitNumber,
		Floor:           nullable(p.Floor),
		Typology:        nullable(p.Typology),
		SqmConstruction: p.SqmConstruction,
		SqmTerrace:      p.SqmTerrace,
		ListPrice:       p.ListPrice,
		Status:          string(p.Status),
		Description:     nullable(p.Description),
		Attachments:     p.Attachments,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

// InventoryProvider implements port.InventoryProvider on PostgREST.
// Reads are retried with backoff; writes are attempted once. Every call
// goes through the circuit breaker and the bulkhead.
type InventoryProvider struct {
	client   *Client
	cb       *gobreaker.CircuitBreaker
	bulkhead *resilience.Bulkhead
	cfg      resilience.Config
	logger   *zap.Logger
	now      func() time.Time
}

// NewInventoryProvider wires the provider. The breaker is created here so
// that caller mistakes (4xx, absent rows) never trip it.
func NewInventoryProvider(client *Client, cfg resilience.Config, logger *zap.Logger) *InventoryProvider {
	return &InventoryProvider{
		client:   client,
		cb:       resilience.NewCircuitBreaker("supabase-inventory", logger, isSuccessful),
		bulkhead: resilience.NewBulkhead(cfg.MaxConcurrency),
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock replaces the clock used for created_at / updated_at.
func (p *InventoryProvider) WithClock(now func() time.Time) *InventoryProvider {
	p.now = now
	return p
}

func (p *InventoryProvider) Backend() string { return backendName }

func isSuccessful(err error) bool {
	if err == nil {
		return true
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.Status < 500 && se.Status != http.StatusTooManyRequests && se.Status != http.StatusRequestTimeout
	}
	var nf *domain.ErrNotFound
	var ve *domain.ErrValidation
	var cm *domain.ErrConcurrentModification
	return errors.As(err, &nf) || errors.As(err, &ve) || errors.As(err, &cm)
}

// call runs fn behind the bulkhead and breaker, retrying when retry is set.
func (p *InventoryProvider) call(ctx context.Context, retry bool, fn func() error) error {
	return p.bulkhead.Do(ctx, func() error {
		_, err := p.cb.Execute(func() (any, error) {
			if !retry {
				return nil, fn()
			}
			return nil, resilience.RetryWithBackoff(ctx, p.cfg, func() error {
				err := fn()
				if err != nil && isSuccessful(err) {
					return resilience.Permanent(err)
				}
				return err
			})
		})
		return err
	})
}

// translate maps a transport failure onto the domain taxonomy.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *statusError
	if errors.As(err, &se) {
		switch se.Status {
		case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
			return &domain.ErrValidation{Field: "property", Message: se.Body}
		}
	}
	return domain.Provider(backendName, op, err)
}

func decodeList(body []byte) ([]propertyRecord, error) {
	var rows []propertyRecord
	if len(body) == 0 {
		return rows, nil
	}
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode properties: %w", err)
	}
	return rows, nil
}

func (p *InventoryProvider) GetAll(ctx context.Context) ([]domain.Property, error) {
	ctx, span := tracer.Start(ctx, "Supabase.Inventory.GetAll")
	defer span.End()

	var out []domain.Property
	err := p.call(ctx, true, func() error {
		body, err := p.client.do(ctx, http.MethodGet, table+"?select=*&order=tower.asc.nullsfirst,unit_number.asc", nil)
		if err != nil {
			return err
		}
		rows, err := decodeList(body)
		if err != nil {
			return err
		}
		out = make([]domain.Property, 0, len(rows))
		for _, r := range rows {
			out = append(out, r.toDomain())
		}
		return nil
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, translate("GetAll", err)
	}
	span.SetAttributes(attribute.Int("inventory.count", len(out)))
	return out, nil
}

func (p *InventoryProvider) GetByID(ctx context.Context, id string) (*domain.Property, error) {
	ctx, span := tracer.Start(ctx, "Supabase.Inventory.GetByID")
	defer span.End()
	span.SetAttributes(attribute.String("property.id", id))

	prop, err := p.getByID(ctx, id)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, translate("GetByID", err)
	}
	return prop, nil
}

func (p *InventoryProvider) getByID(ctx context.Context, id string) (*domain.Property, error) {
	var out *domain.Property
	err := p.call(ctx, true, func() error {
		body, err := p.client.do(ctx, http.MethodGet, table+"?select=*&limit=1&id=eq."+url.QueryEscape(id), nil)
		if err != nil {
			return err
		}
		rows, err := decodeList(body)
		if err != nil {
			return err
		}
		if len(rows) > 0 {
			prop := rows[0].toDomain()
			out = &prop
		}
		return nil
	})
	return out, err
}

func (p *InventoryProvider) Create(ctx context.Context, in domain.PropertyInput) (*domain.Property, error) {
	ctx, span := tracer.Start(ctx, "Supabase.Inventory.Create")
	defer span.End()

	if err := in.Check(); err != nil {
		return nil, err
	}
	prop := in.NewProperty(uuid.NewString(), p.now().UTC().Truncate(time.Microsecond))
	span.SetAttributes(attribute.String("property.id", prop.ID))

	var out *domain.Property
	err := p.call(ctx, false, func() error {
		body, err := p.client.do(ctx, http.MethodPost, table, recordFrom(prop))
		if err != nil {
			return err
		}
		rows, err := decodeList(body)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			out = &prop
			return nil
		}
		created := rows[0].toDomain()
		out = &created
		return nil
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, translate("Create", err)
	}
	return out, nil
}

// Update reads the current row, then issues one PATCH filtered on the
// previous updated_at (and the expected status when given). An empty
// result means another writer got there first.
func (p *InventoryProvider) Update(ctx context.Context, id string, patch domain.PropertyPatch) (*domain.Property, error) {
	ctx, span := tracer.Start(ctx, "Supabase.Inventory.Update")
	defer span.End()
	span.SetAttributes(attribute.String("property.id", id))

	if err := patch.Check(); err != nil {
		return nil, err
	}
	current, err := p.getByID(ctx, id)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, translate("Update", err)
	}
	if current == nil {
		return nil, &domain.ErrNotFound{Resource: "property", ID: id}
	}
	if patch.ExpectStatus != nil && current.Status != *patch.ExpectStatus {
		return nil, &domain.ErrConcurrentModification{Resource: "property", ID: id, Field: "status"}
	}

	next := patch.Apply(*current)
	next.UpdatedAt = p.now().UTC().Truncate(time.Microsecond)
	if !next.UpdatedAt.After(current.UpdatedAt) {
		next.UpdatedAt = current.UpdatedAt.Add(time.Microsecond)
	}

	q := url.Values{}
	q.Set("id", "eq."+id)
	q.Set("updated_at", "eq."+current.UpdatedAt.UTC().Format(time.RFC3339Nano))
	if patch.ExpectStatus != nil {
		q.Set("status", "eq."+string(*patch.ExpectStatus))
	}

	var out *domain.Property
	err = p.call(ctx, false, func() error {
		body, err := p.client.do(ctx, http.MethodPatch, table+"?"+q.Encode(), recordFrom(next))
		if err != nil {
			return err
		}
		rows, err := decodeList(body)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return &domain.ErrConcurrentModification{Resource: "property", ID: id, Field: "updated_at"}
		}
		updated := rows[0].toDomain()
		out = &updated
		return nil
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, translate("Update", err)
	}
	return out, nil
}

func (p *InventoryProvider) Remove(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Supabase.Inventory.Remove")
	defer span.End()
	span.SetAttributes(attribute.String("property.id", id))

	err := p.call(ctx, false, func() error {
		body, err := p.client.do(ctx, http.MethodDelete, table+"?id=eq."+url.QueryEscape(id), nil)
		if err != nil {
			return err
		}
		rows, err := decodeList(body)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return &domain.ErrNotFound{Resource: "property", ID: id}
		}
		return nil
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return translate("Remove", err)
	}
	return nil
}

package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/realty-pipeline-go/internal/domain"
	"github.com/boddenberg/realty-pipeline-go/internal/infra/observability"
	"github.com/boddenberg/realty-pipeline-go/internal/port"
	"github.com/boddenberg/realty-pipeline-go/internal/scope"
)

var pipelineTracer = otel.Tracer("service/pipeline")

// PipelineService owns prospect state: intake, ownership, visits, quotes,
// temperature and the note ledger.
type PipelineService struct {
	core
	prospects port.ProspectStore
	notes     port.NoteStore
	directory port.DirectoryStore
	inventory port.InventoryProvider
}

func NewPipelineService(
	prospects port.ProspectStore,
	notes port.NoteStore,
	directory port.DirectoryStore,
	inventory port.InventoryProvider,
	events port.EventPublisher,
	cache Invalidator,
	metrics *observability.Metrics,
	logger *zap.Logger,
	opts ...Option,
) *PipelineService {
	return &PipelineService{
		core:      newCore(events, cache, metrics, logger, opts),
		prospects: prospects,
		notes:     notes,
		directory: directory,
		inventory: inventory,
	}
}

// ============================================================
// Intake and ownership
// ============================================================

func (s *PipelineService) CreateProspect(ctx context.Context, actor domain.Actor, in domain.CreateProspectInput) (_ *domain.Prospect, err error) {
	ctx, span := pipelineTracer.Start(ctx, "PipelineService.CreateProspect")
	defer span.End()
	defer s.observe("pipeline.create_prospect", time.Now(), &err)

	sc, err := s.resolve(actor)
	if err != nil {
		return nil, err
	}
	in.FullName = strings.TrimSpace(in.FullName)
	if err := checkStruct(in); err != nil {
		return nil, err
	}
	if !in.Source.Valid() {
		return nil, &domain.ErrValidation{Field: "source", Value: string(in.Source), Message: "unknown lead source"}
	}
	temp := in.Temperature
	if temp == "" {
		temp = domain.DefaultTemperature
	}
	if !temp.Valid() {
		return nil, &domain.ErrValidation{Field: "temperature", Value: string(temp), Message: "unknown temperature"}
	}
	firstContact := in.FirstContactDate
	if firstContact == "" {
		firstContact = s.opts.today()
	} else if _, err := domain.ParseDate("first_contact_date", firstContact, s.opts.loc); err != nil {
		return nil, err
	}

	advisorID := in.AdvisorID
	if advisorID == "" {
		advisorID = actor.ID
	}
	owner, err := s.owner(ctx, sc, advisorID)
	if err != nil {
		return nil, err
	}

	p := &domain.Prospect{
		ID:                uuid.NewString(),
		FullName:          in.FullName,
		Phone:             strings.TrimSpace(in.Phone),
		Email:             strings.TrimSpace(in.Email),
		Source:            in.Source,
		FirstContactDate:  firstContact,
		AdvisorID:         owner.ID,
		TeamID:            owner.TeamID,
		Temperature:       temp,
		PrefTypology:      in.PrefTypology,
		PrefBedrooms:      in.PrefBedrooms,
		PrefPriceRange:    in.PrefPriceRange,
		PrefPaymentSchema: in.PrefPaymentSchema,
	}
	if err := s.prospects.Create(ctx, p); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("prospect.id", p.ID))

	s.logger.Info("prospect created",
		zap.String("prospect_id", p.ID),
		zap.String("advisor_id", p.AdvisorID),
		zap.String("actor_id", actor.ID),
	)
	s.publish(ctx, actor, domain.EventProspectCreated, p.ID, map[string]string{
		"advisor_id":  p.AdvisorID,
		"team_id":     p.TeamID,
		"temperature": string(p.Temperature),
	})
	return p, nil
}

// owner loads the profile that will own a prospect and checks the actor
// may hand prospects to it.
func (s *PipelineService) owner(ctx context.Context, sc scope.Scope, advisorID string) (*domain.UserProfile, error) {
	u, err := s.directory.GetUser(ctx, advisorID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, &domain.ErrValidation{Field: "advisor_id", Value: advisorID, Message: "unknown user"}
	}
	if u.TeamID == "" || (u.Role != domain.RoleSalesAdvisor && u.Role != domain.RoleTeamLeader) {
		return nil, &domain.ErrValidation{Field: "advisor_id", Value: advisorID, Message: "owner must be an advisor or team leader with a team"}
	}
	if !sc.Admits(u) {
		return nil, s.deny(sc.Actor(), "assign prospects to", "user", advisorID)
	}
	return u, nil
}

func (s *PipelineService) GetProspect(ctx context.Context, actor domain.Actor, id string) (_ *domain.Prospect, err error) {
	ctx, span := pipelineTracer.Start(ctx, "PipelineService.GetProspect")
	defer span.End()
	span.SetAttributes(attribute.String("prospect.id", id))
	defer s.observe("pipeline.get_prospect", time.Now(), &err)

	sc, err := s.resolve(actor)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, sc, "read", id)
}

// load is the scoped read every prospect operation starts from.
func (s *PipelineService) load(ctx context.Context, sc scope.Scope, action, id string) (*domain.Prospect, error) {
	p, err := s.prospects.Get(ctx, sc.Filter(), id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, s.outOfScope(ctx, s.prospects.Exists, sc.Actor(), action, "prospect", id)
	}
	return p, nil
}

// settle handles a scoped write that matched no row.
func (s *PipelineService) settle(ctx context.Context, sc scope.Scope, action, id string, p *domain.Prospect, err error) (*domain.Prospect, error) {
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, s.outOfScope(ctx, s.prospects.Exists, sc.Actor(), action, "prospect", id)
	}
	return p, nil
}

func (s *PipelineService) ListProspects(ctx context.Context, actor domain.Actor, q domain.ProspectListFilter) (_ []domain.Prospect, err error) {
	ctx, span := pipelineTracer.Start(ctx, "PipelineService.ListProspects")
	defer span.End()
	defer s.observe("pipeline.list_prospects", time.Now(), &err)

	sc, err := s.resolve(actor)
	if err != nil {
		return nil, err
	}
	if q.Temperature != "" && !q.Temperature.Valid() {
		return nil, &domain.ErrValidation{Field: "temperature", Value: string(q.Temperature), Message: "unknown temperature"}
	}
	if q.Limit < 0 || q.Offset < 0 {
		return nil, &domain.ErrValidation{Field: "limit", Message: "limit and offset must not be negative"}
	}
	out, err := s.prospects.List(ctx, sc.Filter(), q)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("prospects.count", len(out)))
	return out, nil
}

// AssignProspect moves a prospect to another owner; the team follows the
// new owner.
func (s *PipelineService) AssignProspect(ctx context.Context, actor domain.Actor, id string, in domain.AssignProspectInput) (_ *domain.Prospect, err error) {
	ctx, span := pipelineTracer.Start(ctx, "PipelineService.AssignProspect")
	defer span.End()
	span.SetAttributes(attribute.String("prospect.id", id))
	defer s.observe("pipeline.assign_prospect", time.Now(), &err)

	sc, err := s.resolve(actor)
	if err != nil {
		return nil, err
	}
	if !sc.CanAssignProspects() {
		return nil, s.deny(actor, "assign", "prospect", id)
	}
	if in.AdvisorID == "" {
		return nil, &domain.ErrValidation{Field: "advisor_id", Message: "is required"}
	}
	owner, err := s.owner(ctx, sc, in.AdvisorID)
	if err != nil {
		return nil, err
	}
	p, err := s.prospects.Assign(ctx, sc.Filter(), id, owner.ID, owner.TeamID)
	if p, err = s.settle(ctx, sc, "assign", id, p, err); err != nil {
		return nil, err
	}

	s.logger.Info("prospect assigned",
		zap.String("prospect_id", id),
		zap.String("advisor_id", owner.ID),
		zap.String("actor_id", actor.ID),
	)
	s.publish(ctx, actor, domain.EventProspectAssigned, id, map[string]string{"advisor_id": owner.ID, "team_id": owner.TeamID})
	return p, nil
}

// ArchiveProspect flags or unflags a prospect. Archival keeps every note.
func (s *PipelineService) ArchiveProspect(ctx context.Context, actor domain.Actor, id string, archived bool) (_ *domain.Prospect, err error) {
	ctx, span := pipelineTracer.Start(ctx, "PipelineService.ArchiveProspect")
	defer span.End()
	defer s.observe("pipeline.archive_prospect", time.Now(), &err)

	sc, err := s.resolve(actor)
	if err != nil {
		return nil, err
	}
	p, err := s.prospects.SetArchived(ctx, sc.Filter(), id, archived)
	if p, err = s.settle(ctx, sc, "archive", id, p, err); err != nil {
		return nil, err
	}
	s.logger.Info("prospect archive flag set", zap.String("prospect_id", id), zap.Bool("archived", archived), zap.String("actor_id", actor.ID))
	s.publish(ctx, actor, domain.EventProspectArchived, id, map[string]string{"archived": fmt.Sprint(archived)})
	return p, nil
}

// DeleteProspect removes a prospect that has no history yet.
func (s *PipelineService) DeleteProspect(ctx context.Context, actor domain.Actor, id string) (err error) {
	ctx, span := pipelineTracer.Start(ctx, "PipelineService.DeleteProspect")
	defer span.End()
	defer s.observe("pipeline.delete_prospect", time.Now(), &err)

	sc, err := s.resolve(actor)
	if err != nil {
		return err
	}
	deleted, err := s.prospects.Delete(ctx, sc.Filter(), id)
	if err != nil {
		return err
	}
	if !deleted {
		return s.outOfScope(ctx, s.prospects.Exists, actor, "delete", "prospect", id)
	}
	s.logger.Info("prospect deleted", zap.String("prospect_id", id), zap.String("actor_id", actor.ID))
	s.publish(ctx, actor, domain.EventProspectDeleted, id, nil)
	return nil
}

// ============================================================
// Visit
// ============================================================

// RecordVisit sets the single visit record; calling it again overwrites
// date and observations.
func (s *PipelineService) RecordVisit(ctx context.Context, actor domain.Actor, id string, in domain.RecordVisitInput) (_ *domain.Prospect, err error) {
	ctx, span := pipelineTracer.Start(ctx, "PipelineService.RecordVisit")
	defer span.End()
	span.SetAttributes(attribute.String("prospect.id", id))
	defer s.observe("pipeline.record_visit", time.Now(), &err)

	sc, err := s.resolve(actor)
	if err != nil {
		return nil, err
	}
	if in.Date == "" {
		in.Date = s.opts.today()
	} else if _, err := domain.ParseDate("visit_date", in.Date, s.opts.loc); err != nil {
		return nil, err
	}
	in.Observations = strings.TrimSpace(in.Observations)

	p, err := s.prospects.RecordVisit(ctx, sc.Filter(), id, in)
	if p, err = s.settle(ctx, sc, "record visit on", id, p, err); err != nil {
		return nil, err
	}

	s.logger.Info("visit recorded", zap.String("prospect_id", id), zap.String("visit_date", in.Date), zap.String("actor_id", actor.ID))
	s.publish(ctx, actor, domain.EventVisitRecorded, id, map[string]string{"visit_date": in.Date})
	return p, nil
}

// ============================================================
// Quotes
// ============================================================

// IssueQuote snapshots the unit's list price and stores the offer. An
// offer above the list price needs Override and an actor allowed to
// override; the exception is kept in quote_override_by and in the notes.
func (s *PipelineService) IssueQuote(ctx context.Context, actor domain.Actor, id string, in domain.IssueQuoteInput) (_ *domain.Prospect, err error) {
	ctx, span := pipelineTracer.Start(ctx, "PipelineService.IssueQuote")
	defer span.End()
	span.SetAttributes(attribute.String("prospect.id", id), attribute.String("property.id", in.PropertyID))
	defer s.observe("pipeline.issue_quote", time.Now(), &err)

	sc, err := s.resolve(actor)
	if err != nil {
		return nil, err
	}
	if in.PropertyID == "" {
		return nil, &domain.ErrValidation{Field: "property_id", Message: "is required"}
	}
	if !in.OfferedPrice.IsPositive() {
		return nil, &domain.ErrValidation{Field: "offered_price", Value: in.OfferedPrice.String(), Message: "must be positive"}
	}
	if in.Date == "" {
		in.Date = s.opts.today()
	} else if _, err := domain.ParseDate("quote_date", in.Date, s.opts.loc); err != nil {
		return nil, err
	}

	p, err := s.load(ctx, sc, "quote", id)
	if err != nil {
		return nil, err
	}

	prop, err := s.inventory.GetByID(ctx, in.PropertyID)
	if err != nil {
		return nil, err
	}
	if prop == nil {
		return nil, &domain.ErrNotFound{Resource: "property", ID: in.PropertyID}
	}
	if !prop.Status.Quotable() {
		return nil, &domain.ErrValidation{Field: "property_id", Value: in.PropertyID, Message: "unit is " + string(prop.Status) + " and cannot be quoted"}
	}

	if in.PaymentSchemaID != "" {
		schema, err := s.directory.GetPaymentSchema(ctx, in.PaymentSchemaID)
		if err != nil {
			return nil, err
		}
		if schema == nil {
			return nil, &domain.ErrValidation{Field: "payment_schema_id", Value: in.PaymentSchemaID, Message: "unknown payment schema"}
		}
	}

	q := domain.QuoteWrite{
		PropertyID:      prop.ID,
		ListPrice:       prop.ListPrice,
		OfferedPrice:    in.OfferedPrice,
		PaymentSchemaID: in.PaymentSchemaID,
		Date:            in.Date,
	}
	text := fmt.Sprintf("Cotización emitida: unidad %s, precio ofrecido %s, precio de lista %s por %s",
		unitLabel(prop), in.OfferedPrice.StringFixed(2), prop.ListPrice.StringFixed(2), actor.DisplayName())

	if in.OfferedPrice.GreaterThan(prop.ListPrice) {
		if !in.Override {
			return nil, &domain.ErrValidation{
				Field:   "offered_price",
				Value:   in.OfferedPrice.String(),
				Message: "exceeds list price " + prop.ListPrice.String(),
			}
		}
		if !sc.CanOverrideQuote() {
			return nil, s.deny(actor, "override quote price on", "prospect", id)
		}
		q.OverrideBy = actor.ID
		text += fmt.Sprintf(". Excepción de precio autorizada por %s", actor.DisplayName())
		s.logger.Warn("quote price override",
			zap.String("prospect_id", id),
			zap.String("property_id", prop.ID),
			zap.String("offered_price", in.OfferedPrice.String()),
			zap.String("list_price", prop.ListPrice.String()),
			zap.String("actor_id", actor.ID),
		)
	}

	if err := s.unitUnchanged(ctx, prop); err != nil {
		return nil, err
	}
	note := &domain.ProspectNote{ID: uuid.NewString(), UserID: actor.ID, Note: text}
	updated, err := s.prospects.SaveQuote(ctx, sc.Filter(), id, p.UpdatedAt, q, note)
	if updated, err = s.settle(ctx, sc, "quote", id, updated, err); err != nil {
		return nil, err
	}

	s.logger.Info("quote issued",
		zap.String("prospect_id", id),
		zap.String("property_id", prop.ID),
		zap.String("offered_price", in.OfferedPrice.String()),
		zap.String("actor_id", actor.ID),
	)
	attrs := map[string]string{
		"property_id":   prop.ID,
		"offered_price": in.OfferedPrice.String(),
		"list_price":    prop.ListPrice.String(),
	}
	if q.OverrideBy != "" {
		attrs["override_by"] = q.OverrideBy
	}
	s.publish(ctx, actor, domain.EventQuoteIssued, id, attrs)
	return updated, nil
}

// unitUnchanged re-reads the quoted unit so an offer is never stored against
// a list price or status that changed after the checks above ran.
func (s *PipelineService) unitUnchanged(ctx context.Context, read *domain.Property) error {
	cur, err := s.inventory.GetByID(ctx, read.ID)
	if err != nil {
		return err
	}
	if cur == nil {
		return &domain.ErrNotFound{Resource: "property", ID: read.ID}
	}
	field := ""
	switch {
	case !cur.ListPrice.Equal(read.ListPrice):
		field = "list_price"
	case cur.Status != read.Status:
		field = "status"
	case !cur.UpdatedAt.Equal(read.UpdatedAt):
		field = "updated_at"
	}
	if field == "" {
		return nil
	}
	s.logger.Warn("quoted unit changed during quote",
		zap.String("property_id", read.ID),
		zap.String("field", field),
		zap.String("list_price_read", read.ListPrice.String()),
		zap.String("list_price_now", cur.ListPrice.String()),
	)
	return &domain.ErrConcurrentModification{Resource: "property", ID: read.ID, Field: field}
}

func unitLabel(p *domain.Property) string {
	if p.Tower == "" {
		return p.UnitNumber
	}
	return p.Tower + "-" + p.UnitNumber
}

// CancelQuote clears the active quote and records who did it. The quote
// snapshot stays on the prospect as history.
func (s *PipelineService) CancelQuote(ctx context.Context, actor domain.Actor, id string) (_ *domain.Prospect, err error) {
	ctx, span := pipelineTracer.Start(ctx, "PipelineService.CancelQuote")
	defer span.End()
	defer s.observe("pipeline.cancel_quote", time.Now(), &err)

	sc, err := s.resolve(actor)
	if err != nil {
		return nil, err
	}
	p, err := s.load(ctx, sc, "cancel quote on", id)
	if err != nil {
		return nil, err
	}
	if !p.HasQuote {
		return nil, &domain.ErrValidation{Field: "has_quote", Value: "false", Message: "prospect has no active quote"}
	}

	note := &domain.ProspectNote{
		ID:     uuid.NewString(),
		UserID: actor.ID,
		Note:   fmt.Sprintf("Cotización cancelada (unidad %s) por %s", p.QuotedPropertyID, actor.DisplayName()),
	}
	updated, err := s.prospects.CancelQuote(ctx, sc.Filter(), id, note)
	if updated, err = s.settle(ctx, sc, "cancel quote on", id, updated, err); err != nil {
		return nil, err
	}

	s.logger.Info("quote cancelled", zap.String("prospect_id", id), zap.String("property_id", p.QuotedPropertyID), zap.String("actor_id", actor.ID))
	s.publish(ctx, actor, domain.EventQuoteCancelled, id, map[string]string{"property_id": p.QuotedPropertyID})
	return updated, nil
}

// ============================================================
// Temperature
// ============================================================

// SetTemperature moves a prospect to any other temperature and appends an
// audit note in the same write. Setting the current value is rejected.
func (s *PipelineService) SetTemperature(ctx context.Context, actor domain.Actor, id string, in domain.SetTemperatureInput) (_ *domain.Prospect, err error) {
	ctx, span := pipelineTracer.Start(ctx, "PipelineService.SetTemperature")
	defer span.End()
	span.SetAttributes(attribute.String("prospect.id", id), attribute.String("temperature", string(in.Temperature)))
	defer s.observe("pipeline.set_temperature", time.Now(), &err)

	sc, err := s.resolve(actor)
	if err != nil {
		return nil, err
	}
	if !in.Temperature.Valid() {
		return nil, &domain.ErrValidation{Field: "temperature", Value: string(in.Temperature), Message: "unknown temperature"}
	}
	p, err := s.load(ctx, sc, "change temperature of", id)
	if err != nil {
		return nil, err
	}
	from := p.Temperature
	if from == in.Temperature {
		return nil, &domain.ErrValidation{Field: "temperature", Value: string(in.Temperature), Message: "prospect already has this temperature"}
	}

	note := &domain.ProspectNote{
		ID:     uuid.NewString(),
		UserID: actor.ID,
		Note:   fmt.Sprintf("Temperatura cambiada: %s → %s por %s", from, in.Temperature, actor.DisplayName()),
	}
	updated, err := s.prospects.SetTemperature(ctx, sc.Filter(), id, from, in.Temperature, note)
	if updated, err = s.settle(ctx, sc, "change temperature of", id, updated, err); err != nil {
		return nil, err
	}

	s.logger.Info("temperature changed",
		zap.String("prospect_id", id),
		zap.String("from", string(from)),
		zap.String("to", string(in.Temperature)),
		zap.String("actor_id", actor.ID),
	)
	s.publish(ctx, actor, domain.EventTemperatureChanged, id, map[string]string{"from": string(from), "to": string(in.Temperature)})
	return updated, nil
}

// ============================================================
// Notes
// ============================================================

func (s *PipelineService) AppendNote(ctx context.Context, actor domain.Actor, id string, in domain.AppendNoteInput) (_ *domain.ProspectNote, err error) {
	ctx, span := pipelineTracer.Start(ctx, "PipelineService.AppendNote")
	defer span.End()
	defer s.observe("pipeline.append_note", time.Now(), &err)

	sc, err := s.resolve(actor)
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(in.Note)
	if text == "" {
		return nil, &domain.ErrValidation{Field: "note", Message: "must not be empty"}
	}
	if _, err := s.load(ctx, sc, "annotate", id); err != nil {
		return nil, err
	}

	n := &domain.ProspectNote{ID: uuid.NewString(), ProspectID: id, UserID: actor.ID, Note: text}
	if err := s.notes.Append(ctx, n); err != nil {
		return nil, err
	}
	s.logger.Info("note appended", zap.String("prospect_id", id), zap.String("note_id", n.ID), zap.String("actor_id", actor.ID))
	s.publish(ctx, actor, domain.EventNoteAppended, id, map[string]string{"note_id": n.ID})
	return n, nil
}

// ListNotes returns newest first, or oldest first for audit replay.
func (s *PipelineService) ListNotes(ctx context.Context, actor domain.Actor, id string, ascending bool) (_ []domain.ProspectNote, err error) {
	ctx, span := pipelineTracer.Start(ctx, "PipelineService.ListNotes")
	defer span.End()
	defer s.observe("pipeline.list_notes", time.Now(), &err)

	sc, err := s.resolve(actor)
	if err != nil {
		return nil, err
	}
	if _, err := s.load(ctx, sc, "read notes of", id); err != nil {
		return nil, err
	}
	return s.notes.List(ctx, sc.Filter(), id, ascending)
}

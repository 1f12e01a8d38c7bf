// Package service holds the pipeline use cases. Every operation resolves
// the actor's scope first and hands the resulting filter to the stores,
// which apply it inside the query.
package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/boddenberg/realty-pipeline-go/internal/domain"
	"github.com/boddenberg/realty-pipeline-go/internal/infra/observability"
	"github.com/boddenberg/realty-pipeline-go/internal/port"
	"github.com/boddenberg/realty-pipeline-go/internal/scope"
)

// Option tunes the clock and business location of a service.
type Option func(*options)

type options struct {
	now func() time.Time
	loc *time.Location
}

func newOptions(opts []Option) options {
	o := options{now: time.Now, loc: time.UTC}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLocation sets the zone used for "today" and activity instants.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		if loc != nil {
			o.loc = loc
		}
	}
}

func (o options) today() string {
	return o.now().In(o.loc).Format(domain.DateLayout)
}

// Invalidator drops cached read models after a mutation.
type Invalidator interface {
	Invalidate()
}

type noInvalidation struct{}

func (noInvalidation) Invalidate() {}

// core carries what every service needs.
type core struct {
	events  port.EventPublisher
	cache   Invalidator
	metrics *observability.Metrics
	logger  *zap.Logger
	opts    options
}

func newCore(events port.EventPublisher, cache Invalidator, metrics *observability.Metrics, logger *zap.Logger, opts []Option) core {
	if cache == nil {
		cache = noInvalidation{}
	}
	return core{events: events, cache: cache, metrics: metrics, logger: logger, opts: newOptions(opts)}
}

// resolve turns the actor into its scope, logging denials.
func (c *core) resolve(actor domain.Actor) (scope.Scope, error) {
	sc, err := scope.For(actor)
	if err != nil {
		c.logger.Warn("scope resolution denied",
			zap.String("actor_id", actor.ID),
			zap.String("role", string(actor.Role)),
		)
		return nil, err
	}
	return sc, nil
}

// observe records latency and the error kind of one operation. Use as
// defer c.observe("op", time.Now(), &err).
func (c *core) observe(op string, start time.Time, err *error) {
	c.metrics.RecordOperation(op, time.Since(start))
	if err != nil && *err != nil {
		c.metrics.RecordError(*err)
	}
}

// outOfScope decides between NotFound and Unauthorized for a scoped read
// that came back empty.
func (c *core) outOfScope(ctx context.Context, exists func(context.Context, string) (bool, error),
	actor domain.Actor, action, resource, id string,
) error {
	ok, err := exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return &domain.ErrNotFound{Resource: resource, ID: id}
	}
	c.logger.Warn("access outside scope denied",
		zap.String("actor_id", actor.ID),
		zap.String("action", action),
		zap.String("resource", resource),
		zap.String("id", id),
	)
	return &domain.ErrUnauthorized{ActorID: actor.ID, Action: action, Resource: resource, ID: id}
}

func (c *core) deny(actor domain.Actor, action, resource, id string) error {
	c.logger.Warn("capability denied",
		zap.String("actor_id", actor.ID),
		zap.String("role", string(actor.Role)),
		zap.String("action", action),
	)
	return &domain.ErrUnauthorized{ActorID: actor.ID, Action: action, Resource: resource, ID: id}
}

// publish announces a committed change. Failures are logged, never
// returned: the change itself already succeeded.
func (c *core) publish(ctx context.Context, actor domain.Actor, typ, subject string, attrs map[string]string) {
	c.cache.Invalidate()
	if c.events == nil {
		return
	}
	ev := domain.Event{
		ID:         uuid.NewString(),
		Type:       typ,
		OccurredAt: c.opts.now().UTC(),
		ActorID:    actor.ID,
		SubjectID:  subject,
		Attributes: attrs,
	}
	if err := c.events.Publish(ctx, ev); err != nil {
		c.logger.Warn("event publish failed", zap.String("type", typ), zap.String("subject_id", subject), zap.Error(err))
	}
}

// ============================================================
// Struct validation
// ============================================================

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// checkStruct runs the validate tags of in and reports the first failure
// as an ErrValidation naming the JSON field.
func checkStruct(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &domain.ErrValidation{Field: "body", Message: err.Error()}
	}
	fe := verrs[0]
	return &domain.ErrValidation{
		Field:   fe.Field(),
		Value:   fmt.Sprint(fe.Value()),
		Message: describeTag(fe),
	}
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "url":
		return "must be a valid URL"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "gte":
		return "must be >= " + fe.Param()
	case "lte":
		return "must be <= " + fe.Param()
	}
	return "failed " + fe.Tag() + " check"
}

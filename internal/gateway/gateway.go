// Package gateway fronts every create/update/delete against the
// upstream. Inputs are validated locally before submission, every
// violated field is reported together, and a successful mutation is
// followed by a full snapshot reload rather than cache patching: with
// the join engine at O(n+m) a reload is cheap enough to always
// reflect server truth.
package gateway

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/jwalitptl/clinic-ops/internal/fetcher"
	"github.com/jwalitptl/clinic-ops/internal/model"
	"github.com/jwalitptl/clinic-ops/internal/resolver"
	"github.com/jwalitptl/clinic-ops/pkg/errors"
	"github.com/jwalitptl/clinic-ops/pkg/logger"
	"github.com/jwalitptl/clinic-ops/pkg/messaging"
	"github.com/jwalitptl/clinic-ops/pkg/metrics"
)

// FieldError names one violated field. Validation reports all of them
// together, never just the first.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type Gateway struct {
	client   *fetcher.Client
	loader   *fetcher.Loader
	broker   messaging.Broker
	validate *validator.Validate
	logger   *logger.Logger
	metrics  *metrics.Metrics
	screens  map[string]model.EntityConfig

	mu       sync.Mutex
	inFlight map[string]bool
}

func New(client *fetcher.Client, loader *fetcher.Loader, broker messaging.Broker, log *logger.Logger, m *metrics.Metrics) *Gateway {
	v := validator.New()
	// Report fields by their wire names so the presentation layer can
	// mark the matching form inputs.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	return &Gateway{
		client:   client,
		loader:   loader,
		broker:   broker,
		validate: v,
		logger:   log,
		metrics:  m,
		screens:  model.Screens(),
		inFlight: make(map[string]bool),
	}
}

// Validate checks an input and returns every violated field.
func (g *Gateway) Validate(input any) []FieldError {
	var fields []FieldError

	if err := g.validate.Struct(input); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				fields = append(fields, FieldError{Field: fe.Field(), Message: message(fe)})
			}
		} else {
			fields = append(fields, FieldError{Field: "", Message: err.Error()})
		}
	}

	// Binding three cross-entity identities at once requires explicit
	// confirmation to reduce silent mis-linking.
	if in, ok := input.(*model.TreatmentOutcomeInput); ok {
		if in.AppointmentID != "" && in.CustomerID != "" && in.ConsultantID != "" && !in.Confirmed {
			fields = append(fields, FieldError{
				Field:   "confirmed",
				Message: "confirmation is required when linking appointment, customer and consultant",
			})
		}
	}
	return fields
}

// Create/update/delete per entity. Each validates, submits, and on
// success invalidates the fetcher cache, reloads, and publishes an
// invalidation event for other instances.

func (g *Gateway) CreateTreatmentOutcome(ctx context.Context, in *model.TreatmentOutcomeInput) (*model.Envelope, error) {
	return g.submit(ctx, model.EntityTreatment, "create", in, func() (*model.Envelope, error) {
		return g.client.Post(ctx, g.screens[model.EntityTreatment].Collection, in)
	})
}

func (g *Gateway) UpdateTreatmentOutcome(ctx context.Context, id string, in *model.TreatmentOutcomeInput) (*model.Envelope, error) {
	return g.submit(ctx, model.EntityTreatment, "update", in, func() (*model.Envelope, error) {
		return g.client.Put(ctx, g.screens[model.EntityTreatment].Collection, id, in)
	})
}

func (g *Gateway) CreateLabTest(ctx context.Context, in *model.LabTestInput) (*model.Envelope, error) {
	return g.submit(ctx, model.EntityLabTest, "create", in, func() (*model.Envelope, error) {
		return g.client.Post(ctx, g.screens[model.EntityLabTest].Collection, in)
	})
}

func (g *Gateway) UpdateLabTest(ctx context.Context, id string, in *model.LabTestInput) (*model.Envelope, error) {
	return g.submit(ctx, model.EntityLabTest, "update", in, func() (*model.Envelope, error) {
		return g.client.Put(ctx, g.screens[model.EntityLabTest].Collection, id, in)
	})
}

func (g *Gateway) CreateConsultant(ctx context.Context, in *model.ConsultantInput) (*model.Envelope, error) {
	return g.submit(ctx, model.EntityConsultant, "create", in, func() (*model.Envelope, error) {
		return g.client.Post(ctx, g.screens[model.EntityConsultant].Collection, in)
	})
}

func (g *Gateway) UpdateConsultant(ctx context.Context, id string, in *model.ConsultantInput) (*model.Envelope, error) {
	return g.submit(ctx, model.EntityConsultant, "update", in, func() (*model.Envelope, error) {
		return g.client.Put(ctx, g.screens[model.EntityConsultant].Collection, id, in)
	})
}

func (g *Gateway) CreateBlogPost(ctx context.Context, in *model.BlogPostInput) (*model.Envelope, error) {
	return g.submit(ctx, model.EntityBlogPost, "create", in, func() (*model.Envelope, error) {
		return g.client.Post(ctx, g.screens[model.EntityBlogPost].Collection, in)
	})
}

func (g *Gateway) UpdateBlogPost(ctx context.Context, id string, in *model.BlogPostInput) (*model.Envelope, error) {
	return g.submit(ctx, model.EntityBlogPost, "update", in, func() (*model.Envelope, error) {
		return g.client.Put(ctx, g.screens[model.EntityBlogPost].Collection, id, in)
	})
}

// UpdateAppointmentStatus covers the appointment lifecycle actions;
// appointments are never hard-deleted, only cancelled.
func (g *Gateway) UpdateAppointmentStatus(ctx context.Context, id string, in *model.AppointmentStatusInput) (*model.Envelope, error) {
	return g.submit(ctx, model.EntityAppointment, "update", in, func() (*model.Envelope, error) {
		return g.client.Put(ctx, g.screens[model.EntityAppointment].Collection, id, in)
	})
}

// Delete removes a record from one of the deletable collections.
func (g *Gateway) Delete(ctx context.Context, entity, id string) (*model.Envelope, error) {
	cfg, ok := g.screens[entity]
	if !ok || entity == model.EntityAppointment || entity == model.EntityCustomer {
		return nil, errors.BadRequest(fmt.Sprintf("%s records cannot be deleted", entity), nil)
	}
	return g.submit(ctx, entity, "delete", nil, func() (*model.Envelope, error) {
		return g.client.Delete(ctx, cfg.Collection, id)
	})
}

func (g *Gateway) submit(ctx context.Context, entity, op string, input any, fn func() (*model.Envelope, error)) (*model.Envelope, error) {
	if input != nil {
		if fields := g.Validate(input); len(fields) > 0 {
			g.metrics.Mutations.WithLabelValues(entity, op, "invalid").Inc()
			return nil, &ValidationError{Fields: fields}
		}
	}

	// One submission per entity+operation at a time. The caller's
	// submit control stays disabled until this resolves; repeated
	// clicks are rejected, not queued.
	key := entity + ":" + op
	if !g.begin(key) {
		return nil, errors.Mutation("a submission is already in flight", nil)
	}
	defer g.end(key)

	env, err := fn()
	if err != nil {
		g.metrics.Mutations.WithLabelValues(entity, op, "error").Inc()
		g.logger.Error(err, "mutation rejected", "entity", entity, "operation", op)
		// No automatic retry; the user may resubmit manually.
		return nil, err
	}

	g.metrics.Mutations.WithLabelValues(entity, op, "ok").Inc()

	// Server truth over client caches: drop the snapshot and reload.
	g.loader.Invalidate()
	if _, err := g.loader.LoadSnapshot(ctx); err != nil {
		g.logger.Error(err, "post-mutation reload failed", "entity", entity)
	}

	if g.broker != nil {
		event := messaging.InvalidationEvent{Collection: entity, Operation: op, RecordID: recordID(env, entity)}
		if err := g.broker.Publish(ctx, messaging.InvalidationChannel, event); err != nil {
			g.logger.Error(err, "failed to publish invalidation event", "entity", entity)
		}
	}
	return env, nil
}

func (g *Gateway) begin(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.inFlight[key] {
		return false
	}
	g.inFlight[key] = true
	return true
}

func (g *Gateway) end(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.inFlight, key)
}

func recordID(env *model.Envelope, entity string) string {
	if env == nil || len(env.Data) == 0 {
		return ""
	}
	id, err := resolver.ID(env.Data[0], entity)
	if err != nil {
		return ""
	}
	return id
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

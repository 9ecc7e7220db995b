// Package builder implements the character builder orchestrator
package builder

import (
	"context"
	"log/slog"
	"strings"

	"github.com/KirkDiggler/rpg-toolkit/events"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/KirkDiggler/rpg-builder/internal/catalog"
	"github.com/KirkDiggler/rpg-builder/internal/entities"
	"github.com/KirkDiggler/rpg-builder/internal/errors"
	"github.com/KirkDiggler/rpg-builder/internal/pkg/idgen"
	"github.com/KirkDiggler/rpg-builder/internal/repositories/drafts"
	"github.com/KirkDiggler/rpg-builder/internal/services/builder"
	"github.com/KirkDiggler/rpg-builder/internal/steps"
)

const tracerName = "github.com/KirkDiggler/rpg-builder/internal/orchestrators/builder"

// Config holds the dependencies for the builder orchestrator
type Config struct {
	DraftRepo   drafts.Repository
	Catalog     catalog.Provider
	IDGenerator idgen.Generator

	// Registry defaults to steps.NewRegistry()
	Registry *steps.Registry
	// EventBus receives step and readiness events when set
	EventBus events.EventBus
	// Tracer defaults to the global otel tracer
	Tracer trace.Tracer
}

// Validate ensures all required dependencies are provided
func (c *Config) Validate() error {
	vb := errors.NewValidationBuilder()

	if c.DraftRepo == nil {
		vb.RequiredField("DraftRepo")
	}
	if c.Catalog == nil {
		vb.RequiredField("Catalog")
	}
	if c.IDGenerator == nil {
		vb.RequiredField("IDGenerator")
	}

	return vb.Build()
}

// Orchestrator implements the builder.Service interface
type Orchestrator struct {
	draftRepo   drafts.Repository
	catalog     catalog.Provider
	idGenerator idgen.Generator
	registry    *steps.Registry
	eventBus    events.EventBus
	tracer      trace.Tracer
}

// New creates a new builder orchestrator
func New(cfg *Config) (*Orchestrator, error) {
	if cfg == nil {
		return nil, errors.InvalidArgument("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	registry := cfg.Registry
	if registry == nil {
		registry = steps.NewRegistry()
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}

	return &Orchestrator{
		draftRepo:   cfg.DraftRepo,
		catalog:     cfg.Catalog,
		idGenerator: cfg.IDGenerator,
		registry:    registry,
		eventBus:    cfg.EventBus,
		tracer:      tracer,
	}, nil
}

// Ensure Orchestrator implements the Service interface
var _ builder.Service = (*Orchestrator)(nil)

// Draft lifecycle methods

// CreateDraft creates an empty draft owned by the caller
func (o *Orchestrator) CreateDraft(ctx context.Context, input *builder.CreateDraftInput) (_ *builder.CreateDraftOutput, err error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}

	ctx, span := o.tracer.Start(ctx, "builder.CreateDraft",
		trace.WithAttributes(attribute.String("owner.id", input.OwnerID)))
	defer func() { endSpan(span, err) }()

	level := entities.DefaultStartingLevel
	if input.StartingLevel != nil {
		level = *input.StartingLevel
	}

	vb := errors.NewValidationBuilder()
	errors.ValidateRequired("owner_id", input.OwnerID, vb)
	errors.ValidateMaxLength("name", input.Name, entities.MaxNameLength, vb)
	errors.ValidateRange("starting_level", level, entities.MinStartingLevel, entities.MaxStartingLevel, vb)
	if err := vb.Build(); err != nil {
		return nil, err
	}

	flags := input.VariantFlags
	if flags == nil {
		flags = map[string]any{}
	}

	draft := &entities.Draft{
		ID:            o.idGenerator.Generate(),
		OwnerID:       input.OwnerID,
		Name:          strings.TrimSpace(input.Name),
		Status:        entities.StatusDraft,
		StartingLevel: level,
		AllowFeats:    input.AllowFeats,
		VariantFlags:  flags,
		StepData:      entities.StepData{},
	}

	out, err := o.draftRepo.Create(ctx, drafts.CreateInput{Draft: draft})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create draft")
	}

	span.SetAttributes(attribute.String("draft.id", out.Draft.ID))
	slog.Info("draft created",
		"draft_id", out.Draft.ID,
		"owner_id", out.Draft.OwnerID,
		"starting_level", out.Draft.StartingLevel)

	return &builder.CreateDraftOutput{Draft: out.Draft}, nil
}

// GetDraft returns one of the caller's drafts with its progress
func (o *Orchestrator) GetDraft(ctx context.Context, input *builder.GetDraftInput) (_ *builder.GetDraftOutput, err error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}

	ctx, span := o.tracer.Start(ctx, "builder.GetDraft", draftAttributes(input.DraftID, input.OwnerID))
	defer func() { endSpan(span, err) }()

	draft, err := o.loadOwned(ctx, input.DraftID, input.OwnerID)
	if err != nil {
		return nil, err
	}

	out := &builder.GetDraftOutput{Draft: draft}

	c, err := o.catalog.Catalog()
	if err != nil {
		slog.Debug("progress skipped, catalog not ready", "draft_id", draft.ID)
		return out, nil
	}
	progress := o.registry.Progress(steps.NewContext(c, draft))
	out.Progress = &progress

	return out, nil
}

// ListDrafts returns summaries of the caller's drafts, most recent first
func (o *Orchestrator) ListDrafts(ctx context.Context, input *builder.ListDraftsInput) (_ *builder.ListDraftsOutput, err error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}

	ctx, span := o.tracer.Start(ctx, "builder.ListDrafts",
		trace.WithAttributes(attribute.String("owner.id", input.OwnerID)))
	defer func() { endSpan(span, err) }()

	vb := errors.NewValidationBuilder()
	errors.ValidateRequired("owner_id", input.OwnerID, vb)
	if err := vb.Build(); err != nil {
		return nil, err
	}

	out, err := o.draftRepo.ListByOwner(ctx, drafts.ListByOwnerInput{OwnerID: input.OwnerID})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list drafts")
	}

	summaries := make([]*entities.DraftSummary, 0, len(out.Drafts))
	for _, d := range out.Drafts {
		summaries = append(summaries, d.Summary())
	}
	span.SetAttributes(attribute.Int("draft.count", len(summaries)))

	return &builder.ListDraftsOutput{Drafts: summaries}, nil
}

// DeleteDraft removes one of the caller's drafts.
// Deleting a draft that does not exist succeeds.
func (o *Orchestrator) DeleteDraft(ctx context.Context, input *builder.DeleteDraftInput) (_ *builder.DeleteDraftOutput, err error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}

	ctx, span := o.tracer.Start(ctx, "builder.DeleteDraft", draftAttributes(input.DraftID, input.OwnerID))
	defer func() { endSpan(span, err) }()

	_, err = o.loadOwned(ctx, input.DraftID, input.OwnerID)
	if errors.IsNotFound(err) {
		return &builder.DeleteDraftOutput{}, nil
	}
	if err != nil {
		return nil, err
	}

	if _, err := o.draftRepo.Delete(ctx, drafts.DeleteInput{ID: input.DraftID}); err != nil {
		return nil, errors.Wrapf(err, "failed to delete draft")
	}

	slog.Info("draft deleted", "draft_id", input.DraftID, "owner_id", input.OwnerID)

	return &builder.DeleteDraftOutput{}, nil
}

// UpdateDraftName sets the display name of one of the caller's drafts
func (o *Orchestrator) UpdateDraftName(ctx context.Context, input *builder.UpdateDraftNameInput) (_ *builder.UpdateDraftNameOutput, err error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}

	ctx, span := o.tracer.Start(ctx, "builder.UpdateDraftName", draftAttributes(input.DraftID, input.OwnerID))
	defer func() { endSpan(span, err) }()

	vb := errors.NewValidationBuilder()
	errors.ValidateMaxLength("name", input.Name, entities.MaxNameLength, vb)
	if err := vb.Build(); err != nil {
		return nil, err
	}

	if _, err := o.loadOwned(ctx, input.DraftID, input.OwnerID); err != nil {
		return nil, err
	}

	out, err := o.draftRepo.UpdateName(ctx, drafts.UpdateNameInput{
		ID:   input.DraftID,
		Name: strings.TrimSpace(input.Name),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to update draft name")
	}

	return &builder.UpdateDraftNameOutput{Draft: out.Draft}, nil
}

// Step methods

// ApplyStep validates a step payload and stores its normalized form
func (o *Orchestrator) ApplyStep(ctx context.Context, input *builder.ApplyStepInput) (_ *builder.ApplyStepOutput, err error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}

	ctx, span := o.tracer.Start(ctx, "builder.ApplyStep",
		draftAttributes(input.DraftID, input.OwnerID),
		trace.WithAttributes(attribute.String("step.kind", string(input.Step))))
	defer func() { endSpan(span, err) }()

	draft, err := o.loadOwned(ctx, input.DraftID, input.OwnerID)
	if err != nil {
		return nil, err
	}

	def, err := o.registry.Lookup(input.Step)
	if err != nil {
		return nil, err
	}

	c, err := o.catalog.Catalog()
	if err != nil {
		return nil, err
	}

	sc := steps.NewContext(c, draft)
	normalized, err := def.Validate(input.Payload, sc)
	if err != nil {
		slog.Debug("step rejected",
			"draft_id", draft.ID,
			"step", input.Step,
			"violations", len(errors.GetViolations(err)))
		return nil, err
	}

	out, err := o.draftRepo.UpdateStep(ctx, drafts.UpdateStepInput{
		ID:           draft.ID,
		Kind:         input.Step,
		Payload:      normalized,
		MarkComplete: input.MarkComplete,
		Status: func(data entities.StepData) entities.Status {
			return o.registry.Status(sc.WithStepData(data))
		},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to apply %s step", input.Step)
	}

	updated := out.Draft
	progress := o.registry.Progress(steps.NewContext(c, updated))

	span.SetAttributes(
		attribute.String("draft.status", string(updated.Status)),
		attribute.Int("draft.percent", progress.Percent))
	slog.Info("step applied",
		"draft_id", updated.ID,
		"step", input.Step,
		"status", updated.Status,
		"previous_status", out.PreviousStatus)

	o.publish(ctx, EventStepApplied, updated, map[string]any{
		ContextKeyStep:           string(input.Step),
		ContextKeyStatus:         string(updated.Status),
		ContextKeyPreviousStatus: string(out.PreviousStatus),
	})
	if updated.Status == entities.StatusReadyForFinalize && out.PreviousStatus != entities.StatusReadyForFinalize {
		o.publish(ctx, EventReadyForFinalize, updated, map[string]any{
			ContextKeyStatus: string(updated.Status),
		})
	}

	return &builder.ApplyStepOutput{Draft: updated, Progress: &progress}, nil
}

// Validation methods

// ValidateDraft re-evaluates every step against the current catalog
func (o *Orchestrator) ValidateDraft(ctx context.Context, input *builder.ValidateDraftInput) (_ *builder.ValidateDraftOutput, err error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}

	ctx, span := o.tracer.Start(ctx, "builder.ValidateDraft", draftAttributes(input.DraftID, input.OwnerID))
	defer func() { endSpan(span, err) }()

	draft, err := o.loadOwned(ctx, input.DraftID, input.OwnerID)
	if err != nil {
		return nil, err
	}

	c, err := o.catalog.Catalog()
	if err != nil {
		return nil, err
	}

	sc := steps.NewContext(c, draft)
	progress := o.registry.Progress(sc)
	status := o.registry.Status(sc)
	if status != draft.Status {
		slog.Warn("stored status is stale",
			"draft_id", draft.ID,
			"stored", draft.Status,
			"computed", status)
	}

	return &builder.ValidateDraftOutput{Progress: &progress, Status: status}, nil
}

// Reference data methods

// GetCatalogCollection returns one named collection of the loaded catalog
func (o *Orchestrator) GetCatalogCollection(_ context.Context, input *builder.GetCatalogCollectionInput) (*builder.GetCatalogCollectionOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}

	c, err := o.catalog.Catalog()
	if err != nil {
		return nil, err
	}

	items, err := c.Collection(input.Name)
	if err != nil {
		return nil, err
	}

	return &builder.GetCatalogCollectionOutput{Items: items}, nil
}

// loadOwned fetches a draft and checks it belongs to ownerID
func (o *Orchestrator) loadOwned(ctx context.Context, draftID, ownerID string) (*entities.Draft, error) {
	vb := errors.NewValidationBuilder()
	errors.ValidateRequired("draft_id", draftID, vb)
	errors.ValidateRequired("owner_id", ownerID, vb)
	if err := vb.Build(); err != nil {
		return nil, err
	}

	out, err := o.draftRepo.Get(ctx, drafts.GetInput{ID: draftID})
	if err != nil {
		return nil, err
	}

	if out.Draft.OwnerID != ownerID {
		slog.Warn("draft owner mismatch", "draft_id", draftID, "owner_id", ownerID)
		return nil, errors.Forbidden("draft", draftID)
	}

	return out.Draft, nil
}

func draftAttributes(draftID, ownerID string) trace.SpanStartOption {
	return trace.WithAttributes(
		attribute.String("draft.id", draftID),
		attribute.String("owner.id", ownerID))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, errors.GetMessage(err))
		span.SetAttributes(attribute.String("error.code", string(errors.GetCode(err))))
	}
	span.End()
}

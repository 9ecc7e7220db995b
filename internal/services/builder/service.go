// Package builder defines the interface for character builder operations
package builder

//go:generate mockgen -destination=mock/mock_service.go -package=buildermock github.com/KirkDiggler/rpg-builder/internal/services/builder Service

import (
	"context"
	"encoding/json"

	"github.com/KirkDiggler/rpg-builder/internal/entities"
)

// Service defines the interface for character builder operations.
// Every draft operation takes the caller's owner ID and rejects drafts
// belonging to someone else with errors.PermissionDenied.
type Service interface {
	// Draft lifecycle
	CreateDraft(ctx context.Context, input *CreateDraftInput) (*CreateDraftOutput, error)
	GetDraft(ctx context.Context, input *GetDraftInput) (*GetDraftOutput, error)
	ListDrafts(ctx context.Context, input *ListDraftsInput) (*ListDraftsOutput, error)
	DeleteDraft(ctx context.Context, input *DeleteDraftInput) (*DeleteDraftOutput, error)
	UpdateDraftName(ctx context.Context, input *UpdateDraftNameInput) (*UpdateDraftNameOutput, error)

	// Step application
	ApplyStep(ctx context.Context, input *ApplyStepInput) (*ApplyStepOutput, error)

	// Validation
	ValidateDraft(ctx context.Context, input *ValidateDraftInput) (*ValidateDraftOutput, error)

	// Reference data
	GetCatalogCollection(ctx context.Context, input *GetCatalogCollectionInput) (*GetCatalogCollectionOutput, error)
}

// Draft lifecycle types

// CreateDraftInput defines the request for creating a draft
type CreateDraftInput struct {
	OwnerID string
	Name    string
	// StartingLevel defaults to 1 when nil
	StartingLevel *int
	AllowFeats    bool
	VariantFlags  map[string]any
}

// CreateDraftOutput defines the response for creating a draft
type CreateDraftOutput struct {
	Draft *entities.Draft
}

// GetDraftInput defines the request for getting a draft
type GetDraftInput struct {
	DraftID string
	OwnerID string
}

// GetDraftOutput defines the response for getting a draft
type GetDraftOutput struct {
	Draft *entities.Draft
	// Progress is nil while the catalog is still loading
	Progress *entities.Progress
}

// ListDraftsInput defines the request for listing drafts
type ListDraftsInput struct {
	OwnerID string
}

// ListDraftsOutput defines the response for listing drafts
type ListDraftsOutput struct {
	Drafts []*entities.DraftSummary
}

// DeleteDraftInput defines the request for deleting a draft
type DeleteDraftInput struct {
	DraftID string
	OwnerID string
}

// DeleteDraftOutput defines the response for deleting a draft
type DeleteDraftOutput struct{}

// UpdateDraftNameInput defines the request for renaming a draft
type UpdateDraftNameInput struct {
	DraftID string
	OwnerID string
	Name    string
}

// UpdateDraftNameOutput defines the response for renaming a draft
type UpdateDraftNameOutput struct {
	Draft *entities.Draft
}

// Step types

// ApplyStepInput defines the request for submitting one step payload
type ApplyStepInput struct {
	DraftID      string
	OwnerID      string
	Step         entities.StepKind
	Payload      json.RawMessage
	MarkComplete bool
}

// ApplyStepOutput defines the response for submitting one step payload
type ApplyStepOutput struct {
	Draft    *entities.Draft
	Progress *entities.Progress
}

// Validation types

// ValidateDraftInput defines the request for re-checking a draft
type ValidateDraftInput struct {
	DraftID string
	OwnerID string
}

// ValidateDraftOutput defines the response for re-checking a draft
type ValidateDraftOutput struct {
	Progress *entities.Progress
	// Status is what the stored status would be against the current catalog
	Status entities.Status
}

// Reference data types

// GetCatalogCollectionInput defines the request for one catalog collection
type GetCatalogCollectionInput struct {
	Name string
}

// GetCatalogCollectionOutput defines the response for one catalog collection
type GetCatalogCollectionOutput struct {
	Items any
}

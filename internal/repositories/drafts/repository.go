// Package drafts defines the interface for character draft persistence
package drafts

//go:generate mockgen -destination=mock/mock_repository.go -package=draftsmock github.com/KirkDiggler/rpg-builder/internal/repositories/drafts Repository

import (
	"context"
	"encoding/json"
	"slices"

	"github.com/KirkDiggler/rpg-builder/internal/entities"
	"github.com/KirkDiggler/rpg-builder/internal/errors"
)

// Repository defines the interface for character draft persistence.
// Implementations own step_data and status; a step write merges a single
// step key and recomputes status in the same atomic operation.
type Repository interface {
	// Create persists a new draft
	// Returns errors.InvalidArgument for validation failures
	// Returns errors.AlreadyExists if the ID is taken
	Create(ctx context.Context, input CreateInput) (*CreateOutput, error)

	// Get retrieves a draft by ID
	// Returns errors.InvalidArgument for empty IDs
	// Returns errors.NotFound if the draft doesn't exist
	Get(ctx context.Context, input GetInput) (*GetOutput, error)

	// ListByOwner returns the owner's drafts, most recently updated first
	// Returns errors.InvalidArgument for empty owner IDs
	ListByOwner(ctx context.Context, input ListByOwnerInput) (*ListByOwnerOutput, error)

	// UpdateStep replaces one step payload and recomputes status atomically
	// Returns errors.NotFound if the draft doesn't exist
	// Returns errors.Aborted if concurrent writers kept winning
	UpdateStep(ctx context.Context, input UpdateStepInput) (*UpdateStepOutput, error)

	// UpdateName sets the display name
	// Returns errors.NotFound if the draft doesn't exist
	UpdateName(ctx context.Context, input UpdateNameInput) (*UpdateNameOutput, error)

	// Delete removes a draft. Deleting a missing draft succeeds.
	// Returns errors.InvalidArgument for empty IDs
	Delete(ctx context.Context, input DeleteInput) (*DeleteOutput, error)
}

// StatusFunc derives a draft status from its merged step data
type StatusFunc func(data entities.StepData) entities.Status

// CreateInput defines the input for creating a draft
type CreateInput struct {
	Draft *entities.Draft
}

// CreateOutput defines the output for creating a draft
type CreateOutput struct {
	Draft *entities.Draft
}

// GetInput defines the input for getting a draft
type GetInput struct {
	ID string
}

// GetOutput defines the output for getting a draft
type GetOutput struct {
	Draft *entities.Draft
}

// ListByOwnerInput defines the input for listing an owner's drafts
type ListByOwnerInput struct {
	OwnerID string
}

// ListByOwnerOutput defines the output for listing an owner's drafts
type ListByOwnerOutput struct {
	Drafts []*entities.Draft
}

// UpdateStepInput defines the input for writing one step
type UpdateStepInput struct {
	ID      string
	Kind    entities.StepKind
	Payload json.RawMessage

	// MarkComplete adds Kind to the draft's marked_complete list
	MarkComplete bool

	// Status is evaluated against the merged step data inside the write.
	// A nil Status leaves the stored status untouched.
	Status StatusFunc
}

// UpdateStepOutput defines the output for writing one step
type UpdateStepOutput struct {
	Draft          *entities.Draft
	PreviousStatus entities.Status
}

// UpdateNameInput defines the input for renaming a draft
type UpdateNameInput struct {
	ID   string
	Name string
}

// UpdateNameOutput defines the output for renaming a draft
type UpdateNameOutput struct {
	Draft *entities.Draft
}

// DeleteInput defines the input for deleting a draft
type DeleteInput struct {
	ID string
}

// DeleteOutput defines the output for deleting a draft
type DeleteOutput struct {
	// Deleted is false when no draft existed
	Deleted bool
}

const (
	// Error messages
	errDraftNil      = "draft cannot be nil"
	errDraftIDEmpty  = "draft ID cannot be empty"
	errOwnerIDEmpty  = "owner ID cannot be empty"
	errStepKindEmpty = "step kind cannot be empty"
	errPayloadEmpty  = "step payload cannot be empty"
)

func validateCreate(input CreateInput) error {
	if input.Draft == nil {
		return errors.InvalidArgument(errDraftNil)
	}
	if input.Draft.ID == "" {
		return errors.InvalidArgument(errDraftIDEmpty)
	}
	if input.Draft.OwnerID == "" {
		return errors.InvalidArgument(errOwnerIDEmpty)
	}
	return nil
}

func validateUpdateStep(input UpdateStepInput) error {
	if input.ID == "" {
		return errors.InvalidArgument(errDraftIDEmpty)
	}
	if input.Kind == "" {
		return errors.InvalidArgument(errStepKindEmpty)
	}
	if len(input.Payload) == 0 {
		return errors.InvalidArgument(errPayloadEmpty)
	}
	return nil
}

// applyStep merges a step write into d and returns the previous status
func applyStep(d *entities.Draft, input UpdateStepInput) entities.Status {
	previous := d.Status
	if d.StepData == nil {
		d.StepData = entities.StepData{}
	}
	d.StepData[input.Kind] = append(json.RawMessage(nil), input.Payload...)
	d.CurrentStep = input.Kind
	if input.MarkComplete && !d.IsMarkedComplete(input.Kind) {
		d.MarkedComplete = append(d.MarkedComplete, input.Kind)
		sortKinds(d.MarkedComplete)
	}
	if input.Status != nil {
		d.Status = input.Status(d.StepData.Clone())
	}
	return previous
}

// sortKinds puts step kinds in step order
func sortKinds(kinds []entities.StepKind) {
	slices.SortFunc(kinds, func(a, b entities.StepKind) int {
		return a.Order() - b.Order()
	})
}

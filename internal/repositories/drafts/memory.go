package drafts

import (
	"context"
	"sort"
	"sync"

	"github.com/KirkDiggler/rpg-builder/internal/entities"
	"github.com/KirkDiggler/rpg-builder/internal/errors"
	"github.com/KirkDiggler/rpg-builder/internal/pkg/clock"
)

type memoryRepository struct {
	mu     sync.RWMutex
	drafts map[string]*entities.Draft
	clock  clock.Clock
}

// NewMemoryRepository creates an in-process repository for development and tests
func NewMemoryRepository(clk clock.Clock) Repository {
	if clk == nil {
		clk = clock.New()
	}
	return &memoryRepository{
		drafts: make(map[string]*entities.Draft),
		clock:  clk,
	}
}

func (r *memoryRepository) Create(_ context.Context, input CreateInput) (*CreateOutput, error) {
	if err := validateCreate(input); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.drafts[input.Draft.ID]; exists {
		return nil, errors.AlreadyExistsf("draft %s already exists", input.Draft.ID)
	}

	draft := input.Draft.Clone()
	now := r.clock.Now()
	draft.CreatedAt = now
	draft.UpdatedAt = now
	if draft.StepData == nil {
		draft.StepData = entities.StepData{}
	}
	r.drafts[draft.ID] = draft

	return &CreateOutput{Draft: draft.Clone()}, nil
}

func (r *memoryRepository) Get(_ context.Context, input GetInput) (*GetOutput, error) {
	if input.ID == "" {
		return nil, errors.InvalidArgument(errDraftIDEmpty)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	draft, ok := r.drafts[input.ID]
	if !ok {
		return nil, errors.NotFoundf("draft with ID %s not found", input.ID)
	}
	return &GetOutput{Draft: draft.Clone()}, nil
}

func (r *memoryRepository) ListByOwner(_ context.Context, input ListByOwnerInput) (*ListByOwnerOutput, error) {
	if input.OwnerID == "" {
		return nil, errors.InvalidArgument(errOwnerIDEmpty)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*entities.Draft, 0)
	for _, draft := range r.drafts {
		if draft.OwnerID == input.OwnerID {
			out = append(out, draft.Clone())
		}
	}
	sortByRecency(out)

	return &ListByOwnerOutput{Drafts: out}, nil
}

func (r *memoryRepository) UpdateStep(_ context.Context, input UpdateStepInput) (*UpdateStepOutput, error) {
	if err := validateUpdateStep(input); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	draft, ok := r.drafts[input.ID]
	if !ok {
		return nil, errors.NotFoundf("draft with ID %s not found", input.ID)
	}

	next := draft.Clone()
	previous := applyStep(next, input)
	next.UpdatedAt = r.clock.Now()
	r.drafts[input.ID] = next

	return &UpdateStepOutput{Draft: next.Clone(), PreviousStatus: previous}, nil
}

func (r *memoryRepository) UpdateName(_ context.Context, input UpdateNameInput) (*UpdateNameOutput, error) {
	if input.ID == "" {
		return nil, errors.InvalidArgument(errDraftIDEmpty)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	draft, ok := r.drafts[input.ID]
	if !ok {
		return nil, errors.NotFoundf("draft with ID %s not found", input.ID)
	}

	draft.Name = input.Name
	draft.UpdatedAt = r.clock.Now()

	return &UpdateNameOutput{Draft: draft.Clone()}, nil
}

func (r *memoryRepository) Delete(_ context.Context, input DeleteInput) (*DeleteOutput, error) {
	if input.ID == "" {
		return nil, errors.InvalidArgument(errDraftIDEmpty)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.drafts[input.ID]
	delete(r.drafts, input.ID)

	return &DeleteOutput{Deleted: ok}, nil
}

// sortByRecency orders drafts by updated_at descending, ties broken by id
func sortByRecency(drafts []*entities.Draft) {
	sort.SliceStable(drafts, func(i, j int) bool {
		if !drafts[i].UpdatedAt.Equal(drafts[j].UpdatedAt) {
			return drafts[i].UpdatedAt.After(drafts[j].UpdatedAt)
		}
		return drafts[i].ID > drafts[j].ID
	})
}

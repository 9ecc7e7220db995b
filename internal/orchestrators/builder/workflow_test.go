package builder_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/KirkDiggler/rpg-toolkit/events"
	"github.com/stretchr/testify/suite"

	"github.com/KirkDiggler/rpg-builder/internal/catalog"
	"github.com/KirkDiggler/rpg-builder/internal/entities"
	"github.com/KirkDiggler/rpg-builder/internal/errors"
	builderorch "github.com/KirkDiggler/rpg-builder/internal/orchestrators/builder"
	"github.com/KirkDiggler/rpg-builder/internal/pkg/clock"
	"github.com/KirkDiggler/rpg-builder/internal/pkg/idgen"
	"github.com/KirkDiggler/rpg-builder/internal/repositories/drafts"
	"github.com/KirkDiggler/rpg-builder/internal/services/builder"
)

// WorkflowTestSuite drives whole drafts through an in-memory store
type WorkflowTestSuite struct {
	suite.Suite
	orchestrator *builderorch.Orchestrator
	clock        *clock.Manual
	bus          *events.Bus
	ctx          context.Context

	mu     sync.Mutex
	events []string
}

func (s *WorkflowTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = clock.NewManual(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	s.events = nil

	data, err := catalog.BuiltinData()
	s.Require().NoError(err)
	c, err := catalog.New(*data)
	s.Require().NoError(err)

	s.bus = events.NewBus()
	record := func(eventType string) events.HandlerFunc {
		return func(_ context.Context, e events.Event) error {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.events = append(s.events, eventType+":"+e.Source().GetID())
			return nil
		}
	}
	s.bus.SubscribeFunc(builderorch.EventStepApplied, 0, record(builderorch.EventStepApplied))
	s.bus.SubscribeFunc(builderorch.EventReadyForFinalize, 0, record(builderorch.EventReadyForFinalize))

	s.orchestrator, err = builderorch.New(&builderorch.Config{
		DraftRepo:   drafts.NewMemoryRepository(s.clock),
		Catalog:     catalog.Static(c),
		IDGenerator: idgen.NewSequential("draft"),
		EventBus:    s.bus,
	})
	s.Require().NoError(err)
}

func TestWorkflowSuite(t *testing.T) {
	suite.Run(t, new(WorkflowTestSuite))
}

func (s *WorkflowTestSuite) create(owner string) *entities.Draft {
	out, err := s.orchestrator.CreateDraft(s.ctx, &builder.CreateDraftInput{OwnerID: owner})
	s.Require().NoError(err)
	return out.Draft
}

func (s *WorkflowTestSuite) apply(draftID string, kind entities.StepKind, payload string) (*builder.ApplyStepOutput, error) {
	s.clock.Advance(time.Second)
	return s.orchestrator.ApplyStep(s.ctx, &builder.ApplyStepInput{
		DraftID: draftID,
		OwnerID: "owner_1",
		Step:    kind,
		Payload: json.RawMessage(payload),
	})
}

func (s *WorkflowTestSuite) mustApply(draftID string, kind entities.StepKind, payload string) *builder.ApplyStepOutput {
	out, err := s.apply(draftID, kind, payload)
	s.Require().NoError(err)
	return out
}

func (s *WorkflowTestSuite) recorded() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

func (s *WorkflowTestSuite) TestWizardReachesReadyForFinalize() {
	draft := s.create("owner_1")
	s.Equal("draft_1", draft.ID)
	s.Equal(entities.StatusDraft, draft.Status)

	s.mustApply(draft.ID, entities.StepAbilityScores, `{"method":"standard_array","scores":{"strength":8,"dexterity":14,"constitution":13,"intelligence":15,"wisdom":12,"charisma":10}}`)
	s.mustApply(draft.ID, entities.StepOrigin, `{"species":"elf","background":"sage","languages":["Elvish"]}`)
	s.mustApply(draft.ID, entities.StepClass, `{"class":"wizard"}`)
	s.mustApply(draft.ID, entities.StepProficiencies, `{"skills":["arcana","history"]}`)
	s.mustApply(draft.ID, entities.StepEquipment, `{"weapons":["longsword"],"currency":{"gp":10}}`)
	out := s.mustApply(draft.ID, entities.StepSpells, `{"cantrips":["fire_bolt","mage_hand"],"known":["magic_missile","shield"],"prepared":["magic_missile"]}`)

	s.Equal(entities.StatusReadyForFinalize, out.Draft.Status)
	s.Equal(100, out.Progress.Percent)
	s.Equal(entities.StepSpells, out.Draft.CurrentStep)

	recorded := s.recorded()
	s.Len(recorded, 7)
	s.Equal(builderorch.EventReadyForFinalize+":draft_1", recorded[6])

	s.Run("resubmitting keeps readiness without a second signal", func() {
		out := s.mustApply(draft.ID, entities.StepEquipment, `{"weapons":["longsword"],"currency":{"gp":10}}`)
		s.Equal(entities.StatusReadyForFinalize, out.Draft.Status)
		s.Len(s.recorded(), 8)
	})

	s.Run("an incomplete resubmission regresses", func() {
		out := s.mustApply(draft.ID, entities.StepProficiencies, `{"skills":["arcana"]}`)
		s.Equal(entities.StatusInProgress, out.Draft.Status)
		s.Equal(entities.StepProficiencies, out.Progress.NextStep)

		validated, err := s.orchestrator.ValidateDraft(s.ctx, &builder.ValidateDraftInput{DraftID: draft.ID, OwnerID: "owner_1"})
		s.Require().NoError(err)
		s.Equal([]entities.StepKind{entities.StepProficiencies}, validated.Progress.Missing)
		s.Equal(entities.StatusInProgress, validated.Status)
	})

	s.Run("completing again signals readiness again", func() {
		out := s.mustApply(draft.ID, entities.StepProficiencies, `{"skills":["arcana","history"]}`)
		s.Equal(entities.StatusReadyForFinalize, out.Draft.Status)

		recorded := s.recorded()
		s.Equal(builderorch.EventReadyForFinalize+":draft_1", recorded[len(recorded)-1])
	})
}

func (s *WorkflowTestSuite) TestSkillCapIsEnforced() {
	draft := s.create("owner_1")
	s.mustApply(draft.ID, entities.StepClass, `{"class":"wizard"}`)

	_, err := s.apply(draft.ID, entities.StepProficiencies, `{"skills":["arcana","history","insight"]}`)
	s.Require().Error(err)
	s.Equal(errors.ReasonTooMany, errors.GetViolations(err)[0].Reason)

	got, err := s.orchestrator.GetDraft(s.ctx, &builder.GetDraftInput{DraftID: draft.ID, OwnerID: "owner_1"})
	s.Require().NoError(err)
	s.False(got.Draft.StepData.Has(entities.StepProficiencies))
}

func (s *WorkflowTestSuite) TestCantripAsKnownSpellIsRejected() {
	draft := s.create("owner_1")
	s.mustApply(draft.ID, entities.StepClass, `{"class":"wizard"}`)

	_, err := s.apply(draft.ID, entities.StepSpells, `{"known":["fire_bolt"]}`)
	s.Require().Error(err)
	s.Equal(errors.ReasonWrongLevel, errors.GetViolations(err)[0].Reason)
}

func (s *WorkflowTestSuite) TestListDraftsNewestFirst() {
	first := s.create("owner_1")
	s.clock.Advance(time.Second)
	second := s.create("owner_1")
	s.create("owner_2")

	out, err := s.orchestrator.ListDrafts(s.ctx, &builder.ListDraftsInput{OwnerID: "owner_1"})
	s.Require().NoError(err)
	s.Require().Len(out.Drafts, 2)
	s.Equal(second.ID, out.Drafts[0].ID)

	s.mustApply(first.ID, entities.StepClass, `{"class":"fighter"}`)

	out, err = s.orchestrator.ListDrafts(s.ctx, &builder.ListDraftsInput{OwnerID: "owner_1"})
	s.Require().NoError(err)
	s.Equal(first.ID, out.Drafts[0].ID)
	s.Equal(entities.StepClass, out.Drafts[0].CurrentStep)
	s.Equal(entities.StatusInProgress, out.Drafts[0].Status)
}

func (s *WorkflowTestSuite) TestDeleteIsIdempotentAndOwnerScoped() {
	draft := s.create("owner_1")

	_, err := s.orchestrator.DeleteDraft(s.ctx, &builder.DeleteDraftInput{DraftID: draft.ID, OwnerID: "owner_2"})
	s.True(errors.IsPermissionDenied(err))

	_, err = s.orchestrator.GetDraft(s.ctx, &builder.GetDraftInput{DraftID: draft.ID, OwnerID: "owner_1"})
	s.Require().NoError(err)

	for i := 0; i < 2; i++ {
		_, err = s.orchestrator.DeleteDraft(s.ctx, &builder.DeleteDraftInput{DraftID: draft.ID, OwnerID: "owner_1"})
		s.Require().NoError(err)
	}

	_, err = s.orchestrator.GetDraft(s.ctx, &builder.GetDraftInput{DraftID: draft.ID, OwnerID: "owner_1"})
	s.True(errors.IsNotFound(err))
}

func (s *WorkflowTestSuite) TestRenameKeepsSteps() {
	draft := s.create("owner_1")
	s.mustApply(draft.ID, entities.StepClass, `{"class":"cleric"}`)

	out, err := s.orchestrator.UpdateDraftName(s.ctx, &builder.UpdateDraftNameInput{
		DraftID: draft.ID,
		OwnerID: "owner_1",
		Name:    "Brother Aldric",
	})
	s.Require().NoError(err)
	s.Equal("Brother Aldric", out.Draft.Name)
	s.Equal("cleric", out.Draft.StepData.SelectedClass())
	s.Equal(entities.StatusInProgress, out.Draft.Status)
}

func (s *WorkflowTestSuite) TestFailingSubscriberDoesNotFailTheStep() {
	s.bus.SubscribeFunc(builderorch.EventStepApplied, 10, func(context.Context, events.Event) error {
		return errors.Internal("subscriber exploded")
	})

	draft := s.create("owner_1")
	out, err := s.apply(draft.ID, entities.StepClass, `{"class":"wizard"}`)
	s.Require().NoError(err)
	s.Equal("wizard", out.Draft.StepData.SelectedClass())
}

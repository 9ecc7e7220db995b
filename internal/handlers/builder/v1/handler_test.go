package v1_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/KirkDiggler/rpg-builder/internal/entities"
	"github.com/KirkDiggler/rpg-builder/internal/errors"
	v1 "github.com/KirkDiggler/rpg-builder/internal/handlers/builder/v1"
	"github.com/KirkDiggler/rpg-builder/internal/services/builder"
	buildermock "github.com/KirkDiggler/rpg-builder/internal/services/builder/mock"
)

type HandlerTestSuite struct {
	suite.Suite
	ctrl        *gomock.Controller
	mockBuilder *buildermock.MockService
	router      *gin.Engine

	testDraft *entities.Draft
}

func TestHandlerTestSuite(t *testing.T) {
	gin.SetMode(gin.TestMode)
	suite.Run(t, new(HandlerTestSuite))
}

func (s *HandlerTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockBuilder = buildermock.NewMockService(s.ctrl)

	handler, err := v1.NewHandler(&v1.HandlerConfig{BuilderService: s.mockBuilder})
	s.Require().NoError(err)
	s.router = v1.NewRouter(handler)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.testDraft = &entities.Draft{
		ID:            "draft_1",
		OwnerID:       "owner_1",
		Name:          "Vex",
		Status:        entities.StatusInProgress,
		StartingLevel: 1,
		CurrentStep:   entities.StepClass,
		StepData: entities.StepData{
			entities.StepClass: json.RawMessage(`{"class":"wizard"}`),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *HandlerTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *HandlerTestSuite) do(method, path, owner, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if owner != "" {
		req.Header.Set(v1.OwnerHeader, owner)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerTestSuite) decode(rec *httptest.ResponseRecorder) map[string]any {
	var body map[string]any
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func (s *HandlerTestSuite) TestNewHandlerRequiresService() {
	_, err := v1.NewHandler(&v1.HandlerConfig{})
	s.Require().Error(err)
	s.True(errors.IsInvalidArgument(err))
}

func (s *HandlerTestSuite) TestMissingOwnerHeader() {
	rec := s.do(http.MethodGet, "/api/v1/builder/drafts", "", "")

	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("INVALID_ARGUMENT", s.decode(rec)["code"])
}

func (s *HandlerTestSuite) TestCreateDraft() {
	level := 3
	s.mockBuilder.EXPECT().
		CreateDraft(gomock.Any(), &builder.CreateDraftInput{
			OwnerID:       "owner_1",
			Name:          "Vex",
			StartingLevel: &level,
			AllowFeats:    true,
			VariantFlags:  map[string]any{"strict_standard_array": true},
		}).
		Return(&builder.CreateDraftOutput{Draft: s.testDraft}, nil)

	rec := s.do(http.MethodPost, "/api/v1/builder/drafts", "owner_1",
		`{"name":"Vex","starting_level":3,"allow_feats":true,"variant_flags":{"strict_standard_array":true}}`)

	s.Equal(http.StatusCreated, rec.Code)
	draft := s.decode(rec)["draft"].(map[string]any)
	s.Equal("draft_1", draft["id"])
	s.Equal("in_progress", draft["status"])
}

func (s *HandlerTestSuite) TestCreateDraftEmptyBody() {
	s.mockBuilder.EXPECT().
		CreateDraft(gomock.Any(), &builder.CreateDraftInput{OwnerID: "owner_1"}).
		Return(&builder.CreateDraftOutput{Draft: s.testDraft}, nil)

	rec := s.do(http.MethodPost, "/api/v1/builder/drafts", "owner_1", "")

	s.Equal(http.StatusCreated, rec.Code)
	s.Equal("draft_1", s.decode(rec)["draft"].(map[string]any)["id"])
}

func (s *HandlerTestSuite) TestCreateDraftMalformedBody() {
	rec := s.do(http.MethodPost, "/api/v1/builder/drafts", "owner_1", `{"name":`)

	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("INVALID_ARGUMENT", s.decode(rec)["code"])
}

func (s *HandlerTestSuite) TestListDraftsEmpty() {
	s.mockBuilder.EXPECT().
		ListDrafts(gomock.Any(), &builder.ListDraftsInput{OwnerID: "owner_1"}).
		Return(&builder.ListDraftsOutput{}, nil)

	rec := s.do(http.MethodGet, "/api/v1/builder/drafts", "owner_1", "")

	s.Equal(http.StatusOK, rec.Code)
	s.JSONEq(`{"drafts":[]}`, rec.Body.String())
}

func (s *HandlerTestSuite) TestGetDraft() {
	s.Run("with progress", func() {
		s.mockBuilder.EXPECT().
			GetDraft(gomock.Any(), &builder.GetDraftInput{DraftID: "draft_1", OwnerID: "owner_1"}).
			Return(&builder.GetDraftOutput{
				Draft: s.testDraft,
				Progress: &entities.Progress{
					Completed: []entities.StepKind{entities.StepClass},
					Missing:   []entities.StepKind{entities.StepAbilityScores},
					NextStep:  entities.StepAbilityScores,
					Percent:   50,
				},
			}, nil)

		rec := s.do(http.MethodGet, "/api/v1/builder/drafts/draft_1", "owner_1", "")

		s.Equal(http.StatusOK, rec.Code)
		progress := s.decode(rec)["progress"].(map[string]any)
		s.Equal(float64(50), progress["percent"])
	})

	s.Run("forbidden for another owner", func() {
		s.mockBuilder.EXPECT().
			GetDraft(gomock.Any(), &builder.GetDraftInput{DraftID: "draft_1", OwnerID: "owner_2"}).
			Return(nil, errors.Forbidden("draft", "draft_1"))

		rec := s.do(http.MethodGet, "/api/v1/builder/drafts/draft_1", "owner_2", "")

		s.Equal(http.StatusForbidden, rec.Code)
		s.Equal("PERMISSION_DENIED", s.decode(rec)["code"])
	})

	s.Run("not found", func() {
		s.mockBuilder.EXPECT().
			GetDraft(gomock.Any(), gomock.Any()).
			Return(nil, errors.NotFoundf("draft %s not found", "missing"))

		rec := s.do(http.MethodGet, "/api/v1/builder/drafts/missing", "owner_1", "")

		s.Equal(http.StatusNotFound, rec.Code)
	})
}

func (s *HandlerTestSuite) TestDeleteDraft() {
	s.mockBuilder.EXPECT().
		DeleteDraft(gomock.Any(), &builder.DeleteDraftInput{DraftID: "draft_1", OwnerID: "owner_1"}).
		Return(&builder.DeleteDraftOutput{}, nil)

	rec := s.do(http.MethodDelete, "/api/v1/builder/drafts/draft_1", "owner_1", "")

	s.Equal(http.StatusNoContent, rec.Code)
	s.Empty(rec.Body.String())
}

func (s *HandlerTestSuite) TestUpdateDraftName() {
	renamed := s.testDraft.Clone()
	renamed.Name = "Brother Aldric"
	s.mockBuilder.EXPECT().
		UpdateDraftName(gomock.Any(), &builder.UpdateDraftNameInput{
			DraftID: "draft_1",
			OwnerID: "owner_1",
			Name:    "Brother Aldric",
		}).
		Return(&builder.UpdateDraftNameOutput{Draft: renamed}, nil)

	rec := s.do(http.MethodPatch, "/api/v1/builder/drafts/draft_1/name", "owner_1", `{"name":"Brother Aldric"}`)

	s.Equal(http.StatusOK, rec.Code)
	s.Equal("Brother Aldric", s.decode(rec)["draft"].(map[string]any)["name"])
}

func (s *HandlerTestSuite) TestApplyStep() {
	s.Run("passes payload through untouched", func() {
		s.mockBuilder.EXPECT().
			ApplyStep(gomock.Any(), &builder.ApplyStepInput{
				DraftID:      "draft_1",
				OwnerID:      "owner_1",
				Step:         entities.StepClass,
				Payload:      json.RawMessage(`{"class":"wizard"}`),
				MarkComplete: true,
			}).
			Return(&builder.ApplyStepOutput{Draft: s.testDraft, Progress: &entities.Progress{Percent: 17}}, nil)

		rec := s.do(http.MethodPatch, "/api/v1/builder/drafts/draft_1/steps/class", "owner_1",
			`{"payload":{"class":"wizard"},"mark_complete":true}`)

		s.Equal(http.StatusOK, rec.Code)
	})

	s.Run("validation failure carries violations", func() {
		s.mockBuilder.EXPECT().
			ApplyStep(gomock.Any(), gomock.Any()).
			Return(nil, errors.NewValidationBuilder().
				Violation("skills", errors.ReasonTooMany, "choose at most 2 skills").
				Build())

		rec := s.do(http.MethodPatch, "/api/v1/builder/drafts/draft_1/steps/proficiencies", "owner_1",
			`{"payload":{"skills":["arcana","history","insight"]}}`)

		s.Equal(http.StatusBadRequest, rec.Code)
		body := s.decode(rec)
		s.Equal("INVALID_ARGUMENT", body["code"])
		violations := body["meta"].(map[string]any)["violations"].([]any)
		s.Require().Len(violations, 1)
		s.Equal("TOO_MANY", violations[0].(map[string]any)["reason"])
	})

	s.Run("catalog not ready", func() {
		s.mockBuilder.EXPECT().
			ApplyStep(gomock.Any(), gomock.Any()).
			Return(nil, errors.CatalogUnavailable())

		rec := s.do(http.MethodPatch, "/api/v1/builder/drafts/draft_1/steps/class", "owner_1",
			`{"payload":{"class":"wizard"}}`)

		s.Equal(http.StatusServiceUnavailable, rec.Code)
	})
}

func (s *HandlerTestSuite) TestValidateDraft() {
	s.mockBuilder.EXPECT().
		ValidateDraft(gomock.Any(), &builder.ValidateDraftInput{DraftID: "draft_1", OwnerID: "owner_1"}).
		Return(&builder.ValidateDraftOutput{
			Progress: &entities.Progress{Missing: []entities.StepKind{entities.StepSpells}, Percent: 83},
			Status:   entities.StatusInProgress,
		}, nil)

	rec := s.do(http.MethodGet, "/api/v1/builder/drafts/draft_1/validation", "owner_1", "")

	s.Equal(http.StatusOK, rec.Code)
	s.Equal("in_progress", s.decode(rec)["status"])
}

func (s *HandlerTestSuite) TestGetCatalogCollection() {
	s.mockBuilder.EXPECT().
		GetCatalogCollection(gomock.Any(), &builder.GetCatalogCollectionInput{Name: "languages"}).
		Return(&builder.GetCatalogCollectionOutput{Items: []string{"Common", "Elvish"}}, nil)

	rec := s.do(http.MethodGet, "/api/v1/builder/catalog/languages", "", "")

	s.Equal(http.StatusOK, rec.Code)
	s.JSONEq(`{"collection":"languages","items":["Common","Elvish"]}`, rec.Body.String())
}

func (s *HandlerTestSuite) TestInternalErrorsAreMasked() {
	s.mockBuilder.EXPECT().
		ListDrafts(gomock.Any(), gomock.Any()).
		Return(nil, errors.Internal("redis: connection refused"))

	rec := s.do(http.MethodGet, "/api/v1/builder/drafts", "owner_1", "")

	s.Equal(http.StatusInternalServerError, rec.Code)
	body := s.decode(rec)
	s.Equal("internal error", body["message"])
	s.Nil(body["meta"])
}

func (s *HandlerTestSuite) TestUnknownRoute() {
	rec := s.do(http.MethodGet, "/api/v1/builder/nowhere", "owner_1", "")

	s.Equal(http.StatusNotFound, rec.Code)
	s.Equal("NOT_FOUND", s.decode(rec)["code"])
}

// Package v1 serves the character builder over a JSON HTTP API and a
// Struct-message gRPC service
package v1

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/KirkDiggler/rpg-builder/internal/entities"
	"github.com/KirkDiggler/rpg-builder/internal/errors"
	"github.com/KirkDiggler/rpg-builder/internal/services/builder"
)

// OwnerHeader carries the caller's identity, set by the access layer in front of this service
const OwnerHeader = "X-Owner-ID"

const ownerKey = "owner_id"

// HandlerConfig holds dependencies for the builder handler
type HandlerConfig struct {
	BuilderService builder.Service
}

// Validate ensures all required dependencies are present
func (c *HandlerConfig) Validate() error {
	if c.BuilderService == nil {
		return errors.InvalidArgument("builder service is required")
	}
	return nil
}

// Handler implements the builder HTTP routes
type Handler struct {
	builderService builder.Service
}

// NewHandler creates a new builder handler with the given configuration
func NewHandler(cfg *HandlerConfig) (*Handler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Handler{
		builderService: cfg.BuilderService,
	}, nil
}

// RegisterRoutes mounts the builder routes on r.
// Draft routes require the owner header; catalog routes do not.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	drafts := r.Group("/drafts", RequireOwner())
	drafts.GET("", h.ListDrafts)
	drafts.POST("", h.CreateDraft)
	drafts.GET("/:id", h.GetDraft)
	drafts.DELETE("/:id", h.DeleteDraft)
	drafts.PATCH("/:id/name", h.UpdateDraftName)
	drafts.PATCH("/:id/steps/:step", h.ApplyStep)
	drafts.GET("/:id/validation", h.ValidateDraft)

	r.GET("/catalog/:collection", h.GetCatalogCollection)
}

type createDraftRequest struct {
	Name          string         `json:"name"`
	StartingLevel *int           `json:"starting_level"`
	AllowFeats    bool           `json:"allow_feats"`
	VariantFlags  map[string]any `json:"variant_flags"`
}

type updateDraftNameRequest struct {
	Name string `json:"name"`
}

type applyStepRequest struct {
	Payload      json.RawMessage `json:"payload"`
	MarkComplete bool            `json:"mark_complete"`
}

type draftResponse struct {
	Draft    *entities.Draft    `json:"draft"`
	Progress *entities.Progress `json:"progress,omitempty"`
}

type listDraftsResponse struct {
	Drafts []*entities.DraftSummary `json:"drafts"`
}

type validationResponse struct {
	Progress *entities.Progress `json:"progress"`
	Status   entities.Status    `json:"status"`
}

type catalogResponse struct {
	Collection string `json:"collection"`
	Items      any    `json:"items"`
}

// ListDrafts returns the caller's draft summaries, newest first
func (h *Handler) ListDrafts(c *gin.Context) {
	out, err := h.builderService.ListDrafts(c.Request.Context(), &builder.ListDraftsInput{
		OwnerID: c.GetString(ownerKey),
	})
	if err != nil {
		renderError(c, err)
		return
	}

	summaries := out.Drafts
	if summaries == nil {
		summaries = []*entities.DraftSummary{}
	}
	c.JSON(http.StatusOK, listDraftsResponse{Drafts: summaries})
}

// CreateDraft starts a new draft for the caller
func (h *Handler) CreateDraft(c *gin.Context) {
	// Every field is optional, so no body means all defaults
	var req createDraftRequest
	if !bindOptionalBody(c, &req) {
		return
	}

	out, err := h.builderService.CreateDraft(c.Request.Context(), &builder.CreateDraftInput{
		OwnerID:       c.GetString(ownerKey),
		Name:          req.Name,
		StartingLevel: req.StartingLevel,
		AllowFeats:    req.AllowFeats,
		VariantFlags:  req.VariantFlags,
	})
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, draftResponse{Draft: out.Draft})
}

// GetDraft returns one draft with its progress
func (h *Handler) GetDraft(c *gin.Context) {
	out, err := h.builderService.GetDraft(c.Request.Context(), &builder.GetDraftInput{
		DraftID: c.Param("id"),
		OwnerID: c.GetString(ownerKey),
	})
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, draftResponse{Draft: out.Draft, Progress: out.Progress})
}

// DeleteDraft removes a draft. Deleting a missing draft still answers 204.
func (h *Handler) DeleteDraft(c *gin.Context) {
	_, err := h.builderService.DeleteDraft(c.Request.Context(), &builder.DeleteDraftInput{
		DraftID: c.Param("id"),
		OwnerID: c.GetString(ownerKey),
	})
	if err != nil {
		renderError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// UpdateDraftName renames a draft
func (h *Handler) UpdateDraftName(c *gin.Context) {
	var req updateDraftNameRequest
	if !bindBody(c, &req) {
		return
	}

	out, err := h.builderService.UpdateDraftName(c.Request.Context(), &builder.UpdateDraftNameInput{
		DraftID: c.Param("id"),
		OwnerID: c.GetString(ownerKey),
		Name:    req.Name,
	})
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, draftResponse{Draft: out.Draft})
}

// ApplyStep validates and stores one step payload
func (h *Handler) ApplyStep(c *gin.Context) {
	var req applyStepRequest
	if !bindBody(c, &req) {
		return
	}

	out, err := h.builderService.ApplyStep(c.Request.Context(), &builder.ApplyStepInput{
		DraftID:      c.Param("id"),
		OwnerID:      c.GetString(ownerKey),
		Step:         entities.StepKind(c.Param("step")),
		Payload:      req.Payload,
		MarkComplete: req.MarkComplete,
	})
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, draftResponse{Draft: out.Draft, Progress: out.Progress})
}

// ValidateDraft reports progress against the current catalog
func (h *Handler) ValidateDraft(c *gin.Context) {
	out, err := h.builderService.ValidateDraft(c.Request.Context(), &builder.ValidateDraftInput{
		DraftID: c.Param("id"),
		OwnerID: c.GetString(ownerKey),
	})
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, validationResponse{Progress: out.Progress, Status: out.Status})
}

// GetCatalogCollection returns one reference data collection
func (h *Handler) GetCatalogCollection(c *gin.Context) {
	name := c.Param("collection")
	out, err := h.builderService.GetCatalogCollection(c.Request.Context(), &builder.GetCatalogCollectionInput{
		Name: name,
	})
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, catalogResponse{Collection: name, Items: out.Items})
}

func bindBody(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		renderError(c, errors.InvalidArgumentf("malformed request body: %v", err))
		return false
	}
	return true
}

func bindOptionalBody(c *gin.Context, v any) bool {
	err := c.ShouldBindJSON(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	renderError(c, errors.InvalidArgumentf("malformed request body: %v", err))
	return false
}

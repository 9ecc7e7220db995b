package v1

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/KirkDiggler/rpg-builder/internal/errors"
)

type errorResponse struct {
	Code    errors.Code    `json:"code"`
	Message string         `json:"message"`
	Meta    map[string]any `json:"meta,omitempty"`
}

// RequireOwner rejects requests without the owner header and stores the owner on the context
func RequireOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		owner := strings.TrimSpace(c.GetHeader(OwnerHeader))
		if owner == "" {
			renderError(c, errors.InvalidArgumentf("%s header is required", OwnerHeader))
			return
		}
		c.Set(ownerKey, owner)
		c.Next()
	}
}

// RequestLogger logs one line per request through slog
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		attrs := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		}
		if owner := c.GetString(ownerKey); owner != "" {
			attrs = append(attrs, "owner_id", owner)
		}

		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			slog.Error("request failed", attrs...)
		case c.Writer.Status() >= http.StatusBadRequest:
			slog.Warn("request rejected", attrs...)
		default:
			slog.Info("request handled", attrs...)
		}
	}
}

// Recovery turns a handler panic into an internal error response
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		slog.Error("handler panicked", "path", c.FullPath(), "panic", recovered)
		renderError(c, errors.Internal("internal error"))
	})
}

// NewRouter builds a gin engine with the builder routes under /api/v1/builder
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(Recovery(), RequestLogger())
	r.NoRoute(func(c *gin.Context) {
		renderError(c, errors.NotFoundf("no route for %s %s", c.Request.Method, c.Request.URL.Path))
	})

	h.RegisterRoutes(r.Group("/api/v1/builder"))
	return r
}

func renderError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	resp := errorResponse{
		Code:    code,
		Message: errors.GetMessage(err),
		Meta:    errors.GetMeta(err),
	}

	if code == errors.CodeInternal {
		slog.Error("internal error", "path", c.FullPath(), "error", err)
		resp.Message = "internal error"
		resp.Meta = nil
	}

	c.AbortWithStatusJSON(code.HTTPStatus(), resp)
}

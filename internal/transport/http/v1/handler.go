// Package v1 provides the HTTP handlers for the chat API.
package v1

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hzhu628/kontext/internal/adapter/ollama"
	"github.com/hzhu628/kontext/internal/service"
	"github.com/hzhu628/kontext/internal/vectorstore"
)

// Handler handles HTTP requests.
type Handler struct {
	service   *service.Service
	index     vectorstore.Index
	modelInfo map[string]string
}

// NewHandler creates a new handler. modelInfo is reported on /health.
func NewHandler(svc *service.Service, index vectorstore.Index, modelInfo map[string]string) *Handler {
	return &Handler{
		service:   svc,
		index:     index,
		modelInfo: modelInfo,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/v1/chat", h.Chat)

	e.POST("/v1/sessions", h.CreateSession)
	e.GET("/v1/sessions", h.ListSessions)
	e.GET("/v1/sessions/:session_id", h.GetSession)
	e.GET("/v1/sessions/:session_id/messages", h.GetSessionMessages)
	e.GET("/v1/sessions/:session_id/stats", h.GetSessionStats)
	e.DELETE("/v1/sessions/:session_id", h.DeleteSession)

	e.GET("/health", h.Health)
}

// Health returns health status including the vector index reachability.
func (h *Handler) Health(c echo.Context) error {
	resp := map[string]interface{}{
		"status":  "healthy",
		"version": "0.1.0",
		"ollama":  h.modelInfo,
	}
	if h.index != nil {
		ctx := c.Request().Context()
		vi := map[string]interface{}{
			"healthy": h.index.Health(ctx),
		}
		if info, err := h.index.Info(ctx); err == nil {
			vi["collection"] = info
		}
		resp["vector_index"] = vi
	}
	return c.JSON(http.StatusOK, resp)
}

// sessionIDParam validates the session_id path parameter as a UUID. The
// stores never see malformed ids.
func sessionIDParam(c echo.Context) (string, error) {
	raw := c.Param("session_id")
	if _, err := uuid.Parse(raw); err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, "invalid session id")
	}
	return raw, nil
}

// upstreamError translates the generation failure taxonomy to status codes.
// Timeouts get 504; every other upstream failure is a bad gateway.
func upstreamError(c echo.Context, err error) error {
	var statusErr *ollama.StatusError
	switch {
	case errors.Is(err, ollama.ErrTimeout):
		return c.JSON(http.StatusGatewayTimeout, map[string]string{"error": "upstream request timed out"})
	case errors.As(err, &statusErr),
		errors.Is(err, ollama.ErrConnection),
		errors.Is(err, ollama.ErrEmptyReply):
		return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

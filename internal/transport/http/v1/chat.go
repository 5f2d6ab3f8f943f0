package v1

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hzhu628/kontext/internal/service"
)

// Chat runs one chat turn.
// POST /v1/chat
func (h *Handler) Chat(c echo.Context) error {
	var req service.ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if strings.TrimSpace(req.Message) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "message is required"})
	}
	if req.SessionID != "" {
		if _, err := uuid.Parse(req.SessionID); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid session id"})
		}
	}

	resp, err := h.service.Chat(c.Request().Context(), req)
	if err != nil {
		return upstreamError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

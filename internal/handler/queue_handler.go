package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"inbox-pilot/internal/apperr"
	"inbox-pilot/internal/model"
	"inbox-pilot/internal/service"
)

type QueueHandler struct {
	queueService service.QueueService
	authHandler  *AuthHandler
	logger       zerolog.Logger
}

func NewQueueHandler(queueService service.QueueService, authHandler *AuthHandler, log zerolog.Logger) *QueueHandler {
	return &QueueHandler{
		queueService: queueService,
		authHandler:  authHandler,
		logger:       log.With().Str("component", "queue_handler").Logger(),
	}
}

// ListItems returns the user's queue items, optionally filtered by status
func (h *QueueHandler) ListItems(c echo.Context) error {
	user, err := h.authHandler.GetCurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	status := model.QueueStatus(c.QueryParam("status"))
	items, err := h.queueService.ListItems(c.Request().Context(), user.ID, status)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list queue items")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to list queue items"})
	}

	if items == nil {
		items = []*model.QueueItem{}
	}
	return c.JSON(http.StatusOK, items)
}

// GetItem returns a single queue item
func (h *QueueHandler) GetItem(c echo.Context) error {
	user, err := h.authHandler.GetCurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	item, err := h.queueService.GetItem(c.Request().Context(), user.ID, c.Param("id"))
	if err != nil {
		return queueError(c, err)
	}
	return c.JSON(http.StatusOK, item)
}

type updateDraftRequest struct {
	DraftReply string `json:"draft_reply"`
}

// UpdateDraft replaces the draft text of a pending item
func (h *QueueHandler) UpdateDraft(c echo.Context) error {
	user, err := h.authHandler.GetCurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	var req updateDraftRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	item, err := h.queueService.UpdateDraft(c.Request().Context(), user.ID, c.Param("id"), req.DraftReply)
	if err != nil {
		return queueError(c, err)
	}
	return c.JSON(http.StatusOK, item)
}

type applyActionRequest struct {
	Action string `json:"action"`
}

// ApplyAction executes a user decision (send/draft/discard) on an item
func (h *QueueHandler) ApplyAction(c echo.Context) error {
	user, err := h.authHandler.GetCurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	var req applyActionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	item, err := h.queueService.ApplyAction(c.Request().Context(), user.ID, c.Param("id"), model.QueueAction(req.Action))
	if err != nil {
		if apperr.IsServiceError(err) {
			// The item is still pending; the client may retry.
			return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
		}
		return queueError(c, err)
	}
	return c.JSON(http.StatusOK, item)
}

func queueError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Queue item not found"})
	case apperr.IsValidationError(err):
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal error"})
	}
}

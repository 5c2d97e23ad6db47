package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"inbox-pilot/internal/model"
	"inbox-pilot/internal/service"
	"inbox-pilot/internal/sse"
)

const streamHeartbeat = 30 * time.Second

type ActivityHandler struct {
	activityService service.ActivityService
	stream          *sse.Manager
	authHandler     *AuthHandler
	logger          zerolog.Logger
}

func NewActivityHandler(activityService service.ActivityService, stream *sse.Manager, authHandler *AuthHandler, log zerolog.Logger) *ActivityHandler {
	return &ActivityHandler{
		activityService: activityService,
		stream:          stream,
		authHandler:     authHandler,
		logger:          log.With().Str("component", "activity_handler").Logger(),
	}
}

// RecentEvents returns the user's recent activity log entries
func (h *ActivityHandler) RecentEvents(c echo.Context) error {
	user, err := h.authHandler.GetCurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	events, err := h.activityService.RecentEvents(c.Request().Context(), user.ID, limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to load activity")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to load activity"})
	}

	if events == nil {
		events = []*model.ActivityEvent{}
	}
	return c.JSON(http.StatusOK, events)
}

// StreamEvents holds the connection open and pushes activity events as
// they happen, as Server-Sent Events.
func (h *ActivityHandler) StreamEvents(c echo.Context) error {
	user, err := h.authHandler.GetCurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	ch := h.stream.Subscribe(user.ID)
	defer h.stream.Unsubscribe(user.ID, ch)

	// Heartbeats flush through dead connections so they error out and
	// get cleaned up instead of leaking.
	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-c.Request().Context().Done():
			return nil
		case payload, ok := <-ch:
			if !ok {
				return nil
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return nil
			}
			w.Flush()
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return nil
			}
			w.Flush()
		}
	}
}

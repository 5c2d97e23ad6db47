package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"inbox-pilot/internal/scheduler"
)

type SchedulerHandler struct {
	scheduler   *scheduler.Scheduler
	authHandler *AuthHandler
	logger      zerolog.Logger
}

func NewSchedulerHandler(sched *scheduler.Scheduler, authHandler *AuthHandler, log zerolog.Logger) *SchedulerHandler {
	return &SchedulerHandler{
		scheduler:   sched,
		authHandler: authHandler,
		logger:      log.With().Str("component", "scheduler_handler").Logger(),
	}
}

// Status reports the user's polling job state
func (h *SchedulerHandler) Status(c echo.Context) error {
	user, err := h.authHandler.GetCurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	return c.JSON(http.StatusOK, h.scheduler.Status(user.ID))
}

// RunNow triggers an immediate poll, bypassing the active-hours window
func (h *SchedulerHandler) RunNow(c echo.Context) error {
	user, err := h.authHandler.GetCurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	summary, err := h.scheduler.RunNow(c.Request().Context(), user.ID)
	if err != nil {
		if errors.Is(err, scheduler.ErrRunInProgress) {
			return c.JSON(http.StatusConflict, map[string]string{"error": "A run is already in progress"})
		}
		h.logger.Error().Err(err).Str("user_id", user.ID).Msg("manual run failed")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Run failed"})
	}
	return c.JSON(http.StatusOK, summary)
}

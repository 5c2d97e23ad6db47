package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"inbox-pilot/internal/apperr"
	"inbox-pilot/internal/scheduler"
	"inbox-pilot/internal/service"
)

type ConfigHandler struct {
	configService service.ConfigService
	scheduler     *scheduler.Scheduler
	authHandler   *AuthHandler
	logger        zerolog.Logger
}

func NewConfigHandler(configService service.ConfigService, sched *scheduler.Scheduler, authHandler *AuthHandler, log zerolog.Logger) *ConfigHandler {
	return &ConfigHandler{
		configService: configService,
		scheduler:     sched,
		authHandler:   authHandler,
		logger:        log.With().Str("component", "config_handler").Logger(),
	}
}

// GetConfig returns the user's settings
func (h *ConfigHandler) GetConfig(c echo.Context) error {
	user, err := h.authHandler.GetCurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	cfg, err := h.configService.GetConfig(c.Request().Context(), user.ID)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to load config")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to load config"})
	}
	return c.JSON(http.StatusOK, cfg)
}

type updateConfigRequest struct {
	PollIntervalMinutes    *int     `json:"poll_interval_minutes"`
	PollStartHour          *int     `json:"poll_start_hour"`
	PollEndHour            *int     `json:"poll_end_hour"`
	AutonomyLevel          *int     `json:"autonomy_level"`
	LowConfidenceThreshold *float64 `json:"low_confidence_threshold"`
	LookbackHours          *int     `json:"lookback_hours"`
	Timezone               *string  `json:"timezone"`
}

// UpdateConfig applies a partial settings update. An interval change
// reschedules the user's polling job immediately.
func (h *ConfigHandler) UpdateConfig(c echo.Context) error {
	user, err := h.authHandler.GetCurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	var req updateConfigRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	ctx := c.Request().Context()
	cfg, err := h.configService.GetConfig(ctx, user.ID)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to load config")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to load config"})
	}

	intervalChanged := false
	if req.PollIntervalMinutes != nil && *req.PollIntervalMinutes != cfg.PollIntervalMinutes {
		cfg.PollIntervalMinutes = *req.PollIntervalMinutes
		intervalChanged = true
	}
	if req.PollStartHour != nil {
		cfg.PollStartHour = *req.PollStartHour
	}
	if req.PollEndHour != nil {
		cfg.PollEndHour = *req.PollEndHour
	}
	if req.AutonomyLevel != nil {
		cfg.AutonomyLevel = *req.AutonomyLevel
	}
	if req.LowConfidenceThreshold != nil {
		cfg.LowConfidenceThreshold = *req.LowConfidenceThreshold
	}
	if req.LookbackHours != nil {
		cfg.LookbackHours = *req.LookbackHours
	}
	if req.Timezone != nil {
		cfg.Timezone = *req.Timezone
	}

	updated, err := h.configService.UpdateConfig(ctx, cfg)
	if err != nil {
		if apperr.IsValidationError(err) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		h.logger.Error().Err(err).Msg("failed to update config")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to update config"})
	}

	if intervalChanged {
		if err := h.scheduler.Reschedule(ctx, user.ID); err != nil {
			h.logger.Error().Err(err).Str("user_id", user.ID).Msg("failed to reschedule polling job")
		}
	}

	return c.JSON(http.StatusOK, updated)
}

package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/google"
	"github.com/rs/zerolog"

	"inbox-pilot/internal/config"
	"inbox-pilot/internal/model"
	"inbox-pilot/internal/scheduler"
	"inbox-pilot/internal/service"
)

type AuthHandler struct {
	authService  service.AuthService
	setupService service.SetupService
	scheduler    *scheduler.Scheduler
	config       *config.Config
	logger       zerolog.Logger
}

func NewAuthHandler(
	authService service.AuthService,
	setupService service.SetupService,
	sched *scheduler.Scheduler,
	cfg *config.Config,
	log zerolog.Logger,
) *AuthHandler {
	// Set up goth with Google provider
	gothic.Store = NewSessionStore([]byte(cfg.SessionSecret), !cfg.IsDevelopment())

	goth.UseProviders(
		google.New(
			cfg.GoogleClientID,
			cfg.GoogleClientSecret,
			cfg.BaseURL+"/auth/google/callback",
			"https://www.googleapis.com/auth/gmail.readonly",
			"https://www.googleapis.com/auth/gmail.send",
			"https://www.googleapis.com/auth/gmail.compose",
			"https://www.googleapis.com/auth/gmail.modify",
			"https://www.googleapis.com/auth/calendar.readonly",
			"https://www.googleapis.com/auth/drive.readonly",
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		),
	)

	return &AuthHandler{
		authService:  authService,
		setupService: setupService,
		scheduler:    sched,
		config:       cfg,
		logger:       log.With().Str("component", "auth_handler").Logger(),
	}
}

// BeginAuthHandler initiates the OAuth flow
func (h *AuthHandler) BeginAuthHandler(c echo.Context) error {
	provider := c.Param("provider")
	if provider != "google" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid provider",
		})
	}

	// Set provider in the request URL so Goth can recognize it
	req := c.Request()
	q := req.URL.Query()
	q.Set("provider", "google")
	req.URL.RawQuery = q.Encode()

	gothic.BeginAuthHandler(c.Response(), req)
	return nil
}

// CallbackHandler completes the OAuth flow, activates the user's
// polling job, and kicks off background profile setup for new users.
func (h *AuthHandler) CallbackHandler(c echo.Context) error {
	req := c.Request()
	q := req.URL.Query()
	q.Set("provider", "google")
	req.URL.RawQuery = q.Encode()

	googleUser, err := gothic.CompleteUserAuth(c.Response(), req)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to complete user auth")
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Authentication failed",
		})
	}

	user, isNew, err := h.authService.GetOrCreateUser(
		c.Request().Context(),
		googleUser.Provider+"_"+googleUser.UserID,
		googleUser.Email,
		googleUser.Name,
		googleUser.AccessToken,
		googleUser.RefreshToken,
		googleUser.ExpiresAt,
	)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to get or create user")
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Failed to process user",
		})
	}

	if err := h.scheduler.AddUser(c.Request().Context(), user.ID); err != nil {
		h.logger.Error().Err(err).Str("user_id", user.ID).Msg("failed to start polling job")
	}

	if isNew {
		// Setup runs detached; login must not wait on sent-mail analysis.
		go func() {
			if err := h.setupService.RunSetup(context.Background(), user.ID); err != nil {
				h.logger.Error().Err(err).Str("user_id", user.ID).Msg("background setup failed")
			}
		}()
	}

	session, _ := gothic.Store.Get(req, "gothic_session")
	session.Values["user_id"] = user.ID
	if err := session.Save(req, c.Response()); err != nil {
		h.logger.Error().Err(err).Msg("failed to save session")
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Failed to save session",
		})
	}

	return c.Redirect(http.StatusTemporaryRedirect, "/app")
}

// LogoutHandler deactivates the user and tears down their polling job
func (h *AuthHandler) LogoutHandler(c echo.Context) error {
	if user, err := h.GetCurrentUser(c); err == nil {
		if err := h.authService.DeactivateUser(c.Request().Context(), user.ID); err != nil {
			h.logger.Error().Err(err).Str("user_id", user.ID).Msg("failed to deactivate user")
		}
		h.scheduler.RemoveUser(user.ID)
	}

	req := c.Request()
	q := req.URL.Query()
	q.Set("provider", "google")
	req.URL.RawQuery = q.Encode()

	gothic.Logout(c.Response(), req)

	return c.Redirect(http.StatusTemporaryRedirect, "/")
}

// MeHandler returns the current authenticated user
func (h *AuthHandler) MeHandler(c echo.Context) error {
	user, err := h.GetCurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "Unauthorized",
		})
	}
	return c.JSON(http.StatusOK, user)
}

// GetCurrentUser returns the current authenticated user
func (h *AuthHandler) GetCurrentUser(c echo.Context) (*model.User, error) {
	session, err := gothic.Store.Get(c.Request(), "gothic_session")
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	userID, ok := session.Values["user_id"].(string)
	if !ok {
		return nil, fmt.Errorf("user not authenticated")
	}

	user, err := h.authService.GetUser(c.Request().Context(), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user from database: %w", err)
	}

	return user, nil
}

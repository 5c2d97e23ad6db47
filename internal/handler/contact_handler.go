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

type ContactHandler struct {
	contactService service.ContactService
	authHandler    *AuthHandler
	logger         zerolog.Logger
}

func NewContactHandler(contactService service.ContactService, authHandler *AuthHandler, log zerolog.Logger) *ContactHandler {
	return &ContactHandler{
		contactService: contactService,
		authHandler:    authHandler,
		logger:         log.With().Str("component", "contact_handler").Logger(),
	}
}

// ListContacts returns the user's learned contacts
func (h *ContactHandler) ListContacts(c echo.Context) error {
	user, err := h.authHandler.GetCurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	contacts, err := h.contactService.ListContacts(c.Request().Context(), user.ID)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list contacts")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to list contacts"})
	}

	if contacts == nil {
		contacts = []*model.Contact{}
	}
	return c.JSON(http.StatusOK, contacts)
}

type addContactRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// AddContact manually marks a sender as known
func (h *ContactHandler) AddContact(c echo.Context) error {
	user, err := h.authHandler.GetCurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	var req addContactRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	contact, err := h.contactService.AddContact(c.Request().Context(), user.ID, req.Email, req.Name)
	if err != nil {
		if apperr.IsValidationError(err) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		h.logger.Error().Err(err).Msg("failed to add contact")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to add contact"})
	}
	return c.JSON(http.StatusCreated, contact)
}

// RemoveContact forgets a known sender
func (h *ContactHandler) RemoveContact(c echo.Context) error {
	user, err := h.authHandler.GetCurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	if err := h.contactService.RemoveContact(c.Request().Context(), user.ID, c.Param("email")); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Contact not found"})
		}
		h.logger.Error().Err(err).Msg("failed to remove contact")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to remove contact"})
	}
	return c.NoContent(http.StatusNoContent)
}

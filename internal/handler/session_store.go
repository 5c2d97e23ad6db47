package handler

import (
	"net/http"

	"github.com/gorilla/sessions"
)

// NewSessionStore builds the cookie store backing login sessions.
// Sessions last 30 days; the cookie is HTTP-only and, outside
// development, HTTPS-only.
func NewSessionStore(secret []byte, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore(secret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 30,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

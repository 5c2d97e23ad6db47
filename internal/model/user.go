package model

import (
	"time"

	"github.com/google/uuid"
)

// SetupStatus tracks the one-time background profile setup for a user.
type SetupStatus string

const (
	SetupPending  SetupStatus = "pending"
	SetupRunning  SetupStatus = "running"
	SetupComplete SetupStatus = "complete"
)

type User struct {
	ID           string      `json:"id"`
	GoogleID     string      `json:"google_id"`
	Email        string      `json:"email"`
	Name         string      `json:"name"`
	AccessToken  string      `json:"-"`
	RefreshToken string      `json:"-"`
	TokenExpiry  time.Time   `json:"-"`
	Active       bool        `json:"active"`
	ServiceStart time.Time   `json:"service_start"`
	SetupStatus  SetupStatus `json:"setup_status"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

func NewUser(googleID, email, name, accessToken, refreshToken string, tokenExpiry time.Time) *User {
	now := time.Now()
	return &User{
		ID:           uuid.New().String(),
		GoogleID:     googleID,
		Email:        email,
		Name:         name,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenExpiry:  tokenExpiry,
		Active:       true,
		ServiceStart: now,
		SetupStatus:  SetupPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

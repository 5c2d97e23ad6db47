package model

import (
	"time"

	"github.com/google/uuid"
)

// Contact is a correspondent learned from the user's sent mail during
// background setup. Presence of a contact makes a sender "known" to the
// routing engine.
type Contact struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	Name         string    `json:"name,omitempty"`
	MessageCount int       `json:"message_count"`
	LastSeen     time.Time `json:"last_seen"`
	CreatedAt    time.Time `json:"created_at"`
}

func NewContact(userID, email, name string, messageCount int, lastSeen time.Time) *Contact {
	return &Contact{
		ID:           uuid.New().String(),
		UserID:       userID,
		Email:        email,
		Name:         name,
		MessageCount: messageCount,
		LastSeen:     lastSeen,
		CreatedAt:    time.Now(),
	}
}

// VoiceProfile captures the user's writing style, inferred once from
// sent mail and injected into every drafting prompt.
type VoiceProfile struct {
	UserID      string    `json:"user_id"`
	Tone        string    `json:"tone"`
	Greeting    string    `json:"greeting"`
	SignOff     string    `json:"sign_off"`
	Traits      []string  `json:"traits,omitempty"`
	SampleCount int       `json:"sample_count"`
	UpdatedAt   time.Time `json:"updated_at"`
}

package model

import (
	"time"

	"github.com/google/uuid"
)

// Activity event types, one per observable pipeline or lifecycle step.
const (
	EventPollStart       = "poll_start"
	EventPollEnd         = "poll_end"
	EventClassified      = "classified"
	EventDriveFetched    = "drive_fetched"
	EventCalendarChecked = "calendar_checked"
	EventDrafted         = "drafted"
	EventSent            = "sent"
	EventQueued          = "queued"
	EventSkipped         = "skipped"
	EventUserSent        = "user_sent"
	EventUserDrafted     = "user_drafted"
	EventUserDiscarded   = "user_discarded"
	EventError           = "error"
	EventSetupStart      = "setup_start"
	EventSetupVoice      = "setup_voice"
	EventSetupContacts   = "setup_contacts"
	EventSetupComplete   = "setup_complete"
	EventSetupWarning    = "setup_warning"
)

// ActivityEvent is an append-only audit record of something the system
// did on a user's behalf.
type ActivityEvent struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Type      string    `json:"type"`
	GmailID   string    `json:"gmail_id,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func NewActivityEvent(userID, eventType, gmailID, detail string) *ActivityEvent {
	return &ActivityEvent{
		ID:        uuid.New().String(),
		UserID:    userID,
		Type:      eventType,
		GmailID:   gmailID,
		Detail:    detail,
		CreatedAt: time.Now(),
	}
}

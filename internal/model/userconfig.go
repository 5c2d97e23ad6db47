package model

import (
	"time"

	"inbox-pilot/internal/apperr"
)

// Autonomy levels. Higher levels hand more decisions to the engine.
const (
	AutonomyReviewAll = 1 // everything goes to the review queue
	AutonomySmart     = 2 // auto-send safe replies, queue the rest
	AutonomyFullAuto  = 3 // auto-send everything worth replying
)

// UserConfig holds the per-user knobs read fresh at the start of every
// polling run.
type UserConfig struct {
	UserID                 string    `json:"user_id"`
	PollIntervalMinutes    int       `json:"poll_interval_minutes"`
	PollStartHour          int       `json:"poll_start_hour"`
	PollEndHour            int       `json:"poll_end_hour"`
	AutonomyLevel          int       `json:"autonomy_level"`
	LowConfidenceThreshold float64   `json:"low_confidence_threshold"`
	LookbackHours          int       `json:"lookback_hours"`
	Timezone               string    `json:"timezone"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// DefaultConfig returns the settings a user starts with.
func DefaultConfig(userID string) *UserConfig {
	return &UserConfig{
		UserID:                 userID,
		PollIntervalMinutes:    30,
		PollStartHour:          0,
		PollEndHour:            23,
		AutonomyLevel:          AutonomyReviewAll,
		LowConfidenceThreshold: 0.7,
		LookbackHours:          72,
		Timezone:               "America/Chicago",
		UpdatedAt:              time.Now(),
	}
}

func (c *UserConfig) Validate() error {
	if c.PollIntervalMinutes < 1 || c.PollIntervalMinutes > 1440 {
		return apperr.Validation("poll_interval_minutes", "must be between 1 and 1440")
	}
	if c.PollStartHour < 0 || c.PollStartHour > 23 {
		return apperr.Validation("poll_start_hour", "must be between 0 and 23")
	}
	if c.PollEndHour < 0 || c.PollEndHour > 23 {
		return apperr.Validation("poll_end_hour", "must be between 0 and 23")
	}
	if c.PollStartHour > c.PollEndHour {
		return apperr.Validation("poll_start_hour", "must not be after poll_end_hour")
	}
	if c.AutonomyLevel < AutonomyReviewAll || c.AutonomyLevel > AutonomyFullAuto {
		return apperr.Validation("autonomy_level", "must be between 1 and 3")
	}
	if c.LowConfidenceThreshold < 0 || c.LowConfidenceThreshold > 1 {
		return apperr.Validation("low_confidence_threshold", "must be between 0 and 1")
	}
	if c.LookbackHours < 0 {
		return apperr.Validation("lookback_hours", "must not be negative")
	}
	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return apperr.Validation("timezone", "unknown IANA timezone")
		}
	}
	return nil
}

// Location resolves the user's timezone, falling back to UTC.
func (c *UserConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

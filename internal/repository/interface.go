package repository

import (
	"context"

	"inbox-pilot/internal/model"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByGoogleID(ctx context.Context, googleID string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindActive(ctx context.Context) ([]*model.User, error)
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id string) error
}

// ConfigRepository defines the interface for per-user settings
type ConfigRepository interface {
	Get(ctx context.Context, userID string) (*model.UserConfig, error)
	Save(ctx context.Context, cfg *model.UserConfig) error
}

// QueueRepository defines the interface for queue item operations.
// Create returns apperr.DedupConflict when an item for the same
// (user_id, gmail_id) already exists. Update refuses rows already in a
// terminal status and returns apperr.ValidationError for them.
type QueueRepository interface {
	Create(ctx context.Context, item *model.QueueItem) error
	FindByID(ctx context.Context, id string) (*model.QueueItem, error)
	FindByUser(ctx context.Context, userID string, status model.QueueStatus) ([]*model.QueueItem, error)
	Exists(ctx context.Context, userID, gmailID string) (bool, error)
	Update(ctx context.Context, item *model.QueueItem) error
}

// ActivityRepository defines the interface for the append-only audit log
type ActivityRepository interface {
	Append(ctx context.Context, event *model.ActivityEvent) error
	Recent(ctx context.Context, userID string, limit int) ([]*model.ActivityEvent, error)
}

// ContactRepository defines the interface for known-contact lookups
type ContactRepository interface {
	Upsert(ctx context.Context, contact *model.Contact) error
	FindByUser(ctx context.Context, userID string) ([]*model.Contact, error)
	FindByEmail(ctx context.Context, userID, email string) (*model.Contact, error)
	Delete(ctx context.Context, userID, email string) error
	DeleteByUser(ctx context.Context, userID string) error
}

// ProfileRepository defines the interface for voice profile storage
type ProfileRepository interface {
	Get(ctx context.Context, userID string) (*model.VoiceProfile, error)
	Save(ctx context.Context, profile *model.VoiceProfile) error
}

package service

import (
	"context"
	"time"

	"inbox-pilot/internal/model"
)

type AuthService interface {
	GetOrCreateUser(ctx context.Context, googleID, email, name, accessToken, refreshToken string, tokenExpiry time.Time) (*model.User, bool, error)
	GetUser(ctx context.Context, userID string) (*model.User, error)
	DeactivateUser(ctx context.Context, userID string) error
}

type ConfigService interface {
	GetConfig(ctx context.Context, userID string) (*model.UserConfig, error)
	UpdateConfig(ctx context.Context, cfg *model.UserConfig) (*model.UserConfig, error)
}

// Processor runs the per-email pipeline for one user. RunSummary counts
// what happened to each fetched email in a single run.
type Processor interface {
	ProcessUser(ctx context.Context, userID string) (*RunSummary, error)
}

type QueueService interface {
	ListItems(ctx context.Context, userID string, status model.QueueStatus) ([]*model.QueueItem, error)
	GetItem(ctx context.Context, userID, itemID string) (*model.QueueItem, error)
	UpdateDraft(ctx context.Context, userID, itemID, draft string) (*model.QueueItem, error)
	ApplyAction(ctx context.Context, userID, itemID string, action model.QueueAction) (*model.QueueItem, error)
}

type ActivityService interface {
	RecentEvents(ctx context.Context, userID string, limit int) ([]*model.ActivityEvent, error)
}

type ContactService interface {
	ListContacts(ctx context.Context, userID string) ([]*model.Contact, error)
	IsKnownContact(ctx context.Context, userID, senderAddress string) (bool, error)
	AddContact(ctx context.Context, userID, email, name string) (*model.Contact, error)
	RemoveContact(ctx context.Context, userID, email string) error
}

// SetupService performs the one-time background analysis of a user's
// sent mail: writing voice and frequent contacts.
type SetupService interface {
	RunSetup(ctx context.Context, userID string) error
}

// RunSummary is returned by one pipeline run.
type RunSummary struct {
	UserID    string `json:"user_id"`
	Fetched   int    `json:"fetched"`
	Sent      int    `json:"sent"`
	Queued    int    `json:"queued"`
	Discarded int    `json:"discarded"`
	Skipped   int    `json:"skipped"`
}

// Processed returns the number of emails the run handled to completion.
func (s *RunSummary) Processed() int {
	return s.Sent + s.Queued + s.Discarded
}

// Enrichment carries the optional context gathered before drafting.
type Enrichment struct {
	CalendarSlots string
	Attachment    *model.Attachment
}

// GmailClient interface for interacting with the Gmail API
type GmailClient interface {
	FetchNewEmails(ctx context.Context, user *model.User, after time.Time, max int64) ([]model.Email, error)
	FetchSentEmails(ctx context.Context, user *model.User, days int, max int64) ([]model.SentEmail, error)
	SendReply(ctx context.Context, user *model.User, email model.Email, body string, attachment *model.Attachment) error
	CreateReplyDraft(ctx context.Context, user *model.User, email model.Email, body string) error
	MarkAsRead(ctx context.Context, user *model.User, gmailID string) error
}

// CalendarClient interface for free-slot lookups
type CalendarClient interface {
	FreeSlots(ctx context.Context, user *model.User, days int) (string, error)
}

// DriveClient interface for document search. SearchAttachment returns
// (nil, nil) when no document matches the query.
type DriveClient interface {
	SearchAttachment(ctx context.Context, user *model.User, query string) (*model.Attachment, error)
}

// AIClient interface for interacting with the language model
type AIClient interface {
	Classify(ctx context.Context, email model.Email) (*model.Classification, error)
	DraftReply(ctx context.Context, email model.Email, classification model.Classification, enrichment Enrichment, profile *model.VoiceProfile) (string, error)
	AnalyzeVoice(ctx context.Context, samples []model.SentEmail) (*model.VoiceProfile, error)
}

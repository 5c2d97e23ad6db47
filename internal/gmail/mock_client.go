package gmail

import (
	"context"
	"time"

	"inbox-pilot/internal/model"
)

// MockGmailClient is a mock implementation of GmailClient for testing
type MockGmailClient struct {
	FetchNewEmailsFunc   func(ctx context.Context, user *model.User, after time.Time, max int64) ([]model.Email, error)
	FetchSentEmailsFunc  func(ctx context.Context, user *model.User, days int, max int64) ([]model.SentEmail, error)
	SendReplyFunc        func(ctx context.Context, user *model.User, email model.Email, body string, attachment *model.Attachment) error
	CreateReplyDraftFunc func(ctx context.Context, user *model.User, email model.Email, body string) error
	MarkAsReadFunc       func(ctx context.Context, user *model.User, gmailID string) error
}

func NewMockGmailClient() *MockGmailClient {
	return &MockGmailClient{}
}

func (m *MockGmailClient) FetchNewEmails(ctx context.Context, user *model.User, after time.Time, max int64) ([]model.Email, error) {
	if m.FetchNewEmailsFunc != nil {
		return m.FetchNewEmailsFunc(ctx, user, after, max)
	}

	// Default mock behavior: return an empty list
	return []model.Email{}, nil
}

func (m *MockGmailClient) FetchSentEmails(ctx context.Context, user *model.User, days int, max int64) ([]model.SentEmail, error) {
	if m.FetchSentEmailsFunc != nil {
		return m.FetchSentEmailsFunc(ctx, user, days, max)
	}

	return []model.SentEmail{}, nil
}

func (m *MockGmailClient) SendReply(ctx context.Context, user *model.User, email model.Email, body string, attachment *model.Attachment) error {
	if m.SendReplyFunc != nil {
		return m.SendReplyFunc(ctx, user, email, body, attachment)
	}
	return nil
}

func (m *MockGmailClient) CreateReplyDraft(ctx context.Context, user *model.User, email model.Email, body string) error {
	if m.CreateReplyDraftFunc != nil {
		return m.CreateReplyDraftFunc(ctx, user, email, body)
	}
	return nil
}

func (m *MockGmailClient) MarkAsRead(ctx context.Context, user *model.User, gmailID string) error {
	if m.MarkAsReadFunc != nil {
		return m.MarkAsReadFunc(ctx, user, gmailID)
	}
	return nil
}

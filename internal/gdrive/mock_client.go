package gdrive

import (
	"context"

	"inbox-pilot/internal/model"
)

// MockDriveClient is a mock implementation of DriveClient for testing
type MockDriveClient struct {
	SearchAttachmentFunc func(ctx context.Context, user *model.User, query string) (*model.Attachment, error)
}

func NewMockDriveClient() *MockDriveClient {
	return &MockDriveClient{}
}

func (m *MockDriveClient) SearchAttachment(ctx context.Context, user *model.User, query string) (*model.Attachment, error) {
	if m.SearchAttachmentFunc != nil {
		return m.SearchAttachmentFunc(ctx, user, query)
	}

	// Default mock behavior: nothing found
	return nil, nil
}

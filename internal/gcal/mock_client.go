package gcal

import (
	"context"

	"inbox-pilot/internal/model"
)

// MockCalendarClient is a mock implementation of CalendarClient for testing
type MockCalendarClient struct {
	FreeSlotsFunc func(ctx context.Context, user *model.User, days int) (string, error)
}

func NewMockCalendarClient() *MockCalendarClient {
	return &MockCalendarClient{}
}

func (m *MockCalendarClient) FreeSlots(ctx context.Context, user *model.User, days int) (string, error) {
	if m.FreeSlotsFunc != nil {
		return m.FreeSlotsFunc(ctx, user, days)
	}

	return "2/18: 12-6pm\n2/19: 10:30-11am, 1:30-6pm", nil
}

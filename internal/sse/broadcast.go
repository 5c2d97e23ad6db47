package sse

import (
	"context"

	"inbox-pilot/internal/model"
	"inbox-pilot/internal/repository"
)

// BroadcastingActivityRepository decorates an activity repository so
// every appended event is also pushed to connected stream clients.
type BroadcastingActivityRepository struct {
	repository.ActivityRepository
	manager *Manager
}

func NewBroadcastingActivityRepository(repo repository.ActivityRepository, manager *Manager) *BroadcastingActivityRepository {
	return &BroadcastingActivityRepository{
		ActivityRepository: repo,
		manager:            manager,
	}
}

func (r *BroadcastingActivityRepository) Append(ctx context.Context, event *model.ActivityEvent) error {
	if err := r.ActivityRepository.Append(ctx, event); err != nil {
		return err
	}
	r.manager.Publish(event.UserID, event)
	return nil
}

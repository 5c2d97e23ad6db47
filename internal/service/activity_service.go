package service

import (
	"context"

	"inbox-pilot/internal/model"
	"inbox-pilot/internal/repository"
)

const defaultActivityLimit = 100

type activityService struct {
	activityRepo repository.ActivityRepository
}

func NewActivityService(activityRepo repository.ActivityRepository) ActivityService {
	return &activityService{activityRepo: activityRepo}
}

func (s *activityService) RecentEvents(ctx context.Context, userID string, limit int) ([]*model.ActivityEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = defaultActivityLimit
	}
	return s.activityRepo.Recent(ctx, userID, limit)
}

package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"inbox-pilot/internal/apperr"
	"inbox-pilot/internal/model"
	"inbox-pilot/internal/repository"
)

type queueService struct {
	userRepo     repository.UserRepository
	queueRepo    repository.QueueRepository
	activityRepo repository.ActivityRepository
	gmailClient  GmailClient
	logger       zerolog.Logger
}

func NewQueueService(
	userRepo repository.UserRepository,
	queueRepo repository.QueueRepository,
	activityRepo repository.ActivityRepository,
	gmailClient GmailClient,
	log zerolog.Logger,
) QueueService {
	return &queueService{
		userRepo:     userRepo,
		queueRepo:    queueRepo,
		activityRepo: activityRepo,
		gmailClient:  gmailClient,
		logger:       log.With().Str("component", "queue").Logger(),
	}
}

func (s *queueService) ListItems(ctx context.Context, userID string, status model.QueueStatus) ([]*model.QueueItem, error) {
	return s.queueRepo.FindByUser(ctx, userID, status)
}

func (s *queueService) GetItem(ctx context.Context, userID, itemID string) (*model.QueueItem, error) {
	item, err := s.queueRepo.FindByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.UserID != userID {
		return nil, apperr.ErrNotFound
	}
	return item, nil
}

// UpdateDraft replaces the draft text of a pending item. Items in a
// terminal state are immutable.
func (s *queueService) UpdateDraft(ctx context.Context, userID, itemID, draft string) (*model.QueueItem, error) {
	item, err := s.GetItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	if item.Status.Terminal() {
		return nil, apperr.Validation("status", fmt.Sprintf("item is %s and cannot be edited", item.Status))
	}

	item.DraftReply = draft
	if err := s.queueRepo.Update(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// ApplyAction executes a user decision on a pending item: send the
// draft, save it to Gmail drafts, or discard it. A failed send leaves
// the item pending so the user can retry.
func (s *queueService) ApplyAction(ctx context.Context, userID, itemID string, action model.QueueAction) (*model.QueueItem, error) {
	item, err := s.GetItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	if item.Status.Terminal() {
		return nil, apperr.Validation("status", fmt.Sprintf("item is %s and cannot be acted on", item.Status))
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	email := model.Email{
		GmailID:  item.GmailID,
		ThreadID: item.ThreadID,
		Sender:   item.Sender,
		Subject:  item.Subject,
	}

	switch action {
	case model.ActionSend:
		if err := s.gmailClient.SendReply(ctx, user, email, item.DraftReply, nil); err != nil {
			// Item stays pending; the caller can retry.
			s.logEvent(ctx, userID, model.EventError, item.GmailID, "send failed: "+err.Error())
			return nil, err
		}
		item.Resolve(model.StatusSent, string(model.ActionSend))
		s.logEvent(ctx, userID, model.EventUserSent, item.GmailID, "")
	case model.ActionDraft:
		if err := s.gmailClient.CreateReplyDraft(ctx, user, email, item.DraftReply); err != nil {
			s.logEvent(ctx, userID, model.EventError, item.GmailID, "draft creation failed: "+err.Error())
			return nil, err
		}
		item.Resolve(model.StatusDrafted, string(model.ActionDraft))
		s.logEvent(ctx, userID, model.EventUserDrafted, item.GmailID, "")
	case model.ActionDiscard:
		item.Resolve(model.StatusDiscarded, string(model.ActionDiscard))
		s.logEvent(ctx, userID, model.EventUserDiscarded, item.GmailID, "")
	default:
		return nil, apperr.Validation("action", "must be one of send, draft, discard")
	}

	if err := s.queueRepo.Update(ctx, item); err != nil {
		s.logger.Error().Err(err).Str("item_id", item.ID).Msg("queue item update failed")
		return nil, err
	}
	return item, nil
}

func (s *queueService) logEvent(ctx context.Context, userID, eventType, gmailID, detail string) {
	event := model.NewActivityEvent(userID, eventType, gmailID, detail)
	if err := s.activityRepo.Append(ctx, event); err != nil {
		s.logger.Warn().Err(err).Str("type", eventType).Msg("activity append failed")
	}
}

package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inbox-pilot/internal/apperr"
	"inbox-pilot/internal/gmail"
	"inbox-pilot/internal/model"
	"inbox-pilot/internal/repository/memory"
	"inbox-pilot/internal/service"
)

type queueFixture struct {
	userRepo    *memory.InMemoryUserRepository
	queueRepo   *memory.InMemoryQueueRepository
	gmailClient *gmail.MockGmailClient
	svc         service.QueueService
	user        *model.User
}

func newQueueFixture(t *testing.T) *queueFixture {
	t.Helper()

	f := &queueFixture{
		userRepo:    memory.NewInMemoryUserRepository(),
		queueRepo:   memory.NewInMemoryQueueRepository(),
		gmailClient: gmail.NewMockGmailClient(),
	}

	f.user = model.NewUser("google_1", "user@example.com", "Test User", "token", "refresh", time.Now().Add(time.Hour))
	require.NoError(t, f.userRepo.Create(context.Background(), f.user))

	f.svc = service.NewQueueService(
		f.userRepo, f.queueRepo,
		memory.NewInMemoryActivityRepository(),
		f.gmailClient, zerolog.Nop(),
	)
	return f
}

func (f *queueFixture) pendingItem(t *testing.T, gmailID string) *model.QueueItem {
	t.Helper()

	item := model.NewQueueItem(f.user.ID, model.Email{
		GmailID:  gmailID,
		ThreadID: "thread-" + gmailID,
		Sender:   "Alex Doe <alex@example.com>",
		Subject:  "Quick question",
	})
	item.DraftReply = "Sounds good, let's do Tuesday."
	require.NoError(t, f.queueRepo.Create(context.Background(), item))
	return item
}

func TestApplyActionSend(t *testing.T) {
	f := newQueueFixture(t)
	item := f.pendingItem(t, "m1")

	var sentBody string
	f.gmailClient.SendReplyFunc = func(ctx context.Context, user *model.User, email model.Email, body string, attachment *model.Attachment) error {
		sentBody = body
		return nil
	}

	updated, err := f.svc.ApplyAction(context.Background(), f.user.ID, item.ID, model.ActionSend)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSent, updated.Status)
	assert.Equal(t, "send", updated.ActionTaken)
	assert.NotNil(t, updated.ResolvedAt)
	assert.Equal(t, item.DraftReply, sentBody)
}

func TestApplyActionSendFailureLeavesItemPending(t *testing.T) {
	f := newQueueFixture(t)
	item := f.pendingItem(t, "m1")

	f.gmailClient.SendReplyFunc = func(ctx context.Context, user *model.User, email model.Email, body string, attachment *model.Attachment) error {
		return errors.New("rate limited")
	}

	_, err := f.svc.ApplyAction(context.Background(), f.user.ID, item.ID, model.ActionSend)
	require.Error(t, err)

	stored, err := f.queueRepo.FindByID(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, stored.Status)
	assert.Nil(t, stored.ResolvedAt)
}

func TestApplyActionDraft(t *testing.T) {
	f := newQueueFixture(t)
	item := f.pendingItem(t, "m1")

	drafted := false
	f.gmailClient.CreateReplyDraftFunc = func(ctx context.Context, user *model.User, email model.Email, body string) error {
		drafted = true
		return nil
	}

	updated, err := f.svc.ApplyAction(context.Background(), f.user.ID, item.ID, model.ActionDraft)
	require.NoError(t, err)
	assert.True(t, drafted)
	assert.Equal(t, model.StatusDrafted, updated.Status)
}

func TestApplyActionDiscard(t *testing.T) {
	f := newQueueFixture(t)
	item := f.pendingItem(t, "m1")

	updated, err := f.svc.ApplyAction(context.Background(), f.user.ID, item.ID, model.ActionDiscard)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDiscarded, updated.Status)
	assert.True(t, updated.Status.Terminal())
}

func TestApplyActionRejectsTerminalItem(t *testing.T) {
	f := newQueueFixture(t)
	item := f.pendingItem(t, "m1")

	_, err := f.svc.ApplyAction(context.Background(), f.user.ID, item.ID, model.ActionDiscard)
	require.NoError(t, err)

	_, err = f.svc.ApplyAction(context.Background(), f.user.ID, item.ID, model.ActionSend)
	assert.True(t, apperr.IsValidationError(err))
}

func TestStaleWriterCannotOverwriteResolvedItem(t *testing.T) {
	f := newQueueFixture(t)
	item := f.pendingItem(t, "m1")

	// Two callers load the same pending item; the first resolves it.
	stale, err := f.queueRepo.FindByID(context.Background(), item.ID)
	require.NoError(t, err)

	_, err = f.svc.ApplyAction(context.Background(), f.user.ID, item.ID, model.ActionSend)
	require.NoError(t, err)

	// The second caller's snapshot is now stale; its write must lose.
	stale.Resolve(model.StatusDiscarded, string(model.ActionDiscard))
	err = f.queueRepo.Update(context.Background(), stale)
	assert.True(t, apperr.IsValidationError(err))

	stored, err := f.queueRepo.FindByID(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSent, stored.Status)
	assert.Equal(t, "send", stored.ActionTaken)
}

func TestApplyActionUnknownAction(t *testing.T) {
	f := newQueueFixture(t)
	item := f.pendingItem(t, "m1")

	_, err := f.svc.ApplyAction(context.Background(), f.user.ID, item.ID, model.QueueAction("archive"))
	assert.True(t, apperr.IsValidationError(err))
}

func TestGetItemEnforcesOwnership(t *testing.T) {
	f := newQueueFixture(t)
	item := f.pendingItem(t, "m1")

	_, err := f.svc.GetItem(context.Background(), "someone-else", item.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUpdateDraft(t *testing.T) {
	f := newQueueFixture(t)
	item := f.pendingItem(t, "m1")

	updated, err := f.svc.UpdateDraft(context.Background(), f.user.ID, item.ID, "Edited reply.")
	require.NoError(t, err)
	assert.Equal(t, "Edited reply.", updated.DraftReply)
	assert.Equal(t, model.StatusPending, updated.Status)
}

func TestUpdateDraftRejectsTerminalItem(t *testing.T) {
	f := newQueueFixture(t)
	item := f.pendingItem(t, "m1")

	_, err := f.svc.ApplyAction(context.Background(), f.user.ID, item.ID, model.ActionSend)
	require.NoError(t, err)

	_, err = f.svc.UpdateDraft(context.Background(), f.user.ID, item.ID, "too late")
	assert.True(t, apperr.IsValidationError(err))
}

func TestListItemsFiltersByStatus(t *testing.T) {
	f := newQueueFixture(t)
	f.pendingItem(t, "m1")
	item2 := f.pendingItem(t, "m2")

	_, err := f.svc.ApplyAction(context.Background(), f.user.ID, item2.ID, model.ActionDiscard)
	require.NoError(t, err)

	pending, err := f.svc.ListItems(context.Background(), f.user.ID, model.StatusPending)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	all, err := f.svc.ListItems(context.Background(), f.user.ID, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

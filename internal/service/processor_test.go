package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inbox-pilot/internal/ai"
	"inbox-pilot/internal/gcal"
	"inbox-pilot/internal/gdrive"
	"inbox-pilot/internal/gmail"
	"inbox-pilot/internal/model"
	"inbox-pilot/internal/repository/memory"
	"inbox-pilot/internal/service"
)

type pipelineFixture struct {
	userRepo    *memory.InMemoryUserRepository
	configRepo  *memory.InMemoryConfigRepository
	queueRepo   *memory.InMemoryQueueRepository
	contactRepo *memory.InMemoryContactRepository
	gmailClient *gmail.MockGmailClient
	calClient   *gcal.MockCalendarClient
	driveClient *gdrive.MockDriveClient
	aiClient    *ai.MockAIClient
	processor   service.Processor
	user        *model.User
}

func newPipelineFixture(t *testing.T, autonomyLevel int) *pipelineFixture {
	t.Helper()

	f := &pipelineFixture{
		userRepo:    memory.NewInMemoryUserRepository(),
		configRepo:  memory.NewInMemoryConfigRepository(),
		queueRepo:   memory.NewInMemoryQueueRepository(),
		contactRepo: memory.NewInMemoryContactRepository(),
		gmailClient: gmail.NewMockGmailClient(),
		calClient:   gcal.NewMockCalendarClient(),
		driveClient: gdrive.NewMockDriveClient(),
		aiClient:    ai.NewMockAIClient(),
	}

	ctx := context.Background()
	f.user = model.NewUser("google_1", "user@example.com", "Test User", "token", "refresh", time.Now().Add(time.Hour))
	require.NoError(t, f.userRepo.Create(ctx, f.user))

	cfg := model.DefaultConfig(f.user.ID)
	cfg.AutonomyLevel = autonomyLevel
	require.NoError(t, f.configRepo.Save(ctx, cfg))

	f.processor = service.NewProcessor(
		f.userRepo, f.configRepo, f.queueRepo,
		memory.NewInMemoryActivityRepository(),
		f.contactRepo, memory.NewInMemoryProfileRepository(),
		f.gmailClient, f.calClient, f.driveClient, f.aiClient,
		50, zerolog.Nop(),
	)
	return f
}

func (f *pipelineFixture) addContact(t *testing.T, email string) {
	t.Helper()
	contact := model.NewContact(f.user.ID, email, "", 5, time.Now())
	require.NoError(t, f.contactRepo.Upsert(context.Background(), contact))
}

func (f *pipelineFixture) inboxEmail(id string) model.Email {
	return model.Email{
		GmailID:    id,
		ThreadID:   "thread-" + id,
		Sender:     "Alex Doe <alex@example.com>",
		Subject:    "Quick question",
		Snippet:    "Do you have a minute",
		Body:       "Do you have a minute to chat this week?",
		ReceivedAt: time.Now(),
	}
}

func (f *pipelineFixture) serveInbox(emails ...model.Email) {
	f.gmailClient.FetchNewEmailsFunc = func(ctx context.Context, user *model.User, after time.Time, max int64) ([]model.Email, error) {
		return emails, nil
	}
}

func TestProcessUserFullAutoSends(t *testing.T) {
	f := newPipelineFixture(t, model.AutonomyFullAuto)
	f.addContact(t, "alex@example.com")
	f.serveInbox(f.inboxEmail("m1"))

	sent := 0
	f.gmailClient.SendReplyFunc = func(ctx context.Context, user *model.User, email model.Email, body string, attachment *model.Attachment) error {
		sent++
		return nil
	}

	summary, err := f.processor.ProcessUser(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Fetched)
	assert.Equal(t, 1, summary.Sent)
	assert.Equal(t, 1, sent)

	items, err := f.queueRepo.FindByUser(context.Background(), f.user.ID, "")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, model.StatusSent, items[0].Status)
	assert.Equal(t, "full-auto", items[0].RoutingReason)
	assert.NotNil(t, items[0].ResolvedAt)
}

func TestProcessUserReviewAllQueues(t *testing.T) {
	f := newPipelineFixture(t, model.AutonomyReviewAll)
	f.addContact(t, "alex@example.com")
	f.serveInbox(f.inboxEmail("m1"))

	summary, err := f.processor.ProcessUser(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Queued)

	items, _ := f.queueRepo.FindByUser(context.Background(), f.user.ID, model.StatusPending)
	require.Len(t, items, 1)
	assert.Equal(t, "review-all autonomy level", items[0].RoutingReason)
	assert.NotEmpty(t, items[0].DraftReply)
}

func TestProcessUserUnknownSenderQueuesEvenAtFullAuto(t *testing.T) {
	f := newPipelineFixture(t, model.AutonomyFullAuto)
	f.serveInbox(f.inboxEmail("m1")) // no contact registered

	summary, err := f.processor.ProcessUser(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Queued)
	assert.Equal(t, 0, summary.Sent)

	items, _ := f.queueRepo.FindByUser(context.Background(), f.user.ID, model.StatusPending)
	require.Len(t, items, 1)
	assert.Equal(t, "unknown sender", items[0].RoutingReason)
}

func TestProcessUserNotWorthReplyingDiscards(t *testing.T) {
	f := newPipelineFixture(t, model.AutonomyFullAuto)
	f.serveInbox(f.inboxEmail("m1"))
	f.aiClient.ClassifyFunc = func(ctx context.Context, email model.Email) (*model.Classification, error) {
		return &model.Classification{WorthReplying: false, SenderPriority: model.PriorityLow, Confidence: 0.95}, nil
	}

	summary, err := f.processor.ProcessUser(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Discarded)

	items, _ := f.queueRepo.FindByUser(context.Background(), f.user.ID, model.StatusDiscarded)
	require.Len(t, items, 1)
	assert.Equal(t, "not worth replying", items[0].RoutingReason)
	assert.Empty(t, items[0].DraftReply)
}

func TestProcessUserDedupSkipsSeenMessages(t *testing.T) {
	f := newPipelineFixture(t, model.AutonomyReviewAll)
	f.addContact(t, "alex@example.com")
	f.serveInbox(f.inboxEmail("m1"))

	_, err := f.processor.ProcessUser(context.Background(), f.user.ID)
	require.NoError(t, err)

	// Same message arrives again on the next poll.
	summary, err := f.processor.ProcessUser(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 0, summary.Queued)

	items, _ := f.queueRepo.FindByUser(context.Background(), f.user.ID, "")
	assert.Len(t, items, 1)
}

func TestProcessUserClassificationFailureSkipsEmailOnly(t *testing.T) {
	f := newPipelineFixture(t, model.AutonomyReviewAll)
	f.addContact(t, "alex@example.com")
	f.serveInbox(f.inboxEmail("m1"), f.inboxEmail("m2"))
	f.aiClient.ClassifyFunc = func(ctx context.Context, email model.Email) (*model.Classification, error) {
		if email.GmailID == "m1" {
			return nil, errors.New("model unavailable")
		}
		return &model.Classification{WorthReplying: true, SenderPriority: model.PriorityNormal, Confidence: 0.9}, nil
	}

	summary, err := f.processor.ProcessUser(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.Queued)

	// A skipped email is left unqueued so a later run can retry it.
	exists, _ := f.queueRepo.Exists(context.Background(), f.user.ID, "m1")
	assert.False(t, exists)
}

func TestProcessUserCalendarFailureDegradesGracefully(t *testing.T) {
	f := newPipelineFixture(t, model.AutonomyReviewAll)
	f.addContact(t, "alex@example.com")
	f.serveInbox(f.inboxEmail("m1"))
	f.aiClient.ClassifyFunc = func(ctx context.Context, email model.Email) (*model.Classification, error) {
		return &model.Classification{WorthReplying: true, SenderPriority: model.PriorityNormal, Confidence: 0.9, NeedsCalendar: true}, nil
	}
	f.calClient.FreeSlotsFunc = func(ctx context.Context, user *model.User, days int) (string, error) {
		return "", errors.New("calendar down")
	}

	var gotSlots string
	f.aiClient.DraftReplyFunc = func(ctx context.Context, email model.Email, c model.Classification, enrichment service.Enrichment, profile *model.VoiceProfile) (string, error) {
		gotSlots = enrichment.CalendarSlots
		return "Sure, let me get back to you on times.", nil
	}

	summary, err := f.processor.ProcessUser(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Queued)
	assert.Empty(t, gotSlots)
}

func TestProcessUserDriveNotFoundDoesNotForceReview(t *testing.T) {
	f := newPipelineFixture(t, model.AutonomyFullAuto)
	f.addContact(t, "alex@example.com")
	f.serveInbox(f.inboxEmail("m1"))
	f.aiClient.ClassifyFunc = func(ctx context.Context, email model.Email) (*model.Classification, error) {
		return &model.Classification{WorthReplying: true, SenderPriority: model.PriorityNormal, Confidence: 0.9, NeedsGDrive: true, GDriveQuery: "resume"}, nil
	}
	// Default mock: SearchAttachment returns (nil, nil).

	summary, err := f.processor.ProcessUser(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Sent)
}

func TestProcessUserDriveFoundForcesReview(t *testing.T) {
	f := newPipelineFixture(t, model.AutonomyFullAuto)
	f.addContact(t, "alex@example.com")
	f.serveInbox(f.inboxEmail("m1"))
	f.aiClient.ClassifyFunc = func(ctx context.Context, email model.Email) (*model.Classification, error) {
		return &model.Classification{WorthReplying: true, SenderPriority: model.PriorityNormal, Confidence: 0.9, NeedsGDrive: true, GDriveQuery: "resume"}, nil
	}
	f.driveClient.SearchAttachmentFunc = func(ctx context.Context, user *model.User, query string) (*model.Attachment, error) {
		return &model.Attachment{Filename: "resume.pdf", Data: []byte("pdf")}, nil
	}

	summary, err := f.processor.ProcessUser(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Queued)

	items, _ := f.queueRepo.FindByUser(context.Background(), f.user.ID, model.StatusPending)
	require.Len(t, items, 1)
	assert.Equal(t, "document attachment requires review", items[0].RoutingReason)
}

func TestProcessUserSendFailureDemotesToReview(t *testing.T) {
	f := newPipelineFixture(t, model.AutonomyFullAuto)
	f.addContact(t, "alex@example.com")
	f.serveInbox(f.inboxEmail("m1"))
	f.gmailClient.SendReplyFunc = func(ctx context.Context, user *model.User, email model.Email, body string, attachment *model.Attachment) error {
		return errors.New("rate limited")
	}

	summary, err := f.processor.ProcessUser(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Sent)
	assert.Equal(t, 1, summary.Queued)

	items, _ := f.queueRepo.FindByUser(context.Background(), f.user.ID, model.StatusPending)
	require.Len(t, items, 1)
	assert.Equal(t, "send failed, queued for review", items[0].RoutingReason)
}

func TestProcessUserDraftFailureSkipsEmail(t *testing.T) {
	f := newPipelineFixture(t, model.AutonomyReviewAll)
	f.addContact(t, "alex@example.com")
	f.serveInbox(f.inboxEmail("m1"))
	f.aiClient.DraftReplyFunc = func(ctx context.Context, email model.Email, c model.Classification, enrichment service.Enrichment, profile *model.VoiceProfile) (string, error) {
		return "", errors.New("model unavailable")
	}

	summary, err := f.processor.ProcessUser(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)

	exists, _ := f.queueRepo.Exists(context.Background(), f.user.ID, "m1")
	assert.False(t, exists)
}

func TestProcessUserLowConfidenceQueues(t *testing.T) {
	f := newPipelineFixture(t, model.AutonomyFullAuto)
	f.addContact(t, "alex@example.com")
	f.serveInbox(f.inboxEmail("m1"))
	f.aiClient.ClassifyFunc = func(ctx context.Context, email model.Email) (*model.Classification, error) {
		return &model.Classification{WorthReplying: true, SenderPriority: model.PriorityNormal, Confidence: 0.3}, nil
	}

	summary, err := f.processor.ProcessUser(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Queued)

	items, _ := f.queueRepo.FindByUser(context.Background(), f.user.ID, model.StatusPending)
	require.Len(t, items, 1)
	assert.Equal(t, "confidence below threshold", items[0].RoutingReason)
}

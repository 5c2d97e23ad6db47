package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inbox-pilot/internal/ai"
	"inbox-pilot/internal/gmail"
	"inbox-pilot/internal/model"
	"inbox-pilot/internal/repository/memory"
	"inbox-pilot/internal/service"
)

type setupFixture struct {
	userRepo    *memory.InMemoryUserRepository
	contactRepo *memory.InMemoryContactRepository
	profileRepo *memory.InMemoryProfileRepository
	gmailClient *gmail.MockGmailClient
	aiClient    *ai.MockAIClient
	svc         service.SetupService
	user        *model.User
}

func newSetupFixture(t *testing.T) *setupFixture {
	t.Helper()

	f := &setupFixture{
		userRepo:    memory.NewInMemoryUserRepository(),
		contactRepo: memory.NewInMemoryContactRepository(),
		profileRepo: memory.NewInMemoryProfileRepository(),
		gmailClient: gmail.NewMockGmailClient(),
		aiClient:    ai.NewMockAIClient(),
	}

	f.user = model.NewUser("google_1", "user@example.com", "Test User", "token", "refresh", time.Now().Add(time.Hour))
	require.NoError(t, f.userRepo.Create(context.Background(), f.user))

	f.svc = service.NewSetupService(
		f.userRepo, f.contactRepo, f.profileRepo,
		memory.NewInMemoryActivityRepository(),
		f.gmailClient, f.aiClient, zerolog.Nop(),
	)
	return f
}

func sentEmails(n int, to string) []model.SentEmail {
	emails := make([]model.SentEmail, n)
	for i := range emails {
		emails[i] = model.SentEmail{
			GmailID: fmt.Sprintf("s%d", i),
			To:      to,
			Subject: "Re: stuff",
			Body:    "Sounds good, thanks!",
			SentAt:  time.Now().Add(-time.Duration(i) * time.Hour),
		}
	}
	return emails
}

func TestRunSetupSavesVoiceProfileAndContacts(t *testing.T) {
	f := newSetupFixture(t)
	f.gmailClient.FetchSentEmailsFunc = func(ctx context.Context, user *model.User, days int, max int64) ([]model.SentEmail, error) {
		return sentEmails(30, "Alex Doe <alex@example.com>, bea@example.com"), nil
	}

	require.NoError(t, f.svc.RunSetup(context.Background(), f.user.ID))

	stored, err := f.userRepo.FindByID(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SetupComplete, stored.SetupStatus)

	profile, err := f.profileRepo.Get(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, f.user.ID, profile.UserID)
	assert.NotEmpty(t, profile.Tone)

	alex, err := f.contactRepo.FindByEmail(context.Background(), f.user.ID, "alex@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Alex Doe", alex.Name)
	assert.Equal(t, 30, alex.MessageCount)

	_, err = f.contactRepo.FindByEmail(context.Background(), f.user.ID, "bea@example.com")
	assert.NoError(t, err)
}

func TestRunSetupWidensWindowWhenSentMailIsSparse(t *testing.T) {
	f := newSetupFixture(t)

	var windows []int
	f.gmailClient.FetchSentEmailsFunc = func(ctx context.Context, user *model.User, days int, max int64) ([]model.SentEmail, error) {
		windows = append(windows, days)
		if days == 30 {
			return sentEmails(3, "alex@example.com"), nil
		}
		return sentEmails(40, "alex@example.com"), nil
	}

	require.NoError(t, f.svc.RunSetup(context.Background(), f.user.ID))

	assert.Contains(t, windows, 30)
	assert.Contains(t, windows, 90)

	_, err := f.profileRepo.Get(context.Background(), f.user.ID)
	assert.NoError(t, err)
}

func TestRunSetupCompletesDespiteFailures(t *testing.T) {
	f := newSetupFixture(t)
	f.gmailClient.FetchSentEmailsFunc = func(ctx context.Context, user *model.User, days int, max int64) ([]model.SentEmail, error) {
		return nil, errors.New("gmail unavailable")
	}

	require.NoError(t, f.svc.RunSetup(context.Background(), f.user.ID))

	stored, err := f.userRepo.FindByID(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SetupComplete, stored.SetupStatus)
}

func TestRunSetupKeepsOnlyTopContacts(t *testing.T) {
	f := newSetupFixture(t)
	f.gmailClient.FetchSentEmailsFunc = func(ctx context.Context, user *model.User, days int, max int64) ([]model.SentEmail, error) {
		var emails []model.SentEmail
		// One heavy correspondent plus 30 one-off recipients.
		emails = append(emails, sentEmails(25, "alex@example.com")...)
		for i := 0; i < 30; i++ {
			e := sentEmails(1, fmt.Sprintf("one-off-%d@example.com", i))[0]
			e.GmailID = fmt.Sprintf("o%d", i)
			emails = append(emails, e)
		}
		return emails, nil
	}

	require.NoError(t, f.svc.RunSetup(context.Background(), f.user.ID))

	contacts, err := f.contactRepo.FindByUser(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Len(t, contacts, 20)
	assert.Equal(t, "alex@example.com", contacts[0].Email)
}

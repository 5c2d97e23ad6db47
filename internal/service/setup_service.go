package service

import (
	"context"
	"fmt"
	"net/mail"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"inbox-pilot/internal/model"
	"inbox-pilot/internal/repository"
)

const (
	voiceSampleMax   = 100
	voiceSampleMin   = 20
	contactSampleMax = 500
	topContactCount  = 20
)

type setupService struct {
	userRepo     repository.UserRepository
	contactRepo  repository.ContactRepository
	profileRepo  repository.ProfileRepository
	activityRepo repository.ActivityRepository
	gmailClient  GmailClient
	aiClient     AIClient
	logger       zerolog.Logger
}

func NewSetupService(
	userRepo repository.UserRepository,
	contactRepo repository.ContactRepository,
	profileRepo repository.ProfileRepository,
	activityRepo repository.ActivityRepository,
	gmailClient GmailClient,
	aiClient AIClient,
	log zerolog.Logger,
) SetupService {
	return &setupService{
		userRepo:     userRepo,
		contactRepo:  contactRepo,
		profileRepo:  profileRepo,
		activityRepo: activityRepo,
		gmailClient:  gmailClient,
		aiClient:     aiClient,
		logger:       log.With().Str("component", "setup").Logger(),
	}
}

// RunSetup performs the one-time profile analysis for a new user: infer
// a writing-voice profile and learn frequent contacts from sent mail.
// The two steps run concurrently and are isolated; a failure in one is
// recorded as a warning and does not block the other. Setup always ends
// in the complete state so the pipeline never waits on it.
func (s *setupService) RunSetup(ctx context.Context, userID string) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}

	s.logEvent(ctx, userID, model.EventSetupStart, "profile setup started")
	user.SetupStatus = model.SetupRunning
	if err := s.userRepo.Update(ctx, user); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("setup status update failed")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.generateVoiceProfile(gctx, user); err != nil {
			s.logger.Warn().Err(err).Str("user_id", userID).Msg("voice profile failed")
			s.logEvent(gctx, userID, model.EventSetupWarning, "voice profile failed: "+err.Error())
		}
		return nil
	})
	g.Go(func() error {
		if err := s.analyzeContacts(gctx, user); err != nil {
			s.logger.Warn().Err(err).Str("user_id", userID).Msg("contact analysis failed")
			s.logEvent(gctx, userID, model.EventSetupWarning, "contact analysis failed: "+err.Error())
		}
		return nil
	})
	_ = g.Wait()

	user.SetupStatus = model.SetupComplete
	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("mark setup complete: %w", err)
	}
	s.logEvent(ctx, userID, model.EventSetupComplete, "profile setup finished")
	s.logger.Info().Str("user_id", userID).Msg("background setup complete")
	return nil
}

func (s *setupService) generateVoiceProfile(ctx context.Context, user *model.User) error {
	samples, err := s.gmailClient.FetchSentEmails(ctx, user, 30, voiceSampleMax)
	if err != nil {
		return err
	}
	if len(samples) < voiceSampleMin {
		// Widen the window when recent sent mail is sparse.
		samples, err = s.gmailClient.FetchSentEmails(ctx, user, 90, voiceSampleMax)
		if err != nil {
			return err
		}
	}
	if len(samples) == 0 {
		s.logger.Info().Str("user_id", user.ID).Msg("no sent emails, skipping voice profile")
		return nil
	}

	profile, err := s.aiClient.AnalyzeVoice(ctx, samples)
	if err != nil {
		return err
	}
	profile.UserID = user.ID

	if err := s.profileRepo.Save(ctx, profile); err != nil {
		return err
	}
	s.logEvent(ctx, user.ID, model.EventSetupVoice, "writing style analyzed and saved")
	return nil
}

func (s *setupService) analyzeContacts(ctx context.Context, user *model.User) error {
	sent, err := s.gmailClient.FetchSentEmails(ctx, user, 365, contactSampleMax)
	if err != nil {
		return err
	}
	if len(sent) == 0 {
		s.logger.Info().Str("user_id", user.ID).Msg("no sent emails, skipping contact analysis")
		return nil
	}

	type tally struct {
		count    int
		name     string
		lastSeen time.Time
	}
	counts := make(map[string]*tally)
	for _, msg := range sent {
		for _, recipient := range strings.Split(msg.To, ",") {
			recipient = strings.TrimSpace(recipient)
			if recipient == "" {
				continue
			}
			addr, name := splitRecipient(recipient)
			if addr == "" {
				continue
			}
			t, ok := counts[addr]
			if !ok {
				t = &tally{}
				counts[addr] = t
			}
			t.count++
			if name != "" {
				t.name = name
			}
			if msg.SentAt.After(t.lastSeen) {
				t.lastSeen = msg.SentAt
			}
		}
	}

	addrs := make([]string, 0, len(counts))
	for addr := range counts {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool {
		return counts[addrs[i]].count > counts[addrs[j]].count
	})
	if len(addrs) > topContactCount {
		addrs = addrs[:topContactCount]
	}

	saved := 0
	for _, addr := range addrs {
		t := counts[addr]
		contact := model.NewContact(user.ID, addr, t.name, t.count, t.lastSeen)
		if err := s.contactRepo.Upsert(ctx, contact); err != nil {
			s.logger.Warn().Err(err).Str("email", addr).Msg("contact upsert failed")
			continue
		}
		saved++
	}

	s.logEvent(ctx, user.ID, model.EventSetupContacts, fmt.Sprintf("%d contacts analyzed and saved", saved))
	return nil
}

func splitRecipient(recipient string) (addr, name string) {
	parsed, err := mail.ParseAddress(recipient)
	if err != nil {
		return strings.ToLower(recipient), ""
	}
	return strings.ToLower(parsed.Address), parsed.Name
}

func (s *setupService) logEvent(ctx context.Context, userID, eventType, detail string) {
	event := model.NewActivityEvent(userID, eventType, "", detail)
	if err := s.activityRepo.Append(ctx, event); err != nil {
		s.logger.Warn().Err(err).Str("type", eventType).Msg("activity append failed")
	}
}

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"inbox-pilot/internal/apperr"
	"inbox-pilot/internal/autonomy"
	"inbox-pilot/internal/model"
	"inbox-pilot/internal/repository"
)

const calendarDaysAhead = 7

type processor struct {
	userRepo     repository.UserRepository
	configRepo   repository.ConfigRepository
	queueRepo    repository.QueueRepository
	activityRepo repository.ActivityRepository
	contactRepo  repository.ContactRepository
	profileRepo  repository.ProfileRepository
	gmailClient  GmailClient
	calClient    CalendarClient
	driveClient  DriveClient
	aiClient     AIClient
	maxFetch     int64
	logger       zerolog.Logger
}

func NewProcessor(
	userRepo repository.UserRepository,
	configRepo repository.ConfigRepository,
	queueRepo repository.QueueRepository,
	activityRepo repository.ActivityRepository,
	contactRepo repository.ContactRepository,
	profileRepo repository.ProfileRepository,
	gmailClient GmailClient,
	calClient CalendarClient,
	driveClient DriveClient,
	aiClient AIClient,
	maxFetch int64,
	log zerolog.Logger,
) Processor {
	return &processor{
		userRepo:     userRepo,
		configRepo:   configRepo,
		queueRepo:    queueRepo,
		activityRepo: activityRepo,
		contactRepo:  contactRepo,
		profileRepo:  profileRepo,
		gmailClient:  gmailClient,
		calClient:    calClient,
		driveClient:  driveClient,
		aiClient:     aiClient,
		maxFetch:     maxFetch,
		logger:       log.With().Str("component", "processor").Logger(),
	}
}

// ProcessUser runs the full pipeline for one user: fetch, classify,
// enrich, draft, route, persist. Emails are handled strictly in arrival
// order and one email's failure never aborts the rest of the batch.
func (p *processor) ProcessUser(ctx context.Context, userID string) (*RunSummary, error) {
	user, err := p.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}

	cfg, err := p.configRepo.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	p.logEvent(ctx, userID, model.EventPollStart, "", "")

	after := lookbackCutoff(cfg, user.ServiceStart)
	emails, err := p.gmailClient.FetchNewEmails(ctx, user, after, p.maxFetch)
	if err != nil {
		p.logEvent(ctx, userID, model.EventError, "", "fetch failed: "+err.Error())
		return nil, err
	}

	summary := &RunSummary{UserID: userID, Fetched: len(emails)}
	for _, email := range emails {
		p.processEmail(ctx, user, cfg, email, summary)
	}

	p.logEvent(ctx, userID, model.EventPollEnd, "",
		fmt.Sprintf("fetched=%d sent=%d queued=%d discarded=%d skipped=%d",
			summary.Fetched, summary.Sent, summary.Queued, summary.Discarded, summary.Skipped))
	return summary, nil
}

// lookbackCutoff bounds the fetch window. Lookback 0 means unbounded,
// but never before the user activated the service.
func lookbackCutoff(cfg *model.UserConfig, serviceStart time.Time) time.Time {
	if cfg.LookbackHours <= 0 {
		return serviceStart
	}
	cutoff := time.Now().Add(-time.Duration(cfg.LookbackHours) * time.Hour)
	if cutoff.Before(serviceStart) {
		return serviceStart
	}
	return cutoff
}

func (p *processor) processEmail(ctx context.Context, user *model.User, cfg *model.UserConfig, email model.Email, summary *RunSummary) {
	log := p.logger.With().Str("user_id", user.ID).Str("gmail_id", email.GmailID).Logger()

	exists, err := p.queueRepo.Exists(ctx, user.ID, email.GmailID)
	if err != nil {
		log.Error().Err(err).Msg("dedup check failed")
		summary.Skipped++
		return
	}
	if exists {
		summary.Skipped++
		return
	}

	classification, err := p.aiClient.Classify(ctx, email)
	if err != nil {
		log.Error().Err(err).Msg("classification failed")
		p.logEvent(ctx, user.ID, model.EventError, email.GmailID, "classification failed: "+err.Error())
		summary.Skipped++
		return
	}
	p.logEvent(ctx, user.ID, model.EventClassified, email.GmailID, classification.Reasoning)

	if !classification.WorthReplying {
		p.discard(ctx, user, email, classification, summary, "not worth replying")
		return
	}

	var enrichment Enrichment
	if classification.NeedsCalendar {
		slots, err := p.calClient.FreeSlots(ctx, user, calendarDaysAhead)
		if err != nil {
			// Degrade gracefully: draft without availability.
			log.Warn().Err(err).Msg("calendar lookup failed")
			p.logEvent(ctx, user.ID, model.EventError, email.GmailID, "calendar lookup failed: "+err.Error())
		} else {
			enrichment.CalendarSlots = slots
			p.logEvent(ctx, user.ID, model.EventCalendarChecked, email.GmailID, slots)
		}
	}

	if classification.NeedsGDrive && classification.GDriveQuery != "" {
		attachment, err := p.driveClient.SearchAttachment(ctx, user, classification.GDriveQuery)
		if err != nil {
			log.Warn().Err(err).Msg("drive search failed")
			p.logEvent(ctx, user.ID, model.EventError, email.GmailID, "drive search failed: "+err.Error())
		} else if attachment != nil {
			enrichment.Attachment = attachment
			p.logEvent(ctx, user.ID, model.EventDriveFetched, email.GmailID, attachment.Filename)
		}
	}

	profile, err := p.profileRepo.Get(ctx, user.ID)
	if err != nil {
		profile = nil // draft with the default voice
	}

	draft, err := p.aiClient.DraftReply(ctx, email, *classification, enrichment, profile)
	if err != nil {
		log.Error().Err(err).Msg("drafting failed")
		p.logEvent(ctx, user.ID, model.EventError, email.GmailID, "drafting failed: "+err.Error())
		summary.Skipped++
		return
	}
	p.logEvent(ctx, user.ID, model.EventDrafted, email.GmailID, "")

	knownSender := p.isKnownSender(ctx, user.ID, email.Sender)

	// A requested document that was not found must not masquerade as an
	// attachment requiring review.
	hasAttachment := enrichment.Attachment != nil
	decision := autonomy.Decide(*classification, cfg.AutonomyLevel, knownSender, hasAttachment, cfg.LowConfidenceThreshold)
	log.Info().Str("action", string(decision.Action)).Str("reason", decision.Reason).Msg("routed")

	item := model.NewQueueItem(user.ID, email)
	item.Classification = classification
	item.DraftReply = draft
	item.RoutingReason = decision.Reason

	switch decision.Action {
	case autonomy.ActionSend:
		if err := p.gmailClient.SendReply(ctx, user, email, draft, enrichment.Attachment); err != nil {
			// Demote to review so the reply is not lost.
			log.Error().Err(err).Msg("auto-send failed")
			p.logEvent(ctx, user.ID, model.EventError, email.GmailID, "send failed: "+err.Error())
			item.RoutingReason = "send failed, queued for review"
			p.persist(ctx, item, summary)
			p.logEvent(ctx, user.ID, model.EventQueued, email.GmailID, item.RoutingReason)
			break
		}
		item.Resolve(model.StatusSent, string(model.ActionSend))
		p.persist(ctx, item, summary)
		p.logEvent(ctx, user.ID, model.EventSent, email.GmailID, decision.Reason)
	case autonomy.ActionDiscard:
		item.Resolve(model.StatusDiscarded, string(model.ActionDiscard))
		p.persist(ctx, item, summary)
		p.logEvent(ctx, user.ID, model.EventSkipped, email.GmailID, decision.Reason)
	default:
		p.persist(ctx, item, summary)
		p.logEvent(ctx, user.ID, model.EventQueued, email.GmailID, decision.Reason)
	}

	if err := p.gmailClient.MarkAsRead(ctx, user, email.GmailID); err != nil {
		log.Warn().Err(err).Msg("mark as read failed")
	}
}

// discard records an email the classifier judged not worth a reply.
func (p *processor) discard(ctx context.Context, user *model.User, email model.Email, classification *model.Classification, summary *RunSummary, reason string) {
	item := model.NewQueueItem(user.ID, email)
	item.Classification = classification
	item.RoutingReason = reason
	item.Resolve(model.StatusDiscarded, string(model.ActionDiscard))
	p.persist(ctx, item, summary)
	p.logEvent(ctx, user.ID, model.EventSkipped, email.GmailID, reason)

	if err := p.gmailClient.MarkAsRead(ctx, user, email.GmailID); err != nil {
		p.logger.Warn().Err(err).Str("gmail_id", email.GmailID).Msg("mark as read failed")
	}
}

func (p *processor) persist(ctx context.Context, item *model.QueueItem, summary *RunSummary) {
	if err := p.queueRepo.Create(ctx, item); err != nil {
		if apperr.IsDedupConflict(err) {
			// Raced with another run; the message is already recorded.
			summary.Skipped++
			return
		}
		// The send may already have happened; reconciliation is an
		// external concern, never hidden.
		p.logger.Error().Err(err).Str("gmail_id", item.GmailID).Msg("queue item persist failed")
		p.logEvent(ctx, item.UserID, model.EventError, item.GmailID, "persist failed: "+err.Error())
		summary.Skipped++
		return
	}

	switch item.Status {
	case model.StatusSent:
		summary.Sent++
	case model.StatusDiscarded:
		summary.Discarded++
	default:
		summary.Queued++
	}
}

func (p *processor) isKnownSender(ctx context.Context, userID, sender string) bool {
	_, err := p.contactRepo.FindByEmail(ctx, userID, extractAddress(sender))
	return err == nil
}

func (p *processor) logEvent(ctx context.Context, userID, eventType, gmailID, detail string) {
	event := model.NewActivityEvent(userID, eventType, gmailID, detail)
	if err := p.activityRepo.Append(ctx, event); err != nil {
		p.logger.Warn().Err(err).Str("type", eventType).Msg("activity append failed")
	}
}

// Package scheduler maintains one recurring polling timer per active
// user and drives the processing pipeline on each tick.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"inbox-pilot/internal/model"
	"inbox-pilot/internal/repository"
	"inbox-pilot/internal/service"
)

// ErrRunInProgress is returned by RunNow when the user's previous run
// has not finished.
var ErrRunInProgress = errors.New("run already in progress")

// Status describes one user's polling job. Active means a job exists;
// RunInProgress means a poll is executing right now.
type Status struct {
	Active        bool                `json:"active"`
	RunInProgress bool                `json:"run_in_progress"`
	IntervalMins  int                 `json:"poll_interval_minutes"`
	LastRun       *time.Time          `json:"last_run,omitempty"`
	LastSummary   *service.RunSummary `json:"last_summary,omitempty"`
}

type job struct {
	userID   string
	interval time.Duration
	ticker   *time.Ticker
	cancel   context.CancelFunc

	// running guards against overlapping runs for the same user. A tick
	// that cannot acquire it is dropped, never queued.
	running sync.Mutex

	mu          sync.Mutex
	inProgress  bool
	lastRun     *time.Time
	lastSummary *service.RunSummary
}

// Scheduler owns the per-user jobs. Jobs never share state beyond the
// jobs map itself, so a slow run for one user cannot delay another.
type Scheduler struct {
	processor  service.Processor
	configRepo repository.ConfigRepository
	logger     zerolog.Logger

	mu   sync.Mutex
	jobs map[string]*job
	wg   sync.WaitGroup

	// now is swappable for tests.
	now func() time.Time
}

func New(processor service.Processor, configRepo repository.ConfigRepository, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		processor:  processor,
		configRepo: configRepo,
		logger:     log.With().Str("component", "scheduler").Logger(),
		jobs:       make(map[string]*job),
		now:        time.Now,
	}
}

// AddUser creates or replaces the polling job for a user. Called on
// login, on startup for previously active users, and after an interval
// change.
func (s *Scheduler) AddUser(ctx context.Context, userID string) error {
	cfg, err := s.configRepo.Get(ctx, userID)
	if err != nil {
		return err
	}
	interval := time.Duration(cfg.PollIntervalMinutes) * time.Minute

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.jobs[userID]; ok {
		if existing.interval == interval {
			return nil
		}
		existing.stop()
		delete(s.jobs, userID)
	}

	jobCtx, cancel := context.WithCancel(context.Background())
	j := &job{
		userID:   userID,
		interval: interval,
		ticker:   time.NewTicker(interval),
		cancel:   cancel,
	}
	s.jobs[userID] = j

	s.wg.Add(1)
	go s.loop(jobCtx, j)

	s.logger.Info().Str("user_id", userID).Dur("interval", interval).Msg("polling job added")
	return nil
}

// RemoveUser tears down a user's timer. Safe to call for unknown users.
func (s *Scheduler) RemoveUser(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if j, ok := s.jobs[userID]; ok {
		j.stop()
		delete(s.jobs, userID)
		s.logger.Info().Str("user_id", userID).Msg("polling job removed")
	}
}

// Reschedule applies a changed poll interval. Active-hours changes need
// no action here; ticks read config fresh.
func (s *Scheduler) Reschedule(ctx context.Context, userID string) error {
	return s.AddUser(ctx, userID)
}

// RunNow triggers an immediate poll, bypassing the active-hours window
// but still refusing to overlap a run already in flight.
func (s *Scheduler) RunNow(ctx context.Context, userID string) (*service.RunSummary, error) {
	s.mu.Lock()
	j, ok := s.jobs[userID]
	s.mu.Unlock()
	if !ok {
		// No job yet (user inactive or startup race); run unmanaged.
		return s.processor.ProcessUser(ctx, userID)
	}

	if !j.running.TryLock() {
		return nil, ErrRunInProgress
	}
	defer j.running.Unlock()
	j.setInProgress(true)
	defer j.setInProgress(false)

	summary, err := s.processor.ProcessUser(ctx, userID)
	j.record(s.now(), summary)
	return summary, err
}

// Status reports whether a job exists for the user and its bookkeeping.
func (s *Scheduler) Status(userID string) Status {
	s.mu.Lock()
	j, ok := s.jobs[userID]
	s.mu.Unlock()
	if !ok {
		return Status{}
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	return Status{
		Active:        true,
		RunInProgress: j.inProgress,
		IntervalMins:  int(j.interval / time.Minute),
		LastRun:       j.lastRun,
		LastSummary:   j.lastSummary,
	}
}

// Shutdown cancels all timers and waits for in-flight runs to finish,
// so no run is interrupted mid-persist.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	for userID, j := range s.jobs {
		j.stop()
		delete(s.jobs, userID)
	}
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info().Msg("scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, j *job) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-j.ticker.C:
			// The run gets a context detached from the loop's, so a
			// cancel during Shutdown or RemoveUser stops future ticks
			// without interrupting the poll in flight.
			s.tick(context.WithoutCancel(ctx), j)
		}
	}
}

// tick runs one scheduled poll. Overlap and active-hours checks happen
// here so a reconfigured window takes effect on the next tick without a
// restart.
func (s *Scheduler) tick(ctx context.Context, j *job) {
	if !j.running.TryLock() {
		s.logger.Debug().Str("user_id", j.userID).Msg("previous run still in flight, skipping tick")
		return
	}
	defer j.running.Unlock()
	j.setInProgress(true)
	defer j.setInProgress(false)

	cfg, err := s.configRepo.Get(ctx, j.userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", j.userID).Msg("config load failed, skipping tick")
		return
	}

	now := s.now()
	if !withinActiveHours(now, cfg) {
		// Outside the window is a no-op but still counts as a run for
		// bookkeeping.
		j.record(now, nil)
		s.logger.Debug().Str("user_id", j.userID).Int("hour", now.In(cfg.Location()).Hour()).Msg("outside poll window, skipping")
		return
	}

	summary, err := s.processor.ProcessUser(ctx, j.userID)
	if err != nil {
		// A failed run must not stop future ticks.
		s.logger.Error().Err(err).Str("user_id", j.userID).Msg("poll run failed")
	}
	j.record(now, summary)
}

func withinActiveHours(now time.Time, cfg *model.UserConfig) bool {
	hour := now.In(cfg.Location()).Hour()
	return cfg.PollStartHour <= hour && hour <= cfg.PollEndHour
}

func (j *job) record(at time.Time, summary *service.RunSummary) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.lastRun = &at
	if summary != nil {
		j.lastSummary = summary
	}
}

func (j *job) setInProgress(v bool) {
	j.mu.Lock()
	j.inProgress = v
	j.mu.Unlock()
}

func (j *job) stop() {
	j.ticker.Stop()
	j.cancel()
}

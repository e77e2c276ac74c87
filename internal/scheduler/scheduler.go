package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robalyx/guildpulse/internal/database/types"
	"github.com/robalyx/guildpulse/internal/metrics"
	"github.com/robalyx/guildpulse/internal/setup/config"
	"github.com/robalyx/guildpulse/internal/worker/core"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// ErrAnalysisInProgress is returned by RunNow when the guild already has a run in flight.
var ErrAnalysisInProgress = errors.New("analysis already in progress")

// Trigger sources used for metrics and logs.
const (
	SourceHourly  = "hourly"
	SourceTrigger = "message_threshold"
	SourceManual  = "manual"
)

// Mode selects the trigger threshold for ingested messages.
type Mode int

const (
	// ModeLive is normal gateway traffic.
	ModeLive Mode = iota
	// ModeBackfill is bulk history collection.
	ModeBackfill
)

// Runner runs one analysis pass for a guild.
type Runner interface {
	RunAnalysis(ctx context.Context, guildID uint64) (*types.GuildHealth, error)
}

// GuildStore is the persistence the scheduler needs.
type GuildStore interface {
	ListActivePublicGuilds(ctx context.Context) ([]*types.GuildSchedule, error)
	TouchGuildAnalyzed(ctx context.Context, guildID uint64, at time.Time) error
	ResetMessageCounters(ctx context.Context, weekly bool) error
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

// WithReporter publishes progress through a worker status reporter.
func WithReporter(reporter *core.StatusReporter) Option {
	return func(s *Scheduler) {
		s.reporter = reporter
	}
}

// Scheduler decides when each guild is analyzed. At most one run per guild is
// in flight at any time; concurrent triggers for that guild are dropped.
type Scheduler struct {
	runner   Runner
	store    GuildStore
	counter  Counter
	cfg      config.Analysis
	states   runStates
	wg       sync.WaitGroup
	reporter *core.StatusReporter
	metrics  *metrics.Manager
	logger   *zap.Logger
	now      func() time.Time
}

// New creates a scheduler.
func New(
	runner Runner, store GuildStore, counter Counter, cfg config.Analysis,
	metricsManager *metrics.Manager, logger *zap.Logger, opts ...Option,
) *Scheduler {
	s := &Scheduler{
		runner:  runner,
		store:   store,
		counter: counter,
		cfg:     cfg,
		metrics: metricsManager,
		logger:  logger.Named("scheduler"),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// State returns the scheduling state of a guild given its last analysis time.
func (s *Scheduler) State(guildID uint64, lastAnalyzed time.Time) State {
	switch {
	case s.states.analyzing(guildID):
		return StateAnalyzing
	case s.inCooldown(lastAnalyzed, s.now()):
		return StateCooldown
	default:
		return StateEligible
	}
}

func (s *Scheduler) inCooldown(lastAnalyzed, now time.Time) bool {
	if lastAnalyzed.IsZero() {
		return false
	}
	return now.Sub(lastAnalyzed) < time.Duration(s.cfg.CooldownMinutes)*time.Minute
}

// Start runs the hourly loop until ctx is cancelled. Each tick fires at the
// top of the hour, resets period counters when due and analyzes every
// eligible guild.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Scheduler started")

	if s.reporter != nil {
		s.reporter.Start(ctx)
		defer s.reporter.Stop()
	}

	for {
		s.report("Waiting for next hour", 0, true)

		nextHour := s.now().UTC().Truncate(time.Hour).Add(time.Hour)
		timer := time.NewTimer(time.Until(nextHour))

		select {
		case <-ctx.Done():
			timer.Stop()
			s.Wait()
			s.logger.Info("Scheduler stopped")
			return
		case <-timer.C:
		}

		s.resetCounters(ctx)

		if _, err := s.Tick(ctx); err != nil {
			s.logger.Error("Hourly tick failed", zap.Error(err))
			s.report("Hourly tick failed", 0, false)
			continue
		}
	}
}

// ResetDue reports which period counters should be reset at the tick at now.
func ResetDue(now time.Time) (daily, weekly bool) {
	now = now.UTC()
	daily = now.Hour() == 0
	weekly = daily && now.Weekday() == time.Monday
	return daily, weekly
}

func (s *Scheduler) resetCounters(ctx context.Context) {
	daily, weekly := ResetDue(s.now())
	if !daily {
		return
	}

	if err := s.store.ResetMessageCounters(ctx, weekly); err != nil {
		s.logger.Error("Failed to reset message counters", zap.Error(err))
	}
}

// Tick analyzes every active public guild outside its cooldown and returns
// the number of runs performed.
func (s *Scheduler) Tick(ctx context.Context) (int, error) {
	s.report("Listing guilds", 0, true)

	guilds, err := s.store.ListActivePublicGuilds(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list guilds: %w", err)
	}

	now := s.now()
	due := make([]uint64, 0, len(guilds))
	for _, guild := range guilds {
		if s.inCooldown(guild.LastAnalyzed, now) {
			continue
		}
		due = append(due, guild.ID)
	}

	s.logger.Info("Hourly tick",
		zap.Int("guilds", len(guilds)),
		zap.Int("due", len(due)))

	var (
		p    = pool.New().WithMaxGoroutines(max(s.cfg.GuildConcurrency, 1))
		ran  atomic.Int32
		done atomic.Int32
	)

	for _, guildID := range due {
		p.Go(func() {
			if s.tryRun(ctx, guildID, SourceHourly) {
				ran.Add(1)
			}
			finished := done.Add(1)
			s.report("Analyzing guilds", int(finished)*100/len(due), true)
		})
	}

	p.Wait()

	s.report("Hourly tick completed", 100, true)

	return int(ran.Load()), nil
}

// OnMessageIngested counts a new message for the guild and dispatches an
// asynchronous run once the mode's threshold is reached. The cooldown does not
// apply. It reports whether a run was dispatched.
func (s *Scheduler) OnMessageIngested(ctx context.Context, guildID uint64, mode Mode) (bool, error) {
	count, err := s.counter.Increment(ctx, guildID)
	if err != nil {
		return false, err
	}

	if count < int64(s.threshold(mode)) {
		return false, nil
	}

	if !s.states.acquire(guildID) {
		// The counter keeps growing so the next message retries the dispatch.
		s.metrics.IncTriggerDropped()
		s.logger.Debug("Trigger dropped, analysis in progress",
			zap.Uint64("guildID", guildID),
			zap.Int64("queued", count))
		return false, nil
	}

	if err := s.counter.Reset(ctx, guildID); err != nil {
		s.logger.Warn("Failed to reset trigger counter", zap.Uint64("guildID", guildID), zap.Error(err))
	}

	runCtx := context.WithoutCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.states.release(guildID)

		s.execute(runCtx, guildID, SourceTrigger)
	}()

	return true, nil
}

// RunNow analyzes a guild synchronously, ignoring the cooldown.
func (s *Scheduler) RunNow(ctx context.Context, guildID uint64) (*types.GuildHealth, error) {
	if !s.states.acquire(guildID) {
		s.metrics.IncTriggerDropped()
		return nil, ErrAnalysisInProgress
	}
	defer s.states.release(guildID)

	return s.execute(ctx, guildID, SourceManual)
}

// Wait blocks until every dispatched asynchronous run has finished.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) threshold(mode Mode) int {
	if mode == ModeBackfill {
		return max(s.cfg.BackfillThreshold, 1)
	}
	return max(s.cfg.TriggerThreshold, 1)
}

// tryRun executes a run unless one is already in flight for the guild.
func (s *Scheduler) tryRun(ctx context.Context, guildID uint64, source string) bool {
	if !s.states.acquire(guildID) {
		s.metrics.IncTriggerDropped()
		s.logger.Debug("Guild already analyzing, skipping", zap.Uint64("guildID", guildID))
		return false
	}
	defer s.states.release(guildID)

	_, _ = s.execute(ctx, guildID, source)
	return true
}

// execute runs the pipeline for a guild whose state is already analyzing.
// last_analyzed is advanced whether or not the run succeeded.
func (s *Scheduler) execute(ctx context.Context, guildID uint64, source string) (*types.GuildHealth, error) {
	s.metrics.IncTrigger(source)
	s.metrics.AddInFlight(1)
	defer s.metrics.AddInFlight(-1)

	health, err := s.runner.RunAnalysis(ctx, guildID)
	if err != nil {
		s.logger.Error("Guild analysis failed",
			zap.Uint64("guildID", guildID),
			zap.String("source", source),
			zap.Error(err))
	}

	if touchErr := s.store.TouchGuildAnalyzed(ctx, guildID, s.now()); touchErr != nil {
		s.metrics.IncPersistenceError("touch_guild_analyzed")
		s.logger.Error("Failed to update last analyzed time",
			zap.Uint64("guildID", guildID),
			zap.Error(touchErr))
	}

	return health, err
}

func (s *Scheduler) report(task string, progress int, healthy bool) {
	if s.reporter == nil {
		return
	}
	s.reporter.UpdateStatus(task, progress)
	s.reporter.SetHealthy(healthy)
}

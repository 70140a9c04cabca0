package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/feral-file/ff-claims-checker/internal/checker"
	"github.com/feral-file/ff-claims-checker/internal/logger"
)

const (
	DEFAULT_SCHEDULE    = "0 */15 * * * *"
	DEFAULT_RUN_TIMEOUT = 10 * time.Minute
)

// ClaimsSchedulerConfig holds configuration for the claims scheduler
type ClaimsSchedulerConfig struct {
	Schedule   string        // Cron expression, seconds field optional
	RunTimeout time.Duration // Upper bound of a single run
	RunOnStart bool          // Run once immediately when started
}

// ClaimsScheduler is a Scheduler that can also be triggered on demand
type ClaimsScheduler interface {
	Scheduler

	// Trigger runs the checker now through the same single-flight chain as scheduled runs.
	// It returns immediately when a run is already in progress.
	Trigger()
}

// claimsScheduler runs the checker on a cron schedule, one run at a time
type claimsScheduler struct {
	config  *ClaimsSchedulerConfig
	checker checker.Checker
	cron    *cron.Cron
	job     cron.Job

	mu      sync.RWMutex
	baseCtx context.Context
	wg      sync.WaitGroup

	// a scheduler runs once; its channels are not reusable
	started   atomic.Bool
	running   atomic.Bool
	stopChan  chan struct{}
	stoppedCh chan struct{}
}

// NewClaimsScheduler creates a new claims scheduler; the schedule is parsed eagerly
func NewClaimsScheduler(config *ClaimsSchedulerConfig, c checker.Checker) (ClaimsScheduler, error) {
	if config.Schedule == "" {
		config.Schedule = DEFAULT_SCHEDULE
	}
	if config.RunTimeout <= 0 {
		config.RunTimeout = DEFAULT_RUN_TIMEOUT
	}

	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	schedule, err := parser.Parse(config.Schedule)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", config.Schedule, err)
	}

	cronLogger := newCronLogger()
	chain := cron.NewChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger))

	s := &claimsScheduler{
		config:    config,
		checker:   c,
		cron:      cron.New(cron.WithParser(parser), cron.WithLogger(cronLogger)),
		stopChan:  make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
	s.job = chain.Then(cron.FuncJob(s.runOnce))
	s.cron.Schedule(schedule, s.job)

	return s, nil
}

// Name returns the scheduler's name
func (s *claimsScheduler) Name() string {
	return "claims-scheduler"
}

// Start starts the cron loop and blocks until the context is canceled or Stop is called.
// A stopped scheduler cannot be started again.
func (s *claimsScheduler) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return fmt.Errorf("scheduler already started")
	}
	s.running.Store(true)
	defer func() {
		s.running.Store(false)
		close(s.stoppedCh)
	}()

	s.mu.Lock()
	s.baseCtx = ctx
	s.mu.Unlock()

	logger.InfoCtx(ctx, "Starting claims scheduler",
		zap.String("schedule", s.config.Schedule),
		zap.Duration("run_timeout", s.config.RunTimeout),
	)

	s.cron.Start()
	if s.config.RunOnStart {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.Trigger()
		}()
	}

	select {
	case <-ctx.Done():
		logger.InfoCtx(ctx, "Claims scheduler stopping due to context cancellation", zap.Error(ctx.Err()))
	case <-s.stopChan:
		logger.InfoCtx(ctx, "Claims scheduler stop requested")
	}

	// wait for in-flight runs
	<-s.cron.Stop().Done()
	s.wg.Wait()
	return nil
}

// Stop gracefully stops the scheduler with timeout support
func (s *claimsScheduler) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	logger.InfoCtx(ctx, "Stopping claims scheduler")
	close(s.stopChan)

	select {
	case <-s.stoppedCh:
		logger.InfoCtx(ctx, "Claims scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		logger.WarnCtx(ctx, "Claims scheduler stop interrupted by context timeout")
		return ctx.Err()
	}
}

// Trigger runs the checker now unless a run is in progress
func (s *claimsScheduler) Trigger() {
	s.job.Run()
}

// runOnce executes one bounded checker run
func (s *claimsScheduler) runOnce() {
	s.mu.RLock()
	base := s.baseCtx
	s.mu.RUnlock()
	if base == nil {
		base = context.Background()
	}

	ctx, cancel := context.WithTimeout(base, s.config.RunTimeout)
	defer cancel()

	results, err := s.checker.Run(ctx)
	if err != nil {
		logger.ErrorCtx(ctx, err, zap.String("scheduler", s.Name()))
		return
	}

	written := 0
	for _, r := range results {
		if r.Written {
			written++
		}
	}
	logger.InfoCtx(ctx, "Scheduled claims run completed",
		zap.Int("contracts", len(results)),
		zap.Int("written", written),
	)
}

package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
)

// JobFunc is one scheduled cycle; a returned error is logged, never
// propagated to the cron runner.
type JobFunc func(ctx context.Context) error

// jobState tracks a single job's non-overlap guard and last outcome,
// mirroring the teacher's jobEntry bookkeeping.
type jobState struct {
	mu      sync.Mutex
	running bool
	lastRun time.Time
	lastErr error
}

// Scheduler drives the alert cycle and sector cycle on independent
// cadences via robfig/cron, guarding each against overlapping runs.
type Scheduler struct {
	cron        *cron.Cron
	logger      arbor.ILogger
	alertCycle  JobFunc
	sectorCycle JobFunc
	alertState  *jobState
	sectorState *jobState
	running     bool
}

// NewScheduler constructs a Scheduler over the two cycle functions.
func NewScheduler(logger arbor.ILogger, alertCycle, sectorCycle JobFunc) *Scheduler {
	return &Scheduler{
		cron:        cron.New(),
		logger:      logger,
		alertCycle:  alertCycle,
		sectorCycle: sectorCycle,
		alertState:  &jobState{},
		sectorState: &jobState{},
	}
}

// Start registers both cycles at their configured cadence and starts the
// cron runner. ctx is passed through to every job invocation.
func (s *Scheduler) Start(ctx context.Context, alertCycleMinutes, sectorCycleMinutes int) error {
	if s.running {
		return fmt.Errorf("scheduler already running")
	}
	if alertCycleMinutes <= 0 || sectorCycleMinutes <= 0 {
		return fmt.Errorf("invalid cycle cadence: alert=%dm sector=%dm", alertCycleMinutes, sectorCycleMinutes)
	}

	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %dm", alertCycleMinutes), func() {
		s.runGuarded(ctx, "alert_cycle", s.alertState, s.alertCycle)
	}); err != nil {
		return fmt.Errorf("register alert cycle: %w", err)
	}

	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %dm", sectorCycleMinutes), func() {
		s.runGuarded(ctx, "sector_cycle", s.sectorState, s.sectorCycle)
	}); err != nil {
		return fmt.Errorf("register sector cycle: %w", err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info().Int("alert_cycle_minutes", alertCycleMinutes).Int("sector_cycle_minutes", sectorCycleMinutes).Msg("scheduler started")
	return nil
}

// Warmup runs both cycles once immediately, concurrently, without waiting
// for their first cron tick - so a freshly started process doesn't sit
// idle for a full cycle period before producing its first evaluation.
func (s *Scheduler) Warmup(ctx context.Context) {
	go s.runGuarded(ctx, "alert_cycle", s.alertState, s.alertCycle)
	go s.runGuarded(ctx, "sector_cycle", s.sectorState, s.sectorCycle)
}

// Stop halts the cron runner, waiting for any in-flight job to finish.
func (s *Scheduler) Stop() {
	if !s.running {
		return
	}
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.running = false
	s.logger.Info().Msg("scheduler stopped")
}

func (s *Scheduler) runGuarded(ctx context.Context, name string, state *jobState, fn JobFunc) {
	state.mu.Lock()
	if state.running {
		state.mu.Unlock()
		s.logger.Warn().Str("job", name).Msg("skipping cycle, previous run still in progress")
		return
	}
	state.running = true
	state.mu.Unlock()

	start := time.Now()
	err := fn(ctx)

	state.mu.Lock()
	state.running = false
	state.lastRun = time.Now()
	state.lastErr = err
	state.mu.Unlock()

	if err != nil {
		s.logger.Error().Err(err).Str("job", name).Dur("duration", time.Since(start)).Msg("cycle failed")
		return
	}
	s.logger.Debug().Str("job", name).Dur("duration", time.Since(start)).Msg("cycle completed")
}

// Package scheduler drives the recurring weather refresh loop on a
// time-of-day cadence.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benmeehan/weather-display-agent/internal/constants"
	"github.com/benmeehan/weather-display-agent/internal/models"
	"github.com/benmeehan/weather-display-agent/internal/weather"
	"github.com/rs/zerolog"
)

// State is the lifecycle state of the scheduler.
type State int

const (
	StateStopped State = iota
	StateRunning
	StatePaused
)

// CycleFunc runs one refresh cycle. The returned error steers the
// failure accounting: nil resets the counter, a weather fetch error
// increments it on the normal cadence, anything else triggers a fixed
// cooldown before the next wake.
type CycleFunc func(ctx context.Context) error

// RefreshScheduler wakes on a wall-clock-dependent interval and runs one
// refresh cycle per wake. At most one cycle is ever in flight; pause and
// stop cancel pending wakes but never an in-flight cycle. A stopped
// scheduler cannot be restarted.
type RefreshScheduler struct {
	cycle          CycleFunc
	firstTickDelay time.Duration
	cooldown       time.Duration
	now            func() time.Time
	logger         zerolog.Logger

	mu         sync.Mutex
	state      State
	terminated bool
	failures   int
	nextWake   time.Time
	immediate  bool // one out-of-band tick owed after a resume

	wakeCh chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRefreshScheduler initializes a new RefreshScheduler. Zero durations
// fall back to the defaults.
func NewRefreshScheduler(cycle CycleFunc, firstTickDelay, cooldown time.Duration, logger zerolog.Logger) *RefreshScheduler {
	if firstTickDelay == 0 {
		firstTickDelay = constants.DefaultFirstTickDelay
	}
	if cooldown == 0 {
		cooldown = constants.UnexpectedErrorCooldown
	}

	return &RefreshScheduler{
		cycle:          cycle,
		firstTickDelay: firstTickDelay,
		cooldown:       cooldown,
		now:            time.Now,
		logger:         logger,
		wakeCh:         make(chan struct{}, 1),
	}
}

// NextInterval returns the refresh interval for the given local
// wall-clock hour: overnight hours poll every four hours, the morning
// and evening commute windows every thirty minutes, daytime hourly.
func NextInterval(hour int) time.Duration {
	switch {
	case hour >= 23 || hour < 6:
		return 4 * time.Hour
	case (hour >= 6 && hour < 9) || (hour >= 17 && hour < 20):
		return 30 * time.Minute
	default:
		return time.Hour
	}
}

// Start launches the refresh loop. The first cycle runs after a short
// fixed delay rather than immediately. Starting a scheduler that is
// already running is a no-op; only a scheduler that was stopped refuses,
// since stopped instances are not reusable.
func (s *RefreshScheduler) Start() error {
	s.mu.Lock()
	if s.terminated {
		s.mu.Unlock()
		s.logger.Warn().Msg("RefreshScheduler cannot be restarted after stop")
		return errors.New("refresh scheduler is already stopped")
	}
	if s.state != StateStopped {
		s.mu.Unlock()
		s.logger.Warn().Msg("RefreshScheduler is already running")
		return nil
	}
	s.state = StateRunning
	s.nextWake = s.now().Add(s.firstTickDelay)
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		s.run()
	}()

	s.logger.Info().Dur("first_tick_in", s.firstTickDelay).Msg("RefreshScheduler started successfully")
	return nil
}

// Pause cancels the pending wake. The failure counter is kept and an
// in-flight cycle still runs to completion.
func (s *RefreshScheduler) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRunning {
		s.logger.Warn().Msg("RefreshScheduler is not running, cannot pause")
		return errors.New("refresh scheduler is not running")
	}
	s.state = StatePaused
	s.immediate = false
	s.nextWake = time.Time{}
	s.notify()

	s.logger.Info().Int("consecutive_failures", s.failures).Msg("RefreshScheduler paused")
	return nil
}

// Resume schedules one immediate out-of-band cycle and then returns to
// the normal cadence.
func (s *RefreshScheduler) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StatePaused {
		s.logger.Warn().Msg("RefreshScheduler is not paused, cannot resume")
		return errors.New("refresh scheduler is not paused")
	}
	s.state = StateRunning
	s.immediate = true
	s.notify()

	s.logger.Info().Msg("RefreshScheduler resumed, refreshing now")
	return nil
}

// Stop shuts the scheduler down for good; the instance cannot be
// reused. An in-flight cycle runs to completion first. Stop is valid
// from any state, and stopping twice is a no-op.
func (s *RefreshScheduler) Stop() error {
	s.mu.Lock()
	if s.terminated {
		s.mu.Unlock()
		s.logger.Warn().Msg("RefreshScheduler is already stopped")
		return nil
	}
	started := s.state != StateStopped
	cancel := s.cancel
	s.state = StateStopped
	s.terminated = true
	s.nextWake = time.Time{}
	s.mu.Unlock()

	if started {
		cancel()
		s.wg.Wait()
	}

	s.logger.Info().Msg("RefreshScheduler stopped successfully")
	return nil
}

// Schedule returns a point-in-time view of the scheduler.
func (s *RefreshScheduler) Schedule() models.RefreshSchedule {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.RefreshSchedule{
		NextWakeAt:          s.nextWake,
		IsPaused:            s.state == StatePaused,
		ConsecutiveFailures: s.failures,
	}
}

// run is the wake loop. Pause and resume nudge it through wakeCh; the
// loop re-reads the state on each nudge rather than trusting the
// signal, so toggles that land while a cycle is in flight collapse to
// whatever the latest state asks for. Ticks cannot queue: a wake that
// fires while paused or mid-cycle is dropped, not deferred.
func (s *RefreshScheduler) run() {
	timer := time.NewTimer(s.firstTickDelay)
	defer timer.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return

		case <-s.wakeCh:
			s.mu.Lock()
			running := s.state == StateRunning
			immediate := s.immediate
			s.immediate = false
			s.mu.Unlock()

			if !running {
				stopTimer(timer)
				continue
			}
			if immediate {
				s.tick(timer)
			}

		case <-timer.C:
			if !s.isRunning() {
				continue
			}
			s.tick(timer)
		}
	}
}

// tick runs one cycle and, when the scheduler is still running
// afterwards, arms the timer for the next wake. The cycle context is
// deliberately detached from the scheduler lifecycle: stop never cancels
// an in-flight fetch, the provider's own timeouts bound it.
func (s *RefreshScheduler) tick(timer *time.Timer) {
	err := s.cycle(context.Background())

	s.mu.Lock()
	if err != nil {
		s.failures++
	} else {
		s.failures = 0
	}
	failures := s.failures
	stillRunning := s.state == StateRunning
	s.mu.Unlock()

	unexpected := err != nil && !weather.IsFetchError(err)
	if unexpected {
		s.logger.Warn().Err(err).Int("consecutive_failures", failures).Msg("Refresh cycle failed unexpectedly, backing off")
	} else if err != nil {
		s.logger.Warn().Err(err).Int("consecutive_failures", failures).Msg("Refresh cycle failed")
	}

	if !stillRunning {
		return
	}

	delay := NextInterval(s.now().Hour())
	if unexpected {
		delay = s.cooldown
	}

	s.mu.Lock()
	s.nextWake = s.now().Add(delay)
	s.mu.Unlock()

	stopTimer(timer)
	timer.Reset(delay)
	s.logger.Debug().Dur("next_tick_in", delay).Msg("Next refresh scheduled")
}

// notify nudges the run loop without blocking. A single buffered token
// is enough: the loop re-reads the state on every wake, so a send
// dropped while a token is already pending loses nothing.
func (s *RefreshScheduler) notify() {
	select {
	case s.wakeCh <- struct{}{}:
	default:
	}
}

func (s *RefreshScheduler) isRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateRunning
}

// stopTimer halts a timer and drains a fired-but-unread tick so a later
// Reset starts clean.
func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}

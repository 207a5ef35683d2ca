package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benmeehan/weather-display-agent/internal/engine"
	"github.com/benmeehan/weather-display-agent/internal/models"
	"github.com/benmeehan/weather-display-agent/internal/scheduler"
	"github.com/benmeehan/weather-display-agent/internal/sink"
	"github.com/benmeehan/weather-display-agent/internal/weather"
	"github.com/rs/zerolog"
)

// Refresher triggers an out-of-band weather refresh.
type Refresher interface {
	Refresh(ctx context.Context)
}

// WeatherService owns the refresh loop: it fetches current conditions on
// the scheduler's cadence, reconciles every result into the presentation
// state, and reacts to host subscription and standby events.
type WeatherService struct {
	Location models.Location
	Provider weather.Provider
	Engine   *engine.Engine
	Events   sink.HostEvents
	Logger   zerolog.Logger

	EntityID       string
	FirstTickDelay time.Duration

	// mu guards the scheduler handle; host event handlers run on the
	// sink's callback goroutines.
	mu        sync.Mutex
	scheduler *scheduler.RefreshScheduler

	// registerOnce keeps a restart from stacking duplicate host event
	// handlers on the sink.
	registerOnce sync.Once

	// cycleMu serializes refresh cycles across the scheduler and
	// out-of-band triggers.
	cycleMu sync.Mutex
}

// NewWeatherService initializes a new WeatherService.
func NewWeatherService(location models.Location, provider weather.Provider, reconciler *engine.Engine,
	events sink.HostEvents, entityID string, firstTickDelay time.Duration, logger zerolog.Logger) *WeatherService {

	return &WeatherService{
		Location:       location,
		Provider:       provider,
		Engine:         reconciler,
		Events:         events,
		Logger:         logger,
		EntityID:       entityID,
		FirstTickDelay: firstTickDelay,
	}
}

// Start registers the host event handlers and launches the scheduler.
// Each start builds a fresh scheduler; the handlers are registered only
// on the first one because the sink has no removal API.
func (w *WeatherService) Start() error {
	w.mu.Lock()
	if w.scheduler != nil {
		w.mu.Unlock()
		w.Logger.Warn().Msg("WeatherService is already running")
		return errors.New("weather service is already running")
	}
	sched := scheduler.NewRefreshScheduler(w.RunCycle, w.FirstTickDelay, 0, w.Logger)
	w.scheduler = sched
	w.mu.Unlock()

	w.registerOnce.Do(func() {
		w.Events.OnSubscriptionChange(w.handleSubscriptionChange)
		w.Events.OnStandbyChange(w.handleStandbyChange)
	})

	if err := sched.Start(); err != nil {
		w.mu.Lock()
		w.scheduler = nil
		w.mu.Unlock()
		return err
	}

	w.Logger.Info().
		Str("location", w.Location.DisplayName).
		Str("entity_id", w.EntityID).
		Msg("WeatherService started successfully")
	return nil
}

// Stop halts the scheduler. An in-flight cycle completes first; standby
// events arriving during the drain see no scheduler and fall through.
func (w *WeatherService) Stop() error {
	w.mu.Lock()
	sched := w.scheduler
	w.scheduler = nil
	w.mu.Unlock()

	if sched == nil {
		w.Logger.Warn().Msg("WeatherService is not running")
		return errors.New("weather service is not running")
	}

	if err := sched.Stop(); err != nil {
		return err
	}

	w.Logger.Info().Msg("WeatherService stopped successfully")
	return nil
}

// RunCycle performs one fetch-and-reconcile pass. Both outcomes feed the
// engine: a failed fetch degrades the display rather than freezing it.
func (w *WeatherService) RunCycle(ctx context.Context) error {
	w.cycleMu.Lock()
	defer w.cycleMu.Unlock()

	snapshot, err := w.Provider.FetchCurrent(ctx, w.Location)
	w.Engine.Reconcile(snapshot, err)
	return err
}

// Refresh runs one out-of-band cycle, used by host commands and
// subscription events. Errors are already handled by the engine.
func (w *WeatherService) Refresh(ctx context.Context) {
	if err := w.RunCycle(ctx); err != nil {
		w.Logger.Warn().Err(err).Msg("On-demand refresh failed")
	}
}

// Schedule reports the scheduler's current state for diagnostics.
func (w *WeatherService) Schedule() models.RefreshSchedule {
	w.mu.Lock()
	sched := w.scheduler
	w.mu.Unlock()

	if sched == nil {
		return models.RefreshSchedule{}
	}
	return sched.Schedule()
}

// handleSubscriptionChange re-sends the current state to a fresh
// subscriber and refreshes in the background so stale data does not
// linger on the display.
func (w *WeatherService) handleSubscriptionChange(entityID string, subscribed bool) {
	if entityID != w.EntityID {
		w.Logger.Debug().Str("entity_id", entityID).Msg("Ignoring subscription for unknown entity")
		return
	}
	if !subscribed {
		w.Logger.Info().Str("entity_id", entityID).Msg("Host unsubscribed from entity")
		return
	}

	w.Logger.Info().Str("entity_id", entityID).Msg("Host subscribed to entity")
	w.Engine.Resync()
	go w.Refresh(context.Background())
}

// handleStandbyChange maps host standby to scheduler pause and resume.
// Repeated notifications for the current state are ignored.
func (w *WeatherService) handleStandbyChange(standby bool) {
	w.mu.Lock()
	sched := w.scheduler
	w.mu.Unlock()
	if sched == nil {
		return
	}

	if standby {
		if err := sched.Pause(); err != nil {
			w.Logger.Debug().Err(err).Msg("Standby notification ignored")
		}
		return
	}
	if err := sched.Resume(); err != nil {
		w.Logger.Debug().Err(err).Msg("Wake notification ignored")
	}
}

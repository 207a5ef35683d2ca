package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benmeehan/weather-display-agent/internal/engine"
	"github.com/benmeehan/weather-display-agent/internal/models"
	"github.com/benmeehan/weather-display-agent/internal/sink"
	"github.com/benmeehan/weather-display-agent/internal/weather"
	"github.com/benmeehan/weather-display-agent/pkg/icons"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockWeatherProvider is a mock implementation of the weather Provider interface
type MockWeatherProvider struct {
	mock.Mock
}

func (m *MockWeatherProvider) FetchCurrent(ctx context.Context, loc models.Location) (models.WeatherSnapshot, error) {
	args := m.Called(ctx, loc)
	return args.Get(0).(models.WeatherSnapshot), args.Error(1)
}

// MockPresentationSink is a mock implementation of the PresentationSink interface
type MockPresentationSink struct {
	mock.Mock
}

func (m *MockPresentationSink) IsSubscribed(entityID string) bool {
	args := m.Called(entityID)
	return args.Bool(0)
}

func (m *MockPresentationSink) PushAttributes(entityID string, attrs map[string]string) error {
	args := m.Called(entityID, attrs)
	return args.Error(0)
}

// stubHostEvents records registered handlers so tests can fire host
// notifications directly.
type stubHostEvents struct {
	subscriptionHandlers []sink.SubscriptionHandler
	standbyHandlers      []sink.StandbyHandler
}

func (s *stubHostEvents) OnSubscriptionChange(handler sink.SubscriptionHandler) {
	s.subscriptionHandlers = append(s.subscriptionHandlers, handler)
}

func (s *stubHostEvents) OnStandbyChange(handler sink.StandbyHandler) {
	s.standbyHandlers = append(s.standbyHandlers, handler)
}

func testWeatherLocation() models.Location {
	return models.Location{
		Latitude:    40.7128,
		Longitude:   -74.0060,
		DisplayName: "New York, New York",
		Unit:        models.UnitFahrenheit,
	}
}

func testSnapshot() models.WeatherSnapshot {
	return models.WeatherSnapshot{
		Temperature:   72.46,
		Unit:          models.UnitFahrenheit,
		ConditionCode: 0,
		IsDaytime:     true,
		Humidity:      83,
		WindSpeedMPH:  9.4,
		ObservedAt:    time.Date(2025, 1, 15, 13, 45, 0, 0, time.UTC),
		Description:   "Clear sky",
		IconKey:       "sun.png",
	}
}

func newTestWeatherService(provider *MockWeatherProvider, presentationSink *MockPresentationSink,
	events *stubHostEvents) *WeatherService {

	reconciler := engine.NewEngine(presentationSink, "entity-1", "New York, New York",
		icons.NewEncoder(zerolog.Nop()), zerolog.Nop())
	return NewWeatherService(testWeatherLocation(), provider, reconciler, events,
		"entity-1", 20*time.Millisecond, zerolog.Nop())
}

// TestWeatherService_RunCycle_Success verifies a successful fetch is
// reconciled into the presentation state and pushed to the host.
func TestWeatherService_RunCycle_Success(t *testing.T) {
	// Setup
	provider := new(MockWeatherProvider)
	presentationSink := new(MockPresentationSink)
	ws := newTestWeatherService(provider, presentationSink, &stubHostEvents{})

	provider.On("FetchCurrent", mock.Anything, testWeatherLocation()).Return(testSnapshot(), nil)
	presentationSink.On("IsSubscribed", "entity-1").Return(true)

	var pushed map[string]string
	presentationSink.On("PushAttributes", "entity-1", mock.Anything).Run(func(args mock.Arguments) {
		pushed = args.Get(1).(map[string]string)
	}).Return(nil)

	// Execute
	err := ws.RunCycle(context.Background())

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, "72.5°F", pushed["subtitle_primary"])
	assert.Equal(t, "Clear sky", pushed["subtitle_secondary"])
	assert.Equal(t, "New York, New York", pushed["title"])
}

// TestWeatherService_RunCycle_FetchFailure verifies a failed fetch is
// still reconciled so the display degrades instead of freezing.
func TestWeatherService_RunCycle_FetchFailure(t *testing.T) {
	// Setup
	provider := new(MockWeatherProvider)
	presentationSink := new(MockPresentationSink)
	ws := newTestWeatherService(provider, presentationSink, &stubHostEvents{})

	fetchErr := fmt.Errorf("%w: status 503", weather.ErrUpstream)
	provider.On("FetchCurrent", mock.Anything, testWeatherLocation()).Return(models.WeatherSnapshot{}, fetchErr)
	presentationSink.On("IsSubscribed", "entity-1").Return(true)

	var pushed map[string]string
	presentationSink.On("PushAttributes", "entity-1", mock.Anything).Run(func(args mock.Arguments) {
		pushed = args.Get(1).(map[string]string)
	}).Return(nil)

	// Execute
	err := ws.RunCycle(context.Background())

	// Assert
	assert.ErrorIs(t, err, weather.ErrUpstream)
	assert.Equal(t, "N/A", pushed["subtitle_primary"])
	assert.Equal(t, "Data unavailable", pushed["subtitle_secondary"])
	assert.Equal(t, "New York, New York", pushed["title"])
}

// TestWeatherService_StartStop verifies the service lifecycle and its
// transition errors.
func TestWeatherService_StartStop(t *testing.T) {
	// Setup
	provider := new(MockWeatherProvider)
	presentationSink := new(MockPresentationSink)
	events := &stubHostEvents{}
	ws := newTestWeatherService(provider, presentationSink, events)

	provider.On("FetchCurrent", mock.Anything, mock.Anything).Return(testSnapshot(), nil)
	presentationSink.On("IsSubscribed", "entity-1").Return(false)

	// Execute
	err := ws.Start()

	// Assert
	assert.NoError(t, err)
	assert.Len(t, events.subscriptionHandlers, 1)
	assert.Len(t, events.standbyHandlers, 1)

	err = ws.Start()
	assert.Error(t, err)
	assert.Equal(t, "weather service is already running", err.Error())

	assert.NoError(t, ws.Stop())

	err = ws.Stop()
	assert.Error(t, err)
	assert.Equal(t, "weather service is not running", err.Error())
}

// TestWeatherService_RestartRegistersHandlersOnce verifies a stop and
// restart does not stack duplicate host event handlers.
func TestWeatherService_RestartRegistersHandlersOnce(t *testing.T) {
	// Setup
	provider := new(MockWeatherProvider)
	presentationSink := new(MockPresentationSink)
	events := &stubHostEvents{}
	ws := newTestWeatherService(provider, presentationSink, events)
	ws.FirstTickDelay = time.Minute

	provider.On("FetchCurrent", mock.Anything, mock.Anything).Return(testSnapshot(), nil)
	presentationSink.On("IsSubscribed", "entity-1").Return(false)

	// Execute
	assert.NoError(t, ws.Start())
	assert.NoError(t, ws.Stop())
	assert.NoError(t, ws.Start())
	defer ws.Stop()

	// Assert
	assert.Len(t, events.subscriptionHandlers, 1)
	assert.Len(t, events.standbyHandlers, 1)
}

// TestWeatherService_StandbyAfterStop verifies standby notifications
// arriving during shutdown are ignored once the scheduler is gone.
func TestWeatherService_StandbyAfterStop(t *testing.T) {
	// Setup
	provider := new(MockWeatherProvider)
	presentationSink := new(MockPresentationSink)
	events := &stubHostEvents{}
	ws := newTestWeatherService(provider, presentationSink, events)
	ws.FirstTickDelay = time.Minute

	provider.On("FetchCurrent", mock.Anything, mock.Anything).Return(testSnapshot(), nil)
	presentationSink.On("IsSubscribed", "entity-1").Return(false)

	assert.NoError(t, ws.Start())
	assert.NoError(t, ws.Stop())

	// Execute
	assert.NotPanics(t, func() {
		events.standbyHandlers[0](true)
		events.standbyHandlers[0](false)
	})

	// Assert
	assert.True(t, ws.Schedule().NextWakeAt.IsZero())
	assert.False(t, ws.Schedule().IsPaused)
}

// TestWeatherService_Schedule_NotRunning verifies the schedule snapshot
// is zero before the service starts.
func TestWeatherService_Schedule_NotRunning(t *testing.T) {
	// Setup
	provider := new(MockWeatherProvider)
	presentationSink := new(MockPresentationSink)
	ws := newTestWeatherService(provider, presentationSink, &stubHostEvents{})

	// Execute
	schedule := ws.Schedule()

	// Assert
	assert.True(t, schedule.NextWakeAt.IsZero())
	assert.False(t, schedule.IsPaused)
	assert.Equal(t, 0, schedule.ConsecutiveFailures)
}

// TestWeatherService_SubscriptionResync verifies a fresh subscription
// re-pushes the current state and triggers a background refresh.
func TestWeatherService_SubscriptionResync(t *testing.T) {
	// Setup
	provider := new(MockWeatherProvider)
	presentationSink := new(MockPresentationSink)
	events := &stubHostEvents{}
	ws := newTestWeatherService(provider, presentationSink, events)

	var fetches, pushes atomic.Int64
	provider.On("FetchCurrent", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		fetches.Add(1)
	}).Return(testSnapshot(), nil)
	presentationSink.On("IsSubscribed", "entity-1").Return(true)
	presentationSink.On("PushAttributes", "entity-1", mock.Anything).Run(func(args mock.Arguments) {
		pushes.Add(1)
	}).Return(nil)

	assert.NoError(t, ws.Start())
	defer ws.Stop()

	// Execute
	events.subscriptionHandlers[0]("entity-1", true)

	// Assert
	// Resync pushes synchronously inside the handler; the refresh runs in
	// the background.
	assert.GreaterOrEqual(t, pushes.Load(), int64(1))
	assert.Eventually(t, func() bool {
		return fetches.Load() >= 1
	}, time.Second, 10*time.Millisecond)
}

// TestWeatherService_SubscriptionForeignEntity verifies notifications
// for other entities are ignored.
func TestWeatherService_SubscriptionForeignEntity(t *testing.T) {
	// Setup
	provider := new(MockWeatherProvider)
	presentationSink := new(MockPresentationSink)
	events := &stubHostEvents{}
	ws := newTestWeatherService(provider, presentationSink, events)

	provider.On("FetchCurrent", mock.Anything, mock.Anything).Return(testSnapshot(), nil)
	presentationSink.On("IsSubscribed", mock.Anything).Return(false)

	assert.NoError(t, ws.Start())
	defer ws.Stop()

	// Execute
	events.subscriptionHandlers[0]("entity-2", true)

	// Assert
	presentationSink.AssertNotCalled(t, "PushAttributes", mock.Anything, mock.Anything)
}

// TestWeatherService_StandbyPausesScheduler verifies host standby maps
// onto scheduler pause and wake maps onto resume.
func TestWeatherService_StandbyPausesScheduler(t *testing.T) {
	// Setup
	provider := new(MockWeatherProvider)
	presentationSink := new(MockPresentationSink)
	events := &stubHostEvents{}
	ws := newTestWeatherService(provider, presentationSink, events)
	ws.FirstTickDelay = time.Minute

	provider.On("FetchCurrent", mock.Anything, mock.Anything).Return(testSnapshot(), nil)
	presentationSink.On("IsSubscribed", "entity-1").Return(false)

	assert.NoError(t, ws.Start())
	defer ws.Stop()

	// Execute
	events.standbyHandlers[0](true)

	// Assert
	assert.True(t, ws.Schedule().IsPaused)

	// Repeated standby notifications are ignored.
	events.standbyHandlers[0](true)
	assert.True(t, ws.Schedule().IsPaused)

	events.standbyHandlers[0](false)
	assert.False(t, ws.Schedule().IsPaused)
}

package engine

import (
	"errors"
	"strings"
	"testing"

	"github.com/benmeehan/weather-display-agent/internal/models"
	"github.com/benmeehan/weather-display-agent/pkg/icons"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

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

func clearSkySnapshot() models.WeatherSnapshot {
	return models.WeatherSnapshot{
		Temperature:   72.46,
		Unit:          models.UnitFahrenheit,
		ConditionCode: 0,
		IsDaytime:     true,
		Description:   "Clear sky",
		IconKey:       "sun.png",
	}
}

// TestFormatTemperature verifies the one-decimal rendering, including
// the float edge cases around .05 and negative zero.
func TestFormatTemperature(t *testing.T) {
	assert.Equal(t, "21.1°F", FormatTemperature(21.05, models.UnitFahrenheit))
	assert.Equal(t, "-0.0°C", FormatTemperature(-0.04, models.UnitCelsius))
	assert.Equal(t, "72.0°F", FormatTemperature(72.0, models.UnitFahrenheit))
	assert.Equal(t, "-5.5°C", FormatTemperature(-5.5, models.UnitCelsius))
}

// TestEngine_InitialState verifies the loading placeholder seeded before
// the first reconcile.
func TestEngine_InitialState(t *testing.T) {
	mockSink := new(MockPresentationSink)
	e := NewEngine(mockSink, "entity-1", "New York, New York", icons.NewEncoder(zerolog.Nop()), zerolog.Nop())

	state := e.State()
	assert.Equal(t, "New York, New York", state.Title)
	assert.Equal(t, "Loading...", state.SubtitlePrimary)
	assert.Equal(t, "Fetching weather...", state.SubtitleSecondary)
	assert.Equal(t, models.PowerOn, state.Power)
}

// TestEngine_Reconcile_Success verifies a successful fetch maps onto the
// full presentation state and is pushed to the subscribed host.
func TestEngine_Reconcile_Success(t *testing.T) {
	// Setup
	mockSink := new(MockPresentationSink)
	encoder := icons.NewEncoder(zerolog.Nop())
	e := NewEngine(mockSink, "entity-1", "New York, New York", encoder, zerolog.Nop())

	var pushed map[string]string
	mockSink.On("IsSubscribed", "entity-1").Return(true)
	mockSink.On("PushAttributes", "entity-1", mock.Anything).Run(func(args mock.Arguments) {
		pushed = args.Get(1).(map[string]string)
	}).Return(nil)

	// Execute
	state := e.Reconcile(clearSkySnapshot(), nil)

	// Assert
	assert.Equal(t, "New York, New York", state.Title)
	assert.Equal(t, "72.5°F", state.SubtitlePrimary)
	assert.Equal(t, "Clear sky", state.SubtitleSecondary)
	assert.Equal(t, encoder.DataURL("sun.png"), state.ImageRef)
	assert.Equal(t, models.PowerOn, state.Power)

	mockSink.AssertNumberOfCalls(t, "PushAttributes", 1)
	assert.Equal(t, "ON", pushed["state"])
	assert.Equal(t, "New York, New York", pushed["title"])
	assert.Equal(t, "72.5°F", pushed["subtitle_primary"])
	assert.Equal(t, "Clear sky", pushed["subtitle_secondary"])
	assert.True(t, strings.HasPrefix(pushed["image_url"], "data:image/png;base64,"))
}

// TestEngine_Reconcile_FailureKeepsTitleAndPower verifies a failed fetch
// degrades the subtitles without touching the rest of the state.
func TestEngine_Reconcile_FailureKeepsTitleAndPower(t *testing.T) {
	// Setup
	mockSink := new(MockPresentationSink)
	encoder := icons.NewEncoder(zerolog.Nop())
	e := NewEngine(mockSink, "entity-1", "New York, New York", encoder, zerolog.Nop())

	mockSink.On("IsSubscribed", "entity-1").Return(true)
	mockSink.On("PushAttributes", "entity-1", mock.Anything).Return(nil)

	e.Reconcile(clearSkySnapshot(), nil)

	// Execute
	state := e.Reconcile(models.WeatherSnapshot{}, errors.New("boom"))

	// Assert
	assert.Equal(t, "New York, New York", state.Title)
	assert.Equal(t, "N/A", state.SubtitlePrimary)
	assert.Equal(t, "Data unavailable", state.SubtitleSecondary)
	assert.Equal(t, encoder.DataURL(icons.FallbackKey), state.ImageRef)
	assert.Equal(t, models.PowerOn, state.Power)
}

// TestEngine_Reconcile_UnchangedSkipsPush verifies identical reconciles
// push only once.
func TestEngine_Reconcile_UnchangedSkipsPush(t *testing.T) {
	mockSink := new(MockPresentationSink)
	e := NewEngine(mockSink, "entity-1", "New York, New York", icons.NewEncoder(zerolog.Nop()), zerolog.Nop())

	mockSink.On("IsSubscribed", "entity-1").Return(true)
	mockSink.On("PushAttributes", "entity-1", mock.Anything).Return(nil)

	e.Reconcile(clearSkySnapshot(), nil)
	e.Reconcile(clearSkySnapshot(), nil)
	e.Reconcile(clearSkySnapshot(), nil)

	mockSink.AssertNumberOfCalls(t, "PushAttributes", 1)
}

// TestEngine_Reconcile_NoSubscriberSkipsPush verifies nothing is pushed
// while the host is not subscribed, though the state still updates.
func TestEngine_Reconcile_NoSubscriberSkipsPush(t *testing.T) {
	mockSink := new(MockPresentationSink)
	e := NewEngine(mockSink, "entity-1", "New York, New York", icons.NewEncoder(zerolog.Nop()), zerolog.Nop())

	mockSink.On("IsSubscribed", "entity-1").Return(false)

	state := e.Reconcile(clearSkySnapshot(), nil)

	assert.Equal(t, "72.5°F", state.SubtitlePrimary)
	mockSink.AssertNotCalled(t, "PushAttributes", mock.Anything, mock.Anything)
}

// TestEngine_Reconcile_PushFailureStillCountsAsDelivered verifies a
// broker-side failure does not cause a re-push of an unchanged state.
func TestEngine_Reconcile_PushFailureStillCountsAsDelivered(t *testing.T) {
	mockSink := new(MockPresentationSink)
	e := NewEngine(mockSink, "entity-1", "New York, New York", icons.NewEncoder(zerolog.Nop()), zerolog.Nop())

	mockSink.On("IsSubscribed", "entity-1").Return(true)
	mockSink.On("PushAttributes", "entity-1", mock.Anything).Return(errors.New("broker down"))

	e.Reconcile(clearSkySnapshot(), nil)
	e.Reconcile(clearSkySnapshot(), nil)

	mockSink.AssertNumberOfCalls(t, "PushAttributes", 1)
}

// TestEngine_Resync verifies a resync re-pushes the current state even
// when it matches the last delivery.
func TestEngine_Resync(t *testing.T) {
	mockSink := new(MockPresentationSink)
	e := NewEngine(mockSink, "entity-1", "New York, New York", icons.NewEncoder(zerolog.Nop()), zerolog.Nop())

	mockSink.On("IsSubscribed", "entity-1").Return(true)
	mockSink.On("PushAttributes", "entity-1", mock.Anything).Return(nil)

	e.Reconcile(clearSkySnapshot(), nil)
	e.Resync()

	mockSink.AssertNumberOfCalls(t, "PushAttributes", 2)
}

// TestEngine_Resync_NoSubscriber verifies resync is a no-op without a
// subscriber.
func TestEngine_Resync_NoSubscriber(t *testing.T) {
	mockSink := new(MockPresentationSink)
	e := NewEngine(mockSink, "entity-1", "New York, New York", icons.NewEncoder(zerolog.Nop()), zerolog.Nop())

	mockSink.On("IsSubscribed", "entity-1").Return(false)

	e.Resync()

	mockSink.AssertNotCalled(t, "PushAttributes", mock.Anything, mock.Anything)
}

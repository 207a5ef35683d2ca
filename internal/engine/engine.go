// Package engine reconciles weather fetch outcomes into the presentation
// state shown by the remote host.
package engine

import (
	"fmt"
	"sync"

	"github.com/benmeehan/weather-display-agent/internal/models"
	"github.com/benmeehan/weather-display-agent/internal/sink"
	"github.com/benmeehan/weather-display-agent/pkg/icons"
	"github.com/rs/zerolog"
)

// Display strings for the states that carry no observation.
const (
	loadingPrimary    = "Loading..."
	loadingSecondary  = "Fetching weather..."
	degradedPrimary   = "N/A"
	degradedSecondary = "Data unavailable"
)

// FormatTemperature renders a temperature with one decimal place and the
// unit suffix.
func FormatTemperature(value float64, unit models.TemperatureUnit) string {
	return fmt.Sprintf("%.1f%s", value, unit.Suffix())
}

// Engine owns the presentation state for one entity and is its only
// writer. Reconcile is total: every fetch outcome, success or failure,
// produces a well-formed state.
type Engine struct {
	presentationSink sink.PresentationSink
	entityID         string
	displayName      string
	icons            *icons.Encoder
	logger           zerolog.Logger

	mu         sync.Mutex
	state      models.PresentationState
	lastPushed models.PresentationState
	hasPushed  bool
}

// NewEngine initializes an Engine with the loading placeholder state.
func NewEngine(presentationSink sink.PresentationSink, entityID, displayName string, iconEncoder *icons.Encoder, logger zerolog.Logger) *Engine {
	return &Engine{
		presentationSink: presentationSink,
		entityID:         entityID,
		displayName:      displayName,
		icons:            iconEncoder,
		logger:           logger,
		state: models.PresentationState{
			Title:             displayName,
			SubtitlePrimary:   loadingPrimary,
			SubtitleSecondary: loadingSecondary,
			Power:             models.PowerOn,
		},
	}
}

// Reconcile folds one fetch outcome into the presentation state and
// pushes the result to the host when warranted. A failed fetch degrades
// the subtitles but keeps the title and power untouched.
func (e *Engine) Reconcile(snapshot models.WeatherSnapshot, fetchErr error) models.PresentationState {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.state
	if fetchErr == nil {
		next.Title = e.displayName
		next.SubtitlePrimary = FormatTemperature(snapshot.Temperature, snapshot.Unit)
		next.SubtitleSecondary = snapshot.Description
		next.ImageRef = e.icons.DataURL(snapshot.IconKey)
		next.Power = models.PowerOn
	} else {
		e.logger.Warn().Err(fetchErr).Msg("Weather unavailable, showing degraded state")
		next.SubtitlePrimary = degradedPrimary
		next.SubtitleSecondary = degradedSecondary
		next.ImageRef = e.icons.DataURL(icons.FallbackKey)
	}
	e.state = next

	e.push(next)
	return next
}

// Resync re-pushes the current state regardless of the last pushed
// state. Called when the host (re)subscribes, so a fresh subscriber is
// not starved by diff suppression.
func (e *Engine) Resync() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.presentationSink.IsSubscribed(e.entityID) {
		return
	}
	e.deliver(e.state)
}

// State returns the current presentation state.
func (e *Engine) State() models.PresentationState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// push delivers the state when the host is subscribed and the state
// differs from the last delivery. Callers hold e.mu.
func (e *Engine) push(state models.PresentationState) {
	if !e.presentationSink.IsSubscribed(e.entityID) {
		e.logger.Debug().Str("entity_id", e.entityID).Msg("No subscriber, skipping attribute push")
		return
	}
	if e.hasPushed && state == e.lastPushed {
		e.logger.Debug().Msg("Attributes unchanged, skipping push")
		return
	}
	e.deliver(state)
}

// deliver is fire-and-forget: a broker-side delivery failure is logged
// and the state still counts as pushed. Callers hold e.mu.
func (e *Engine) deliver(state models.PresentationState) {
	if err := e.presentationSink.PushAttributes(e.entityID, state.Attributes()); err != nil {
		e.logger.Error().Err(err).Str("entity_id", e.entityID).Msg("Failed to push attributes")
	} else {
		e.logger.Debug().Str("entity_id", e.entityID).Msg("Attributes pushed")
	}
	e.lastPushed = state
	e.hasPushed = true
}

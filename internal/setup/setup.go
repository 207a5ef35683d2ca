// Package setup implements the first-run configuration flow: resolve the
// user's location query, prove it yields a forecast, persist the result.
package setup

import (
	"context"
	"fmt"

	"github.com/benmeehan/weather-display-agent/internal/models"
	"github.com/benmeehan/weather-display-agent/internal/store"
	"github.com/benmeehan/weather-display-agent/internal/weather"
	"github.com/rs/zerolog"
)

// Flow wires the geocoder, the forecast provider and the settings store
// into a single configuration pass.
type Flow struct {
	resolver weather.LocationResolver
	provider weather.Provider
	store    store.LocationStoreInterface
	logger   zerolog.Logger
}

// NewFlow initializes a new setup Flow.
func NewFlow(resolver weather.LocationResolver, provider weather.Provider,
	locationStore store.LocationStoreInterface, logger zerolog.Logger) *Flow {
	return &Flow{
		resolver: resolver,
		provider: provider,
		store:    locationStore,
		logger:   logger,
	}
}

// Run resolves the query into coordinates, performs one validation fetch
// so a bad location is rejected before it is saved, and persists the
// settings. The resolved location is returned for display.
func (f *Flow) Run(ctx context.Context, query, unitName string) (models.Location, error) {
	unit, err := models.ParseTemperatureUnit(unitName)
	if err != nil {
		return models.Location{}, err
	}

	f.logger.Info().Str("query", query).Msg("Resolving location")
	loc, err := f.resolver.ResolveLocation(ctx, query, unit)
	if err != nil {
		return models.Location{}, fmt.Errorf("failed to resolve location %q: %w", query, err)
	}

	f.logger.Info().
		Str("location", loc.DisplayName).
		Float64("latitude", loc.Latitude).
		Float64("longitude", loc.Longitude).
		Msg("Location resolved, validating forecast")

	snapshot, err := f.provider.FetchCurrent(ctx, loc)
	if err != nil {
		return models.Location{}, fmt.Errorf("location %q resolved but returned no forecast: %w", loc.DisplayName, err)
	}

	f.logger.Info().
		Str("description", snapshot.Description).
		Float64("temperature", snapshot.Temperature).
		Msg("Validation fetch succeeded")

	if err := f.store.Save(loc); err != nil {
		return models.Location{}, fmt.Errorf("failed to persist settings: %w", err)
	}

	f.logger.Info().Str("location", loc.DisplayName).Msg("Setup complete")
	return loc, nil
}

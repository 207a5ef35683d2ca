// Package store persists the agent's resolved location between runs.
package store

import (
	"github.com/benmeehan/weather-display-agent/internal/models"
	"github.com/benmeehan/weather-display-agent/pkg/file"
	"github.com/rs/zerolog"
)

// locationRecord is the on-disk settings shape. Latitude and longitude
// are pointers so an absent coordinate is distinguishable from zero; a
// record missing either coordinate marks the agent unconfigured.
type locationRecord struct {
	Query       string                 `json:"location_input,omitempty"`
	Latitude    *float64               `json:"latitude,omitempty"`
	Longitude   *float64               `json:"longitude,omitempty"`
	DisplayName string                 `json:"location_name,omitempty"`
	Unit        models.TemperatureUnit `json:"temperature_unit,omitempty"`
}

// LocationStoreInterface defines methods for managing the persisted location.
type LocationStoreInterface interface {
	Load() error
	Get() (models.Location, bool)
	Save(loc models.Location) error
}

// LocationStore manages the persisted location and its settings file.
type LocationStore struct {
	SettingsFile string
	record       locationRecord
	fileOps      file.FileOperations
	logger       zerolog.Logger
}

// NewLocationStore initializes a new LocationStore instance.
func NewLocationStore(filePath string, fileOps file.FileOperations, logger zerolog.Logger) LocationStoreInterface {
	return &LocationStore{
		SettingsFile: filePath,
		fileOps:      fileOps,
		logger:       logger,
	}
}

// Load reads the settings file. A missing or corrupt file leaves the
// agent unconfigured instead of failing startup.
func (s *LocationStore) Load() error {
	exists, err := s.fileOps.IsFileExists(s.SettingsFile)
	if err != nil {
		return err
	}
	if !exists {
		s.logger.Info().Str("file", s.SettingsFile).Msg("No settings file yet, agent is unconfigured")
		s.record = locationRecord{}
		return nil
	}

	var record locationRecord
	if err := s.fileOps.ReadJsonFile(s.SettingsFile, &record); err != nil {
		s.logger.Warn().Err(err).Str("file", s.SettingsFile).Msg("Settings not readable, agent is unconfigured")
		s.record = locationRecord{}
		return nil
	}

	s.record = record
	return nil
}

// Get returns the resolved location when the agent is configured.
func (s *LocationStore) Get() (models.Location, bool) {
	if s.record.Latitude == nil || s.record.Longitude == nil {
		return models.Location{}, false
	}

	unit := s.record.Unit
	if unit == "" {
		unit = models.UnitFahrenheit
	}

	return models.Location{
		Query:       s.record.Query,
		Latitude:    *s.record.Latitude,
		Longitude:   *s.record.Longitude,
		DisplayName: s.record.DisplayName,
		Unit:        unit,
	}, true
}

// Save replaces the persisted location wholesale and writes it through.
func (s *LocationStore) Save(loc models.Location) error {
	lat, lon := loc.Latitude, loc.Longitude
	s.record = locationRecord{
		Query:       loc.Query,
		Latitude:    &lat,
		Longitude:   &lon,
		DisplayName: loc.DisplayName,
		Unit:        loc.Unit,
	}
	return s.fileOps.WriteJsonFile(s.SettingsFile, s.record)
}

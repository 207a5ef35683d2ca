package models

import (
	"fmt"
	"strings"
	"time"
)

// TemperatureUnit selects the unit requested from the weather API and
// rendered in the display attributes.
type TemperatureUnit string

const (
	UnitFahrenheit TemperatureUnit = "fahrenheit"
	UnitCelsius    TemperatureUnit = "celsius"
)

// Suffix returns the degree suffix appended to formatted temperatures.
func (u TemperatureUnit) Suffix() string {
	if u == UnitCelsius {
		return "°C"
	}
	return "°F"
}

// ParseTemperatureUnit normalizes a user-supplied unit name.
func ParseTemperatureUnit(s string) (TemperatureUnit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(UnitFahrenheit):
		return UnitFahrenheit, nil
	case string(UnitCelsius):
		return UnitCelsius, nil
	default:
		return "", fmt.Errorf("unknown temperature unit %q", s)
	}
}

// Location is a geocoded place the agent reports weather for. It is
// immutable once resolved; re-running setup replaces it wholesale.
type Location struct {
	Query       string          `json:"location_input"`
	Latitude    float64         `json:"latitude"`
	Longitude   float64         `json:"longitude"`
	DisplayName string          `json:"location_name"`
	Unit        TemperatureUnit `json:"temperature_unit"`
}

// WeatherSnapshot is one normalized observation of current conditions.
// Description and IconKey are derived from the condition code and the
// day/night flag at fetch time.
type WeatherSnapshot struct {
	Temperature   float64         `json:"temperature"`
	Unit          TemperatureUnit `json:"temperature_unit"`
	ConditionCode int             `json:"condition_code"`
	IsDaytime     bool            `json:"is_day"`
	Humidity      int             `json:"humidity_percent"`
	WindSpeedMPH  float64         `json:"wind_speed_mph"`
	ObservedAt    time.Time       `json:"observed_at"`
	Description   string          `json:"description"`
	IconKey       string          `json:"icon_key"`
}

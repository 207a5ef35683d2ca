package constants

import "time"

const (
	// DefaultForecastURL is the Open-Meteo current conditions endpoint.
	DefaultForecastURL = "https://api.open-meteo.com/v1/forecast"

	// DefaultGeocodingURL is the Open-Meteo location search endpoint.
	DefaultGeocodingURL = "https://geocoding-api.open-meteo.com/v1/search"

	// DefaultForecastTimeout bounds a single forecast request.
	DefaultForecastTimeout = 15 * time.Second

	// DefaultGeocodeTimeout bounds a single geocoding request.
	DefaultGeocodeTimeout = 30 * time.Second

	// TransientRetryBackoff is the wait before the single retry after a
	// network-not-ready failure.
	TransientRetryBackoff = 500 * time.Millisecond
)

const (
	// DefaultFirstTickDelay delays the first refresh after startup so the
	// broker session settles before the first push.
	DefaultFirstTickDelay = 5 * time.Second

	// UnexpectedErrorCooldown is the fixed wait after a refresh cycle
	// fails with a non-weather error.
	UnexpectedErrorCooldown = 5 * time.Minute
)

// Command acknowledgement statuses
const (
	// CommandStatusSuccess indicates the command was executed
	CommandStatusSuccess = "success"
	// CommandStatusNotSupported indicates the command name is outside the
	// supported set
	CommandStatusNotSupported = "not_supported"
)

// Device lifecycle states reported to the presentation host
const (
	DeviceStateConnected    = "connected"
	DeviceStateDisconnected = "disconnected"
)

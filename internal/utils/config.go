package utils

import (
	"github.com/benmeehan/weather-display-agent/pkg/file"
)

// Config represents the structure of the configuration file.
type Config struct {
	MQTT struct {
		Broker        string `yaml:"broker"`         // MQTT broker address
		ClientID      string `yaml:"client_id"`      // MQTT client ID
		TopicPrefix   string `yaml:"topic_prefix"`   // Prefix for all agent topics
		QOS           int    `yaml:"qos"`            // MQTT QoS level for agent messages
		CACertificate string `yaml:"ca_certificate"` // Path to the CA certificate
		Username      string `yaml:"username"`       // MQTT username, empty for anonymous
		Password      string `yaml:"password"`       // MQTT password
	} `yaml:"mqtt"`

	Entity struct {
		ID   string `yaml:"id"`   // Presentation entity ID, derived from location when empty
		Name string `yaml:"name"` // Human-readable entity name shown by the host
	} `yaml:"entity"`

	Settings struct {
		File string `yaml:"file"` // Path to the persisted location settings file
	} `yaml:"settings"`

	Geocoder struct {
		Provider   string `yaml:"provider"`     // Geocoding backend: "openmeteo" or "google"
		MapsAPIKey string `yaml:"maps_api_key"` // Google Maps API key, required for the google provider
	} `yaml:"geocoder"`

	Weather struct {
		ForecastURL     string `yaml:"forecast_url"`     // Forecast API endpoint, empty for the default
		GeocodingURL    string `yaml:"geocoding_url"`    // Geocoding API endpoint, empty for the default
		ForecastTimeout int    `yaml:"forecast_timeout"` // Timeout for forecast requests (in seconds)
		GeocodeTimeout  int    `yaml:"geocode_timeout"`  // Timeout for geocoding requests (in seconds)
	} `yaml:"weather"`

	Services struct {
		Updates struct {
			Enabled        bool `yaml:"enabled"`          // Enable/disable scheduled weather updates
			FirstTickDelay int  `yaml:"first_tick_delay"` // Delay before the first refresh (in seconds)
		} `yaml:"updates"`

		Commands struct {
			Enabled bool `yaml:"enabled"` // Enable/disable host command handling
		} `yaml:"commands"`

		Diagnostics struct {
			Enabled           bool `yaml:"enabled"`            // Enable/disable health reporting
			Interval          int  `yaml:"interval"`           // Interval between health reports (in seconds)
			Timeout           int  `yaml:"timeout"`            // Timeout for collecting health metrics (in seconds)
			MonitorCPU        bool `yaml:"monitor_cpu"`        // Collect CPU usage
			MonitorMemory     bool `yaml:"monitor_memory"`     // Collect memory usage
			MonitorGoroutines bool `yaml:"monitor_goroutines"` // Collect goroutine count
			MonitorUptime     bool `yaml:"monitor_uptime"`     // Collect process uptime
		} `yaml:"diagnostics"`
	} `yaml:"services"`
}

// LoadConfig loads the YAML configuration from the specified file.
// It returns a pointer to the Config struct and an error if loading fails.
func LoadConfig(filename string, fileClient file.FileOperations) (*Config, error) {
	var config Config
	err := fileClient.ReadYamlFile(filename, &config)
	if err != nil {
		return nil, err
	}

	return &config, nil
}

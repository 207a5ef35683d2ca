package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/benmeehan/weather-display-agent/internal/conditions"
	"github.com/benmeehan/weather-display-agent/internal/constants"
	"github.com/benmeehan/weather-display-agent/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// usZipPattern matches 5-digit US ZIP codes with an optional +4 suffix.
var usZipPattern = regexp.MustCompile(`^\d{5}(-\d{4})?$`)

// OpenMeteoClient talks to the Open-Meteo forecast and geocoding APIs.
// It implements both Provider and LocationResolver.
type OpenMeteoClient struct {
	http            *resty.Client
	forecastURL     string
	geocodingURL    string
	forecastTimeout time.Duration
	geocodeTimeout  time.Duration
	retryBackoff    time.Duration
	logger          zerolog.Logger
}

// NewOpenMeteoClient initializes a new OpenMeteoClient. Empty URLs and
// zero timeouts fall back to the defaults.
func NewOpenMeteoClient(forecastURL, geocodingURL string, forecastTimeout, geocodeTimeout time.Duration, logger zerolog.Logger) *OpenMeteoClient {
	if forecastURL == "" {
		forecastURL = constants.DefaultForecastURL
	}
	if geocodingURL == "" {
		geocodingURL = constants.DefaultGeocodingURL
	}
	if forecastTimeout == 0 {
		forecastTimeout = constants.DefaultForecastTimeout
	}
	if geocodeTimeout == 0 {
		geocodeTimeout = constants.DefaultGeocodeTimeout
	}

	return &OpenMeteoClient{
		http:            resty.New(),
		forecastURL:     forecastURL,
		geocodingURL:    geocodingURL,
		forecastTimeout: forecastTimeout,
		geocodeTimeout:  geocodeTimeout,
		retryBackoff:    constants.TransientRetryBackoff,
		logger:          logger,
	}
}

// forecastResponse is the subset of the forecast payload the agent reads.
type forecastResponse struct {
	Current *currentConditions `json:"current"`
}

type currentConditions struct {
	Time               string  `json:"time"`
	Temperature2m      float64 `json:"temperature_2m"`
	WeatherCode        int     `json:"weather_code"`
	RelativeHumidity2m float64 `json:"relative_humidity_2m"`
	WindSpeed10m       float64 `json:"wind_speed_10m"`
	IsDay              int     `json:"is_day"`
}

// geocodingResponse is the subset of the location search payload the
// agent reads.
type geocodingResponse struct {
	Results []geocodingResult `json:"results"`
}

type geocodingResult struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Country   string  `json:"country"`
	Admin1    string  `json:"admin1"`
}

// FetchCurrent retrieves and normalizes current conditions for loc.
func (c *OpenMeteoClient) FetchCurrent(ctx context.Context, loc models.Location) (models.WeatherSnapshot, error) {
	params := map[string]string{
		"latitude":         strconv.FormatFloat(loc.Latitude, 'f', -1, 64),
		"longitude":        strconv.FormatFloat(loc.Longitude, 'f', -1, 64),
		"current":          "temperature_2m,weather_code,relative_humidity_2m,wind_speed_10m,is_day",
		"temperature_unit": string(loc.Unit),
		"wind_speed_unit":  "mph",
		"timezone":         "auto",
	}

	resp, err := c.get(ctx, c.forecastURL, params, c.forecastTimeout)
	if err != nil {
		c.logger.Error().Err(err).Msg("Weather fetch failed")
		return models.WeatherSnapshot{}, err
	}
	if resp.StatusCode() != 200 {
		c.logger.Error().Int("status", resp.StatusCode()).Msg("Weather API returned non-OK status")
		return models.WeatherSnapshot{}, fmt.Errorf("%w: forecast status %d", ErrUpstream, resp.StatusCode())
	}

	var body forecastResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return models.WeatherSnapshot{}, fmt.Errorf("%w: malformed forecast body: %v", ErrUpstream, err)
	}
	if body.Current == nil {
		return models.WeatherSnapshot{}, fmt.Errorf("%w: forecast response missing current conditions", ErrUpstream)
	}

	cur := body.Current
	snapshot := models.WeatherSnapshot{
		Temperature:   cur.Temperature2m,
		Unit:          loc.Unit,
		ConditionCode: cur.WeatherCode,
		IsDaytime:     cur.IsDay == 1,
		Humidity:      int(math.Round(cur.RelativeHumidity2m)),
		WindSpeedMPH:  cur.WindSpeed10m,
		ObservedAt:    observedAt(cur.Time),
	}

	mapping, known := conditions.Lookup(snapshot.ConditionCode, snapshot.IsDaytime)
	if !known {
		c.logger.Warn().Int("weather_code", snapshot.ConditionCode).Msg("Unknown weather code, using fallback icon")
	}
	snapshot.Description = mapping.Description
	snapshot.IconKey = mapping.IconKey

	c.logger.Info().
		Float64("temperature", snapshot.Temperature).
		Str("description", snapshot.Description).
		Bool("is_day", snapshot.IsDaytime).
		Msg("Weather data received")
	return snapshot, nil
}

// ResolveLocation geocodes a free-text query or US ZIP code. For ZIP
// queries a United States candidate is preferred over earlier foreign
// matches with the same digits.
func (c *OpenMeteoClient) ResolveLocation(ctx context.Context, query string, unit models.TemperatureUnit) (models.Location, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return models.Location{}, fmt.Errorf("%w: empty location query", ErrNotFound)
	}

	params := map[string]string{
		"name":     query,
		"count":    "5",
		"language": "en",
		"format":   "json",
	}

	resp, err := c.get(ctx, c.geocodingURL, params, c.geocodeTimeout)
	if err != nil {
		c.logger.Error().Err(err).Str("query", query).Msg("Geocoding request failed")
		return models.Location{}, err
	}
	if resp.StatusCode() != 200 {
		c.logger.Error().Int("status", resp.StatusCode()).Str("query", query).Msg("Geocoding API returned non-OK status")
		return models.Location{}, fmt.Errorf("%w: geocoding status %d", ErrUpstream, resp.StatusCode())
	}

	var body geocodingResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return models.Location{}, fmt.Errorf("%w: malformed geocoding body: %v", ErrUpstream, err)
	}
	if len(body.Results) == 0 {
		return models.Location{}, fmt.Errorf("%w: no geocoding results for %q", ErrNotFound, query)
	}

	candidate := body.Results[0]
	if usZipPattern.MatchString(query) {
		for _, r := range body.Results {
			if r.Country == "United States" {
				candidate = r
				break
			}
		}
	}

	loc := models.Location{
		Query:       query,
		Latitude:    candidate.Latitude,
		Longitude:   candidate.Longitude,
		DisplayName: displayName(candidate),
		Unit:        unit,
	}

	c.logger.Info().
		Str("query", query).
		Str("location", loc.DisplayName).
		Float64("latitude", loc.Latitude).
		Float64("longitude", loc.Longitude).
		Msg("Location resolved")
	return loc, nil
}

// displayName renders a geocoding candidate as "City, Region" when an
// administrative region is known, falling back to country, then name.
func displayName(r geocodingResult) string {
	switch {
	case r.Admin1 != "":
		return r.Name + ", " + r.Admin1
	case r.Country != "":
		return r.Name + ", " + r.Country
	default:
		return r.Name
	}
}

// get performs one GET with a per-call deadline. A network-not-ready
// failure is retried exactly once after a short backoff; every other
// failure surfaces immediately as a classified error.
func (c *OpenMeteoClient) get(ctx context.Context, url string, params map[string]string, timeout time.Duration) (*resty.Response, error) {
	resp, err := c.doGet(ctx, url, params, timeout)
	if err != nil && isTransientInfra(err) {
		c.logger.Warn().Err(err).Str("url", url).Msg("Network not ready, retrying once")
		select {
		case <-time.After(c.retryBackoff):
		case <-ctx.Done():
			return nil, classifyTransport(ctx.Err())
		}
		resp, err = c.doGet(ctx, url, params, timeout)
	}
	if err != nil {
		return nil, classifyTransport(err)
	}
	return resp, nil
}

func (c *OpenMeteoClient) doGet(ctx context.Context, url string, params map[string]string, timeout time.Duration) (*resty.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(url)
}

// observedAt parses the observation timestamp reported by the API,
// falling back to the current time when it is absent or malformed.
func observedAt(raw string) time.Time {
	if t, err := time.Parse("2006-01-02T15:04", raw); err == nil {
		return t
	}
	return time.Now().UTC()
}

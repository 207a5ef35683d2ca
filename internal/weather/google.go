package weather

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/benmeehan/weather-display-agent/internal/models"
	"github.com/rs/zerolog"
	"googlemaps.github.io/maps"
)

// GoogleResolver resolves location queries through the Google Maps
// Geocoding API. It is an alternative to the Open-Meteo geocoder for
// deployments that already hold a Maps API key.
type GoogleResolver struct {
	client *maps.Client
	logger zerolog.Logger
}

// NewGoogleResolver creates a new GoogleResolver instance.
func NewGoogleResolver(apiKey string, logger zerolog.Logger) (*GoogleResolver, error) {
	c, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	return &GoogleResolver{
		client: c,
		logger: logger,
	}, nil
}

// ResolveLocation geocodes the query via the Maps API.
func (g *GoogleResolver) ResolveLocation(ctx context.Context, query string, unit models.TemperatureUnit) (models.Location, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return models.Location{}, fmt.Errorf("%w: empty location query", ErrNotFound)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	results, err := g.client.Geocode(ctx, &maps.GeocodingRequest{Address: query})
	if err != nil {
		g.logger.Error().Err(err).Str("query", query).Msg("Maps geocoding request failed")
		return models.Location{}, classifyTransport(err)
	}
	if len(results) == 0 {
		return models.Location{}, fmt.Errorf("%w: no geocoding results for %q", ErrNotFound, query)
	}

	r := results[0]
	loc := models.Location{
		Query:       query,
		Latitude:    r.Geometry.Location.Lat,
		Longitude:   r.Geometry.Location.Lng,
		DisplayName: googleDisplayName(r),
		Unit:        unit,
	}

	g.logger.Info().
		Str("query", query).
		Str("location", loc.DisplayName).
		Msg("Location resolved via Maps API")
	return loc, nil
}

// googleDisplayName applies the same naming policy as the Open-Meteo
// resolver: city with region when known, then city with country, then
// whatever formatted address the API produced.
func googleDisplayName(r maps.GeocodingResult) string {
	var name, admin, country string
	for _, comp := range r.AddressComponents {
		for _, t := range comp.Types {
			switch t {
			case "locality", "postal_town":
				if name == "" {
					name = comp.LongName
				}
			case "administrative_area_level_1":
				admin = comp.ShortName
			case "country":
				country = comp.LongName
			}
		}
	}

	switch {
	case name != "" && admin != "":
		return name + ", " + admin
	case name != "" && country != "":
		return name + ", " + country
	case name != "":
		return name
	default:
		return r.FormattedAddress
	}
}

// Package icons serves the weather icon set as base64 data URLs. Assets
// are embedded in the binary so the agent has no runtime asset path to
// misconfigure; each icon is encoded once and cached.
package icons

import (
	"embed"
	"encoding/base64"

	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/rs/zerolog"
)

//go:embed assets/*.png
var assetFS embed.FS

// FallbackKey is served when a requested icon is missing from the set.
const FallbackKey = "cloud.png"

// Encoder renders icon keys as data URLs usable as image references.
type Encoder struct {
	cache  cmap.ConcurrentMap[string, string]
	logger zerolog.Logger
}

// NewEncoder creates a new Encoder instance.
func NewEncoder(logger zerolog.Logger) *Encoder {
	return &Encoder{
		cache:  cmap.New[string](),
		logger: logger,
	}
}

// DataURL returns the data URL for the given icon key. Unknown keys fall
// back to the generic cloud icon; if even that is missing the empty
// string is returned and the host renders no image.
func (e *Encoder) DataURL(key string) string {
	if url, ok := e.cache.Get(key); ok {
		return url
	}

	url, err := e.encode(key)
	if err != nil {
		e.logger.Warn().Err(err).Str("icon", key).Msg("Icon missing, using fallback")
		if key == FallbackKey {
			return ""
		}
		url = e.DataURL(FallbackKey)
	}

	e.cache.Set(key, url)
	return url
}

func (e *Encoder) encode(key string) (string, error) {
	raw, err := assetFS.ReadFile("assets/" + key)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(raw), nil
}

// Package conditions maps WMO weather interpretation codes onto display
// text and icon keys. Lookup is pure and total: codes outside the table
// resolve to the fallback mapping so rendering never fails on new codes.
package conditions

// Mapping is the display rendering for one weather code.
type Mapping struct {
	IconKey     string
	Description string
}

// FallbackIconKey is the icon used for unknown codes and for degraded
// states where no observation is available.
const FallbackIconKey = "cloud.png"

// FallbackDescription labels codes the table does not know.
const FallbackDescription = "Unknown"

var descriptions = map[int]string{
	0:  "Clear sky",
	1:  "Mainly clear",
	2:  "Partly cloudy",
	3:  "Overcast",
	45: "Fog",
	48: "Depositing rime fog",
	51: "Light drizzle",
	53: "Moderate drizzle",
	55: "Dense drizzle",
	56: "Light freezing drizzle",
	57: "Dense freezing drizzle",
	61: "Slight rain",
	63: "Moderate rain",
	65: "Heavy rain",
	66: "Light freezing rain",
	67: "Heavy freezing rain",
	71: "Slight snow",
	73: "Moderate snow",
	75: "Heavy snow",
	77: "Snow grains",
	80: "Light rain showers",
	81: "Moderate rain showers",
	82: "Heavy rain showers",
	85: "Light snow showers",
	86: "Heavy snow showers",
	87: "Slight snow pellet showers",
	88: "Heavy snow pellet showers",
	95: "Thunderstorm",
	96: "Thunderstorm with hail",
	99: "Thunderstorm with heavy hail",
}

var dayIcons = map[int]string{
	0:  "sun.png",
	1:  "sun-cloud.png",
	2:  "sun-cloud.png",
	3:  "cloud.png",
	45: "fog.png",
	48: "fog.png",
	51: "drizzle.png",
	53: "drizzle.png",
	55: "drizzle.png",
	56: "drizzle.png",
	57: "drizzle.png",
	61: "rain.png",
	63: "rain.png",
	65: "rain-heavy.png",
	66: "rain.png",
	67: "rain-heavy.png",
	71: "snow.png",
	73: "snow.png",
	75: "snow-heavy.png",
	77: "snow.png",
	80: "rain.png",
	81: "rain.png",
	82: "rain-heavy.png",
	85: "snow.png",
	86: "snow-heavy.png",
	87: "snow.png",
	88: "snow-heavy.png",
	95: "thunderstorm.png",
	96: "thunderstorm.png",
	99: "thunderstorm.png",
}

// nightIcons only lists codes whose icon differs after dark; everything
// else renders the day icon around the clock.
var nightIcons = map[int]string{
	0: "moon.png",
	1: "moon-cloud.png",
	2: "moon-cloud.png",
}

// Lookup resolves a weather code and day/night flag to its display
// mapping. The second return is false when the code is outside the
// table and the fallback mapping was substituted.
func Lookup(code int, isDay bool) (Mapping, bool) {
	desc, known := descriptions[code]
	if !known {
		return Mapping{IconKey: FallbackIconKey, Description: FallbackDescription}, false
	}

	icon := dayIcons[code]
	if !isDay {
		if night, ok := nightIcons[code]; ok {
			icon = night
		}
	}
	return Mapping{IconKey: icon, Description: desc}, true
}

// Codes returns every weather code the table knows.
func Codes() []int {
	codes := make([]int, 0, len(descriptions))
	for code := range descriptions {
		codes = append(codes, code)
	}
	return codes
}

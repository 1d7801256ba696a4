package weather

import (
	"strconv"
	"time"
)

// Condition represents a normalized high-level weather condition.
type Condition string

const (
	ConditionUnknown      Condition = "unknown"
	ConditionClear        Condition = "clear"
	ConditionPartlyCloudy Condition = "partly-cloudy"
	ConditionCloudy       Condition = "cloudy"
	ConditionDrizzle      Condition = "drizzle"
	ConditionRain         Condition = "rain"
	ConditionSnow         Condition = "snow"
	ConditionStorm        Condition = "storm"
	ConditionMist         Condition = "mist"
)

// PlaceholderIdx marks the trailing "add new location" entry of the list.
const PlaceholderIdx = -1

// Location is a saved place the user follows.
// DBIndex is nil for the row resolved from the device position; rows picked
// from the city catalog carry the catalog index.
type Location struct {
	Idx       int     `json:"idx"`
	CityName  string  `json:"cityName"`
	DBIndex   *int    `json:"dbIndex"`
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

// NewPlaceholder returns the sentinel entry that always ends the location list.
func NewPlaceholder() Location {
	return Location{Idx: PlaceholderIdx}
}

// IsPlaceholder reports whether l is the "add new location" sentinel.
func (l Location) IsPlaceholder() bool {
	return l.Idx == PlaceholderIdx
}

// IsPending reports whether l has no persisted-row index.
func (l Location) IsPending() bool {
	return l.DBIndex == nil
}

// Key returns a canonical string key for logging and cache lookups.
func (l Location) Key() string {
	return strconv.Itoa(l.Idx) + ":" + l.CityName
}

// SamePlace reports whether l and o are the same row describing the same
// place. A row rewritten in place keeps its Idx but not its place.
func (l Location) SamePlace(o Location) bool {
	if l.Idx != o.Idx || l.CityName != o.CityName ||
		l.Latitude != o.Latitude || l.Longitude != o.Longitude {
		return false
	}
	if l.DBIndex == nil || o.DBIndex == nil {
		return l.DBIndex == nil && o.DBIndex == nil
	}
	return *l.DBIndex == *o.DBIndex
}

// IntPtr is a small helper for building DBIndex values.
func IntPtr(v int) *int {
	return &v
}

// Snapshot holds the current conditions for one location.
type Snapshot struct {
	Timestamp     time.Time `json:"timestamp"` // always UTC
	TemperatureC  float64   `json:"temperatureC"`
	FeelsLikeC    float64   `json:"feelsLikeC"`
	Humidity      float64   `json:"humidityPercent"`
	Pressure      float64   `json:"pressureHpa"`
	WindSpeed     float64   `json:"windSpeed"`
	Clouds        float64   `json:"cloudsPercent"`
	Condition     Condition `json:"condition"`
	ConditionCode int       `json:"conditionCode"`
	Icon          string    `json:"icon"`
	Description   string    `json:"description"`
	Provider      string    `json:"provider"`
}

// IconFor returns the OpenWeather-style icon code for a normalized condition.
// Providers that do not report icons use it so every snapshot can be themed.
func IconFor(cond Condition, day bool) string {
	var code string
	switch cond {
	case ConditionClear:
		code = "01"
	case ConditionPartlyCloudy:
		code = "02"
	case ConditionCloudy:
		code = "04"
	case ConditionDrizzle:
		code = "09"
	case ConditionRain:
		code = "10"
	case ConditionStorm:
		code = "11"
	case ConditionSnow:
		code = "13"
	case ConditionMist:
		code = "50"
	default:
		return ""
	}
	if day {
		return code + "d"
	}
	return code + "n"
}

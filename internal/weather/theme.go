package weather

import (
	"fmt"
	"math"
	"strings"
)

// WeatherType groups icon codes that share a card theme.
type WeatherType string

const (
	TypeClear        WeatherType = "clear"
	TypeFewClouds    WeatherType = "few-clouds"
	TypeClouds       WeatherType = "clouds"
	TypeShowerRain   WeatherType = "shower-rain"
	TypeRain         WeatherType = "rain"
	TypeThunderstorm WeatherType = "thunderstorm"
	TypeSnow         WeatherType = "snow"
	TypeMist         WeatherType = "mist"
	TypeUnknown      WeatherType = "unknown"
)

// Color is a theme colour as RGB hex plus opacity.
type Color struct {
	Hex     string  `json:"hex"`
	Opacity float64 `json:"opacity"`
}

// String renders the colour as #RRGGBBAA.
func (c Color) String() string {
	alpha := int(math.Round(c.Opacity * 255))
	return fmt.Sprintf("%s%02X", strings.ToUpper(c.Hex), alpha)
}

// Unknown60 is the background used when a page has no weather yet.
var Unknown60 = Color{Hex: "#454545", Opacity: 0.6}

var typeColors = map[WeatherType]Color{
	TypeClear:        {Hex: "#FFD027", Opacity: 0.6},
	TypeFewClouds:    {Hex: "#78D7FF", Opacity: 0.6},
	TypeClouds:       {Hex: "#15B9FF", Opacity: 0.6},
	TypeShowerRain:   {Hex: "#1875FF", Opacity: 0.8},
	TypeRain:         {Hex: "#1875FF", Opacity: 0.6},
	TypeThunderstorm: {Hex: "#FF4C24", Opacity: 0.6},
	TypeSnow:         {Hex: "#1ED8C5", Opacity: 0.6},
	TypeMist:         {Hex: "#454B52", Opacity: 0.6},
	TypeUnknown:      Unknown60,
}

// TypeForIcon maps an OpenWeather icon code (e.g. "10d") to its WeatherType.
// Day and night variants share a type.
func TypeForIcon(icon string) WeatherType {
	if len(icon) < 2 {
		return TypeUnknown
	}
	switch icon[:2] {
	case "01":
		return TypeClear
	case "02":
		return TypeFewClouds
	case "03", "04":
		return TypeClouds
	case "09":
		return TypeShowerRain
	case "10":
		return TypeRain
	case "11":
		return TypeThunderstorm
	case "13":
		return TypeSnow
	case "50":
		return TypeMist
	default:
		return TypeUnknown
	}
}

// Color returns the theme colour for t.
func (t WeatherType) Color() Color {
	if c, ok := typeColors[t]; ok {
		return c
	}
	return Unknown60
}

// ColorForSnapshot picks the card background for a location's snapshot.
func ColorForSnapshot(snap *Snapshot) Color {
	if snap == nil {
		return Unknown60
	}
	return TypeForIcon(snap.Icon).Color()
}

package weather

import (
	"context"
)

// Provider abstracts a current-conditions source (OpenWeather, Open-Meteo, WeatherAPI).
type Provider interface {
	Name() string
	Current(ctx context.Context, loc Location) (Snapshot, error)
}

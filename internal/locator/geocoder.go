package locator

import (
	"context"
	"errors"
)

// ErrNoLocality is returned when reverse geocoding finds no usable place name.
var ErrNoLocality = errors.New("no locality for coordinates")

// Geocoder converts a coordinate into a human-readable locality name.
type Geocoder interface {
	Locality(ctx context.Context, latitude, longitude float64) (string, error)
}

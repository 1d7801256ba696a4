package locator

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/kelvins/geocoder"
)

// googleKeyMu guards geocoder.ApiKey, which the library keeps as a package variable.
var googleKeyMu sync.Mutex

// GoogleGeocoder reverse-geocodes with the Google Geocoding API.
type GoogleGeocoder struct {
	apiKey  string
	reverse func(geocoder.Location) ([]geocoder.Address, error)
}

// NewGoogleGeocoder creates a GoogleGeocoder for apiKey.
func NewGoogleGeocoder(apiKey string) *GoogleGeocoder {
	return &GoogleGeocoder{
		apiKey:  apiKey,
		reverse: geocoder.GeocodingReverse,
	}
}

// Locality implements Geocoder. The last returned address is the least
// specific one, matching how the device geocoder reports the locality.
func (g *GoogleGeocoder) Locality(ctx context.Context, latitude, longitude float64) (string, error) {
	if g.apiKey == "" {
		return "", fmt.Errorf("google geocoding api key is not configured")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	googleKeyMu.Lock()
	geocoder.ApiKey = g.apiKey
	addresses, err := g.reverse(geocoder.Location{Latitude: latitude, Longitude: longitude})
	googleKeyMu.Unlock()
	if err != nil {
		return "", fmt.Errorf("google reverse geocoding: %w", err)
	}

	name := pickGoogleLocality(addresses)
	if name == "" {
		return "", fmt.Errorf("%w: %f,%f", ErrNoLocality, latitude, longitude)
	}
	return name, nil
}

func pickGoogleLocality(addresses []geocoder.Address) string {
	for i := len(addresses) - 1; i >= 0; i-- {
		if city := strings.TrimSpace(addresses[i].City); city != "" {
			return city
		}
	}
	return ""
}

package locator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// API Docs: https://nominatim.org/release-docs/develop/api/Reverse/
// Sample request: https://nominatim.openstreetmap.org/reverse?lat=37.56&lon=126.97&format=jsonv2&accept-language=ko
const (
	nominatimURL = "https://nominatim.openstreetmap.org/reverse"
	userAgent    = "weather-companion/1.0"
)

type reverseResponse struct {
	PlaceID     int    `json:"place_id"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Address     struct {
		City        string `json:"city"`
		Town        string `json:"town"`
		Village     string `json:"village"`
		Suburb      string `json:"suburb"`
		Borough     string `json:"borough"`
		County      string `json:"county"`
		State       string `json:"state"`
		Country     string `json:"country"`
		CountryCode string `json:"country_code"`
	} `json:"address"`
	Error string `json:"error"`
}

// NominatimClient reverse-geocodes through OpenStreetMap Nominatim.
type NominatimClient struct {
	httpClient *http.Client
	baseURL    string
	language   string
}

// NewNominatimClient creates a client; language is sent as accept-language.
func NewNominatimClient(httpClient *http.Client, language string) *NominatimClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &NominatimClient{
		httpClient: httpClient,
		baseURL:    nominatimURL,
		language:   language,
	}
}

// Locality implements Geocoder.
func (c *NominatimClient) Locality(ctx context.Context, latitude, longitude float64) (string, error) {
	resp, err := c.reverse(ctx, latitude, longitude)
	if err != nil {
		return "", err
	}
	name := pickNominatimLocality(resp)
	if name == "" {
		return "", fmt.Errorf("%w: %f,%f", ErrNoLocality, latitude, longitude)
	}
	return name, nil
}

func (c *NominatimClient) reverse(ctx context.Context, latitude, longitude float64) (*reverseResponse, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	q := u.Query()
	q.Set("lat", fmt.Sprintf("%f", latitude))
	q.Set("lon", fmt.Sprintf("%f", longitude))
	q.Set("format", "jsonv2")
	q.Set("zoom", "10")
	if c.language != "" {
		q.Set("accept-language", c.language)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	// Nominatim usage policy requires an identifying agent.
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch: %w", err)
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("fetch returned status %d: %s", resp.StatusCode, string(body))
	}

	var apiResp reverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if apiResp.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrNoLocality, apiResp.Error)
	}

	return &apiResp, nil
}

func pickNominatimLocality(r *reverseResponse) string {
	for _, candidate := range []string{
		r.Address.City,
		r.Address.Town,
		r.Address.Village,
		r.Address.Borough,
		r.Address.Suburb,
		r.Name,
	} {
		if s := strings.TrimSpace(candidate); s != "" {
			return s
		}
	}
	return ""
}

package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/i474232898/weather-companion/internal/weather"
	"github.com/sony/gobreaker"
)

// OpenWeatherProvider reads the "current" block of the OpenWeatherMap One Call API.
type OpenWeatherProvider struct {
	name     string
	apiKey   string
	baseURL  string
	language string
	httpCfg  HTTPClientConfig
	circuit  *gobreaker.CircuitBreaker
}

func NewOpenWeatherProvider(client *http.Client, apiKey string, opts Options) *OpenWeatherProvider {
	return &OpenWeatherProvider{
		name:     "openweathermap",
		apiKey:   apiKey,
		baseURL:  "https://api.openweathermap.org/data/3.0/onecall",
		language: opts.Language,
		httpCfg:  newHTTPConfig(client, opts),
		circuit:  newCircuitBreaker("openweather"),
	}
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

type oneCallResponse struct {
	Timezone string `json:"timezone"`
	Current  struct {
		Dt        int64   `json:"dt"`
		Sunrise   int64   `json:"sunrise"`
		Sunset    int64   `json:"sunset"`
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Pressure  float64 `json:"pressure"`
		Humidity  float64 `json:"humidity"`
		Clouds    float64 `json:"clouds"`
		WindSpeed float64 `json:"wind_speed"`
		Weather   []struct {
			ID          int    `json:"id"`
			Main        string `json:"main"`
			Description string `json:"description"`
			Icon        string `json:"icon"`
		} `json:"weather"`
	} `json:"current"`
}

func (p *OpenWeatherProvider) Current(ctx context.Context, loc weather.Location) (weather.Snapshot, error) {
	if p.apiKey == "" {
		return weather.Snapshot{}, fmt.Errorf("openweather api key is not configured")
	}

	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("lat", coord(loc.Latitude))
		values.Set("lon", coord(loc.Longitude))
		values.Set("appid", p.apiKey)
		values.Set("units", "metric")
		values.Set("exclude", "minutely,hourly,daily,alerts")
		if p.language != "" {
			values.Set("lang", p.language)
		}

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return weather.Snapshot{}, err
	}
	defer resp.Body.Close()

	var payload oneCallResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.Snapshot{}, fmt.Errorf("failed to decode response: %w", err)
	}

	ts := time.Now().UTC()
	if payload.Current.Dt > 0 {
		ts = time.Unix(payload.Current.Dt, 0).UTC()
	}

	snap := weather.Snapshot{
		Provider:     p.name,
		Timestamp:    ts,
		TemperatureC: payload.Current.Temp,
		FeelsLikeC:   payload.Current.FeelsLike,
		Humidity:     payload.Current.Humidity,
		Pressure:     payload.Current.Pressure,
		WindSpeed:    payload.Current.WindSpeed,
		Clouds:       payload.Current.Clouds,
		Condition:    weather.ConditionUnknown,
	}
	if len(payload.Current.Weather) > 0 {
		w := payload.Current.Weather[0]
		snap.ConditionCode = w.ID
		snap.Icon = w.Icon
		snap.Description = w.Description
		snap.Condition = mapOpenWeatherCondition(w.ID)
	}
	return snap, nil
}

// mapOpenWeatherCondition groups OpenWeather condition ids.
// See https://openweathermap.org/weather-conditions.
func mapOpenWeatherCondition(id int) weather.Condition {
	switch {
	case id >= 200 && id < 300:
		return weather.ConditionStorm
	case id >= 300 && id < 400:
		return weather.ConditionDrizzle
	case id >= 500 && id < 600:
		return weather.ConditionRain
	case id >= 600 && id < 700:
		return weather.ConditionSnow
	case id >= 700 && id < 800:
		return weather.ConditionMist
	case id == 800:
		return weather.ConditionClear
	case id == 801:
		return weather.ConditionPartlyCloudy
	case id > 801 && id < 900:
		return weather.ConditionCloudy
	default:
		return weather.ConditionUnknown
	}
}

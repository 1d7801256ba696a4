package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/i474232898/weather-companion/internal/weather"
	"github.com/sony/gobreaker"
)

// WeatherAPIProvider implements weather.Provider for WeatherAPI.com.
type WeatherAPIProvider struct {
	name     string
	apiKey   string
	baseURL  string
	language string
	httpCfg  HTTPClientConfig
	circuit  *gobreaker.CircuitBreaker
}

func NewWeatherAPIProvider(client *http.Client, apiKey string, opts Options) *WeatherAPIProvider {
	return &WeatherAPIProvider{
		name:     "weatherapi",
		apiKey:   apiKey,
		baseURL:  "https://api.weatherapi.com/v1/current.json",
		language: opts.Language,
		httpCfg:  newHTTPConfig(client, opts),
		circuit:  newCircuitBreaker("weatherapi"),
	}
}

func (p *WeatherAPIProvider) Name() string {
	return p.name
}

func (p *WeatherAPIProvider) Current(ctx context.Context, loc weather.Location) (weather.Snapshot, error) {
	if p.apiKey == "" {
		return weather.Snapshot{}, fmt.Errorf("weatherapi api key is not configured")
	}

	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("key", p.apiKey)
		values.Set("q", fmt.Sprintf("%f,%f", loc.Latitude, loc.Longitude))
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

	var payload struct {
		Current struct {
			LastUpdatedEpoch int64   `json:"last_updated_epoch"`
			TempC            float64 `json:"temp_c"`
			FeelsLikeC       float64 `json:"feelslike_c"`
			Humidity         float64 `json:"humidity"`
			WindKph          float64 `json:"wind_kph"`
			PressureMb       float64 `json:"pressure_mb"`
			Cloud            float64 `json:"cloud"`
			IsDay            int     `json:"is_day"`
			Condition        struct {
				Text string `json:"text"`
				Code int    `json:"code"`
			} `json:"condition"`
		} `json:"current"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.Snapshot{}, fmt.Errorf("failed to decode response: %w", err)
	}

	cur := payload.Current
	ts := time.Now().UTC()
	if cur.LastUpdatedEpoch > 0 {
		ts = time.Unix(cur.LastUpdatedEpoch, 0).UTC()
	}

	cond := mapWeatherAPICondition(cur.Condition.Text)

	return weather.Snapshot{
		Provider:      p.name,
		Timestamp:     ts,
		TemperatureC:  cur.TempC,
		FeelsLikeC:    cur.FeelsLikeC,
		Humidity:      cur.Humidity,
		Pressure:      cur.PressureMb,
		WindSpeed:     cur.WindKph / 3.6,
		Clouds:        cur.Cloud,
		Condition:     cond,
		ConditionCode: cur.Condition.Code,
		Icon:          weather.IconFor(cond, cur.IsDay == 1),
		Description:   cur.Condition.Text,
	}, nil
}

func mapWeatherAPICondition(text string) weather.Condition {
	t := strings.ToLower(text)
	switch {
	case t == "":
		return weather.ConditionUnknown
	case hasAny(t, "thunder", "storm"):
		return weather.ConditionStorm
	case hasAny(t, "snow", "sleet", "blizzard", "ice pellets"):
		return weather.ConditionSnow
	case hasAny(t, "drizzle"):
		return weather.ConditionDrizzle
	case hasAny(t, "rain", "shower"):
		return weather.ConditionRain
	case hasAny(t, "mist", "fog", "haze"):
		return weather.ConditionMist
	case hasAny(t, "partly"):
		return weather.ConditionPartlyCloudy
	case hasAny(t, "cloud", "overcast"):
		return weather.ConditionCloudy
	case hasAny(t, "sunny", "clear"):
		return weather.ConditionClear
	default:
		return weather.ConditionUnknown
	}
}

func hasAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

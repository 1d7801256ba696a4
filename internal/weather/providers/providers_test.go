package providers

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/i474232898/weather-companion/internal/weather"
)

var seoul = weather.Location{Idx: 0, CityName: "Seoul", Latitude: 37.5665, Longitude: 126.978}

func TestOpenWeatherProvider_Current(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("appid") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if q.Get("lat") != "37.566500" || q.Get("lon") != "126.978000" {
			t.Errorf("unexpected coordinates lat=%s lon=%s", q.Get("lat"), q.Get("lon"))
		}
		if q.Get("units") != "metric" || q.Get("lang") != "kr" {
			t.Errorf("unexpected units=%s lang=%s", q.Get("units"), q.Get("lang"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"timezone": "Asia/Seoul",
			"current": {
				"dt": 1700000000,
				"temp": 12.5,
				"feels_like": 11.1,
				"pressure": 1018,
				"humidity": 64,
				"clouds": 75,
				"wind_speed": 3.2,
				"weather": [{"id": 803, "main": "Clouds", "description": "broken clouds", "icon": "04d"}]
			}
		}`))
	}))
	defer srv.Close()

	p := NewOpenWeatherProvider(srv.Client(), "secret", Options{Language: "kr"})
	p.baseURL = srv.URL

	got, err := p.Current(context.Background(), seoul)
	if err != nil {
		t.Fatalf("Current() unexpected error = %v", err)
	}

	if got.TemperatureC != 12.5 || got.FeelsLikeC != 11.1 || got.Humidity != 64 {
		t.Errorf("Current() temps/humidity = %+v", got)
	}
	if got.Icon != "04d" || got.ConditionCode != 803 || got.Condition != weather.ConditionCloudy {
		t.Errorf("Current() condition = (%q, %d, %v), want (04d, 803, cloudy)", got.Icon, got.ConditionCode, got.Condition)
	}
	if !got.Timestamp.Equal(time.Unix(1700000000, 0)) {
		t.Errorf("Timestamp = %v", got.Timestamp)
	}
	if got.Provider != "openweathermap" {
		t.Errorf("Provider = %q", got.Provider)
	}

	bad := NewOpenWeatherProvider(srv.Client(), "wrong", Options{Language: "kr"})
	bad.baseURL = srv.URL
	if _, err := bad.Current(context.Background(), seoul); !errors.Is(err, errUnauthorized) {
		t.Errorf("Current() with bad key error = %v, want errUnauthorized", err)
	}
}

func TestOpenWeatherProvider_MissingKey(t *testing.T) {
	p := NewOpenWeatherProvider(http.DefaultClient, "", Options{})
	if _, err := p.Current(context.Background(), seoul); err == nil {
		t.Fatal("Current() expected error for missing api key")
	}
}

func TestOpenMeteoProvider_Current(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("current_weather") != "true" {
			t.Errorf("current_weather flag missing")
		}
		_, _ = w.Write([]byte(`{"current_weather":{"temperature":-2.5,"windspeed":18,"time":"2024-01-10T06:00","weathercode":73,"is_day":0}}`))
	}))
	defer srv.Close()

	p := NewOpenMeteoProvider(srv.Client(), Options{})
	p.baseURL = srv.URL

	got, err := p.Current(context.Background(), seoul)
	if err != nil {
		t.Fatalf("Current() unexpected error = %v", err)
	}
	if got.Condition != weather.ConditionSnow || got.Icon != "13n" {
		t.Errorf("Current() condition = (%v, %q), want (snow, 13n)", got.Condition, got.Icon)
	}
	if math.Abs(got.WindSpeed-5) > 1e-9 {
		t.Errorf("WindSpeed = %v, want 5 m/s", got.WindSpeed)
	}
	want := time.Date(2024, 1, 10, 6, 0, 0, 0, time.UTC)
	if !got.Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", got.Timestamp, want)
	}
}

func TestWeatherAPIProvider_Current(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "37.566500,126.978000" {
			t.Errorf("q = %q", got)
		}
		_, _ = w.Write([]byte(`{"current":{"last_updated_epoch":1700000000,"temp_c":20,"feelslike_c":19,"humidity":40,
			"wind_kph":36,"pressure_mb":1012,"cloud":10,"is_day":1,"condition":{"text":"Patchy light drizzle","code":1150}}}`))
	}))
	defer srv.Close()

	p := NewWeatherAPIProvider(srv.Client(), "key", Options{})
	p.baseURL = srv.URL

	got, err := p.Current(context.Background(), seoul)
	if err != nil {
		t.Fatalf("Current() unexpected error = %v", err)
	}
	if got.Condition != weather.ConditionDrizzle || got.Icon != "09d" {
		t.Errorf("Current() condition = (%v, %q), want (drizzle, 09d)", got.Condition, got.Icon)
	}
	if math.Abs(got.WindSpeed-10) > 1e-9 {
		t.Errorf("WindSpeed = %v, want 10", got.WindSpeed)
	}
}

func TestDoRequestWithResilience_Retries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	build := func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	}

	t.Run("single attempt by default", func(t *testing.T) {
		atomic.StoreInt32(&calls, 0)
		cfg := newHTTPConfig(srv.Client(), Options{})
		_, err := doRequestWithResilience(context.Background(), cfg, newCircuitBreaker("t1"), build)
		if !errors.Is(err, errServerError) {
			t.Fatalf("error = %v, want errServerError", err)
		}
		if n := atomic.LoadInt32(&calls); n != 1 {
			t.Errorf("calls = %d, want 1", n)
		}
	})

	t.Run("retries when configured", func(t *testing.T) {
		atomic.StoreInt32(&calls, 0)
		cfg := newHTTPConfig(srv.Client(), Options{MaxRetries: 2})
		cfg.Backoff.InitialInterval = time.Millisecond
		resp, err := doRequestWithResilience(context.Background(), cfg, newCircuitBreaker("t2"), build)
		if err != nil {
			t.Fatalf("unexpected error = %v", err)
		}
		resp.Body.Close()
		if n := atomic.LoadInt32(&calls); n != 2 {
			t.Errorf("calls = %d, want 2", n)
		}
	})

	t.Run("no client", func(t *testing.T) {
		cfg := newHTTPConfig(nil, Options{})
		if _, err := doRequestWithResilience(context.Background(), cfg, newCircuitBreaker("t3"), build); !errors.Is(err, errNoHTTPClient) {
			t.Errorf("error = %v, want errNoHTTPClient", err)
		}
	})
}

func TestMapOpenWeatherCondition(t *testing.T) {
	tests := map[int]weather.Condition{
		211: weather.ConditionStorm,
		301: weather.ConditionDrizzle,
		502: weather.ConditionRain,
		601: weather.ConditionSnow,
		741: weather.ConditionMist,
		800: weather.ConditionClear,
		801: weather.ConditionPartlyCloudy,
		804: weather.ConditionCloudy,
		0:   weather.ConditionUnknown,
	}
	for id, want := range tests {
		if got := mapOpenWeatherCondition(id); got != want {
			t.Errorf("mapOpenWeatherCondition(%d) = %v, want %v", id, got, want)
		}
	}
}

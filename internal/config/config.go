package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var validate = validator.New()

type AppConfig struct {
	OpenWeatherAPIKey string
	WeatherAPIKey     string

	// Providers are tried in order until one answers.
	Providers       []string `validate:"min=1,dive,oneof=openweather weatherapi openmeteo"`
	WeatherLanguage string

	HTTPTimeout    time.Duration `validate:"gt=0"`
	HTTPMaxRetries int           `validate:"gte=0,lte=10"`

	StoreDriver string `validate:"oneof=bolt sqlite"`
	StorePath   string `validate:"required"`

	// Snapshot history kept in memory per location.
	StoreMaxHistory int           `validate:"gte=0"` // 0 = unlimited
	StoreMaxAge     time.Duration `validate:"gte=0"` // 0 = unlimited

	Geocoder              string `validate:"oneof=nominatim google"`
	GoogleGeocodingAPIKey string `validate:"required_if=Geocoder google"`
	GeocoderLanguage      string

	Device DeviceConfig

	LoadingDebounce time.Duration `validate:"gte=0"`
	// RefreshInterval of 0 disables periodic refresh.
	RefreshInterval time.Duration `validate:"gte=0"`

	Port string `validate:"required,numeric"`
	Log  LogConfig
}

// DeviceConfig seeds the simulated device position.
type DeviceConfig struct {
	HasFix     bool
	Latitude   float64 `validate:"latitude"`
	Longitude  float64 `validate:"longitude"`
	Authorized bool
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, text
}

var defaults = map[string]any{
	"weather_providers":          "openweather",
	"weather_language":           "en",
	"http_timeout":               "10s",
	"http_max_retries":           0,
	"store_driver":               "bolt",
	"store_path":                 "weather-companion.db",
	"snapshot_history":           48,
	"snapshot_max_age":           "24h",
	"geocoder":                   "nominatim",
	"geocoder_language":          "ko",
	"device_location_authorized": false,
	"loading_debounce":           "1s",
	"refresh_interval":           "30m",
	"port":                       "8080",
	"log_level":                  "info",
	"log_format":                 "text",
}

// Load reads configuration from the environment (after loading .env) and an
// optional weather-companion.yaml, applies defaults and validates the result.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file loaded", "error", err)
	}

	v := viper.New()
	v.SetConfigName("weather-companion")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*AppConfig, error) {
	cfg := &AppConfig{
		OpenWeatherAPIKey:     v.GetString("openweather_api_key"),
		WeatherAPIKey:         v.GetString("weatherapi_api_key"),
		Providers:             splitList(v.GetString("weather_providers")),
		WeatherLanguage:       v.GetString("weather_language"),
		StoreDriver:           strings.ToLower(v.GetString("store_driver")),
		StorePath:             v.GetString("store_path"),
		Geocoder:              strings.ToLower(v.GetString("geocoder")),
		GoogleGeocodingAPIKey: v.GetString("google_geocoding_api_key"),
		GeocoderLanguage:      v.GetString("geocoder_language"),
		Port:                  v.GetString("port"),
		Log: LogConfig{
			Level:  v.GetString("log_level"),
			Format: v.GetString("log_format"),
		},
	}

	var err error
	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"http_timeout", &cfg.HTTPTimeout},
		{"snapshot_max_age", &cfg.StoreMaxAge},
		{"loading_debounce", &cfg.LoadingDebounce},
		{"refresh_interval", &cfg.RefreshInterval},
	}
	for _, d := range durations {
		if *d.dst, err = time.ParseDuration(v.GetString(d.key)); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", strings.ToUpper(d.key), err)
		}
	}

	if cfg.HTTPMaxRetries, err = strconv.Atoi(v.GetString("http_max_retries")); err != nil {
		return nil, fmt.Errorf("invalid HTTP_MAX_RETRIES: %w", err)
	}
	if cfg.StoreMaxHistory, err = strconv.Atoi(v.GetString("snapshot_history")); err != nil {
		return nil, fmt.Errorf("invalid SNAPSHOT_HISTORY: %w", err)
	}

	if cfg.Device, err = loadDevice(v); err != nil {
		return nil, err
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func loadDevice(v *viper.Viper) (DeviceConfig, error) {
	d := DeviceConfig{Authorized: v.GetBool("device_location_authorized")}

	lat, lon := v.GetString("device_latitude"), v.GetString("device_longitude")
	if lat == "" && lon == "" {
		return d, nil
	}
	if lat == "" || lon == "" {
		return d, errors.New("DEVICE_LATITUDE and DEVICE_LONGITUDE must be set together")
	}

	var err error
	if d.Latitude, err = strconv.ParseFloat(lat, 64); err != nil {
		return d, fmt.Errorf("invalid DEVICE_LATITUDE: %w", err)
	}
	if d.Longitude, err = strconv.ParseFloat(lon, 64); err != nil {
		return d, fmt.Errorf("invalid DEVICE_LONGITUDE: %w", err)
	}
	d.HasFix = true
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ServerAddr returns the listen address in the format ":port".
func (c *AppConfig) ServerAddr() string {
	return ":" + c.Port
}

// NewLogger creates a new slog.Logger based on the configuration
func (c *AppConfig) NewLogger() *slog.Logger {
	var level slog.Level
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch strings.ToLower(c.Log.Format) {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, opts)
	default:
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

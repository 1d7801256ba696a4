package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/i474232898/weather-companion/internal/api/http"
	"github.com/i474232898/weather-companion/internal/config"
	"github.com/i474232898/weather-companion/internal/locator"
	"github.com/i474232898/weather-companion/internal/scheduler"
	"github.com/i474232898/weather-companion/internal/settings"
	"github.com/i474232898/weather-companion/internal/store"
	"github.com/i474232898/weather-companion/internal/viewmodel"
	"github.com/i474232898/weather-companion/internal/weather"
	"github.com/i474232898/weather-companion/internal/weather/providers"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx)
	stop()
	if err != nil {
		slog.Error("weather-companion stopped", "error", err)
		os.Exit(1)
	}
}

// run serves until ctx is done. It owns every resource, so deferred
// closes happen before main exits.
func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := cfg.NewLogger()
	slog.SetDefault(log)

	db, err := store.Open(cfg.StoreDriver, cfg.StorePath)
	if err != nil {
		return fmt.Errorf("open %s store at %s: %w", cfg.StoreDriver, cfg.StorePath, err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Warn("failed to close store", "error", err)
		}
	}()

	prefs := settings.New(db)
	first, err := prefs.MarkLaunched(context.Background())
	if err != nil {
		return fmt.Errorf("record launch: %w", err)
	}
	if first {
		log.Info("first launch, gps is off until the user opts in")
	}

	// Shared HTTP client for outbound calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	service := weather.NewService(buildProviders(cfg, httpClient, log), log)

	var fix *locator.Coords
	if cfg.Device.HasFix {
		fix = &locator.Coords{Latitude: cfg.Device.Latitude, Longitude: cfg.Device.Longitude}
	}
	device := locator.NewDevice(fix, cfg.Device.Authorized)

	var geo locator.Geocoder
	switch cfg.Geocoder {
	case "google":
		geo = locator.NewGoogleGeocoder(cfg.GoogleGeocodingAPIKey)
	default:
		geo = locator.NewNominatimClient(httpClient, cfg.GeocoderLanguage)
	}

	cache := store.NewSnapshotCache(cfg.StoreMaxHistory, cfg.StoreMaxAge)

	vm := viewmodel.New(viewmodel.Deps{
		Repo:     db,
		Settings: prefs,
		Fetcher:  service,
		Position: device,
		Geocoder: geo,
		Cache:    cache,
		Logger:   log,
	}, viewmodel.Options{
		LoadingDebounce: cfg.LoadingDebounce,
		FetchTimeout:    cfg.HTTPTimeout,
	})
	defer vm.Close()

	updates, unsubscribe := vm.Subscribe()
	defer unsubscribe()
	go watchLoading(updates, log)

	if err := vm.OnAppear(ctx); err != nil {
		log.Warn("initial load failed", "error", err)
	}

	sched := scheduler.New(vm, cfg.RefreshInterval, log)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "weather-companion",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-companion",
		})
	})

	httpapi.RegisterRoutes(app, httpapi.Deps{
		Pager:    vm,
		History:  cache,
		Settings: prefs,
		Device:   device,
	})

	go func() {
		log.Info("listening", "addr", cfg.ServerAddr())
		if err := app.Listen(cfg.ServerAddr()); err != nil {
			log.Warn("fiber server stopped", "error", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Warn("error during shutdown", "error", err)
	}
	vm.Wait()
	return nil
}

func buildProviders(cfg *config.AppConfig, client *http.Client, log *slog.Logger) []weather.Provider {
	opts := providers.Options{
		MaxRetries: cfg.HTTPMaxRetries,
		Language:   cfg.WeatherLanguage,
	}

	var provs []weather.Provider
	for _, name := range cfg.Providers {
		switch name {
		case "openweather":
			if cfg.OpenWeatherAPIKey == "" {
				log.Warn("OPENWEATHER_API_KEY not set, skipping provider", "provider", name)
				continue
			}
			provs = append(provs, providers.NewOpenWeatherProvider(client, cfg.OpenWeatherAPIKey, opts))
		case "weatherapi":
			if cfg.WeatherAPIKey == "" {
				log.Warn("WEATHERAPI_API_KEY not set, skipping provider", "provider", name)
				continue
			}
			provs = append(provs, providers.NewWeatherAPIProvider(client, cfg.WeatherAPIKey, opts))
		case "openmeteo":
			provs = append(provs, providers.NewOpenMeteoProvider(client, opts))
		}
	}
	if len(provs) == 0 {
		log.Warn("no weather provider configured, every fetch will fail")
	}
	return provs
}

// watchLoading logs transitions of the loading flag.
func watchLoading(updates <-chan viewmodel.State, log *slog.Logger) {
	loading := true
	for s := range updates {
		if s.Loading == loading {
			continue
		}
		loading = s.Loading
		if loading {
			log.Debug("loading", "cycle", s.Cycle)
		} else {
			log.Info("weather ready", "cycle", s.Cycle, "locations", len(s.Locations)-1, "snapshots", len(s.Weather))
		}
	}
}

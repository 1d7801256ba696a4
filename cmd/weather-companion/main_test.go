package main

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/i474232898/weather-companion/internal/store"
)

func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")

	err := run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "load config") {
		t.Fatalf("run() error = %v, want a config error", err)
	}
}

func TestRun_ReleasesStoreOnShutdown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "companion.db")
	t.Setenv("STORE_PATH", path)
	t.Setenv("WEATHER_PROVIDERS", "openmeteo")
	t.Setenv("REFRESH_INTERVAL", "0s")
	t.Setenv("PORT", "0")
	t.Setenv("LOG_LEVEL", "error")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx) }()

	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run() error = %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("run() did not return after cancel")
	}

	db, err := store.Open("bolt", path)
	if err != nil {
		t.Fatalf("store still held after run() returned: %v", err)
	}
	db.Close()
}

package settings

import (
	"context"
	"fmt"

	"github.com/i474232898/weather-companion/internal/store"
)

const (
	keyLaunchBefore = "LAUNCH_BEFORE"
	keyAllowGPS     = "ALLOW_GPS"
)

// AppSettings is a point-in-time copy of the persisted flags.
type AppSettings struct {
	LaunchedBefore bool `json:"launchedBefore"`
	AllowGPS       bool `json:"allowGps"`
}

// Store exposes the app-wide boolean flags kept in the embedded database.
// A flag that was never written reads as false.
type Store struct {
	kv store.KV
}

func New(kv store.KV) *Store {
	return &Store{kv: kv}
}

func (s *Store) LaunchedBefore(ctx context.Context) (bool, error) {
	return s.kv.GetBool(ctx, keyLaunchBefore)
}

// MarkLaunched records that the app has started and reports whether this
// was the first launch.
func (s *Store) MarkLaunched(ctx context.Context) (bool, error) {
	before, err := s.kv.GetBool(ctx, keyLaunchBefore)
	if err != nil {
		return false, fmt.Errorf("read launch flag: %w", err)
	}
	if before {
		return false, nil
	}
	if err := s.kv.SetBool(ctx, keyLaunchBefore, true); err != nil {
		return false, fmt.Errorf("write launch flag: %w", err)
	}
	return true, nil
}

func (s *Store) AllowGPS(ctx context.Context) (bool, error) {
	return s.kv.GetBool(ctx, keyAllowGPS)
}

func (s *Store) SetAllowGPS(ctx context.Context, allow bool) error {
	return s.kv.SetBool(ctx, keyAllowGPS, allow)
}

// Snapshot reads both flags.
func (s *Store) Snapshot(ctx context.Context) (AppSettings, error) {
	launched, err := s.LaunchedBefore(ctx)
	if err != nil {
		return AppSettings{}, err
	}
	allow, err := s.AllowGPS(ctx)
	if err != nil {
		return AppSettings{}, err
	}
	return AppSettings{LaunchedBefore: launched, AllowGPS: allow}, nil
}

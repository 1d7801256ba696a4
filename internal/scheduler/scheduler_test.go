package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

type countingRefresher struct {
	calls atomic.Int32
}

func (r *countingRefresher) RefreshWeather(context.Context) string {
	r.calls.Add(1)
	return "cycle"
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestScheduler_Disabled(t *testing.T) {
	r := &countingRefresher{}
	s := New(r, 0, quietLogger())

	if err := s.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer s.Stop()

	time.Sleep(50 * time.Millisecond)
	if got := r.calls.Load(); got != 0 {
		t.Errorf("refresh called %d times, want 0", got)
	}
}

func TestScheduler_RunsPeriodically(t *testing.T) {
	r := &countingRefresher{}
	s := New(r, 20*time.Millisecond, quietLogger())

	if err := s.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer s.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for r.calls.Load() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("refresh called %d times, want at least 2", r.calls.Load())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

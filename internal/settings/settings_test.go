package settings

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/i474232898/weather-companion/internal/store"
)

func TestStore_Flags(t *testing.T) {
	ctx := context.Background()

	db, err := store.Open("bolt", filepath.Join(t.TempDir(), "settings.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer db.Close()

	s := New(db)

	got, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot() failed: %v", err)
	}
	if got != (AppSettings{}) {
		t.Errorf("fresh Snapshot() = %+v, want all false", got)
	}

	first, err := s.MarkLaunched(ctx)
	if err != nil || !first {
		t.Fatalf("first MarkLaunched() = (%v, %v), want (true, nil)", first, err)
	}
	first, err = s.MarkLaunched(ctx)
	if err != nil || first {
		t.Fatalf("second MarkLaunched() = (%v, %v), want (false, nil)", first, err)
	}

	if err := s.SetAllowGPS(ctx, true); err != nil {
		t.Fatalf("SetAllowGPS() failed: %v", err)
	}

	got, _ = s.Snapshot(ctx)
	want := AppSettings{LaunchedBefore: true, AllowGPS: true}
	if got != want {
		t.Errorf("Snapshot() = %+v, want %+v", got, want)
	}
}

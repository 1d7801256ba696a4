package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/i474232898/weather-companion/internal/weather"
)

func openBackends(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()

	backends := map[string]Store{}
	for _, driver := range []string{"bolt", "sqlite"} {
		s, err := Open(driver, filepath.Join(dir, driver+".db"))
		if err != nil {
			t.Fatalf("Open(%s) failed: %v", driver, err)
		}
		t.Cleanup(func() { _ = s.Close() })
		backends[driver] = s
	}
	return backends
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := Open("realm", filepath.Join(t.TempDir(), "x.db")); !errors.Is(err, ErrUnknownDriver) {
		t.Fatalf("Open() error = %v, want ErrUnknownDriver", err)
	}
}

func TestRepository_UpsertCurrent(t *testing.T) {
	ctx := context.Background()

	for driver, s := range openBackends(t) {
		t.Run(driver, func(t *testing.T) {
			// Empty store: first row gets Idx 0.
			loc, updated, err := s.UpsertCurrent(ctx, "서울특별시", 37.56, 126.97)
			if err != nil {
				t.Fatalf("UpsertCurrent() failed: %v", err)
			}
			if updated || loc.Idx != 0 || !loc.IsPending() {
				t.Errorf("first UpsertCurrent() = (%+v, %v), want new pending row at 0", loc, updated)
			}

			// Pending row exists: overwritten in place.
			loc, updated, err = s.UpsertCurrent(ctx, "부산광역시", 35.17, 129.07)
			if err != nil {
				t.Fatalf("UpsertCurrent() failed: %v", err)
			}
			if !updated || loc.Idx != 0 {
				t.Errorf("second UpsertCurrent() = (%+v, %v), want update of Idx 0", loc, updated)
			}

			rows, err := s.List(ctx)
			if err != nil {
				t.Fatalf("List() failed: %v", err)
			}
			if len(rows) != 1 {
				t.Fatalf("List() returned %d rows, want 1", len(rows))
			}
			if rows[0].CityName != "부산광역시" || rows[0].Latitude != 35.17 || rows[0].Longitude != 129.07 {
				t.Errorf("row after overwrite = %+v", rows[0])
			}
		})
	}
}

func TestRepository_UpsertAppendsAfterCatalogRows(t *testing.T) {
	ctx := context.Background()

	for driver, s := range openBackends(t) {
		t.Run(driver, func(t *testing.T) {
			for i, name := range []string{"Tokyo", "Paris", "Lima"} {
				loc, err := s.Add(ctx, name, 100+i, float64(i), float64(i))
				if err != nil {
					t.Fatalf("Add(%s) failed: %v", name, err)
				}
				if loc.Idx != i || loc.DBIndex == nil || *loc.DBIndex != 100+i {
					t.Errorf("Add(%s) = %+v", name, loc)
				}
			}

			before, _ := s.List(ctx)

			loc, updated, err := s.UpsertCurrent(ctx, "Seoul", 37.5, 127)
			if err != nil {
				t.Fatalf("UpsertCurrent() failed: %v", err)
			}
			if updated {
				t.Error("UpsertCurrent() reported update with no pending row")
			}
			if loc.Idx != 3 {
				t.Errorf("UpsertCurrent() Idx = %d, want max+1 = 3", loc.Idx)
			}

			after, err := s.List(ctx)
			if err != nil {
				t.Fatalf("List() failed: %v", err)
			}
			if len(after) != len(before)+1 {
				t.Fatalf("row count = %d, want %d", len(after), len(before)+1)
			}
			for i, r := range after {
				if r.Idx != i {
					t.Errorf("List()[%d].Idx = %d, rows not ordered", i, r.Idx)
				}
			}
			if !after[3].IsPending() {
				t.Errorf("appended row %+v should be pending", after[3])
			}

			// A later manual add continues after the device row.
			loc, err = s.Add(ctx, "Oslo", 7, 59.9, 10.7)
			if err != nil {
				t.Fatalf("Add() failed: %v", err)
			}
			if loc.Idx != 4 {
				t.Errorf("Add() Idx = %d, want 4", loc.Idx)
			}
		})
	}
}

func TestRepository_Settings(t *testing.T) {
	ctx := context.Background()

	for driver, s := range openBackends(t) {
		t.Run(driver, func(t *testing.T) {
			v, err := s.GetBool(ctx, "ALLOW_GPS")
			if err != nil || v {
				t.Fatalf("GetBool(missing) = (%v, %v), want (false, nil)", v, err)
			}

			if err := s.SetBool(ctx, "ALLOW_GPS", true); err != nil {
				t.Fatalf("SetBool() failed: %v", err)
			}
			if v, _ := s.GetBool(ctx, "ALLOW_GPS"); !v {
				t.Error("GetBool() after SetBool(true) = false")
			}

			if err := s.SetBool(ctx, "ALLOW_GPS", false); err != nil {
				t.Fatalf("SetBool() failed: %v", err)
			}
			if v, _ := s.GetBool(ctx, "ALLOW_GPS"); v {
				t.Error("GetBool() after SetBool(false) = true")
			}
		})
	}
}

func TestRepository_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	for _, driver := range []string{"bolt", "sqlite"} {
		t.Run(driver, func(t *testing.T) {
			path := filepath.Join(dir, "reopen-"+driver+".db")

			s, err := Open(driver, path)
			if err != nil {
				t.Fatalf("Open() failed: %v", err)
			}
			if _, err := s.Add(ctx, "Busan", 3, 35.1, 129.0); err != nil {
				t.Fatalf("Add() failed: %v", err)
			}
			if err := s.SetBool(ctx, "LAUNCH_BEFORE", true); err != nil {
				t.Fatalf("SetBool() failed: %v", err)
			}
			if err := s.Close(); err != nil {
				t.Fatalf("Close() failed: %v", err)
			}

			s, err = Open(driver, path)
			if err != nil {
				t.Fatalf("reopen failed: %v", err)
			}
			defer s.Close()

			rows, err := s.List(ctx)
			if err != nil || len(rows) != 1 || rows[0].CityName != "Busan" {
				t.Fatalf("List() after reopen = (%+v, %v)", rows, err)
			}
			if v, _ := s.GetBool(ctx, "LAUNCH_BEFORE"); !v {
				t.Error("setting lost across reopen")
			}
		})
	}
}

func TestPlanUpsert(t *testing.T) {
	tests := []struct {
		name       string
		rows       []weather.Location
		wantIdx    int
		wantUpdate bool
	}{
		{"empty", nil, 0, false},
		{"only catalog rows", []weather.Location{{Idx: 0, DBIndex: weather.IntPtr(1)}, {Idx: 4, DBIndex: weather.IntPtr(2)}}, 5, false},
		{"pending row", []weather.Location{{Idx: 0, DBIndex: weather.IntPtr(1)}, {Idx: 2}}, 2, true},
		{"first pending wins", []weather.Location{{Idx: 1}, {Idx: 3}}, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, update := planUpsert(tt.rows)
			if idx != tt.wantIdx || update != tt.wantUpdate {
				t.Errorf("planUpsert() = (%d, %v), want (%d, %v)", idx, update, tt.wantIdx, tt.wantUpdate)
			}
		})
	}
}

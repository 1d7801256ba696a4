package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/i474232898/weather-companion/internal/weather"
)

var (
	// ErrNotFound is returned when no data is available for a given key.
	ErrNotFound = errors.New("not found")
	// ErrUnknownDriver is returned by Open for an unsupported backend name.
	ErrUnknownDriver = errors.New("unknown store driver")
)

// LocationRepository persists the user's saved locations.
type LocationRepository interface {
	// List returns all rows ordered by Idx ascending.
	List(ctx context.Context) ([]weather.Location, error)
	// UpsertCurrent stores the device-resolved location in one transaction.
	// The pending row (nil DBIndex) is overwritten in place if it exists,
	// otherwise a row is appended with the next Idx. The bool reports an update.
	UpsertCurrent(ctx context.Context, name string, latitude, longitude float64) (weather.Location, bool, error)
	// Add appends a catalog location with the next Idx.
	Add(ctx context.Context, name string, dbIndex int, latitude, longitude float64) (weather.Location, error)
}

// KV is a small typed key-value store for app settings.
type KV interface {
	GetBool(ctx context.Context, key string) (bool, error)
	SetBool(ctx context.Context, key string, value bool) error
}

// Store is the embedded database: locations plus settings.
type Store interface {
	LocationRepository
	KV
	Close() error
}

// Open opens the embedded database at path using driver ("bolt" or "sqlite").
func Open(driver, path string) (Store, error) {
	var (
		s   Store
		err error
	)
	switch driver {
	case "", "bolt":
		s, err = NewBolt(path)
	case "sqlite":
		s, err = NewSQLite(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// planUpsert decides where the device-resolved location goes given the
// current rows. It returns the Idx to write and whether that row exists.
func planUpsert(rows []weather.Location) (int, bool) {
	for _, r := range rows {
		if r.IsPending() {
			return r.Idx, true
		}
	}
	return nextIdx(rows), false
}

func nextIdx(rows []weather.Location) int {
	if len(rows) == 0 {
		return 0
	}
	highest := rows[0].Idx
	for _, r := range rows[1:] {
		if r.Idx > highest {
			highest = r.Idx
		}
	}
	return highest + 1
}

func sortByIdx(rows []weather.Location) {
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Idx < rows[j].Idx })
}

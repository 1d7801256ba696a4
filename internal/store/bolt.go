package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/asdine/storm/v3"
	bolt "go.etcd.io/bbolt"

	"github.com/i474232898/weather-companion/internal/weather"
)

const settingsBucket = "settings"

// savedLocation is the storm record. Idx is the domain identity and is not
// indexed: storm skips zero values in indexes and 0 is a valid Idx.
type savedLocation struct {
	ID        int `storm:"id,increment"`
	Idx       int
	CityName  string
	DBIndex   *int
	Longitude float64
	Latitude  float64
}

func (r savedLocation) toLocation() weather.Location {
	return weather.Location{
		Idx:       r.Idx,
		CityName:  r.CityName,
		DBIndex:   r.DBIndex,
		Longitude: r.Longitude,
		Latitude:  r.Latitude,
	}
}

// BoltStore implements Store on storm (bbolt).
type BoltStore struct {
	db *storm.DB
}

// NewBolt opens (or creates) the bolt file at path.
func NewBolt(path string) (*BoltStore, error) {
	db, err := storm.Open(path, storm.BoltOptions(0o600, &bolt.Options{Timeout: time.Second}))
	if err != nil {
		return nil, fmt.Errorf("open bolt store: %w", err)
	}
	return &BoltStore{db: db}, nil
}

func allRecords(n storm.Node) ([]savedLocation, error) {
	var recs []savedLocation
	if err := n.All(&recs); err != nil && !errors.Is(err, storm.ErrNotFound) {
		return nil, err
	}
	return recs, nil
}

func toLocations(recs []savedLocation) []weather.Location {
	out := make([]weather.Location, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.toLocation())
	}
	sortByIdx(out)
	return out
}

func (s *BoltStore) List(ctx context.Context) ([]weather.Location, error) {
	recs, err := allRecords(s.db)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	return toLocations(recs), nil
}

func (s *BoltStore) UpsertCurrent(ctx context.Context, name string, latitude, longitude float64) (weather.Location, bool, error) {
	tx, err := s.db.Begin(true)
	if err != nil {
		return weather.Location{}, false, err
	}
	defer tx.Rollback()

	recs, err := allRecords(tx)
	if err != nil {
		return weather.Location{}, false, fmt.Errorf("list locations: %w", err)
	}

	idx, update := planUpsert(toLocations(recs))
	rec := savedLocation{Idx: idx, CityName: name, Latitude: latitude, Longitude: longitude}
	if update {
		for _, r := range recs {
			if r.Idx == idx {
				rec.ID = r.ID
				break
			}
		}
	}

	if err := tx.Save(&rec); err != nil {
		return weather.Location{}, false, fmt.Errorf("save location: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return weather.Location{}, false, err
	}
	return rec.toLocation(), update, nil
}

func (s *BoltStore) Add(ctx context.Context, name string, dbIndex int, latitude, longitude float64) (weather.Location, error) {
	tx, err := s.db.Begin(true)
	if err != nil {
		return weather.Location{}, err
	}
	defer tx.Rollback()

	recs, err := allRecords(tx)
	if err != nil {
		return weather.Location{}, fmt.Errorf("list locations: %w", err)
	}

	rec := savedLocation{
		Idx:       nextIdx(toLocations(recs)),
		CityName:  name,
		DBIndex:   weather.IntPtr(dbIndex),
		Latitude:  latitude,
		Longitude: longitude,
	}
	if err := tx.Save(&rec); err != nil {
		return weather.Location{}, fmt.Errorf("save location: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return weather.Location{}, err
	}
	return rec.toLocation(), nil
}

func (s *BoltStore) GetBool(ctx context.Context, key string) (bool, error) {
	var v bool
	if err := s.db.Get(settingsBucket, key, &v); err != nil {
		if errors.Is(err, storm.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("get %s: %w", key, err)
	}
	return v, nil
}

func (s *BoltStore) SetBool(ctx context.Context, key string, value bool) error {
	if err := s.db.Set(settingsBucket, key, value); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

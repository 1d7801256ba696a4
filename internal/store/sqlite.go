package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/i474232898/weather-companion/internal/weather"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS locations (
	idx INTEGER PRIMARY KEY,
	city_name TEXT NOT NULL,
	db_index INTEGER,
	longitude REAL NOT NULL,
	latitude REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value INTEGER NOT NULL
);
`

// SQLiteStore implements Store using sqlite (pure Go driver modernc.org/sqlite).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database at path and applies the schema.
func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	// One writer; avoids SQLITE_BUSY between the API and refresh goroutines.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func listLocations(ctx context.Context, q queryer) ([]weather.Location, error) {
	rows, err := q.QueryContext(ctx, `SELECT idx, city_name, db_index, longitude, latitude FROM locations ORDER BY idx`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]weather.Location, 0)
	for rows.Next() {
		var (
			l       weather.Location
			dbIndex sql.NullInt64
		)
		if err := rows.Scan(&l.Idx, &l.CityName, &dbIndex, &l.Longitude, &l.Latitude); err != nil {
			return nil, err
		}
		if dbIndex.Valid {
			l.DBIndex = weather.IntPtr(int(dbIndex.Int64))
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) List(ctx context.Context) ([]weather.Location, error) {
	out, err := listLocations(ctx, s.db)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) UpsertCurrent(ctx context.Context, name string, latitude, longitude float64) (weather.Location, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return weather.Location{}, false, err
	}
	defer tx.Rollback()

	rows, err := listLocations(ctx, tx)
	if err != nil {
		return weather.Location{}, false, fmt.Errorf("list locations: %w", err)
	}

	idx, update := planUpsert(rows)
	if update {
		_, err = tx.ExecContext(ctx,
			`UPDATE locations SET city_name = ?, db_index = NULL, longitude = ?, latitude = ? WHERE idx = ?`,
			name, longitude, latitude, idx)
	} else {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO locations(idx, city_name, db_index, longitude, latitude) VALUES(?,?,NULL,?,?)`,
			idx, name, longitude, latitude)
	}
	if err != nil {
		return weather.Location{}, false, fmt.Errorf("save location: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return weather.Location{}, false, err
	}
	return weather.Location{Idx: idx, CityName: name, Longitude: longitude, Latitude: latitude}, update, nil
}

func (s *SQLiteStore) Add(ctx context.Context, name string, dbIndex int, latitude, longitude float64) (weather.Location, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return weather.Location{}, err
	}
	defer tx.Rollback()

	rows, err := listLocations(ctx, tx)
	if err != nil {
		return weather.Location{}, fmt.Errorf("list locations: %w", err)
	}

	loc := weather.Location{
		Idx:       nextIdx(rows),
		CityName:  name,
		DBIndex:   weather.IntPtr(dbIndex),
		Longitude: longitude,
		Latitude:  latitude,
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO locations(idx, city_name, db_index, longitude, latitude) VALUES(?,?,?,?,?)`,
		loc.Idx, loc.CityName, dbIndex, loc.Longitude, loc.Latitude); err != nil {
		return weather.Location{}, fmt.Errorf("save location: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return weather.Location{}, err
	}
	return loc, nil
}

func (s *SQLiteStore) GetBool(ctx context.Context, key string) (bool, error) {
	var v int
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s: %w", key, err)
	}
	return v != 0, nil
}

func (s *SQLiteStore) SetBool(ctx context.Context, key string, value bool) error {
	v := 0
	if value {
		v = 1
	}
	if _, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO settings(key, value) VALUES(?, ?)`, key, v); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

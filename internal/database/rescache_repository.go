package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// RescacheRepository is the durable tier of the response cache: raw provider
// responses keyed by a request fingerprint, with the time they were stored.
type RescacheRepository struct {
	db *sql.DB
}

// NewRescacheRepository creates a response cache repository.
func NewRescacheRepository(db *sql.DB) *RescacheRepository {
	return &RescacheRepository{db: db}
}

// Get returns the stored value and its timestamp. ok is false on a miss.
func (r *RescacheRepository) Get(key string) (value string, updatedAt time.Time, ok bool, err error) {
	var ts int64
	row := r.db.QueryRow(`SELECT value, updated_at FROM rescache WHERE key = ?`, key)
	if err := row.Scan(&value, &ts); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", time.Time{}, false, nil
		}
		return "", time.Time{}, false, fmt.Errorf("query rescache: %w", err)
	}
	return value, time.Unix(ts, 0).UTC(), true, nil
}

// Set stores (or replaces) the value under key with the current time.
func (r *RescacheRepository) Set(key, value string) error {
	_, err := r.db.Exec(`
		INSERT INTO rescache (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert rescache entry: %w", err)
	}
	return nil
}

// Timestamp returns when key was last stored; the zero time on a miss.
func (r *RescacheRepository) Timestamp(key string) (time.Time, error) {
	var ts int64
	row := r.db.QueryRow(`SELECT updated_at FROM rescache WHERE key = ?`, key)
	if err := row.Scan(&ts); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("query rescache timestamp: %w", err)
	}
	return time.Unix(ts, 0).UTC(), nil
}

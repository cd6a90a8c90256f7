package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"cinedex/models"
)

// MetacacheEntry is one persisted enrichment result. The tuple (IMDB, TVDB,
// Lang, UserKey) is the cache key; Item is the merged record. Entries are
// overwritten wholesale on insert and never expire on their own.
type MetacacheEntry struct {
	IMDB      string
	TVDB      string
	Lang      string
	UserKey   string
	Item      models.CatalogRecord
	UpdatedAt time.Time
}

// MetacacheRepository stores merged movie metadata per (id, language, user).
type MetacacheRepository struct {
	db *sql.DB
}

// NewMetacacheRepository creates a metacache repository.
func NewMetacacheRepository(db *sql.DB) *MetacacheRepository {
	return &MetacacheRepository{db: db}
}

// LookupMany returns the cached records for the given imdb ids, keyed by id.
// Ids without an entry are simply absent from the result.
func (r *MetacacheRepository) LookupMany(imdbIDs []string, lang, userKey string) (map[string]models.CatalogRecord, error) {
	found := make(map[string]models.CatalogRecord, len(imdbIDs))
	if len(imdbIDs) == 0 {
		return found, nil
	}

	placeholders := strings.Repeat("?,", len(imdbIDs))
	placeholders = placeholders[:len(placeholders)-1]
	query := fmt.Sprintf(
		`SELECT imdb, item FROM metacache WHERE imdb IN (%s) AND lang = ? AND user_key = ?`,
		placeholders,
	)

	args := make([]any, 0, len(imdbIDs)+2)
	for _, id := range imdbIDs {
		args = append(args, id)
	}
	args = append(args, lang, userKey)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query metacache: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var imdb, blob string
		if err := rows.Scan(&imdb, &blob); err != nil {
			return nil, fmt.Errorf("scan metacache row: %w", err)
		}
		var rec models.CatalogRecord
		if err := json.Unmarshal([]byte(blob), &rec); err != nil {
			// A corrupt entry just means a cache miss for that id.
			continue
		}
		found[imdb] = rec
	}
	return found, rows.Err()
}

// InsertMany upserts a batch of entries in a single transaction.
func (r *MetacacheRepository) InsertMany(entries []MetacacheEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin metacache insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO metacache (imdb, tvdb, lang, user_key, item, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(imdb, tvdb, lang, user_key) DO UPDATE SET
			item = excluded.item,
			updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("prepare metacache insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, e := range entries {
		blob, err := json.Marshal(e.Item)
		if err != nil {
			return fmt.Errorf("marshal metacache item %s: %w", e.IMDB, err)
		}
		tvdb := e.TVDB
		if tvdb == "" {
			tvdb = "0"
		}
		ts := e.UpdatedAt
		if ts.IsZero() {
			ts = now
		}
		if _, err := stmt.Exec(e.IMDB, tvdb, e.Lang, e.UserKey, string(blob), ts.Unix()); err != nil {
			return fmt.Errorf("insert metacache entry %s: %w", e.IMDB, err)
		}
	}

	return tx.Commit()
}

// Clear removes every cached entry. Used when provider credentials change.
func (r *MetacacheRepository) Clear() error {
	_, err := r.db.Exec(`DELETE FROM metacache`)
	return err
}

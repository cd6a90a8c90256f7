package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// SearchRepository stores previously entered search terms, newest first.
type SearchRepository struct {
	db *sql.DB
}

// NewSearchRepository creates a search history repository.
func NewSearchRepository(db *sql.DB) *SearchRepository {
	return &SearchRepository{db: db}
}

// Add records a search term. Blank terms are ignored.
func (r *SearchRepository) Add(term string) error {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil
	}
	_, err := r.db.Exec(
		`INSERT INTO search_history (term, created_at) VALUES (?, ?)`,
		term, time.Now().UTC().Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert search term: %w", err)
	}
	return nil
}

// List returns distinct terms, most recent first.
func (r *SearchRepository) List() ([]string, error) {
	rows, err := r.db.Query(
		`SELECT term FROM search_history GROUP BY term ORDER BY MAX(id) DESC`)
	if err != nil {
		return nil, fmt.Errorf("query search history: %w", err)
	}
	defer rows.Close()

	var terms []string
	for rows.Next() {
		var term string
		if err := rows.Scan(&term); err != nil {
			return nil, fmt.Errorf("scan search term: %w", err)
		}
		terms = append(terms, term)
	}
	return terms, rows.Err()
}

// Clear deletes the entire search history.
func (r *SearchRepository) Clear() error {
	_, err := r.db.Exec(`DELETE FROM search_history`)
	return err
}

// Package store provides the SQLite-backed local digest cache, used in
// development environments without a Postgres connection.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"paperfeed/internal/core"
	"paperfeed/internal/digest"
	"paperfeed/internal/logger"
)

// Store is the SQLite-based digest cache.
type Store struct {
	db   *sql.DB
	path string
}

var _ digest.Cache = (*Store)(nil)

// NewStore opens (or creates) the cache database under dataDir.
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "paperfeed.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return store, nil
}

// initialize creates the digests table.
func (s *Store) initialize() error {
	table := `
	CREATE TABLE IF NOT EXISTS weekly_digests (
		id TEXT,
		user_id TEXT NOT NULL,
		week_start TEXT NOT NULL,
		sections TEXT NOT NULL,
		paper_count INTEGER NOT NULL,
		generated_at DATETIME NOT NULL,
		PRIMARY KEY (user_id, week_start)
	);`
	_, err := s.db.Exec(table)
	return err
}

// Lookup returns the cached digest for the user and week; any error is a
// cache miss.
func (s *Store) Lookup(ctx context.Context, userID string, weekStart time.Time) (*core.StoredDigest, bool) {
	query := `SELECT id, sections, paper_count, generated_at FROM weekly_digests WHERE user_id = ? AND week_start = ?`

	var (
		id           string
		sectionsJSON string
		paperCount   int
		generatedAt  time.Time
	)
	err := s.db.QueryRowContext(ctx, query, userID, weekStart.Format("2006-01-02")).
		Scan(&id, &sectionsJSON, &paperCount, &generatedAt)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			logger.Debug("digest cache lookup treated as miss", "error", err.Error())
		}
		return nil, false
	}

	var sections core.DigestSections
	if err := json.Unmarshal([]byte(sectionsJSON), &sections); err != nil {
		logger.Debug("stored digest sections unreadable, treating as miss", "error", err.Error())
		return nil, false
	}

	return &core.StoredDigest{
		ID:          id,
		UserID:      userID,
		WeekStart:   weekStart,
		Sections:    sections,
		PaperCount:  paperCount,
		GeneratedAt: generatedAt,
	}, true
}

// Store upserts the digest for its (user, week) key.
func (s *Store) Store(ctx context.Context, d core.StoredDigest) error {
	sectionsJSON, err := json.Marshal(d.Sections)
	if err != nil {
		return fmt.Errorf("marshal sections: %w", err)
	}

	query := `
	INSERT INTO weekly_digests (id, user_id, week_start, sections, paper_count, generated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT (user_id, week_start)
	DO UPDATE SET id = excluded.id,
	              sections = excluded.sections,
	              paper_count = excluded.paper_count,
	              generated_at = excluded.generated_at`
	_, err = s.db.ExecContext(ctx, query,
		d.ID, d.UserID, d.WeekStart.Format("2006-01-02"), string(sectionsJSON), d.PaperCount, d.GeneratedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert digest: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Package persistence provides the Postgres-backed stores for candidates,
// profiles, search history, digests and subscribers.
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq" // Postgres driver

	"paperfeed/internal/config"
)

// psql builds placeholders in Postgres style ($1, $2, ...).
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Postgres wraps the connection pool and exposes the repositories.
type Postgres struct {
	db          *sql.DB
	candidates  *CandidateRepo
	profiles    *ProfileRepo
	searches    *SearchRepo
	digests     *DigestRepo
	subscribers *SubscriberRepo
}

// NewPostgres opens a pooled connection and verifies it with a ping.
func NewPostgres(cfg config.Database) (*Postgres, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen == 0 {
		maxOpen = 25
	}
	maxIdle := cfg.MaxIdleConns
	if maxIdle == 0 {
		maxIdle = 5
	}
	lifetime := cfg.ConnMaxLifetime
	if lifetime == 0 {
		lifetime = 5 * time.Minute
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(lifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Postgres{
		db:          db,
		candidates:  &CandidateRepo{db: db},
		profiles:    &ProfileRepo{db: db},
		searches:    &SearchRepo{db: db},
		digests:     &DigestRepo{db: db},
		subscribers: &SubscriberRepo{db: db},
	}, nil
}

func (p *Postgres) Candidates() *CandidateRepo   { return p.candidates }
func (p *Postgres) Profiles() *ProfileRepo       { return p.profiles }
func (p *Postgres) Searches() *SearchRepo        { return p.searches }
func (p *Postgres) Digests() *DigestRepo         { return p.digests }
func (p *Postgres) Subscribers() *SubscriberRepo { return p.subscribers }

func (p *Postgres) Close() error { return p.db.Close() }

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

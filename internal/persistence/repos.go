package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"paperfeed/internal/candidates"
	"paperfeed/internal/core"
	"paperfeed/internal/digest"
	"paperfeed/internal/logger"
)

// CandidateRepo reads scraped paper references from user_papers.
type CandidateRepo struct {
	db *sql.DB
}

// RecentCandidates returns the user's rows inside the trailing window,
// newest publication first then newest scrape first, capped at rowCap.
func (r *CandidateRepo) RecentCandidates(ctx context.Context, userID string, windowDays, rowCap int) ([]candidates.Row, error) {
	since := time.Now().UTC().AddDate(0, 0, -windowDays)

	query, args, err := psql.
		Select("paper_title", "paper_url", "semantic_scholar_id", "doi", "pmid", "source", "publication_date").
		From("user_papers").
		Where(sq.Eq{"user_id": userID}).
		Where(sq.GtOrEq{"scraped_at": since}).
		OrderBy("publication_date DESC NULLS LAST", "scraped_at DESC").
		Limit(uint64(rowCap)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build candidate query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()

	var out []candidates.Row
	for rows.Next() {
		var title, url, s2ID, doi, pmid, source, pubDate sql.NullString
		if err := rows.Scan(&title, &url, &s2ID, &doi, &pmid, &source, &pubDate); err != nil {
			return nil, fmt.Errorf("scan candidate row: %w", err)
		}
		out = append(out, candidates.Row{
			"paper_title":         title.String,
			"paper_url":           url.String,
			"semantic_scholar_id": s2ID.String,
			"doi":                 doi.String,
			"pmid":                pmid.String,
			"source":              source.String,
			"publication_date":    pubDate.String,
		})
	}
	return out, rows.Err()
}

// ProfileRepo reads user profiles, tolerating column drift across deployed
// schema generations.
type ProfileRepo struct {
	db *sql.DB
}

// Column sets tried in order, widest first. An undefined-column or
// undefined-table error falls through to the next narrower set.
var profileColumnSets = [][]string{
	{"bio", "personalization", "orcid_id"},
	{"bio", "personalization"},
	{"bio"},
}

// ReadProfile returns the stored profile inputs. A user without a profile
// row yields empty inputs, not an error.
func (r *ProfileRepo) ReadProfile(ctx context.Context, userID string) (digest.ProfileInputs, error) {
	var lastErr error
	for _, cols := range profileColumnSets {
		inputs, err := r.tryRead(ctx, userID, cols)
		if err == nil {
			return inputs, nil
		}
		if isSchemaError(err) {
			lastErr = err
			continue
		}
		if errors.Is(err, sql.ErrNoRows) {
			return digest.ProfileInputs{}, nil
		}
		return digest.ProfileInputs{}, err
	}
	return digest.ProfileInputs{}, fmt.Errorf("all profile column sets failed: %w", lastErr)
}

// tryRead attempts one column set against the profiles table.
func (r *ProfileRepo) tryRead(ctx context.Context, userID string, cols []string) (digest.ProfileInputs, error) {
	query, args, err := psql.
		Select(cols...).
		From("profiles").
		Where(sq.Eq{"user_id": userID}).
		Limit(1).
		ToSql()
	if err != nil {
		return digest.ProfileInputs{}, fmt.Errorf("build profile query: %w", err)
	}

	dest := make([]any, len(cols))
	var bio, personalization, orcidID sql.NullString
	for i, col := range cols {
		switch col {
		case "bio":
			dest[i] = &bio
		case "personalization":
			dest[i] = &personalization
		case "orcid_id":
			dest[i] = &orcidID
		}
	}

	if err := r.db.QueryRowContext(ctx, query, args...).Scan(dest...); err != nil {
		return digest.ProfileInputs{}, err
	}

	inputs := digest.ProfileInputs{Bio: bio.String, OrcidID: orcidID.String}
	if personalization.Valid && personalization.String != "" {
		if err := json.Unmarshal([]byte(personalization.String), &inputs.Clusters); err != nil {
			// Malformed personalization degrades to empty, the resolver
			// falls through to the next tier.
			logger.Debug("malformed personalization JSON", "user_id", userID, "error", err.Error())
			inputs.Clusters = nil
		}
	}
	return inputs, nil
}

// isSchemaError reports Postgres undefined-column/undefined-table errors.
func isSchemaError(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "42703" || pqErr.Code == "42P01"
	}
	return false
}

// SearchRepo stores and reads the user's paper search history.
type SearchRepo struct {
	db *sql.DB
}

// RecentQueries returns the user's most recent distinct queries.
func (r *SearchRepo) RecentQueries(ctx context.Context, userID string, limit int) ([]string, error) {
	query, args, err := psql.
		Select("query").
		From("search_history").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at DESC").
		Limit(uint64(limit * 3)). // over-fetch, duplicates removed below
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build search query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query search history: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]bool)
	var out []string
	for rows.Next() {
		var q string
		if err := rows.Scan(&q); err != nil {
			return nil, fmt.Errorf("scan search row: %w", err)
		}
		if seen[q] {
			continue
		}
		seen[q] = true
		out = append(out, q)
		if len(out) >= limit {
			break
		}
	}
	return out, rows.Err()
}

// RecordQuery appends one search to the history. Best effort; callers may
// ignore the error.
func (r *SearchRepo) RecordQuery(ctx context.Context, userID, queryText string) error {
	query, args, err := psql.
		Insert("search_history").
		Columns("user_id", "query", "created_at").
		Values(userID, queryText, time.Now().UTC()).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	_, err = r.db.ExecContext(ctx, query, args...)
	return err
}

// DigestRepo is the Postgres digest cache, keyed by (user_id, week_start).
type DigestRepo struct {
	db *sql.DB
}

var _ digest.Cache = (*DigestRepo)(nil)

// Lookup returns the stored digest for the user and week. Any error,
// including a missing table in unprovisioned environments, is a miss.
func (r *DigestRepo) Lookup(ctx context.Context, userID string, weekStart time.Time) (*core.StoredDigest, bool) {
	query, args, err := psql.
		Select("id", "sections", "paper_count", "generated_at").
		From("weekly_digests").
		Where(sq.Eq{"user_id": userID, "week_start": weekStart.Format("2006-01-02")}).
		ToSql()
	if err != nil {
		return nil, false
	}

	var (
		id           string
		sectionsJSON []byte
		paperCount   int
		generatedAt  time.Time
	)
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&id, &sectionsJSON, &paperCount, &generatedAt)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			logger.Debug("digest cache lookup treated as miss", "error", err.Error())
		}
		return nil, false
	}

	var sections core.DigestSections
	if err := json.Unmarshal(sectionsJSON, &sections); err != nil {
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
func (r *DigestRepo) Store(ctx context.Context, d core.StoredDigest) error {
	sectionsJSON, err := json.Marshal(d.Sections)
	if err != nil {
		return fmt.Errorf("marshal sections: %w", err)
	}

	query := `
		INSERT INTO weekly_digests (id, user_id, week_start, sections, paper_count, generated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, week_start)
		DO UPDATE SET sections = EXCLUDED.sections,
		              paper_count = EXCLUDED.paper_count,
		              generated_at = EXCLUDED.generated_at
	`
	_, err = r.db.ExecContext(ctx, query,
		d.ID, d.UserID, d.WeekStart.Format("2006-01-02"), sectionsJSON, d.PaperCount, d.GeneratedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert digest: %w", err)
	}
	return nil
}

// SubscriberRepo lists users opted in to digest emails.
type SubscriberRepo struct {
	db *sql.DB
}

// ListSubscribers returns all users with digest emails enabled.
func (r *SubscriberRepo) ListSubscribers(ctx context.Context) ([]core.Subscriber, error) {
	query, args, err := psql.
		Select("user_id", "email", "COALESCE(display_name, '')").
		From("profiles").
		Where(sq.Eq{"email_digest_enabled": true}).
		Where(sq.NotEq{"email": ""}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build subscriber query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query subscribers: %w", err)
	}
	defer rows.Close()

	var out []core.Subscriber
	for rows.Next() {
		var sub core.Subscriber
		if err := rows.Scan(&sub.UserID, &sub.Email, &sub.Name); err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

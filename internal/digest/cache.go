package digest

import (
	"context"
	"time"

	"paperfeed/internal/core"
)

// Cache persists one digest per (user, week). It is a best-effort
// performance layer: lookup errors are treated as misses and store errors
// are logged and swallowed by the orchestrator, never surfaced to callers.
type Cache interface {
	// Lookup returns the stored digest for the user and week, or ok=false on
	// miss. Implementations map infrastructure errors (missing table,
	// connection failure) to a miss.
	Lookup(ctx context.Context, userID string, weekStart time.Time) (*core.StoredDigest, bool)

	// Store upserts the digest for its (user, week) key. A second store for
	// the same key overwrites.
	Store(ctx context.Context, digest core.StoredDigest) error
}

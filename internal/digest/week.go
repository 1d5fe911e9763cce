// Package digest implements the weekly digest pipeline: candidate gathering,
// enrichment, LLM ranking with a deterministic fallback, and per-week caching.
package digest

import "time"

// WeekStart returns Monday 00:00 of t's ISO week, in t's location. This is
// the cache partition key: every request in the same calendar week for the
// same user maps to the same stored digest.
func WeekStart(t time.Time) time.Time {
	// Weekday() makes Sunday 0; shift so Monday is 0.
	offset := (int(t.Weekday()) + 6) % 7
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return midnight.AddDate(0, 0, -offset)
}

package digest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"paperfeed/internal/candidates"
	"paperfeed/internal/core"
)

type fakeCandidateReader struct {
	rows  []candidates.Row
	err   error
	calls int
}

func (f *fakeCandidateReader) RecentCandidates(ctx context.Context, userID string, windowDays, rowCap int) ([]candidates.Row, error) {
	f.calls++
	return f.rows, f.err
}

type fakeProfileReader struct {
	inputs ProfileInputs
	err    error
}

func (f *fakeProfileReader) ReadProfile(ctx context.Context, userID string) (ProfileInputs, error) {
	return f.inputs, f.err
}

type fakeQueryReader struct {
	queries []string
	err     error
}

func (f *fakeQueryReader) RecentQueries(ctx context.Context, userID string, limit int) ([]string, error) {
	return f.queries, f.err
}

type passthroughEnricher struct {
	calls int
}

func (f *passthroughEnricher) Enrich(ctx context.Context, cands []core.PaperCandidate, maxPapers int) []core.EnrichedPaper {
	f.calls++
	out := make([]core.EnrichedPaper, 0, len(cands))
	for i, cand := range cands {
		if len(out) >= maxPapers {
			break
		}
		c := i * 10
		out = append(out, core.EnrichedPaper{
			PaperCandidate: cand,
			Abstract:       "abstract",
			AbstractOrigin: core.AbstractFetched,
			CitationCount:  &c,
		})
	}
	return out
}

type fakeRanker struct {
	sections core.DigestSections
	err      error
	calls    int
}

func (f *fakeRanker) Rank(ctx context.Context, papers []core.EnrichedPaper, prof core.ProfileDescriptor) (core.DigestSections, error) {
	f.calls++
	if f.err != nil {
		return core.DigestSections{}, f.err
	}
	return f.sections, nil
}

// memoryCache is an in-memory Cache keyed by (user, week).
type memoryCache struct {
	mu      sync.Mutex
	entries map[string]core.StoredDigest
	lookups int
	stores  int
	failOps bool
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string]core.StoredDigest{}}
}

func cacheKey(userID string, weekStart time.Time) string {
	return userID + "|" + weekStart.Format("2006-01-02")
}

func (m *memoryCache) Lookup(ctx context.Context, userID string, weekStart time.Time) (*core.StoredDigest, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	if m.failOps {
		return nil, false
	}
	entry, ok := m.entries[cacheKey(userID, weekStart)]
	if !ok {
		return nil, false
	}
	return &entry, true
}

func (m *memoryCache) Store(ctx context.Context, digest core.StoredDigest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stores++
	if m.failOps {
		return fmt.Errorf("simulated store failure")
	}
	m.entries[cacheKey(digest.UserID, digest.WeekStart)] = digest
	return nil
}

func candidateRows(n int) []candidates.Row {
	rows := make([]candidates.Row, n)
	for i := range rows {
		rows[i] = candidates.Row{
			"paper_title": fmt.Sprintf("Paper %d", i+1),
			"paper_url":   fmt.Sprintf("https://example.org/%d", i+1),
		}
	}
	return rows
}

func newTestService(cands *fakeCandidateReader, ranker *fakeRanker, enricher *passthroughEnricher, cache Cache) *Service {
	svc := NewService(
		cands,
		&fakeProfileReader{inputs: ProfileInputs{Bio: "studies anaerobic digestion"}},
		&fakeQueryReader{},
		nil,
		enricher,
		ranker,
		cache,
		Options{},
	)
	svc.now = func() time.Time { return time.Date(2025, 6, 11, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestGenerateZeroCandidates(t *testing.T) {
	// Scenario A: zero candidate rows is a valid terminal state.
	ranker := &fakeRanker{}
	enricher := &passthroughEnricher{}
	svc := newTestService(&fakeCandidateReader{}, ranker, enricher, newMemoryCache())

	digest, traceID, err := svc.Generate(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("zero candidates must not be an error: %v", err)
	}
	if traceID == "" {
		t.Errorf("trace ID missing")
	}
	if digest.PapersCount != 0 {
		t.Errorf("papersCount = %d, want 0", digest.PapersCount)
	}
	if len(digest.MustReadPapers) != 0 || len(digest.WorthReadingPapers) != 0 {
		t.Errorf("expected empty lists")
	}
	if digest.Summary != NoMatchesSummary {
		t.Errorf("expected no-matches summary, got %q", digest.Summary)
	}
	if enricher.calls != 0 || ranker.calls != 0 {
		t.Errorf("no enrichment or ranking should run for zero candidates")
	}
}

func TestGenerateLLMFailureFallsBack(t *testing.T) {
	// Scenario B: 5 candidates enriched, LLM fails, heuristic partition 2/3.
	ranker := &fakeRanker{err: fmt.Errorf("model timeout")}
	svc := newTestService(&fakeCandidateReader{rows: candidateRows(5)}, ranker, &passthroughEnricher{}, newMemoryCache())

	digest, _, err := svc.Generate(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("LLM failure must be recovered via fallback: %v", err)
	}
	if ranker.calls != 1 {
		t.Errorf("expected exactly one ranking attempt, got %d", ranker.calls)
	}
	if len(digest.MustReadPapers) != 2 {
		t.Errorf("must-read = %d, want ceil(0.25*5) = 2", len(digest.MustReadPapers))
	}
	if len(digest.WorthReadingPapers) != 3 {
		t.Errorf("worth-reading = %d, want 3", len(digest.WorthReadingPapers))
	}
	if digest.PapersCount != 5 {
		t.Errorf("papersCount = %d, want 5", digest.PapersCount)
	}
}

func TestGenerateCacheHitSkipsPipeline(t *testing.T) {
	// Scenario C: second request in the same week returns the cached digest
	// with no new enrichment or LLM calls.
	cands := &fakeCandidateReader{rows: candidateRows(3)}
	ranker := &fakeRanker{sections: core.DigestSections{
		Summary:  "llm summary",
		MustRead: []core.RankedPaper{{Reason: "r"}},
	}}
	enricher := &passthroughEnricher{}
	cache := newMemoryCache()
	svc := newTestService(cands, ranker, enricher, cache)

	first, _, err := svc.Generate(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("first generate: %v", err)
	}

	second, _, err := svc.Generate(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("second generate: %v", err)
	}

	if enricher.calls != 1 || ranker.calls != 1 || cands.calls != 1 {
		t.Errorf("cache hit must skip the pipeline: enrich=%d rank=%d fetch=%d", enricher.calls, ranker.calls, cands.calls)
	}
	if second.Summary != first.Summary || second.PapersCount != first.PapersCount {
		t.Errorf("cached digest differs from original")
	}
	if !second.GeneratedAt.Equal(first.GeneratedAt) {
		t.Errorf("cached digest must keep the original generation time")
	}
	// Profile fields are recomputed on hit and remain populated.
	if second.ProfileDescription == "" || second.ProfileSource != core.ProfileSourceBio {
		t.Errorf("profile must be freshly resolved on cache hit: %+v", second)
	}
}

func TestGenerateCacheFailuresAreSoft(t *testing.T) {
	cache := newMemoryCache()
	cache.failOps = true
	ranker := &fakeRanker{sections: core.DigestSections{Summary: "ok"}}
	svc := newTestService(&fakeCandidateReader{rows: candidateRows(2)}, ranker, &passthroughEnricher{}, cache)

	digest, _, err := svc.Generate(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("cache failures must never fail the response: %v", err)
	}
	if digest.Summary != "ok" {
		t.Errorf("digest should still be returned, got %q", digest.Summary)
	}
	if cache.stores != 1 {
		t.Errorf("store should have been attempted once, got %d", cache.stores)
	}
}

func TestGenerateCandidateFetchErrorSurfaces(t *testing.T) {
	svc := newTestService(&fakeCandidateReader{err: fmt.Errorf("db down")}, &fakeRanker{}, &passthroughEnricher{}, nil)
	_, traceID, err := svc.Generate(context.Background(), "user-1")
	if err == nil {
		t.Fatalf("candidate store failure is a total pipeline failure and must surface")
	}
	if traceID == "" {
		t.Errorf("trace ID must be returned even on failure for correlation")
	}
}

func TestGenerateProfileFetchFailureDegrades(t *testing.T) {
	svc := NewService(
		&fakeCandidateReader{},
		&fakeProfileReader{err: fmt.Errorf("schema drift")},
		&fakeQueryReader{queries: []string{"perovskite solar cells"}},
		nil,
		&passthroughEnricher{},
		&fakeRanker{},
		nil,
		Options{},
	)
	svc.now = func() time.Time { return time.Date(2025, 6, 11, 12, 0, 0, 0, time.UTC) }

	digest, _, err := svc.Generate(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("profile fetch failure must degrade, not abort: %v", err)
	}
	if digest.ProfileSource != core.ProfileSourceRecentQueries {
		t.Errorf("expected fall-through to recent queries, got %s", digest.ProfileSource)
	}
	if !digest.ProfileIsFallback {
		t.Errorf("fallback flag must be set below the bio tier")
	}
}

func TestNewTraceID(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	got := newTraceID(now, "user-abc-123!@#")
	want := "dg_1700000000000_userabc1"
	if got != want {
		t.Errorf("newTraceID = %q, want %q", got, want)
	}
	if newTraceID(now, "!!!") != "dg_1700000000000_anon" {
		t.Errorf("non-alphanumeric user IDs must sanitize to anon")
	}
}

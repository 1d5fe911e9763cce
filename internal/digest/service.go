package digest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"paperfeed/internal/candidates"
	"paperfeed/internal/core"
	"paperfeed/internal/logger"
	"paperfeed/internal/profile"
)

// CandidateReader fetches raw candidate rows for a user over a trailing
// window, capped and ordered by publication recency.
type CandidateReader interface {
	RecentCandidates(ctx context.Context, userID string, windowDays, rowCap int) ([]candidates.Row, error)
}

// ProfileInputs are the stored profile signals for one user.
type ProfileInputs struct {
	Bio      string
	Clusters []core.TopicCluster
	OrcidID  string
}

// ProfileReader fetches the user's stored profile, tolerating schema drift.
type ProfileReader interface {
	ReadProfile(ctx context.Context, userID string) (ProfileInputs, error)
}

// QueryReader fetches the user's most recent search queries.
type QueryReader interface {
	RecentQueries(ctx context.Context, userID string, limit int) ([]string, error)
}

// KeywordSource resolves an external identifier to research keywords.
type KeywordSource interface {
	Keywords(ctx context.Context, orcidID string) ([]string, error)
}

// PaperEnricher bounds and augments the candidate list.
type PaperEnricher interface {
	Enrich(ctx context.Context, cands []core.PaperCandidate, maxPapers int) []core.EnrichedPaper
}

// SectionRanker produces digest sections from enriched papers; an error
// triggers the deterministic fallback.
type SectionRanker interface {
	Rank(ctx context.Context, papers []core.EnrichedPaper, prof core.ProfileDescriptor) (core.DigestSections, error)
}

// Options tune the pipeline.
type Options struct {
	MaxPapers        int // Enriched paper bound per run
	WindowDays       int // Candidate window
	RowCap           int // Candidate row cap
	RecentQueryCount int // Queries considered for the profile fallback tier
}

func (o *Options) applyDefaults() {
	if o.MaxPapers < 1 {
		o.MaxPapers = 12
	}
	if o.WindowDays < 1 {
		o.WindowDays = 7
	}
	if o.RowCap < 1 {
		o.RowCap = 60
	}
	if o.RecentQueryCount < 1 {
		o.RecentQueryCount = 10
	}
}

// Service orchestrates one digest generation per request: cache check,
// candidate fetch, profile resolution, enrichment, ranking with fallback,
// cache write, response assembly.
type Service struct {
	candidates CandidateReader
	profiles   ProfileReader
	queries    QueryReader
	keywords   KeywordSource // optional
	enricher   PaperEnricher
	ranker     SectionRanker
	cache      Cache // optional
	opts       Options
	now        func() time.Time
}

// NewService wires the pipeline. keywords and cache may be nil.
func NewService(cands CandidateReader, profiles ProfileReader, queries QueryReader, keywords KeywordSource, enricher PaperEnricher, ranker SectionRanker, cache Cache, opts Options) *Service {
	opts.applyDefaults()
	return &Service{
		candidates: cands,
		profiles:   profiles,
		queries:    queries,
		keywords:   keywords,
		enricher:   enricher,
		ranker:     ranker,
		cache:      cache,
		opts:       opts,
		now:        time.Now,
	}
}

// Generate runs the digest pipeline for one user and returns a complete
// digest. External failures along the way are recovered via fallbacks; an
// error here means the pipeline itself is broken.
func (s *Service) Generate(ctx context.Context, userID string) (*core.Digest, string, error) {
	traceID := newTraceID(s.now(), userID)
	log := logger.WithTrace(traceID)

	weekStart := WeekStart(s.now())
	log.Info("digest requested", "user_id", userID, "week_start", weekStart.Format("2006-01-02"))

	// The profile description is cheap and may have changed, so it is
	// recomputed even on a cache hit.
	prof := s.resolveProfile(ctx, userID, log)

	if s.cache != nil {
		if stored, ok := s.cache.Lookup(ctx, userID, weekStart); ok {
			log.Info("digest cache hit", "generated_at", stored.GeneratedAt)
			return assemble(stored, prof), traceID, nil
		}
		log.Debug("digest cache miss")
	}

	rows, err := s.candidates.RecentCandidates(ctx, userID, s.opts.WindowDays, s.opts.RowCap)
	if err != nil {
		return nil, traceID, fmt.Errorf("fetch candidates: %w", err)
	}
	cands := candidates.Normalize(rows)
	log.Info("candidates fetched", "rows", len(rows), "candidates", len(cands))

	if len(cands) == 0 {
		return s.finishEmpty(ctx, userID, weekStart, prof, log), traceID, nil
	}

	papers := s.enricher.Enrich(ctx, cands, s.opts.MaxPapers)
	if len(papers) == 0 {
		log.Warn("enrichment yielded no papers despite candidates")
		return s.finishEmpty(ctx, userID, weekStart, prof, log), traceID, nil
	}

	sections, err := s.ranker.Rank(ctx, papers, prof)
	if err != nil {
		log.Warn("LLM ranking failed, using heuristic fallback", "error", err.Error())
		sections = FallbackRank(papers, prof)
	} else {
		log.Info("LLM ranking succeeded", "must_read", len(sections.MustRead), "worth_reading", len(sections.WorthReading))
	}

	stored := core.StoredDigest{
		ID:          uuid.NewString(),
		UserID:      userID,
		WeekStart:   weekStart,
		Sections:    sections,
		PaperCount:  len(papers),
		GeneratedAt: s.now().UTC(),
	}
	s.storeBestEffort(ctx, stored, log)

	return assemble(&stored, prof), traceID, nil
}

// finishEmpty builds the zero-paper terminal digest. Valid state, not an
// error.
func (s *Service) finishEmpty(ctx context.Context, userID string, weekStart time.Time, prof core.ProfileDescriptor, log *slog.Logger) *core.Digest {
	stored := core.StoredDigest{
		ID:          uuid.NewString(),
		UserID:      userID,
		WeekStart:   weekStart,
		Sections:    FallbackRank(nil, prof),
		PaperCount:  0,
		GeneratedAt: s.now().UTC(),
	}
	s.storeBestEffort(ctx, stored, log)
	log.Info("empty digest generated")
	return assemble(&stored, prof)
}

// storeBestEffort swallows cache write failures; caching never blocks or
// fails the response.
func (s *Service) storeBestEffort(ctx context.Context, stored core.StoredDigest, log *slog.Logger) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Store(ctx, stored); err != nil {
		log.Warn("digest cache store failed", "error", err.Error())
	}
}

// resolveProfile fetches the profile signals and combines them. Each source
// defaults to empty on error, cascading through the precedence chain rather
// than aborting.
func (s *Service) resolveProfile(ctx context.Context, userID string, log *slog.Logger) core.ProfileDescriptor {
	var in profile.ResolverInput

	inputs, err := s.profiles.ReadProfile(ctx, userID)
	if err != nil {
		log.Debug("profile read failed", "error", err.Error())
	} else {
		in.Bio = inputs.Bio
		in.Clusters = inputs.Clusters
	}

	if queries, err := s.queries.RecentQueries(ctx, userID, s.opts.RecentQueryCount); err != nil {
		log.Debug("recent queries read failed", "error", err.Error())
	} else {
		in.RecentQueries = queries
	}

	if s.keywords != nil && inputs.OrcidID != "" {
		if keywords, err := s.keywords.Keywords(ctx, inputs.OrcidID); err != nil {
			log.Debug("orcid keywords fetch failed", "error", err.Error())
		} else {
			in.OrcidKeywords = keywords
		}
	}

	return profile.Resolve(in)
}

// assemble merges stored sections with the freshly resolved profile.
func assemble(stored *core.StoredDigest, prof core.ProfileDescriptor) *core.Digest {
	return &core.Digest{
		Summary:            stored.Sections.Summary,
		MustReadPapers:     stored.Sections.MustRead,
		WorthReadingPapers: stored.Sections.WorthReading,
		PapersCount:        stored.PaperCount,
		WeekStartDate:      stored.WeekStart,
		GeneratedAt:        stored.GeneratedAt,
		ProfileDescription: prof.Description,
		ProfileSource:      prof.Source,
		ProfileIsFallback:  prof.IsFallback,
	}
}

// newTraceID derives a per-request trace ID from the timestamp and a
// sanitized slice of the user identifier.
func newTraceID(now time.Time, userID string) string {
	var b strings.Builder
	for _, r := range userID {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
		if b.Len() >= 8 {
			break
		}
	}
	slice := b.String()
	if slice == "" {
		slice = "anon"
	}
	return fmt.Sprintf("dg_%d_%s", now.UnixMilli(), slice)
}

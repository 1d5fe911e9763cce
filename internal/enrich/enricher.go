package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"paperfeed/internal/core"
	"paperfeed/internal/logger"
)

// MetadataSource resolves one identifier to paper metadata. Implemented by
// SemanticScholarClient; tests substitute fakes.
type MetadataSource interface {
	Lookup(ctx context.Context, key string) (*PaperMetadata, error)
}

// PageScraper extracts an abstract from a paper's landing page.
type PageScraper interface {
	FetchAbstract(ctx context.Context, pageURL string) (string, error)
}

// Enricher augments candidates with metadata, deduplicates them and bounds
// the result count.
type Enricher struct {
	source  MetadataSource
	scraper PageScraper // optional
	log     *slog.Logger
}

// NewEnricher builds an enricher. scraper may be nil to disable the
// landing-page fallback.
func NewEnricher(source MetadataSource, scraper PageScraper) *Enricher {
	return &Enricher{source: source, scraper: scraper, log: logger.Get()}
}

// Enrich resolves each candidate, deduplicates by the best available
// identifier (paper ID > DOI > normalized URL > normalized title, first
// occurrence wins) and truncates to maxPapers preserving input order.
// A single candidate's failure never aborts the batch: the candidate is kept
// with a generated placeholder abstract.
func (e *Enricher) Enrich(ctx context.Context, cands []core.PaperCandidate, maxPapers int) []core.EnrichedPaper {
	if maxPapers < 1 {
		maxPapers = 1
	}

	seen := make(map[string]bool, len(cands))
	out := make([]core.EnrichedPaper, 0, min(len(cands), maxPapers))
	fetched := 0

	for _, cand := range cands {
		if len(out) >= maxPapers {
			break
		}

		paper := e.enrichOne(ctx, cand)

		key := dedupeKey(paper)
		if seen[key] {
			continue
		}
		seen[key] = true

		if paper.AbstractOrigin == core.AbstractFetched {
			fetched++
		}
		out = append(out, paper)
	}

	e.log.Info("candidates enriched",
		"candidates", len(cands),
		"enriched", len(out),
		"meaningful_abstracts", fetched,
	)
	return out
}

// enrichOne resolves a single candidate, falling back to a scrape and then a
// placeholder abstract.
func (e *Enricher) enrichOne(ctx context.Context, cand core.PaperCandidate) core.EnrichedPaper {
	paper := core.EnrichedPaper{PaperCandidate: cand}

	meta, err := e.lookup(ctx, cand)
	if err != nil {
		e.log.Debug("metadata lookup failed", "title", cand.Title, "error", err.Error())
	} else if meta != nil {
		if paper.PaperID == "" {
			paper.PaperID = meta.PaperID
		}
		paper.Venue = meta.Venue
		paper.CitationCount = meta.CitationCount
		if meta.Abstract != "" {
			paper.Abstract = meta.Abstract
			paper.AbstractOrigin = core.AbstractFetched
		}
		if ts := parsePublicationDate(meta.PublicationDate, meta.Year); ts != nil {
			paper.PublishedAt = ts
		}
	}

	if paper.PublishedAt == nil {
		paper.PublishedAt = parsePublicationDate(cand.PublishedRaw, 0)
	}

	if paper.Abstract == "" && e.scraper != nil {
		if text, err := e.scraper.FetchAbstract(ctx, cand.URL); err == nil {
			paper.Abstract = text
			paper.AbstractOrigin = core.AbstractFetched
		}
	}

	if paper.Abstract == "" {
		paper.Abstract = placeholderAbstract(cand)
		paper.AbstractOrigin = core.AbstractGenerated
	}

	return paper
}

// lookup tries the strongest identifier the candidate carries.
func (e *Enricher) lookup(ctx context.Context, cand core.PaperCandidate) (*PaperMetadata, error) {
	var key string
	switch {
	case cand.PaperID != "":
		key = cand.PaperID
	case cand.DOI != "":
		key = "DOI:" + cand.DOI
	case cand.PMID != "":
		key = "PMID:" + cand.PMID
	case cand.URL != "":
		key = "URL:" + cand.URL
	default:
		return nil, fmt.Errorf("candidate has no identifier")
	}
	return e.source.Lookup(ctx, key)
}

// dedupeKey picks the best available identifier for duplicate detection.
func dedupeKey(p core.EnrichedPaper) string {
	switch {
	case p.PaperID != "":
		return "id:" + p.PaperID
	case p.DOI != "":
		return "doi:" + strings.ToLower(p.DOI)
	case p.URL != "":
		return "url:" + normalizeURL(p.URL)
	default:
		return "title:" + normalizeTitle(p.Title)
	}
}

func normalizeURL(u string) string {
	u = strings.ToLower(strings.TrimSpace(u))
	u = strings.TrimPrefix(u, "https://")
	u = strings.TrimPrefix(u, "http://")
	u = strings.TrimPrefix(u, "www.")
	return strings.TrimSuffix(u, "/")
}

func normalizeTitle(t string) string {
	return strings.Join(strings.Fields(strings.ToLower(t)), " ")
}

// placeholderAbstract synthesizes a stand-in abstract so downstream ranking
// always has text to work with. Tagged generated so it never counts toward
// abstract quality.
func placeholderAbstract(cand core.PaperCandidate) string {
	from := cand.Source
	if from == "" {
		from = "your feed"
	}
	return fmt.Sprintf("No abstract was available for %q (found via %s). Judge relevance from the title.", cand.Title, from)
}

// parsePublicationDate tolerates the loose date formats stored alongside
// candidates and returned by the metadata service.
func parsePublicationDate(raw string, year int) *time.Time {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01", "2006"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return &ts
		}
	}
	if year > 0 {
		ts := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		return &ts
	}
	return nil
}

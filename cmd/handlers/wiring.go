package handlers

import (
	"fmt"

	"paperfeed/internal/config"
	"paperfeed/internal/digest"
	"paperfeed/internal/enrich"
	"paperfeed/internal/llm"
	"paperfeed/internal/persistence"
	"paperfeed/internal/profile"
	"paperfeed/internal/store"
)

// deps bundles everything the commands wire up from configuration.
type deps struct {
	cfg     *config.Config
	db      *persistence.Postgres
	service *digest.Service
	scholar *enrich.SemanticScholarClient
	closers []func() error
}

// Close releases held resources in reverse acquisition order.
func (d *deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		_ = d.closers[i]()
	}
}

// buildDeps constructs the digest pipeline from configuration. Candidate,
// profile and query reads require Postgres; the digest cache lives in
// Postgres too unless localCache asks for the on-disk SQLite cache, which
// keeps repeated CLI runs from re-billing the ranking model.
func buildDeps(localCache bool) (*deps, error) {
	cfg := config.Get()
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("database.url is not configured (set DATABASE_URL)")
	}

	d := &deps{cfg: cfg}

	db, err := persistence.NewPostgres(cfg.Database)
	if err != nil {
		return nil, err
	}
	d.db = db
	d.closers = append(d.closers, db.Close)

	var cache digest.Cache = db.Digests()
	if localCache {
		local, err := store.NewStore(cfg.App.DataDir)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("failed to open local digest cache: %w", err)
		}
		d.closers = append(d.closers, local.Close)
		cache = local
	}

	completer, err := llm.NewCompleter(cfg.AI)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	d.scholar = enrich.NewSemanticScholarClient(cfg.Enrichment)
	scraper := enrich.NewAbstractScraper(cfg.Enrichment.Timeout, cfg.Enrichment.UserAgent)
	enricher := enrich.NewEnricher(d.scholar, scraper)

	orcid := profile.NewOrcidClient(cfg.Enrichment.Timeout)

	d.service = digest.NewService(
		db.Candidates(),
		db.Profiles(),
		db.Searches(),
		orcid,
		enricher,
		digest.NewRanker(completer),
		cache,
		digest.Options{
			MaxPapers:        cfg.Enrichment.MaxPapers,
			WindowDays:       cfg.Digest.CandidateWindowDays,
			RowCap:           cfg.Digest.CandidateRowCap,
			RecentQueryCount: cfg.Digest.RecentQueryCount,
		},
	)
	return d, nil
}

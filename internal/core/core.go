// Package core defines the shared domain types for the digest pipeline.
package core

import "time"

// AbstractOrigin tags where an enriched paper's abstract came from.
type AbstractOrigin string

const (
	// AbstractFetched means the abstract came from the metadata service or a scrape.
	AbstractFetched AbstractOrigin = "fetched"
	// AbstractGenerated means no real abstract was found and a placeholder was synthesized.
	AbstractGenerated AbstractOrigin = "generated"
)

// ProfileSource identifies which tier of the profile precedence chain produced
// the descriptor.
type ProfileSource string

const (
	ProfileSourceBio             ProfileSource = "bio"
	ProfileSourcePersonalization ProfileSource = "personalization"
	ProfileSourceRecentQueries   ProfileSource = "recent_queries"
	ProfileSourceOrcid           ProfileSource = "orcid"
	ProfileSourceGeneric         ProfileSource = "generic"
)

// PaperCandidate is a raw reference to a paper discovered for a user.
// Candidates are read fresh from storage per digest run and never mutated.
type PaperCandidate struct {
	Title        string `json:"title"`         // Paper title (required for inclusion)
	URL          string `json:"url"`           // Landing page URL (required for inclusion)
	PaperID      string `json:"paper_id"`      // Semantic Scholar paper ID, if known
	DOI          string `json:"doi"`           // DOI, if known
	PMID         string `json:"pmid"`          // PubMed ID, if known
	Source       string `json:"source"`        // Where the candidate was scraped from
	PublishedRaw string `json:"published_raw"` // Loosely formatted publication date, may be empty or malformed
}

// EnrichedPaper is a candidate augmented with metadata-service fields.
type EnrichedPaper struct {
	PaperCandidate
	Abstract       string         `json:"abstract"`        // Abstract text, possibly a generated placeholder
	AbstractOrigin AbstractOrigin `json:"abstract_origin"` // fetched vs generated, gates quality counts
	Venue          string         `json:"venue"`           // Publication venue
	CitationCount  *int           `json:"citation_count"`  // Citation count, nil when unknown
	PublishedAt    *time.Time     `json:"published_at"`    // Resolved publication date, nil when unresolvable
}

// ProfileDescriptor is the resolved natural-language summary of a user's
// research interest used to prompt the ranker.
type ProfileDescriptor struct {
	Description string        `json:"description"`
	Source      ProfileSource `json:"source"`
	IsFallback  bool          `json:"is_fallback"` // True for any tier below the explicit bio
}

// RankedPaper pairs an enriched paper with the ranker's explanation.
type RankedPaper struct {
	Paper  EnrichedPaper `json:"paper"`
	Reason string        `json:"reason"` // "why" for must-read, "note" for worth-reading
}

// DigestSections is the ranked output for one digest run. MustRead and
// WorthReading are disjoint and reference only papers enriched that run.
type DigestSections struct {
	Summary      string        `json:"summary"`
	MustRead     []RankedPaper `json:"must_read"`
	WorthReading []RankedPaper `json:"worth_reading"`
}

// StoredDigest is the cached digest record keyed by (user, ISO week start).
type StoredDigest struct {
	ID          string         `json:"id"`           // Record UUID
	UserID      string         `json:"user_id"`      // Owning user
	WeekStart   time.Time      `json:"week_start"`   // Monday local midnight, the cache partition key
	Sections    DigestSections `json:"sections"`     // Ranked digest content
	PaperCount  int            `json:"paper_count"`  // Number of enriched papers considered
	GeneratedAt time.Time      `json:"generated_at"` // When the digest was generated
}

// Digest is the fully assembled response returned to the caller.
type Digest struct {
	Summary            string        `json:"summary"`
	MustReadPapers     []RankedPaper `json:"mustReadPapers"`
	WorthReadingPapers []RankedPaper `json:"worthReadingPapers"`
	PapersCount        int           `json:"papersCount"`
	WeekStartDate      time.Time     `json:"weekStartDate"`
	GeneratedAt        time.Time     `json:"generatedAt"`
	ProfileDescription string        `json:"profileDescription"`
	ProfileSource      ProfileSource `json:"profileSource"`
	ProfileIsFallback  bool          `json:"profileIsFallback"`
}

// TopicCluster is a user-curated interest cluster from structured
// personalization settings.
type TopicCluster struct {
	Name     string   `json:"name"`
	Keywords []string `json:"keywords"`
	Synonyms []string `json:"synonyms"`
}

// SearchResult is one hit from the paper search endpoint.
type SearchResult struct {
	PaperID         string   `json:"paper_id"`
	Title           string   `json:"title"`
	URL             string   `json:"url"`
	Venue           string   `json:"venue"`
	Year            int      `json:"year"`
	PublicationDate string   `json:"publication_date"`
	Authors         []string `json:"authors"`
}

// Subscriber is a user opted in to digest emails.
type Subscriber struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}

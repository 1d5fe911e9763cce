// Package candidates turns heterogeneous stored paper rows into a uniform
// candidate shape for the digest pipeline.
package candidates

import (
	"strings"

	"paperfeed/internal/core"
)

// Row is one stored paper reference as read from the candidate store. Field
// names vary across scraper generations (paper_title vs title, paper_url vs
// url), so rows are handled as loose maps rather than a fixed struct.
type Row map[string]any

// Field name aliases, in priority order. First non-empty wins.
var (
	titleKeys     = []string{"paper_title", "title"}
	urlKeys       = []string{"paper_url", "url", "link"}
	paperIDKeys   = []string{"semantic_scholar_id", "paper_id", "s2_id"}
	doiKeys       = []string{"doi"}
	pmidKeys      = []string{"pmid", "pubmed_id"}
	sourceKeys    = []string{"source", "scrape_source"}
	publishedKeys = []string{"publication_date", "published_at", "pub_date"}
)

// Normalize maps stored rows into paper candidates. A row is dropped (not an
// error) when, after trimming, it lacks either a title or a URL. Input order
// is preserved among kept rows. Rows sharing a title but differing in URL are
// kept as distinct candidates.
func Normalize(rows []Row) []core.PaperCandidate {
	out := make([]core.PaperCandidate, 0, len(rows))
	for _, row := range rows {
		title := firstString(row, titleKeys)
		url := firstString(row, urlKeys)
		if title == "" || url == "" {
			continue
		}
		out = append(out, core.PaperCandidate{
			Title:        title,
			URL:          url,
			PaperID:      firstString(row, paperIDKeys),
			DOI:          firstString(row, doiKeys),
			PMID:         firstString(row, pmidKeys),
			Source:       firstString(row, sourceKeys),
			PublishedRaw: firstString(row, publishedKeys),
		})
	}
	return out
}

// firstString returns the first non-empty trimmed string value among the
// given keys. Non-string values are ignored.
func firstString(row Row, keys []string) string {
	for _, key := range keys {
		if v, ok := row[key]; ok {
			if s, ok := v.(string); ok {
				if trimmed := strings.TrimSpace(s); trimmed != "" {
					return trimmed
				}
			}
		}
	}
	return ""
}

package digest

import (
	"fmt"
	"math"
	"sort"
	"time"

	"paperfeed/internal/core"
)

// NoMatchesSummary is the digest summary when no papers survived the run.
const NoMatchesSummary = "No new papers matched your interests this week. Check back after the next scrape."

// FallbackRank produces deterministic digest sections without any network
// calls. Used whenever the LLM path fails, times out, or returns unusable
// output. Papers are ordered by citation count descending, tie-broken by
// publication date descending; must-read takes the top
// max(1, min(3, ceil(0.25*N))) papers.
func FallbackRank(papers []core.EnrichedPaper, prof core.ProfileDescriptor) core.DigestSections {
	n := len(papers)
	if n == 0 {
		return core.DigestSections{
			Summary:      NoMatchesSummary,
			MustRead:     []core.RankedPaper{},
			WorthReading: []core.RankedPaper{},
		}
	}

	ranked := make([]core.EnrichedPaper, n)
	copy(ranked, papers)
	sort.SliceStable(ranked, func(i, j int) bool {
		ci, cj := citations(ranked[i]), citations(ranked[j])
		if ci != cj {
			return ci > cj
		}
		return published(ranked[i]).After(published(ranked[j]))
	})

	mustCount := mustReadCount(n)

	sections := core.DigestSections{
		Summary: fmt.Sprintf(
			"Ranked %d recent papers by citations and recency against your profile (%s).",
			n, prof.Description,
		),
		MustRead:     make([]core.RankedPaper, 0, mustCount),
		WorthReading: make([]core.RankedPaper, 0, n-mustCount),
	}

	for i, paper := range ranked {
		if i < mustCount {
			sections.MustRead = append(sections.MustRead, core.RankedPaper{
				Paper:  paper,
				Reason: mustReadReason(paper),
			})
			continue
		}
		sections.WorthReading = append(sections.WorthReading, core.RankedPaper{
			Paper:  paper,
			Reason: "Also published this week in your area.",
		})
	}
	return sections
}

// mustReadCount is max(1, min(3, ceil(0.25*N))) for N >= 1.
func mustReadCount(n int) int {
	count := int(math.Ceil(0.25 * float64(n)))
	if count < 1 {
		count = 1
	}
	if count > 3 {
		count = 3
	}
	return count
}

func mustReadReason(paper core.EnrichedPaper) string {
	if paper.CitationCount != nil && *paper.CitationCount > 0 {
		return fmt.Sprintf("Among the most cited of this week's matches (%d citations).", *paper.CitationCount)
	}
	return "One of the most recent papers matching your interests this week."
}

// citations treats unknown counts as lowest.
func citations(p core.EnrichedPaper) int {
	if p.CitationCount == nil {
		return -1
	}
	return *p.CitationCount
}

// published treats unknown dates as oldest.
func published(p core.EnrichedPaper) time.Time {
	if p.PublishedAt == nil {
		return time.Time{}
	}
	return *p.PublishedAt
}

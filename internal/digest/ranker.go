package digest

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"paperfeed/internal/core"
	"paperfeed/internal/llm"

	"google.golang.org/genai"
)

// rankerSystemPrompt frames the single ranking call per digest run.
const rankerSystemPrompt = "You are a research librarian compiling a weekly digest. " +
	"Rank the papers below for the reader described, split into must-read and worth-reading, " +
	"and answer with JSON only."

// Ranker issues the one structured-output completion per digest run and
// validates the result. Any failure is returned as an error; the caller falls
// back to the deterministic ranking, there is no retry loop here.
type Ranker struct {
	completer llm.Completer
}

// NewRanker wraps a completion backend.
func NewRanker(completer llm.Completer) *Ranker {
	return &Ranker{completer: completer}
}

// rankResponse is the JSON shape requested from the model. idx values are
// 1-based positions into the submitted paper list.
type rankResponse struct {
	Summary  string `json:"summary"`
	MustRead []struct {
		Idx int    `json:"idx"`
		Why string `json:"why"`
	} `json:"must_read"`
	WorthReading []struct {
		Idx  int    `json:"idx"`
		Note string `json:"note"`
	} `json:"worth_reading"`
}

// rankSchema constrains Gemini's output; other backends ignore it and rely
// on the prompt plus loose parsing.
func rankSchema() *genai.Schema {
	idxEntry := func(reasonField, desc string) *genai.Schema {
		return &genai.Schema{
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"idx":       {Type: genai.TypeInteger, Description: "1-based position in the submitted paper list"},
					reasonField: {Type: genai.TypeString, Description: desc},
				},
				Required: []string{"idx", reasonField},
			},
		}
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"summary":       {Type: genai.TypeString, Description: "Two or three sentences summarizing the week's papers for this reader"},
			"must_read":     idxEntry("why", "One sentence on why this reader must read the paper"),
			"worth_reading": idxEntry("note", "Short note on why the paper may interest the reader"),
		},
		Required: []string{"summary", "must_read", "worth_reading"},
	}
}

// Rank sends one completion request with the paper list and profile
// description, then validates the structured response: out-of-range indices
// are skipped, a paper never appears in both lists (must-read wins), and
// duplicate indices within a list keep only the first occurrence. An empty
// must-read list after filtering is still accepted.
func (r *Ranker) Rank(ctx context.Context, papers []core.EnrichedPaper, prof core.ProfileDescriptor) (core.DigestSections, error) {
	if len(papers) == 0 {
		return core.DigestSections{}, fmt.Errorf("no papers to rank")
	}

	raw, err := r.completer.Complete(ctx, llm.Request{
		System: rankerSystemPrompt,
		Prompt: buildRankPrompt(papers, prof),
		Schema: rankSchema(),
	})
	if err != nil {
		return core.DigestSections{}, fmt.Errorf("ranking completion: %w", err)
	}

	var parsed rankResponse
	if err := llm.ParseLoose(raw, &parsed); err != nil {
		return core.DigestSections{}, fmt.Errorf("ranking response: %w", err)
	}

	n := len(papers)
	used := make(map[int]bool, n)
	sections := core.DigestSections{
		Summary:      strings.TrimSpace(parsed.Summary),
		MustRead:     []core.RankedPaper{},
		WorthReading: []core.RankedPaper{},
	}

	for _, entry := range parsed.MustRead {
		if entry.Idx < 1 || entry.Idx > n || used[entry.Idx] {
			continue
		}
		used[entry.Idx] = true
		sections.MustRead = append(sections.MustRead, core.RankedPaper{
			Paper:  papers[entry.Idx-1],
			Reason: strings.TrimSpace(entry.Why),
		})
	}

	for _, entry := range parsed.WorthReading {
		if entry.Idx < 1 || entry.Idx > n || used[entry.Idx] {
			continue
		}
		used[entry.Idx] = true
		sections.WorthReading = append(sections.WorthReading, core.RankedPaper{
			Paper:  papers[entry.Idx-1],
			Reason: strings.TrimSpace(entry.Note),
		})
	}

	return sections, nil
}

// buildRankPrompt lists papers 1..N compactly with the reader's profile.
func buildRankPrompt(papers []core.EnrichedPaper, prof core.ProfileDescriptor) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Reader profile: %s\n\nPapers (1-%d):\n", prof.Description, len(papers))
	for i, paper := range papers {
		fmt.Fprintf(&b, "\n%d. %s\n", i+1, paper.Title)
		if paper.Venue != "" {
			fmt.Fprintf(&b, "   Venue: %s\n", paper.Venue)
		}
		if paper.CitationCount != nil {
			fmt.Fprintf(&b, "   Citations: %d\n", *paper.CitationCount)
		}
		fmt.Fprintf(&b, "   Abstract: %s\n", truncate(paper.Abstract, 600))
	}
	b.WriteString("\nRespond with JSON: {\"summary\": string, \"must_read\": [{\"idx\", \"why\"}], \"worth_reading\": [{\"idx\", \"note\"}]}. " +
		"idx is the paper's 1-based position above. Put at most a quarter of the papers in must_read.")
	return b.String()
}

// truncate cuts s to at most max bytes without splitting a UTF-8 rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}

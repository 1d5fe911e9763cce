package profile

import (
	"strings"
	"testing"

	"paperfeed/internal/core"
)

func TestResolveBioAlwaysWins(t *testing.T) {
	// Every lower tier populated: bio must still win.
	got := Resolve(ResolverInput{
		Bio:           "I study wastewater bioprocesses and resource recovery.",
		Clusters:      []core.TopicCluster{{Name: "Bioenergy", Keywords: []string{"anaerobic digestion"}}},
		RecentQueries: []string{"microbial fuel cells"},
		OrcidKeywords: []string{"environmental engineering"},
	})

	if got.Source != core.ProfileSourceBio {
		t.Fatalf("expected bio source, got %s", got.Source)
	}
	if got.IsFallback {
		t.Errorf("bio tier must not be flagged as fallback")
	}
	if got.Description != "I study wastewater bioprocesses and resource recovery." {
		t.Errorf("unexpected description: %q", got.Description)
	}
}

func TestResolvePrecedenceChain(t *testing.T) {
	tests := []struct {
		name       string
		in         ResolverInput
		wantSource core.ProfileSource
		wantPart   string
	}{
		{
			"personalization when no bio",
			ResolverInput{
				Clusters:      []core.TopicCluster{{Name: "ML", Keywords: []string{"transformers"}, Synonyms: []string{"attention"}}},
				RecentQueries: []string{"x"},
			},
			core.ProfileSourcePersonalization,
			"ML (transformers, attention)",
		},
		{
			"queries when no bio or clusters",
			ResolverInput{RecentQueries: []string{"graph neural networks", "protein folding"}},
			core.ProfileSourceRecentQueries,
			"graph neural networks, protein folding",
		},
		{
			"orcid keywords when nothing else",
			ResolverInput{OrcidKeywords: []string{"metagenomics"}},
			core.ProfileSourceOrcid,
			"metagenomics",
		},
		{
			"generic when everything empty",
			ResolverInput{},
			core.ProfileSourceGeneric,
			GenericDescription,
		},
		{
			"whitespace-only bio falls through",
			ResolverInput{Bio: "   ", RecentQueries: []string{"quantum error correction"}},
			core.ProfileSourceRecentQueries,
			"quantum error correction",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.in)
			if got.Source != tt.wantSource {
				t.Fatalf("source = %s, want %s", got.Source, tt.wantSource)
			}
			if !got.IsFallback {
				t.Errorf("every tier below bio must set IsFallback")
			}
			if !strings.Contains(got.Description, tt.wantPart) {
				t.Errorf("description %q missing %q", got.Description, tt.wantPart)
			}
		})
	}
}

func TestResolveDeterministic(t *testing.T) {
	in := ResolverInput{
		Clusters:      []core.TopicCluster{{Name: "NLP", Keywords: []string{"parsing", "parsing", "  "}}},
		RecentQueries: []string{"a", "b"},
	}
	first := Resolve(in)
	second := Resolve(in)
	if first != second {
		t.Errorf("resolver is not deterministic: %+v vs %+v", first, second)
	}
}

func TestCleanTermsDedupe(t *testing.T) {
	got := cleanTerms([]string{"LLM", "llm", " LLM ", "", "RAG"})
	if len(got) != 2 || got[0] != "LLM" || got[1] != "RAG" {
		t.Errorf("unexpected cleaned terms: %v", got)
	}
}

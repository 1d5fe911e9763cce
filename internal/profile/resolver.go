// Package profile resolves a user's research-interest description from the
// available profile signals.
package profile

import (
	"fmt"
	"strings"

	"paperfeed/internal/core"
)

// GenericDescription is the last-resort profile description.
const GenericDescription = "general research interests across recently published work"

// ResolverInput carries the already-fetched profile signals. Fetching (and
// tolerating per-source failures) is the orchestrator's job; each field
// defaults to empty when its source errored.
type ResolverInput struct {
	Bio           string
	Clusters      []core.TopicCluster
	RecentQueries []string
	OrcidKeywords []string
}

// Resolve combines the inputs into exactly one descriptor. Precedence, first
// non-empty wins: bio, structured personalization, recent queries, ORCID
// keywords, generic fallback. Deterministic and side-effect free.
func Resolve(in ResolverInput) core.ProfileDescriptor {
	if bio := strings.TrimSpace(in.Bio); bio != "" {
		return core.ProfileDescriptor{
			Description: bio,
			Source:      core.ProfileSourceBio,
			IsFallback:  false,
		}
	}

	if desc := describeClusters(in.Clusters); desc != "" {
		return core.ProfileDescriptor{
			Description: desc,
			Source:      core.ProfileSourcePersonalization,
			IsFallback:  true,
		}
	}

	if desc := describeQueries(in.RecentQueries); desc != "" {
		return core.ProfileDescriptor{
			Description: desc,
			Source:      core.ProfileSourceRecentQueries,
			IsFallback:  true,
		}
	}

	if desc := describeKeywords(in.OrcidKeywords); desc != "" {
		return core.ProfileDescriptor{
			Description: desc,
			Source:      core.ProfileSourceOrcid,
			IsFallback:  true,
		}
	}

	return core.ProfileDescriptor{
		Description: GenericDescription,
		Source:      core.ProfileSourceGeneric,
		IsFallback:  true,
	}
}

// describeClusters renders topic clusters into one descriptive sentence.
func describeClusters(clusters []core.TopicCluster) string {
	var parts []string
	for _, cluster := range clusters {
		name := strings.TrimSpace(cluster.Name)
		terms := cleanTerms(append(cluster.Keywords, cluster.Synonyms...))
		switch {
		case name != "" && len(terms) > 0:
			parts = append(parts, fmt.Sprintf("%s (%s)", name, strings.Join(terms, ", ")))
		case name != "":
			parts = append(parts, name)
		case len(terms) > 0:
			parts = append(parts, strings.Join(terms, ", "))
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "research interests in " + strings.Join(parts, "; ")
}

// describeQueries joins recent search queries into one phrase.
func describeQueries(queries []string) string {
	cleaned := cleanTerms(queries)
	if len(cleaned) == 0 {
		return ""
	}
	return "recently searched for: " + strings.Join(cleaned, ", ")
}

// describeKeywords renders externally sourced keywords into one phrase.
func describeKeywords(keywords []string) string {
	cleaned := cleanTerms(keywords)
	if len(cleaned) == 0 {
		return ""
	}
	return "research areas from public profile: " + strings.Join(cleaned, ", ")
}

// cleanTerms trims, drops empties and removes case-insensitive duplicates
// while preserving order.
func cleanTerms(terms []string) []string {
	seen := make(map[string]bool, len(terms))
	out := make([]string, 0, len(terms))
	for _, term := range terms {
		trimmed := strings.TrimSpace(term)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, trimmed)
	}
	return out
}

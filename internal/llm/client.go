// Package llm wraps the completion backends used by the digest ranker and
// provides defensive parsing for their output.
package llm

import (
	"context"
	"fmt"

	"paperfeed/internal/config"

	"google.golang.org/genai"
)

// Request describes one completion call.
type Request struct {
	System      string        // Optional system instruction
	Prompt      string        // User prompt
	Schema      *genai.Schema // Structured-output schema; honored by backends that support it
	Temperature float32
	MaxTokens   int32
}

// Completer issues a single completion request. Implementations must honor
// ctx cancellation and the backend's configured timeout.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
	ModelName() string
}

// NewCompleter builds the configured completion backend.
func NewCompleter(cfg config.AI) (Completer, error) {
	switch cfg.Provider {
	case "gemini":
		return NewGeminiClient(cfg.Gemini)
	case "perplexity":
		return NewPerplexityClient(cfg.Perplexity), nil
	default:
		return nil, fmt.Errorf("unknown AI provider: %q", cfg.Provider)
	}
}

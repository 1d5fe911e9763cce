package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Models wrap JSON answers in reasoning blocks, markdown fences, or prose.
// Each stage below is pure; ParseLoose chains them from cheapest to most
// aggressive and fails only when every stage does.

var reasoningBlockRe = regexp.MustCompile(`(?s)<think(?:ing)?>.*?</think(?:ing)?>`)

// StripReasoning removes <think>...</think> style reasoning blocks.
func StripReasoning(s string) string {
	return strings.TrimSpace(reasoningBlockRe.ReplaceAllString(s, ""))
}

// UnwrapFence removes a surrounding markdown code fence, if present.
func UnwrapFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

// ExtractObject returns the first balanced top-level JSON object in s,
// honoring string literals and escapes. The second return is false when no
// balanced object exists.
func ExtractObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// ParseLoose unmarshals a model response into v, tolerating reasoning
// blocks, code fences, and surrounding prose. It returns an error only when
// every extraction stage fails to yield valid JSON.
func ParseLoose(raw string, v any) error {
	// Direct parse first: well-behaved structured output needs no cleanup.
	if err := json.Unmarshal([]byte(raw), v); err == nil {
		return nil
	}

	cleaned := UnwrapFence(StripReasoning(raw))
	if err := json.Unmarshal([]byte(cleaned), v); err == nil {
		return nil
	}

	if obj, ok := ExtractObject(cleaned); ok {
		if err := json.Unmarshal([]byte(obj), v); err == nil {
			return nil
		}
	}

	return fmt.Errorf("no parsable JSON object in model response")
}

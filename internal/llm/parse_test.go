package llm

import (
	"testing"
)

func TestStripReasoning(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no block", `{"a":1}`, `{"a":1}`},
		{"think block", "<think>pondering...</think>\n{\"a\":1}", `{"a":1}`},
		{"thinking block", "<thinking>hmm</thinking>{\"a\":1}", `{"a":1}`},
		{"multiline block", "<think>line one\nline two</think> {\"a\":1}", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripReasoning(tt.in); got != tt.want {
				t.Errorf("StripReasoning(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestUnwrapFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no fence", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"padded fence", "  ```json\n{\"a\":1}\n```  ", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UnwrapFence(tt.in); got != tt.want {
				t.Errorf("UnwrapFence(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestExtractObject(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		want   string
		wantOK bool
	}{
		{"plain object", `{"a":1}`, `{"a":1}`, true},
		{"prose around object", `Here you go: {"a":{"b":2}} hope that helps`, `{"a":{"b":2}}`, true},
		{"brace inside string", `{"a":"value with } brace"}`, `{"a":"value with } brace"}`, true},
		{"escaped quote in string", `{"a":"say \"hi\" {"}`, `{"a":"say \"hi\" {"}`, true},
		{"no object", "just words", "", false},
		{"unbalanced", `{"a": {"b": 1}`, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractObject(tt.in)
			if ok != tt.wantOK {
				t.Fatalf("ExtractObject(%q) ok = %v, want %v", tt.in, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("ExtractObject(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseLoose(t *testing.T) {
	type payload struct {
		Summary string `json:"summary"`
	}

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"clean json", `{"summary":"ok"}`, "ok", false},
		{"fenced", "```json\n{\"summary\":\"fenced\"}\n```", "fenced", false},
		{"reasoning then fenced", "<think>let me rank</think>```json\n{\"summary\":\"both\"}\n```", "both", false},
		{"prose wrapped", `Sure! {"summary":"embedded"} Anything else?`, "embedded", false},
		{"no json at all", "I cannot answer that.", "", true},
		{"truncated json", `{"summary":"cut`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got payload
			err := ParseLoose(tt.in, &got)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLoose(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got.Summary != tt.want {
				t.Errorf("summary = %q, want %q", got.Summary, tt.want)
			}
		})
	}
}

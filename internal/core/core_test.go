package core

import (
	"encoding/json"
	"testing"
	"time"
)

// The Digest JSON field names are the API contract consumed by the web
// client; a renamed Go field must not silently rename the wire field.
func TestDigestJSONFieldNames(t *testing.T) {
	d := Digest{
		Summary:            "s",
		MustReadPapers:     []RankedPaper{},
		WorthReadingPapers: []RankedPaper{},
		PapersCount:        3,
		WeekStartDate:      time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC),
		GeneratedAt:        time.Now().UTC(),
		ProfileDescription: "p",
		ProfileSource:      ProfileSourceBio,
	}

	raw, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	for _, want := range []string{
		"summary",
		"mustReadPapers",
		"worthReadingPapers",
		"papersCount",
		"weekStartDate",
		"generatedAt",
		"profileDescription",
		"profileSource",
		"profileIsFallback",
	} {
		if _, ok := fields[want]; !ok {
			t.Errorf("digest JSON missing field %q", want)
		}
	}
	if len(fields) != 9 {
		t.Errorf("digest JSON has %d fields, want 9", len(fields))
	}
}

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"paperfeed/internal/config"
	"paperfeed/internal/core"
)

const testSecret = "test-secret"

type fakeDigestService struct {
	digest *core.Digest
	err    error
	gotUID string
}

func (f *fakeDigestService) Generate(ctx context.Context, userID string) (*core.Digest, string, error) {
	f.gotUID = userID
	if f.err != nil {
		return nil, "trace-err", f.err
	}
	return f.digest, "trace-ok", nil
}

type fakeSearcher struct {
	results []core.SearchResult
	err     error
}

func (f *fakeSearcher) Search(ctx context.Context, query string, windowDays, limit int) ([]core.SearchResult, error) {
	return f.results, f.err
}

type fakeRecorder struct {
	recorded []string
}

func (f *fakeRecorder) RecordQuery(ctx context.Context, userID, query string) error {
	f.recorded = append(f.recorded, query)
	return nil
}

func signedToken(t *testing.T, sub string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	raw, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return raw
}

func newTestServer(digests DigestService, search PaperSearcher, queries QueryRecorder) *Server {
	return New(digests, search, queries, config.Server{
		Host:      "127.0.0.1",
		Port:      0,
		JWTSecret: testSecret,
	})
}

func TestWeeklyDigestRequiresAuth(t *testing.T) {
	srv := newTestServer(&fakeDigestService{}, &fakeSearcher{}, nil)

	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"malformed header", "NotBearer xyz"},
		{"garbage token", "Bearer not.a.token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/digest/weekly", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
		})
	}
}

func TestWeeklyDigestSuccess(t *testing.T) {
	digests := &fakeDigestService{digest: &core.Digest{
		Summary:            "weekly summary",
		MustReadPapers:     []core.RankedPaper{},
		WorthReadingPapers: []core.RankedPaper{},
		PapersCount:        4,
		ProfileSource:      core.ProfileSourceBio,
	}}
	srv := newTestServer(digests, &fakeSearcher{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/digest/weekly", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, "user-42"))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if digests.gotUID != "user-42" {
		t.Errorf("user from token = %q, want user-42", digests.gotUID)
	}

	var resp DigestResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || resp.TraceID != "trace-ok" {
		t.Errorf("unexpected envelope: %+v", resp)
	}
	if resp.Digest.Summary != "weekly summary" || resp.Digest.PapersCount != 4 {
		t.Errorf("unexpected digest: %+v", resp.Digest)
	}
}

func TestWeeklyDigestFailureReturns500WithTrace(t *testing.T) {
	digests := &fakeDigestService{err: fmt.Errorf("pipeline broke")}
	srv := newTestServer(digests, &fakeSearcher{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/digest/weekly", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, "user-42"))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.TraceID != "trace-err" {
		t.Errorf("error response must carry the trace ID for correlation, got %+v", resp)
	}
	if resp.Details == "pipeline broke" {
		t.Errorf("internal error detail must not leak verbatim")
	}
}

func TestSearchRecordsQuery(t *testing.T) {
	recorder := &fakeRecorder{}
	srv := newTestServer(&fakeDigestService{}, &fakeSearcher{results: []core.SearchResult{{Title: "hit"}}}, recorder)

	req := httptest.NewRequest(http.MethodGet, "/api/papers/search?q=fuel+cells", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, "user-42"))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp SearchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Total != 1 || resp.Results[0].Title != "hit" {
		t.Errorf("unexpected results: %+v", resp)
	}
	if len(recorder.recorded) != 1 || recorder.recorded[0] != "fuel cells" {
		t.Errorf("query not recorded: %v", recorder.recorded)
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	srv := newTestServer(&fakeDigestService{}, &fakeSearcher{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/papers/search", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, "user-42"))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHealthIsPublic(t *testing.T) {
	srv := newTestServer(&fakeDigestService{}, &fakeSearcher{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("health must not require auth, got %d", rec.Code)
	}
}

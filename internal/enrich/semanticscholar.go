// Package enrich resolves paper candidates against the Semantic Scholar
// Graph API and bounds/deduplicates the enriched result set.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"paperfeed/internal/config"
	"paperfeed/internal/core"
)

const lookupFields = "paperId,title,abstract,venue,year,citationCount,publicationDate,externalIds,url"

const searchFields = "paperId,title,authors,url,venue,year,publicationDate"

// PaperMetadata is the subset of Graph API fields the enricher consumes.
type PaperMetadata struct {
	PaperID         string `json:"paperId"`
	Title           string `json:"title"`
	Abstract        string `json:"abstract"`
	Venue           string `json:"venue"`
	Year            int    `json:"year"`
	CitationCount   *int   `json:"citationCount"`
	PublicationDate string `json:"publicationDate"`
	URL             string `json:"url"`
}

type searchResponse struct {
	Total int `json:"total"`
	Data  []struct {
		PaperID         string `json:"paperId"`
		Title           string `json:"title"`
		URL             string `json:"url"`
		Venue           string `json:"venue"`
		Year            int    `json:"year"`
		PublicationDate string `json:"publicationDate"`
		Authors         []struct {
			Name string `json:"name"`
		} `json:"authors"`
	} `json:"data"`
}

// SemanticScholarClient talks to the Semantic Scholar Graph API.
type SemanticScholarClient struct {
	baseURL    string
	apiKey     string
	userAgent  string
	httpClient *http.Client
}

// NewSemanticScholarClient builds a client from configuration.
func NewSemanticScholarClient(cfg config.Enrichment) *SemanticScholarClient {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.semanticscholar.org"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 20 * time.Second
	}
	return &SemanticScholarClient{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		userAgent:  cfg.UserAgent,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Lookup fetches metadata for one paper. key accepts the Graph API's
// identifier forms: a raw paper ID, "DOI:...", "PMID:..." or "URL:...".
func (c *SemanticScholarClient) Lookup(ctx context.Context, key string) (*PaperMetadata, error) {
	endpoint := fmt.Sprintf("%s/graph/v1/paper/%s?fields=%s", c.baseURL, url.PathEscape(key), url.QueryEscape(lookupFields))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("metadata lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("metadata service %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var meta PaperMetadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return &meta, nil
}

// Search runs a keyword search over papers published in the trailing window.
func (c *SemanticScholarClient) Search(ctx context.Context, query string, windowDays, limit int) ([]core.SearchResult, error) {
	today := time.Now().UTC()
	start := today.AddDate(0, 0, -windowDays)

	params := url.Values{}
	params.Set("query", query)
	params.Set("fields", searchFields)
	params.Set("publicationDate", fmt.Sprintf("%s-%s", start.Format("2006-01-02"), today.Format("2006-01-02")))
	params.Set("limit", fmt.Sprintf("%d", limit))

	endpoint := fmt.Sprintf("%s/graph/v1/paper/search?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("paper search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("metadata service %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	results := make([]core.SearchResult, 0, len(parsed.Data))
	for _, row := range parsed.Data {
		authors := make([]string, 0, len(row.Authors))
		for _, a := range row.Authors {
			authors = append(authors, a.Name)
		}
		results = append(results, core.SearchResult{
			PaperID:         row.PaperID,
			Title:           row.Title,
			URL:             row.URL,
			Venue:           row.Venue,
			Year:            row.Year,
			PublicationDate: row.PublicationDate,
			Authors:         authors,
		})
	}
	return results, nil
}

func (c *SemanticScholarClient) setHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
}

package enrich

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// AbstractScraper pulls an abstract off a paper's landing page when the
// metadata service has none. Publisher pages expose one of a few well-known
// meta tags.
type AbstractScraper struct {
	httpClient *http.Client
	userAgent  string
}

// NewAbstractScraper builds a scraper with the given timeout.
func NewAbstractScraper(timeout time.Duration, userAgent string) *AbstractScraper {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &AbstractScraper{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  userAgent,
	}
}

// Meta tags checked in order. citation_abstract is the Highwire tag most
// publishers emit for indexers.
var abstractMetaSelectors = []string{
	`meta[name="citation_abstract"]`,
	`meta[name="dc.description"]`,
	`meta[property="og:description"]`,
	`meta[name="description"]`,
}

// FetchAbstract downloads the landing page and extracts the best abstract
// candidate. Returns an error when the page yields nothing usable.
func (s *AbstractScraper) FetchAbstract(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch landing page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("landing page returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parse landing page: %w", err)
	}

	for _, selector := range abstractMetaSelectors {
		if content, ok := doc.Find(selector).First().Attr("content"); ok {
			if text := strings.TrimSpace(content); len(text) > 40 {
				return text, nil
			}
		}
	}
	return "", fmt.Errorf("no abstract-bearing meta tag on page")
}

package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// OrcidClient fetches research keywords from the ORCID public API. Errors
// degrade to an empty keyword list upstream; this is the weakest profile
// signal.
type OrcidClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewOrcidClient builds a client against the public ORCID API.
func NewOrcidClient(timeout time.Duration) *OrcidClient {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &OrcidClient{
		baseURL:    "https://pub.orcid.org/v3.0",
		httpClient: &http.Client{Timeout: timeout},
	}
}

type orcidKeywordsResponse struct {
	Keyword []struct {
		Content string `json:"content"`
	} `json:"keyword"`
}

// Keywords returns the registered keywords for an ORCID iD.
func (c *OrcidClient) Keywords(ctx context.Context, orcidID string) ([]string, error) {
	orcidID = strings.TrimSpace(orcidID)
	if orcidID == "" {
		return nil, nil
	}

	endpoint := fmt.Sprintf("%s/%s/keywords", c.baseURL, orcidID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("orcid keywords: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("orcid returned %s", resp.Status)
	}

	var parsed orcidKeywordsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode orcid response: %w", err)
	}

	keywords := make([]string, 0, len(parsed.Keyword))
	for _, kw := range parsed.Keyword {
		if text := strings.TrimSpace(kw.Content); text != "" {
			keywords = append(keywords, text)
		}
	}
	return keywords, nil
}

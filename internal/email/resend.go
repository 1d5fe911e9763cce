package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"paperfeed/internal/config"
)

const defaultResendBaseURL = "https://api.resend.com"

// Message is a single outbound email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers rendered digest emails.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// ResendClient sends email through the Resend REST API.
type ResendClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	from       string
}

// NewResendClient creates a Resend API client from email configuration.
func NewResendClient(cfg config.Email) *ResendClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultResendBaseURL
	}
	from := cfg.FromAddress
	if cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", cfg.FromName, cfg.FromAddress)
	}
	return &ResendClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     cfg.ResendAPIKey,
		from:       from,
	}
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type resendError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// Send delivers a single email. Non-2xx responses are returned as errors
// with the API's message when one is available.
func (c *ResendClient) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(resendRequest{
		From:    c.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		HTML:    msg.HTML,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal email request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create email request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("email request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiErr resendError
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("email API returned %d: %s", resp.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("email API returned status %d", resp.StatusCode)
	}
	return nil
}

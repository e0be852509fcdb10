package moemail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// DefaultAPIBaseURL is used when no moemail deployment URL is configured.
const DefaultAPIBaseURL = "https://example.com/api"

const millisPerHour = int64(time.Hour / time.Millisecond)

// AliasRequest is the Addy.io-compatible request body accepted by the proxy.
// All fields are optional.
type AliasRequest struct {
	Domain      string `json:"domain,omitempty"`
	Description string `json:"description,omitempty"`
	LocalPart   string `json:"local_part,omitempty"`
}

// generatePayload is the moemail emails/generate request body.
type generatePayload struct {
	Domain     string `json:"domain,omitempty"`
	Name       string `json:"name,omitempty"`
	ExpiryTime int64  `json:"expiryTime"`
}

// APIError carries the real HTTP status returned by the moemail API so
// callers can map it without inspecting error text.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("moemail API error: %d %s", e.StatusCode, e.Message)
}

// Client talks to a moemail deployment's HTTP API.
type Client struct {
	baseURL     string
	expiryHours int
	httpClient  *http.Client
	logger      *slog.Logger
}

// NewClient creates a moemail API client. expiryHours is applied to every
// generated alias; zero means the alias never expires.
func NewClient(baseURL string, expiryHours int, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultAPIBaseURL
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		expiryHours: expiryHours,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		logger:      logger,
	}
}

// GenerateAlias creates a new alias address through the moemail API using the
// caller's own API key. It returns the created email address.
func (c *Client) GenerateAlias(ctx context.Context, apiKey string, req AliasRequest) (string, error) {
	expiry := int64(0)
	if c.expiryHours != 0 {
		expiry = int64(c.expiryHours) * millisPerHour
	}

	payload := generatePayload{ExpiryTime: expiry}
	if d := strings.TrimSpace(req.Domain); d != "" {
		payload.Domain = d
	}
	if lp := strings.TrimSpace(req.LocalPart); lp != "" {
		payload.Name = lp
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encoding alias request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/emails/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building alias request: %w", err)
	}
	httpReq.Header.Set("X-API-Key", apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("calling moemail API: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading moemail response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
	}

	var out struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decoding moemail response: %w", err)
	}
	if out.Email == "" {
		return "", errors.New("moemail response missing email field")
	}

	c.logger.Info("alias generated", "email", out.Email)
	return out.Email, nil
}

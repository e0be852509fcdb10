package wecom

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// TransportError reports an HTTP-level failure pushing to the bot webhook.
type TransportError struct {
	StatusCode int
	Body       string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("wecom push failed: HTTP %d - %s", e.StatusCode, e.Body)
}

// RejectionError reports a 2xx response whose errcode marks the push as
// failed. This is the bot platform's own failure signal, distinct from the
// HTTP status.
type RejectionError struct {
	Code    int
	Message string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("wecom push rejected: errcode=%d, errmsg=%s", e.Code, e.Message)
}

type pushAck struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

// Client delivers messages to a WeCom group-bot webhook. It makes exactly one
// attempt per Send; there is no retry and no delivery state.
type Client struct {
	webhookURL string
	secret     string
	logPayload bool
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
}

// NewClient creates a bot webhook client. secret may be empty for bots that
// accept unsigned calls. logPayload turns on logging of the full envelope
// before each send.
func NewClient(webhookURL, secret string, logPayload bool, logger *slog.Logger) *Client {
	return &Client{
		webhookURL: webhookURL,
		secret:     secret,
		logPayload: logPayload,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
		now:        time.Now,
	}
}

// Send posts one message to the bot webhook and validates the acknowledgment.
func (c *Client) Send(ctx context.Context, msg TextMessage) error {
	target, err := BuildSignedURL(c.webhookURL, c.secret, c.now())
	if err != nil {
		return err
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding wecom payload: %w", err)
	}

	if c.logPayload {
		c.logger.Info("wecom payload", "payload", string(body))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building wecom request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling wecom webhook: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading wecom response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &TransportError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	var ack pushAck
	if err := json.Unmarshal(raw, &ack); err != nil {
		return fmt.Errorf("decoding wecom response: %w", err)
	}
	if ack.ErrCode != 0 {
		return &RejectionError{Code: ack.ErrCode, Message: ack.ErrMsg}
	}
	return nil
}

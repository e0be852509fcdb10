package wecom

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// ErrWebhookNotConfigured means no bot webhook URL was configured. The check
// runs before any signing attempt.
var ErrWebhookNotConfigured = errors.New("wecom bot webhook URL is not configured")

// Sign computes the WeCom group-bot signature for one timestamp: the base64
// HMAC-SHA256 digest of "{timestamp}\n{secret}", keyed by the same secret.
func Sign(secret string, timestampMillis int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d\n%s", timestampMillis, secret)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// BuildSignedURL appends timestamp and sign query parameters to the bot
// webhook URL. An empty secret means the bot accepts unsigned calls and the
// URL is returned unchanged. Every call captures a fresh timestamp; nothing
// is cached, so the bot's freshness window is the only replay protection.
func BuildSignedURL(webhookURL, secret string, now time.Time) (string, error) {
	if webhookURL == "" {
		return "", ErrWebhookNotConfigured
	}
	if secret == "" {
		return webhookURL, nil
	}

	u, err := url.Parse(webhookURL)
	if err != nil {
		return "", fmt.Errorf("invalid wecom webhook URL: %w", err)
	}

	ts := now.UnixMilli()
	q := u.Query()
	q.Set("timestamp", strconv.FormatInt(ts, 10))
	q.Set("sign", Sign(secret, ts))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

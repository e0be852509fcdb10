package moemail

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Notification is the payload moemail posts to the webhook when a new email
// arrives. It is untrusted input, built per request and discarded after the
// forwarding pipeline completes.
type Notification struct {
	EmailID     string    `json:"emailId"`
	MessageID   string    `json:"messageId"`
	FromAddress string    `json:"fromAddress"`
	Subject     string    `json:"subject"`
	ReceivedAt  Timestamp `json:"receivedAt"`
	ToAddress   string    `json:"toAddress"`
	Content     string    `json:"content,omitempty"`
	HTML        string    `json:"html,omitempty"`
}

// MissingFieldError names the first required field absent from a payload.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return "missing required field: " + e.Field
}

// Validate checks the required fields in wire order and reports the first one
// that is missing or empty. Content presence is checked separately via
// HasContent because either of two fields can satisfy it.
func (n *Notification) Validate() error {
	if n.EmailID == "" {
		return &MissingFieldError{Field: "emailId"}
	}
	if n.MessageID == "" {
		return &MissingFieldError{Field: "messageId"}
	}
	if n.FromAddress == "" {
		return &MissingFieldError{Field: "fromAddress"}
	}
	if n.Subject == "" {
		return &MissingFieldError{Field: "subject"}
	}
	if n.ReceivedAt.IsZero() {
		return &MissingFieldError{Field: "receivedAt"}
	}
	if n.ToAddress == "" {
		return &MissingFieldError{Field: "toAddress"}
	}
	return nil
}

// HasContent reports whether the payload carries a displayable body.
func (n *Notification) HasContent() bool {
	return n.Content != "" || n.HTML != ""
}

// Timestamp accepts the two shapes moemail sends for receivedAt: epoch
// milliseconds as a JSON number, or a textual timestamp.
type Timestamp struct {
	Raw  string
	Time time.Time
}

var textualLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
}

func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		ts.Raw = n.String()
		if ms, err := n.Int64(); err == nil {
			ts.Time = time.UnixMilli(ms)
		} else if f, err := n.Float64(); err == nil {
			ts.Time = time.UnixMilli(int64(f))
		}
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("receivedAt: %w", err)
	}
	ts.Raw = strings.TrimSpace(s)
	for _, layout := range textualLayouts {
		if t, err := time.Parse(layout, ts.Raw); err == nil {
			ts.Time = t
			break
		}
	}
	return nil
}

// IsZero reports whether the value is absent. A literal 0 counts as absent,
// matching how the upstream provider validates the field.
func (ts Timestamp) IsZero() bool {
	return ts.Raw == "" || ts.Raw == "0"
}

// In renders the timestamp in the given location, falling back to the raw
// wire value when it could not be parsed.
func (ts Timestamp) In(loc *time.Location) string {
	if ts.Time.IsZero() {
		return ts.Raw
	}
	return ts.Time.In(loc).Format("2006/01/02 15:04:05")
}

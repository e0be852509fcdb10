package server

// webhookAck is the JSON response for accepted webhook requests.
type webhookAck struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// errorResponse is the JSON error body on the alias-proxy path.
type errorResponse struct {
	Error string `json:"error"`
}

// aliasResponse wraps a created alias, Addy.io style.
type aliasResponse struct {
	Data aliasData `json:"data"`
}

type aliasData struct {
	Email string `json:"email"`
}

// Recognized X-Webhook-Event header values.
const (
	eventHeader     = "X-Webhook-Event"
	eventNewMessage = "new_message"
	eventTest       = "test"
)

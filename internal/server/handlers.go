package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/moetools/moepush/internal/moemail"
	"github.com/moetools/moepush/internal/wecom"
)

// handleWebhook handles POST /moemail-webhook. Validation runs as an ordered
// sequence; the first failing check ends the request.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	eventType := r.Header.Get(eventHeader)
	contentType := r.Header.Get("Content-Type")

	if eventType != "" && eventType != eventNewMessage && eventType != eventTest {
		s.respondText(w, http.StatusBadRequest, "invalid X-Webhook-Event header")
		return
	}

	if !strings.Contains(strings.ToLower(contentType), "application/json") {
		s.respondText(w, http.StatusUnsupportedMediaType, "invalid Content-Type header")
		return
	}

	var n moemail.Notification
	if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
		s.respondText(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	// Anything that is not an explicit new_message event is treated as a
	// connectivity test and acknowledged without forwarding. That includes
	// requests with no event header at all; moemail's test button omits it.
	if eventType != eventNewMessage {
		s.respondJSON(w, http.StatusOK, webhookAck{Success: true, Message: "Webhook test accepted"})
		return
	}

	if err := n.Validate(); err != nil {
		s.respondText(w, http.StatusBadRequest, err.Error())
		return
	}
	if !n.HasContent() {
		s.respondText(w, http.StatusBadRequest, "missing required field: content or html")
		return
	}

	if s.cfg.Wecom.WebhookURL == "" {
		s.respondText(w, http.StatusInternalServerError, "WECOM_BOT_WEBHOOK is not configured")
		return
	}

	msg := wecom.BuildNotification(n)
	logger := s.logger.With(
		"delivery_id", uuid.NewString(),
		"message_id", n.MessageID,
		"to", n.ToAddress,
	)

	// Detached dispatch: moemail only cares that we received the event, not
	// whether the bot accepted it. The forward runs on its own context so it
	// survives the response; failures are logged and dropped.
	go func() {
		if err := s.notifier.Send(context.Background(), msg); err != nil {
			logger.Error("wecom forward failed", "error", err)
			return
		}
		logger.Info("wecom forward delivered")
	}()

	s.respondJSON(w, http.StatusOK, webhookAck{Success: true, Message: "Webhook accepted"})
}

// handleGenerateAlias handles POST /api/v1/aliases, the Addy.io-compatible
// proxy in front of moemail's alias API.
func (s *Server) handleGenerateAlias(w http.ResponseWriter, r *http.Request) {
	apiKey, err := bearerToken(r)
	if err != nil {
		s.respondJSON(w, http.StatusUnauthorized, errorResponse{Error: "Unauthorized: " + err.Error()})
		return
	}

	var req moemail.AliasRequest
	if strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondJSON(w, http.StatusBadRequest, errorResponse{Error: "Bad Request: invalid JSON payload"})
			return
		}
	}

	email, err := s.aliases.GenerateAlias(r.Context(), apiKey, req)
	if err != nil {
		s.logger.Warn("alias generation failed", "error", err)
		s.respondJSON(w, aliasErrorStatus(err), errorResponse{Error: err.Error()})
		return
	}

	s.respondJSON(w, http.StatusCreated, aliasResponse{Data: aliasData{Email: email}})
}

// aliasErrorStatus maps upstream failures onto the proxy's own contract:
// auth failures stay 401, provider-side validation stays 400, everything
// else is a server error.
func aliasErrorStatus(err error) int {
	var apiErr *moemail.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return http.StatusUnauthorized
		case http.StatusBadRequest:
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}

// bearerToken extracts the caller's API key from the Authorization header.
// The scheme match is case-insensitive.
func bearerToken(r *http.Request) (string, error) {
	auth := r.Header.Get("Authorization")
	const prefix = "bearer "
	if len(auth) < len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
		return "", errors.New("missing or invalid API key")
	}
	token := strings.TrimSpace(auth[len(prefix):])
	if token == "" {
		return "", errors.New("empty API key")
	}
	return token, nil
}

// handleIndex serves the plain-text status and help page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	base := s.cfg.BaseURL
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		base = scheme + "://" + r.Host
	}

	webhookState := "not configured"
	if s.cfg.Wecom.WebhookURL != "" {
		webhookState = "configured"
	}

	expiry := strconv.Itoa(s.cfg.Moemail.DefaultExpiryHours)
	if s.cfg.Moemail.DefaultExpiryHours == 0 {
		expiry = "never"
	}

	lines := []string{
		"moepush - moemail to WeCom bot notification relay",
		"",
		"status: running",
		"base URL: " + base,
		"WeCom bot webhook: " + webhookState,
		"default alias expiry (hours): " + expiry,
		"",
		"Webhook endpoint:",
		"POST " + base + "/moemail-webhook",
		"required headers: X-Webhook-Event: new_message, Content-Type: application/json",
		"",
		"Bitwarden (Addy.io compatible) endpoint:",
		"POST " + base + "/api/v1/aliases",
		"required header: Authorization: Bearer <moemail API key>",
	}
	s.respondText(w, http.StatusOK, strings.Join(lines, "\n"))
}

func (s *Server) handleFavicon(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// handleLiveness answers GET and OPTIONS probes on the webhook path.
func (s *Server) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, webhookAck{Success: true, Message: "Webhook endpoint is alive"})
}

func (s *Server) handleLivenessHead(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

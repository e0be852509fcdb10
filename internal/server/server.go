package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/moetools/moepush/internal/config"
	"github.com/moetools/moepush/internal/moemail"
	"github.com/moetools/moepush/internal/wecom"
)

// Notifier delivers a formatted message to the chat webhook.
type Notifier interface {
	Send(ctx context.Context, msg wecom.TextMessage) error
}

// AliasClient is the slice of the moemail API the alias proxy needs.
type AliasClient interface {
	GenerateAlias(ctx context.Context, apiKey string, req moemail.AliasRequest) (string, error)
}

// Server is the relay's HTTP front. It holds no mutable state beyond the
// resolved configuration; every request runs independently.
type Server struct {
	cfg      config.Config
	notifier Notifier
	aliases  AliasClient
	logger   *slog.Logger
	server   *http.Server
}

// New creates a new relay server instance.
func New(cfg config.Config, notifier Notifier, aliases AliasClient, logger *slog.Logger) *Server {
	return &Server{
		cfg:      cfg,
		notifier: notifier,
		aliases:  aliases,
		logger:   logger,
	}
}

// Start starts the HTTP server (blocking).
func (s *Server) Start(ctx context.Context) error {
	router := s.setupRoutes()

	s.server = &http.Server{
		Addr:         s.cfg.Listen,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("relay server starting", "listen", s.cfg.Listen,
		"wecom_configured", s.cfg.Wecom.WebhookURL != "")

	// Run server in goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for context cancellation or server error
	select {
	case <-ctx.Done():
		s.logger.Info("relay server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("relay server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("relay server error: %w", err)
	}
}

// setupRoutes configures the HTTP router.
func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Get("/favicon.ico", s.handleFavicon)

	// Liveness probes for the webhook path; moemail pings before saving.
	r.Get("/moemail-webhook", s.handleLiveness)
	r.Head("/moemail-webhook", s.handleLivenessHead)
	r.Options("/moemail-webhook", s.handleLiveness)

	r.Post("/moemail-webhook", s.handleWebhook)
	r.Post("/api/v1/aliases", s.handleGenerateAlias)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		s.respondText(w, http.StatusNotFound, "endpoint not found")
	})

	return r
}

// loggingMiddleware logs HTTP requests (excludes payload content).
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
			"remote_addr", r.RemoteAddr,
		)
	})
}

// respondJSON sends a JSON response.
func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// respondText sends a plain-text response.
func (s *Server) respondText(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, message)
}

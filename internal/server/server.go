// Package server provides the webhook HTTP surface that receives
// GroupMe callback deliveries and feeds them to bots.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/edgard/boteco/internal/bot"
	"github.com/edgard/boteco/internal/config"
)

// Server hosts the webhook endpoints for one default bot and,
// optionally, a registry of additional bots addressed by id.
type Server struct {
	logger     *slog.Logger
	cfg        config.ServerConfig
	defaultBot *bot.Bot
	registry   *bot.Registry
	httpServer *http.Server
}

// New creates a webhook server. registry may be nil for single-bot hosts.
func New(cfg config.ServerConfig, defaultBot *bot.Bot, registry *bot.Registry, logger *slog.Logger) *Server {
	s := &Server{
		logger:     logger.With("component", "server"),
		cfg:        cfg,
		defaultBot: defaultBot,
		registry:   registry,
	}

	s.httpServer = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      s.buildRouter(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Handler exposes the server's HTTP handler, primarily for tests.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`)) //nolint:errcheck
	})

	r.Post("/callback", s.handleCallback)
	r.Post("/callback/{botID}", s.handleBotCallback)

	return r
}

// handleCallback delivers a webhook payload to the default bot.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	s.deliver(w, r, s.defaultBot)
}

// handleBotCallback delivers a webhook payload to a registered bot by id.
func (s *Server) handleBotCallback(w http.ResponseWriter, r *http.Request) {
	botID := chi.URLParam(r, "botID")

	if s.registry == nil {
		http.NotFound(w, r)
		return
	}
	b, ok := s.registry.Get(botID)
	if !ok {
		s.logger.WarnContext(r.Context(), "Callback for unknown bot", "bot_id", botID)
		http.NotFound(w, r)
		return
	}

	s.deliver(w, r, b)
}

// deliver decodes the payload and hands it to the bot. Dispatch never
// fails, so anything past decoding answers 200: GroupMe retries on
// non-2xx and a handler bug must not cause redelivery storms.
func (s *Server) deliver(w http.ResponseWriter, r *http.Request, b *bot.Bot) {
	if b == nil {
		http.NotFound(w, r)
		return
	}

	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.logger.WarnContext(r.Context(), "Failed to decode webhook payload", "error", err)
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	b.ProcessMessage(r.Context(), payload)
	w.WriteHeader(http.StatusOK)
}

// Run starts the HTTP server and blocks until the context is cancelled
// or the listener fails, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("Webhook server listening", "addr", s.cfg.ListenAddr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Error during server shutdown", "error", err)
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		s.logger.Info("Webhook server stopped gracefully.")
		return nil

	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("webhook server failed: %w", err)
		}
		return nil
	}
}

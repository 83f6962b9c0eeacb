// Package server exposes the agent over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/harunnryd/sylva/internal/agent"
	"github.com/harunnryd/sylva/internal/config"
	"github.com/harunnryd/sylva/internal/logger"
	"github.com/harunnryd/sylva/internal/model/contract"
)

const maxRequestBytes = 1 << 20

type Runner interface {
	Run(ctx context.Context, history []contract.Message, identity string) agent.Result
}

type Server struct {
	runner      Runner
	cfg         config.ServerConfig
	server      *http.Server
	shutdownTTL time.Duration
	mu          sync.Mutex
	started     bool
}

func New(cfg config.ServerConfig, runner Runner) (*Server, error) {
	readTimeout, err := config.DurationOrDefault(cfg.ReadTimeout, config.DefaultServerReadTimeout)
	if err != nil {
		return nil, fmt.Errorf("parse server read timeout: %w", err)
	}
	writeTimeout, err := config.DurationOrDefault(cfg.WriteTimeout, config.DefaultServerWriteTimeout)
	if err != nil {
		return nil, fmt.Errorf("parse server write timeout: %w", err)
	}
	idleTimeout, err := config.DurationOrDefault(cfg.IdleTimeout, config.DefaultServerIdleTimeout)
	if err != nil {
		return nil, fmt.Errorf("parse server idle timeout: %w", err)
	}
	shutdownTimeout, err := config.DurationOrDefault(cfg.ShutdownTimeout, config.DefaultServerShutdownTimeout)
	if err != nil {
		return nil, fmt.Errorf("parse server shutdown timeout: %w", err)
	}

	s := &Server{runner: runner, cfg: cfg, shutdownTTL: shutdownTimeout}
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
	return s, nil
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/chatbot/message", s.handleMessage)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

// ListenAndServe blocks until the server stops.
func (s *Server) ListenAndServe() error {
	s.mu.Lock()
	s.started = true
	s.mu.Unlock()

	slog.Info("HTTP server listening", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	slog.Info("Stopping HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(ctx, s.shutdownTTL)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
		return err
	}
	s.started = false
	slog.Info("HTTP server stopped")
	return nil
}

type messageRequest struct {
	Messages []messagePayload `json:"messages"`
}

type messagePayload struct {
	Role    string  `json:"role"`
	Content *string `json:"content"`
	Name    *string `json:"name"`
}

var allowedRoles = map[string]bool{
	contract.RoleUser:      true,
	contract.RoleAssistant: true,
	contract.RoleTool:      true,
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	s.setCORS(w)

	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
		return
	case http.MethodPost:
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req messageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": map[string][]string{"_schema": {"Invalid request body"}}})
		return
	}

	history, problems := validate(req)
	if len(problems) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": problems})
		return
	}

	ctx, traceID := logger.EnsureTraceID(r.Context())
	slog.Info("Chat message received", "messages", len(history), "authenticated", bearerToken(r) != "", "trace_id", traceID)

	result := s.runner.Run(ctx, history, bearerToken(r))
	if result.ToolCalls == nil {
		result.ToolCalls = []agent.ToolEvent{}
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) setCORS(w http.ResponseWriter) {
	origin := s.cfg.AllowedOrigin
	if origin == "" {
		return
	}
	w.Header().Set("Access-Control-Allow-Origin", origin)
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
}

// validate checks the request and converts it to history. Problems are keyed
// by field path.
func validate(req messageRequest) ([]contract.Message, map[string][]string) {
	problems := map[string][]string{}
	if len(req.Messages) == 0 {
		problems["messages"] = []string{"Shorter than minimum length 1."}
		return nil, problems
	}

	history := make([]contract.Message, 0, len(req.Messages))
	for i, m := range req.Messages {
		field := fmt.Sprintf("messages.%d", i)
		if !allowedRoles[m.Role] {
			problems[field+".role"] = []string{"Must be one of: user, assistant, tool."}
		}
		if m.Content == nil {
			problems[field+".content"] = []string{"Missing data for required field."}
			continue
		}
		msg := contract.Message{Role: m.Role, Content: *m.Content}
		if m.Name != nil {
			msg.Name = *m.Name
		}
		history = append(history, msg)
	}
	return history, problems
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

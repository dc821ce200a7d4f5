// Package server exposes the chat orchestrator over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sabrinaskaa/chatbot-binara/pkg/metrics"
	"github.com/sabrinaskaa/chatbot-binara/pkg/usecase/chat"
	"github.com/sabrinaskaa/chatbot-binara/pkg/utils/logging"
)

// DefaultSessionID is used when a request carries no session_id
const DefaultSessionID = "default"

// maxBodyBytes caps the request body of /chat
const maxBodyBytes = 64 << 10

type Chatter interface {
	Chat(ctx context.Context, sessionID, message string) (*chat.Reply, error)
}

type Server struct {
	chat     Chatter
	gatherer prometheus.Gatherer
	mcp      http.Handler
}

type Option func(*Server)

// WithGatherer enables /metrics
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithMCP serves h at /mcp
func WithMCP(h http.Handler) Option {
	return func(s *Server) {
		s.mcp = h
	}
}

func New(c Chatter, opts ...Option) *Server {
	s := &Server{chat: c}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	if s.gatherer != nil {
		r.Handle("/metrics", metrics.Handler(s.gatherer))
	}
	if s.mcp != nil {
		r.Handle("/mcp", s.mcp)
	}
	r.Post("/chat", s.handleChat)

	return r
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "message is required")
		return
	}
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = DefaultSessionID
	}

	requestID := r.Header.Get("X-Request-Id")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	w.Header().Set("X-Request-Id", requestID)
	ctx := logging.WithSession(r.Context(), sessionID, requestID)

	reply, err := s.chat.Chat(ctx, sessionID, message)
	if err != nil {
		logging.From(ctx).Error("failed to answer message", "error", err)
		respondError(w, http.StatusBadGateway, "backend_error", "generative backend failed")
		return
	}

	respondJSON(w, http.StatusOK, reply)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}

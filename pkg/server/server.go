// Package server exposes a minimal HTTP API around companion sessions, one
// serialized session per patient identity.
package server

import (
	"log/slog"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/lumoracare/lumora/pkg/companion"
	"github.com/lumoracare/lumora/pkg/memory"
	"github.com/lumoracare/lumora/pkg/model"
)

// Server routes patient chat traffic onto per-identity sessions. Turn
// serialization per patient is enforced by the session itself; the registry
// only guarantees one session object per identity.
type Server struct {
	sessions *registry
	mux      *http.ServeMux
	logger   *slog.Logger
}

// New creates a Server with pre-wired routes. Session options apply to every
// session the server creates.
func New(m model.Model, store memory.Store, logger *slog.Logger, opts ...companion.Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	srv := &Server{
		sessions: newRegistry(m, store, logger, opts...),
		mux:      http.NewServeMux(),
		logger:   logger,
	}
	srv.routes()
	return srv
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /patients/{id}/messages", s.handleMessage)
	s.mux.HandleFunc("GET /patients/{id}/memory", s.handleMemory)
	s.mux.HandleFunc("DELETE /patients/{id}/memory", s.handleResetMemory)
	s.mux.HandleFunc("POST /patients/{id}/sessions", s.handleNewConversation)
}

// ServeHTTP implements http.Handler and delegates to the internal mux.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe starts the HTTP server on addr.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	identity := r.PathValue("id")
	defer r.Body.Close()
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}
	text := strings.TrimSpace(payload.Message)
	if text == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}
	sess, err := s.sessions.acquire(r.Context(), identity)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	reply, err := sess.Send(r.Context(), text)
	if err != nil {
		// The reply is still valid; only persistence failed.
		s.logger.Error("persist failed for turn", "identity", identity, "error", err)
	}
	writeJSON(w, map[string]string{"reply": reply})
}

func (s *Server) handleMemory(w http.ResponseWriter, r *http.Request) {
	identity := r.PathValue("id")
	sess, err := s.sessions.acquire(r.Context(), identity)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, sess.Record())
}

func (s *Server) handleResetMemory(w http.ResponseWriter, r *http.Request) {
	identity := r.PathValue("id")
	if r.URL.Query().Get("confirm") != "true" {
		http.Error(w, "memory reset requires confirm=true", http.StatusBadRequest)
		return
	}
	sess, err := s.sessions.acquire(r.Context(), identity)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := sess.ResetMemory(r.Context()); err != nil {
		// Memory is already wiped; only the session bootstrap failed.
		s.logger.Warn("session restart after reset failed", "identity", identity, "error", err)
	}
	writeJSON(w, map[string]string{"status": "reset"})
}

func (s *Server) handleNewConversation(w http.ResponseWriter, r *http.Request) {
	identity := r.PathValue("id")
	sess, err := s.sessions.acquire(r.Context(), identity)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := sess.NewConversation(r.Context()); err != nil {
		s.logger.Warn("session restart failed", "identity", identity, "error", err)
	}
	writeJSON(w, map[string]string{"status": "new_session", "session_id": sess.ID()})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

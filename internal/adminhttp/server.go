package adminhttp

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/roasbeef/agner/actor"
)

// Config configures the admin HTTP server.
type Config struct {
	// Addr is the listen address, e.g. ":8090".
	Addr string

	// EnableEvents controls whether /ws/events is registered.
	EnableEvents bool
}

// DefaultConfig returns ":8090" with the event stream enabled.
func DefaultConfig() Config {
	return Config{Addr: ":8090", EnableEvents: true}
}

// Server is the admin HTTP surface described in spec.md §6: read-only
// introspection of the system's live actors plus a live event stream,
// mirroring the structure of the teacher's internal/web.Server (a
// ServeMux built in registerRoutes, Start/Shutdown over an *http.Server)
// adapted from an inbox UI to a JSON actor-inspection API.
type Server struct {
	sys *actor.System
	cfg Config

	hub *Hub
	mux *http.ServeMux
	srv *http.Server
}

// NewServer creates a Server over sys. If cfg.EnableEvents is set, the
// returned Server also owns a Hub; call Hub() to wire it as the system's
// ExitHandler. Start launches the hub's Run loop.
func NewServer(sys *actor.System, cfg Config) *Server {
	s := &Server{
		sys: sys,
		cfg: cfg,
		mux: http.NewServeMux(),
	}
	if cfg.EnableEvents {
		s.hub = NewHub()
	}
	s.registerRoutes()
	return s
}

// Hub returns the server's event hub, or nil if events were disabled.
func (s *Server) Hub() *Hub {
	return s.hub
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /system/config", s.handleSystemConfig)
	s.mux.HandleFunc("GET /actors", s.handleListActors)
	s.mux.HandleFunc("GET /actors/{id}", s.handleGetActor)
	s.mux.HandleFunc("GET /docs", s.handleDocs)

	if s.hub != nil {
		s.mux.HandleFunc("GET /ws/events", s.handleWebSocket)
	}
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.srv = &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	if s.hub != nil {
		go s.hub.Run()
	}

	err := s.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the HTTP server and the event hub.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.hub != nil {
		s.hub.Stop()
	}
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleSystemConfig(w http.ResponseWriter, r *http.Request) {
	cfg := s.sys.Config()
	writeJSON(w, http.StatusOK, map[string]any{
		"max_actors":                   cfg.MaxActors,
		"actor_termination_timeout_ms": int64(cfg.ActorTerminationTimeout / time.Millisecond),
	})
}

func (s *Server) handleListActors(w http.ResponseWriter, r *http.Request) {
	ids := s.sys.ListActors()
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	writeJSON(w, http.StatusOK, map[string]any{"actors": out})
}

func (s *Server) handleGetActor(w http.ResponseWriter, r *http.Request) {
	id, err := actor.ParseID(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}

	info, ok := s.sys.GetActor(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "no such actor"})
		return
	}

	writeJSON(w, http.StatusOK, info)
}

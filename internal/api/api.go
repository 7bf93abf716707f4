// Package api implements the HTTP API server for repolens.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/sprite-ai/repolens/internal/app"
)

// Runner drives a run started on a session.
type Runner interface {
	Execute(s *app.Session, run app.Run, root string) error
}

// ModelLister lists locally available models.
type ModelLister interface {
	Models(ctx context.Context) ([]string, error)
}

// Server is the repolens HTTP API server. It exposes one session over
// REST and streams its state over a WebSocket.
type Server struct {
	addr    string
	mux     *http.ServeMux
	server  *http.Server
	session *app.Session
	runner  Runner
	models  ModelLister
	root    string

	// runCtx parents every run so Shutdown can stop them.
	runCtx  context.Context
	stopRun context.CancelFunc
}

// New creates a new API server reviewing root.
func New(addr string, session *app.Session, runner Runner, models ModelLister, root string) *Server {
	s := &Server{
		addr:    addr,
		session: session,
		runner:  runner,
		models:  models,
		root:    root,
	}
	s.runCtx, s.stopRun = context.WithCancel(context.Background())
	s.mux = http.NewServeMux()
	s.registerRoutes()
	s.server = &http.Server{
		Addr:        addr,
		Handler:     s.mux,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/state", s.handleState)
	s.mux.HandleFunc("POST /api/review", s.handleReview)
	s.mux.HandleFunc("POST /api/cancel", s.handleCancel)
	s.mux.HandleFunc("GET /api/models", s.handleModels)
	s.mux.HandleFunc("GET /api/ws", s.handleWebSocket)
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	log.Printf("repolens API server listening on %s (reviewing %s)", s.addr, s.root)
	return s.server.ListenAndServe()
}

// Shutdown cancels any in-flight run and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopRun()
	return s.server.Shutdown(ctx)
}

// Handler returns the HTTP handler for testing.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Printf("json encode error: %v", err)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// readJSON decodes a JSON request body into v.
func readJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return fmt.Errorf("empty request body")
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

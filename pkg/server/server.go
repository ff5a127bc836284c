// Package server exposes the generation pipeline over HTTP: an SSE
// generation endpoint, artifact listing, a health check and a
// websocket mirror of the event bus.
package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alantheprice/appforge/pkg/config"
	"github.com/alantheprice/appforge/pkg/events"
	"github.com/alantheprice/appforge/pkg/llm"
	"github.com/alantheprice/appforge/pkg/store"
	"github.com/alantheprice/appforge/pkg/utils"
)

// Run statuses persisted per project.
const (
	StatusPlanning   = "planning"
	StatusGenerating = "generating"
	StatusValidating = "validating"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Server wires the pipeline behind HTTP handlers.
type Server struct {
	cfg      *config.Config
	client   llm.ClientInterface
	store    *store.Store
	bus      *events.Bus
	logger   *utils.Logger
	upgrader websocket.Upgrader
	http     *http.Server

	mu       sync.Mutex
	statuses map[string]runStatus
}

type runStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// New creates a server over the given model client and artifact store.
func New(cfg *config.Config, client llm.ClientInterface, artifacts *store.Store) *Server {
	return &Server{
		cfg:    cfg,
		client: client,
		store:  artifacts,
		bus:    events.NewBus(),
		logger: utils.GetLogger(cfg.Echo),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || strings.Contains(origin, "localhost") || strings.Contains(origin, "127.0.0.1")
			},
		},
		statuses: make(map[string]runStatus),
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/generate", s.handleGenerate)
	mux.HandleFunc("/api/projects/", s.handleProjects)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}

// Start serves until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.http = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.cfg.ServerPort),
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.LogProcessStep(fmt.Sprintf("Server listening on http://localhost:%d", s.cfg.ServerPort))
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}

func (s *Server) setStatus(projectID, status, errMsg string) {
	s.mu.Lock()
	s.statuses[projectID] = runStatus{Status: status, Error: errMsg}
	s.mu.Unlock()
}

func (s *Server) status(projectID string) (runStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.statuses[projectID]
	return st, ok
}

// authorized checks the bearer token when one is configured.
func (s *Server) authorized(r *http.Request) bool {
	if s.cfg.AuthToken == "" {
		return true
	}
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return false
	}
	return strings.TrimPrefix(header, "Bearer ") == s.cfg.AuthToken
}

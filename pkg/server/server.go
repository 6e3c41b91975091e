// Package server exposes a minimal HTTP surface for operating a
// crdtstore Store: liveness and basic admin stats. It is deliberately
// not a sync transport — peers exchange UpdateV2 bytes through whatever
// channel the embedding application chooses (network transport is
// treated as an external collaborator); this server only lets an
// operator or load balancer probe the process. Deliberately trimmed to
// the two endpoints that have no query-language/auth surface to carry.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/orneryd/crdtstore/pkg/crdt"
)

// Config configures the admin HTTP server.
type Config struct {
	Address      string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Address:      "127.0.0.1",
		Port:         8090,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// Server is the admin HTTP server for a single Store.
type Server struct {
	config *Config
	store  *crdt.Store

	httpServer *http.Server
	listener   net.Listener

	started time.Time
	closed  atomic.Bool

	requestCount atomic.Int64
}

// New creates a Server for store. config defaults to DefaultConfig() if
// nil.
func New(store *crdt.Store, config *Config) (*Server, error) {
	if store == nil {
		return nil, fmt.Errorf("server: store required")
	}
	if config == nil {
		config = DefaultConfig()
	}
	return &Server{config: config, store: store}, nil
}

// Start begins listening and serving in a background goroutine.
func (s *Server) Start() error {
	if s.closed.Load() {
		return fmt.Errorf("server: already stopped")
	}
	addr := fmt.Sprintf("%s:%d", s.config.Address, s.config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("server: failed to listen on %s: %w", addr, err)
	}
	s.listener = listener
	s.started = time.Now()

	mux := s.buildRouter()
	s.httpServer = &http.Server{
		Handler:      mux,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			fmt.Printf("crdtstore admin server error: %v\n", err)
		}
	}()
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// Addr returns the server's bound listen address.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

func (s *Server) buildRouter() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/admin/stats", s.handleAdminStats)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.requestCount.Add(1)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.started).String(),
	})
}

// AdminStats summarizes store-wide counters for operators.
type AdminStats struct {
	ClientID     uint32 `json:"client_id"`
	BlockCount   int    `json:"block_count"`
	RootCount    int    `json:"root_count"`
	RequestCount int64  `json:"request_count"`
	Uptime       string `json:"uptime"`
}

func (s *Server) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	s.requestCount.Add(1)
	writeJSON(w, http.StatusOK, AdminStats{
		ClientID:     s.store.ClientID,
		BlockCount:   len(s.store.Blocks),
		RootCount:    len(s.store.Roots),
		RequestCount: s.requestCount.Load(),
		Uptime:       time.Since(s.started).String(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

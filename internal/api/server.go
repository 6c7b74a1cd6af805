// Package api exposes the engine's computed views over HTTP and WebSocket.
package api

import (
	"context"
	"log"
	"net/http"

	"risk-monitorv1/internal/gateway"
	"risk-monitorv1/internal/ledger"
	"risk-monitorv1/internal/pnl"
	"risk-monitorv1/internal/scheduler"
)

// Server is the REST/WS front for the reconcile and PnL engine.
type Server struct {
	store *ledger.Store
	calc  *pnl.Calculator
	sync  scheduler.SyncFunc
	hub   *gateway.Hub

	addr string
	srv  *http.Server
}

// NewServer wires the API routes. sync is the same closure the scheduler
// runs, so POST /api/sync triggers an identical manual cycle. hub may be nil
// when WebSocket push is disabled.
func NewServer(addr string, store *ledger.Store, calc *pnl.Calculator, sync scheduler.SyncFunc, hub *gateway.Hub) *Server {
	s := &Server{store: store, calc: calc, sync: sync, hub: hub, addr: addr}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/accounts", s.handleAccounts)
	mux.HandleFunc("/api/accounts/", s.handleAccountSubtree)
	mux.HandleFunc("/api/cumulative", s.handleCumulative)
	mux.HandleFunc("/api/positions", s.handlePositions)
	mux.HandleFunc("/api/sync", s.handleSync)
	if hub != nil {
		mux.HandleFunc("/ws", hub.HandleWS)
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	s.srv = &http.Server{Addr: addr, Handler: mux}
	return s
}

// Handler returns the underlying handler, for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Start launches the API server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[api] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[api] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the API server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}

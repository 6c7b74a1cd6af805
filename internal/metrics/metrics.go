// Package metrics exposes Prometheus metrics and a health endpoint for the
// risk monitor service.
package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the reconcile/PnL pipeline.
type Metrics struct {
	SyncCyclesTotal   prometheus.Counter
	SyncFailuresTotal prometheus.Counter
	SyncDur           prometheus.Histogram

	AccountsSynced       prometheus.Counter
	PositionsSynced      prometheus.Counter
	PositionsClosedTotal prometheus.Counter

	PnlComputationsTotal prometheus.Counter
	PnlComputeDur        prometheus.Histogram

	StoreErrorsTotal prometheus.Counter

	TrackedAccounts prometheus.Gauge
	OpenPositions   prometheus.Gauge
	WSClients       prometheus.Gauge
}

// NewMetrics registers and returns all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		SyncCyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "riskmonitor_sync_cycles_total",
			Help: "Total reconcile cycles attempted",
		}),
		SyncFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "riskmonitor_sync_failures_total",
			Help: "Reconcile cycles that failed to fetch the venue snapshot",
		}),
		SyncDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "riskmonitor_sync_duration_seconds",
			Help:    "Full reconcile cycle latency (fetch + merge)",
			Buckets: prometheus.DefBuckets,
		}),
		AccountsSynced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "riskmonitor_accounts_synced_total",
			Help: "Account upserts applied across all cycles",
		}),
		PositionsSynced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "riskmonitor_positions_synced_total",
			Help: "Position upserts applied across all cycles",
		}),
		PositionsClosedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "riskmonitor_positions_closed_total",
			Help: "Positions flagged closed after disappearing from the feed",
		}),
		PnlComputationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "riskmonitor_pnl_computations_total",
			Help: "Per-account PnL compute-and-persist operations",
		}),
		PnlComputeDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "riskmonitor_pnl_compute_duration_seconds",
			Help:    "Per-account PnL computation latency",
			Buckets: prometheus.DefBuckets,
		}),
		StoreErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "riskmonitor_store_errors_total",
			Help: "Reconcile cycles that hit at least one ledger store failure",
		}),
		TrackedAccounts: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "riskmonitor_tracked_accounts",
			Help: "Accounts present in the ledger",
		}),
		OpenPositions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "riskmonitor_open_positions",
			Help: "Currently open positions across all accounts",
		}),
		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "riskmonitor_ws_clients",
			Help: "Connected WebSocket dashboard clients",
		}),
	}

	prometheus.MustRegister(
		m.SyncCyclesTotal, m.SyncFailuresTotal, m.SyncDur,
		m.AccountsSynced, m.PositionsSynced, m.PositionsClosedTotal,
		m.PnlComputationsTotal, m.PnlComputeDur,
		m.StoreErrorsTotal,
		m.TrackedAccounts, m.OpenPositions, m.WSClients,
	)
	return m
}

// HealthStatus represents the system health.
type HealthStatus struct {
	mu sync.RWMutex

	SourceOK       bool      `json:"source_ok"`
	RedisConnected bool      `json:"redis_connected"`
	SQLiteOK       bool      `json:"sqlite_ok"`
	LastSyncAt     time.Time `json:"last_sync_at"`
	LastSyncError  string    `json:"last_sync_error"`

	RedisLatencyMs  float64   `json:"redis_latency_ms"`
	SQLiteLatencyMs float64   `json:"sqlite_latency_ms"`
	LastCheckAt     time.Time `json:"last_check_at"`
	StartedAt       time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{StartedAt: time.Now()}
}

func (h *HealthStatus) SetRedisConnected(v bool) {
	h.mu.Lock()
	h.RedisConnected = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetSQLiteOK(v bool) {
	h.mu.Lock()
	h.SQLiteOK = v
	h.mu.Unlock()
}

// RecordSync records the outcome of one reconcile cycle.
func (h *HealthStatus) RecordSync(err error) {
	h.mu.Lock()
	h.SourceOK = err == nil
	h.LastSyncAt = time.Now()
	if err != nil {
		h.LastSyncError = err.Error()
	} else {
		h.LastSyncError = ""
	}
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite runs a trivial query and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, sqlDB *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if rdb != nil {
					h.CheckRedis(probeCtx, rdb)
				}
				if sqlDB != nil {
					h.CheckSQLite(probeCtx, sqlDB)
				}
				cancel()
			}
		}
	}()
}

// ServeHTTP serves the health status as JSON.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h)
}

// Server serves /metrics and /healthz.
type Server struct {
	health *HealthStatus
	addr   string
	srv    *http.Server
}

// NewServer creates the metrics HTTP server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		health: health,
		addr:   addr,
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}

package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"risk-monitorv1/config"
	"risk-monitorv1/internal/api"
	"risk-monitorv1/internal/exchange"
	"risk-monitorv1/internal/gateway"
	"risk-monitorv1/internal/ledger"
	"risk-monitorv1/internal/logger"
	"risk-monitorv1/internal/metrics"
	"risk-monitorv1/internal/model"
	"risk-monitorv1/internal/pnl"
	"risk-monitorv1/internal/publish"
	"risk-monitorv1/internal/reconciler"
	"risk-monitorv1/internal/scheduler"
)

func main() {
	logger.Init("riskmonitor", logger.ParseLevel(os.Getenv("LOG_LEVEL")))
	log.Println("[riskmonitor] starting...")

	cfg := config.Load()
	if cfg.StagingMode {
		log.Println("[riskmonitor] *** STAGING MODE - using sim source instead of Bybit ***")
	}

	// ---- Metrics & health ----
	prom := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()

	// ---- Context for graceful shutdown ----
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// ---- Ledger store ----
	os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755)
	store, err := ledger.Open(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("[riskmonitor] ledger init failed: %v", err)
	}
	defer store.Close()
	health.SetSQLiteOK(true)
	log.Println("[riskmonitor] ledger ready")

	// ---- Redis publisher (optional) ----
	var redisWriter *publish.Writer
	redisWriter, err = publish.New(publish.WriterConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		log.Printf("[riskmonitor] WARNING: redis init failed: %v (continuing without redis)", err)
		redisWriter = nil
		health.SetRedisConnected(false)
	} else {
		health.SetRedisConnected(true)
		log.Println("[riskmonitor] redis publisher ready")
	}

	// ---- Liveness checks ----
	if redisWriter != nil {
		health.StartLivenessChecker(ctx, redisWriter.Client(), store.DB(), 10*time.Second)
	} else {
		health.StartLivenessChecker(ctx, nil, store.DB(), 10*time.Second)
	}

	// ---- Snapshot source ----
	var source exchange.Source
	if cfg.StagingMode {
		source = exchange.NewSim(time.Now().UnixNano())
	} else {
		creds, err := exchange.ParseCredentials(cfg.BybitAccounts)
		if err != nil {
			log.Fatalf("[riskmonitor] BYBIT_ACCOUNTS: %v", err)
		}
		log.Printf("[riskmonitor] monitoring %d venue account(s)", len(creds))
		source = exchange.NewBybit(exchange.BybitConfig{
			Accounts: creds,
			BaseURL:  cfg.BybitBaseURL,
		})
	}

	// ---- Engine components ----
	hub := gateway.NewHub()
	hub.OnClientCountChange = func(n int) {
		prom.WSClients.Set(float64(n))
	}

	recon := reconciler.New(store)
	recon.OnPositionsClosed = func(n int) {
		prom.PositionsClosedTotal.Add(float64(n))
	}

	calc := pnl.NewCalculator(store)
	calc.OnSnapshot = func(snap model.PnlSnapshot) {
		prom.PnlComputationsTotal.Inc()
		if redisWriter != nil {
			pubCtx, pubCancel := context.WithTimeout(context.Background(), 3*time.Second)
			redisWriter.PublishSnapshot(pubCtx, snap)
			pubCancel()
		}
	}
	calc.OnComputeDuration = func(d time.Duration) {
		prom.PnlComputeDur.Observe(d.Seconds())
	}

	// syncCycle is one full reconcile: fetch the complete snapshot first so
	// a source failure writes nothing, then merge, then refresh and fan out
	// the cumulative view.
	syncCycle := func(ctx context.Context) (model.SyncResult, error) {
		start := time.Now()

		balances, err := source.FetchBalances(ctx)
		if err != nil {
			return model.SyncResult{}, err
		}
		positions, err := source.FetchPositions(ctx)
		if err != nil {
			return model.SyncResult{}, err
		}

		res, recErr := recon.Reconcile(ctx, balances, positions)
		prom.SyncDur.Observe(time.Since(start).Seconds())
		prom.AccountsSynced.Add(float64(res.AccountsSynced))
		prom.PositionsSynced.Add(float64(res.PositionsSynced))
		if recErr != nil {
			prom.StoreErrorsTotal.Inc()
		}

		view, viewErr := calc.ComputeCumulative(ctx)
		if viewErr != nil {
			log.Printf("[riskmonitor] cumulative refresh failed: %v", viewErr)
			return res, recErr
		}
		prom.TrackedAccounts.Set(float64(view.Summary.AccountCount))
		prom.OpenPositions.Set(float64(view.Summary.TotalPositions))

		hub.Broadcast("cumulative", view.JSON())
		if redisWriter != nil {
			redisWriter.PublishCumulative(ctx, &view)
		}
		return res, recErr
	}

	// ---- Scheduler ----
	sched := scheduler.New(cfg.PollInterval, syncCycle)
	sched.OnCycle = func(_ model.SyncResult, err error) {
		prom.SyncCyclesTotal.Inc()
		if err != nil {
			prom.SyncFailuresTotal.Inc()
		}
		health.RecordSync(err)
	}
	go sched.Run(ctx)

	// ---- API server ----
	apiSrv := api.NewServer(cfg.APIAddr, store, calc, syncCycle, hub)
	apiSrv.Start()

	slog.Info("risk monitor running",
		"api", cfg.APIAddr,
		"metrics", cfg.MetricsAddr,
		"poll_interval", cfg.PollInterval.String(),
		"staging", cfg.StagingMode,
	)

	// ---- Wait for shutdown signal ----
	<-sigCh
	log.Println("[riskmonitor] shutdown signal received, cleaning up...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	apiSrv.Stop(shutdownCtx)
	metricsSrv.Stop(shutdownCtx)

	if redisWriter != nil {
		redisWriter.Close()
	}

	log.Println("[riskmonitor] shutdown complete.")
}

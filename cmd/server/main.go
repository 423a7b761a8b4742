// Package main runs the shielded pool API server: the HTTP surface for
// shield/send/unshield operations over Postgres (or in-memory) stores,
// with optional ClickHouse activity rollups and a Prometheus metrics
// endpoint on a separate listener.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"shielded-pool/internal/audit"
	"shielded-pool/internal/engine"
	"shielded-pool/internal/engine/stub"
	"shielded-pool/internal/httpapi"
	"shielded-pool/internal/ledger"
	"shielded-pool/internal/observability"
	"shielded-pool/internal/pda"
	"shielded-pool/internal/pool"
	"shielded-pool/internal/solana"
	"shielded-pool/internal/storage"
	"shielded-pool/internal/storage/migrations"
	"shielded-pool/internal/txlog"

	chstore "shielded-pool/internal/storage/clickhouse"
	"shielded-pool/internal/storage/memory"
	pgstore "shielded-pool/internal/storage/postgres"
)

// coreStores holds the storage implementations behind the components.
type coreStores struct {
	pools    storage.PoolStore
	balances storage.BalanceStore
	txs      storage.TransactionStore

	// activity is nil when ClickHouse is not configured.
	activity storage.ActivityStore
}

func main() {
	// Load .env file if present; system env vars take precedence.
	_ = godotenv.Load()

	// Parse flags (env vars as defaults)
	listenAddr := flag.String("listen-addr", envOr("SHIELD_LISTEN_ADDR", ":8080"), "API HTTP address")
	metricsAddr := flag.String("metrics-addr", envOr("SHIELD_METRICS_ADDR", ":9090"), "Prometheus metrics HTTP address")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string (optional, enables /stats)")
	rpcEndpoint := flag.String("rpc-endpoint", os.Getenv("SOLANA_RPC_ENDPOINT"), "Solana RPC HTTP endpoint")
	wsEndpoint := flag.String("ws-endpoint", os.Getenv("SOLANA_WS_ENDPOINT"), "Solana WebSocket endpoint (optional)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	acceptAll := flag.Bool("accept-all-proofs", false, "Accept every deposit reference and proof (dev only)")

	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if !*useMemory && *postgresDSN == "" {
		logger.Error("--postgres-dsn is required (use --use-memory for in-memory storage)")
		os.Exit(1)
	}
	if !*acceptAll && *rpcEndpoint == "" {
		logger.Error("--rpc-endpoint is required (use --accept-all-proofs for dev mode)")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Error("failed to create stores", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	deposits, depositCleanup, err := createDepositVerifier(ctx, *acceptAll, *rpcEndpoint, *wsEndpoint, logger)
	if err != nil {
		logger.Error("failed to create deposit verifier", "error", err)
		os.Exit(1)
	}
	defer depositCleanup()

	pools := pool.NewRegistry(stores.pools, pda.DerivePoolAddress)
	balances := ledger.New(stores.balances)
	txs := txlog.New(stores.txs)

	eng := engine.New(engine.Options{
		Pools:     pools,
		Balances:  balances,
		Txs:       txs,
		Deposits:  deposits,
		Proofs:    stub.ProofValidator{},
		Withdraws: &stub.WithdrawSubmitter{},
		Activity:  stores.activity,
		Logger:    logger,
	})

	handler := httpapi.NewHandler(httpapi.Options{
		Engine:   eng,
		Pools:    pools,
		Balances: balances,
		Txs:      txs,
		Activity: stores.activity,
		Auditor:  audit.New(audit.Options{Pools: stores.pools, Txs: stores.txs}),
		Logger:   logger,
	})

	apiServer := &http.Server{
		Addr:    *listenAddr,
		Handler: handler.Router(),
	}
	metricsServer := &http.Server{
		Addr:    *metricsAddr,
		Handler: metricsMux(),
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("starting API server", "addr", *listenAddr)
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("api server: %w", err)
		}
	}()
	go func() {
		logger.Info("starting metrics server", "addr", *metricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("metrics server: %w", err)
		}
	}()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received signal, initiating graceful shutdown", "signal", sig.String())
	case err := <-errCh:
		logger.Error("server error", "error", err)
	}
	cancel()

	// Wait for second signal for immediate shutdown
	done := make(chan struct{})
	go func() {
		select {
		case sig := <-sigCh:
			logger.Error("received second signal, forcing immediate shutdown", "signal", sig.String())
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Error("graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("api server shutdown", "error", err)
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}
	close(done)

	logger.Info("shutdown complete")
}

// createStores builds the storage layer and runs Postgres migrations.
// ClickHouse is optional; without it activity rollups are disabled.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (*coreStores, func(), error) {
	if useMemory {
		stores := &coreStores{
			pools:    memory.NewPoolStore(),
			balances: memory.NewBalanceStore(),
			txs:      memory.NewTransactionStore(),
			activity: memory.NewActivityStore(),
		}
		return stores, func() {}, nil
	}

	pgPool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := migrations.RunPostgres(ctx, pgPool); err != nil {
		pgPool.Close()
		return nil, nil, fmt.Errorf("run postgres migrations: %w", err)
	}

	stores := &coreStores{
		pools:    pgstore.NewPoolStore(pgPool),
		balances: pgstore.NewBalanceStore(pgPool),
		txs:      pgstore.NewTransactionStore(pgPool),
	}

	cleanup := func() { pgPool.Close() }

	if clickhouseDSN != "" {
		chConn, err := chstore.NewConn(ctx, clickhouseDSN)
		if err != nil {
			pgPool.Close()
			return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		if err := migrations.RunClickhouse(ctx, chConn); err != nil {
			chConn.Close()
			pgPool.Close()
			return nil, nil, fmt.Errorf("run clickhouse migrations: %w", err)
		}
		stores.activity = chstore.NewActivityStore(chConn)
		cleanup = func() {
			chConn.Close()
			pgPool.Close()
		}
	}

	return stores, cleanup, nil
}

// createDepositVerifier wires the chain-backed verifier, or the
// always-accept stub in dev mode.
func createDepositVerifier(ctx context.Context, acceptAll bool, rpcEndpoint, wsEndpoint string, logger *slog.Logger) (engine.DepositVerifier, func(), error) {
	if acceptAll {
		logger.Warn("accepting all deposit references and proofs (dev mode)")
		return stub.DepositVerifier{}, func() {}, nil
	}

	rpc := solana.NewHTTPClient(rpcEndpoint)
	opts := []solana.VerifierOption{}
	cleanup := func() {}

	if wsEndpoint != "" {
		ws, err := solana.NewWSClient(ctx, wsEndpoint, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("connect websocket: %w", err)
		}
		opts = append(opts, solana.WithWSClient(ws))
		cleanup = func() { ws.Close() }
	}

	return solana.NewVerifier(rpc, opts...), cleanup, nil
}

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())
	return mux
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

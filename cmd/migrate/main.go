// Package main applies the embedded schema migrations to PostgreSQL
// and, when configured, ClickHouse.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"shielded-pool/internal/storage/clickhouse"
	"shielded-pool/internal/storage/migrations"
	"shielded-pool/internal/storage/postgres"
)

func main() {
	_ = godotenv.Load()

	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string (optional)")
	timeout := flag.Duration("timeout", 60*time.Second, "Migration timeout")

	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if *postgresDSN == "" {
		logger.Error("--postgres-dsn is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := postgres.NewPool(ctx, *postgresDSN)
	if err != nil {
		logger.Error("connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := migrations.RunPostgres(ctx, pool); err != nil {
		logger.Error("run postgres migrations", "error", err)
		os.Exit(1)
	}
	logger.Info("postgres migrations applied")

	if *clickhouseDSN != "" {
		conn, err := clickhouse.NewConn(ctx, *clickhouseDSN)
		if err != nil {
			logger.Error("connect to clickhouse", "error", err)
			os.Exit(1)
		}
		defer conn.Close()

		if err := migrations.RunClickhouse(ctx, conn); err != nil {
			logger.Error("run clickhouse migrations", "error", err)
			os.Exit(1)
		}
		logger.Info("clickhouse migrations applied")
	}
}

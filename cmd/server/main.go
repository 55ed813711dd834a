/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the receipt analytics engine server. Handles
  configuration, dependency injection, seeding, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse flags (environment variables with RECEIPT_ prefix also work)
  2. Build the root logger
  3. Initialize SQLite store
  4. Seed the collection if it is empty (fixtures or samples)
  5. Create service, API handler, and router
  6. Start server with graceful shutdown

FLAGS:
  --addr       Listen address (default: :8080)
  --db         SQLite database path (default: receipts.db)
               Use ":memory:" for an in-memory database
  --seed       JSON fixture file to load when the store is empty
  --sample     Generate N sample receipts when the store is empty
  --log-level  trace|debug|info|warn|error (default: info)
  --pretty     Human-readable console logs instead of JSON

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server --db="./data/receipts.db"

  # Demo with 500 generated receipts
  ./server --db=":memory:" --sample=500

  # Seed from fixtures, pretty logs
  ./server --seed=./fixtures/receipts.json --pretty

  # Same via environment
  RECEIPT_ADDR=:3000 RECEIPT_LOG_LEVEL=debug ./server

SEE ALSO:
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
  - factory/receipts.go: Fixtures and sample data
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/warp/receipt-engine/api"
	"github.com/warp/receipt-engine/factory"
	"github.com/warp/receipt-engine/logging"
	"github.com/warp/receipt-engine/receipt"
	"github.com/warp/receipt-engine/store/sqlite"
)

func main() {
	fs := ff.NewFlagSet("receipt-engine")
	var (
		addr     = fs.StringLong("addr", ":8080", "HTTP listen address")
		dbPath   = fs.StringLong("db", "receipts.db", "SQLite database path (\":memory:\" for in-memory)")
		seedPath = fs.StringLong("seed", "", "JSON fixture file to load when the store is empty")
		sampleN  = fs.IntLong("sample", 0, "Generate N sample receipts when the store is empty")
		logLevel = fs.StringLong("log-level", "info", "Log level: trace|debug|info|warn|error")
		pretty   = fs.BoolLong("pretty", "Human-readable console logs")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("RECEIPT"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(logging.Options{Level: *logLevel, Pretty: *pretty})

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer store.Close()

	svc := receipt.NewService(store, log)

	// Seed an empty collection
	if err := seed(context.Background(), svc, *seedPath, *sampleN); err != nil {
		log.Fatal().Err(err).Msg("failed to seed receipts")
	}

	// Create router and server
	handler := api.NewHandler(svc, log)
	router := api.NewRouter(handler, log)

	server := &http.Server{
		Addr:         *addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", *addr).Str("db", *dbPath).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

// seed fills an empty store from a fixture file or the sample
// generator. A store that already has receipts is left alone.
func seed(ctx context.Context, svc *receipt.Service, seedPath string, sampleN int) error {
	if seedPath == "" && sampleN <= 0 {
		return nil
	}

	count, err := svc.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	var receipts []*receipt.Receipt
	if seedPath != "" {
		if receipts, err = factory.Load(seedPath); err != nil {
			return err
		}
	} else {
		receipts = factory.Sample(sampleN, time.Now().UnixNano())
	}

	for _, r := range receipts {
		if _, err := svc.Create(ctx, r); err != nil {
			return fmt.Errorf("seeding %s: %w", r.Vendor, err)
		}
	}
	return nil
}

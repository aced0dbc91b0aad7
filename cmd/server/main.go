/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the billing engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (config.toml, BILLING_ env vars, defaults)
  2. Build the zap logger
  3. Initialize SQLite store
  4. Wire service, metrics and API handler
  5. Optionally seed demo data
  6. Start the receivables scheduler
  7. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  Directory holding config.toml (default: .)
  -port    HTTP server port, overrides config
  -db      SQLite database path, overrides config
           Use ":memory:" for in-memory database
  -demo    Reset and seed demo data at startup

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the receivables scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (http.shutdown_timeout)
  4. Close database connection
  5. Exit

EXAMPLES:
  ./server -db="./data/books.db"
  ./server -db=":memory:" -demo
  BILLING_LOG_FORMAT=json BILLING_APP_PORT=3000 ./server

SEE ALSO:
  - config/config.go: Configuration keys
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/billing-engine/api"
	"github.com/warp/billing-engine/billing"
	"github.com/warp/billing-engine/config"
	"github.com/warp/billing-engine/logger"
	"github.com/warp/billing-engine/store/sqlite"
	"go.uber.org/zap"
)

func main() {
	configDir := flag.String("config", ".", "Directory holding config.toml")
	port := flag.String("port", "", "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	demo := flag.Bool("demo", false, "Reset and seed demo data at startup")
	flag.Parse()

	cfg, err := config.Load(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *port != "" {
		cfg.App.Port = *port
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	if *demo {
		cfg.App.Demo = true
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("Server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer store.Close()

	metrics := api.NewMetrics()

	engine := billing.Engine{
		Numbering: billing.Numbering{Prefix: cfg.Invoice.Prefix},
		Catalog:   cfg.Invoice.Catalog(),
	}
	svc := billing.NewService(store, engine, log.Named("billing"))
	svc.Recorder = metrics
	svc.Attempts = cfg.Invoice.IssueAttempts

	handler := api.NewHandler(svc, log.Named("api"))
	handler.Metrics = metrics
	handler.DefaultTerms = billing.Terms(cfg.Invoice.DefaultTerms)
	handler.StatementMarkup = decimal.NewFromFloat(cfg.Invoice.StatementMarkup)

	if cfg.App.Demo {
		if err := api.SeedDemo(context.Background(), svc, time.Now()); err != nil {
			log.Warn("Failed to seed demo data", zap.Error(err))
		} else {
			log.Info("Demo data loaded")
		}
	}

	scheduler := api.NewReceivablesScheduler(svc, metrics, log.Named("scheduler"))
	scheduler.Enabled = cfg.Scheduler.Enabled
	scheduler.CheckInterval = cfg.Scheduler.Interval
	scheduler.Start()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      api.NewRouter(handler, cfg.HTTP.CORSAllowOrigins...),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("Server starting",
			zap.String("addr", cfg.Addr()),
			zap.String("db", cfg.Database.Path),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return err
	case <-quit:
	}

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}

	log.Info("Server stopped")
	return nil
}

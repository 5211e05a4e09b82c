/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the ledger service. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse configuration from environment
  2. Initialize the logger
  3. Open the SQLite document store
  4. Wrap it with the resilience decorator and metrics
  5. Wire engine, reconstructor, handlers, router
  6. Start server with graceful shutdown

CONFIGURATION (environment):
  LEDGER_ADDR           Listen address (default :8080)
  LEDGER_DB             SQLite database path (default ledger.db;
                        use ":memory:" for an in-memory database)
  LEDGER_LOG_LEVEL      debug|info|warn|error (default info)
  LEDGER_LOG_FORMAT     json|console (default json)
  LEDGER_STORE_TIMEOUT  Per-call document store timeout (default 5s)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close the document store
  4. Exit

SEE ALSO:
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Document store implementation
*/
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/warp/ledger-engine/api"
	"github.com/warp/ledger-engine/ledger"
	"github.com/warp/ledger-engine/logging"
	"github.com/warp/ledger-engine/metrics"
	"github.com/warp/ledger-engine/resilience"
	"github.com/warp/ledger-engine/store/sqlite"
)

type config struct {
	Addr         string        `env:"LEDGER_ADDR" envDefault:":8080"`
	DBPath       string        `env:"LEDGER_DB" envDefault:"ledger.db"`
	LogLevel     string        `env:"LEDGER_LOG_LEVEL" envDefault:"info"`
	LogFormat    string        `env:"LEDGER_LOG_FORMAT" envDefault:"json"`
	StoreTimeout time.Duration `env:"LEDGER_STORE_TIMEOUT" envDefault:"5s"`
}

func main() {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		os.Stderr.WriteString("parse config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		os.Stderr.WriteString("init logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	// Document store
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		log.Fatal("failed to open document store", zap.Error(err))
	}
	defer store.Close()

	// Metrics + resilience decorator
	registry := prometheus.NewRegistry()
	collector, err := metrics.NewPrometheus(registry)
	if err != nil {
		log.Fatal("failed to register metrics", zap.Error(err))
	}

	resilientCfg := resilience.DefaultConfig()
	resilientCfg.Timeout = cfg.StoreTimeout
	docStore := resilience.Wrap(store, resilientCfg, collector, log)

	// Core wiring
	engine := ledger.NewEngine(docStore)
	history := ledger.NewHistory(docStore)
	handler := api.NewHandler(engine, history, log)
	router := api.NewRouter(handler, log, registry)

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server starting", zap.String("addr", cfg.Addr), zap.String("db", cfg.DBPath))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}

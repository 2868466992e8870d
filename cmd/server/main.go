/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the punch reconciliation engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load environment configuration (.env supported)
  2. Initialize SQLite store
  3. Wire the recorder and the report aggregator
  4. Configure HTTP router
  5. Start server with graceful shutdown

CONFIGURATION (environment):
  PORT                  HTTP server port (default: 8080)
  DB_PATH               SQLite database path (default: ./data/punch.db)
                        Use ":memory:" for an in-memory database
  LOOKBACK_HOURS        Open-entry pairing window (default: 72)
  MIN_EXIT_GAP_MINUTES  Minimum entry-to-exit gap (default: 5)
  CORS_ORIGINS          Comma-separated allowed origins (default: *)
  LOG_LEVEL             logrus level (default: info)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

SEE ALSO:
  - config/config.go: environment loading
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/muniworks/punch-engine/api"
	"github.com/muniworks/punch-engine/config"
	"github.com/muniworks/punch-engine/punch"
	"github.com/muniworks/punch-engine/report"
	"github.com/muniworks/punch-engine/store/sqlite"
)

func main() {
	cfg := config.Load()
	logger := cfg.NewLogger()

	// Initialize store
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		logger.WithField("db_path", cfg.DBPath).Fatalf("failed to initialize database: %v", err)
	}
	defer store.Close()

	// Wire the engine
	recorder := punch.NewRecorder(store, store, punch.RecorderConfig{
		Lookback:   cfg.Lookback,
		MinExitGap: cfg.MinExitGap,
		Logger:     logger,
	})
	reports := report.New(store, nil)

	handler := api.NewHandler(store, recorder, reports, logger)
	router := api.NewRouter(handler, cfg.CORSOrigins)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.WithField("port", cfg.Port).Info("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatalf("server forced to shutdown: %v", err)
	}

	logger.Info("server stopped")
}

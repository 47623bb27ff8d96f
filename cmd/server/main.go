/*
main.go - Application entry point

PURPOSE:
  Starts the operator console for a DRMAA job store. Handles
  configuration, schema setup, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration from the environment
  2. Apply command-line flag overrides
  3. Create missing tables (unless DRMAA_SETUP_ON_START=false)
  4. Configure HTTP router
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: DRMAA_PORT or 8080)
  -db      Store file path (default: DRMAA_STORE_PATH or drmaa2.db)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Exit

The store opens a connection per operation, so there is nothing to close.

EXAMPLES:
  # Inspect a store written by DRMAA clients
  ./server -db="/var/lib/drmaa/drmaa2.db"

  # Debug logging of every statement
  DRMAA_LOG_LEVEL=debug ./server

SEE ALSO:
  - config/config.go: Environment variables
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Store implementation
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

	"github.com/warp/drmaa-store/api"
	"github.com/warp/drmaa-store/config"
	"github.com/warp/drmaa-store/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(2)
	}

	// Flags
	port := flag.Int("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.StorePath, "store file path")
	flag.Parse()

	logger := cfg.Logger()
	store := sqlite.New(*dbPath, cfg.StoreOptions(logger)...)

	if cfg.SetupOnStart {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.LockTimeout+5*time.Second)
		err := store.Setup(ctx)
		cancel()
		if err != nil {
			logger.Error("failed to set up store", "path", *dbPath, "error", err)
			os.Exit(1)
		}
	}

	handler := api.NewHandler(store, logger)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: api.DefaultWaitTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server starting", "addr", server.Addr, "store", *dbPath)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
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
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

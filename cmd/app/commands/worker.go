package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/allisson/marketsync/internal/app"
	"github.com/allisson/marketsync/internal/config"
)

// shutdownTimeout bounds the graceful stop of the servers.
const shutdownTimeout = 30 * time.Second

// RunWorker starts the scheduler together with the ops and metrics servers.
// Blocks until receiving SIGINT/SIGTERM or encountering a fatal error. On shutdown
// the scheduler stops starting new runs and the servers drain within shutdownTimeout.
func RunWorker(ctx context.Context, version string) error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Set Gin mode based on log level
	gin.SetMode(cfg.GetGinMode())

	container := app.NewContainer(cfg)

	logger := container.Logger()
	logger.Info("starting worker", slog.String("version", version))

	defer closeContainer(container, logger)

	// Resolving the scheduler initializes every use case it runs
	sched, err := container.Scheduler()
	if err != nil {
		return fmt.Errorf("failed to initialize scheduler: %w", err)
	}

	server, err := container.HTTPServer()
	if err != nil {
		return fmt.Errorf("failed to initialize HTTP server: %w", err)
	}

	metricsServer, err := container.MetricsServer()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics server: %w", err)
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	workerErr := make(chan error, 3)
	go func() {
		if err := server.Start(ctx); err != nil {
			workerErr <- fmt.Errorf("ops server error: %w", err)
		}
	}()

	if metricsServer != nil {
		go func() {
			if err := metricsServer.Start(ctx); err != nil {
				workerErr <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
	}

	schedulerDone := make(chan struct{})
	go func() {
		defer close(schedulerDone)
		if err := sched.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			workerErr <- fmt.Errorf("scheduler error: %w", err)
		}
	}()

	var shutdownErrors []error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-workerErr:
		logger.Error("worker error, initiating shutdown", slog.Any("error", err))
		shutdownErrors = append(shutdownErrors, err)
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		shutdownErrors = append(shutdownErrors, fmt.Errorf("ops server shutdown: %w", err))
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	select {
	case <-schedulerDone:
	case <-shutdownCtx.Done():
		shutdownErrors = append(shutdownErrors, fmt.Errorf("scheduler shutdown: %w", shutdownCtx.Err()))
	}

	return errors.Join(shutdownErrors...)
}

package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"bilancio/internal/cli"
	"bilancio/internal/log"
	"bilancio/internal/services"
	"bilancio/internal/worker"
)

// resyncInterval is how often every household is exported regardless of
// change messages, to catch writes made while no broker was reachable.
const resyncInterval = 6 * time.Hour

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentWorker)
	logger.Info("Starting bilancio-worker")
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	res := cli.InitBackend(ctx, logger, cfg)
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	exporter := cli.InitExporter(ctx, logger, cfg)
	if exporter == nil {
		logger.Error("Nothing to do: set EXPORT_ENABLED=true and GOOGLE_SPREADSHEET_ID")
		os.Exit(1)
	}

	// The worker only reads; it never publishes changes of its own.
	households := services.NewHouseholdService(res.Store, nil, services.Config{
		CriticalDueDay: cfg.CriticalDueDay,
		Horizon:        cfg.ProjectionHorizon,
	})
	exports := worker.NewExportWorker(households, exporter, worker.Config{
		PollInterval: cfg.ExportPollInterval,
		BatchSize:    cfg.ExportBatchSize,
	})

	if err := exports.ExportAll(ctx); err != nil {
		logger.Error("Startup export failed", log.FieldError, err)
	}
	if err := exports.Start(ctx); err != nil {
		logger.Error("Failed to start export worker", log.FieldError, err)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)

	if res.AMQP != nil {
		g.Go(func() error {
			return res.AMQP.ConsumeHouseholdChanged(gctx, exports.HandleChangeMessage)
		})
	} else {
		logger.Warn("AMQP disabled: households are exported only on periodic resync")
	}

	g.Go(func() error {
		ticker := time.NewTicker(resyncInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-ticker.C:
				if err := exports.ExportAll(gctx); err != nil {
					logger.Error("Periodic resync failed", log.FieldError, err)
				}
			}
		}
	})

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", log.FieldError, err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := exports.Stop(shutdownCtx); err != nil {
		logger.Warn("Export worker did not stop in time", log.FieldError, err)
	}
	logger.Info("Worker shutdown complete")
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"bilancio/internal/cli"
	"bilancio/internal/config"
	apphttp "bilancio/internal/http"
	"bilancio/internal/log"
	"bilancio/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	res := cli.InitBackend(ctx, logger, cfg)
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	households := services.NewHouseholdService(res.Store, res.Publisher(), serviceConfig(cfg))
	srv := apphttp.NewServer(households, apphttp.Options{
		Addr:              cfg.Addr(),
		AgendaPreview:     cfg.AgendaPreviewSize,
		RequestsPerMinute: cfg.RequestsPerMinute,
		CacheTTL:          cfg.SummaryCacheTTL,
		Logger:            logger,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting bilancio server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"amqp_enabled", res.AMQP != nil)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
			os.Exit(1)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", log.FieldError, err)
	}
	logger.Info("Server stopped gracefully")
}

func serviceConfig(cfg *config.Config) services.Config {
	return services.Config{
		CriticalDueDay: cfg.CriticalDueDay,
		Horizon:        cfg.ProjectionHorizon,
	}
}

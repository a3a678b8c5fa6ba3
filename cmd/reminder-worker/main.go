package main

import (
	"fmt"
	"os"
	"time"

	"github.com/robfig/cron/v3"

	"bilancio/internal/cli"
	"bilancio/internal/log"
	"bilancio/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentReminder)
	logger.Info("Starting reminder-worker")
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	res := cli.InitBackend(ctx, logger, cfg)
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	households := services.NewHouseholdService(res.Store, nil, services.Config{
		CriticalDueDay: cfg.CriticalDueDay,
		Horizon:        cfg.ProjectionHorizon,
	})
	processor := services.NewReminderProcessor(households, services.NewLogNotifier(logger.Logger.With(log.FieldComponent, log.ComponentReminder)))

	run := func() {
		reminders, err := processor.ProcessReminders(ctx, time.Now())
		if err != nil {
			logger.Error("Reminder check failed", log.FieldError, err)
			return
		}
		logger.Info("Reminder check complete", "reminders", len(reminders))
	}

	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slogPrintf{logger})))
	if _, err := c.AddFunc(cfg.ReminderSchedule, run); err != nil {
		logger.Error("Invalid reminder schedule", log.FieldError, err, "schedule", cfg.ReminderSchedule)
		os.Exit(1)
	}

	logger.Info("Running initial reminder check")
	run()

	c.Start()
	logger.Info("Reminder schedule active", "schedule", cfg.ReminderSchedule)

	<-ctx.Done()

	stopCtx := c.Stop()
	select {
	case <-stopCtx.Done():
		logger.Info("Reminder-worker shutdown complete")
	case <-time.After(30 * time.Second):
		logger.Warn("Shutdown timeout reached with a check still running")
	}
}

// slogPrintf adapts the logger to cron's Printf interface.
type slogPrintf struct{ logger *log.Logger }

func (p slogPrintf) Printf(format string, args ...any) {
	p.logger.Debug("cron", "detail", fmt.Sprintf(format, args...))
}

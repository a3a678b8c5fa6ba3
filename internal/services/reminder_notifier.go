package services

import (
	"context"
	"log/slog"
)

// LogNotifier delivers reminders as warning log records.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier logs through logger, or the default logger when nil.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) NotifyReminder(ctx context.Context, r Reminder) error {
	msg := "Payment due soon"
	if r.DaysLeft < 0 {
		msg = "Payment overdue"
	}
	n.logger.WarnContext(ctx, msg,
		"household", r.Household,
		"month_key", r.MonthKey,
		"name", r.Alert.Name,
		"amount", r.Alert.Amount.Format(),
		"due_date", r.DueDate.String(),
		"days_left", r.DaysLeft)
	return nil
}

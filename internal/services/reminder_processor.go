package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bilancio/internal/core"
	"bilancio/internal/obligation"
)

// Reminder is a critical unpaid obligation found for a household.
type Reminder struct {
	Household string                   `json:"household"`
	MonthKey  core.MonthKey            `json:"monthKey"`
	Alert     obligation.CriticalAlert `json:"alert"`
	DueDate   core.CalendarDay         `json:"dueDate"`
	// DaysLeft is negative once the due date has passed.
	DaysLeft int `json:"daysLeft"`
}

// ReminderNotifier delivers reminders, e.g. to a log or a queue.
type ReminderNotifier interface {
	NotifyReminder(ctx context.Context, r Reminder) error
}

// ReminderProcessor checks every household for a critical unpaid obligation
// in the current month.
type ReminderProcessor struct {
	households *HouseholdService
	notifier   ReminderNotifier
}

func NewReminderProcessor(households *HouseholdService, notifier ReminderNotifier) *ReminderProcessor {
	return &ReminderProcessor{households: households, notifier: notifier}
}

// ProcessReminders builds the summary of now's month for each household and
// notifies its critical alert, if any. A failing household is logged and
// skipped.
func (p *ReminderProcessor) ProcessReminders(ctx context.Context, now time.Time) ([]Reminder, error) {
	if p.households == nil {
		return nil, fmt.Errorf("processor not properly initialized")
	}

	names, err := p.households.Households(ctx)
	if err != nil {
		return nil, fmt.Errorf("list households: %w", err)
	}

	today := core.CalendarDayOf(now)
	month := today.MonthIndex()
	key := month.Key()

	slog.InfoContext(ctx, "Checking critical obligations",
		"households", len(names),
		"month_key", key)

	var reminders []Reminder
	for _, name := range names {
		sum, err := p.households.Summary(ctx, name, key)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to build summary", "household", name, "error", err)
			continue
		}
		if sum.Critical == nil {
			continue
		}

		due := month.DueDate(sum.Critical.DueDay)
		r := Reminder{
			Household: name,
			MonthKey:  key,
			Alert:     *sum.Critical,
			DueDate:   due,
			DaysLeft:  daysBetween(today, due),
		}
		reminders = append(reminders, r)

		slog.WarnContext(ctx, "Critical obligation unpaid",
			"household", name,
			"name", r.Alert.Name,
			"amount_cents", r.Alert.Amount.Cents,
			"due_day", r.Alert.DueDay,
			"days_left", r.DaysLeft)

		if p.notifier != nil {
			if err := p.notifier.NotifyReminder(ctx, r); err != nil {
				slog.ErrorContext(ctx, "Failed to deliver reminder", "household", name, "error", err)
			}
		}
	}

	slog.InfoContext(ctx, "Critical obligation check complete",
		"reminders", len(reminders),
		"total_checked", len(names))

	return reminders, nil
}

func daysBetween(from, to core.CalendarDay) int {
	a := time.Date(from.Year, from.Month, from.Day, 0, 0, 0, 0, time.UTC)
	b := time.Date(to.Year, to.Month, to.Day, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

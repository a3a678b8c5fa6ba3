package google

import (
	"sort"
	"strconv"
	"time"

	"bilancio/internal/core"
	"bilancio/internal/obligation"
)

const exportTimeLayout = "2006-01-02 15:04:05"

// summaryRows lays out a summary as
// exported_at | household | month | kind | name | due date | amount | paid.
// The last row carries the month totals.
func summaryRows(at time.Time, household string, s obligation.Summary) [][]any {
	stamp := at.Format(exportTimeLayout)
	rows := make([][]any, 0, len(s.Agenda)+1)
	for _, e := range s.Agenda {
		rows = append(rows, []any{
			stamp,
			household,
			string(s.MonthKey),
			string(e.Kind),
			e.Name,
			e.DueDate.String(),
			euros(e.Amount),
			paidLabel(e.Paid),
		})
	}
	rows = append(rows, []any{
		stamp,
		household,
		string(s.MonthKey),
		"total",
		"Paid " + s.TotalPaid.Format(),
		"",
		euros(s.TotalNeeded),
		percentLabel(s.PercentComplete),
	})
	return rows
}

// projectionRows lays out one row per month and bucket:
// exported_at | household | month | bucket | amount. Buckets are sorted by
// name; services, the hypothetical purchase (when non-zero) and the total
// follow.
func projectionRows(at time.Time, household string, months []obligation.ProjectionMonth) [][]any {
	stamp := at.Format(exportTimeLayout)
	var rows [][]any
	for _, m := range months {
		names := make([]string, 0, len(m.PerCard))
		for name := range m.PerCard {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			rows = append(rows, []any{stamp, household, string(m.MonthKey), name, euros(m.PerCard[name])})
		}
		rows = append(rows, []any{stamp, household, string(m.MonthKey), "Services", euros(m.Services)})
		if !m.Hypothetical.IsZero() {
			rows = append(rows, []any{stamp, household, string(m.MonthKey), "Hypothetical", euros(m.Hypothetical)})
		}
		rows = append(rows, []any{stamp, household, string(m.MonthKey), "Total", euros(m.Total)})
	}
	return rows
}

func euros(m core.Money) float64 {
	return float64(m.Cents) / 100.0
}

func paidLabel(paid bool) string {
	if paid {
		return "paid"
	}
	return "due"
}

func percentLabel(p float64) string {
	return strconv.FormatFloat(p, 'f', 1, 64) + "%"
}

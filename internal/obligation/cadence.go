// This file implements the Strategy Pattern for service cadences.
// Each frequency (monthly, bimonthly, quarterly, ...) has a checker that
// decides whether a service falls due in a given month.

package obligation

import (
	"fmt"

	"bilancio/internal/core"
)

// CadenceChecker decides whether a recurring service is due in target.
// hasAnchor is false when the service has no first-due month configured.
type CadenceChecker interface {
	IsActive(anchor core.Month, hasAnchor bool, target core.Month) bool
}

// MonthlyChecker is due every month.
type MonthlyChecker struct{}

func (MonthlyChecker) IsActive(core.Month, bool, core.Month) bool {
	return true
}

// EveryNMonthsChecker is due on the anchor month and every N months after it.
type EveryNMonthsChecker struct {
	N int
}

// IsActive returns true when target is on the cadence. A service without an
// anchor is treated as due every month; older records never stored one.
func (c EveryNMonthsChecker) IsActive(anchor core.Month, hasAnchor bool, target core.Month) bool {
	if !hasAnchor || c.N <= 1 {
		return true
	}
	diff := target.Sub(anchor)
	return diff >= 0 && diff%c.N == 0
}

// cadenceStrategies maps frequencies in months to their checkers. It is
// read-only; its keys match core.IsValidFrequency.
var cadenceStrategies = map[int]CadenceChecker{
	1:  MonthlyChecker{},
	2:  EveryNMonthsChecker{N: 2},
	3:  EveryNMonthsChecker{N: 3},
	6:  EveryNMonthsChecker{N: 6},
	12: EveryNMonthsChecker{N: 12},
}

// GetCadenceChecker returns the checker for a frequency. Zero means monthly.
func GetCadenceChecker(frequencyMonths int) (CadenceChecker, error) {
	if frequencyMonths == 0 {
		frequencyMonths = 1
	}
	checker, ok := cadenceStrategies[frequencyMonths]
	if !ok {
		return nil, fmt.Errorf("unknown service frequency: %d months", frequencyMonths)
	}
	return checker, nil
}

// IsServiceActive reports whether s falls due in target. Services with an
// unknown frequency or an unparsable anchor are never due; BuildSummary
// reports them as issues.
func IsServiceActive(s core.Service, target core.Month) bool {
	checker, err := GetCadenceChecker(s.FrequencyMonths)
	if err != nil {
		return false
	}
	var anchor core.Month
	hasAnchor := s.FirstDueMonth != ""
	if hasAnchor {
		anchor, err = s.FirstDueMonth.Month()
		if err != nil {
			return false
		}
	}
	return checker.IsActive(anchor, hasAnchor, target)
}

// ServiceAmount is the amount owed for s whenever it is due.
func ServiceAmount(s core.Service) core.Money {
	return s.Amount
}

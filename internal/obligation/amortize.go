// Package obligation computes what a household owes in a given month.
//
// Every function here is pure: it reads an immutable snapshot of records and
// returns fresh values. The same functions back the monthly summary, the
// agenda and the projection, so the installment rule lives in one place.
package obligation

import (
	"fmt"

	"bilancio/internal/core"
)

// Interval is the half-open range of months [Start, End) a purchase is spread
// over. PerMonth is the base installment; the first Remainder months carry one
// extra cent so the installments always add up to the purchase total exactly.
type Interval struct {
	Start     core.Month
	End       core.Month
	PerMonth  core.Money
	Remainder int64
}

// Amortize returns the interval a purchase occupies. Cash purchases occupy
// only the month of their date. Invalid purchases are rejected, never coerced.
func Amortize(p core.Purchase) (Interval, error) {
	if err := p.ValidateAmortization(); err != nil {
		return Interval{}, fmt.Errorf("purchase %q: %w", p.ID, err)
	}
	start := p.Date.MonthIndex()
	if p.EffectiveKind() == core.KindCash {
		return Interval{Start: start, End: start + 1, PerMonth: p.TotalAmount}, nil
	}
	return split(start, p.TotalAmount, p.InstallmentCount), nil
}

func split(start core.Month, total core.Money, count int) Interval {
	n := int64(count)
	return Interval{
		Start:     start,
		End:       start.Add(count),
		PerMonth:  core.Money{Cents: total.Cents / n},
		Remainder: total.Cents % n,
	}
}

// Len is the number of installments.
func (iv Interval) Len() int {
	return iv.End.Sub(iv.Start)
}

func (iv Interval) Contains(m core.Month) bool {
	return iv.Start <= m && m < iv.End
}

// AmountAt is the installment due in month m, zero outside the interval.
func (iv Interval) AmountAt(m core.Month) core.Money {
	if !iv.Contains(m) {
		return core.Money{}
	}
	if int64(m.Sub(iv.Start)) < iv.Remainder {
		return iv.PerMonth.Add(core.Money{Cents: 1})
	}
	return iv.PerMonth
}

// Total is the sum of every installment.
func (iv Interval) Total() core.Money {
	return iv.PerMonth.Mul(int64(iv.Len())).Add(core.Money{Cents: iv.Remainder})
}

// RemainingFrom sums the installments due in month m and later.
func (iv Interval) RemainingFrom(m core.Month) core.Money {
	var sum core.Money
	for cur := max(m, iv.Start); cur < iv.End; cur++ {
		sum = sum.Add(iv.AmountAt(cur))
	}
	return sum
}

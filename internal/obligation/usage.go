package obligation

import (
	"errors"
	"fmt"

	"bilancio/internal/core"
)

var (
	ErrOverCreditLimit  = errors.New("purchase exceeds available credit")
	ErrOverOneShotLimit = errors.New("purchase exceeds available one-shot limit")
)

// Usage is how much of a card's limits is taken by installments still to be
// billed from a month onwards. A zero limit means the limit is not tracked.
type Usage struct {
	CardID           string        `json:"cardId"`
	MonthKey         core.MonthKey `json:"monthKey"`
	Committed        core.Money    `json:"committed"`
	CommittedOneShot core.Money    `json:"committedOneShot"`
	CreditLimit      core.Money    `json:"creditLimit"`
	Available        core.Money    `json:"available"`
	OneShotLimit     core.Money    `json:"oneShotLimit"`
	AvailableOneShot core.Money    `json:"availableOneShot"`
	Utilization      float64       `json:"utilization"`
}

// CardUsage sums the installments of card's purchases due in month or later.
// Overrides are billing corrections and do not change the committed balance.
func CardUsage(card core.Card, purchases []core.Purchase, month core.Month) Usage {
	u := Usage{
		CardID:       card.ID,
		MonthKey:     month.Key(),
		CreditLimit:  card.CreditLimit,
		OneShotLimit: card.OneShotLimit,
	}
	for _, p := range purchases {
		if p.CardID != card.ID || p.EffectiveKind() == core.KindCash {
			continue
		}
		iv, err := Amortize(p)
		if err != nil {
			continue
		}
		remaining := iv.RemainingFrom(month)
		u.Committed = u.Committed.Add(remaining)
		if p.InstallmentCount == 1 {
			u.CommittedOneShot = u.CommittedOneShot.Add(remaining)
		}
	}
	u.Available = card.CreditLimit.Sub(u.Committed)
	u.AvailableOneShot = card.OneShotLimit.Sub(u.CommittedOneShot)
	u.Utilization = Percent(u.Committed, card.CreditLimit)
	return u
}

// CheckLimit reports whether a new purchase of amount in installments fits on
// card. Single-installment purchases are checked against the one-shot limit,
// everything else against the credit limit.
func CheckLimit(card core.Card, purchases []core.Purchase, month core.Month, amount core.Money, installments int) error {
	if installments < 1 {
		return &core.ValidationError{Field: "installmentCount", Err: core.ErrInvalidInstallments}
	}
	u := CardUsage(card, purchases, month)
	if installments == 1 && card.OneShotLimit.Cents > 0 {
		if amount.Cents > u.AvailableOneShot.Cents {
			return fmt.Errorf("%w: %s available on %s", ErrOverOneShotLimit, u.AvailableOneShot.Format(), card.Name)
		}
		return nil
	}
	if card.CreditLimit.Cents > 0 && amount.Cents > u.Available.Cents {
		return fmt.Errorf("%w: %s available on %s", ErrOverCreditLimit, u.Available.Format(), card.Name)
	}
	return nil
}

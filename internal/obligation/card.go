package obligation

import (
	"encoding/json"

	"bilancio/internal/core"
)

// Source tells whether an obligation was entered by hand or computed from
// installments.
type Source int

const (
	Computed Source = iota
	Override
)

func (s Source) String() string {
	if s == Override {
		return "override"
	}
	return "computed"
}

func (s Source) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Obligation is the single effective amount owed for one card in one month.
// An override replaces the computed sum; the two are never combined.
type Obligation struct {
	Source Source     `json:"source"`
	Amount core.Money `json:"amount"`
}

func OverrideOf(amount core.Money) Obligation {
	return Obligation{Source: Override, Amount: amount}
}

func ComputedOf(amount core.Money) Obligation {
	return Obligation{Source: Computed, Amount: amount}
}

func (o Obligation) IsOverride() bool {
	return o.Source == Override
}

// CardObligation resolves what card owes in month. A manual adjustment for the
// month wins unconditionally; otherwise every card purchase linked to the card
// whose interval contains month contributes its installment. Purchases that
// fail validation contribute nothing (they are reported by BuildSummary).
func CardObligation(card core.Card, purchases []core.Purchase, month core.Month) Obligation {
	if v, ok := card.Adjustment(month.Key()); ok {
		return OverrideOf(v)
	}
	var sum core.Money
	for _, p := range purchases {
		if p.CardID != card.ID || p.EffectiveKind() == core.KindCash {
			continue
		}
		iv, err := Amortize(p)
		if err != nil {
			continue
		}
		sum = sum.Add(iv.AmountAt(month))
	}
	return ComputedOf(sum)
}

// CardObligationForKey is CardObligation with a "YYYY-MM" month.
func CardObligationForKey(card core.Card, purchases []core.Purchase, key core.MonthKey) (Obligation, error) {
	m, err := key.Month()
	if err != nil {
		return Obligation{}, err
	}
	return CardObligation(card, purchases, m), nil
}

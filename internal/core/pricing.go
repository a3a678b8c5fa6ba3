package core

import (
	"math"
	"strings"
)

// PurchaseDraft is what a user fills in before confirming a purchase. The
// surcharge is applied once, at purchase time; there is no compounding.
type PurchaseDraft struct {
	CardID           string       `json:"cardId,omitempty"`
	Description      string       `json:"description"`
	Date             CalendarDay  `json:"date"`
	BaseAmount       Money        `json:"baseAmount"`
	SurchargePercent float64      `json:"surchargePercent,omitempty"`
	DiscountPercent  float64      `json:"discountPercent,omitempty"`
	InstallmentCount int          `json:"installmentCount"`
	Category         string       `json:"category,omitempty"`
	Kind             PurchaseKind `json:"kind,omitempty"`
}

// FinalAmount applies the surcharge and then the discount to base.
func FinalAmount(base Money, surchargePercent, discountPercent float64) (Money, error) {
	if err := base.Validate(); err != nil {
		return Money{}, invalid("baseAmount", err)
	}
	if !validPercent(surchargePercent) {
		return Money{}, invalid("surchargePercent", ErrInvalidPercent)
	}
	if !validPercent(discountPercent) {
		return Money{}, invalid("discountPercent", ErrInvalidPercent)
	}
	f := float64(base.Cents) * (1 + surchargePercent/100) * (1 - discountPercent/100)
	return Money{Cents: int64(math.Round(f))}, nil
}

func validPercent(p float64) bool {
	return !math.IsNaN(p) && p >= 0 && p <= 100
}

// Finalize turns the draft into a purchase with the given id. The result is
// validated, so a zero or negative installment count is rejected here rather
// than coerced.
func (d PurchaseDraft) Finalize(id string) (Purchase, error) {
	total, err := FinalAmount(d.BaseAmount, d.SurchargePercent, d.DiscountPercent)
	if err != nil {
		return Purchase{}, err
	}
	p := Purchase{
		ID:               id,
		CardID:           strings.TrimSpace(d.CardID),
		Description:      strings.TrimSpace(d.Description),
		Date:             d.Date,
		TotalAmount:      total,
		InstallmentCount: d.InstallmentCount,
		Category:         strings.TrimSpace(d.Category),
		Kind:             d.Kind,
	}
	p.Kind = p.EffectiveKind()
	if p.Kind == KindCash {
		p.CardID = ""
	}
	if err := p.Validate(); err != nil {
		return Purchase{}, err
	}
	return p, nil
}

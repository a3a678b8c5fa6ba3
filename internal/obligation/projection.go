package obligation

import (
	"fmt"

	"bilancio/internal/core"
)

const (
	// DefaultHorizon is the number of months a projection covers.
	DefaultHorizon = 6
	// OtherBucket collects installments whose card no longer exists.
	OtherBucket = "Other"
)

// Hypothetical is a purchase being drafted but not saved yet. It is spread
// from the projection's first month.
type Hypothetical struct {
	Amount           core.Money `json:"amount"`
	InstallmentCount int        `json:"installmentCount"`
	CardID           string     `json:"cardId,omitempty"`
}

func (h Hypothetical) Validate() error {
	if err := h.Amount.Validate(); err != nil {
		return &core.ValidationError{Field: "amount", Err: err}
	}
	if h.InstallmentCount < 1 {
		return &core.ValidationError{Field: "installmentCount", Err: core.ErrInvalidInstallments}
	}
	return nil
}

type ProjectionMonth struct {
	MonthKey     core.MonthKey         `json:"monthKey"`
	MonthLabel   string                `json:"monthLabel"`
	PerCard      map[string]core.Money `json:"perCard"` // by card name, plus OtherBucket
	Services     core.Money            `json:"services"`
	Hypothetical core.Money            `json:"hypothetical"`
	Total        core.Money            `json:"total"`
}

// Project resolves obligations for horizon months starting at the anchor's
// month. A horizon of zero or less means DefaultHorizon.
func Project(in Input, anchor core.CalendarDay, horizon int, hyp *Hypothetical) ([]ProjectionMonth, error) {
	if err := anchor.Validate(); err != nil {
		return nil, &core.ValidationError{Field: "anchor", Err: err}
	}
	if horizon <= 0 {
		horizon = DefaultHorizon
	}
	start := anchor.MonthIndex()

	names := make(map[string]string, len(in.Cards))
	for _, c := range in.Cards {
		names[c.ID] = c.Name
	}

	var draft *Interval
	if hyp != nil {
		if err := hyp.Validate(); err != nil {
			return nil, fmt.Errorf("hypothetical purchase: %w", err)
		}
		iv := split(start, hyp.Amount, hyp.InstallmentCount)
		draft = &iv
	}

	var orphans []Interval
	for _, p := range in.Purchases {
		if p.EffectiveKind() != core.KindCard {
			continue
		}
		if _, ok := names[p.CardID]; ok {
			continue
		}
		if iv, err := Amortize(p); err == nil {
			orphans = append(orphans, iv)
		}
	}

	out := make([]ProjectionMonth, 0, horizon)
	for i := 0; i < horizon; i++ {
		month := start.Add(i)
		pm := ProjectionMonth{
			MonthKey:   month.Key(),
			MonthLabel: month.Label(),
			PerCard:    make(map[string]core.Money, len(in.Cards)+1),
		}
		for _, c := range in.Cards {
			amount := CardObligation(c, in.Purchases, month).Amount
			pm.PerCard[c.Name] = pm.PerCard[c.Name].Add(amount)
			pm.Total = pm.Total.Add(amount)
		}
		for _, iv := range orphans {
			if amount := iv.AmountAt(month); !amount.IsZero() {
				pm.PerCard[OtherBucket] = pm.PerCard[OtherBucket].Add(amount)
				pm.Total = pm.Total.Add(amount)
			}
		}
		for _, s := range in.Services {
			if s.Validate() == nil && IsServiceActive(s, month) {
				pm.Services = pm.Services.Add(ServiceAmount(s))
			}
		}
		pm.Total = pm.Total.Add(pm.Services)
		if draft != nil && draft.Contains(month) {
			amount := draft.AmountAt(month)
			bucket, ok := names[hyp.CardID]
			if !ok {
				bucket = OtherBucket
			}
			pm.PerCard[bucket] = pm.PerCard[bucket].Add(amount)
			pm.Hypothetical = amount
			pm.Total = pm.Total.Add(amount)
		}
		out = append(out, pm)
	}
	return out, nil
}

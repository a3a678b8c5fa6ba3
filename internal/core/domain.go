package core

import (
	"errors"
	"fmt"
	"strings"
)

const (
	KindCard PurchaseKind = "card"
	KindCash PurchaseKind = "cash"
)

// Allowed service cadences, in months.
var Frequencies = []int{1, 2, 3, 6, 12}

type (
	PurchaseKind string

	Money struct {
		Cents int64
	}

	// Purchase is a single expense, optionally paid in installments on a card.
	Purchase struct {
		ID               string       `json:"id"`
		CardID           string       `json:"cardId,omitempty"` // empty for cash expenses
		Description      string       `json:"description"`
		Date             CalendarDay  `json:"date"`
		TotalAmount      Money        `json:"totalAmount"` // after surcharge and discount
		InstallmentCount int          `json:"installmentCount"`
		Category         string       `json:"category,omitempty"`
		Kind             PurchaseKind `json:"kind"`
	}

	Card struct {
		ID                string             `json:"id"`
		Name              string             `json:"name"`
		IssuingBank       string             `json:"issuingBank,omitempty"`
		CreditLimit       Money              `json:"creditLimit"`
		OneShotLimit      Money              `json:"oneShotLimit"` // applies to single-installment purchases
		StatementCloseDay int                `json:"statementCloseDay,omitempty"`
		DueDay            int                `json:"dueDay"`
		Color             string             `json:"color,omitempty"`
		Adjustments       map[MonthKey]Money `json:"adjustments,omitempty"`
		PaidPeriods       PeriodSet          `json:"paidPeriods"`
	}

	// Service is a recurring fixed expense.
	Service struct {
		ID              string    `json:"id"`
		Name            string    `json:"name"`
		Amount          Money     `json:"amount"`
		DueDay          int       `json:"dueDay"`
		FrequencyMonths int       `json:"frequencyMonths,omitempty"` // 0 means monthly
		FirstDueMonth   MonthKey  `json:"firstDueMonthKey,omitempty"`
		PaidPeriods     PeriodSet `json:"paidPeriods"`
	}

	ShoppingItem struct {
		ID        string   `json:"id"`
		Name      string   `json:"name"`
		UnitPrice Money    `json:"unitPrice"`
		Quantity  int      `json:"quantity"`
		Checked   bool     `json:"checked"`
		MonthKey  MonthKey `json:"monthKey"`
	}
)

var (
	ErrInvalidDay          = errors.New("invalid day")
	ErrInvalidMonth        = errors.New("invalid month")
	ErrInvalidDate         = errors.New("invalid date")
	ErrInvalidMonthKey     = errors.New("invalid month key (want YYYY-MM)")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidInstallments = errors.New("installment count must be at least 1")
	ErrInvalidDueDay       = errors.New("due day must be between 1 and 31")
	ErrInvalidFrequency    = errors.New("frequency must be one of 1, 2, 3, 6, 12 months")
	ErrInvalidKind         = errors.New("kind must be card or cash")
	ErrInvalidQuantity     = errors.New("quantity must be at least 1")
	ErrInvalidPercent      = errors.New("percentage must be between 0 and 100")
	ErrEmptyName           = errors.New("empty name")
	ErrEmptyDescription    = errors.New("empty description")
	ErrMissingCard         = errors.New("card purchase without card id")
	ErrNotFound            = errors.New("not found")
)

// ValidationError ties a sentinel error to the offending field.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (k PurchaseKind) IsValid() bool {
	return k == KindCard || k == KindCash
}

// EffectiveKind treats a missing kind as card when a card is linked and as
// cash otherwise.
func (p Purchase) EffectiveKind() PurchaseKind {
	if p.Kind != "" {
		return p.Kind
	}
	if p.CardID == "" {
		return KindCash
	}
	return KindCard
}

// Validate is the write-side check: every rule of ValidateAmortization plus
// the description rules.
func (p Purchase) Validate() error {
	if err := p.Date.Validate(); err != nil {
		return invalid("date", err)
	}
	if len(strings.TrimSpace(p.Description)) == 0 {
		return invalid("description", ErrEmptyDescription)
	}
	if len(p.Description) > 200 {
		return invalid("description", errors.New("description too long (max 200 characters)"))
	}
	return p.ValidateAmortization()
}

// ValidateAmortization checks only what spreading a stored purchase over its
// months depends on: date, amount, installment count and kind/card.
func (p Purchase) ValidateAmortization() error {
	if err := p.Date.Validate(); err != nil {
		return invalid("date", err)
	}
	if err := p.TotalAmount.Validate(); err != nil {
		return invalid("totalAmount", err)
	}
	if p.InstallmentCount < 1 {
		return invalid("installmentCount", ErrInvalidInstallments)
	}
	kind := p.EffectiveKind()
	if !kind.IsValid() {
		return invalid("kind", ErrInvalidKind)
	}
	if kind == KindCard && strings.TrimSpace(p.CardID) == "" {
		return invalid("cardId", ErrMissingCard)
	}
	return nil
}

func (c Card) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return invalid("name", ErrEmptyName)
	}
	if c.DueDay < 1 || c.DueDay > 31 {
		return invalid("dueDay", ErrInvalidDueDay)
	}
	if c.StatementCloseDay < 0 || c.StatementCloseDay > 31 {
		return invalid("statementCloseDay", ErrInvalidDay)
	}
	if c.CreditLimit.Cents < 0 {
		return invalid("creditLimit", ErrInvalidAmount)
	}
	if c.OneShotLimit.Cents < 0 {
		return invalid("oneShotLimit", ErrInvalidAmount)
	}
	for k := range c.Adjustments {
		if err := k.Validate(); err != nil {
			return invalid("adjustments", err)
		}
	}
	return nil
}

// Adjustment returns the manual override for key, if one is set.
func (c Card) Adjustment(key MonthKey) (Money, bool) {
	v, ok := c.Adjustments[key]
	return v, ok
}

// WithAdjustment returns a copy of the card with the override for key set.
func (c Card) WithAdjustment(key MonthKey, amount Money) Card {
	adj := make(map[MonthKey]Money, len(c.Adjustments)+1)
	for k, v := range c.Adjustments {
		adj[k] = v
	}
	adj[key] = amount
	c.Adjustments = adj
	return c
}

// WithoutAdjustment returns a copy of the card with the override for key removed.
func (c Card) WithoutAdjustment(key MonthKey) Card {
	adj := make(map[MonthKey]Money, len(c.Adjustments))
	for k, v := range c.Adjustments {
		if k != key {
			adj[k] = v
		}
	}
	c.Adjustments = adj
	return c
}

func IsValidFrequency(n int) bool {
	for _, f := range Frequencies {
		if f == n {
			return true
		}
	}
	return false
}

func (s Service) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return invalid("name", ErrEmptyName)
	}
	if err := s.Amount.Validate(); err != nil {
		return invalid("amount", err)
	}
	if s.DueDay < 1 || s.DueDay > 31 {
		return invalid("dueDay", ErrInvalidDueDay)
	}
	if s.FrequencyMonths != 0 && !IsValidFrequency(s.FrequencyMonths) {
		return invalid("frequencyMonths", ErrInvalidFrequency)
	}
	if s.FirstDueMonth != "" {
		if err := s.FirstDueMonth.Validate(); err != nil {
			return invalid("firstDueMonthKey", err)
		}
	}
	return nil
}

func (i ShoppingItem) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return invalid("name", ErrEmptyName)
	}
	if i.UnitPrice.Cents < 0 {
		return invalid("unitPrice", ErrInvalidAmount)
	}
	if i.Quantity < 1 {
		return invalid("quantity", ErrInvalidQuantity)
	}
	if err := i.MonthKey.Validate(); err != nil {
		return invalid("monthKey", err)
	}
	return nil
}

// Total is unit price times quantity.
func (i ShoppingItem) Total() Money {
	return i.UnitPrice.Mul(int64(i.Quantity))
}

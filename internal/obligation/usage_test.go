package obligation

import (
	"errors"
	"testing"
	"time"

	"bilancio/internal/core"
)

func TestCardUsage(t *testing.T) {
	card := core.Card{ID: "visa", Name: "Visa", DueDay: 10, CreditLimit: core.Cents(200000), OneShotLimit: core.Cents(50000)}
	oneShot := core.Purchase{
		ID:               "shoes",
		CardID:           "visa",
		Description:      "Shoes",
		Date:             core.NewCalendarDay(2024, time.April, 2),
		TotalAmount:      core.Cents(15000),
		InstallmentCount: 1,
		Kind:             core.KindCard,
	}
	purchases := []core.Purchase{tvPurchase(), oneShot}

	u := CardUsage(card, purchases, mustMonth(t, "2024-04"))
	if u.Committed.Cents != 80000+15000 {
		t.Fatalf("committed %d", u.Committed.Cents)
	}
	if u.CommittedOneShot.Cents != 15000 || u.AvailableOneShot.Cents != 35000 {
		t.Fatalf("one-shot %+v", u)
	}
	if u.Available.Cents != 200000-95000 {
		t.Fatalf("available %d", u.Available.Cents)
	}
	if u.Utilization != 47.5 {
		t.Fatalf("utilization %v", u.Utilization)
	}
}

func TestCheckLimit(t *testing.T) {
	card := core.Card{ID: "visa", Name: "Visa", DueDay: 10, CreditLimit: core.Cents(150000), OneShotLimit: core.Cents(20000)}
	purchases := []core.Purchase{tvPurchase()}
	apr := mustMonth(t, "2024-04")

	tests := []struct {
		name         string
		amount       int64
		installments int
		wantErr      error
	}{
		{"fits credit", 70000, 3, nil},
		{"over credit", 70001, 3, ErrOverCreditLimit},
		{"fits one-shot", 20000, 1, nil},
		{"over one-shot", 20001, 1, ErrOverOneShotLimit},
		{"invalid installments", 100, 0, core.ErrInvalidInstallments},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckLimit(card, purchases, apr, core.Cents(tt.amount), tt.installments)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}
		})
	}

	untracked := core.Card{ID: "visa", Name: "Visa", DueDay: 10}
	if err := CheckLimit(untracked, purchases, apr, core.Cents(1<<40), 12); err != nil {
		t.Fatalf("untracked limits: %v", err)
	}
}

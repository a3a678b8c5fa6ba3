package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"bilancio/internal/core"
	"bilancio/internal/obligation"
	"bilancio/internal/records"
	"bilancio/internal/records/memory"
)

type publishedChange struct {
	household  string
	collection string
}

type fakePublisher struct {
	mu      sync.Mutex
	changes []publishedChange
	err     error
}

func (f *fakePublisher) PublishHouseholdChanged(_ context.Context, household, collection string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.changes = append(f.changes, publishedChange{household, collection})
	return f.err
}

func (f *fakePublisher) last() publishedChange {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.changes) == 0 {
		return publishedChange{}
	}
	return f.changes[len(f.changes)-1]
}

// newTestService returns a service over an empty memory store with the clock
// fixed at 2 March 2024 and sequential ids.
func newTestService(t *testing.T) (*HouseholdService, *memory.Store, *fakePublisher) {
	t.Helper()
	store := memory.New()
	pub := &fakePublisher{}
	svc := NewHouseholdService(store, pub, DefaultConfig())
	svc.now = func() time.Time { return time.Date(2024, time.March, 2, 10, 0, 0, 0, time.Local) }
	n := 0
	svc.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	return svc, store, pub
}

func mustSaveCard(t *testing.T, s *HouseholdService, c core.Card) core.Card {
	t.Helper()
	saved, err := s.SaveCard(context.Background(), "rossi", c)
	if err != nil {
		t.Fatalf("SaveCard: %v", err)
	}
	return saved
}

func TestNewHouseholdService_Defaults(t *testing.T) {
	s := NewHouseholdService(memory.New(), nil, Config{})
	if s.engine.CriticalDueDay != obligation.DefaultCriticalDueDay {
		t.Errorf("critical due day = %d", s.engine.CriticalDueDay)
	}
	if s.horizon != obligation.DefaultHorizon {
		t.Errorf("horizon = %d", s.horizon)
	}
}

func TestCurrentMonth(t *testing.T) {
	s, _, _ := newTestService(t)
	if got := s.CurrentMonth(); got != "2024-03" {
		t.Errorf("CurrentMonth() = %q", got)
	}
}

func TestAddPurchase(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		draft     core.PurchaseDraft
		wantErr   error
		wantTotal int64
	}{
		{
			name: "card purchase with surcharge",
			draft: core.PurchaseDraft{
				CardID: "visa", Description: "Laptop", Date: core.NewCalendarDay(2024, time.March, 1),
				BaseAmount: core.Cents(100000), SurchargePercent: 10, InstallmentCount: 3,
			},
			wantTotal: 110000,
		},
		{
			name: "cash purchase needs no card",
			draft: core.PurchaseDraft{
				Description: "Groceries", Date: core.NewCalendarDay(2024, time.March, 1),
				BaseAmount: core.Cents(4500), InstallmentCount: 1, Kind: core.KindCash,
			},
			wantTotal: 4500,
		},
		{
			name: "unknown card",
			draft: core.PurchaseDraft{
				CardID: "amex", Description: "Shoes", Date: core.NewCalendarDay(2024, time.March, 1),
				BaseAmount: core.Cents(9000), InstallmentCount: 1,
			},
			wantErr: obligation.ErrUnknownCard,
		},
		{
			name: "over credit limit",
			draft: core.PurchaseDraft{
				CardID: "visa", Description: "Sofa", Date: core.NewCalendarDay(2024, time.March, 1),
				BaseAmount: core.Cents(600000), InstallmentCount: 6,
			},
			wantErr: obligation.ErrOverCreditLimit,
		},
		{
			name: "over one-shot limit",
			draft: core.PurchaseDraft{
				CardID: "visa", Description: "TV", Date: core.NewCalendarDay(2024, time.March, 1),
				BaseAmount: core.Cents(150000), InstallmentCount: 1,
			},
			wantErr: obligation.ErrOverOneShotLimit,
		},
		{
			name: "zero installments rejected",
			draft: core.PurchaseDraft{
				CardID: "visa", Description: "Phone", Date: core.NewCalendarDay(2024, time.March, 1),
				BaseAmount: core.Cents(1000), InstallmentCount: 0,
			},
			wantErr: core.ErrInvalidInstallments,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, store, pub := newTestService(t)
			mustSaveCard(t, s, core.Card{ID: "visa", Name: "Visa", CreditLimit: core.Cents(500000), OneShotLimit: core.Cents(100000), DueDay: 10})

			p, err := s.AddPurchase(ctx, "rossi", tt.draft)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				if !core.IsValidation(err) {
					t.Errorf("expected a validation error, got %T", err)
				}
				snap, _ := store.Snapshot(ctx, "rossi")
				if len(snap.Purchases) != 0 {
					t.Errorf("rejected purchase was saved")
				}
				return
			}
			if err != nil {
				t.Fatalf("AddPurchase: %v", err)
			}
			if p.ID == "" {
				t.Error("purchase id not assigned")
			}
			if p.TotalAmount.Cents != tt.wantTotal {
				t.Errorf("total = %d, want %d", p.TotalAmount.Cents, tt.wantTotal)
			}
			if got := pub.last(); got.household != "rossi" || got.collection != "purchases" {
				t.Errorf("published %+v", got)
			}
		})
	}
}

func TestUpdatePurchase_ExcludesItselfFromLimit(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestService(t)
	mustSaveCard(t, s, core.Card{ID: "visa", Name: "Visa", CreditLimit: core.Cents(100000), DueDay: 10})

	draft := core.PurchaseDraft{
		CardID: "visa", Description: "Bike", Date: core.NewCalendarDay(2024, time.March, 1),
		BaseAmount: core.Cents(90000), InstallmentCount: 3,
	}
	p, err := s.AddPurchase(ctx, "rossi", draft)
	if err != nil {
		t.Fatal(err)
	}

	draft.BaseAmount = core.Cents(95000)
	updated, err := s.UpdatePurchase(ctx, "rossi", p.ID, draft)
	if err != nil {
		t.Fatalf("UpdatePurchase: %v", err)
	}
	if updated.ID != p.ID || updated.TotalAmount.Cents != 95000 {
		t.Errorf("updated = %+v", updated)
	}

	if _, err := s.UpdatePurchase(ctx, "rossi", "missing", draft); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSetAdjustment(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestService(t)
	mustSaveCard(t, s, core.Card{ID: "visa", Name: "Visa", DueDay: 10})
	if _, err := s.AddPurchase(ctx, "rossi", core.PurchaseDraft{
		CardID: "visa", Description: "Phone", Date: core.NewCalendarDay(2024, time.March, 1),
		BaseAmount: core.Cents(30000), InstallmentCount: 3,
	}); err != nil {
		t.Fatal(err)
	}

	got, err := s.CardObligation(ctx, "rossi", "visa", "2024-03")
	if err != nil {
		t.Fatal(err)
	}
	if got.IsOverride() || got.Amount.Cents != 10000 {
		t.Fatalf("computed obligation = %+v", got)
	}

	// A zero override wins over the computed amount.
	if _, err := s.SetAdjustment(ctx, "rossi", "visa", "2024-03", core.Cents(0)); err != nil {
		t.Fatal(err)
	}
	got, _ = s.CardObligation(ctx, "rossi", "visa", "2024-03")
	if !got.IsOverride() || !got.Amount.IsZero() {
		t.Errorf("override obligation = %+v", got)
	}

	if _, err := s.ClearAdjustment(ctx, "rossi", "visa", "2024-03"); err != nil {
		t.Fatal(err)
	}
	got, _ = s.CardObligation(ctx, "rossi", "visa", "2024-03")
	if got.IsOverride() || got.Amount.Cents != 10000 {
		t.Errorf("cleared obligation = %+v", got)
	}

	if _, err := s.SetAdjustment(ctx, "rossi", "visa", "2024-03", core.Cents(-1)); !core.IsValidation(err) {
		t.Errorf("negative override: expected validation error, got %v", err)
	}
	if _, err := s.SetAdjustment(ctx, "rossi", "visa", "March", core.Cents(1)); err == nil {
		t.Error("expected error for malformed month key")
	}
	if _, err := s.SetAdjustment(ctx, "rossi", "amex", "2024-03", core.Cents(1)); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("unknown card: expected ErrNotFound, got %v", err)
	}
}

func TestSaveCard_KeepsAdjustmentsAndPaidPeriods(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestService(t)
	card := mustSaveCard(t, s, core.Card{Name: "  Visa ", DueDay: 10})
	if card.ID != "id-1" || card.Name != "Visa" {
		t.Fatalf("saved card = %+v", card)
	}
	if _, err := s.SetAdjustment(ctx, "rossi", card.ID, "2024-03", core.Cents(5000)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.ToggleCardPaid(ctx, "rossi", card.ID, "2024-03"); err != nil {
		t.Fatal(err)
	}

	updated := mustSaveCard(t, s, core.Card{ID: card.ID, Name: "Visa Gold", DueDay: 15})
	if amt, ok := updated.Adjustment("2024-03"); !ok || amt.Cents != 5000 {
		t.Errorf("adjustment lost: %v %v", amt, ok)
	}
	if !updated.PaidPeriods.Contains("2024-03") {
		t.Error("paid period lost")
	}

	if _, err := s.SaveCard(ctx, "rossi", core.Card{Name: "", DueDay: 10}); !core.IsValidation(err) {
		t.Errorf("expected validation error for empty name, got %v", err)
	}
}

func TestToggleCardPaid(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestService(t)
	mustSaveCard(t, s, core.Card{ID: "visa", Name: "Visa", DueDay: 10})

	c, err := s.ToggleCardPaid(ctx, "rossi", "visa", "2024-03")
	if err != nil {
		t.Fatal(err)
	}
	if !c.PaidPeriods.Contains("2024-03") {
		t.Error("expected paid after first toggle")
	}
	c, _ = s.ToggleCardPaid(ctx, "rossi", "visa", "2024-03")
	if c.PaidPeriods.Contains("2024-03") {
		t.Error("expected unpaid after second toggle")
	}
}

func TestServiceLifecycle(t *testing.T) {
	ctx := context.Background()
	s, store, pub := newTestService(t)

	svc, err := s.SaveService(ctx, "rossi", core.Service{Name: "Rent", Amount: core.Cents(80000), DueDay: 3})
	if err != nil {
		t.Fatal(err)
	}
	if got := pub.last(); got.collection != string(records.Services) {
		t.Errorf("published %+v", got)
	}

	if _, err := s.ToggleServicePaid(ctx, "rossi", svc.ID, "2024-03"); err != nil {
		t.Fatal(err)
	}
	// Resaving the profile keeps the paid months.
	svc.Amount = core.Cents(85000)
	svc.PaidPeriods = core.PeriodSet{}
	if _, err := s.SaveService(ctx, "rossi", svc); err != nil {
		t.Fatal(err)
	}
	stored, err := store.GetService(ctx, "rossi", svc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Amount.Cents != 85000 || !stored.PaidPeriods.Contains("2024-03") {
		t.Errorf("stored service = %+v", stored)
	}

	sum, err := s.Summary(ctx, "rossi", "2024-03")
	if err != nil {
		t.Fatal(err)
	}
	if sum.TotalPaid.Cents != 85000 || sum.Critical != nil {
		t.Errorf("summary = %+v", sum)
	}

	if err := s.DeleteService(ctx, "rossi", svc.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteService(ctx, "rossi", svc.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestShoppingItems(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestService(t)

	it, err := s.SaveShoppingItem(ctx, "rossi", core.ShoppingItem{Name: "Milk", UnitPrice: core.Cents(150), Quantity: 2})
	if err != nil {
		t.Fatal(err)
	}
	if it.MonthKey != "2024-03" {
		t.Errorf("month key defaulted to %q", it.MonthKey)
	}

	it, err = s.ToggleShoppingItem(ctx, "rossi", it.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !it.Checked {
		t.Error("expected checked")
	}

	if err := s.DeleteShoppingItem(ctx, "rossi", it.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.ToggleShoppingItem(ctx, "rossi", it.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteCard_LeavesOrphanPurchases(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestService(t)
	mustSaveCard(t, s, core.Card{ID: "visa", Name: "Visa", DueDay: 10})
	if _, err := s.AddPurchase(ctx, "rossi", core.PurchaseDraft{
		CardID: "visa", Description: "Desk", Date: core.NewCalendarDay(2024, time.March, 1),
		BaseAmount: core.Cents(20000), InstallmentCount: 2,
	}); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteCard(ctx, "rossi", "visa"); err != nil {
		t.Fatal(err)
	}

	months, err := s.Projection(ctx, "rossi", s.Today(), 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(months) != obligation.DefaultHorizon {
		t.Fatalf("projection has %d months", len(months))
	}
	if got := months[0].PerCard[obligation.OtherBucket]; got.Cents != 10000 {
		t.Errorf("orphan bucket = %d", got.Cents)
	}
}

func TestCardUsage(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestService(t)
	mustSaveCard(t, s, core.Card{ID: "visa", Name: "Visa", CreditLimit: core.Cents(100000), DueDay: 10})
	if _, err := s.AddPurchase(ctx, "rossi", core.PurchaseDraft{
		CardID: "visa", Description: "Chair", Date: core.NewCalendarDay(2024, time.March, 1),
		BaseAmount: core.Cents(30000), InstallmentCount: 3,
	}); err != nil {
		t.Fatal(err)
	}

	u, err := s.CardUsage(ctx, "rossi", "visa", "2024-04")
	if err != nil {
		t.Fatal(err)
	}
	if u.Committed.Cents != 20000 || u.Available.Cents != 80000 {
		t.Errorf("usage = %+v", u)
	}
	if _, err := s.CardUsage(ctx, "rossi", "amex", "2024-04"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	ctx := context.Background()
	s, store, pub := newTestService(t)
	pub.err = errors.New("broker down")

	if _, err := s.SaveService(ctx, "rossi", core.Service{Name: "Gym", Amount: core.Cents(4000), DueDay: 20}); err != nil {
		t.Fatalf("SaveService: %v", err)
	}
	snap, _ := store.Snapshot(ctx, "rossi")
	if len(snap.Services) != 1 {
		t.Error("service not saved")
	}
}

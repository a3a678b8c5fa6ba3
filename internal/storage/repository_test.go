package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"bilancio/internal/core"
	"bilancio/internal/records"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "bilancio.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestCardRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	card := core.Card{
		ID:           "visa",
		Name:         "Visa",
		IssuingBank:  "Intesa",
		CreditLimit:  core.Cents(300000),
		OneShotLimit: core.Cents(50000),
		DueDay:       10,
		Color:        "#1a73e8",
		PaidPeriods:  core.NewPeriodSet("2024-01", "2024-02"),
	}.WithAdjustment("2024-03", core.Cents(0)).WithAdjustment("2024-04", core.Cents(25000))

	if err := repo.SaveCard(ctx, "rossi", card); err != nil {
		t.Fatal(err)
	}
	got, err := repo.GetCard(ctx, "rossi", "visa")
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Visa" || got.CreditLimit.Cents != 300000 || got.DueDay != 10 {
		t.Fatalf("card %+v", got)
	}
	if amt, ok := got.Adjustment("2024-03"); !ok || amt.Cents != 0 {
		t.Fatalf("zero override lost: %v %v", amt, ok)
	}
	if !got.PaidPeriods.Contains("2024-02") || got.PaidPeriods.Len() != 2 {
		t.Fatalf("paid periods %v", got.PaidPeriods.Keys())
	}

	// Saving again replaces adjustments and paid periods.
	updated := got.WithoutAdjustment("2024-03")
	updated.PaidPeriods = updated.PaidPeriods.Without("2024-01")
	if err := repo.SaveCard(ctx, "rossi", updated); err != nil {
		t.Fatal(err)
	}
	got, _ = repo.GetCard(ctx, "rossi", "visa")
	if _, ok := got.Adjustment("2024-03"); ok {
		t.Fatal("adjustment not cleared")
	}
	if got.PaidPeriods.Len() != 1 {
		t.Fatalf("paid periods %v", got.PaidPeriods.Keys())
	}
}

func TestSnapshotKeepsOrderAndHouseholds(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	for _, id := range []string{"tv", "sofa", "bike"} {
		p := core.Purchase{
			ID:               id,
			CardID:           "visa",
			Description:      id,
			Date:             core.NewCalendarDay(2024, time.March, 15),
			TotalAmount:      core.Cents(1000),
			InstallmentCount: 2,
			Kind:             core.KindCard,
		}
		if err := repo.SavePurchase(ctx, "rossi", p); err != nil {
			t.Fatal(err)
		}
	}
	// An update keeps the original position.
	sofa, err := repo.GetPurchase(ctx, "rossi", "sofa")
	if err != nil {
		t.Fatal(err)
	}
	sofa.TotalAmount = core.Cents(5000)
	if err := repo.SavePurchase(ctx, "rossi", sofa); err != nil {
		t.Fatal(err)
	}
	svc := core.Service{ID: "rent", Name: "Rent", Amount: core.Cents(80000), DueDay: 5, FrequencyMonths: 1, PaidPeriods: core.NewPeriodSet("2024-03")}
	if err := repo.SaveService(ctx, "bianchi", svc); err != nil {
		t.Fatal(err)
	}
	item := core.ShoppingItem{ID: "milk", Name: "Milk", UnitPrice: core.Cents(120), Quantity: 3, Checked: true, MonthKey: "2024-03"}
	if err := repo.SaveShoppingItem(ctx, "rossi", item); err != nil {
		t.Fatal(err)
	}

	snap, err := repo.Snapshot(ctx, "rossi")
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Purchases) != 3 || snap.Purchases[0].ID != "tv" || snap.Purchases[1].ID != "sofa" || snap.Purchases[2].ID != "bike" {
		t.Fatalf("purchases %+v", snap.Purchases)
	}
	if snap.Purchases[1].TotalAmount.Cents != 5000 {
		t.Fatalf("update lost %+v", snap.Purchases[1])
	}
	if snap.Purchases[0].Date != core.NewCalendarDay(2024, time.March, 15) {
		t.Fatalf("date %v", snap.Purchases[0].Date)
	}
	if len(snap.Services) != 0 || len(snap.Shopping) != 1 || !snap.Shopping[0].Checked {
		t.Fatalf("snapshot leaked across households: %+v", snap)
	}

	other, _ := repo.Snapshot(ctx, "bianchi")
	if len(other.Services) != 1 || !other.Services[0].PaidPeriods.Contains("2024-03") {
		t.Fatalf("bianchi %+v", other.Services)
	}

	names, err := repo.Households(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 || names[0] != "bianchi" || names[1] != "rossi" {
		t.Fatalf("households %v", names)
	}
}

func TestDeleteMissingIsNotFound(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	if err := repo.DeleteCard(ctx, "rossi", "nope"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("card: %v", err)
	}
	if err := repo.DeletePurchase(ctx, "rossi", "nope"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("purchase: %v", err)
	}
	if _, err := repo.GetService(ctx, "rossi", "nope"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("service: %v", err)
	}
	if _, err := repo.GetShoppingItem(ctx, "rossi", "nope"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("shopping: %v", err)
	}
}

func TestSaveValidatesAndNotifies(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	ch, cancel := repo.Subscribe("rossi")
	defer cancel()

	bad := core.Service{ID: "x", Name: "X", Amount: core.Cents(100), DueDay: 5, FrequencyMonths: 4}
	if err := repo.SaveService(ctx, "rossi", bad); !errors.Is(err, core.ErrInvalidFrequency) {
		t.Fatalf("got %v", err)
	}
	if len(ch) != 0 {
		t.Fatal("rejected write notified subscribers")
	}

	if err := repo.SaveCard(ctx, "rossi", core.Card{ID: "amex", Name: "Amex", DueDay: 3}); err != nil {
		t.Fatal(err)
	}
	select {
	case c := <-ch:
		if c.Collection != records.Cards {
			t.Fatalf("change %+v", c)
		}
	case <-time.After(time.Second):
		t.Fatal("no notification")
	}
}

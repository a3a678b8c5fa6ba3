package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestParseCalendarDayIgnoresOffset(t *testing.T) {
	cases := []struct {
		in   string
		want CalendarDay
	}{
		{"2024-03-15", NewCalendarDay(2024, time.March, 15)},
		{"2024-03-31T23:30:00-03:00", NewCalendarDay(2024, time.March, 31)},
		{"2024-04-01T00:10:00+02:00", NewCalendarDay(2024, time.April, 1)},
		{" 2023-12-31 ", NewCalendarDay(2023, time.December, 31)},
	}
	for _, tc := range cases {
		got, err := ParseCalendarDay(tc.in)
		if err != nil {
			t.Fatalf("%q: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("%q: got %v, want %v", tc.in, got, tc.want)
		}
	}

	for _, bad := range []string{"", "2024-13-01", "2024-02-30", "15/03/2024", "abc"} {
		if _, err := ParseCalendarDay(bad); !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("%q: expected ErrInvalidDate, got %v", bad, err)
		}
	}
}

func TestCalendarDayOfUsesWallClock(t *testing.T) {
	loc := time.FixedZone("UTC-3", -3*3600)
	late := time.Date(2024, time.March, 31, 23, 30, 0, 0, loc)
	if got := CalendarDayOf(late); got.Month != time.March || got.Day != 31 {
		t.Fatalf("got %v", got)
	}
}

func TestMonthArithmetic(t *testing.T) {
	dec, err := ParseMonthKey("2023-12")
	if err != nil {
		t.Fatal(err)
	}
	jan := dec.Add(1)
	if jan.Key() != "2024-01" {
		t.Fatalf("got %s", jan.Key())
	}
	if jan.Sub(dec) != 1 {
		t.Fatalf("sub = %d", jan.Sub(dec))
	}
	if dec.Add(-12).Key() != "2022-12" {
		t.Fatalf("got %s", dec.Add(-12).Key())
	}
	if jan.Label() != "Jan 2024" {
		t.Fatalf("label %q", jan.Label())
	}
	// "2024-01" < "2023-12" would be wrong lexicographically only if keys were
	// compared as strings of different shapes; linear months must order.
	if !(dec < jan) {
		t.Fatal("months out of order across year boundary")
	}

	for _, bad := range []string{"2024-1", "2024/01", "2024-00", "2024-13", "", "abcd-01", "+024-03", "2024-+3", "-024-03", "2024- 3", "0000-01"} {
		if _, err := ParseMonthKey(bad); !errors.Is(err, ErrInvalidMonthKey) {
			t.Fatalf("%q: expected ErrInvalidMonthKey, got %v", bad, err)
		}
	}
}

func TestDueDateClampsShortMonths(t *testing.T) {
	feb, _ := ParseMonthKey("2024-02")
	if d := feb.DueDate(31); d.Day != 29 {
		t.Fatalf("leap february: %v", d)
	}
	feb23, _ := ParseMonthKey("2023-02")
	if d := feb23.DueDate(30); d.Day != 28 {
		t.Fatalf("february: %v", d)
	}
	apr, _ := ParseMonthKey("2024-04")
	if d := apr.DueDate(10); d.Day != 10 {
		t.Fatalf("april: %v", d)
	}
}

func TestPeriodSetIsImmutable(t *testing.T) {
	base := NewPeriodSet("2024-01")
	added := base.With("2024-02")
	if base.Contains("2024-02") {
		t.Fatal("With mutated the receiver")
	}
	if !added.Contains("2024-01") || !added.Contains("2024-02") {
		t.Fatalf("unexpected keys %v", added.Keys())
	}
	removed := added.Without("2024-01")
	if !added.Contains("2024-01") || removed.Contains("2024-01") {
		t.Fatal("Without mutated the receiver or did not remove")
	}
	if toggled := removed.Toggle("2024-02"); toggled.Len() != 0 {
		t.Fatalf("toggle: %v", toggled.Keys())
	}

	data, err := json.Marshal(NewPeriodSet("2024-03", "2023-11"))
	if err != nil || string(data) != `["2023-11","2024-03"]` {
		t.Fatalf("marshal %s err=%v", data, err)
	}
	var decoded PeriodSet
	if err := json.Unmarshal([]byte(`["2024-05"]`), &decoded); err != nil || !decoded.Contains("2024-05") {
		t.Fatalf("unmarshal %v err=%v", decoded.Keys(), err)
	}
}

func TestPurchaseValidate(t *testing.T) {
	good := Purchase{
		ID:               "p1",
		CardID:           "visa",
		Description:      "tv",
		Date:             NewCalendarDay(2024, time.March, 15),
		TotalAmount:      Cents(120000),
		InstallmentCount: 3,
		Kind:             KindCard,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	tests := []struct {
		name    string
		mutate  func(p *Purchase)
		wantErr error
	}{
		{"zero installments", func(p *Purchase) { p.InstallmentCount = 0 }, ErrInvalidInstallments},
		{"negative installments", func(p *Purchase) { p.InstallmentCount = -2 }, ErrInvalidInstallments},
		{"zero amount", func(p *Purchase) { p.TotalAmount = Cents(0) }, ErrInvalidAmount},
		{"bad date", func(p *Purchase) { p.Date = CalendarDay{} }, ErrInvalidDate},
		{"empty description", func(p *Purchase) { p.Description = " " }, ErrEmptyDescription},
		{"card without id", func(p *Purchase) { p.CardID = "" }, ErrMissingCard},
		{"unknown kind", func(p *Purchase) { p.Kind = "crypto" }, ErrInvalidKind},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := good
			tt.mutate(&p)
			err := p.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}
			if !IsValidation(err) {
				t.Fatalf("expected a ValidationError, got %T", err)
			}
		})
	}
}

func TestPurchaseValidateAmortization(t *testing.T) {
	p := Purchase{
		ID:               "p1",
		CardID:           "visa",
		Date:             NewCalendarDay(2024, time.March, 15),
		TotalAmount:      Cents(120000),
		InstallmentCount: 3,
	}
	if err := p.ValidateAmortization(); err != nil {
		t.Fatalf("empty description must not block amortization: %v", err)
	}
	if err := p.Validate(); !errors.Is(err, ErrEmptyDescription) {
		t.Fatalf("save path must still reject it, got %v", err)
	}
	p.InstallmentCount = 0
	if err := p.ValidateAmortization(); !errors.Is(err, ErrInvalidInstallments) {
		t.Fatalf("got %v, want %v", err, ErrInvalidInstallments)
	}
}

func TestPurchaseEffectiveKind(t *testing.T) {
	if k := (Purchase{}).EffectiveKind(); k != KindCash {
		t.Fatalf("no card: %s", k)
	}
	if k := (Purchase{CardID: "x"}).EffectiveKind(); k != KindCard {
		t.Fatalf("with card: %s", k)
	}
}

func TestServiceValidate(t *testing.T) {
	s := Service{Name: "Internet", Amount: Cents(3000), DueDay: 10, FrequencyMonths: 3, FirstDueMonth: "2024-01"}
	if err := s.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	s.FrequencyMonths = 4
	if err := s.Validate(); !errors.Is(err, ErrInvalidFrequency) {
		t.Fatalf("got %v", err)
	}
	s.FrequencyMonths = 0
	s.DueDay = 32
	if err := s.Validate(); !errors.Is(err, ErrInvalidDueDay) {
		t.Fatalf("got %v", err)
	}
}

func TestCardAdjustmentCopies(t *testing.T) {
	c := Card{ID: "visa", Name: "Visa", DueDay: 10}
	withAdj := c.WithAdjustment("2024-03", Cents(99900))
	if _, ok := c.Adjustment("2024-03"); ok {
		t.Fatal("original card mutated")
	}
	if v, ok := withAdj.Adjustment("2024-03"); !ok || v.Cents != 99900 {
		t.Fatalf("got %v %v", v, ok)
	}
	if _, ok := withAdj.WithoutAdjustment("2024-03").Adjustment("2024-03"); ok {
		t.Fatal("adjustment not removed")
	}
}

func TestPurchaseDraftFinalize(t *testing.T) {
	d := PurchaseDraft{
		CardID:           "visa",
		Description:      "laptop",
		Date:             NewCalendarDay(2024, time.March, 15),
		BaseAmount:       Cents(100000),
		SurchargePercent: 20,
		InstallmentCount: 3,
	}
	p, err := d.Finalize("p1")
	if err != nil {
		t.Fatal(err)
	}
	if p.TotalAmount.Cents != 120000 || p.Kind != KindCard {
		t.Fatalf("got %+v", p)
	}

	d.InstallmentCount = 0
	if _, err := d.Finalize("p2"); !errors.Is(err, ErrInvalidInstallments) {
		t.Fatalf("expected installment error, got %v", err)
	}
}

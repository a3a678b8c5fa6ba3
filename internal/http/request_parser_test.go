package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"bilancio/internal/core"
)

func TestParseMonthKey(t *testing.T) {
	tests := []struct {
		name    string
		query   url.Values
		want    core.MonthKey
		wantErr bool
	}{
		{"absent uses fallback", url.Values{}, "2024-03", false},
		{"valid", url.Values{"month": {"2025-12"}}, "2025-12", false},
		{"trimmed", url.Values{"month": {" 2025-01 "}}, "2025-01", false},
		{"month out of range", url.Values{"month": {"2025-13"}}, "", true},
		{"short form", url.Values{"month": {"2025-1"}}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMonthKey(tt.query, "month", "2024-03")
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !core.IsValidation(err) {
				t.Errorf("error %v is not a validation error", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseCalendarDay(t *testing.T) {
	fallback := core.NewCalendarDay(2024, 3, 2)

	got, err := ParseCalendarDay(url.Values{}, "from", fallback)
	if err != nil || got != fallback {
		t.Fatalf("absent: got %v, %v", got, err)
	}
	got, err = ParseCalendarDay(url.Values{"from": {"2024-02-29"}}, "from", fallback)
	if err != nil || got != core.NewCalendarDay(2024, 2, 29) {
		t.Fatalf("leap day: got %v, %v", got, err)
	}
	for _, v := range []string{"2023-02-29", "29/02/2024", "x"} {
		_, err := ParseCalendarDay(url.Values{"from": {v}}, "from", fallback)
		var ve *core.ValidationError
		if !errors.As(err, &ve) || ve.Field != "from" {
			t.Errorf("%q: error = %v", v, err)
		}
	}
}

func TestParseIntParam(t *testing.T) {
	tests := []struct {
		value   string
		want    int
		wantErr bool
	}{
		{"", 7, false},
		{"0", 0, false},
		{"12", 12, false},
		{"-1", 0, true},
		{"1.5", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseIntParam(url.Values{"n": {tt.value}}, "n", 7)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseIntParam(%q) = %d, %v", tt.value, got, err)
		}
	}
}

func TestParseHypothetical(t *testing.T) {
	hyp, err := ParseHypothetical(url.Values{})
	if err != nil || hyp != nil {
		t.Fatalf("no amount: %v, %v", hyp, err)
	}

	hyp, err = ParseHypothetical(url.Values{"amount": {"1.200,50"}})
	if err == nil {
		t.Errorf("thousands separators should be rejected, got %+v", hyp)
	}

	hyp, err = ParseHypothetical(url.Values{"amount": {"99,90"}, "installments": {"3"}, "card": {" c1 "}})
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	if hyp.Amount.Cents != 9990 || hyp.InstallmentCount != 3 || hyp.CardID != "c1" {
		t.Errorf("hyp = %+v", hyp)
	}

	hyp, err = ParseHypothetical(url.Values{"amount": {"10"}})
	if err != nil || hyp.InstallmentCount != 1 {
		t.Errorf("default installments: %+v, %v", hyp, err)
	}

	_, err = ParseHypothetical(url.Values{"amount": {"0"}})
	if !core.IsValidation(err) {
		t.Errorf("zero amount: error = %v", err)
	}
}

func TestDecodeJSON(t *testing.T) {
	type target struct {
		Name   string     `json:"name"`
		Amount core.Money `json:"amount"`
	}
	tests := []struct {
		name      string
		body      string
		wantBad   bool
		wantField string
	}{
		{"ok", `{"name":"x","amount":"12,50"}`, false, ""},
		{"unknown field", `{"nome":"x"}`, true, ""},
		{"two objects", `{"name":"x"}{"name":"y"}`, true, ""},
		{"not json", `name=x`, true, ""},
		{"bad amount", `{"amount":true}`, false, "amount"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var dst target
			err := decodeJSON(httptest.NewRecorder(), r, &dst)
			if got := errors.Is(err, errBadBody); got != tt.wantBad {
				t.Fatalf("bad body = %v (err %v), want %v", got, err, tt.wantBad)
			}
			var ve *core.ValidationError
			if tt.wantField != "" && (!errors.As(err, &ve) || ve.Field != tt.wantField) {
				t.Fatalf("error = %v, want validation on %s", err, tt.wantField)
			}
			if tt.name == "ok" && dst.Amount.Cents != 1250 {
				t.Errorf("amount = %d", dst.Amount.Cents)
			}
		})
	}
}

func TestSanitizeInputAndCacheKey(t *testing.T) {
	if got := sanitizeInput("  a\x00b\tc  "); got != "ab\tc" {
		t.Errorf("sanitizeInput = %q", got)
	}
	if got := cacheKey("rossi", "summary", "2024-03"); got != "rossi|summary|2024-03" {
		t.Errorf("cacheKey = %q", got)
	}
}

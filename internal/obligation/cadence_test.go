package obligation

import (
	"testing"

	"bilancio/internal/core"
)

func TestIsServiceActive(t *testing.T) {
	tests := []struct {
		name      string
		frequency int
		anchor    core.MonthKey
		target    core.MonthKey
		want      bool
	}{
		{"monthly always active", 1, "2024-01", "2023-06", true},
		{"unset frequency is monthly", 0, "", "2024-02", true},
		{"quarterly on anchor", 3, "2024-01", "2024-01", true},
		{"quarterly one month after", 3, "2024-01", "2024-02", false},
		{"quarterly two months after", 3, "2024-01", "2024-03", false},
		{"quarterly three months after", 3, "2024-01", "2024-04", true},
		{"quarterly six months after", 3, "2024-01", "2024-07", true},
		{"quarterly across year", 3, "2024-11", "2025-02", true},
		{"before anchor", 3, "2024-01", "2023-10", false},
		{"yearly", 12, "2023-05", "2024-05", true},
		{"yearly off month", 12, "2023-05", "2024-04", false},
		{"bimonthly", 2, "2024-01", "2024-03", true},
		{"no anchor is always active", 6, "", "2024-02", true},
		{"unknown frequency never active", 5, "2024-01", "2024-06", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := core.Service{
				ID:              "svc",
				Name:            "Service",
				Amount:          core.Cents(1000),
				DueDay:          10,
				FrequencyMonths: tt.frequency,
				FirstDueMonth:   tt.anchor,
			}
			if got := IsServiceActive(s, mustMonth(t, tt.target)); got != tt.want {
				t.Errorf("IsServiceActive() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetCadenceChecker(t *testing.T) {
	tests := []struct {
		name      string
		frequency int
		wantErr   bool
	}{
		{"unset", 0, false},
		{"monthly", 1, false},
		{"bimonthly", 2, false},
		{"quarterly", 3, false},
		{"half-yearly", 6, false},
		{"yearly", 12, false},
		{"unknown", 4, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker, err := GetCadenceChecker(tt.frequency)
			if (err != nil) != tt.wantErr {
				t.Errorf("GetCadenceChecker() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && checker == nil {
				t.Error("GetCadenceChecker() returned nil checker")
			}
		})
	}
}

func TestUnknownFrequencyNeverDue(t *testing.T) {
	svc := core.Service{ID: "gym", Name: "Gym", Amount: core.Cents(3000), DueDay: 10, FrequencyMonths: 4, FirstDueMonth: "2024-01"}
	if IsServiceActive(svc, mustMonth(t, "2024-05")) {
		t.Error("frequency 4 has no checker and must not be due")
	}
	s, err := BuildSummary(Input{Services: []core.Service{svc}}, "2024-05")
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Services) != 1 || s.Services[0].Active {
		t.Errorf("services %+v", s.Services)
	}
	if len(s.Issues) != 1 || s.Issues[0].ID != "gym" {
		t.Errorf("issues %+v", s.Issues)
	}
}

func TestCadenceStrategiesMatchValidFrequencies(t *testing.T) {
	for n := range cadenceStrategies {
		if !core.IsValidFrequency(n) {
			t.Errorf("checker for %d months is unreachable", n)
		}
	}
	for n := 1; n <= 12; n++ {
		if _, ok := cadenceStrategies[n]; core.IsValidFrequency(n) && !ok {
			t.Errorf("valid frequency %d has no checker", n)
		}
	}
}

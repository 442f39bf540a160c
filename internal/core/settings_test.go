package core

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestTimeframeMonths(t *testing.T) {
	tests := []struct {
		tf   Timeframe
		want int
	}{
		{Timeframe1Y, 12},
		{Timeframe5Y, 60},
		{Timeframe10Y, 120},
		{Timeframe20Y, 240},
	}
	for _, tt := range tests {
		got, err := tt.tf.Months()
		if err != nil || got != tt.want {
			t.Errorf("%s.Months() = %d, %v; want %d", tt.tf, got, err, tt.want)
		}
	}
	if _, err := Timeframe("3Y").Months(); !errors.Is(err, ErrInvalidTimeframe) {
		t.Errorf("expected ErrInvalidTimeframe, got %v", err)
	}
}

func TestBudgetGoalsRebalance(t *testing.T) {
	tests := []struct {
		name string
		in   BudgetGoals
		want BudgetGoals
	}{
		{"already 100", BudgetGoals{40, 30, 10, 20}, BudgetGoals{40, 30, 10, 20}},
		{"all zero", BudgetGoals{}, BudgetGoals{}},
		{"doubled", BudgetGoals{80, 60, 20, 40}, BudgetGoals{40, 30, 10, 20}},
		{"thirds", BudgetGoals{1, 1, 1, 0}, BudgetGoals{33, 33, 33, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.Rebalance()
			if got != tt.want {
				t.Errorf("Rebalance() = %+v, want %+v", got, tt.want)
			}
			if tt.in.Total() != 0 && got.Total() != 100 {
				t.Errorf("rebalanced total = %v", got.Total())
			}
		})
	}
}

func TestAppSettingsValidate(t *testing.T) {
	if err := DefaultSettings().Validate(); err != nil {
		t.Fatalf("default settings should validate: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*AppSettings)
	}{
		{"bad theme", func(s *AppSettings) { s.Theme = "neon" }},
		{"bad timeframe", func(s *AppSettings) { s.InvestmentProjectionTimeframe = "2Y" }},
		{"negative goal", func(s *AppSettings) { s.BudgetGoals.Leisure = -1 }},
		{"goal over 100", func(s *AppSettings) { s.BudgetGoals.Fixed = 101 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.mutate(&s)
			if err := s.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestDefaultSettingsShape(t *testing.T) {
	s := DefaultSettings()
	if s.InvestmentProjectionTimeframe != Timeframe5Y || !s.PredictContributions {
		t.Errorf("unexpected projection defaults: %+v", s)
	}
	if s.BudgetGoals.Total() != 100 {
		t.Errorf("default goals sum to %v", s.BudgetGoals.Total())
	}
	if len(s.Categories.Expense.Investment) == 0 || len(s.Categories.Income.Investment) == 0 {
		t.Error("investment categories must not be empty")
	}

	data, err := json.Marshal(DefaultPreferences())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := raw["settings"]["categories"]; !ok {
		t.Errorf("categories missing from %s", data)
	}
}

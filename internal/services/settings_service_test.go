package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"financas/internal/core"
	"financas/internal/storage/memory"
)

func TestSettingsService_LoadDefaults(t *testing.T) {
	svc := NewSettingsService(memory.New())
	p, err := svc.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if p.Settings.InvestmentProjectionTimeframe != core.Timeframe5Y || !p.Settings.PredictContributions {
		t.Errorf("unexpected defaults: %+v", p.Settings)
	}
}

func TestSettingsService_SaveAndPatch(t *testing.T) {
	ctx := context.Background()
	svc := NewSettingsService(memory.New())

	p := core.DefaultPreferences()
	p.Settings.Title = "Casa"
	p.Layouts = json.RawMessage(`{"lg":[{"i":"summary","x":0}]}`)
	p.CardColors["summary"] = "#123456"
	if err := svc.Save(ctx, p); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	s, err := svc.UpdateProjection(ctx, core.Timeframe20Y, false)
	if err != nil {
		t.Fatalf("UpdateProjection() error = %v", err)
	}
	if s.InvestmentProjectionTimeframe != core.Timeframe20Y || s.PredictContributions {
		t.Errorf("projection fields not patched: %+v", s)
	}

	got, err := svc.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got.Settings.Title != "Casa" || got.CardColors["summary"] != "#123456" || len(got.Layouts) == 0 {
		t.Errorf("patch clobbered other fields: %+v", got)
	}
}

func TestSettingsService_Validation(t *testing.T) {
	ctx := context.Background()
	svc := NewSettingsService(memory.New())

	if _, err := svc.UpdateProjection(ctx, core.Timeframe("3Y"), true); !errors.Is(err, core.ErrInvalidTimeframe) {
		t.Errorf("expected ErrInvalidTimeframe, got %v", err)
	}

	p := core.DefaultPreferences()
	p.Settings.BudgetGoals.Fixed = 140
	if err := svc.Save(ctx, p); err == nil {
		t.Error("expected validation error for a goal above 100")
	}
}

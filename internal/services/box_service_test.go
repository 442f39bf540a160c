package services

import (
	"context"
	"errors"
	"testing"

	"financas/internal/core"
	"financas/internal/storage"
	"financas/internal/storage/memory"
)

func TestBoxService_CRUD(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := NewBoxService(store)
	changes := 0
	svc.OnChange(func() { changes++ })

	rate := 12.0
	box, err := svc.Create(ctx, core.InvestmentBox{ID: "ignored", Name: "Reserva", InterestRate: &rate})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if box.ID == "" || box.ID == "ignored" {
		t.Errorf("id = %q", box.ID)
	}

	box.Name = "Reserva de emergência"
	if err := svc.Update(ctx, box); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	got, err := svc.Get(ctx, box.ID)
	if err != nil || got.Name != "Reserva de emergência" {
		t.Fatalf("Get() = %+v, %v", got, err)
	}

	contribution := core.Transaction{
		Description: "Aporte", Amount: core.Money{Cents: 10000}, Type: core.Expense,
		Category: "Caixinha", ExpenseType: core.ExpenseInvestment,
		Date: core.NewDate(2025, 3, 1), InvestmentBoxID: box.ID,
	}
	if _, err := store.CreateTransactions(ctx, []core.Transaction{contribution}); err != nil {
		t.Fatal(err)
	}

	if err := svc.Delete(ctx, box.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	txs, _ := store.ListTransactions(ctx)
	if len(txs) != 1 || txs[0].InvestmentBoxID != box.ID {
		t.Error("deleting a box must leave its transactions in place")
	}
	if _, err := svc.Get(ctx, box.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if changes != 3 {
		t.Errorf("OnChange called %d times, want 3", changes)
	}
}

func TestBoxService_Validation(t *testing.T) {
	svc := NewBoxService(memory.New())
	negative := -1.0

	tests := []struct {
		name string
		box  core.InvestmentBox
		want error
	}{
		{"empty name", core.InvestmentBox{Name: "  "}, core.ErrEmptyName},
		{"negative rate", core.InvestmentBox{Name: "x", InterestRate: &negative}, core.ErrInvalidRate},
		{"negative target", core.InvestmentBox{Name: "x", TargetAmount: core.Money{Cents: -1}}, core.ErrInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Create(context.Background(), tt.box); !errors.Is(err, tt.want) {
				t.Errorf("Create() error = %v, want %v", err, tt.want)
			}
		})
	}
}

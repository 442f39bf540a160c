package projection

import (
	"errors"
	"math"
	"testing"

	"financas/internal/core"
)

func TestBoxBalances(t *testing.T) {
	today := core.NewDate(2025, 6, 15)
	boxes := []core.InvestmentBox{
		{ID: "cdb", Name: "CDB", InterestRate: rate(12), TargetAmount: core.Money{Cents: 200000}},
		{ID: "unset", Name: "Sem taxa", TargetAmount: core.Money{Cents: 10000}},
		{ID: "empty", Name: "Vazia"},
	}
	txs := []core.Transaction{
		contribution("1", "cdb", 100000, today.AddDays(-365)),
		contribution("2", "unset", 50000, core.NewDate(2024, 1, 1)),
		{ID: "3", Type: core.Expense, ExpenseType: core.ExpenseFixed, Amount: core.Money{Cents: 1}, Date: today},
	}

	got, err := BoxBalances(txs, boxes, today)
	if err != nil {
		t.Fatalf("BoxBalances: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d balances", len(got))
	}

	cdb := got[0]
	approx(t, "cdb patrimony", cdb.Patrimony, 1120, 1)
	approx(t, "cdb profit", cdb.Profit, 120, 1)
	approx(t, "cdb progress", cdb.Progress, cdb.Patrimony/2000*100, 1e-9)

	unset := got[1]
	if unset.Patrimony != 500 || unset.Profit != 0 {
		t.Errorf("unset rate should not earn interest: %+v", unset)
	}
	if unset.Progress != 100 {
		t.Errorf("progress should cap at 100, got %v", unset.Progress)
	}

	if e := got[2]; e.Patrimony != 0 || e.Progress != 0 {
		t.Errorf("empty box = %+v", e)
	}
}

func TestBoxBalancesRejectsNonFiniteRate(t *testing.T) {
	boxes := []core.InvestmentBox{{ID: "b", Name: "B", InterestRate: rate(math.NaN())}}
	if _, err := BoxBalances(nil, boxes, core.NewDate(2025, 1, 1)); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

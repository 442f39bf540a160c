package core

import "testing"

func tx(typ TransactionType, cents int64, date Date, opts ...func(*Transaction)) Transaction {
	t := Transaction{Description: "t", Category: "c", Type: typ, Amount: Money{Cents: cents}, Date: date}
	for _, o := range opts {
		o(&t)
	}
	return t
}

func withExpenseType(et ExpenseType) func(*Transaction) {
	return func(t *Transaction) { t.ExpenseType = et }
}

func withCategory(c string) func(*Transaction) {
	return func(t *Transaction) { t.Category = c }
}

func withDue(d Date, paid bool) func(*Transaction) {
	return func(t *Transaction) { t.DueDate = d; t.Paid = paid }
}

func TestSummarizeMonth(t *testing.T) {
	month := NewDate(2025, 3, 1)
	txs := []Transaction{
		tx(Income, 500000, NewDate(2025, 3, 5)),
		tx(Income, 20000, NewDate(2025, 3, 6), func(t *Transaction) { t.IncomeType = IncomeInvestment }),
		tx(Expense, 150000, NewDate(2025, 3, 10), withExpenseType(ExpenseFixed), withCategory("Aluguel"), withDue(NewDate(2025, 3, 10), true)),
		tx(Expense, 30000, NewDate(2025, 3, 11), withExpenseType(ExpenseVariable), withCategory("Supermercado")),
		tx(Expense, 100000, NewDate(2025, 3, 12), withExpenseType(ExpenseInvestment), withCategory("Ações")),
		tx(Expense, 99999, NewDate(2025, 4, 1), withExpenseType(ExpenseFixed)),
	}

	s := SummarizeMonth(txs, month)
	if s.Income.Cents != 520000 {
		t.Errorf("income = %d", s.Income.Cents)
	}
	if s.Expenses.Cents != 180000 {
		t.Errorf("expenses = %d", s.Expenses.Cents)
	}
	if s.Invested.Cents != 100000 || s.Redeemed.Cents != 20000 || s.InvestedNet.Cents != 80000 {
		t.Errorf("investment totals = %+v", s)
	}
	if s.Balance.Cents != 520000-280000 {
		t.Errorf("balance = %d", s.Balance.Cents)
	}
	if s.Paid.Cents != 150000 {
		t.Errorf("paid = %d", s.Paid.Cents)
	}
	if len(s.ByCategory) != 2 || s.ByCategory[0].Name != "Aluguel" {
		t.Errorf("byCategory = %+v", s.ByCategory)
	}
}

func TestBillsFor(t *testing.T) {
	month := NewDate(2025, 3, 1)
	today := NewDate(2025, 3, 15)
	txs := []Transaction{
		tx(Expense, 100, NewDate(2025, 3, 1), withDue(NewDate(2025, 3, 10), false)),
		tx(Expense, 200, NewDate(2025, 3, 1), withDue(NewDate(2025, 3, 25), false)),
		tx(Expense, 300, NewDate(2025, 3, 1), withDue(NewDate(2025, 3, 15), false)),
		tx(Expense, 400, NewDate(2025, 3, 1), withDue(NewDate(2025, 3, 5), true)),
		tx(Expense, 500, NewDate(2025, 3, 1)),
		tx(Expense, 600, NewDate(2025, 2, 1), withDue(NewDate(2025, 2, 5), false)),
	}

	b := BillsFor(txs, month, today)
	if len(b.Overdue) != 1 || b.Overdue[0].Amount.Cents != 100 {
		t.Errorf("overdue = %+v", b.Overdue)
	}
	if len(b.Upcoming) != 2 || b.Upcoming[0].Amount.Cents != 300 || b.Upcoming[1].Amount.Cents != 200 {
		t.Errorf("upcoming = %+v", b.Upcoming)
	}
}

func TestBudget(t *testing.T) {
	month := NewDate(2025, 3, 1)
	goals := BudgetGoals{Fixed: 40, Variable: 30, Leisure: 10, Investment: 20}

	empty := Budget(nil, month, goals)
	if len(empty.Lines) != 0 || empty.Total.Cents != 0 {
		t.Fatalf("expected empty report, got %+v", empty)
	}

	txs := []Transaction{
		tx(Expense, 5000, NewDate(2025, 3, 1), withExpenseType(ExpenseFixed)),
		tx(Expense, 2500, NewDate(2025, 3, 2), withExpenseType(ExpenseLeisure)),
		tx(Expense, 2500, NewDate(2025, 3, 3), withExpenseType(ExpenseInvestment)),
		tx(Expense, 9999, NewDate(2025, 3, 3)),
	}
	r := Budget(txs, month, goals)
	if r.Total.Cents != 10000 {
		t.Fatalf("total = %d", r.Total.Cents)
	}
	want := map[ExpenseType]struct {
		pct  float64
		over bool
	}{
		ExpenseFixed:      {50, true},
		ExpenseVariable:   {0, false},
		ExpenseLeisure:    {25, true},
		ExpenseInvestment: {25, true},
	}
	for _, line := range r.Lines {
		w := want[line.Type]
		if line.Percentage != w.pct || line.OverBudget != w.over {
			t.Errorf("%s: got %v%% over=%v, want %v%% over=%v", line.Type, line.Percentage, line.OverBudget, w.pct, w.over)
		}
	}
}

func TestMonthlyTotals(t *testing.T) {
	txs := []Transaction{
		tx(Expense, 100, NewDate(2025, 2, 1)),
		tx(Income, 300, NewDate(2024, 12, 1)),
		tx(Income, 50, NewDate(2025, 2, 9)),
	}
	got := MonthlyTotals(txs)
	if len(got) != 2 {
		t.Fatalf("got %d months", len(got))
	}
	if got[0].Year != 2024 || got[0].Income.Cents != 300 {
		t.Errorf("first = %+v", got[0])
	}
	if got[1].Month != 2 || got[1].Expense.Cents != 100 || got[1].Income.Cents != 50 {
		t.Errorf("second = %+v", got[1])
	}
}

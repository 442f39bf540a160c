package core

import (
	"slices"
	"strings"
)

type CategoryAmount struct {
	Name   string `json:"name"`
	Amount Money  `json:"amount"`
}

// MonthSummary aggregates one calendar month of transactions.
type MonthSummary struct {
	Year        int              `json:"year"`
	Month       int              `json:"month"`
	Income      Money            `json:"income"`
	Expenses    Money            `json:"expenses"`
	Invested    Money            `json:"invested"`
	Redeemed    Money            `json:"redeemed"`
	InvestedNet Money            `json:"investedNet"`
	Balance     Money            `json:"balance"`
	Paid        Money            `json:"paid"`
	ByCategory  []CategoryAmount `json:"byCategory"`
}

type Bills struct {
	Overdue  []Transaction `json:"overdue"`
	Upcoming []Transaction `json:"upcoming"`
}

type BudgetLine struct {
	Type       ExpenseType `json:"type"`
	Amount     Money       `json:"amount"`
	Percentage float64     `json:"percentage"`
	Goal       float64     `json:"goal"`
	OverBudget bool        `json:"overBudget"`
}

type BudgetReport struct {
	Total Money        `json:"total"`
	Lines []BudgetLine `json:"lines"`
}

type MonthTotals struct {
	Year    int   `json:"year"`
	Month   int   `json:"month"`
	Income  Money `json:"income"`
	Expense Money `json:"expense"`
}

// InMonth returns the transactions dated in month's calendar month.
func InMonth(txs []Transaction, month Date) []Transaction {
	var out []Transaction
	for _, t := range txs {
		if t.Date.SameMonth(month) {
			out = append(out, t)
		}
	}
	return out
}

// SummarizeMonth computes the month's totals. Investment contributions count
// against the balance but not against expenses.
func SummarizeMonth(txs []Transaction, month Date) MonthSummary {
	s := MonthSummary{Year: month.Year(), Month: int(month.Month())}
	byCategory := map[string]int64{}

	for _, t := range InMonth(txs, month) {
		switch t.Type {
		case Income:
			s.Income.Cents += t.Amount.Cents
			if t.IncomeType == IncomeInvestment {
				s.Redeemed.Cents += t.Amount.Cents
			}
		case Expense:
			if t.ExpenseType == ExpenseInvestment {
				s.Invested.Cents += t.Amount.Cents
			} else {
				s.Expenses.Cents += t.Amount.Cents
				byCategory[t.Category] += t.Amount.Cents
			}
			if t.Paid {
				s.Paid.Cents += t.Amount.Cents
			}
		}
	}

	s.InvestedNet.Cents = s.Invested.Cents - s.Redeemed.Cents
	s.Balance.Cents = s.Income.Cents - (s.Expenses.Cents + s.Invested.Cents)

	for name, cents := range byCategory {
		s.ByCategory = append(s.ByCategory, CategoryAmount{Name: name, Amount: Money{Cents: cents}})
	}
	slices.SortFunc(s.ByCategory, func(a, b CategoryAmount) int {
		if a.Amount.Cents != b.Amount.Cents {
			if a.Amount.Cents > b.Amount.Cents {
				return -1
			}
			return 1
		}
		return strings.Compare(a.Name, b.Name)
	})
	return s
}

// BillsFor splits the month's unpaid expenses with a due date into overdue
// and upcoming relative to today.
func BillsFor(txs []Transaction, month, today Date) Bills {
	b := Bills{Overdue: []Transaction{}, Upcoming: []Transaction{}}
	for _, t := range InMonth(txs, month) {
		if t.Type != Expense || t.DueDate.IsEmpty() || t.Paid {
			continue
		}
		if t.DueDate.Before(today.Time) {
			b.Overdue = append(b.Overdue, t)
		} else {
			b.Upcoming = append(b.Upcoming, t)
		}
	}
	slices.SortStableFunc(b.Upcoming, func(x, y Transaction) int {
		return x.DueDate.Compare(y.DueDate.Time)
	})
	return b
}

// Budget compares the month's share of spending per expense type against goals.
func Budget(txs []Transaction, month Date, goals BudgetGoals) BudgetReport {
	totals := map[ExpenseType]int64{}
	var report BudgetReport
	for _, t := range InMonth(txs, month) {
		if t.Type != Expense || t.ExpenseType == "" {
			continue
		}
		totals[t.ExpenseType] += t.Amount.Cents
		report.Total.Cents += t.Amount.Cents
	}
	if report.Total.Cents == 0 {
		report.Lines = []BudgetLine{}
		return report
	}
	for _, et := range []ExpenseType{ExpenseFixed, ExpenseVariable, ExpenseLeisure, ExpenseInvestment} {
		pct := float64(totals[et]) / float64(report.Total.Cents) * 100
		goal := goals.Goal(et)
		report.Lines = append(report.Lines, BudgetLine{
			Type:       et,
			Amount:     Money{Cents: totals[et]},
			Percentage: pct,
			Goal:       goal,
			OverBudget: pct > goal,
		})
	}
	return report
}

// MonthlyTotals groups income and expense totals by calendar month, oldest first.
func MonthlyTotals(txs []Transaction) []MonthTotals {
	idx := map[[2]int]*MonthTotals{}
	for _, t := range txs {
		key := [2]int{t.Date.Year(), int(t.Date.Month())}
		mt, ok := idx[key]
		if !ok {
			mt = &MonthTotals{Year: key[0], Month: key[1]}
			idx[key] = mt
		}
		switch t.Type {
		case Income:
			mt.Income.Cents += t.Amount.Cents
		case Expense:
			mt.Expense.Cents += t.Amount.Cents
		}
	}
	out := make([]MonthTotals, 0, len(idx))
	for _, mt := range idx {
		out = append(out, *mt)
	}
	slices.SortFunc(out, func(a, b MonthTotals) int {
		if a.Year != b.Year {
			return a.Year - b.Year
		}
		return a.Month - b.Month
	})
	return out
}

package sheets

import (
	"context"
	"slices"
	"strings"

	"financas/internal/core"
)

// MonthExporter mirrors a calendar month of transactions into an external
// spreadsheet. Every call replaces whatever the month held before.
type MonthExporter interface {
	ExportMonth(ctx context.Context, month core.Date, txs []core.Transaction) error
}

// Header is the first row of every exported tab.
var Header = []any{"Data", "Descrição", "Tipo", "Categoria", "Subtipo", "Valor", "Vencimento", "Pago", "Caixinha", "ID"}

// Columns is the A1 column span matching Header.
const Columns = "A:J"

// Row renders a transaction as one spreadsheet row. Amounts are signed:
// expenses positive, incomes negative.
func Row(t core.Transaction) []any {
	subtype := string(t.ExpenseType)
	if t.Type == core.Income {
		subtype = string(t.IncomeType)
	}
	paid := "não"
	if t.Paid {
		paid = "sim"
	}
	return []any{
		t.Date.String(),
		t.Description,
		string(t.Type),
		t.Category,
		subtype,
		t.Flow(),
		t.DueDate.String(),
		paid,
		t.InvestmentBoxID,
		t.ID,
	}
}

// MonthRows renders txs ordered by date, then description.
func MonthRows(txs []core.Transaction) [][]any {
	sorted := slices.Clone(txs)
	slices.SortStableFunc(sorted, func(a, b core.Transaction) int {
		if c := a.Date.Compare(b.Date.Time); c != 0 {
			return c
		}
		return strings.Compare(a.Description, b.Description)
	})
	rows := make([][]any, 0, len(sorted))
	for _, t := range sorted {
		rows = append(rows, Row(t))
	}
	return rows
}

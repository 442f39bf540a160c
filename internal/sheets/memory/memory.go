// Package memory keeps exported months in process, for tests and local runs
// without a spreadsheet.
package memory

import (
	"context"
	"slices"
	"sync"

	"financas/internal/core"
	"financas/internal/sheets"
)

type Exporter struct {
	mu      sync.Mutex
	months  map[string][][]any
	exports int
	failure error
}

var _ sheets.MonthExporter = (*Exporter)(nil)

func New() *Exporter {
	return &Exporter{months: make(map[string][][]any)}
}

func key(month core.Date) string { return month.Format("2006-01") }

func (e *Exporter) ExportMonth(ctx context.Context, month core.Date, txs []core.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.failure != nil {
		return e.failure
	}
	e.exports++
	e.months[key(month)] = sheets.MonthRows(txs)
	return nil
}

// Rows returns the rows last exported for month.
func (e *Exporter) Rows(month core.Date) [][]any {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.months[key(month)])
}

// Exports counts successful ExportMonth calls.
func (e *Exporter) Exports() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.exports
}

// FailWith makes every later export return err. Nil clears it.
func (e *Exporter) FailWith(err error) {
	e.mu.Lock()
	e.failure = err
	e.mu.Unlock()
}

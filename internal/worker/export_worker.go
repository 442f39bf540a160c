package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"financas/internal/amqp"
	"financas/internal/core"
	applog "financas/internal/log"
	"financas/internal/sheets"
)

type (
	// MonthSource reads a month of transactions from persistence.
	MonthSource interface {
		ListTransactionsInMonth(ctx context.Context, month core.Date) ([]core.Transaction, error)
	}

	// Consumer delivers change events until ctx is cancelled.
	Consumer interface {
		Consume(ctx context.Context, handler amqp.Handler) error
	}
)

// ExportWorker mirrors changed months into a spreadsheet.
type ExportWorker struct {
	source   MonthSource
	exporter sheets.MonthExporter
	today    func() core.Date
	interval time.Duration
	logger   *applog.Logger
	exports  metric.Int64Counter
}

// NewExportWorker builds a worker. A zero interval disables the periodic
// re-export of the current month.
func NewExportWorker(source MonthSource, exporter sheets.MonthExporter, today func() core.Date, interval time.Duration) *ExportWorker {
	exports, _ := otel.Meter("financas/worker").Int64Counter(
		"financas_sheet_exports_total",
		metric.WithDescription("Month exports by outcome"),
	)
	return &ExportWorker{
		source:   source,
		exporter: exporter,
		today:    today,
		interval: interval,
		logger:   applog.FromContext(context.Background()).WithComponent(applog.ComponentWorker),
		exports:  exports,
	}
}

// ExportMonth reloads the month containing month and exports it.
func (w *ExportWorker) ExportMonth(ctx context.Context, month core.Date) error {
	month = core.MonthOf(month)
	txs, err := w.source.ListTransactionsInMonth(ctx, month)
	if err != nil {
		w.record(ctx, false)
		return fmt.Errorf("list month %s: %w", month.Format("2006-01"), err)
	}
	if err := w.exporter.ExportMonth(ctx, month, txs); err != nil {
		w.record(ctx, false)
		return fmt.Errorf("export month %s: %w", month.Format("2006-01"), err)
	}
	w.record(ctx, true)
	w.logger.InfoContext(ctx, "Month exported", applog.FieldMonth, month.Format("2006-01"), applog.FieldCount, len(txs))
	return nil
}

// Handle exports every month a change event touched. The error joins every
// failed month so the delivery is requeued.
func (w *ExportWorker) Handle(ctx context.Context, msg *amqp.TransactionsChangedMessage) error {
	w.logger.InfoContext(ctx, "Processing change event", applog.FieldOperation, string(msg.Op), applog.FieldCount, len(msg.IDs), "months", msg.Months)
	months, err := msg.MonthDates()
	if err != nil {
		return err
	}
	var errs []error
	for _, month := range months {
		if err := w.ExportMonth(ctx, month); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Run re-exports the current month, then consumes events until ctx ends.
func (w *ExportWorker) Run(ctx context.Context, consumer Consumer) error {
	if err := w.ExportMonth(ctx, w.today()); err != nil {
		w.logger.ErrorContext(ctx, "Startup export failed", applog.FieldError, err)
	}

	if w.interval > 0 {
		go w.periodic(ctx)
	}

	err := consumer.Consume(ctx, w.Handle)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (w *ExportWorker) periodic(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.ExportMonth(ctx, w.today()); err != nil {
				w.logger.ErrorContext(ctx, "Periodic export failed", applog.FieldError, err)
			}
		}
	}
}

func (w *ExportWorker) record(ctx context.Context, ok bool) {
	if w.exports == nil {
		return
	}
	w.exports.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", ok)))
}

package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"financas/internal/amqp"
	"financas/internal/core"
	"financas/internal/sheets/memory"
	storemem "financas/internal/storage/memory"
)

func today() core.Date { return core.NewDate(2025, 3, 10) }

func seed(t *testing.T) *storemem.Store {
	t.Helper()
	store := storemem.New()
	_, err := store.CreateTransactions(context.Background(), []core.Transaction{
		{Description: "Luz", Amount: core.Money{Cents: 20000}, Type: core.Expense, Category: "Luz", Date: core.NewDate(2025, 3, 5)},
		{Description: "Aluguel", Amount: core.Money{Cents: 150000}, Type: core.Expense, Category: "Aluguel", Date: core.NewDate(2025, 4, 5)},
		{Description: "Salário", Amount: core.Money{Cents: 500000}, Type: core.Income, Category: "Salário Fixo", Date: core.NewDate(2025, 4, 1)},
	})
	if err != nil {
		t.Fatal(err)
	}
	return store
}

// fakeConsumer hands its messages to the handler, then blocks until ctx ends.
type fakeConsumer struct {
	messages []*amqp.TransactionsChangedMessage
	errs     []error
}

func (f *fakeConsumer) Consume(ctx context.Context, handler amqp.Handler) error {
	for _, m := range f.messages {
		f.errs = append(f.errs, handler(ctx, m))
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestExportWorker_Handle(t *testing.T) {
	exporter := memory.New()
	w := NewExportWorker(seed(t), exporter, today, 0)

	msg := amqp.NewTransactionsChangedMessage(amqp.OpCreated, []string{"x"}, core.NewDate(2025, 3, 5), core.NewDate(2025, 4, 20))
	if err := w.Handle(context.Background(), msg); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	if got := len(exporter.Rows(core.NewDate(2025, 3, 1))); got != 1 {
		t.Errorf("march rows = %d, want 1", got)
	}
	if got := len(exporter.Rows(core.NewDate(2025, 4, 1))); got != 2 {
		t.Errorf("april rows = %d, want 2", got)
	}
	if exporter.Exports() != 2 {
		t.Errorf("exports = %d, want 2", exporter.Exports())
	}
}

func TestExportWorker_HandleFailureRequeues(t *testing.T) {
	exporter := memory.New()
	boom := errors.New("quota exceeded")
	exporter.FailWith(boom)
	w := NewExportWorker(seed(t), exporter, today, 0)

	msg := amqp.NewTransactionsChangedMessage(amqp.OpDeleted, nil, core.NewDate(2025, 3, 5))
	if err := w.Handle(context.Background(), msg); !errors.Is(err, boom) {
		t.Fatalf("expected export failure, got %v", err)
	}
}

func TestExportWorker_HandleMalformedMonth(t *testing.T) {
	w := NewExportWorker(seed(t), memory.New(), today, 0)
	msg := &amqp.TransactionsChangedMessage{Op: amqp.OpUpdated, Months: []string{"march"}}
	if err := w.Handle(context.Background(), msg); !errors.Is(err, amqp.ErrMalformedMessage) {
		t.Fatalf("expected ErrMalformedMessage, got %v", err)
	}
}

func TestExportWorker_RunExportsCurrentMonthFirst(t *testing.T) {
	exporter := memory.New()
	w := NewExportWorker(seed(t), exporter, today, 0)
	consumer := &fakeConsumer{messages: []*amqp.TransactionsChangedMessage{
		amqp.NewTransactionsChangedMessage(amqp.OpPaid, []string{"y"}, core.NewDate(2025, 4, 5)),
	}}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := w.Run(ctx, consumer); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run() error = %v", err)
	}

	if got := len(exporter.Rows(core.NewDate(2025, 3, 1))); got != 1 {
		t.Errorf("startup export missing: march rows = %d", got)
	}
	if got := len(exporter.Rows(core.NewDate(2025, 4, 1))); got != 2 {
		t.Errorf("event export missing: april rows = %d", got)
	}
	if len(consumer.errs) != 1 || consumer.errs[0] != nil {
		t.Errorf("handler results = %v", consumer.errs)
	}
}

func TestExportWorker_RunReturnsNilOnCancel(t *testing.T) {
	w := NewExportWorker(seed(t), memory.New(), today, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := w.Run(ctx, &fakeConsumer{}); err != nil {
		t.Fatalf("Run() after cancel = %v, want nil", err)
	}
}

func TestExportWorker_Periodic(t *testing.T) {
	exporter := memory.New()
	w := NewExportWorker(seed(t), exporter, today, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_ = w.Run(ctx, &fakeConsumer{})

	if exporter.Exports() < 2 {
		t.Errorf("expected periodic re-exports, got %d exports", exporter.Exports())
	}
}

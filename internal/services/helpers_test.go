package services

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"financas/internal/amqp"
	"financas/internal/core"
)

var saoPaulo = func() *time.Location {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		return time.FixedZone("BRT", -3*60*60)
	}
	return loc
}()

// march10 is 2025-03-10 09:00 in São Paulo.
var march10 = time.Date(2025, 3, 10, 9, 0, 0, 0, saoPaulo)

type fakePublisher struct {
	mu   sync.Mutex
	msgs []*amqp.TransactionsChangedMessage
	err  error
}

func (f *fakePublisher) PublishTransactionsChanged(_ context.Context, msg *amqp.TransactionsChangedMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msg)
	return f.err
}

func (f *fakePublisher) last(t *testing.T) *amqp.TransactionsChangedMessage {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.msgs) == 0 {
		t.Fatal("no message published")
	}
	return f.msgs[len(f.msgs)-1]
}

type fakeFiles struct {
	uploaded []string
	deleted  []string
	failUp   bool
}

func (f *fakeFiles) Upload(_ context.Context, filename string, r io.Reader) (string, error) {
	if f.failUp {
		return "", errors.New("bucket unavailable")
	}
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	url := "http://localhost/attachments/" + filename
	f.uploaded = append(f.uploaded, url)
	return url, nil
}

func (f *fakeFiles) Delete(_ context.Context, url string) error {
	f.deleted = append(f.deleted, url)
	return nil
}

func expense(desc string, cents int64, d core.Date) core.Transaction {
	return core.Transaction{
		Description: desc,
		Amount:      core.Money{Cents: cents},
		Type:        core.Expense,
		Category:    "Aluguel",
		ExpenseType: core.ExpenseFixed,
		Date:        d,
	}
}

func income(desc string, cents int64, d core.Date) core.Transaction {
	return core.Transaction{
		Description: desc,
		Amount:      core.Money{Cents: cents},
		Type:        core.Income,
		Category:    "Salário Fixo",
		IncomeType:  core.IncomeFixed,
		Date:        d,
	}
}

func sameDay(a, b core.Date) bool {
	return a.Format(time.DateOnly) == b.Format(time.DateOnly)
}

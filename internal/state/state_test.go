package state

import (
	"context"
	"errors"
	"testing"

	"financas/internal/core"
	"financas/internal/storage/memory"
)

func seeded(t *testing.T) (*memory.Store, core.Transaction) {
	t.Helper()
	store := memory.New()
	created, err := store.CreateTransactions(context.Background(), []core.Transaction{{
		Description: "Luz",
		Amount:      core.Money{Cents: 20000},
		Type:        core.Expense,
		Category:    "Luz",
		ExpenseType: core.ExpenseFixed,
		Date:        core.NewDate(2025, 3, 5),
		DueDate:     core.NewDate(2025, 3, 5),
	}})
	if err != nil {
		t.Fatal(err)
	}
	return store, created[0]
}

func TestStore_LoadAndSnapshot(t *testing.T) {
	store, tx := seeded(t)
	s := New(store)

	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	snap := s.Snapshot()
	if snap.Version != 1 || len(snap.Transactions) != 1 || snap.Transactions[0].ID != tx.ID {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if snap.Preferences.Settings.Title == "" {
		t.Error("missing preferences should fall back to defaults")
	}

	snap.Transactions[0].Description = "mutated"
	snap.Preferences.Settings.Categories.Expense.Fixed[0] = "mutated"
	again := s.Snapshot()
	if again.Transactions[0].Description != "Luz" || again.Preferences.Settings.Categories.Expense.Fixed[0] == "mutated" {
		t.Error("Snapshot must return a deep copy")
	}
}

func TestStore_OptimisticCommit(t *testing.T) {
	store, tx := seeded(t)
	s := New(store)
	ctx := context.Background()
	if err := s.Load(ctx); err != nil {
		t.Fatal(err)
	}

	var sawPaidBeforeCommit bool
	err := s.TogglePaid(ctx, tx.ID, true, func(ctx context.Context, id string, paid bool) error {
		sawPaidBeforeCommit = s.Snapshot().Transactions[0].Paid
		return store.SetPaid(ctx, id, paid)
	})
	if err != nil {
		t.Fatalf("TogglePaid() error = %v", err)
	}
	if !sawPaidBeforeCommit {
		t.Error("local state should change before the commit runs")
	}
	if !s.Snapshot().Transactions[0].Paid {
		t.Error("paid flag should stick after a successful commit")
	}
}

func TestStore_OptimisticRollback(t *testing.T) {
	store, tx := seeded(t)
	s := New(store)
	ctx := context.Background()
	if err := s.Load(ctx); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("network down")
	err := s.TogglePaid(ctx, tx.ID, true, func(context.Context, string, bool) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected commit error, got %v", err)
	}
	snap := s.Snapshot()
	if snap.Transactions[0].Paid {
		t.Error("failed commit should be reconciled from persistence")
	}
	if snap.Version != 3 {
		t.Errorf("version = %d, want 3 (load, optimistic, reload)", snap.Version)
	}
}

func TestStore_Subscribe(t *testing.T) {
	store, _ := seeded(t)
	s := New(store)
	ctx := context.Background()

	ch, cancel := s.Subscribe(1)
	if err := s.Load(ctx); err != nil {
		t.Fatal(err)
	}
	// the second notification is dropped: the buffer holds one
	if err := s.Load(ctx); err != nil {
		t.Fatal(err)
	}

	if v := <-ch; v != 1 {
		t.Errorf("first notification = %d, want 1", v)
	}
	select {
	case v := <-ch:
		t.Errorf("unexpected notification %d", v)
	default:
	}

	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after cancel")
	}
	if err := s.Load(ctx); err != nil {
		t.Fatal(err)
	}
}

type brokenLoader struct{ *memory.Store }

func (brokenLoader) ListBoxes(context.Context) ([]core.InvestmentBox, error) {
	return nil, errors.New("timeout")
}

func TestStore_LoadError(t *testing.T) {
	s := New(brokenLoader{memory.New()})
	if err := s.Load(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if s.Snapshot().Version != 0 {
		t.Error("failed load must not replace the snapshot")
	}
}

// gatedLoader reads transactions immediately but holds the result until the
// test closes the gate queued for that call.
type gatedLoader struct {
	*memory.Store
	gates   chan chan struct{}
	entered chan struct{}
}

func (l *gatedLoader) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	gate := <-l.gates
	txs, err := l.Store.ListTransactions(ctx)
	l.entered <- struct{}{}
	<-gate
	return txs, err
}

func (l *gatedLoader) start(s *Store) (release func(), done <-chan error) {
	gate := make(chan struct{})
	l.gates <- gate
	errc := make(chan error, 1)
	go func() { errc <- s.Load(context.Background()) }()
	<-l.entered
	return func() { close(gate) }, errc
}

func newGated(store *memory.Store) *gatedLoader {
	return &gatedLoader{Store: store, gates: make(chan chan struct{}, 1), entered: make(chan struct{})}
}

func TestStore_OutOfOrderLoads(t *testing.T) {
	store, tx := seeded(t)
	loader := newGated(store)
	s := New(loader)
	ctx := context.Background()

	releaseOld, oldDone := loader.start(s)
	if err := store.SetPaid(ctx, tx.ID, true); err != nil {
		t.Fatal(err)
	}
	releaseNew, newDone := loader.start(s)

	releaseNew()
	if err := <-newDone; err != nil {
		t.Fatalf("newer Load() error = %v", err)
	}
	releaseOld()
	if err := <-oldDone; err != nil {
		t.Fatalf("older Load() error = %v", err)
	}

	snap := s.Snapshot()
	if !snap.Transactions[0].Paid {
		t.Error("the older load replaced the newer snapshot")
	}
	if snap.Version != 1 {
		t.Errorf("version = %d, want 1", snap.Version)
	}
}

func TestStore_LoadDoesNotUndoOptimisticEdit(t *testing.T) {
	store, tx := seeded(t)
	loader := newGated(store)
	s := New(loader)
	ctx := context.Background()

	initial, initialDone := loader.start(s)
	initial()
	if err := <-initialDone; err != nil {
		t.Fatal(err)
	}

	release, done := loader.start(s)
	err := s.TogglePaid(ctx, tx.ID, true, func(ctx context.Context, id string, paid bool) error {
		return store.SetPaid(ctx, id, paid)
	})
	if err != nil {
		t.Fatal(err)
	}
	release()
	if err := <-done; err != nil {
		t.Fatal(err)
	}

	if !s.Snapshot().Transactions[0].Paid {
		t.Error("a load that read before the edit overwrote it")
	}
}

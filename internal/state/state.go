// Package state holds the application snapshot the dashboard renders from.
//
// The store is refreshed wholesale from persistence, supports optimistic
// local edits that are reconciled by a reload when the commit fails, and
// notifies subscribers of every new version.
package state

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"financas/internal/core"
)

const refreshTimeout = 10 * time.Second

// Loader reads the persisted collections. Every storage backend satisfies it.
type Loader interface {
	ListTransactions(ctx context.Context) ([]core.Transaction, error)
	ListBoxes(ctx context.Context) ([]core.InvestmentBox, error)
	LoadPreferences(ctx context.Context) (*core.Preferences, error)
}

// Snapshot is an immutable copy of the application state.
type Snapshot struct {
	Version      uint64               `json:"version"`
	LoadedAt     time.Time            `json:"loadedAt"`
	Transactions []core.Transaction   `json:"transactions"`
	Boxes        []core.InvestmentBox `json:"boxes"`
	Preferences  core.Preferences     `json:"preferences"`
}

// Store guards the current snapshot.
type Store struct {
	loader Loader
	now    func() time.Time

	mu   sync.RWMutex
	snap Snapshot
	// gen counts started loads and optimistic edits; installed is the gen
	// of the current snapshot. A load finishing behind installed is stale.
	gen       uint64
	installed uint64

	subMu  sync.Mutex
	nextID int
	subs   map[int]chan uint64
}

func New(loader Loader) *Store {
	return &Store{
		loader: loader,
		now:    time.Now,
		snap:   Snapshot{Preferences: core.DefaultPreferences()},
		subs:   make(map[int]chan uint64),
	}
}

// Load refetches every collection and replaces the snapshot, unless a
// load or optimistic edit that started later has already been installed.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	var (
		txs   []core.Transaction
		boxes []core.InvestmentBox
		prefs *core.Preferences
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		txs, err = s.loader.ListTransactions(gctx)
		return err
	})
	g.Go(func() (err error) {
		boxes, err = s.loader.ListBoxes(gctx)
		return err
	})
	g.Go(func() (err error) {
		prefs, err = s.loader.LoadPreferences(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("load state: %w", err)
	}

	p := core.DefaultPreferences()
	if prefs != nil {
		p = *prefs
	}

	s.mu.Lock()
	if gen < s.installed {
		current := s.snap.Version
		s.mu.Unlock()
		slog.DebugContext(ctx, "Discarding stale state load", "component", "state", "version", current)
		return nil
	}
	s.installed = gen
	s.snap = Snapshot{
		Version:      s.snap.Version + 1,
		LoadedAt:     s.now(),
		Transactions: txs,
		Boxes:        boxes,
		Preferences:  p,
	}
	version := s.snap.Version
	s.mu.Unlock()

	slog.DebugContext(ctx, "State loaded", "component", "state", "version", version, "transactions", len(txs), "boxes", len(boxes))
	s.notify(version)
	return nil
}

// Refresh reloads the snapshot in the background, logging failures.
func (s *Store) Refresh() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		if err := s.Load(ctx); err != nil {
			slog.ErrorContext(ctx, "Failed to refresh state", "component", "state", "error", err)
		}
	}()
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.clone()
}

// Optimistic applies mutate to the local snapshot, then runs commit. When
// commit fails the snapshot is reloaded from persistence and the commit
// error is returned.
func (s *Store) Optimistic(ctx context.Context, mutate func(*Snapshot), commit func(context.Context) error) error {
	s.mu.Lock()
	next := s.snap.clone()
	mutate(&next)
	next.Version = s.snap.Version + 1
	s.gen++
	s.installed = s.gen
	s.snap = next
	version := next.Version
	s.mu.Unlock()
	s.notify(version)

	if err := commit(ctx); err != nil {
		slog.WarnContext(ctx, "Optimistic update rejected, reloading state", "component", "state", "error", err)
		if rerr := s.Load(ctx); rerr != nil {
			slog.ErrorContext(ctx, "Failed to reconcile state", "component", "state", "error", rerr)
		}
		return err
	}
	return nil
}

// TogglePaid flips a transaction's paid flag locally before committing it.
func (s *Store) TogglePaid(ctx context.Context, id string, paid bool, commit func(ctx context.Context, id string, paid bool) error) error {
	return s.Optimistic(ctx,
		func(snap *Snapshot) {
			for i := range snap.Transactions {
				if snap.Transactions[i].ID == id {
					snap.Transactions[i].Paid = paid
				}
			}
		},
		func(ctx context.Context) error { return commit(ctx, id, paid) },
	)
}

// Subscribe returns a channel receiving the version of every new snapshot
// and a cancel func. Notifications are dropped for subscribers whose buffer
// is full.
func (s *Store) Subscribe(buffer int) (<-chan uint64, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan uint64, buffer)

	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
			close(ch)
		})
	}
}

func (s *Store) notify(version uint64) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- version:
		default:
		}
	}
}

func (snap Snapshot) clone() Snapshot {
	out := snap
	out.Transactions = slices.Clone(snap.Transactions)
	out.Boxes = make([]core.InvestmentBox, len(snap.Boxes))
	for i, b := range snap.Boxes {
		out.Boxes[i] = b
		if b.InterestRate != nil {
			r := *b.InterestRate
			out.Boxes[i].InterestRate = &r
		}
		if b.TaxRate != nil {
			r := *b.TaxRate
			out.Boxes[i].TaxRate = &r
		}
	}
	out.Preferences = clonePreferences(snap.Preferences)
	return out
}

func clonePreferences(p core.Preferences) core.Preferences {
	out := p
	out.Layouts = slices.Clone(p.Layouts)
	out.CardColors = cloneMap(p.CardColors)
	out.CardTitles = cloneMap(p.CardTitles)
	c := &out.Settings.Categories
	c.Income.Fixed = slices.Clone(c.Income.Fixed)
	c.Income.Variable = slices.Clone(c.Income.Variable)
	c.Income.Investment = slices.Clone(c.Income.Investment)
	c.Expense.Fixed = slices.Clone(c.Expense.Fixed)
	c.Expense.Variable = slices.Clone(c.Expense.Variable)
	c.Expense.Leisure = slices.Clone(c.Expense.Leisure)
	c.Expense.Investment = slices.Clone(c.Expense.Investment)
	return out
}

func cloneMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

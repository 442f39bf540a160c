// Package memory is an in-process Store used by tests and the zero-config mode.
package memory

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"sync"

	"github.com/google/uuid"

	"financas/internal/core"
	"financas/internal/storage"
)

type Store struct {
	mu    sync.Mutex
	seq   int
	txs   []entry
	boxes []core.InvestmentBox
	prefs *core.Preferences
}

// entry remembers insertion order so listings are stable within a day.
type entry struct {
	seq int
	tx  core.Transaction
}

// Seed is the JSON document NewFromFile reads.
type Seed struct {
	Transactions []core.Transaction   `json:"transactions"`
	Boxes        []core.InvestmentBox `json:"boxes"`
	Preferences  *core.Preferences    `json:"preferences,omitempty"`
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// NewFromFile seeds a store from a JSON file. A missing file yields an empty store.
func NewFromFile(path string) (*Store, error) {
	s := New()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	var seed Seed
	if err := json.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("decode seed %s: %w", path, err)
	}
	for _, b := range seed.Boxes {
		if _, err := s.CreateBox(context.Background(), b); err != nil {
			return nil, err
		}
	}
	if _, err := s.CreateTransactions(context.Background(), seed.Transactions); err != nil {
		return nil, err
	}
	s.prefs = seed.Preferences
	return s, nil
}

func (s *Store) Close() error { return nil }

func (s *Store) sorted() []core.Transaction {
	entries := slices.Clone(s.txs)
	slices.SortStableFunc(entries, func(a, b entry) int {
		if c := b.tx.Date.Compare(a.tx.Date.Time); c != 0 {
			return c
		}
		return cmp.Compare(b.seq, a.seq)
	})
	out := make([]core.Transaction, len(entries))
	for i, e := range entries {
		out[i] = e.tx
	}
	return out
}

func (s *Store) ListTransactions(_ context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sorted(), nil
}

func (s *Store) ListTransactionsInMonth(_ context.Context, month core.Date) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.Transaction{}
	for _, t := range s.sorted() {
		if t.Date.SameMonth(month) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Store) find(id string) int {
	return slices.IndexFunc(s.txs, func(e entry) bool { return e.tx.ID == id })
}

func (s *Store) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.find(id)
	if i < 0 {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, storage.ErrNotFound)
	}
	return s.txs[i].tx, nil
}

func (s *Store) CreateTransactions(_ context.Context, txs []core.Transaction) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	created := make([]core.Transaction, len(txs))
	for i, t := range txs {
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		s.seq++
		s.txs = append(s.txs, entry{seq: s.seq, tx: t})
		created[i] = t
	}
	return created, nil
}

func (s *Store) UpdateTransaction(_ context.Context, t core.Transaction, scope storage.Scope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.find(t.ID)
	if i < 0 {
		return fmt.Errorf("transaction %s: %w", t.ID, storage.ErrNotFound)
	}
	if !storage.FutureUpdate(scope, t.RecurrenceID) {
		s.txs[i].tx = t
		return nil
	}

	from := s.txs[i].tx.Date
	s.txs[i].tx.AttachmentURL = t.AttachmentURL
	for j := range s.txs {
		cur := &s.txs[j].tx
		if cur.RecurrenceID != t.RecurrenceID || cur.Date.Before(from.Time) {
			continue
		}
		cur.Description = t.Description
		cur.Amount = t.Amount
		cur.Category = t.Category
		cur.ExpenseType = t.ExpenseType
		cur.IncomeType = t.IncomeType
		cur.InvestmentBoxID = t.InvestmentBoxID
	}
	return nil
}

func (s *Store) DeleteTransaction(_ context.Context, id string, scope storage.Scope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.find(id)
	if i < 0 {
		return fmt.Errorf("transaction %s: %w", id, storage.ErrNotFound)
	}
	target := s.txs[i].tx
	if storage.FutureUpdate(scope, target.RecurrenceID) {
		s.txs = slices.DeleteFunc(s.txs, func(e entry) bool {
			return e.tx.RecurrenceID == target.RecurrenceID && !e.tx.Date.Before(target.Date.Time)
		})
		return nil
	}
	s.txs = slices.Delete(s.txs, i, i+1)
	return nil
}

func (s *Store) SetPaid(_ context.Context, id string, paid bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.find(id)
	if i < 0 {
		return fmt.Errorf("transaction %s: %w", id, storage.ErrNotFound)
	}
	s.txs[i].tx.Paid = paid
	return nil
}

func (s *Store) ListBoxes(_ context.Context) ([]core.InvestmentBox, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.InvestmentBox{}, s.boxes...), nil
}

func (s *Store) findBox(id string) int {
	return slices.IndexFunc(s.boxes, func(b core.InvestmentBox) bool { return b.ID == id })
}

func (s *Store) GetBox(_ context.Context, id string) (core.InvestmentBox, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.findBox(id)
	if i < 0 {
		return core.InvestmentBox{}, fmt.Errorf("box %s: %w", id, storage.ErrNotFound)
	}
	return s.boxes[i], nil
}

func (s *Store) CreateBox(_ context.Context, b core.InvestmentBox) (core.InvestmentBox, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	s.boxes = append(s.boxes, b)
	return b, nil
}

func (s *Store) UpdateBox(_ context.Context, b core.InvestmentBox) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.findBox(b.ID)
	if i < 0 {
		return fmt.Errorf("box %s: %w", b.ID, storage.ErrNotFound)
	}
	s.boxes[i] = b
	return nil
}

func (s *Store) DeleteBox(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.findBox(id)
	if i < 0 {
		return fmt.Errorf("box %s: %w", id, storage.ErrNotFound)
	}
	s.boxes = slices.Delete(s.boxes, i, i+1)
	return nil
}

func (s *Store) LoadPreferences(_ context.Context) (*core.Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.prefs == nil {
		return nil, nil
	}
	p := *s.prefs
	return &p, nil
}

func (s *Store) SavePreferences(_ context.Context, p core.Preferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs = &p
	return nil
}

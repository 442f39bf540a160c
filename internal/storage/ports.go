package storage

import (
	"context"
	"errors"
	"fmt"

	"financas/internal/core"
)

// Scope selects which rows of a recurrence group an edit applies to.
type Scope string

const (
	// ScopeSingle touches only the addressed row.
	ScopeSingle Scope = "single"
	// ScopeFuture touches the addressed row and every later row sharing its
	// recurrence id.
	ScopeFuture Scope = "future"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidScope = errors.New("invalid scope")
)

// ParseScope maps a query value to a Scope. Empty means ScopeSingle.
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case "", ScopeSingle:
		return ScopeSingle, nil
	case ScopeFuture:
		return ScopeFuture, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidScope, s)
}

// Ports for persistence adapters.
type (
	TransactionRepository interface {
		// ListTransactions returns every transaction, newest first.
		ListTransactions(ctx context.Context) ([]core.Transaction, error)
		// ListTransactionsInMonth returns the transactions dated in month's calendar month.
		ListTransactionsInMonth(ctx context.Context, month core.Date) ([]core.Transaction, error)
		GetTransaction(ctx context.Context, id string) (core.Transaction, error)
		// CreateTransactions inserts the batch atomically and returns it with ids assigned.
		CreateTransactions(ctx context.Context, txs []core.Transaction) ([]core.Transaction, error)
		// UpdateTransaction with ScopeFuture rewrites the shared fields of every
		// row in tx's recurrence dated on or after tx's stored date, and the
		// attachment of tx's own row.
		UpdateTransaction(ctx context.Context, tx core.Transaction, scope Scope) error
		DeleteTransaction(ctx context.Context, id string, scope Scope) error
		SetPaid(ctx context.Context, id string, paid bool) error
	}

	BoxRepository interface {
		// ListBoxes returns boxes in creation order.
		ListBoxes(ctx context.Context) ([]core.InvestmentBox, error)
		GetBox(ctx context.Context, id string) (core.InvestmentBox, error)
		CreateBox(ctx context.Context, b core.InvestmentBox) (core.InvestmentBox, error)
		UpdateBox(ctx context.Context, b core.InvestmentBox) error
		DeleteBox(ctx context.Context, id string) error
	}

	SettingsRepository interface {
		// LoadPreferences returns nil when nothing was saved yet.
		LoadPreferences(ctx context.Context) (*core.Preferences, error)
		SavePreferences(ctx context.Context, p core.Preferences) error
	}

	// Store is a full persistence backend.
	Store interface {
		TransactionRepository
		BoxRepository
		SettingsRepository
		Close() error
	}
)

// FutureUpdate reports whether an update or delete spans a recurrence group.
func FutureUpdate(scope Scope, recurrenceID string) bool {
	return scope == ScopeFuture && recurrenceID != ""
}

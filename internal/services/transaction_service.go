// Package services orchestrates persistence, attachments and change events
// for the dashboard.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"financas/internal/amqp"
	"financas/internal/attachments"
	"financas/internal/core"
	"financas/internal/storage"
)

// recurrenceMonths is the most instances one recurring create expands into.
const recurrenceMonths = 12

var (
	ErrNothingToClone = errors.New("month has no transactions to clone")
	ErrInvalidImport  = errors.New("invalid legacy import")
)

// Publisher announces committed changes. The AMQP client implements it.
type Publisher interface {
	PublishTransactionsChanged(ctx context.Context, msg *amqp.TransactionsChangedMessage) error
}

// Upload is an attachment submitted together with a transaction.
type Upload struct {
	Filename string
	Content  io.Reader
}

type CreateOptions struct {
	Recurring bool
	// SelectedMonth is the month the dashboard is showing; any day in it works.
	SelectedMonth core.Date
	Attachment    *Upload
}

type UpdateOptions struct {
	Attachment       *Upload
	RemoveAttachment bool
}

// CloneResult reports a month clone.
type CloneResult struct {
	Created []core.Transaction `json:"created"`
	// TargetHadTransactions is true when the destination month was not empty.
	TargetHadTransactions bool `json:"targetHadTransactions"`
}

// TransactionService owns every write to the transaction ledger.
type TransactionService struct {
	repo      storage.TransactionRepository
	files     attachments.Store
	publisher Publisher
	clock     Clock
	onChange  []func()
}

// NewTransactionService wires the service. files and publisher may be nil.
func NewTransactionService(repo storage.TransactionRepository, files attachments.Store, publisher Publisher, clock Clock) *TransactionService {
	return &TransactionService{repo: repo, files: files, publisher: publisher, clock: clock}
}

// OnChange registers a callback run after every committed mutation.
func (s *TransactionService) OnChange(fn func()) {
	s.onChange = append(s.onChange, fn)
}

func (s *TransactionService) List(ctx context.Context) ([]core.Transaction, error) {
	txs, err := s.repo.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

// Create persists draft, expanded into monthly instances when recurring.
func (s *TransactionService) Create(ctx context.Context, draft core.Transaction, opts CreateOptions) ([]core.Transaction, error) {
	selected := opts.SelectedMonth
	if selected.IsZero() {
		selected = s.clock.Today()
	}
	draft.ID = ""
	draft.RecurrenceID = ""
	draft.AttachmentURL = ""
	if draft.Type == core.Income {
		draft.Paid = false
	}

	day := 1
	today := s.clock.Today()
	switch {
	case !draft.DueDate.IsEmpty():
		day = draft.DueDate.Day()
	case selected.SameMonth(today):
		day = today.Day()
	}
	draft.Date = core.NewDate(selected.Year(), int(selected.Month()), day)
	if draft.Type == core.Expense && !draft.DueDate.IsEmpty() {
		draft.Paid = false
	}

	if err := draft.Validate(); err != nil {
		return nil, err
	}

	if opts.Attachment != nil && s.files != nil {
		url, err := s.files.Upload(ctx, opts.Attachment.Filename, opts.Attachment.Content)
		if err != nil {
			return nil, fmt.Errorf("upload attachment: %w", err)
		}
		draft.AttachmentURL = url
	}

	batch := []core.Transaction{draft}
	if opts.Recurring {
		batch = expandRecurrence(draft, day, uuid.NewString())
	}

	created, err := s.repo.CreateTransactions(ctx, batch)
	if err != nil {
		if draft.AttachmentURL != "" {
			s.discardAttachment(ctx, draft.AttachmentURL)
		}
		return nil, fmt.Errorf("create transactions: %w", err)
	}

	slog.InfoContext(ctx, "Transactions created",
		"component", "transaction",
		"count", len(created),
		"recurring", opts.Recurring,
		"type", draft.Type)
	s.changed(ctx, amqp.OpCreated, created)
	return created, nil
}

// expandRecurrence yields the first instance plus one per following month,
// stopping at the year boundary. Overflowing days normalize the way
// time.Date does.
func expandRecurrence(first core.Transaction, day int, recurrenceID string) []core.Transaction {
	first.RecurrenceID = recurrenceID
	out := []core.Transaction{first}

	year, month := first.Date.Year(), int(first.Date.Month())
	for i := 1; i < recurrenceMonths; i++ {
		date := core.NewDate(year, month+i, day)
		if date.Year() > year {
			break
		}
		next := first
		next.Date = date
		next.AttachmentURL = ""
		if next.Type == core.Expense {
			next.Paid = false
			if !first.DueDate.IsEmpty() {
				next.DueDate = date
			}
		}
		out = append(out, next)
	}
	return out
}

// Update rewrites tx, or tx and its later siblings with ScopeFuture.
func (s *TransactionService) Update(ctx context.Context, tx core.Transaction, scope storage.Scope, opts UpdateOptions) error {
	original, err := s.repo.GetTransaction(ctx, tx.ID)
	if err != nil {
		return fmt.Errorf("get transaction: %w", err)
	}
	tx.RecurrenceID = original.RecurrenceID
	tx.AttachmentURL = original.AttachmentURL

	if !tx.DueDate.IsEmpty() && (tx.Type == core.Income || tx.DueDate.Validate() != nil) {
		tx.DueDate = core.Date{}
	}
	if err := tx.Validate(); err != nil {
		return err
	}

	affected, err := s.affectedDates(ctx, original, scope)
	if err != nil {
		return err
	}

	var uploaded string
	if s.files != nil {
		if opts.Attachment != nil {
			uploaded, err = s.files.Upload(ctx, opts.Attachment.Filename, opts.Attachment.Content)
			if err != nil {
				return fmt.Errorf("upload attachment: %w", err)
			}
			tx.AttachmentURL = uploaded
		} else if opts.RemoveAttachment {
			tx.AttachmentURL = ""
		}
	}

	if err := s.repo.UpdateTransaction(ctx, tx, scope); err != nil {
		if uploaded != "" {
			s.discardAttachment(ctx, uploaded)
		}
		return fmt.Errorf("update transaction: %w", err)
	}
	if original.AttachmentURL != "" && original.AttachmentURL != tx.AttachmentURL {
		s.discardAttachment(ctx, original.AttachmentURL)
	}

	slog.InfoContext(ctx, "Transaction updated", "component", "transaction", "transaction_id", tx.ID, "scope", scope)
	s.changedDates(ctx, amqp.OpUpdated, []string{tx.ID}, append(affected, tx.Date)...)
	return nil
}

// Delete removes the row's own attachment, then the row or its recurrence tail.
func (s *TransactionService) Delete(ctx context.Context, id string, scope storage.Scope) error {
	original, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("get transaction: %w", err)
	}
	affected, err := s.affectedDates(ctx, original, scope)
	if err != nil {
		return err
	}

	if original.AttachmentURL != "" && s.files != nil {
		if err := s.files.Delete(ctx, original.AttachmentURL); err != nil {
			return fmt.Errorf("delete attachment: %w", err)
		}
	}
	if err := s.repo.DeleteTransaction(ctx, id, scope); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction deleted", "component", "transaction", "transaction_id", id, "scope", scope)
	s.changedDates(ctx, amqp.OpDeleted, []string{id}, affected...)
	return nil
}

// affectedDates lists the dates of every row a scoped edit of original touches.
func (s *TransactionService) affectedDates(ctx context.Context, original core.Transaction, scope storage.Scope) ([]core.Date, error) {
	dates := []core.Date{original.Date}
	if !storage.FutureUpdate(scope, original.RecurrenceID) {
		return dates, nil
	}
	all, err := s.repo.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	for _, t := range all {
		if t.RecurrenceID == original.RecurrenceID && !t.Date.Before(original.Date.Time) {
			dates = append(dates, t.Date)
		}
	}
	return dates, nil
}

func (s *TransactionService) TogglePaid(ctx context.Context, id string, paid bool) error {
	tx, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("get transaction: %w", err)
	}
	if err := s.repo.SetPaid(ctx, id, paid); err != nil {
		return fmt.Errorf("set paid: %w", err)
	}
	s.changedDates(ctx, amqp.OpPaid, []string{id}, tx.Date)
	return nil
}

// CloneMonth copies month's transactions into the following month.
func (s *TransactionService) CloneMonth(ctx context.Context, month core.Date) (CloneResult, error) {
	source, err := s.repo.ListTransactionsInMonth(ctx, month)
	if err != nil {
		return CloneResult{}, fmt.Errorf("list month: %w", err)
	}
	if len(source) == 0 {
		return CloneResult{}, ErrNothingToClone
	}

	target := core.MonthOf(month).AddMonths(1)
	existing, err := s.repo.ListTransactionsInMonth(ctx, target)
	if err != nil {
		return CloneResult{}, fmt.Errorf("list target month: %w", err)
	}

	clones := make([]core.Transaction, 0, len(source))
	for _, t := range source {
		c := t
		c.ID = ""
		c.RecurrenceID = ""
		c.AttachmentURL = ""
		c.Date = t.Date.AddMonths(1)
		if !t.DueDate.IsEmpty() {
			c.DueDate = t.DueDate.AddMonths(1)
		}
		if c.Type == core.Expense {
			c.Paid = false
		}
		clones = append(clones, c)
	}

	created, err := s.repo.CreateTransactions(ctx, clones)
	if err != nil {
		return CloneResult{}, fmt.Errorf("create clones: %w", err)
	}

	slog.InfoContext(ctx, "Month cloned",
		"component", "transaction",
		"month", core.MonthOf(month).String(),
		"count", len(created),
		"target_had_transactions", len(existing) > 0)
	s.changed(ctx, amqp.OpCloned, created)
	return CloneResult{Created: created, TargetHadTransactions: len(existing) > 0}, nil
}

// legacyTransaction is the shape exported by the old browser-only version.
type legacyTransaction struct {
	Description     string          `json:"description"`
	Amount          json.RawMessage `json:"amount"`
	Type            string          `json:"type"`
	Category        string          `json:"category"`
	Date            string          `json:"date"`
	ExpenseType     string          `json:"expenseType"`
	IncomeType      string          `json:"incomeType"`
	DueDate         string          `json:"dueDate"`
	Paid            bool            `json:"paid"`
	RecurrenceID    string          `json:"recurrenceId"`
	InvestmentBoxID string          `json:"investmentBoxId"`
}

// ImportLegacy bulk-inserts a JSON array of legacy transactions and returns
// how many were stored. Ids are dropped and unparsable dates become today.
func (s *TransactionService) ImportLegacy(ctx context.Context, r io.Reader) (int, error) {
	var raw []legacyTransaction
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	if len(raw) == 0 {
		return 0, nil
	}

	today := s.clock.Today()
	batch := make([]core.Transaction, 0, len(raw))
	for i, l := range raw {
		var amount core.Money
		if err := amount.UnmarshalJSON(l.Amount); err != nil {
			return 0, fmt.Errorf("%w: row %d: %w", ErrInvalidImport, i, err)
		}
		date, err := core.ParseDate(l.Date)
		if err != nil {
			date = today
		}
		due, err := core.ParseDate(l.DueDate)
		if err != nil || strings.TrimSpace(l.DueDate) == "" {
			due = core.Date{}
		}
		t := core.Transaction{
			Description:     l.Description,
			Amount:          amount,
			Type:            core.TransactionType(l.Type),
			Category:        l.Category,
			Date:            date,
			ExpenseType:     core.ExpenseType(l.ExpenseType),
			IncomeType:      core.IncomeType(l.IncomeType),
			DueDate:         due,
			Paid:            l.Paid,
			RecurrenceID:    l.RecurrenceID,
			InvestmentBoxID: l.InvestmentBoxID,
		}
		if t.Type == core.Income {
			t.DueDate = core.Date{}
		}
		if err := t.Validate(); err != nil {
			return 0, fmt.Errorf("legacy row %d: %w", i, err)
		}
		batch = append(batch, t)
	}

	created, err := s.repo.CreateTransactions(ctx, batch)
	if err != nil {
		return 0, fmt.Errorf("import transactions: %w", err)
	}
	slog.InfoContext(ctx, "Legacy transactions imported", "component", "transaction", "count", len(created))
	s.changed(ctx, amqp.OpImported, created)
	return len(created), nil
}

func (s *TransactionService) discardAttachment(ctx context.Context, url string) {
	if err := s.files.Delete(ctx, url); err != nil {
		slog.WarnContext(ctx, "Failed to discard orphaned attachment", "component", "transaction", "url", url, "error", err)
	}
}

func (s *TransactionService) changed(ctx context.Context, op amqp.ChangeOp, txs []core.Transaction) {
	ids := make([]string, 0, len(txs))
	dates := make([]core.Date, 0, len(txs))
	for _, t := range txs {
		ids = append(ids, t.ID)
		dates = append(dates, t.Date)
	}
	s.changedDates(ctx, op, ids, dates...)
}

// changedDates runs the change hooks and publishes the event. Publishing
// failures are logged only: the write already committed.
func (s *TransactionService) changedDates(ctx context.Context, op amqp.ChangeOp, ids []string, dates ...core.Date) {
	for _, fn := range s.onChange {
		fn()
	}
	if s.publisher == nil {
		return
	}
	msg := amqp.NewTransactionsChangedMessage(op, ids, dates...)
	if err := s.publisher.PublishTransactionsChanged(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish transactions changed message",
			"component", "transaction", "op", op, "error", err)
	}
}

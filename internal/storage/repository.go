package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"financas/internal/core"

	_ "modernc.org/sqlite"
)

const transactionColumns = `id, description, amount_cents, type, category, date,
	expense_type, income_type, due_date, paid, recurrence_id, investment_box_id, attachment_url`

const boxColumns = `id, name, description, target_amount_cents, color, interest_rate, tax_rate`

// SQLiteRepository is the default local Store.
type SQLiteRepository struct {
	db *sql.DB
}

var _ Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// sqlite serializes writers; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s rowScanner) (core.Transaction, error) {
	var t core.Transaction
	var date string
	var expenseType, incomeType, dueDate sql.NullString
	var recurrenceID, boxID, attachmentURL sql.NullString
	err := s.Scan(&t.ID, &t.Description, &t.Amount.Cents, &t.Type, &t.Category, &date,
		&expenseType, &incomeType, &dueDate, &t.Paid, &recurrenceID, &boxID, &attachmentURL)
	if err != nil {
		return t, err
	}

	if t.Date, err = core.ParseDate(date); err != nil {
		return t, fmt.Errorf("transaction %s: %w", t.ID, err)
	}
	if dueDate.String != "" {
		// A malformed stored due date is dropped rather than failing the read.
		t.DueDate, _ = core.ParseDate(dueDate.String)
	}
	t.ExpenseType = core.ExpenseType(expenseType.String)
	t.IncomeType = core.IncomeType(incomeType.String)
	t.RecurrenceID = recurrenceID.String
	t.InvestmentBoxID = boxID.String
	t.AttachmentURL = attachmentURL.String
	return t, nil
}

func scanTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	txs := []core.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// nullable stores empty strings as NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions ORDER BY date DESC, created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()
	return scanTransactions(rows)
}

func (r *SQLiteRepository) ListTransactionsInMonth(ctx context.Context, month core.Date) ([]core.Transaction, error) {
	from := core.MonthOf(month)
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		WHERE date >= ? AND date < ?
		ORDER BY date DESC, created_at DESC, rowid DESC`,
		from.String(), from.AddMonths(1).String())
	if err != nil {
		return nil, fmt.Errorf("list month transactions: %w", err)
	}
	defer rows.Close()
	return scanTransactions(rows)
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

func (r *SQLiteRepository) CreateTransactions(ctx context.Context, txs []core.Transaction) ([]core.Transaction, error) {
	if len(txs) == 0 {
		return []core.Transaction{}, nil
	}

	dbtx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer dbtx.Rollback()

	stmt, err := dbtx.PrepareContext(ctx, `INSERT INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	created := make([]core.Transaction, len(txs))
	for i, t := range txs {
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		_, err := stmt.ExecContext(ctx, t.ID, t.Description, t.Amount.Cents, t.Type, t.Category, t.Date.String(),
			nullable(string(t.ExpenseType)), nullable(string(t.IncomeType)), nullable(t.DueDate.String()),
			t.Paid, nullable(t.RecurrenceID), nullable(t.InvestmentBoxID), nullable(t.AttachmentURL))
		if err != nil {
			return nil, fmt.Errorf("insert transaction: %w", err)
		}
		created[i] = t
	}

	if err := dbtx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transactions: %w", err)
	}

	slog.InfoContext(ctx, "Transactions saved to SQLite", "count", len(created))
	return created, nil
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction, scope Scope) error {
	if FutureUpdate(scope, t.RecurrenceID) {
		return r.updateRecurrence(ctx, t)
	}
	res, err := r.db.ExecContext(ctx, `UPDATE transactions
		SET description = ?, amount_cents = ?, type = ?, category = ?, date = ?, expense_type = ?,
		    income_type = ?, due_date = ?, paid = ?, recurrence_id = ?, investment_box_id = ?, attachment_url = ?
		WHERE id = ?`,
		t.Description, t.Amount.Cents, t.Type, t.Category, t.Date.String(), nullable(string(t.ExpenseType)),
		nullable(string(t.IncomeType)), nullable(t.DueDate.String()), t.Paid, nullable(t.RecurrenceID),
		nullable(t.InvestmentBoxID), nullable(t.AttachmentURL), t.ID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return expectRows(res, "transaction", t.ID)
}

// updateRecurrence rewrites the group from the addressed row's stored date on.
func (r *SQLiteRepository) updateRecurrence(ctx context.Context, t core.Transaction) error {
	dbtx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer dbtx.Rollback()

	var from string
	err = dbtx.QueryRowContext(ctx, `SELECT date FROM transactions WHERE id = ?`, t.ID).Scan(&from)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("transaction %s: %w", t.ID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("read transaction date: %w", err)
	}

	res, err := dbtx.ExecContext(ctx, `UPDATE transactions
		SET description = ?, amount_cents = ?, category = ?, expense_type = ?, income_type = ?, investment_box_id = ?
		WHERE recurrence_id = ? AND date >= ?`,
		t.Description, t.Amount.Cents, t.Category, nullable(string(t.ExpenseType)),
		nullable(string(t.IncomeType)), nullable(t.InvestmentBoxID), t.RecurrenceID, from)
	if err != nil {
		return fmt.Errorf("update recurrence: %w", err)
	}
	if _, err := dbtx.ExecContext(ctx, `UPDATE transactions SET attachment_url = ? WHERE id = ?`,
		nullable(t.AttachmentURL), t.ID); err != nil {
		return fmt.Errorf("update attachment: %w", err)
	}
	if err := dbtx.Commit(); err != nil {
		return fmt.Errorf("commit recurrence update: %w", err)
	}

	n, _ := res.RowsAffected()
	slog.InfoContext(ctx, "Recurring transactions updated", "recurrence_id", t.RecurrenceID, "from", from, "count", n)
	return nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string, scope Scope) error {
	if scope == ScopeFuture {
		var date string
		var recurrenceID sql.NullString
		err := r.db.QueryRowContext(ctx, `SELECT date, recurrence_id FROM transactions WHERE id = ?`, id).
			Scan(&date, &recurrenceID)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("transaction %s: %w", id, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("read transaction date: %w", err)
		}
		if recurrenceID.String != "" {
			res, err := r.db.ExecContext(ctx,
				`DELETE FROM transactions WHERE recurrence_id = ? AND date >= ?`, recurrenceID.String, date)
			if err != nil {
				return fmt.Errorf("delete recurrence: %w", err)
			}
			n, _ := res.RowsAffected()
			slog.InfoContext(ctx, "Recurring transactions deleted", "recurrence_id", recurrenceID.String, "from", date, "count", n)
			return nil
		}
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return expectRows(res, "transaction", id)
}

func (r *SQLiteRepository) SetPaid(ctx context.Context, id string, paid bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE transactions SET paid = ? WHERE id = ?`, paid, id)
	if err != nil {
		return fmt.Errorf("set paid: %w", err)
	}
	return expectRows(res, "transaction", id)
}

func scanBox(s rowScanner) (core.InvestmentBox, error) {
	var (
		b                     core.InvestmentBox
		interestRate, taxRate sql.NullFloat64
	)
	if err := s.Scan(&b.ID, &b.Name, &b.Description, &b.TargetAmount.Cents, &b.Color, &interestRate, &taxRate); err != nil {
		return b, err
	}
	b.InterestRate = floatPtr(interestRate)
	b.TaxRate = floatPtr(taxRate)
	return b, nil
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

func nullFloat(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func (r *SQLiteRepository) ListBoxes(ctx context.Context) ([]core.InvestmentBox, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+boxColumns+` FROM investment_boxes ORDER BY created_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("list boxes: %w", err)
	}
	defer rows.Close()

	boxes := []core.InvestmentBox{}
	for rows.Next() {
		b, err := scanBox(rows)
		if err != nil {
			return nil, fmt.Errorf("scan box: %w", err)
		}
		boxes = append(boxes, b)
	}
	return boxes, rows.Err()
}

func (r *SQLiteRepository) GetBox(ctx context.Context, id string) (core.InvestmentBox, error) {
	b, err := scanBox(r.db.QueryRowContext(ctx, `SELECT `+boxColumns+` FROM investment_boxes WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.InvestmentBox{}, fmt.Errorf("box %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.InvestmentBox{}, fmt.Errorf("get box: %w", err)
	}
	return b, nil
}

func (r *SQLiteRepository) CreateBox(ctx context.Context, b core.InvestmentBox) (core.InvestmentBox, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO investment_boxes (`+boxColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Name, b.Description, b.TargetAmount.Cents, b.Color, nullFloat(b.InterestRate), nullFloat(b.TaxRate))
	if err != nil {
		return core.InvestmentBox{}, fmt.Errorf("create box: %w", err)
	}
	slog.InfoContext(ctx, "Investment box saved to SQLite", "id", b.ID, "name", b.Name)
	return b, nil
}

func (r *SQLiteRepository) UpdateBox(ctx context.Context, b core.InvestmentBox) error {
	res, err := r.db.ExecContext(ctx, `UPDATE investment_boxes
		SET name = ?, description = ?, target_amount_cents = ?, color = ?, interest_rate = ?, tax_rate = ?
		WHERE id = ?`,
		b.Name, b.Description, b.TargetAmount.Cents, b.Color, nullFloat(b.InterestRate), nullFloat(b.TaxRate), b.ID)
	if err != nil {
		return fmt.Errorf("update box: %w", err)
	}
	return expectRows(res, "box", b.ID)
}

func (r *SQLiteRepository) DeleteBox(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM investment_boxes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete box: %w", err)
	}
	return expectRows(res, "box", id)
}

func (r *SQLiteRepository) LoadPreferences(ctx context.Context) (*core.Preferences, error) {
	var raw string
	err := r.db.QueryRowContext(ctx, `SELECT settings FROM app_settings WHERE id = 1`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	var p core.Preferences
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	return &p, nil
}

func (r *SQLiteRepository) SavePreferences(ctx context.Context, p core.Preferences) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO app_settings (id, settings, updated_at)
		VALUES (1, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET settings = excluded.settings, updated_at = excluded.updated_at`, string(raw))
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

func expectRows(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return nil
}

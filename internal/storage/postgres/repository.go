package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"financas/internal/core"
	"financas/internal/storage"
)

const transactionColumns = `id, description, amount, type, category, date,
	expense_type, income_type, due_date, paid, recurrence_id, investment_box_id, attachment_url`

const boxColumns = `id, name, description, target_amount, color, interest_rate, tax_rate`

// Repository is the hosted Store backed by PostgreSQL.
type Repository struct {
	db *DB
}

var _ storage.Store = (*Repository)(nil)

func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s rowScanner) (core.Transaction, error) {
	var t core.Transaction
	var amount decimal.Decimal
	var date time.Time
	var dueDate sql.NullTime
	var expenseType, incomeType, recurrenceID, boxID, attachmentURL sql.NullString

	err := s.Scan(&t.ID, &t.Description, &amount, &t.Type, &t.Category, &date,
		&expenseType, &incomeType, &dueDate, &t.Paid, &recurrenceID, &boxID, &attachmentURL)
	if err != nil {
		return t, err
	}

	t.Amount = core.MoneyFromDecimal(amount)
	t.Date = core.DateOf(date)
	if dueDate.Valid {
		t.DueDate = core.DateOf(dueDate.Time)
	}
	t.ExpenseType = core.ExpenseType(expenseType.String)
	t.IncomeType = core.IncomeType(incomeType.String)
	t.RecurrenceID = recurrenceID.String
	t.InvestmentBoxID = boxID.String
	t.AttachmentURL = attachmentURL.String
	return t, nil
}

func scanTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	defer rows.Close()
	txs := []core.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (r *Repository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		ORDER BY date DESC, seq DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return scanTransactions(rows)
}

func (r *Repository) ListTransactionsInMonth(ctx context.Context, month core.Date) ([]core.Transaction, error) {
	from := core.MonthOf(month)
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE date >= $1 AND date < $2
		ORDER BY date DESC, seq DESC
	`, from.String(), from.AddMonths(1).String())
	if err != nil {
		return nil, fmt.Errorf("failed to list month transactions: %w", err)
	}
	return scanTransactions(rows)
}

func (r *Repository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	if _, err := uuid.Parse(id); err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, storage.ErrNotFound)
	}
	t, err := scanTransaction(r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("failed to get transaction: %w", err)
	}
	return t, nil
}

func (r *Repository) CreateTransactions(ctx context.Context, txs []core.Transaction) ([]core.Transaction, error) {
	created := make([]core.Transaction, 0, len(txs))
	err := r.db.WithTx(ctx, "INSERT transactions", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO transactions (`+transactionColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, t := range txs {
			if _, err := uuid.Parse(t.ID); err != nil {
				t.ID = uuid.NewString()
			}
			_, err := stmt.ExecContext(ctx, t.ID, t.Description, t.Amount.Decimal(), t.Type, t.Category,
				t.Date.String(), nullable(string(t.ExpenseType)), nullable(string(t.IncomeType)),
				nullable(t.DueDate.String()), t.Paid, nullable(t.RecurrenceID), nullable(t.InvestmentBoxID),
				nullable(t.AttachmentURL))
			if err != nil {
				return fmt.Errorf("failed to insert transaction: %w", err)
			}
			created = append(created, t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Transactions saved to Postgres", "count", len(created))
	return created, nil
}

func (r *Repository) UpdateTransaction(ctx context.Context, t core.Transaction, scope storage.Scope) error {
	if _, err := uuid.Parse(t.ID); err != nil {
		return fmt.Errorf("transaction %s: %w", t.ID, storage.ErrNotFound)
	}
	if storage.FutureUpdate(scope, t.RecurrenceID) {
		return r.updateRecurrence(ctx, t)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		SET description = $1, amount = $2, type = $3, category = $4, date = $5, expense_type = $6,
		    income_type = $7, due_date = $8, paid = $9, recurrence_id = $10, investment_box_id = $11,
		    attachment_url = $12
		WHERE id = $13
	`, t.Description, t.Amount.Decimal(), t.Type, t.Category, t.Date.String(), nullable(string(t.ExpenseType)),
		nullable(string(t.IncomeType)), nullable(t.DueDate.String()), t.Paid, nullable(t.RecurrenceID),
		nullable(t.InvestmentBoxID), nullable(t.AttachmentURL), t.ID)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	return expectRows(res, "transaction", t.ID)
}

// updateRecurrence rewrites the group from the addressed row's stored date on.
func (r *Repository) updateRecurrence(ctx context.Context, t core.Transaction) error {
	return r.db.WithTx(ctx, "UPDATE recurrence", func(tx *sql.Tx) error {
		var from time.Time
		err := tx.QueryRowContext(ctx, `SELECT date FROM transactions WHERE id = $1`, t.ID).Scan(&from)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("transaction %s: %w", t.ID, storage.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to read transaction: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE transactions
			SET description = $1, amount = $2, category = $3, expense_type = $4, income_type = $5, investment_box_id = $6
			WHERE recurrence_id = $7 AND date >= $8
		`, t.Description, t.Amount.Decimal(), t.Category, nullable(string(t.ExpenseType)),
			nullable(string(t.IncomeType)), nullable(t.InvestmentBoxID), t.RecurrenceID, core.DateOf(from).String())
		if err != nil {
			return fmt.Errorf("failed to update recurrence: %w", err)
		}
		_, err = tx.ExecContext(ctx, `UPDATE transactions SET attachment_url = $1 WHERE id = $2`,
			nullable(t.AttachmentURL), t.ID)
		if err != nil {
			return fmt.Errorf("failed to update attachment: %w", err)
		}
		return nil
	})
}

func (r *Repository) DeleteTransaction(ctx context.Context, id string, scope storage.Scope) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("transaction %s: %w", id, storage.ErrNotFound)
	}
	return r.db.WithTx(ctx, "DELETE transactions", func(tx *sql.Tx) error {
		var date time.Time
		var recurrenceID sql.NullString
		err := tx.QueryRowContext(ctx, `SELECT date, recurrence_id FROM transactions WHERE id = $1`, id).
			Scan(&date, &recurrenceID)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("transaction %s: %w", id, storage.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to read transaction: %w", err)
		}

		if storage.FutureUpdate(scope, recurrenceID.String) {
			_, err = tx.ExecContext(ctx, `DELETE FROM transactions WHERE recurrence_id = $1 AND date >= $2`,
				recurrenceID.String, core.DateOf(date).String())
		} else {
			_, err = tx.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, id)
		}
		if err != nil {
			return fmt.Errorf("failed to delete transaction: %w", err)
		}
		return nil
	})
}

func (r *Repository) SetPaid(ctx context.Context, id string, paid bool) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("transaction %s: %w", id, storage.ErrNotFound)
	}
	res, err := r.db.ExecContext(ctx, `UPDATE transactions SET paid = $1 WHERE id = $2`, paid, id)
	if err != nil {
		return fmt.Errorf("failed to set paid: %w", err)
	}
	return expectRows(res, "transaction", id)
}

func scanBox(s rowScanner) (core.InvestmentBox, error) {
	var b core.InvestmentBox
	var target decimal.Decimal
	var interestRate, taxRate sql.NullFloat64
	if err := s.Scan(&b.ID, &b.Name, &b.Description, &target, &b.Color, &interestRate, &taxRate); err != nil {
		return b, err
	}
	b.TargetAmount = core.MoneyFromDecimal(target)
	if interestRate.Valid {
		b.InterestRate = &interestRate.Float64
	}
	if taxRate.Valid {
		b.TaxRate = &taxRate.Float64
	}
	return b, nil
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func (r *Repository) ListBoxes(ctx context.Context) ([]core.InvestmentBox, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+boxColumns+` FROM investment_boxes ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list boxes: %w", err)
	}
	defer rows.Close()

	boxes := []core.InvestmentBox{}
	for rows.Next() {
		b, err := scanBox(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan box: %w", err)
		}
		boxes = append(boxes, b)
	}
	return boxes, rows.Err()
}

func (r *Repository) GetBox(ctx context.Context, id string) (core.InvestmentBox, error) {
	if _, err := uuid.Parse(id); err != nil {
		return core.InvestmentBox{}, fmt.Errorf("box %s: %w", id, storage.ErrNotFound)
	}
	b, err := scanBox(r.db.QueryRowContext(ctx, `SELECT `+boxColumns+` FROM investment_boxes WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.InvestmentBox{}, fmt.Errorf("box %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return core.InvestmentBox{}, fmt.Errorf("failed to get box: %w", err)
	}
	return b, nil
}

func (r *Repository) CreateBox(ctx context.Context, b core.InvestmentBox) (core.InvestmentBox, error) {
	if _, err := uuid.Parse(b.ID); err != nil {
		b.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO investment_boxes (`+boxColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, b.ID, b.Name, b.Description, b.TargetAmount.Decimal(), b.Color, nullFloat(b.InterestRate), nullFloat(b.TaxRate))
	if err != nil {
		return core.InvestmentBox{}, fmt.Errorf("failed to create box: %w", err)
	}
	return b, nil
}

func (r *Repository) UpdateBox(ctx context.Context, b core.InvestmentBox) error {
	if _, err := uuid.Parse(b.ID); err != nil {
		return fmt.Errorf("box %s: %w", b.ID, storage.ErrNotFound)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE investment_boxes
		SET name = $1, description = $2, target_amount = $3, color = $4, interest_rate = $5, tax_rate = $6
		WHERE id = $7
	`, b.Name, b.Description, b.TargetAmount.Decimal(), b.Color, nullFloat(b.InterestRate), nullFloat(b.TaxRate), b.ID)
	if err != nil {
		return fmt.Errorf("failed to update box: %w", err)
	}
	return expectRows(res, "box", b.ID)
}

func (r *Repository) DeleteBox(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("box %s: %w", id, storage.ErrNotFound)
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM investment_boxes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete box: %w", err)
	}
	return expectRows(res, "box", id)
}

func (r *Repository) LoadPreferences(ctx context.Context) (*core.Preferences, error) {
	var raw []byte
	err := r.db.QueryRowContext(ctx, `SELECT settings FROM app_settings WHERE id = 1`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	var p core.Preferences
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}
	return &p, nil
}

func (r *Repository) SavePreferences(ctx context.Context, p core.Preferences) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO app_settings (id, settings, updated_at)
		VALUES (1, $1, NOW())
		ON CONFLICT (id) DO UPDATE SET settings = EXCLUDED.settings, updated_at = EXCLUDED.updated_at
	`, string(raw))
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

func expectRows(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, storage.ErrNotFound)
	}
	return nil
}

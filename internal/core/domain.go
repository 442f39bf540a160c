package core

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"

	ExpenseFixed      ExpenseType = "fixed"
	ExpenseVariable   ExpenseType = "variable"
	ExpenseLeisure    ExpenseType = "leisure"
	ExpenseInvestment ExpenseType = "investment"

	IncomeFixed      IncomeType = "fixed"
	IncomeVariable   IncomeType = "variable"
	IncomeInvestment IncomeType = "investment"
)

const maxDescriptionLen = 200

type (
	TransactionType string
	ExpenseType     string
	IncomeType      string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Transaction struct {
		ID              string          `json:"id"`
		Description     string          `json:"description"`
		Amount          Money           `json:"amount"`
		Type            TransactionType `json:"type"`
		Category        string          `json:"category"`
		Date            Date            `json:"date"`
		ExpenseType     ExpenseType     `json:"expenseType,omitempty"`
		IncomeType      IncomeType      `json:"incomeType,omitempty"`
		DueDate         Date            `json:"dueDate,omitzero"`
		Paid            bool            `json:"paid"`
		RecurrenceID    string          `json:"recurrenceId,omitempty"`
		InvestmentBoxID string          `json:"investmentBoxId,omitempty"`
		AttachmentURL   string          `json:"attachmentUrl,omitempty"`
	}

	InvestmentBox struct {
		ID           string   `json:"id"`
		Name         string   `json:"name"`
		Description  string   `json:"description,omitempty"`
		TargetAmount Money    `json:"targetAmount,omitzero"`
		Color        string   `json:"color,omitempty"`
		InterestRate *float64 `json:"interestRate,omitempty"` // annual %, nil when unset
		TaxRate      *float64 `json:"taxRate,omitempty"`
	}
)

var (
	ErrInvalidDay       = errors.New("invalid day")
	ErrInvalidMonth     = errors.New("invalid month")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyCategory    = errors.New("empty category")
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrInvalidSubtype   = errors.New("invalid transaction subtype")
	ErrDueDateOnIncome  = errors.New("due date is only allowed on expenses")
	ErrEmptyName        = errors.New("empty name")
	ErrInvalidRate      = errors.New("invalid rate")
)

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: date cannot be zero", ErrInvalidDate)
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string. Longer ISO timestamps are accepted
// and truncated to the day.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if len(s) > 10 {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return DateOf(t.UTC()), nil
		}
		s = s[:10]
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// IsEmpty returns true if the date is zero (for optional dates)
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(time.DateOnly)
}

// AddDays returns the date n days later.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// AddMonths shifts the date by n months, normalizing overflowing days
// (Jan 31 + 1 month is Mar 3 in a non-leap year).
func (d Date) AddMonths(n int) Date {
	return Date{Time: d.Time.AddDate(0, n, 0)}
}

// MonthOf returns the first day of d's month.
func MonthOf(d Date) Date {
	return NewDate(d.Year(), int(d.Month()), 1)
}

// SameMonth reports whether both dates fall in the same year and month.
func (d Date) SameMonth(o Date) bool {
	return d.Year() == o.Year() && d.Month() == o.Month()
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// IsInvestment reports whether the transaction moves money into or out of a box.
func (t Transaction) IsInvestment() bool {
	return t.ExpenseType == ExpenseInvestment || t.IncomeType == IncomeInvestment
}

// IsContribution reports whether t is an investment-flavored expense.
func (t Transaction) IsContribution() bool {
	return t.Type == Expense && t.ExpenseType == ExpenseInvestment
}

// IsRedemption reports whether t is an investment-flavored income.
func (t Transaction) IsRedemption() bool {
	return t.Type == Income && t.IncomeType == IncomeInvestment
}

// Flow is the signed cash movement: expenses are positive, incomes negative.
func (t Transaction) Flow() float64 {
	if t.Type == Expense {
		return t.Amount.Float()
	}
	return -t.Amount.Float()
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > maxDescriptionLen {
		return fmt.Errorf("description too long (max %d characters)", maxDescriptionLen)
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}

	switch t.Type {
	case Expense:
		if t.IncomeType != "" {
			return fmt.Errorf("%w: income type on an expense", ErrInvalidSubtype)
		}
		switch t.ExpenseType {
		case "", ExpenseFixed, ExpenseVariable, ExpenseLeisure, ExpenseInvestment:
		default:
			return fmt.Errorf("%w: expense type %q", ErrInvalidSubtype, t.ExpenseType)
		}
	case Income:
		if t.ExpenseType != "" {
			return fmt.Errorf("%w: expense type on an income", ErrInvalidSubtype)
		}
		switch t.IncomeType {
		case "", IncomeFixed, IncomeVariable, IncomeInvestment:
		default:
			return fmt.Errorf("%w: income type %q", ErrInvalidSubtype, t.IncomeType)
		}
		if !t.DueDate.IsEmpty() {
			return ErrDueDateOnIncome
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidType, t.Type)
	}

	if !t.DueDate.IsEmpty() {
		if err := t.DueDate.Validate(); err != nil {
			return fmt.Errorf("invalid due date: %w", err)
		}
	}
	return nil
}

func (b InvestmentBox) Validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return ErrEmptyName
	}
	if b.TargetAmount.Cents < 0 {
		return ErrInvalidAmount
	}
	if b.InterestRate != nil {
		if r := *b.InterestRate; math.IsNaN(r) || math.IsInf(r, 0) || r < 0 {
			return fmt.Errorf("%w: interest rate %v", ErrInvalidRate, r)
		}
	}
	if b.TaxRate != nil {
		if r := *b.TaxRate; math.IsNaN(r) || math.IsInf(r, 0) || r < 0 || r > 100 {
			return fmt.Errorf("%w: tax rate %v", ErrInvalidRate, r)
		}
	}
	return nil
}

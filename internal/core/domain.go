package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	Income  EntryType = "income"
	Expense EntryType = "expense"
)

// DateLayout is the wire and storage layout of entry dates.
const DateLayout = "2006-01-02"

type (
	EntryType string

	Date struct {
		time.Time
	}

	// Entry is a single recorded income or expense. Entries are immutable once
	// created; the ledger only appends them or clears the whole collection.
	Entry struct {
		ID       string
		Type     EntryType
		Category string          // case-sensitive
		Amount   decimal.Decimal // never negative
		Date     Date
	}

	// BudgetThresholds holds the two user budgets. Zero means unset.
	BudgetThresholds struct {
		IncomeBudget  decimal.Decimal
		ExpenseBudget decimal.Decimal
	}
)

var (
	ErrInvalidType     = errors.New("invalid entry type")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrNegativeAmount  = errors.New("amount must not be negative")
	ErrEmptyCategory   = errors.New("empty category")
	ErrInvalidDate     = errors.New("invalid date")
	ErrNegativeBudget  = errors.New("budget must not be negative")
	ErrCategoryTooLong = errors.New("category too long (max 100 characters)")
)

// ParseEntryType accepts "income" or "expense", ignoring case and surrounding space.
func ParseEntryType(s string) (EntryType, error) {
	switch EntryType(strings.ToLower(strings.TrimSpace(s))) {
	case Income:
		return Income, nil
	case Expense:
		return Expense, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
}

func (t EntryType) Validate() error {
	switch t {
	case Income, Expense:
		return nil
	}
	return ErrInvalidType
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

// NewEntry builds a validated entry with a fresh ID.
func NewEntry(t EntryType, category string, amount decimal.Decimal, date Date) (Entry, error) {
	e := Entry{
		ID:       uuid.NewString(),
		Type:     t,
		Category: category,
		Amount:   amount,
		Date:     date,
	}
	if err := e.Validate(); err != nil {
		return Entry{}, err
	}
	return e, nil
}

func (e Entry) Validate() error {
	if err := e.Type.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if len(e.Category) > 100 {
		return ErrCategoryTooLong
	}
	if e.Amount.IsNegative() {
		return ErrNegativeAmount
	}
	if err := e.Date.Validate(); err != nil {
		return err
	}
	return nil
}

// IsSet reports whether either budget has been configured.
func (b BudgetThresholds) IsSet() bool {
	return !b.IncomeBudget.IsZero() || !b.ExpenseBudget.IsZero()
}

func (b BudgetThresholds) Validate() error {
	if b.IncomeBudget.IsNegative() || b.ExpenseBudget.IsNegative() {
		return ErrNegativeBudget
	}
	return nil
}

// Equal compares thresholds by value.
func (b BudgetThresholds) Equal(o BudgetThresholds) bool {
	return b.IncomeBudget.Equal(o.IncomeBudget) && b.ExpenseBudget.Equal(o.ExpenseBudget)
}

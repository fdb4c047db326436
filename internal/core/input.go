package core

import (
	"errors"
	"fmt"
	"strings"
)

// ErrValidation is the sentinel wrapped by every ValidationError.
var ErrValidation = errors.New("validation failed")

// RawEntry carries the four form fields exactly as the user typed them.
type RawEntry struct {
	Type     string
	Category string
	Amount   string
	Date     string
}

// RawBudget carries the two budget fields as typed.
type RawBudget struct {
	Income  string
	Expense string
}

// ValidationError reports why user input was rejected. No state is mutated
// when it is returned.
type ValidationError struct {
	Missing []string // names of empty fields, in form order
	Cause   error    // parsing failure when every field was present
}

func (e *ValidationError) Error() string {
	if len(e.Missing) > 0 {
		return "please fill in all fields (missing: " + strings.Join(e.Missing, ", ") + ")"
	}
	if e.Cause != nil {
		return "invalid input: " + e.Cause.Error()
	}
	return ErrValidation.Error()
}

func (e *ValidationError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrValidation, e.Cause}
	}
	return []error{ErrValidation}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// NewEntryFromInput checks that every field is present and builds an Entry.
// Malformed amounts, types and dates are reported as ValidationError too.
func NewEntryFromInput(raw RawEntry) (Entry, error) {
	var missing []string
	for _, f := range []struct{ name, val string }{
		{"type", raw.Type},
		{"category", raw.Category},
		{"amount", raw.Amount},
		{"date", raw.Date},
	} {
		if strings.TrimSpace(f.val) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return Entry{}, &ValidationError{Missing: missing}
	}

	typ, err := ParseEntryType(raw.Type)
	if err != nil {
		return Entry{}, &ValidationError{Cause: err}
	}
	amount, err := ParseAmount(raw.Amount)
	if err != nil {
		return Entry{}, &ValidationError{Cause: err}
	}
	date, err := ParseDate(raw.Date)
	if err != nil {
		return Entry{}, &ValidationError{Cause: err}
	}

	e, err := NewEntry(typ, strings.TrimSpace(raw.Category), amount, date)
	if err != nil {
		return Entry{}, &ValidationError{Cause: err}
	}
	return e, nil
}

// NewBudgetFromInput parses both budget fields; empty fields mean unset.
func NewBudgetFromInput(raw RawBudget) (BudgetThresholds, error) {
	income, err := ParseBudget(raw.Income)
	if err != nil {
		return BudgetThresholds{}, &ValidationError{Cause: fmt.Errorf("income budget: %w", err)}
	}
	expense, err := ParseBudget(raw.Expense)
	if err != nil {
		return BudgetThresholds{}, &ValidationError{Cause: fmt.Errorf("expense budget: %w", err)}
	}
	return BudgetThresholds{IncomeBudget: income, ExpenseBudget: expense}, nil
}

package core

import "github.com/shopspring/decimal"

// BudgetStatus is the outcome of comparing totals against the thresholds.
type BudgetStatus int

const (
	Unset BudgetStatus = iota
	OverBoth
	OverIncome
	OverExpense
	OnBudget
)

var budgetStatusNames = map[BudgetStatus]string{
	Unset:       "unset",
	OverBoth:    "over_both",
	OverIncome:  "over_income",
	OverExpense: "over_expense",
	OnBudget:    "on_budget",
}

var budgetStatusMessages = map[BudgetStatus]string{
	Unset:       "Set your budget to see the status",
	OverBoth:    "Overspent on both income and expenses",
	OverIncome:  "Overspent on income",
	OverExpense: "Overspent on expenses",
	OnBudget:    "On budget for both income and expenses",
}

func (s BudgetStatus) String() string {
	if n, ok := budgetStatusNames[s]; ok {
		return n
	}
	return "unknown"
}

// Message is the user-facing sentence for the status.
func (s BudgetStatus) Message() string {
	return budgetStatusMessages[s]
}

// MarshalText encodes the status by name.
func (s BudgetStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ClassifyBudgetStatus compares totals against thresholds; the first matching
// rule wins. Income uses >= while expense uses strict >, so "over income"
// really means the income target was reached.
func ClassifyBudgetStatus(totalIncome, totalExpense decimal.Decimal, t BudgetThresholds) BudgetStatus {
	incomeReached := totalIncome.GreaterThanOrEqual(t.IncomeBudget)
	expenseOver := totalExpense.GreaterThan(t.ExpenseBudget)

	switch {
	case t.IncomeBudget.IsZero() && t.ExpenseBudget.IsZero():
		return Unset
	case incomeReached && expenseOver:
		return OverBoth
	case incomeReached:
		return OverIncome
	case expenseOver:
		return OverExpense
	default:
		return OnBudget
	}
}

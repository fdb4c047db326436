// Package presentation turns aggregate reports into chart series and the
// human-readable status lines shown next to them.
package presentation

import (
	"fmt"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
)

const (
	IncomeLabel       = "Income"
	ExpensesLabel     = "Expenses"
	IncomeBorderColor = "blue"
	ExpenseBorder     = "red"
)

// Dataset mirrors a Chart.js dataset.
type Dataset struct {
	Label           string    `json:"label,omitempty"`
	Data            []float64 `json:"data"`
	BackgroundColor []string  `json:"backgroundColor"`
	BorderColor     string    `json:"borderColor,omitempty"`
	BorderWidth     int       `json:"borderWidth,omitempty"`
}

// ChartData is the `data` block of a Chart.js config.
type ChartData struct {
	Labels   []string  `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

// Row is one category line in the tabular summary.
type Row struct {
	Category string `json:"category"`
	Color    string `json:"color"`
	Income   string `json:"income"`
	Expense  string `json:"expense"`
	Combined string `json:"combined"`
}

// Dashboard is everything the UI needs to render one state of the ledger.
type Dashboard struct {
	Pie           ChartData `json:"pie"`
	Bar           ChartData `json:"bar"`
	Rows          []Row     `json:"rows"`
	TotalIncome   string    `json:"totalIncome"`
	TotalExpense  string    `json:"totalExpense"`
	Savings       string    `json:"savings"`
	SavingsLine   string    `json:"savingsLine"`
	Status        string    `json:"status"`
	BudgetMessage string    `json:"budgetMessage"`
	IncomeBudget  string    `json:"incomeBudget"`
	ExpenseBudget string    `json:"expenseBudget"`
	EntryCount    int       `json:"entryCount"`
	Revision      uint64    `json:"revision"`
	Warning       string    `json:"warning,omitempty"`
}

// SavingsLine formats savings the way the summary panel shows it.
func SavingsLine(savings decimal.Decimal) string {
	return fmt.Sprintf("Savings: %s %s", core.FormatAmount(savings), core.Currency)
}

// BudgetMessage maps a status to its fixed sentence.
func BudgetMessage(s core.BudgetStatus) string {
	return s.Message()
}

// PieChart builds the proportion chart over combined per-category totals.
func PieChart(r core.AggregateReport) ChartData {
	labels := r.Categories()
	data := make([]float64, len(r.PerCategory))
	for i, row := range r.PerCategory {
		data[i] = row.Combined().InexactFloat64()
	}
	return ChartData{
		Labels:   labels,
		Datasets: []Dataset{{Data: data, BackgroundColor: core.Colors(len(labels))}},
	}
}

// BarChart builds the grouped income vs expenses chart.
func BarChart(r core.AggregateReport) ChartData {
	labels := r.Categories()
	colors := core.Colors(len(labels))
	income := make([]float64, len(r.PerCategory))
	expense := make([]float64, len(r.PerCategory))
	for i, row := range r.PerCategory {
		income[i] = row.IncomeTotal.InexactFloat64()
		expense[i] = row.ExpenseTotal.InexactFloat64()
	}
	return ChartData{
		Labels: labels,
		Datasets: []Dataset{
			{Label: IncomeLabel, Data: income, BackgroundColor: colors, BorderColor: IncomeBorderColor, BorderWidth: 1},
			{Label: ExpensesLabel, Data: expense, BackgroundColor: colors, BorderColor: ExpenseBorder, BorderWidth: 1},
		},
	}
}

// NewDashboard renders a report and its thresholds.
func NewDashboard(r core.AggregateReport, t core.BudgetThresholds, entries int, revision uint64) Dashboard {
	rows := make([]Row, len(r.PerCategory))
	for i, row := range r.PerCategory {
		rows[i] = Row{
			Category: row.Category,
			Color:    core.ColorFor(i),
			Income:   core.FormatAmount(row.IncomeTotal),
			Expense:  core.FormatAmount(row.ExpenseTotal),
			Combined: core.FormatAmount(row.Combined()),
		}
	}
	return Dashboard{
		Pie:           PieChart(r),
		Bar:           BarChart(r),
		Rows:          rows,
		TotalIncome:   core.FormatAmount(r.TotalIncome),
		TotalExpense:  core.FormatAmount(r.TotalExpense),
		Savings:       core.FormatAmount(r.Savings),
		SavingsLine:   SavingsLine(r.Savings),
		Status:        r.Status.String(),
		BudgetMessage: BudgetMessage(r.Status),
		IncomeBudget:  core.FormatAmount(t.IncomeBudget),
		ExpenseBudget: core.FormatAmount(t.ExpenseBudget),
		EntryCount:    entries,
		Revision:      revision,
	}
}

// Empty is the dashboard shown right after a clear.
func Empty() Dashboard {
	return NewDashboard(core.ComputeReport(nil, core.BudgetThresholds{}), core.BudgetThresholds{}, 0, 0)
}

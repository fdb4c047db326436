package presentation

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	primaryColor = lipgloss.Color("#4ECDC4")
	warningColor = lipgloss.Color("#FFE66D")
	errorColor   = lipgloss.Color("#FF6B6B")
	subtleColor  = lipgloss.Color("#666666")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.Color("#333"))

	cellStyle    = lipgloss.NewStyle().PaddingRight(2)
	numberStyle  = cellStyle.Align(lipgloss.Right)
	subtleStyle  = lipgloss.NewStyle().Foreground(subtleColor)
	okStyle      = lipgloss.NewStyle().Foreground(primaryColor)
	warnStyle    = lipgloss.NewStyle().Foreground(warningColor)
	errStyle     = lipgloss.NewStyle().Foreground(errorColor)
	summaryStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#333")).
			Padding(0, 1)
)

// RenderTerminal draws the dashboard as a table plus a summary box.
func RenderTerminal(d Dashboard) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Finance report"))
	b.WriteString("\n")

	if len(d.Rows) == 0 {
		b.WriteString(subtleStyle.Render("No entries yet."))
		b.WriteString("\n")
	} else {
		width := len("Category")
		for _, r := range d.Rows {
			width = max(width, lipgloss.Width(r.Category))
		}
		cat := cellStyle.Width(width + 2)
		num := numberStyle.Width(12)

		b.WriteString(headerStyle.Render(lipgloss.JoinHorizontal(lipgloss.Top,
			cat.Render("Category"), num.Render(IncomeLabel), num.Render(ExpensesLabel))))
		b.WriteString("\n")
		for _, r := range d.Rows {
			swatch := lipgloss.NewStyle().Foreground(lipgloss.Color(colorHex(r.Color))).Render("■ ")
			b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
				swatch, cat.Render(r.Category), num.Render(r.Income), num.Render(r.Expense)))
			b.WriteString("\n")
		}
	}

	status := okStyle
	switch d.Status {
	case "over_both":
		status = errStyle
	case "over_income", "over_expense":
		status = warnStyle
	case "unset":
		status = subtleStyle
	}

	summary := strings.Join([]string{
		fmt.Sprintf("Income:   %s", d.TotalIncome),
		fmt.Sprintf("Expenses: %s", d.TotalExpense),
		d.SavingsLine,
		status.Render(d.BudgetMessage),
	}, "\n")
	b.WriteString(summaryStyle.Render(summary))
	b.WriteString("\n")
	if d.Warning != "" {
		b.WriteString(warnStyle.Render("⚠ " + d.Warning))
		b.WriteString("\n")
	}
	return b.String()
}

// FormatSuccess formats a success message with icon.
func FormatSuccess(message string) string {
	return okStyle.Render("✓ " + message)
}

// FormatError formats an error message with icon.
func FormatError(message string) string {
	return errStyle.Render("✗ " + message)
}

// FormatWarning formats a warning message with icon.
func FormatWarning(message string) string {
	return warnStyle.Render("⚠ " + message)
}

// colorHex maps palette names to hex so terminals without named colours
// still render the swatch.
func colorHex(name string) string {
	if hex, ok := cssColors[name]; ok {
		return hex
	}
	return "#FFFFFF"
}

var cssColors = map[string]string{
	"red":            "#FF0000",
	"blue":           "#0000FF",
	"yellow":         "#FFFF00",
	"cyan":           "#00FFFF",
	"purple":         "#800080",
	"orange":         "#FFA500",
	"darkorange":     "#FF8C00",
	"green":          "#008000",
	"blueviolet":     "#8A2BE2",
	"limegreen":      "#32CD32",
	"gold":           "#FFD700",
	"mediumseagreen": "#3CB371",
	"crimson":        "#DC143C",
	"pink":           "#FFC0CB",
}

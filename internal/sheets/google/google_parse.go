package google

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"fintrack/internal/core"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// parseEntryRow converts one Entries row (ID, Type, Category, Amount, Date).
// rowNum is the 1-based sheet row, used only for logging.
func parseEntryRow(ctx context.Context, rowNum int, cols []string) (core.Entry, bool) {
	if strings.Join(cols, "") == "" {
		return core.Entry{}, false
	}
	// the API drops trailing empty cells
	if len(cols) < 5 {
		slog.WarnContext(ctx, "Skipping short entries row", "row", rowNum, "columns", len(cols))
		return core.Entry{}, false
	}

	typ, err := core.ParseEntryType(cols[1])
	if err != nil {
		slog.WarnContext(ctx, "Skipping entries row with unknown type", "row", rowNum, "type", cols[1])
		return core.Entry{}, false
	}
	category := strings.TrimSpace(cols[2])
	if category == "" {
		slog.WarnContext(ctx, "Skipping entries row without category", "row", rowNum)
		return core.Entry{}, false
	}
	date, err := core.ParseDate(cols[4])
	if err != nil {
		slog.WarnContext(ctx, "Skipping entries row with invalid date", "row", rowNum, "date", cols[4])
		return core.Entry{}, false
	}

	id := strings.TrimSpace(cols[0])
	if id == "" {
		id = uuid.NewString()
	}
	return core.Entry{
		ID:       id,
		Type:     typ,
		Category: category,
		Amount:   parseCellAmount(ctx, rowNum, cols[3]),
		Date:     date,
	}, true
}

// parseCellAmount treats malformed or negative amounts as zero.
func parseCellAmount(ctx context.Context, rowNum int, s string) decimal.Decimal {
	d, err := core.ParseAmount(s)
	if err != nil {
		slog.WarnContext(ctx, "Treating malformed amount as zero", "row", rowNum, "amount", s, "error", err)
		return decimal.Zero
	}
	return d
}

func parseBudgetRow(ctx context.Context, rows [][]interface{}) core.BudgetThresholds {
	t := core.BudgetThresholds{IncomeBudget: decimal.Zero, ExpenseBudget: decimal.Zero}
	if len(rows) == 0 {
		return t
	}
	cols := toStrings(rows[0])
	if len(cols) > 0 && strings.TrimSpace(cols[0]) != "" {
		t.IncomeBudget = parseCellAmount(ctx, 2, cols[0])
	}
	if len(cols) > 1 && strings.TrimSpace(cols[1]) != "" {
		t.ExpenseBudget = parseCellAmount(ctx, 2, cols[1])
	}
	return t
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

package sheets

import (
	"context"
	"time"

	"fintrack/internal/core"
)

// Ports for outbound adapters.
type (
	// ReportWriter publishes a computed report somewhere humans can read it.
	ReportWriter interface {
		WriteReport(ctx context.Context, r core.AggregateReport, generatedAt time.Time) error
	}
)

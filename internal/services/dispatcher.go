package services

import (
	"context"
	"fmt"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/metrics"
	"fintrack/internal/presentation"
)

// Action names a user-triggered ledger operation.
type Action string

const (
	ActionAddEntry  Action = "add-entry"
	ActionSetBudget Action = "set-budget"
	ActionClear     Action = "clear"
	ActionImport    Action = "import"
	ActionRefresh   Action = "refresh"
)

// UnsavedWarning is shown while the latest change exists only in memory.
const UnsavedWarning = "Changes could not be saved and will be lost on restart"

// Command is the input of one dispatch. Only the fields relevant to the
// action are read.
type Command struct {
	Action  Action
	Entry   core.RawEntry
	Budget  core.RawBudget
	Entries []core.Entry // ActionImport
}

// Outcome is the rendered result of a dispatch.
type Outcome struct {
	Action    Action
	Change    Change
	Entry     *core.Entry
	Dashboard presentation.Dashboard
}

// Handler applies one action to the ledger.
type Handler func(ctx context.Context, l *LedgerService, cmd Command) (Outcome, error)

// Renderer turns the ledger view into what the caller displays.
type Renderer func(v View) presentation.Dashboard

// DefaultRenderer renders the view with presentation.NewDashboard.
func DefaultRenderer(v View) presentation.Dashboard {
	return presentation.NewDashboard(v.Report, v.Thresholds, len(v.Entries), v.Revision)
}

// Dispatcher routes actions through an explicit handler table and always
// finishes with a render step.
type Dispatcher struct {
	ledger   *LedgerService
	handlers map[Action]Handler
	render   Renderer
	logger   *log.Logger
	metrics  *metrics.Metrics
}

func NewDispatcher(ledger *LedgerService, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		ledger: ledger,
		handlers: map[Action]Handler{
			ActionAddEntry:  handleAddEntry,
			ActionSetBudget: handleSetBudget,
			ActionClear:     handleClear,
			ActionImport:    handleImport,
			ActionRefresh:   handleRefresh,
		},
		render: DefaultRenderer,
		logger: ledger.logger,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

type DispatcherOption func(*Dispatcher)

func WithRenderer(r Renderer) DispatcherOption {
	return func(d *Dispatcher) { d.render = r }
}

func WithHandler(a Action, h Handler) DispatcherOption {
	return func(d *Dispatcher) { d.handlers[a] = h }
}

func WithDispatchMetrics(m *metrics.Metrics) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = m }
}

// Ledger returns the ledger the dispatcher drives.
func (d *Dispatcher) Ledger() *LedgerService {
	return d.ledger
}

// Dispatch runs the handler for cmd.Action and then renders the ledger.
// Validation failures return an error and leave the ledger untouched.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd Command) (Outcome, error) {
	h, ok := d.handlers[cmd.Action]
	if !ok {
		return Outcome{}, fmt.Errorf("unknown action %q", cmd.Action)
	}

	start := time.Now()
	out, err := h(ctx, d.ledger, cmd)
	d.record(ctx, cmd.Action, out, err, time.Since(start))
	if err != nil {
		return Outcome{Action: cmd.Action}, err
	}

	out.Action = cmd.Action
	out.Dashboard = d.render(d.ledger.View())
	if out.Change.PersistErr != nil {
		out.Dashboard.Warning = UnsavedWarning
	}
	return out, nil
}

func (d *Dispatcher) record(ctx context.Context, a Action, out Outcome, err error, took time.Duration) {
	outcome := "ok"
	switch {
	case err != nil && core.IsValidation(err):
		outcome = "invalid"
		if d.metrics != nil {
			d.metrics.ValidationFailures.WithLabelValues(string(a)).Inc()
		}
		d.logger.DebugContext(ctx, "Rejected input", log.FieldAction, string(a), log.FieldError, err.Error())
	case err != nil:
		outcome = "error"
		d.logger.ErrorContext(ctx, "Action failed", log.FieldAction, string(a), log.FieldError, err.Error())
	case out.Change.PersistErr != nil:
		outcome = "unsaved"
	}
	if d.metrics != nil {
		d.metrics.Actions.WithLabelValues(string(a), outcome).Inc()
	}
	if err == nil && a != ActionRefresh {
		d.logger.InfoContext(ctx, "Action applied",
			log.FieldAction, string(a),
			log.FieldRevision, out.Change.Revision,
			"outcome", outcome,
			log.FieldDuration, took.Milliseconds())
	}
}

func handleAddEntry(ctx context.Context, l *LedgerService, cmd Command) (Outcome, error) {
	e, change, err := l.AddEntry(ctx, cmd.Entry)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Change: change, Entry: &e}, nil
}

func handleSetBudget(ctx context.Context, l *LedgerService, cmd Command) (Outcome, error) {
	_, change, err := l.SetBudget(ctx, cmd.Budget)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Change: change}, nil
}

func handleClear(ctx context.Context, l *LedgerService, _ Command) (Outcome, error) {
	change, err := l.Clear(ctx)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Change: change}, nil
}

func handleImport(ctx context.Context, l *LedgerService, cmd Command) (Outcome, error) {
	if len(cmd.Entries) == 0 {
		return Outcome{Change: Change{Revision: l.Revision()}}, nil
	}
	change, err := l.AppendEntries(ctx, ActionImport, cmd.Entries...)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Change: change}, nil
}

func handleRefresh(_ context.Context, l *LedgerService, _ Command) (Outcome, error) {
	return Outcome{Change: Change{Revision: l.Revision()}}, nil
}

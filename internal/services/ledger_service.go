package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/metrics"
	"fintrack/internal/storage"

	"github.com/shopspring/decimal"
)

// ErrNotOpen is returned when the ledger is used before Open.
var ErrNotOpen = errors.New("ledger not opened")

// Publisher announces persisted ledger changes.
type Publisher interface {
	PublishLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error
}

// Change describes the effect of one mutation.
type Change struct {
	Revision uint64
	// PersistErr is set when the mutation was applied in memory but could
	// not be saved. The ledger keeps going; callers should warn the user.
	PersistErr error
}

// View is a consistent read of the ledger state.
type View struct {
	Entries    []core.Entry
	Thresholds core.BudgetThresholds
	Report     core.AggregateReport
	Revision   uint64
}

// LedgerService owns the entries and thresholds. Every mutation is applied,
// saved and then announced before the call returns.
type LedgerService struct {
	store     storage.Store
	publisher Publisher
	logger    *log.Logger
	metrics   *metrics.Metrics

	mu         sync.RWMutex
	opened     bool
	entries    []core.Entry
	thresholds core.BudgetThresholds
	revision   uint64
}

type Option func(*LedgerService)

func WithPublisher(p Publisher) Option {
	return func(s *LedgerService) { s.publisher = p }
}

func WithLogger(l *log.Logger) Option {
	return func(s *LedgerService) { s.logger = l.WithComponent(log.ComponentLedger) }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *LedgerService) { s.metrics = m }
}

func NewLedgerService(store storage.Store, opts ...Option) *LedgerService {
	s := &LedgerService{
		store:  store,
		logger: log.New(log.DefaultConfig()).WithComponent(log.ComponentLedger),
		thresholds: core.BudgetThresholds{
			IncomeBudget:  decimal.Zero,
			ExpenseBudget: decimal.Zero,
		},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Open loads the persisted state. It must be called once before use.
func (s *LedgerService) Open(ctx context.Context) error {
	snap, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}

	s.mu.Lock()
	s.entries = snap.Entries
	s.thresholds = snap.Thresholds
	s.opened = true
	s.mu.Unlock()

	s.observe(snap.Entries, snap.Thresholds)
	s.logger.InfoContext(ctx, "Ledger opened", log.FieldEntryCount, len(snap.Entries))
	return nil
}

// AddEntry validates raw input and appends the resulting entry.
func (s *LedgerService) AddEntry(ctx context.Context, raw core.RawEntry) (core.Entry, Change, error) {
	e, err := core.NewEntryFromInput(raw)
	if err != nil {
		return core.Entry{}, Change{}, err
	}
	change, err := s.AppendEntries(ctx, ActionAddEntry, e)
	return e, change, err
}

// AppendEntries appends already validated entries with a single save.
func (s *LedgerService) AppendEntries(ctx context.Context, action Action, entries ...core.Entry) (Change, error) {
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return Change{}, &core.ValidationError{Cause: err}
		}
	}
	return s.mutate(ctx, action, func() {
		s.entries = append(s.entries, entries...)
	})
}

// SetBudget replaces both thresholds. Empty fields mean unset.
func (s *LedgerService) SetBudget(ctx context.Context, raw core.RawBudget) (core.BudgetThresholds, Change, error) {
	t, err := core.NewBudgetFromInput(raw)
	if err != nil {
		return core.BudgetThresholds{}, Change{}, err
	}
	change, err := s.mutate(ctx, ActionSetBudget, func() {
		s.thresholds = t
	})
	return t, change, err
}

// Clear drops every entry and resets both thresholds.
func (s *LedgerService) Clear(ctx context.Context) (Change, error) {
	return s.mutate(ctx, ActionClear, func() {
		s.entries = nil
		s.thresholds = core.BudgetThresholds{IncomeBudget: decimal.Zero, ExpenseBudget: decimal.Zero}
	})
}

func (s *LedgerService) mutate(ctx context.Context, action Action, apply func()) (Change, error) {
	s.mu.Lock()
	if !s.opened {
		s.mu.Unlock()
		return Change{}, ErrNotOpen
	}
	apply()
	s.revision++
	snap := storage.Snapshot{Entries: s.entries, Thresholds: s.thresholds}.Clone()
	rev := s.revision

	// save under the lock so concurrent mutations persist in order
	persistErr := s.store.Save(ctx, snap)
	s.mu.Unlock()

	change := Change{Revision: rev}
	if persistErr != nil {
		change.PersistErr = fmt.Errorf("persist ledger: %w", persistErr)
		s.logger.WarnContext(ctx, "Ledger changes kept in memory only",
			log.FieldAction, string(action),
			log.FieldRevision, rev,
			log.FieldError, persistErr.Error())
		if s.metrics != nil {
			s.metrics.PersistFailures.Inc()
		}
	}

	s.observe(snap.Entries, snap.Thresholds)
	s.publish(ctx, action, rev, len(snap.Entries), persistErr == nil)
	return change, nil
}

func (s *LedgerService) publish(ctx context.Context, action Action, rev uint64, entries int, persisted bool) {
	if s.publisher == nil {
		return
	}
	msg := amqp.NewLedgerChangedMessage(string(action), rev, entries, persisted)
	if err := s.publisher.PublishLedgerChanged(ctx, msg); err != nil {
		// the change is already applied; the report worker catches up on the next event
		s.logger.ErrorContext(ctx, "Failed to publish ledger change",
			log.FieldAction, string(action),
			log.FieldRevision, rev,
			log.FieldError, err.Error())
		if s.metrics != nil {
			s.metrics.PublishFailures.Inc()
		}
	}
}

func (s *LedgerService) observe(entries []core.Entry, t core.BudgetThresholds) {
	if s.metrics == nil {
		return
	}
	r := core.ComputeReport(entries, t)
	s.metrics.Entries.Set(float64(len(entries)))
	s.metrics.Savings.Set(r.Savings.InexactFloat64())
}

// View returns a copy of the current state together with its report.
func (s *LedgerService) View() View {
	s.mu.RLock()
	snap := storage.Snapshot{Entries: s.entries, Thresholds: s.thresholds}.Clone()
	rev := s.revision
	s.mu.RUnlock()

	return View{
		Entries:    snap.Entries,
		Thresholds: snap.Thresholds,
		Report:     core.ComputeReport(snap.Entries, snap.Thresholds),
		Revision:   rev,
	}
}

// Revision increments on every mutation, including failed saves.
func (s *LedgerService) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// Close releases the store and publisher when they hold resources.
func (s *LedgerService) Close() error {
	var errs []error
	if c, ok := s.store.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if c, ok := s.publisher.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %w", errors.Join(errs...))
	}
	return nil
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

// SQLiteStore persists the ledger in a local SQLite database.
type SQLiteStore struct {
	db      *sql.DB
	queries *Queries
}

var _ Store = (*SQLiteStore)(nil)

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db, queries: New(db)}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping checks the database connection for readiness probes.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Load reads every entry in insertion order plus the budget row.
func (s *SQLiteStore) Load(ctx context.Context) (Snapshot, error) {
	rows, err := s.queries.ListEntries(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list entries: %w", err)
	}

	var snap Snapshot
	for _, r := range rows {
		e, err := entryFromRow(r)
		if err != nil {
			return Snapshot{}, fmt.Errorf("decode entry %s: %w", r.ID, err)
		}
		snap.Entries = append(snap.Entries, e)
	}

	b, err := s.queries.GetBudget(ctx)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		snap.Thresholds = core.BudgetThresholds{IncomeBudget: decimal.Zero, ExpenseBudget: decimal.Zero}
	case err != nil:
		return Snapshot{}, fmt.Errorf("get budget: %w", err)
	default:
		if snap.Thresholds, err = thresholdsFromRow(b); err != nil {
			return Snapshot{}, fmt.Errorf("decode budget: %w", err)
		}
	}

	slog.DebugContext(ctx, "Ledger loaded from SQLite", "entries", len(snap.Entries))
	return snap, nil
}

// Save replaces the stored state with s in a single transaction.
func (s *SQLiteStore) Save(ctx context.Context, snap Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	q := s.queries.WithTx(tx)
	if err := q.DeleteAllEntries(ctx); err != nil {
		return fmt.Errorf("delete entries: %w", err)
	}
	for i, e := range snap.Entries {
		if err := q.InsertEntry(ctx, rowFromEntry(int64(i), e)); err != nil {
			return fmt.Errorf("insert entry %s: %w", e.ID, err)
		}
	}
	if err := q.UpsertBudget(ctx, BudgetRow{
		IncomeBudget:  snap.Thresholds.IncomeBudget.String(),
		ExpenseBudget: snap.Thresholds.ExpenseBudget.String(),
	}); err != nil {
		return fmt.Errorf("upsert budget: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	slog.InfoContext(ctx, "Ledger saved to SQLite",
		"entries", len(snap.Entries),
		"income_budget", snap.Thresholds.IncomeBudget.String(),
		"expense_budget", snap.Thresholds.ExpenseBudget.String())
	return nil
}

func rowFromEntry(seq int64, e core.Entry) EntryRow {
	return EntryRow{
		ID:        e.ID,
		Seq:       seq,
		EntryType: string(e.Type),
		Category:  e.Category,
		Amount:    e.Amount.String(),
		EntryDate: e.Date.String(),
	}
}

func entryFromRow(r EntryRow) (core.Entry, error) {
	amount, err := decimal.NewFromString(r.Amount)
	if err != nil {
		return core.Entry{}, fmt.Errorf("%w: %q", core.ErrMalformedAmount, r.Amount)
	}
	date, err := core.ParseDate(r.EntryDate)
	if err != nil {
		return core.Entry{}, err
	}
	return core.Entry{
		ID:       r.ID,
		Type:     core.EntryType(r.EntryType),
		Category: r.Category,
		Amount:   amount,
		Date:     date,
	}, nil
}

func thresholdsFromRow(b BudgetRow) (core.BudgetThresholds, error) {
	income, err := decimal.NewFromString(b.IncomeBudget)
	if err != nil {
		return core.BudgetThresholds{}, err
	}
	expense, err := decimal.NewFromString(b.ExpenseBudget)
	if err != nil {
		return core.BudgetThresholds{}, err
	}
	return core.BudgetThresholds{IncomeBudget: income, ExpenseBudget: expense}, nil
}

package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type EntryRow struct {
	ID        string
	Seq       int64
	EntryType string
	Category  string
	Amount    string
	EntryDate string
}

type BudgetRow struct {
	IncomeBudget  string
	ExpenseBudget string
}

const listEntries = `SELECT id, seq, entry_type, category, amount, entry_date FROM entries ORDER BY seq ASC`

func (q *Queries) ListEntries(ctx context.Context) ([]EntryRow, error) {
	rows, err := q.db.QueryContext(ctx, listEntries)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []EntryRow
	for rows.Next() {
		var i EntryRow
		if err := rows.Scan(&i.ID, &i.Seq, &i.EntryType, &i.Category, &i.Amount, &i.EntryDate); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countEntries = `SELECT COUNT(*) FROM entries`

func (q *Queries) CountEntries(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countEntries).Scan(&n)
	return n, err
}

const deleteAllEntries = `DELETE FROM entries`

func (q *Queries) DeleteAllEntries(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteAllEntries)
	return err
}

const insertEntry = `INSERT INTO entries (id, seq, entry_type, category, amount, entry_date) VALUES (?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertEntry(ctx context.Context, arg EntryRow) error {
	_, err := q.db.ExecContext(ctx, insertEntry, arg.ID, arg.Seq, arg.EntryType, arg.Category, arg.Amount, arg.EntryDate)
	return err
}

const getBudget = `SELECT income_budget, expense_budget FROM budget WHERE id = 1`

func (q *Queries) GetBudget(ctx context.Context) (BudgetRow, error) {
	var b BudgetRow
	err := q.db.QueryRowContext(ctx, getBudget).Scan(&b.IncomeBudget, &b.ExpenseBudget)
	return b, err
}

const upsertBudget = `INSERT INTO budget (id, income_budget, expense_budget, updated_at) VALUES (1, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(id) DO UPDATE SET income_budget = excluded.income_budget, expense_budget = excluded.expense_budget, updated_at = CURRENT_TIMESTAMP`

func (q *Queries) UpsertBudget(ctx context.Context, arg BudgetRow) error {
	_, err := q.db.ExecContext(ctx, upsertBudget, arg.IncomeBudget, arg.ExpenseBudget)
	return err
}

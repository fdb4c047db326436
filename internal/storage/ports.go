package storage

import (
	"context"

	"fintrack/internal/core"
)

// Snapshot is the complete persisted state of a ledger.
type Snapshot struct {
	Entries    []core.Entry
	Thresholds core.BudgetThresholds
}

// Store persists ledger snapshots. Load is called once at startup and Save
// after every mutation; Load(Save(s)) must return s.
type Store interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, s Snapshot) error
}

// Clone returns a deep copy so callers can't alias the entry slice.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{Thresholds: s.Thresholds}
	if len(s.Entries) > 0 {
		out.Entries = make([]core.Entry, len(s.Entries))
		copy(out.Entries, s.Entries)
	}
	return out
}

// Equal compares snapshots by value, using decimal equality for amounts.
func (s Snapshot) Equal(o Snapshot) bool {
	if !s.Thresholds.Equal(o.Thresholds) || len(s.Entries) != len(o.Entries) {
		return false
	}
	for i, e := range s.Entries {
		f := o.Entries[i]
		if e.ID != f.ID || e.Type != f.Type || e.Category != f.Category ||
			!e.Amount.Equal(f.Amount) || !e.Date.Equal(f.Date.Time) {
			return false
		}
	}
	return true
}

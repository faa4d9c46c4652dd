/*
store.go - Persistence interfaces for catalog, students, settings and history

PURPOSE:
  Defines the interface between the engine and whatever holds the records.
  The engine treats stored rows as mutable snapshots owned by external CRUD;
  it reads the current snapshot at each decision point and writes back the
  rows it mutated.

IMPLEMENTATIONS:
  - library/store/memory.go: In-memory, for tests and single-process use
  - store/sqlite/sqlite.go:  SQLite-backed production store

COPY SEMANTICS:
  List and Get return snapshots the caller may mutate freely; only Save
  writes anything back (insert-or-replace). Implementations must hand out
  copies, not aliases into their internal state.

SEE ALSO:
  - loan.go: The lifecycle manager consuming these interfaces
  - history.go: HistoryStore entry shape
*/
package library

import "context"

// =============================================================================
// CATALOG STORE
// =============================================================================

// CatalogStore persists raw book rows.
type CatalogStore interface {
	// List returns a snapshot of every row.
	List(ctx context.Context) ([]Book, error)

	// Get returns one row by id, or ErrNotFound.
	Get(ctx context.Context, id BookID) (*Book, error)

	// Save inserts or replaces a row.
	Save(ctx context.Context, b *Book) error

	// Delete removes a row. Loans referencing it become orphaned and are
	// excluded from counts by the policy layer.
	Delete(ctx context.Context, id BookID) error
}

// =============================================================================
// STUDENT STORE
// =============================================================================

// StudentStore persists student records keyed by Student.Key().
type StudentStore interface {
	List(ctx context.Context) ([]Student, error)

	// Get returns the student with the given key, or ErrNotFound.
	Get(ctx context.Context, key string) (*Student, error)

	Save(ctx context.Context, s *Student) error
	Delete(ctx context.Context, key string) error
}

// =============================================================================
// SETTINGS STORE
// =============================================================================

// SettingsStore provides the policy limits. Policy never fails with an empty
// store: implementations fall back to DefaultPolicy.
type SettingsStore interface {
	Policy(ctx context.Context) (PolicyConfig, error)
	SavePolicy(ctx context.Context, cfg PolicyConfig) error
}

// =============================================================================
// HISTORY STORE - Append-only
// =============================================================================

// HistoryStore records completed and opened loan cycles. Append-only: no
// update, no delete. Statistics are derived by replaying entries.
type HistoryStore interface {
	Append(ctx context.Context, e HistoryEntry) error
	Query(ctx context.Context, f HistoryFilter) ([]HistoryEntry, error)
}

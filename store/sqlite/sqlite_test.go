package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/library-engine/library"
	"github.com/warp/library-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func sampleBook(id string) *library.Book {
	return &library.Book{
		ID:            library.BookID(id),
		Title:         "Dune",
		Author:        "Frank Herbert",
		Category:      "Science Fiction",
		Quantity:      2,
		TotalQuantity: 3,
		HealthyCount:  2,
		Loans: []library.Loan{{
			ID:         "l1",
			BookID:     library.BookID(id),
			Borrower:   "Ada Lovelace",
			BorrowedAt: time.Date(2026, time.February, 1, 9, 0, 0, 0, time.UTC),
			DueDate:    time.Date(2026, time.February, 15, 9, 0, 0, 0, time.UTC),
			Personnel:  "Ms. Reed",
		}},
		Publisher: "Chilton",
		Year:      1965,
		PageCount: 412,
	}
}

// =============================================================================
// CATALOG TESTS
// =============================================================================

func TestCatalog_SaveAndGetRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	want := sampleBook("b1")
	require.NoError(t, st.Save(ctx, want))

	got, err := st.Get(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestCatalog_SaveIsUpsert(t *testing.T) {
	// GIVEN: A stored book
	// WHEN: Saving it again with a loan removed and quantity restored
	// THEN: The second save replaces the row, including the loans column

	st := newTestStore(t)
	ctx := context.Background()

	b := sampleBook("b1")
	require.NoError(t, st.Save(ctx, b))

	b.Loans = nil
	b.Quantity = 3
	b.HealthyCount = 3
	b.RecomputeTotal()
	require.NoError(t, st.Save(ctx, b))

	got, err := st.Get(ctx, "b1")
	require.NoError(t, err)
	assert.Empty(t, got.Loans)
	assert.Equal(t, 3, got.Quantity)
	assert.Equal(t, 3, got.TotalQuantity)

	rows, err := st.List(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestCatalog_ListPreservesInsertionOrder(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"z", "a", "m"} {
		b := sampleBook(id)
		b.Loans = nil
		require.NoError(t, st.Save(ctx, b))
	}

	rows, err := st.List(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, library.BookID("z"), rows[0].ID)
	assert.Equal(t, library.BookID("a"), rows[1].ID)
	assert.Equal(t, library.BookID("m"), rows[2].ID)
}

func TestCatalog_GetAndDeleteMissing(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, err := st.Get(ctx, "nope")
	assert.ErrorIs(t, err, library.ErrNotFound)
	assert.ErrorIs(t, st.Delete(ctx, "nope"), library.ErrNotFound)
}

// =============================================================================
// STUDENT TESTS
// =============================================================================

func TestStudents_RoundTripAndKeying(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	byNumber := &library.Student{StudentNumber: 7, Name: "Ada", Surname: "Lovelace", Class: 9, Branch: "A"}
	byName := &library.Student{Name: "Grace", Surname: "Hopper"}
	require.NoError(t, st.SaveStudent(ctx, byNumber))
	require.NoError(t, st.SaveStudent(ctx, byName))

	got, err := st.GetStudent(ctx, "student:7")
	require.NoError(t, err)
	assert.Equal(t, byNumber, got)

	got, err = st.GetStudent(ctx, "student-name:grace hopper")
	require.NoError(t, err)
	assert.Equal(t, "Hopper", got.Surname)

	all, err := st.ListStudents(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestStudents_SaveWithoutIdentityRejected(t *testing.T) {
	st := newTestStore(t)
	err := st.SaveStudent(context.Background(), &library.Student{})
	assert.ErrorIs(t, err, library.ErrValidation)
}

func TestStudents_DeleteMissing(t *testing.T) {
	st := newTestStore(t)
	assert.ErrorIs(t, st.DeleteStudent(context.Background(), "student:404"), library.ErrNotFound)
}

// =============================================================================
// SETTINGS TESTS
// =============================================================================

func TestPolicy_DefaultsWhenUnset(t *testing.T) {
	st := newTestStore(t)

	cfg, err := st.Policy(context.Background())
	require.NoError(t, err)
	assert.Equal(t, library.DefaultPolicy(), cfg)
}

func TestPolicy_SaveAndReload(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	want := library.PolicyConfig{MaxBorrowLimit: 3, MaxPenaltyPoints: 60}
	require.NoError(t, st.SavePolicy(ctx, want))

	got, err := st.Policy(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// Second save overwrites the single settings row.
	want.MaxBorrowLimit = 8
	require.NoError(t, st.SavePolicy(ctx, want))
	got, err = st.Policy(ctx)
	require.NoError(t, err)
	assert.Equal(t, 8, got.MaxBorrowLimit)
}

// =============================================================================
// HISTORY TESTS
// =============================================================================

func TestHistory_AppendAndFilter(t *testing.T) {
	// GIVEN: Entries for two borrowers and two books
	// WHEN: Querying with borrower and status filters
	// THEN: Matching happens on normalized names and exact status

	st := newTestStore(t)
	ctx := context.Background()

	borrowedAt := time.Date(2026, time.February, 1, 9, 0, 0, 0, time.UTC)
	returnedAt := borrowedAt.AddDate(0, 0, 16)
	entries := []library.HistoryEntry{
		{ID: "h1", LoanID: "l1", Status: library.StatusBorrowed, BookID: "b1", Borrower: "Ada Lovelace",
			BorrowedAt: borrowedAt, DueDate: borrowedAt.AddDate(0, 0, 14), BorrowPersonnel: "Ms. Reed"},
		{ID: "h2", LoanID: "l1", Status: library.StatusReturned, BookID: "b1", Borrower: "Ada Lovelace",
			BorrowedAt: borrowedAt, DueDate: borrowedAt.AddDate(0, 0, 14), ReturnedAt: &returnedAt,
			WasLate: true, LateDays: 2, Condition: library.ConditionHealthy, ReturnPersonnel: "Mr. Price"},
		{ID: "h3", LoanID: "l2", Status: library.StatusBorrowed, BookID: "b2", Borrower: "Grace Hopper",
			BorrowedAt: borrowedAt.AddDate(0, 0, 1), DueDate: borrowedAt.AddDate(0, 0, 15)},
	}
	for _, e := range entries {
		require.NoError(t, st.Append(ctx, e))
	}

	got, err := st.Query(ctx, library.HistoryFilter{Borrower: "ADA  lovelace"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "h1", got[0].ID)
	assert.True(t, got[1].WasLate)
	require.NotNil(t, got[1].ReturnedAt)
	assert.Equal(t, returnedAt, got[1].ReturnedAt.UTC())

	got, err = st.Query(ctx, library.HistoryFilter{Status: library.StatusBorrowed})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = st.Query(ctx, library.HistoryFilter{BookID: "b2"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "h3", got[0].ID)
}

// =============================================================================
// ENGINE INTEGRATION TESTS
// =============================================================================

func TestEngine_FullCycleOnSQLite(t *testing.T) {
	// GIVEN: A manager wired entirely to the SQLite store
	// WHEN: Borrowing and returning a book
	// THEN: Rows, counters and history survive the round trips

	st := newTestStore(t)
	ctx := context.Background()

	b := sampleBook("b1")
	b.Loans = nil
	b.Quantity = 1
	b.HealthyCount = 1
	b.RecomputeTotal()
	require.NoError(t, st.Save(ctx, b))
	require.NoError(t, st.SaveStudent(ctx, &library.Student{StudentNumber: 7, Name: "Ada", Surname: "Lovelace"}))

	m := library.NewManager(st, st.Students(), st, st)

	outcome, err := m.AttemptBorrow(ctx, []library.BookID{"b1"}, "7", 14, "Ms. Reed")
	require.NoError(t, err)
	require.Len(t, outcome.Borrowed, 1)

	stored, err := st.Get(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Quantity)
	assert.Len(t, stored.Loans, 1)

	_, err = m.ReturnLoan(ctx, "b1", "Ada Lovelace", "Mr. Price", "")
	require.NoError(t, err)

	stored, err = st.Get(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Quantity)
	assert.Empty(t, stored.Loans)

	history, err := st.Query(ctx, library.HistoryFilter{Borrower: "Ada Lovelace"})
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

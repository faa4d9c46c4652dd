package library_test

import (
	"testing"

	"github.com/warp/library-engine/library"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func row(id, title, author string, qty int, loans ...library.Loan) library.Book {
	return library.Book{
		ID:           library.BookID(id),
		Title:        title,
		Author:       author,
		Quantity:     qty,
		HealthyCount: qty,
		Loans:        loans,
	}
}

func loanBy(id, bookID, borrower string) library.Loan {
	return library.Loan{
		ID:       library.LoanID(id),
		BookID:   library.BookID(bookID),
		Borrower: borrower,
	}
}

// toRows maps consolidated output back to raw rows so consolidation can be
// re-run on its own result.
func toRows(books []library.LogicalBook) []library.Book {
	out := make([]library.Book, 0, len(books))
	for _, b := range books {
		out = append(out, b.Book)
	}
	return out
}

// =============================================================================
// MERGE KEY TESTS
// =============================================================================

func TestConsolidate_CaseAndSpacingInsensitiveKey(t *testing.T) {
	// GIVEN: Three rows whose titles differ only in casing and whitespace
	// WHEN: Consolidating
	// THEN: All three fold into one logical book

	rows := []library.Book{
		row("b1", "Dune", "Frank Herbert", 1),
		row("b2", "  dune ", "frank  herbert", 2),
		row("b3", "DUNE", "Frank Herbert ", 3),
	}

	got := library.Consolidate(rows)
	if len(got) != 1 {
		t.Fatalf("expected 1 logical book, got %d", len(got))
	}
	if got[0].Quantity != 6 {
		t.Errorf("expected quantity 6, got %d", got[0].Quantity)
	}
	if len(got[0].MergedFrom) != 3 {
		t.Errorf("expected 3 merged rows, got %v", got[0].MergedFrom)
	}
}

func TestConsolidate_DifferentAuthorsStaySeparate(t *testing.T) {
	// GIVEN: Same title from two different authors
	// WHEN: Consolidating
	// THEN: Two logical books remain

	rows := []library.Book{
		row("b1", "Collected Poems", "Auden", 1),
		row("b2", "Collected Poems", "Plath", 1),
	}

	got := library.Consolidate(rows)
	if len(got) != 2 {
		t.Fatalf("expected 2 logical books, got %d", len(got))
	}
}

// =============================================================================
// ARITHMETIC TESTS
// =============================================================================

func TestConsolidate_TotalQuantityRecomputed(t *testing.T) {
	// GIVEN: Row A with 2 shelf copies, row B with 1 shelf copy and 1 loan;
	//        both carry stale stored totals
	// WHEN: Consolidating
	// THEN: quantity=3, one loan, totalQuantity=4 regardless of stored values

	a := row("a", "Dune", "Frank Herbert", 2)
	a.TotalQuantity = 99
	b := row("b", "Dune", "Frank Herbert", 1, loanBy("l1", "b", "Ada Lovelace"))
	b.TotalQuantity = 0

	got := library.Consolidate([]library.Book{a, b})
	if len(got) != 1 {
		t.Fatalf("expected 1 logical book, got %d", len(got))
	}
	lb := got[0]
	if lb.Quantity != 3 {
		t.Errorf("expected quantity 3, got %d", lb.Quantity)
	}
	if len(lb.Loans) != 1 {
		t.Errorf("expected 1 loan, got %d", len(lb.Loans))
	}
	if lb.TotalQuantity != 4 {
		t.Errorf("expected totalQuantity 4, got %d", lb.TotalQuantity)
	}
}

func TestConsolidate_SingletonTotalAlsoRecomputed(t *testing.T) {
	// GIVEN: A single row with a stale stored total
	// WHEN: Consolidating
	// THEN: The stale value is discarded even without a merge partner

	a := row("a", "Dune", "Frank Herbert", 2, loanBy("l1", "a", "Ada Lovelace"))
	a.TotalQuantity = 42

	got := library.Consolidate([]library.Book{a})
	if got[0].TotalQuantity != 3 {
		t.Errorf("expected totalQuantity 3, got %d", got[0].TotalQuantity)
	}
}

// =============================================================================
// FIELD MERGE TESTS
// =============================================================================

func TestConsolidate_FirstNonEmptyWins_PageCountMax(t *testing.T) {
	// GIVEN: The seed row has no publisher and a small page count; a later row
	//        fills both
	// WHEN: Consolidating
	// THEN: Publisher comes from the first row that has one, pageCount is max

	a := row("a", "Dune", "Frank Herbert", 1)
	a.PageCount = 400
	b := row("b", "Dune", "Frank Herbert", 1)
	b.Publisher = "Chilton"
	b.PageCount = 412
	c := row("c", "Dune", "Frank Herbert", 1)
	c.Publisher = "Ace"
	c.PageCount = 200

	got := library.Consolidate([]library.Book{a, b, c})
	if got[0].Publisher != "Chilton" {
		t.Errorf("expected publisher Chilton, got %q", got[0].Publisher)
	}
	if got[0].PageCount != 412 {
		t.Errorf("expected pageCount 412, got %d", got[0].PageCount)
	}
}

func TestConsolidate_IdentityIsFirstSeenRow(t *testing.T) {
	// GIVEN: Two mergeable rows in a fixed order
	// WHEN: Consolidating
	// THEN: The logical id is the first row's id, MergedFrom preserves order

	got := library.Consolidate([]library.Book{
		row("first", "Dune", "Frank Herbert", 1),
		row("second", "Dune", "Frank Herbert", 1),
	})
	if got[0].ID != "first" {
		t.Errorf("expected id 'first', got %q", got[0].ID)
	}
	if len(got[0].MergedFrom) != 2 || got[0].MergedFrom[0] != "first" || got[0].MergedFrom[1] != "second" {
		t.Errorf("unexpected MergedFrom: %v", got[0].MergedFrom)
	}
}

// =============================================================================
// SKIP AND IDEMPOTENCE TESTS
// =============================================================================

func TestConsolidate_RowsMissingTitleOrAuthorSkipped(t *testing.T) {
	// GIVEN: A valid row plus rows missing title or author
	// WHEN: Consolidating with a counting skip logger
	// THEN: Only the valid row survives; both bad rows are reported

	prev := library.SkipLogger
	defer func() { library.SkipLogger = prev }()
	var skipped []library.BookID
	library.SkipLogger = func(b *library.Book) { skipped = append(skipped, b.ID) }

	got := library.Consolidate([]library.Book{
		row("ok", "Dune", "Frank Herbert", 1),
		row("no-title", "", "Frank Herbert", 1),
		row("no-author", "Dune", "", 1),
	})
	if len(got) != 1 || got[0].ID != "ok" {
		t.Fatalf("expected only row 'ok', got %+v", got)
	}
	if len(skipped) != 2 {
		t.Errorf("expected 2 skipped rows, got %v", skipped)
	}
}

func TestConsolidate_Idempotent(t *testing.T) {
	// GIVEN: Consolidated output fed back in as raw rows
	// WHEN: Consolidating again
	// THEN: Nothing changes

	rows := []library.Book{
		row("a", "Dune", "Frank Herbert", 2, loanBy("l1", "a", "Ada Lovelace")),
		row("b", "dune", "FRANK HERBERT", 1),
		row("c", "Emma", "Jane Austen", 4),
	}

	once := library.Consolidate(rows)
	twice := library.Consolidate(toRows(once))

	if len(once) != len(twice) {
		t.Fatalf("entity count changed: %d vs %d", len(once), len(twice))
	}
	for i := range once {
		if once[i].Quantity != twice[i].Quantity ||
			once[i].TotalQuantity != twice[i].TotalQuantity ||
			len(once[i].Loans) != len(twice[i].Loans) {
			t.Errorf("entity %s changed on re-consolidation: %+v vs %+v", once[i].ID, once[i].Book, twice[i].Book)
		}
	}
}

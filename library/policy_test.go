package library_test

import (
	"testing"
	"time"

	"github.com/warp/library-engine/library"
)

func defaultEngine() *library.PolicyEngine {
	return library.NewPolicyEngine(library.DefaultPolicy())
}

func student(number int, name, surname string) library.Student {
	return library.Student{StudentNumber: number, Name: name, Surname: surname}
}

// =============================================================================
// BORROW DECISION TESTS
// =============================================================================

func TestEvaluateBorrow_WithinLimit_Allowed(t *testing.T) {
	// GIVEN: Default limit of 5, student has 2 open loans
	// WHEN: Requesting 3 more
	// THEN: Allowed (2+3 = 5, not over)

	d := defaultEngine().EvaluateBorrow(student(1, "Ada", "Lovelace"), 3, 2)
	if d.Kind != library.DecisionAllowed {
		t.Errorf("expected allowed, got %s", d.Kind)
	}
}

func TestEvaluateBorrow_OverLimit_NeedsConfirmation(t *testing.T) {
	// GIVEN: Default limit of 5, student has 5 open loans
	// WHEN: Requesting 1 more
	// THEN: Needs confirmation with excess 1, never a hard error

	d := defaultEngine().EvaluateBorrow(student(1, "Ada", "Lovelace"), 1, 5)
	if d.Kind != library.DecisionNeedsConfirmation {
		t.Fatalf("expected needs_confirmation, got %s", d.Kind)
	}
	if d.Excess != 1 {
		t.Errorf("expected excess 1, got %d", d.Excess)
	}
}

func TestEvaluateBorrow_BanWinsOverLimit(t *testing.T) {
	// GIVEN: Student at the penalty threshold with zero open loans
	// WHEN: Requesting a single book
	// THEN: Banned, regardless of available headroom

	s := student(1, "Ada", "Lovelace")
	s.PenaltyPoints = 100

	d := defaultEngine().EvaluateBorrow(s, 1, 0)
	if d.Kind != library.DecisionBanned {
		t.Errorf("expected banned, got %s", d.Kind)
	}
}

func TestEvaluateBorrow_JustBelowThreshold_NotBanned(t *testing.T) {
	// GIVEN: Student at 99 points, threshold 100
	// WHEN: Requesting a book
	// THEN: Allowed

	s := student(1, "Ada", "Lovelace")
	s.PenaltyPoints = 99

	d := defaultEngine().EvaluateBorrow(s, 1, 0)
	if d.Kind != library.DecisionAllowed {
		t.Errorf("expected allowed, got %s", d.Kind)
	}
}

// =============================================================================
// PENALTY RATCHET TESTS
// =============================================================================

func TestApplyReturnPenalty_Ratchet(t *testing.T) {
	// GIVEN: Student at 40 penalty points
	// WHEN: Applying a 10-day-late return, then a 55-day-late return
	// THEN: 40 stays 40, then moves to 55; never a sum

	engine := defaultEngine()
	s := student(1, "Ada", "Lovelace")
	s.PenaltyPoints = 40

	due := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)

	got := engine.ApplyReturnPenalty(&s, due, due.AddDate(0, 0, 10))
	if got != 40 {
		t.Errorf("after 10-day lateness: expected 40, got %d", got)
	}

	got = engine.ApplyReturnPenalty(&s, due, due.AddDate(0, 0, 55))
	if got != 55 {
		t.Errorf("after 55-day lateness: expected 55, got %d", got)
	}
}

func TestApplyReturnPenalty_OnTimeReturnLeavesPointsAlone(t *testing.T) {
	// GIVEN: Student at 12 penalty points
	// WHEN: Returning on the due date
	// THEN: Points unchanged

	engine := defaultEngine()
	s := student(1, "Ada", "Lovelace")
	s.PenaltyPoints = 12

	due := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	if got := engine.ApplyReturnPenalty(&s, due, due); got != 12 {
		t.Errorf("expected 12, got %d", got)
	}
}

func TestLateDays_WholeDaysFlooredAtZero(t *testing.T) {
	due := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name     string
		returned time.Time
		want     int
	}{
		{"early", due.AddDate(0, 0, -3), 0},
		{"on time", due, 0},
		{"half a day", due.Add(12 * time.Hour), 0},
		{"one day", due.AddDate(0, 0, 1), 1},
		{"nine and a half days", due.AddDate(0, 0, 9).Add(12 * time.Hour), 9},
	}
	for _, tc := range cases {
		if got := library.LateDays(due, tc.returned); got != tc.want {
			t.Errorf("%s: expected %d, got %d", tc.name, tc.want, got)
		}
	}
}

// =============================================================================
// ACTIVE LOAN COUNTING TESTS
// =============================================================================

func TestActiveLoans_OrphanedLoansExcluded(t *testing.T) {
	// GIVEN: Student holds two loans, one referencing a deleted book
	// WHEN: Counting active loans against the current catalog
	// THEN: Only the loan whose book still exists counts

	s := student(7, "Ada", "Lovelace")
	catalog := []library.Book{
		row("b1", "Dune", "Frank Herbert", 1, loanBy("l1", "b1", "Ada Lovelace")),
	}
	loans := []library.Loan{
		loanBy("l1", "b1", "Ada Lovelace"),
		loanBy("l2", "gone", "Ada Lovelace"),
	}

	if got := library.ActiveLoanCount(s, loans, catalog); got != 1 {
		t.Errorf("expected 1 active loan, got %d", got)
	}
}

func TestActiveLoans_MatchesByCandidateNames(t *testing.T) {
	// GIVEN: Loans recorded under the full name, bare surname and student number
	// WHEN: Counting active loans
	// THEN: All spellings attribute to the student; other borrowers do not

	s := student(7, "Ada", "Lovelace")
	catalog := []library.Book{
		row("b1", "Dune", "Frank Herbert", 0),
		row("b2", "Emma", "Jane Austen", 0),
		row("b3", "Ficciones", "Borges", 0),
	}
	loans := []library.Loan{
		loanBy("l1", "b1", "ada lovelace"),
		loanBy("l2", "b2", "Lovelace"),
		loanBy("l3", "b3", "7"),
		loanBy("l4", "b1", "Grace Hopper"),
	}

	if got := library.ActiveLoanCount(s, loans, catalog); got != 3 {
		t.Errorf("expected 3 active loans, got %d", got)
	}
}

func TestActiveLoans_LifetimeCountersIgnored(t *testing.T) {
	// GIVEN: Student with large historical borrow totals but no open loans
	// WHEN: Counting active loans
	// THEN: Zero; history counters never feed limit checks

	s := student(7, "Ada", "Lovelace")
	s.Borrowed = 120
	s.Returned = 118

	if got := library.ActiveLoanCount(s, nil, nil); got != 0 {
		t.Errorf("expected 0 active loans, got %d", got)
	}
}

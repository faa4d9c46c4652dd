/*
policy.go - Borrow limits, bans and the penalty ratchet

PURPOSE:
  Holds the configurable limits and makes the go/no-go decision for a borrow
  request. Three outcomes exist:

    Banned             hard stop, penalty threshold reached
    NeedsConfirmation  soft limit exceeded, caller must confirm explicitly
    Allowed            within limits

  Ban takes precedence over the limit check. The soft limit is never a hard
  error: the lifecycle manager turns it into a pending confirmation.

ACTIVE LOAN COUNTING:
  Limit checks count OPEN loans only. A student's borrowed/returned history
  counters are lifetime totals and play no part here. A loan whose book id no
  longer exists in the catalog is orphaned and excluded from every count.

PENALTY RATCHET:
  Penalty points store the maximum lateness in days ever observed, not a sum:
  applying a 10-day-late return to a student at 40 points leaves 40; a
  55-day-late return moves them to 55. Points only decrease via the explicit
  administrative override.
*/
package library

import "time"

// =============================================================================
// BORROW DECISION
// =============================================================================

type DecisionKind string

const (
	DecisionAllowed           DecisionKind = "allowed"
	DecisionNeedsConfirmation DecisionKind = "needs_confirmation"
	DecisionBanned            DecisionKind = "banned"
)

// Decision is the outcome of a borrow evaluation. Excess is only meaningful
// for DecisionNeedsConfirmation: the number of loans past the soft limit.
type Decision struct {
	Kind   DecisionKind
	Excess int
}

// =============================================================================
// POLICY ENGINE
// =============================================================================

// PolicyEngine evaluates borrow requests against configured limits.
type PolicyEngine struct {
	Config PolicyConfig
}

func NewPolicyEngine(cfg PolicyConfig) *PolicyEngine {
	return &PolicyEngine{Config: cfg.Normalize()}
}

// IsBanned reports whether the student has reached the penalty threshold.
func (p *PolicyEngine) IsBanned(s Student) bool {
	return s.PenaltyPoints >= p.Config.MaxPenaltyPoints
}

// EvaluateBorrow decides whether a request for requested more books is
// allowed given currentActive open loans. Ban wins over the limit check.
func (p *PolicyEngine) EvaluateBorrow(s Student, requested, currentActive int) Decision {
	if p.IsBanned(s) {
		return Decision{Kind: DecisionBanned}
	}
	if requested < 0 {
		requested = 0
	}
	total := currentActive + requested
	if total > p.Config.MaxBorrowLimit {
		return Decision{Kind: DecisionNeedsConfirmation, Excess: total - p.Config.MaxBorrowLimit}
	}
	return Decision{Kind: DecisionAllowed}
}

// ApplyReturnPenalty ratchets the student's penalty points against the
// lateness of one return and reports the new value. The stored value is the
// maximum lateness ever observed, never a running sum.
func (p *PolicyEngine) ApplyReturnPenalty(s *Student, dueDate, returnDate time.Time) int {
	late := LateDays(dueDate, returnDate)
	if late > s.PenaltyPoints {
		s.PenaltyPoints = late
	}
	return s.PenaltyPoints
}

// =============================================================================
// ACTIVE LOAN QUERIES
// =============================================================================

// ActiveLoans returns the student's open loans, excluding orphans: a loan is
// counted only when its borrower matches the student and its book id still
// exists in the catalog snapshot.
func ActiveLoans(s Student, loans []Loan, catalog []Book) []Loan {
	candidates := s.BorrowerCandidates()
	if len(candidates) == 0 {
		return nil
	}

	known := make(map[BookID]struct{}, len(catalog))
	for i := range catalog {
		known[catalog[i].ID] = struct{}{}
	}

	var out []Loan
	for _, loan := range loans {
		if _, ok := candidates[NormalizeName(loan.Borrower)]; !ok {
			continue
		}
		if _, ok := known[loan.BookID]; !ok {
			continue // orphaned: book deleted after the loan was issued
		}
		out = append(out, loan)
	}
	return out
}

// ActiveLoanCount is ActiveLoans reduced to its length.
func ActiveLoanCount(s Student, loans []Loan, catalog []Book) int {
	return len(ActiveLoans(s, loans, catalog))
}

// AllLoans flattens the open loans of every catalog row.
func AllLoans(catalog []Book) []Loan {
	var out []Loan
	for i := range catalog {
		out = append(out, catalog[i].Loans...)
	}
	return out
}

// LateDays returns the whole days between due date and return date, floored
// at zero. Returning on or before the due date is never late.
func LateDays(dueDate, returnDate time.Time) int {
	if !returnDate.After(dueDate) {
		return 0
	}
	return int(returnDate.Sub(dueDate).Hours() / 24)
}

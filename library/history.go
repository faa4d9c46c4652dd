/*
history.go - Append-only loan history

PURPOSE:
  The active-loan list only ever holds open loans; a returned loan is removed
  from it. Lifetime questions ("how often was this title late?", "what is
  this student's average return time?") are answered from an append-only
  history log fed by the lifecycle manager.

ENTRY LIFECYCLE:
  One entry is appended when a loan opens (StatusBorrowed) and another when
  it closes (StatusReturned, carrying the full cycle including lateness).
  Entries are never updated: the returned entry repeats the borrow data so
  each cycle is self-contained.
*/
package library

import "time"

type HistoryStatus string

const (
	StatusBorrowed HistoryStatus = "borrowed"
	StatusReturned HistoryStatus = "returned"
)

// HistoryEntry is one recorded event of a loan cycle.
type HistoryEntry struct {
	ID     string
	LoanID LoanID
	Status HistoryStatus

	BookID BookID
	Title  string
	Author string

	Borrower      string
	StudentNumber int

	BorrowedAt time.Time
	DueDate    time.Time
	ReturnedAt *time.Time

	WasLate  bool
	LateDays int

	Condition Condition // condition recorded at return

	BorrowPersonnel string
	ReturnPersonnel string
}

// HistoryFilter narrows a history query. Zero fields match everything.
type HistoryFilter struct {
	Borrower string // matched after normalization
	BookID   BookID
	Status   HistoryStatus
	From     time.Time
	To       time.Time
}

// Matches reports whether an entry passes the filter.
func (f HistoryFilter) Matches(e HistoryEntry) bool {
	if f.Borrower != "" && NormalizeName(e.Borrower) != NormalizeName(f.Borrower) {
		return false
	}
	if f.BookID != "" && e.BookID != f.BookID {
		return false
	}
	if f.Status != "" && e.Status != f.Status {
		return false
	}
	if !f.From.IsZero() && e.BorrowedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && e.BorrowedAt.After(f.To) {
		return false
	}
	return true
}

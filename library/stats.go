/*
stats.go - Catalog and student statistics

PURPOSE:
  Derives summary figures from the current snapshot and the history log:
  a catalog overview (titles, copies, loans, overdues) and per-student
  summaries with per-book breakdowns including average return time.

PRECISION:
  Averages are computed with decimal arithmetic and rounded to one decimal
  place, so a 3-cycle history of 4, 5 and 5 days reports 4.7, not a float
  artifact.
*/
package library

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CATALOG OVERVIEW
// =============================================================================

type CatalogOverview struct {
	Titles          int // logical books after consolidation
	Rows            int // raw catalog rows
	TotalCopies     int
	AvailableCopies int
	OnLoan          int
	Overdue         int
	DamagedCopies   int
	LostCopies      int
}

// =============================================================================
// STUDENT SUMMARY
// =============================================================================

// BookCycleSummary aggregates a student's history with one title.
type BookCycleSummary struct {
	BookID            BookID
	Title             string
	Author            string
	BorrowCount       int
	ReturnCount       int
	LateCount         int
	TotalLateDays     int
	AverageReturnDays decimal.Decimal
	LastBorrowedAt    time.Time
}

type StudentSummary struct {
	Name          string
	Surname       string
	TotalBorrowed int
	TotalReturned int
	ActiveLoans   int
	LateReturns   int
	PenaltyPoints int
	Books         []BookCycleSummary
}

// =============================================================================
// STATS SERVICE
// =============================================================================

// Stats answers summary queries. History may be nil; per-book breakdowns are
// then empty.
type Stats struct {
	Books    CatalogStore
	Students StudentStore
	History  HistoryStore

	Now func() time.Time
}

func NewStats(books CatalogStore, students StudentStore, history HistoryStore) *Stats {
	return &Stats{Books: books, Students: students, History: history, Now: time.Now}
}

// Overview summarizes the whole catalog snapshot.
func (s *Stats) Overview(ctx context.Context) (*CatalogOverview, error) {
	rows, err := s.Books.List(ctx)
	if err != nil {
		return nil, err
	}
	logical := Consolidate(rows)
	now := s.Now()

	ov := &CatalogOverview{Titles: len(logical), Rows: len(rows)}
	for i := range logical {
		b := &logical[i].Book
		ov.TotalCopies += b.TotalQuantity
		ov.AvailableCopies += b.Quantity
		ov.OnLoan += len(b.Loans)
		ov.DamagedCopies += b.DamagedCount
		ov.LostCopies += b.LostCount
		for _, loan := range b.Loans {
			if now.After(loan.DueDate) {
				ov.Overdue++
			}
		}
	}
	return ov, nil
}

// StudentSummary builds one student's lifetime and current figures.
func (s *Stats) StudentSummary(ctx context.Context, studentKey string) (*StudentSummary, error) {
	student, err := s.Students.Get(ctx, studentKey)
	if err != nil {
		return nil, err
	}
	catalog, err := s.Books.List(ctx)
	if err != nil {
		return nil, err
	}

	sum := &StudentSummary{
		Name:          student.Name,
		Surname:       student.Surname,
		TotalBorrowed: student.Borrowed,
		TotalReturned: student.Returned,
		LateReturns:   student.Late,
		PenaltyPoints: student.PenaltyPoints,
		ActiveLoans:   ActiveLoanCount(*student, AllLoans(catalog), catalog),
	}

	if s.History == nil {
		return sum, nil
	}
	entries, err := s.History.Query(ctx, HistoryFilter{Borrower: FullName(*student)})
	if err != nil {
		return nil, err
	}
	sum.Books = summarizeCycles(entries)
	return sum, nil
}

// summarizeCycles groups history entries by book and reduces each group.
func summarizeCycles(entries []HistoryEntry) []BookCycleSummary {
	type acc struct {
		summary    BookCycleSummary
		returnDays decimal.Decimal
		returns    int64
	}
	byBook := make(map[BookID]*acc)
	var order []BookID

	for _, e := range entries {
		a, ok := byBook[e.BookID]
		if !ok {
			a = &acc{summary: BookCycleSummary{BookID: e.BookID, Title: e.Title, Author: e.Author}}
			byBook[e.BookID] = a
			order = append(order, e.BookID)
		}
		switch e.Status {
		case StatusBorrowed:
			a.summary.BorrowCount++
			if e.BorrowedAt.After(a.summary.LastBorrowedAt) {
				a.summary.LastBorrowedAt = e.BorrowedAt
			}
		case StatusReturned:
			a.summary.ReturnCount++
			if e.WasLate {
				a.summary.LateCount++
				a.summary.TotalLateDays += e.LateDays
			}
			if e.ReturnedAt != nil {
				days := int64(e.ReturnedAt.Sub(e.BorrowedAt).Hours() / 24)
				a.returnDays = a.returnDays.Add(decimal.NewFromInt(days))
				a.returns++
			}
		}
	}

	out := make([]BookCycleSummary, 0, len(order))
	for _, id := range order {
		a := byBook[id]
		if a.returns > 0 {
			a.summary.AverageReturnDays = a.returnDays.Div(decimal.NewFromInt(a.returns)).Round(1)
		}
		out = append(out, a.summary)
	}
	return out
}

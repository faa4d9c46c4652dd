/*
overview.go - Loan overview read model

PURPOSE:
  Flattens every open loan across the consolidated catalog into rows a
  caller can list directly: which title, who has it, when it is due and how
  many days remain. Like consolidation this is a pure function over the
  current snapshot; nothing is cached.
*/
package library

import "time"

// LoanInfo is one open loan joined with its book's descriptive fields.
type LoanInfo struct {
	LoanID        LoanID
	BookID        BookID
	Title         string
	Author        string
	Category      string
	Borrower      string
	BorrowedAt    time.Time
	DueDate       time.Time
	RemainingDays int
	Overdue       bool
	Personnel     string
}

// LoanOverview lists every open loan in the snapshot. RemainingDays is
// floored at zero; Overdue marks loans past due.
func LoanOverview(catalog []Book, now time.Time) []LoanInfo {
	var out []LoanInfo
	for i := range catalog {
		b := &catalog[i]
		for _, loan := range b.Loans {
			remaining := 0
			if loan.DueDate.After(now) {
				remaining = int(loan.DueDate.Sub(now).Hours() / 24)
			}
			out = append(out, LoanInfo{
				LoanID:        loan.ID,
				BookID:        b.ID,
				Title:         b.Title,
				Author:        b.Author,
				Category:      b.Category,
				Borrower:      loan.Borrower,
				BorrowedAt:    loan.BorrowedAt,
				DueDate:       loan.DueDate,
				RemainingDays: remaining,
				Overdue:       now.After(loan.DueDate),
				Personnel:     loan.Personnel,
			})
		}
	}
	return out
}

// OverdueLoans filters LoanOverview down to loans past due.
func OverdueLoans(catalog []Book, now time.Time) []LoanInfo {
	var out []LoanInfo
	for _, info := range LoanOverview(catalog, now) {
		if info.Overdue {
			out = append(out, info)
		}
	}
	return out
}

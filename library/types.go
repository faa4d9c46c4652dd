/*
Package library provides the core catalog consolidation and loan lifecycle engine.

PURPOSE:
  This package contains the domain types and algorithms for a school library
  manager: merging duplicate catalog rows into logical titles, tracking copy
  availability and condition, enforcing borrow/return rules, and computing
  late-return penalties.

KEY CONCEPTS IN THIS FILE (types.go):
  - Book: A raw catalog row as stored (one physical batch of copies)
  - LogicalBook: A derived entity aggregating every row for one title/author
  - Loan: An open loan of a single copy to a borrower
  - Student: A borrower with historical counters and penalty points
  - Condition: The physical state of a copy (healthy/damaged/lost)

DESIGN PRINCIPLES:
  1. Snapshot semantics: catalog and student records are input snapshots owned
     by external CRUD; LogicalBook is recomputed from them on every read
  2. Derived totals: totalQuantity is never trusted from a stored row, it is
     always recomputed as quantity + active loan count
  3. Normalized identity: titles, authors and borrower names are matched after
     lowercasing, trimming and collapsing internal whitespace

USAGE:
  key := library.MergeKey(book)
  merged := library.Consolidate(rows)
  full := library.FullName(student)

SEE ALSO:
  - consolidate.go: Row merging into logical books
  - ledger.go: Copy reservation and release
  - policy.go: Borrow limits, bans and penalty points
  - loan.go: Borrow/return lifecycle
*/
package library

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type BookID string
type LoanID string

// =============================================================================
// CONDITION - Physical state of a copy
// =============================================================================

type Condition string

const (
	ConditionHealthy Condition = "healthy"
	ConditionDamaged Condition = "damaged"
	ConditionLost    Condition = "lost"
)

// =============================================================================
// LOAN - A single copy currently out with a borrower
// =============================================================================

// Loan records one open loan. The loans list of a Book only ever holds open
// loans: a returned loan is removed from the list, not flagged.
type Loan struct {
	ID        LoanID
	BookID    BookID
	Borrower  string // student full name as entered at borrow time
	BorrowedAt time.Time
	DueDate   time.Time
	Personnel string // issuing staff member
}

// =============================================================================
// BOOK - Raw catalog row
// =============================================================================

// Book is a raw catalog record. Several rows may describe the same physical
// title (duplicate imports, partial batches); the consolidator folds them
// into one LogicalBook per normalized (title, author) key.
//
// Zero values mark absent optional fields: "" for strings, 0 for numbers.
type Book struct {
	ID       BookID
	Title    string
	Author   string
	Category string

	// Quantity is the number of copies currently on the shelf.
	Quantity int

	// TotalQuantity as stored. Untrusted: consolidation and every mutation
	// recompute it as Quantity + len(Loans).
	TotalQuantity int

	HealthyCount int
	DamagedCount int
	LostCount    int

	Loans []Loan

	// Optional descriptive fields.
	Shelf      string
	Publisher  string
	Summary    string
	BookNumber int
	Year       int
	PageCount  int
}

// ActiveLoanCount returns the number of open loans on this row.
func (b *Book) ActiveLoanCount() int { return len(b.Loans) }

// RecomputeTotal resets TotalQuantity from the one formula that is always
// correct: shelf copies plus copies currently out.
func (b *Book) RecomputeTotal() {
	b.TotalQuantity = b.Quantity + len(b.Loans)
}

// LoanFor returns the open loan held by the given borrower, matching by
// normalized name, or nil if the borrower does not hold this book.
func (b *Book) LoanFor(borrower string) *Loan {
	want := NormalizeName(borrower)
	if want == "" {
		return nil
	}
	for i := range b.Loans {
		if NormalizeName(b.Loans[i].Borrower) == want {
			return &b.Loans[i]
		}
	}
	return nil
}

// HasBorrower reports whether the given borrower already holds this book.
func (b *Book) HasBorrower(borrower string) bool {
	return b.LoanFor(borrower) != nil
}

// RemoveLoan deletes the loan with the given id from the loans list.
// Returns false if no such loan exists.
func (b *Book) RemoveLoan(id LoanID) bool {
	for i := range b.Loans {
		if b.Loans[i].ID == id {
			b.Loans = append(b.Loans[:i], b.Loans[i+1:]...)
			return true
		}
	}
	return false
}

// Clone returns a deep copy. Stores hand out clones so callers can never
// mutate a snapshot in place.
func (b *Book) Clone() *Book {
	dup := *b
	dup.Loans = make([]Loan, len(b.Loans))
	copy(dup.Loans, b.Loans)
	return &dup
}

// =============================================================================
// LOGICAL BOOK - Derived, never persisted
// =============================================================================

// LogicalBook aggregates every raw row sharing one merge key. Its identity is
// the first-seen row's id; MergedFrom lists every contributing row in input
// order (the seed first). It is recomputed from the current snapshot on every
// read, never cached incrementally.
type LogicalBook struct {
	Book
	MergedFrom []BookID
}

// =============================================================================
// STUDENT - Borrower record
// =============================================================================

// Student identity is the student number when present, otherwise the
// normalized full name. Borrowed/Returned/Late are historical totals and are
// monotonically non-decreasing; they are never used for limit checks, which
// count only open loans.
type Student struct {
	StudentNumber int // 0 = not assigned
	Name          string
	Surname       string
	Class         int
	Branch        string

	Borrowed int
	Returned int
	Late     int

	// PenaltyPoints holds the maximum lateness in days ever observed for
	// this student. Non-decreasing except via administrative override.
	PenaltyPoints int
}

// FullName joins name and surname with single spacing.
func FullName(s Student) string {
	return collapseSpace(strings.TrimSpace(s.Name + " " + s.Surname))
}

// Key returns the student's stable identity: the student number when
// assigned, otherwise the normalized full name.
func (s Student) Key() string {
	if s.StudentNumber > 0 {
		return "student:" + strconv.Itoa(s.StudentNumber)
	}
	n := NormalizeName(FullName(s))
	if n == "" {
		return ""
	}
	return "student-name:" + n
}

// BorrowerCandidates returns every normalized spelling that may identify this
// student on a loan record: the full name, the bare name, the bare surname,
// and the student number.
func (s Student) BorrowerCandidates() map[string]struct{} {
	out := make(map[string]struct{}, 4)
	add := func(v string) {
		if n := NormalizeName(v); n != "" {
			out[n] = struct{}{}
		}
	}
	add(FullName(s))
	add(s.Name)
	add(s.Surname)
	if s.StudentNumber > 0 {
		add(strconv.Itoa(s.StudentNumber))
	}
	return out
}

// MatchesBorrower reports whether a loan's borrower string refers to this
// student.
func (s Student) MatchesBorrower(borrower string) bool {
	n := NormalizeName(borrower)
	if n == "" {
		return false
	}
	_, ok := s.BorrowerCandidates()[n]
	return ok
}

// =============================================================================
// POLICY CONFIG - Externally managed limits
// =============================================================================

// PolicyConfig holds the configurable limits. It is loaded from an external
// settings store and read-only to this engine.
type PolicyConfig struct {
	// MaxBorrowLimit is the soft cap on concurrent open loans per student.
	// Exceeding it requires explicit confirmation, it is never a hard error.
	MaxBorrowLimit int `json:"maxBorrowLimit"`

	// MaxPenaltyPoints is the ban threshold. A student at or above it cannot
	// borrow at all.
	MaxPenaltyPoints int `json:"maxPenaltyPoints"`
}

// DefaultPolicy returns the limits used when the settings store is empty.
func DefaultPolicy() PolicyConfig {
	return PolicyConfig{MaxBorrowLimit: 5, MaxPenaltyPoints: 100}
}

// Normalize fills unset fields with defaults.
func (c PolicyConfig) Normalize() PolicyConfig {
	d := DefaultPolicy()
	if c.MaxBorrowLimit <= 0 {
		c.MaxBorrowLimit = d.MaxBorrowLimit
	}
	if c.MaxPenaltyPoints <= 0 {
		c.MaxPenaltyPoints = d.MaxPenaltyPoints
	}
	return c
}

// =============================================================================
// NORMALIZATION - Shared identity rules
// =============================================================================

var spaceSeq = regexp.MustCompile(`\s+`)

func collapseSpace(s string) string {
	return spaceSeq.ReplaceAllString(s, " ")
}

// NormalizeName lowercases, trims and collapses internal whitespace. Case
// folding uses Unicode simple mapping; no locale-specific folding is applied.
func NormalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(collapseSpace(s)))
}

// MergeKey is the consolidation key for a catalog row.
func MergeKey(b *Book) string {
	return NormalizeName(b.Title) + "_" + NormalizeName(b.Author)
}

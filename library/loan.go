/*
loan.go - Loan lifecycle manager

PURPOSE:
  Executes borrow and return against the inventory ledger and the policy
  engine. Per (book, student) pair the state machine is NONE -> ACTIVE ->
  NONE: a return removes the loan rather than flagging it, and history is
  kept in the student counters and the history log.

TWO-PHASE SOFT LIMIT:
  AttemptBorrow never mutates anything when the soft limit is exceeded. It
  returns a pending outcome listing the eligible candidates and the excess;
  the caller resolves it by invoking ConfirmBorrow with those candidates.
  Time passes between the two calls, so ConfirmBorrow re-validates every
  candidate against the current snapshot - the pending outcome is a hint,
  not a lease. Candidates that became ineligible are reported per item and
  never abort the rest of the confirm. An abandoned pending outcome simply
  expires by never being confirmed; it holds no resources.

FAILURE SEMANTICS:
  StudentBanned, LoanNotFound, OutOfStock and NoHealthyCopy are hard errors
  for the affected request or item. Limit exceedance is never a hard error.
  There are no automatic retries; the caller drives every retry.

CONCURRENCY:
  Mutations on the same book or student are serialized through per-entity
  locks acquired in one global sorted order (see locks.go).

SEE ALSO:
  - ledger.go: Reserve/Release
  - policy.go: EvaluateBorrow and the penalty ratchet
  - bulk.go: Batch delete/edit on top of the same stores
*/
package library

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// OUTCOMES
// =============================================================================

type OutcomeStatus string

const (
	// OutcomeBorrowed: loans were created for every eligible candidate.
	OutcomeBorrowed OutcomeStatus = "borrowed"

	// OutcomePendingConfirmation: the soft limit was exceeded; nothing was
	// mutated. Resolve by calling ConfirmBorrow with Eligible.
	OutcomePendingConfirmation OutcomeStatus = "pending_confirmation"
)

// UnavailableBook itemizes one requested book that could not be lent.
type UnavailableBook struct {
	BookID BookID
	Reason error
}

// BorrowOutcome is the result of AttemptBorrow / ConfirmBorrow.
type BorrowOutcome struct {
	Status      OutcomeStatus
	Borrowed    []Loan
	AlreadyHeld []BookID
	Unavailable []UnavailableBook

	// Pending-only fields.
	Eligible []BookID
	Excess   int
}

// ReturnOutcome is the result of ReturnLoan.
type ReturnOutcome struct {
	Loan          Loan
	Condition     Condition
	ReturnedAt    time.Time
	LateDays      int
	WasLate       bool
	PenaltyPoints int
}

// =============================================================================
// MANAGER
// =============================================================================

// Manager wires the stores together and owns the per-entity locks. History
// is optional; a nil HistoryStore disables the history log.
type Manager struct {
	Books    CatalogStore
	Students StudentStore
	Settings SettingsStore
	History  HistoryStore

	locks *keyedMutex

	// Now is replaceable for tests.
	Now func() time.Time
}

func NewManager(books CatalogStore, students StudentStore, settings SettingsStore, history HistoryStore) *Manager {
	return &Manager{
		Books:    books,
		Students: students,
		Settings: settings,
		History:  history,
		locks:    newKeyedMutex(),
		Now:      time.Now,
	}
}

// ListConsolidatedCatalog returns the logical view of the current snapshot.
func (m *Manager) ListConsolidatedCatalog(ctx context.Context) ([]LogicalBook, error) {
	rows, err := m.Books.List(ctx)
	if err != nil {
		return nil, err
	}
	return Consolidate(rows), nil
}

// AttemptBorrow is phase one of the borrow flow. See the package comment for
// the full contract.
func (m *Manager) AttemptBorrow(ctx context.Context, bookIDs []BookID, studentID string, days int, personnel string) (*BorrowOutcome, error) {
	return m.borrow(ctx, bookIDs, studentID, days, personnel, false)
}

// ConfirmBorrow is phase two: commits a previously pending request after
// re-validating every candidate against the current snapshot.
func (m *Manager) ConfirmBorrow(ctx context.Context, bookIDs []BookID, studentID string, days int, personnel string) (*BorrowOutcome, error) {
	return m.borrow(ctx, bookIDs, studentID, days, personnel, true)
}

func (m *Manager) borrow(ctx context.Context, bookIDs []BookID, studentID string, days int, personnel string, confirming bool) (*BorrowOutcome, error) {
	if len(bookIDs) == 0 {
		return nil, &FieldError{Field: "bookIds"}
	}
	if days <= 0 {
		return nil, &FieldError{Field: "days", Detail: "must be positive"}
	}
	if strings.TrimSpace(personnel) == "" {
		return nil, &FieldError{Field: "personnel"}
	}

	student, err := m.resolveStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	unlock := m.locks.LockAll(borrowLockKeys(*student, bookIDs))
	defer unlock()

	cfg, err := m.Settings.Policy(ctx)
	if err != nil {
		return nil, err
	}
	engine := NewPolicyEngine(cfg)

	// Ban is checked first and fails the whole request, even with stock
	// available and the limit untouched.
	if engine.IsBanned(*student) {
		return nil, &BanError{
			StudentKey:    student.Key(),
			PenaltyPoints: student.PenaltyPoints,
			Threshold:     engine.Config.MaxPenaltyPoints,
		}
	}

	catalog, err := m.Books.List(ctx)
	if err != nil {
		return nil, err
	}

	outcome := &BorrowOutcome{Status: OutcomeBorrowed}
	var eligible []BookID
	seen := make(map[BookID]struct{}, len(bookIDs))
	for _, id := range bookIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		row := findRow(catalog, id)
		switch {
		case row == nil:
			outcome.Unavailable = append(outcome.Unavailable, UnavailableBook{id, itemReason(confirming, id, ErrNotFound)})
		case m.studentHolds(row, *student):
			outcome.AlreadyHeld = append(outcome.AlreadyHeld, id)
		case !IsBorrowable(row):
			reason := ErrOutOfStock
			if row.Quantity > 0 {
				reason = ErrNoHealthyCopy
			}
			outcome.Unavailable = append(outcome.Unavailable, UnavailableBook{id, itemReason(confirming, id, reason)})
		default:
			eligible = append(eligible, id)
		}
	}

	if !confirming {
		active := ActiveLoans(*student, AllLoans(catalog), catalog)
		decision := engine.EvaluateBorrow(*student, len(eligible), len(active))
		if decision.Kind == DecisionNeedsConfirmation {
			outcome.Status = OutcomePendingConfirmation
			outcome.Eligible = eligible
			outcome.Excess = decision.Excess
			return outcome, nil
		}
	}

	now := m.Now()
	due := now.AddDate(0, 0, days)
	for _, id := range eligible {
		row := findRow(catalog, id)
		if err := Reserve(row); err != nil {
			outcome.Unavailable = append(outcome.Unavailable, UnavailableBook{id, itemReason(confirming, id, err)})
			continue
		}
		loan := Loan{
			ID:         LoanID(uuid.NewString()),
			BookID:     id,
			Borrower:   FullName(*student),
			BorrowedAt: now,
			DueDate:    due,
			Personnel:  personnel,
		}
		row.Loans = append(row.Loans, loan)
		row.RecomputeTotal()
		if err := m.Books.Save(ctx, row); err != nil {
			return nil, err
		}
		outcome.Borrowed = append(outcome.Borrowed, loan)
		m.appendHistory(ctx, HistoryEntry{
			ID:              uuid.NewString(),
			LoanID:          loan.ID,
			Status:          StatusBorrowed,
			BookID:          id,
			Title:           row.Title,
			Author:          row.Author,
			Borrower:        loan.Borrower,
			StudentNumber:   student.StudentNumber,
			BorrowedAt:      now,
			DueDate:         due,
			BorrowPersonnel: personnel,
		})
	}

	if len(outcome.Borrowed) > 0 {
		student.Borrowed += len(outcome.Borrowed)
		if err := m.Students.Save(ctx, student); err != nil {
			return nil, err
		}
	}
	return outcome, nil
}

// ReturnLoan closes the student's open loan on the given book. An empty
// condition records the copy as healthy.
func (m *Manager) ReturnLoan(ctx context.Context, bookID BookID, borrower, personnel string, cond Condition) (*ReturnOutcome, error) {
	if strings.TrimSpace(personnel) == "" {
		return nil, &FieldError{Field: "personnel"}
	}
	if strings.TrimSpace(borrower) == "" {
		return nil, &FieldError{Field: "borrower"}
	}

	// The borrower may reference a student that no longer exists; the return
	// still proceeds, only the counters are skipped.
	student, err := m.resolveStudent(ctx, borrower)
	if err != nil && !IsNotFound(err) {
		return nil, err
	}

	lockKeys := []string{"book/" + string(bookID)}
	if student != nil {
		lockKeys = append(lockKeys, student.Key())
	}
	unlock := m.locks.LockAll(lockKeys)
	defer unlock()

	book, err := m.Books.Get(ctx, bookID)
	if err != nil {
		return nil, err
	}

	loan := m.findReturnLoan(book, borrower, student)
	if loan == nil {
		return nil, ErrLoanNotFound
	}
	claimed := *loan

	book.RemoveLoan(claimed.ID)
	Release(book, cond)
	if err := m.Books.Save(ctx, book); err != nil {
		return nil, err
	}

	now := m.Now()
	late := LateDays(claimed.DueDate, now)
	outcome := &ReturnOutcome{
		Loan:       claimed,
		Condition:  normalizeCondition(cond),
		ReturnedAt: now,
		LateDays:   late,
		WasLate:    late > 0,
	}

	if student != nil {
		cfg, err := m.Settings.Policy(ctx)
		if err != nil {
			return nil, err
		}
		engine := NewPolicyEngine(cfg)
		student.Returned++
		if late > 0 {
			student.Late++
		}
		outcome.PenaltyPoints = engine.ApplyReturnPenalty(student, claimed.DueDate, now)
		if err := m.Students.Save(ctx, student); err != nil {
			return nil, err
		}
	}

	entry := HistoryEntry{
		ID:              uuid.NewString(),
		LoanID:          claimed.ID,
		Status:          StatusReturned,
		BookID:          bookID,
		Title:           book.Title,
		Author:          book.Author,
		Borrower:        claimed.Borrower,
		BorrowedAt:      claimed.BorrowedAt,
		DueDate:         claimed.DueDate,
		ReturnedAt:      &now,
		WasLate:         late > 0,
		LateDays:        late,
		Condition:       outcome.Condition,
		BorrowPersonnel: claimed.Personnel,
		ReturnPersonnel: personnel,
	}
	if student != nil {
		entry.StudentNumber = student.StudentNumber
	}
	m.appendHistory(ctx, entry)

	return outcome, nil
}

// SetPenaltyPoints is the administrative override: the only path by which a
// student's penalty points may decrease.
func (m *Manager) SetPenaltyPoints(ctx context.Context, studentID string, points int) (*Student, error) {
	if points < 0 {
		return nil, &FieldError{Field: "penaltyPoints", Detail: "must not be negative"}
	}
	student, err := m.resolveStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	unlock := m.locks.Lock(student.Key())
	defer unlock()

	student.PenaltyPoints = points
	if err := m.Students.Save(ctx, student); err != nil {
		return nil, err
	}
	return student, nil
}

// =============================================================================
// INTERNAL HELPERS
// =============================================================================

func (m *Manager) resolveStudent(ctx context.Context, id string) (*Student, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, &FieldError{Field: "studentId"}
	}

	var keys []string
	if strings.HasPrefix(id, "student:") || strings.HasPrefix(id, "student-name:") {
		keys = append(keys, id)
	}
	if n, err := strconv.Atoi(id); err == nil && n > 0 {
		keys = append(keys, "student:"+strconv.Itoa(n))
	}
	if norm := NormalizeName(id); norm != "" {
		keys = append(keys, "student-name:"+norm)
	}

	for _, key := range keys {
		s, err := m.Students.Get(ctx, key)
		if err == nil {
			return s, nil
		}
		if !IsNotFound(err) {
			return nil, err
		}
	}

	// Fall back to a scan: loan borrower strings are free text and may only
	// match through the candidate name set.
	students, err := m.Students.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range students {
		if students[i].MatchesBorrower(id) {
			return &students[i], nil
		}
	}
	return nil, ErrNotFound
}

func (m *Manager) studentHolds(b *Book, s Student) bool {
	for i := range b.Loans {
		if s.MatchesBorrower(b.Loans[i].Borrower) {
			return true
		}
	}
	return false
}

func (m *Manager) findReturnLoan(b *Book, borrower string, s *Student) *Loan {
	if s != nil {
		for i := range b.Loans {
			if s.MatchesBorrower(b.Loans[i].Borrower) {
				return &b.Loans[i]
			}
		}
	}
	return b.LoanFor(borrower)
}

func (m *Manager) appendHistory(ctx context.Context, e HistoryEntry) {
	if m.History == nil {
		return
	}
	// History is best-effort bookkeeping; a failed append never rolls back
	// the loan mutation it describes.
	_ = m.History.Append(ctx, e)
}

func borrowLockKeys(s Student, ids []BookID) []string {
	keys := make([]string, 0, len(ids)+1)
	keys = append(keys, s.Key())
	for _, id := range ids {
		keys = append(keys, "book/"+string(id))
	}
	return keys
}

func findRow(catalog []Book, id BookID) *Book {
	for i := range catalog {
		if catalog[i].ID == id {
			return &catalog[i]
		}
	}
	return nil
}

func itemReason(confirming bool, id BookID, cause error) error {
	if confirming {
		return &StaleStateError{BookID: id, Cause: cause}
	}
	return cause
}

func normalizeCondition(c Condition) Condition {
	switch c {
	case ConditionDamaged, ConditionLost:
		return c
	default:
		return ConditionHealthy
	}
}

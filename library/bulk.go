/*
bulk.go - Bulk operation coordinator

PURPOSE:
  Batches delete and per-field edit across many books or students. Every
  batch follows the same two-phase shape as a single borrow:

    PlanDelete / PlanBulkEdit   read-only analysis, conflicts itemized
    ExecuteDelete / ApplyBulkEdit  per-item commit

PARTIAL FAILURE:
  Each item is its own atomic unit. One item's failure never blocks or rolls
  back the others, and the result always itemizes successes and failures,
  never collapsing into a single pass/fail. Concurrent unrelated batches are
  safe; items touching the same book or student serialize through the same
  per-entity locks as single operations.

DELETE CONFLICTS:
  An id with open loans is a conflict: for books, the loans on that row; for
  students, the loans held by that student after orphan exclusion. Plans
  report conflicts; ExecuteDelete still deletes when asked (the caller
  confirmed the plan), cleaning up the student's loans the way a return
  would, minus the bookkeeping.
*/
package library

import (
	"context"
	"strconv"
	"strings"
)

// =============================================================================
// ENTITY SELECTION
// =============================================================================

type EntityType string

const (
	EntityBook    EntityType = "book"
	EntityStudent EntityType = "student"
)

// =============================================================================
// DELETE PLANNING
// =============================================================================

// DeleteConflict itemizes one id whose deletion would orphan open loans.
type DeleteConflict struct {
	ID          string
	ActiveLoans []Loan
}

type DeletePlan struct {
	Clean      []string
	Conflicted []DeleteConflict
}

// ItemError itemizes one failed item of a batch.
type ItemError struct {
	ID     string
	Reason error
}

type DeleteResult struct {
	DeletedCount int
	Errors       []ItemError
}

// =============================================================================
// EDIT PLANNING
// =============================================================================

// EditItem is one id with the new value for the field being edited.
type EditItem struct {
	ID    string
	Value string
}

type EditPlan struct {
	Valid   []EditItem
	Invalid []ItemError
}

type EditResult struct {
	UpdatedCount int
	Errors       []ItemError
}

// =============================================================================
// COORDINATOR
// =============================================================================

// Coordinator executes bulk operations over the same stores and locks as the
// lifecycle manager.
type Coordinator struct {
	Books    CatalogStore
	Students StudentStore

	locks *keyedMutex
}

// NewCoordinator builds a coordinator sharing the manager's stores and lock
// table. The shared table is what makes a bulk item on a book or student
// mutually exclusive with a concurrent borrow or return on the same entity.
func NewCoordinator(m *Manager) *Coordinator {
	return &Coordinator{Books: m.Books, Students: m.Students, locks: m.locks}
}

// PlanDelete partitions ids into clean deletions and loan conflicts.
func (c *Coordinator) PlanDelete(ctx context.Context, entity EntityType, ids []string) (*DeletePlan, error) {
	catalog, err := c.Books.List(ctx)
	if err != nil {
		return nil, err
	}

	plan := &DeletePlan{}
	switch entity {
	case EntityBook:
		for _, id := range ids {
			row := findRow(catalog, BookID(id))
			if row == nil || len(row.Loans) == 0 {
				plan.Clean = append(plan.Clean, id)
				continue
			}
			plan.Conflicted = append(plan.Conflicted, DeleteConflict{ID: id, ActiveLoans: append([]Loan(nil), row.Loans...)})
		}
	case EntityStudent:
		students, err := c.Students.List(ctx)
		if err != nil {
			return nil, err
		}
		loans := AllLoans(catalog)
		for _, id := range ids {
			s := findStudent(students, id)
			if s == nil {
				plan.Clean = append(plan.Clean, id)
				continue
			}
			active := ActiveLoans(*s, loans, catalog)
			if len(active) == 0 {
				plan.Clean = append(plan.Clean, id)
				continue
			}
			plan.Conflicted = append(plan.Conflicted, DeleteConflict{ID: id, ActiveLoans: active})
		}
	default:
		return nil, &FieldError{Field: "entityType", Detail: "unknown entity type " + string(entity)}
	}
	return plan, nil
}

// ExecuteDelete deletes each id independently and aggregates the result.
func (c *Coordinator) ExecuteDelete(ctx context.Context, entity EntityType, ids []string) (*DeleteResult, error) {
	res := &DeleteResult{}
	for _, id := range ids {
		var err error
		switch entity {
		case EntityBook:
			err = c.deleteBook(ctx, BookID(id))
		case EntityStudent:
			err = c.deleteStudent(ctx, id)
		default:
			return nil, &FieldError{Field: "entityType", Detail: "unknown entity type " + string(entity)}
		}
		if err != nil {
			res.Errors = append(res.Errors, ItemError{ID: id, Reason: err})
			continue
		}
		res.DeletedCount++
	}
	return res, nil
}

func (c *Coordinator) deleteBook(ctx context.Context, id BookID) error {
	unlock := c.locks.Lock("book/" + string(id))
	defer unlock()
	return c.Books.Delete(ctx, id)
}

// deleteStudent removes the record and strips the student's open loans from
// every book, restoring the copies to the shelf.
//
// The affected book set is computed from an unlocked read, then the student
// key and every affected book key are acquired together through LockAll's
// sorted order, matching the borrow path. A borrow racing the acquisition can
// add a loan on a row outside the locked set; the re-read catches that and
// the acquisition retries. Once the student lock is held the set is frozen.
func (c *Coordinator) deleteStudent(ctx context.Context, id string) error {
	students, err := c.Students.List(ctx)
	if err != nil {
		return err
	}
	s := findStudent(students, id)
	if s == nil {
		return ErrNotFound
	}

	for {
		catalog, err := c.Books.List(ctx)
		if err != nil {
			return err
		}
		affected := rowsOnLoanTo(catalog, s)

		keys := make([]string, 0, len(affected)+1)
		keys = append(keys, s.Key())
		for _, bookID := range affected {
			keys = append(keys, "book/"+string(bookID))
		}
		unlock := c.locks.LockAll(keys)

		catalog, err = c.Books.List(ctx)
		if err != nil {
			unlock()
			return err
		}
		if !coversAll(affected, rowsOnLoanTo(catalog, s)) {
			unlock()
			continue
		}

		for i := range catalog {
			row := &catalog[i]
			kept := row.Loans[:0]
			removed := 0
			for _, loan := range row.Loans {
				if s.MatchesBorrower(loan.Borrower) {
					removed++
					continue
				}
				kept = append(kept, loan)
			}
			if removed == 0 {
				continue
			}
			row.Loans = kept
			for n := 0; n < removed; n++ {
				Release(row, ConditionHealthy)
			}
			if err := c.Books.Save(ctx, row); err != nil {
				unlock()
				return err
			}
		}

		err = c.Students.Delete(ctx, s.Key())
		unlock()
		return err
	}
}

// rowsOnLoanTo returns the ids of rows holding at least one of the student's
// open loans.
func rowsOnLoanTo(catalog []Book, s *Student) []BookID {
	var ids []BookID
	for i := range catalog {
		for _, loan := range catalog[i].Loans {
			if s.MatchesBorrower(loan.Borrower) {
				ids = append(ids, catalog[i].ID)
				break
			}
		}
	}
	return ids
}

func coversAll(locked, current []BookID) bool {
	held := make(map[BookID]struct{}, len(locked))
	for _, id := range locked {
		held[id] = struct{}{}
	}
	for _, id := range current {
		if _, ok := held[id]; !ok {
			return false
		}
	}
	return true
}

// PlanBulkEdit validates one field's new value per id without committing.
func (c *Coordinator) PlanBulkEdit(ctx context.Context, entity EntityType, field string, items []EditItem) (*EditPlan, error) {
	if _, err := editorFor(entity, field); err != nil {
		return nil, err
	}
	plan := &EditPlan{}
	for _, item := range items {
		if err := validateEditValue(entity, field, item.Value); err != nil {
			plan.Invalid = append(plan.Invalid, ItemError{ID: item.ID, Reason: err})
			continue
		}
		plan.Valid = append(plan.Valid, item)
	}
	return plan, nil
}

// ApplyBulkEdit commits each valid item independently; invalid items are
// reported alongside, never blocking the rest.
func (c *Coordinator) ApplyBulkEdit(ctx context.Context, entity EntityType, field string, items []EditItem) (*EditResult, error) {
	apply, err := editorFor(entity, field)
	if err != nil {
		return nil, err
	}
	res := &EditResult{}
	for _, item := range items {
		if err := validateEditValue(entity, field, item.Value); err != nil {
			res.Errors = append(res.Errors, ItemError{ID: item.ID, Reason: err})
			continue
		}
		if err := c.applyOne(ctx, entity, item, apply); err != nil {
			res.Errors = append(res.Errors, ItemError{ID: item.ID, Reason: err})
			continue
		}
		res.UpdatedCount++
	}
	return res, nil
}

func (c *Coordinator) applyOne(ctx context.Context, entity EntityType, item EditItem, apply editFunc) error {
	switch entity {
	case EntityBook:
		unlock := c.locks.Lock("book/" + item.ID)
		defer unlock()
		row, err := c.Books.Get(ctx, BookID(item.ID))
		if err != nil {
			return err
		}
		if err := apply(row, nil, item.Value); err != nil {
			return err
		}
		return c.Books.Save(ctx, row)
	case EntityStudent:
		s, err := c.Students.Get(ctx, item.ID)
		if err != nil {
			return err
		}
		unlock := c.locks.Lock(s.Key())
		defer unlock()
		if err := apply(nil, s, item.Value); err != nil {
			return err
		}
		return c.Students.Save(ctx, s)
	default:
		return &FieldError{Field: "entityType", Detail: "unknown entity type " + string(entity)}
	}
}

// =============================================================================
// FIELD EDITORS
// =============================================================================

type editFunc func(b *Book, s *Student, value string) error

// requiredBookFields must stay non-empty after an edit.
var requiredBookFields = map[string]bool{"title": true, "author": true, "category": true}

func editorFor(entity EntityType, field string) (editFunc, error) {
	switch entity {
	case EntityBook:
		if fn, ok := bookEditors[field]; ok {
			return fn, nil
		}
	case EntityStudent:
		if fn, ok := studentEditors[field]; ok {
			return fn, nil
		}
	}
	return nil, &FieldError{Field: field, Detail: "not editable for " + string(entity)}
}

func validateEditValue(entity EntityType, field, value string) error {
	trimmed := strings.TrimSpace(value)
	if entity == EntityBook && requiredBookFields[field] && trimmed == "" {
		return &FieldError{Field: field}
	}
	if entity == EntityStudent && (field == "name" || field == "surname") && trimmed == "" {
		return &FieldError{Field: field}
	}
	switch field {
	case "year", "pageCount", "bookNumber", "totalQuantity", "class":
		if trimmed == "" {
			return &FieldError{Field: field}
		}
		n, err := strconv.Atoi(trimmed)
		if err != nil || n < 0 {
			return &FieldError{Field: field, Detail: "must be a non-negative number"}
		}
	}
	return nil
}

var bookEditors = map[string]editFunc{
	"title":    func(b *Book, _ *Student, v string) error { b.Title = strings.TrimSpace(v); return nil },
	"author":   func(b *Book, _ *Student, v string) error { b.Author = strings.TrimSpace(v); return nil },
	"category": func(b *Book, _ *Student, v string) error { b.Category = strings.TrimSpace(v); return nil },
	"shelf":    func(b *Book, _ *Student, v string) error { b.Shelf = strings.TrimSpace(v); return nil },
	"publisher": func(b *Book, _ *Student, v string) error {
		b.Publisher = strings.TrimSpace(v)
		return nil
	},
	"summary": func(b *Book, _ *Student, v string) error { b.Summary = strings.TrimSpace(v); return nil },
	"year": func(b *Book, _ *Student, v string) error {
		n, _ := strconv.Atoi(strings.TrimSpace(v))
		b.Year = n
		return nil
	},
	"pageCount": func(b *Book, _ *Student, v string) error {
		n, _ := strconv.Atoi(strings.TrimSpace(v))
		b.PageCount = n
		return nil
	},
	"bookNumber": func(b *Book, _ *Student, v string) error {
		n, _ := strconv.Atoi(strings.TrimSpace(v))
		b.BookNumber = n
		return nil
	},
	// totalQuantity edits rerun condition normalization and the quantity
	// recomputation so the invariants survive the edit.
	"totalQuantity": func(b *Book, _ *Student, v string) error {
		n, _ := strconv.Atoi(strings.TrimSpace(v))
		ApplyConditionCounts(b, n, ConditionCounts{
			Healthy: b.HealthyCount,
			Damaged: b.DamagedCount,
			Lost:    b.LostCount,
		})
		return nil
	},
}

var studentEditors = map[string]editFunc{
	"name":    func(_ *Book, s *Student, v string) error { s.Name = strings.TrimSpace(v); return nil },
	"surname": func(_ *Book, s *Student, v string) error { s.Surname = strings.TrimSpace(v); return nil },
	"branch":  func(_ *Book, s *Student, v string) error { s.Branch = strings.TrimSpace(v); return nil },
	"class": func(_ *Book, s *Student, v string) error {
		n, _ := strconv.Atoi(strings.TrimSpace(v))
		s.Class = n
		return nil
	},
}

func findStudent(students []Student, id string) *Student {
	for i := range students {
		if students[i].Key() == id || students[i].MatchesBorrower(id) {
			return &students[i]
		}
	}
	return nil
}

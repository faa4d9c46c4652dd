/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the stores with realistic
	data for testing and demos. Each scenario creates books, students and
	loans that demonstrate specific features of the circulation engine.

AVAILABLE SCENARIOS:

	fresh-catalog:  Duplicate import rows that consolidate into one title
	busy-term:      A student at the borrow limit, ready for the confirm flow
	overdue-crunch: Overdue loans, damaged copies and a banned student

HOW SCENARIOS WORK:
 1. Reset the stores (clear all books, students and policy)
 2. Seed books and students
 3. Optionally attach open loans with crafted due dates

USAGE VIA API:

	POST /api/scenarios/load
	{"scenarioId": "busy-term"}

NOTE:

	Scenarios reset the stores. Only use in development/demo environments.

SEE ALSO:
  - server.go: Scenario routes
  - library/loan.go: The flows the scenarios stage
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/warp/library-engine/library"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

// ScenarioDTO describes one loadable demo dataset.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenarioId" validate:"required"`
}

var scenarios = []ScenarioDTO{
	{
		ID:          "fresh-catalog",
		Name:        "Fresh Catalog",
		Description: "Duplicate import rows of the same titles, no loans; shows consolidation",
	},
	{
		ID:          "busy-term",
		Name:        "Busy Term",
		Description: "A student holding five books; the next borrow needs confirmation",
	},
	{
		ID:          "overdue-crunch",
		Name:        "Overdue Crunch",
		Description: "Overdue loans, damaged copies and a student past the penalty threshold",
	},
}

var (
	scenarioMu      sync.Mutex
	currentScenario string
)

// =============================================================================
// HANDLERS
// =============================================================================

// ListScenarios handles GET /api/scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario handles GET /api/scenarios/current.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	scenarioMu.Lock()
	id := currentScenario
	scenarioMu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"scenarioId": id})
}

// LoadScenario handles POST /api/scenarios/load.
// Resets the stores and seeds the requested dataset.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", err)
		return
	}

	var load func(context.Context, *Handler) error
	switch req.ScenarioID {
	case "fresh-catalog":
		load = loadFreshCatalogScenario
	case "busy-term":
		load = loadBusyTermScenario
	case "overdue-crunch":
		load = loadOverdueCrunchScenario
	default:
		writeError(w, http.StatusBadRequest, "unknown scenario", fmt.Errorf("no scenario %q", req.ScenarioID))
		return
	}

	ctx := r.Context()
	if err := resetStores(ctx, h); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to reset stores", err)
		return
	}
	if err := load(ctx, h); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load scenario", err)
		return
	}

	scenarioMu.Lock()
	currentScenario = req.ScenarioID
	scenarioMu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"scenarioId": req.ScenarioID, "status": "loaded"})
}

// =============================================================================
// SEEDING HELPERS
// =============================================================================

func resetStores(ctx context.Context, h *Handler) error {
	books, err := h.Manager.Books.List(ctx)
	if err != nil {
		return err
	}
	for i := range books {
		if err := h.Manager.Books.Delete(ctx, books[i].ID); err != nil {
			return err
		}
	}
	students, err := h.Manager.Students.List(ctx)
	if err != nil {
		return err
	}
	for i := range students {
		if err := h.Manager.Students.Delete(ctx, students[i].Key()); err != nil {
			return err
		}
	}
	return h.Settings.SavePolicy(ctx, library.DefaultPolicy())
}

func seedBooks(ctx context.Context, h *Handler, books []library.Book) error {
	for i := range books {
		b := books[i]
		if b.HealthyCount == 0 && b.DamagedCount == 0 && b.LostCount == 0 {
			b.HealthyCount = b.Quantity
		}
		b.RecomputeTotal()
		if err := h.Manager.Books.Save(ctx, &b); err != nil {
			return err
		}
	}
	return nil
}

func seedStudents(ctx context.Context, h *Handler, students []library.Student) error {
	for i := range students {
		if err := h.Manager.Students.Save(ctx, &students[i]); err != nil {
			return err
		}
	}
	return nil
}

func demoLoan(bookID library.BookID, borrower string, due time.Time) library.Loan {
	return library.Loan{
		ID:         library.LoanID(uuid.NewString()),
		BookID:     bookID,
		Borrower:   borrower,
		BorrowedAt: due.AddDate(0, 0, -14),
		DueDate:    due,
		Personnel:  "Demo Seeder",
	}
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func loadFreshCatalogScenario(ctx context.Context, h *Handler) error {
	books := []library.Book{
		{ID: "dune-1", Title: "Dune", Author: "Frank Herbert", Category: "Science Fiction", Quantity: 2, Publisher: "Chilton", Year: 1965, PageCount: 412},
		{ID: "dune-2", Title: "  dune ", Author: "FRANK HERBERT", Quantity: 1, PageCount: 604},
		{ID: "emma-1", Title: "Emma", Author: "Jane Austen", Category: "Classic", Quantity: 3, Year: 1815},
		{ID: "ficciones-1", Title: "Ficciones", Author: "Jorge Luis Borges", Category: "Short Stories", Quantity: 2},
	}
	if err := seedBooks(ctx, h, books); err != nil {
		return err
	}
	return seedStudents(ctx, h, []library.Student{
		{StudentNumber: 101, Name: "Ada", Surname: "Lovelace", Class: 9, Branch: "A"},
		{StudentNumber: 102, Name: "Grace", Surname: "Hopper", Class: 10, Branch: "B"},
	})
}

func loadBusyTermScenario(ctx context.Context, h *Handler) error {
	if err := loadFreshCatalogScenario(ctx, h); err != nil {
		return err
	}
	for i := 1; i <= 5; i++ {
		b := library.Book{
			ID:       library.BookID(fmt.Sprintf("vol-%d", i)),
			Title:    fmt.Sprintf("Collected Essays, Volume %d", i),
			Author:   "Michel de Montaigne",
			Category: "Essays",
			Quantity: 1,
		}
		if err := seedBooks(ctx, h, []library.Book{b}); err != nil {
			return err
		}
		if _, err := h.Manager.AttemptBorrow(ctx, []library.BookID{b.ID}, "101", 14, "Demo Seeder"); err != nil {
			return err
		}
	}
	return nil
}

func loadOverdueCrunchScenario(ctx context.Context, h *Handler) error {
	now := time.Now()
	books := []library.Book{
		{ID: "dune-1", Title: "Dune", Author: "Frank Herbert", Category: "Science Fiction", Quantity: 0,
			Loans: []library.Loan{demoLoan("dune-1", "Ada Lovelace", now.AddDate(0, 0, -9))}},
		{ID: "emma-1", Title: "Emma", Author: "Jane Austen", Category: "Classic", Quantity: 1,
			Loans: []library.Loan{demoLoan("emma-1", "Grace Hopper", now.AddDate(0, 0, 3))}},
		{ID: "battered-1", Title: "Atlas of Clouds", Author: "Luke Howard", Quantity: 2, DamagedCount: 2},
	}
	if err := seedBooks(ctx, h, books); err != nil {
		return err
	}
	return seedStudents(ctx, h, []library.Student{
		{StudentNumber: 101, Name: "Ada", Surname: "Lovelace", Class: 9, Branch: "A", Borrowed: 7, Returned: 6, Late: 3, PenaltyPoints: 40},
		{StudentNumber: 102, Name: "Grace", Surname: "Hopper", Class: 10, Branch: "B", Borrowed: 3, Returned: 2},
		{StudentNumber: 103, Name: "Blaise", Surname: "Pascal", Class: 11, Branch: "C", Borrowed: 12, Returned: 12, Late: 6, PenaltyPoints: 120},
	})
}

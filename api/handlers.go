/*
handlers.go - HTTP request handlers

PURPOSE:
  Implements the HTTP handlers that expose the lifecycle manager, the bulk
  coordinator and the stats service. Handlers are thin: they decode and
  validate the request body, call into the library package, and translate
  the outcome (or error) into a JSON response.

ERROR MAPPING:
  - Validation / bad input        -> 400
  - Unknown book, student, loan   -> 404
  - Ban, duplicate loan, no stock -> 409
  - Everything else               -> 500

SEE ALSO:
  - dto.go: Request/response shapes
  - server.go: Route registration
  - library/errors.go: The sentinel errors mapped here
*/
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/warp/library-engine/library"
)

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Manager     *library.Manager
	Coordinator *library.Coordinator
	Stats       *library.Stats
	Settings    library.SettingsStore
}

func NewHandler(m *library.Manager, c *library.Coordinator, s *library.Stats, settings library.SettingsStore) *Handler {
	return &Handler{Manager: m, Coordinator: c, Stats: s, Settings: settings}
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("api: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError picks the status from the error taxonomy.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case library.IsNotFound(err):
		writeError(w, http.StatusNotFound, "not found", err)
	case errors.Is(err, library.ErrValidation):
		writeError(w, http.StatusBadRequest, "invalid request", err)
	case library.IsClientError(err):
		writeError(w, http.StatusConflict, "request conflicts with current state", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal error", err)
	}
}

func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", err)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", err)
		return false
	}
	return true
}

func toBookIDs(ids []string) []library.BookID {
	out := make([]library.BookID, 0, len(ids))
	for _, id := range ids {
		out = append(out, library.BookID(id))
	}
	return out
}

// =============================================================================
// CATALOG
// =============================================================================

// GetCatalog handles GET /api/catalog.
// Returns the consolidated catalog: one entry per logical book.
func (h *Handler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	books, err := h.Manager.ListConsolidatedCatalog(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]LogicalBookDTO, 0, len(books))
	for _, b := range books {
		out = append(out, toLogicalBookDTO(b))
	}
	writeJSON(w, http.StatusOK, out)
}

// =============================================================================
// LOAN LIFECYCLE
// =============================================================================

// Borrow handles POST /api/loans/borrow.
// May answer with status "pending_confirmation" instead of committing.
func (h *Handler) Borrow(w http.ResponseWriter, r *http.Request) {
	var req BorrowRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	outcome, err := h.Manager.AttemptBorrow(r.Context(), toBookIDs(req.BookIDs), req.StudentID, req.Days, req.Personnel)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBorrowOutcomeDTO(outcome))
}

// ConfirmBorrow handles POST /api/loans/confirm.
// Second phase of an over-limit borrow; items are re-validated.
func (h *Handler) ConfirmBorrow(w http.ResponseWriter, r *http.Request) {
	var req BorrowRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	outcome, err := h.Manager.ConfirmBorrow(r.Context(), toBookIDs(req.BookIDs), req.StudentID, req.Days, req.Personnel)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBorrowOutcomeDTO(outcome))
}

// Return handles POST /api/loans/return.
func (h *Handler) Return(w http.ResponseWriter, r *http.Request) {
	var req ReturnRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	outcome, err := h.Manager.ReturnLoan(r.Context(), library.BookID(req.BookID), req.Borrower, req.Personnel, library.Condition(req.Condition))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ReturnOutcomeDTO{
		BookID:        string(outcome.Loan.BookID),
		Borrower:      outcome.Loan.Borrower,
		Condition:     string(outcome.Condition),
		ReturnedAt:    outcome.ReturnedAt,
		LateDays:      outcome.LateDays,
		WasLate:       outcome.WasLate,
		PenaltyPoints: outcome.PenaltyPoints,
	})
}

// GetLoans handles GET /api/loans.
// Flattens every open loan across the raw catalog, newest due date last.
func (h *Handler) GetLoans(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Manager.Books.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, library.LoanOverview(rows, time.Now()))
}

// GetOverdueLoans handles GET /api/loans/overdue.
func (h *Handler) GetOverdueLoans(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Manager.Books.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, library.OverdueLoans(rows, time.Now()))
}

// =============================================================================
// BULK OPERATIONS
// =============================================================================

// PlanDelete handles POST /api/bulk/delete/plan.
// Dry run: partitions the ids into clean and conflicted, mutates nothing.
func (h *Handler) PlanDelete(w http.ResponseWriter, r *http.Request) {
	var req BulkDeleteRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	plan, err := h.Coordinator.PlanDelete(r.Context(), library.EntityType(req.EntityType), req.IDs)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDeletePlanDTO(plan))
}

// ExecuteDelete handles POST /api/bulk/delete.
// Per-item failures are itemized in the response, not fatal.
func (h *Handler) ExecuteDelete(w http.ResponseWriter, r *http.Request) {
	var req BulkDeleteRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	result, err := h.Coordinator.ExecuteDelete(r.Context(), library.EntityType(req.EntityType), req.IDs)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDeleteResultDTO(result))
}

// PlanEdit handles POST /api/bulk/edit/plan.
func (h *Handler) PlanEdit(w http.ResponseWriter, r *http.Request) {
	var req BulkEditRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	plan, err := h.Coordinator.PlanBulkEdit(r.Context(), library.EntityType(req.EntityType), req.Field, toEditItems(req.Items))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEditPlanDTO(plan))
}

// ApplyEdit handles POST /api/bulk/edit.
func (h *Handler) ApplyEdit(w http.ResponseWriter, r *http.Request) {
	var req BulkEditRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	result, err := h.Coordinator.ApplyBulkEdit(r.Context(), library.EntityType(req.EntityType), req.Field, toEditItems(req.Items))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEditResultDTO(result))
}

// =============================================================================
// STUDENTS & POLICY
// =============================================================================

// SetPenalty handles POST /api/students/{id}/penalty.
// Administrative override of a student's penalty points.
func (h *Handler) SetPenalty(w http.ResponseWriter, r *http.Request) {
	var req PenaltyOverrideRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	student, err := h.Manager.SetPenaltyPoints(r.Context(), chi.URLParam(r, "id"), req.PenaltyPoints)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, student)
}

// GetStudentSummary handles GET /api/stats/students/{id}.
func (h *Handler) GetStudentSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Stats.StudentSummary(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// GetOverview handles GET /api/stats/overview.
func (h *Handler) GetOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.Stats.Overview(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

// GetSettings handles GET /api/settings.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.Settings.Policy(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// PutSettings handles PUT /api/settings.
func (h *Handler) PutSettings(w http.ResponseWriter, r *http.Request) {
	var cfg library.PolicyConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", err)
		return
	}
	if cfg.MaxBorrowLimit < 0 || cfg.MaxPenaltyPoints < 0 {
		writeError(w, http.StatusBadRequest, "invalid request", library.ErrValidation)
		return
	}
	cfg = cfg.Normalize()
	if err := h.Settings.SavePolicy(r.Context(), cfg); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// =============================================================================
// BULK DTO CONVERTERS
// =============================================================================

type deleteConflictDTO struct {
	ID          string    `json:"id"`
	ActiveLoans []LoanDTO `json:"activeLoans"`
}

type deletePlanDTO struct {
	Clean      []string            `json:"clean"`
	Conflicted []deleteConflictDTO `json:"conflicted"`
}

type itemErrorDTO struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

type deleteResultDTO struct {
	DeletedCount int            `json:"deletedCount"`
	Errors       []itemErrorDTO `json:"errors"`
}

type editPlanDTO struct {
	Valid   []BulkEditItem `json:"valid"`
	Invalid []itemErrorDTO `json:"invalid"`
}

type editResultDTO struct {
	UpdatedCount int            `json:"updatedCount"`
	Errors       []itemErrorDTO `json:"errors"`
}

func toItemErrorDTOs(errs []library.ItemError) []itemErrorDTO {
	out := make([]itemErrorDTO, 0, len(errs))
	for _, e := range errs {
		out = append(out, itemErrorDTO{ID: e.ID, Reason: e.Reason.Error()})
	}
	return out
}

func toDeletePlanDTO(p *library.DeletePlan) deletePlanDTO {
	dto := deletePlanDTO{Clean: p.Clean, Conflicted: make([]deleteConflictDTO, 0, len(p.Conflicted))}
	if dto.Clean == nil {
		dto.Clean = []string{}
	}
	for _, c := range p.Conflicted {
		loans := make([]LoanDTO, 0, len(c.ActiveLoans))
		for _, l := range c.ActiveLoans {
			loans = append(loans, toLoanDTO(l))
		}
		dto.Conflicted = append(dto.Conflicted, deleteConflictDTO{ID: c.ID, ActiveLoans: loans})
	}
	return dto
}

func toDeleteResultDTO(r *library.DeleteResult) deleteResultDTO {
	return deleteResultDTO{DeletedCount: r.DeletedCount, Errors: toItemErrorDTOs(r.Errors)}
}

func toEditItems(items []BulkEditItem) []library.EditItem {
	out := make([]library.EditItem, 0, len(items))
	for _, it := range items {
		out = append(out, library.EditItem{ID: it.ID, Value: it.Value})
	}
	return out
}

func toEditPlanDTO(p *library.EditPlan) editPlanDTO {
	dto := editPlanDTO{Valid: make([]BulkEditItem, 0, len(p.Valid)), Invalid: toItemErrorDTOs(p.Invalid)}
	for _, it := range p.Valid {
		dto.Valid = append(dto.Valid, BulkEditItem{ID: it.ID, Value: it.Value})
	}
	return dto
}

func toEditResultDTO(r *library.EditResult) editResultDTO {
	return editResultDTO{UpdatedCount: r.UpdatedCount, Errors: toItemErrorDTOs(r.Errors)}
}

/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Request bodies carry validator struct tags and are checked with
  go-playground/validator before any engine call; domain rules themselves
  stay in the library package.

SEE ALSO:
  - handlers.go: Uses these types
  - library/loan.go: The outcomes these DTOs serialize
*/
package api

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/warp/library-engine/library"
)

var validate = validator.New()

// =============================================================================
// REQUEST TYPES
// =============================================================================

// BorrowRequest is the body of POST /api/loans/borrow and /confirm.
type BorrowRequest struct {
	BookIDs   []string `json:"bookIds" validate:"required,min=1,dive,required"`
	StudentID string   `json:"studentId" validate:"required"`
	Days      int      `json:"days" validate:"required,gt=0"`
	Personnel string   `json:"personnel" validate:"required"`
}

// ReturnRequest is the body of POST /api/loans/return.
type ReturnRequest struct {
	BookID    string `json:"bookId" validate:"required"`
	Borrower  string `json:"borrower" validate:"required"`
	Personnel string `json:"personnel" validate:"required"`
	Condition string `json:"condition" validate:"omitempty,oneof=healthy damaged lost"`
}

// BulkDeleteRequest is the body of the bulk delete plan/execute endpoints.
type BulkDeleteRequest struct {
	EntityType string   `json:"entityType" validate:"required,oneof=book student"`
	IDs        []string `json:"ids" validate:"required,min=1"`
}

// BulkEditRequest is the body of the bulk edit plan/apply endpoints.
type BulkEditRequest struct {
	EntityType string         `json:"entityType" validate:"required,oneof=book student"`
	Field      string         `json:"field" validate:"required"`
	Items      []BulkEditItem `json:"items" validate:"required,min=1,dive"`
}

type BulkEditItem struct {
	ID    string `json:"id" validate:"required"`
	Value string `json:"value"`
}

// PenaltyOverrideRequest is the body of POST /api/students/{id}/penalty.
type PenaltyOverrideRequest struct {
	PenaltyPoints int `json:"penaltyPoints" validate:"gte=0"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// LogicalBookDTO represents one consolidated catalog entity.
type LogicalBookDTO struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Author        string    `json:"author"`
	Category      string    `json:"category,omitempty"`
	Quantity      int       `json:"quantity"`
	TotalQuantity int       `json:"totalQuantity"`
	HealthyCount  int       `json:"healthyCount"`
	DamagedCount  int       `json:"damagedCount"`
	LostCount     int       `json:"lostCount"`
	Loans         []LoanDTO `json:"loans"`
	Shelf         string    `json:"shelf,omitempty"`
	Publisher     string    `json:"publisher,omitempty"`
	Summary       string    `json:"summary,omitempty"`
	BookNumber    int       `json:"bookNumber,omitempty"`
	Year          int       `json:"year,omitempty"`
	PageCount     int       `json:"pageCount,omitempty"`
	MergedFrom    []string  `json:"mergedFrom"`
}

type LoanDTO struct {
	ID        string    `json:"id"`
	BookID    string    `json:"bookId"`
	Borrower  string    `json:"borrower"`
	DueDate   time.Time `json:"dueDate"`
	Personnel string    `json:"personnel"`
}

// BorrowOutcomeDTO serializes both shapes of a borrow result: committed and
// pending confirmation.
type BorrowOutcomeDTO struct {
	Status      string           `json:"status"`
	Borrowed    []LoanDTO        `json:"borrowed,omitempty"`
	AlreadyHeld []string         `json:"alreadyHeld,omitempty"`
	Unavailable []UnavailableDTO `json:"unavailable,omitempty"`
	Eligible    []string         `json:"eligible,omitempty"`
	Excess      int              `json:"excess,omitempty"`
}

type UnavailableDTO struct {
	BookID string `json:"bookId"`
	Reason string `json:"reason"`
}

type ReturnOutcomeDTO struct {
	BookID        string    `json:"bookId"`
	Borrower      string    `json:"borrower"`
	Condition     string    `json:"condition"`
	ReturnedAt    time.Time `json:"returnedAt"`
	LateDays      int       `json:"lateDays"`
	WasLate       bool      `json:"wasLate"`
	PenaltyPoints int       `json:"penaltyPoints"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func toLoanDTO(l library.Loan) LoanDTO {
	return LoanDTO{
		ID:        string(l.ID),
		BookID:    string(l.BookID),
		Borrower:  l.Borrower,
		DueDate:   l.DueDate,
		Personnel: l.Personnel,
	}
}

func toLogicalBookDTO(b library.LogicalBook) LogicalBookDTO {
	loans := make([]LoanDTO, 0, len(b.Loans))
	for _, l := range b.Loans {
		loans = append(loans, toLoanDTO(l))
	}
	merged := make([]string, 0, len(b.MergedFrom))
	for _, id := range b.MergedFrom {
		merged = append(merged, string(id))
	}
	return LogicalBookDTO{
		ID:            string(b.ID),
		Title:         b.Title,
		Author:        b.Author,
		Category:      b.Category,
		Quantity:      b.Quantity,
		TotalQuantity: b.TotalQuantity,
		HealthyCount:  b.HealthyCount,
		DamagedCount:  b.DamagedCount,
		LostCount:     b.LostCount,
		Loans:         loans,
		Shelf:         b.Shelf,
		Publisher:     b.Publisher,
		Summary:       b.Summary,
		BookNumber:    b.BookNumber,
		Year:          b.Year,
		PageCount:     b.PageCount,
		MergedFrom:    merged,
	}
}

func toBorrowOutcomeDTO(o *library.BorrowOutcome) BorrowOutcomeDTO {
	dto := BorrowOutcomeDTO{Status: string(o.Status), Excess: o.Excess}
	for _, l := range o.Borrowed {
		dto.Borrowed = append(dto.Borrowed, toLoanDTO(l))
	}
	for _, id := range o.AlreadyHeld {
		dto.AlreadyHeld = append(dto.AlreadyHeld, string(id))
	}
	for _, u := range o.Unavailable {
		dto.Unavailable = append(dto.Unavailable, UnavailableDTO{BookID: string(u.BookID), Reason: u.Reason.Error()})
	}
	for _, id := range o.Eligible {
		dto.Eligible = append(dto.Eligible, string(id))
	}
	return dto
}

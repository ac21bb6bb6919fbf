package assignments

import (
	"github.com/codtrack/fulfillment-engine/pkg/db/models"
	"github.com/codtrack/fulfillment-engine/pkg/enums"
	pkgerrors "github.com/codtrack/fulfillment-engine/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// SuiviResultReturned triggers the return-to-confirmation policy.
	SuiviResultReturned = "returned"
	// QualityResultApproved and QualityResultRejected are the recorded verdicts
	// of the quality gate.
	QualityResultApproved = "approved"
	QualityResultRejected = "rejected"
)

// AssignInput carries a supervisor-driven (or chained) assignment request.
type AssignInput struct {
	OrderID     uuid.UUID
	WorkerID    uuid.UUID
	ServiceType enums.ServiceType
	Priority    int
	// AssignedBy is nil for auto-assignment.
	AssignedBy *uuid.UUID
}

// TakeInput claims a pending assignment for work.
type TakeInput struct {
	AssignmentID uuid.UUID
	WorkerID     uuid.UUID
}

// CompleteInput finishes a confirmation or callback assignment.
type CompleteInput struct {
	AssignmentID uuid.UUID
	WorkerID     uuid.UUID
	Result       string
	Notes        *string
}

// CompleteSuiviInput finishes a suivi assignment, optionally recording COD.
type CompleteSuiviInput struct {
	AssignmentID uuid.UUID
	WorkerID     uuid.UUID
	Result       string
	CODCollected *decimal.Decimal
	Notes        *string
}

// CompleteQualityInput records a quality gate verdict.
type CompleteQualityInput struct {
	AssignmentID uuid.UUID
	WorkerID     uuid.UUID
	Approved     bool
	Score        *int
	Notes        *string
}

// ReleaseInput hands a taken assignment back to the pool.
type ReleaseInput struct {
	AssignmentID uuid.UUID
	WorkerID     uuid.UUID
	Reason       *string
}

// ReassignInput moves an active assignment to another worker.
type ReassignInput struct {
	AssignmentID uuid.UUID
	ToWorkerID   uuid.UUID
	AssignedBy   uuid.UUID
}

// ListFilters narrows assignment listings.
type ListFilters struct {
	ServiceType *enums.ServiceType
}

// AssignmentList is a cursor-paginated page of assignments.
type AssignmentList struct {
	Assignments []models.OrderAssignment
	NextCursor  string
}

// OrderQueueList is a cursor-paginated page of orders awaiting a stage.
type OrderQueueList struct {
	Orders     []models.Order
	NextCursor string
}

// WorkerStatsRow aggregates a worker's live and historical assignment counts.
type WorkerStatsRow struct {
	WorkerID                 uuid.UUID `json:"worker_id"`
	IsOnline                 bool      `json:"is_online"`
	CurrentAssignmentCount   int       `json:"current_assignment_count"`
	MaxConcurrentAssignments int       `json:"max_concurrent_assignments"`
	PendingCount             int       `json:"pending_count"`
	TakenCount               int       `json:"taken_count"`
	CompletedCount           int       `json:"completed_count"`
	ReleasedCount            int       `json:"released_count"`
}

// BulkItemError reports a single failed item within a bulk operation.
type BulkItemError struct {
	ID      string         `json:"id"`
	Code    pkgerrors.Code `json:"code"`
	Message string         `json:"message"`
}

// BulkResult summarizes a partial-success bulk operation. The invariant
// len(SuccessIDs)+len(Errors) == TotalRequested always holds.
type BulkResult struct {
	TotalRequested int             `json:"total_requested"`
	SuccessCount   int             `json:"success_count"`
	FailedCount    int             `json:"failed_count"`
	SuccessIDs     []string        `json:"success_ids"`
	Errors         []BulkItemError `json:"errors"`
}

// NewBulkResult builds an empty result for a batch of the given size.
func NewBulkResult(total int) *BulkResult {
	return &BulkResult{
		TotalRequested: total,
		SuccessIDs:     []string{},
		Errors:         []BulkItemError{},
	}
}

// AddSuccess records one succeeded item.
func (r *BulkResult) AddSuccess(id string) {
	r.SuccessCount++
	r.SuccessIDs = append(r.SuccessIDs, id)
}

// AddFailure records one failed item, translating the engine error code.
func (r *BulkResult) AddFailure(id string, err error) {
	r.FailedCount++
	item := BulkItemError{ID: id, Code: pkgerrors.CodeInternal, Message: "unexpected error"}
	if typed := pkgerrors.As(err); typed != nil {
		item.Code = typed.Code()
		item.Message = typed.Message()
	}
	r.Errors = append(r.Errors, item)
}

package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/invoicecore/internal/domain/entity"
	"github.com/sangkips/invoicecore/internal/domain/enum"
	"github.com/sangkips/invoicecore/pkg/pagination"
	"github.com/shopspring/decimal"
)

// ExpenseReportRepository defines the interface for expense report data operations.
// State-changing methods are conditional on the current approval state and
// report whether a row was changed instead of failing.
type ExpenseReportRepository interface {
	Create(ctx context.Context, report *entity.ExpenseReport) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.ExpenseReport, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.ExpenseReport, error)
	List(ctx context.Context, params *ExpenseReportFilterParams) ([]entity.ExpenseReport, int64, error)

	// Decide moves a report out of PENDING and stamps the approver
	Decide(ctx context.Context, id uuid.UUID, decision *ApprovalDecision) (bool, error)
	// ReplaceContent rewrites header and lines of a report in one of the allowed
	// states and restarts its lifecycle at PENDING
	ReplaceContent(ctx context.Context, id uuid.UUID, allowed []enum.ApprovalState, content *ReportContent) (bool, error)
	// AssignBucket files an APPROVED, unassigned report under a bucket
	AssignBucket(ctx context.Context, id uuid.UUID, bucketType enum.BucketType, bucketNumber string, at time.Time) (bool, error)
	// RecordMirrorOutcome stamps the result of the accounting mirror write
	RecordMirrorOutcome(ctx context.Context, id uuid.UUID, savedAt *time.Time, mirrorErr *string) error
	// Delete removes a report and its lines when it is in one of the allowed states
	Delete(ctx context.Context, id uuid.UUID, allowed []enum.ApprovalState) (bool, error)
}

// ApprovalDecision is an approve or reject transition out of PENDING
type ApprovalDecision struct {
	State      enum.ApprovalState
	ApproverID uuid.UUID
	Comment    *string
	DecidedAt  time.Time
}

// ReportContent is the user-editable part of a report
type ReportContent struct {
	Title       string
	Description string
	CostCenter  string
	Currency    string
	TotalAmount decimal.Decimal
	Lines       []entity.ExpenseLine
}

// ExpenseReportFilterParams contains filtering parameters for expense report queries
type ExpenseReportFilterParams struct {
	Pagination   *pagination.PaginationParams
	Search       string
	UserID       *uuid.UUID
	State        *enum.ApprovalState
	BucketNumber string
	Unassigned   bool
	SortBy       string
	SortOrder    string
}

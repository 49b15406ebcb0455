package request

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ExpenseLineRequest represents one line of an expense report
type ExpenseLineRequest struct {
	DocumentID   *uuid.UUID      `json:"document_id"`
	Description  string          `json:"description" binding:"required,max=500"`
	IssuerTaxID  string          `json:"issuer_tax_id" binding:"omitempty,max=20"`
	SeriesNumber string          `json:"series_number" binding:"omitempty,max=40"`
	IssueDate    string          `json:"issue_date"` // YYYY-MM-DD
	Quantity     decimal.Decimal `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
}

// ExpenseReportRequest is used both to create and to edit a report
type ExpenseReportRequest struct {
	Title       string               `json:"title" binding:"required,max=255"`
	Description string               `json:"description"`
	CostCenter  string               `json:"cost_center" binding:"omitempty,max=50"`
	Currency    string               `json:"currency" binding:"omitempty,len=3"`
	Lines       []ExpenseLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// DecisionRequest carries an optional approval or rejection comment
type DecisionRequest struct {
	Comment *string `json:"comment" binding:"omitempty,max=1000"`
}

// AssignBucketRequest files a report under an accounting bucket
type AssignBucketRequest struct {
	BucketType   string `json:"bucket_type" binding:"required,oneof=ADVANCE_SETTLEMENT PETTY_CASH"`
	BucketNumber string `json:"bucket_number" binding:"required,max=50"`
}

// BulkIDsRequest lists the reports a bulk action applies to
type BulkIDsRequest struct {
	IDs []string `json:"ids" binding:"required,min=1"`
}

// BulkDecisionRequest is a bulk approve or reject
type BulkDecisionRequest struct {
	BulkIDsRequest
	Comment *string `json:"comment" binding:"omitempty,max=1000"`
}

// BulkAssignRequest files several reports under the same bucket
type BulkAssignRequest struct {
	BulkIDsRequest
	AssignBucketRequest
}

// ExpenseReportFilterRequest represents expense report filter parameters
type ExpenseReportFilterRequest struct {
	Search       string `form:"search"`
	UserID       string `form:"user_id"`
	State        string `form:"state"`
	BucketNumber string `form:"bucket_number"`
	Unassigned   bool   `form:"unassigned"`
	SortBy       string `form:"sort_by"`
	SortOrder    string `form:"sort_order"`
	Page         int    `form:"page"`
	PerPage      int    `form:"per_page"`
}

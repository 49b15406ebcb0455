package request

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// IngestDocumentRequest carries the fields extracted from an uploaded document
type IngestDocumentRequest struct {
	IssuerTaxID      string          `json:"issuer_tax_id" binding:"required,max=20"`
	IssuerName       string          `json:"issuer_name" binding:"omitempty,max=255"`
	DocumentTypeCode string          `json:"document_type_code" binding:"required,max=4"`
	SeriesNumber     string          `json:"series_number" binding:"omitempty,max=40"`
	IssueDate        string          `json:"issue_date" binding:"required"` // YYYY-MM-DD
	TotalAmount      decimal.Decimal `json:"total_amount"`
	Currency         string          `json:"currency" binding:"omitempty,len=3"`
	QRPayload        string          `json:"qr_payload"`
	SkipVerification bool            `json:"skip_verification"`
}

// CheckDuplicateRequest represents a duplicate check without storing anything
type CheckDuplicateRequest struct {
	QRPayload    string     `json:"qr_payload"`
	IssuerTaxID  string     `json:"issuer_tax_id"`
	SeriesNumber string     `json:"series_number"`
	ExcludeID    *uuid.UUID `json:"exclude_id"`
}

// MarkDuplicateRequest flags a stored document as a copy of an earlier one
type MarkDuplicateRequest struct {
	OriginalID uuid.UUID `json:"original_id" binding:"required"`
	Method     string    `json:"method" binding:"required,oneof=QR COMPOSITE_KEY"`
}

// DocumentFilterRequest represents document filter parameters
type DocumentFilterRequest struct {
	Search      string `form:"search"`
	IssuerTaxID string `form:"issuer_tax_id"`
	IsDuplicate *bool  `form:"is_duplicate"`
	Verified    *bool  `form:"verified"`
	Unchecked   bool   `form:"unchecked"`
	StartDate   string `form:"start_date"`
	EndDate     string `form:"end_date"`
	SortBy      string `form:"sort_by"`
	SortOrder   string `form:"sort_order"`
	Page        int    `form:"page"`
	PerPage     int    `form:"per_page"`
}

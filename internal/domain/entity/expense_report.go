package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/invoicecore/internal/domain/enum"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ExpenseReport (planilla) groups expense lines submitted by a user for approval
type ExpenseReport struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	TenantID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"tenant_id"`
	UserID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	Number      string          `gorm:"size:32;unique;not null" json:"number"`
	Title       string          `gorm:"size:255;not null" json:"title"`
	Description string          `gorm:"type:text" json:"description,omitempty"`
	CostCenter  string          `gorm:"size:50" json:"cost_center,omitempty"`
	Currency    string          `gorm:"size:3;default:'PEN'" json:"currency"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(15,2);default:0" json:"total_amount"`

	ApprovalState   enum.ApprovalState `gorm:"default:0;index" json:"approval_state"`
	ApproverID      *uuid.UUID         `gorm:"type:uuid;column:approver_id" json:"approver_id"`
	ApprovedAt      *time.Time         `json:"approved_at"`
	ApprovalComment *string            `gorm:"type:text" json:"approval_comment"`

	BucketType   enum.BucketType `gorm:"default:0" json:"bucket_type"`
	BucketNumber *string         `gorm:"size:50;index" json:"bucket_number"`
	AssignedAt   *time.Time      `json:"assigned_at"`

	// Last outcome of the accounting mirror write, for audit and manual retry
	MirrorSavedAt *time.Time `json:"mirror_saved_at,omitempty"`
	MirrorError   *string    `gorm:"type:text" json:"mirror_error,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Lines []ExpenseLine `gorm:"foreignKey:ReportID" json:"lines,omitempty"`
}

// BeforeCreate generates a UUID before creating a new expense report
func (r *ExpenseReport) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the ExpenseReport model
func (ExpenseReport) TableName() string {
	return "expense_reports"
}

// IsAssigned reports whether the report has been filed under an accounting bucket
func (r *ExpenseReport) IsAssigned() bool {
	return r.BucketNumber != nil && *r.BucketNumber != ""
}

// ExpenseLine is a single expense inside a report
type ExpenseLine struct {
	ID           uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	ReportID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"report_id"`
	Position     int             `gorm:"not null" json:"position"`
	DocumentID   *uuid.UUID      `gorm:"type:uuid;index" json:"document_id,omitempty"`
	Description  string          `gorm:"size:500;not null" json:"description"`
	IssuerTaxID  string          `gorm:"size:20" json:"issuer_tax_id,omitempty"`
	SeriesNumber string          `gorm:"size:40" json:"series_number,omitempty"`
	IssueDate    *time.Time      `gorm:"type:date" json:"issue_date,omitempty"`
	Quantity     decimal.Decimal `gorm:"type:decimal(15,4);not null" json:"quantity"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(15,4);not null" json:"unit_price"`
	Subtotal     decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"subtotal"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// BeforeCreate generates a UUID before creating a new expense line
func (l *ExpenseLine) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the ExpenseLine model
func (ExpenseLine) TableName() string {
	return "expense_lines"
}

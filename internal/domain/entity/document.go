package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/invoicecore/internal/domain/enum"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Document is an invoice or receipt extracted from an upload
type Document struct {
	ID           uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	TenantID     uuid.UUID  `gorm:"type:uuid;not null;index:idx_documents_composite,priority:1;uniqueIndex:idx_documents_tenant_qr,priority:1,where:is_duplicate = false" json:"tenant_id"`
	UploadedByID *uuid.UUID `gorm:"type:uuid;column:uploaded_by" json:"uploaded_by,omitempty"`

	// Identity fields
	IssuerTaxID      string          `gorm:"size:20;index:idx_documents_composite,priority:2" json:"issuer_tax_id"`
	IssuerName       string          `gorm:"size:255" json:"issuer_name,omitempty"`
	DocumentTypeCode string          `gorm:"size:4;not null" json:"document_type_code"`
	SeriesNumber     string          `gorm:"size:40;index:idx_documents_composite,priority:3" json:"series_number"`
	IssueDate        time.Time       `gorm:"type:date;not null" json:"issue_date"`
	TotalAmount      decimal.Decimal `gorm:"type:decimal(15,2);default:0" json:"total_amount"`
	Currency         string          `gorm:"size:3;default:'PEN'" json:"currency"`
	QRPayload        *string         `gorm:"type:text" json:"qr_payload,omitempty"`
	QRFingerprint    *string         `gorm:"size:64;uniqueIndex:idx_documents_tenant_qr,priority:2" json:"qr_fingerprint,omitempty"`

	// Verification fields; Verified stays nil until a verdict is obtained
	Verified                 *bool                       `json:"verified"`
	VerificationVerdict      *enum.VerificationVerdict   `gorm:"size:20" json:"verification_verdict,omitempty"`
	VerificationStateCode    *string                     `gorm:"size:10" json:"verification_state_code,omitempty"`
	AuthorityRucState        *string                     `gorm:"size:50" json:"authority_ruc_state,omitempty"`
	VerificationObservations datatypes.JSONSlice[string] `json:"verification_observations,omitempty"`
	VerifiedAt               *time.Time                  `json:"verified_at,omitempty"`
	VerificationAttempts     int                         `gorm:"default:0" json:"verification_attempts"`
	VerificationVariation    *string                     `gorm:"size:20" json:"verification_variation,omitempty"`
	RetryCount               int                         `gorm:"default:0" json:"retry_count"`
	VerificationError        *string                     `gorm:"type:text" json:"verification_error,omitempty"`
	LastVerificationAt       *time.Time                  `json:"last_verification_at,omitempty"`

	// Duplicate fields
	IsDuplicate     bool                  `gorm:"not null;default:false;index" json:"is_duplicate"`
	DuplicateOfID   *uuid.UUID            `gorm:"type:uuid;index" json:"duplicate_of_id,omitempty"`
	DuplicateMethod *enum.DuplicateMethod `gorm:"size:20" json:"duplicate_method,omitempty"`

	CreatedAt time.Time `gorm:"index:idx_documents_composite,priority:4" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate generates a UUID before creating a new document
func (d *Document) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the Document model
func (Document) TableName() string {
	return "documents"
}

// IsChecked reports whether the authority has produced a verdict for the document
func (d *Document) IsChecked() bool {
	return d.Verified != nil
}

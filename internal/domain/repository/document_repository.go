package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/invoicecore/internal/domain/entity"
	"github.com/sangkips/invoicecore/internal/domain/enum"
	"github.com/sangkips/invoicecore/pkg/pagination"
)

// DocumentRepository defines the interface for document data operations
type DocumentRepository interface {
	Create(ctx context.Context, doc *entity.Document) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Document, error)
	List(ctx context.Context, params *DocumentFilterParams) ([]entity.Document, int64, error)

	// FindOriginalByFingerprint returns the earliest non-duplicate document of
	// the tenant carrying the fingerprint, or nil.
	FindOriginalByFingerprint(ctx context.Context, tenantID uuid.UUID, fingerprint string, exclude *OriginalExclusion) (*entity.Document, error)
	// FindOriginalByCompositeKey returns the earliest non-duplicate document of
	// the tenant with the same issuer tax ID and series number, or nil.
	FindOriginalByCompositeKey(ctx context.Context, tenantID uuid.UUID, issuerTaxID, seriesNumber string, exclude *OriginalExclusion) (*entity.Document, error)

	// MarkDuplicate flags a non-duplicate document as a duplicate of originalID.
	// Returns false when the document was already a duplicate or is itself
	// referenced as the original of another document.
	MarkDuplicate(ctx context.Context, id, originalID uuid.UUID, method enum.DuplicateMethod) (bool, error)
	// HasDuplicates reports whether any document points at id as its original
	HasDuplicates(ctx context.Context, id uuid.UUID) (bool, error)

	// SaveVerification writes a verdict and its attempt bookkeeping in one update
	SaveVerification(ctx context.Context, id uuid.UUID, update *VerificationUpdate) error
	// SaveVerificationFailure records a failed verification run without touching the verdict
	SaveVerificationFailure(ctx context.Context, id uuid.UUID, message string, at time.Time) error
}

// OriginalExclusion keeps a stored document from matching itself or later documents
type OriginalExclusion struct {
	ID        uuid.UUID
	CreatedAt time.Time
}

// VerificationUpdate carries the persisted outcome of a verification run
type VerificationUpdate struct {
	Verified     bool
	Verdict      enum.VerificationVerdict
	StateCode    string
	RucState     string
	Observations []string
	Attempts     int
	Variation    string
	VerifiedAt   time.Time
}

// DocumentFilterParams contains filtering parameters for document queries
type DocumentFilterParams struct {
	Pagination  *pagination.PaginationParams
	Search      string
	IssuerTaxID string
	IsDuplicate *bool
	Verified    *bool
	Unchecked   bool // only documents without a verdict
	StartDate   *time.Time
	EndDate     *time.Time
	SortBy      string
	SortOrder   string
}

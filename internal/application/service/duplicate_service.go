package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/sangkips/invoicecore/internal/domain/entity"
	"github.com/sangkips/invoicecore/internal/domain/enum"
	"github.com/sangkips/invoicecore/internal/domain/repository"
	"github.com/sangkips/invoicecore/pkg/apperror"
	"github.com/sangkips/invoicecore/pkg/utils"
)

// DuplicateService detects and records duplicate documents within a tenant
type DuplicateService struct {
	documentRepo repository.DocumentRepository
}

// NewDuplicateService creates a new duplicate service
func NewDuplicateService(documentRepo repository.DocumentRepository) *DuplicateService {
	return &DuplicateService{documentRepo: documentRepo}
}

// DuplicateCheckInput identifies a candidate document
type DuplicateCheckInput struct {
	TenantID     uuid.UUID
	QRPayload    string
	IssuerTaxID  string
	SeriesNumber string
	// ExcludeID re-checks a stored document without matching itself or later documents
	ExcludeID *uuid.UUID
}

// DuplicateCheckResult is the verdict of a duplicate check
type DuplicateCheckResult struct {
	IsDuplicate bool                  `json:"is_duplicate"`
	OriginalID  *uuid.UUID            `json:"original_id,omitempty"`
	Method      *enum.DuplicateMethod `json:"method,omitempty"`
	Confidence  int                   `json:"confidence"`
}

func matched(original *entity.Document, method enum.DuplicateMethod) *DuplicateCheckResult {
	id := original.ID
	return &DuplicateCheckResult{
		IsDuplicate: true,
		OriginalID:  &id,
		Method:      &method,
		Confidence:  method.Confidence(),
	}
}

// CheckDuplicate looks for the earliest non-duplicate document of the tenant
// matching the QR fingerprint, then the issuer tax ID and series number
func (s *DuplicateService) CheckDuplicate(ctx context.Context, input *DuplicateCheckInput) (*DuplicateCheckResult, error) {
	if input.TenantID == uuid.Nil {
		return nil, apperror.ErrTenantRequired
	}

	fingerprint := utils.Fingerprint(input.QRPayload)
	taxID := utils.NormalizeTaxID(input.IssuerTaxID)
	series := utils.NormalizeSeries(input.SeriesNumber)
	hasCompositeKey := taxID != "" && series != ""

	if fingerprint == "" && !hasCompositeKey {
		return nil, apperror.NewValidationError([]apperror.FieldError{
			{Field: "qr_payload", Message: "QR payload or issuer tax ID with series number is required"},
		})
	}

	exclude, err := s.exclusion(ctx, input)
	if err != nil {
		return nil, err
	}

	if fingerprint != "" {
		original, err := s.documentRepo.FindOriginalByFingerprint(ctx, input.TenantID, fingerprint, exclude)
		if err != nil {
			return nil, err
		}
		if original != nil {
			return matched(original, enum.DuplicateMethodQR), nil
		}
	}

	if hasCompositeKey {
		original, err := s.documentRepo.FindOriginalByCompositeKey(ctx, input.TenantID, taxID, series, exclude)
		if err != nil {
			return nil, err
		}
		if original != nil {
			return matched(original, enum.DuplicateMethodCompositeKey), nil
		}
	}

	return &DuplicateCheckResult{IsDuplicate: false, Confidence: 100}, nil
}

func (s *DuplicateService) exclusion(ctx context.Context, input *DuplicateCheckInput) (*repository.OriginalExclusion, error) {
	if input.ExcludeID == nil {
		return nil, nil
	}
	doc, err := s.documentRepo.GetByID(ctx, *input.ExcludeID)
	if err != nil {
		return nil, err
	}
	if doc == nil || doc.TenantID != input.TenantID {
		return nil, apperror.NewNotFoundError("Document")
	}
	return &repository.OriginalExclusion{ID: doc.ID, CreatedAt: doc.CreatedAt}, nil
}

// MarkDuplicate records that documentID duplicates originalID
func (s *DuplicateService) MarkDuplicate(ctx context.Context, documentID, originalID uuid.UUID, method enum.DuplicateMethod) (*entity.Document, error) {
	if !method.IsValid() {
		return nil, apperror.NewFieldError("method", "Method must be QR or COMPOSITE_KEY")
	}
	if documentID == originalID {
		return nil, apperror.NewFieldError("original_id", "A document cannot duplicate itself")
	}

	doc, err := s.documentRepo.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, apperror.NewNotFoundError("Document")
	}

	original, err := s.documentRepo.GetByID(ctx, originalID)
	if err != nil {
		return nil, err
	}
	if original == nil || original.TenantID != doc.TenantID {
		return nil, apperror.NewNotFoundError("Original document")
	}

	if doc.IsDuplicate {
		return nil, apperror.NewConflictError("Document is already marked as a duplicate")
	}
	if original.IsDuplicate {
		return nil, apperror.NewConflictError("Original document is itself a duplicate")
	}
	if !original.CreatedAt.Before(doc.CreatedAt) {
		return nil, apperror.NewFieldError("original_id", "Original document must be older than the duplicate")
	}

	hasDuplicates, err := s.documentRepo.HasDuplicates(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if hasDuplicates {
		return nil, apperror.NewConflictError("Document is the original of other duplicates")
	}

	ok, err := s.documentRepo.MarkDuplicate(ctx, documentID, originalID, method)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.NewConflictError("Document changed before it could be marked as a duplicate")
	}

	return s.documentRepo.GetByID(ctx, documentID)
}

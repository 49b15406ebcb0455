package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sangkips/invoicecore/internal/domain/entity"
	"github.com/sangkips/invoicecore/internal/domain/repository"
	infraRepo "github.com/sangkips/invoicecore/internal/infrastructure/repository"
	"github.com/sangkips/invoicecore/internal/logger"
	"github.com/sangkips/invoicecore/pkg/apperror"
	"github.com/sangkips/invoicecore/pkg/pagination"
	"github.com/sangkips/invoicecore/pkg/utils"
	"github.com/shopspring/decimal"
)

// DocumentService runs the ingestion pipeline for extracted documents
type DocumentService struct {
	documentRepo repository.DocumentRepository
	duplicates   *DuplicateService
	verifier     *VerificationService
	log          zerolog.Logger
}

// NewDocumentService creates a new document service
func NewDocumentService(
	documentRepo repository.DocumentRepository,
	duplicates *DuplicateService,
	verifier *VerificationService,
) *DocumentService {
	return &DocumentService{
		documentRepo: documentRepo,
		duplicates:   duplicates,
		verifier:     verifier,
		log:          logger.WithComponent("documents"),
	}
}

// IngestDocumentInput holds the fields extracted from an upload
type IngestDocumentInput struct {
	UploadedByID     *uuid.UUID
	IssuerTaxID      string
	IssuerName       string
	DocumentTypeCode string
	SeriesNumber     string
	IssueDate        time.Time
	TotalAmount      decimal.Decimal
	Currency         string
	QRPayload        string
	SkipVerification bool
}

// IngestResult reports everything that happened to an ingested document.
// VerificationError is set when the document was stored but could not be verified.
type IngestResult struct {
	Document          *entity.Document      `json:"document"`
	Duplicate         *DuplicateCheckResult `json:"duplicate"`
	Verification      *VerificationOutcome  `json:"verification,omitempty"`
	VerificationError *string               `json:"verification_error,omitempty"`
}

// Ingest deduplicates, stores and verifies a document
func (s *DocumentService) Ingest(ctx context.Context, input *IngestDocumentInput) (*IngestResult, error) {
	tenantID, ok := infraRepo.GetTenantID(ctx)
	if !ok {
		return nil, apperror.ErrTenantRequired
	}

	if err := validateIngest(input); err != nil {
		return nil, err
	}

	doc := newDocument(tenantID, input)

	check, err := s.duplicates.CheckDuplicate(ctx, &DuplicateCheckInput{
		TenantID:     tenantID,
		QRPayload:    input.QRPayload,
		IssuerTaxID:  doc.IssuerTaxID,
		SeriesNumber: doc.SeriesNumber,
	})
	if err != nil {
		return nil, err
	}
	applyDuplicate(doc, check)

	err = s.documentRepo.Create(ctx, doc)
	if errors.Is(err, repository.ErrUniqueViolation) {
		// a concurrent ingest stored the same QR first
		check, err = s.duplicates.CheckDuplicate(ctx, &DuplicateCheckInput{
			TenantID:     tenantID,
			QRPayload:    input.QRPayload,
			IssuerTaxID:  doc.IssuerTaxID,
			SeriesNumber: doc.SeriesNumber,
		})
		if err != nil {
			return nil, err
		}
		if !check.IsDuplicate {
			return nil, apperror.NewConflictError("Document conflicts with a concurrent upload, retry")
		}
		doc.ID = uuid.Nil
		applyDuplicate(doc, check)
		err = s.documentRepo.Create(ctx, doc)
	}
	if err != nil {
		return nil, err
	}

	result := &IngestResult{Document: doc, Duplicate: check}

	s.log.Info().
		Str("document_id", doc.ID.String()).
		Bool("duplicate", doc.IsDuplicate).
		Msg("document ingested")

	if doc.IsDuplicate || input.SkipVerification || !s.verifier.IsVerifiable(doc.DocumentTypeCode) {
		return result, nil
	}

	verified, err := s.verifier.VerifyDocument(ctx, doc.ID)
	if err != nil {
		msg := err.Error()
		result.VerificationError = &msg
		s.log.Warn().Err(err).Str("document_id", doc.ID.String()).Msg("verification failed after ingest")

		if stored, getErr := s.documentRepo.GetByID(ctx, doc.ID); getErr == nil && stored != nil {
			result.Document = stored
		}
		return result, nil
	}

	result.Document = verified.Document
	result.Verification = verified.Outcome
	return result, nil
}

func validateIngest(input *IngestDocumentInput) error {
	var fieldErrors []apperror.FieldError
	if strings.TrimSpace(input.DocumentTypeCode) == "" {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "document_type_code", Message: "Document type code is required"})
	}
	if input.IssueDate.IsZero() {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "issue_date", Message: "Issue date is required"})
	}
	if input.TotalAmount.IsNegative() {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "total_amount", Message: "Total amount cannot be negative"})
	}
	if len(fieldErrors) > 0 {
		return apperror.NewValidationError(fieldErrors)
	}
	return nil
}

func newDocument(tenantID uuid.UUID, input *IngestDocumentInput) *entity.Document {
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = "PEN"
	}

	doc := &entity.Document{
		TenantID:         tenantID,
		UploadedByID:     input.UploadedByID,
		IssuerTaxID:      utils.NormalizeTaxID(input.IssuerTaxID),
		IssuerName:       strings.TrimSpace(input.IssuerName),
		DocumentTypeCode: strings.TrimSpace(input.DocumentTypeCode),
		SeriesNumber:     utils.NormalizeSeries(input.SeriesNumber),
		IssueDate:        input.IssueDate,
		TotalAmount:      input.TotalAmount.Round(2),
		Currency:         currency,
	}

	if payload := strings.TrimSpace(input.QRPayload); payload != "" {
		fingerprint := utils.Fingerprint(payload)
		doc.QRPayload = &payload
		doc.QRFingerprint = &fingerprint
	}
	return doc
}

func applyDuplicate(doc *entity.Document, check *DuplicateCheckResult) {
	if !check.IsDuplicate {
		return
	}
	method := *check.Method
	originalID := *check.OriginalID
	doc.IsDuplicate = true
	doc.DuplicateOfID = &originalID
	doc.DuplicateMethod = &method
}

// GetDocument retrieves a document by ID
func (s *DocumentService) GetDocument(ctx context.Context, id uuid.UUID) (*entity.Document, error) {
	doc, err := s.documentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, apperror.NewNotFoundError("Document")
	}
	return doc, nil
}

// ListDocuments retrieves documents with pagination
func (s *DocumentService) ListDocuments(ctx context.Context, params *repository.DocumentFilterParams) (*pagination.PaginatedResult[entity.Document], error) {
	if params.Pagination == nil {
		params.Pagination = pagination.DefaultPagination()
	}

	docs, total, err := s.documentRepo.List(ctx, params)
	if err != nil {
		return nil, err
	}

	return pagination.NewPaginatedResult(docs, pagination.NewPagination(params.Pagination.Page, params.Pagination.PerPage, total)), nil
}

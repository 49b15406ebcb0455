package service

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sangkips/invoicecore/internal/domain/entity"
	"github.com/sangkips/invoicecore/internal/domain/enum"
	"github.com/sangkips/invoicecore/internal/domain/repository"
	"github.com/sangkips/invoicecore/internal/infrastructure/authority"
	"github.com/sangkips/invoicecore/internal/logger"
	"github.com/sangkips/invoicecore/pkg/apperror"
	"github.com/shopspring/decimal"
)

const authorityServiceName = "Tax authority"

// authorityDateLayout is dd/mm/yyyy
const authorityDateLayout = "02/01/2006"

// AuthorityClient is the subset of the authority API the verifier uses
type AuthorityClient interface {
	Verify(ctx context.Context, req *authority.VerifyRequest) (*authority.VerifyResult, error)
	LookupTaxpayer(ctx context.Context, taxID string) (*authority.Taxpayer, error)
}

// VerificationConfig tunes the retry behaviour of the verifier
type VerificationConfig struct {
	TransientRetries int
	RetryDelay       time.Duration
	MaxVariations    int
	VerifiableTypes  []string
}

// dateVariation shifts the issue date to work around off-by-one-day
// mismatches in the authority's records
type dateVariation struct {
	name   string
	offset int
}

var dateVariations = []dateVariation{
	{name: "exact", offset: 0},
	{name: "+1day", offset: 1},
	{name: "-1day", offset: -1},
}

// DocumentIdentity is what the authority needs to find a document
type DocumentIdentity struct {
	IssuerTaxID      string
	DocumentTypeCode string
	SeriesNumber     string
	IssueDate        time.Time
	TotalAmount      decimal.Decimal
}

// VerificationOutcome is the verdict of a verification run
type VerificationOutcome struct {
	Verdict       enum.VerificationVerdict `json:"verdict"`
	Verified      bool                     `json:"verified"`
	StateCode     string                   `json:"state_code,omitempty"`
	RucState      string                   `json:"ruc_state,omitempty"`
	Observations  []string                 `json:"observations"`
	AttemptCount  int                      `json:"attempt_count"`
	VariationUsed string                   `json:"variation_used,omitempty"`
}

// VerificationService validates documents against the tax authority
type VerificationService struct {
	client       AuthorityClient
	documentRepo repository.DocumentRepository
	cfg          VerificationConfig
	now          func() time.Time
	log          zerolog.Logger
}

// NewVerificationService creates a new verification service
func NewVerificationService(client AuthorityClient, documentRepo repository.DocumentRepository, cfg VerificationConfig) *VerificationService {
	if cfg.MaxVariations <= 0 || cfg.MaxVariations > len(dateVariations) {
		cfg.MaxVariations = len(dateVariations)
	}
	if cfg.TransientRetries < 0 {
		cfg.TransientRetries = 0
	}
	return &VerificationService{
		client:       client,
		documentRepo: documentRepo,
		cfg:          cfg,
		now:          time.Now,
		log:          logger.WithComponent("verifier"),
	}
}

// IsVerifiable reports whether documents of this type are checked by the authority
func (s *VerificationService) IsVerifiable(documentTypeCode string) bool {
	return slices.Contains(s.cfg.VerifiableTypes, strings.TrimSpace(documentTypeCode))
}

// VerifyWithRetries queries the authority, retrying with shifted dates while
// the authority reports the document as not found
func (s *VerificationService) VerifyWithRetries(ctx context.Context, identity *DocumentIdentity) (*VerificationOutcome, error) {
	if !s.IsVerifiable(identity.DocumentTypeCode) {
		return &VerificationOutcome{Verdict: enum.VerdictNotApplicable, Observations: []string{}}, nil
	}

	series, number, err := validateIdentity(identity)
	if err != nil {
		return nil, err
	}

	var outcome *VerificationOutcome
	for i, variation := range dateVariations[:s.cfg.MaxVariations] {
		req := &authority.VerifyRequest{
			TaxID:   strings.TrimSpace(identity.IssuerTaxID),
			DocType: strings.TrimSpace(identity.DocumentTypeCode),
			Series:  series,
			Number:  number,
			Date:    identity.IssueDate.AddDate(0, 0, variation.offset).Format(authorityDateLayout),
			Amount:  identity.TotalAmount.StringFixed(2),
		}

		result, err := s.callWithRetry(ctx, req)
		if err != nil {
			return nil, err
		}

		outcome = &VerificationOutcome{
			Verdict:       result.Verdict,
			Verified:      result.Verdict.IsValid(),
			StateCode:     result.StateCode,
			RucState:      result.RucState,
			Observations:  result.Observations,
			AttemptCount:  i + 1,
			VariationUsed: variation.name,
		}
		if outcome.Observations == nil {
			outcome.Observations = []string{}
		}

		if result.Verdict != enum.VerdictNotFound {
			break
		}
	}

	s.log.Debug().
		Str("series", identity.SeriesNumber).
		Str("verdict", string(outcome.Verdict)).
		Int("attempts", outcome.AttemptCount).
		Msg("verification finished")

	return outcome, nil
}

func validateIdentity(identity *DocumentIdentity) (series, number string, err error) {
	var fieldErrors []apperror.FieldError
	if strings.TrimSpace(identity.IssuerTaxID) == "" {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "issuer_tax_id", Message: "Issuer tax ID is required"})
	}

	parts := strings.SplitN(strings.TrimSpace(identity.SeriesNumber), "-", 2)
	if len(parts) == 2 {
		series, number = strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	}
	if series == "" || number == "" {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "series_number", Message: "Series number must look like SERIES-NUMBER"})
	}

	if identity.IssueDate.IsZero() {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "issue_date", Message: "Issue date is required"})
	}

	if len(fieldErrors) > 0 {
		return "", "", apperror.NewValidationError(fieldErrors)
	}
	return series, number, nil
}

// callWithRetry repeats a single verification call on transient failures
func (s *VerificationService) callWithRetry(ctx context.Context, req *authority.VerifyRequest) (*authority.VerifyResult, error) {
	var lastErr error
	for attempt := 0; attempt <= s.cfg.TransientRetries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(s.cfg.RetryDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}

		result, err := s.client.Verify(ctx, req)
		if err == nil {
			return result, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		lastErr = err
		if !authority.IsRetryable(err) {
			break
		}
		s.log.Warn().Err(err).Int("attempt", attempt+1).Msg("authority call failed")
	}

	return nil, apperror.NewExternalServiceError(authorityServiceName, lastErr)
}

// VerifyDocumentResult pairs the refreshed document with the run that updated it
type VerifyDocumentResult struct {
	Document *entity.Document     `json:"document"`
	Outcome  *VerificationOutcome `json:"outcome"`
}

// VerifyDocument verifies a stored document and persists the verdict.
// When the authority is unreachable only the failure is recorded.
func (s *VerificationService) VerifyDocument(ctx context.Context, documentID uuid.UUID) (*VerifyDocumentResult, error) {
	doc, err := s.documentRepo.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, apperror.NewNotFoundError("Document")
	}
	if doc.IsDuplicate {
		return nil, apperror.NewConflictError("Duplicate documents cannot be verified")
	}
	if !s.IsVerifiable(doc.DocumentTypeCode) {
		return nil, apperror.NewFieldError("document_type_code", "Document type "+doc.DocumentTypeCode+" is not subject to verification")
	}

	outcome, err := s.VerifyWithRetries(ctx, &DocumentIdentity{
		IssuerTaxID:      doc.IssuerTaxID,
		DocumentTypeCode: doc.DocumentTypeCode,
		SeriesNumber:     doc.SeriesNumber,
		IssueDate:        doc.IssueDate,
		TotalAmount:      doc.TotalAmount,
	})
	if err != nil {
		if apperror.HasKind(err, apperror.KindExternalService) {
			if saveErr := s.documentRepo.SaveVerificationFailure(ctx, doc.ID, err.Error(), s.now()); saveErr != nil {
				s.log.Error().Err(saveErr).Str("document_id", doc.ID.String()).Msg("failed to record verification failure")
			}
		}
		return nil, err
	}

	err = s.documentRepo.SaveVerification(ctx, doc.ID, &repository.VerificationUpdate{
		Verified:     outcome.Verified,
		Verdict:      outcome.Verdict,
		StateCode:    outcome.StateCode,
		RucState:     outcome.RucState,
		Observations: outcome.Observations,
		Attempts:     outcome.AttemptCount,
		Variation:    outcome.VariationUsed,
		VerifiedAt:   s.now(),
	})
	if err != nil {
		return nil, err
	}

	doc, err = s.documentRepo.GetByID(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	return &VerifyDocumentResult{Document: doc, Outcome: outcome}, nil
}

// LookupTaxpayer fetches the authority's record for a tax ID. Single attempt.
func (s *VerificationService) LookupTaxpayer(ctx context.Context, taxID string) (*authority.Taxpayer, error) {
	taxID = strings.TrimSpace(taxID)
	if taxID == "" {
		return nil, apperror.NewFieldError("tax_id", "Tax ID is required")
	}

	taxpayer, err := s.client.LookupTaxpayer(ctx, taxID)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, apperror.NewExternalServiceError(authorityServiceName, err)
	}
	return taxpayer, nil
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/invoicecore/internal/domain/entity"
	"github.com/sangkips/invoicecore/internal/domain/enum"
	domainRepo "github.com/sangkips/invoicecore/internal/domain/repository"
	"github.com/sangkips/invoicecore/internal/infrastructure/database"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var documentSortColumns = map[string]bool{
	"created_at":    true,
	"issue_date":    true,
	"total_amount":  true,
	"series_number": true,
}

type documentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *gorm.DB) domainRepo.DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) Create(ctx context.Context, doc *entity.Document) error {
	err := r.db.WithContext(ctx).Create(doc).Error
	if database.IsUniqueViolation(err) {
		return fmt.Errorf("%w: %v", domainRepo.ErrUniqueViolation, err)
	}
	return err
}

func (r *documentRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Document, error) {
	var doc entity.Document
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(ctx)).
		First(&doc, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &doc, err
}

func (r *documentRepository) List(ctx context.Context, params *domainRepo.DocumentFilterParams) ([]entity.Document, int64, error) {
	var docs []entity.Document
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Document{}).Scopes(TenantScope(ctx))

	if params.Search != "" {
		pattern := likePattern(params.Search)
		query = query.Where("LOWER(series_number) LIKE ? OR LOWER(issuer_name) LIKE ? OR issuer_tax_id LIKE ?",
			pattern, pattern, pattern)
	}

	if params.IssuerTaxID != "" {
		query = query.Where("issuer_tax_id = ?", params.IssuerTaxID)
	}

	if params.IsDuplicate != nil {
		query = query.Where("is_duplicate = ?", *params.IsDuplicate)
	}

	if params.Unchecked {
		query = query.Where("verified IS NULL")
	} else if params.Verified != nil {
		query = query.Where("verified = ?", *params.Verified)
	}

	if params.StartDate != nil {
		query = query.Where("issue_date >= ?", *params.StartDate)
	}

	if params.EndDate != nil {
		query = query.Where("issue_date <= ?", *params.EndDate)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	params.Pagination.Validate()
	err := query.Offset(params.Pagination.Offset()).Limit(params.Pagination.PerPage).
		Order(orderClause(params.SortBy, params.SortOrder, documentSortColumns, "created_at")).
		Find(&docs).Error

	return docs, total, err
}

func (r *documentRepository) FindOriginalByFingerprint(ctx context.Context, tenantID uuid.UUID, fingerprint string, exclude *domainRepo.OriginalExclusion) (*entity.Document, error) {
	query := r.db.WithContext(ctx).
		Where("tenant_id = ? AND qr_fingerprint = ? AND is_duplicate = ?", tenantID, fingerprint, false)
	return r.earliest(query, exclude)
}

func (r *documentRepository) FindOriginalByCompositeKey(ctx context.Context, tenantID uuid.UUID, issuerTaxID, seriesNumber string, exclude *domainRepo.OriginalExclusion) (*entity.Document, error) {
	query := r.db.WithContext(ctx).
		Where("tenant_id = ? AND issuer_tax_id = ? AND series_number = ? AND is_duplicate = ?",
			tenantID, issuerTaxID, seriesNumber, false)
	return r.earliest(query, exclude)
}

// earliest picks the oldest match, ignoring the excluded document and anything stored after it
func (r *documentRepository) earliest(query *gorm.DB, exclude *domainRepo.OriginalExclusion) (*entity.Document, error) {
	if exclude != nil {
		query = query.Where("id <> ? AND created_at < ?", exclude.ID, exclude.CreatedAt)
	}

	var doc entity.Document
	err := query.Order("created_at ASC, id ASC").Take(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepository) MarkDuplicate(ctx context.Context, id, originalID uuid.UUID, method enum.DuplicateMethod) (bool, error) {
	result := r.db.WithContext(ctx).Model(&entity.Document{}).
		Where("id = ? AND is_duplicate = ?", id, false).
		Where("NOT EXISTS (?)", r.db.Model(&entity.Document{}).Select("id").Where("duplicate_of_id = ?", id)).
		Updates(map[string]interface{}{
			"is_duplicate":     true,
			"duplicate_of_id":  originalID,
			"duplicate_method": method,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *documentRepository) HasDuplicates(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Document{}).
		Where("duplicate_of_id = ?", id).
		Limit(1).
		Count(&count).Error
	return count > 0, err
}

func (r *documentRepository) SaveVerification(ctx context.Context, id uuid.UUID, update *domainRepo.VerificationUpdate) error {
	retries := update.Attempts - 1
	if retries < 0 {
		retries = 0
	}

	var stateCode, rucState, variation interface{}
	if update.StateCode != "" {
		stateCode = update.StateCode
	}
	if update.RucState != "" {
		rucState = update.RucState
	}
	if update.Variation != "" {
		variation = update.Variation
	}

	return r.db.WithContext(ctx).Model(&entity.Document{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"verified":                  update.Verified,
			"verification_verdict":      update.Verdict,
			"verification_state_code":   stateCode,
			"authority_ruc_state":       rucState,
			"verification_observations": datatypes.JSONSlice[string](update.Observations),
			"verified_at":               update.VerifiedAt,
			"verification_attempts":     update.Attempts,
			"verification_variation":    variation,
			"retry_count":               retries,
			"verification_error":        nil,
			"last_verification_at":      update.VerifiedAt,
		}).Error
}

func (r *documentRepository) SaveVerificationFailure(ctx context.Context, id uuid.UUID, message string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&entity.Document{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"verification_error":   message,
			"last_verification_at": at,
		}).Error
}

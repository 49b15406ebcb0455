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
	"gorm.io/gorm"
)

var reportSortColumns = map[string]bool{
	"created_at":   true,
	"number":       true,
	"total_amount": true,
	"approved_at":  true,
}

type expenseReportRepository struct {
	db *gorm.DB
}

// NewExpenseReportRepository creates a new expense report repository
func NewExpenseReportRepository(db *gorm.DB) domainRepo.ExpenseReportRepository {
	return &expenseReportRepository{db: db}
}

func orderedLines(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

func (r *expenseReportRepository) Create(ctx context.Context, report *entity.ExpenseReport) error {
	err := r.db.WithContext(ctx).Create(report).Error
	if database.IsUniqueViolation(err) {
		return fmt.Errorf("%w: %v", domainRepo.ErrUniqueViolation, err)
	}
	return err
}

func (r *expenseReportRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.ExpenseReport, error) {
	var report entity.ExpenseReport
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(ctx)).
		Preload("Lines", orderedLines).
		First(&report, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &report, err
}

func (r *expenseReportRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.ExpenseReport, error) {
	var reports []entity.ExpenseReport
	if len(ids) == 0 {
		return reports, nil
	}
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(ctx)).
		Preload("Lines", orderedLines).
		Where("id IN ?", ids).
		Order("created_at ASC").
		Find(&reports).Error
	return reports, err
}

func (r *expenseReportRepository) List(ctx context.Context, params *domainRepo.ExpenseReportFilterParams) ([]entity.ExpenseReport, int64, error) {
	var reports []entity.ExpenseReport
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.ExpenseReport{}).Scopes(TenantScope(ctx))

	if params.Search != "" {
		pattern := likePattern(params.Search)
		query = query.Where("LOWER(number) LIKE ? OR LOWER(title) LIKE ?", pattern, pattern)
	}

	if params.UserID != nil {
		query = query.Where("user_id = ?", *params.UserID)
	}

	if params.State != nil {
		query = query.Where("approval_state = ?", *params.State)
	}

	if params.BucketNumber != "" {
		query = query.Where("bucket_number = ?", params.BucketNumber)
	} else if params.Unassigned {
		query = query.Where("bucket_number IS NULL")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	params.Pagination.Validate()
	err := query.Offset(params.Pagination.Offset()).Limit(params.Pagination.PerPage).
		Order(orderClause(params.SortBy, params.SortOrder, reportSortColumns, "created_at")).
		Find(&reports).Error

	return reports, total, err
}

func (r *expenseReportRepository) Decide(ctx context.Context, id uuid.UUID, decision *domainRepo.ApprovalDecision) (bool, error) {
	result := r.db.WithContext(ctx).Model(&entity.ExpenseReport{}).
		Scopes(TenantScope(ctx)).
		Where("id = ? AND approval_state = ?", id, enum.ApprovalStatePending).
		Updates(map[string]interface{}{
			"approval_state":   decision.State,
			"approver_id":      decision.ApproverID,
			"approved_at":      decision.DecidedAt,
			"approval_comment": decision.Comment,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *expenseReportRepository) ReplaceContent(ctx context.Context, id uuid.UUID, allowed []enum.ApprovalState, content *domainRepo.ReportContent) (bool, error) {
	changed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&entity.ExpenseReport{}).
			Scopes(TenantScope(ctx)).
			Where("id = ? AND approval_state IN ?", id, allowed).
			Updates(map[string]interface{}{
				"title":            content.Title,
				"description":      content.Description,
				"cost_center":      content.CostCenter,
				"currency":         content.Currency,
				"total_amount":     content.TotalAmount,
				"approval_state":   enum.ApprovalStatePending,
				"approver_id":      nil,
				"approved_at":      nil,
				"approval_comment": nil,
				"bucket_type":      enum.BucketTypeNone,
				"bucket_number":    nil,
				"assigned_at":      nil,
				"mirror_saved_at":  nil,
				"mirror_error":     nil,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}

		if err := tx.Where("report_id = ?", id).Delete(&entity.ExpenseLine{}).Error; err != nil {
			return err
		}

		if len(content.Lines) > 0 {
			lines := make([]entity.ExpenseLine, len(content.Lines))
			for i, line := range content.Lines {
				line.ID = uuid.Nil
				line.ReportID = id
				lines[i] = line
			}
			if err := tx.Create(&lines).Error; err != nil {
				return err
			}
		}

		changed = true
		return nil
	})
	return changed, err
}

func (r *expenseReportRepository) AssignBucket(ctx context.Context, id uuid.UUID, bucketType enum.BucketType, bucketNumber string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&entity.ExpenseReport{}).
		Scopes(TenantScope(ctx)).
		Where("id = ? AND approval_state = ? AND bucket_number IS NULL", id, enum.ApprovalStateApproved).
		Updates(map[string]interface{}{
			"bucket_type":   bucketType,
			"bucket_number": bucketNumber,
			"assigned_at":   at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *expenseReportRepository) RecordMirrorOutcome(ctx context.Context, id uuid.UUID, savedAt *time.Time, mirrorErr *string) error {
	return r.db.WithContext(ctx).Model(&entity.ExpenseReport{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"mirror_saved_at": savedAt,
			"mirror_error":    mirrorErr,
		}).Error
}

func (r *expenseReportRepository) Delete(ctx context.Context, id uuid.UUID, allowed []enum.ApprovalState) (bool, error) {
	deleted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Scopes(TenantScope(ctx)).
			Where("id = ? AND approval_state IN ?", id, allowed).
			Delete(&entity.ExpenseReport{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		deleted = true
		return tx.Where("report_id = ?", id).Delete(&entity.ExpenseLine{}).Error
	})
	return deleted, err
}

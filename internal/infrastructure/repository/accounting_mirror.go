package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/sangkips/invoicecore/internal/domain/entity"
	domainRepo "github.com/sangkips/invoicecore/internal/domain/repository"
	"github.com/sangkips/invoicecore/internal/infrastructure/database"
	"gorm.io/gorm"
)

// ErrMirrorDisabled is returned by the mirror when no accounting store is configured
var ErrMirrorDisabled = errors.New("accounting store not configured")

type accountingMirror struct {
	db *gorm.DB
}

// NewAccountingMirror creates the accounting mirror writer. A nil db yields a
// mirror that fails every write with ErrMirrorDisabled.
func NewAccountingMirror(db *gorm.DB) domainRepo.AccountingMirror {
	if db == nil {
		return offlineMirror{err: ErrMirrorDisabled}
	}
	return &accountingMirror{db: db}
}

func (m *accountingMirror) SaveReport(ctx context.Context, report *entity.ExpenseReport) error {
	if !report.IsAssigned() {
		return errors.New("report has no bucket number")
	}

	header, lines := toAccountingRows(report)
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&header).Error; err != nil {
			return err
		}
		if len(lines) == 0 {
			return nil
		}
		return tx.Create(&lines).Error
	})
}

func toAccountingRows(report *entity.ExpenseReport) (database.AccountingHeader, []database.AccountingLine) {
	header := database.AccountingHeader{
		BucketNumber: *report.BucketNumber,
		ReportNumber: report.Number,
		BucketType:   report.BucketType.String(),
		ReportID:     report.ID.String(),
		TenantID:     report.TenantID.String(),
		EmployeeID:   report.UserID.String(),
		Title:        report.Title,
		CostCenter:   report.CostCenter,
		Currency:     report.Currency,
		TotalAmount:  report.TotalAmount,
		ApprovedAt:   report.ApprovedAt,
		AssignedAt:   report.AssignedAt,
		LineCount:    len(report.Lines),
	}
	if report.ApproverID != nil {
		header.ApproverID = report.ApproverID.String()
	}

	lines := make([]database.AccountingLine, 0, len(report.Lines))
	for _, line := range report.Lines {
		lines = append(lines, database.AccountingLine{
			BucketNumber: header.BucketNumber,
			ReportNumber: report.Number,
			LineNo:       line.Position,
			IssueDate:    line.IssueDate,
			IssuerTaxID:  line.IssuerTaxID,
			SeriesNumber: line.SeriesNumber,
			Description:  line.Description,
			Quantity:     line.Quantity,
			UnitPrice:    line.UnitPrice,
			Amount:       line.Subtotal,
		})
	}
	return header, lines
}

// NewUnavailableAccountingMirror returns a mirror that fails every write with
// the error that prevented connecting to the accounting store.
func NewUnavailableAccountingMirror(cause error) domainRepo.AccountingMirror {
	return offlineMirror{err: fmt.Errorf("accounting store unavailable: %w", cause)}
}

type offlineMirror struct {
	err error
}

func (m offlineMirror) SaveReport(ctx context.Context, report *entity.ExpenseReport) error {
	return m.err
}

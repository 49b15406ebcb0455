package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sangkips/invoicecore/internal/domain/entity"
	"github.com/sangkips/invoicecore/internal/domain/enum"
	"github.com/sangkips/invoicecore/internal/domain/repository"
	infraRepo "github.com/sangkips/invoicecore/internal/infrastructure/repository"
	"github.com/sangkips/invoicecore/internal/logger"
	"github.com/sangkips/invoicecore/pkg/apperror"
	"github.com/sangkips/invoicecore/pkg/pagination"
	"github.com/shopspring/decimal"
)

// Permissions checked around the approval workflow
const (
	PermissionApproveReports = "approve-expense-reports"
	PermissionManageReports  = "manage-expense-reports"
)

// ApprovalService drives expense reports through approval and bucket
// assignment, mirroring assigned reports into the accounting store
type ApprovalService struct {
	reportRepo    repository.ExpenseReportRepository
	sequences     *SequenceService
	mirror        repository.AccountingMirror
	mirrorTimeout time.Duration
	now           func() time.Time
	log           zerolog.Logger
}

// NewApprovalService creates a new approval service
func NewApprovalService(
	reportRepo repository.ExpenseReportRepository,
	sequences *SequenceService,
	mirror repository.AccountingMirror,
	mirrorTimeout time.Duration,
) *ApprovalService {
	return &ApprovalService{
		reportRepo:    reportRepo,
		sequences:     sequences,
		mirror:        mirror,
		mirrorTimeout: mirrorTimeout,
		now:           time.Now,
		log:           logger.WithComponent("approval"),
	}
}

// ExpenseLineInput represents a line in a report
type ExpenseLineInput struct {
	DocumentID   *uuid.UUID
	Description  string
	IssuerTaxID  string
	SeriesNumber string
	IssueDate    *time.Time
	Quantity     decimal.Decimal
	UnitPrice    decimal.Decimal
}

// ReportHeaderInput holds the editable header fields of a report
type ReportHeaderInput struct {
	Title       string
	Description string
	CostCenter  string
	Currency    string
}

// CreateExpenseReportInput represents the create report input
type CreateExpenseReportInput struct {
	UserID uuid.UUID
	ReportHeaderInput
	Lines []ExpenseLineInput
}

// EditExpenseReportInput represents an edit of a rejected or pending report
type EditExpenseReportInput struct {
	EditorID   uuid.UUID
	Privileged bool
	ReportHeaderInput
	Lines []ExpenseLineInput
}

// AssignmentResult is a committed bucket assignment plus the outcome of the
// accounting mirror write
type AssignmentResult struct {
	Report         *entity.ExpenseReport `json:"report"`
	SQLServerSaved bool                  `json:"sql_server_saved"`
	SQLServerError *string               `json:"sql_server_error,omitempty"`
}

// BulkItemResult is the outcome for one report in a bulk action
type BulkItemResult struct {
	ID             uuid.UUID `json:"id"`
	Number         string    `json:"number"`
	Success        bool      `json:"success"`
	Error          string    `json:"error,omitempty"`
	SQLServerSaved *bool     `json:"sql_server_saved,omitempty"`
	SQLServerError *string   `json:"sql_server_error,omitempty"`
}

// BulkResult summarizes a bulk action. Reports not in a valid source state
// are left out of Items.
type BulkResult struct {
	Affected int              `json:"affected"`
	Errors   []string         `json:"errors"`
	Items    []BulkItemResult `json:"items"`
}

// CreateReport allocates a report number and stores a new PENDING report
func (s *ApprovalService) CreateReport(ctx context.Context, input *CreateExpenseReportInput) (*entity.ExpenseReport, error) {
	tenantID, ok := infraRepo.GetTenantID(ctx)
	if !ok {
		return nil, apperror.ErrTenantRequired
	}

	header, err := normalizeHeader(&input.ReportHeaderInput)
	if err != nil {
		return nil, err
	}
	lines, total, err := buildLines(input.Lines)
	if err != nil {
		return nil, err
	}

	number, err := s.sequences.Allocate(ctx, DomainKeyExpenseReport)
	if err != nil {
		return nil, err
	}

	report := &entity.ExpenseReport{
		TenantID:      tenantID,
		UserID:        input.UserID,
		Number:        number,
		Title:         header.Title,
		Description:   header.Description,
		CostCenter:    header.CostCenter,
		Currency:      header.Currency,
		TotalAmount:   total,
		ApprovalState: enum.ApprovalStatePending,
		BucketType:    enum.BucketTypeNone,
		Lines:         lines,
	}

	if err := s.reportRepo.Create(ctx, report); err != nil {
		return nil, err
	}

	s.log.Info().Str("report_id", report.ID.String()).Str("number", number).Msg("expense report created")
	return s.GetReport(ctx, report.ID)
}

func normalizeHeader(input *ReportHeaderInput) (*ReportHeaderInput, error) {
	header := &ReportHeaderInput{
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		CostCenter:  strings.TrimSpace(input.CostCenter),
		Currency:    strings.ToUpper(strings.TrimSpace(input.Currency)),
	}
	if header.Currency == "" {
		header.Currency = "PEN"
	}
	if header.Title == "" {
		return nil, apperror.NewFieldError("title", "Title is required")
	}
	if len(header.Currency) != 3 {
		return nil, apperror.NewFieldError("currency", "Currency must be a 3-letter ISO code")
	}
	return header, nil
}

// buildLines numbers the lines and computes subtotals and the report total
func buildLines(inputs []ExpenseLineInput) ([]entity.ExpenseLine, decimal.Decimal, error) {
	if len(inputs) == 0 {
		return nil, decimal.Zero, apperror.NewFieldError("lines", "At least one line is required")
	}

	var fieldErrors []apperror.FieldError
	lines := make([]entity.ExpenseLine, 0, len(inputs))
	total := decimal.Zero

	for i, in := range inputs {
		prefix := fmt.Sprintf("lines[%d].", i)
		if strings.TrimSpace(in.Description) == "" {
			fieldErrors = append(fieldErrors, apperror.FieldError{Field: prefix + "description", Message: "Description is required"})
		}
		if !in.Quantity.IsPositive() {
			fieldErrors = append(fieldErrors, apperror.FieldError{Field: prefix + "quantity", Message: "Quantity must be greater than zero"})
		}
		if in.UnitPrice.IsNegative() {
			fieldErrors = append(fieldErrors, apperror.FieldError{Field: prefix + "unit_price", Message: "Unit price cannot be negative"})
		}

		subtotal := in.Quantity.Mul(in.UnitPrice).Round(2)
		total = total.Add(subtotal)

		lines = append(lines, entity.ExpenseLine{
			Position:     i + 1,
			DocumentID:   in.DocumentID,
			Description:  strings.TrimSpace(in.Description),
			IssuerTaxID:  strings.TrimSpace(in.IssuerTaxID),
			SeriesNumber: strings.ToUpper(strings.TrimSpace(in.SeriesNumber)),
			IssueDate:    in.IssueDate,
			Quantity:     in.Quantity,
			UnitPrice:    in.UnitPrice,
			Subtotal:     subtotal,
		})
	}

	if len(fieldErrors) > 0 {
		return nil, decimal.Zero, apperror.NewValidationError(fieldErrors)
	}
	return lines, total, nil
}

// GetReport retrieves a report with its lines
func (s *ApprovalService) GetReport(ctx context.Context, id uuid.UUID) (*entity.ExpenseReport, error) {
	report, err := s.reportRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if report == nil {
		return nil, apperror.NewNotFoundError("Expense report")
	}
	return report, nil
}

// ListReports retrieves reports with pagination
func (s *ApprovalService) ListReports(ctx context.Context, params *repository.ExpenseReportFilterParams) (*pagination.PaginatedResult[entity.ExpenseReport], error) {
	if params.Pagination == nil {
		params.Pagination = pagination.DefaultPagination()
	}

	reports, total, err := s.reportRepo.List(ctx, params)
	if err != nil {
		return nil, err
	}

	return pagination.NewPaginatedResult(reports, pagination.NewPagination(params.Pagination.Page, params.Pagination.PerPage, total)), nil
}

// Approve moves a PENDING report to APPROVED
func (s *ApprovalService) Approve(ctx context.Context, id, approverID uuid.UUID, comment *string) (*entity.ExpenseReport, error) {
	return s.decide(ctx, id, approverID, comment, enum.ApprovalStateApproved)
}

// Reject moves a PENDING report to REJECTED
func (s *ApprovalService) Reject(ctx context.Context, id, approverID uuid.UUID, comment *string) (*entity.ExpenseReport, error) {
	return s.decide(ctx, id, approverID, comment, enum.ApprovalStateRejected)
}

func (s *ApprovalService) decide(ctx context.Context, id, approverID uuid.UUID, comment *string, state enum.ApprovalState) (*entity.ExpenseReport, error) {
	report, err := s.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}
	if report.ApprovalState != enum.ApprovalStatePending {
		return nil, apperror.NewConflictError(fmt.Sprintf("Expense report is %s, only PENDING reports can be decided", report.ApprovalState))
	}

	comment = trimmedOrNil(comment)
	ok, err := s.reportRepo.Decide(ctx, id, &repository.ApprovalDecision{
		State:      state,
		ApproverID: approverID,
		Comment:    comment,
		DecidedAt:  s.now(),
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.NewConflictError("Expense report was decided by another request")
	}

	s.log.Info().Str("report_id", id.String()).Str("state", state.String()).Msg("expense report decided")
	return s.GetReport(ctx, id)
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// EditReport replaces the content of a REJECTED report, or of a PENDING one
// when the editor is privileged, and sends it back to PENDING
func (s *ApprovalService) EditReport(ctx context.Context, id uuid.UUID, input *EditExpenseReportInput) (*entity.ExpenseReport, error) {
	report, err := s.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}

	switch report.ApprovalState {
	case enum.ApprovalStateApproved:
		return nil, apperror.NewConflictError("Approved expense reports cannot be edited")
	case enum.ApprovalStatePending:
		if !input.Privileged {
			return nil, apperror.NewForbiddenError("Only privileged users can edit a pending expense report")
		}
	}
	if !(ReportActor{UserID: input.EditorID, Privileged: input.Privileged}).owns(report) {
		return nil, apperror.NewForbiddenError("Only the owner can edit this expense report")
	}

	header, err := normalizeHeader(&input.ReportHeaderInput)
	if err != nil {
		return nil, err
	}
	lines, total, err := buildLines(input.Lines)
	if err != nil {
		return nil, err
	}

	allowed := []enum.ApprovalState{enum.ApprovalStateRejected}
	if input.Privileged {
		allowed = append(allowed, enum.ApprovalStatePending)
	}

	ok, err := s.reportRepo.ReplaceContent(ctx, id, allowed, &repository.ReportContent{
		Title:       header.Title,
		Description: header.Description,
		CostCenter:  header.CostCenter,
		Currency:    header.Currency,
		TotalAmount: total,
		Lines:       lines,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.NewConflictError("Expense report changed state during the edit")
	}

	s.log.Info().Str("report_id", id.String()).Msg("expense report edited")
	return s.GetReport(ctx, id)
}

func validateBucket(bucketType enum.BucketType, bucketNumber string) (string, error) {
	var fieldErrors []apperror.FieldError
	if !bucketType.IsAssignable() {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "bucket_type", Message: "Bucket type must be ADVANCE_SETTLEMENT or PETTY_CASH"})
	}
	bucketNumber = strings.TrimSpace(bucketNumber)
	if bucketNumber == "" {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "bucket_number", Message: "Bucket number is required"})
	}
	if len(fieldErrors) > 0 {
		return "", apperror.NewValidationError(fieldErrors)
	}
	return bucketNumber, nil
}

// AssignToBucket files an APPROVED report under a bucket, then copies it to
// the accounting store. A failed copy never undoes the assignment.
func (s *ApprovalService) AssignToBucket(ctx context.Context, id uuid.UUID, bucketType enum.BucketType, bucketNumber string) (*AssignmentResult, error) {
	bucketNumber, err := validateBucket(bucketType, bucketNumber)
	if err != nil {
		return nil, err
	}

	report, err := s.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}
	if report.ApprovalState != enum.ApprovalStateApproved {
		return nil, apperror.NewConflictError(fmt.Sprintf("Expense report is %s, only APPROVED reports can be assigned", report.ApprovalState))
	}
	if report.IsAssigned() {
		return nil, apperror.NewConflictError("Expense report is already assigned to bucket " + *report.BucketNumber)
	}

	ok, err := s.reportRepo.AssignBucket(ctx, id, bucketType, bucketNumber, s.now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.NewConflictError("Expense report was assigned by another request")
	}

	report, err = s.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("report_id", id.String()).Str("bucket", bucketNumber).Msg("expense report assigned")
	return s.writeMirror(ctx, report), nil
}

// RetryMirror re-sends an assigned report to the accounting store
func (s *ApprovalService) RetryMirror(ctx context.Context, id uuid.UUID) (*AssignmentResult, error) {
	report, err := s.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}
	if !report.IsAssigned() {
		return nil, apperror.NewConflictError("Expense report has not been assigned to a bucket")
	}
	return s.writeMirror(ctx, report), nil
}

// writeMirror makes one bounded attempt to copy the report and stamps the outcome
func (s *ApprovalService) writeMirror(ctx context.Context, report *entity.ExpenseReport) *AssignmentResult {
	mirrorCtx := ctx
	if s.mirrorTimeout > 0 {
		var cancel context.CancelFunc
		mirrorCtx, cancel = context.WithTimeout(ctx, s.mirrorTimeout)
		defer cancel()
	}

	result := &AssignmentResult{Report: report}
	log := s.log.With().Str("report_id", report.ID.String()).Logger()

	if err := s.mirror.SaveReport(mirrorCtx, report); err != nil {
		msg := err.Error()
		result.SQLServerError = &msg
		report.MirrorSavedAt = nil
		report.MirrorError = &msg
		log.Warn().Err(err).Msg("accounting mirror write failed")
	} else {
		savedAt := s.now()
		result.SQLServerSaved = true
		report.MirrorSavedAt = &savedAt
		report.MirrorError = nil
	}

	if err := s.reportRepo.RecordMirrorOutcome(ctx, report.ID, report.MirrorSavedAt, report.MirrorError); err != nil {
		log.Error().Err(err).Msg("failed to record mirror outcome")
	}
	return result
}

// ReportActor identifies the caller of an owner-restricted operation
type ReportActor struct {
	UserID     uuid.UUID
	Privileged bool
}

func (a ReportActor) owns(report *entity.ExpenseReport) bool {
	return a.Privileged || report.UserID == a.UserID
}

// DeleteReport removes a PENDING or REJECTED report. Only the owner or a
// privileged user may delete it.
func (s *ApprovalService) DeleteReport(ctx context.Context, id uuid.UUID, actor ReportActor) error {
	report, err := s.GetReport(ctx, id)
	if err != nil {
		return err
	}
	if !isDeletable(report) {
		return apperror.NewConflictError("Approved expense reports cannot be deleted")
	}
	if !actor.owns(report) {
		return apperror.NewForbiddenError("Only the owner can delete this expense report")
	}

	ok, err := s.reportRepo.Delete(ctx, id, deletableStates)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.NewConflictError("Expense report changed state before it could be deleted")
	}
	return nil
}

var deletableStates = []enum.ApprovalState{enum.ApprovalStatePending, enum.ApprovalStateRejected}

func isDeletable(report *entity.ExpenseReport) bool {
	return slices.Contains(deletableStates, report.ApprovalState)
}

func isPending(report *entity.ExpenseReport) bool {
	return report.ApprovalState == enum.ApprovalStatePending
}

func isAssignable(report *entity.ExpenseReport) bool {
	return report.ApprovalState == enum.ApprovalStateApproved && !report.IsAssigned()
}

// BulkApprove approves every PENDING report among ids
func (s *ApprovalService) BulkApprove(ctx context.Context, ids []uuid.UUID, approverID uuid.UUID, comment *string) (*BulkResult, error) {
	return s.bulk(ctx, ids, isPending, func(report *entity.ExpenseReport, item *BulkItemResult) error {
		_, err := s.Approve(ctx, report.ID, approverID, comment)
		return err
	})
}

// BulkReject rejects every PENDING report among ids
func (s *ApprovalService) BulkReject(ctx context.Context, ids []uuid.UUID, approverID uuid.UUID, comment *string) (*BulkResult, error) {
	return s.bulk(ctx, ids, isPending, func(report *entity.ExpenseReport, item *BulkItemResult) error {
		_, err := s.Reject(ctx, report.ID, approverID, comment)
		return err
	})
}

// BulkDelete deletes every PENDING or REJECTED report among ids that the
// actor may delete
func (s *ApprovalService) BulkDelete(ctx context.Context, ids []uuid.UUID, actor ReportActor) (*BulkResult, error) {
	eligible := func(report *entity.ExpenseReport) bool {
		return isDeletable(report) && actor.owns(report)
	}
	return s.bulk(ctx, ids, eligible, func(report *entity.ExpenseReport, item *BulkItemResult) error {
		return s.DeleteReport(ctx, report.ID, actor)
	})
}

// BulkAssign files every APPROVED, unassigned report among ids under the
// same bucket. Each item reports its own mirror outcome.
func (s *ApprovalService) BulkAssign(ctx context.Context, ids []uuid.UUID, bucketType enum.BucketType, bucketNumber string) (*BulkResult, error) {
	if _, err := validateBucket(bucketType, bucketNumber); err != nil {
		return nil, err
	}
	return s.bulk(ctx, ids, isAssignable, func(report *entity.ExpenseReport, item *BulkItemResult) error {
		result, err := s.AssignToBucket(ctx, report.ID, bucketType, bucketNumber)
		if err != nil {
			return err
		}
		saved := result.SQLServerSaved
		item.SQLServerSaved = &saved
		item.SQLServerError = result.SQLServerError
		return nil
	})
}

// bulk applies fn to each eligible report independently
func (s *ApprovalService) bulk(
	ctx context.Context,
	ids []uuid.UUID,
	eligible func(*entity.ExpenseReport) bool,
	fn func(*entity.ExpenseReport, *BulkItemResult) error,
) (*BulkResult, error) {
	if len(ids) == 0 {
		return nil, apperror.NewFieldError("ids", "At least one ID is required")
	}

	reports, err := s.reportRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	result := &BulkResult{Errors: []string{}, Items: []BulkItemResult{}}
	for i := range reports {
		report := &reports[i]
		if !eligible(report) {
			continue
		}

		item := BulkItemResult{ID: report.ID, Number: report.Number}
		if err := fn(report, &item); err != nil {
			item.Error = err.Error()
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", report.Number, err.Error()))
		} else {
			item.Success = true
			result.Affected++
		}
		result.Items = append(result.Items, item)
	}

	s.log.Info().Int("requested", len(ids)).Int("affected", result.Affected).Msg("bulk action finished")
	return result, nil
}

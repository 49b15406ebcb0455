package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sangkips/invoicecore/internal/application/service"
	"github.com/sangkips/invoicecore/internal/domain/entity"
	"github.com/sangkips/invoicecore/internal/domain/enum"
	"github.com/sangkips/invoicecore/internal/domain/repository"
	"github.com/sangkips/invoicecore/internal/presentation/http/dto/request"
	"github.com/sangkips/invoicecore/internal/presentation/http/dto/response"
	"github.com/sangkips/invoicecore/pkg/apperror"
	"github.com/sangkips/invoicecore/pkg/pagination"
	"github.com/sangkips/invoicecore/pkg/utils"
)

// ExpenseReportHandler handles expense report and approval requests
type ExpenseReportHandler struct {
	approvalService *service.ApprovalService
}

// NewExpenseReportHandler creates a new expense report handler
func NewExpenseReportHandler(approvalService *service.ApprovalService) *ExpenseReportHandler {
	return &ExpenseReportHandler{approvalService: approvalService}
}

func toLineInputs(lines []request.ExpenseLineRequest) ([]service.ExpenseLineInput, error) {
	inputs := make([]service.ExpenseLineInput, 0, len(lines))
	for _, line := range lines {
		issueDate, err := parseDate("issue_date", line.IssueDate)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, service.ExpenseLineInput{
			DocumentID:   line.DocumentID,
			Description:  line.Description,
			IssuerTaxID:  line.IssuerTaxID,
			SeriesNumber: line.SeriesNumber,
			IssueDate:    issueDate,
			Quantity:     line.Quantity,
			UnitPrice:    line.UnitPrice,
		})
	}
	return inputs, nil
}

func toHeaderInput(req *request.ExpenseReportRequest) service.ReportHeaderInput {
	return service.ReportHeaderInput{
		Title:       req.Title,
		Description: req.Description,
		CostCenter:  req.CostCenter,
		Currency:    req.Currency,
	}
}

// Create handles creating an expense report
func (h *ExpenseReportHandler) Create(c *gin.Context) {
	userID := GetUserID(c)
	if userID == nil {
		response.Unauthorized(c, "User not authenticated")
		return
	}

	var req request.ExpenseReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	lines, err := toLineInputs(req.Lines)
	if err != nil {
		response.Error(c, err)
		return
	}

	report, err := h.approvalService.CreateReport(c.Request.Context(), &service.CreateExpenseReportInput{
		UserID:            *userID,
		ReportHeaderInput: toHeaderInput(&req),
		Lines:             lines,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "Expense report created successfully", report)
}

// List handles listing expense reports
func (h *ExpenseReportHandler) List(c *gin.Context) {
	var filter request.ExpenseReportFilterRequest
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	params := &repository.ExpenseReportFilterParams{
		Pagination: &pagination.PaginationParams{
			Page:    filter.Page,
			PerPage: filter.PerPage,
		},
		Search:       filter.Search,
		BucketNumber: filter.BucketNumber,
		Unassigned:   filter.Unassigned,
		SortBy:       filter.SortBy,
		SortOrder:    filter.SortOrder,
	}

	if filter.UserID != "" {
		if userID, err := uuid.Parse(filter.UserID); err == nil {
			params.UserID = &userID
		}
	}

	if filter.State != "" {
		state, ok := enum.ParseApprovalState(filter.State)
		if !ok {
			response.Error(c, apperror.NewFieldError("state", "State must be PENDING, APPROVED or REJECTED"))
			return
		}
		params.State = &state
	}

	result, err := h.approvalService.ListReports(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithPagination(c, "Expense reports retrieved successfully", result)
}

// Get handles getting a single expense report
func (h *ExpenseReportHandler) Get(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	report, err := h.approvalService.GetReport(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Expense report retrieved successfully", report)
}

// Update handles editing a rejected or pending report
func (h *ExpenseReportHandler) Update(c *gin.Context) {
	userID := GetUserID(c)
	if userID == nil {
		response.Unauthorized(c, "User not authenticated")
		return
	}

	id, err := parseID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	var req request.ExpenseReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	lines, err := toLineInputs(req.Lines)
	if err != nil {
		response.Error(c, err)
		return
	}

	report, err := h.approvalService.EditReport(c.Request.Context(), id, &service.EditExpenseReportInput{
		EditorID:          *userID,
		Privileged:        IsPrivileged(c),
		ReportHeaderInput: toHeaderInput(&req),
		Lines:             lines,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Expense report updated successfully", report)
}

// Delete handles deleting a pending or rejected report
func (h *ExpenseReportHandler) Delete(c *gin.Context) {
	actor, ok := reportActor(c)
	if !ok {
		return
	}

	id, err := parseID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.approvalService.DeleteReport(c.Request.Context(), id, actor); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Expense report deleted successfully", nil)
}

// Approve handles approving a pending report
func (h *ExpenseReportHandler) Approve(c *gin.Context) {
	h.decide(c, h.approvalService.Approve, "Expense report approved")
}

// Reject handles rejecting a pending report
func (h *ExpenseReportHandler) Reject(c *gin.Context) {
	h.decide(c, h.approvalService.Reject, "Expense report rejected")
}

type decisionFunc func(ctx context.Context, id, approverID uuid.UUID, comment *string) (*entity.ExpenseReport, error)

func (h *ExpenseReportHandler) decide(c *gin.Context, fn decisionFunc, message string) {
	userID := GetUserID(c)
	if userID == nil {
		response.Unauthorized(c, "User not authenticated")
		return
	}

	id, err := parseID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	var req request.DecisionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "Invalid request body: "+err.Error())
			return
		}
	}

	report, err := fn(c.Request.Context(), id, *userID, req.Comment)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, message, report)
}

// Assign handles filing an approved report under a bucket
func (h *ExpenseReportHandler) Assign(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	var req request.AssignBucketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	bucketType, _ := enum.ParseBucketType(req.BucketType)

	result, err := h.approvalService.AssignToBucket(c.Request.Context(), id, bucketType, req.BucketNumber)
	if err != nil {
		response.Error(c, err)
		return
	}

	message := "Expense report assigned"
	if !result.SQLServerSaved {
		message = "Expense report assigned, accounting copy failed"
	}
	response.OK(c, message, result)
}

// RetryMirror re-sends an assigned report to the accounting store
func (h *ExpenseReportHandler) RetryMirror(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.approvalService.RetryMirror(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	message := "Accounting copy saved"
	if !result.SQLServerSaved {
		message = "Accounting copy failed"
	}
	response.OK(c, message, result)
}

func bindBulkIDs(c *gin.Context, req *request.BulkIDsRequest) ([]uuid.UUID, bool) {
	ids, err := utils.ParseUUIDs(req.IDs)
	if err != nil {
		response.Error(c, apperror.NewFieldError("ids", err.Error()))
		return nil, false
	}
	return ids, true
}

// BulkApprove handles approving several reports
func (h *ExpenseReportHandler) BulkApprove(c *gin.Context) {
	h.bulkDecide(c, h.approvalService.BulkApprove)
}

// BulkReject handles rejecting several reports
func (h *ExpenseReportHandler) BulkReject(c *gin.Context) {
	h.bulkDecide(c, h.approvalService.BulkReject)
}

type bulkDecisionFunc func(ctx context.Context, ids []uuid.UUID, approverID uuid.UUID, comment *string) (*service.BulkResult, error)

func (h *ExpenseReportHandler) bulkDecide(c *gin.Context, fn bulkDecisionFunc) {
	userID := GetUserID(c)
	if userID == nil {
		response.Unauthorized(c, "User not authenticated")
		return
	}

	var req request.BulkDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	ids, ok := bindBulkIDs(c, &req.BulkIDsRequest)
	if !ok {
		return
	}

	result, err := fn(c.Request.Context(), ids, *userID, req.Comment)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Bulk action completed", result)
}

// BulkDelete handles deleting several reports
func (h *ExpenseReportHandler) BulkDelete(c *gin.Context) {
	actor, ok := reportActor(c)
	if !ok {
		return
	}

	var req request.BulkIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	ids, ok := bindBulkIDs(c, &req)
	if !ok {
		return
	}

	result, err := h.approvalService.BulkDelete(c.Request.Context(), ids, actor)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Bulk action completed", result)
}

// BulkAssign handles filing several approved reports under one bucket
func (h *ExpenseReportHandler) BulkAssign(c *gin.Context) {
	var req request.BulkAssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	ids, ok := bindBulkIDs(c, &req.BulkIDsRequest)
	if !ok {
		return
	}
	bucketType, _ := enum.ParseBucketType(req.BucketType)

	result, err := h.approvalService.BulkAssign(c.Request.Context(), ids, bucketType, req.BucketNumber)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Bulk action completed", result)
}

// reportActor resolves the caller for owner-restricted operations
func reportActor(c *gin.Context) (service.ReportActor, bool) {
	userID := GetUserID(c)
	if userID == nil {
		response.Unauthorized(c, "User not authenticated")
		return service.ReportActor{}, false
	}
	return service.ReportActor{UserID: *userID, Privileged: IsPrivileged(c)}, true
}

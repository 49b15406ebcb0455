package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/sangkips/invoicecore/internal/application/service"
	"github.com/sangkips/invoicecore/internal/domain/enum"
	"github.com/sangkips/invoicecore/internal/domain/repository"
	infraRepo "github.com/sangkips/invoicecore/internal/infrastructure/repository"
	"github.com/sangkips/invoicecore/internal/presentation/http/dto/request"
	"github.com/sangkips/invoicecore/internal/presentation/http/dto/response"
	"github.com/sangkips/invoicecore/pkg/apperror"
	"github.com/sangkips/invoicecore/pkg/pagination"
)

// DocumentHandler handles document ingestion, deduplication and verification requests
type DocumentHandler struct {
	documentService     *service.DocumentService
	duplicateService    *service.DuplicateService
	verificationService *service.VerificationService
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(
	documentService *service.DocumentService,
	duplicateService *service.DuplicateService,
	verificationService *service.VerificationService,
) *DocumentHandler {
	return &DocumentHandler{
		documentService:     documentService,
		duplicateService:    duplicateService,
		verificationService: verificationService,
	}
}

// Ingest handles storing an extracted document
func (h *DocumentHandler) Ingest(c *gin.Context) {
	userID := GetUserID(c)
	if userID == nil {
		response.Unauthorized(c, "User not authenticated")
		return
	}

	var req request.IngestDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	issueDate, err := parseDate("issue_date", req.IssueDate)
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.documentService.Ingest(c.Request.Context(), &service.IngestDocumentInput{
		UploadedByID:     userID,
		IssuerTaxID:      req.IssuerTaxID,
		IssuerName:       req.IssuerName,
		DocumentTypeCode: req.DocumentTypeCode,
		SeriesNumber:     req.SeriesNumber,
		IssueDate:        *issueDate,
		TotalAmount:      req.TotalAmount,
		Currency:         req.Currency,
		QRPayload:        req.QRPayload,
		SkipVerification: req.SkipVerification,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	message := "Document stored successfully"
	if result.Document.IsDuplicate {
		message = "Document stored as a duplicate"
	}
	response.Created(c, message, result)
}

// List handles listing documents
func (h *DocumentHandler) List(c *gin.Context) {
	var filter request.DocumentFilterRequest
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	startDate, err := parseDate("start_date", filter.StartDate)
	if err != nil {
		response.Error(c, err)
		return
	}
	endDate, err := parseDate("end_date", filter.EndDate)
	if err != nil {
		response.Error(c, err)
		return
	}

	params := &repository.DocumentFilterParams{
		Pagination: &pagination.PaginationParams{
			Page:    filter.Page,
			PerPage: filter.PerPage,
		},
		Search:      filter.Search,
		IssuerTaxID: filter.IssuerTaxID,
		IsDuplicate: filter.IsDuplicate,
		Verified:    filter.Verified,
		Unchecked:   filter.Unchecked,
		StartDate:   startDate,
		EndDate:     endDate,
		SortBy:      filter.SortBy,
		SortOrder:   filter.SortOrder,
	}

	result, err := h.documentService.ListDocuments(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithPagination(c, "Documents retrieved successfully", result)
}

// Get handles getting a single document
func (h *DocumentHandler) Get(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	doc, err := h.documentService.GetDocument(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Document retrieved successfully", doc)
}

// CheckDuplicate reports whether a candidate document was already uploaded
func (h *DocumentHandler) CheckDuplicate(c *gin.Context) {
	var req request.CheckDuplicateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	tenantID, _ := infraRepo.GetTenantID(c.Request.Context())
	result, err := h.duplicateService.CheckDuplicate(c.Request.Context(), &service.DuplicateCheckInput{
		TenantID:     tenantID,
		QRPayload:    req.QRPayload,
		IssuerTaxID:  req.IssuerTaxID,
		SeriesNumber: req.SeriesNumber,
		ExcludeID:    req.ExcludeID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Duplicate check completed", result)
}

// MarkDuplicate flags a document as a copy of an earlier one
func (h *DocumentHandler) MarkDuplicate(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	var req request.MarkDuplicateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	doc, err := h.duplicateService.MarkDuplicate(c.Request.Context(), id, req.OriginalID, enum.DuplicateMethod(req.Method))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Document marked as duplicate", doc)
}

// Verify runs the tax-authority verification for a stored document
func (h *DocumentHandler) Verify(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.verificationService.VerifyDocument(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Document verified", result)
}

// LookupTaxpayer returns the authority's record for a tax ID
func (h *DocumentHandler) LookupTaxpayer(c *gin.Context) {
	taxID := c.Param("tax_id")
	if taxID == "" {
		response.Error(c, apperror.NewFieldError("tax_id", "Tax ID is required"))
		return
	}

	taxpayer, err := h.verificationService.LookupTaxpayer(c.Request.Context(), taxID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Taxpayer retrieved successfully", taxpayer)
}

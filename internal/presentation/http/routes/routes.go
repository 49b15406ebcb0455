package routes

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/sangkips/invoicecore/internal/application/service"
	"github.com/sangkips/invoicecore/internal/config"
	domainRepo "github.com/sangkips/invoicecore/internal/domain/repository"
	"github.com/sangkips/invoicecore/internal/presentation/http/handler"
	"github.com/sangkips/invoicecore/internal/presentation/http/middleware"
	"github.com/sangkips/invoicecore/pkg/utils"
)

// Handlers holds all the HTTP handlers used for route registration.
type Handlers struct {
	Document      *handler.DocumentHandler
	ExpenseReport *handler.ExpenseReportHandler
}

// Deps holds shared dependencies needed by the routes.
type Deps struct {
	JWTManager      *utils.JWTManager
	Cfg             *config.Config
	IdempotencyRepo domainRepo.IdempotencyRepository
}

// Setup creates the Gin router and registers all routes. Background work
// started by the middleware stops when ctx is cancelled.
func Setup(ctx context.Context, h *Handlers, deps *Deps) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggerMiddleware())
	router.Use(middleware.CORSMiddleware(&deps.Cfg.CORS))

	rateLimiter := middleware.NewTenantRateLimiter(ctx, middleware.NewRateLimiterConfig(&deps.Cfg.RateLimit))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":       "ok",
			"service":      deps.Cfg.App.Name,
			"rate_limiter": rateLimiter.Stats(),
		})
	})

	v1 := router.Group("/api/v1")
	v1.Use(middleware.AuthMiddleware(deps.JWTManager))
	v1.Use(middleware.RequireTenant())
	v1.Use(rateLimiter.Middleware())

	idempotent := middleware.Idempotency(middleware.IdempotencyConfig{Repo: deps.IdempotencyRepo})

	registerDocumentRoutes(v1, h.Document, idempotent)
	registerExpenseReportRoutes(v1, h.ExpenseReport, idempotent)

	return router
}

func registerDocumentRoutes(rg *gin.RouterGroup, h *handler.DocumentHandler, idempotent gin.HandlerFunc) {
	documents := rg.Group("/documents")
	{
		documents.GET("", h.List)
		documents.POST("", idempotent, h.Ingest)
		documents.POST("/check-duplicate", h.CheckDuplicate)
		documents.GET("/:id", h.Get)
		documents.POST("/:id/mark-duplicate", h.MarkDuplicate)
		documents.POST("/:id/verify", h.Verify)
	}

	rg.GET("/taxpayers/:tax_id", h.LookupTaxpayer)
}

func registerExpenseReportRoutes(rg *gin.RouterGroup, h *handler.ExpenseReportHandler, idempotent gin.HandlerFunc) {
	canApprove := middleware.RequirePermission(service.PermissionApproveReports)

	reports := rg.Group("/expense-reports")
	{
		reports.GET("", h.List)
		reports.POST("", idempotent, h.Create)
		reports.GET("/:id", h.Get)
		reports.PUT("/:id", h.Update)
		reports.DELETE("/:id", h.Delete)

		reports.POST("/:id/approve", canApprove, h.Approve)
		reports.POST("/:id/reject", canApprove, h.Reject)
		reports.POST("/:id/assign", canApprove, h.Assign)
		reports.POST("/:id/retry-mirror", canApprove, h.RetryMirror)

		bulk := reports.Group("/bulk", idempotent)
		{
			bulk.POST("/approve", canApprove, h.BulkApprove)
			bulk.POST("/reject", canApprove, h.BulkReject)
			bulk.POST("/assign", canApprove, h.BulkAssign)
			bulk.POST("/delete", h.BulkDelete)
		}
	}
}

package api

import (
	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/shopify_budget/config"
	"github.com/mmdatafocus/shopify_budget/middlewares"
	"github.com/mmdatafocus/shopify_budget/models/reports"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Handler serves the report and budgeting API.
type Handler struct {
	db           *gorm.DB
	reporter     *reports.Reporter
	redis        *config.Redis
	exportBucket string
	logger       *logrus.Logger
}

func NewHandler(db *gorm.DB, reporter *reports.Reporter, redis *config.Redis, exportBucket string, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Handler{
		db:           db,
		reporter:     reporter,
		redis:        redis,
		exportBucket: exportBucket,
		logger:       logger,
	}
}

// Register mounts every /api route on r.
func (h *Handler) Register(r gin.IRouter) {
	api := r.Group("/api")
	api.Use(middlewares.LoaderMiddleware(h.db))

	rep := api.Group("/reports")
	rep.GET("/products", h.productsReport)
	rep.GET("/category-spend", h.categorySpendReport)
	rep.GET("/budget-vs-actual", h.budgetVsActualReport)
	rep.GET("/budget-vs-actual/export", h.exportBudgetVsActual)

	cat := api.Group("/budget-categories")
	cat.GET("", h.listBudgetCategories)
	cat.GET("/:id", h.getBudgetCategory)
	cat.POST("", h.createBudgetCategory)
	cat.PUT("/:id", h.updateBudgetCategory)
	cat.POST("/:id/toggle-active", h.toggleBudgetCategory)

	bud := api.Group("/budgets")
	bud.GET("", h.listBudgets)
	bud.GET("/:id", h.getBudget)
	bud.POST("", h.createBudget)
	bud.PUT("/:id", h.updateBudget)
	bud.POST("/:id/status", h.setBudgetStatus)
	bud.DELETE("/:id", h.deleteBudget)

	api.POST("/budget-allocations/:id/spend", h.recordAllocationSpend)

	loc := api.Group("/locations/:locationId")
	loc.GET("/census", h.listCensus)
	loc.PUT("/census/:month", h.upsertCensus)
	loc.DELETE("/census/:month", h.deleteCensus)
	loc.GET("/budget", h.locationBudget)
}

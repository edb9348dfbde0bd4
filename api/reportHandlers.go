package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mmdatafocus/shopify_budget/models/reports"
	"github.com/mmdatafocus/shopify_budget/utils"
)

func (h *Handler) productsReport(c *gin.Context) {
	f, err := parseOrderFilter(c)
	if err != nil {
		h.respondError(c, "productsReport", err)
		return
	}
	result, err := h.reporter.Products(c.Request.Context(), f)
	if err != nil {
		h.respondError(c, "productsReport", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"products":          result.Products,
		"totalProducts":     len(result.Products),
		"totalOrders":       result.TotalOrders,
		"ordersWithRefunds": result.OrdersWithRefunds,
	})
}

func (h *Handler) categorySpendReport(c *gin.Context) {
	f, g, err := reportParams(c)
	if err != nil {
		h.respondError(c, "categorySpendReport", err)
		return
	}
	if f.LocationId != nil {
		// a known location merges its budget into the categories
		report, err := h.reporter.BudgetVsActual(c.Request.Context(), f, reports.BudgetReportOptions{Grouping: g})
		if err != nil {
			h.respondError(c, "categorySpendReport", err)
			return
		}
		c.JSON(http.StatusOK, report)
		return
	}
	categories, err := h.reporter.CategorySpend(c.Request.Context(), f, g)
	if err != nil {
		h.respondError(c, "categorySpendReport", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"categories":      categories,
		"totalCategories": len(categories),
	})
}

func (h *Handler) budgetVsActualReport(c *gin.Context) {
	f, g, err := reportParams(c)
	if err != nil {
		h.respondError(c, "budgetVsActualReport", err)
		return
	}
	report, err := h.reporter.BudgetVsActual(c.Request.Context(), f, reports.BudgetReportOptions{Grouping: g})
	if err != nil {
		h.respondError(c, "budgetVsActualReport", err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) exportBudgetVsActual(c *gin.Context) {
	f, g, err := reportParams(c)
	if err != nil {
		h.respondError(c, "exportBudgetVsActual", err)
		return
	}
	ctx := c.Request.Context()
	report, err := h.reporter.BudgetVsActual(ctx, f, reports.BudgetReportOptions{Grouping: g})
	if err != nil {
		h.respondError(c, "exportBudgetVsActual", err)
		return
	}
	data, err := reports.ExportBudgetReport(report)
	if err != nil {
		h.respondError(c, "exportBudgetVsActual", err)
		return
	}
	fileName := reports.ExportFileName(report)

	if !queryBool(c, "upload") {
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
		c.Data(http.StatusOK, utils.XlsxContentType, data)
		return
	}
	if h.exportBucket == "" {
		badRequest(c, "report export bucket is not configured")
		return
	}
	objectName := fmt.Sprintf("reports/%s/%s", uuid.NewString(), fileName)
	path, err := utils.UploadBytesToGCS(ctx, h.exportBucket, objectName, data, utils.XlsxContentType)
	if err != nil {
		h.respondError(c, "exportBudgetVsActual", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"path": path, "fileName": fileName})
}

func (h *Handler) locationBudget(c *gin.Context) {
	locationId, err := int64Param(c, "locationId")
	if err != nil {
		h.respondError(c, "locationBudget", err)
		return
	}
	// without a month the flat allocations are returned
	month := strings.TrimSpace(c.Query("budgetMonth"))
	budget, err := h.reporter.LocationBudget(c.Request.Context(), locationId, month)
	if err != nil {
		h.respondError(c, "locationBudget", err)
		return
	}
	c.JSON(http.StatusOK, budget)
}

func reportParams(c *gin.Context) (reports.OrderFilter, reports.CategoryGrouping, error) {
	f, err := parseOrderFilter(c)
	if err != nil {
		return f, "", err
	}
	g, err := reports.ParseCategoryGrouping(c.Query("groupBy"))
	if err != nil {
		return f, "", utils.NewValidationError("groupBy", err.Error())
	}
	return f, g, nil
}

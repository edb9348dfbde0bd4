package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/shopify_budget/config"
	"github.com/mmdatafocus/shopify_budget/models"
	"github.com/mmdatafocus/shopify_budget/models/reports"
	"github.com/mmdatafocus/shopify_budget/utils"
)

var ErrBudgetLocked = errors.New("budget is being updated, try again")

// respondError maps domain errors onto HTTP statuses.
func (h *Handler) respondError(c *gin.Context, funcName string, err error) {
	switch {
	case utils.IsStructValidationError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": utils.ProcessValidationErrors(err)})
	case utils.IsValidationError(err), errors.Is(err, models.ErrInvalidBudgetMonth):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ErrBudgetLocked):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case config.IsDuplicateKey(err):
		c.JSON(http.StatusConflict, gin.H{"error": "duplicate record"})
	case errors.Is(err, reports.ErrQueryFailed):
		config.LogError(h.logger, "api", funcName, "report query", nil, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch report"})
	default:
		config.LogError(h.logger, "api", funcName, "request failed", nil, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

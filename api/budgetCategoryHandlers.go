package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/shopify_budget/models"
)

func (h *Handler) listBudgetCategories(c *gin.Context) {
	categories, err := models.ListBudgetCategories(c.Request.Context(), h.db, c.Query("name"), queryBool(c, "activeOnly"))
	if err != nil {
		h.respondError(c, "listBudgetCategories", err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

func (h *Handler) getBudgetCategory(c *gin.Context) {
	id, err := intParam(c, "id")
	if err != nil {
		h.respondError(c, "getBudgetCategory", err)
		return
	}
	category, err := models.GetBudgetCategory(c.Request.Context(), h.db, id)
	if err != nil {
		h.respondError(c, "getBudgetCategory", err)
		return
	}
	c.JSON(http.StatusOK, category)
}

func (h *Handler) createBudgetCategory(c *gin.Context) {
	var input models.NewBudgetCategory
	if err := bindJSON(c, &input); err != nil {
		h.respondError(c, "createBudgetCategory", err)
		return
	}
	category, err := models.CreateBudgetCategory(c.Request.Context(), h.db, &input)
	if err != nil {
		h.respondError(c, "createBudgetCategory", err)
		return
	}
	h.reporter.InvalidateAll(c.Request.Context())
	c.JSON(http.StatusCreated, category)
}

func (h *Handler) updateBudgetCategory(c *gin.Context) {
	id, err := intParam(c, "id")
	if err != nil {
		h.respondError(c, "updateBudgetCategory", err)
		return
	}
	var input models.NewBudgetCategory
	if err := bindJSON(c, &input); err != nil {
		h.respondError(c, "updateBudgetCategory", err)
		return
	}
	category, err := models.UpdateBudgetCategory(c.Request.Context(), h.db, id, &input)
	if err != nil {
		h.respondError(c, "updateBudgetCategory", err)
		return
	}
	h.reporter.InvalidateAll(c.Request.Context())
	c.JSON(http.StatusOK, category)
}

type toggleActiveInput struct {
	IsActive *bool `json:"is_active"`
}

func (h *Handler) toggleBudgetCategory(c *gin.Context) {
	id, err := intParam(c, "id")
	if err != nil {
		h.respondError(c, "toggleBudgetCategory", err)
		return
	}
	var input toggleActiveInput
	if err := bindJSON(c, &input); err != nil {
		h.respondError(c, "toggleBudgetCategory", err)
		return
	}
	if input.IsActive == nil {
		badRequest(c, "is_active is required")
		return
	}
	category, err := models.ToggleActiveBudgetCategory(c.Request.Context(), h.db, id, *input.IsActive)
	if err != nil {
		h.respondError(c, "toggleBudgetCategory", err)
		return
	}
	h.reporter.InvalidateAll(c.Request.Context())
	c.JSON(http.StatusOK, category)
}

package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/shopify_budget/middlewares"
	"github.com/mmdatafocus/shopify_budget/models"
	"github.com/mmdatafocus/shopify_budget/utils"
)

const (
	budgetLockTTL  = 30 * time.Second
	budgetLockWait = 5 * time.Second
)

func (h *Handler) listBudgets(c *gin.Context) {
	var status *models.BudgetStatus
	if v := c.Query("status"); v != "" {
		s := models.BudgetStatus(v)
		if !s.IsValid() {
			badRequest(c, "invalid budget status")
			return
		}
		status = &s
	}
	ctx := c.Request.Context()
	budgets, err := models.ListBudgets(ctx, h.db, status)
	if err != nil {
		h.respondError(c, "listBudgets", err)
		return
	}
	if err := middlewares.ResolveAllocationNames(ctx, budgets...); err != nil {
		h.respondError(c, "listBudgets", err)
		return
	}
	c.JSON(http.StatusOK, budgets)
}

func (h *Handler) getBudget(c *gin.Context) {
	id, err := intParam(c, "id")
	if err != nil {
		h.respondError(c, "getBudget", err)
		return
	}
	ctx := c.Request.Context()
	budget, err := models.GetBudget(ctx, h.db, id)
	if err != nil {
		h.respondError(c, "getBudget", err)
		return
	}
	if err := middlewares.ResolveAllocationNames(ctx, budget); err != nil {
		h.respondError(c, "getBudget", err)
		return
	}
	c.JSON(http.StatusOK, budget)
}

func (h *Handler) createBudget(c *gin.Context) {
	var input models.NewBudget
	if err := bindJSON(c, &input); err != nil {
		h.respondError(c, "createBudget", err)
		return
	}
	ctx := c.Request.Context()
	budget, err := models.CreateBudget(ctx, h.db, &input)
	if err != nil {
		h.respondError(c, "createBudget", err)
		return
	}
	h.reporter.InvalidateLocations(ctx, assignedLocations(budget)...)
	if err := middlewares.ResolveAllocationNames(ctx, budget); err != nil {
		h.respondError(c, "createBudget", err)
		return
	}
	c.JSON(http.StatusCreated, budget)
}

func (h *Handler) updateBudget(c *gin.Context) {
	id, err := intParam(c, "id")
	if err != nil {
		h.respondError(c, "updateBudget", err)
		return
	}
	var input models.NewBudget
	if err := bindJSON(c, &input); err != nil {
		h.respondError(c, "updateBudget", err)
		return
	}
	budget, err := h.writeBudget(c.Request.Context(), id, func(ctx context.Context) (*models.Budget, error) {
		return models.UpdateBudget(ctx, h.db, id, &input)
	})
	if err != nil {
		h.respondError(c, "updateBudget", err)
		return
	}
	c.JSON(http.StatusOK, budget)
}

type budgetStatusInput struct {
	Status models.BudgetStatus `json:"status" validate:"required"`
}

func (h *Handler) setBudgetStatus(c *gin.Context) {
	id, err := intParam(c, "id")
	if err != nil {
		h.respondError(c, "setBudgetStatus", err)
		return
	}
	var input budgetStatusInput
	if err := bindJSON(c, &input); err != nil {
		h.respondError(c, "setBudgetStatus", err)
		return
	}
	if err := utils.ValidateStruct(&input); err != nil {
		h.respondError(c, "setBudgetStatus", err)
		return
	}
	budget, err := h.writeBudget(c.Request.Context(), id, func(ctx context.Context) (*models.Budget, error) {
		return models.SetBudgetStatus(ctx, h.db, id, input.Status)
	})
	if err != nil {
		h.respondError(c, "setBudgetStatus", err)
		return
	}
	c.JSON(http.StatusOK, budget)
}

func (h *Handler) deleteBudget(c *gin.Context) {
	id, err := intParam(c, "id")
	if err != nil {
		h.respondError(c, "deleteBudget", err)
		return
	}
	budget, err := h.writeBudget(c.Request.Context(), id, func(ctx context.Context) (*models.Budget, error) {
		return models.DeleteBudget(ctx, h.db, id)
	})
	if err != nil {
		h.respondError(c, "deleteBudget", err)
		return
	}
	c.JSON(http.StatusOK, budget)
}

func (h *Handler) recordAllocationSpend(c *gin.Context) {
	id, err := intParam(c, "id")
	if err != nil {
		h.respondError(c, "recordAllocationSpend", err)
		return
	}
	var input models.NewAllocationSpend
	if err := bindJSON(c, &input); err != nil {
		h.respondError(c, "recordAllocationSpend", err)
		return
	}
	ctx := c.Request.Context()
	allocation, err := models.RecordAllocationSpend(ctx, h.db, id, &input)
	if err != nil {
		h.respondError(c, "recordAllocationSpend", err)
		return
	}
	if locationIds, err := models.BudgetLocationIds(ctx, h.db, allocation.BudgetId); err == nil {
		h.reporter.InvalidateLocations(ctx, locationIds...)
	}
	c.JSON(http.StatusOK, allocation)
}

// writeBudget serializes writes to one budget and invalidates the reports of
// every location assigned before or after the write.
func (h *Handler) writeBudget(ctx context.Context, id int, write func(context.Context) (*models.Budget, error)) (*models.Budget, error) {
	release, ok, err := h.redis.Obtain(ctx, fmt.Sprintf("lock:budget:%d", id), budgetLockTTL, budgetLockWait)
	if err != nil {
		return nil, err
	}
	defer release()
	if !ok && h.redis.Ready() {
		return nil, ErrBudgetLocked
	}

	before, err := models.BudgetLocationIds(ctx, h.db, id)
	if err != nil {
		return nil, err
	}
	budget, err := write(ctx)
	if err != nil {
		return nil, err
	}
	h.reporter.InvalidateLocations(ctx, append(before, assignedLocations(budget)...)...)
	if err := middlewares.ResolveAllocationNames(ctx, budget); err != nil {
		return nil, err
	}
	return budget, nil
}

func assignedLocations(b *models.Budget) []int64 {
	ids := make([]int64, 0, len(b.Locations))
	for _, l := range b.Locations {
		ids = append(ids, l.LocationId)
	}
	return ids
}

package middlewares

import (
	"context"

	"github.com/graph-gophers/dataloader/v7"
	"github.com/mmdatafocus/shopify_budget/models"
	"gorm.io/gorm"
)

type budgetCategoryReader struct {
	db *gorm.DB
}

func (r *budgetCategoryReader) getBudgetCategories(ctx context.Context, ids []int) []*dataloader.Result[*models.BudgetCategoryMaster] {
	var results []models.BudgetCategoryMaster
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&results).Error
	if err != nil {
		return handleError[*models.BudgetCategoryMaster](len(ids), err)
	}
	return generateLoaderResults(results, ids)
}

func GetBudgetCategories(ctx context.Context, ids []int) ([]*models.BudgetCategoryMaster, []error) {
	loaders := For(ctx)
	return loaders.budgetCategoryLoader.LoadMany(ctx, ids)()
}

// ResolveAllocationNames fills CategoryName on every allocation of the budgets.
func ResolveAllocationNames(ctx context.Context, budgets ...*models.Budget) error {
	var ids []int
	for _, b := range budgets {
		for _, a := range b.Allocations {
			ids = append(ids, a.CategoryId)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	categories, errs := GetBudgetCategories(ctx, ids)
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	names := make(map[int]string, len(categories))
	for _, c := range categories {
		if c != nil {
			names[c.ID] = models.DecodeCategoryName(c.Name)
		}
	}
	for _, b := range budgets {
		for i := range b.Allocations {
			b.Allocations[i].CategoryName = names[b.Allocations[i].CategoryId]
		}
	}
	return nil
}

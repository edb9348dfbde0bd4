package models

import (
	"context"
	"strings"
	"time"

	"github.com/mmdatafocus/shopify_budget/utils"
	"gorm.io/gorm"
)

type BudgetCategoryMaster struct {
	ID        int       `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null;uniqueIndex" json:"name"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (BudgetCategoryMaster) TableName() string { return "budget_category_masters" }

type NewBudgetCategory struct {
	Name string `json:"name" validate:"required,max=255"`
}

func (input *NewBudgetCategory) validate(ctx context.Context, db *gorm.DB, id int) error {
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	input.Name = NormalizeCategoryPath(input.Name)
	if input.Name == "" {
		return utils.NewValidationError("name", "name is required")
	}
	if err := utils.ValidateUnique[BudgetCategoryMaster](ctx, db, "name", input.Name, id); err != nil {
		return err
	}
	// "Parent>Child" requires Parent to exist already
	if parent := CategoryParent(input.Name); parent != "" {
		count, err := utils.ResourceCountWhere[BudgetCategoryMaster](ctx, db, "name = ?", parent)
		if err != nil {
			return err
		}
		if count == 0 {
			return utils.NewValidationError("name", "parent category "+parent+" does not exist")
		}
	}
	return nil
}

func CreateBudgetCategory(ctx context.Context, db *gorm.DB, input *NewBudgetCategory) (*BudgetCategoryMaster, error) {
	if err := input.validate(ctx, db, 0); err != nil {
		return nil, err
	}

	category := BudgetCategoryMaster{
		Name:     input.Name,
		IsActive: utils.NewTrue(),
	}
	if err := db.WithContext(ctx).Create(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func UpdateBudgetCategory(ctx context.Context, db *gorm.DB, id int, input *NewBudgetCategory) (*BudgetCategoryMaster, error) {
	category, err := utils.FetchModel[BudgetCategoryMaster](ctx, db, id)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, db, id); err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Model(category).Updates(map[string]interface{}{
		"Name": input.Name,
	}).Error; err != nil {
		return nil, err
	}
	return category, nil
}

func ToggleActiveBudgetCategory(ctx context.Context, db *gorm.DB, id int, isActive bool) (*BudgetCategoryMaster, error) {
	category, err := utils.FetchModel[BudgetCategoryMaster](ctx, db, id)
	if err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Model(category).UpdateColumn("is_active", isActive).Error; err != nil {
		return nil, err
	}
	category.IsActive = &isActive
	return category, nil
}

func GetBudgetCategory(ctx context.Context, db *gorm.DB, id int) (*BudgetCategoryMaster, error) {
	return utils.FetchModel[BudgetCategoryMaster](ctx, db, id)
}

// ListBudgetCategories filters by a case-insensitive name fragment when name is set.
func ListBudgetCategories(ctx context.Context, db *gorm.DB, name string, activeOnly bool) ([]*BudgetCategoryMaster, error) {
	var results []*BudgetCategoryMaster
	dbCtx := db.WithContext(ctx)
	if name != "" {
		dbCtx = dbCtx.Where("LOWER(name) LIKE ?", "%"+escapeLike(strings.ToLower(strings.TrimSpace(name)))+"%")
	}
	if activeOnly {
		dbCtx = dbCtx.Where("is_active = ?", true)
	}
	if err := dbCtx.Order("name").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// GetBudgetCategoriesByIds is the batch read behind the category dataloader.
func GetBudgetCategoriesByIds(ctx context.Context, db *gorm.DB, ids []int) ([]*BudgetCategoryMaster, error) {
	var results []*BudgetCategoryMaster
	if len(ids) == 0 {
		return results, nil
	}
	if err := db.WithContext(ctx).Where("id IN ?", utils.UniqueSlice(ids)).Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func validateAllocationCategories(ctx context.Context, db *gorm.DB, ids []int) error {
	unq := utils.UniqueSlice(ids)
	if len(unq) == 0 {
		return nil
	}
	var categories []BudgetCategoryMaster
	if err := db.WithContext(ctx).Where("id IN ?", unq).Find(&categories).Error; err != nil {
		return err
	}
	if len(categories) != len(unq) {
		return utils.NewValidationError("category_id", "unknown budget category")
	}
	for _, c := range categories {
		if c.IsActive != nil && !*c.IsActive {
			return utils.NewValidationError("category_id", "budget category is inactive: "+c.Name)
		}
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

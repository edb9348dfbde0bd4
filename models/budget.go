package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/shopify_budget/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Budget struct {
	ID          int                        `gorm:"primaryKey" json:"id"`
	Name        string                     `gorm:"size:255;not null" json:"name"`
	TotalAmount decimal.Decimal            `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	Status      BudgetStatus               `gorm:"type:enum('draft','active','archived');not null;default:'draft';index" json:"status"`
	PeriodMonth *string                    `gorm:"size:7" json:"period_month"`
	Allocations []BudgetCategoryAllocation `gorm:"foreignKey:BudgetId" json:"allocations"`
	Locations   []BudgetLocationAssignment `gorm:"foreignKey:BudgetId" json:"locations"`
	CreatedAt   time.Time                  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time                  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Budget) TableName() string { return "budgets" }

// BudgetCategoryAllocation holds both a flat dollar amount and an optional
// per-diem rate; the rate is only used for months with a location census.
type BudgetCategoryAllocation struct {
	ID              int                 `gorm:"primaryKey" json:"id"`
	BudgetId        int                 `gorm:"not null;uniqueIndex:idx_budget_category" json:"budget_id"`
	CategoryId      int                 `gorm:"not null;uniqueIndex:idx_budget_category;index" json:"category_id"`
	CategoryName    string              `gorm:"-" json:"category_name"`
	FlatAmount      decimal.Decimal     `gorm:"type:decimal(20,4);default:0" json:"flat_amount"`
	PpdRate         decimal.NullDecimal `gorm:"type:decimal(20,4)" json:"ppd_rate"`
	SpentAmount     decimal.Decimal     `gorm:"type:decimal(20,4);default:0" json:"spent_amount"`
	RemainingAmount decimal.Decimal     `gorm:"type:decimal(20,4);default:0" json:"remaining_amount"`
	CreatedAt       time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
}

func (BudgetCategoryAllocation) TableName() string { return "budget_category_allocations" }

type BudgetLocationAssignment struct {
	ID         int              `gorm:"primaryKey" json:"id"`
	BudgetId   int              `gorm:"not null;uniqueIndex:idx_budget_location_status" json:"budget_id"`
	LocationId int64            `gorm:"not null;uniqueIndex:idx_budget_location_status;index" json:"location_id"`
	Status     AssignmentStatus `gorm:"type:enum('active','inactive');not null;default:'active';uniqueIndex:idx_budget_location_status" json:"status"`
	CreatedAt  time.Time        `gorm:"autoCreateTime" json:"created_at"`
}

func (BudgetLocationAssignment) TableName() string { return "budget_location_assignments" }

type NewBudget struct {
	Name        string                `json:"name" validate:"required,max=255"`
	Status      BudgetStatus          `json:"status"`
	PeriodMonth *string               `json:"period_month"`
	Allocations []NewBudgetAllocation `json:"allocations" validate:"dive"`
	Locations   []NewBudgetLocation   `json:"locations" validate:"dive"`
}

type NewBudgetAllocation struct {
	CategoryId int              `json:"category_id" validate:"required,gt=0"`
	FlatAmount decimal.Decimal  `json:"flat_amount"`
	PpdRate    *decimal.Decimal `json:"ppd_rate"`
}

type NewBudgetLocation struct {
	LocationId int64            `json:"location_id" validate:"required,gt=0"`
	Status     AssignmentStatus `json:"status"`
}

type NewAllocationSpend struct {
	SpentAmount decimal.Decimal `json:"spent_amount"`
}

func (input *NewBudget) validate(ctx context.Context, db *gorm.DB) error {
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	if input.Status != "" && !input.Status.IsValid() {
		return utils.NewValidationError("status", "invalid budget status")
	}
	if input.PeriodMonth != nil && *input.PeriodMonth != "" {
		bm, err := ParseBudgetMonth(*input.PeriodMonth)
		if err != nil {
			return utils.NewValidationError("period_month", err.Error())
		}
		canonical := bm.String()
		input.PeriodMonth = &canonical
	} else {
		input.PeriodMonth = nil
	}

	seen := make(map[int]bool)
	categoryIds := make([]int, 0, len(input.Allocations))
	for _, a := range input.Allocations {
		if seen[a.CategoryId] {
			return utils.NewValidationError("allocations", "duplicate category in allocations")
		}
		seen[a.CategoryId] = true
		categoryIds = append(categoryIds, a.CategoryId)
		if a.FlatAmount.IsNegative() {
			return utils.NewValidationError("flat_amount", "flat amount must not be negative")
		}
		if a.PpdRate != nil && a.PpdRate.IsNegative() {
			return utils.NewValidationError("ppd_rate", "ppd rate must not be negative")
		}
	}

	type locKey struct {
		id     int64
		status AssignmentStatus
	}
	seenLoc := make(map[locKey]bool)
	for i := range input.Locations {
		if input.Locations[i].Status == "" {
			input.Locations[i].Status = AssignmentStatusActive
		}
		k := locKey{input.Locations[i].LocationId, input.Locations[i].Status}
		if seenLoc[k] {
			return utils.NewValidationError("locations", "duplicate location assignment")
		}
		seenLoc[k] = true
	}

	return validateAllocationCategories(ctx, db, categoryIds)
}

func (a NewBudgetAllocation) ppdRate() decimal.NullDecimal {
	if a.PpdRate == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*a.PpdRate)
}

func (input *NewBudget) totalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, a := range input.Allocations {
		total = total.Add(a.FlatAmount)
	}
	return total
}

func (input *NewBudget) assignments(budgetId int) []BudgetLocationAssignment {
	out := make([]BudgetLocationAssignment, 0, len(input.Locations))
	for _, l := range input.Locations {
		out = append(out, BudgetLocationAssignment{
			BudgetId:   budgetId,
			LocationId: l.LocationId,
			Status:     l.Status,
		})
	}
	return out
}

func CreateBudget(ctx context.Context, db *gorm.DB, input *NewBudget) (*Budget, error) {
	if err := input.validate(ctx, db); err != nil {
		return nil, err
	}
	if input.Status == "" {
		input.Status = BudgetStatusDraft
	}

	budget := Budget{
		Name:        input.Name,
		Status:      input.Status,
		PeriodMonth: input.PeriodMonth,
		TotalAmount: input.totalAmount(),
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&budget).Error; err != nil {
			return err
		}
		allocations := make([]BudgetCategoryAllocation, 0, len(input.Allocations))
		for _, a := range input.Allocations {
			allocations = append(allocations, BudgetCategoryAllocation{
				BudgetId:        budget.ID,
				CategoryId:      a.CategoryId,
				FlatAmount:      a.FlatAmount,
				PpdRate:         a.ppdRate(),
				SpentAmount:     decimal.Zero,
				RemainingAmount: a.FlatAmount,
			})
		}
		if len(allocations) > 0 {
			if err := tx.Create(&allocations).Error; err != nil {
				return err
			}
		}
		if assignments := input.assignments(budget.ID); len(assignments) > 0 {
			if err := tx.Create(&assignments).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return GetBudget(ctx, db, budget.ID)
}

// UpdateBudget replaces allocations and location assignments. Allocations are
// matched by category so recorded spend survives an edit.
func UpdateBudget(ctx context.Context, db *gorm.DB, id int, input *NewBudget) (*Budget, error) {
	oldBudget, err := GetBudget(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, db); err != nil {
		return nil, err
	}
	if input.Status == "" {
		input.Status = oldBudget.Status
	}

	existing := make(map[int]BudgetCategoryAllocation, len(oldBudget.Allocations))
	for _, a := range oldBudget.Allocations {
		existing[a.CategoryId] = a
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		keep := make([]int, 0, len(input.Allocations))
		for _, a := range input.Allocations {
			keep = append(keep, a.CategoryId)
			if old, ok := existing[a.CategoryId]; ok {
				if err := tx.Model(&BudgetCategoryAllocation{}).Where("id = ?", old.ID).Updates(map[string]interface{}{
					"flat_amount":      a.FlatAmount,
					"ppd_rate":         a.ppdRate(),
					"remaining_amount": a.FlatAmount.Sub(old.SpentAmount),
				}).Error; err != nil {
					return err
				}
				continue
			}
			allocation := BudgetCategoryAllocation{
				BudgetId:        id,
				CategoryId:      a.CategoryId,
				FlatAmount:      a.FlatAmount,
				PpdRate:         a.ppdRate(),
				SpentAmount:     decimal.Zero,
				RemainingAmount: a.FlatAmount,
			}
			if err := tx.Create(&allocation).Error; err != nil {
				return err
			}
		}

		removed := tx.Where("budget_id = ?", id)
		if len(keep) > 0 {
			removed = removed.Where("category_id NOT IN ?", keep)
		}
		if err := removed.Delete(&BudgetCategoryAllocation{}).Error; err != nil {
			return err
		}

		if err := tx.Where("budget_id = ?", id).Delete(&BudgetLocationAssignment{}).Error; err != nil {
			return err
		}
		if assignments := input.assignments(id); len(assignments) > 0 {
			if err := tx.Create(&assignments).Error; err != nil {
				return err
			}
		}

		return tx.Model(&Budget{}).Where("id = ?", id).Updates(map[string]interface{}{
			"name":         input.Name,
			"status":       input.Status,
			"period_month": input.PeriodMonth,
			"total_amount": input.totalAmount(),
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return GetBudget(ctx, db, id)
}

func SetBudgetStatus(ctx context.Context, db *gorm.DB, id int, status BudgetStatus) (*Budget, error) {
	if !status.IsValid() {
		return nil, utils.NewValidationError("status", "invalid budget status")
	}
	budget, err := GetBudget(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Model(budget).UpdateColumn("status", status).Error; err != nil {
		return nil, err
	}
	budget.Status = status
	return budget, nil
}

// DeleteBudget removes the budget with its allocations and assignments.
func DeleteBudget(ctx context.Context, db *gorm.DB, id int) (*Budget, error) {
	budget, err := GetBudget(ctx, db, id)
	if err != nil {
		return nil, err
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("budget_id = ?", id).Delete(&BudgetCategoryAllocation{}).Error; err != nil {
			return err
		}
		if err := tx.Where("budget_id = ?", id).Delete(&BudgetLocationAssignment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&Budget{}, id).Error
	})
	if err != nil {
		return nil, err
	}
	return budget, nil
}

func GetBudget(ctx context.Context, db *gorm.DB, id int) (*Budget, error) {
	var budget Budget
	err := db.WithContext(ctx).
		Preload("Allocations", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Locations", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Where("id = ?", id).
		First(&budget).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &budget, nil
}

func ListBudgets(ctx context.Context, db *gorm.DB, status *BudgetStatus) ([]*Budget, error) {
	var results []*Budget
	dbCtx := db.WithContext(ctx).
		Preload("Allocations", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Locations", func(db *gorm.DB) *gorm.DB { return db.Order("id") })
	if status != nil {
		dbCtx = dbCtx.Where("status = ?", *status)
	}
	if err := dbCtx.Order("id DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// RecordAllocationSpend sets the manually tracked spend and recomputes the remainder.
func RecordAllocationSpend(ctx context.Context, db *gorm.DB, allocationId int, input *NewAllocationSpend) (*BudgetCategoryAllocation, error) {
	if input.SpentAmount.IsNegative() {
		return nil, utils.NewValidationError("spent_amount", "spent amount must not be negative")
	}

	var allocation BudgetCategoryAllocation
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", allocationId).First(&allocation).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.ErrorRecordNotFound
			}
			return err
		}
		allocation.SpentAmount = input.SpentAmount
		allocation.RemainingAmount = allocation.FlatAmount.Sub(input.SpentAmount)
		return tx.Model(&allocation).Updates(map[string]interface{}{
			"spent_amount":     allocation.SpentAmount,
			"remaining_amount": allocation.RemainingAmount,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &allocation, nil
}

// BudgetLocationIds lists every location the budget is assigned to, any status.
func BudgetLocationIds(ctx context.Context, db *gorm.DB, budgetId int) ([]int64, error) {
	var ids []int64
	err := db.WithContext(ctx).Model(&BudgetLocationAssignment{}).
		Where("budget_id = ?", budgetId).
		Distinct().Pluck("location_id", &ids).Error
	return ids, err
}

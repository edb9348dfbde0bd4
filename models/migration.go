package models

import (
	"gorm.io/gorm"
)

// MigrateTable creates the budgeting tables. The Shopify mirror tables are
// owned by the store sync and only migrated when includeShopify is set
// (local development and tests).
func MigrateTable(db *gorm.DB, includeShopify bool) error {
	if includeShopify {
		if err := db.AutoMigrate(
			&Order{}, &OrderLine{}, &Refund{}, &RefundLine{}, &Product{},
		); err != nil {
			return err
		}
	}
	return db.AutoMigrate(
		&BudgetCategoryMaster{},
		&Budget{}, &BudgetCategoryAllocation{}, &BudgetLocationAssignment{},
		&LocationCensus{},
	)
}

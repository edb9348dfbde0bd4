package models

import (
	"context"

	"gorm.io/gorm"
)

type Product struct {
	ID                int64  `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Title             string `gorm:"size:255" json:"title"`
	ProductType       string `gorm:"size:255;index" json:"product_type"`
	Vendor            string `gorm:"size:255" json:"vendor"`
	ShopifyCategory   string `gorm:"size:255;index" json:"shopify_category"`
	InventoryQuantity int    `gorm:"default:0" json:"inventory_quantity"`
	Status            string `gorm:"size:32" json:"status"`
}

func (Product) TableName() string { return "products" }

// SetProductCategory stores the GL-code category; it reports whether the row changed.
func SetProductCategory(ctx context.Context, db *gorm.DB, productId int64, category string) (bool, error) {
	result := db.WithContext(ctx).Model(&Product{}).
		Where("id = ? AND (shopify_category IS NULL OR shopify_category <> ?)", productId, category).
		Update("shopify_category", category)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

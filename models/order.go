package models

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Order rows are written by the store sync; this service only patches
// order_budget_month.
type Order struct {
	ID                int64           `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name              string          `gorm:"size:64" json:"name"`
	CustomerId        *int64          `gorm:"index" json:"customer_id"`
	LocationId        *int64          `gorm:"index" json:"location_id"`
	CompanyLocationId *int64          `gorm:"index" json:"company_location_id"`
	FinancialStatus   string          `gorm:"size:32" json:"financial_status"`
	FulfillmentStatus string          `gorm:"size:32" json:"fulfillment_status"`
	TotalPrice        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_price"`
	Currency          string          `gorm:"size:8" json:"currency"`
	OrderBudgetMonth  *string         `gorm:"size:7;index" json:"order_budget_month"`
	Lines             []OrderLine     `gorm:"foreignKey:OrderId" json:"lines,omitempty"`
	CreatedAt         time.Time       `gorm:"index;not null" json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func (Order) TableName() string { return "orders" }

type OrderLine struct {
	ID        int64           `gorm:"primaryKey;autoIncrement:false" json:"id"`
	OrderId   int64           `gorm:"index;not null" json:"order_id"`
	ProductId *int64          `gorm:"index" json:"product_id"`
	VariantId *int64          `json:"variant_id"`
	Title     string          `gorm:"size:255" json:"title"`
	Sku       string          `gorm:"size:100" json:"sku"`
	Vendor    string          `gorm:"size:255" json:"vendor"`
	Price     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"price"`
	Quantity  int             `gorm:"not null;default:0" json:"quantity"`
}

func (OrderLine) TableName() string { return "order_lines" }

type Refund struct {
	ID        int64        `gorm:"primaryKey;autoIncrement:false" json:"id"`
	OrderId   int64        `gorm:"index;not null" json:"order_id"`
	Lines     []RefundLine `gorm:"foreignKey:RefundId" json:"lines,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

func (Refund) TableName() string { return "refunds" }

// RefundLine quantities are not checked against the order line here;
// over-refunds are flagged when reports are built.
type RefundLine struct {
	ID          int64            `gorm:"primaryKey;autoIncrement:false" json:"id"`
	RefundId    int64            `gorm:"index;not null" json:"refund_id"`
	OrderLineId int64            `gorm:"index;not null" json:"order_line_id"`
	Quantity    int              `gorm:"not null;default:0" json:"quantity"`
	Subtotal    *decimal.Decimal `gorm:"type:decimal(20,4)" json:"subtotal"`
	TotalTax    *decimal.Decimal `gorm:"type:decimal(20,4)" json:"total_tax"`
}

func (RefundLine) TableName() string { return "refund_lines" }

// SetOrderBudgetMonth tags an order with its budget month.
// It reports false when the order is not synced yet.
func SetOrderBudgetMonth(ctx context.Context, db *gorm.DB, orderId int64, month string) (bool, error) {
	bm, err := ParseBudgetMonth(month)
	if err != nil {
		return false, err
	}
	value := bm.String()
	result := db.WithContext(ctx).Model(&Order{}).
		Where("id = ?", orderId).
		Update("order_budget_month", &value)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

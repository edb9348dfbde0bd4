package reports

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/mmdatafocus/shopify_budget/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrQueryFailed wraps every data-store failure of the report pipeline.
var ErrQueryFailed = errors.New("report query failed")

func queryFailed(err error) error {
	return fmt.Errorf("%w: %v", ErrQueryFailed, err)
}

// OrderLineRow is one order line joined with its product. Category fields
// are already decoded.
type OrderLineRow struct {
	OrderLineId     int64
	OrderId         int64
	ProductId       *int64
	VariantId       *int64
	LineTitle       string
	Sku             string
	Vendor          string
	Price           decimal.Decimal
	Quantity        int64
	ProductTitle    *string
	ProductType     *string
	ShopifyCategory *string
}

// RefundTotal is the refund aggregate of one order line.
type RefundTotal struct {
	OrderLineId      int64
	RefundedQuantity decimal.Decimal
	RefundedValue    decimal.Decimal
}

// AllocationRow is one allocation of an active budget assigned to a location.
type AllocationRow struct {
	BudgetId     int
	CategoryId   int
	CategoryName string
	FlatAmount   decimal.Decimal
	PpdRate      decimal.NullDecimal
}

type SpendSource interface {
	OrderLines(ctx context.Context, f OrderFilter) ([]OrderLineRow, error)
	RefundTotals(ctx context.Context, f OrderFilter) ([]RefundTotal, error)
}

type BudgetSource interface {
	CategoryMasters(ctx context.Context) ([]models.BudgetCategoryMaster, error)
	LocationAllocations(ctx context.Context, locationId int64) ([]AllocationRow, error)
	// LocationCensus returns nil, nil when no census exists.
	LocationCensus(ctx context.Context, locationId int64, month string) (*models.LocationCensus, error)
}

// Store reads the warehouse through gorm.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func applyOrderFilter(q *gorm.DB, f OrderFilter) *gorm.DB {
	for _, pred := range f.Predicates() {
		q = q.Where(pred)
	}
	return q
}

func (s *Store) OrderLines(ctx context.Context, f OrderFilter) ([]OrderLineRow, error) {
	q := s.db.WithContext(ctx).Table("order_lines AS ol").
		Select(`ol.id AS order_line_id, ol.order_id, ol.product_id, ol.variant_id,
			ol.title AS line_title, ol.sku, ol.vendor, ol.price, ol.quantity,
			p.title AS product_title, p.product_type, p.shopify_category`).
		Joins("JOIN orders AS o ON o.id = ol.order_id").
		Joins("LEFT JOIN products AS p ON p.id = ol.product_id")
	q = applyOrderFilter(q, f)

	var rows []OrderLineRow
	if err := q.Order("ol.id").Scan(&rows).Error; err != nil {
		return nil, queryFailed(err)
	}
	for i := range rows {
		rows[i].ProductType = decodedPtr(rows[i].ProductType)
		rows[i].ShopifyCategory = decodedPtr(rows[i].ShopifyCategory)
	}
	return rows, nil
}

func (s *Store) RefundTotals(ctx context.Context, f OrderFilter) ([]RefundTotal, error) {
	q := s.db.WithContext(ctx).Table("refund_lines AS rl").
		Select(`rl.order_line_id,
			SUM(rl.quantity) AS refunded_quantity,
			SUM(COALESCE(rl.subtotal, 0) + COALESCE(rl.total_tax, 0)) AS refunded_value`).
		Joins("JOIN refunds AS r ON r.id = rl.refund_id").
		Joins("JOIN orders AS o ON o.id = r.order_id")
	q = applyOrderFilter(q, f)

	var rows []RefundTotal
	if err := q.Group("rl.order_line_id").Scan(&rows).Error; err != nil {
		return nil, queryFailed(err)
	}
	return rows, nil
}

func (s *Store) CategoryMasters(ctx context.Context) ([]models.BudgetCategoryMaster, error) {
	var masters []models.BudgetCategoryMaster
	if err := s.db.WithContext(ctx).Order("id").Find(&masters).Error; err != nil {
		return nil, queryFailed(err)
	}
	return masters, nil
}

func (s *Store) LocationAllocations(ctx context.Context, locationId int64) ([]AllocationRow, error) {
	var rows []AllocationRow
	err := s.db.WithContext(ctx).Table("budget_location_assignments AS bla").
		Select(`b.id AS budget_id, bca.category_id, bcm.name AS category_name,
			bca.flat_amount, bca.ppd_rate`).
		Joins("JOIN budgets AS b ON b.id = bla.budget_id").
		Joins("JOIN budget_category_allocations AS bca ON bca.budget_id = b.id").
		Joins("JOIN budget_category_masters AS bcm ON bcm.id = bca.category_id").
		Where("bla.location_id = ?", locationId).
		Where("bla.status = ?", models.AssignmentStatusActive).
		Where("b.status = ?", models.BudgetStatusActive).
		Order("b.id, bca.category_id").
		Scan(&rows).Error
	if err != nil {
		return nil, queryFailed(err)
	}
	return rows, nil
}

func (s *Store) LocationCensus(ctx context.Context, locationId int64, month string) (*models.LocationCensus, error) {
	census, err := models.GetLocationCensus(ctx, s.db, locationId, month)
	if err != nil {
		return nil, queryFailed(err)
	}
	return census, nil
}

func decodedPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := models.DecodeCategoryName(*s)
	return &v
}

func optionalId(id *int64) string {
	if id == nil {
		return "-"
	}
	return strconv.FormatInt(*id, 10)
}

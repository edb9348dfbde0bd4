package reports

import (
	"context"
	"io"
	"sync/atomic"

	"github.com/mmdatafocus/shopify_budget/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type fakeSpend struct {
	lines   []OrderLineRow
	refunds []RefundTotal
	err     error
	calls   atomic.Int32
}

func (f *fakeSpend) OrderLines(ctx context.Context, _ OrderFilter) ([]OrderLineRow, error) {
	f.calls.Add(1)
	return f.lines, f.err
}

func (f *fakeSpend) RefundTotals(ctx context.Context, _ OrderFilter) ([]RefundTotal, error) {
	f.calls.Add(1)
	return f.refunds, f.err
}

type fakeBudgets struct {
	masters []models.BudgetCategoryMaster
	allocs  map[int64][]AllocationRow
	census  map[string]*models.LocationCensus
	err     error
}

func (f *fakeBudgets) CategoryMasters(ctx context.Context) ([]models.BudgetCategoryMaster, error) {
	return f.masters, f.err
}

func (f *fakeBudgets) LocationAllocations(ctx context.Context, locationId int64) ([]AllocationRow, error) {
	return f.allocs[locationId], f.err
}

func (f *fakeBudgets) LocationCensus(ctx context.Context, locationId int64, month string) (*models.LocationCensus, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.census[month], nil
}

func int64Ptr(v int64) *int64 { return &v }

func strPtr(v string) *string { return &v }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ppd(s string) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: dec(s), Valid: true}
}

func mustMonth(s string) *models.BudgetMonth {
	bm, err := models.ParseBudgetMonth(s)
	if err != nil {
		panic(err)
	}
	return &bm
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func line(lineId, orderId, productId int64, title, category string, price string, qty int64) OrderLineRow {
	return OrderLineRow{
		OrderLineId:     lineId,
		OrderId:         orderId,
		ProductId:       int64Ptr(productId),
		VariantId:       int64Ptr(productId * 10),
		LineTitle:       title,
		Price:           dec(price),
		Quantity:        qty,
		ProductTitle:    strPtr(title),
		ShopifyCategory: strPtr(category),
	}
}

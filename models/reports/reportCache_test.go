package reports

import (
	"context"
	"errors"
	"testing"

	"github.com/mmdatafocus/shopify_budget/utils"
)

func TestReporterWrapsStoreErrors(t *testing.T) {
	spend := &fakeSpend{err: errors.New("dial tcp: connection refused")}
	r := NewReporter(spend, woundCareBudgets(), nil, ReporterConfig{CacheEnabled: true}, quietLogger(), nil)

	_, err := r.Products(context.Background(), OrderFilter{LocationId: int64Ptr(1)})
	if !errors.Is(err, ErrQueryFailed) {
		t.Fatalf("expected ErrQueryFailed, got %v", err)
	}
	_, err = r.BudgetVsActual(context.Background(), OrderFilter{LocationId: int64Ptr(1)}, BudgetReportOptions{})
	if !errors.Is(err, ErrQueryFailed) {
		t.Fatalf("expected ErrQueryFailed, got %v", err)
	}
}

func TestReporterKeepsValidationErrors(t *testing.T) {
	r := NewReporter(&fakeSpend{}, woundCareBudgets(), nil, ReporterConfig{}, quietLogger(), nil)

	_, err := r.LocationBudget(context.Background(), 1, "April 2025")
	if !utils.IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if errors.Is(err, ErrQueryFailed) {
		t.Fatalf("validation errors must not be reported as query failures")
	}
}

func TestReporterWithoutRedis(t *testing.T) {
	spend := &fakeSpend{lines: []OrderLineRow{line(1, 1, 1, "Gauze Pads", "Wound Care", "5.00", 10)}}
	r := NewReporter(spend, woundCareBudgets(), nil, ReporterConfig{CacheEnabled: true, SlowMs: 1}, quietLogger(), nil)
	ctx := context.Background()

	categories, err := r.CategorySpend(ctx, OrderFilter{CustomerId: int64Ptr(2)}, GroupByShopifyCategory)
	if err != nil {
		t.Fatalf("CategorySpend: %v", err)
	}
	if len(categories) != 1 || !categories[0].TotalValue.Equal(dec("50")) {
		t.Fatalf("unexpected categories %+v", categories)
	}
	// invalidation is a no-op without a cache
	r.InvalidateLocations(ctx, 1, 2)
	r.InvalidateAll(ctx)

	budget, err := r.LocationBudget(ctx, 1, "04-2025")
	if err != nil {
		t.Fatalf("LocationBudget: %v", err)
	}
	if budget.Mode != BudgetModeCensus || !budget.Total().Equal(dec("15250")) {
		t.Fatalf("unexpected budget %s / %s", budget.Mode, budget.Total())
	}
}

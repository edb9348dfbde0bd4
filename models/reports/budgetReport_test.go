package reports

import (
	"context"
	"testing"

	"github.com/mmdatafocus/shopify_budget/models"
	"github.com/shopspring/decimal"
)

func findCategory(categories []*CategorySpend, name string) *CategorySpend {
	for _, c := range categories {
		if c.CategoryName == name {
			return c
		}
	}
	return nil
}

func TestBuildBudgetReportEndToEnd(t *testing.T) {
	spend := &fakeSpend{
		lines: []OrderLineRow{
			line(1, 1, 1, "Gauze Pads", "Wound Care", "5.00", 10),
		},
		refunds: []RefundTotal{
			{OrderLineId: 1, RefundedQuantity: dec("2"), RefundedValue: dec("10.00")},
		},
	}
	budgets := woundCareBudgets()
	f := OrderFilter{LocationId: int64Ptr(1), Month: mustMonth("01-2025")}

	report, err := BuildBudgetReport(context.Background(), spend, budgets, f, BudgetReportOptions{})
	if err != nil {
		t.Fatalf("BuildBudgetReport: %v", err)
	}

	wound := findCategory(report.Categories, "Medical>Wound Care")
	if wound == nil {
		t.Fatalf("wound care bucket missing: %+v", report.Categories)
	}
	if wound.CategoryId == nil || *wound.CategoryId != 1 {
		t.Fatalf("expected wound care to reconcile to master 1")
	}
	if wound.TotalQuantity != 8 || !wound.TotalValue.Equal(dec("40")) {
		t.Fatalf("expected 8 / 40, got %d / %s", wound.TotalQuantity, wound.TotalValue)
	}
	if wound.Budget == nil || !wound.Budget.Equal(dec("100")) {
		t.Fatalf("expected flat budget 100, got %v", wound.Budget)
	}
	if wound.Variance == nil || !wound.Variance.Equal(dec("60")) {
		t.Fatalf("expected variance 60, got %v", wound.Variance)
	}

	// budgeted category without orders is still listed
	continence := findCategory(report.Categories, "Incontinence")
	if continence == nil {
		t.Fatalf("zero-order budget category missing")
	}
	if !continence.TotalValue.IsZero() || continence.ProductCount != 0 {
		t.Fatalf("expected zero actuals, got %+v", continence)
	}
	if !continence.Variance.Equal(dec("250")) {
		t.Fatalf("expected variance 250, got %s", continence.Variance)
	}

	if report.TotalCategories != 2 || report.TotalOrders != 1 || report.OrdersWithRefunds != 1 {
		t.Fatalf("unexpected report totals %+v", report)
	}
	if !report.TotalBudget.Equal(dec("350")) || report.BudgetMode != BudgetModeFlat {
		t.Fatalf("unexpected budget %s / %s", report.TotalBudget, report.BudgetMode)
	}
	if !report.RefundRate.Equal(dec("20")) {
		t.Fatalf("expected refund rate 20, got %s", report.RefundRate)
	}
	if report.BudgetMonth != "01-2025" {
		t.Fatalf("expected budget month 01-2025, got %q", report.BudgetMonth)
	}
}

func TestBuildBudgetReportCensusMode(t *testing.T) {
	spend := &fakeSpend{lines: []OrderLineRow{line(1, 1, 1, "Gauze Pads", "Wound Care", "5.00", 10)}}
	f := OrderFilter{LocationId: int64Ptr(1), BudgetMonth: mustMonth("04-2025")}

	report, err := BuildBudgetReport(context.Background(), spend, woundCareBudgets(), f, BudgetReportOptions{})
	if err != nil {
		t.Fatalf("BuildBudgetReport: %v", err)
	}
	if report.BudgetMode != BudgetModeCensus {
		t.Fatalf("expected census mode, got %s", report.BudgetMode)
	}
	wound := findCategory(report.Categories, "Medical>Wound Care")
	if !wound.Budget.Equal(dec("15000")) || wound.BudgetSource != BudgetSourceCensus {
		t.Fatalf("expected census budget 15000, got %s (%s)", wound.Budget, wound.BudgetSource)
	}
}

func TestBuildBudgetReportConservesNetValue(t *testing.T) {
	spend := &fakeSpend{
		lines: []OrderLineRow{
			line(1, 1, 1, "Gauze Pads", "Wound Care", "5.00", 10),
			line(2, 1, 2, "Foam Dressing", "Medical>Wound Care", "8.00", 2),
			line(3, 2, 3, "Briefs", "Incontinence", "12.25", 3),
			line(4, 3, 4, "Pens", "", "1.00", 7),
			line(5, 3, 5, "Lotion", "Skin Care", "3.30", 3),
		},
		refunds: []RefundTotal{
			{OrderLineId: 3, RefundedQuantity: dec("1"), RefundedValue: dec("12.25")},
			{OrderLineId: 5, RefundedQuantity: dec("4"), RefundedValue: dec("13.20")},
		},
	}
	net, err := ExtractNetValues(context.Background(), spend, OrderFilter{LocationId: int64Ptr(1)})
	if err != nil {
		t.Fatalf("ExtractNetValues: %v", err)
	}
	report, err := BuildBudgetReport(context.Background(), spend, woundCareBudgets(), OrderFilter{LocationId: int64Ptr(1)}, BudgetReportOptions{})
	if err != nil {
		t.Fatalf("BuildBudgetReport: %v", err)
	}

	productTotal := decimal.Zero
	for _, p := range net.Products {
		productTotal = productTotal.Add(p.NetValue)
	}
	categoryTotal := decimal.Zero
	for _, c := range report.Categories {
		categoryTotal = categoryTotal.Add(c.TotalValue)
	}
	if !productTotal.Equal(categoryTotal) || !report.TotalValue.Equal(productTotal) {
		t.Fatalf("net value not conserved: products %s categories %s report %s", productTotal, categoryTotal, report.TotalValue)
	}

	// "Wound Care" and "Medical>Wound Care" land in one bucket
	wound := findCategory(report.Categories, "Medical>Wound Care")
	if wound == nil || wound.ProductCount != 2 {
		t.Fatalf("expected merged wound care bucket, got %+v", wound)
	}
	if findCategory(report.Categories, "Uncategorized") == nil {
		t.Fatalf("expected uncategorized bucket for product without category")
	}
	if len(report.OverRefunded) != 1 || report.OverRefunded[0].ProductName != "Lotion" {
		t.Fatalf("expected lotion to be flagged over-refunded")
	}
}

func TestBuildBudgetReportWithoutLocation(t *testing.T) {
	spend := &fakeSpend{lines: []OrderLineRow{line(1, 1, 1, "Gauze Pads", "Wound Care", "5.00", 10)}}
	f := OrderFilter{CustomerId: int64Ptr(3)}

	report, err := BuildBudgetReport(context.Background(), spend, woundCareBudgets(), f, BudgetReportOptions{})
	if err != nil {
		t.Fatalf("BuildBudgetReport: %v", err)
	}
	if report.TotalCategories != 1 || report.BudgetMode != "" {
		t.Fatalf("expected spend-only report, got %+v", report)
	}
	c := report.Categories[0]
	if c.Budget != nil || c.Variance != nil {
		t.Fatalf("budget fields must be absent without a location")
	}
	if c.CategoryId == nil || *c.CategoryId != 1 {
		t.Fatalf("expected reconciliation against the master list")
	}
}

func TestAggregateCategoriesByProductType(t *testing.T) {
	products := []*ProductSpend{
		{ProductName: "A", ProductType: "Dressings", NetValue: dec("5"), NetQuantity: 1},
		{ProductName: "B", ProductType: "Dressings", NetValue: dec("7"), NetQuantity: 2},
		{ProductName: "C", ProductType: "", NetValue: dec("9"), NetQuantity: 1},
	}
	categories := AggregateCategories(products, nil, nil, GroupByProductType)
	if len(categories) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(categories))
	}
	if categories[0].CategoryName != "Dressings" || !categories[0].TotalValue.Equal(dec("12")) {
		t.Fatalf("unexpected first category %+v", categories[0])
	}
	if categories[1].CategoryName != "Uncategorized" {
		t.Fatalf("expected uncategorized second, got %q", categories[1].CategoryName)
	}
}

func TestBuildBudgetReportUncategorizedMaster(t *testing.T) {
	spend := &fakeSpend{
		lines: []OrderLineRow{{
			OrderLineId: 1,
			OrderId:     1,
			LineTitle:   "Misc Fee",
			Price:       dec("7"),
			Quantity:    1,
		}},
	}
	budgets := &fakeBudgets{
		masters: []models.BudgetCategoryMaster{{ID: 9, Name: "Uncategorized"}},
		allocs: map[int64][]AllocationRow{
			1: {{BudgetId: 10, CategoryId: 9, FlatAmount: dec("50")}},
		},
	}
	f := OrderFilter{LocationId: int64Ptr(1)}

	report, err := BuildBudgetReport(context.Background(), spend, budgets, f, BudgetReportOptions{})
	if err != nil {
		t.Fatalf("BuildBudgetReport: %v", err)
	}
	if len(report.Categories) != 1 {
		t.Fatalf("expected a single Uncategorized bucket, got %d", len(report.Categories))
	}
	c := report.Categories[0]
	if c.CategoryId == nil || *c.CategoryId != 9 {
		t.Fatalf("expected the bucket to reconcile to master 9, got %v", c.CategoryId)
	}
	if !c.TotalValue.Equal(dec("7")) || c.Budget == nil || !c.Budget.Equal(dec("50")) {
		t.Fatalf("expected total 7 and budget 50, got %s / %v", c.TotalValue, c.Budget)
	}
	if !c.Variance.Equal(dec("43")) {
		t.Fatalf("expected variance 43, got %s", c.Variance)
	}
}

package reports

import (
	"context"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

type BudgetReportOptions struct {
	// LocationId overrides the filter's location for budget resolution.
	LocationId *int64
	Grouping   CategoryGrouping
}

type BudgetReport struct {
	Categories        []*CategorySpend `json:"categories"`
	TotalOrders       int              `json:"totalOrders"`
	OrdersWithRefunds int              `json:"ordersWithRefunds"`
	TotalCategories   int              `json:"totalCategories"`
	GrossValue        decimal.Decimal  `json:"grossValue"`
	RefundedValue     decimal.Decimal  `json:"refundedValue"`
	TotalValue        decimal.Decimal  `json:"totalValue"`
	RefundRate        decimal.Decimal  `json:"refundRate"`
	TotalBudget       decimal.Decimal  `json:"totalBudget"`
	BudgetMode        string           `json:"budgetMode,omitempty"`
	BudgetMonth       string           `json:"budgetMonth,omitempty"`
	LocationId        *int64           `json:"locationId"`
	OverRefunded      []*ProductSpend  `json:"-"`
}

// BuildBudgetReport composes extractor, resolver and aggregator. The budget
// side is only resolved when a location is known.
func BuildBudgetReport(ctx context.Context, spend SpendSource, budgets BudgetSource, f OrderFilter, opts BudgetReportOptions) (*BudgetReport, error) {
	locationId := opts.LocationId
	if locationId == nil {
		locationId = f.LocationId
	}
	month := ""
	if bm, ok := f.Period(); ok {
		month = bm.String()
	}

	var (
		net    *NetValueResult
		budget *BudgetMap
		index  *CategoryIndex
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		net, err = ExtractNetValues(gctx, spend, f)
		return err
	})
	g.Go(func() error {
		if locationId == nil {
			masters, err := budgets.CategoryMasters(gctx)
			if err != nil {
				return err
			}
			index = NewCategoryIndex(masters)
			return nil
		}
		var err error
		budget, err = ResolveBudget(gctx, budgets, *locationId, month)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return composeBudgetReport(net, index, budget, opts.Grouping, locationId, month), nil
}

func composeBudgetReport(net *NetValueResult, index *CategoryIndex, budget *BudgetMap, g CategoryGrouping, locationId *int64, month string) *BudgetReport {
	categories := AggregateCategories(net.Products, index, budget, g)

	report := &BudgetReport{
		Categories:        categories,
		TotalOrders:       net.TotalOrders,
		OrdersWithRefunds: net.OrdersWithRefunds,
		TotalCategories:   len(categories),
		BudgetMonth:       month,
		LocationId:        locationId,
		OverRefunded:      net.OverRefunded(),
	}
	for _, c := range categories {
		report.GrossValue = report.GrossValue.Add(c.GrossValue)
		report.RefundedValue = report.RefundedValue.Add(c.RefundedValue)
		report.TotalValue = report.TotalValue.Add(c.TotalValue)
	}
	if report.GrossValue.IsPositive() {
		report.RefundRate = report.RefundedValue.Div(report.GrossValue).Mul(decimal.NewFromInt(100)).Round(2)
	}
	if budget != nil {
		report.TotalBudget = budget.Total()
		report.BudgetMode = budget.Mode
	}
	return report
}

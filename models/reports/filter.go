package reports

import (
	"github.com/mmdatafocus/shopify_budget/models"
	"gorm.io/gorm/clause"
)

// OrderFilter selects orders for every spend query. Either Month (a
// created-at calendar month) or BudgetMonth (tagged month with created-at
// fallback) narrows the period; both unset means all time.
type OrderFilter struct {
	CustomerId        *int64
	LocationId        *int64
	CompanyLocationId *int64
	Month             *models.BudgetMonth
	BudgetMonth       *models.BudgetMonth
}

// IsEmpty is true when no filter at all was supplied.
func (f OrderFilter) IsEmpty() bool {
	return f.CustomerId == nil && f.LocationId == nil && f.CompanyLocationId == nil &&
		f.Month == nil && f.BudgetMonth == nil
}

// Period returns the month the filter covers, if any.
func (f OrderFilter) Period() (models.BudgetMonth, bool) {
	if f.BudgetMonth != nil {
		return *f.BudgetMonth, true
	}
	if f.Month != nil {
		return *f.Month, true
	}
	return models.BudgetMonth{}, false
}

// Predicates renders the filter against the orders table aliased "o".
// Values are always bound, never interpolated.
func (f OrderFilter) Predicates() []clause.Expression {
	var exprs []clause.Expression
	if f.CustomerId != nil {
		exprs = append(exprs, clause.Eq{Column: orderColumn("customer_id"), Value: *f.CustomerId})
	}
	if f.LocationId != nil {
		exprs = append(exprs, clause.Eq{Column: orderColumn("location_id"), Value: *f.LocationId})
	}
	if f.CompanyLocationId != nil {
		exprs = append(exprs, clause.Eq{Column: orderColumn("company_location_id"), Value: *f.CompanyLocationId})
	}
	switch {
	case f.BudgetMonth != nil:
		// the order's tag wins; untagged orders fall back to their created month
		exprs = append(exprs, clause.Expr{
			SQL:  "COALESCE(NULLIF(o.order_budget_month, ''), DATE_FORMAT(o.created_at, '%m-%Y')) = ?",
			Vars: []interface{}{f.BudgetMonth.String()},
		})
	case f.Month != nil:
		exprs = append(exprs,
			clause.Gte{Column: orderColumn("created_at"), Value: f.Month.Start()},
			clause.Lt{Column: orderColumn("created_at"), Value: f.Month.End()},
		)
	}
	return exprs
}

func orderColumn(name string) clause.Column {
	return clause.Column{Table: "o", Name: name}
}

// CacheKey is a stable textual form of the filter.
func (f OrderFilter) CacheKey() string {
	key := "c=" + optionalId(f.CustomerId) +
		":l=" + optionalId(f.LocationId) +
		":cl=" + optionalId(f.CompanyLocationId)
	if f.Month != nil {
		key += ":m=" + f.Month.String()
	}
	if f.BudgetMonth != nil {
		key += ":bm=" + f.BudgetMonth.String()
	}
	return key
}

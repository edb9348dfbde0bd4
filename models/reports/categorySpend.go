package reports

import (
	"errors"
	"sort"
	"strings"

	"github.com/mmdatafocus/shopify_budget/models"
	"github.com/shopspring/decimal"
)

type CategoryGrouping string

const (
	GroupByShopifyCategory CategoryGrouping = "shopify_category"
	GroupByProductType     CategoryGrouping = "product_type"
)

func ParseCategoryGrouping(s string) (CategoryGrouping, error) {
	switch CategoryGrouping(strings.TrimSpace(s)) {
	case "", GroupByShopifyCategory:
		return GroupByShopifyCategory, nil
	case GroupByProductType:
		return GroupByProductType, nil
	}
	return "", errors.New("groupBy must be shopify_category or product_type")
}

// CategoryName is the bucket a product lands in.
func (p *ProductSpend) CategoryName(g CategoryGrouping) string {
	name := p.ShopifyCategory
	if g == GroupByProductType {
		name = p.ProductType
	}
	if name = strings.TrimSpace(name); name == "" {
		return models.UncategorizedCategory
	}
	return name
}

type CategorySpend struct {
	CategoryId       *int             `json:"category_id"`
	CategoryName     string           `json:"category_name"`
	Products         []*ProductSpend  `json:"products"`
	ProductCount     int              `json:"product_count"`
	TotalQuantity    int64            `json:"total_quantity"`
	TotalValue       decimal.Decimal  `json:"total_value"`
	GrossQuantity    int64            `json:"gross_quantity"`
	GrossValue       decimal.Decimal  `json:"gross_value"`
	RefundedQuantity int64            `json:"refunded_quantity"`
	RefundedValue    decimal.Decimal  `json:"refunded_value"`
	Budget           *decimal.Decimal `json:"budget,omitempty"`
	BudgetSource     string           `json:"budget_source,omitempty"`
	Variance         *decimal.Decimal `json:"variance,omitempty"`
}

func (c *CategorySpend) add(p *ProductSpend) {
	c.Products = append(c.Products, p)
	c.ProductCount = len(c.Products)
	c.TotalQuantity += p.NetQuantity
	c.TotalValue = c.TotalValue.Add(p.NetValue)
	c.GrossQuantity += p.GrossQuantity
	c.GrossValue = c.GrossValue.Add(p.GrossValue)
	c.RefundedQuantity += p.RefundedQuantity
	c.RefundedValue = c.RefundedValue.Add(p.RefundedValue)
}

func (c *CategorySpend) absorb(o *CategorySpend) {
	for _, p := range o.Products {
		c.add(p)
	}
}

// AggregateCategories groups product rows into category buckets.
// index reconciles names with the master list and may be nil. When budget is
// set, every bucket gets a budget and variance, and budget categories
// without any orders are surfaced with zero actuals.
func AggregateCategories(products []*ProductSpend, index *CategoryIndex, budget *BudgetMap, g CategoryGrouping) []*CategorySpend {
	if index == nil {
		index = budget.Index()
	}

	byName := make(map[string]*CategorySpend)
	var names []string
	for _, p := range products {
		name := p.CategoryName(g)
		bucket, ok := byName[name]
		if !ok {
			bucket = &CategorySpend{CategoryName: name, Products: []*ProductSpend{}}
			byName[name] = bucket
			names = append(names, name)
		}
		bucket.add(p)
	}

	// buckets resolving to the same master category are one bucket
	byId := make(map[int]*CategorySpend)
	buckets := make([]*CategorySpend, 0, len(names))
	for _, name := range names {
		bucket := byName[name]
		id, canonical, ok := index.Lookup(name)
		if !ok {
			buckets = append(buckets, bucket)
			continue
		}
		if existing, found := byId[id]; found {
			existing.absorb(bucket)
			continue
		}
		catId := id
		bucket.CategoryId = &catId
		bucket.CategoryName = canonical
		byId[id] = bucket
		buckets = append(buckets, bucket)
	}

	if budget != nil {
		for _, line := range budget.Sorted() {
			if _, found := byId[line.CategoryId]; found {
				continue
			}
			catId := line.CategoryId
			bucket := &CategorySpend{
				CategoryId:   &catId,
				CategoryName: line.CategoryName,
				Products:     []*ProductSpend{},
			}
			byId[line.CategoryId] = bucket
			buckets = append(buckets, bucket)
		}
		for _, bucket := range buckets {
			amount := decimal.Zero
			if bucket.CategoryId != nil {
				if line, ok := budget.Lines[*bucket.CategoryId]; ok {
					amount = line.Amount
					bucket.BudgetSource = line.Source
				}
			}
			variance := amount.Sub(bucket.TotalValue)
			bucket.Budget = &amount
			bucket.Variance = &variance
		}
	}

	sort.SliceStable(buckets, func(i, j int) bool {
		if c := buckets[i].TotalValue.Cmp(buckets[j].TotalValue); c != 0 {
			return c > 0
		}
		return buckets[i].CategoryName < buckets[j].CategoryName
	})
	return buckets
}

package reports

import (
	"context"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// ProductSpend is the refund-adjusted spend of one product variant.
type ProductSpend struct {
	ProductId         *int64          `json:"product_id"`
	VariantId         *int64          `json:"variant_id"`
	ProductName       string          `json:"product_name"`
	Sku               string          `json:"sku"`
	Vendor            string          `json:"vendor"`
	ProductType       string          `json:"product_type"`
	ShopifyCategory   string          `json:"shopify_category"`
	GrossQuantity     int64           `json:"gross_quantity"`
	GrossValue        decimal.Decimal `json:"gross_value"`
	RefundedQuantity  int64           `json:"refunded_quantity"`
	RefundedValue     decimal.Decimal `json:"refunded_value"`
	NetQuantity       int64           `json:"net_quantity"`
	NetValue          decimal.Decimal `json:"net_value"`
	AveragePrice      decimal.Decimal `json:"average_price"`
	OrderCount        int             `json:"order_count"`
	OrdersWithRefunds int             `json:"orders_with_refunds"`
	OverRefunded      bool            `json:"over_refunded"`
}

type NetValueResult struct {
	Products []*ProductSpend `json:"products"`
	// distinct over the whole result, not summed per product
	TotalOrders       int `json:"totalOrders"`
	OrdersWithRefunds int `json:"ordersWithRefunds"`
}

// OverRefunded lists the rows whose refunds exceed what was sold.
func (r *NetValueResult) OverRefunded() []*ProductSpend {
	var out []*ProductSpend
	for _, p := range r.Products {
		if p.OverRefunded {
			out = append(out, p)
		}
	}
	return out
}

// ExtractNetValues runs the order-line and refund queries in parallel and
// joins them in memory. An empty filter yields an empty result.
func ExtractNetValues(ctx context.Context, src SpendSource, f OrderFilter) (*NetValueResult, error) {
	if f.IsEmpty() {
		return &NetValueResult{Products: []*ProductSpend{}}, nil
	}

	var (
		lines   []OrderLineRow
		refunds []RefundTotal
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		lines, err = src.OrderLines(gctx, f)
		return err
	})
	g.Go(func() error {
		var err error
		refunds, err = src.RefundTotals(gctx, f)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return mergeNetValues(lines, refunds), nil
}

type productKey struct {
	productId int64
	variantId int64
	// custom line items have no product; they group by title
	title string
}

type productAccumulator struct {
	spend          *ProductSpend
	orders         map[int64]struct{}
	refundedOrders map[int64]struct{}
}

func keyOf(line OrderLineRow) productKey {
	var k productKey
	if line.ProductId != nil {
		k.productId = *line.ProductId
	} else {
		k.title = line.LineTitle
	}
	if line.VariantId != nil {
		k.variantId = *line.VariantId
	}
	return k
}

func newProductSpend(line OrderLineRow) *ProductSpend {
	p := &ProductSpend{
		ProductId:   line.ProductId,
		VariantId:   line.VariantId,
		ProductName: line.LineTitle,
		Sku:         line.Sku,
		Vendor:      line.Vendor,
	}
	if line.ProductTitle != nil && *line.ProductTitle != "" {
		p.ProductName = *line.ProductTitle
	}
	if line.ProductType != nil {
		p.ProductType = *line.ProductType
	}
	if line.ShopifyCategory != nil {
		p.ShopifyCategory = *line.ShopifyCategory
	}
	return p
}

func mergeNetValues(lines []OrderLineRow, refunds []RefundTotal) *NetValueResult {
	refundByLine := make(map[int64]RefundTotal, len(refunds))
	for _, r := range refunds {
		refundByLine[r.OrderLineId] = r
	}

	accs := make(map[productKey]*productAccumulator)
	var order []productKey
	allOrders := make(map[int64]struct{})
	refundedOrders := make(map[int64]struct{})

	for _, line := range lines {
		k := keyOf(line)
		acc, ok := accs[k]
		if !ok {
			acc = &productAccumulator{
				spend:          newProductSpend(line),
				orders:         make(map[int64]struct{}),
				refundedOrders: make(map[int64]struct{}),
			}
			accs[k] = acc
			order = append(order, k)
		}

		p := acc.spend
		p.GrossQuantity += line.Quantity
		p.GrossValue = p.GrossValue.Add(line.Price.Mul(decimal.NewFromInt(line.Quantity)))
		acc.orders[line.OrderId] = struct{}{}
		allOrders[line.OrderId] = struct{}{}

		// lines without refunds join as zero
		if rt, ok := refundByLine[line.OrderLineId]; ok {
			p.RefundedQuantity += rt.RefundedQuantity.IntPart()
			p.RefundedValue = p.RefundedValue.Add(rt.RefundedValue)
			if rt.RefundedQuantity.IsPositive() || rt.RefundedValue.IsPositive() {
				acc.refundedOrders[line.OrderId] = struct{}{}
				refundedOrders[line.OrderId] = struct{}{}
			}
		}
	}

	products := make([]*ProductSpend, 0, len(order))
	for _, k := range order {
		acc := accs[k]
		p := acc.spend
		p.NetQuantity = p.GrossQuantity - p.RefundedQuantity
		p.NetValue = p.GrossValue.Sub(p.RefundedValue)
		if p.GrossQuantity > 0 {
			p.AveragePrice = p.GrossValue.Div(decimal.NewFromInt(p.GrossQuantity)).Round(2)
		}
		p.OrderCount = len(acc.orders)
		p.OrdersWithRefunds = len(acc.refundedOrders)
		p.OverRefunded = p.NetQuantity < 0 || p.NetValue.IsNegative()
		products = append(products, p)
	}

	sort.SliceStable(products, func(i, j int) bool {
		if c := products[i].NetValue.Cmp(products[j].NetValue); c != 0 {
			return c > 0
		}
		return strings.ToLower(products[i].ProductName) < strings.ToLower(products[j].ProductName)
	})

	return &NetValueResult{
		Products:          products,
		TotalOrders:       len(allOrders),
		OrdersWithRefunds: len(refundedOrders),
	}
}

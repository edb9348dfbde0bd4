package reports

import (
	"context"
	"testing"
)

func TestExtractNetValuesRefundAdjusted(t *testing.T) {
	src := &fakeSpend{
		lines: []OrderLineRow{
			line(1, 1, 1, "Gauze Pads", "Wound Care", "5.00", 10),
		},
		refunds: []RefundTotal{
			{OrderLineId: 1, RefundedQuantity: dec("2"), RefundedValue: dec("10.00")},
		},
	}
	f := OrderFilter{LocationId: int64Ptr(1), Month: mustMonth("01-2025")}

	result, err := ExtractNetValues(context.Background(), src, f)
	if err != nil {
		t.Fatalf("ExtractNetValues: %v", err)
	}
	if len(result.Products) != 1 {
		t.Fatalf("expected 1 product, got %d", len(result.Products))
	}
	p := result.Products[0]
	if p.GrossQuantity != 10 || !p.GrossValue.Equal(dec("50")) {
		t.Fatalf("unexpected gross %d / %s", p.GrossQuantity, p.GrossValue)
	}
	if p.NetQuantity != 8 || !p.NetValue.Equal(dec("40")) {
		t.Fatalf("expected net 8 / 40, got %d / %s", p.NetQuantity, p.NetValue)
	}
	if !p.AveragePrice.Equal(dec("5")) {
		t.Fatalf("expected average price 5, got %s", p.AveragePrice)
	}
	if result.TotalOrders != 1 || result.OrdersWithRefunds != 1 {
		t.Fatalf("expected 1 order with 1 refunded, got %d / %d", result.TotalOrders, result.OrdersWithRefunds)
	}
	if p.OverRefunded {
		t.Fatalf("product should not be flagged over-refunded")
	}
}

func TestExtractNetValuesNetEqualsGrossMinusRefunds(t *testing.T) {
	src := &fakeSpend{
		lines: []OrderLineRow{
			line(1, 100, 1, "Gauze Pads", "Wound Care", "5.00", 10),
			line(2, 101, 1, "Gauze Pads", "Wound Care", "4.50", 4),
			line(3, 101, 2, "Briefs", "Incontinence", "12.25", 3),
			line(4, 102, 3, "Thickener", "Nutrition", "7.10", 1),
		},
		refunds: []RefundTotal{
			{OrderLineId: 2, RefundedQuantity: dec("1"), RefundedValue: dec("4.50")},
			{OrderLineId: 3, RefundedQuantity: dec("3"), RefundedValue: dec("36.75")},
			// refund for a line outside the filter is ignored
			{OrderLineId: 99, RefundedQuantity: dec("5"), RefundedValue: dec("50")},
		},
	}
	result, err := ExtractNetValues(context.Background(), src, OrderFilter{CustomerId: int64Ptr(7)})
	if err != nil {
		t.Fatalf("ExtractNetValues: %v", err)
	}
	if len(result.Products) != 3 {
		t.Fatalf("expected 3 products, got %d", len(result.Products))
	}
	for _, p := range result.Products {
		if p.NetQuantity != p.GrossQuantity-p.RefundedQuantity {
			t.Fatalf("%s: net quantity %d != %d - %d", p.ProductName, p.NetQuantity, p.GrossQuantity, p.RefundedQuantity)
		}
		if !p.NetValue.Equal(p.GrossValue.Sub(p.RefundedValue)) {
			t.Fatalf("%s: net value %s != %s - %s", p.ProductName, p.NetValue, p.GrossValue, p.RefundedValue)
		}
	}
	gauze := result.Products[0]
	if gauze.ProductName != "Gauze Pads" || gauze.OrderCount != 2 || gauze.OrdersWithRefunds != 1 {
		t.Fatalf("unexpected first row %+v", gauze)
	}
	if !gauze.NetValue.Equal(dec("63.50")) {
		t.Fatalf("expected gauze net 63.50, got %s", gauze.NetValue)
	}
	if result.TotalOrders != 3 || result.OrdersWithRefunds != 1 {
		t.Fatalf("expected 3 orders / 1 refunded, got %d / %d", result.TotalOrders, result.OrdersWithRefunds)
	}
	for i := 1; i < len(result.Products); i++ {
		if result.Products[i-1].NetValue.LessThan(result.Products[i].NetValue) {
			t.Fatalf("products not sorted by net value desc")
		}
	}
}

func TestExtractNetValuesFlagsOverRefunds(t *testing.T) {
	src := &fakeSpend{
		lines: []OrderLineRow{line(1, 1, 1, "Gloves", "PPE", "2.00", 1)},
		refunds: []RefundTotal{
			{OrderLineId: 1, RefundedQuantity: dec("2"), RefundedValue: dec("4.00")},
		},
	}
	result, err := ExtractNetValues(context.Background(), src, OrderFilter{LocationId: int64Ptr(1)})
	if err != nil {
		t.Fatalf("ExtractNetValues: %v", err)
	}
	p := result.Products[0]
	if !p.OverRefunded || p.NetQuantity != -1 || !p.NetValue.Equal(dec("-2")) {
		t.Fatalf("expected retained over-refunded row, got %+v", p)
	}
	if got := len(result.OverRefunded()); got != 1 {
		t.Fatalf("expected 1 over-refunded row, got %d", got)
	}
}

func TestExtractNetValuesCustomItemsGroupByTitle(t *testing.T) {
	custom := func(lineId, orderId int64, title string) OrderLineRow {
		return OrderLineRow{OrderLineId: lineId, OrderId: orderId, LineTitle: title, Price: dec("1"), Quantity: 1}
	}
	src := &fakeSpend{
		lines: []OrderLineRow{
			custom(1, 1, "Delivery fee"),
			custom(2, 2, "Delivery fee"),
			custom(3, 2, "Rush handling"),
		},
	}
	result, err := ExtractNetValues(context.Background(), src, OrderFilter{LocationId: int64Ptr(1)})
	if err != nil {
		t.Fatalf("ExtractNetValues: %v", err)
	}
	if len(result.Products) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(result.Products))
	}
	if result.Products[0].ProductName != "Delivery fee" || result.Products[0].GrossQuantity != 2 {
		t.Fatalf("unexpected first row %+v", result.Products[0])
	}
}

func TestExtractNetValuesEmptyFilter(t *testing.T) {
	src := &fakeSpend{lines: []OrderLineRow{line(1, 1, 1, "Gloves", "PPE", "2.00", 1)}}
	result, err := ExtractNetValues(context.Background(), src, OrderFilter{})
	if err != nil {
		t.Fatalf("ExtractNetValues: %v", err)
	}
	if len(result.Products) != 0 || result.TotalOrders != 0 {
		t.Fatalf("expected empty result, got %+v", result)
	}
	if src.calls.Load() != 0 {
		t.Fatalf("empty filter must not query the store")
	}
}

package reports

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	summarySheet  = "Summary"
	productsSheet = "Products"
)

// ExportBudgetReport renders the report as an xlsx workbook.
func ExportBudgetReport(report *BudgetReport) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(productsSheet); err != nil {
		return nil, err
	}
	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	// Add headers
	summaryHeader := []interface{}{"Category", "Budget", "Budget Source", "Net Spend", "Variance",
		"Gross Value", "Refunded Value", "Net Quantity", "Products"}
	productsHeader := []interface{}{"Category", "Product", "SKU", "Vendor", "Gross Quantity", "Gross Value",
		"Refunded Quantity", "Refunded Value", "Net Quantity", "Net Value", "Average Price", "Orders", "Over Refunded"}
	if err := writeRow(f, summarySheet, 1, summaryHeader); err != nil {
		return nil, err
	}
	if err := writeRow(f, productsSheet, 1, productsHeader); err != nil {
		return nil, err
	}
	_ = f.SetRowStyle(summarySheet, 1, 1, headerStyle)
	_ = f.SetRowStyle(productsSheet, 1, 1, headerStyle)

	// Add data
	productRow := 2
	for i, c := range report.Categories {
		if err := writeRow(f, summarySheet, i+2, []interface{}{
			c.CategoryName,
			optionalMoney(c.Budget),
			c.BudgetSource,
			money(c.TotalValue),
			optionalMoney(c.Variance),
			money(c.GrossValue),
			money(c.RefundedValue),
			c.TotalQuantity,
			c.ProductCount,
		}); err != nil {
			return nil, err
		}
		for _, p := range c.Products {
			if err := writeRow(f, productsSheet, productRow, []interface{}{
				c.CategoryName,
				p.ProductName,
				p.Sku,
				p.Vendor,
				p.GrossQuantity,
				money(p.GrossValue),
				p.RefundedQuantity,
				money(p.RefundedValue),
				p.NetQuantity,
				money(p.NetValue),
				money(p.AveragePrice),
				p.OrderCount,
				p.OverRefunded,
			}); err != nil {
				return nil, err
			}
			productRow++
		}
	}

	totalRow := len(report.Categories) + 3
	if err := writeRow(f, summarySheet, totalRow, []interface{}{
		"Total",
		money(report.TotalBudget),
		report.BudgetMode,
		money(report.TotalValue),
		money(report.TotalBudget.Sub(report.TotalValue)),
		money(report.GrossValue),
		money(report.RefundedValue),
	}); err != nil {
		return nil, err
	}
	_ = f.SetRowStyle(summarySheet, totalRow, totalRow, headerStyle)
	if err := writeRow(f, summarySheet, totalRow+1, []interface{}{"Refund Rate %", money(report.RefundRate)}); err != nil {
		return nil, err
	}
	if err := writeRow(f, summarySheet, totalRow+2, []interface{}{"Orders", report.TotalOrders, "Orders With Refunds", report.OrdersWithRefunds}); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ExportFileName names the workbook after location and month.
func ExportFileName(report *BudgetReport) string {
	month := report.BudgetMonth
	if month == "" {
		month = "all"
	}
	return fmt.Sprintf("budget-vs-actual-%s-%s.xlsx", optionalId(report.LocationId), month)
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

func optionalMoney(d *decimal.Decimal) interface{} {
	if d == nil {
		return ""
	}
	return money(*d)
}

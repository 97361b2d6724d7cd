package order

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Orders"

var exportColumns = []string{
	"Order code", "Created at", "Status", "Customer", "Email",
	"Product", "Variant", "SKU", "Unit price", "Quantity", "Line total", "Order total", "Paid at",
}

// Export renders every order matching filter as an XLSX workbook, one row per
// order line.
func (s *Service) Export(filter ListFilter) (*bytes.Buffer, error) {
	filter.Limit = 0
	filter.Offset = 0
	orders, _, err := s.List(filter)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	for i, col := range exportColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(exportSheet, cell, col)
		f.SetCellStyle(exportSheet, cell, cell, headerStyle)
	}

	row := 2
	for _, o := range orders {
		paidAt := ""
		if o.PaidAt != nil {
			paidAt = o.PaidAt.Format(time.DateTime)
		}
		for _, d := range o.Details {
			values := []interface{}{
				o.OrderCode, o.CreatedAt.Format(time.DateTime), o.Status, o.CustomerName, o.CustomerEmail,
				d.ProductName, d.VariantName, d.SKU, d.UnitPrice, d.Quantity, d.LineTotal, o.TotalAmount, paidAt,
			}
			for col, v := range values {
				cell, _ := excelize.CoordinatesToCellName(col+1, row)
				f.SetCellValue(exportSheet, cell, v)
			}
			row++
		}
	}

	for i := range exportColumns {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(exportSheet, col, col, 16)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	s.logger.Info("orders exported", "orders", len(orders), "rows", row-2)
	return buf, nil
}

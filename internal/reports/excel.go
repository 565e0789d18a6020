package reports

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"gorental/internal/models"
)

const salesSheet = "Sales"

// WriteSalesReport renders a sales report as an XLSX workbook: one row
// per calendar day plus a totals block.
func WriteSalesReport(w io.Writer, report *models.SalesReport) error {
	if report == nil {
		return fmt.Errorf("report is nil")
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(salesSheet)
	if err != nil {
		return fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	headers := []string{"Date", "Sales", "Bookings"}
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(salesSheet, cell, header)
		_ = f.SetCellStyle(salesSheet, cell, cell, headerStyle)
	}

	row := 2
	for _, point := range report.Sales {
		_ = f.SetCellValue(salesSheet, fmt.Sprintf("A%d", row), point.Date)
		_ = f.SetCellValue(salesSheet, fmt.Sprintf("B%d", row), point.Sales)
		_ = f.SetCellValue(salesSheet, fmt.Sprintf("C%d", row), point.Bookings)
		row++
	}

	totalStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	totals := []struct {
		label string
		value interface{}
	}{
		{"Total sales", report.TotalSales},
		{"Total bookings", report.TotalBookings},
		{"Pending amount", report.TotalPendingAmount},
		{"Paid in cash", report.TotalPaidCash},
	}
	row++ // blank separator line
	for _, t := range totals {
		labelCell := fmt.Sprintf("A%d", row)
		_ = f.SetCellValue(salesSheet, labelCell, t.label)
		_ = f.SetCellValue(salesSheet, fmt.Sprintf("B%d", row), t.value)
		_ = f.SetCellStyle(salesSheet, labelCell, labelCell, totalStyle)
		row++
	}

	_ = f.SetColWidth(salesSheet, "A", "A", 16)
	_ = f.SetColWidth(salesSheet, "B", "C", 14)

	_ = f.DeleteSheet("Sheet1")

	if err := f.Write(w); err != nil {
		return fmt.Errorf("error writing workbook: %v", err)
	}
	return nil
}

// SalesReportFileName builds the attachment name for an export window.
func SalesReportFileName(startDate, endDate string) string {
	return fmt.Sprintf("sales_%s_to_%s.xlsx", startDate, endDate)
}

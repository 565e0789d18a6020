package reports

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"gorental/internal/models"
)

func TestWriteSalesReport(t *testing.T) {
	report := &models.SalesReport{
		Sales: []models.SalesPoint{
			{Date: "2026-07-01", Sales: 690, Bookings: 2},
			{Date: "2026-07-02", Sales: 0, Bookings: 0},
			{Date: "2026-07-03", Sales: 345, Bookings: 1},
		},
		TotalSales:         1035,
		TotalBookings:      3,
		TotalPendingAmount: 690,
		TotalPaidCash:      345,
	}

	var buf bytes.Buffer
	require.NoError(t, WriteSalesReport(&buf, report))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Sales")
	require.NoError(t, err)
	require.NotEmpty(t, rows)

	assert.Equal(t, []string{"Date", "Sales", "Bookings"}, rows[0])
	assert.Equal(t, "2026-07-01", rows[1][0])
	assert.Equal(t, "690", rows[1][1])
	assert.Equal(t, "2", rows[1][2])
	assert.Equal(t, "2026-07-02", rows[2][0])

	// Totals block sits below the series after a blank line.
	got, err := f.GetCellValue("Sales", "A6")
	require.NoError(t, err)
	assert.Equal(t, "Total sales", got)
	got, err = f.GetCellValue("Sales", "B6")
	require.NoError(t, err)
	assert.Equal(t, "1035", got)
}

func TestWriteSalesReport_Nil(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, WriteSalesReport(&buf, nil))
}

func TestSalesReportFileName(t *testing.T) {
	assert.Equal(t, "sales_2026-07-01_to_2026-07-31.xlsx",
		SalesReportFileName("2026-07-01", "2026-07-31"))
}

package models

// SalesPoint is one calendar day of the dashboard series. Days with no
// activity are still present with zeros so charting clients never
// interpolate.
type SalesPoint struct {
	Date     string  `json:"date"` // YYYY-MM-DD
	Sales    float64 `json:"sales"`
	Bookings int64   `json:"bookings"`
}

// SalesReport is the dashboard aggregate for an inclusive date window.
type SalesReport struct {
	Sales              []SalesPoint `json:"sales"`
	TotalSales         float64      `json:"total_sales"`
	TotalBookings      int64        `json:"total_bookings"`
	TotalPendingAmount float64      `json:"total_pending_amount"`
	TotalPaidCash      float64      `json:"total_paid_cash"`
}

package database

import (
	"context"
	"fmt"
	"time"

	"gorental/internal/models"
)

// DailySales is one raw aggregation row; days without activity are
// absent here and gap-filled by the service layer.
type DailySales struct {
	Date     string
	Sales    float64
	Bookings int64
}

// SalesTotals aggregates reservations created in [start, end]:
// per-day sales and counts regardless of payment status, the pending
// amount, and the cash amount already collected.
func (db *DB) SalesTotals(ctx context.Context, start, end time.Time) ([]DailySales, float64, float64, error) {
	daily, err := db.dailySales(ctx, start, end)
	if err != nil {
		return nil, 0, 0, err
	}

	pendingQuery := `SELECT COALESCE(SUM(amount_total), 0) FROM bookings
                     WHERE created_at BETWEEN ? AND ? AND payment_status = ?`
	var pending float64
	err = db.QueryRowContext(ctx, pendingQuery, start.UTC(), end.UTC(), models.PaymentStatusPending).Scan(&pending)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to sum pending amount: %w", err)
	}

	paidCashQuery := `SELECT COALESCE(SUM(amount_total), 0) FROM bookings
                      WHERE created_at BETWEEN ? AND ?
                        AND payment_status = ? AND payment_method = ?`
	var paidCash float64
	err = db.QueryRowContext(ctx, paidCashQuery, start.UTC(), end.UTC(),
		models.PaymentStatusPaid, models.PaymentMethodCash).Scan(&paidCash)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to sum paid cash: %w", err)
	}

	return daily, pending, paidCash, nil
}

func (db *DB) dailySales(ctx context.Context, start, end time.Time) ([]DailySales, error) {
	// created_at is stored in UTC, so its first 10 bytes are the
	// calendar day.
	query := `SELECT substr(created_at, 1, 10) AS day,
                     COALESCE(SUM(amount_total), 0), COUNT(*)
              FROM bookings
              WHERE created_at BETWEEN ? AND ?
              GROUP BY day ORDER BY day ASC`

	rows, err := db.QueryContext(ctx, query, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate daily sales: %w", err)
	}
	defer rows.Close()

	var daily []DailySales
	for rows.Next() {
		var d DailySales
		if err := rows.Scan(&d.Date, &d.Sales, &d.Bookings); err != nil {
			return nil, err
		}
		daily = append(daily, d)
	}
	return daily, rows.Err()
}

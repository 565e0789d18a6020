package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"gorental/internal/database"
	"gorental/internal/domain"
	"gorental/internal/models"
	"gorental/internal/pricing"
)

// SalesService builds the dashboard report over an inclusive date
// window.
type SalesService struct {
	repo domain.Repository
	log  zerolog.Logger
}

func NewSalesService(repo domain.Repository, logger *zerolog.Logger) *SalesService {
	var log zerolog.Logger
	if logger != nil {
		log = logger.With().Str("component", "sales").Logger()
	}
	return &SalesService{repo: repo, log: log}
}

// Report aggregates reservations created within [start, end] and
// gap-fills the series so every calendar day in the window has exactly
// one point.
func (s *SalesService) Report(ctx context.Context, start, end time.Time) (*models.SalesReport, error) {
	if start.IsZero() || end.IsZero() || end.Before(start) {
		return nil, database.ErrInvalidDateRange
	}

	from := pricing.StartOfDay(start)
	to := pricing.EndOfDay(end)

	daily, pending, paidCash, err := s.repo.SalesTotals(ctx, from, to)
	if err != nil {
		return nil, err
	}

	byDay := make(map[string]database.DailySales, len(daily))
	for _, d := range daily {
		byDay[d.Date] = d
	}

	report := &models.SalesReport{
		TotalPendingAmount: pending,
		TotalPaidCash:      paidCash,
	}

	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		key := day.Format(models.DateOnly)
		point := models.SalesPoint{Date: key}
		if d, ok := byDay[key]; ok {
			point.Sales = d.Sales
			point.Bookings = d.Bookings
		}
		report.Sales = append(report.Sales, point)
		report.TotalSales += point.Sales
		report.TotalBookings += point.Bookings
	}

	return report, nil
}

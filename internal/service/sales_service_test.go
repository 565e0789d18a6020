package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gorental/internal/database"
	"gorental/internal/models"
)

func TestSalesReport_GapFilling(t *testing.T) {
	f := newBookingFixture(t)
	f.seedCar(t, 1, 100)
	ctx := context.Background()
	logger := zerolog.Nop()
	svc := NewSalesService(f.db, &logger)

	// Two bookings on day one, one on day three, nothing on days two and
	// four.
	dayOne := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)
	dayThree := time.Date(2026, 7, 3, 21, 0, 0, 0, time.UTC)

	for i, created := range []time.Time{dayOne, dayOne, dayThree} {
		b, err := f.svc.Create(ctx, validInput(1, futureDay(i*10+5), futureDay(i*10+6)), models.Identity{UserID: 7})
		require.NoError(t, err)
		_, err = f.db.ExecContext(ctx, `UPDATE bookings SET created_at = ? WHERE id = ?`, created, b.ID)
		require.NoError(t, err)
	}

	report, err := svc.Report(ctx,
		time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 7, 4, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	require.Len(t, report.Sales, 4, "one point per calendar day in the window")
	assert.Equal(t, "2026-07-01", report.Sales[0].Date)
	assert.Equal(t, int64(2), report.Sales[0].Bookings)
	assert.InDelta(t, 460.0, report.Sales[0].Sales, 0.001)

	assert.Equal(t, "2026-07-02", report.Sales[1].Date)
	assert.Zero(t, report.Sales[1].Bookings)
	assert.Zero(t, report.Sales[1].Sales)

	assert.Equal(t, "2026-07-03", report.Sales[2].Date)
	assert.Equal(t, int64(1), report.Sales[2].Bookings)

	assert.Equal(t, "2026-07-04", report.Sales[3].Date)
	assert.Zero(t, report.Sales[3].Bookings)

	assert.Equal(t, int64(3), report.TotalBookings)
	assert.InDelta(t, 690.0, report.TotalSales, 0.001)
	assert.InDelta(t, 690.0, report.TotalPendingAmount, 0.001)
	assert.Zero(t, report.TotalPaidCash)
}

func TestSalesReport_SingleDayWindow(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	logger := zerolog.Nop()
	svc := NewSalesService(f.db, &logger)

	day := time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)
	report, err := svc.Report(ctx, day, day)
	require.NoError(t, err)
	require.Len(t, report.Sales, 1)
	assert.Equal(t, "2026-07-15", report.Sales[0].Date)
	assert.Zero(t, report.TotalBookings)
}

func TestSalesReport_InvalidWindow(t *testing.T) {
	f := newBookingFixture(t)
	logger := zerolog.Nop()
	svc := NewSalesService(f.db, &logger)

	start := time.Date(2026, 7, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

	_, err := svc.Report(context.Background(), start, end)
	assert.ErrorIs(t, err, database.ErrInvalidDateRange)

	_, err = svc.Report(context.Background(), time.Time{}, end)
	assert.ErrorIs(t, err, database.ErrInvalidDateRange)
}

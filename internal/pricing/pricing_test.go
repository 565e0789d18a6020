package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(d int) time.Time {
	return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC)
}

func TestDaysOfRent(t *testing.T) {
	assert.Equal(t, 1, DaysOfRent(day(3), day(3)))
	assert.Equal(t, 3, DaysOfRent(day(1), day(3)))
	assert.Equal(t, 0, DaysOfRent(day(5), day(3)))

	// Time-of-day must not change the day count.
	start := time.Date(2026, 3, 1, 23, 59, 0, 0, time.UTC)
	end := time.Date(2026, 3, 3, 0, 1, 0, 0, time.UTC)
	assert.Equal(t, 3, DaysOfRent(start, end))
}

func TestQuoteScenario(t *testing.T) {
	// $100/day, 3 days, 10% coupon.
	amount := Quote(100, 3, 10)

	assert.Equal(t, 300.0, amount.Rent)
	assert.Equal(t, 30.0, amount.Discount)
	assert.Equal(t, 45.0, amount.Tax)
	assert.Equal(t, 315.0, amount.Total)
}

func TestQuoteNoDiscountDefault(t *testing.T) {
	amount := Quote(80, 2, 0)

	assert.Equal(t, 0.0, amount.Discount)
	assert.Equal(t, 160.0, amount.Rent)
	assert.Equal(t, amount.Tax+amount.Rent, amount.Total)
}

func TestQuoteIsPure(t *testing.T) {
	a := Quote(73.5, 11, 12.5)
	b := Quote(73.5, 11, 12.5)
	assert.Equal(t, a, b)

	// total = tax + rent - discount for a spread of inputs.
	for _, tc := range []struct {
		rate     float64
		days     int
		discount float64
	}{
		{50, 1, 0}, {99.99, 7, 5}, {120, 30, 100}, {1, 365, 50},
	} {
		amount := Quote(tc.rate, tc.days, tc.discount)
		assert.Equal(t, amount.Tax+amount.Rent-amount.Discount, amount.Total)
	}
}

func TestDayBounds(t *testing.T) {
	ts := time.Date(2026, 3, 5, 13, 45, 12, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), StartOfDay(ts))
	assert.True(t, EndOfDay(ts).After(ts))
	assert.Equal(t, 5, EndOfDay(ts).Day())
}

package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gorental/internal/models"
)

func seedFleetForSearch(t *testing.T, db *DB) {
	ctx := context.Background()
	cars := []*models.Car{
		{ID: 1, Name: "Toyota Corolla", Status: models.CarStatusActive, RentPerDay: 45,
			Brand: "Toyota", Category: "Sedan", Transmission: "Automatic",
			City: "Sydney", Country: "Australia", CountryCode: "AU",
			Latitude: -33.8688, Longitude: 151.2093},
		{ID: 2, Name: "Tesla Model 3", Status: models.CarStatusActive, RentPerDay: 110,
			Brand: "Tesla", Category: "Sedan", Transmission: "Automatic",
			City: "Sydney", Country: "Australia", CountryCode: "AU",
			Latitude: -33.8712, Longitude: 151.2046},
		{ID: 3, Name: "Land Rover Defender", Status: models.CarStatusActive, RentPerDay: 160,
			Brand: "Land Rover", Category: "SUV", Transmission: "Automatic",
			City: "Melbourne", Country: "Australia", CountryCode: "AU",
			Latitude: -37.8136, Longitude: 144.9631},
		{ID: 4, Name: "Mazda MX-5", Status: models.CarStatusDraft, RentPerDay: 95,
			Brand: "Mazda", Category: "Convertible", Transmission: "Manual",
			City: "Melbourne", Country: "Australia", CountryCode: "AU",
			Latitude: -37.8102, Longitude: 144.9628},
	}
	for _, c := range cars {
		require.NoError(t, db.UpsertCar(ctx, c))
	}
}

func TestUpsertCar_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	car := seedCar(t, db, 1, "Corolla", 45)

	car.RentPerDay = 55
	car.Name = "Corolla Hybrid"
	require.NoError(t, db.UpsertCar(ctx, car))

	got, err := db.GetCar(ctx, car.ID)
	require.NoError(t, err)
	assert.Equal(t, "Corolla Hybrid", got.Name)
	assert.InDelta(t, 55.0, got.RentPerDay, 0.001)

	var count int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cars`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestGetCar_NotFound(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	_, err := db.GetCar(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearchCars_AttributeFilters(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	seedFleetForSearch(t, db)
	ctx := context.Background()

	cars, total, err := db.SearchCars(ctx, models.CarFilter{Category: "Sedan", Status: models.CarStatusActive})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, cars, 2)

	cars, total, err = db.SearchCars(ctx, models.CarFilter{MaxRentPerDay: 100, Status: models.CarStatusActive})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, cars, 1)
	assert.Equal(t, int64(1), cars[0].ID)

	// Draft cars only show up when asked for explicitly.
	_, total, err = db.SearchCars(ctx, models.CarFilter{Status: models.CarStatusDraft})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestSearchCars_TextQuery(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	seedFleetForSearch(t, db)
	ctx := context.Background()

	// Numeric query matches the id exactly.
	cars, total, err := db.SearchCars(ctx, models.CarFilter{Query: "2"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, cars, 1)
	assert.Equal(t, "Tesla Model 3", cars[0].Name)

	// Name match is case-insensitive and partial.
	cars, total, err = db.SearchCars(ctx, models.CarFilter{Query: "tesla"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, cars, 1)
	assert.Equal(t, int64(2), cars[0].ID)
}

func TestSearchCars_Location(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	seedFleetForSearch(t, db)
	ctx := context.Background()

	_, total, err := db.SearchCars(ctx, models.CarFilter{
		Status:   models.CarStatusActive,
		Location: &models.LocationFilter{City: "Sydney"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	// Radius search: 10km around Sydney CBD reaches both Sydney cars and
	// neither Melbourne one.
	_, total, err = db.SearchCars(ctx, models.CarFilter{
		Status:   models.CarStatusActive,
		Location: &models.LocationFilter{Latitude: -33.8688, Longitude: 151.2093, RadiusKM: 10},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	_, total, err = db.SearchCars(ctx, models.CarFilter{
		Location: &models.LocationFilter{Country: "Australia", CountryCode: "AU"},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
}

func TestSearchCars_AvailabilityWindow(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	seedFleetForSearch(t, db)
	ctx := context.Background()

	require.NoError(t, db.CreateReservation(ctx, makeBooking(1, 1, day(3), day(5))))
	require.NoError(t, db.CreateReservation(ctx, makeBooking(2, 2, day(4), day(6))))

	cars, total, err := db.SearchCars(ctx, models.CarFilter{
		Status: models.CarStatusActive,
		Window: &models.DateWindow{Start: day(5), End: day(7)},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total, "both booked Sydney cars excluded")
	require.Len(t, cars, 1)
	assert.Equal(t, int64(3), cars[0].ID)

	// Outside the booked ranges everything is back.
	_, total, err = db.SearchCars(ctx, models.CarFilter{
		Status: models.CarStatusActive,
		Window: &models.DateWindow{Start: day(7), End: day(9)},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}

func TestSearchCars_PaginationCountsAfterExclusion(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	seedFleetForSearch(t, db)
	ctx := context.Background()

	require.NoError(t, db.CreateReservation(ctx, makeBooking(1, 1, day(3), day(5))))

	cars, total, err := db.SearchCars(ctx, models.CarFilter{
		Status:  models.CarStatusActive,
		Window:  &models.DateWindow{Start: day(3), End: day(5)},
		Page:    1,
		PerPage: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, total, "total reflects the post-exclusion set, not the page")
	assert.Len(t, cars, 1)

	cars, _, err = db.SearchCars(ctx, models.CarFilter{
		Status:  models.CarStatusActive,
		Window:  &models.DateWindow{Start: day(3), End: day(5)},
		Page:    2,
		PerPage: 1,
	})
	require.NoError(t, err)
	require.Len(t, cars, 1)
	assert.Equal(t, int64(3), cars[0].ID)
}

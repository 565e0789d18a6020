package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorental/internal/models"
)

const carColumns = `id, name, description, status, rent_per_day, brand, year,
        transmission, fuel_type, category, seats, doors,
        address, city, country, country_code, latitude, longitude,
        created_at, updated_at`

func scanCar(row rowScanner) (*models.Car, error) {
	var c models.Car
	err := row.Scan(
		&c.ID, &c.Name, &c.Description, &c.Status, &c.RentPerDay, &c.Brand, &c.Year,
		&c.Transmission, &c.FuelType, &c.Category, &c.Seats, &c.Doors,
		&c.Address, &c.City, &c.Country, &c.CountryCode, &c.Latitude, &c.Longitude,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// UpsertCar seeds from the fleet file. The catalog is owned by an
// external service; this keeps the local read model current.
func (db *DB) UpsertCar(ctx context.Context, car *models.Car) error {
	query := `INSERT INTO cars (id, name, description, status, rent_per_day, brand, year,
                  transmission, fuel_type, category, seats, doors,
                  address, city, country, country_code, latitude, longitude,
                  created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
              ON CONFLICT(id) DO UPDATE SET
                  name = excluded.name,
                  description = excluded.description,
                  status = excluded.status,
                  rent_per_day = excluded.rent_per_day,
                  brand = excluded.brand,
                  year = excluded.year,
                  transmission = excluded.transmission,
                  fuel_type = excluded.fuel_type,
                  category = excluded.category,
                  seats = excluded.seats,
                  doors = excluded.doors,
                  address = excluded.address,
                  city = excluded.city,
                  country = excluded.country,
                  country_code = excluded.country_code,
                  latitude = excluded.latitude,
                  longitude = excluded.longitude,
                  updated_at = excluded.updated_at`

	now := time.Now().UTC()
	_, err := db.ExecContext(ctx, query,
		car.ID, car.Name, car.Description, car.Status, car.RentPerDay, car.Brand, car.Year,
		car.Transmission, car.FuelType, car.Category, car.Seats, car.Doors,
		car.Address, car.City, car.Country, car.CountryCode, car.Latitude, car.Longitude,
		now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert car: %w", err)
	}
	return nil
}

func (db *DB) GetCar(ctx context.Context, id int64) (*models.Car, error) {
	query := `SELECT ` + carColumns + ` FROM cars WHERE id = ?`
	car, err := scanCar(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get car: %w", err)
	}
	return car, nil
}

// SearchCars applies the typed filters in composition order: attributes
// and text first, then location, then the date-window availability
// exclusion as an aggregate subquery. The total is counted after
// exclusion, independently of the page slice.
func (db *DB) SearchCars(ctx context.Context, f models.CarFilter) ([]*models.Car, int, error) {
	var clauses []string
	var args []any

	addEq := func(column, value string) {
		if value != "" {
			clauses = append(clauses, column+" = ?")
			args = append(args, value)
		}
	}
	addEq("category", f.Category)
	addEq("brand", f.Brand)
	addEq("transmission", f.Transmission)
	addEq("status", f.Status)

	if f.MaxRentPerDay > 0 {
		clauses = append(clauses, "rent_per_day <= ?")
		args = append(args, f.MaxRentPerDay)
	}

	if q := strings.TrimSpace(f.Query); q != "" {
		if id, err := strconv.ParseInt(q, 10, 64); err == nil {
			clauses = append(clauses, "id = ?")
			args = append(args, id)
		} else {
			clauses = append(clauses, "name LIKE ? COLLATE NOCASE")
			args = append(args, "%"+q+"%")
		}
	}

	if f.Location != nil {
		loc := f.Location
		switch {
		case loc.RadiusKM > 0:
			// Degree bounding box around the resolved point. Coarse on
			// purpose: catalog narrowing, not navigation.
			latDelta := loc.RadiusKM / 111.0
			lngDelta := latDelta * 2 // widened toward the poles rather than clipped
			clauses = append(clauses, "latitude BETWEEN ? AND ?", "longitude BETWEEN ? AND ?")
			args = append(args,
				loc.Latitude-latDelta, loc.Latitude+latDelta,
				loc.Longitude-lngDelta, loc.Longitude+lngDelta)
		case loc.City != "":
			addEq("city", loc.City)
		case loc.Country != "":
			addEq("country", loc.Country)
			addEq("country_code", loc.CountryCode)
		}
	}

	// Availability last: exclude every car with a holding reservation
	// overlapping the window, in a single aggregate pass.
	if f.Window != nil {
		clauses = append(clauses, `id NOT IN (
            SELECT DISTINCT car_id FROM bookings
            WHERE `+holdingStates+` AND `+overlapPredicate+`)`)
		args = append(args, overlapArgs(f.Window.Start, f.Window.End)...)
	}

	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}

	var total int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cars`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count cars: %w", err)
	}

	page := f.Page
	if page < 1 {
		page = 1
	}
	perPage := f.PerPage
	if perPage <= 0 {
		perPage = models.DefaultCarsPerPage
	}

	query := `SELECT ` + carColumns + ` FROM cars` + where + ` ORDER BY id ASC LIMIT ? OFFSET ?`
	rows, err := db.QueryContext(ctx, query, append(args, perPage, perPage*(page-1))...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search cars: %w", err)
	}
	defer rows.Close()

	var cars []*models.Car
	for rows.Next() {
		car, err := scanCar(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan car: %w", err)
		}
		cars = append(cars, car)
	}
	return cars, total, rows.Err()
}

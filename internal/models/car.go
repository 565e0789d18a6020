package models

import "time"

// Car is a catalog resource. The catalog is owned by an external service;
// this engine consumes it read-only and seeds it from the fleet file.
type Car struct {
	ID           int64   `json:"id" yaml:"id"`
	Name         string  `json:"name" yaml:"name"`
	Description  string  `json:"description,omitempty" yaml:"description"`
	Status       string  `json:"status" yaml:"status"` // Draft, Active
	RentPerDay   float64 `json:"rent_per_day" yaml:"rent_per_day"`
	Brand        string  `json:"brand" yaml:"brand"`
	Year         int     `json:"year,omitempty" yaml:"year"`
	Transmission string  `json:"transmission" yaml:"transmission"`
	FuelType     string  `json:"fuel_type" yaml:"fuel_type"`
	Category     string  `json:"category" yaml:"category"`
	Seats        int     `json:"seats,omitempty" yaml:"seats"`
	Doors        int     `json:"doors,omitempty" yaml:"doors"`

	Address     string  `json:"address,omitempty" yaml:"address"`
	City        string  `json:"city,omitempty" yaml:"city"`
	Country     string  `json:"country,omitempty" yaml:"country"`
	CountryCode string  `json:"country_code,omitempty" yaml:"country_code"`
	Latitude    float64 `json:"latitude,omitempty" yaml:"latitude"`
	Longitude   float64 `json:"longitude,omitempty" yaml:"longitude"`

	CreatedAt time.Time `json:"created_at" yaml:"-"`
	UpdatedAt time.Time `json:"updated_at" yaml:"-"`
}

// DateWindow is an inclusive calendar-day range.
type DateWindow struct {
	Start time.Time
	End   time.Time
}

// LocationFilter is a location already resolved by an external geocoder:
// either an administrative-area match or a point with a radius.
type LocationFilter struct {
	City        string
	Country     string
	CountryCode string
	Latitude    float64
	Longitude   float64
	RadiusKM    float64
}

// CarFilter is the typed search structure passed to the storage layer.
// Zero values mean "not filtered".
type CarFilter struct {
	Category      string
	Brand         string
	Transmission  string
	Status        string
	MaxRentPerDay float64

	// Query matches a car id exactly or the name case-insensitively.
	Query string

	Location *LocationFilter

	// Window excludes cars with any holding reservation overlapping it.
	Window *DateWindow

	Page    int
	PerPage int
}

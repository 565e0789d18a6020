package service

import (
	"context"

	"github.com/rs/zerolog"

	"gorental/internal/database"
	"gorental/internal/domain"
	"gorental/internal/models"
)

// CarService fronts the catalog: filtered, availability-aware search
// plus single-car lookup.
type CarService struct {
	repo    domain.Repository
	perPage int
	log     zerolog.Logger
}

func NewCarService(repo domain.Repository, perPage int, logger *zerolog.Logger) *CarService {
	if perPage <= 0 {
		perPage = models.DefaultCarsPerPage
	}
	var log zerolog.Logger
	if logger != nil {
		log = logger.With().Str("component", "catalog").Logger()
	}
	return &CarService{repo: repo, perPage: perPage, log: log}
}

// Search returns one page of matching cars and the total count after
// all filters, the availability window included.
func (s *CarService) Search(ctx context.Context, f models.CarFilter) ([]*models.Car, int, error) {
	if f.Window != nil {
		if f.Window.Start.IsZero() || f.Window.End.IsZero() || f.Window.End.Before(f.Window.Start) {
			return nil, 0, database.ErrInvalidDateRange
		}
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.PerPage <= 0 {
		f.PerPage = s.perPage
	}
	if f.Status == "" {
		f.Status = models.CarStatusActive
	}
	return s.repo.SearchCars(ctx, f)
}

func (s *CarService) Get(ctx context.Context, id int64) (*models.Car, error) {
	return s.repo.GetCar(ctx, id)
}

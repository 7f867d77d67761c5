package repository

import (
	"context"
	"fmt"

	"filmcrew-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CityRepository handles database operations for cities
type CityRepository struct {
	db *pgxpool.Pool
}

// NewCityRepository creates a new city repository
func NewCityRepository(db *pgxpool.Pool) *CityRepository {
	return &CityRepository{db: db}
}

// GetByID retrieves a city by ID
func (r *CityRepository) GetByID(ctx context.Context, id string) (*models.City, error) {
	query := `SELECT id, name, country FROM cities WHERE id = $1`
	var city models.City
	err := r.db.QueryRow(ctx, query, id).Scan(&city.ID, &city.Name, &city.Country)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("city not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get city: %w", err)
	}
	return &city, nil
}

// GetByIDs retrieves cities for a set of IDs in one query
func (r *CityRepository) GetByIDs(ctx context.Context, ids []string) (map[string]models.City, error) {
	cities := make(map[string]models.City, len(ids))
	if len(ids) == 0 {
		return cities, nil
	}

	query := `SELECT id, name, country FROM cities WHERE id = ANY($1)`
	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get cities: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var city models.City
		if err := rows.Scan(&city.ID, &city.Name, &city.Country); err != nil {
			return nil, fmt.Errorf("failed to scan city: %w", err)
		}
		cities[city.ID] = city
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cities: %w", err)
	}

	return cities, nil
}

// SearchByName retrieves cities whose name contains the query, case-insensitive
func (r *CityRepository) SearchByName(ctx context.Context, q string, limit int) ([]models.City, error) {
	query := `
		SELECT id, name, country
		FROM cities
		WHERE name ILIKE '%' || $1 || '%'
		ORDER BY name ASC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, q, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search cities: %w", err)
	}
	defer rows.Close()

	var cities []models.City
	for rows.Next() {
		var city models.City
		if err := rows.Scan(&city.ID, &city.Name, &city.Country); err != nil {
			return nil, fmt.Errorf("failed to scan city: %w", err)
		}
		cities = append(cities, city)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cities: %w", err)
	}

	return cities, nil
}

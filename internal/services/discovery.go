package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"filmcrew-backend/internal/models"
)

const citySearchLimit = 25

// DiscoveryService handles city search and city-scoped listings
type DiscoveryService struct {
	cityRepo CityStore
	userRepo UserStore
	jobRepo  JobStore
}

// NewDiscoveryService creates a new discovery service
func NewDiscoveryService(cityRepo CityStore, userRepo UserStore, jobRepo JobStore) *DiscoveryService {
	return &DiscoveryService{
		cityRepo: cityRepo,
		userRepo: userRepo,
		jobRepo:  jobRepo,
	}
}

// cityRank buckets a match: exact name, prefix, then plain substring.
func cityRank(name, query string) int {
	name = strings.ToLower(name)
	switch {
	case name == query:
		return 0
	case strings.HasPrefix(name, query):
		return 1
	case strings.Contains(name, query):
		return 2
	default:
		return 3
	}
}

// RankCities orders search results: exact match, then prefix, then
// substring, ties alphabetical. If selectedID appears in the results it is
// pinned first. The sort is stable, so re-ranking ranked input is a no-op.
func RankCities(cities []models.City, query, selectedID string) []models.City {
	query = strings.ToLower(strings.TrimSpace(query))

	ranked := make([]models.City, len(cities))
	copy(ranked, cities)

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if selectedID != "" {
			if (a.ID == selectedID) != (b.ID == selectedID) {
				return a.ID == selectedID
			}
		}
		ra, rb := cityRank(a.Name, query), cityRank(b.Name, query)
		if ra != rb {
			return ra < rb
		}
		return a.Name < b.Name
	})

	return ranked
}

// SearchCities finds cities by substring and returns them ranked for
// display, with the user's currently selected city pinned first when it
// matches.
func (s *DiscoveryService) SearchCities(ctx context.Context, query, selectedID string) ([]models.City, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	cities, err := s.cityRepo.SearchByName(ctx, query, citySearchLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to search cities: %w", err)
	}

	return RankCities(cities, query, selectedID), nil
}

// ListCreatives lists the public profiles of users in a city
func (s *DiscoveryService) ListCreatives(ctx context.Context, cityID string, limit, offset int) ([]models.Profile, error) {
	if _, err := s.cityRepo.GetByID(ctx, cityID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}

	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	return s.userRepo.ListByCity(ctx, cityID, limit, offset)
}

// ListOpenJobs lists the open jobs in a city
func (s *DiscoveryService) ListOpenJobs(ctx context.Context, cityID string, limit, offset int) ([]*models.Job, error) {
	if _, err := s.cityRepo.GetByID(ctx, cityID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}

	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	return s.jobRepo.ListOpenByCity(ctx, cityID, limit, offset)
}

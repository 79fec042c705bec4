package api

import (
	"context"
	"errors"
	"strings"

	"butterfliy/pkg/models"
)

// ErrMissingID is returned when a location lookup has no id
var ErrMissingID = errors.New("location id is required")

// LocationService groups the read-only location endpoints
type LocationService struct {
	client *Client
}

// List returns the locations matching filter
func (s *LocationService) List(ctx context.Context, filter models.LocationFilter) ([]models.Location, error) {
	var envelope models.Envelope[[]models.Location]
	if err := s.client.GetJSON(ctx, LocationsEndpoint, LocationQuery(filter), &envelope); err != nil {
		return nil, err
	}
	return envelope.Data, nil
}

// Get returns a single location
func (s *LocationService) Get(ctx context.Context, id string) (*models.Location, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrMissingID
	}

	var envelope models.Envelope[models.Location]
	if err := s.client.GetJSON(ctx, LocationPath(id), nil, &envelope); err != nil {
		return nil, err
	}
	return &envelope.Data, nil
}

// Search returns locations whose fields match q
func (s *LocationService) Search(ctx context.Context, q string) ([]models.Location, error) {
	var envelope models.Envelope[[]models.Location]
	if err := s.client.GetJSON(ctx, LocationSearchEndpoint, SearchQuery(q), &envelope); err != nil {
		return nil, err
	}
	return envelope.Data, nil
}

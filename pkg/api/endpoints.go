package api

import (
	"net/url"

	"butterfliy/pkg/models"
)

const (
	// LocationsEndpoint lists locations
	LocationsEndpoint = "/locations"

	// LocationSearchEndpoint performs a free-text search
	LocationSearchEndpoint = "/locations/search"
)

// LocationPath returns the path of a single location
func LocationPath(id string) string {
	return LocationsEndpoint + "/" + url.PathEscape(id)
}

// LocationQuery encodes a listing filter, skipping empty fields
func LocationQuery(filter models.LocationFilter) url.Values {
	params := url.Values{}
	if filter.Country != "" {
		params.Set("country", filter.Country)
	}
	if filter.State != "" {
		params.Set("state", filter.State)
	}
	return params
}

// SearchQuery encodes a search term
func SearchQuery(q string) url.Values {
	params := url.Values{}
	params.Set("q", q)
	return params
}

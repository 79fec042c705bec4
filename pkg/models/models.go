package models

import "time"

// Envelope is the `{ "data": ... }` wrapper every API response uses
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
}

// Location status values as returned by the API
const (
	StatusPending  = "PENDING"
	StatusApproved = "APPROVED"
	StatusRejected = "REJECTED"
)

type Location struct {
	ID          string    `json:"id" yaml:"id"`
	Country     string    `json:"country" yaml:"country"`
	State       string    `json:"state" yaml:"state"`
	Area        string    `json:"area" yaml:"area"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Images      []string  `json:"images,omitempty" yaml:"images,omitempty"`
	Status      string    `json:"status" yaml:"status"`
	CreatedAt   time.Time `json:"createdAt" yaml:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" yaml:"updated_at"`
}

// LocationFilter narrows a location listing. Empty fields are not sent.
type LocationFilter struct {
	Country string
	State   string
}

package models

import (
	"fmt"
	"time"
)

// Location is a map pin belonging to a board.
type Location struct {
	ID        int64     `json:"id"`
	Board     int64     `json:"board"`
	Name      string    `json:"name"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	CreatedBy *User     `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the id and coordinate ranges.
func (l *Location) Validate() error {
	if l.ID <= 0 {
		return fmt.Errorf("location: missing id")
	}
	return ValidateCoordinates(l.Lat, l.Lng)
}

// ValidateCoordinates checks latitude and longitude bounds.
func ValidateCoordinates(lat, lng float64) error {
	if lat < -90 || lat > 90 {
		return fmt.Errorf("latitude %v out of range [-90, 90]", lat)
	}
	if lng < -180 || lng > 180 {
		return fmt.Errorf("longitude %v out of range [-180, 180]", lng)
	}
	return nil
}

// LocationInput is the create/update payload for a location.
type LocationInput struct {
	Name *string  `json:"name,omitempty"`
	Lat  *float64 `json:"lat,omitempty"`
	Lng  *float64 `json:"lng,omitempty"`
}

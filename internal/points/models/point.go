package models

import (
	"strconv"
)

// Coordinate bounds are fixed and not configurable.
const (
	LatitudeMin  = -90.0
	LatitudeMax  = 90.0
	LongitudeMin = -180.0
	LongitudeMax = 180.0
)

// Storage field names. These are also the keys accepted in RawInput.
const (
	FieldName        = "name"
	FieldDescription = "description"
	FieldCategory    = "category"
	FieldLatitude    = "latitude"
	FieldLongitude   = "longitude"
	FieldCreatedBy   = "createdBy"
)

// CulturalPoint is a named, typed, geolocated entry in the registry.
//
// Invariants once persisted:
//   - ID is non-empty and assigned by the registry, never by the client
//   - Name and CreatedBy are non-empty
//   - Category is one of the configured Categories
//   - Latitude is within [-90, 90] and Longitude within [-180, 180]
type CulturalPoint struct {
	ID          string  `json:"id,omitempty"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	CreatedBy   string  `json:"createdBy"`
}

// Record is the flat storage representation of a point. Coordinates are kept
// as strings so every field has the same type in the backing store.
type Record map[string]string

// ToRecord renders the point for storage. The ID is not part of the record;
// it is the record's key.
func (p *CulturalPoint) ToRecord() Record {
	return Record{
		FieldName:        p.Name,
		FieldDescription: p.Description,
		FieldCategory:    p.Category,
		FieldLatitude:    formatCoordinate(p.Latitude),
		FieldLongitude:   formatCoordinate(p.Longitude),
		FieldCreatedBy:   p.CreatedBy,
	}
}

// FromRecord rebuilds a stored point. Stored data is trusted and not
// validated, but unreadable coordinates are still reported.
func FromRecord(id string, rec Record) (*CulturalPoint, error) {
	raw := make(RawInput, len(rec))
	for k, v := range rec {
		raw[k] = v
	}
	p, err := FromRawInput(raw)
	if err != nil {
		return nil, err
	}
	p.ID = id
	return p, nil
}

// OwnedBy reports whether userID created the point.
func (p *CulturalPoint) OwnedBy(userID string) bool {
	return userID != "" && p.CreatedBy == userID
}

func formatCoordinate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

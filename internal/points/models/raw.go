package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// RawInput is an untrusted, loosely typed field map as it arrives from a
// form, a JSON body or the backing store. Values may be strings, numbers or
// missing. Convert it with FromRawInput before doing anything else.
type RawInput map[string]any

// FromRawInput builds a point from raw input without validating it.
//
// Missing fields default to "" or 0 so that failures surface from Validate
// with the specific rule that was broken. Coordinates that are present but
// cannot be read as numbers fail here with ErrInvalidNumber.
func FromRawInput(raw RawInput) (*CulturalPoint, error) {
	lat, err := coerceFloat(raw[FieldLatitude])
	if err != nil {
		return nil, ErrInvalidNumber
	}
	lon, err := coerceFloat(raw[FieldLongitude])
	if err != nil {
		return nil, ErrInvalidNumber
	}
	return &CulturalPoint{
		Name:        coerceString(raw[FieldName]),
		Description: coerceString(raw[FieldDescription]),
		Category:    coerceString(raw[FieldCategory]),
		Latitude:    lat,
		Longitude:   lon,
		CreatedBy:   coerceString(raw[FieldCreatedBy]),
	}, nil
}

func coerceString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}

func coerceFloat(v any) (float64, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(n), 64)
	default:
		return 0, fmt.Errorf("unsupported number type %T", v)
	}
}

package models

import (
	"fmt"
	"math"
	"strings"

	dErrors "rotacultural/pkg/domain-errors"
)

// Validation failures. Each rule has its own error so callers can show the
// rule that was broken; match them with errors.Is.
var (
	ErrNameRequired          = dErrors.New(dErrors.CodeValidation, "name is required")
	ErrCategoryRequired      = dErrors.New(dErrors.CodeValidation, "category is required")
	ErrInvalidCategory       = dErrors.New(dErrors.CodeValidation, "invalid category")
	ErrCoordinatesNotNumbers = dErrors.New(dErrors.CodeValidation, "latitude and longitude must be numbers")
	ErrLatitudeOutOfRange    = dErrors.New(dErrors.CodeValidation, fmt.Sprintf("latitude must be between %g and %g", LatitudeMin, LatitudeMax))
	ErrLongitudeOutOfRange   = dErrors.New(dErrors.CodeValidation, fmt.Sprintf("longitude must be between %g and %g", LongitudeMin, LongitudeMax))
	ErrCreatorRequired       = dErrors.New(dErrors.CodeValidation, "creator id is required")
	ErrInvalidNumber         = dErrors.New(dErrors.CodeInvalidNumber, "latitude and longitude must be valid numbers")
)

// Validator checks points against the configured category enumeration.
type Validator struct {
	categories Categories
}

// NewValidator returns a validator for the given categories, falling back to
// DefaultCategories when none are given.
func NewValidator(categories Categories) *Validator {
	if len(categories) == 0 {
		categories = DefaultCategories
	}
	return &Validator{categories: categories}
}

// Categories returns the enumeration the validator enforces.
func (v *Validator) Categories() Categories {
	return append(Categories(nil), v.categories...)
}

// Validate applies the rules in order and stops at the first failure.
func (v *Validator) Validate(p *CulturalPoint) error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrNameRequired
	}
	if strings.TrimSpace(p.Category) == "" {
		return ErrCategoryRequired
	}
	if !v.categories.Contains(p.Category) {
		return dErrors.Wrap(ErrInvalidCategory, dErrors.CodeValidation,
			"invalid category, must be one of: "+v.categories.String())
	}
	if !isFinite(p.Latitude) || !isFinite(p.Longitude) {
		return ErrCoordinatesNotNumbers
	}
	if p.Latitude < LatitudeMin || p.Latitude > LatitudeMax {
		return ErrLatitudeOutOfRange
	}
	if p.Longitude < LongitudeMin || p.Longitude > LongitudeMax {
		return ErrLongitudeOutOfRange
	}
	if p.CreatedBy == "" {
		return ErrCreatorRequired
	}
	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

package models

import "strings"

// Categories is the configured enumeration of point types.
type Categories []string

// DefaultCategories is used when no categories are configured.
var DefaultCategories = Categories{"Museum", "Street Art", "Theater", "Fair", "Event"}

// Contains reports whether category is one of the configured values.
// Matching is exact.
func (c Categories) Contains(category string) bool {
	for _, v := range c {
		if v == category {
			return true
		}
	}
	return false
}

func (c Categories) String() string {
	return strings.Join(c, ", ")
}

package service

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// param is one named argument of a cached read.
type param struct {
	name  string
	value any
}

func p(name string, value any) param {
	return param{name: name, value: value}
}

// cacheKey derives the cache key for a read: the operation name followed by
// every parameter as name=value, sorted by name. Strings are quoted so values
// containing separators cannot collide; nil renders as <nil>.
func cacheKey(op string, params ...param) string {
	sorted := slices.Clone(params)
	slices.SortFunc(sorted, func(a, b param) int {
		return strings.Compare(a.name, b.name)
	})
	var b strings.Builder
	b.WriteString(op)
	for _, prm := range sorted {
		b.WriteByte('_')
		b.WriteString(prm.name)
		b.WriteByte('=')
		b.WriteString(renderValue(prm.value))
	}
	return b.String()
}

func renderValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "<nil>"
	case string:
		return strconv.Quote(val)
	default:
		return fmt.Sprint(val)
	}
}

// optional maps zero values to nil so "not given" renders the same way for
// every parameter type.
func optional[T comparable](v T) any {
	var zero T
	if v == zero {
		return nil
	}
	return v
}

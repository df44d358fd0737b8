// Package email normalizes account addresses and derives display names.
package email

import (
	"net/mail"
	"strings"
	"unicode"
)

// Normalize lowercases and trims an address so lookups are case-insensitive.
func Normalize(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// IsValid reports whether addr is a bare RFC 5322 address. Display-name
// forms such as "Ana <ana@example.com>" are rejected.
func IsValid(addr string) bool {
	parsed, err := mail.ParseAddress(addr)
	return err == nil && parsed.Address == addr
}

// DisplayName guesses first and last names from the local part:
// "ana.maria.silva@x" gives ("Ana", "Silva"). Missing parts become "User".
func DisplayName(addr string) (first, last string) {
	local, _, _ := strings.Cut(addr, "@")
	parts := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})
	first, last = "User", "User"
	if len(parts) > 0 {
		first = titleCase(parts[0])
	}
	if len(parts) > 1 {
		last = titleCase(parts[len(parts)-1])
	}
	return first, last
}

func titleCase(s string) string {
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

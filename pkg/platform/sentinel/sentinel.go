package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) and services translate them into coded domain errors or absent
// results.
//
//   - ErrNotFound: nothing is stored under the requested key or path
//   - ErrAlreadyUsed: a unique key is already taken
//   - ErrInvalidPath: the path is empty or has empty segments
//   - ErrUnavailable: the backend could not be reached
//
// Input validation problems never use these; see pkg/domain-errors.
var (
	ErrNotFound    = errors.New("not found")
	ErrAlreadyUsed = errors.New("already used")
	ErrInvalidPath = errors.New("invalid path")
	ErrUnavailable = errors.New("unavailable")
)

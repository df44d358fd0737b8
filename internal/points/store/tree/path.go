// Package tree implements the backing store: a hierarchical key/value
// namespace of flat field records addressed by "/"-separated paths such as
// "points/<id>".
//
// Every adapter follows the same contract:
//   - Get returns sentinel.ErrNotFound when no record is stored at the path
//   - Children returns the records directly below a path, empty when none
//   - Set replaces the record at a path; an empty record deletes it
//   - Delete removes a path and everything below it, and is idempotent
//   - Push stores a record under a freshly generated child key
package tree

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"rotacultural/pkg/platform/sentinel"
)

const separator = "/"

// Join builds a path from segments.
func Join(segments ...string) string {
	return strings.Join(segments, separator)
}

// Split validates path and returns its segments. Leading and trailing
// separators are tolerated; empty inner segments are not.
func Split(path string) ([]string, error) {
	trimmed := strings.Trim(path, separator)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty path", sentinel.ErrInvalidPath)
	}
	segments := strings.Split(trimmed, separator)
	for _, s := range segments {
		if strings.TrimSpace(s) == "" {
			return nil, fmt.Errorf("%w: %q has an empty segment", sentinel.ErrInvalidPath, path)
		}
	}
	return segments, nil
}

// parentAndKey splits a record path into its parent path and last segment.
// Records always live below a namespace, so single-segment paths are rejected.
func parentAndKey(path string) (string, string, error) {
	segments, err := Split(path)
	if err != nil {
		return "", "", err
	}
	if len(segments) < 2 {
		return "", "", fmt.Errorf("%w: %q has no parent namespace", sentinel.ErrInvalidPath, path)
	}
	last := len(segments) - 1
	return Join(segments[:last]...), segments[last], nil
}

func canonical(path string) (string, error) {
	segments, err := Split(path)
	if err != nil {
		return "", err
	}
	return Join(segments...), nil
}

func newPushKey() string {
	return uuid.NewString()
}

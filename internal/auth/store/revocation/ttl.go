package revocation

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidTTL is returned when a token is revoked with a non-positive TTL.
var ErrInvalidTTL = errors.New("invalid ttl")

func validateTTL(ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive, got %s: %w", ttl, ErrInvalidTTL)
	}
	return nil
}

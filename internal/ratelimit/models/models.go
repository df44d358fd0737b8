package models

import "time"

// EndpointClass groups endpoints that share a request budget.
type EndpointClass string

const (
	// ClassAuth covers registration and login.
	ClassAuth EndpointClass = "auth"
	// ClassWrite covers point submission and deletion.
	ClassWrite EndpointClass = "write"
)

// IsValid reports whether the class is a known budget.
func (c EndpointClass) IsValid() bool {
	return c == ClassAuth || c == ClassWrite
}

// Limit is the number of requests allowed per sliding window.
type Limit struct {
	Requests int
	Window   time.Duration
}

// RateLimitResult is the outcome of a single check.
type RateLimitResult struct {
	Allowed    bool      `json:"allowed"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter int       `json:"retry_after,omitempty"` // seconds, only set when not allowed
}

// RateLimitExceededResponse is returned with 429.
type RateLimitExceededResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after"`
}

// BucketKey builds the per-client key for a class.
func BucketKey(class EndpointClass, ip string) string {
	return "rl:" + string(class) + ":" + ip
}

// RetryAfterSeconds rounds the wait up to whole seconds, never below one.
func RetryAfterSeconds(now, resetAt time.Time) int {
	wait := resetAt.Sub(now)
	secs := int((wait + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}

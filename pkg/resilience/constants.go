package resilience

import "time"

// Circuit breaker defaults, tuned for a single data-source read per request
const (
	DefaultMaxRequests           uint32        = 3
	DefaultInterval              time.Duration = 60 * time.Second
	DefaultTimeout               time.Duration = 15 * time.Second
	DefaultFailureThreshold      uint32        = 5
	DefaultFailureRatioThreshold float64       = 0.5
	DefaultMinRequestsToTrip     uint32        = 10
)

// Retry defaults
const (
	DefaultRetryMaxAttempts   int           = 2
	DefaultRetryInitialDelay  time.Duration = 50 * time.Millisecond
	DefaultRetryMaxDelay      time.Duration = time.Second
	DefaultRetryBackoffFactor float64       = 2.0
)

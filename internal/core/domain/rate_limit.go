// Package domain concentra entidades e estruturas centrais do rate limiter.
package domain

import "time"

// Policy defines one rate-limiting policy: how many requests an identifier
// may issue inside a sliding window. One Policy is created per distinct
// concern (e.g. "api", "email", "workflow") and held for the process lifetime.
type Policy struct {
	Window      time.Duration
	MaxRequests int
	KeyPrefix   string
}

// Decision is the outcome of a single rate-limit check. It is never mutated
// after creation; store failures surface through Err, never as a Go error.
type Decision struct {
	Allowed   bool
	Remaining int
	// ResetTime approximates when the window fully rolls over (now + window),
	// not the expiry of any individual marker.
	ResetTime time.Time
	// Err carries a description of a store failure that caused a fail-open
	// admit. Empty on a normal decision.
	Err string
}

// CompositeResult aggregates an ordered sequence of named checks.
// Results holds only the checks that were actually evaluated, keyed by name.
type CompositeResult struct {
	Allowed     bool
	FailedCheck string
	Results     map[string]Decision
}

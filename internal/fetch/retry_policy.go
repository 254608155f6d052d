package fetch

import "time"

// FixedDelayPolicy retries a bounded number of times with a constant
// pause between attempts. There is no backoff growth; feed endpoints
// that are briefly behind publish on their own cadence, not ours.
type FixedDelayPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// NewFixedDelayPolicy builds the policy used for feed sources.
func NewFixedDelayPolicy() FixedDelayPolicy {
	return FixedDelayPolicy{
		MaxAttempts: 10,
		Delay:       60 * time.Second,
	}
}

// ShouldRetry reports whether another attempt is allowed after the
// given number of failed attempts.
func (p FixedDelayPolicy) ShouldRetry(attempt int) bool {
	return attempt < p.MaxAttempts
}

// Backoff returns the wait before the next attempt.
func (p FixedDelayPolicy) Backoff(int) time.Duration {
	return p.Delay
}

package clock

import "time"

// Clock abstracts the wall clock so session expiry and admission windows
// can be driven deterministically in tests
type Clock interface {
	Now() time.Time
}

// RealClock reads the system clock
type RealClock struct{}

// New creates a RealClock
func New() *RealClock {
	return &RealClock{}
}

// Now returns the current wall-clock time
func (c *RealClock) Now() time.Time {
	return time.Now()
}

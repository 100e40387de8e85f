// Package clock abstracts time for components that schedule work.
package clock

import "time"

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// System reads the real wall clock in UTC.
type System struct{}

// NewSystem creates a System clock.
func NewSystem() System {
	return System{}
}

// Now returns the current UTC time.
func (System) Now() time.Time {
	return time.Now().UTC()
}

// Package time has the clock seam shared by services and stores
package time

import "time"

// Clock yields the current instant
type Clock = func() time.Time

// UTC is the production clock
func UTC() time.Time { return time.Now().UTC() }

// Or returns c, falling back to UTC when c is nil
func Or(c Clock) Clock {
	if c == nil {
		return UTC
	}
	return c
}

// Fixed returns a clock frozen at t
func Fixed(t time.Time) Clock { return func() time.Time { return t } }

// Ptr returns &t, or nil for the zero time
func Ptr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// Package system provides the wall clock used to stamp report files.
package system

import "time"

// Clock implements asn.Clock using time.Now, truncated to whole seconds so
// that logged timestamps match the report file names.
type Clock struct{}

// New creates a new Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current UTC time at second resolution.
func (Clock) Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

// Package system provides the wall clock used for timestamp records.
package system

import "time"

// Clock implements crawler.Clock using time.Now in the process's local zone,
// so timestamp records match the device operator's wall clock.
type Clock struct{}

// New creates a new Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current local time truncated to whole seconds.
func (Clock) Now() time.Time {
	return time.Now().Local().Truncate(time.Second)
}

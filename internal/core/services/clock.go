package services

import "time"

// SystemClock reads the wall clock in a fixed location
type SystemClock struct {
	Location *time.Location
}

// NewSystemClock creates a clock for the named IANA zone, falling back to UTC
func NewSystemClock(timezone string) *SystemClock {
	loc, err := time.LoadLocation(timezone)
	if err != nil || timezone == "" {
		loc = time.UTC
	}
	return &SystemClock{Location: loc}
}

// Now returns the current time in the clock's location
func (c *SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now()
	}
	return time.Now().In(c.Location)
}

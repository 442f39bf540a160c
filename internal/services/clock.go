package services

import (
	"time"

	"financas/internal/core"
)

// Clock supplies "today" in the household's timezone.
type Clock struct {
	Now      func() time.Time
	Location *time.Location
}

// SystemClock reads the wall clock in loc.
func SystemClock(loc *time.Location) Clock {
	return Clock{Now: time.Now, Location: loc}
}

// FixedClock always reports t; tests use it.
func FixedClock(t time.Time) Clock {
	return Clock{Now: func() time.Time { return t }, Location: t.Location()}
}

// Today returns the current calendar day in the clock's location.
func (c Clock) Today() core.Date {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	return core.DateOf(now().In(loc))
}

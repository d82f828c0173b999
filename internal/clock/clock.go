// Package clock supplies the current time to retrieve_current_datetime.
package clock

import "time"

// Layout is ISO-8601 local time with microseconds and no zone.
const Layout = "2006-01-02T15:04:05.000000"

type Clock interface {
	Now() time.Time
}

// System reads the wall clock.
type System struct{}

func (System) Now() time.Time { return time.Now() }

// Fixed always returns the same instant.
type Fixed time.Time

func (f Fixed) Now() time.Time { return time.Time(f) }

// Format renders t in local time using Layout.
func Format(t time.Time) string {
	return t.Local().Format(Layout)
}

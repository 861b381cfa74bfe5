package sim

import "time"

// WallTimeInSec is a wall-clock instant, in seconds since the Unix epoch.
type WallTimeInSec float64

// FromTime converts a time.Time to WallTimeInSec.
func FromTime(t time.Time) WallTimeInSec {
	return WallTimeInSec(float64(t.UnixNano()) / 1e9)
}

// Seconds converts a time.Duration to WallTimeInSec.
func Seconds(d time.Duration) WallTimeInSec {
	return WallTimeInSec(d.Seconds())
}

// TimeTeller can be used to get the current time.
type TimeTeller interface {
	Now() WallTimeInSec
}

// WallClock is a TimeTeller that reads the system clock.
type WallClock struct{}

// Now returns the current wall time.
func (WallClock) Now() WallTimeInSec {
	return FromTime(time.Now())
}

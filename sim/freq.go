package sim

import (
	"log"
	"math"
)

// Freq defines the type of frequency. A process with a Freq of 10 Hz may act
// at most ten times per second of wall time.
type Freq float64

// Hz is the unit of frequency.
const Hz Freq = 1

// Period returns the time between two consecutive ticks
func (f Freq) Period() WallTimeInSec {
	if f <= 0 || math.IsNaN(float64(f)) {
		log.Panic("frequency must be positive")
	}

	return WallTimeInSec(1.0 / f)
}

// Elapsed reports whether strictly more than one period separates since and
// now.
//
//	since          now
//	  |-------------|---->
//	  <- Period() ->  true only when now lies beyond the period
func (f Freq) Elapsed(since, now WallTimeInSec) bool {
	if math.IsNaN(float64(since)) || math.IsNaN(float64(now)) {
		log.Panic("invalid time")
	}

	return now-since > f.Period()
}

// Cycle converts a duration to the number of whole periods it spans.
func (f Freq) Cycle(d WallTimeInSec) uint64 {
	if d <= 0 {
		return 0
	}

	return uint64(math.Floor(float64(d) * float64(f)))
}

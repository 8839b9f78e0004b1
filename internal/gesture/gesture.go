// Package gesture builds the randomized pointer activity used to make the
// reader session look like a person turning pages.
package gesture

import (
	"math/rand/v2"
	"time"
)

// Kind is the type of a pointer event.
type Kind int

const (
	Press Kind = iota
	Release
)

func (k Kind) String() string {
	switch k {
	case Press:
		return "press"
	case Release:
		return "release"
	default:
		return "unknown"
	}
}

// Point is a viewport coordinate in CSS pixels.
type Point struct {
	X int
	Y int
}

// Event is a single pointer event at a point.
type Event struct {
	Kind Kind
	At   Point
}

// Gesture is a press, a hold, and a release near the press point.
type Gesture struct {
	Press   Event
	Hold    time.Duration
	Release Event
}

// Bounds limits a gesture. Coordinates fall in [RegionMin, RegionMax] on both
// axes, the hold lasts between HoldMin and HoldMax and the release lands
// within Jitter pixels of the press on each axis.
type Bounds struct {
	RegionMin int
	RegionMax int
	Jitter    int
	HoldMin   time.Duration
	HoldMax   time.Duration
}

// RandomPoint returns a point with both coordinates uniform in [lo, hi].
func RandomPoint(r *rand.Rand, lo, hi int) Point {
	return Point{X: between(r, lo, hi), Y: between(r, lo, hi)}
}

// Jittered returns a gesture pressing at press, holding for a random duration
// in [holdMin, holdMax] and releasing at a point at most jitter pixels away on
// each axis.
func Jittered(r *rand.Rand, press Point, holdMin, holdMax time.Duration, jitter int) Gesture {
	release := Point{
		X: between(r, press.X-jitter, press.X+jitter),
		Y: between(r, press.Y-jitter, press.Y+jitter),
	}
	return Gesture{
		Press:   Event{Kind: Press, At: press},
		Hold:    Between(r, holdMin, holdMax),
		Release: Event{Kind: Release, At: release},
	}
}

// Random draws a press point and builds a jittered gesture within b.
func Random(r *rand.Rand, b Bounds) Gesture {
	return Jittered(r, RandomPoint(r, b.RegionMin, b.RegionMax), b.HoldMin, b.HoldMax, b.Jitter)
}

// Between returns a duration uniform in [lo, hi].
func Between(r *rand.Rand, lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(r.Int64N(int64(hi-lo)+1))
}

func between(r *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + r.IntN(hi-lo+1)
}

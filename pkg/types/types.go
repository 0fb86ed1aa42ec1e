package types

import "time"

// GridInterval is the spacing of the Kp measurement grid. Kp is recorded
// once per 3-hour interval, labelled by the interval start.
const GridInterval = 3 * time.Hour

// Sample pairs a grid-aligned UTC instant with the Kp value recorded for
// the 3-hour interval starting at that instant.
type Sample struct {
	Time time.Time
	Kp   float64
}

// GridFloor snaps an instant down to the start of its enclosing 3-hour
// interval: convert to UTC, zero out minutes and below, then drop back to
// the previous hour that is a multiple of three.
func GridFloor(t time.Time) time.Time {
	t = t.UTC().Truncate(time.Hour)
	return t.Add(-time.Duration(t.Hour()%3) * time.Hour)
}

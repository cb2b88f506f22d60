package engine

import "time"

// Clock supplies wall-clock time to the engine.
//
// The engine never reads time.Now directly, so tests and scenario runs can
// drive deadlines deterministically (see testutil.FakeClock). Times are
// truncated to whole seconds before use, matching chain timestamps.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the host clock.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

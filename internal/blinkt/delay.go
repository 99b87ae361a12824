package blinkt

import "time"

// Below this the scheduler cannot be trusted to wake us in time, so we spin instead.
const spinThreshold = 50 * time.Microsecond

// delay blocks the calling goroutine for at least d.
func delay(d time.Duration) {
	if d <= 0 {
		return
	}
	if d >= spinThreshold {
		time.Sleep(d)
		return
	}
	start := time.Now()
	for time.Since(start) < d {
	}
}

package collab

import "time"

// CameraBroadcastInterval is the minimum spacing between camera pose
// messages sent to collaborators. The local map sync runs every frame;
// the collaboration channel does not need more than ~10 updates per
// second to follow smoothly.
const CameraBroadcastInterval = 100 * time.Millisecond

// Throttle gates a repeating broadcast to a minimum interval. Not
// concurrency-safe; owned by the frame loop.
type Throttle struct {
	interval time.Duration
	last     time.Time
}

// NewThrottle creates a throttle with the given minimum interval.
func NewThrottle(interval time.Duration) *Throttle {
	return &Throttle{interval: interval}
}

// Allow reports whether a broadcast may go out at now, and records it
// if so.
func (t *Throttle) Allow(now time.Time) bool {
	if !t.last.IsZero() && now.Sub(t.last) < t.interval {
		return false
	}
	t.last = now
	return true
}

// Reset clears the throttle so the next Allow always passes.
func (t *Throttle) Reset() {
	t.last = time.Time{}
}

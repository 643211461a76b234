// Package frame drives a session's per-frame systems in a fixed order.
// Camera movement must resolve before the map sync reads the pose, and
// the map sync before the collaboration broadcast, so ordering is part
// of the contract rather than an accident of registration.
package frame

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/sitescope/sitescope/internal/logger"
)

// DefaultInterval targets 60 simulation steps per second.
const DefaultInterval = 16 * time.Millisecond

// System is one per-frame unit of work.
type System struct {
	Name string
	Fn   func(dt time.Duration)
}

// Scheduler steps registered systems at a fixed cadence. Systems run
// sequentially in registration order on the scheduler's goroutine; a
// panicking system is contained and logged, never allowed to kill the
// frame loop.
type Scheduler struct {
	log      *logger.Logger
	interval time.Duration
	systems  []System

	// slowThreshold triggers a warning when a single system eats most of
	// the frame budget.
	slowThreshold time.Duration

	lastDurations map[string]time.Duration
	frames        uint64
}

// NewScheduler creates a scheduler stepping at the given interval.
func NewScheduler(interval time.Duration, log *logger.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		log:           log,
		interval:      interval,
		slowThreshold: interval / 2,
		lastDurations: make(map[string]time.Duration),
	}
}

// Register appends a system. Registration order is execution order.
func (s *Scheduler) Register(name string, fn func(dt time.Duration)) {
	s.systems = append(s.systems, System{Name: name, Fn: fn})
}

// Run steps the loop until the context is canceled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Step(now.Sub(last))
			last = now
		}
	}
}

// Step runs every system once with the given frame delta.
func (s *Scheduler) Step(dt time.Duration) {
	s.frames++
	for _, sys := range s.systems {
		start := time.Now()
		s.runSystem(sys, dt)
		elapsed := time.Since(start)
		s.lastDurations[sys.Name] = elapsed

		if elapsed > s.slowThreshold {
			s.log.Warn("slow frame system", map[string]interface{}{
				"system":      sys.Name,
				"elapsed_ms":  float64(elapsed) / float64(time.Millisecond),
				"budget_ms":   float64(s.interval) / float64(time.Millisecond),
				"frame_count": s.frames,
			})
		}
	}
}

// Frames returns the number of steps taken.
func (s *Scheduler) Frames() uint64 { return s.frames }

// LastDuration returns the most recent execution time of a system.
func (s *Scheduler) LastDuration(name string) (time.Duration, bool) {
	d, ok := s.lastDurations[name]
	return d, ok
}

func (s *Scheduler) runSystem(sys System, dt time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("frame system panicked", fmt.Errorf("%v", r), map[string]interface{}{
				"system": sys.Name,
				"stack":  string(debug.Stack()),
			})
		}
	}()
	sys.Fn(dt)
}

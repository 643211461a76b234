package scene

import (
	"math"
	"time"
)

// Phase reveal animation constants. Buildings enter the scene growing
// from a near-zero scale so a phase change reads as construction rather
// than a pop.
const (
	PhaseAnimationDuration = 600 * time.Millisecond
	phaseHiddenScale       = 0.01
)

// Appearance is one building's render state for the active phase.
type Appearance struct {
	Visible bool    `json:"visible"`
	Scale   float64 `json:"scale"`
	Opacity float64 `json:"opacity"`
}

type phaseState struct {
	phase     int
	visible   bool
	animating bool
	elapsed   time.Duration
}

// PhaseAnimator owns construction-phase visibility. A building is
// visible when its phase is at or below the active phase; newly
// revealed buildings animate scale and opacity up, and the animation
// only ever moves forward.
type PhaseAnimator struct {
	active int
	states map[string]*phaseState
}

// NewPhaseAnimator creates an animator with phase 0 active.
func NewPhaseAnimator() *PhaseAnimator {
	return &PhaseAnimator{states: make(map[string]*phaseState)}
}

// Track registers a building and its construction phase. Buildings in
// an already-active phase appear immediately, without the reveal
// animation.
func (a *PhaseAnimator) Track(buildingID string, phase int) {
	a.states[buildingID] = &phaseState{
		phase:   phase,
		visible: phase <= a.active,
		elapsed: PhaseAnimationDuration,
	}
}

// Untrack removes a building.
func (a *PhaseAnimator) Untrack(buildingID string) {
	delete(a.states, buildingID)
}

// ActivePhase returns the currently selected phase.
func (a *PhaseAnimator) ActivePhase() int { return a.active }

// SetActivePhase selects the visible phase. Buildings entering
// visibility start their reveal animation; buildings leaving visibility
// hide immediately so a phase rollback never shows half-built
// geometry.
func (a *PhaseAnimator) SetActivePhase(phase int) {
	if phase < 0 {
		phase = 0
	}
	a.active = phase

	for _, st := range a.states {
		show := st.phase <= phase
		switch {
		case show && !st.visible:
			st.visible = true
			st.animating = true
			st.elapsed = 0
		case !show && st.visible:
			st.visible = false
			st.animating = false
		}
	}
}

// Update advances all running reveal animations by dt.
func (a *PhaseAnimator) Update(dt time.Duration) {
	for _, st := range a.states {
		if !st.animating {
			continue
		}
		st.elapsed += dt
		if st.elapsed >= PhaseAnimationDuration {
			st.elapsed = PhaseAnimationDuration
			st.animating = false
		}
	}
}

// Appearance returns the building's current render state. Unknown
// buildings are reported hidden.
func (a *PhaseAnimator) Appearance(buildingID string) Appearance {
	st, ok := a.states[buildingID]
	if !ok || !st.visible {
		return Appearance{}
	}

	t := float64(st.elapsed) / float64(PhaseAnimationDuration)
	e := easeOutCubic(math.Min(t, 1))
	return Appearance{
		Visible: true,
		Scale:   phaseHiddenScale + (1-phaseHiddenScale)*e,
		Opacity: e,
	}
}

// Animating reports whether any reveal animation is still running.
func (a *PhaseAnimator) Animating() bool {
	for _, st := range a.states {
		if st.animating {
			return true
		}
	}
	return false
}

func easeOutCubic(t float64) float64 {
	u := 1 - t
	return 1 - u*u*u
}

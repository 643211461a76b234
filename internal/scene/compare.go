package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/sitescope/sitescope/internal/camera"
)

// Compare-mode divider clamps. The divider never reaches the viewport
// edges, so both sides stay visible while it is dragged.
const (
	MinDivider = 0.05
	MaxDivider = 0.95
)

// Compare is the side-by-side phase comparison state: the viewport is
// split at a vertical divider, each side rendering the scene at its own
// construction phase.
type Compare struct {
	enabled    bool
	divider    float64
	leftPhase  int
	rightPhase int
}

// NewCompare creates a disabled comparison with a centered divider.
func NewCompare() *Compare {
	return &Compare{divider: 0.5}
}

// Enabled reports whether compare mode is active.
func (c *Compare) Enabled() bool { return c.enabled }

// Enable activates compare mode with the given phases on each side.
func (c *Compare) Enable(leftPhase, rightPhase int) {
	c.enabled = true
	c.leftPhase = leftPhase
	c.rightPhase = rightPhase
}

// Disable deactivates compare mode. The divider position is kept so
// re-enabling resumes where the user left it.
func (c *Compare) Disable() {
	c.enabled = false
}

// Divider returns the divider's normalized horizontal position.
func (c *Compare) Divider() float64 { return c.divider }

// SetDivider moves the divider, clamped away from the viewport edges.
func (c *Compare) SetDivider(x float64) {
	if x < MinDivider {
		x = MinDivider
	}
	if x > MaxDivider {
		x = MaxDivider
	}
	c.divider = x
}

// Phases returns the left and right phases.
func (c *Compare) Phases() (left, right int) {
	return c.leftPhase, c.rightPhase
}

// PhaseAt returns the phase rendered at a normalized viewport X
// coordinate, for hit-testing against the correct side's scene.
func (c *Compare) PhaseAt(x float64) int {
	if x < c.divider {
		return c.leftPhase
	}
	return c.rightPhase
}

// ScreenFraction projects a scene point through the camera onto the
// viewport and returns its normalized horizontal position, clamped to
// [0, 1]. ok is false for points behind the camera.
func ScreenFraction(pose camera.Pose, fovYDegrees, aspect float64, p mgl64.Vec3) (float64, bool) {
	forward := pose.Target.Sub(pose.Position)
	if forward.Len() < 1e-9 {
		return 0, false
	}
	forward = forward.Normalize()

	up := mgl64.Vec3{0, 1, 0}
	if math.Abs(forward.Y()) > 0.999 {
		// Looking straight down or up: pick a stable screen-right.
		up = mgl64.Vec3{0, 0, -1}
	}
	right := forward.Cross(up)
	if right.Len() < 1e-9 {
		return 0, false
	}
	right = right.Normalize()

	v := p.Sub(pose.Position)
	depth := v.Dot(forward)
	if depth < 1e-9 {
		return 0, false
	}

	tanHalfX := math.Tan(fovYDegrees*math.Pi/360) * aspect
	ndcX := v.Dot(right) / (depth * tanHalfX)
	frac := (ndcX + 1) / 2
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	return frac, true
}

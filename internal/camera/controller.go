// Package camera implements the three-mode navigation state machine for
// the 3D scene: orbit, first-person walk, and free flight. Exactly one
// mode is active at a time; switching modes tears the previous mode's
// input state down completely before the next is installed.
package camera

import (
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// Mode identifies the active navigation mode. The controller is a tagged
// union over these, never a set of independent toggles.
type Mode string

const (
	ModeOrbit Mode = "orbit"
	ModeWalk  Mode = "firstPerson"
	ModeFly   Mode = "flyThrough"
)

// Navigation tuning constants shared by all modes.
const (
	// TransitionDuration is the fixed length of an animated preset jump.
	TransitionDuration = 500 * time.Millisecond

	// WalkEyeHeight locks the first-person camera to a pedestrian eye
	// level above the ground plane.
	WalkEyeHeight = 1.7

	// CollisionClearance is how far ahead the walk/fly raycast probes;
	// movement into a hit is blocked outright, not slowed.
	CollisionClearance = 1.5

	// FlyMinAltitude keeps free flight above the ground plane.
	FlyMinAltitude = 0.5

	// PitchLimit keeps mouse-look away from the poles to avoid gimbal
	// flip.
	PitchLimit = 85.0 * math.Pi / 180

	MinMoveSpeed = 0.25
	MaxMoveSpeed = 3.0

	baseMoveSpeed = 12.0 // meters per second at 1x
	lookSpeed     = 0.0025
	orbitSpeed    = 0.005
	panSpeed      = 0.05
	zoomSpeed     = 1.1
	minOrbitDist  = 2.0
	maxOrbitDist  = 2000.0
)

// Pose is a camera position plus the point it looks at.
type Pose struct {
	Position mgl64.Vec3 `json:"position"`
	Target   mgl64.Vec3 `json:"target"`
}

// Input is the per-frame user input snapshot consumed by Update.
type Input struct {
	Forward, Back, Left, Right bool
	MouseDX, MouseDY           float64
}

// Collider answers ray queries against the visible scene, excluding the
// ground plane. The walk and fly modes use it for discrete collision.
type Collider interface {
	// Raycast returns whether a visible mesh lies along the ray within
	// maxDistance, and how far away the nearest hit is.
	Raycast(origin, dir mgl64.Vec3, maxDistance float64) (hit bool, distance float64)
}

// transition is an in-flight eased preset jump. While active it pre-empts
// WASD input.
type transition struct {
	from, to Pose
	elapsed  time.Duration
}

// Controller is the camera state machine. It is driven once per frame by
// the scheduler and is not safe for concurrent use; all access goes
// through the owning session's frame goroutine.
type Controller struct {
	mode Mode
	pose Pose

	// Walk/fly orientation. Yaw 0 looks down -Z (north), pitch positive
	// looks up.
	yaw, pitch float64

	moveSpeed     float64
	pointerLocked bool

	trans    *transition
	collider Collider
	presets  map[string]Pose
}

// NewController creates an orbit-mode controller at the given starting
// pose.
func NewController(start Pose, collider Collider) *Controller {
	return &Controller{
		mode:      ModeOrbit,
		pose:      start,
		moveSpeed: 1.0,
		collider:  collider,
		presets:   make(map[string]Pose),
	}
}

// SetCollider swaps the collision source after a scene rebuild.
func (c *Controller) SetCollider(collider Collider) { c.collider = collider }

// Mode returns the active navigation mode.
func (c *Controller) Mode() Mode { return c.mode }

// Pose returns the current camera pose.
func (c *Controller) Pose() Pose { return c.pose }

// SetPose jumps the camera to an externally supplied pose, cancelling
// any in-flight transition. Used when mirroring a collaborator's view.
func (c *Controller) SetPose(pose Pose) {
	c.trans = nil
	c.pose = pose
	if c.mode == ModeWalk || c.mode == ModeFly {
		c.syncAnglesFromPose()
	}
}

// PointerLocked reports whether mouse-look input is currently captured.
func (c *Controller) PointerLocked() bool { return c.pointerLocked }

// Transitioning reports whether an animated preset jump is in flight.
func (c *Controller) Transitioning() bool { return c.trans != nil }

// SetMode switches the navigation mode. The previous mode's pending
// transition and pointer lock are fully torn down first; a no-op when the
// mode is already active.
func (c *Controller) SetMode(mode Mode) {
	if mode == c.mode {
		return
	}

	c.trans = nil
	c.pointerLocked = false
	c.mode = mode

	switch mode {
	case ModeWalk:
		c.pose.Position[1] = WalkEyeHeight
		c.syncAnglesFromPose()
	case ModeFly:
		if c.pose.Position.Y() < FlyMinAltitude {
			c.pose.Position[1] = FlyMinAltitude
		}
		c.syncAnglesFromPose()
	case ModeOrbit:
		// Keep the current view; orbit target stays where the walk/fly
		// camera was looking.
		c.pose.Target = c.pose.Position.Add(c.lookDir().Mul(20))
	}
}

// SetMoveSpeed sets the shared movement multiplier, clamped to the
// user-adjustable range.
func (c *Controller) SetMoveSpeed(speed float64) {
	c.moveSpeed = math.Max(MinMoveSpeed, math.Min(MaxMoveSpeed, speed))
}

// MoveSpeed returns the shared movement multiplier.
func (c *Controller) MoveSpeed() float64 { return c.moveSpeed }

// AcquirePointerLock captures mouse-look. The browser only grants pointer
// lock on an explicit user click, so this is called from the click
// command, never retried automatically.
func (c *Controller) AcquirePointerLock() {
	if c.mode == ModeWalk || c.mode == ModeFly {
		c.pointerLocked = true
	}
}

// ReleasePointerLock drops mouse-look capture; look input is silently
// suspended until the next click re-acquires it.
func (c *Controller) ReleasePointerLock() {
	c.pointerLocked = false
}

// RegisterTarget stores a named camera target that FlyToTarget can jump
// to.
func (c *Controller) RegisterTarget(name string, pose Pose) {
	c.presets[name] = pose
}

// FlyToTarget starts an eased transition to a named target. Unknown names
// are ignored. Only meaningful in orbit mode.
func (c *Controller) FlyToTarget(name string) {
	pose, ok := c.presets[name]
	if !ok || c.mode != ModeOrbit {
		return
	}
	c.trans = &transition{from: c.pose, to: pose}
}

// FlyToPreset starts an eased transition to one of the built-in framing
// presets, computed for a site centered at center with the given radius.
func (c *Controller) FlyToPreset(preset Preset, center mgl64.Vec3, radius float64) {
	if c.mode != ModeOrbit {
		return
	}
	c.trans = &transition{from: c.pose, to: PresetPose(preset, center, radius)}
}

// Orbit rotates the camera around its target by the given mouse deltas.
func (c *Controller) Orbit(dx, dy float64) {
	if c.mode != ModeOrbit || c.trans != nil {
		return
	}

	offset := c.pose.Position.Sub(c.pose.Target)
	dist := offset.Len()
	if dist < 1e-9 {
		return
	}

	yaw := math.Atan2(offset.X(), offset.Z())
	pitch := math.Asin(clamp(offset.Y()/dist, -1, 1))

	yaw -= dx * orbitSpeed
	pitch = clamp(pitch+dy*orbitSpeed, -PitchLimit, PitchLimit)

	c.pose.Position = c.pose.Target.Add(mgl64.Vec3{
		dist * math.Cos(pitch) * math.Sin(yaw),
		dist * math.Sin(pitch),
		dist * math.Cos(pitch) * math.Cos(yaw),
	})
}

// Pan translates both the camera and its target along the view plane.
func (c *Controller) Pan(dx, dy float64) {
	if c.mode != ModeOrbit || c.trans != nil {
		return
	}

	forward := c.lookDir()
	right := forward.Cross(mgl64.Vec3{0, 1, 0})
	if right.Len() < 1e-9 {
		return
	}
	right = right.Normalize()
	up := right.Cross(forward)

	delta := right.Mul(-dx * panSpeed).Add(up.Mul(dy * panSpeed))
	c.pose.Position = c.pose.Position.Add(delta)
	c.pose.Target = c.pose.Target.Add(delta)
}

// Zoom moves the camera toward (positive steps) or away from its target.
func (c *Controller) Zoom(steps float64) {
	if c.mode != ModeOrbit || c.trans != nil {
		return
	}

	offset := c.pose.Position.Sub(c.pose.Target)
	dist := clamp(offset.Len()*math.Pow(zoomSpeed, -steps), minOrbitDist, maxOrbitDist)
	c.pose.Position = c.pose.Target.Add(offset.Normalize().Mul(dist))
}

// Look applies mouse-look deltas in walk/fly mode. Ignored without
// pointer lock.
func (c *Controller) Look(dx, dy float64) {
	if c.mode == ModeOrbit || !c.pointerLocked {
		return
	}

	c.yaw -= dx * lookSpeed
	c.pitch = clamp(c.pitch-dy*lookSpeed, -PitchLimit, PitchLimit)
	c.updatePoseFromAngles()
}

// Update advances the camera one frame: an in-flight transition if one is
// active, otherwise movement from the input snapshot.
func (c *Controller) Update(dt time.Duration, in Input) {
	if c.trans != nil {
		c.advanceTransition(dt)
		return
	}

	switch c.mode {
	case ModeOrbit:
		c.moveOrbit(dt, in)
	case ModeWalk:
		c.moveWalk(dt, in)
	case ModeFly:
		c.moveFly(dt, in)
	}
}

// advanceTransition steps the eased preset jump, interpolating position
// and target simultaneously with ease-out-cubic.
func (c *Controller) advanceTransition(dt time.Duration) {
	c.trans.elapsed += dt
	t := float64(c.trans.elapsed) / float64(TransitionDuration)
	if t >= 1 {
		c.pose = c.trans.to
		c.trans = nil
		c.syncAnglesFromPose()
		return
	}

	e := easeOutCubic(t)
	c.pose.Position = lerpVec(c.trans.from.Position, c.trans.to.Position, e)
	c.pose.Target = lerpVec(c.trans.from.Target, c.trans.to.Target, e)
}

// moveOrbit applies WASD ground-plane translation to both camera and
// target.
func (c *Controller) moveOrbit(dt time.Duration, in Input) {
	dir := c.wasdDirection(in, true)
	if dir.Len() < 1e-9 {
		return
	}

	delta := dir.Normalize().Mul(baseMoveSpeed * c.moveSpeed * dt.Seconds())
	c.pose.Position = c.pose.Position.Add(delta)
	c.pose.Target = c.pose.Target.Add(delta)
}

// moveWalk applies first-person movement: horizontal only, eye height
// locked, blocked outright by a forward collision hit.
func (c *Controller) moveWalk(dt time.Duration, in Input) {
	dir := c.wasdDirection(in, true)
	if dir.Len() < 1e-9 {
		return
	}
	dir = dir.Normalize()

	if c.blocked(dir) {
		return
	}

	delta := dir.Mul(baseMoveSpeed * c.moveSpeed * dt.Seconds())
	c.pose.Position = c.pose.Position.Add(delta)
	c.pose.Position[1] = WalkEyeHeight
	c.updatePoseFromAngles()
}

// moveFly applies 6-DOF flight along the full look direction, clamped to
// stay above ground.
func (c *Controller) moveFly(dt time.Duration, in Input) {
	dir := c.wasdDirection(in, false)
	if dir.Len() < 1e-9 {
		return
	}
	dir = dir.Normalize()

	if c.blocked(dir) {
		return
	}

	delta := dir.Mul(baseMoveSpeed * c.moveSpeed * dt.Seconds())
	c.pose.Position = c.pose.Position.Add(delta)
	if c.pose.Position.Y() < FlyMinAltitude {
		c.pose.Position[1] = FlyMinAltitude
	}
	c.updatePoseFromAngles()
}

// blocked probes the scene ahead of the camera. Discrete collision: any
// visible mesh within clearance stops movement entirely, no sliding.
func (c *Controller) blocked(dir mgl64.Vec3) bool {
	if c.collider == nil {
		return false
	}
	hit, _ := c.collider.Raycast(c.pose.Position, dir, CollisionClearance)
	return hit
}

// wasdDirection builds the movement direction from key state. Horizontal
// projects the look direction onto the ground plane; otherwise the full
// look vector is used (fly mode).
func (c *Controller) wasdDirection(in Input, horizontal bool) mgl64.Vec3 {
	forward := c.lookDir()
	if horizontal {
		forward[1] = 0
		if forward.Len() < 1e-9 {
			forward = mgl64.Vec3{0, 0, -1}
		}
		forward = forward.Normalize()
	}
	right := forward.Cross(mgl64.Vec3{0, 1, 0})
	if right.Len() > 1e-9 {
		right = right.Normalize()
	}

	var dir mgl64.Vec3
	if in.Forward {
		dir = dir.Add(forward)
	}
	if in.Back {
		dir = dir.Sub(forward)
	}
	if in.Right {
		dir = dir.Add(right)
	}
	if in.Left {
		dir = dir.Sub(right)
	}
	return dir
}

// lookDir returns the unit vector from camera position to target.
func (c *Controller) lookDir() mgl64.Vec3 {
	d := c.pose.Target.Sub(c.pose.Position)
	if d.Len() < 1e-9 {
		return mgl64.Vec3{0, 0, -1}
	}
	return d.Normalize()
}

// syncAnglesFromPose derives yaw/pitch from the current look direction so
// walk/fly mouse-look continues smoothly from the current view.
func (c *Controller) syncAnglesFromPose() {
	d := c.lookDir()
	c.yaw = math.Atan2(-d.X(), -d.Z())
	c.pitch = math.Asin(clamp(d.Y(), -1, 1))
}

// updatePoseFromAngles recomputes the look target from yaw/pitch.
func (c *Controller) updatePoseFromAngles() {
	dir := mgl64.Vec3{
		-math.Cos(c.pitch) * math.Sin(c.yaw),
		math.Sin(c.pitch),
		-math.Cos(c.pitch) * math.Cos(c.yaw),
	}
	c.pose.Target = c.pose.Position.Add(dir.Mul(20))
}

func easeOutCubic(t float64) float64 {
	u := 1 - t
	return 1 - u*u*u
}

func lerpVec(a, b mgl64.Vec3, t float64) mgl64.Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

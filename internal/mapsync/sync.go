// Package mapsync keeps a 2D map renderer's camera locked to the 3D
// scene camera. The projection runs every rendered frame and pushes its
// result synchronously; any debounced or asynchronous update here makes
// the map visibly swim against the 3D scene.
package mapsync

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/sitescope/sitescope/internal/camera"
	"github.com/sitescope/sitescope/internal/geo"
)

// Projection limits.
const (
	// MaxProjectionDistance caps the view-ray ground intersection so a
	// near-horizontal camera cannot throw the map center to the horizon.
	MaxProjectionDistance = 5000.0

	// MaxPitch is the steepest tilt the map renderer accepts.
	MaxPitch = 85.0
)

// MapPose is the full 2D camera state pushed to the map renderer each
// frame: ground center, compass bearing, tilt, and zoom.
type MapPose struct {
	CenterLng float64 `json:"center_lng"`
	CenterLat float64 `json:"center_lat"`
	Bearing   float64 `json:"bearing"`
	Pitch     float64 `json:"pitch"`
	Zoom      float64 `json:"zoom"`
}

// Renderer is the 2D map being synchronized. JumpTo must apply the pose
// and repaint immediately; returning before the repaint is what causes
// the two canvases to lag each other by a frame.
type Renderer interface {
	JumpTo(pose MapPose)
}

// Synchronizer projects the 3D camera into map camera parameters. One
// instance per viewer session, driven from the session's frame scheduler.
type Synchronizer struct {
	origin   geo.Origin
	renderer Renderer
	enabled  bool

	// Viewport geometry used to derive the zoom from the 3D camera's
	// implied ground resolution.
	viewportHeightPx float64
	fovYDegrees      float64
}

// NewSynchronizer creates a synchronizer for a scene anchored at origin,
// rendering into a viewport of the given pixel height with the given
// vertical field of view.
func NewSynchronizer(origin geo.Origin, renderer Renderer, viewportHeightPx, fovYDegrees float64) *Synchronizer {
	return &Synchronizer{
		origin:           origin,
		renderer:         renderer,
		enabled:          true,
		viewportHeightPx: viewportHeightPx,
		fovYDegrees:      fovYDegrees,
	}
}

// SetEnabled toggles map synchronization without tearing the
// synchronizer down.
func (s *Synchronizer) SetEnabled(enabled bool) { s.enabled = enabled }

// SetRenderer swaps the map renderer when a viewer attaches or
// detaches its stream. With a nil renderer the projection still runs,
// so a reattaching viewer snaps to the current pose on its next frame.
func (s *Synchronizer) SetRenderer(r Renderer) { s.renderer = r }

// Enabled reports whether per-frame sync is active.
func (s *Synchronizer) Enabled() bool { return s.enabled }

// SetViewport updates the viewport height after a window resize.
func (s *Synchronizer) SetViewport(heightPx float64) {
	if heightPx > 0 {
		s.viewportHeightPx = heightPx
	}
}

// Sync computes the map pose for the current 3D camera and pushes it to
// the renderer. Called once per frame, after the camera system has
// updated, so the map always reflects the current frame's camera.
func (s *Synchronizer) Sync(pose camera.Pose) (MapPose, bool) {
	if !s.enabled {
		return MapPose{}, false
	}

	mp := s.Project(pose)
	if s.renderer != nil {
		s.renderer.JumpTo(mp)
	}
	return mp, true
}

// Project derives the map camera parameters from a 3D camera pose without
// pushing them anywhere.
func (s *Synchronizer) Project(pose camera.Pose) MapPose {
	dir := pose.Target.Sub(pose.Position)
	if dir.Len() < 1e-9 {
		dir = mgl64.Vec3{0, -1, 0}
	}
	dir = dir.Normalize()

	// Intersect the view ray with the ground plane, clamped so grazing
	// angles stay bounded.
	var t float64
	if dir.Y() < -1e-9 {
		t = -pose.Position.Y() / dir.Y()
	} else {
		t = MaxProjectionDistance
	}
	t = math.Min(t, MaxProjectionDistance)
	ground := pose.Position.Add(dir.Mul(t))

	lng, lat := geo.ToGeo(ground.X(), ground.Z(), s.origin)

	// Bearing from the horizontal look direction. North is -Z, and
	// bearing grows clockwise toward east (+X).
	bearing := 0.0
	if math.Hypot(dir.X(), dir.Z()) > 1e-9 {
		bearing = math.Atan2(dir.X(), -dir.Z()) * 180 / math.Pi
		if bearing < 0 {
			bearing += 360
		}
	}

	// Map pitch: 0 looks straight down, clamped to the renderer's
	// maximum tilt.
	pitch := math.Acos(clamp(-dir.Y(), -1, 1)) * 180 / math.Pi
	pitch = clamp(pitch, 0, MaxPitch)

	// Zoom from the 3D camera's implied ground resolution: the vertical
	// FOV subtends 2*d*tan(fov/2) meters at the look-at distance, spread
	// over the viewport height in pixels.
	dist := math.Max(ground.Sub(pose.Position).Len(), 1)
	visibleMeters := 2 * dist * math.Tan(s.fovYDegrees/2*math.Pi/180)
	mpp := visibleMeters / s.viewportHeightPx
	zoom := geo.ZoomForMetersPerPixel(lat, mpp)

	return MapPose{
		CenterLng: lng,
		CenterLat: lat,
		Bearing:   bearing,
		Pitch:     pitch,
		Zoom:      zoom,
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

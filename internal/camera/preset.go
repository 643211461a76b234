package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Preset identifies a built-in framing of the site.
type Preset string

const (
	PresetAerial Preset = "aerial"
	PresetStreet Preset = "street"
	PresetCorner Preset = "corner"
	PresetFront  Preset = "front"
)

// PresetPose computes the camera pose for a preset framing a site
// centered at center with the given radius in meters.
func PresetPose(preset Preset, center mgl64.Vec3, radius float64) Pose {
	if radius < 10 {
		radius = 10
	}

	switch preset {
	case PresetStreet:
		// Near ground level south of the site, looking across it.
		return Pose{
			Position: center.Add(mgl64.Vec3{0, WalkEyeHeight, radius * 1.2}),
			Target:   center.Add(mgl64.Vec3{0, 5, 0}),
		}
	case PresetCorner:
		// Classic 45-degree three-quarter view.
		d := radius * 1.5 / math.Sqrt2
		return Pose{
			Position: center.Add(mgl64.Vec3{d, radius * 1.1, d}),
			Target:   center,
		}
	case PresetFront:
		return Pose{
			Position: center.Add(mgl64.Vec3{0, radius * 0.5, radius * 1.8}),
			Target:   center,
		}
	default: // PresetAerial
		return Pose{
			Position: center.Add(mgl64.Vec3{0, radius * 2.5, radius * 0.01}),
			Target:   center,
		}
	}
}

package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/sitescope/sitescope/internal/geo"
)

// box is an axis-aligned bounding box in scene space.
type box struct {
	min, max mgl64.Vec3
}

// Collider answers walk-mode blocking raycasts against the scene's
// building volumes. Buildings are approximated by their footprint's
// axis-aligned bounding prism, which is coarse but cheap enough to
// query every frame per movement direction.
type Collider struct {
	boxes []box
}

// NewCollider creates an empty collider.
func NewCollider() *Collider {
	return &Collider{}
}

// AddPrism adds a building volume from its footprint ring and height.
func (c *Collider) AddPrism(ring []geo.LocalPoint, height float64) {
	if len(ring) < 3 || height <= 0 {
		return
	}

	minX, minZ := math.Inf(1), math.Inf(1)
	maxX, maxZ := math.Inf(-1), math.Inf(-1)
	for _, p := range ring {
		minX = math.Min(minX, p.X)
		minZ = math.Min(minZ, p.Z)
		maxX = math.Max(maxX, p.X)
		maxZ = math.Max(maxZ, p.Z)
	}

	c.boxes = append(c.boxes, box{
		min: mgl64.Vec3{minX, 0, minZ},
		max: mgl64.Vec3{maxX, height, maxZ},
	})
}

// Count returns the number of registered volumes.
func (c *Collider) Count() int { return len(c.boxes) }

// HeightAt returns the top of the tallest volume standing over the
// given ground position, and whether any volume does.
func (c *Collider) HeightAt(x, z float64) (float64, bool) {
	top := 0.0
	found := false
	for _, b := range c.boxes {
		if x < b.min.X() || x > b.max.X() || z < b.min.Z() || z > b.max.Z() {
			continue
		}
		found = true
		if b.max.Y() > top {
			top = b.max.Y()
		}
	}
	return top, found
}

// Raycast finds the nearest volume intersection along the ray, within
// maxDistance. Implements the camera controller's collision query.
func (c *Collider) Raycast(origin, dir mgl64.Vec3, maxDistance float64) (bool, float64) {
	nearest := math.Inf(1)
	for _, b := range c.boxes {
		if t, ok := rayBox(origin, dir, b); ok && t < nearest {
			nearest = t
		}
	}
	if nearest <= maxDistance {
		return true, nearest
	}
	return false, 0
}

// rayBox is the slab-method ray/AABB intersection. Returns the entry
// distance along the ray, with hits behind the origin rejected.
func rayBox(origin, dir mgl64.Vec3, b box) (float64, bool) {
	tMin := math.Inf(-1)
	tMax := math.Inf(1)

	for axis := 0; axis < 3; axis++ {
		o, d := origin[axis], dir[axis]
		lo, hi := b.min[axis], b.max[axis]

		if math.Abs(d) < 1e-12 {
			if o < lo || o > hi {
				return 0, false
			}
			continue
		}

		t1 := (lo - o) / d
		t2 := (hi - o) / d
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tMin = math.Max(tMin, t1)
		tMax = math.Min(tMax, t2)
		if tMin > tMax {
			return 0, false
		}
	}

	if tMax < 0 {
		return 0, false
	}
	t := tMin
	if t < 0 {
		// Origin inside the volume: report an immediate hit.
		t = 0
	}
	return t, true
}

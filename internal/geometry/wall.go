package geometry

import (
	"math"

	"github.com/sitescope/sitescope/internal/geo"
)

// MinSegmentLength is the threshold below which a polygon edge is treated
// as degenerate and dropped from wall extraction.
const MinSegmentLength = 0.5

// WallSegment is one edge of a footprint polygon annotated with the values
// facade placement needs. The normal always points away from the polygon
// centroid (outward-facing). WallSegments are derived and ephemeral: they
// are recomputed whenever the owning polygon changes.
type WallSegment struct {
	StartX, StartZ   float64
	EndX, EndZ       float64
	Length           float64
	DirX, DirZ       float64
	NormalX, NormalZ float64
	MidX, MidZ       float64
	Angle            float64
}

// Start returns the segment start as a local point.
func (w WallSegment) Start() geo.LocalPoint { return geo.LocalPoint{X: w.StartX, Z: w.StartZ} }

// End returns the segment end as a local point.
func (w WallSegment) End() geo.LocalPoint { return geo.LocalPoint{X: w.EndX, Z: w.EndZ} }

// PointAt returns the point at distance d from the segment start along its
// direction.
func (w WallSegment) PointAt(d float64) geo.LocalPoint {
	return geo.LocalPoint{X: w.StartX + w.DirX*d, Z: w.StartZ + w.DirZ*d}
}

// ExtractWallSegments computes the annotated edges of a footprint ring.
// Rings whose first and last vertex coincide are treated as already closed;
// the shared vertex is not doubled. Segments shorter than MinSegmentLength
// are dropped. Fewer than 3 distinct vertices yields no segments: that is
// "nothing to draw yet", not an error.
func ExtractWallSegments(ring []geo.LocalPoint) []WallSegment {
	pts := dropClosingVertex(ring)
	if len(pts) < 3 {
		return nil
	}

	centroid := ringCentroid(pts)
	segments := make([]WallSegment, 0, len(pts))

	for i := range pts {
		start := pts[i]
		end := pts[(i+1)%len(pts)]

		dx := end.X - start.X
		dz := end.Z - start.Z
		length := math.Hypot(dx, dz)
		if length < MinSegmentLength {
			continue
		}

		dirX := dx / length
		dirZ := dz / length
		midX := (start.X + end.X) / 2
		midZ := (start.Z + end.Z) / 2

		// Two perpendicular candidates; keep the one pointing away
		// from the centroid.
		nx, nz := -dirZ, dirX
		toCentroidX := centroid.X - midX
		toCentroidZ := centroid.Z - midZ
		if nx*toCentroidX+nz*toCentroidZ > 0 {
			nx, nz = -nx, -nz
		}

		segments = append(segments, WallSegment{
			StartX: start.X, StartZ: start.Z,
			EndX: end.X, EndZ: end.Z,
			Length: length,
			DirX:   dirX, DirZ: dirZ,
			NormalX: nx, NormalZ: nz,
			MidX: midX, MidZ: midZ,
			Angle: math.Atan2(dz, dx),
		})
	}

	return segments
}

// LongestSegment returns the index of the longest wall segment, or -1 for
// an empty slice. Doors and balconies attach to the longest facade.
func LongestSegment(segments []WallSegment) int {
	best := -1
	bestLen := 0.0
	for i, s := range segments {
		if s.Length > bestLen {
			bestLen = s.Length
			best = i
		}
	}
	return best
}

// dropClosingVertex removes a duplicated closing vertex so downstream code
// can treat every ring as open.
func dropClosingVertex(ring []geo.LocalPoint) []geo.LocalPoint {
	n := len(ring)
	if n < 2 {
		return ring
	}
	first, last := ring[0], ring[n-1]
	if math.Abs(first.X-last.X) < 1e-9 && math.Abs(first.Z-last.Z) < 1e-9 {
		return ring[:n-1]
	}
	return ring
}

// ringCentroid returns the vertex average of a ring. A simple average is
// enough for the outward test on footprint-scale polygons.
func ringCentroid(pts []geo.LocalPoint) geo.LocalPoint {
	var c geo.LocalPoint
	if len(pts) == 0 {
		return c
	}
	for _, p := range pts {
		c.X += p.X
		c.Z += p.Z
	}
	c.X /= float64(len(pts))
	c.Z /= float64(len(pts))
	return c
}

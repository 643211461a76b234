package geometry

import (
	"math"

	"github.com/sitescope/sitescope/internal/geo"
)

// Triangulate performs ear-clipping triangulation of a simple polygon on
// the ground plane, returning index triples into the input slice. The
// input may be open or carry a duplicated closing vertex.
//
// Self-intersecting input is not detected; the output is whatever the
// clipper produces. This mirrors the renderer's failure semantics: a
// malformed shape draws wrong rather than failing.
func Triangulate(ring []geo.LocalPoint) [][3]int {
	pts := dropClosingVertex(ring)
	n := len(pts)
	if n < 3 {
		return nil
	}

	// Work on an index list so output triangles refer to original
	// vertices regardless of winding fixes.
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	if signedArea(pts) < 0 {
		for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
			indices[i], indices[j] = indices[j], indices[i]
		}
	}

	var triangles [][3]int
	guard := 0
	for len(indices) > 3 && guard < n*n {
		guard++
		clipped := false
		for i := 0; i < len(indices); i++ {
			prev := indices[(i+len(indices)-1)%len(indices)]
			cur := indices[i]
			next := indices[(i+1)%len(indices)]

			if !isEar(pts, indices, prev, cur, next) {
				continue
			}

			triangles = append(triangles, [3]int{prev, cur, next})
			indices = append(indices[:i], indices[i+1:]...)
			clipped = true
			break
		}
		if !clipped {
			// Degenerate remainder (collinear points or bad input).
			break
		}
	}
	if len(indices) == 3 {
		triangles = append(triangles, [3]int{indices[0], indices[1], indices[2]})
	}

	return triangles
}

// isEar reports whether the corner prev-cur-next is a convex ear with no
// remaining vertex inside it.
func isEar(pts []geo.LocalPoint, indices []int, prev, cur, next int) bool {
	a, b, c := pts[prev], pts[cur], pts[next]

	// Convexity in CCW order: positive cross product.
	cross := (b.X-a.X)*(c.Z-a.Z) - (b.Z-a.Z)*(c.X-a.X)
	if cross <= 1e-12 {
		return false
	}

	for _, idx := range indices {
		if idx == prev || idx == cur || idx == next {
			continue
		}
		if pointInTriangle(pts[idx], a, b, c) {
			return false
		}
	}
	return true
}

// pointInTriangle uses the sign-of-cross-products test.
func pointInTriangle(p, a, b, c geo.LocalPoint) bool {
	d1 := (p.X-b.X)*(a.Z-b.Z) - (a.X-b.X)*(p.Z-b.Z)
	d2 := (p.X-c.X)*(b.Z-c.Z) - (b.X-c.X)*(p.Z-c.Z)
	d3 := (p.X-a.X)*(c.Z-a.Z) - (c.X-a.X)*(p.Z-a.Z)

	hasNeg := d1 < 0 || d2 < 0 || d3 < 0
	hasPos := d1 > 0 || d2 > 0 || d3 > 0
	return !(hasNeg && hasPos)
}

// signedArea returns the shoelace signed area of a ground-plane ring.
// Positive means counterclockwise in XZ.
func signedArea(pts []geo.LocalPoint) float64 {
	n := len(pts)
	if n < 3 {
		return 0
	}
	area := 0.0
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		area += pts[i].X*pts[j].Z - pts[j].X*pts[i].Z
	}
	return area / 2
}

// RingArea returns the unsigned shoelace area of a ground-plane ring.
func RingArea(pts []geo.LocalPoint) float64 {
	return math.Abs(signedArea(pts))
}

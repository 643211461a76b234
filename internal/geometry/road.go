package geometry

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/sitescope/sitescope/internal/geo"
)

// Road rendering constants. Surfaces get small vertical offsets so the
// roadbed, markings, and sidewalks never z-fight with the ground plane.
const (
	roadbedLift  = 0.02
	markingLift  = 0.04
	sidewalkLift = 0.05

	markingWidth      = 0.3
	markingDashLength = 3.0
	markingDashGap    = 2.0

	SidewalkWidth = 1.5
	SidewalkGap   = 0.5
)

// BufferCenterline expands a road centerline to a closed polygon of the
// given width: the left-offset vertices in order, followed by the
// right-offset vertices in reverse. A centerline of n points always
// produces exactly 2n vertices, which is the invariant centerline
// reconstruction depends on.
func BufferCenterline(line []geo.LocalPoint, width float64) []geo.LocalPoint {
	if len(line) < 2 || width <= 0 {
		return nil
	}

	half := width / 2
	left := make([]geo.LocalPoint, len(line))
	right := make([]geo.LocalPoint, len(line))

	for i, p := range line {
		perp := centerlinePerp(line, i)
		left[i] = geo.LocalPoint{X: p.X + perp.X*half, Z: p.Z + perp.Z*half}
		right[i] = geo.LocalPoint{X: p.X - perp.X*half, Z: p.Z - perp.Z*half}
	}

	ring := make([]geo.LocalPoint, 0, 2*len(line))
	ring = append(ring, left...)
	for i := len(right) - 1; i >= 0; i-- {
		ring = append(ring, right[i])
	}
	return ring
}

// ReconstructCenterline recovers the centerline from a polygon produced by
// BufferCenterline, by averaging paired vertices i and n-1-i. The pairing
// assumes the polygon came from this system's own buffering; an externally
// edited ring with a different vertex ordering reconstructs silently
// wrong, which is a documented limitation rather than a validated
// invariant.
func ReconstructCenterline(ring []geo.LocalPoint) []geo.LocalPoint {
	n := len(ring)
	if n < 4 || n%2 != 0 {
		return nil
	}

	line := make([]geo.LocalPoint, n/2)
	for i := 0; i < n/2; i++ {
		a := ring[i]
		b := ring[n-1-i]
		line[i] = geo.LocalPoint{X: (a.X + b.X) / 2, Z: (a.Z + b.Z) / 2}
	}
	return line
}

// Roadbed builds the flat ribbon surface of a road from its centerline.
func Roadbed(line []geo.LocalPoint, width float64, name string) *Mesh {
	if len(line) < 2 || width <= 0 {
		return nil
	}

	mesh := NewMesh(name, "asphalt")
	appendRibbon(mesh, line, width, 0, roadbedLift)
	return mesh
}

// CenterlineMarkings builds dashed (or solid) lane markings along a road
// centerline. Major road types get dashed markings; minor roads none.
func CenterlineMarkings(line []geo.LocalPoint, dashed bool) *Mesh {
	if len(line) < 2 {
		return nil
	}

	mesh := NewMesh("markings", "paint")
	if !dashed {
		appendRibbon(mesh, line, markingWidth, 0, markingLift)
		return mesh
	}

	// Walk the polyline laying dash segments on the cycle
	// [0, dash) painted, [dash, dash+gap) skipped.
	cycle := markingDashLength + markingDashGap
	traveled := 0.0
	for i := 0; i < len(line)-1; i++ {
		a, b := line[i], line[i+1]
		segLen := a.Distance(b)
		if segLen < 1e-9 {
			continue
		}
		dir := b.Sub(a).Scale(1 / segLen)

		pos := 0.0
		for pos < segLen {
			phase := mod(traveled+pos, cycle)
			if phase < markingDashLength {
				dashLen := markingDashLength - phase
				if pos+dashLen > segLen {
					dashLen = segLen - pos
				}
				start := a.Add(dir.Scale(pos))
				end := a.Add(dir.Scale(pos + dashLen))
				appendRibbon(mesh, []geo.LocalPoint{start, end}, markingWidth, 0, markingLift)
				pos += dashLen
			} else {
				pos += cycle - phase
			}
		}
		traveled += segLen
	}

	if mesh.Empty() {
		return nil
	}
	return mesh
}

// Sidewalks builds a pair of ribbons offset outward from the road edges on
// both sides.
func Sidewalks(line []geo.LocalPoint, roadWidth float64) *Mesh {
	if len(line) < 2 || roadWidth <= 0 {
		return nil
	}

	offset := roadWidth/2 + SidewalkGap + SidewalkWidth/2
	mesh := NewMesh("sidewalks", "pavement")
	appendRibbon(mesh, line, SidewalkWidth, offset, sidewalkLift)
	appendRibbon(mesh, line, SidewalkWidth, -offset, sidewalkLift)
	return mesh
}

// appendRibbon lays a flat strip of the given width along a polyline,
// shifted sideways by offset meters and lifted to the given elevation.
func appendRibbon(mesh *Mesh, line []geo.LocalPoint, width, offset, lift float64) {
	if len(line) < 2 {
		return
	}

	half := width / 2
	cross := make([][2]mgl64.Vec3, len(line))
	for i, p := range line {
		perp := centerlinePerp(line, i)
		cx := p.X + perp.X*offset
		cz := p.Z + perp.Z*offset
		cross[i] = [2]mgl64.Vec3{
			{cx + perp.X*half, lift, cz + perp.Z*half},
			{cx - perp.X*half, lift, cz - perp.Z*half},
		}
	}

	for i := 0; i < len(cross)-1; i++ {
		mesh.AddQuad(cross[i][0], cross[i+1][0], cross[i+1][1], cross[i][1])
	}
}

// centerlinePerp returns the unit perpendicular at vertex i of a polyline,
// averaging the directions of the adjacent segments at interior vertices
// so miters stay smooth.
func centerlinePerp(line []geo.LocalPoint, i int) geo.LocalPoint {
	var dir geo.LocalPoint
	switch {
	case i == 0:
		dir = line[1].Sub(line[0])
	case i == len(line)-1:
		dir = line[i].Sub(line[i-1])
	default:
		a := normalize(line[i].Sub(line[i-1]))
		b := normalize(line[i+1].Sub(line[i]))
		dir = a.Add(b)
	}
	dir = normalize(dir)
	return geo.LocalPoint{X: -dir.Z, Z: dir.X}
}

func normalize(p geo.LocalPoint) geo.LocalPoint {
	l := p.Distance(geo.LocalPoint{})
	if l < 1e-12 {
		return geo.LocalPoint{}
	}
	return p.Scale(1 / l)
}

func mod(a, b float64) float64 {
	m := a - b*float64(int(a/b))
	if m < 0 {
		m += b
	}
	return m
}

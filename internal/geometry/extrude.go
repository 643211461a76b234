package geometry

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/sitescope/sitescope/internal/geo"
)

// Roof pitch factors relative to the footprint's short axis, matching the
// generation pipeline's proportions.
const (
	gabledRidgeFactor = 0.3
	hippedApexFactor  = 0.25
)

// ExtrudeRing builds the vertical side walls of a footprint ring extruded
// to the given height. Returns nil for degenerate input.
func ExtrudeRing(ring []geo.LocalPoint, height float64, name, material string) *Mesh {
	pts := dropClosingVertex(ring)
	if len(pts) < 3 || height <= 0 {
		return nil
	}

	mesh := NewMesh(name, material)
	for i := range pts {
		a := pts[i]
		b := pts[(i+1)%len(pts)]
		mesh.AddQuad(
			mgl64.Vec3{a.X, 0, a.Z},
			mgl64.Vec3{b.X, 0, b.Z},
			mgl64.Vec3{b.X, height, b.Z},
			mgl64.Vec3{a.X, height, a.Z},
		)
	}
	return mesh
}

// FlatCap builds the horizontal roof surface at the given elevation by
// triangulating the footprint.
func FlatCap(ring []geo.LocalPoint, elevation float64, name, material string) *Mesh {
	pts := dropClosingVertex(ring)
	tris := Triangulate(pts)
	if len(tris) == 0 {
		return nil
	}

	mesh := NewMesh(name, material)
	for _, p := range pts {
		mesh.AddVertex(mgl64.Vec3{p.X, elevation, p.Z})
	}
	mesh.Faces = append(mesh.Faces, tris...)
	return mesh
}

// GabledRoof builds two rectangular slopes meeting at a central ridge line
// parallel to the footprint's longer axis, sitting on top of the extrusion
// at baseHeight.
func GabledRoof(ring []geo.LocalPoint, baseHeight float64, material string) *Mesh {
	pts := dropClosingVertex(ring)
	if len(pts) < 3 {
		return nil
	}

	minP, maxP := boundingBox(pts)
	width := maxP.X - minP.X
	depth := maxP.Z - minP.Z

	mesh := NewMesh("roof", material)

	if width >= depth {
		// Ridge runs along X at the Z midline.
		ridgeZ := (minP.Z + maxP.Z) / 2
		ridgeY := baseHeight + depth*gabledRidgeFactor

		r0 := mgl64.Vec3{minP.X, ridgeY, ridgeZ}
		r1 := mgl64.Vec3{maxP.X, ridgeY, ridgeZ}

		mesh.AddQuad(
			mgl64.Vec3{minP.X, baseHeight, minP.Z},
			mgl64.Vec3{maxP.X, baseHeight, minP.Z},
			r1, r0,
		)
		mesh.AddQuad(
			mgl64.Vec3{maxP.X, baseHeight, maxP.Z},
			mgl64.Vec3{minP.X, baseHeight, maxP.Z},
			r0, r1,
		)
		// Gable end triangles.
		mesh.AddTriangle(
			mgl64.Vec3{minP.X, baseHeight, minP.Z},
			r0,
			mgl64.Vec3{minP.X, baseHeight, maxP.Z},
		)
		mesh.AddTriangle(
			mgl64.Vec3{maxP.X, baseHeight, maxP.Z},
			r1,
			mgl64.Vec3{maxP.X, baseHeight, minP.Z},
		)
	} else {
		// Ridge runs along Z at the X midline.
		ridgeX := (minP.X + maxP.X) / 2
		ridgeY := baseHeight + width*gabledRidgeFactor

		r0 := mgl64.Vec3{ridgeX, ridgeY, minP.Z}
		r1 := mgl64.Vec3{ridgeX, ridgeY, maxP.Z}

		mesh.AddQuad(
			mgl64.Vec3{minP.X, baseHeight, minP.Z},
			mgl64.Vec3{minP.X, baseHeight, maxP.Z},
			r1, r0,
		)
		mesh.AddQuad(
			mgl64.Vec3{maxP.X, baseHeight, maxP.Z},
			mgl64.Vec3{maxP.X, baseHeight, minP.Z},
			r0, r1,
		)
		mesh.AddTriangle(
			mgl64.Vec3{minP.X, baseHeight, minP.Z},
			r0,
			mgl64.Vec3{maxP.X, baseHeight, minP.Z},
		)
		mesh.AddTriangle(
			mgl64.Vec3{maxP.X, baseHeight, maxP.Z},
			r1,
			mgl64.Vec3{minP.X, baseHeight, maxP.Z},
		)
	}

	return mesh
}

// HippedRoof builds four triangular slopes meeting at a single apex above
// the footprint centroid.
func HippedRoof(ring []geo.LocalPoint, baseHeight float64, material string) *Mesh {
	pts := dropClosingVertex(ring)
	if len(pts) < 3 {
		return nil
	}

	minP, maxP := boundingBox(pts)
	shortAxis := math.Min(maxP.X-minP.X, maxP.Z-minP.Z)
	centroid := ringCentroid(pts)
	apex := mgl64.Vec3{centroid.X, baseHeight + shortAxis*hippedApexFactor, centroid.Z}

	mesh := NewMesh("roof", material)
	for i := range pts {
		a := pts[i]
		b := pts[(i+1)%len(pts)]
		mesh.AddTriangle(
			mgl64.Vec3{a.X, baseHeight, a.Z},
			mgl64.Vec3{b.X, baseHeight, b.Z},
			apex,
		)
	}
	return mesh
}

// boundingBox returns the axis-aligned bounds of a ring.
func boundingBox(pts []geo.LocalPoint) (geo.LocalPoint, geo.LocalPoint) {
	if len(pts) == 0 {
		return geo.LocalPoint{}, geo.LocalPoint{}
	}
	minP, maxP := pts[0], pts[0]
	for _, p := range pts[1:] {
		minP.X = math.Min(minP.X, p.X)
		minP.Z = math.Min(minP.Z, p.Z)
		maxP.X = math.Max(maxP.X, p.X)
		maxP.Z = math.Max(maxP.Z, p.Z)
	}
	return minP, maxP
}

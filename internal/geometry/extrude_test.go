package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitescope/sitescope/internal/geo"
)

func TestTriangulate_Square(t *testing.T) {
	tris := Triangulate(square(10))
	assert.Len(t, tris, 2)
}

func TestTriangulate_ConcavePolygon(t *testing.T) {
	// An L-shape: 6 vertices triangulate into exactly n-2 = 4 triangles.
	ring := []geo.LocalPoint{
		{X: 0, Z: 0}, {X: 20, Z: 0}, {X: 20, Z: 10},
		{X: 10, Z: 10}, {X: 10, Z: 20}, {X: 0, Z: 20},
	}

	tris := Triangulate(ring)
	assert.Len(t, tris, 4)

	// Triangulated area must equal the polygon area.
	var total float64
	for _, tri := range tris {
		a, b, c := ring[tri[0]], ring[tri[1]], ring[tri[2]]
		total += RingArea([]geo.LocalPoint{a, b, c})
	}
	assert.InDelta(t, RingArea(ring), total, 1e-9)
}

func TestTriangulate_Degenerate(t *testing.T) {
	assert.Nil(t, Triangulate(nil))
	assert.Nil(t, Triangulate([]geo.LocalPoint{{X: 0, Z: 0}, {X: 1, Z: 0}}))
}

func TestExtrudeRing_SquareSides(t *testing.T) {
	mesh := ExtrudeRing(square(10), 30, "body", "concrete")
	require.NotNil(t, mesh)

	// Four walls, one quad each.
	assert.Equal(t, 4, mesh.QuadCount())

	// All vertices sit at ground level or the extrusion height.
	for _, v := range mesh.Vertices {
		y := v.Y()
		assert.True(t, y == 0 || y == 30, "unexpected vertex height %f", y)
	}
}

func TestExtrudeRing_Degenerate(t *testing.T) {
	assert.Nil(t, ExtrudeRing(nil, 10, "body", "concrete"))
	assert.Nil(t, ExtrudeRing(square(10), 0, "body", "concrete"))
	assert.Nil(t, ExtrudeRing([]geo.LocalPoint{{X: 0, Z: 0}, {X: 5, Z: 0}}, 10, "body", "concrete"))
}

func TestFlatCap_AtElevation(t *testing.T) {
	mesh := FlatCap(square(10), 30, "roof", "concrete")
	require.NotNil(t, mesh)

	assert.Len(t, mesh.Faces, 2)
	for _, v := range mesh.Vertices {
		assert.Equal(t, 30.0, v.Y())
	}
}

func TestGabledRoof_RidgeParallelToLongAxis(t *testing.T) {
	// Footprint longer in X: the ridge must run along X, i.e. ridge
	// vertices share a Z coordinate at the footprint midline.
	ring := []geo.LocalPoint{
		{X: 0, Z: 0}, {X: 40, Z: 0}, {X: 40, Z: 10}, {X: 0, Z: 10},
	}

	mesh := GabledRoof(ring, 12, "roof_tile")
	require.NotNil(t, mesh)

	ridgeY := 12 + 10*gabledRidgeFactor
	var ridgeCount int
	for _, v := range mesh.Vertices {
		if v.Y() > 12 {
			assert.InDelta(t, ridgeY, v.Y(), 1e-9)
			assert.InDelta(t, 5.0, v.Z(), 1e-9)
			ridgeCount++
		}
	}
	assert.NotZero(t, ridgeCount)
}

func TestHippedRoof_SingleApexAboveCentroid(t *testing.T) {
	ring := square(20)

	mesh := HippedRoof(ring, 15, "roof_tile")
	require.NotNil(t, mesh)

	// Four slopes, one triangle each.
	assert.Len(t, mesh.Faces, 4)

	apexY := 15 + 20*hippedApexFactor
	for _, v := range mesh.Vertices {
		if v.Y() > 15 {
			assert.InDelta(t, apexY, v.Y(), 1e-9)
			assert.InDelta(t, 10.0, v.X(), 1e-9)
			assert.InDelta(t, 10.0, v.Z(), 1e-9)
		}
	}
}

func TestRoofs_Degenerate(t *testing.T) {
	assert.Nil(t, GabledRoof(nil, 10, "roof_tile"))
	assert.Nil(t, HippedRoof([]geo.LocalPoint{{X: 0, Z: 0}}, 10, "roof_tile"))
}

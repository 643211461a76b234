package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitescope/sitescope/internal/geo"
)

func TestBufferCenterline_VertexCount(t *testing.T) {
	// A 3-waypoint road buffers to exactly 2*3 = 6 vertices.
	line := []geo.LocalPoint{
		{X: 0, Z: 0}, {X: 50, Z: 0}, {X: 100, Z: 30},
	}

	ring := BufferCenterline(line, 10)
	assert.Len(t, ring, 6)
}

func TestBufferCenterline_RoundTrip(t *testing.T) {
	line := []geo.LocalPoint{
		{X: 0, Z: 0}, {X: 40, Z: 5}, {X: 80, Z: -10}, {X: 120, Z: 0},
	}
	const width = 8.0

	ring := BufferCenterline(line, width)
	require.Len(t, ring, 2*len(line))

	back := ReconstructCenterline(ring)
	require.Len(t, back, len(line))

	for i := range line {
		assert.InDelta(t, line[i].X, back[i].X, 1e-9, "vertex %d X", i)
		assert.InDelta(t, line[i].Z, back[i].Z, 1e-9, "vertex %d Z", i)
	}

	// Paired left/right vertices sit exactly width apart on straight
	// sections (endpoints have a single segment direction).
	n := len(ring)
	assert.InDelta(t, width, ring[0].Distance(ring[n-1]), 1e-9)
	assert.InDelta(t, width, ring[len(line)-1].Distance(ring[len(line)]), 1e-9)
}

func TestBufferCenterline_Degenerate(t *testing.T) {
	assert.Nil(t, BufferCenterline(nil, 10))
	assert.Nil(t, BufferCenterline([]geo.LocalPoint{{X: 0, Z: 0}}, 10))
	assert.Nil(t, BufferCenterline([]geo.LocalPoint{{X: 0, Z: 0}, {X: 10, Z: 0}}, 0))
}

func TestReconstructCenterline_RejectsOddRings(t *testing.T) {
	assert.Nil(t, ReconstructCenterline(nil))
	assert.Nil(t, ReconstructCenterline([]geo.LocalPoint{{X: 0, Z: 0}, {X: 1, Z: 0}, {X: 1, Z: 1}}))
}

func TestRoadbed_RibbonQuads(t *testing.T) {
	line := []geo.LocalPoint{{X: 0, Z: 0}, {X: 50, Z: 0}, {X: 100, Z: 0}}

	mesh := Roadbed(line, 10, "road")
	require.NotNil(t, mesh)

	// One quad per centerline segment.
	assert.Equal(t, 2, mesh.QuadCount())

	// Roadbed edges span the full width.
	for _, v := range mesh.Vertices {
		assert.InDelta(t, 5.0, absf(v.Z()), 1e-9)
	}
}

func TestCenterlineMarkings_DashedAndSolid(t *testing.T) {
	line := []geo.LocalPoint{{X: 0, Z: 0}, {X: 20, Z: 0}}

	dashed := CenterlineMarkings(line, true)
	require.NotNil(t, dashed)
	// 20 m with 3 m dash / 2 m gap: dashes start at 0, 5, 10, 15.
	assert.Equal(t, 4, dashed.QuadCount())

	solid := CenterlineMarkings(line, false)
	require.NotNil(t, solid)
	assert.Equal(t, 1, solid.QuadCount())
}

func TestSidewalks_OffsetOutward(t *testing.T) {
	line := []geo.LocalPoint{{X: 0, Z: 0}, {X: 100, Z: 0}}

	mesh := Sidewalks(line, 10)
	require.NotNil(t, mesh)

	// Two ribbons, one quad each for a single segment.
	assert.Equal(t, 2, mesh.QuadCount())

	// Sidewalk inner edges clear the roadbed edge by the gap.
	innerEdge := 10.0/2 + SidewalkGap
	for _, v := range mesh.Vertices {
		assert.GreaterOrEqual(t, absf(v.Z())+1e-9, innerEdge)
	}
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

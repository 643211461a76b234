package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitescope/sitescope/internal/geo"
)

func TestWindowsPerWall_Formula(t *testing.T) {
	// usable = length - 2*1.5, count = floor(usable / 3.5)
	cases := []struct {
		length float64
		want   int
	}{
		{100, 27}, // floor(97 / 3.5) = 27
		{10, 2},
		{7, 1},
		{6, 0}, // usable 3.0 < spacing
		{2, 0},
	}

	for _, tc := range cases {
		got := WindowsPerWall(tc.length)
		assert.Equal(t, tc.want, got, "length %f", tc.length)

		want := 0
		if usable := tc.length - 2*WindowCornerMargin; usable >= WindowSpacing {
			want = int(math.Floor(usable / WindowSpacing))
		}
		assert.Equal(t, want, got)
	}
}

func TestWindows_QuadCountMatchesFormula(t *testing.T) {
	// 100 m square, 10 floors: windows_per_wall * 4 walls * floors quads.
	walls := ExtractWallSegments(square(100))
	require.Len(t, walls, 4)

	floors := 10
	mesh := Windows(walls, floors, 3.0)
	require.NotNil(t, mesh)

	perWall := WindowsPerWall(100)
	assert.Equal(t, perWall*4*floors, mesh.QuadCount())
}

func TestWindows_RespectsCornerMargins(t *testing.T) {
	walls := ExtractWallSegments(square(20))
	mesh := Windows(walls, 1, 3.0)
	require.NotNil(t, mesh)

	// Every window vertex stays on or outside the wall plane and within
	// the footprint's expanded bounds.
	for _, v := range mesh.Vertices {
		assert.GreaterOrEqual(t, v.X(), -1.0)
		assert.LessOrEqual(t, v.X(), 21.0)
	}
}

func TestWindows_NoGeometryForTinyWalls(t *testing.T) {
	walls := ExtractWallSegments(square(4))
	assert.Nil(t, Windows(walls, 3, 3.0))
	assert.Nil(t, Windows(nil, 3, 3.0))
	assert.Nil(t, Windows(walls, 0, 3.0))
}

func TestDoor_CenteredOnLongestWall(t *testing.T) {
	walls := ExtractWallSegments(rect(40, 10))
	require.NotEmpty(t, walls)

	mesh := Door(walls)
	require.NotNil(t, mesh)

	long := walls[LongestSegment(walls)]

	// The door centroid projects onto the longest wall's midpoint.
	var cx, cz float64
	for _, v := range mesh.Vertices {
		cx += v.X()
		cz += v.Z()
	}
	cx /= float64(len(mesh.Vertices))
	cz /= float64(len(mesh.Vertices))

	assert.InDelta(t, long.MidX, cx, 0.5)
	assert.InDelta(t, long.MidZ, cz, 0.5)
}

func TestFloorLines_OnePerWallPerDivider(t *testing.T) {
	walls := ExtractWallSegments(square(20))
	mesh := FloorLines(walls, 5, 3.0)
	require.NotNil(t, mesh)

	// 4 interior boundaries * 4 walls, one quad each.
	assert.Equal(t, 16, mesh.QuadCount())

	assert.Nil(t, FloorLines(walls, 1, 3.0))
}

func TestCornice_OneBoxPerWall(t *testing.T) {
	walls := ExtractWallSegments(square(20))
	mesh := Cornice(walls, 30)
	require.NotNil(t, mesh)

	// A box is 6 quads.
	assert.Equal(t, 4*6, mesh.QuadCount())

	// Cornice sits at the roofline.
	for _, v := range mesh.Vertices {
		assert.Greater(t, v.Y(), 29.0)
	}
}

func TestBalconies_UpperFloorsOnly(t *testing.T) {
	walls := ExtractWallSegments(square(20))

	mesh := Balconies(walls, 4, 3.0)
	require.NotNil(t, mesh)

	// Floors 1..3 get one balcony box each.
	assert.Equal(t, 3*6, mesh.QuadCount())

	assert.Nil(t, Balconies(walls, 1, 3.0))
}

// rect builds a w x d rectangle footprint at the origin.
func rect(w, d float64) []geo.LocalPoint {
	return []geo.LocalPoint{
		{X: 0, Z: 0}, {X: w, Z: 0}, {X: w, Z: d}, {X: 0, Z: d},
	}
}

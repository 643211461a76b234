package planner

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitescope/sitescope/internal/geo"
	"github.com/sitescope/sitescope/internal/models"
)

func testOrigin() geo.Origin {
	return geo.Origin{Latitude: 40.0, Longitude: -75.0}
}

func TestDraft_PolygonZone(t *testing.T) {
	// Arrange
	p := New(testOrigin(), "p1")
	p.SwitchTool(models.ZoneBuilding)

	p.AddVertex(mgl64.Vec3{0, 0, 0})
	p.AddVertex(mgl64.Vec3{40, 0, 0})
	p.AddVertex(mgl64.Vec3{40, 0, 20})
	p.AddVertex(mgl64.Vec3{0, 0, 20})

	// Act
	draft, err := p.Draft()

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "p1", draft.ProjectID)
	assert.Equal(t, models.ZoneBuilding, draft.ZoneType)
	assert.NotEmpty(t, draft.Color)
	// Closed geographic ring: four vertices plus the repeated first.
	require.Len(t, draft.Coordinates, 5)
	assert.Equal(t, draft.Coordinates[0], draft.Coordinates[4])

	assert.Len(t, p.Vertices(), 4, "drafting does not consume the shape")
	p.Consume()
	assert.Empty(t, p.Vertices())
}

func TestDraft_RoadBuffersCenterline(t *testing.T) {
	// Arrange
	p := New(testOrigin(), "p1")
	p.SwitchTool(models.ZoneRoad)
	p.SetRoadWidth(10)

	// Three waypoints buffer to a six-vertex polygon.
	p.AddVertex(mgl64.Vec3{0, 0, 0})
	p.AddVertex(mgl64.Vec3{50, 0, 0})
	p.AddVertex(mgl64.Vec3{100, 0, -30})

	// Act
	draft, err := p.Draft()

	// Assert
	require.NoError(t, err)
	require.Len(t, draft.Coordinates, 7, "2n buffered vertices plus closing vertex")
	require.NotNil(t, draft.Properties.Width)
	assert.InDelta(t, 10.0, *draft.Properties.Width, 1e-9)
}

func TestDraft_RoadUsesDefaultWidth(t *testing.T) {
	p := New(testOrigin(), "p1")
	p.SwitchTool(models.ZoneRoad)

	p.AddVertex(mgl64.Vec3{0, 0, 0})
	p.AddVertex(mgl64.Vec3{50, 0, 0})

	draft, err := p.Draft()
	require.NoError(t, err)
	require.NotNil(t, draft.Properties.Width)
	assert.InDelta(t, 10.0, *draft.Properties.Width, 1e-9)
}

func TestDraft_RoadRoundTripsItsCenterline(t *testing.T) {
	p := New(testOrigin(), "p1")
	p.SwitchTool(models.ZoneRoad)
	p.SetRoadWidth(12)

	p.AddVertex(mgl64.Vec3{0, 0, 0})
	p.AddVertex(mgl64.Vec3{80, 0, 0})

	draft, err := p.Draft()
	require.NoError(t, err)

	// The renderer sees the draft the same way a persisted zone comes
	// back from the API: a geographic ring it converts to local meters.
	ring := geo.RingToLocal(draft.Coordinates, testOrigin())
	require.Len(t, ring, 5)
}

func TestDraft_TooFewVertices(t *testing.T) {
	p := New(testOrigin(), "p1")
	p.SwitchTool(models.ZoneGreenSpace)
	p.AddVertex(mgl64.Vec3{0, 0, 0})
	p.AddVertex(mgl64.Vec3{10, 0, 0})

	_, err := p.Draft()
	require.Error(t, err)
	assert.Len(t, p.Vertices(), 2, "a failed draft keeps the clicked vertices")
}

func TestSwitchTool_ReturnsPreviousShapeDraft(t *testing.T) {
	// Arrange
	p := New(testOrigin(), "p1")
	p.SwitchTool(models.ZoneParking)
	p.AddVertex(mgl64.Vec3{0, 0, 0})
	p.AddVertex(mgl64.Vec3{20, 0, 0})
	p.AddVertex(mgl64.Vec3{20, 0, 20})

	// Act: switching tools drafts the parking lot first.
	draft, ok := p.SwitchTool(models.ZoneWater)

	// Assert
	require.True(t, ok)
	assert.Equal(t, models.ZoneParking, draft.ZoneType, "shape keeps the tool it was drawn with")
	assert.Equal(t, models.ZoneWater, p.Tool())
	assert.Empty(t, p.Vertices())
}

func TestSwitchTool_DiscardsIncompleteShape(t *testing.T) {
	p := New(testOrigin(), "p1")
	p.SwitchTool(models.ZoneBuilding)
	p.AddVertex(mgl64.Vec3{0, 0, 0})

	_, ok := p.SwitchTool(models.ZoneRoad)
	assert.False(t, ok)
	assert.Empty(t, p.Vertices())
}

func TestSwitchTool_SameToolIsNoOp(t *testing.T) {
	p := New(testOrigin(), "p1")
	p.SwitchTool(models.ZoneBuilding)
	p.AddVertex(mgl64.Vec3{0, 0, 0})
	p.AddVertex(mgl64.Vec3{10, 0, 0})
	p.AddVertex(mgl64.Vec3{10, 0, 10})

	_, ok := p.SwitchTool(models.ZoneBuilding)
	assert.False(t, ok)
	assert.Len(t, p.Vertices(), 3, "re-selecting the active tool keeps the shape")
}

func TestUndoAndCancel(t *testing.T) {
	p := New(testOrigin(), "p1")
	p.SwitchTool(models.ZoneBuilding)
	p.AddVertex(mgl64.Vec3{0, 0, 0})
	p.AddVertex(mgl64.Vec3{1, 0, 0})

	p.Undo()
	assert.Len(t, p.Vertices(), 1)

	p.Cancel()
	assert.Empty(t, p.Vertices())
	assert.Equal(t, models.ZoneBuilding, p.Tool(), "cancel keeps the active tool")
}

func TestAddVertex_IgnoredWithoutTool(t *testing.T) {
	p := New(testOrigin(), "p1")
	p.AddVertex(mgl64.Vec3{0, 0, 0})
	assert.Empty(t, p.Vertices())
}

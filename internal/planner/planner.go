// Package planner implements the interactive zone drawing tools. The
// user clicks ground-plane vertices in scene space; finishing a shape
// converts it back to geographic coordinates and hands the draft to the
// session, which submits it to the backing API.
package planner

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/paulmach/orb"

	"github.com/sitescope/sitescope/internal/geo"
	"github.com/sitescope/sitescope/internal/geometry"
	"github.com/sitescope/sitescope/internal/models"
)

// DefaultRoadWidth is used when a road is drawn without an explicit
// width property.
const DefaultRoadWidth = models.DefaultRoadWidth

// zoneColors are the draw-preview and submission defaults per zone type.
var zoneColors = map[models.ZoneType]string{
	models.ZoneBuilding:        "#8899aa",
	models.ZoneResidential:     "#b5838d",
	models.ZoneRoad:            "#555b66",
	models.ZoneGreenSpace:      "#5a9e6f",
	models.ZoneParking:         "#9aa0a6",
	models.ZoneWater:           "#4a90c2",
	models.ZoneDevelopmentArea: "#d9a03f",
}

// Planner accumulates clicked vertices for the active drawing tool.
// Polygon tools need at least 3 vertices; the road tool needs 2
// waypoints and stores its shape as the buffered centerline polygon.
type Planner struct {
	origin    geo.Origin
	projectID string

	tool      models.ZoneType
	vertices  []geo.LocalPoint
	roadWidth float64
}

// New creates a planner for a project anchored at origin.
func New(origin geo.Origin, projectID string) *Planner {
	return &Planner{
		origin:    origin,
		projectID: projectID,
		roadWidth: DefaultRoadWidth,
	}
}

// Tool returns the active drawing tool, or the empty string when no
// tool is active.
func (p *Planner) Tool() models.ZoneType { return p.tool }

// Vertices returns the in-progress shape's clicked vertices.
func (p *Planner) Vertices() []geo.LocalPoint {
	out := make([]geo.LocalPoint, len(p.vertices))
	copy(out, p.vertices)
	return out
}

// SetRoadWidth sets the buffer width for subsequently finished roads.
func (p *Planner) SetRoadWidth(width float64) {
	if width > 0 {
		p.roadWidth = width
	}
}

// SwitchTool changes the drawing tool and returns the draft of a
// complete in-progress shape under the previous tool, which the caller
// is expected to submit. Switching tools never silently destroys a
// drawable shape; incomplete shapes are discarded.
func (p *Planner) SwitchTool(tool models.ZoneType) (models.Zone, bool) {
	if tool == p.tool {
		return models.Zone{}, false
	}

	var (
		draft models.Zone
		ok    bool
	)
	if p.complete() {
		draft = p.draft()
		ok = true
	}
	p.vertices = nil
	p.tool = tool
	return draft, ok
}

// AddVertex appends a clicked ground point to the in-progress shape.
// Ignored when no tool is active.
func (p *Planner) AddVertex(point mgl64.Vec3) {
	if p.tool == "" {
		return
	}
	p.vertices = append(p.vertices, geo.LocalPoint{X: point.X(), Z: point.Z()})
}

// Undo removes the last clicked vertex.
func (p *Planner) Undo() {
	if n := len(p.vertices); n > 0 {
		p.vertices = p.vertices[:n-1]
	}
}

// Cancel discards the in-progress shape, keeping the active tool.
func (p *Planner) Cancel() {
	p.vertices = nil
}

// Draft validates the in-progress shape and builds the zone it would
// submit, leaving the clicked vertices in place so a failed submission
// can be retried. Callers call Consume once the submission succeeds.
func (p *Planner) Draft() (models.Zone, error) {
	if !p.complete() {
		return models.Zone{}, fmt.Errorf("zone type %q needs %d vertices, have %d",
			p.tool, p.minVertices(), len(p.vertices))
	}
	return p.draft(), nil
}

// Consume clears the in-progress shape after its draft was persisted.
func (p *Planner) Consume() {
	p.vertices = nil
}

// draft builds the geographic zone from the clicked local vertices.
// Roads are stored as the buffered centerline polygon so every zone in
// the store is areal; the renderer recovers the centerline when it
// needs one.
func (p *Planner) draft() models.Zone {
	zone := models.Zone{
		ProjectID: p.projectID,
		ZoneType:  p.tool,
		Color:     zoneColors[p.tool],
	}

	shape := p.vertices
	if p.tool == models.ZoneRoad {
		shape = geometry.BufferCenterline(p.vertices, p.roadWidth)
		w := p.roadWidth
		zone.Properties.Width = &w
	}

	ring := make(orb.Ring, 0, len(shape)+1)
	for _, v := range shape {
		lng, lat := geo.ToGeo(v.X, v.Z, p.origin)
		ring = append(ring, orb.Point{lng, lat})
	}
	ring = append(ring, ring[0])
	zone.Coordinates = ring
	return zone
}

func (p *Planner) complete() bool {
	return p.tool != "" && len(p.vertices) >= p.minVertices()
}

func (p *Planner) minVertices() int {
	if p.tool == models.ZoneRoad {
		return 2
	}
	return 3
}

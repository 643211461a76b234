// Package scene turns persisted project data into renderable geometry:
// building nodes with their render path, zone surfaces, OSM context,
// construction-phase visibility, and the collision volumes the camera
// walks against. Scenes are rebuilt wholesale whenever source data
// changes; nothing in here mutates incrementally.
package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/paulmach/orb"

	"github.com/sitescope/sitescope/internal/geo"
	"github.com/sitescope/sitescope/internal/geometry"
	"github.com/sitescope/sitescope/internal/logger"
	"github.com/sitescope/sitescope/internal/models"
)

// Input bundles everything a scene build consumes.
type Input struct {
	Project *models.Project
	Zones   []models.Zone
	Context *models.ContextData
}

// Graph is one fully built scene.
type Graph struct {
	Origin   geo.Origin                  `json:"origin"`
	Nodes    []Node                      `json:"nodes"`
	Zones    map[string][]*geometry.Mesh `json:"zones"`
	Context  []*geometry.Mesh            `json:"context,omitempty"`
	collider *Collider

	center mgl64.Vec3
	radius float64
}

// Build constructs the scene graph from project data. Every geographic
// coordinate in the input goes through the same resolved origin.
func Build(in Input, log *logger.Logger) *Graph {
	var location *geo.Origin
	var buildings []models.Building
	if in.Project != nil {
		if in.Project.Location != nil {
			location = &geo.Origin{
				Latitude:  in.Project.Location.Latitude,
				Longitude: in.Project.Location.Longitude,
			}
		}
		buildings = in.Project.Buildings
	}

	rings := make([]orb.Ring, 0, len(in.Zones))
	for _, z := range in.Zones {
		rings = append(rings, z.Coordinates)
	}
	origin := geo.ResolveOrigin(location, rings)

	g := &Graph{
		Origin:   origin,
		Zones:    make(map[string][]*geometry.Mesh, len(in.Zones)),
		collider: NewCollider(),
	}

	for i := range buildings {
		b := &buildings[i]
		node := BuildBuilding(b, origin)
		g.Nodes = append(g.Nodes, node)

		if ring := footprintToLocal(b.Footprint, origin); len(ring) >= 3 {
			_, _, height := structure(b)
			g.collider.AddPrism(ring, height)
		}
	}

	for i := range in.Zones {
		z := &in.Zones[i]
		meshes := BuildZone(z, origin)
		if len(meshes) == 0 {
			continue
		}
		g.Zones[z.ID] = meshes

		if z.ZoneType == models.ZoneBuilding || z.ZoneType == models.ZoneResidential {
			ring := geo.RingToLocal(z.Coordinates, origin)
			g.collider.AddPrism(ring, z.HeightOr(DefaultBuildingHeight))
		}
	}

	g.Context = BuildContext(in.Context, origin)
	g.computeBounds()

	if log != nil {
		log.Info("scene built", map[string]interface{}{
			"buildings":      len(g.Nodes),
			"zones":          len(g.Zones),
			"context_meshes": len(g.Context),
			"radius_m":       g.radius,
		})
	}
	return g
}

// Collider returns the scene's walk-mode collision volumes.
func (g *Graph) Collider() *Collider { return g.collider }

// Center returns the scene's bounding center, used to frame camera
// presets.
func (g *Graph) Center() mgl64.Vec3 { return g.center }

// Radius returns the scene's bounding radius in meters.
func (g *Graph) Radius() float64 { return g.radius }

// computeBounds derives the framing sphere from all site meshes.
// Context geometry is excluded so the surroundings do not drag the
// presets away from the site itself.
func (g *Graph) computeBounds() {
	minV := mgl64.Vec3{math.Inf(1), math.Inf(1), math.Inf(1)}
	maxV := mgl64.Vec3{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	any := false

	scan := func(m *geometry.Mesh) {
		for _, v := range m.Vertices {
			any = true
			for i := 0; i < 3; i++ {
				minV[i] = math.Min(minV[i], v[i])
				maxV[i] = math.Max(maxV[i], v[i])
			}
		}
	}

	for _, n := range g.Nodes {
		for _, m := range n.Meshes {
			scan(m)
		}
	}
	for _, meshes := range g.Zones {
		for _, m := range meshes {
			scan(m)
		}
	}

	if !any {
		g.center = mgl64.Vec3{}
		g.radius = 50
		return
	}

	g.center = minV.Add(maxV).Mul(0.5)
	g.radius = maxV.Sub(minV).Len() / 2
	if g.radius < 10 {
		g.radius = 10
	}
}

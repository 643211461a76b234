package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/sitescope/sitescope/internal/geo"
	"github.com/sitescope/sitescope/internal/geometry"
	"github.com/sitescope/sitescope/internal/models"
)

// Structural defaults applied when a building record leaves fields
// unset.
const (
	DefaultFloorHeight    = 3.0
	DefaultBuildingHeight = 10.0

	fallbackWidth = 20.0
	fallbackDepth = 15.0
)

// Node is one building's renderable output: its chosen path and the
// meshes realizing it. Asset-path nodes carry no meshes; the viewer
// streams the referenced model instead.
type Node struct {
	BuildingID string           `json:"building_id"`
	Path       RenderPath       `json:"path"`
	Phase      int              `json:"phase"`
	Meshes     []*geometry.Mesh `json:"meshes,omitempty"`
}

// BuildBuilding realizes one building into a scene node. The footprint
// is transformed into scene space around origin; procedural buildings
// get walls, a roof, and facade details, fallback buildings a plain
// placeholder box.
func BuildBuilding(b *models.Building, origin geo.Origin) Node {
	node := Node{
		BuildingID: b.ID,
		Path:       PathFor(b),
		Phase:      b.Phase(),
	}

	switch node.Path {
	case PathAsset:
		// Meshes come from the streamed model, nothing to build here.
	case PathProcedural:
		node.Meshes = proceduralMeshes(b, origin)
	default:
		node.Meshes = []*geometry.Mesh{fallbackBox(b, origin)}
	}
	return node
}

// structure resolves the building's floor count, floor height, and
// total height from its optional fields. An explicit height is
// authoritative: with a floor count it sets the floor height unless
// that is overridden too. Without a height the floors scale by floor
// height; without floors they derive from the height.
func structure(b *models.Building) (floors int, floorHeight, height float64) {
	floorHeight = DefaultFloorHeight
	explicitFloorHeight := b.FloorHeightMeters != nil && *b.FloorHeightMeters > 0
	if explicitFloorHeight {
		floorHeight = *b.FloorHeightMeters
	}

	if b.FloorCount != nil && *b.FloorCount > 0 {
		floors = *b.FloorCount
		if b.HeightMeters != nil && *b.HeightMeters > 0 {
			height = *b.HeightMeters
			if !explicitFloorHeight {
				floorHeight = height / float64(floors)
			}
		} else {
			height = float64(floors) * floorHeight
		}
		return floors, floorHeight, height
	}

	height = b.HeightOr(DefaultBuildingHeight)
	floors = int(math.Max(1, math.Floor(height/floorHeight)))
	return floors, floorHeight, height
}

func proceduralMeshes(b *models.Building, origin geo.Origin) []*geometry.Mesh {
	ring := footprintToLocal(b.Footprint, origin)
	floors, floorHeight, height := structure(b)

	material := "concrete"
	residential := false
	if b.Specifications != nil {
		if b.Specifications.FacadeMaterial != "" {
			material = b.Specifications.FacadeMaterial
		}
		residential = b.Specifications.Residential
	}

	var meshes []*geometry.Mesh
	add := func(m *geometry.Mesh) {
		if !m.Empty() {
			meshes = append(meshes, m)
		}
	}

	add(geometry.ExtrudeRing(ring, height, "walls", material))

	roof := models.RoofFlat
	if b.RoofType != nil {
		roof = *b.RoofType
	}
	switch roof {
	case models.RoofGabled:
		add(geometry.GabledRoof(ring, height, material))
	case models.RoofHipped:
		add(geometry.HippedRoof(ring, height, material))
	default:
		add(geometry.FlatCap(ring, height, "roof", material))
	}

	walls := geometry.ExtractWallSegments(ring)
	add(geometry.Windows(walls, floors, floorHeight))
	add(geometry.Door(walls))
	add(geometry.FloorLines(walls, floors, floorHeight))
	if roof == models.RoofFlat {
		add(geometry.Cornice(walls, height))
	}
	if residential {
		add(geometry.Balconies(walls, floors, floorHeight))
	}

	return meshes
}

// fallbackBox builds the placeholder for buildings with neither an
// asset nor structural fields: a gray box at the footprint centroid, or
// at the scene origin when there is no footprint at all.
func fallbackBox(b *models.Building, origin geo.Origin) *geometry.Mesh {
	height := b.HeightOr(DefaultBuildingHeight)

	var cx, cz float64
	if ring := footprintToLocal(b.Footprint, origin); len(ring) > 0 {
		for _, p := range ring {
			cx += p.X
			cz += p.Z
		}
		cx /= float64(len(ring))
		cz /= float64(len(ring))
	}

	mesh := geometry.NewMesh("fallback", "placeholder")
	mesh.AddBox(
		mgl64.Vec3{cx, height / 2, cz},
		mgl64.Vec3{fallbackWidth, height, fallbackDepth},
		0,
	)
	return mesh
}

func footprintToLocal(footprint [][2]float64, origin geo.Origin) []geo.LocalPoint {
	pts := make([]geo.LocalPoint, len(footprint))
	for i, c := range footprint {
		pts[i] = geo.ToLocal(c[0], c[1], origin)
	}
	return pts
}

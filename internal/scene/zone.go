package scene

import (
	"math"

	"github.com/sitescope/sitescope/internal/geo"
	"github.com/sitescope/sitescope/internal/geometry"
	"github.com/sitescope/sitescope/internal/models"
)

// flatZoneLift keeps ground-cover zones just above the terrain plane.
const flatZoneLift = 0.01

// flatZoneMaterials maps ground-cover zone types to their surface
// material.
var flatZoneMaterials = map[models.ZoneType]string{
	models.ZoneGreenSpace:      "grass",
	models.ZoneParking:         "asphalt",
	models.ZoneWater:           "water",
	models.ZoneDevelopmentArea: "dirt",
}

// BuildZone realizes a site zone into meshes. Building zones extrude to
// their floor stack, roads rebuild their surface from the recovered
// centerline, and ground-cover zones become flat caps.
func BuildZone(z *models.Zone, origin geo.Origin) []*geometry.Mesh {
	ring := geo.RingToLocal(z.Coordinates, origin)
	if len(ring) < 3 {
		return nil
	}

	switch z.ZoneType {
	case models.ZoneBuilding, models.ZoneResidential:
		return buildingZoneMeshes(z, ring)
	case models.ZoneRoad:
		return roadZoneMeshes(z, ring)
	default:
		m := geometry.FlatCap(ring, flatZoneLift, string(z.ZoneType), flatZoneMaterial(z.ZoneType))
		if m.Empty() {
			return nil
		}
		return []*geometry.Mesh{m}
	}
}

func flatZoneMaterial(zt models.ZoneType) string {
	if mat, ok := flatZoneMaterials[zt]; ok {
		return mat
	}
	return "ground"
}

func buildingZoneMeshes(z *models.Zone, ring []geo.LocalPoint) []*geometry.Mesh {
	floorHeight := DefaultFloorHeight
	explicitFloorHeight := z.Properties.FloorHeight != nil && *z.Properties.FloorHeight > 0
	if explicitFloorHeight {
		floorHeight = *z.Properties.FloorHeight
	}

	var floors int
	var height float64
	if z.Properties.Floors != nil && *z.Properties.Floors > 0 {
		floors = *z.Properties.Floors
		if z.Properties.Height != nil && *z.Properties.Height > 0 {
			height = *z.Properties.Height
			if !explicitFloorHeight {
				floorHeight = height / float64(floors)
			}
		} else {
			height = float64(floors) * floorHeight
		}
	} else {
		height = z.HeightOr(DefaultBuildingHeight)
		floors = int(math.Max(1, math.Floor(height/floorHeight)))
	}

	material := "concrete"
	if z.ZoneType == models.ZoneResidential {
		material = "brick"
	}

	var meshes []*geometry.Mesh
	add := func(m *geometry.Mesh) {
		if !m.Empty() {
			meshes = append(meshes, m)
		}
	}

	add(geometry.ExtrudeRing(ring, height, "walls", material))
	add(geometry.FlatCap(ring, height, "roof", material))

	walls := geometry.ExtractWallSegments(ring)
	add(geometry.Windows(walls, floors, floorHeight))
	if z.ZoneType == models.ZoneResidential {
		add(geometry.Balconies(walls, floors, floorHeight))
	}
	return meshes
}

// roadZoneMeshes rebuilds the road surface from the zone polygon. The
// polygon is assumed to come from this system's own centerline
// buffering; reconstruction silently degrades on externally edited
// rings.
func roadZoneMeshes(z *models.Zone, ring []geo.LocalPoint) []*geometry.Mesh {
	line := geometry.ReconstructCenterline(dropClosing(ring))
	if line == nil {
		// Not a buffered polygon: render the raw ring as a flat surface
		// so the zone is at least visible.
		m := geometry.FlatCap(ring, flatZoneLift, "road", "asphalt")
		if m.Empty() {
			return nil
		}
		return []*geometry.Mesh{m}
	}

	width := z.WidthOr(models.DefaultRoadWidth)
	dashed := z.Properties.RoadType != nil && majorRoadType(*z.Properties.RoadType)

	var meshes []*geometry.Mesh
	add := func(m *geometry.Mesh) {
		if !m.Empty() {
			meshes = append(meshes, m)
		}
	}
	add(geometry.Roadbed(line, width, "road"))
	if dashed {
		add(geometry.CenterlineMarkings(line, true))
	}
	add(geometry.Sidewalks(line, width))
	return meshes
}

func majorRoadType(roadType string) bool {
	switch roadType {
	case "motorway", "trunk", "primary", "secondary":
		return true
	}
	return false
}

func dropClosing(ring []geo.LocalPoint) []geo.LocalPoint {
	n := len(ring)
	if n > 1 && ring[0].X == ring[n-1].X && ring[0].Z == ring[n-1].Z {
		return ring[:n-1]
	}
	return ring
}

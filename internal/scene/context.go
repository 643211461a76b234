package scene

import (
	"github.com/sitescope/sitescope/internal/geo"
	"github.com/sitescope/sitescope/internal/geometry"
	"github.com/sitescope/sitescope/internal/models"
)

// Context building defaults for OSM records that carry neither a height
// nor a level count.
const (
	contextLevelHeight       = 3.0
	contextDefaultHeight     = 6.0
	contextRoadFallbackWidth = 6.0
)

// BuildContext realizes the OSM surroundings as muted geometry: plain
// extrusions for neighboring buildings and surface ribbons for roads.
// Context meshes never carry facade details; they exist to anchor the
// site in its environment, not to compete with it.
func BuildContext(data *models.ContextData, origin geo.Origin) []*geometry.Mesh {
	if data == nil {
		return nil
	}

	var meshes []*geometry.Mesh
	add := func(m *geometry.Mesh) {
		if !m.Empty() {
			meshes = append(meshes, m)
		}
	}

	for i := range data.Buildings {
		b := &data.Buildings[i]
		ring := geo.RingToLocal(b.Ring, origin)
		if len(ring) < 3 {
			continue
		}

		height := b.Height
		if height <= 0 && b.Levels > 0 {
			height = float64(b.Levels) * contextLevelHeight
		}
		if height <= 0 {
			height = contextDefaultHeight
		}

		add(geometry.ExtrudeRing(ring, height, "context_building", "context"))
		add(geometry.FlatCap(ring, height, "context_roof", "context"))
	}

	for i := range data.Roads {
		r := &data.Roads[i]
		line := make([]geo.LocalPoint, len(r.Centerline))
		for j, p := range r.Centerline {
			line[j] = geo.ToLocal(p[0], p[1], origin)
		}
		if len(line) < 2 {
			continue
		}

		width := r.Width
		if width <= 0 {
			width = contextRoadFallbackWidth
		}

		add(geometry.Roadbed(line, width, "context_road"))
		if r.Major() {
			add(geometry.CenterlineMarkings(line, true))
		}
	}

	return meshes
}

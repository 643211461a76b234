package scene

import (
	"github.com/sitescope/sitescope/internal/models"
)

// RenderPath selects how a building is realized in the scene.
type RenderPath string

const (
	// PathAsset renders an imported 3D model, preferring LOD variants.
	PathAsset RenderPath = "asset"
	// PathProcedural generates the full extrusion with roof and facade
	// details from the building's structural fields.
	PathProcedural RenderPath = "procedural"
	// PathFallback renders a minimal placeholder box.
	PathFallback RenderPath = "fallback"
)

// PathFor decides the render path for a building. The decision is a
// pure function of the record so the same building always renders the
// same way: an imported asset wins over structural fields, and anything
// without either gets the placeholder.
func PathFor(b *models.Building) RenderPath {
	if b.HasAsset() {
		return PathAsset
	}
	if b.HasStructure() && len(b.Footprint) >= 3 {
		return PathProcedural
	}
	return PathFallback
}

package models

// RoofType enumerates the roof geometries the procedural builder knows how
// to generate. Unknown values fall back to flat.
type RoofType string

const (
	RoofFlat   RoofType = "flat"
	RoofGabled RoofType = "gabled"
	RoofHipped RoofType = "hipped"
)

// BuildingSpecifications carries free-form design metadata attached to a
// building record. Only the fields the renderer consumes are modeled.
type BuildingSpecifications struct {
	FacadeMaterial string `json:"facade_material,omitempty"`
	Residential    bool   `json:"residential,omitempty"`
}

// Building is a persisted building record from the external API. Which of
// the three render paths applies (imported asset, procedural extrusion, or
// minimal fallback box) is decided per render from these fields, never
// stored.
type Building struct {
	ID                string                  `json:"id"`
	ProjectID         string                  `json:"project_id"`
	Name              string                  `json:"name,omitempty"`
	HeightMeters      *float64                `json:"height_meters,omitempty"`
	FloorCount        *int                    `json:"floor_count,omitempty"`
	FloorHeightMeters *float64                `json:"floor_height_meters,omitempty"`
	RoofType          *RoofType               `json:"roof_type,omitempty"`
	ConstructionPhase *int                    `json:"construction_phase,omitempty"`
	ModelURL          *string                 `json:"model_url,omitempty"`
	LODURLs           map[string]string       `json:"lod_urls,omitempty"`
	Footprint         [][2]float64            `json:"footprint_coordinates,omitempty"`
	Specifications    *BuildingSpecifications `json:"specifications,omitempty"`
}

// HasAsset reports whether the building carries an imported 3D asset,
// either a single model or a set of LOD variants.
func (b *Building) HasAsset() bool {
	return (b.ModelURL != nil && *b.ModelURL != "") || len(b.LODURLs) > 0
}

// HasStructure reports whether the building carries the structural fields
// that drive the detailed procedural path.
func (b *Building) HasStructure() bool {
	return b.FloorCount != nil || b.RoofType != nil
}

// HeightOr returns the building height or the given default.
func (b *Building) HeightOr(def float64) float64 {
	if b.HeightMeters != nil {
		return *b.HeightMeters
	}
	return def
}

// Phase returns the building's construction phase, defaulting to phase 0
// (present from the start) when untagged.
func (b *Building) Phase() int {
	if b.ConstructionPhase != nil {
		return *b.ConstructionPhase
	}
	return 0
}

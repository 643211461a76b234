package models

// Location is a project's geographic anchor. It becomes the scene origin
// when present.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address,omitempty"`
}

// ConstructionPhase is one stage of a project's development timeline.
// Buildings tagged with a phase number become visible once the effective
// phase reaches that number.
type ConstructionPhase struct {
	Number int    `json:"number"`
	Name   string `json:"name"`
}

// Project is a development project as served by the external API. The
// engine treats it as read-only input for scene construction.
type Project struct {
	ID                 string              `json:"id"`
	Name               string              `json:"name"`
	Location           *Location           `json:"location,omitempty"`
	Buildings          []Building          `json:"buildings,omitempty"`
	ConstructionPhases []ConstructionPhase `json:"construction_phases,omitempty"`
}

// MaxPhase returns the highest defined phase number, or 0 for projects
// without a phase timeline.
func (p *Project) MaxPhase() int {
	max := 0
	for _, ph := range p.ConstructionPhases {
		if ph.Number > max {
			max = ph.Number
		}
	}
	return max
}

// Annotation is a persisted point annotation placed in the 3D scene.
// Position is in scene meters [x, y, z].
type Annotation struct {
	ID         string     `json:"id"`
	ProjectID  string     `json:"project_id"`
	BuildingID *string    `json:"building_id,omitempty"`
	Position   [3]float64 `json:"position"`
	Label      string     `json:"label"`
	Body       string     `json:"body,omitempty"`
	Color      string     `json:"color,omitempty"`
}

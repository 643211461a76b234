package models

import "github.com/paulmach/orb"

// ContextBuilding is an OSM-derived building footprint surrounding the
// project site, used for context rendering only. The ring is geographic
// [[lng, lat], ...] and goes through the same coordinate transform as
// zones.
type ContextBuilding struct {
	ID     string   `json:"id"`
	Ring   orb.Ring `json:"coordinates"`
	Height float64  `json:"height"`
	Levels int      `json:"levels,omitempty"`
}

// ContextRoad is an OSM-derived road centerline with its rendering width
// and classification.
type ContextRoad struct {
	ID         string         `json:"id"`
	Centerline orb.LineString `json:"centerline"`
	Width      float64        `json:"width"`
	RoadType   string         `json:"road_type"`
}

// Major reports whether the road class warrants painted centerline
// markings in the scene.
func (r *ContextRoad) Major() bool {
	switch r.RoadType {
	case "motorway", "trunk", "primary", "secondary":
		return true
	}
	return false
}

// ContextData bundles one context fetch around the project site.
type ContextData struct {
	Buildings []ContextBuilding `json:"buildings"`
	Roads     []ContextRoad     `json:"roads"`
}

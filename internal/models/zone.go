package models

import (
	"github.com/paulmach/orb"
)

// ZoneType enumerates the kinds of site zones the planner can draw and the
// scene can render.
type ZoneType string

const (
	ZoneBuilding        ZoneType = "building"
	ZoneResidential     ZoneType = "residential"
	ZoneRoad            ZoneType = "road"
	ZoneGreenSpace      ZoneType = "green_space"
	ZoneParking         ZoneType = "parking"
	ZoneWater           ZoneType = "water"
	ZoneDevelopmentArea ZoneType = "development_area"
)

// DefaultRoadWidth is the width in meters for road zones drawn or
// rendered without an explicit width property.
const DefaultRoadWidth = 10.0

// AreaZone reports whether the zone type is an areal shape requiring a ring
// of at least 3 vertices. Road zones are linear: they are stored as a
// buffered polygon derived from a centerline and only need 2 waypoints.
func (zt ZoneType) AreaZone() bool {
	return zt != ZoneRoad
}

// ZoneProperties is the type-specific property bag attached to a zone.
// All fields are optional; renderers apply their own defaults.
type ZoneProperties struct {
	Height      *float64 `json:"height,omitempty"`
	Floors      *int     `json:"floors,omitempty"`
	FloorHeight *float64 `json:"floor_height,omitempty"`
	Width       *float64 `json:"width,omitempty"`
	TreeDensity *float64 `json:"tree_density,omitempty"`
	RoadType    *string  `json:"road_type,omitempty"`
}

// Zone is a persisted 2D polygon (or buffered line) on the ground plane.
// Coordinates are geographic [[lng, lat], ...] vertices; the external API
// is the source of truth and the renderer only ever holds a derived copy.
type Zone struct {
	ID          string         `json:"id"`
	ProjectID   string         `json:"project_id"`
	Name        string         `json:"name,omitempty"`
	ZoneType    ZoneType       `json:"zone_type"`
	Coordinates orb.Ring       `json:"coordinates"`
	Color       string         `json:"color,omitempty"`
	Properties  ZoneProperties `json:"properties"`
}

// HeightOr returns the zone's height property or the given default.
func (z *Zone) HeightOr(def float64) float64 {
	if z.Properties.Height != nil {
		return *z.Properties.Height
	}
	return def
}

// FloorsOr returns the zone's floor count property or the given default.
func (z *Zone) FloorsOr(def int) int {
	if z.Properties.Floors != nil {
		return *z.Properties.Floors
	}
	return def
}

// WidthOr returns the zone's width property or the given default. Only
// meaningful for road zones.
func (z *Zone) WidthOr(def float64) float64 {
	if z.Properties.Width != nil {
		return *z.Properties.Width
	}
	return def
}

package geo

import (
	"math"

	"github.com/paulmach/orb"
)

// Flat-Earth conversion constants.
const (
	// MetersPerDegree is the ground distance covered by one degree of
	// latitude. Longitude degrees shrink by cos(latitude).
	MetersPerDegree = 111320.0
)

// Origin is the fixed geographic reference point for one scene session.
// Every entity in a scene must be converted through the same origin or the
// zones, buildings, OSM context, and map background drift apart.
type Origin struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// LocalPoint is a position on the scene ground plane in meters relative to
// the origin. X grows east, Z grows south (north is -Z). LocalPoints are
// derived values and are never persisted.
type LocalPoint struct {
	X float64 `json:"x"`
	Z float64 `json:"z"`
}

// ToLocal converts a geographic coordinate to scene meters using a
// flat-Earth approximation. The approximation is valid for site extents up
// to a few kilometers, which covers every development-site scene.
func ToLocal(lng, lat float64, origin Origin) LocalPoint {
	latScale := MetersPerDegree
	lngScale := MetersPerDegree * math.Cos(origin.Latitude*math.Pi/180)

	return LocalPoint{
		X: (lng - origin.Longitude) * lngScale,
		Z: -(lat - origin.Latitude) * latScale,
	}
}

// ToGeo converts scene meters back to a geographic coordinate. It is the
// exact inverse of ToLocal for the same origin, stable under round-trip to
// well under a millimeter.
func ToGeo(x, z float64, origin Origin) (lng, lat float64) {
	latScale := MetersPerDegree
	lngScale := MetersPerDegree * math.Cos(origin.Latitude*math.Pi/180)

	lng = origin.Longitude + x/lngScale
	lat = origin.Latitude - z/latScale
	return lng, lat
}

// RingToLocal converts a geographic ring ([[lng,lat], ...]) to local
// ground-plane points through a shared origin.
func RingToLocal(ring orb.Ring, origin Origin) []LocalPoint {
	pts := make([]LocalPoint, 0, len(ring))
	for _, p := range ring {
		pts = append(pts, ToLocal(p.Lon(), p.Lat(), origin))
	}
	return pts
}

// ResolveOrigin picks the scene origin: the project's own location when it
// has one, otherwise the centroid of all available zone coordinates. A
// scene with neither falls back to the zero origin, which still yields a
// self-consistent (if unanchored) local frame.
func ResolveOrigin(location *Origin, rings []orb.Ring) Origin {
	if location != nil {
		return *location
	}

	var sumLng, sumLat float64
	var count int
	for _, ring := range rings {
		for _, p := range ring {
			sumLng += p.Lon()
			sumLat += p.Lat()
			count++
		}
	}
	if count == 0 {
		return Origin{}
	}

	return Origin{
		Latitude:  sumLat / float64(count),
		Longitude: sumLng / float64(count),
	}
}

// Distance returns the ground-plane distance in meters between two local
// points.
func (p LocalPoint) Distance(q LocalPoint) float64 {
	return math.Hypot(q.X-p.X, q.Z-p.Z)
}

// Add returns p + q.
func (p LocalPoint) Add(q LocalPoint) LocalPoint {
	return LocalPoint{p.X + q.X, p.Z + q.Z}
}

// Sub returns p - q.
func (p LocalPoint) Sub(q LocalPoint) LocalPoint {
	return LocalPoint{p.X - q.X, p.Z - q.Z}
}

// Scale returns p * s.
func (p LocalPoint) Scale(s float64) LocalPoint {
	return LocalPoint{p.X * s, p.Z * s}
}

package geo

import "math"

// Web-Mercator constants used to translate between the 3D camera's implied
// ground resolution and a 2D map renderer's zoom level.
const (
	// MetersPerPixelZoom0 is the Web-Mercator ground resolution at the
	// equator for zoom level 0 with 256px tiles.
	MetersPerPixelZoom0 = 156543.034

	MinZoom = 0.0
	MaxZoom = 22.0
)

// MetersPerPixel returns the Web-Mercator ground resolution at the given
// latitude and fractional zoom level.
func MetersPerPixel(lat, zoom float64) float64 {
	return MetersPerPixelZoom0 * math.Cos(lat*math.Pi/180) / math.Pow(2, zoom)
}

// ZoomForMetersPerPixel inverts MetersPerPixel: it returns the fractional
// zoom level at which the map renders the given ground resolution at the
// given latitude. The result is clamped to the renderer's valid zoom range.
func ZoomForMetersPerPixel(lat, mpp float64) float64 {
	if mpp <= 0 {
		return MaxZoom
	}
	zoom := math.Log2(MetersPerPixelZoom0 * math.Cos(lat*math.Pi/180) / mpp)
	return math.Max(MinZoom, math.Min(MaxZoom, zoom))
}

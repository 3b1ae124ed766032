// Package geo owns the persistent geographic projection, country topology
// and keyed marker animation of the map layer.
package geo

import "math"

// Point is a canvas position in virtual pixels.
type Point struct {
	X, Y float64
}

// Projection maps lon/lat onto the canvas. It is a plain value: the animator
// re-derives one from its interpolated state every frame, rendering code
// never mutates it.
type Projection struct {
	CenterLon, CenterLat float64
	Scale                float64 // pixels per degree of longitude
	Width, Height        float64
}

// Project converts a geographic position to canvas coordinates. Latitude is
// compressed by the cosine of the projection center, a locally conformal
// equirectangular variant that keeps small regions visually undistorted.
func (p Projection) Project(lon, lat float64) Point {
	k := math.Cos(p.CenterLat * math.Pi / 180)
	if k < 0.05 {
		k = 0.05
	}
	return Point{
		X: p.Width/2 + (lon-p.CenterLon)*p.Scale*k,
		Y: p.Height/2 - (lat-p.CenterLat)*p.Scale,
	}
}

// ScaleForZoom converts the directive zoom factor to projection scale for
// the given canvas width. Zoom 1 fits the whole longitude range.
func ScaleForZoom(zoom, width float64) float64 {
	if zoom <= 0 {
		zoom = 1
	}
	return width / 360 * zoom
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Package spatial provides helpers for deriving geographic bounds from the
// GeoJSON bounding boxes recorded in gantry spatial metadata.
package spatial

import (
	"fmt"

	"github.com/paulmach/orb/geojson"
)

// Bounds describes the geographic extent of a capture in decimal degrees
// (EPSG:4326).
type Bounds struct {
	LatMin float64
	LatMax float64
	LonMin float64
	LonMax float64
}

// BoundsFromGeoJSON derives a Bounds instance from an encoded GeoJSON
// geometry, typically the 'bounding_box' polygon recorded in a capture's
// spatial metadata.
func BoundsFromGeoJSON(body []byte) (*Bounds, error) {

	geom, err := geojson.UnmarshalGeometry(body)

	if err != nil {
		return nil, fmt.Errorf("Failed to parse GeoJSON geometry, %w", err)
	}

	bound := geom.Geometry().Bound()

	b := &Bounds{
		LatMin: bound.Min.Lat(),
		LatMax: bound.Max.Lat(),
		LonMin: bound.Min.Lon(),
		LonMax: bound.Max.Lon(),
	}

	return b, nil
}

// Width returns the east-west extent of b in decimal degrees.
func (b *Bounds) Width() float64 {
	return b.LonMax - b.LonMin
}

// Height returns the north-south extent of b in decimal degrees.
func (b *Bounds) Height() float64 {
	return b.LatMax - b.LatMin
}

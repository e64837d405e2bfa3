package sections

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"

	"github.com/navojoa/electoral-map/internal/spatial"
)

type indexedSection struct {
	id       string
	bound    orb.Bound
	geometry orb.Geometry
	centroid orb.Point
}

// Locator finds the section that contains a point
type Locator struct {
	sections []indexedSection
}

// NewLocator indexes the polygon features of fc that carry a section id
func NewLocator(fc *geojson.FeatureCollection) *Locator {
	loc := &Locator{}
	if fc == nil {
		return loc
	}
	for _, f := range fc.Features {
		id := SectionID(f)
		if id == "" || f.Geometry == nil {
			continue
		}
		switch f.Geometry.(type) {
		case orb.Polygon, orb.MultiPolygon:
		default:
			continue
		}
		c, _ := planar.CentroidArea(f.Geometry)
		loc.sections = append(loc.sections, indexedSection{
			id:       id,
			bound:    f.Geometry.Bound(),
			geometry: f.Geometry,
			centroid: c,
		})
	}
	return loc
}

// Len returns the number of indexed sections
func (l *Locator) Len() int {
	return len(l.sections)
}

// Contains returns the section whose polygon contains (lat, lng)
func (l *Locator) Contains(lat, lng float64) (string, bool) {
	pt := orb.Point{lng, lat}
	for _, s := range l.sections {
		if !s.bound.Contains(pt) {
			continue
		}
		switch g := s.geometry.(type) {
		case orb.Polygon:
			if planar.PolygonContains(g, pt) {
				return s.id, true
			}
		case orb.MultiPolygon:
			if planar.MultiPolygonContains(g, pt) {
				return s.id, true
			}
		}
	}
	return "", false
}

// Nearest returns the section whose centroid is closest to (lat, lng) within maxKm
func (l *Locator) Nearest(lat, lng, maxKm float64) (string, bool) {
	pt := orb.Point{lng, lat}
	best, bestM := "", math.MaxFloat64
	for _, s := range l.sections {
		d := spatial.PointDistance(pt, s.centroid)
		if d < bestM {
			best, bestM = s.id, d
		}
	}
	if best == "" || bestM > maxKm*1000 {
		return "", false
	}
	return best, true
}

// Locate tries containment first and falls back to the nearest centroid
func (l *Locator) Locate(lat, lng, maxKm float64) (string, bool) {
	if id, ok := l.Contains(lat, lng); ok {
		return id, true
	}
	return l.Nearest(lat, lng, maxKm)
}

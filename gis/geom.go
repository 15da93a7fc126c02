package gis

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Geometry predicates and distances used by the detectors. All math is
// planar: field-survey layers live in projected coordinate systems where
// units are meters.

// Intersects reports whether two geometries share any space: containment
// either way, or zero separation between their boundaries.
func Intersects(a, b orb.Geometry) bool {
	if a == nil || b == nil {
		return false
	}
	if !a.Bound().Intersects(b.Bound()) {
		return false
	}
	if containsAnyVertex(a, b) || containsAnyVertex(b, a) {
		return true
	}
	return GeometryDistance(a, b) == 0
}

// GeometryDistance returns the planar distance between two geometries,
// zero when they touch or overlap. Non-point geometries are measured over
// their vertices against the other geometry's full boundary.
func GeometryDistance(a, b orb.Geometry) float64 {
	if a == nil || b == nil {
		return math.Inf(1)
	}
	if p, ok := asPoint(a); ok {
		return DistanceToGeometry(p, b)
	}
	if p, ok := asPoint(b); ok {
		return DistanceToGeometry(p, a)
	}
	min := math.Inf(1)
	for _, v := range vertices(a) {
		if d := DistanceToGeometry(v, b); d < min {
			min = d
		}
	}
	for _, v := range vertices(b) {
		if d := DistanceToGeometry(v, a); d < min {
			min = d
		}
	}
	return min
}

// DistanceToGeometry returns the planar distance from a point to a
// geometry, zero when the point lies on or inside it.
func DistanceToGeometry(p orb.Point, g orb.Geometry) float64 {
	switch geom := g.(type) {
	case orb.Point:
		return planar.Distance(p, geom)
	case orb.MultiPoint:
		min := math.Inf(1)
		for _, q := range geom {
			if d := planar.Distance(p, q); d < min {
				min = d
			}
		}
		return min
	case orb.LineString:
		return distanceToLine(p, geom)
	case orb.Polygon:
		if planar.PolygonContains(geom, p) {
			return 0
		}
		return distanceToRings(p, geom)
	case orb.MultiPolygon:
		if planar.MultiPolygonContains(geom, p) {
			return 0
		}
		min := math.Inf(1)
		for _, poly := range geom {
			if d := distanceToRings(p, poly); d < min {
				min = d
			}
		}
		return min
	}
	return math.Inf(1)
}

// Contains reports whether the area geometry topologically contains the
// entity geometry. Points are tested directly; line and polygon entities
// are contained when all of their vertices are.
func Contains(area, g orb.Geometry) bool {
	if area == nil || g == nil {
		return false
	}
	vs := vertices(g)
	if len(vs) == 0 {
		return false
	}
	for _, v := range vs {
		if !containsPoint(area, v) {
			return false
		}
	}
	return true
}

// BoundaryDistance returns the distance from the entity geometry to the
// area geometry's boundary, used to grade how far outside an entity sits.
func BoundaryDistance(area, g orb.Geometry) float64 {
	return GeometryDistance(area, g)
}

func containsPoint(g orb.Geometry, p orb.Point) bool {
	switch geom := g.(type) {
	case orb.Polygon:
		return planar.PolygonContains(geom, p)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(geom, p)
	case orb.Point:
		return geom == p
	}
	return false
}

func containsAnyVertex(container, g orb.Geometry) bool {
	switch container.(type) {
	case orb.Polygon, orb.MultiPolygon:
	default:
		return false
	}
	for _, v := range vertices(g) {
		if containsPoint(container, v) {
			return true
		}
	}
	return false
}

func asPoint(g orb.Geometry) (orb.Point, bool) {
	p, ok := g.(orb.Point)
	return p, ok
}

func vertices(g orb.Geometry) []orb.Point {
	switch geom := g.(type) {
	case orb.Point:
		return []orb.Point{geom}
	case orb.MultiPoint:
		return geom
	case orb.LineString:
		return geom
	case orb.Polygon:
		var out []orb.Point
		for _, ring := range geom {
			out = append(out, ring...)
		}
		return out
	case orb.MultiPolygon:
		var out []orb.Point
		for _, poly := range geom {
			for _, ring := range poly {
				out = append(out, ring...)
			}
		}
		return out
	}
	return nil
}

func distanceToLine(p orb.Point, line orb.LineString) float64 {
	min := math.Inf(1)
	for i := 0; i+1 < len(line); i++ {
		if d := distanceToSegment(p, line[i], line[i+1]); d < min {
			min = d
		}
	}
	if len(line) == 1 {
		return planar.Distance(p, line[0])
	}
	return min
}

func distanceToRings(p orb.Point, poly orb.Polygon) float64 {
	min := math.Inf(1)
	for _, ring := range poly {
		for i := 0; i+1 < len(ring); i++ {
			if d := distanceToSegment(p, ring[i], ring[i+1]); d < min {
				min = d
			}
		}
		// Rings may omit the closing segment.
		if len(ring) > 1 && ring[0] != ring[len(ring)-1] {
			if d := distanceToSegment(p, ring[len(ring)-1], ring[0]); d < min {
				min = d
			}
		}
	}
	return min
}

func distanceToSegment(p, a, b orb.Point) float64 {
	dx := b[0] - a[0]
	dy := b[1] - a[1]
	if dx == 0 && dy == 0 {
		return planar.Distance(p, a)
	}
	t := ((p[0]-a[0])*dx + (p[1]-a[1])*dy) / (dx*dx + dy*dy)
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return planar.Distance(p, orb.Point{a[0] + t*dx, a[1] + t*dy})
}

package gis

import (
	"github.com/paulmach/orb"
	"github.com/tidwall/rtree"
)

// SpatialIndex is a bounding-box index over a layer's features, backing
// global proximity queries where no relation scopes the comparison.
type SpatialIndex struct {
	tr rtree.RTreeG[*Feature]
}

// NewSpatialIndex indexes every feature of the layer that has geometry.
func NewSpatialIndex(l *Layer) *SpatialIndex {
	idx := &SpatialIndex{}
	if l == nil {
		return idx
	}
	for _, f := range l.Features {
		idx.Insert(f)
	}
	return idx
}

// Insert adds one feature under its geometry's bounding box. Features
// without geometry are ignored.
func (idx *SpatialIndex) Insert(f *Feature) {
	if f == nil || !f.HasGeometry() {
		return
	}
	b := f.Geometry.Bound()
	idx.tr.Insert([2]float64{b.Min[0], b.Min[1]}, [2]float64{b.Max[0], b.Max[1]}, f)
}

// Search calls fn for every indexed feature whose bounding box intersects
// the given bound. Returning false from fn stops the scan.
func (idx *SpatialIndex) Search(b orb.Bound, fn func(*Feature) bool) {
	idx.tr.Search(
		[2]float64{b.Min[0], b.Min[1]},
		[2]float64{b.Max[0], b.Max[1]},
		func(_, _ [2]float64, f *Feature) bool {
			return fn(f)
		},
	)
}

// Len reports the number of indexed features.
func (idx *SpatialIndex) Len() int {
	return idx.tr.Len()
}

// PairSet tracks unordered feature-id pairs so each pair is evaluated at
// most once regardless of discovery order.
type PairSet map[[2]int64]struct{}

// Add canonicalizes the pair and records it, reporting whether it was new.
func (s PairSet) Add(a, b int64) bool {
	if a > b {
		a, b = b, a
	}
	key := [2]int64{a, b}
	if _, seen := s[key]; seen {
		return false
	}
	s[key] = struct{}{}
	return true
}

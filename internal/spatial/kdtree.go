package spatial

import (
	"math"
	"sort"

	"github.com/golang/geo/s2"
)

// PointIndex is a k-d tree over unit-sphere embeddings of lat/lon points.
// Points are stored as 3-D unit vectors; chordal distance on the unit sphere
// is monotonic in great-circle distance, so nearest-chord lookups return the
// nearest-haversine point. Build is O(n log n), queries O(log n) expected.
type PointIndex struct {
	pts  []s2.Point
	root *kdNode
}

type kdNode struct {
	index int // into pts
	axis  int
	left  *kdNode
	right *kdNode
}

// NewPointIndex builds an index over the given coordinates. The two slices
// must have equal length; returned indices refer to the input order.
func NewPointIndex(lats, lons []float64) *PointIndex {
	n := len(lats)
	pts := make([]s2.Point, n)
	for i := 0; i < n; i++ {
		pts[i] = s2.PointFromLatLng(s2.LatLngFromDegrees(lats[i], lons[i]))
	}

	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}

	idx := &PointIndex{pts: pts}
	idx.root = idx.build(indices, 0)
	return idx
}

// Len returns the number of indexed points.
func (x *PointIndex) Len() int {
	return len(x.pts)
}

func (x *PointIndex) build(indices []int, depth int) *kdNode {
	if len(indices) == 0 {
		return nil
	}

	axis := depth % 3
	sort.Slice(indices, func(i, j int) bool {
		return coord(x.pts[indices[i]], axis) < coord(x.pts[indices[j]], axis)
	})

	median := len(indices) / 2
	node := &kdNode{index: indices[median], axis: axis}
	node.left = x.build(indices[:median], depth+1)
	node.right = x.build(indices[median+1:], depth+1)
	return node
}

// Nearest returns the index of the nearest point to (lat, lon) and its
// great-circle distance in kilometers. Returns (-1, NaN) on an empty index.
func (x *PointIndex) Nearest(lat, lon float64) (int, float64) {
	if x.root == nil {
		return -1, math.NaN()
	}

	query := s2.PointFromLatLng(s2.LatLngFromDegrees(lat, lon))
	best := -1
	bestChord2 := math.Inf(1)
	x.nearest(x.root, query, &best, &bestChord2)

	return best, chord2ToKm(bestChord2)
}

func (x *PointIndex) nearest(node *kdNode, query s2.Point, best *int, bestChord2 *float64) {
	if node == nil {
		return
	}

	d2 := chord2(x.pts[node.index], query)
	if d2 < *bestChord2 {
		*bestChord2 = d2
		*best = node.index
	}

	diff := coord(query, node.axis) - coord(x.pts[node.index], node.axis)
	near, far := node.left, node.right
	if diff > 0 {
		near, far = node.right, node.left
	}

	x.nearest(near, query, best, bestChord2)
	// Only cross the splitting plane when it can still hold a closer point
	if diff*diff < *bestChord2 {
		x.nearest(far, query, best, bestChord2)
	}
}

// Within returns the indices of all points within radiusKm of (lat, lon).
// Order of the result is unspecified.
func (x *PointIndex) Within(lat, lon, radiusKm float64) []int {
	if x.root == nil {
		return nil
	}

	query := s2.PointFromLatLng(s2.LatLngFromDegrees(lat, lon))
	maxChord2 := kmToChord2(radiusKm)

	var result []int
	x.within(x.root, query, maxChord2, &result)
	return result
}

func (x *PointIndex) within(node *kdNode, query s2.Point, maxChord2 float64, result *[]int) {
	if node == nil {
		return
	}

	if chord2(x.pts[node.index], query) <= maxChord2 {
		*result = append(*result, node.index)
	}

	diff := coord(query, node.axis) - coord(x.pts[node.index], node.axis)
	near, far := node.left, node.right
	if diff > 0 {
		near, far = node.right, node.left
	}

	x.within(near, query, maxChord2, result)
	if diff*diff <= maxChord2 {
		x.within(far, query, maxChord2, result)
	}
}

func coord(p s2.Point, axis int) float64 {
	switch axis {
	case 0:
		return p.X
	case 1:
		return p.Y
	default:
		return p.Z
	}
}

// chord2 is the squared Euclidean distance between two unit vectors.
func chord2(a, b s2.Point) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return dx*dx + dy*dy + dz*dz
}

// chord2ToKm converts a squared chord length to great-circle kilometers.
func chord2ToKm(c2 float64) float64 {
	half := math.Sqrt(c2) / 2
	if half > 1 {
		half = 1
	}
	return 2 * math.Asin(half) * EarthRadiusKm
}

// kmToChord2 converts a great-circle radius in kilometers to the squared
// chord length bound used for pruning.
func kmToChord2(km float64) float64 {
	theta := km / EarthRadiusKm
	if theta > math.Pi {
		theta = math.Pi
	}
	c := 2 * math.Sin(theta/2)
	return c * c
}

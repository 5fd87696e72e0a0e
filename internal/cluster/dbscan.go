package cluster

import (
	"github.com/movewild/refugia-backend-go/internal/models"
	"github.com/movewild/refugia-backend-go/internal/spatial"
)

const unvisited = -2

// DBSCAN performs density-based clustering over lat/lon points with a
// haversine neighborhood radius of epsKM kilometers and a density requirement
// of minPts points per neighborhood (the query point included). Returns one
// cluster id per input point; models.NoiseCluster marks unclustered points.
//
// The assignment slice is built once and treated as immutable output.
func DBSCAN(lats, lons []float64, epsKM float64, minPts int) []int {
	n := len(lats)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = unvisited
	}
	if n == 0 {
		return labels
	}

	index := spatial.NewPointIndex(lats, lons)
	clusterID := 0

	for i := 0; i < n; i++ {
		if labels[i] != unvisited {
			continue
		}

		neighbors := index.Within(lats[i], lons[i], epsKM)
		if len(neighbors) < minPts {
			labels[i] = models.NoiseCluster
			continue
		}

		labels[i] = clusterID
		queue := append([]int(nil), neighbors...)

		for len(queue) > 0 {
			j := queue[0]
			queue = queue[1:]

			if labels[j] == models.NoiseCluster {
				// Border point reachable from a core point
				labels[j] = clusterID
			}
			if labels[j] != unvisited {
				continue
			}
			labels[j] = clusterID

			jNeighbors := index.Within(lats[j], lons[j], epsKM)
			if len(jNeighbors) >= minPts {
				queue = append(queue, jNeighbors...)
			}
		}

		clusterID++
	}

	return labels
}

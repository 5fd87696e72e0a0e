package cluster

import (
	"math"

	"github.com/movewild/refugia-backend-go/internal/models"
	"github.com/movewild/refugia-backend-go/internal/spatial"
)

// AssignLabels propagates refugia labels onto every heat-exposed point by
// proximity to the nearest refugia-cluster centroid: label 1 iff that
// distance is at most radiusKM. When no refugia clusters exist every point
// labels 0 with the noise sentinel as nearest cluster.
func AssignLabels(points []models.ClusteredPoint, clusters []models.RefugiaCluster, radiusKM float64) []models.LabeledPoint {
	var refugia []models.RefugiaCluster
	for _, c := range clusters {
		if c.IsRefugia {
			refugia = append(refugia, c)
		}
	}

	labeled := make([]models.LabeledPoint, len(points))

	if len(refugia) == 0 {
		for i, p := range points {
			labeled[i] = models.LabeledPoint{
				ClusteredPoint:   p,
				Label:            0,
				NearestClusterID: models.NoiseCluster,
				DistanceKM:       math.NaN(),
			}
		}
		return labeled
	}

	lats := make([]float64, len(refugia))
	lons := make([]float64, len(refugia))
	for i, c := range refugia {
		lats[i] = c.CentroidLat
		lons[i] = c.CentroidLon
	}
	index := spatial.NewPointIndex(lats, lons)

	for i, p := range points {
		nearest, distKM := index.Nearest(p.Lat, p.Lon)
		label := 0
		if distKM <= radiusKM {
			label = 1
		}
		labeled[i] = models.LabeledPoint{
			ClusteredPoint:   p,
			Label:            label,
			NearestClusterID: refugia[nearest].ClusterID,
			DistanceKM:       distKM,
		}
	}

	return labeled
}

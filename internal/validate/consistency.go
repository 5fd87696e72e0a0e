package validate

import (
	"sort"

	"github.com/movewild/refugia-backend-go/internal/models"
	"github.com/movewild/refugia-backend-go/internal/spatial"
	"github.com/movewild/refugia-backend-go/internal/stats"
)

// CentroidConsistency measures how far each cluster's yearly centroid drifts
// between consecutive years. With fewer than two observed years for every
// cluster there are no shifts and the summary statistics are undefined.
func CentroidConsistency(points []models.ClusteredPoint) models.SpatialConsistency {
	type yearKey struct {
		cluster int
		year    int
	}
	type centroid struct {
		lats, lons []float64
	}

	byYear := make(map[yearKey]*centroid)
	for _, p := range points {
		if p.ClusterID == models.NoiseCluster {
			continue
		}
		key := yearKey{cluster: p.ClusterID, year: p.Timestamp.UTC().Year()}
		c, ok := byYear[key]
		if !ok {
			c = &centroid{}
			byYear[key] = c
		}
		c.lats = append(c.lats, p.Lat)
		c.lons = append(c.lons, p.Lon)
	}

	years := make(map[int][]int)
	for key := range byYear {
		years[key.cluster] = append(years[key.cluster], key.year)
	}

	clusters := make([]int, 0, len(years))
	for id := range years {
		clusters = append(clusters, id)
	}
	sort.Ints(clusters)

	var shifts []float64
	for _, id := range clusters {
		ys := years[id]
		sort.Ints(ys)
		for i := 1; i < len(ys); i++ {
			if ys[i] != ys[i-1]+1 {
				continue
			}
			prev := byYear[yearKey{cluster: id, year: ys[i-1]}]
			cur := byYear[yearKey{cluster: id, year: ys[i]}]
			shifts = append(shifts, spatial.HaversineKm(
				stats.Mean(prev.lats), stats.Mean(prev.lons),
				stats.Mean(cur.lats), stats.Mean(cur.lons),
			))
		}
	}

	if len(shifts) == 0 {
		return models.SpatialConsistency{
			MeanShiftKM:   models.Undefined(),
			MedianShiftKM: models.Undefined(),
			NumShifts:     0,
		}
	}
	return models.SpatialConsistency{
		MeanShiftKM:   models.Stat(stats.Mean(shifts)),
		MedianShiftKM: models.Stat(stats.Median(shifts)),
		NumShifts:     len(shifts),
	}
}

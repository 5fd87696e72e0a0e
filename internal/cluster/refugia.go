package cluster

import (
	"sort"

	"github.com/movewild/refugia-backend-go/internal/models"
	"github.com/movewild/refugia-backend-go/internal/stats"
)

// Rule is the repeated-use rule deciding which clusters count as refugia.
// With RequireBoth, a cluster must satisfy both the distinct-individual and
// the distinct-event bound; otherwise either bound suffices.
type Rule struct {
	MinIndividuals int
	MinEvents      int
	RequireBoth    bool
}

// Holds reports whether a cluster with the given repeated-use counts
// qualifies as refugia.
func (r Rule) Holds(individuals, events int) bool {
	if r.RequireBoth {
		return individuals >= r.MinIndividuals && events >= r.MinEvents
	}
	return individuals >= r.MinIndividuals || events >= r.MinEvents
}

// ClusterHeatPoints assigns every heat-event member point to a spatial
// cluster. Points outside any heat event are excluded from clustering.
func ClusterHeatPoints(points []models.HeatPoint, epsKM float64, minPts int) []models.ClusteredPoint {
	var members []models.HeatPoint
	for _, p := range points {
		if p.EventID > 0 {
			members = append(members, p)
		}
	}
	if len(members) == 0 {
		return nil
	}

	lats := make([]float64, len(members))
	lons := make([]float64, len(members))
	for i, p := range members {
		lats[i] = p.Lat
		lons[i] = p.Lon
	}
	labels := DBSCAN(lats, lons, epsKM, minPts)

	clustered := make([]models.ClusteredPoint, len(members))
	for i, p := range members {
		clustered[i] = models.ClusteredPoint{HeatPoint: p, ClusterID: labels[i]}
	}
	return clustered
}

// Summarize builds the per-cluster summary table and applies the repeated-use
// rule. Noise points are skipped; an empty refugia set is a valid outcome
// when no cluster meets the density parameters.
func Summarize(points []models.ClusteredPoint, rule Rule) []models.RefugiaCluster {
	type accumulator struct {
		lats, lons  []float64
		individuals map[string]struct{}
		events      map[int64]struct{}
		species     map[string]int
		first, last int // indices into points for first/last seen
	}

	acc := make(map[int]*accumulator)
	for i, p := range points {
		if p.ClusterID == models.NoiseCluster {
			continue
		}
		a, ok := acc[p.ClusterID]
		if !ok {
			a = &accumulator{
				individuals: make(map[string]struct{}),
				events:      make(map[int64]struct{}),
				species:     make(map[string]int),
				first:       i,
				last:        i,
			}
			acc[p.ClusterID] = a
		}
		a.lats = append(a.lats, p.Lat)
		a.lons = append(a.lons, p.Lon)
		a.individuals[p.IndividualID] = struct{}{}
		a.events[p.EventID] = struct{}{}
		a.species[p.Species]++
		if p.Timestamp.Before(points[a.first].Timestamp) {
			a.first = i
		}
		if p.Timestamp.After(points[a.last].Timestamp) {
			a.last = i
		}
	}

	ids := make([]int, 0, len(acc))
	for id := range acc {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	clusters := make([]models.RefugiaCluster, 0, len(ids))
	for _, id := range ids {
		a := acc[id]

		speciesList := make([]string, 0, len(a.species))
		for s := range a.species {
			speciesList = append(speciesList, s)
		}
		sort.Strings(speciesList)

		dominant := ""
		dominantCount := 0
		for _, s := range speciesList {
			if a.species[s] > dominantCount {
				dominant = s
				dominantCount = a.species[s]
			}
		}

		c := models.RefugiaCluster{
			ClusterID: id,
			// Mean lat/lon is an acceptable centroid approximation at
			// the local scale clusters operate on
			CentroidLat:     stats.Mean(a.lats),
			CentroidLon:     stats.Mean(a.lons),
			NumPoints:       len(a.lats),
			NumIndividuals:  len(a.individuals),
			NumEvents:       len(a.events),
			FirstSeen:       points[a.first].Timestamp,
			LastSeen:        points[a.last].Timestamp,
			Species:         speciesList,
			DominantSpecies: dominant,
		}
		c.IsRefugia = rule.Holds(c.NumIndividuals, c.NumEvents)
		clusters = append(clusters, c)
	}

	return clusters
}

package models

import "time"

// NoiseCluster is the DBSCAN sentinel for unclustered points. It is never
// labeled refugia.
const NoiseCluster = -1

// ClusteredPoint is a heat-event member point with its cluster assignment.
type ClusteredPoint struct {
	HeatPoint

	ClusterID int `json:"cluster_id"`
}

// RefugiaCluster summarizes one spatial cluster of heat-exposed positions.
// IsRefugia is true only when the repeated-use rule holds.
type RefugiaCluster struct {
	ClusterID       int       `json:"cluster_id"`
	CentroidLat     float64   `json:"centroid_lat"`
	CentroidLon     float64   `json:"centroid_lon"`
	NumPoints       int       `json:"num_points"`
	NumIndividuals  int       `json:"num_individuals"`
	NumEvents       int       `json:"num_events"`
	FirstSeen       time.Time `json:"first_seen"`
	LastSeen        time.Time `json:"last_seen"`
	Species         []string  `json:"species"`
	DominantSpecies string    `json:"dominant_species"`
	IsRefugia       bool      `json:"is_refugia"`
}

// LabeledPoint is a heat-exposed point with its supervised label: 1 iff the
// point lies within the proximity radius of a refugia-cluster centroid.
type LabeledPoint struct {
	ClusteredPoint

	Label            int     `json:"label"`
	NearestClusterID int     `json:"nearest_cluster_id"` // NoiseCluster when no refugia exist
	DistanceKM       float64 `json:"distance_to_centroid_km"`
}

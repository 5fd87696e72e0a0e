package experiments

import (
	"sort"

	"github.com/movewild/refugia-backend-go/internal/cluster"
	"github.com/movewild/refugia-backend-go/internal/models"
)

// YearSummary describes one year's heat exposure and refugia use.
type YearSummary struct {
	Year           int     `json:"year"`
	NumEvents      int     `json:"num_events"`
	NumHotFixes    int     `json:"num_hot_fixes"`
	NumIndividuals int     `json:"num_individuals"`
	NumClusters    int     `json:"num_clusters"`
	NumRefugia     int     `json:"num_refugia"`
	MeanEventTempC float64 `json:"mean_event_temp_c"`
}

// HeatwaveResponse clusters each year's heat-event points independently and
// summarizes how exposure and refugia use varied across years. Years appear
// in ascending order; a year with events but no cluster dense enough to
// qualify reports zero refugia.
func HeatwaveResponse(points []models.HeatPoint, events []models.HeatEvent, epsKM float64, minPts int, rule cluster.Rule) []YearSummary {
	pointsByYear := make(map[int][]models.HeatPoint)
	for _, p := range points {
		if p.EventID == 0 {
			continue
		}
		year := p.Timestamp.UTC().Year()
		pointsByYear[year] = append(pointsByYear[year], p)
	}

	eventsByYear := make(map[int][]models.HeatEvent)
	for _, e := range events {
		year := e.StartTime.UTC().Year()
		eventsByYear[year] = append(eventsByYear[year], e)
	}

	years := make([]int, 0, len(pointsByYear))
	for y := range pointsByYear {
		years = append(years, y)
	}
	sort.Ints(years)

	summaries := make([]YearSummary, 0, len(years))
	for _, year := range years {
		pts := pointsByYear[year]
		evs := eventsByYear[year]

		individuals := make(map[string]struct{})
		for _, p := range pts {
			individuals[p.IndividualID] = struct{}{}
		}

		var tempSum float64
		for _, e := range evs {
			tempSum += e.MeanTempC
		}
		meanTemp := 0.0
		if len(evs) > 0 {
			meanTemp = tempSum / float64(len(evs))
		}

		clustered := cluster.ClusterHeatPoints(pts, epsKM, minPts)
		clusters := cluster.Summarize(clustered, rule)
		refugia := 0
		for _, c := range clusters {
			if c.IsRefugia {
				refugia++
			}
		}

		summaries = append(summaries, YearSummary{
			Year:           year,
			NumEvents:      len(evs),
			NumHotFixes:    len(pts),
			NumIndividuals: len(individuals),
			NumClusters:    len(clusters),
			NumRefugia:     refugia,
			MeanEventTempC: meanTemp,
		})
	}
	return summaries
}

package heat

import (
	"sort"
	"time"

	"github.com/movewild/refugia-backend-go/internal/models"
	"github.com/movewild/refugia-backend-go/internal/stats"
)

// Detector segments each individual's chronological aligned records into
// discrete heat events. A record is hot iff temp_c >= the resolved species
// threshold; maximal runs of consecutive hot records become one event.
//
// MaxGap controls the data-gap policy: when positive, a timestamp gap larger
// than MaxGap breaks a run even if both sides are hot. The default of 0 means
// gaps never break continuity.
type Detector struct {
	Thresholds *models.SpeciesThresholds
	MaxGap     time.Duration
}

// Detect returns every aligned record annotated with its threshold and event
// membership, plus the event summary table. Deterministic: identical input
// and thresholds always yield the identical event set.
func (d Detector) Detect(aligned []models.AlignedRecord) ([]models.HeatPoint, []models.HeatEvent) {
	points := make([]models.HeatPoint, len(aligned))
	for i, rec := range aligned {
		threshold := d.Thresholds.Resolve(rec.Species)
		points[i] = models.HeatPoint{
			AlignedRecord: rec,
			ThresholdC:    threshold,
			Hot:           rec.TempC >= threshold,
		}
	}

	// Group point indices per individual, chronological within each.
	byIndividual := make(map[string][]int)
	for i := range points {
		byIndividual[points[i].IndividualID] = append(byIndividual[points[i].IndividualID], i)
	}
	individuals := make([]string, 0, len(byIndividual))
	for id := range byIndividual {
		individuals = append(individuals, id)
	}
	sort.Strings(individuals)

	var events []models.HeatEvent
	var eventID int64

	for _, id := range individuals {
		indices := byIndividual[id]
		sort.SliceStable(indices, func(a, b int) bool {
			return points[indices[a]].Timestamp.Before(points[indices[b]].Timestamp)
		})

		var run []int
		flush := func() {
			if len(run) == 0 {
				return
			}
			eventID++
			events = append(events, d.buildEvent(points, run, eventID))
			run = nil
		}

		for _, idx := range indices {
			p := &points[idx]
			if !p.Hot {
				flush()
				continue
			}
			if len(run) > 0 && d.MaxGap > 0 {
				prev := points[run[len(run)-1]].Timestamp
				if p.Timestamp.Sub(prev) > d.MaxGap {
					flush()
				}
			}
			run = append(run, idx)
		}
		flush()
	}

	return points, events
}

// buildEvent summarizes one run of hot points and stamps their event id.
// A run of length 1 is a valid event with zero duration.
func (d Detector) buildEvent(points []models.HeatPoint, run []int, eventID int64) models.HeatEvent {
	first := points[run[0]]
	last := points[run[len(run)-1]]

	temps := make([]float64, len(run))
	for i, idx := range run {
		temps[i] = points[idx].TempC
		points[idx].EventID = eventID
	}

	return models.HeatEvent{
		EventID:      eventID,
		IndividualID: first.IndividualID,
		Species:      first.Species,
		StartTime:    first.Timestamp,
		EndTime:      last.Timestamp,
		Duration:     last.Timestamp.Sub(first.Timestamp),
		NumPoints:    len(run),
		MeanTempC:    stats.Mean(temps),
		MaxTempC:     stats.Max(temps),
	}
}

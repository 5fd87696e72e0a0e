package align

import (
	"sort"
	"time"

	"github.com/movewild/refugia-backend-go/internal/models"
	"github.com/movewild/refugia-backend-go/internal/spatial"
)

// Aligner joins movement records to their nearest climate grid observation in
// space (haversine, via a k-d tree over distinct grid points) and time
// (nearest hourly timestamp within Tolerance).
//
// The spatial step enforces no maximum distance: the grid is assumed to cover
// the movement extent, and when it does not the nearest available point is
// still used. The temporal step drops records whose nearest observation lies
// outside the tolerance. An empty result is valid output, not an error.
type Aligner struct {
	Tolerance time.Duration
}

type gridKey struct {
	lat, lon float64
}

// Align produces the aligned table. Output row order is unspecified;
// downstream stages must not depend on it.
func (a Aligner) Align(movement []models.MovementRecord, climate []models.ClimateObservation) []models.AlignedRecord {
	if len(movement) == 0 || len(climate) == 0 {
		return nil
	}

	// Distinct grid points, each with its chronologically sorted series.
	series := make(map[gridKey][]models.ClimateObservation)
	for _, obs := range climate {
		key := gridKey{obs.GridLat, obs.GridLon}
		series[key] = append(series[key], obs)
	}

	keys := make([]gridKey, 0, len(series))
	lats := make([]float64, 0, len(series))
	lons := make([]float64, 0, len(series))
	for key := range series {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].lat != keys[j].lat {
			return keys[i].lat < keys[j].lat
		}
		return keys[i].lon < keys[j].lon
	})
	for _, key := range keys {
		lats = append(lats, key.lat)
		lons = append(lons, key.lon)
		obs := series[key]
		sort.Slice(obs, func(i, j int) bool { return obs[i].Timestamp.Before(obs[j].Timestamp) })
	}

	index := spatial.NewPointIndex(lats, lons)

	var aligned []models.AlignedRecord
	for _, rec := range movement {
		gridIdx, distKM := index.Nearest(rec.Lat, rec.Lon)
		if gridIdx < 0 {
			continue
		}
		key := keys[gridIdx]

		obs, offset, ok := nearestInTime(series[key], rec.Timestamp)
		if !ok || offset > a.Tolerance {
			continue
		}

		aligned = append(aligned, models.AlignedRecord{
			IndividualID:   rec.IndividualID,
			Species:        rec.Species,
			Timestamp:      rec.Timestamp,
			Lat:            rec.Lat,
			Lon:            rec.Lon,
			MatchedGridLat: key.lat,
			MatchedGridLon: key.lon,
			GridDistanceKM: distKM,
			TempC:          obs.TempC,
			HumidityPct:    obs.HumidityPct,
			PrecipMM:       obs.PrecipMM,
			TimeOffset:     offset,
		})
	}

	return aligned
}

// nearestInTime returns the observation with the timestamp closest to ts from
// a chronologically sorted series, along with the absolute offset.
func nearestInTime(series []models.ClimateObservation, ts time.Time) (models.ClimateObservation, time.Duration, bool) {
	if len(series) == 0 {
		return models.ClimateObservation{}, 0, false
	}

	i := sort.Search(len(series), func(j int) bool {
		return !series[j].Timestamp.Before(ts)
	})

	best := -1
	var bestOffset time.Duration
	if i < len(series) {
		best = i
		bestOffset = series[i].Timestamp.Sub(ts)
	}
	if i > 0 {
		prevOffset := ts.Sub(series[i-1].Timestamp)
		if best < 0 || prevOffset < bestOffset {
			best = i - 1
			bestOffset = prevOffset
		}
	}

	return series[best], bestOffset, true
}

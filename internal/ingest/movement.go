package ingest

import (
	"math"
	"sort"
	"time"

	"github.com/movewild/refugia-backend-go/internal/models"
	"github.com/movewild/refugia-backend-go/internal/spatial"
)

// MovementQuality summarizes the raw movement table before cleaning.
type MovementQuality struct {
	Rows        int     `json:"rows"`
	Parsed      int     `json:"parsed"`
	Individuals int     `json:"individuals"`
	Species     int     `json:"species"`
	MissingRate float64 `json:"missing_rate"` // fraction of rows dropped for empty required cells
}

// ReadMovementCSV parses the movement table. Required columns: individual_id,
// species, timestamp, lat, lon. Rows with empty required cells are dropped and
// counted; non-empty cells of the wrong type are a fatal schema error.
func ReadMovementCSV(path string) ([]models.MovementRecord, MovementQuality, error) {
	aliases := map[string]string{
		"lat": "latitude",
		"lon": "longitude",
	}
	t, err := readTable(path, "movement", aliases)
	if err != nil {
		return nil, MovementQuality{}, err
	}

	idIdx, err := t.require("individual_id")
	if err != nil {
		return nil, MovementQuality{}, err
	}
	speciesIdx, err := t.require("species")
	if err != nil {
		return nil, MovementQuality{}, err
	}
	tsIdx, err := t.require("timestamp")
	if err != nil {
		return nil, MovementQuality{}, err
	}
	latIdx, err := t.require("lat")
	if err != nil {
		return nil, MovementQuality{}, err
	}
	lonIdx, err := t.require("lon")
	if err != nil {
		return nil, MovementQuality{}, err
	}
	speedIdx := t.optional("speed_mps")

	var records []models.MovementRecord
	individuals := map[string]struct{}{}
	speciesSet := map[string]struct{}{}
	dropped := 0

	for i, row := range t.rows {
		rowNum := i + 2 // header is row 1

		id := cell(row, idIdx)
		species := cell(row, speciesIdx)
		ts, err := parseTime("movement", "timestamp", cell(row, tsIdx), rowNum)
		if err != nil {
			return nil, MovementQuality{}, err
		}
		lat, err := parseFloat("movement", "lat", cell(row, latIdx), rowNum)
		if err != nil {
			return nil, MovementQuality{}, err
		}
		lon, err := parseFloat("movement", "lon", cell(row, lonIdx), rowNum)
		if err != nil {
			return nil, MovementQuality{}, err
		}

		if id == "" || ts.IsZero() || math.IsNaN(lat) || math.IsNaN(lon) {
			dropped++
			continue
		}
		if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
			dropped++
			continue
		}

		speed := math.NaN()
		if speedIdx >= 0 {
			speed, err = parseFloat("movement", "speed_mps", cell(row, speedIdx), rowNum)
			if err != nil {
				return nil, MovementQuality{}, err
			}
		}

		records = append(records, models.MovementRecord{
			IndividualID: id,
			Species:      species,
			Timestamp:    ts,
			Lat:          lat,
			Lon:          lon,
			SpeedMPS:     speed,
		})
		individuals[id] = struct{}{}
		speciesSet[species] = struct{}{}
	}

	quality := MovementQuality{
		Rows:        len(t.rows),
		Parsed:      len(records),
		Individuals: len(individuals),
		Species:     len(speciesSet),
	}
	if len(t.rows) > 0 {
		quality.MissingRate = float64(dropped) / float64(len(t.rows))
	}
	return records, quality, nil
}

// CleanMovement sorts fixes per individual chronologically, enforces strictly
// increasing timestamps and a minimum fix interval, fills implied speed from
// consecutive fixes, and drops the later fix of any pair whose implied speed
// exceeds maxSpeedMPS.
func CleanMovement(records []models.MovementRecord, maxSpeedMPS float64, minFixInterval time.Duration) []models.MovementRecord {
	sorted := make([]models.MovementRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].IndividualID != sorted[j].IndividualID {
			return sorted[i].IndividualID < sorted[j].IndividualID
		}
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	cleaned := make([]models.MovementRecord, 0, len(sorted))
	var prev *models.MovementRecord

	for i := range sorted {
		rec := sorted[i]
		if prev == nil || prev.IndividualID != rec.IndividualID {
			cleaned = append(cleaned, rec)
			prev = &cleaned[len(cleaned)-1]
			continue
		}

		dt := rec.Timestamp.Sub(prev.Timestamp)
		if dt <= 0 || dt < minFixInterval {
			continue
		}

		speed := rec.SpeedMPS
		if math.IsNaN(speed) {
			distM := spatial.HaversineDistance(prev.Lat, prev.Lon, rec.Lat, rec.Lon)
			speed = distM / dt.Seconds()
			rec.SpeedMPS = speed
		}
		if !math.IsNaN(speed) && speed > maxSpeedMPS {
			continue
		}

		cleaned = append(cleaned, rec)
		prev = &cleaned[len(cleaned)-1]
	}

	return cleaned
}

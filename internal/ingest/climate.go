package ingest

import (
	"math"

	"github.com/movewild/refugia-backend-go/internal/models"
)

// ClimateQuality summarizes the raw climate table before cleaning.
type ClimateQuality struct {
	Rows            int     `json:"rows"`
	Parsed          int     `json:"parsed"`
	MissingTemp     float64 `json:"missing_temp"`
	MissingHumidity float64 `json:"missing_humidity"`
	MissingPrecip   float64 `json:"missing_precip"`
	TempMinC        float64 `json:"temp_min_c"`
	TempMaxC        float64 `json:"temp_max_c"`
}

// ReadClimateCSV parses the climate table. Required columns: grid_lat,
// grid_lon (or lat/lon), timestamp, temp_c. humidity_pct and precip_mm are
// optional and carried as NaN when absent. Rows missing timestamp,
// coordinates, or temperature are dropped and counted.
func ReadClimateCSV(path string) ([]models.ClimateObservation, ClimateQuality, error) {
	aliases := map[string]string{
		"grid_lat":     "lat",
		"grid_lon":     "lon",
		"humidity_pct": "humidity",
	}
	t, err := readTable(path, "climate", aliases)
	if err != nil {
		return nil, ClimateQuality{}, err
	}

	latIdx, err := t.require("grid_lat")
	if err != nil {
		return nil, ClimateQuality{}, err
	}
	lonIdx, err := t.require("grid_lon")
	if err != nil {
		return nil, ClimateQuality{}, err
	}
	tsIdx, err := t.require("timestamp")
	if err != nil {
		return nil, ClimateQuality{}, err
	}
	tempIdx, err := t.require("temp_c")
	if err != nil {
		return nil, ClimateQuality{}, err
	}
	humidityIdx := t.optional("humidity_pct")
	precipIdx := t.optional("precip_mm")

	var obs []models.ClimateObservation
	missingTemp, missingHumidity, missingPrecip := 0, 0, 0
	tempMin, tempMax := math.Inf(1), math.Inf(-1)

	for i, row := range t.rows {
		rowNum := i + 2

		ts, err := parseTime("climate", "timestamp", cell(row, tsIdx), rowNum)
		if err != nil {
			return nil, ClimateQuality{}, err
		}
		lat, err := parseFloat("climate", "grid_lat", cell(row, latIdx), rowNum)
		if err != nil {
			return nil, ClimateQuality{}, err
		}
		lon, err := parseFloat("climate", "grid_lon", cell(row, lonIdx), rowNum)
		if err != nil {
			return nil, ClimateQuality{}, err
		}
		temp, err := parseFloat("climate", "temp_c", cell(row, tempIdx), rowNum)
		if err != nil {
			return nil, ClimateQuality{}, err
		}

		humidity := math.NaN()
		if humidityIdx >= 0 {
			humidity, err = parseFloat("climate", "humidity_pct", cell(row, humidityIdx), rowNum)
			if err != nil {
				return nil, ClimateQuality{}, err
			}
		}
		if math.IsNaN(humidity) {
			missingHumidity++
		}

		precip := math.NaN()
		if precipIdx >= 0 {
			precip, err = parseFloat("climate", "precip_mm", cell(row, precipIdx), rowNum)
			if err != nil {
				return nil, ClimateQuality{}, err
			}
		}
		if math.IsNaN(precip) {
			missingPrecip++
		}

		if math.IsNaN(temp) {
			missingTemp++
			continue
		}
		if ts.IsZero() || math.IsNaN(lat) || math.IsNaN(lon) {
			continue
		}
		if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
			continue
		}

		if temp < tempMin {
			tempMin = temp
		}
		if temp > tempMax {
			tempMax = temp
		}

		obs = append(obs, models.ClimateObservation{
			GridLat:     lat,
			GridLon:     lon,
			Timestamp:   ts,
			TempC:       temp,
			HumidityPct: humidity,
			PrecipMM:    precip,
		})
	}

	quality := ClimateQuality{
		Rows:     len(t.rows),
		Parsed:   len(obs),
		TempMinC: tempMin,
		TempMaxC: tempMax,
	}
	if len(t.rows) > 0 {
		n := float64(len(t.rows))
		quality.MissingTemp = float64(missingTemp) / n
		quality.MissingHumidity = float64(missingHumidity) / n
		quality.MissingPrecip = float64(missingPrecip) / n
	}
	return obs, quality, nil
}

// ReadThresholdsCSV parses the optional species threshold table
// (species, heat_threshold_c). Rows without a species or a numeric threshold
// are skipped.
func ReadThresholdsCSV(path string) (map[string]float64, error) {
	t, err := readTable(path, "thresholds", nil)
	if err != nil {
		return nil, err
	}

	speciesIdx, err := t.require("species")
	if err != nil {
		return nil, err
	}
	thresholdIdx, err := t.require("heat_threshold_c")
	if err != nil {
		return nil, err
	}

	thresholds := make(map[string]float64)
	for i, row := range t.rows {
		species := cell(row, speciesIdx)
		if species == "" {
			continue
		}
		v, err := parseFloat("thresholds", "heat_threshold_c", cell(row, thresholdIdx), i+2)
		if err != nil {
			return nil, err
		}
		if math.IsNaN(v) {
			continue
		}
		thresholds[species] = v
	}
	return thresholds, nil
}

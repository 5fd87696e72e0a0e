package ingest

import (
	"fmt"
)

// CheckQuality gates the pipeline on raw input quality: if more than
// maxMissingRate of the movement rows lack coordinates, or of the climate
// rows lack temperature, the run aborts before alignment.
func CheckQuality(movement MovementQuality, climate ClimateQuality, maxMissingRate float64) error {
	if movement.MissingRate > maxMissingRate {
		return fmt.Errorf("movement table missing rate %.3f exceeds limit %.3f (%d of %d rows dropped)",
			movement.MissingRate, maxMissingRate, movement.Rows-movement.Parsed, movement.Rows)
	}
	if climate.MissingTemp > maxMissingRate {
		return fmt.Errorf("climate temperature missing rate %.3f exceeds limit %.3f",
			climate.MissingTemp, maxMissingRate)
	}
	return nil
}

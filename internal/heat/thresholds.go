package heat

import (
	"errors"
	"fmt"

	"github.com/movewild/refugia-backend-go/internal/models"
	"github.com/movewild/refugia-backend-go/internal/stats"
)

// ErrThresholdResolution indicates a species has no explicit threshold and
// the quantile fallback cannot be computed because no temperature data is
// available. Fatal.
var ErrThresholdResolution = errors.New("threshold resolution failed")

// ResolveThresholds builds the species threshold lookup used by the detector.
// An explicit non-empty table wins; otherwise per-species thresholds are
// derived as the given quantile of each species' aligned temperatures. The
// resolved set is persisted with the run so results stay reproducible.
func ResolveThresholds(table map[string]float64, aligned []models.AlignedRecord, quantile, defaultC float64) (*models.SpeciesThresholds, error) {
	if len(table) > 0 {
		values := make(map[string]float64, len(table))
		for species, v := range table {
			values[species] = v
		}
		return &models.SpeciesThresholds{
			Values:   values,
			DefaultC: defaultC,
			Quantile: quantile,
			Derived:  false,
		}, nil
	}

	if len(aligned) == 0 {
		return nil, fmt.Errorf("%w: no aligned temperature data to derive quantile thresholds from", ErrThresholdResolution)
	}

	temps := make(map[string][]float64)
	for _, rec := range aligned {
		temps[rec.Species] = append(temps[rec.Species], rec.TempC)
	}

	values := make(map[string]float64, len(temps))
	for species, ts := range temps {
		if len(ts) == 0 {
			return nil, fmt.Errorf("%w: species %q has no temperature observations", ErrThresholdResolution, species)
		}
		values[species] = stats.Quantile(ts, quantile)
	}

	return &models.SpeciesThresholds{
		Values:   values,
		DefaultC: defaultC,
		Quantile: quantile,
		Derived:  true,
	}, nil
}

package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/movewild/refugia-backend-go/internal/config"
	"github.com/movewild/refugia-backend-go/internal/models"
)

// digestFile computes the provenance record for one input file.
func digestFile(path string) (models.InputDigest, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.InputDigest{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	size, err := io.Copy(h, f)
	if err != nil {
		return models.InputDigest{}, fmt.Errorf("failed to digest %s: %w", path, err)
	}

	return models.InputDigest{
		Path:      path,
		SHA256:    hex.EncodeToString(h.Sum(nil)),
		SizeBytes: size,
	}, nil
}

// newRunMetadata opens the reproducibility record for a fresh run: a UUID run
// id, the serialized parameter set, and digests of every input file.
// FinishedAt and the threshold fields are filled in as the run progresses.
func newRunMetadata(cfg *config.Config, movementPath, climatePath string, scenarioPaths map[string]string) (models.RunMetadata, error) {
	params, err := json.Marshal(cfg)
	if err != nil {
		return models.RunMetadata{}, fmt.Errorf("failed to serialize parameters: %w", err)
	}

	meta := models.RunMetadata{
		RunID:      uuid.NewString(),
		StartedAt:  time.Now().UTC(),
		ParamsJSON: string(params),
	}

	if meta.Movement, err = digestFile(movementPath); err != nil {
		return models.RunMetadata{}, err
	}
	if meta.Climate, err = digestFile(climatePath); err != nil {
		return models.RunMetadata{}, err
	}

	if len(scenarioPaths) > 0 {
		meta.FutureClimate = make(map[string]models.InputDigest, len(scenarioPaths))
		for name, path := range scenarioPaths {
			digest, err := digestFile(path)
			if err != nil {
				return models.RunMetadata{}, err
			}
			meta.FutureClimate[name] = digest
		}
	}

	return meta, nil
}

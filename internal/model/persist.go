package model

import (
	"encoding/json"
	"fmt"
	"os"
)

// Save writes the forest as a versioned JSON artifact.
func (f *Forest) Save(path string) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to encode model: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write model file: %w", err)
	}
	return nil
}

// Load reads a model artifact written by Save. Artifacts from a different
// format version are rejected rather than partially decoded.
func Load(path string) (*Forest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}

	var f Forest
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to decode model: %w", err)
	}
	if f.Version != ForestVersion {
		return nil, fmt.Errorf("unsupported model version %q (want %q)", f.Version, ForestVersion)
	}
	return &f, nil
}

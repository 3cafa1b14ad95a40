// Package production provides production integrations: persistence, event
// publishing, snapshot registry, visualization.
package production

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/comalice/rovercore/internal/core"
)

// NewPersister returns the file persister for format ("json" or "yaml").
func NewPersister(dir, format string) (core.Persister, error) {
	switch format {
	case "json":
		return NewJSONPersister(dir)
	case "yaml", "":
		return NewYAMLPersister(dir)
	default:
		return nil, fmt.Errorf("unknown persist format %q", format)
	}
}

// JSONPersister is a file-based persister using JSON serialization.
type JSONPersister struct {
	dir string
}

// NewJSONPersister creates a JSONPersister, ensuring the directory exists.
func NewJSONPersister(dir string) (*JSONPersister, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return &JSONPersister{dir: dir}, nil
}

func (p *JSONPersister) Save(ctx context.Context, snapshot core.MachineSnapshot) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	return writeSnapshot(filepath.Join(p.dir, snapshot.MachineID+".json"), data)
}

func (p *JSONPersister) Load(ctx context.Context, machineID string) (core.MachineSnapshot, error) {
	data, err := readSnapshot(filepath.Join(p.dir, machineID+".json"), machineID)
	if err != nil {
		return core.MachineSnapshot{}, err
	}

	var snapshot core.MachineSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return core.MachineSnapshot{}, fmt.Errorf("json unmarshal: %w", err)
	}
	snapshot.MachineID = machineID
	return snapshot, nil
}

// YAMLPersister is a file-based persister using YAML serialization.
type YAMLPersister struct {
	dir string
}

// NewYAMLPersister creates a YAMLPersister, ensuring the directory exists.
func NewYAMLPersister(dir string) (*YAMLPersister, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return &YAMLPersister{dir: dir}, nil
}

func (p *YAMLPersister) Save(ctx context.Context, snapshot core.MachineSnapshot) error {
	data, err := yaml.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("yaml marshal: %w", err)
	}
	return writeSnapshot(filepath.Join(p.dir, snapshot.MachineID+".yaml"), data)
}

func (p *YAMLPersister) Load(ctx context.Context, machineID string) (core.MachineSnapshot, error) {
	data, err := readSnapshot(filepath.Join(p.dir, machineID+".yaml"), machineID)
	if err != nil {
		return core.MachineSnapshot{}, err
	}

	var snapshot core.MachineSnapshot
	if err := yaml.Unmarshal(data, &snapshot); err != nil {
		return core.MachineSnapshot{}, fmt.Errorf("yaml unmarshal: %w", err)
	}
	snapshot.MachineID = machineID
	if !snapshot.State.Valid() {
		return core.MachineSnapshot{}, fmt.Errorf("snapshot %q: invalid state %v", machineID, snapshot.State)
	}
	return snapshot, nil
}

// writeSnapshot replaces fn atomically so a crash mid-write never leaves a
// truncated snapshot behind.
func writeSnapshot(fn string, data []byte) error {
	tmp := fn + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, fn); err != nil {
		return fmt.Errorf("rename %s: %w", fn, err)
	}
	return nil
}

func readSnapshot(fn, machineID string) ([]byte, error) {
	data, err := os.ReadFile(fn)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("machine %q: %w", machineID, os.ErrNotExist)
		}
		return nil, fmt.Errorf("read %s: %w", fn, err)
	}
	return data, nil
}

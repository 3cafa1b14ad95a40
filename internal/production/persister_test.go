// Tests for file persisters and integration with Machine.
package production

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/comalice/rovercore/internal/core"
)

func TestPersisters_RoundTrip(t *testing.T) {
	for _, format := range []string{"json", "yaml"} {
		t.Run(format, func(t *testing.T) {
			p, err := NewPersister(t.TempDir(), format)
			if err != nil {
				t.Fatalf("NewPersister failed: %v", err)
			}

			snapshot := core.MachineSnapshot{
				MachineID:   "test-machine",
				BootID:      "boot-1",
				State:       core.StateAvoiding,
				VacuumOn:    true,
				Transitions: 2,
				Timestamp:   time.Now().UTC().Truncate(time.Second),
			}
			if err := p.Save(context.Background(), snapshot); err != nil {
				t.Fatalf("Save failed: %v", err)
			}

			loaded, err := p.Load(context.Background(), "test-machine")
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if loaded.State != core.StateAvoiding || !loaded.VacuumOn || loaded.Transitions != 2 {
				t.Errorf("loaded snapshot mismatch: %+v", loaded)
			}
			if !loaded.Timestamp.Equal(snapshot.Timestamp) {
				t.Errorf("Timestamp = %v, want %v", loaded.Timestamp, snapshot.Timestamp)
			}
		})
	}
}

func TestPersisters_LoadNonExistent(t *testing.T) {
	for _, format := range []string{"json", "yaml"} {
		p, err := NewPersister(t.TempDir(), format)
		if err != nil {
			t.Fatalf("NewPersister failed: %v", err)
		}
		_, err = p.Load(context.Background(), "nonexistent")
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("%s: expected os.ErrNotExist wrapped error, got %v", format, err)
		}
	}
}

func TestNewPersister_UnknownFormat(t *testing.T) {
	if _, err := NewPersister(t.TempDir(), "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestYAMLPersister_RejectsInvalidState(t *testing.T) {
	dir := t.TempDir()
	p, err := NewYAMLPersister(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("state: DOCKING\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Load(context.Background(), "bad"); err == nil {
		t.Error("expected error for unknown state")
	}
}

func TestYAMLPersister_Integration_Machine(t *testing.T) {
	dir := t.TempDir()
	p, err := NewYAMLPersister(dir)
	if err != nil {
		t.Fatal(err)
	}

	m := core.NewMachine(core.WithMachineID("persist-test"), core.WithPersister(p))
	for _, ev := range []core.Event{core.EvStart, core.EvObstacle} {
		m.Post(ev)
		if err := m.StepOnce(context.Background()); err != nil {
			t.Fatal(err)
		}
	}

	loaded, err := p.Load(context.Background(), "persist-test")
	if err != nil {
		t.Fatal(err)
	}
	if loaded.State != core.StateAvoiding {
		t.Errorf("persisted state = %v, want %v", loaded.State, core.StateAvoiding)
	}
	if loaded.BootID != m.BootID() {
		t.Errorf("BootID = %q, want %q", loaded.BootID, m.BootID())
	}
	if _, err := os.Stat(filepath.Join(dir, "persist-test.yaml.tmp")); !os.IsNotExist(err) {
		t.Errorf("temp file left behind: %v", err)
	}
}

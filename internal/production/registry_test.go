package production

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/comalice/rovercore/internal/core"
)

func openRegistry(t *testing.T) *SQLiteRegistry {
	t.Helper()
	r, err := OpenSQLiteRegistry(context.Background(), filepath.Join(t.TempDir(), "db", "registry.db"))
	if err != nil {
		t.Fatalf("OpenSQLiteRegistry failed: %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestSQLiteRegistry_VersionsNewestFirst(t *testing.T) {
	r := openRegistry(t)
	ctx := context.Background()

	for _, s := range []core.State{core.StateIdle, core.StateActive, core.StateAvoiding} {
		if err := r.Register(ctx, "rover-1", core.MachineSnapshot{MachineID: "rover-1", State: s}); err != nil {
			t.Fatalf("Register failed: %v", err)
		}
	}

	versions, err := r.ListVersions(ctx, "rover-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(versions) != 3 {
		t.Fatalf("got %d versions, want 3", len(versions))
	}

	latest, err := r.Latest(ctx, "rover-1")
	if err != nil {
		t.Fatal(err)
	}
	if latest.State != core.StateAvoiding {
		t.Errorf("Latest state = %v, want %v", latest.State, core.StateAvoiding)
	}

	oldest, err := r.Version(ctx, "rover-1", versions[2])
	if err != nil {
		t.Fatal(err)
	}
	if oldest.State != core.StateIdle {
		t.Errorf("oldest state = %v, want %v", oldest.State, core.StateIdle)
	}
}

func TestSQLiteRegistry_NotFound(t *testing.T) {
	r := openRegistry(t)
	ctx := context.Background()

	if _, err := r.Latest(ctx, "ghost"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Latest: expected ErrNotFound, got %v", err)
	}
	if _, err := r.Version(ctx, "ghost", "v1"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Version: expected ErrNotFound, got %v", err)
	}
	if _, err := r.ListVersions(ctx, "ghost"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("ListVersions: expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteRegistry_Integration_Machine(t *testing.T) {
	r := openRegistry(t)
	ctx := context.Background()

	a := core.NewMachine(core.WithMachineID("alpha"), core.WithRegistry(r))
	b := core.NewMachine(core.WithMachineID("beta"), core.WithRegistry(r))
	for _, m := range []*core.Machine{a, b} {
		m.Post(core.EvStart)
		if err := m.StepOnce(ctx); err != nil {
			t.Fatal(err)
		}
	}
	b.Post(core.EvLowBattery)
	if err := b.StepOnce(ctx); err != nil {
		t.Fatal(err)
	}

	ids, err := r.ListMachines(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 || ids[0] != "alpha" || ids[1] != "beta" {
		t.Errorf("ListMachines = %v, want [alpha beta]", ids)
	}

	latest, err := r.Latest(ctx, "beta")
	if err != nil {
		t.Fatal(err)
	}
	if latest.State != core.StateIdle || latest.Transitions != 2 {
		t.Errorf("beta latest = %+v", latest)
	}
}

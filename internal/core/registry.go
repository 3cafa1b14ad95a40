// Package core defines the Registry interface for versioned machine snapshots.
package core

import (
	"context"
	"errors"
)

// Registry manages versioned snapshots of running Machine instances.
type Registry interface {
	// Register saves the snapshot under a newly assigned version.
	Register(ctx context.Context, machineID string, snapshot MachineSnapshot) error

	// Latest returns the most recent snapshot for machineID.
	Latest(ctx context.Context, machineID string) (MachineSnapshot, error)

	// Version returns the snapshot for a specific version.
	Version(ctx context.Context, machineID, version string) (MachineSnapshot, error)

	// ListVersions returns versions for machineID, newest first.
	ListVersions(ctx context.Context, machineID string) ([]string, error)

	// ListMachines returns all machine IDs.
	ListMachines(ctx context.Context) ([]string, error)
}

var (
	ErrNotFound = errors.New("version or machine not found")
	ErrExists   = errors.New("version already exists")
)

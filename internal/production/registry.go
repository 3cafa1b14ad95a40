package production

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/comalice/rovercore/internal/core"
)

// SQLiteRegistry keeps every snapshot a machine registers, keyed by a
// time-ordered UUID version.
type SQLiteRegistry struct {
	db *sql.DB
}

// OpenSQLiteRegistry opens (and creates if needed) the registry database at path.
func OpenSQLiteRegistry(ctx context.Context, path string) (*SQLiteRegistry, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(pctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS machine_snapshots (
  seq        INTEGER PRIMARY KEY AUTOINCREMENT,
  machine_id TEXT NOT NULL,
  version    TEXT NOT NULL UNIQUE,
  state      TEXT NOT NULL,
  snapshot   JSON NOT NULL,
  created_at TEXT NOT NULL
);`,
		`CREATE INDEX IF NOT EXISTS machine_snapshots_machine_idx ON machine_snapshots(machine_id, seq);`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(pctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("bootstrap sqlite: %w", err)
		}
	}
	return &SQLiteRegistry{db: db}, nil
}

func (r *SQLiteRegistry) Close() error {
	return r.db.Close()
}

func (r *SQLiteRegistry) Register(ctx context.Context, machineID string, snapshot core.MachineSnapshot) error {
	version, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("new version: %w", err)
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO machine_snapshots (machine_id, version, state, snapshot, created_at) VALUES (?, ?, ?, ?, ?)`,
		machineID, version.String(), snapshot.State.String(), string(data), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert snapshot %s: %w", machineID, err)
	}
	return nil
}

func (r *SQLiteRegistry) Latest(ctx context.Context, machineID string) (core.MachineSnapshot, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT snapshot FROM machine_snapshots WHERE machine_id = ? ORDER BY seq DESC LIMIT 1`, machineID)
	return scanSnapshot(row, machineID)
}

func (r *SQLiteRegistry) Version(ctx context.Context, machineID, version string) (core.MachineSnapshot, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT snapshot FROM machine_snapshots WHERE machine_id = ? AND version = ?`, machineID, version)
	return scanSnapshot(row, machineID+"@"+version)
}

func (r *SQLiteRegistry) ListVersions(ctx context.Context, machineID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT version FROM machine_snapshots WHERE machine_id = ? ORDER BY seq DESC`, machineID)
	if err != nil {
		return nil, fmt.Errorf("list versions %s: %w", machineID, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("machine %q: %w", machineID, core.ErrNotFound)
	}
	return out, nil
}

func (r *SQLiteRegistry) ListMachines(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT machine_id FROM machine_snapshots ORDER BY machine_id`)
	if err != nil {
		return nil, fmt.Errorf("list machines: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan machine: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func scanSnapshot(row *sql.Row, key string) (core.MachineSnapshot, error) {
	var data string
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.MachineSnapshot{}, fmt.Errorf("snapshot %q: %w", key, core.ErrNotFound)
		}
		return core.MachineSnapshot{}, fmt.Errorf("scan snapshot: %w", err)
	}
	var snap core.MachineSnapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return core.MachineSnapshot{}, fmt.Errorf("json unmarshal: %w", err)
	}
	return snap, nil
}

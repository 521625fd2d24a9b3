// Package persistence provides SQLite-based storage for growth runs:
// the parameters a run was started with and every bud it placed, in
// placement order, so a run can be replayed or rendered later.
package persistence

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/magnolia/internal/meristem"
)

// DB wraps a SQLite connection for run storage.
type DB struct {
	conn *sqlx.DB
}

// Run is one recorded growth run.
type Run struct {
	ID         string    `db:"id" json:"id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	Positioner string    `db:"positioner" json:"positioner"`
	ParamsJSON string    `db:"params_json" json:"-"`
	Buds       int       `db:"buds" json:"buds"`
}

// BudRow is one placed bud within a run, seq counting from 0 in
// placement order.
type BudRow struct {
	RunID  string  `db:"run_id"`
	Seq    int     `db:"seq"`
	Angle  float64 `db:"angle"`
	Height float64 `db:"height"`
	Radius float64 `db:"radius"`
	Scale  float64 `db:"scale"`
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		created_at TIMESTAMP NOT NULL,
		positioner TEXT NOT NULL,
		params_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS buds (
		run_id TEXT NOT NULL REFERENCES runs(id),
		seq INTEGER NOT NULL,
		angle REAL NOT NULL,
		height REAL NOT NULL,
		radius REAL NOT NULL,
		scale REAL NOT NULL,
		PRIMARY KEY (run_id, seq)
	);

	CREATE INDEX IF NOT EXISTS idx_buds_run ON buds(run_id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// CreateRun records a new run and returns its generated id. params is
// serialized to JSON; nil is stored as an empty object.
func (db *DB) CreateRun(positioner string, params any) (string, error) {
	id := uuid.NewString()

	paramsJSON := []byte("{}")
	if params != nil {
		var err error
		paramsJSON, err = json.Marshal(params)
		if err != nil {
			return "", fmt.Errorf("marshal params: %w", err)
		}
	}

	_, err := db.conn.Exec(
		"INSERT INTO runs (id, created_at, positioner, params_json) VALUES (?, ?, ?, ?)",
		id, time.Now().UTC(), positioner, string(paramsJSON),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

// AppendBud records one placed bud at the next sequence number.
func (db *DB) AppendBud(runID string, seq int, b *meristem.Bud) error {
	_, err := db.conn.Exec(
		"INSERT INTO buds (run_id, seq, angle, height, radius, scale) VALUES (?, ?, ?, ?, ?, ?)",
		runID, seq, b.Angle, b.Height, b.Radius, b.Scale,
	)
	if err != nil {
		return fmt.Errorf("insert bud %d of run %s: %w", seq, runID, err)
	}
	return nil
}

// SaveBuds writes all buds of a run in one transaction (full replace).
func (db *DB) SaveBuds(runID string, buds []*meristem.Bud) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM buds WHERE run_id = ?", runID); err != nil {
		return err
	}

	stmt, err := tx.Preparex(
		"INSERT INTO buds (run_id, seq, angle, height, radius, scale) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, b := range buds {
		if _, err := stmt.Exec(runID, i, b.Angle, b.Height, b.Radius, b.Scale); err != nil {
			return fmt.Errorf("insert bud %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// LoadBuds returns the buds of a run in placement order.
func (db *DB) LoadBuds(runID string) ([]BudRow, error) {
	var rows []BudRow
	err := db.conn.Select(&rows,
		"SELECT run_id, seq, angle, height, radius, scale FROM buds WHERE run_id = ? ORDER BY seq",
		runID,
	)
	return rows, err
}

// GetRun returns one run with its bud count.
func (db *DB) GetRun(id string) (*Run, error) {
	var run Run
	err := db.conn.Get(&run, `
		SELECT r.id, r.created_at, r.positioner, r.params_json,
		       (SELECT COUNT(*) FROM buds b WHERE b.run_id = r.id) AS buds
		FROM runs r WHERE r.id = ?`, id)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns returns the most recent runs, newest first.
func (db *DB) ListRuns(limit int) ([]Run, error) {
	var runs []Run
	err := db.conn.Select(&runs, `
		SELECT r.id, r.created_at, r.positioner, r.params_json,
		       (SELECT COUNT(*) FROM buds b WHERE b.run_id = r.id) AS buds
		FROM runs r ORDER BY r.created_at DESC LIMIT ?`, limit)
	return runs, err
}

// Params decodes a run's stored parameters into dst.
func (r *Run) Params(dst any) error {
	return json.Unmarshal([]byte(r.ParamsJSON), dst)
}

// Package sqlite indexes incidents in a local SQLite database.
package sqlite

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

	"aimonitor/internal/incident"
	"aimonitor/internal/model"
)

var _ incident.Sink = (*Store)(nil)

// Summary is one row of the incident index.
type Summary struct {
	ID         uuid.UUID
	CreatedAt  time.Time
	Severity   model.Severity
	Confidence float64
	Summary    string
	Trigger    string
	Backend    string
}

type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create incident db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open incident db: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set incident db journal mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set incident db busy timeout: %w", err)
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS incidents (
	id TEXT PRIMARY KEY,
	created_at TEXT NOT NULL,
	severity TEXT NOT NULL,
	confidence REAL NOT NULL,
	summary TEXT NOT NULL,
	trigger_reason TEXT NOT NULL DEFAULT '',
	backend TEXT NOT NULL DEFAULT '',
	triage_json TEXT NOT NULL,
	snapshot_json TEXT NOT NULL
)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize incidents schema: %w", err)
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS incidents_created_at ON incidents (created_at)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize incidents index: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Persist(ctx context.Context, rec incident.Record) error {
	triageJSON, err := json.Marshal(rec.Triage)
	if err != nil {
		return fmt.Errorf("marshal triage: %w", err)
	}
	snapJSON, err := json.Marshal(rec.Snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO incidents (id, created_at, severity, confidence, summary, trigger_reason, backend, triage_json, snapshot_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID.String(),
		rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		string(rec.Triage.Severity),
		rec.Triage.Confidence,
		rec.Triage.Summary,
		rec.Trigger,
		rec.Backend,
		string(triageJSON),
		string(snapJSON),
	)
	if err != nil {
		return fmt.Errorf("insert incident %s: %w", rec.ID, err)
	}
	return nil
}

// List returns the newest incidents first. limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, severity, confidence, summary, trigger_reason, backend
		 FROM incidents ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	defer rows.Close()

	out := make([]Summary, 0)
	for rows.Next() {
		var (
			id, createdAt, severity string
			sum                     Summary
		)
		if err := rows.Scan(&id, &createdAt, &severity, &sum.Confidence, &sum.Summary, &sum.Trigger, &sum.Backend); err != nil {
			return nil, fmt.Errorf("scan incident row: %w", err)
		}
		if sum.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse incident id %q: %w", id, err)
		}
		if sum.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("parse incident %s time: %w", id, err)
		}
		sum.Severity = model.Severity(severity)
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate incident rows: %w", err)
	}
	return out, nil
}

// Get loads one full record.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (incident.Record, bool, error) {
	var createdAt, triageJSON, snapJSON string
	rec := incident.Record{ID: id}
	err := s.db.QueryRowContext(ctx,
		`SELECT created_at, trigger_reason, backend, triage_json, snapshot_json FROM incidents WHERE id = ?`,
		id.String(),
	).Scan(&createdAt, &rec.Trigger, &rec.Backend, &triageJSON, &snapJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return incident.Record{}, false, nil
		}
		return incident.Record{}, false, fmt.Errorf("query incident %s: %w", id, err)
	}
	if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return incident.Record{}, false, fmt.Errorf("parse incident %s time: %w", id, err)
	}
	if err := json.Unmarshal([]byte(triageJSON), &rec.Triage); err != nil {
		return incident.Record{}, false, fmt.Errorf("unmarshal incident %s triage: %w", id, err)
	}
	if err := json.Unmarshal([]byte(snapJSON), &rec.Snapshot); err != nil {
		return incident.Record{}, false, fmt.Errorf("unmarshal incident %s snapshot: %w", id, err)
	}
	return rec, true, nil
}

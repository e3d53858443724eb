// Package incident persists escalations as human-readable reports and an
// index for later listing.
package incident

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"aimonitor/internal/model"
)

// Record is one escalation that produced a triage.
type Record struct {
	ID        uuid.UUID      `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	Backend   string         `json:"backend"`
	Trigger   string         `json:"trigger,omitempty"`
	Triage    model.Triage   `json:"triage"`
	Snapshot  model.Snapshot `json:"snapshot"`
}

// NewRecord stamps a triage and the snapshot it was based on with a fresh ID.
func NewRecord(t model.Triage, snap model.Snapshot, backend string, now time.Time) Record {
	return Record{
		ID:        uuid.New(),
		CreatedAt: now.UTC(),
		Backend:   backend,
		Trigger:   snap.Trigger,
		Triage:    t,
		Snapshot:  snap,
	}
}

// Sink stores incident records.
// Production: *FileSink, *sqlite.Store, Multi
// Testing: adapter/fake.IncidentSink
type Sink interface {
	Persist(ctx context.Context, rec Record) error
}

// Multi fans a record out to every sink. Every sink is tried; the errors are
// joined.
type Multi []Sink

func (m Multi) Persist(ctx context.Context, rec Record) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Persist(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("persist incident %s: %w", rec.ID, err)
	}
	return nil
}

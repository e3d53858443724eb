package fake

import (
	"context"
	"sync"

	"aimonitor/internal/incident"
)

var _ incident.Sink = (*IncidentSink)(nil)

// IncidentSink keeps persisted records in memory.
type IncidentSink struct {
	CallRecorder
	mu      sync.Mutex
	records []incident.Record

	PersistErr func(ctx context.Context, rec incident.Record) error
}

func NewIncidentSink() *IncidentSink {
	return &IncidentSink{}
}

func (s *IncidentSink) Persist(ctx context.Context, rec incident.Record) error {
	s.record("Persist", rec.ID.String())
	if s.PersistErr != nil {
		if err := s.PersistErr(ctx, rec); err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.records = append(s.records, rec)
	s.mu.Unlock()
	return nil
}

// Records returns everything persisted so far.
func (s *IncidentSink) Records() []incident.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]incident.Record, len(s.records))
	copy(out, s.records)
	return out
}

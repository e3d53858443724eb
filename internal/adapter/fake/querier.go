package fake

import (
	"context"
	"fmt"
	"sync"
	"time"

	"aimonitor/internal/model"
)

// Querier answers queries from a fixed table keyed by expression. Unknown
// expressions return an empty result.
type Querier struct {
	CallRecorder
	mu      sync.Mutex
	results map[string][]model.Series
	errs    map[string]error
}

// NewQuerier creates an empty Querier.
func NewQuerier() *Querier {
	return &Querier{
		results: make(map[string][]model.Series),
		errs:    make(map[string]error),
	}
}

// Set makes expr return series.
func (q *Querier) Set(expr string, series ...model.Series) {
	q.mu.Lock()
	q.results[expr] = series
	delete(q.errs, expr)
	q.mu.Unlock()
}

// Fail makes expr return err.
func (q *Querier) Fail(expr string, err error) {
	q.mu.Lock()
	q.errs[expr] = err
	q.mu.Unlock()
}

func (q *Querier) Query(ctx context.Context, expr string, timeout time.Duration) ([]model.Series, error) {
	q.record("Query", expr, timeout)
	q.mu.Lock()
	defer q.mu.Unlock()
	if err, ok := q.errs[expr]; ok {
		return nil, fmt.Errorf("query %q: %w", expr, err)
	}
	return q.results[expr], nil
}

// Package probe collects host signals that have no Prometheus exporter
// behind them, shaped like query results so they slot into a snapshot.
package probe

import (
	"context"

	"aimonitor/internal/model"
)

// Probe produces one named snapshot entry.
type Probe interface {
	Name() string
	Probe(ctx context.Context) model.QueryResult
}

func failed(description, query string, err error) model.QueryResult {
	return model.QueryResult{
		Description: description,
		Query:       query,
		Result:      []model.Series{},
		Error:       err.Error(),
	}
}

// Package prom runs instant PromQL queries against a Prometheus server.
package prom

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	pmodel "github.com/prometheus/common/model"

	"aimonitor/internal/model"
)

// DefaultTimeout bounds one query when the caller passes zero.
const DefaultTimeout = 10 * time.Second

// ErrUnsupportedResult is returned for range and string results, which an
// instant query for the monitor never produces.
var ErrUnsupportedResult = errors.New("unsupported query result type")

// Querier runs one instant query.
// Production: *prom.Client
// Testing: adapter/fake.Querier
type Querier interface {
	Query(ctx context.Context, expr string, timeout time.Duration) ([]model.Series, error)
}

// Client wraps the Prometheus HTTP API.
type Client struct {
	api v1.API
	url string
}

// New creates a client for the server at address.
func New(address string) (*Client, error) {
	c, err := api.NewClient(api.Config{Address: address})
	if err != nil {
		return nil, fmt.Errorf("create prometheus client for %s: %w", address, err)
	}
	return &Client{api: v1.NewAPI(c), url: address}, nil
}

// URL returns the configured server address.
func (c *Client) URL() string { return c.url }

// Query evaluates expr at the current time.
func (c *Client) Query(ctx context.Context, expr string, timeout time.Duration) ([]model.Series, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	value, warnings, err := c.api.Query(ctx, expr, time.Now(), v1.WithTimeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", expr, err)
	}
	if len(warnings) > 0 {
		slog.Debug("Prometheus query warnings", "query", expr, "warnings", warnings)
	}
	return Convert(value)
}

// Convert flattens an instant query value into series.
func Convert(value pmodel.Value) ([]model.Series, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case pmodel.Vector:
		out := make([]model.Series, 0, len(v))
		for _, s := range v {
			if !finite(float64(s.Value)) {
				continue
			}
			out = append(out, model.Series{
				Labels: labels(s.Metric),
				Value:  float64(s.Value),
			})
		}
		return out, nil
	case *pmodel.Scalar:
		if !finite(float64(v.Value)) {
			return []model.Series{}, nil
		}
		return []model.Series{{Labels: map[string]string{}, Value: float64(v.Value)}}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedResult, value.Type())
	}
}

func labels(m pmodel.Metric) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[string(k)] = string(v)
	}
	return out
}

// finite reports whether f is a usable sample. NaN and infinities are
// dropped rather than guessed at.
func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

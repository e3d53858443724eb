package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/beevik/ntp"

	"aimonitor/internal/check"
	"aimonitor/internal/model"
)

const (
	NTPName = "ntp_offset"

	defaultNTPThreshold = 500 * time.Millisecond
	defaultNTPTimeout   = 5 * time.Second
)

// Clock offset status labels.
const (
	NTPHealthy         = "healthy"
	NTPUnhealthyOffset = "unhealthy_offset"
)

// NTP measures the local clock offset against an NTP server.
type NTP struct {
	server    string
	threshold time.Duration
	timeout   time.Duration

	// QueryFunc replaces the network query in tests.
	QueryFunc func(server string, timeout time.Duration) (time.Duration, error)
}

// NewNTP creates a probe for server. A zero threshold uses 500ms.
func NewNTP(server string, threshold time.Duration) *NTP {
	check.Assert(server != "", "probe.NewNTP: server must not be empty")
	if threshold <= 0 {
		threshold = defaultNTPThreshold
	}
	return &NTP{server: server, threshold: threshold, timeout: defaultNTPTimeout}
}

func (n *NTP) Name() string { return NTPName }

func (n *NTP) Probe(ctx context.Context) model.QueryResult {
	desc := fmt.Sprintf("Clock offset in seconds against %s (unhealthy above %s)", n.server, n.threshold)
	query := "ntp://" + n.server

	timeout := n.timeout
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < timeout {
			timeout = left
		}
	}
	if timeout <= 0 {
		return failed(desc, query, context.DeadlineExceeded)
	}

	offset, err := n.query(timeout)
	if err != nil {
		return failed(desc, query, fmt.Errorf("ntp query %s: %w", n.server, err))
	}

	status := NTPUnhealthyOffset
	if offset.Abs() < n.threshold {
		status = NTPHealthy
	}
	return model.QueryResult{
		Description: desc,
		Query:       query,
		Result: []model.Series{{
			Labels: map[string]string{"server": n.server, "status": status},
			Value:  offset.Seconds(),
		}},
	}
}

func (n *NTP) query(timeout time.Duration) (time.Duration, error) {
	if n.QueryFunc != nil {
		return n.QueryFunc(n.server, timeout)
	}
	resp, err := ntp.QueryWithOptions(n.server, ntp.QueryOptions{Timeout: timeout})
	if err != nil {
		return 0, err
	}
	if err := resp.Validate(); err != nil {
		return 0, err
	}
	return resp.ClockOffset, nil
}

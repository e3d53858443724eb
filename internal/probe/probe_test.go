package probe

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNTP_Probe(t *testing.T) {
	tests := []struct {
		name       string
		offset     time.Duration
		err        error
		wantStatus string
		wantErr    bool
	}{
		{name: "small offset", offset: 20 * time.Millisecond, wantStatus: NTPHealthy},
		{name: "negative drift", offset: -2 * time.Second, wantStatus: NTPUnhealthyOffset},
		{name: "unreachable", err: errors.New("i/o timeout"), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewNTP("time.example", 0)
			p.QueryFunc = func(server string, timeout time.Duration) (time.Duration, error) {
				assert.Equal(t, "time.example", server)
				assert.Positive(t, timeout)
				return tt.offset, tt.err
			}

			got := p.Probe(context.Background())
			if tt.wantErr {
				assert.True(t, got.Failed())
				assert.Empty(t, got.Result)
				return
			}
			require.Len(t, got.Result, 1)
			assert.Equal(t, tt.wantStatus, got.Result[0].Labels["status"])
			assert.InDelta(t, tt.offset.Seconds(), got.Result[0].Value, 1e-9)
		})
	}
}

func TestNTP_ExpiredContext(t *testing.T) {
	p := NewNTP("time.example", 0)
	p.QueryFunc = func(string, time.Duration) (time.Duration, error) {
		t.Fatal("query must not run")
		return 0, nil
	}
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	assert.True(t, p.Probe(ctx).Failed())
}

func TestDisk_Probe(t *testing.T) {
	d := NewDisk("")
	d.StatFunc = func(path string) (Usage, error) {
		assert.Equal(t, "/", path)
		return Usage{Total: 1000, Available: 150}, nil
	}
	got := d.Probe(context.Background())
	require.False(t, got.Failed())
	require.Len(t, got.Result, 1)
	assert.InDelta(t, 0.15, got.Result[0].Value, 1e-9)
	assert.Equal(t, "/", got.Result[0].Labels["mountpoint"])
}

func TestDisk_ZeroSize(t *testing.T) {
	d := NewDisk("/data")
	d.StatFunc = func(string) (Usage, error) { return Usage{}, nil }
	assert.True(t, d.Probe(context.Background()).Failed())
}

package predictive

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aimonitor/internal/adapter/fake"
	"aimonitor/internal/model"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func series(value float64, labels ...string) model.Series {
	m := map[string]string{}
	for i := 0; i+1 < len(labels); i += 2 {
		m[labels[i]] = labels[i+1]
	}
	return model.Series{Labels: m, Value: value}
}

func TestEvaluator_Due(t *testing.T) {
	clk := fake.NewClock(t0)
	e := NewEvaluator(fake.NewQuerier(), nil, time.Hour, time.Second, clk)

	assert.True(t, e.Due(t0), "zero state is due")

	e.Evaluate(context.Background())
	assert.Equal(t, t0, e.State().LastEvaluation)
	assert.False(t, e.Due(t0.Add(59*time.Minute)))
	assert.True(t, e.Due(t0.Add(time.Hour)))
}

func TestEvaluator_Checks(t *testing.T) {
	tests := []struct {
		name          string
		setup         func(q *fake.Querier)
		wantReason    string
		wantContainer string
		wantFired     bool
	}{
		{
			name:      "nothing trending",
			setup:     func(q *fake.Querier) {},
			wantFired: false,
		},
		{
			name: "memory growth names container",
			setup: func(q *fake.Querier) {
				q.Set(memGrowthQuery,
					series(10*1024*1024, "name", "db"),
					series(200*1024*1024, "container_name", "api"))
			},
			wantFired:     true,
			wantReason:    "Container api memory growing 200 MB/hour",
			wantContainer: "api",
		},
		{
			name: "memory at threshold does not fire",
			setup: func(q *fake.Querier) {
				q.Set(memGrowthQuery, series(MemGrowthThreshold, "name", "db"))
			},
			wantFired: false,
		},
		{
			name: "disk low",
			setup: func(q *fake.Querier) {
				q.Set(diskFreeQuery, series(0.12, "mountpoint", "/"))
			},
			wantFired:  true,
			wantReason: ReasonDiskLow,
		},
		{
			name: "flapping",
			setup: func(q *fake.Querier) {
				q.Set(flapQuery, series(3, "job", "a"), series(6, "job", "b"))
			},
			wantFired:  true,
			wantReason: ReasonFlapping,
		},
		{
			name: "failed query is no trigger for that check only",
			setup: func(q *fake.Querier) {
				q.Fail(memGrowthQuery, errors.New("timeout"))
				q.Set(flapQuery, series(9))
			},
			wantFired:  true,
			wantReason: ReasonFlapping,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := fake.NewQuerier()
			tt.setup(q)
			e := NewEvaluator(q, &State{}, 0, time.Second, fake.NewClock(t0))

			got, fired := e.Evaluate(context.Background())
			require.Equal(t, tt.wantFired, fired)
			assert.Equal(t, tt.wantReason, got.Reason)
			assert.Equal(t, tt.wantContainer, got.Container)
		})
	}
}

func TestEvaluator_ShortCircuits(t *testing.T) {
	q := fake.NewQuerier()
	q.Set(memGrowthQuery, series(500*1024*1024, "name", "api"))
	q.Set(diskFreeQuery, series(0.01))

	e := NewEvaluator(q, nil, 0, time.Second, fake.NewClock(t0))
	_, fired := e.Evaluate(context.Background())
	require.True(t, fired)
	assert.Equal(t, []string{memGrowthQuery}, q.FirstArgs("Query"))
}

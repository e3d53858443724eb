package fake

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aimonitor/internal/incident"
	"aimonitor/internal/model"
)

func TestRuntime_ListAndRestart(t *testing.T) {
	ctx := context.Background()
	rt := NewRuntime(
		model.ContainerStatus{Name: "web", RuntimeStatus: "running", HealthState: "unhealthy"},
		model.ContainerStatus{Name: "api", RuntimeStatus: "exited"},
	)

	list, err := rt.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "api", list[0].Name)

	require.NoError(t, rt.Restart(ctx, "web", 10*time.Second))
	web, err := rt.Get(ctx, "web")
	require.NoError(t, err)
	assert.Equal(t, "running", web.RuntimeStatus)
	assert.Equal(t, "starting", web.HealthState)

	require.Error(t, rt.Restart(ctx, "missing", time.Second))
	assert.Equal(t, []string{"web", "missing"}, rt.FirstArgs("Restart"))
}

func TestRuntime_ErrorHooks(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	rt := NewRuntime(model.ContainerStatus{Name: "api", RuntimeStatus: "running"})
	rt.ListErr = func(context.Context) error { return boom }
	rt.RestartErr = func(_ context.Context, name string) error { return boom }

	_, err := rt.List(ctx)
	require.ErrorIs(t, err, boom)
	require.ErrorIs(t, rt.Restart(ctx, "api", time.Second), boom)

	c, err := rt.Get(ctx, "api")
	require.NoError(t, err)
	assert.Equal(t, "running", c.RuntimeStatus)
}

func TestQuerier(t *testing.T) {
	ctx := context.Background()
	q := NewQuerier()
	q.Set("up", model.Series{Value: 1})
	q.Fail("bad", errors.New("parse error"))

	got, err := q.Query(ctx, "up", time.Second)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = q.Query(ctx, "bad", time.Second)
	require.Error(t, err)

	got, err = q.Query(ctx, "unknown", time.Second)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, []string{"up", "bad", "unknown"}, q.FirstArgs("Query"))
}

func TestAdvisor_Script(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("503")
	a := NewAdvisor("claude").Fail(boom).Respond(`{"summary":"ok"}`)

	_, err := a.RequestTriage(ctx, "p1")
	require.ErrorIs(t, err, boom)

	got, err := a.RequestTriage(ctx, "p2")
	require.NoError(t, err)
	assert.Equal(t, `{"summary":"ok"}`, got)

	got, err = a.RequestTriage(ctx, "p3")
	require.NoError(t, err)
	assert.Equal(t, `{"summary":"ok"}`, got, "last response repeats")
	assert.Equal(t, []string{"p1", "p2", "p3"}, a.FirstArgs("RequestTriage"))
}

func TestIncidentSink(t *testing.T) {
	ctx := context.Background()
	s := NewIncidentSink()
	rec := incident.NewRecord(model.Triage{Summary: "x"}, model.Snapshot{}, "fake", time.Now())

	require.NoError(t, s.Persist(ctx, rec))
	require.Len(t, s.Records(), 1)
	assert.Equal(t, []string{rec.ID.String()}, s.FirstArgs("Persist"))

	s.PersistErr = func(context.Context, incident.Record) error { return errors.New("disk full") }
	require.Error(t, s.Persist(ctx, rec))
	assert.Len(t, s.Records(), 1)
}

package health

import (
	"math/rand"
	"testing"

	"aimonitor/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fleet() []model.ContainerStatus {
	return []model.ContainerStatus{
		{Name: "web", RuntimeStatus: "running", HealthState: "healthy"},
		{Name: "db", RuntimeStatus: "running", HealthState: "Unhealthy"},
		{Name: "worker", RuntimeStatus: "Exited"},
		{Name: "cron", RuntimeStatus: "dead", HealthState: "unhealthy"},
		{Name: "cache", RuntimeStatus: "running"},
	}
}

func TestClassify(t *testing.T) {
	got := Classify(fleet(), nil)

	assert.Equal(t, 5, got.Total)
	assert.Equal(t, []string{"cron", "db"}, names(got.Unhealthy))
	assert.Equal(t, []string{"cron", "worker"}, names(got.Exited))
	assert.Equal(t, []string{"cache", "web"}, names(got.Healthy))
	assert.Equal(t, 3, got.ProblemCount())
	assert.Equal(t, []string{"cron", "db", "worker"}, got.ProblemNames())
}

func TestClassify_Allowlist(t *testing.T) {
	got := Classify(fleet(), NewAllowlist("web", "db", "missing"))

	assert.Equal(t, 2, got.Total)
	assert.Equal(t, []string{"db"}, names(got.Unhealthy))
	assert.Empty(t, got.Exited)
	assert.Equal(t, []string{"web"}, names(got.Healthy))
}

func TestClassify_CountInvariant(t *testing.T) {
	statuses := []string{"running", "exited", "dead", "restarting", "EXITED", ""}
	healths := []string{"", "healthy", "unhealthy", "starting", "UNHEALTHY"}
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 200; i++ {
		n := rng.Intn(12)
		containers := make([]model.ContainerStatus, 0, n)
		for j := 0; j < n; j++ {
			containers = append(containers, model.ContainerStatus{
				Name:          string(rune('a' + j)),
				RuntimeStatus: statuses[rng.Intn(len(statuses))],
				HealthState:   healths[rng.Intn(len(healths))],
			})
		}
		var allow Allowlist
		if rng.Intn(2) == 0 {
			allow = NewAllowlist("a", "c", "e", "g")
		}

		got := Classify(containers, allow)
		require.Equal(t, got.Total, len(got.Healthy)+got.ProblemCount(), "iteration %d", i)
	}
}

func TestClassify_OrderIndependent(t *testing.T) {
	forward := fleet()
	reversed := make([]model.ContainerStatus, len(forward))
	for i, c := range forward {
		reversed[len(forward)-1-i] = c
	}

	assert.Equal(t, Classify(forward, nil), Classify(reversed, nil))
}

func TestAllowlist(t *testing.T) {
	var empty Allowlist
	assert.True(t, empty.Admits("anything"))

	allow := NewAllowlist("b", "", "a")
	assert.True(t, allow.Admits("a"))
	assert.False(t, allow.Admits("c"))
	assert.Equal(t, []string{"a", "b"}, allow.Names())
}

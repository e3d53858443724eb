package fake

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallRecorder_Record(t *testing.T) {
	var r CallRecorder

	r.record("Restart", "web", 1)
	r.record("Logs", "db")
	r.record("Restart", "cache")

	require.Len(t, r.Calls(""), 3)
	restarts := r.Calls("Restart")
	require.Len(t, restarts, 2)
	assert.Equal(t, "web", restarts[0].Args[0])
	assert.Equal(t, []string{"web", "cache"}, r.FirstArgs("Restart"))
	assert.Empty(t, r.Calls("List"))
}

func TestCallRecorder_Reset(t *testing.T) {
	var r CallRecorder

	r.record("List")
	r.record("Logs")
	r.Reset()

	assert.Empty(t, r.Calls(""))
}

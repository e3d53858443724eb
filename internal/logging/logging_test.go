package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "", want: slog.LevelInfo},
		{in: "DEBUG", want: slog.LevelDebug},
		{in: " warn ", want: slog.LevelWarn},
		{in: "warning", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "trace", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewHandler_JSONSingleLine(t *testing.T) {
	var buf bytes.Buffer
	h, err := NewHandler("warn", "", &buf)
	require.NoError(t, err)
	log := slog.New(h)

	log.Info("dropped")
	log.Warn("Restart skipped (cooldown)", "container", "api", "cooldown_seconds", 600)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var event map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &event))
	assert.Equal(t, "WARN", event["level"])
	assert.Equal(t, "api", event["container"])
}

func TestNewHandler_Text(t *testing.T) {
	var buf bytes.Buffer
	h, err := NewHandler("debug", "text", &buf)
	require.NoError(t, err)
	slog.New(h).Debug("Healthy snapshot", "checks", "up + docker health")
	assert.Contains(t, buf.String(), `msg="Healthy snapshot"`)
}

func TestNewHandler_InvalidFormat(t *testing.T) {
	_, err := NewHandler("info", "xml", nil)
	require.Error(t, err)
}

package triage

import (
	"encoding/json"
	"testing"

	"aimonitor/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strp(s string) *string { return &s }

func TestNormalize_FencedJSON(t *testing.T) {
	raw := "```json\n{\"summary\":\"ok\",\"severity\":\"low\",\"confidence\":1,\"suspected_causes\":[],\"recommended_actions\":[]}\n```"

	got, err := Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, model.SeverityLow, got.Severity)
	assert.Equal(t, "ok", got.Summary)
	assert.Equal(t, 1.0, got.Confidence)
	assert.Empty(t, got.SuspectedCauses)
	assert.Empty(t, got.RecommendedActions)
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "plain", raw: ` {"a":1} `, want: `{"a":1}`},
		{name: "fence with tag", raw: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "fence without tag", raw: "```\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "single line fence", raw: "```{\"a\":1}```", want: `{"a":1}`},
		{name: "single line fence with tag", raw: "```json {\"a\":1}```", want: `{"a":1}`},
		{name: "prose around fence", raw: "Here you go:\n```json\n{\"a\":1}\n```\nThanks", want: `{"a":1}`},
		{name: "prose without fence", raw: "Result: {\"a\":{\"b\":2}} done", want: `{"a":{"b":2}}`},
		{name: "unterminated fence", raw: "```json\n{\"a\":1}", want: `{"a":1}`},
		{name: "stray closing fence", raw: "{\"a\":1}\n```", want: `{"a":1}`},
		{name: "empty fence before object", raw: "```\n```\n{\"a\":1}", want: `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSON(tt.raw))
		})
	}
}

func TestNormalize_StrayClosingFence(t *testing.T) {
	got, err := Normalize("{\"summary\":\"s\",\"severity\":\"low\",\"confidence\":0.5}\n```")
	require.NoError(t, err)
	assert.Equal(t, "s", got.Summary)
}

func TestNormalize_Confidence(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    float64
		wantErr bool
	}{
		{name: "percentage", value: `85`, want: 0.85},
		{name: "unit interval", value: `0.4`, want: 0.4},
		{name: "one", value: `1`, want: 1},
		{name: "hundred", value: `100`, want: 1},
		{name: "zero", value: `0`, want: 0},
		{name: "numeric string", value: `"70%"`, want: 0.7},
		{name: "above range", value: `150`, wantErr: true},
		{name: "negative", value: `-0.1`, wantErr: true},
		{name: "missing", value: ``, wantErr: true},
		{name: "not a number", value: `"high"`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := `{"summary":"s","severity":"medium"`
			if tt.value != "" {
				raw += `,"confidence":` + tt.value
			}
			raw += `}`

			got, err := Normalize(raw)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrRejected)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got.Confidence, 1e-9)
		})
	}
}

func TestCoerceConfidence_LeavesOutOfRangeUntouched(t *testing.T) {
	c, err := coerceConfidence(150.0)
	require.NoError(t, err)
	assert.Equal(t, 150.0, c)
}

func TestNormalize_SuspectedCauses(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  []string
	}{
		{name: "bare string", value: `"x"`, want: []string{"x"}},
		{name: "reason object", value: `[{"reason":"oom"}]`, want: []string{"oom"}},
		{name: "cause object", value: `[{"cause":"disk full"}]`, want: []string{"disk full"}},
		{name: "reason preferred", value: `[{"cause":"b","reason":"a"}]`, want: []string{"a"}},
		{name: "null entries dropped", value: `["oom", null]`, want: []string{"oom"}},
		{name: "other object", value: `[{"kind":"net","detail":"dns"}]`, want: []string{`{"detail":"dns","kind":"net"}`}},
		{name: "scalars", value: `["a", 3, 1.5, true]`, want: []string{"a", "3", "1.5", "true"}},
		{name: "null", value: `null`, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := `{"summary":"s","severity":"high","confidence":0.5,"suspected_causes":` + tt.value + `}`
			got, err := Normalize(raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.SuspectedCauses)
		})
	}
}

func TestNormalize_RecommendedActions(t *testing.T) {
	raw := `{"summary":"s","severity":"high","confidence":0.9,"recommended_actions":[
		{"type":"restart_container","target":"web","reason":"unhealthy"},
		"check the disk",
		{"type":"none","target":null,"reason":null}
	]}`

	got, err := Normalize(raw)
	require.NoError(t, err)
	require.Len(t, got.RecommendedActions, 3)

	assert.Equal(t, model.Action{Type: model.ActionRestartContainer, Target: strp("web"), Reason: strp("unhealthy")}, got.RecommendedActions[0])
	assert.Equal(t, model.Action{Type: model.ActionAlert, Reason: strp("check the disk")}, got.RecommendedActions[1])
	assert.Equal(t, model.Action{Type: model.ActionNone}, got.RecommendedActions[2])
}

func TestNormalize_Rejects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "empty", raw: "   "},
		{name: "not json", raw: "the system looks fine"},
		{name: "truncated", raw: `{"summary":"s"`},
		{name: "missing summary", raw: `{"severity":"low","confidence":0.2}`},
		{name: "summary not string", raw: `{"summary":5,"severity":"low","confidence":0.2}`},
		{name: "bad severity", raw: `{"summary":"s","severity":"critical","confidence":0.2}`},
		{name: "bad action type", raw: `{"summary":"s","severity":"low","confidence":0.2,"recommended_actions":[{"type":"reboot_host"}]}`},
		{name: "action without type", raw: `{"summary":"s","severity":"low","confidence":0.2,"recommended_actions":[{"target":"web"}]}`},
		{name: "numeric target", raw: `{"summary":"s","severity":"low","confidence":0.2,"recommended_actions":[{"type":"alert","target":3}]}`},
		{name: "causes object", raw: `{"summary":"s","severity":"low","confidence":0.2,"suspected_causes":{"reason":"x"}}`},
		{name: "array document", raw: `[1,2,3]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.raw)
			assert.ErrorIs(t, err, ErrRejected)
		})
	}
}

func TestNormalize_SeverityCaseInsensitive(t *testing.T) {
	got, err := Normalize(`{"summary":"s","severity":" HIGH ","confidence":0.3}`)
	require.NoError(t, err)
	assert.Equal(t, model.SeverityHigh, got.Severity)
}

func TestNormalize_CamelCaseKeys(t *testing.T) {
	got, err := Normalize(`{"summary":"s","severity":"low","confidence":0.3,"suspectedCauses":["a"],"recommendedActions":["b"]}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, got.SuspectedCauses)
	require.Len(t, got.RecommendedActions, 1)
	assert.Equal(t, model.ActionAlert, got.RecommendedActions[0].Type)
}

func TestNormalize_RoundTrip(t *testing.T) {
	want := model.Triage{
		Summary:         "db container unhealthy after OOM",
		Severity:        model.SeverityMedium,
		SuspectedCauses: []string{"memory limit too low", "slow queries"},
		RecommendedActions: []model.Action{
			{Type: model.ActionRestartContainer, Target: strp("db"), Reason: strp("health check failing")},
			{Type: model.ActionAlert, Reason: strp("raise memory limit")},
			{Type: model.ActionNone},
		},
		Confidence: 0.72,
	}
	data, err := json.Marshal(want)
	require.NoError(t, err)

	got, err := Normalize(string(data))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

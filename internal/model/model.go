// Package model holds the data shapes shared by the decision engine: what a
// health snapshot looks like, what the advisory backend is allowed to return,
// and what a single cycle produced.
package model

import (
	"strings"
	"time"
)

// ContainerStatus is one observed container. It is never mutated after the
// runtime client builds it.
type ContainerStatus struct {
	Name          string `json:"name"`
	RuntimeStatus string `json:"status"`
	HealthState   string `json:"health,omitempty"`
	ExitCode      *int   `json:"exit_code,omitempty"`
	RecentLogs    string `json:"recent_logs,omitempty"`
}

// Unhealthy reports whether the container's health check reports "unhealthy".
func (c ContainerStatus) Unhealthy() bool {
	return strings.EqualFold(strings.TrimSpace(c.HealthState), "unhealthy")
}

// Exited reports whether the container is in a terminal runtime state.
func (c ContainerStatus) Exited() bool {
	switch strings.ToLower(strings.TrimSpace(c.RuntimeStatus)) {
	case "exited", "dead":
		return true
	default:
		return false
	}
}

// Series is one sample of a query result.
type Series struct {
	Labels map[string]string `json:"labels"`
	Value  float64           `json:"value"`
}

// QueryResult is the outcome of one named query. Error is set when the query
// failed; Result is then empty.
type QueryResult struct {
	Description string   `json:"description,omitempty"`
	Query       string   `json:"query"`
	Result      []Series `json:"result"`
	Error       string   `json:"error,omitempty"`
}

// Failed reports whether the query produced an error instead of a result.
func (r QueryResult) Failed() bool {
	return r.Error != ""
}

// Snapshot is one point-in-time observation of the fleet.
type Snapshot struct {
	TakenAt      time.Time              `json:"taken_at"`
	Queries      map[string]QueryResult `json:"queries"`
	Containers   []ContainerStatus      `json:"containers"`
	RuntimeError string                 `json:"runtime_error,omitempty"`
	Trigger      string                 `json:"trigger,omitempty"`
}

// Query returns the named query result, or a zero value when absent.
func (s Snapshot) Query(name string) QueryResult {
	return s.Queries[name]
}

// ActionType enumerates what the advisory backend may recommend.
type ActionType string

const (
	ActionRestartContainer ActionType = "restart_container"
	ActionAlert            ActionType = "alert"
	ActionNone             ActionType = "none"
)

// Action is one recommendation from the advisory backend.
type Action struct {
	Type   ActionType `json:"type" validate:"required,oneof=restart_container alert none"`
	Target *string    `json:"target"`
	Reason *string    `json:"reason"`
}

// TargetName returns the action target or "" when unset.
func (a Action) TargetName() string {
	if a.Target == nil {
		return ""
	}
	return strings.TrimSpace(*a.Target)
}

// Severity of a triage.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Triage is the canonical, validated advisory response.
type Triage struct {
	Summary            string   `json:"summary"`
	Severity           Severity `json:"severity"`
	SuspectedCauses    []string `json:"suspected_causes"`
	RecommendedActions []Action `json:"recommended_actions"`
	Confidence         float64  `json:"confidence"`
}

// CycleResult describes what one decision cycle did. It only feeds logging
// and gauges.
type CycleResult struct {
	Restarts  int
	Escalated bool
	Triage    *Triage
	Exit      string
}

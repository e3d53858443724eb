// Package telemetry traces decision cycles: one root span per cycle carrying
// the planned steps, and one child span per step that actually ran.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	PlanEventName  = "aimonitor.plan"
	PlanVersion    = "1"
	PlanVersionKey = "aimonitor.plan.version"
	PlanJSONKey    = "aimonitor.plan.json"
	OutcomeKey     = "aimonitor.cycle.outcome"

	defaultCycleName = "cycle"
)

// PlannedStep is one entry of a cycle plan. Nested steps name their parent;
// a step's span only exists if the cycle reached it.
type PlannedStep struct {
	ID       string `json:"id"`
	ParentID string `json:"parent_id,omitempty"`
	Title    string `json:"title"`
}

// Plan lists every step a cycle may run, parents before children. It is
// attached to the root span so a trace shows where the cycle stopped.
type Plan struct {
	Steps []PlannedStep `json:"steps"`
}

// Validate checks that step ids are unique and non-blank and that every
// parent is declared ahead of its children.
func (p Plan) Validate() error {
	ids := make(map[string]bool, len(p.Steps))
	for i, step := range p.Steps {
		id := strings.TrimSpace(step.ID)
		switch {
		case id == "":
			return fmt.Errorf("step %d has empty id", i)
		case ids[id]:
			return fmt.Errorf("duplicate step id %q", id)
		}
		if parent := strings.TrimSpace(step.ParentID); parent != "" && !ids[parent] {
			return fmt.Errorf("step %q: parent %q is not declared before it", id, parent)
		}
		ids[id] = true
	}
	return nil
}

// Cycle is the root span of one decision cycle.
type Cycle struct {
	ctx    context.Context
	tracer trace.Tracer
	span   trace.Span
}

// StartCycle opens the root span and records plan on it. A blank name falls
// back to "cycle".
func StartCycle(ctx context.Context, tracer trace.Tracer, name string, plan Plan) (*Cycle, error) {
	if tracer == nil {
		return nil, fmt.Errorf("start cycle span: tracer is required")
	}
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("start cycle span: %w", err)
	}
	planJSON, err := json.Marshal(plan)
	if err != nil {
		return nil, fmt.Errorf("start cycle span: marshal plan: %w", err)
	}

	if name = strings.TrimSpace(name); name == "" {
		name = defaultCycleName
	}
	planAttrs := trace.WithAttributes(
		attribute.String(PlanVersionKey, PlanVersion),
		attribute.String(PlanJSONKey, string(planJSON)),
	)
	rootCtx, span := tracer.Start(ctx, name, planAttrs)
	span.AddEvent(PlanEventName, planAttrs)
	return &Cycle{ctx: rootCtx, tracer: tracer, span: span}, nil
}

// Context carries the root span. A nil Cycle returns context.Background.
func (c *Cycle) Context() context.Context {
	if c == nil {
		return context.Background()
	}
	return c.ctx
}

// RunStep runs fn inside a child span named id. A nil Cycle runs fn untraced.
// A failing step marks its span as errored and returns the error unchanged.
func (c *Cycle) RunStep(ctx context.Context, id string, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("run cycle step: step id is required")
	}
	if c == nil || c.tracer == nil {
		return fn(ctx)
	}
	if ctx == nil {
		ctx = c.ctx
	}

	stepCtx, span := c.tracer.Start(ctx, id)
	defer span.End()
	err := fn(stepCtx)
	if err != nil {
		markFailed(span, err)
	}
	return err
}

// Annotate adds attributes to the span active in ctx.
func Annotate(ctx context.Context, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).SetAttributes(attrs...)
}

// End closes the root span, tagging it with the cycle outcome.
func (c *Cycle) End(outcome string, err error) {
	if c == nil || c.span == nil {
		return
	}
	if outcome != "" {
		c.span.SetAttributes(attribute.String(OutcomeKey, outcome))
	}
	if err != nil {
		markFailed(c.span, err)
	}
	c.span.End()
}

func markFailed(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, strings.TrimSpace(err.Error()))
}

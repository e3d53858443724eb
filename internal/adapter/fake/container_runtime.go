package fake

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"aimonitor/internal/model"
)

// Runtime is an in-memory container runtime.
type Runtime struct {
	CallRecorder
	mu         sync.Mutex
	containers map[string]model.ContainerStatus
	logs       map[string]string

	ListErr      func(ctx context.Context) error
	RestartErr   func(ctx context.Context, name string) error
	LogsErr      func(ctx context.Context, name string) error
	WaitReadyErr func(ctx context.Context) error
}

// NewRuntime creates a Runtime holding containers.
func NewRuntime(containers ...model.ContainerStatus) *Runtime {
	r := &Runtime{
		containers: make(map[string]model.ContainerStatus),
		logs:       make(map[string]string),
	}
	for _, c := range containers {
		r.containers[c.Name] = c
	}
	return r
}

// Put adds or replaces a container.
func (r *Runtime) Put(c model.ContainerStatus) {
	r.mu.Lock()
	r.containers[c.Name] = c
	r.mu.Unlock()
}

// SetLogs sets the log text returned for name.
func (r *Runtime) SetLogs(name, text string) {
	r.mu.Lock()
	r.logs[name] = text
	r.mu.Unlock()
}

func (r *Runtime) WaitReady(ctx context.Context) error {
	r.record("WaitReady")
	if r.WaitReadyErr != nil {
		return r.WaitReadyErr(ctx)
	}
	return nil
}

func (r *Runtime) List(ctx context.Context) ([]model.ContainerStatus, error) {
	r.record("List")
	if r.ListErr != nil {
		if err := r.ListErr(ctx); err != nil {
			return nil, err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.ContainerStatus, 0, len(r.containers))
	for _, c := range r.containers {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *Runtime) Get(ctx context.Context, name string) (model.ContainerStatus, error) {
	r.record("Get", name)
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.containers[name]
	if !ok {
		return model.ContainerStatus{}, fmt.Errorf("container %q not found", name)
	}
	return c, nil
}

// Restart marks the container running and healthy.
func (r *Runtime) Restart(ctx context.Context, name string, timeout time.Duration) error {
	r.record("Restart", name, timeout)
	if r.RestartErr != nil {
		if err := r.RestartErr(ctx, name); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.containers[name]
	if !ok {
		return fmt.Errorf("container %q not found", name)
	}
	c.RuntimeStatus = "running"
	if c.HealthState != "" {
		c.HealthState = "starting"
	}
	r.containers[name] = c
	return nil
}

func (r *Runtime) Logs(ctx context.Context, name string, lines int) (string, error) {
	r.record("Logs", name, lines)
	if r.LogsErr != nil {
		if err := r.LogsErr(ctx, name); err != nil {
			return "", err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.logs[name], nil
}

// Package docker adapts the Docker Engine API to the monitor's container
// runtime ports.
package docker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/containerd/errdefs"
	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"aimonitor/internal/model"
)

const (
	readyInitialInterval = 250 * time.Millisecond
	readyMaxInterval     = 5 * time.Second
	readyMaxElapsed      = 2 * time.Minute
)

// apiClient is the subset of the Docker SDK the runtime uses.
type apiClient interface {
	Ping(ctx context.Context) (types.Ping, error)
	ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error)
	ContainerInspect(ctx context.Context, id string) (container.InspectResponse, error)
	ContainerRestart(ctx context.Context, id string, options container.StopOptions) error
	ContainerLogs(ctx context.Context, id string, options container.LogsOptions) (io.ReadCloser, error)
	Close() error
}

// Runtime lists, inspects and restarts containers through the Docker Engine API.
type Runtime struct {
	cli apiClient
}

// NewRuntime creates a Runtime with a new Docker client from the environment.
// host overrides DOCKER_HOST when non-empty.
func NewRuntime(host string) (*Runtime, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if strings.TrimSpace(host) != "" {
		opts = append(opts, client.WithHost(host))
	}
	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	return &Runtime{cli: cli}, nil
}

// WaitReady blocks until the daemon answers a ping. Connection failures are
// retried with backoff; any other error is returned immediately.
func (r *Runtime) WaitReady(ctx context.Context) error {
	check := func() error {
		_, err := r.cli.Ping(ctx)
		if err == nil {
			return nil
		}
		if !client.IsErrConnectionFailed(err) {
			return backoff.Permanent(err)
		}
		slog.Debug("docker daemon not ready", "err", err)
		return err
	}

	b := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(readyInitialInterval),
		backoff.WithMaxInterval(readyMaxInterval),
		backoff.WithMaxElapsedTime(readyMaxElapsed),
	)
	if err := backoff.Retry(check, backoff.WithContext(b, ctx)); err != nil {
		return fmt.Errorf("connect to docker daemon: %w", err)
	}
	return nil
}

// List returns every container, running or not, sorted by name. Health and
// exit code come from a per-container inspect; an inspect failure keeps the
// listed state and drops the detail.
func (r *Runtime) List(ctx context.Context) ([]model.ContainerStatus, error) {
	containers, err := r.cli.ContainerList(ctx, container.ListOptions{All: true})
	if err != nil {
		return nil, fmt.Errorf("list containers: %w", err)
	}

	out := make([]model.ContainerStatus, 0, len(containers))
	for _, c := range containers {
		name := c.ID
		if len(c.Names) > 0 {
			name = strings.TrimPrefix(c.Names[0], "/")
		}
		status := model.ContainerStatus{Name: name, RuntimeStatus: string(c.State)}

		info, err := r.cli.ContainerInspect(ctx, c.ID)
		switch {
		case errdefs.IsNotFound(err):
			// Removed between list and inspect.
			continue
		case err != nil:
			slog.Debug("inspect container failed", "container", name, "err", err)
		default:
			status = fromInspect(name, info)
		}
		out = append(out, status)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Restart stops and starts the named container, giving it timeout to stop.
func (r *Runtime) Restart(ctx context.Context, name string, timeout time.Duration) error {
	secs := int(timeout.Seconds())
	if err := r.cli.ContainerRestart(ctx, name, container.StopOptions{Timeout: &secs}); err != nil {
		return fmt.Errorf("restart container %q: %w", name, err)
	}
	return nil
}

// Logs returns the last lines of combined stdout and stderr.
func (r *Runtime) Logs(ctx context.Context, name string, lines int) (string, error) {
	opts := container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Tail:       strconv.Itoa(lines),
	}
	rc, err := r.cli.ContainerLogs(ctx, name, opts)
	if err != nil {
		return "", fmt.Errorf("container logs %q: %w", name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("read container logs %q: %w", name, err)
	}
	return string(bytes.TrimSpace(demux(data))), nil
}

func (r *Runtime) Close() error {
	return r.cli.Close()
}

func fromInspect(name string, info container.InspectResponse) model.ContainerStatus {
	status := model.ContainerStatus{Name: name}
	if info.ContainerJSONBase == nil || info.State == nil {
		return status
	}
	st := info.State
	status.RuntimeStatus = string(st.Status)
	if st.Health != nil {
		status.HealthState = string(st.Health.Status)
	}
	if status.Exited() {
		code := st.ExitCode
		status.ExitCode = &code
	}
	return status
}

// demux strips the multiplexed stream headers, keeping stdout and stderr
// interleaved. Containers with a TTY are not multiplexed, so a demux failure
// returns the raw bytes.
func demux(data []byte) []byte {
	var out bytes.Buffer
	if _, err := stdcopy.StdCopy(&out, &out, bytes.NewReader(data)); err != nil {
		return data
	}
	return out.Bytes()
}

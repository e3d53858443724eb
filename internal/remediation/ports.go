package remediation

import (
	"context"
	"time"
)

// Restarter restarts a container by name.
// Production: runtime/docker.Runtime
// Testing: adapter/fake.Runtime
type Restarter interface {
	Restart(ctx context.Context, name string, timeout time.Duration) error
}

// Recorder receives restart accounting.
// Production: *metrics.Metrics
type Recorder interface {
	RecordRestart(container string)
}

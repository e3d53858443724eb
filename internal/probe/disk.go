package probe

import (
	"context"
	"fmt"

	"aimonitor/internal/model"
)

const DiskName = "root_disk_free_ratio"

// Usage is the block accounting of one filesystem.
type Usage struct {
	Total     uint64
	Available uint64
}

// Disk reports the free-space ratio of the filesystem holding path.
type Disk struct {
	path string

	// StatFunc replaces the statfs call in tests.
	StatFunc func(path string) (Usage, error)
}

// NewDisk creates a probe for path, "/" when empty.
func NewDisk(path string) *Disk {
	if path == "" {
		path = "/"
	}
	return &Disk{path: path}
}

func (d *Disk) Name() string { return DiskName }

func (d *Disk) Probe(ctx context.Context) model.QueryResult {
	desc := fmt.Sprintf("Free space ratio of the filesystem holding %s", d.path)
	query := "statfs://" + d.path

	stat := d.StatFunc
	if stat == nil {
		stat = statfs
	}
	u, err := stat(d.path)
	if err != nil {
		return failed(desc, query, fmt.Errorf("statfs %s: %w", d.path, err))
	}
	if u.Total == 0 {
		return failed(desc, query, fmt.Errorf("statfs %s: filesystem reports zero size", d.path))
	}
	return model.QueryResult{
		Description: desc,
		Query:       query,
		Result: []model.Series{{
			Labels: map[string]string{"mountpoint": d.path},
			Value:  float64(u.Available) / float64(u.Total),
		}},
	}
}

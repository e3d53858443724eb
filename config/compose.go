package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/compose-spec/compose-go/v2/loader"
	compose "github.com/compose-spec/compose-go/v2/types"

	"aimonitor/internal/health"
)

// ComposeContainerNames returns the container name of every service in a
// Compose file: its container_name, or "<project>-<service>-1" when unset.
// project overrides the name from the file.
func ComposeContainerNames(ctx context.Context, path, project string) ([]string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve compose file: %w", err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("read compose file: %w", err)
	}

	dir := filepath.Dir(abs)
	details := compose.ConfigDetails{
		WorkingDir:  dir,
		ConfigFiles: []compose.ConfigFile{{Filename: abs, Content: data}},
		Environment: compose.NewMapping(os.Environ()),
	}
	p, err := loader.LoadWithContext(ctx, details, func(o *loader.Options) {
		if name := strings.TrimSpace(project); name != "" {
			o.SetProjectName(loader.NormalizeProjectName(name), true)
			return
		}
		o.SetProjectName(loader.NormalizeProjectName(filepath.Base(dir)), false)
	})
	if err != nil {
		return nil, fmt.Errorf("parse compose file %s: %w", path, err)
	}

	names := make([]string, 0, len(p.Services))
	for key, svc := range p.Services {
		if svc.ContainerName != "" {
			names = append(names, svc.ContainerName)
			continue
		}
		service := svc.Name
		if service == "" {
			service = key
		}
		names = append(names, p.Name+"-"+service+"-1")
	}
	sort.Strings(names)
	return names, nil
}

// Allowlist merges AllowedContainers with the services of ComposeFile.
func (c Config) Allowlist(ctx context.Context) (health.Allowlist, error) {
	names := append([]string(nil), c.AllowedContainers...)
	if strings.TrimSpace(c.ComposeFile) != "" {
		fromCompose, err := ComposeContainerNames(ctx, c.ComposeFile, c.ComposeProject)
		if err != nil {
			return nil, err
		}
		names = append(names, fromCompose...)
	}
	return health.NewAllowlist(names...), nil
}

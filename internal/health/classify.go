// Package health partitions a container listing into healthy, unhealthy and
// exited sets.
package health

import (
	"sort"

	"aimonitor/internal/model"
)

// Allowlist is the set of container names eligible for monitoring and
// automated action. An empty allowlist admits every container.
type Allowlist map[string]struct{}

// NewAllowlist builds an allowlist from names, ignoring blanks.
func NewAllowlist(names ...string) Allowlist {
	out := make(Allowlist, len(names))
	for _, n := range names {
		if n == "" {
			continue
		}
		out[n] = struct{}{}
	}
	return out
}

// Admits reports whether name passes the allowlist.
func (a Allowlist) Admits(name string) bool {
	if len(a) == 0 {
		return true
	}
	_, ok := a[name]
	return ok
}

// Names returns the allowlist members sorted.
func (a Allowlist) Names() []string {
	out := make([]string, 0, len(a))
	for n := range a {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Classification is the result of Classify. Every slice is sorted by name.
type Classification struct {
	Unhealthy []model.ContainerStatus
	Exited    []model.ContainerStatus
	Healthy   []model.ContainerStatus
	// Total is the number of containers that passed the allowlist.
	Total int
}

// ProblemCount is the size of the union of unhealthy and exited, by name.
func (c Classification) ProblemCount() int {
	seen := make(map[string]struct{}, len(c.Unhealthy)+len(c.Exited))
	for _, s := range c.Unhealthy {
		seen[s.Name] = struct{}{}
	}
	for _, s := range c.Exited {
		seen[s.Name] = struct{}{}
	}
	return len(seen)
}

// ExitedNames returns the names of exited containers.
func (c Classification) ExitedNames() []string {
	return names(c.Exited)
}

// ProblemNames returns the sorted union of unhealthy and exited names.
func (c Classification) ProblemNames() []string {
	seen := make(map[string]struct{})
	for _, s := range c.Unhealthy {
		seen[s.Name] = struct{}{}
	}
	for _, s := range c.Exited {
		seen[s.Name] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Classify partitions containers. Containers outside a non-empty allowlist
// are dropped first. A container that is both unhealthy and exited appears
// in both problem sets but is counted once; Healthy holds the rest, so
// len(Healthy)+ProblemCount() == Total.
func Classify(containers []model.ContainerStatus, allow Allowlist) Classification {
	filtered := make([]model.ContainerStatus, 0, len(containers))
	for _, c := range containers {
		if !allow.Admits(c.Name) {
			continue
		}
		filtered = append(filtered, c)
	}
	sort.SliceStable(filtered, func(i, j int) bool { return filtered[i].Name < filtered[j].Name })

	out := Classification{Total: len(filtered)}
	for _, c := range filtered {
		unhealthy := c.Unhealthy()
		exited := c.Exited()
		if unhealthy {
			out.Unhealthy = append(out.Unhealthy, c)
		}
		if exited {
			out.Exited = append(out.Exited, c)
		}
		if !unhealthy && !exited {
			out.Healthy = append(out.Healthy, c)
		}
	}
	return out
}

func names(in []model.ContainerStatus) []string {
	out := make([]string, 0, len(in))
	for _, c := range in {
		out = append(out, c.Name)
	}
	return out
}

package incident

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const reportTimeLayout = "20060102T150405Z"

// FileSink writes one markdown report per incident into a directory.
type FileSink struct {
	dir string
}

func NewFileSink(dir string) *FileSink {
	return &FileSink{dir: dir}
}

// Path returns where rec's report is written.
func (s *FileSink) Path(rec Record) string {
	return filepath.Join(s.dir, rec.CreatedAt.UTC().Format(reportTimeLayout)+"-"+rec.ID.String()+".md")
}

func (s *FileSink) Persist(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create incident directory: %w", err)
	}
	body, err := RenderMarkdown(rec)
	if err != nil {
		return err
	}

	path := s.Path(rec)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(body), 0o644); err != nil {
		return fmt.Errorf("write incident report: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write incident report: %w", err)
	}
	return nil
}

// RenderMarkdown formats rec as a report.
func RenderMarkdown(rec Record) (string, error) {
	snap, err := json.MarshalIndent(rec.Snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal incident snapshot: %w", err)
	}

	t := rec.Triage
	var b strings.Builder
	fmt.Fprintf(&b, "# Incident %s\n\n", rec.ID)
	fmt.Fprintf(&b, "- **Time:** %s\n", rec.CreatedAt.UTC().Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(&b, "- **Severity:** %s\n", t.Severity)
	fmt.Fprintf(&b, "- **Confidence:** %.2f\n", t.Confidence)
	if rec.Backend != "" {
		fmt.Fprintf(&b, "- **Backend:** %s\n", rec.Backend)
	}
	if rec.Trigger != "" {
		fmt.Fprintf(&b, "- **Trigger:** %s\n", rec.Trigger)
	}

	fmt.Fprintf(&b, "\n## Summary\n\n%s\n", t.Summary)

	b.WriteString("\n## Suspected causes\n\n")
	if len(t.SuspectedCauses) == 0 {
		b.WriteString("None reported.\n")
	}
	for _, c := range t.SuspectedCauses {
		fmt.Fprintf(&b, "- %s\n", c)
	}

	b.WriteString("\n## Recommended actions\n\n")
	if len(t.RecommendedActions) == 0 {
		b.WriteString("None reported.\n")
	}
	for i, a := range t.RecommendedActions {
		fmt.Fprintf(&b, "%d. `%s`", i+1, a.Type)
		if target := a.TargetName(); target != "" {
			fmt.Fprintf(&b, " on `%s`", target)
		}
		if a.Reason != nil && *a.Reason != "" {
			fmt.Fprintf(&b, ": %s", *a.Reason)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\n## Snapshot\n\n```json\n%s\n```\n", snap)
	return b.String(), nil
}

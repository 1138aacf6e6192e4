package backup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/flowctl/flowctl/internal/client"
)

// Manifest describes a snapshot directory.
type Manifest struct {
	Server    string    `json:"server"`
	ProjectID string    `json:"project_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Workflows []Item    `json:"workflows"`
}

// Item is one workflow in the manifest, pointing at its file.
type Item struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	File string `json:"file"`
}

const (
	manifestFile = "manifest.json"
	workflowsDir = "workflows"
)

// DirName returns the conventional snapshot directory name for a server.
func DirName(server string, now time.Time) string {
	return fmt.Sprintf("flow-backup-%s-%s", server, now.Format("20060102-150405"))
}

// Write saves the workflows as a snapshot directory: a manifest plus one
// JSON file per workflow under workflows/. The directory must not already
// contain a snapshot.
func Write(dir, server, projectID string, workflows []client.Workflow) (*Manifest, error) {
	if _, err := os.Stat(filepath.Join(dir, manifestFile)); err == nil {
		return nil, fmt.Errorf("%s already contains a snapshot", dir)
	}
	if err := os.MkdirAll(filepath.Join(dir, workflowsDir), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	manifest := &Manifest{
		Server:    server,
		ProjectID: projectID,
		CreatedAt: time.Now().UTC(),
	}

	for i := range workflows {
		w := &workflows[i]
		file := filepath.Join(workflowsDir, safeFileName(w.Name, w.ID))

		data, err := json.MarshalIndent(w, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode workflow %q: %w", w.Name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, file), data, 0o644); err != nil {
			return nil, fmt.Errorf("failed to write workflow %q: %w", w.Name, err)
		}

		manifest.Workflows = append(manifest.Workflows, Item{ID: w.ID, Name: w.Name, File: file})
	}

	sort.Slice(manifest.Workflows, func(i, j int) bool {
		return manifest.Workflows[i].Name < manifest.Workflows[j].Name
	})

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(dir, manifestFile), data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write manifest: %w", err)
	}

	return manifest, nil
}

// Read loads a snapshot directory and returns its manifest and workflows.
func Read(dir string) (*Manifest, []client.Workflow, error) {
	data, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%s is not a snapshot directory (no %s)", dir, manifestFile)
		}
		return nil, nil, err
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, nil, fmt.Errorf("failed to parse manifest in %s: %w", dir, err)
	}

	workflows := make([]client.Workflow, 0, len(manifest.Workflows))
	for _, item := range manifest.Workflows {
		data, err := os.ReadFile(filepath.Join(dir, item.File))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read workflow %q: %w", item.Name, err)
		}
		var w client.Workflow
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, nil, fmt.Errorf("failed to parse workflow %q: %w", item.Name, err)
		}
		workflows = append(workflows, w)
	}

	return &manifest, workflows, nil
}

// safeFileName builds "<name>_<id>.json" with anything outside
// [a-zA-Z0-9._-] replaced so names survive any filesystem.
func safeFileName(name, id string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return fmt.Sprintf("%s_%s.json", b.String(), id)
}

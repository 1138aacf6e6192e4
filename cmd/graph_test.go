package cmd

import (
	"strings"
	"testing"

	"github.com/flowctl/flowctl/internal/backup"
	"github.com/flowctl/flowctl/internal/client"
)

func TestRunGraphPrintsCreationOrder(t *testing.T) {
	dir, cleanup := createTempDir()
	defer cleanup()

	workflows := []client.Workflow{
		{
			ID:   "wf-parent",
			Name: "parent",
			Nodes: []map[string]any{{
				"type":       "n8n-nodes-base.executeWorkflow",
				"parameters": map[string]any{"workflowId": "wf-child"},
			}},
		},
		{ID: "wf-child", Name: "child"},
	}
	if _, err := backup.Write(dir, "prod", "", workflows); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	var runErr error
	stdout, _ := captureOutput(func() {
		runErr = runGraph(graphCmd, []string{dir})
	})
	if runErr != nil {
		t.Fatalf("runGraph() error = %v", runErr)
	}

	if !strings.Contains(stdout, "child") || !strings.Contains(stdout, "parent") {
		t.Errorf("graph output missing workflows:\n%s", stdout)
	}
}

func TestRunGraphReportsMissingSnapshot(t *testing.T) {
	dir, cleanup := createTempDir()
	defer cleanup()

	if err := runGraph(graphCmd, []string{dir}); err == nil {
		t.Fatal("runGraph() error = nil for a directory with no snapshot")
	}
}

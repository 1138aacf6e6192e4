package cmd

import (
	"bytes"
	"io"
	"os"

	"github.com/flowctl/flowctl/internal/client"
)

// setupTestClient creates a mock client seeded for command tests
func setupTestClient() *client.MockWorkflowClient {
	return client.NewMockClient()
}

// addTestWorkflow seeds a workflow with the given name
func addTestWorkflow(mock *client.MockWorkflowClient, id, name string) *client.Workflow {
	w := &client.Workflow{
		ID:          id,
		Name:        name,
		Nodes:       []map[string]any{{"type": "n8n-nodes-base.cron"}},
		Connections: map[string]any{},
	}
	mock.AddWorkflow(w)
	return w
}

// captureOutput captures stdout and stderr for testing
func captureOutput(f func()) (string, string) {
	oldStdout := os.Stdout
	oldStderr := os.Stderr

	rOut, wOut, _ := os.Pipe()
	rErr, wErr, _ := os.Pipe()

	os.Stdout = wOut
	os.Stderr = wErr

	f()

	wOut.Close()
	wErr.Close()

	os.Stdout = oldStdout
	os.Stderr = oldStderr

	var bufOut, bufErr bytes.Buffer
	io.Copy(&bufOut, rOut)
	io.Copy(&bufErr, rErr)

	return bufOut.String(), bufErr.String()
}

// createTempDir creates a temporary directory
func createTempDir() (string, func()) {
	dir, err := os.MkdirTemp("", "flowctl-test-*")
	if err != nil {
		panic(err)
	}

	return dir, func() {
		os.RemoveAll(dir)
	}
}

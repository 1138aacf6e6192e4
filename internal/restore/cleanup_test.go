package restore

import (
	"context"
	"testing"

	"github.com/flowctl/flowctl/internal/client"
	"github.com/flowctl/flowctl/internal/graph"
	"github.com/flowctl/flowctl/internal/mapping"
)

func TestCleanupDeletesOnlyToolManaged(t *testing.T) {
	mock := client.NewMockClient()
	store := testStore(t)

	// A workflow the tool never created must survive.
	foreign := &client.Workflow{Name: "not-ours"}
	mock.AddWorkflow(foreign)

	o := testOrchestrator(mock, store)
	workflows := []client.Workflow{
		testWorkflow("wf-1", "ours", credNode("postgres", "Postgres Main PROD")),
	}
	if _, err := o.Run(context.Background(), buildGraph(t, workflows)); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// A reused project is mapped but not tool-managed.
	mock.AddProject(&client.Project{Name: "Shared"})
	if _, err := o.EnsureProject("Shared"); err != nil {
		t.Fatalf("EnsureProject() error = %v", err)
	}

	cl := NewCleaner(mock, store)
	res, err := cl.Run(context.Background(), "staging")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Deleted != 2 {
		t.Errorf("Deleted = %d, want 2", res.Deleted)
	}
	if res.Failed != 0 {
		t.Errorf("Failed = %d, want 0", res.Failed)
	}

	if _, ok := mock.Workflows[foreign.ID]; !ok {
		t.Error("untracked workflow was deleted")
	}
	if len(mock.Credentials) != 0 {
		t.Errorf("%d credentials left, want 0", len(mock.Credentials))
	}
	if len(mock.Projects) != 1 {
		t.Errorf("%d projects left, want 1", len(mock.Projects))
	}

	// Only the externally owned project entry remains in the store.
	remaining := store.AllFor("staging")
	if len(remaining) != 1 || remaining[0].Kind != string(graph.KindProject) {
		t.Errorf("remaining entries = %v, want only the shared project", remaining)
	}
}

func TestCleanupDeletesWorkflowsBeforeCredentials(t *testing.T) {
	mock := client.NewMockClient()
	store := testStore(t)

	o := testOrchestrator(mock, store)
	workflows := []client.Workflow{
		testWorkflow("wf-1", "a", credNode("postgres", "Postgres Main PROD")),
		testWorkflow("wf-2", "b", credNode("slackApi", "Slack Bot PROD")),
	}
	if _, err := o.Run(context.Background(), buildGraph(t, workflows)); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	mock.Calls = nil

	cl := NewCleaner(mock, store)
	if _, err := cl.Run(context.Background(), "staging"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	lastWorkflowDelete, firstCredentialDelete := -1, -1
	for i, call := range mock.Calls {
		switch call.Method {
		case "DeleteWorkflow":
			lastWorkflowDelete = i
		case "DeleteCredential":
			if firstCredentialDelete == -1 {
				firstCredentialDelete = i
			}
		}
	}
	if lastWorkflowDelete == -1 || firstCredentialDelete == -1 {
		t.Fatalf("missing deletions in calls: %v", mock.Calls)
	}
	if lastWorkflowDelete > firstCredentialDelete {
		t.Error("a credential was deleted before all workflows were gone")
	}
}

func TestCleanupDeletesDependentWorkflowFirst(t *testing.T) {
	mock := client.NewMockClient()
	store := testStore(t)

	// parent calls child, so parent was created after child and must be
	// deleted before it.
	o := testOrchestrator(mock, store)
	workflows := []client.Workflow{
		testWorkflow("wf-parent", "parent", callNode("wf-child")),
		testWorkflow("wf-child", "child"),
	}
	if _, err := o.Run(context.Background(), buildGraph(t, workflows)); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	childEntry, _ := store.Get(mapping.Key{
		Kind: string(graph.KindWorkflow), SourceServer: "prod",
		SourceID: "wf-child", TargetServer: "staging",
	})
	mock.Calls = nil

	cl := NewCleaner(mock, store)
	if _, err := cl.Run(context.Background(), "staging"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var deleteOrder []string
	for _, call := range mock.Calls {
		if call.Method == "DeleteWorkflow" {
			deleteOrder = append(deleteOrder, call.Args[0].(string))
		}
	}
	if len(deleteOrder) != 2 {
		t.Fatalf("got %d workflow deletions, want 2", len(deleteOrder))
	}
	if deleteOrder[1] != childEntry.TargetID {
		t.Error("dependency workflow deleted before its dependent")
	}
}

func TestCleanupTreatsMissingResourceAsDeleted(t *testing.T) {
	mock := client.NewMockClient()
	store := testStore(t)

	store.Put(mapping.Entry{
		Kind:         string(graph.KindWorkflow),
		SourceServer: "prod",
		SourceID:     "wf-gone",
		TargetServer: "staging",
		TargetID:     "already-deleted",
		TargetName:   "gone",
		ToolManaged:  true,
	})

	cl := NewCleaner(mock, store)
	res, err := cl.Run(context.Background(), "staging")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Deleted != 1 {
		t.Errorf("Deleted = %d, want 1", res.Deleted)
	}
	if store.Len() != 0 {
		t.Errorf("store has %d entries, want 0", store.Len())
	}
}

func TestCleanupKeepsEntryOnFailure(t *testing.T) {
	mock := client.NewMockClient()
	mock.AddWorkflow(&client.Workflow{ID: "wf-target", Name: "stuck"})
	mock.DeleteError = &client.APIError{StatusCode: 500, Message: "boom"}
	store := testStore(t)

	store.Put(mapping.Entry{
		Kind:         string(graph.KindWorkflow),
		SourceServer: "prod",
		SourceID:     "wf-1",
		TargetServer: "staging",
		TargetID:     "wf-target",
		TargetName:   "stuck",
		ToolManaged:  true,
	})

	cl := NewCleaner(mock, store)
	res, err := cl.Run(context.Background(), "staging")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Failed != 1 {
		t.Errorf("Failed = %d, want 1", res.Failed)
	}
	if store.Len() != 1 {
		t.Errorf("store has %d entries, want 1 kept for retry", store.Len())
	}
}

func TestCleanupEmptyStoreIsNoop(t *testing.T) {
	mock := client.NewMockClient()
	cl := NewCleaner(mock, testStore(t))

	res, err := cl.Run(context.Background(), "staging")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Deleted != 0 || res.Failed != 0 {
		t.Errorf("result = %+v, want empty", res)
	}
	if len(mock.Calls) != 0 {
		t.Errorf("%d client calls on empty store, want 0", len(mock.Calls))
	}
}

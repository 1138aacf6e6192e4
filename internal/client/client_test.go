package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *WorkflowClient) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c := NewClient(server.URL, "test-key")
	c.RetryDelay = time.Millisecond
	return server, c
}

func TestListWorkflows(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/workflows" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("X-API-KEY") != "test-key" {
			t.Error("expected API key header to be set")
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"id": "wf-1", "name": "Order Sync"},
				{"id": "wf-2", "name": "Invoice Export"},
			},
		})
	})

	workflows, err := c.ListWorkflows("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(workflows) != 2 {
		t.Fatalf("expected 2 workflows, got %d", len(workflows))
	}
	if workflows[0].ID != "wf-1" {
		t.Errorf("expected id 'wf-1', got '%s'", workflows[0].ID)
	}
}

func TestListWorkflowsByProject(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("projectId"); got != "proj-9" {
			t.Errorf("expected projectId 'proj-9', got '%s'", got)
		}
		json.NewEncoder(w).Encode(map[string]any{"data": []map[string]any{}})
	})

	if _, err := c.ListWorkflows("proj-9"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreateWorkflowSendsCreatePayloadOnly(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		json.NewDecoder(r.Body).Decode(&payload)
		if _, ok := payload["id"]; ok {
			t.Error("create payload must not contain the source id")
		}
		if payload["name"] != "Order Sync" {
			t.Errorf("expected name 'Order Sync', got %v", payload["name"])
		}
		json.NewEncoder(w).Encode(map[string]string{"id": "new-id"})
	})

	id, err := c.CreateWorkflow(&Workflow{
		ID:          "old-id",
		Name:        "Order Sync",
		Nodes:       []map[string]any{},
		Connections: map[string]any{},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "new-id" {
		t.Errorf("expected id 'new-id', got '%s'", id)
	}
}

func TestCreateCredential(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"id": "cred-7", "name": "Postgres PROD", "type": "postgres"})
	})

	created, err := c.CreateCredential(&Credential{
		Name: "Postgres PROD",
		Type: "postgres",
		Data: map[string]any{"host": "db.example.com"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.ID != "cred-7" {
		t.Errorf("expected id 'cred-7', got '%s'", created.ID)
	}
}

func TestDeleteWorkflowNotFound(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "workflow not found", http.StatusNotFound)
	})

	err := c.DeleteWorkflow("missing")
	if err == nil {
		t.Fatal("expected error for missing workflow")
	}
	if !IsNotFound(err) {
		t.Errorf("expected IsNotFound to be true, got: %v", err)
	}
}

func TestTransientRetry(t *testing.T) {
	var hits int32
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			http.Error(w, "gateway busy", http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"data": []map[string]any{}})
	})

	if _, err := c.ListWorkflows(""); err != nil {
		t.Fatalf("expected retries to succeed, got: %v", err)
	}
	if got := atomic.LoadInt32(&hits); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestDefinitiveRejectionNotRetried(t *testing.T) {
	var hits int32
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.Error(w, "invalid payload", http.StatusBadRequest)
	})

	_, err := c.CreateWorkflow(&Workflow{Name: "bad"})
	if err == nil {
		t.Fatal("expected error")
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Errorf("expected exactly 1 attempt for a 4xx, got %d", got)
	}
	if IsTransient(err) {
		t.Error("a 400 rejection must not be classified as transient")
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"bad gateway", &APIError{StatusCode: http.StatusBadGateway}, true},
		{"service unavailable", &APIError{StatusCode: http.StatusServiceUnavailable}, true},
		{"conflict", &APIError{StatusCode: http.StatusConflict}, false},
		{"not found", &APIError{StatusCode: http.StatusNotFound}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient() = %v, want %v", got, tt.want)
			}
		})
	}
}

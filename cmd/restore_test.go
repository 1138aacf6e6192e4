package cmd

import (
	"strings"
	"testing"

	"github.com/flowctl/flowctl/internal/client"
	"github.com/flowctl/flowctl/internal/config"
	"github.com/flowctl/flowctl/internal/graph"
)

func TestReplacementRules(t *testing.T) {
	saved := config.AppConfig
	defer func() { config.AppConfig = saved }()

	config.AppConfig.Replacements = map[string]config.ReplacementRule{
		"api endpoint": {
			Description: "Base URL of the partner API",
			Values:      map[string]string{"prod": "https://api.example.com", "staging": "https://api.staging.example.com"},
		},
	}

	rules := replacementRules()
	if len(rules) != 1 {
		t.Fatalf("got %d rules, want 1", len(rules))
	}
	if rules[0].Name != "api endpoint" {
		t.Errorf("rule name = %q", rules[0].Name)
	}
	if rules[0].Values["staging"] != "https://api.staging.example.com" {
		t.Errorf("staging value = %q", rules[0].Values["staging"])
	}
}

func TestJoinOrDash(t *testing.T) {
	if got := joinOrDash(nil); got != "-" {
		t.Errorf("joinOrDash(nil) = %q, want -", got)
	}
	if got := joinOrDash([]string{"a"}); got != "a" {
		t.Errorf("joinOrDash([a]) = %q", got)
	}
	if got := joinOrDash([]string{"a", "b"}); got != "a, b" {
		t.Errorf("joinOrDash([a b]) = %q", got)
	}
}

func TestPrintPlanListsDependenciesFirst(t *testing.T) {
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

	g, err := graph.Build(workflows, nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	stdout, _ := captureOutput(func() {
		if err := printPlan(g); err != nil {
			t.Errorf("printPlan() error = %v", err)
		}
	})

	childAt := strings.Index(stdout, "child")
	parentAt := strings.Index(stdout, "parent")
	if childAt == -1 || parentAt == -1 {
		t.Fatalf("plan output missing workflows:\n%s", stdout)
	}
	if childAt > parentAt {
		t.Errorf("child listed after parent in plan:\n%s", stdout)
	}
}

func TestPrintPlanReportsCycle(t *testing.T) {
	workflows := []client.Workflow{
		{ID: "wf-a", Name: "a", Nodes: []map[string]any{{
			"type":       "n8n-nodes-base.executeWorkflow",
			"parameters": map[string]any{"workflowId": "wf-b"},
		}}},
		{ID: "wf-b", Name: "b", Nodes: []map[string]any{{
			"type":       "n8n-nodes-base.executeWorkflow",
			"parameters": map[string]any{"workflowId": "wf-a"},
		}}},
	}

	g, err := graph.Build(workflows, nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if err := printPlan(g); err == nil {
		t.Fatal("printPlan() error = nil, want cycle error")
	}
}

package transform

import (
	"reflect"
	"testing"
)

var knownPostfixes = []string{"PROD", "DEV", "STAGING"}

func TestStripPostfixes(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no postfix", "Postgres Main", "Postgres Main"},
		{"single postfix", "Postgres Main PROD", "Postgres Main"},
		{"different postfix", "Postgres Main DEV", "Postgres Main"},
		{"stacked postfixes", "Postgres Main DEV PROD", "Postgres Main"},
		{"postfix-like word inside name", "PROD Postgres", "PROD Postgres"},
		{"surrounding whitespace", "  Postgres Main PROD  ", "Postgres Main"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripPostfixes(tt.in, knownPostfixes); got != tt.want {
				t.Errorf("StripPostfixes(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestApplyPostfix(t *testing.T) {
	got := ApplyPostfix("Postgres Main DEV", "PROD", knownPostfixes)
	if got != "Postgres Main PROD" {
		t.Errorf("expected 'Postgres Main PROD', got %q", got)
	}

	// Empty postfix yields the bare base name.
	if got := ApplyPostfix("Postgres Main DEV", "", knownPostfixes); got != "Postgres Main" {
		t.Errorf("expected 'Postgres Main', got %q", got)
	}
}

func TestApplyPostfixIdempotent(t *testing.T) {
	once := ApplyPostfix("Postgres Main", "PROD", knownPostfixes)
	twice := ApplyPostfix(once, "PROD", knownPostfixes)
	if once != twice {
		t.Errorf("postfixing is not idempotent: %q != %q", once, twice)
	}
}

func testRules() []Rule {
	return []Rule{
		{
			Name:        "api_base_url",
			Description: "Backend API base URL",
			Values: map[string]string{
				"development": "http://127.0.0.1",
				"production":  "https://api.example.com",
			},
		},
		{
			Name: "bucket",
			Values: map[string]string{
				"development": "uploads-dev",
			},
		},
	}
}

func TestReplacerExactMatch(t *testing.T) {
	r, _ := NewReplacer(testRules(), "production")

	doc := map[string]any{
		"url":       "http://127.0.0.1",
		"other":     "http://127.0.0.1:9999",
		"unrelated": 42,
		"nested": []any{
			map[string]any{"endpoint": "http://127.0.0.1"},
		},
	}

	got := r.Apply(doc).(map[string]any)

	if got["url"] != "https://api.example.com" {
		t.Errorf("expected url to be replaced, got %v", got["url"])
	}
	if got["other"] != "http://127.0.0.1:9999" {
		t.Errorf("partial match must not be replaced, got %v", got["other"])
	}
	nested := got["nested"].([]any)[0].(map[string]any)
	if nested["endpoint"] != "https://api.example.com" {
		t.Errorf("expected nested value to be replaced, got %v", nested["endpoint"])
	}

	// Input is untouched.
	if doc["url"] != "http://127.0.0.1" {
		t.Error("Apply must not mutate its input")
	}
}

func TestReplacerMissingTargetValueWarns(t *testing.T) {
	r, warnings := NewReplacer(testRules(), "production")

	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(warnings))
	}
	if warnings[0].Rule != "bucket" {
		t.Errorf("expected warning for rule 'bucket', got %q", warnings[0].Rule)
	}

	// The rule without a production value leaves its literal unchanged.
	got := r.Apply("uploads-dev")
	if got != "uploads-dev" {
		t.Errorf("expected 'uploads-dev' to be retained, got %v", got)
	}
}

func TestReplacerToNodes(t *testing.T) {
	r, _ := NewReplacer(testRules(), "development")

	nodes := []map[string]any{
		{"parameters": map[string]any{"url": "https://api.example.com"}},
	}
	got := r.ApplyToNodes(nodes)

	want := []map[string]any{
		{"parameters": map[string]any{"url": "http://127.0.0.1"}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ApplyToNodes() = %v, want %v", got, want)
	}
}

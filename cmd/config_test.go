package cmd

import (
	"strings"
	"testing"

	"github.com/flowctl/flowctl/internal/config"
)

func TestBoolLabel(t *testing.T) {
	if boolLabel(true) != "yes" || boolLabel(false) != "no" {
		t.Error("boolLabel mismatch")
	}
}

func TestRunConfigShowRedactsSecrets(t *testing.T) {
	saved := config.AppConfig
	defer func() { config.AppConfig = saved }()

	config.AppConfig = config.Config{
		Servers: []config.Server{
			{Name: "prod", URL: "https://prod.example.com", APIKey: "super-secret-key", Default: true},
		},
		Environments: map[string]config.Environment{
			"staging": {
				Postfix: "STG",
				Credentials: map[string]config.CredentialTemplate{
					"postgres main": {Type: "postgres", Name: "Postgres Main", Data: map[string]any{"password": "hunter2"}},
				},
			},
		},
		MappingFile: "resource-mappings.json",
	}

	var runErr error
	stdout, _ := captureOutput(func() {
		runErr = runConfigShow(configCmd, nil)
	})
	if runErr != nil {
		t.Fatalf("runConfigShow() error = %v", runErr)
	}

	if !strings.Contains(stdout, "prod") || !strings.Contains(stdout, "staging") {
		t.Errorf("config output missing entries:\n%s", stdout)
	}
	if strings.Contains(stdout, "super-secret-key") {
		t.Error("API key printed in config output")
	}
	if strings.Contains(stdout, "hunter2") {
		t.Error("credential data printed in config output")
	}
}

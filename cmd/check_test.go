package cmd

import (
	"testing"

	"github.com/flowctl/flowctl/internal/config"
)

func TestTargetServersSortsConfigured(t *testing.T) {
	saved := config.AppConfig
	savedURL, savedName := serverURL, serverName
	defer func() {
		config.AppConfig = saved
		serverURL, serverName = savedURL, savedName
	}()
	serverURL, serverName = "", ""

	config.AppConfig.Servers = []config.Server{
		{Name: "staging", URL: "https://staging.example.com"},
		{Name: "prod", URL: "https://prod.example.com"},
	}

	servers := targetServers()
	if len(servers) != 2 {
		t.Fatalf("got %d servers, want 2", len(servers))
	}
	if servers[0].Name != "prod" || servers[1].Name != "staging" {
		t.Errorf("servers not sorted by name: %v, %v", servers[0].Name, servers[1].Name)
	}
}

func TestTargetServersHonorsURLFlag(t *testing.T) {
	saved := config.AppConfig
	savedURL, savedKey := serverURL, apiKey
	defer func() {
		config.AppConfig = saved
		serverURL, apiKey = savedURL, savedKey
	}()

	serverURL = "https://flag.example.com"
	apiKey = "key-from-flag"

	servers := targetServers()
	if len(servers) != 1 {
		t.Fatalf("got %d servers, want 1", len(servers))
	}
	if servers[0].URL != "https://flag.example.com" {
		t.Errorf("URL = %q", servers[0].URL)
	}
	if servers[0].APIKey != "key-from-flag" {
		t.Errorf("APIKey = %q", servers[0].APIKey)
	}
}

func TestResolveServerPriority(t *testing.T) {
	saved := config.AppConfig
	savedURL, savedName := serverURL, serverName
	defer func() {
		config.AppConfig = saved
		serverURL, serverName = savedURL, savedName
	}()

	config.AppConfig.Servers = []config.Server{
		{Name: "prod", URL: "https://prod.example.com", Default: true},
		{Name: "staging", URL: "https://staging.example.com"},
	}

	// Named server wins over the default.
	serverURL, serverName = "", "staging"
	srv, err := resolveServer()
	if err != nil {
		t.Fatalf("resolveServer() error = %v", err)
	}
	if srv.Name != "staging" {
		t.Errorf("resolved %q, want staging", srv.Name)
	}

	// URL flag wins over everything.
	serverURL = "https://flag.example.com"
	srv, err = resolveServer()
	if err != nil {
		t.Fatalf("resolveServer() error = %v", err)
	}
	if srv.URL != "https://flag.example.com" {
		t.Errorf("resolved URL %q", srv.URL)
	}

	// Unknown named server is an error.
	serverURL, serverName = "", "nope"
	if _, err := resolveServer(); err == nil {
		t.Error("resolveServer() error = nil for unknown server")
	}
}

package config

import (
	"testing"
)

func withConfig(t *testing.T, cfg Config) {
	t.Helper()
	saved := AppConfig
	AppConfig = cfg
	t.Cleanup(func() { AppConfig = saved })
}

func TestGetDefaultServer(t *testing.T) {
	withConfig(t, Config{Servers: []Server{
		{Name: "a", URL: "https://a.example.com"},
		{Name: "b", URL: "https://b.example.com", Default: true},
	}})

	srv := GetDefaultServer()
	if srv == nil || srv.Name != "b" {
		t.Errorf("GetDefaultServer() = %v, want b", srv)
	}
}

func TestGetDefaultServerFallsBackToFirst(t *testing.T) {
	withConfig(t, Config{Servers: []Server{
		{Name: "a"}, {Name: "b"},
	}})

	srv := GetDefaultServer()
	if srv == nil || srv.Name != "a" {
		t.Errorf("GetDefaultServer() = %v, want first server", srv)
	}
}

func TestGetDefaultServerEmpty(t *testing.T) {
	withConfig(t, Config{})
	if srv := GetDefaultServer(); srv != nil {
		t.Errorf("GetDefaultServer() = %v, want nil", srv)
	}
}

func TestGetServer(t *testing.T) {
	withConfig(t, Config{Servers: []Server{{Name: "prod"}}})

	if srv := GetServer("prod"); srv == nil {
		t.Error("GetServer(prod) = nil")
	}
	if srv := GetServer("missing"); srv != nil {
		t.Errorf("GetServer(missing) = %v, want nil", srv)
	}
}

func TestGetEnvironment(t *testing.T) {
	withConfig(t, Config{Environments: map[string]Environment{
		"staging": {Postfix: "STG"},
		"named":   {Name: "Custom Name"},
	}})

	env := GetEnvironment("staging")
	if env == nil {
		t.Fatal("GetEnvironment(staging) = nil")
	}
	if env.Name != "Staging" {
		t.Errorf("derived name = %q, want Staging", env.Name)
	}

	if env := GetEnvironment("named"); env == nil || env.Name != "Custom Name" {
		t.Errorf("explicit name not preserved: %v", env)
	}

	if env := GetEnvironment(""); env != nil {
		t.Errorf("GetEnvironment(\"\") = %v, want nil", env)
	}
	if env := GetEnvironment("missing"); env != nil {
		t.Errorf("GetEnvironment(missing) = %v, want nil", env)
	}
}

func TestEnvironmentKeysSorted(t *testing.T) {
	withConfig(t, Config{Environments: map[string]Environment{
		"staging": {}, "dev": {}, "prod": {},
	}})

	keys := EnvironmentKeys()
	want := []string{"dev", "prod", "staging"}
	if len(keys) != len(want) {
		t.Fatalf("EnvironmentKeys() = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("EnvironmentKeys() = %v, want %v", keys, want)
		}
	}
}

func TestAllPostfixes(t *testing.T) {
	withConfig(t, Config{Environments: map[string]Environment{
		"staging": {Postfix: "STG"},
		"prod":    {Postfix: "PROD"},
		"local":   {Postfix: "  "},
	}})

	got := AllPostfixes()
	want := []string{"PROD", "STG"}
	if len(got) != len(want) {
		t.Fatalf("AllPostfixes() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("AllPostfixes() = %v, want %v", got, want)
		}
	}
}

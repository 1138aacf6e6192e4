package cmd

import (
	"fmt"
	"os"

	"github.com/flowctl/flowctl/internal/client"
	"github.com/flowctl/flowctl/internal/config"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	serverURL    string
	apiKey       string
	serverName   string
	outputFormat string

	rootCmd = &cobra.Command{
		Use:   "flowctl",
		Short: "Workflow migration toolkit - move workflows and credentials between servers",
		Long: `flowctl moves graphs of interdependent workflow definitions between server
instances: snapshot a source server, then restore the snapshot onto a target
in dependency order, with credentials recreated from per-environment templates
and every created resource tracked for later cleanup.

Configure your servers and environments in ./flowctl.yaml or ~/.flowctl/flowctl.yaml,
or use environment variables: FLOW_SERVER_URL, FLOW_API_KEY

See 'flowctl [command] --help' for command-specific options.`,
		Version: "1.0.0",
	}
)

// Command group IDs
const (
	groupMigrate = "migrate"
	groupInspect = "inspect"
	groupConfig  = "config"
)

func init() {
	cobra.OnInitialize(initConfig)

	// Define command groups
	rootCmd.AddGroup(
		&cobra.Group{ID: groupMigrate, Title: "Migration Operations:"},
		&cobra.Group{ID: groupInspect, Title: "Inspection:"},
		&cobra.Group{ID: groupConfig, Title: "Configuration:"},
	)

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&serverURL, "url", "u", "", "Server URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "API key for the server")
	rootCmd.PersistentFlags().StringVarP(&serverName, "server", "s", "", "Server name from config")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "Output format: table, json, yaml, plain")
}

func initConfig() {
	if err := config.LoadConfig(); err != nil {
		// Only warn for actual config errors, not missing config files
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveServer picks the server the global flags point at.
// Priority: CLI flags > named server from config > default server > env vars.
func resolveServer() (*config.Server, error) {
	if serverURL != "" {
		return &config.Server{Name: "cli", URL: serverURL, APIKey: apiKey}, nil
	}

	if serverName != "" {
		srv := config.GetServer(serverName)
		if srv == nil {
			return nil, fmt.Errorf("server '%s' not found in config", serverName)
		}
		return srv, nil
	}

	if srv := config.GetDefaultServer(); srv != nil {
		return srv, nil
	}

	if url := os.Getenv("FLOW_SERVER_URL"); url != "" {
		return &config.Server{Name: "env", URL: url, APIKey: os.Getenv("FLOW_API_KEY")}, nil
	}

	return nil, fmt.Errorf("no server configured. Use --url, --server, set FLOW_SERVER_URL, or configure in ~/.flowctl/flowctl.yaml")
}

// GetClient returns a configured client based on flags and config
func GetClient() (*client.WorkflowClient, string, error) {
	srv, err := resolveServer()
	if err != nil {
		return nil, "", err
	}

	key := srv.APIKey
	if apiKey != "" {
		key = apiKey
	}

	return client.NewClient(srv.URL, key), srv.Name, nil
}

// GetClientForServer returns a client for a specific server by name
func GetClientForServer(name string) (*client.WorkflowClient, *config.Server, error) {
	srv := config.GetServer(name)
	if srv == nil {
		return nil, nil, fmt.Errorf("server '%s' not found in config", name)
	}
	return client.NewClient(srv.URL, srv.APIKey), srv, nil
}

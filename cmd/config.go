package cmd

import (
	"fmt"
	"sort"

	"github.com/flowctl/flowctl/internal/config"
	"github.com/flowctl/flowctl/internal/output"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:     "config",
	Short:   "Show the loaded configuration",
	GroupID: groupConfig,
	Long: `Show the servers, environments and replacement rules flowctl loaded.

Credential template data and API keys are never printed.

Examples:
  # Show everything
  flowctl config

  # Add a server to ~/.flowctl/flowctl.yaml
  flowctl config add-server --name staging --server-url https://staging.example.com --key XXXX`,
	RunE: runConfigShow,
}

var (
	addServerName     string
	addServerURL      string
	addServerKey      string
	addServerProjects bool
	addServerDefault  bool
)

var configAddServerCmd = &cobra.Command{
	Use:   "add-server",
	Short: "Add a server to the config file",
	RunE:  runConfigAddServer,
}

func init() {
	configAddServerCmd.Flags().StringVar(&addServerName, "name", "", "Server name (required)")
	configAddServerCmd.Flags().StringVar(&addServerURL, "server-url", "", "Server URL (required)")
	configAddServerCmd.Flags().StringVar(&addServerKey, "key", "", "API key")
	configAddServerCmd.Flags().BoolVar(&addServerProjects, "projects", false, "Server supports projects")
	configAddServerCmd.Flags().BoolVar(&addServerDefault, "default", false, "Make this the default server")
	configAddServerCmd.MarkFlagRequired("name")
	configAddServerCmd.MarkFlagRequired("server-url")

	configCmd.AddCommand(configAddServerCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg := config.AppConfig

	output.Header("Servers")
	if len(cfg.Servers) == 0 {
		output.Info("No servers configured")
	} else {
		rows := make([][]string, 0, len(cfg.Servers))
		for _, srv := range cfg.Servers {
			def := ""
			if srv.Default {
				def = "*"
			}
			rows = append(rows, []string{srv.Name, srv.URL, boolLabel(srv.SupportsProjects), def})
		}
		output.PrintTable([]string{"Name", "URL", "Projects", "Default"}, rows)
	}

	output.Header("Environments")
	if len(cfg.Environments) == 0 {
		output.Info("No environments configured")
	} else {
		rows := make([][]string, 0, len(cfg.Environments))
		for _, key := range config.EnvironmentKeys() {
			env := cfg.Environments[key]
			rows = append(rows, []string{key, env.Postfix, fmt.Sprintf("%d", len(env.Credentials))})
		}
		output.PrintTable([]string{"Key", "Postfix", "Credential Templates"}, rows)
	}

	output.Header("Replacement rules")
	if len(cfg.Replacements) == 0 {
		output.Info("No replacement rules configured")
	} else {
		names := make([]string, 0, len(cfg.Replacements))
		for name := range cfg.Replacements {
			names = append(names, name)
		}
		sort.Strings(names)

		rows := make([][]string, 0, len(names))
		for _, name := range names {
			rule := cfg.Replacements[name]
			rows = append(rows, []string{name, rule.Description, fmt.Sprintf("%d", len(rule.Values))})
		}
		output.PrintTable([]string{"Rule", "Description", "Environments"}, rows)
	}

	output.Info("Mapping store: %s", cfg.MappingFile)
	return nil
}

func runConfigAddServer(cmd *cobra.Command, args []string) error {
	if config.GetServer(addServerName) != nil {
		return fmt.Errorf("server '%s' already exists in config", addServerName)
	}

	srv := config.Server{
		Name:             addServerName,
		URL:              addServerURL,
		APIKey:           addServerKey,
		SupportsProjects: addServerProjects,
		Default:          addServerDefault,
	}

	if err := config.InitConfig(srv); err != nil {
		return err
	}

	output.Success("Added server %q", addServerName)
	return nil
}

func boolLabel(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

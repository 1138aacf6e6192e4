package cmd

import (
	"fmt"
	"sort"

	"github.com/flowctl/flowctl/internal/client"
	"github.com/flowctl/flowctl/internal/config"
	"github.com/flowctl/flowctl/internal/output"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:     "check",
	Short:   "Test connectivity and API keys for configured servers",
	GroupID: groupConfig,
	Long: `Ping servers and verify their API keys work.

With --server (or --url) only that server is checked; otherwise every
server in the config is checked.

Examples:
  # Check every configured server
  flowctl check

  # Check one server
  flowctl check --server staging`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	servers := targetServers()
	if len(servers) == 0 {
		return fmt.Errorf("no servers configured. Use --url, --server, or configure in ~/.flowctl/flowctl.yaml")
	}

	failures := 0
	rows := make([][]string, 0, len(servers))
	for _, srv := range servers {
		c := client.NewClient(srv.URL, srv.APIKey)

		status := output.Green("ok")
		detail := ""
		if err := c.Ping(); err != nil {
			status = output.Red("failed")
			detail = err.Error()
			failures++
		}

		projects := "no"
		if srv.SupportsProjects {
			projects = "yes"
		}
		rows = append(rows, []string{srv.Name, srv.URL, projects, status, detail})
	}

	output.PrintTable([]string{"Server", "URL", "Projects", "Status", "Detail"}, rows)

	if failures > 0 {
		return fmt.Errorf("%d of %d servers unreachable", failures, len(servers))
	}
	output.Success("All %d servers reachable", len(servers))
	return nil
}

// targetServers resolves which servers to check: the flagged one, or all
// configured ones.
func targetServers() []config.Server {
	if serverURL != "" || serverName != "" {
		srv, err := resolveServer()
		if err != nil {
			return nil
		}
		s := *srv
		if apiKey != "" {
			s.APIKey = apiKey
		}
		return []config.Server{s}
	}

	servers := make([]config.Server, len(config.AppConfig.Servers))
	copy(servers, config.AppConfig.Servers)
	sort.Slice(servers, func(i, j int) bool { return servers[i].Name < servers[j].Name })
	return servers
}

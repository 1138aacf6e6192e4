package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/flowctl/flowctl/internal/backup"
	"github.com/flowctl/flowctl/internal/client"
	"github.com/flowctl/flowctl/internal/output"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var (
	backupOutput  string
	backupProject string
)

var backupCmd = &cobra.Command{
	Use:     "backup",
	Short:   "Snapshot a server's workflows to a local directory",
	GroupID: groupMigrate,
	Long: `Download every workflow from a server into a snapshot directory that
'flowctl restore' can replay onto another server.

The snapshot contains:
  • manifest.json with the source server and workflow index
  • workflows/<name>_<id>.json, one full definition per workflow

Credentials are never downloaded; the restore recreates them from the
target environment's templates.

Examples:
  # Snapshot the default server
  flowctl backup --output-dir ./backups

  # Snapshot a named server
  flowctl backup --server prod --output-dir ./backups

  # Snapshot only one project's workflows
  flowctl backup --server prod --project proj-123 --output-dir ./backups`,
	RunE: runBackup,
}

func init() {
	backupCmd.Flags().StringVar(&backupOutput, "output-dir", ".", "Directory to create the snapshot in")
	backupCmd.Flags().StringVar(&backupProject, "project", "", "Only back up workflows in this project ID")

	rootCmd.AddCommand(backupCmd)
}

func runBackup(cmd *cobra.Command, args []string) error {
	c, srvName, err := GetClient()
	if err != nil {
		return err
	}

	output.Step("Listing workflows on %s", srvName)
	listed, err := c.ListWorkflows(backupProject)
	if err != nil {
		return fmt.Errorf("failed to list workflows: %w", err)
	}
	if len(listed) == 0 {
		output.Warning("No workflows found, nothing to back up")
		return nil
	}

	bar := progressbar.NewOptions(len(listed),
		progressbar.OptionSetDescription("Downloading workflows"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	// The list endpoint returns trimmed definitions; fetch each in full.
	workflows := make([]client.Workflow, 0, len(listed))
	for _, item := range listed {
		w, err := c.GetWorkflow(item.ID)
		if err != nil {
			return fmt.Errorf("failed to fetch workflow %q: %w", item.Name, err)
		}
		workflows = append(workflows, *w)
		bar.Add(1)
	}

	dir := backupDir(backupOutput, srvName, time.Now())
	manifest, err := backup.Write(dir, srvName, backupProject, workflows)
	if err != nil {
		return err
	}

	output.Success("Backed up %d workflows to %s", len(manifest.Workflows), dir)

	rows := make([][]string, 0, len(manifest.Workflows))
	for _, item := range manifest.Workflows {
		rows = append(rows, []string{item.Name, item.ID, item.File})
	}
	output.PrintTable([]string{"Workflow", "ID", "File"}, rows)
	output.Info("Restore with: flowctl restore %s --server <target> --env <environment>", dir)
	return nil
}

func backupDir(parent, server string, now time.Time) string {
	if parent == "" {
		parent = "."
	}
	return parent + "/" + backup.DirName(server, now)
}

// humanCount pluralizes a resource count for summaries.
func humanCount(n int, singular string) string {
	if n == 1 {
		return "1 " + singular
	}
	return strconv.Itoa(n) + " " + singular + "s"
}

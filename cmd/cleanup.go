package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/flowctl/flowctl/internal/config"
	"github.com/flowctl/flowctl/internal/mapping"
	"github.com/flowctl/flowctl/internal/output"
	"github.com/flowctl/flowctl/internal/restore"
	"github.com/spf13/cobra"
)

var cleanupYes bool

var cleanupCmd = &cobra.Command{
	Use:     "cleanup",
	Short:   "Delete everything a restore created on a server",
	GroupID: groupMigrate,
	Long: `Delete the tracked, tool-created resources on a target server.

Only resources recorded in the mapping store as created by a restore are
deleted: workflows first, then credentials, then projects, so nothing is
orphaned mid-way. Resources that existed before the restore, and anything
the tool never created, are left untouched.

Examples:
  # See what would be deleted, then confirm interactively
  flowctl cleanup --server staging

  # Non-interactive (for scripts)
  flowctl cleanup --server staging --yes`,
	RunE: runCleanup,
}

func init() {
	cleanupCmd.Flags().BoolVarP(&cleanupYes, "yes", "y", false, "Skip the confirmation prompt")

	rootCmd.AddCommand(cleanupCmd)
}

func runCleanup(cmd *cobra.Command, args []string) error {
	c, targetName, err := GetClient()
	if err != nil {
		return err
	}

	store, err := mapping.Load(config.AppConfig.MappingFile)
	if err != nil {
		return err
	}

	cleaner := restore.NewCleaner(c, store)
	plan := cleaner.Plan(targetName)
	if len(plan) == 0 {
		output.Info("Nothing to clean up on %s", targetName)
		return nil
	}

	output.Header("Resources to delete on %s", targetName)
	rows := make([][]string, 0, len(plan))
	for _, e := range plan {
		rows = append(rows, []string{e.Kind, e.TargetName, e.TargetID})
	}
	output.PrintTable([]string{"Kind", "Name", "Target ID"}, rows)

	if !cleanupYes {
		if !confirm(fmt.Sprintf("Delete %s", humanCount(len(plan), "resource"))) {
			output.Info("Aborted")
			return nil
		}
	}

	cleaner.OnDelete = func(entry mapping.Entry, err error) {
		if err != nil {
			output.Error("Failed to delete %s %q: %v", entry.Kind, entry.TargetName, err)
			return
		}
		output.Step("Deleted %s %q", entry.Kind, entry.TargetName)
	}

	res, err := cleaner.Run(context.Background(), targetName)
	if err != nil {
		return err
	}

	if res.Failed > 0 {
		output.Warning("Deleted %d, failed %d; failed entries were kept for retry", res.Deleted, res.Failed)
		return fmt.Errorf("cleanup finished with %d failures", res.Failed)
	}
	output.Success("Deleted %s from %s", humanCount(res.Deleted, "resource"), targetName)
	return nil
}

// confirm asks for a yes/no answer on stdin.
func confirm(prompt string) bool {
	fmt.Printf("%s? [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	return isAffirmative(answer)
}

func isAffirmative(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

package cmd

import (
	"fmt"
	"time"

	"github.com/flowctl/flowctl/internal/config"
	"github.com/flowctl/flowctl/internal/mapping"
	"github.com/flowctl/flowctl/internal/output"
	"github.com/spf13/cobra"
)

var mappingsServer string

var mappingsCmd = &cobra.Command{
	Use:     "mappings",
	Short:   "Inspect the resource mapping store",
	GroupID: groupInspect,
	Long: `List the source-to-target resource mappings recorded by restores.

Each entry maps a source resource (workflow, credential or project) to the
resource a restore created or adopted on a target server, and records
whether the tool created it (and may therefore delete it during cleanup).

Examples:
  # All recorded mappings
  flowctl mappings

  # Mappings onto one target server
  flowctl mappings --for-server staging

  # Forget every mapping onto a server (does not delete resources)
  flowctl mappings reset --for-server staging --yes`,
	RunE: runMappings,
}

var mappingsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove mapping entries without deleting any resources",
	Long: `Remove mapping entries for a target server from the store.

This only forgets the bookkeeping: no resource is touched on any server.
After a reset, 'flowctl cleanup' can no longer delete what earlier restores
created, and a re-run of a restore will create duplicates.`,
	RunE: runMappingsReset,
}

var mappingsResetYes bool

func init() {
	mappingsCmd.PersistentFlags().StringVar(&mappingsServer, "for-server", "", "Only entries mapped onto this target server")
	mappingsResetCmd.Flags().BoolVarP(&mappingsResetYes, "yes", "y", false, "Skip the confirmation prompt")

	mappingsCmd.AddCommand(mappingsResetCmd)
	rootCmd.AddCommand(mappingsCmd)
}

func runMappings(cmd *cobra.Command, args []string) error {
	store, err := mapping.Load(config.AppConfig.MappingFile)
	if err != nil {
		return err
	}

	entries := store.All()
	if mappingsServer != "" {
		entries = store.AllFor(mappingsServer)
	}
	if len(entries) == 0 {
		output.Info("No mappings recorded")
		return nil
	}

	printer := output.NewPrinter(outputFormat)
	if outputFormat != "table" {
		return printer.Print(entries)
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.Kind,
			e.SourceServer + "/" + e.SourceID,
			e.TargetServer,
			e.TargetName,
			e.TargetID,
			managedLabel(e.ToolManaged),
			e.CreatedAt.Format(time.RFC3339),
		})
	}
	output.PrintTable([]string{"Kind", "Source", "Target Server", "Target Name", "Target ID", "Managed", "Created"}, rows)
	return nil
}

func runMappingsReset(cmd *cobra.Command, args []string) error {
	if mappingsServer == "" {
		return fmt.Errorf("--for-server is required for reset")
	}

	store, err := mapping.Load(config.AppConfig.MappingFile)
	if err != nil {
		return err
	}

	entries := store.AllFor(mappingsServer)
	if len(entries) == 0 {
		output.Info("No mappings recorded for %s", mappingsServer)
		return nil
	}

	if !mappingsResetYes {
		if !confirm(fmt.Sprintf("Forget %s for %s (resources are NOT deleted)", humanCount(len(entries), "mapping"), mappingsServer)) {
			output.Info("Aborted")
			return nil
		}
	}

	for _, e := range entries {
		store.Delete(mapping.Key{
			Kind:         e.Kind,
			SourceServer: e.SourceServer,
			SourceID:     e.SourceID,
			TargetServer: e.TargetServer,
		})
	}
	if err := store.Save(); err != nil {
		return err
	}

	output.Success("Removed %s for %s", humanCount(len(entries), "mapping"), mappingsServer)
	return nil
}

func managedLabel(toolManaged bool) string {
	if toolManaged {
		return "yes"
	}
	return "no"
}

package cmd

import (
	"errors"
	"fmt"

	"github.com/flowctl/flowctl/internal/backup"
	"github.com/flowctl/flowctl/internal/config"
	"github.com/flowctl/flowctl/internal/graph"
	"github.com/flowctl/flowctl/internal/output"
	"github.com/spf13/cobra"
)

var graphShowEdges bool

var graphCmd = &cobra.Command{
	Use:     "graph <backup-dir>",
	Short:   "Show a snapshot's dependency graph and creation order",
	GroupID: groupInspect,
	Long: `Analyze a snapshot without touching any server.

Builds the dependency graph over the snapshot's workflows (sub-workflow
calls and credential references) and prints the order a restore would
create resources in. Cyclic snapshots are reported with the cycle path.

Examples:
  # Show the creation order
  flowctl graph ./flow-backup-prod-20250314-093000

  # Also list every dependency edge
  flowctl graph ./flow-backup-prod-20250314-093000 --edges`,
	Args: cobra.ExactArgs(1),
	RunE: runGraph,
}

func init() {
	graphCmd.Flags().BoolVar(&graphShowEdges, "edges", false, "List every dependency edge")

	rootCmd.AddCommand(graphCmd)
}

func runGraph(cmd *cobra.Command, args []string) error {
	manifest, workflows, err := backup.Read(args[0])
	if err != nil {
		return err
	}

	g, err := graph.Build(workflows, config.AllPostfixes())
	if err != nil {
		return err
	}

	output.Info("Snapshot of %s: %s, %s", manifest.Server,
		humanCount(len(workflows), "workflow"), humanCount(g.Len()-len(workflows), "referenced credential"))

	if graphShowEdges {
		printEdges(g)
	}

	order, err := graph.Schedule(g)
	if err != nil {
		var cycle *graph.CycleError
		if errors.As(err, &cycle) {
			output.Error("Snapshot contains a dependency cycle: %s", graph.FormatCycle(cycle.Path))
		}
		return err
	}

	output.Header("Creation order")
	rows := make([][]string, 0, len(order))
	for i, node := range order {
		rows = append(rows, []string{fmt.Sprintf("%d", i+1), string(node.ID.Kind), node.Name, node.ID.SourceID})
	}
	output.PrintTable([]string{"#", "Kind", "Name", "Source ID"}, rows)
	return nil
}

func printEdges(g *graph.Graph) {
	edges := g.Edges()
	if len(edges) == 0 {
		output.Info("No dependencies between resources")
		return
	}

	output.Header("Dependency edges")
	rows := make([][]string, 0, len(edges))
	for _, e := range edges {
		scope := "internal"
		if e.External {
			scope = "external"
		}
		rows = append(rows, []string{e.From.String(), e.To.String(), string(e.Kind), scope})
	}
	output.PrintTable([]string{"From", "To", "Reference", "Scope"}, rows)
}

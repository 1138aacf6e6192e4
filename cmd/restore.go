package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/flowctl/flowctl/internal/backup"
	"github.com/flowctl/flowctl/internal/config"
	"github.com/flowctl/flowctl/internal/graph"
	"github.com/flowctl/flowctl/internal/mapping"
	"github.com/flowctl/flowctl/internal/output"
	"github.com/flowctl/flowctl/internal/restore"
	"github.com/flowctl/flowctl/internal/transform"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var (
	restoreEnv         string
	restoreProject     string
	restoreDryRun      bool
	restoreMetricsPort int
)

var restoreCmd = &cobra.Command{
	Use:     "restore <backup-dir>",
	Short:   "Replay a snapshot onto a target server in dependency order",
	GroupID: groupMigrate,
	Long: `Restore the workflows of a snapshot onto a target server.

The restore builds a dependency graph over the snapshot (sub-workflow calls
and credential references), schedules it so every dependency is created
before its dependents, and replays it:

  • Credentials are created from the target environment's templates, with
    the environment postfix appended to their names.
  • Workflow bodies get environment-specific string replacements and have
    their credential and sub-workflow references rewritten to target IDs.
  • Every created resource is recorded in the mapping store, so re-running
    the same restore creates nothing new and 'flowctl cleanup' can undo it.
  • A rejected creation rolls back everything created in this run.

Examples:
  # Restore into the staging environment
  flowctl restore ./flow-backup-prod-20250314-093000 --server staging --env staging

  # Restore into a project on the target
  flowctl restore ./backup --server staging --env staging --project "Migrated"

  # Show the planned creation order without touching the target
  flowctl restore ./backup --server staging --env staging --dry-run

  # Expose Prometheus metrics while a large restore runs
  flowctl restore ./backup --server staging --env staging --metrics-port 9090`,
	Args: cobra.ExactArgs(1),
	RunE: runRestore,
}

func init() {
	restoreCmd.Flags().StringVar(&restoreEnv, "env", "", "Target environment from config (required)")
	restoreCmd.Flags().StringVar(&restoreProject, "project", "", "Target project name; created if missing")
	restoreCmd.Flags().BoolVar(&restoreDryRun, "dry-run", false, "Print the creation plan without creating anything")
	restoreCmd.Flags().IntVar(&restoreMetricsPort, "metrics-port", 0, "Serve Prometheus metrics on this port during the restore")

	restoreCmd.MarkFlagRequired("env")
	rootCmd.AddCommand(restoreCmd)
}

func runRestore(cmd *cobra.Command, args []string) error {
	c, targetName, err := GetClient()
	if err != nil {
		return err
	}

	env := config.GetEnvironment(restoreEnv)
	if env == nil {
		return fmt.Errorf("environment '%s' not found in config (have: %v)", restoreEnv, config.EnvironmentKeys())
	}

	manifest, workflows, err := backup.Read(args[0])
	if err != nil {
		return err
	}
	output.Step("Loaded %s from %s (%s)", humanCount(len(workflows), "workflow"), args[0], manifest.Server)

	postfixes := config.AllPostfixes()
	g, err := graph.Build(workflows, postfixes)
	if err != nil {
		return err
	}

	if restoreDryRun {
		return printPlan(g)
	}

	store, err := mapping.Load(config.AppConfig.MappingFile)
	if err != nil {
		return err
	}

	if err := c.Ping(); err != nil {
		return fmt.Errorf("target server %s is not reachable: %w", targetName, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stats := restore.NewStats(g.Len())

	bar := progressbar.NewOptions(g.Len(),
		progressbar.OptionSetDescription("Restoring"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	o := restore.New(c, store, restore.Options{
		SourceServer:   manifest.Server,
		TargetServer:   targetName,
		Environment:    env,
		EnvironmentKey: restoreEnv,
		Postfixes:      postfixes,
		Rules:          replacementRules(),
		Stats:          stats,
		OnProgress: func(node *graph.Node, status restore.Status) {
			switch status {
			case restore.StatusMapped, restore.StatusReused, restore.StatusSkipped, restore.StatusFailed:
				bar.Add(1)
			}
		},
	})

	if restoreProject != "" {
		id, err := o.EnsureProject(restoreProject)
		if err != nil {
			return err
		}
		output.Step("Using project %q (%s)", restoreProject, id)
	}

	if restoreMetricsPort > 0 {
		metrics := restore.NewMetricsServer(stats, restoreMetricsPort, manifest.Server, targetName)
		go func() {
			if err := metrics.Start(ctx); err != nil {
				output.Warning("Metrics server: %v", err)
			}
		}()
		output.Info("Metrics available at http://localhost:%d/metrics", restoreMetricsPort)
	}

	res, runErr := o.Run(ctx, g)

	printRestoreSummary(res)

	return runErr
}

func printPlan(g *graph.Graph) error {
	order, err := graph.Schedule(g)
	if err != nil {
		return err
	}

	output.Header("Creation plan (%s)", humanCount(len(order), "resource"))
	rows := make([][]string, 0, len(order))
	for i, node := range order {
		deps := g.DependenciesOf(node.ID)
		depNames := make([]string, 0, len(deps))
		for _, d := range deps {
			depNames = append(depNames, d.String())
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			string(node.ID.Kind),
			node.Name,
			joinOrDash(depNames),
		})
	}
	output.PrintTable([]string{"#", "Kind", "Name", "Depends On"}, rows)
	return nil
}

func printRestoreSummary(res *restore.Result) {
	if res == nil {
		return
	}

	for _, w := range res.Warnings {
		output.Warning("Replacement rule %q has no value for environment %q; left unchanged", w.Rule, w.Environment)
	}
	for _, name := range res.Unresolved {
		output.Warning("Credential reference %q could not be mapped", name)
	}

	for _, n := range res.Nodes {
		switch n.Status {
		case restore.StatusFailed:
			output.Error("%s %s: %v", n.ID.Kind, n.Name, n.Err)
		case restore.StatusSkipped:
			output.Warning("%s %s skipped: %v", n.ID.Kind, n.Name, n.Err)
		}
	}

	output.Header("Restore summary")
	output.PrintTable([]string{"Created", "Reused", "Failed", "Rolled Back"}, [][]string{{
		fmt.Sprintf("%d", res.Created),
		fmt.Sprintf("%d", res.Reused),
		fmt.Sprintf("%d", res.Failed),
		fmt.Sprintf("%d", res.RolledBack),
	}})
}

// replacementRules converts the configured replacement rules into the
// transform package's shape.
func replacementRules() []transform.Rule {
	rules := make([]transform.Rule, 0, len(config.AppConfig.Replacements))
	for name, r := range config.AppConfig.Replacements {
		rules = append(rules, transform.Rule{
			Name:        name,
			Description: r.Description,
			Values:      r.Values,
		})
	}
	return rules
}

func joinOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	s := items[0]
	for _, item := range items[1:] {
		s += ", " + item
	}
	return s
}

package restore

import (
	"context"
	"fmt"

	"github.com/flowctl/flowctl/internal/client"
	"github.com/flowctl/flowctl/internal/graph"
	"github.com/flowctl/flowctl/internal/mapping"
)

// Cleaner removes every tool-managed resource a restore created on a target
// server. Resources recorded as externally owned, and anything on the server
// the store never tracked, are left untouched.
type Cleaner struct {
	client client.Interface
	store  *mapping.Store

	// OnDelete, when set, is called after each deletion attempt.
	OnDelete func(entry mapping.Entry, err error)
}

// CleanupResult summarizes a cleanup run.
type CleanupResult struct {
	Deleted int
	Failed  int
	Errors  []error
}

// NewCleaner creates a cleaner over a loaded mapping store.
func NewCleaner(c client.Interface, store *mapping.Store) *Cleaner {
	return &Cleaner{client: c, store: store}
}

// Plan returns the tool-managed entries that a cleanup of targetServer
// would delete, in deletion order: workflows first so credential and
// project deletions never strand a workflow that still references them,
// newest first within each kind.
func (cl *Cleaner) Plan(targetServer string) []mapping.Entry {
	entries := cl.store.AllFor(targetServer)

	var plan []mapping.Entry
	for _, kind := range []graph.Kind{graph.KindWorkflow, graph.KindCredential, graph.KindProject} {
		for i := len(entries) - 1; i >= 0; i-- {
			e := entries[i]
			if e.ToolManaged && graph.Kind(e.Kind) == kind {
				plan = append(plan, e)
			}
		}
	}
	return plan
}

// Run deletes every tool-managed resource mapped onto targetServer and
// removes its mapping entry. A resource already gone on the server counts
// as deleted. Failures are collected; the corresponding entries stay in the
// store so a later run can retry. The store is persisted after every
// removal so an interrupted cleanup never forgets what it already deleted.
func (cl *Cleaner) Run(ctx context.Context, targetServer string) (*CleanupResult, error) {
	res := &CleanupResult{}

	for _, entry := range cl.Plan(targetServer) {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("cleanup stopped: %w", err)
		}

		var err error
		switch graph.Kind(entry.Kind) {
		case graph.KindWorkflow:
			err = cl.client.DeleteWorkflow(entry.TargetID)
		case graph.KindCredential:
			err = cl.client.DeleteCredential(entry.TargetID)
		case graph.KindProject:
			err = cl.client.DeleteProject(entry.TargetID)
		default:
			err = fmt.Errorf("unknown resource kind %q", entry.Kind)
		}

		if err != nil && client.IsNotFound(err) {
			err = nil
		}

		if cl.OnDelete != nil {
			cl.OnDelete(entry, err)
		}

		if err != nil {
			res.Failed++
			res.Errors = append(res.Errors, fmt.Errorf("failed to delete %s %q (%s): %w", entry.Kind, entry.TargetName, entry.TargetID, err))
			continue
		}

		cl.store.Delete(mapping.Key{
			Kind:         entry.Kind,
			SourceServer: entry.SourceServer,
			SourceID:     entry.SourceID,
			TargetServer: entry.TargetServer,
		})
		if err := cl.store.Save(); err != nil {
			return res, err
		}
		res.Deleted++
	}

	return res, nil
}

package restore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/flowctl/flowctl/internal/client"
	"github.com/flowctl/flowctl/internal/config"
	"github.com/flowctl/flowctl/internal/graph"
	"github.com/flowctl/flowctl/internal/mapping"
	"github.com/flowctl/flowctl/internal/transform"
)

// Status is the lifecycle state of a resource node during a restore run.
type Status string

const (
	StatusPending      Status = "pending"
	StatusTransforming Status = "transforming"
	StatusCreating     Status = "creating"
	StatusMapped       Status = "mapped"
	StatusReused       Status = "reused"
	StatusSkipped      Status = "skipped"
	StatusFailed       Status = "failed"
)

// Options configures a restore run.
type Options struct {
	// SourceServer and TargetServer are the identity keys recorded in
	// mapping entries, usually the configured server names.
	SourceServer string
	TargetServer string

	// TargetProjectID moves created workflows into a project when the
	// target supports projects. Empty means no transfer.
	TargetProjectID string

	Environment    *config.Environment
	EnvironmentKey string

	// Postfixes is every postfix configured across environments, used for
	// idempotent credential name munging.
	Postfixes []string

	Rules []transform.Rule

	Stats *Stats

	// OnProgress, when set, is called on every node state change.
	OnProgress func(node *graph.Node, status Status)
}

// NodeResult is the final outcome for one resource node.
type NodeResult struct {
	ID     graph.NodeID
	Name   string
	Status Status
	Err    error
}

// Result summarizes a restore run.
type Result struct {
	Nodes      []NodeResult
	Created    int
	Reused     int
	Failed     int
	RolledBack int

	// Warnings lists replacement rules without a value for the target
	// environment; their literals were left unchanged.
	Warnings []transform.Warning

	// Unresolved lists credential names referenced by workflows that had
	// no mapping at rewrite time.
	Unresolved []string
}

// Orchestrator replays a backup snapshot onto a target server in dependency
// order, recording every created resource in the mapping store.
type Orchestrator struct {
	client client.Interface
	store  *mapping.Store
	opts   Options
}

// New creates an orchestrator. The mapping store must already be loaded;
// the orchestrator persists it at every point of durable progress.
func New(c client.Interface, store *mapping.Store, opts Options) *Orchestrator {
	return &Orchestrator{client: c, store: store, opts: opts}
}

// EnsureProject resolves a target project by name, creating it when absent.
// A project created here is recorded as tool-managed so cleanup can remove
// it; a pre-existing project is recorded as externally owned.
func (o *Orchestrator) EnsureProject(name string) (string, error) {
	key := mapping.Key{
		Kind:         string(graph.KindProject),
		SourceServer: o.opts.SourceServer,
		SourceID:     name,
		TargetServer: o.opts.TargetServer,
	}

	projects, err := o.client.ListProjects()
	if err != nil {
		return "", fmt.Errorf("failed to list projects: %w", err)
	}
	for _, p := range projects {
		if p.Name == name {
			o.store.Put(mapping.Entry{
				Kind:         key.Kind,
				SourceServer: key.SourceServer,
				SourceID:     key.SourceID,
				TargetServer: key.TargetServer,
				TargetID:     p.ID,
				TargetName:   p.Name,
				ToolManaged:  false,
			})
			if err := o.store.Save(); err != nil {
				return "", err
			}
			o.opts.TargetProjectID = p.ID
			return p.ID, nil
		}
	}

	id, err := o.client.CreateProject(name)
	if err != nil {
		return "", fmt.Errorf("failed to create project %q: %w", name, err)
	}
	o.store.Put(mapping.Entry{
		Kind:         key.Kind,
		SourceServer: key.SourceServer,
		SourceID:     key.SourceID,
		TargetServer: key.TargetServer,
		TargetID:     id,
		TargetName:   name,
		ToolManaged:  true,
	})
	if err := o.store.Save(); err != nil {
		return "", err
	}
	o.opts.TargetProjectID = id
	return id, nil
}

// Run schedules the graph and replays it node by node. Scheduling and store
// failures abort before any server mutation. A rejected creation aborts the
// run and deletes everything created in this run; a missing credential
// template fails only its subtree. Cancellation is honored between nodes
// and keeps what was already created (a re-run picks up from the mappings).
func (o *Orchestrator) Run(ctx context.Context, g *graph.Graph) (*Result, error) {
	order, err := graph.Schedule(g)
	if err != nil {
		return nil, err
	}

	replacer, warnings := transform.NewReplacer(o.opts.Rules, o.opts.EnvironmentKey)
	res := &Result{Warnings: warnings}

	mapper := NewCredentialMapper(
		o.client, o.store, o.opts.Environment, o.opts.EnvironmentKey,
		o.opts.SourceServer, o.opts.TargetServer, o.opts.Postfixes, replacer,
	)

	failed := make(map[graph.NodeID]bool)
	var createdKeys []mapping.Key

	for _, node := range order {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("restore stopped before %s: %w", node.ID, err)
		}

		if dep, bad := failedDependency(g, node.ID, failed); bad {
			failed[node.ID] = true
			o.record(res, node, StatusSkipped, fmt.Errorf("dependency %s failed", dep))
			continue
		}

		switch node.ID.Kind {
		case graph.KindCredential:
			err = o.restoreCredential(res, node, mapper, &createdKeys)
		case graph.KindWorkflow:
			err = o.restoreWorkflow(res, node, replacer, &createdKeys)
		default:
			err = nil
		}

		if err == nil {
			continue
		}

		var missing *MissingTemplateError
		if errors.As(err, &missing) {
			// Fatal for this subtree only; siblings keep going.
			failed[node.ID] = true
			o.record(res, node, StatusFailed, err)
			continue
		}

		// Creation rejected: undo everything created in this run and stop.
		o.record(res, node, StatusFailed, err)
		res.RolledBack = o.rollback(createdKeys)
		return res, err
	}

	return res, nil
}

func (o *Orchestrator) restoreCredential(res *Result, node *graph.Node, mapper *CredentialMapper, createdKeys *[]mapping.Key) error {
	o.progress(node, StatusTransforming)

	entry, created, err := mapper.Resolve(node.CredentialKey)
	if err != nil {
		return err
	}

	if !created {
		o.record(res, node, StatusReused, nil)
		return nil
	}

	key := mapping.Key{Kind: entry.Kind, SourceServer: entry.SourceServer, SourceID: entry.SourceID, TargetServer: entry.TargetServer}
	*createdKeys = append(*createdKeys, key)

	if err := o.store.Save(); err != nil {
		return fmt.Errorf("failed to persist mapping for %s: %w", node.ID, err)
	}

	o.record(res, node, StatusMapped, nil)
	if o.opts.Stats != nil {
		o.opts.Stats.IncrCredentials()
	}
	return nil
}

func (o *Orchestrator) restoreWorkflow(res *Result, node *graph.Node, replacer *transform.Replacer, createdKeys *[]mapping.Key) error {
	key := mapping.Key{
		Kind:         string(graph.KindWorkflow),
		SourceServer: o.opts.SourceServer,
		SourceID:     node.ID.SourceID,
		TargetServer: o.opts.TargetServer,
	}

	// Idempotent re-run: keep a still-valid mapping, recreate a stale one.
	if entry, ok := o.store.Get(key); ok {
		_, err := o.client.GetWorkflow(entry.TargetID)
		if err == nil {
			o.record(res, node, StatusReused, nil)
			return nil
		}
		if !client.IsNotFound(err) {
			return &CreateRejectedError{Kind: key.Kind, SourceID: key.SourceID, Name: node.Name, Err: err}
		}
		o.store.Delete(key)
	}

	o.progress(node, StatusTransforming)

	w, err := copyWorkflow(node.Workflow)
	if err != nil {
		return &CreateRejectedError{Kind: key.Kind, SourceID: key.SourceID, Name: node.Name, Err: err}
	}

	w.Nodes = replacer.ApplyToNodes(w.Nodes)
	if v, ok := replacer.Apply(w.Connections).(map[string]any); ok {
		w.Connections = v
	}
	res.Unresolved = append(res.Unresolved, o.rewriteCredentialRefs(w)...)
	o.rewriteSubWorkflowRefs(w)
	normalizeSettings(w)

	o.progress(node, StatusCreating)

	id, err := o.client.CreateWorkflow(w)
	if err != nil {
		return &CreateRejectedError{Kind: key.Kind, SourceID: key.SourceID, Name: node.Name, Err: err}
	}

	if o.opts.TargetProjectID != "" {
		if err := o.client.TransferWorkflow(id, o.opts.TargetProjectID); err != nil {
			// Compensate immediately so the failed transfer leaves nothing.
			o.client.DeleteWorkflow(id)
			return &CreateRejectedError{Kind: key.Kind, SourceID: key.SourceID, Name: node.Name,
				Err: fmt.Errorf("failed to transfer to project: %w", err)}
		}
	}

	o.store.Put(mapping.Entry{
		Kind:         key.Kind,
		SourceServer: key.SourceServer,
		SourceID:     key.SourceID,
		TargetServer: key.TargetServer,
		TargetID:     id,
		TargetName:   w.Name,
		ToolManaged:  true,
	})
	*createdKeys = append(*createdKeys, key)

	if err := o.store.Save(); err != nil {
		return fmt.Errorf("failed to persist mapping for %s: %w", node.ID, err)
	}

	o.record(res, node, StatusMapped, nil)
	if o.opts.Stats != nil {
		o.opts.Stats.IncrWorkflows()
	}
	return nil
}

// rollback deletes every resource created in this run, newest first, and
// removes its mapping entry. Resources mapped in previous runs are never
// touched. Returns the number of compensating deletions performed.
func (o *Orchestrator) rollback(createdKeys []mapping.Key) int {
	deleted := 0
	for i := len(createdKeys) - 1; i >= 0; i-- {
		key := createdKeys[i]
		entry, ok := o.store.Get(key)
		if !ok {
			continue
		}

		var err error
		switch graph.Kind(key.Kind) {
		case graph.KindWorkflow:
			err = o.client.DeleteWorkflow(entry.TargetID)
		case graph.KindCredential:
			err = o.client.DeleteCredential(entry.TargetID)
		case graph.KindProject:
			err = o.client.DeleteProject(entry.TargetID)
		}

		if err != nil && !client.IsNotFound(err) {
			// Leave the entry so a later cleanup can retry the deletion.
			continue
		}
		o.store.Delete(key)
		deleted++
	}
	o.store.Save()

	if o.opts.Stats != nil {
		o.opts.Stats.AddRolledBack(deleted)
	}
	return deleted
}

// rewriteCredentialRefs points every credential reference in the workflow at
// its mapped target credential. Returns the names that had no mapping.
func (o *Orchestrator) rewriteCredentialRefs(w *client.Workflow) []string {
	var unresolved []string

	for _, node := range w.Nodes {
		creds, _ := node["credentials"].(map[string]any)
		for _, ref := range creds {
			refMap, _ := ref.(map[string]any)
			if refMap == nil {
				continue
			}
			name, _ := refMap["name"].(string)
			if name == "" {
				continue
			}

			credKey := transform.StripPostfixes(name, o.opts.Postfixes)
			entry, ok := o.store.Get(mapping.Key{
				Kind:         string(graph.KindCredential),
				SourceServer: o.opts.SourceServer,
				SourceID:     credKey,
				TargetServer: o.opts.TargetServer,
			})
			if !ok {
				unresolved = append(unresolved, name)
				continue
			}
			refMap["id"] = entry.TargetID
			refMap["name"] = entry.TargetName
		}
	}

	return unresolved
}

// rewriteSubWorkflowRefs maps sub-workflow call ids from source to target
// identities, covering both in-batch workflows created earlier in this run
// and workflows mapped by previous runs. Unmapped ids are left alone: they
// are assumed to already exist on the target.
func (o *Orchestrator) rewriteSubWorkflowRefs(w *client.Workflow) {
	lookup := func(sourceID string) (mapping.Entry, bool) {
		return o.store.Get(mapping.Key{
			Kind:         string(graph.KindWorkflow),
			SourceServer: o.opts.SourceServer,
			SourceID:     sourceID,
			TargetServer: o.opts.TargetServer,
		})
	}

	for _, node := range w.Nodes {
		params, _ := node["parameters"].(map[string]any)
		if params == nil {
			continue
		}

		switch ref := params["workflowId"].(type) {
		case string:
			if entry, ok := lookup(ref); ok {
				params["workflowId"] = entry.TargetID
			}
		case map[string]any:
			id, _ := ref["value"].(string)
			if id == "" {
				continue
			}
			if entry, ok := lookup(id); ok {
				ref["value"] = entry.TargetID
				if _, has := ref["cachedResultName"]; has {
					ref["cachedResultName"] = entry.TargetName
				}
			}
		}
	}
}

// normalizeSettings fills in the execution settings the create endpoint
// requires, preserving whatever the snapshot already carries.
func normalizeSettings(w *client.Workflow) {
	if w.Settings == nil {
		w.Settings = make(map[string]any)
	}
	defaults := map[string]any{
		"saveExecutionProgress":  true,
		"saveManualExecutions":   true,
		"saveDataErrorExecution": "all",
		"executionTimeout":       3600,
		"errorWorkflow":          "",
	}
	for k, v := range defaults {
		if _, ok := w.Settings[k]; !ok {
			w.Settings[k] = v
		}
	}
}

func (o *Orchestrator) progress(node *graph.Node, status Status) {
	if o.opts.OnProgress != nil {
		o.opts.OnProgress(node, status)
	}
}

func (o *Orchestrator) record(res *Result, node *graph.Node, status Status, err error) {
	res.Nodes = append(res.Nodes, NodeResult{ID: node.ID, Name: node.Name, Status: status, Err: err})
	switch status {
	case StatusMapped:
		res.Created++
	case StatusReused:
		res.Reused++
	case StatusFailed, StatusSkipped:
		res.Failed++
		if o.opts.Stats != nil {
			o.opts.Stats.IncrFailed()
		}
	}
	if status == StatusReused && o.opts.Stats != nil {
		o.opts.Stats.IncrSkipped()
	}
	o.progress(node, status)
}

func failedDependency(g *graph.Graph, id graph.NodeID, failed map[graph.NodeID]bool) (graph.NodeID, bool) {
	for _, dep := range g.DependenciesOf(id) {
		if failed[dep] {
			return dep, true
		}
	}
	return graph.NodeID{}, false
}

func copyWorkflow(w *client.Workflow) (*client.Workflow, error) {
	data, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("failed to copy workflow: %w", err)
	}
	var out client.Workflow
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to copy workflow: %w", err)
	}
	return &out, nil
}

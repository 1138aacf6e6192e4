package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/flowctl/flowctl/internal/client"
	"github.com/flowctl/flowctl/internal/transform"
)

// Node type suffixes that invoke another workflow. The vendor prefix varies
// between server editions, so only the suffix is matched.
var subWorkflowSuffixes = []string{
	".executeWorkflow",
	".toolWorkflow",
}

// Build scans a batch of workflow definitions and produces the dependency
// graph for a restore run. Sub-workflow calls that name a workflow outside
// the batch become external edges; referenced credentials become credential
// nodes keyed by their base display name, with every known postfix stripped
// so the same logical credential maps to one node regardless of which
// environment the snapshot was taken from.
//
// Build is a pure scan: it never calls a server.
func Build(workflows []client.Workflow, postfixes []string) (*Graph, error) {
	g := New()

	// All workflows become nodes first so forward references resolve.
	for i := range workflows {
		w := &workflows[i]
		node := &Node{
			ID:       NodeID{Kind: KindWorkflow, SourceID: w.ID},
			Name:     w.Name,
			Workflow: w,
		}
		if err := g.Add(node); err != nil {
			return nil, err
		}
	}

	for i := range workflows {
		w := &workflows[i]
		from := NodeID{Kind: KindWorkflow, SourceID: w.ID}

		for _, wfID := range ScanSubWorkflowIDs(w) {
			to := NodeID{Kind: KindWorkflow, SourceID: wfID}
			g.AddEdge(Reference{
				From:     from,
				To:       to,
				Kind:     RefSubWorkflow,
				External: !g.Contains(to),
			})
		}

		for _, credName := range ScanCredentialNames(w) {
			key := transform.StripPostfixes(credName, postfixes)
			to := NodeID{Kind: KindCredential, SourceID: key}
			if !g.Contains(to) {
				credNode := &Node{
					ID:            to,
					Name:          key,
					CredentialKey: key,
				}
				if err := g.Add(credNode); err != nil {
					return nil, fmt.Errorf("failed to add credential node: %w", err)
				}
			}
			g.AddEdge(Reference{From: from, To: to, Kind: RefCredential})
		}
	}

	return g, nil
}

// ScanSubWorkflowIDs extracts the source ids of every workflow invoked by
// call nodes inside a workflow definition. The referenced id appears either
// as a bare string or wrapped in a {value, cachedResultName} object.
func ScanSubWorkflowIDs(w *client.Workflow) []string {
	var ids []string
	seen := make(map[string]bool)

	for _, node := range w.Nodes {
		nodeType, _ := node["type"].(string)
		if !isSubWorkflowCall(nodeType) {
			continue
		}

		params, _ := node["parameters"].(map[string]any)
		if params == nil {
			continue
		}

		var id string
		switch ref := params["workflowId"].(type) {
		case string:
			id = ref
		case map[string]any:
			id, _ = ref["value"].(string)
		}

		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	return ids
}

// ScanCredentialNames extracts the credential display names referenced by a
// workflow's nodes, in discovery order.
func ScanCredentialNames(w *client.Workflow) []string {
	var names []string
	seen := make(map[string]bool)

	for _, node := range w.Nodes {
		creds, _ := node["credentials"].(map[string]any)
		if len(creds) == 0 {
			continue
		}
		// Credential slots are keyed by type; sort so discovery order is
		// stable across runs.
		types := make([]string, 0, len(creds))
		for credType := range creds {
			types = append(types, credType)
		}
		sort.Strings(types)

		for _, credType := range types {
			refMap, _ := creds[credType].(map[string]any)
			if refMap == nil {
				continue
			}
			name, _ := refMap["name"].(string)
			if name != "" && !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}

	return names
}

func isSubWorkflowCall(nodeType string) bool {
	for _, suffix := range subWorkflowSuffixes {
		if strings.HasSuffix(nodeType, suffix) {
			return true
		}
	}
	return false
}

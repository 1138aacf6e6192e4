package graph

import (
	"fmt"
	"strings"

	"github.com/flowctl/flowctl/internal/client"
)

// Kind identifies the type of a migratable resource.
type Kind string

const (
	KindWorkflow   Kind = "workflow"
	KindCredential Kind = "credential"
	KindProject    Kind = "project"
)

// RefKind tags the type of link between two resources.
type RefKind string

const (
	RefSubWorkflow RefKind = "sub-workflow-call"
	RefCredential  RefKind = "credential-use"
)

// NodeID is the identity of a resource within a dependency graph: its kind
// plus its id on the origin server.
type NodeID struct {
	Kind     Kind
	SourceID string
}

func (id NodeID) String() string {
	return string(id.Kind) + "/" + id.SourceID
}

// Node is a migratable resource discovered in a backup snapshot.
type Node struct {
	ID   NodeID
	Name string

	// Workflow holds the full definition for workflow nodes; nil otherwise.
	Workflow *client.Workflow

	// CredentialKey is the logical credential key for credential nodes.
	CredentialKey string
}

// Reference is a directed edge from a dependent resource to one of its
// dependencies. External edges point at resources outside the batch, which
// the scheduler treats as already satisfied.
type Reference struct {
	From     NodeID
	To       NodeID
	Kind     RefKind
	External bool
}

// Graph is a set of resource nodes plus reference edges. Node insertion
// order is preserved so scheduling stays deterministic for a given snapshot.
type Graph struct {
	nodes map[NodeID]*Node
	order []NodeID
	edges []Reference
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{nodes: make(map[NodeID]*Node)}
}

// Add inserts a node. Two nodes may not share the same (kind, sourceId).
func (g *Graph) Add(n *Node) error {
	if _, exists := g.nodes[n.ID]; exists {
		return fmt.Errorf("duplicate resource %s in batch", n.ID)
	}
	g.nodes[n.ID] = n
	g.order = append(g.order, n.ID)
	return nil
}

// AddEdge records a reference edge.
func (g *Graph) AddEdge(ref Reference) {
	g.edges = append(g.edges, ref)
}

// Node returns the node with the given id, or nil.
func (g *Graph) Node(id NodeID) *Node {
	return g.nodes[id]
}

// Contains reports whether the batch holds a node with the given id.
func (g *Graph) Contains(id NodeID) bool {
	_, ok := g.nodes[id]
	return ok
}

// Len returns the number of nodes in the batch.
func (g *Graph) Len() int {
	return len(g.order)
}

// Nodes returns all nodes in discovery order.
func (g *Graph) Nodes() []*Node {
	nodes := make([]*Node, 0, len(g.order))
	for _, id := range g.order {
		nodes = append(nodes, g.nodes[id])
	}
	return nodes
}

// Edges returns all reference edges in discovery order.
func (g *Graph) Edges() []Reference {
	return g.edges
}

// DependenciesOf returns the in-batch dependencies of a node, in edge
// discovery order.
func (g *Graph) DependenciesOf(id NodeID) []NodeID {
	var deps []NodeID
	for _, e := range g.edges {
		if e.From == id && !e.External {
			deps = append(deps, e.To)
		}
	}
	return deps
}

// DependentsOf returns the in-batch nodes that depend on the given node.
func (g *Graph) DependentsOf(id NodeID) []NodeID {
	var dependents []NodeID
	for _, e := range g.edges {
		if e.To == id && !e.External {
			dependents = append(dependents, e.From)
		}
	}
	return dependents
}

// FormatCycle renders a cycle path for diagnostics: a -> b -> a.
func FormatCycle(path []NodeID) string {
	parts := make([]string, 0, len(path)+1)
	for _, id := range path {
		parts = append(parts, id.String())
	}
	if len(path) > 0 {
		parts = append(parts, path[0].String())
	}
	return strings.Join(parts, " -> ")
}

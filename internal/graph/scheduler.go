package graph

// CycleError reports that the graph cannot be scheduled because of a
// dependency cycle. Path holds the nodes of one minimal cycle in order.
type CycleError struct {
	Path []NodeID
}

func (e *CycleError) Error() string {
	return "dependency cycle detected: " + FormatCycle(e.Path)
}

// Schedule orders the graph's nodes for creation so that every dependency
// is created before its dependents. Ties between ready nodes break by
// discovery order, keeping runs reproducible for the same snapshot.
// External edges are satisfied from the start and never scheduled.
func Schedule(g *Graph) ([]*Node, error) {
	// Count unmet in-batch dependencies per node. Self-references and
	// duplicate edges both count once per edge; a node is ready when the
	// count reaches zero.
	remaining := make(map[NodeID]int, g.Len())
	for _, node := range g.Nodes() {
		remaining[node.ID] = 0
	}
	for _, e := range g.Edges() {
		if e.External {
			continue
		}
		if _, ok := remaining[e.To]; !ok {
			// Edge into a node missing from the batch; treat as external.
			continue
		}
		remaining[e.From]++
	}

	order := make([]*Node, 0, g.Len())
	scheduled := make(map[NodeID]bool, g.Len())

	for len(order) < g.Len() {
		progressed := false
		for _, node := range g.Nodes() {
			if scheduled[node.ID] || remaining[node.ID] > 0 {
				continue
			}
			scheduled[node.ID] = true
			order = append(order, node)
			progressed = true
			for _, dependent := range g.DependentsOf(node.ID) {
				remaining[dependent]--
			}
		}

		if !progressed {
			return nil, &CycleError{Path: findCycle(g, scheduled)}
		}
	}

	return order, nil
}

// findCycle locates one cycle among the unscheduled residue via DFS and
// trims the path to the cycle itself.
func findCycle(g *Graph, scheduled map[NodeID]bool) []NodeID {
	onStack := make(map[NodeID]int)
	visited := make(map[NodeID]bool)

	var stack []NodeID
	var cycle []NodeID

	var visit func(id NodeID) bool
	visit = func(id NodeID) bool {
		if pos, ok := onStack[id]; ok {
			cycle = append([]NodeID(nil), stack[pos:]...)
			return true
		}
		if visited[id] {
			return false
		}
		visited[id] = true
		onStack[id] = len(stack)
		stack = append(stack, id)

		for _, dep := range g.DependenciesOf(id) {
			if scheduled[dep] || !g.Contains(dep) {
				continue
			}
			if visit(dep) {
				return true
			}
		}

		delete(onStack, id)
		stack = stack[:len(stack)-1]
		return false
	}

	for _, node := range g.Nodes() {
		if scheduled[node.ID] {
			continue
		}
		if visit(node.ID) {
			return cycle
		}
	}
	return nil
}

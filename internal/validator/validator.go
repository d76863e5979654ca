// Package validator checks graph-level properties that construction
// cannot, starting with reachability from the workflow's entry points.
package validator

import (
	"github.com/aretw0/cairn/pkg/graph"
)

// Unreachable returns the IDs of nodes no start node can reach, in
// declaration order. Start nodes are nodes without incoming
// transitions; when the graph has none (every node sits in a cycle)
// the first declared node is treated as the entry.
func Unreachable(g *graph.Graph) []string {
	ids := g.NodeIDs()
	if len(ids) == 0 {
		return nil
	}

	var starts []string
	for _, id := range ids {
		if g.IsStartNode(id) {
			starts = append(starts, id)
		}
	}
	if len(starts) == 0 {
		starts = ids[:1]
	}

	visited := make(map[string]bool, len(ids))
	queue := append([]string(nil), starts...)
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if visited[current] {
			continue
		}
		visited[current] = true

		for _, t := range g.Transitions(current) {
			if !visited[t.To] {
				queue = append(queue, t.To)
			}
		}
	}

	var unreachable []string
	for _, id := range ids {
		if !visited[id] {
			unreachable = append(unreachable, id)
		}
	}
	return unreachable
}

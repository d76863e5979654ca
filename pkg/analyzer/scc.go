package analyzer

import (
	"sort"

	"github.com/aretw0/cairn/pkg/graph"
)

// SCC is one strongly connected component. EntryPoints are member
// nodes receiving an edge from outside the component; ExitPoints are
// external nodes reached by an edge from inside it.
type SCC struct {
	ID          int      `json:"id"`
	Nodes       []string `json:"nodes"`
	EntryPoints []string `json:"entry_points"`
	ExitPoints  []string `json:"exit_points"`
}

// Contains reports whether the node is a member of the component.
func (s SCC) Contains(node string) bool {
	for _, n := range s.Nodes {
		if n == node {
			return true
		}
	}
	return false
}

// StronglyConnectedComponents finds every SCC using Tarjan's
// single-pass algorithm. Components are annotated with their entry and
// exit points; node lists are sorted for stable output.
func (a *Analyzer) StronglyConnectedComponents() []SCC {
	t := &tarjanState{
		g:       a.graph,
		index:   make(map[string]int),
		lowlink: make(map[string]int),
		onStack: make(map[string]bool),
	}
	for _, id := range a.graph.NodeIDs() {
		if _, seen := t.index[id]; !seen {
			t.strongConnect(id)
		}
	}
	return a.annotate(t.components)
}

// StronglyConnectedComponentsKosaraju finds every SCC with the
// two-pass Kosaraju algorithm (forward DFS finish order, then reverse
// DFS). It exists as a cross-check: for any graph its result is
// set-equivalent to Tarjan's.
func (a *Analyzer) StronglyConnectedComponentsKosaraju() []SCC {
	visited := make(map[string]bool)
	var order []string
	var visit func(string)
	visit = func(v string) {
		visited[v] = true
		for _, e := range a.graph.Transitions(v) {
			if !visited[e.To] {
				visit(e.To)
			}
		}
		order = append(order, v)
	}
	for _, id := range a.graph.NodeIDs() {
		if !visited[id] {
			visit(id)
		}
	}

	assigned := make(map[string]bool)
	var components [][]string
	var collect func(v string, comp *[]string)
	collect = func(v string, comp *[]string) {
		assigned[v] = true
		*comp = append(*comp, v)
		for _, e := range a.graph.TransitionsTo(v) {
			if !assigned[e.From] {
				collect(e.From, comp)
			}
		}
	}
	for i := len(order) - 1; i >= 0; i-- {
		if v := order[i]; !assigned[v] {
			var comp []string
			collect(v, &comp)
			components = append(components, comp)
		}
	}
	return a.annotate(components)
}

type tarjanState struct {
	g       *graph.Graph
	counter int
	index   map[string]int
	lowlink map[string]int
	onStack map[string]bool
	stack   []string

	components [][]string
}

func (t *tarjanState) strongConnect(v string) {
	t.index[v] = t.counter
	t.lowlink[v] = t.counter
	t.counter++
	t.stack = append(t.stack, v)
	t.onStack[v] = true

	for _, e := range t.g.Transitions(v) {
		w := e.To
		if _, seen := t.index[w]; !seen {
			t.strongConnect(w)
			t.lowlink[v] = min(t.lowlink[v], t.lowlink[w])
		} else if t.onStack[w] {
			t.lowlink[v] = min(t.lowlink[v], t.index[w])
		}
	}

	// v roots a component: pop the stack down to it.
	if t.lowlink[v] == t.index[v] {
		var comp []string
		for {
			n := len(t.stack) - 1
			w := t.stack[n]
			t.stack = t.stack[:n]
			t.onStack[w] = false
			comp = append(comp, w)
			if w == v {
				break
			}
		}
		t.components = append(t.components, comp)
	}
}

// annotate computes entry and exit points for raw components.
func (a *Analyzer) annotate(components [][]string) []SCC {
	result := make([]SCC, 0, len(components))
	for i, comp := range components {
		members := make(map[string]bool, len(comp))
		for _, n := range comp {
			members[n] = true
		}

		entries := make(map[string]bool)
		exits := make(map[string]bool)
		for _, n := range comp {
			for _, in := range a.graph.TransitionsTo(n) {
				if !members[in.From] {
					entries[n] = true
				}
			}
			for _, out := range a.graph.Transitions(n) {
				if !members[out.To] {
					exits[out.To] = true
				}
			}
		}

		nodes := make([]string, len(comp))
		copy(nodes, comp)
		sort.Strings(nodes)

		result = append(result, SCC{
			ID:          i,
			Nodes:       nodes,
			EntryPoints: sortedKeys(entries),
			ExitPoints:  sortedKeys(exits),
		})
	}
	return result
}

func sortedKeys(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

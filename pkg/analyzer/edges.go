package analyzer

// EdgeClass is the DFS classification of one edge.
type EdgeClass string

const (
	// EdgeTree discovers a new node.
	EdgeTree EdgeClass = "tree"
	// EdgeBack points at an ancestor still on the recursion stack,
	// closing a cycle.
	EdgeBack EdgeClass = "back"
	// EdgeForward points at a finished descendant discovered later.
	EdgeForward EdgeClass = "forward"
	// EdgeCross points at a finished node discovered earlier in
	// another subtree.
	EdgeCross EdgeClass = "cross"
)

// ClassifiedEdge is one edge with its DFS class.
type ClassifiedEdge struct {
	From  string    `json:"from"`
	To    string    `json:"to"`
	Class EdgeClass `json:"class"`
}

// ClassifyEdges classifies every edge in a single DFS pass using
// discovery and finish times. Roots are taken in declaration order, so
// the classification is deterministic for a given graph.
func (a *Analyzer) ClassifyEdges() []ClassifiedEdge {
	c := &dfsClassifier{
		a:         a,
		discovery: make(map[string]int),
		onStack:   make(map[string]bool),
	}
	for _, id := range a.graph.NodeIDs() {
		if _, seen := c.discovery[id]; !seen {
			c.visit(id)
		}
	}
	return c.edges
}

// HasCycle reports whether any back edge exists.
func (a *Analyzer) HasCycle() bool {
	for _, e := range a.ClassifyEdges() {
		if e.Class == EdgeBack {
			return true
		}
	}
	return false
}

type dfsClassifier struct {
	a         *Analyzer
	clock     int
	discovery map[string]int
	onStack   map[string]bool

	edges []ClassifiedEdge
}

func (c *dfsClassifier) visit(v string) {
	c.discovery[v] = c.clock
	c.clock++
	c.onStack[v] = true

	for _, e := range c.a.graph.Transitions(v) {
		w := e.To
		switch {
		case !c.seen(w):
			c.add(v, w, EdgeTree)
			c.visit(w)
		case c.onStack[w]:
			c.add(v, w, EdgeBack)
		case c.discovery[w] > c.discovery[v]:
			// Seen and off the stack means finished.
			c.add(v, w, EdgeForward)
		default:
			c.add(v, w, EdgeCross)
		}
	}

	c.onStack[v] = false
}

func (c *dfsClassifier) seen(v string) bool {
	_, ok := c.discovery[v]
	return ok
}

func (c *dfsClassifier) add(from, to string, class EdgeClass) {
	c.edges = append(c.edges, ClassifiedEdge{From: from, To: to, Class: class})
}

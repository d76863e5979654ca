package domain

// Procedure is a named, ordered sequence of node IDs describing a known
// path through the workflow. Procedures are descriptive: validation
// checks them against the graph, but the engine never traverses them.
type Procedure struct {
	ID      string   `json:"id" yaml:"id"`
	Actions []string `json:"actions" yaml:"actions"`
}

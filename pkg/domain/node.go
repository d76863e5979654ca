package domain

// NodeKind categorizes what a node represents in the workflow.
type NodeKind string

const (
	// KindAction is a regular user- or system-performed step. Default.
	KindAction NodeKind = "action"
	// KindSession marks session boundary nodes (login, logout, resume).
	KindSession NodeKind = "session"
	// KindSystem marks steps performed by the host system itself.
	KindSystem NodeKind = "system"
	// KindPlaceholder marks nodes auto-created from transition endpoints
	// that were never explicitly declared.
	KindPlaceholder NodeKind = "placeholder"
)

// Node is a single step in the workflow graph.
// Identity is the ID; everything else is descriptive.
type Node struct {
	ID       string         `json:"id" yaml:"id"`
	Label    string         `json:"label,omitempty" yaml:"label,omitempty"`
	Kind     NodeKind       `json:"kind,omitempty" yaml:"kind,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// DisplayName returns the label if set, otherwise the ID.
func (n Node) DisplayName() string {
	if n.Label != "" {
		return n.Label
	}
	return n.ID
}

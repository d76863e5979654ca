package loam

// NodeMetadata is the frontmatter header of a node document. The
// mapstructure tags are what loam uses to decode frontmatter into
// typed document data.
type NodeMetadata struct {
	// ID overrides the document-derived ID (filename without
	// extension). Optional.
	ID    string `json:"id" mapstructure:"id"`
	Label string `json:"label" mapstructure:"label"`
	Kind  string `json:"kind" mapstructure:"kind"`

	// Transitions declares the node's outgoing edges. To is shorthand
	// for a single unconditional edge and may be combined with an
	// explicit list.
	Transitions []TransitionSpec `json:"transitions" mapstructure:"transitions"`
	To          string           `json:"to" mapstructure:"to"`

	// Procedures is honored only on the reserved procedures document.
	Procedures []ProcedureSpec `json:"procedures" mapstructure:"procedures"`

	// Metadata is free-form and carried onto the node unchanged.
	Metadata map[string]any `json:"metadata" mapstructure:"metadata"`
}

// TransitionSpec is one outgoing edge in frontmatter.
type TransitionSpec struct {
	To     string  `json:"to" mapstructure:"to"`
	Weight float64 `json:"weight" mapstructure:"weight"`
	Actor  string  `json:"actor" mapstructure:"actor"`

	// Guard is stored on the transition's metadata; it is never
	// evaluated by the engine.
	Guard string `json:"guard" mapstructure:"guard"`

	Metadata map[string]any `json:"metadata" mapstructure:"metadata"`
}

// ProcedureSpec is one named action sequence in the procedures document.
type ProcedureSpec struct {
	ID      string   `json:"id" mapstructure:"id"`
	Actions []string `json:"actions" mapstructure:"actions"`
}

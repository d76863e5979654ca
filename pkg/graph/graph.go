package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/cairn/pkg/domain"
)

// Definition is the raw material a Graph is built from. Sources
// (in-code, YAML, loam repositories, the .flow format) all produce one.
type Definition struct {
	Nodes       []domain.Node       `json:"nodes,omitempty" yaml:"nodes,omitempty"`
	Transitions []domain.Transition `json:"transitions" yaml:"transitions"`
	Procedures  []domain.Procedure  `json:"procedures,omitempty" yaml:"procedures,omitempty"`
}

// Graph is the immutable rule set: nodes, directed transitions and
// descriptive procedures, with adjacency indexes for O(1) membership
// checks and O(out-degree) neighbor queries.
type Graph struct {
	nodes     map[string]domain.Node
	nodeOrder []string

	transitions map[string]map[string]domain.Transition
	outgoing    map[string][]string
	incoming    map[string][]string
	edgeCount   int

	procedures []domain.Procedure
	byActor    map[domain.Actor]int
}

// Option configures graph construction.
type Option func(*buildConfig)

type buildConfig struct {
	nodes      []domain.Node
	procedures []domain.Procedure
	validate   bool
}

// WithNodes declares nodes explicitly. Nodes referenced by transitions
// but never declared are auto-created as placeholders.
func WithNodes(nodes ...domain.Node) Option {
	return func(c *buildConfig) {
		c.nodes = append(c.nodes, nodes...)
	}
}

// WithProcedures declares named action sequences over existing nodes.
func WithProcedures(procedures ...domain.Procedure) Option {
	return func(c *buildConfig) {
		c.procedures = append(c.procedures, procedures...)
	}
}

// SkipValidation disables the construction-time findings check. The
// graph is still checked for hard errors (duplicates, empty endpoints);
// only error-severity findings stop aborting construction.
func SkipValidation() Option {
	return func(c *buildConfig) {
		c.validate = false
	}
}

// New builds an immutable Graph from the given transitions.
//
// Construction fails with a DuplicateNode or DuplicateTransition error
// on repeated declarations, and with BuildFailed when validation (on by
// default) reports any error-severity finding.
func New(transitions []domain.Transition, opts ...Option) (*Graph, error) {
	cfg := buildConfig{validate: true}
	for _, opt := range opts {
		opt(&cfg)
	}

	g := &Graph{
		nodes:       make(map[string]domain.Node),
		transitions: make(map[string]map[string]domain.Transition),
		outgoing:    make(map[string][]string),
		incoming:    make(map[string][]string),
		byActor:     make(map[domain.Actor]int),
	}

	for _, n := range cfg.nodes {
		if n.ID == "" {
			return nil, domain.NewBuildFailed("node with empty id", nil)
		}
		if _, exists := g.nodes[n.ID]; exists {
			return nil, domain.NewDuplicateNode(n.ID)
		}
		if n.Kind == "" {
			n.Kind = domain.KindAction
		}
		g.nodes[n.ID] = n
		g.nodeOrder = append(g.nodeOrder, n.ID)
	}

	for _, t := range transitions {
		if t.From == "" || t.To == "" {
			return nil, domain.NewBuildFailed(
				fmt.Sprintf("transition %q -> %q has an empty endpoint", t.From, t.To), nil)
		}
		if _, dup := g.transitions[t.From][t.To]; dup {
			return nil, domain.NewDuplicateTransition(t.From, t.To)
		}
		if t.Actor == "" {
			t.Actor = domain.ActorUser
		}

		g.ensureNode(t.From)
		g.ensureNode(t.To)

		if g.transitions[t.From] == nil {
			g.transitions[t.From] = make(map[string]domain.Transition)
		}
		g.transitions[t.From][t.To] = t
		g.outgoing[t.From] = append(g.outgoing[t.From], t.To)
		g.incoming[t.To] = append(g.incoming[t.To], t.From)
		g.byActor[t.Actor]++
		g.edgeCount++
	}

	g.procedures = append(g.procedures, cfg.procedures...)

	if cfg.validate {
		if errs := errorFindings(g.Validate()); len(errs) > 0 {
			msgs := make([]string, len(errs))
			for i, f := range errs {
				msgs[i] = f.Message
			}
			return nil, domain.NewBuildFailed(strings.Join(msgs, "; "), nil)
		}
	}

	return g, nil
}

// FromDefinition builds a Graph from a loaded Definition.
func FromDefinition(def *Definition, opts ...Option) (*Graph, error) {
	all := make([]Option, 0, len(opts)+2)
	all = append(all, WithNodes(def.Nodes...), WithProcedures(def.Procedures...))
	all = append(all, opts...)
	return New(def.Transitions, all...)
}

// ensureNode auto-creates a placeholder for a transition endpoint that
// was never declared.
func (g *Graph) ensureNode(id string) {
	if _, ok := g.nodes[id]; ok {
		return
	}
	g.nodes[id] = domain.Node{ID: id, Kind: domain.KindPlaceholder}
	g.nodeOrder = append(g.nodeOrder, id)
}

// HasNode reports whether the node exists.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// Node returns the node by ID.
func (g *Graph) Node(id string) (domain.Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns every node in declaration order (explicit nodes first,
// then auto-created ones in reference order).
func (g *Graph) Nodes() []domain.Node {
	out := make([]domain.Node, 0, len(g.nodeOrder))
	for _, id := range g.nodeOrder {
		out = append(out, g.nodes[id])
	}
	return out
}

// NodeIDs returns node IDs in declaration order.
func (g *Graph) NodeIDs() []string {
	out := make([]string, len(g.nodeOrder))
	copy(out, g.nodeOrder)
	return out
}

// HasTransition reports whether the directed pair is permitted.
func (g *Graph) HasTransition(from, to string) bool {
	_, ok := g.transitions[from][to]
	return ok
}

// Transition returns the rule for a directed pair.
func (g *Graph) Transition(from, to string) (domain.Transition, bool) {
	t, ok := g.transitions[from][to]
	return t, ok
}

// Transitions returns the outgoing transitions of a node in declaration
// order. The result is a fresh slice; the graph itself never changes.
func (g *Graph) Transitions(from string) []domain.Transition {
	targets := g.outgoing[from]
	out := make([]domain.Transition, 0, len(targets))
	for _, to := range targets {
		out = append(out, g.transitions[from][to])
	}
	return out
}

// TransitionsTo returns the incoming transitions of a node in
// declaration order.
func (g *Graph) TransitionsTo(to string) []domain.Transition {
	sources := g.incoming[to]
	out := make([]domain.Transition, 0, len(sources))
	for _, from := range sources {
		out = append(out, g.transitions[from][to])
	}
	return out
}

// Procedures returns the declared procedures.
func (g *Graph) Procedures() []domain.Procedure {
	out := make([]domain.Procedure, len(g.procedures))
	copy(out, g.procedures)
	return out
}

// IsStartNode reports whether the node exists and has no incoming
// transitions.
func (g *Graph) IsStartNode(id string) bool {
	if !g.HasNode(id) {
		return false
	}
	return len(g.incoming[id]) == 0
}

// IsEndNode reports whether the node exists and has no outgoing
// transitions.
func (g *Graph) IsEndNode(id string) bool {
	if !g.HasNode(id) {
		return false
	}
	return len(g.outgoing[id]) == 0
}

// Stats summarizes the graph's size.
type Stats struct {
	Nodes       int                  `json:"nodes"`
	Transitions int                  `json:"transitions"`
	Procedures  int                  `json:"procedures"`
	ByActor     map[domain.Actor]int `json:"by_actor"`
}

// Stats returns node, transition and procedure counts plus per-actor
// transition counts.
func (g *Graph) Stats() Stats {
	byActor := make(map[domain.Actor]int, len(g.byActor))
	for a, n := range g.byActor {
		byActor[a] = n
	}
	return Stats{
		Nodes:       len(g.nodes),
		Transitions: g.edgeCount,
		Procedures:  len(g.procedures),
		ByActor:     byActor,
	}
}

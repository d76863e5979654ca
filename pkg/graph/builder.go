package graph

import "github.com/aretw0/cairn/pkg/domain"

// Builder manages graph construction with a fluent API.
//
//	g, err := graph.NewBuilder().
//		Add("open_editor").Label("Open editor").To("edit_file").
//		Add("edit_file").To("save_file").To("run_tests").
//		Add("run_tests").ToActor("deploy", domain.ActorAutomation).
//		Build()
//
// Declaration order is preserved: nodes in Add order, transitions in
// the order their To calls appear.
type Builder struct {
	nodes       map[string]*NodeBuilder
	order       []string
	transitions []domain.Transition
	procedures  []domain.Procedure
}

// NewBuilder creates a new graph builder.
func NewBuilder() *Builder {
	return &Builder{
		nodes: make(map[string]*NodeBuilder),
	}
}

// Add creates a node in the graph. If the node already exists, the
// existing builder is returned.
func (b *Builder) Add(id string) *NodeBuilder {
	if nb, ok := b.nodes[id]; ok {
		return nb
	}
	nb := &NodeBuilder{
		node:    domain.Node{ID: id, Kind: domain.KindAction},
		builder: b,
	}
	b.nodes[id] = nb
	b.order = append(b.order, id)
	return nb
}

// Path declares the nodes in order with a transition between each
// consecutive pair. Nodes already declared are reused.
func (b *Builder) Path(ids ...string) *Builder {
	for i, id := range ids {
		b.Add(id)
		if i > 0 {
			b.transitions = append(b.transitions, domain.Transition{
				From:  ids[i-1],
				To:    id,
				Actor: domain.ActorUser,
			})
		}
	}
	return b
}

// Transition appends a fully specified transition. Use this when the
// fluent methods are not enough (custom metadata, combined attributes).
func (b *Builder) Transition(t domain.Transition) *Builder {
	b.transitions = append(b.transitions, t)
	return b
}

// Procedure declares a named action sequence over existing nodes.
func (b *Builder) Procedure(id string, actions ...string) *Builder {
	b.procedures = append(b.procedures, domain.Procedure{ID: id, Actions: actions})
	return b
}

// Build compiles the accumulated nodes and transitions into a Graph.
func (b *Builder) Build(opts ...Option) (*Graph, error) {
	nodes := make([]domain.Node, 0, len(b.order))
	for _, id := range b.order {
		nodes = append(nodes, b.nodes[id].node)
	}
	all := make([]Option, 0, len(opts)+2)
	all = append(all, WithNodes(nodes...), WithProcedures(b.procedures...))
	all = append(all, opts...)
	return New(b.transitions, all...)
}

// NodeBuilder provides a fluent API for configuring a node and its
// outgoing transitions.
type NodeBuilder struct {
	node    domain.Node
	builder *Builder
}

// Label sets the human-readable name of the node.
func (n *NodeBuilder) Label(label string) *NodeBuilder {
	n.node.Label = label
	return n
}

// Kind sets the node kind.
func (n *NodeBuilder) Kind(kind domain.NodeKind) *NodeBuilder {
	n.node.Kind = kind
	return n
}

// Meta attaches a metadata value to the node.
func (n *NodeBuilder) Meta(key string, value any) *NodeBuilder {
	if n.node.Metadata == nil {
		n.node.Metadata = make(map[string]any)
	}
	n.node.Metadata[key] = value
	return n
}

// To adds a permitted transition from this node to the target.
func (n *NodeBuilder) To(target string) *NodeBuilder {
	n.builder.transitions = append(n.builder.transitions, domain.Transition{
		From:  n.node.ID,
		To:    target,
		Actor: domain.ActorUser,
	})
	return n
}

// ToWeighted adds a transition with an explicit base weight.
func (n *NodeBuilder) ToWeighted(target string, weight float64) *NodeBuilder {
	n.builder.transitions = append(n.builder.transitions, domain.Transition{
		From:       n.node.ID,
		To:         target,
		BaseWeight: weight,
		Actor:      domain.ActorUser,
	})
	return n
}

// ToActor adds a transition attributed to the given actor.
func (n *NodeBuilder) ToActor(target string, actor domain.Actor) *NodeBuilder {
	n.builder.transitions = append(n.builder.transitions, domain.Transition{
		From:  n.node.ID,
		To:    target,
		Actor: actor,
	})
	return n
}

// ToGuarded adds a transition annotated with a guard expression. Guards
// are stored and syntax-checked, never evaluated.
func (n *NodeBuilder) ToGuarded(target, guard string) *NodeBuilder {
	n.builder.transitions = append(n.builder.transitions, domain.Transition{
		From:     n.node.ID,
		To:       target,
		Actor:    domain.ActorUser,
		Metadata: map[string]any{domain.MetaGuard: guard},
	})
	return n
}

// Add hands control back to the parent builder, so chains can keep
// declaring nodes without breaking the fluent flow.
func (n *NodeBuilder) Add(id string) *NodeBuilder {
	return n.builder.Add(id)
}

// Path declares a path through the parent builder.
func (n *NodeBuilder) Path(ids ...string) *Builder {
	return n.builder.Path(ids...)
}

// Procedure declares a procedure through the parent builder.
func (n *NodeBuilder) Procedure(id string, actions ...string) *Builder {
	return n.builder.Procedure(id, actions...)
}

// Build compiles the parent builder.
func (n *NodeBuilder) Build(opts ...Option) (*Graph, error) {
	return n.builder.Build(opts...)
}

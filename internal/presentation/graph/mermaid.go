package graph

import (
	"fmt"
	"path"
	"strings"

	"github.com/aretw0/cairn/pkg/domain"
	"github.com/aretw0/cairn/pkg/graph"
)

// Option adjusts what GenerateMermaid overlays on the structure.
type Option func(*options)

type options struct {
	weight      func(from, to string) float64
	bottlenecks []string
	loopNodes   []string
}

// WithWeights labels each edge with its learned weight as reported by
// the lookup. Edges reporting zero keep a plain arrow.
func WithWeights(weight func(from, to string) float64) Option {
	return func(o *options) {
		o.weight = weight
	}
}

// WithBottlenecks highlights the given nodes as congestion points.
func WithBottlenecks(nodes ...string) Option {
	return func(o *options) {
		o.bottlenecks = append(o.bottlenecks, nodes...)
	}
}

// WithLoopNodes highlights members of detected loops.
func WithLoopNodes(nodes ...string) Option {
	return func(o *options) {
		o.loopNodes = append(o.loopNodes, nodes...)
	}
}

// GenerateMermaid renders the graph as a Mermaid flowchart.
// Node shapes follow the kind:
//   - session: ((circle))
//   - system: [[subroutine]]
//   - placeholder: ([stadium])
//   - action: [rectangle]
//
// Transitions that cross a slash-namespace boundary are drawn dashed.
// Guards appear as edge labels; WithWeights appends the learned weight.
func GenerateMermaid(g *graph.Graph, opts ...Option) string {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, node := range g.Nodes() {
		safeID := sanitizeMermaidID(node.ID)

		opener, closer := "[", "]"
		switch node.Kind {
		case domain.KindSession:
			opener, closer = "((", "))"
		case domain.KindSystem:
			opener, closer = "[[", "]]"
		case domain.KindPlaceholder:
			opener, closer = "([", "])"
		}

		title := node.ID
		if node.Label != "" && node.Label != node.ID {
			title = fmt.Sprintf("%s <br/> %s", node.ID, node.Label)
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, title, closer))

		for _, t := range g.Transitions(node.ID) {
			safeTo := sanitizeMermaidID(t.To)

			// Slash-namespaced IDs group nodes into modules; edges
			// leaving a module are drawn dashed.
			isJump := path.Dir(t.From) != path.Dir(t.To)

			label := edgeLabel(t, &o)
			arrow := "-->"
			if isJump {
				arrow = "-.->"
			}
			if label != "" {
				arrow = fmt.Sprintf("-- \"%s\" -->", label)
				if isJump {
					arrow = fmt.Sprintf("-. \"%s\" .->", label)
				}
			}
			sb.WriteString(fmt.Sprintf("    %s %s %s\n", safeID, arrow, safeTo))
		}
	}

	writeHighlights(&sb, &o)
	return sb.String()
}

// edgeLabel combines the guard annotation with the learned weight.
func edgeLabel(t domain.Transition, o *options) string {
	var parts []string
	if guard := t.Guard(); guard != "" {
		parts = append(parts, strings.ReplaceAll(guard, "\"", "'"))
	}
	if o.weight != nil {
		if w := o.weight(t.From, t.To); w > 0 {
			parts = append(parts, fmt.Sprintf("%.2f", w))
		}
	}
	return strings.Join(parts, " / ")
}

func writeHighlights(sb *strings.Builder, o *options) {
	if len(o.bottlenecks) == 0 && len(o.loopNodes) == 0 {
		return
	}
	sb.WriteString("\n    %% Analysis Highlights\n")
	// color:#000 keeps labels readable on light and dark themes alike.
	sb.WriteString("    classDef bottleneck fill:#ffccbc,stroke:#bf360c,stroke-width:3px,color:#000;\n")
	sb.WriteString("    classDef loop fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")

	writeClass(sb, o.bottlenecks, "bottleneck")
	writeClass(sb, o.loopNodes, "loop")
}

func writeClass(sb *strings.Builder, ids []string, class string) {
	seen := make(map[string]bool)
	for _, id := range ids {
		safeID := sanitizeMermaidID(id)
		if safeID == "" || seen[safeID] {
			continue
		}
		seen[safeID] = true
		sb.WriteString(fmt.Sprintf("    class %s %s;\n", safeID, class))
	}
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return s
}

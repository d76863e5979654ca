// Package loam loads workflow definitions from a loam document
// repository: one Markdown (or JSON/YAML) document per node with the
// node's outgoing transitions declared in frontmatter, plus an optional
// reserved "procedures" document. The repository is watchable, which is
// what drives hot reload in serve --watch.
package loam

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/loam"

	"github.com/aretw0/cairn/pkg/domain"
	"github.com/aretw0/cairn/pkg/graph"
)

// ProceduresDoc is the reserved document ID whose frontmatter declares
// procedures instead of a node.
const ProceduresDoc = "procedures"

// Source implements ports.Source and ports.Watchable over a loam
// repository.
type Source struct {
	repo *loam.TypedRepository[NodeMetadata]
}

// New creates a Source over an existing typed repository.
func New(repo *loam.TypedRepository[NodeMetadata]) *Source {
	return &Source{repo: repo}
}

// Open initializes a loam repository at path and returns a Source over
// it. Versioning is off; the repository is a plain directory of
// documents. Pass loam options to override.
func Open(path string, opts ...loam.Option) (*Source, error) {
	all := append([]loam.Option{loam.WithVersioning(false)}, opts...)
	repo, err := loam.Init(path, all...)
	if err != nil {
		return nil, fmt.Errorf("loam init failed: %w", err)
	}
	return New(loam.NewTypedRepository[NodeMetadata](repo)), nil
}

// LoadDefinition reads every document in the repository and assembles
// the graph definition. Each document becomes one node; the reserved
// procedures document contributes procedures only. Two documents
// resolving to the same node ID fail the load.
func (s *Source) LoadDefinition(ctx context.Context) (*graph.Definition, error) {
	docs, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	// List order follows the directory walk; sort so the definition
	// loads the same way on every platform.
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })

	def := &graph.Definition{}
	seen := make(map[string]string)

	for _, doc := range docs {
		id := normalizeID(doc.Data.ID, doc.ID)
		if previous, ok := seen[id]; ok {
			return nil, fmt.Errorf("node %q is defined in both %q and %q", id, previous, doc.ID)
		}
		seen[id] = doc.ID

		if id == ProceduresDoc {
			for _, p := range doc.Data.Procedures {
				def.Procedures = append(def.Procedures, domain.Procedure{ID: p.ID, Actions: p.Actions})
			}
			continue
		}

		node, transitions, err := convertNode(id, doc.Data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", doc.ID, err)
		}
		def.Nodes = append(def.Nodes, node)
		def.Transitions = append(def.Transitions, transitions...)
	}

	return def, nil
}

// Watch implements ports.Watchable. Each received ID names the changed
// document; the channel closes when ctx is cancelled.
func (s *Source) Watch(ctx context.Context) (<-chan string, error) {
	events, err := s.repo.Watch(ctx, "**/*.{md,json,yaml,yml}")
	if err != nil {
		return nil, fmt.Errorf("loam watch failed: %w", err)
	}

	ch := make(chan string, 1)

	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				select {
				case ch <- evt.ID:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch, nil
}

func convertNode(id string, meta NodeMetadata) (domain.Node, []domain.Transition, error) {
	node := domain.Node{ID: id, Label: meta.Label}

	switch meta.Kind {
	case "":
		node.Kind = domain.KindAction
	case string(domain.KindAction), string(domain.KindSession), string(domain.KindSystem):
		node.Kind = domain.NodeKind(meta.Kind)
	default:
		return domain.Node{}, nil, fmt.Errorf("unknown node kind %q", meta.Kind)
	}

	if len(meta.Metadata) > 0 {
		node.Metadata = meta.Metadata
	}

	specs := meta.Transitions
	if meta.To != "" {
		specs = append(specs, TransitionSpec{To: meta.To})
	}

	transitions := make([]domain.Transition, 0, len(specs))
	for _, spec := range specs {
		t, err := convertTransition(id, spec)
		if err != nil {
			return domain.Node{}, nil, err
		}
		transitions = append(transitions, t)
	}

	return node, transitions, nil
}

func convertTransition(from string, spec TransitionSpec) (domain.Transition, error) {
	if spec.To == "" {
		return domain.Transition{}, fmt.Errorf("transition from %q has no target", from)
	}

	t := domain.Transition{From: from, To: spec.To, BaseWeight: spec.Weight}

	if spec.Actor != "" {
		actor := domain.Actor(spec.Actor)
		if !actor.Valid() {
			return domain.Transition{}, fmt.Errorf("transition %q -> %q: unknown actor %q", from, spec.To, spec.Actor)
		}
		t.Actor = actor
	}

	if len(spec.Metadata) > 0 || spec.Guard != "" {
		t.Metadata = make(map[string]any, len(spec.Metadata)+1)
		for k, v := range spec.Metadata {
			t.Metadata[k] = v
		}
		if spec.Guard != "" {
			t.Metadata[domain.MetaGuard] = spec.Guard
		}
	}

	return t, nil
}

// normalizeID prefers the explicit frontmatter ID over the
// document-derived one, strips the file extension and forces forward
// slashes so nested documents get URI-like IDs on every OS.
func normalizeID(metaID, docID string) string {
	id := metaID
	if id == "" {
		id = docID
	}
	if ext := filepath.Ext(id); ext != "" {
		id = strings.TrimSuffix(id, ext)
	}
	return filepath.ToSlash(id)
}

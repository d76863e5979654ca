package ports

import (
	"context"

	"github.com/aretw0/cairn/pkg/graph"
)

// Source defines how the engine obtains a graph definition. This
// decouples the definition format (in-code builder, YAML or JSON
// files, a loam workspace) from graph construction.
type Source interface {
	// LoadDefinition returns the full definition: transitions plus
	// optional explicit nodes and procedures.
	LoadDefinition(ctx context.Context) (*graph.Definition, error)
}

// Watchable is implemented by sources that can notify about backend
// changes. Used for hot-reload in dev mode.
type Watchable interface {
	// Watch returns a channel that receives an identifier of what
	// changed (a document ID, a file path) whenever the underlying
	// definition changes. Any receive means a reload is due. The
	// channel closes when ctx is cancelled.
	Watch(ctx context.Context) (<-chan string, error)
}

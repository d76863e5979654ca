package runtime

import (
	"context"
	"fmt"

	"github.com/aretw0/cairn/pkg/analyzer"
	"github.com/aretw0/cairn/pkg/graph"
	"github.com/aretw0/cairn/pkg/ports"
	"github.com/aretw0/cairn/pkg/weights"
)

// Reload rebuilds the graph from the configured definition source and
// swaps it in atomically. Learned weights carry over: entries whose
// transitions survive the reload keep their values; entries for
// removed transitions read as zero and are purged by the next decay
// pass. A definition that fails to load or build leaves the current
// graph untouched.
func (e *Engine) Reload(ctx context.Context) error {
	if e.source == nil {
		return fmt.Errorf("no definition source configured")
	}
	def, err := e.source.LoadDefinition(ctx)
	if err != nil {
		return fmt.Errorf("load definition: %w", err)
	}
	g, err := graph.FromDefinition(def)
	if err != nil {
		return fmt.Errorf("rebuild graph: %w", err)
	}

	e.mu.Lock()
	snap := e.store.Export(e.modelID)
	store, err := weights.New(g, e.store.Config(), weights.WithClock(e.now))
	if err != nil {
		e.mu.Unlock()
		return fmt.Errorf("rebuild weight store: %w", err)
	}
	if err := store.Import(snap); err != nil {
		e.mu.Unlock()
		return fmt.Errorf("carry weights over: %w", err)
	}
	e.graph = g
	e.store = store
	if !e.modelIDExplicit {
		e.modelID = g.Fingerprint()
	}
	e.an = analyzer.New(g, store,
		analyzer.WithConfig(e.analyzerCfg),
		analyzer.WithClock(e.now),
	)
	stats := g.Stats()
	e.mu.Unlock()

	e.logger.Info("definition reloaded",
		"nodes", stats.Nodes, "transitions", stats.Transitions)
	return nil
}

// Watch exposes the source's change channel for hot reload. Fails when
// the configured source cannot watch (or none is configured).
func (e *Engine) Watch(ctx context.Context) (<-chan string, error) {
	if e.source == nil {
		return nil, fmt.Errorf("no definition source configured")
	}
	w, ok := e.source.(ports.Watchable)
	if !ok {
		return nil, fmt.Errorf("definition source does not support watching")
	}
	return w.Watch(ctx)
}

package memory

import (
	"context"
	"sync"

	"github.com/aretw0/cairn/pkg/graph"
)

// Source implements ports.Source from an in-memory definition. Update
// swaps the definition and signals watchers, which makes it the
// simplest way to exercise hot reload in tests.
type Source struct {
	def      *graph.Definition
	watchers []chan string
	mu       sync.RWMutex
}

// NewSource creates a source serving the given definition.
func NewSource(def *graph.Definition) *Source {
	return &Source{def: cloneDefinition(def)}
}

// LoadDefinition returns a copy of the current definition.
func (s *Source) LoadDefinition(ctx context.Context) (*graph.Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneDefinition(s.def), nil
}

// Update replaces the definition and notifies watchers. Watchers that
// have not drained the previous signal are skipped, not blocked on.
func (s *Source) Update(def *graph.Definition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.def = cloneDefinition(def)
	for _, ch := range s.watchers {
		select {
		case ch <- "definition":
		default:
		}
	}
}

// Watch implements ports.Watchable. The channel closes when ctx is
// cancelled.
func (s *Source) Watch(ctx context.Context) (<-chan string, error) {
	ch := make(chan string, 1)

	s.mu.Lock()
	s.watchers = append(s.watchers, ch)
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		for i, w := range s.watchers {
			if w == ch {
				s.watchers = append(s.watchers[:i], s.watchers[i+1:]...)
				break
			}
		}
		s.mu.Unlock()
		close(ch)
	}()

	return ch, nil
}

func cloneDefinition(def *graph.Definition) *graph.Definition {
	if def == nil {
		return &graph.Definition{}
	}
	copied := &graph.Definition{}
	if def.Nodes != nil {
		copied.Nodes = append(copied.Nodes, def.Nodes...)
	}
	if def.Transitions != nil {
		copied.Transitions = append(copied.Transitions, def.Transitions...)
	}
	if def.Procedures != nil {
		copied.Procedures = append(copied.Procedures, def.Procedures...)
	}
	return copied
}

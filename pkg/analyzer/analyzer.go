package analyzer

import (
	"time"

	"github.com/aretw0/cairn/pkg/domain"
	"github.com/aretw0/cairn/pkg/graph"
	"github.com/aretw0/cairn/pkg/weights"
)

// PatternHook observes detected automation patterns.
type PatternHook func(domain.PatternEvent)

// Analyzer runs pattern detection over a graph and its weight overlay.
type Analyzer struct {
	graph *graph.Graph
	store *weights.Store
	cfg   Config
	now   func() time.Time

	patternHooks []PatternHook
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithConfig replaces the default thresholds.
func WithConfig(cfg Config) Option {
	return func(a *Analyzer) {
		a.cfg = cfg.withDefaults()
	}
}

// WithPatternHook registers an observer for qualifying automation
// patterns, called during FindAutomationCandidates.
func WithPatternHook(fn PatternHook) Option {
	return func(a *Analyzer) {
		a.patternHooks = append(a.patternHooks, fn)
	}
}

// WithClock replaces the time source used to stamp pattern events.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) {
		a.now = now
	}
}

// New creates an Analyzer over the given graph and weight store.
func New(g *graph.Graph, store *weights.Store, opts ...Option) *Analyzer {
	a := &Analyzer{
		graph: g,
		store: store,
		cfg:   DefaultConfig(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Config returns the effective thresholds.
func (a *Analyzer) Config() Config {
	return a.cfg
}

// edgeWeight reads the all-actor predictive weight of one edge, 0 when
// no store is attached.
func (a *Analyzer) edgeWeight(from, to string) float64 {
	if a.store == nil {
		return 0
	}
	return a.store.EdgeWeight(from, to)
}

// actorWeight reads the predictive weight of one edge for one actor.
func (a *Analyzer) actorWeight(from, to string, actor domain.Actor) float64 {
	if a.store == nil {
		return 0
	}
	return a.store.Weight(from, to, actor)
}

func (a *Analyzer) emitPattern(ev domain.PatternEvent) {
	for _, fn := range a.patternHooks {
		fn(ev)
	}
}

package cairn

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/cairn/internal/runtime"
	"github.com/aretw0/cairn/pkg/analyzer"
	"github.com/aretw0/cairn/pkg/domain"
	"github.com/aretw0/cairn/pkg/graph"
	"github.com/aretw0/cairn/pkg/ports"
	"github.com/aretw0/cairn/pkg/schema"
	"github.com/aretw0/cairn/pkg/weights"
)

// Engine is the high-level entry point for the Cairn library. It wraps
// the internal runtime and exposes the full recording, prediction,
// session and analysis API behind one handle that is safe for
// concurrent use.
type Engine struct {
	rt *runtime.Engine
}

// config collects everything the options provide before New assembles
// the graph, the weight store and the runtime.
type config struct {
	transitions []domain.Transition
	nodes       []domain.Node
	procedures  []domain.Procedure
	graph       *graph.Graph
	source      ports.Source
	weightCfg   weights.Config
	logger      *slog.Logger
	clock       func() time.Time
	runtimeOpts []runtime.Option
}

// Option defines a functional option for configuring the Engine.
type Option func(*config)

// WithTransitions declares the graph's directed transitions. New builds
// an immutable graph from them (plus WithNodes and WithProcedures)
// unless WithGraph supplies a pre-built one.
func WithTransitions(transitions ...domain.Transition) Option {
	return func(c *config) {
		c.transitions = append(c.transitions, transitions...)
	}
}

// WithNodes declares nodes explicitly. Endpoints referenced only by
// transitions are auto-created as placeholders.
func WithNodes(nodes ...domain.Node) Option {
	return func(c *config) {
		c.nodes = append(c.nodes, nodes...)
	}
}

// WithProcedures declares named action sequences over the graph.
func WithProcedures(procedures ...domain.Procedure) Option {
	return func(c *config) {
		c.procedures = append(c.procedures, procedures...)
	}
}

// WithGraph injects a pre-built graph, bypassing construction from
// transitions or a source. Graphs are immutable, so one graph may back
// any number of engines; each engine still learns its own weights.
func WithGraph(g *graph.Graph) Option {
	return func(c *config) { c.graph = g }
}

// WithSource sets a definition source. When no transitions or graph
// are given, New loads the initial definition from it; either way the
// source stays attached for Reload and Watch.
func WithSource(src ports.Source) Option {
	return func(c *config) { c.source = src }
}

// WithWeightConfig tunes the learning overlay (decay algorithm,
// half-life, factor, floor). Zero fields take defaults.
func WithWeightConfig(cfg weights.Config) Option {
	return func(c *config) { c.weightCfg = cfg }
}

// WithLogger sets a structured logger. The default engine is silent.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithClock overrides the time source for both the engine and its
// weight store. Tests use it to step through decay and timeouts.
func WithClock(now func() time.Time) Option {
	return func(c *config) { c.clock = now }
}

// WithSnapshotStore sets the persistence adapter behind SaveWeights
// and LoadWeights.
func WithSnapshotStore(s ports.SnapshotStore) Option {
	return func(c *config) {
		c.runtimeOpts = append(c.runtimeOpts, runtime.WithSnapshotStore(s))
	}
}

// WithEventStore sets the event log adapter. Every recorded transition
// and session boundary is appended to it.
func WithEventStore(s ports.EventStore) Option {
	return func(c *config) {
		c.runtimeOpts = append(c.runtimeOpts, runtime.WithEventStore(s))
	}
}

// WithActivityTracker sets the engagement source consulted by detailed
// predictions.
func WithActivityTracker(t ports.ActivityTracker) Option {
	return func(c *config) {
		c.runtimeOpts = append(c.runtimeOpts, runtime.WithActivityTracker(t))
	}
}

// WithValidation toggles the engine's pre-check of recorded
// transitions against the graph (default on).
func WithValidation(enabled bool) Option {
	return func(c *config) {
		c.runtimeOpts = append(c.runtimeOpts, runtime.WithValidation(enabled))
	}
}

// WithSessionTracking toggles the session state machine (default on).
func WithSessionTracking(enabled bool) Option {
	return func(c *config) {
		c.runtimeOpts = append(c.runtimeOpts, runtime.WithSessionTracking(enabled))
	}
}

// WithSessionTimeout sets the idle timeout after which a session
// counts as ended. Default 30 minutes.
func WithSessionTimeout(d time.Duration) Option {
	return func(c *config) {
		c.runtimeOpts = append(c.runtimeOpts, runtime.WithSessionTimeout(d))
	}
}

// WithPredictionCount sets the default number of prediction
// candidates. Default 5.
func WithPredictionCount(n int) Option {
	return func(c *config) {
		c.runtimeOpts = append(c.runtimeOpts, runtime.WithPredictionCount(n))
	}
}

// WithWarmupThreshold sets how many recorded transitions make the
// model warmed up. Default 50.
func WithWarmupThreshold(n uint64) Option {
	return func(c *config) {
		c.runtimeOpts = append(c.runtimeOpts, runtime.WithWarmupThreshold(n))
	}
}

// WithChainLimit sets the default cap on merged session chains.
func WithChainLimit(n int) Option {
	return func(c *config) {
		c.runtimeOpts = append(c.runtimeOpts, runtime.WithChainLimit(n))
	}
}

// WithTruncateLimit sets the per-session event cap enforced by
// TruncateChain.
func WithTruncateLimit(n int) Option {
	return func(c *config) {
		c.runtimeOpts = append(c.runtimeOpts, runtime.WithTruncateLimit(n))
	}
}

// WithModelID pins the identifier stamped on weight exports. Without
// it the graph fingerprint is used and refreshed on Reload.
func WithModelID(id string) Option {
	return func(c *config) {
		c.runtimeOpts = append(c.runtimeOpts, runtime.WithModelID(id))
	}
}

// WithAnalyzerConfig tunes the pattern analysis thresholds.
func WithAnalyzerConfig(cfg analyzer.Config) Option {
	return func(c *config) {
		c.runtimeOpts = append(c.runtimeOpts, runtime.WithAnalyzerConfig(cfg))
	}
}

// New initializes a Cairn Engine.
//
// The graph comes from the first of: WithGraph, WithTransitions (plus
// WithNodes/WithProcedures), or a WithSource load. A fresh weight
// store is built over it; learned state is restored later via
// LoadWeights or Import.
func New(opts ...Option) (*Engine, error) {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	g := cfg.graph
	var err error
	switch {
	case g != nil:
	case len(cfg.transitions) > 0:
		g, err = graph.New(cfg.transitions,
			graph.WithNodes(cfg.nodes...),
			graph.WithProcedures(cfg.procedures...),
		)
		if err != nil {
			return nil, fmt.Errorf("build graph: %w", err)
		}
	case cfg.source != nil:
		def, lerr := cfg.source.LoadDefinition(context.Background())
		if lerr != nil {
			return nil, fmt.Errorf("load definition: %w", lerr)
		}
		g, err = graph.FromDefinition(def)
		if err != nil {
			return nil, fmt.Errorf("build graph: %w", err)
		}
	default:
		return nil, fmt.Errorf("a graph is required: use WithGraph, WithTransitions or WithSource")
	}

	var storeOpts []weights.Option
	if cfg.clock != nil {
		storeOpts = append(storeOpts, weights.WithClock(cfg.clock))
	}
	store, err := weights.New(g, cfg.weightCfg, storeOpts...)
	if err != nil {
		return nil, fmt.Errorf("build weight store: %w", err)
	}

	rtOpts := make([]runtime.Option, 0, len(cfg.runtimeOpts)+3)
	if cfg.logger != nil {
		rtOpts = append(rtOpts, runtime.WithLogger(cfg.logger))
	}
	if cfg.clock != nil {
		rtOpts = append(rtOpts, runtime.WithClock(cfg.clock))
	}
	if cfg.source != nil {
		rtOpts = append(rtOpts, runtime.WithSource(cfg.source))
	}
	rtOpts = append(rtOpts, cfg.runtimeOpts...)

	rt, err := runtime.NewEngine(g, store, rtOpts...)
	if err != nil {
		return nil, err
	}
	return &Engine{rt: rt}, nil
}

// RecordTransition records that an actor moved from one node to
// another, reinforcing the transition's weight. Transitions the graph
// does not declare are rejected and leave all state untouched.
func (e *Engine) RecordTransition(ctx context.Context, from, to string, rc domain.RecordContext) error {
	return e.rt.RecordTransition(ctx, from, to, rc)
}

// PredictNext returns the most likely next nodes from the given node,
// ranked by combined weight with declaration order breaking ties.
func (e *Engine) PredictNext(node string, pc domain.PredictContext) []string {
	return e.rt.PredictNext(node, pc)
}

// PredictNextDetailed returns ranked candidates with per-candidate
// confidence factors (frequency, recency, engagement, sample size).
func (e *Engine) PredictNextDetailed(node string, pc domain.PredictContext) *domain.Prediction {
	return e.rt.PredictNextDetailed(node, pc)
}

// Weight returns the current decayed weight for one transition triple.
func (e *Engine) Weight(from, to string, actor domain.Actor) float64 {
	return e.rt.Weight(from, to, actor)
}

// WeightsFrom returns the weighted outgoing transitions of a node in
// ranked order.
func (e *Engine) WeightsFrom(node string, actor domain.Actor) []domain.WeightedTransition {
	return e.rt.WeightsFrom(node, actor)
}

// SetWeight stores an explicit weight for a declared transition.
func (e *Engine) SetWeight(from, to string, actor domain.Actor, value float64) error {
	return e.rt.SetWeight(from, to, actor, value)
}

// Preload seeds weights from historical counts before any live
// recording, skipping records the graph does not declare. Returns the
// number of records applied.
func (e *Engine) Preload(records []weights.PreloadRecord) int {
	return e.rt.Preload(records)
}

// ApplyDecay runs one maintenance pass over stored weights, removing
// entries that fell under the floor.
func (e *Engine) ApplyDecay() weights.DecayResult {
	return e.rt.ApplyDecay()
}

// ClearWeights forgets all learned weights. The graph is untouched.
func (e *Engine) ClearWeights() {
	e.rt.ClearWeights()
}

// Export captures the learned state as a versioned snapshot.
func (e *Engine) Export() *schema.Snapshot {
	return e.rt.Export()
}

// Import replaces the learned state from a snapshot. Snapshots from a
// different schema version are rejected with ModelMismatch.
func (e *Engine) Import(snap *schema.Snapshot) error {
	return e.rt.Import(snap)
}

// SaveWeights exports the learned state to the configured snapshot
// store.
func (e *Engine) SaveWeights(ctx context.Context) error {
	return e.rt.SaveWeights(ctx)
}

// LoadWeights restores learned state from the configured snapshot
// store.
func (e *Engine) LoadWeights(ctx context.Context) error {
	return e.rt.LoadWeights(ctx)
}

// Events queries the configured event store. Without one it returns
// no events.
func (e *Engine) Events(ctx context.Context, filter ports.EventFilter) ([]domain.ActionEvent, error) {
	return e.rt.Events(ctx, filter)
}

// EventCount counts events matching the filter in the configured
// event store.
func (e *Engine) EventCount(ctx context.Context, filter ports.EventFilter) (uint64, error) {
	return e.rt.EventCount(ctx, filter)
}

// StartSession begins tracking a session for an actor. An empty id is
// generated; an actor's previous active session is abandoned.
func (e *Engine) StartSession(ctx context.Context, actor domain.Actor, id string) (domain.SessionInfo, error) {
	return e.rt.StartSession(ctx, actor, id)
}

// EndSession ends an active session. An empty reason defaults to
// "completed".
func (e *Engine) EndSession(ctx context.Context, id string, reason domain.EndReason) (domain.SessionInfo, error) {
	return e.rt.EndSession(ctx, id, reason)
}

// ResumeSession reactivates an ended session, displacing any other
// active session of the same actor.
func (e *Engine) ResumeSession(ctx context.Context, id string) (domain.SessionInfo, error) {
	return e.rt.ResumeSession(ctx, id)
}

// ActiveSession returns the actor's active session, if any.
func (e *Engine) ActiveSession(ctx context.Context, actor domain.Actor) (domain.SessionInfo, bool) {
	return e.rt.ActiveSession(ctx, actor)
}

// Session returns any session by id, active or ended.
func (e *Engine) Session(ctx context.Context, id string) (domain.SessionInfo, error) {
	return e.rt.Session(ctx, id)
}

// Sessions lists every tracked session ordered by start time.
func (e *Engine) Sessions(ctx context.Context) []domain.SessionInfo {
	return e.rt.Sessions(ctx)
}

// SessionChain merges an actor's sessions into one chronological
// stream of transition events.
func (e *Engine) SessionChain(actor domain.Actor, opts domain.ChainOptions) []domain.ActionEvent {
	return e.rt.SessionChain(actor, opts)
}

// TruncateChain bounds one session's stored events to the configured
// cap using the given eviction strategy. Returns the number dropped.
func (e *Engine) TruncateChain(sessionID string, strategy domain.TruncateStrategy) (int, error) {
	return e.rt.TruncateChain(sessionID, strategy)
}

// StronglyConnectedComponents returns the graph's multi-node SCCs.
func (e *Engine) StronglyConnectedComponents() []analyzer.SCC {
	return e.rt.StronglyConnectedComponents()
}

// Loops returns detected loops classified by their learned traffic.
func (e *Engine) Loops() []analyzer.Loop {
	return e.rt.Loops()
}

// Bottlenecks returns nodes whose incoming predictive traffic
// outweighs their outgoing capacity.
func (e *Engine) Bottlenecks() []analyzer.Bottleneck {
	return e.rt.Bottlenecks()
}

// ClassifyEdges labels each transition tree, back, forward or cross.
func (e *Engine) ClassifyEdges() []analyzer.ClassifiedEdge {
	return e.rt.ClassifyEdges()
}

// AutomationCandidates returns transition chains repetitive enough to
// automate, graded by confidence. Pattern listeners are notified of
// new findings.
func (e *Engine) AutomationCandidates() []analyzer.Opportunity {
	return e.rt.AutomationCandidates()
}

// AnalysisSummary aggregates the analysis passes into one report.
func (e *Engine) AnalysisSummary() analyzer.Summary {
	return e.rt.AnalysisSummary()
}

// OnTransition subscribes to recorded transitions. The returned
// function unsubscribes; it is safe to call more than once.
func (e *Engine) OnTransition(fn func(domain.TransitionEvent)) func() {
	return e.rt.OnTransition(fn)
}

// OnPrediction subscribes to served predictions.
func (e *Engine) OnPrediction(fn func(domain.PredictionEvent)) func() {
	return e.rt.OnPrediction(fn)
}

// OnWeightUpdate subscribes to weight changes.
func (e *Engine) OnWeightUpdate(fn func(domain.WeightUpdateEvent)) func() {
	return e.rt.OnWeightUpdate(fn)
}

// OnDecay subscribes to decay maintenance passes.
func (e *Engine) OnDecay(fn func(domain.DecayEvent)) func() {
	return e.rt.OnDecay(fn)
}

// OnSession subscribes to session starts, resumes and endings.
func (e *Engine) OnSession(fn func(domain.SessionEvent)) func() {
	return e.rt.OnSession(fn)
}

// OnPattern subscribes to automation opportunities surfaced by
// analysis.
func (e *Engine) OnPattern(fn func(domain.PatternEvent)) func() {
	return e.rt.OnPattern(fn)
}

// OnError subscribes to structural errors (rejected transitions,
// session misuse, persistence failures).
func (e *Engine) OnError(fn func(error)) func() {
	return e.rt.OnError(fn)
}

// Reload rebuilds the graph from the configured source and swaps it
// in, carrying learned weights over for transitions that survive.
// Requires WithSource.
func (e *Engine) Reload(ctx context.Context) error {
	return e.rt.Reload(ctx)
}

// Watch returns a channel that signals when the underlying definition
// changes. Returns an error if the source does not support watching.
func (e *Engine) Watch(ctx context.Context) (<-chan string, error) {
	return e.rt.Watch(ctx)
}

// Graph returns the engine's current immutable graph.
func (e *Engine) Graph() *graph.Graph {
	return e.rt.Graph()
}

// ModelID returns the identifier stamped on weight exports.
func (e *Engine) ModelID() string {
	return e.rt.ModelID()
}

// TransitionCount returns the total recorded transitions.
func (e *Engine) TransitionCount() uint64 {
	return e.rt.TransitionCount()
}

// WarmupComplete reports whether enough transitions were recorded for
// predictions to be considered reliable.
func (e *Engine) WarmupComplete() bool {
	return e.rt.WarmupComplete()
}

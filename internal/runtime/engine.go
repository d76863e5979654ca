package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/cairn/internal/logging"
	"github.com/aretw0/cairn/pkg/analyzer"
	"github.com/aretw0/cairn/pkg/domain"
	"github.com/aretw0/cairn/pkg/graph"
	"github.com/aretw0/cairn/pkg/ports"
	"github.com/aretw0/cairn/pkg/schema"
	"github.com/aretw0/cairn/pkg/weights"
)

// Tunables. Each has a matching option.
const (
	DefaultPredictionCount = 5
	DefaultSessionTimeout  = 30 * time.Minute
	DefaultWarmupThreshold = 50
	DefaultChainLimit      = 100
	DefaultTruncateLimit   = 50
)

// Engine is the orchestrator: it owns a weight store and the session
// state machine, validates transitions against an immutable graph, and
// fans recorded activity out to subscribers and optional persistence
// adapters.
//
// All public methods are safe for concurrent use. The engine holds one
// mutex over graph pointer, store and sessions; record, predict and
// session calls execute as atomic units under it. Notifications are
// delivered after the mutex is released, so listeners may call back
// into the engine.
type Engine struct {
	mu    sync.Mutex
	graph *graph.Graph
	store *weights.Store
	an    *analyzer.Analyzer

	logger *slog.Logger
	now    func() time.Time

	source    ports.Source
	snapshots ports.SnapshotStore
	events    ports.EventStore
	tracker   ports.ActivityTracker

	validate        bool
	sessionTracking bool
	sessionTimeout  time.Duration
	predictionCount int
	warmupThreshold uint64
	chainLimit      int
	truncateLimit   int
	modelID         string
	modelIDExplicit bool
	analyzerCfg     analyzer.Config

	// transitionCount is the total recorded (or restored) transitions,
	// the basis for warmup and the sample-size confidence factor.
	transitionCount uint64

	sessions      map[string]*sessionEntry
	activeByActor map[domain.Actor]string

	transitionSubs registry[domain.TransitionEvent]
	predictionSubs registry[domain.PredictionEvent]
	weightSubs     registry[domain.WeightUpdateEvent]
	decaySubs      registry[domain.DecayEvent]
	sessionSubs    registry[domain.SessionEvent]
	patternSubs    registry[domain.PatternEvent]
	errorSubs      registry[error]
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the structured logger. Defaults to a no-op logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithClock overrides the time source. The weight store keeps its own
// clock; give both the same one in tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithSource sets the definition source used by Reload.
func WithSource(src ports.Source) Option {
	return func(e *Engine) { e.source = src }
}

// WithSnapshotStore sets the weight persistence adapter used by
// SaveWeights and LoadWeights. The engine never calls it on its own.
func WithSnapshotStore(s ports.SnapshotStore) Option {
	return func(e *Engine) { e.snapshots = s }
}

// WithEventStore sets the event log adapter. When set, every recorded
// transition and session boundary is appended to it.
func WithEventStore(s ports.EventStore) Option {
	return func(e *Engine) { e.events = s }
}

// WithActivityTracker sets the engagement source for prediction
// confidence. Without one the engagement factor is a neutral 0.5.
func WithActivityTracker(t ports.ActivityTracker) Option {
	return func(e *Engine) { e.tracker = t }
}

// WithValidation toggles the engine's pre-check of recorded
// transitions against the graph (default true). The weight store
// rejects undeclared pairs regardless, so disabling this only moves
// the rejection from the engine to the store.
func WithValidation(enabled bool) Option {
	return func(e *Engine) { e.validate = enabled }
}

// WithSessionTracking toggles the session state machine. Default true.
func WithSessionTracking(enabled bool) Option {
	return func(e *Engine) { e.sessionTracking = enabled }
}

// WithSessionTimeout sets the idle timeout after which a session is
// considered ended. The check is lazy: it runs when the session is
// next read, not on a timer.
func WithSessionTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.sessionTimeout = d
		}
	}
}

// WithPredictionCount sets the default number of candidates returned
// by predictions when the caller does not ask for a specific count.
func WithPredictionCount(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.predictionCount = n
		}
	}
}

// WithWarmupThreshold sets how many recorded transitions count as a
// warmed-up model.
func WithWarmupThreshold(n uint64) Option {
	return func(e *Engine) {
		if n > 0 {
			e.warmupThreshold = n
		}
	}
}

// WithChainLimit sets the default cap on merged session chains.
func WithChainLimit(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.chainLimit = n
		}
	}
}

// WithTruncateLimit sets the per-session event cap enforced by
// TruncateChain.
func WithTruncateLimit(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.truncateLimit = n
		}
	}
}

// WithModelID overrides the model identifier stamped on exports.
// Defaults to the graph fingerprint, which Reload then refreshes; an
// explicit id sticks across reloads.
func WithModelID(id string) Option {
	return func(e *Engine) {
		if id != "" {
			e.modelID = id
			e.modelIDExplicit = true
		}
	}
}

// WithAnalyzerConfig sets the thresholds for the analysis methods.
func WithAnalyzerConfig(cfg analyzer.Config) Option {
	return func(e *Engine) { e.analyzerCfg = cfg }
}

// NewEngine builds an engine over an immutable graph and its weight
// store. The engine takes exclusive ownership of the store: all
// further access must go through engine methods.
func NewEngine(g *graph.Graph, store *weights.Store, opts ...Option) (*Engine, error) {
	if g == nil {
		return nil, fmt.Errorf("runtime: graph is required")
	}
	if store == nil {
		return nil, fmt.Errorf("runtime: weight store is required")
	}

	e := &Engine{
		graph:           g,
		store:           store,
		logger:          logging.NewNop(),
		now:             time.Now,
		validate:        true,
		sessionTracking: true,
		sessionTimeout:  DefaultSessionTimeout,
		predictionCount: DefaultPredictionCount,
		warmupThreshold: DefaultWarmupThreshold,
		chainLimit:      DefaultChainLimit,
		truncateLimit:   DefaultTruncateLimit,
		analyzerCfg:     analyzer.DefaultConfig(),
		sessions:        make(map[string]*sessionEntry),
		activeByActor:   make(map[domain.Actor]string),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.modelID == "" {
		e.modelID = g.Fingerprint()
	}
	e.an = analyzer.New(g, store,
		analyzer.WithConfig(e.analyzerCfg),
		analyzer.WithClock(e.now),
	)
	return e, nil
}

// Graph returns the engine's current graph. Immutable, safe to share.
func (e *Engine) Graph() *graph.Graph {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.graph
}

// ModelID returns the identifier stamped on weight exports.
func (e *Engine) ModelID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.modelID
}

// TransitionCount returns the total number of recorded transitions,
// including history restored through Import or LoadWeights.
func (e *Engine) TransitionCount() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.transitionCount
}

// WarmupComplete reports whether enough transitions were recorded for
// predictions to be considered representative.
func (e *Engine) WarmupComplete() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.transitionCount >= e.warmupThreshold
}

// RecordTransition records one observed step. The transition is
// validated against the graph before any mutation: an undeclared pair
// fails with InvalidTransition, leaving weights and sessions untouched.
// On success the weight is reinforced, the event is appended to the
// active session named by rc.SessionID (if any) and to the event store
// (if configured), and transition plus weight-update notifications are
// emitted.
func (e *Engine) RecordTransition(ctx context.Context, from, to string, rc domain.RecordContext) error {
	rc = rc.Normalize()

	e.mu.Lock()
	if e.validate && !e.graph.HasTransition(from, to) {
		e.mu.Unlock()
		err := domain.NewInvalidTransition(from, to)
		e.emitError(err)
		return err
	}

	weight, err := e.store.UpdateWeight(from, to, rc.Actor)
	if err != nil {
		e.mu.Unlock()
		e.emitError(err)
		return err
	}
	e.transitionCount++
	now := e.now()

	ev := domain.ActionEvent{
		ID:        uuid.NewString(),
		SessionID: rc.SessionID,
		Actor:     rc.Actor,
		From:      from,
		To:        to,
		Timestamp: now,
		Type:      domain.EventTransition,
		Metadata:  cloneMeta(rc.Metadata),
	}
	var ends []sessionEnd
	if e.sessionTracking && rc.SessionID != "" {
		var appended bool
		appended, ends = e.appendEventLocked(rc.SessionID, &ev, now)
		if !appended {
			// The named session is unknown or no longer active. The
			// transition still counts; the event is just unattributed.
			ev.SessionID = ""
		}
	}
	e.mu.Unlock()

	e.flushEnds(ctx, ends)
	e.appendEvent(ctx, ev)
	emit(e.logger, &e.transitionSubs, domain.TransitionEvent{
		From:      from,
		To:        to,
		Context:   rc,
		Timestamp: now,
	})
	emit(e.logger, &e.weightSubs, domain.WeightUpdateEvent{
		From:      from,
		To:        to,
		Actor:     rc.Actor,
		Weight:    weight,
		Timestamp: now,
	})
	e.logger.Debug("transition recorded",
		"from", from, "to", to, "actor", string(rc.Actor), "weight", weight)
	return nil
}

// PredictNext returns the most likely next nodes from the given one,
// best first, at most pc.Count (engine default when zero). Sparse data
// degrades to fewer or zero candidates, never to an error.
func (e *Engine) PredictNext(node string, pc domain.PredictContext) []string {
	return e.PredictNextDetailed(node, pc).Targets()
}

// PredictNextDetailed returns ranked candidates with their score
// breakdown and confidence factors, plus the engine's warmup status.
func (e *Engine) PredictNextDetailed(node string, pc domain.PredictContext) *domain.Prediction {
	pc = pc.Normalize(e.predictionCount)
	started := time.Now()

	e.mu.Lock()
	now := e.now()
	ranked := e.store.WeightsFrom(node, pc.Actor)
	if len(ranked) > pc.Count {
		ranked = ranked[:pc.Count]
	}
	total := e.transitionCount
	warmedUp := total >= e.warmupThreshold
	candidates := make([]domain.Candidate, 0, len(ranked))
	for _, wt := range ranked {
		candidates = append(candidates, e.candidateLocked(wt, pc.Actor, now, total))
	}
	e.mu.Unlock()

	p := &domain.Prediction{
		Node:            node,
		Candidates:      candidates,
		WarmupComplete:  warmedUp,
		TransitionCount: total,
	}
	emit(e.logger, &e.predictionSubs, domain.PredictionEvent{
		Node:       node,
		Actor:      pc.Actor,
		Candidates: p.Targets(),
		Elapsed:    time.Since(started),
		Timestamp:  now,
	})
	return p
}

// Weight returns the decayed predictive weight for a triple. Pairs the
// graph does not declare read as zero.
func (e *Engine) Weight(from, to string, actor domain.Actor) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Weight(from, to, actor)
}

// WeightsFrom returns every outgoing transition of a node annotated
// with base, predictive and combined weight, ranked for prediction.
func (e *Engine) WeightsFrom(node string, actor domain.Actor) []domain.WeightedTransition {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.WeightsFrom(node, actor)
}

// SetWeight explicitly overrides a weight, subject to the same graph
// compliance as RecordTransition.
func (e *Engine) SetWeight(from, to string, actor domain.Actor, value float64) error {
	if actor == "" {
		actor = domain.ActorUser
	}

	e.mu.Lock()
	weight, err := e.store.SetWeight(from, to, actor, value)
	now := e.now()
	e.mu.Unlock()

	if err != nil {
		e.emitError(err)
		return err
	}
	emit(e.logger, &e.weightSubs, domain.WeightUpdateEvent{
		From:      from,
		To:        to,
		Actor:     actor,
		Weight:    weight,
		Timestamp: now,
	})
	return nil
}

// Preload seeds weights from historical counts, skipping records the
// graph does not permit. Returns the number applied.
func (e *Engine) Preload(records []weights.PreloadRecord) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Preload(records)
}

// ApplyDecay runs one explicit decay pass over all weights and emits a
// decay notification with the touched and removed counts.
func (e *Engine) ApplyDecay() weights.DecayResult {
	e.mu.Lock()
	res := e.store.ApplyDecay()
	now := e.now()
	e.mu.Unlock()

	emit(e.logger, &e.decaySubs, domain.DecayEvent{
		Touched:   res.Touched,
		Removed:   res.Removed,
		Timestamp: now,
	})
	e.logger.Debug("decay applied",
		"scanned", res.Scanned, "touched", res.Touched, "removed", res.Removed)
	return res
}

// ClearWeights drops all learned weights. The transition count is
// kept; clearing weights does not unlearn that activity happened.
func (e *Engine) ClearWeights() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.store.Clear()
}

// Export captures the current weight state as a versioned snapshot.
func (e *Engine) Export() *schema.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Export(e.modelID)
}

// Import replaces the weight state from a snapshot. The snapshot
// version must match the current schema version (ModelMismatch
// otherwise) and the payload must validate; on any failure the
// existing state is untouched. The engine's transition count is
// restored from the imported update counts.
func (e *Engine) Import(snap *schema.Snapshot) error {
	e.mu.Lock()
	err := e.store.Import(snap)
	if err == nil {
		e.transitionCount = importedCount(snap)
	}
	e.mu.Unlock()

	if err != nil {
		e.emitError(err)
		return err
	}
	e.logger.Info("weights imported",
		"entries", len(snap.Weights), "model_id", snap.ModelID)
	return nil
}

// importedCount derives the restored transition total from a snapshot.
func importedCount(snap *schema.Snapshot) uint64 {
	var total uint64
	for _, w := range snap.Weights {
		total += w.UpdateCount
	}
	return total
}

// SaveWeights exports the weight state to the configured snapshot
// store.
func (e *Engine) SaveWeights(ctx context.Context) error {
	if e.snapshots == nil {
		return fmt.Errorf("no snapshot store configured")
	}
	snap := e.Export()
	if err := e.snapshots.Save(ctx, snap); err != nil {
		err = fmt.Errorf("save weights: %w", err)
		e.emitError(err)
		return err
	}
	e.logger.Info("weights saved", "entries", len(snap.Weights))
	return nil
}

// LoadWeights restores the weight state from the configured snapshot
// store. Returns domain.ErrSnapshotNotFound when nothing was saved.
func (e *Engine) LoadWeights(ctx context.Context) error {
	if e.snapshots == nil {
		return fmt.Errorf("no snapshot store configured")
	}
	snap, err := e.snapshots.Load(ctx)
	if err != nil {
		return fmt.Errorf("load weights: %w", err)
	}
	return e.Import(snap)
}

// Events forwards the filter to the configured event store. Without
// one it returns an empty list and no error.
func (e *Engine) Events(ctx context.Context, filter ports.EventFilter) ([]domain.ActionEvent, error) {
	if e.events == nil {
		return nil, nil
	}
	return e.events.Query(ctx, filter)
}

// EventCount forwards to the configured event store; zero without one.
func (e *Engine) EventCount(ctx context.Context, filter ports.EventFilter) (uint64, error) {
	if e.events == nil {
		return 0, nil
	}
	return e.events.Count(ctx, filter)
}

// appendEvent persists one event when an event store is configured.
// Append failures are reported to the log and the error channel but do
// not fail the recording call: the weight overlay is the source of
// truth and the event log is an observer.
func (e *Engine) appendEvent(ctx context.Context, ev domain.ActionEvent) {
	if e.events == nil {
		return
	}
	if err := e.events.Append(ctx, ev); err != nil {
		e.logger.Warn("event append failed", "error", err, "event_id", ev.ID)
		e.emitError(fmt.Errorf("append event: %w", err))
	}
}

package weights

import (
	"math"
	"sort"
	"time"

	"github.com/aretw0/cairn/pkg/domain"
	"github.com/aretw0/cairn/pkg/graph"
	"github.com/aretw0/cairn/pkg/schema"
)

// entry is one learned weight. Entries exist only for transitions the
// graph permits; the exception is Import, which inserts whatever the
// snapshot holds and lets reads filter.
type entry struct {
	weight      float64
	lastUpdated time.Time
	updateCount uint64
}

type edgeKey struct {
	from, to string
}

// DecayResult reports one maintenance pass.
type DecayResult struct {
	// Scanned is the number of entries inspected.
	Scanned int `json:"scanned"`
	// Touched is the number whose stored weight changed, removals
	// included.
	Touched int `json:"touched"`
	// Removed is the number deleted for falling under the floor.
	Removed int `json:"removed"`
}

// PreloadRecord seeds a weight from historical data.
type PreloadRecord struct {
	From  string       `json:"from"`
	To    string       `json:"to"`
	Actor domain.Actor `json:"actor,omitempty"`
	Count uint64       `json:"count"`
}

// UpdateFunc observes weight changes.
type UpdateFunc func(from, to string, actor domain.Actor, weight float64)

// DecayFunc observes maintenance passes.
type DecayFunc func(DecayResult)

// Store holds the decayable weight overlay for one graph.
type Store struct {
	graph *graph.Graph
	cfg   Config
	now   func() time.Time

	entries map[edgeKey]map[domain.Actor]*entry

	onUpdate []UpdateFunc
	onDecay  []DecayFunc
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces the time source. Tests use it to step through
// decay without sleeping.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates a Store over the given graph. Zero config fields take
// defaults; an unknown algorithm or out-of-range tuning is an error.
func New(g *graph.Graph, cfg Config, opts ...Option) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Store{
		graph:   g,
		cfg:     cfg.withDefaults(),
		now:     time.Now,
		entries: make(map[edgeKey]map[domain.Actor]*entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Config returns the effective configuration.
func (s *Store) Config() Config {
	return s.cfg
}

// OnUpdate registers an observer for weight changes.
func (s *Store) OnUpdate(fn UpdateFunc) {
	s.onUpdate = append(s.onUpdate, fn)
}

// OnDecay registers an observer for maintenance passes.
func (s *Store) OnDecay(fn DecayFunc) {
	s.onDecay = append(s.onDecay, fn)
}

// UpdateWeight reinforces a transition by one: the current decayed
// value plus one becomes the stored weight, stamped now. Transitions
// the graph does not permit fail with InvalidTransition.
func (s *Store) UpdateWeight(from, to string, actor domain.Actor) (float64, error) {
	if !s.graph.HasTransition(from, to) {
		return 0, domain.NewInvalidTransition(from, to)
	}
	now := s.now()

	var current float64
	var count uint64
	if e := s.lookup(from, to, actor); e != nil {
		current = s.decayed(e, now)
		count = e.updateCount
	}

	next := current + 1
	s.put(from, to, actor, &entry{weight: next, lastUpdated: now, updateCount: count + 1})
	s.emitUpdate(from, to, actor, next)
	return next, nil
}

// SetWeight stores an explicit value, floored at the configured
// minimum. Like UpdateWeight it requires a permitted transition and
// counts as an update.
func (s *Store) SetWeight(from, to string, actor domain.Actor, value float64) (float64, error) {
	if !s.graph.HasTransition(from, to) {
		return 0, domain.NewInvalidTransition(from, to)
	}
	now := s.now()

	var count uint64
	if e := s.lookup(from, to, actor); e != nil {
		count = e.updateCount
	}

	next := math.Max(value, s.cfg.MinWeight)
	s.put(from, to, actor, &entry{weight: next, lastUpdated: now, updateCount: count + 1})
	s.emitUpdate(from, to, actor, next)
	return next, nil
}

// Weight returns the lazily decayed value for a triple. Transitions
// absent from the graph read as 0 even when stale entries exist, and
// reads never mutate storage.
func (s *Store) Weight(from, to string, actor domain.Actor) float64 {
	if !s.graph.HasTransition(from, to) {
		return 0
	}
	e := s.lookup(from, to, actor)
	if e == nil {
		return 0
	}
	return s.decayed(e, s.now())
}

// EdgeWeight returns the decayed weight of a pair summed over all
// actors.
func (s *Store) EdgeWeight(from, to string) float64 {
	if !s.graph.HasTransition(from, to) {
		return 0
	}
	return s.predictive(from, to, "", s.now())
}

// WeightsFrom annotates every outgoing transition of a node with its
// base, predictive and combined weight, sorted by combined weight
// descending. Ties keep graph declaration order. An empty actor sums
// the predictive weight over all actors.
func (s *Store) WeightsFrom(nodeID string, actor domain.Actor) []domain.WeightedTransition {
	outs := s.graph.Transitions(nodeID)
	now := s.now()

	result := make([]domain.WeightedTransition, 0, len(outs))
	for _, t := range outs {
		pw := s.predictive(t.From, t.To, actor, now)
		result = append(result, domain.WeightedTransition{
			From:             t.From,
			To:               t.To,
			Actor:            t.Actor,
			BaseWeight:       t.BaseWeight,
			PredictiveWeight: pw,
			CombinedWeight:   t.BaseWeight + pw,
		})
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CombinedWeight > result[j].CombinedWeight
	})
	return result
}

// ApplyDecay is the explicit maintenance pass: every entry is
// rewritten with its decayed value and the pass timestamp, and entries
// falling under the floor are deleted. One decay notification carries
// the counts.
func (s *Store) ApplyDecay() DecayResult {
	now := s.now()
	var res DecayResult

	for key, actors := range s.entries {
		for actor, e := range actors {
			res.Scanned++
			raw := s.rawDecayed(e, now)
			if s.cfg.Algorithm != AlgorithmNone && raw < s.cfg.MinWeight {
				delete(actors, actor)
				res.Touched++
				res.Removed++
				continue
			}
			if raw != e.weight {
				res.Touched++
			}
			e.weight = raw
			e.lastUpdated = now
		}
		if len(actors) == 0 {
			delete(s.entries, key)
		}
	}

	s.emitDecay(res)
	return res
}

// Preload seeds weights from historical counts. Records for
// transitions the graph does not permit are skipped silently, so
// partially-stale seed data never fails a cold start. Returns the
// number of records applied.
func (s *Store) Preload(records []PreloadRecord) int {
	now := s.now()
	applied := 0

	for _, r := range records {
		if r.Count == 0 || !s.graph.HasTransition(r.From, r.To) {
			continue
		}
		actor := r.Actor
		if actor == "" {
			actor = domain.ActorUser
		}

		var current float64
		var count uint64
		if e := s.lookup(r.From, r.To, actor); e != nil {
			current = s.decayed(e, now)
			count = e.updateCount
		}
		s.put(r.From, r.To, actor, &entry{
			weight:      current + float64(r.Count),
			lastUpdated: now,
			updateCount: count + r.Count,
		})
		applied++
	}
	return applied
}

// Clear purges every entry.
func (s *Store) Clear() {
	s.entries = make(map[edgeKey]map[domain.Actor]*entry)
}

// ClearActor purges every entry attributed to one actor.
func (s *Store) ClearActor(actor domain.Actor) {
	for key, actors := range s.entries {
		delete(actors, actor)
		if len(actors) == 0 {
			delete(s.entries, key)
		}
	}
}

// EntryInfo is the bookkeeping attached to one weight entry.
type EntryInfo struct {
	LastUpdated time.Time
	UpdateCount uint64
}

// Info returns the bookkeeping for one triple, if an entry exists and
// the graph permits the transition.
func (s *Store) Info(from, to string, actor domain.Actor) (EntryInfo, bool) {
	if !s.graph.HasTransition(from, to) {
		return EntryInfo{}, false
	}
	e := s.lookup(from, to, actor)
	if e == nil {
		return EntryInfo{}, false
	}
	return EntryInfo{LastUpdated: e.lastUpdated, UpdateCount: e.updateCount}, true
}

// Len returns the number of live entries across all actors.
func (s *Store) Len() int {
	n := 0
	for _, actors := range s.entries {
		n += len(actors)
	}
	return n
}

// Export captures the full weight set as a portable snapshot. Stored
// values and timestamps are preserved as-is; restoring applies decay
// for the time elapsed since. Entries are sorted for stable output.
func (s *Store) Export(modelID string) *schema.Snapshot {
	snap := &schema.Snapshot{
		Version:    schema.Version,
		ExportedAt: s.now(),
		ModelID:    modelID,
		Decay: schema.DecayConfig{
			Algorithm:   string(s.cfg.Algorithm),
			DecayFactor: s.cfg.DecayFactor,
			HalfLife:    schema.Duration(s.cfg.HalfLife),
			MinWeight:   s.cfg.MinWeight,
		},
	}

	keys := make([]edgeKey, 0, len(s.entries))
	for key := range s.entries {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].from != keys[j].from {
			return keys[i].from < keys[j].from
		}
		return keys[i].to < keys[j].to
	})

	for _, key := range keys {
		actors := s.entries[key]
		names := make([]string, 0, len(actors))
		for actor := range actors {
			names = append(names, string(actor))
		}
		sort.Strings(names)

		for _, name := range names {
			actor := domain.Actor(name)
			e := actors[actor]
			snap.Weights = append(snap.Weights, schema.WeightEntry{
				From:        key.from,
				To:          key.to,
				Actor:       actor,
				Weight:      e.weight,
				LastUpdated: e.lastUpdated,
				UpdateCount: e.updateCount,
			})
		}
	}
	return snap
}

// Import fully replaces the current state with the snapshot's entries,
// equivalent to Clear followed by a bulk insert. A snapshot written
// under a different schema version fails with ModelMismatch and leaves
// the store untouched. Entries for transitions the current graph does
// not permit are inserted anyway; reads filter them and decay passes
// eventually prune them.
func (s *Store) Import(snap *schema.Snapshot) error {
	if snap == nil {
		return domain.NewImportFailed("nil snapshot", nil)
	}
	if snap.Version != schema.Version {
		return domain.NewModelMismatch(snap.Version, schema.Version)
	}
	if err := schema.Validate(snap); err != nil {
		return domain.NewImportFailed("invalid snapshot", err)
	}

	entries := make(map[edgeKey]map[domain.Actor]*entry, len(snap.Weights))
	for _, w := range snap.Weights {
		actor := w.Actor
		if actor == "" {
			actor = domain.ActorUser
		}
		key := edgeKey{from: w.From, to: w.To}
		if entries[key] == nil {
			entries[key] = make(map[domain.Actor]*entry)
		}
		entries[key][actor] = &entry{
			weight:      w.Weight,
			lastUpdated: w.LastUpdated,
			updateCount: w.UpdateCount,
		}
	}

	s.entries = entries
	return nil
}

func (s *Store) lookup(from, to string, actor domain.Actor) *entry {
	return s.entries[edgeKey{from: from, to: to}][actor]
}

func (s *Store) put(from, to string, actor domain.Actor, e *entry) {
	key := edgeKey{from: from, to: to}
	if s.entries[key] == nil {
		s.entries[key] = make(map[domain.Actor]*entry)
	}
	s.entries[key][actor] = e
}

// predictive returns the decayed weight of a pair for one actor, or
// summed over all actors when actor is empty. Missing entries
// contribute 0; the floor only applies to entries that exist.
func (s *Store) predictive(from, to string, actor domain.Actor, now time.Time) float64 {
	actors := s.entries[edgeKey{from: from, to: to}]
	if len(actors) == 0 {
		return 0
	}
	if actor != "" {
		e := actors[actor]
		if e == nil {
			return 0
		}
		return s.decayed(e, now)
	}
	total := 0.0
	for _, e := range actors {
		total += s.decayed(e, now)
	}
	return total
}

// rawDecayed computes the unfloored decayed value.
func (s *Store) rawDecayed(e *entry, now time.Time) float64 {
	elapsed := now.Sub(e.lastUpdated)
	if elapsed <= 0 {
		return e.weight
	}
	switch s.cfg.Algorithm {
	case AlgorithmHalfLife:
		return e.weight * math.Pow(0.5, float64(elapsed)/float64(s.cfg.HalfLife))
	case AlgorithmEWMA:
		steps := int(elapsed.Hours())
		if steps == 0 {
			return e.weight
		}
		return e.weight * math.Pow(s.cfg.DecayFactor, float64(steps))
	case AlgorithmLinear:
		return e.weight - linearRatePerHour*elapsed.Hours()
	default:
		return e.weight
	}
}

// decayed floors the raw value for live entries. Under AlgorithmNone
// the stored weight is returned untouched.
func (s *Store) decayed(e *entry, now time.Time) float64 {
	raw := s.rawDecayed(e, now)
	if s.cfg.Algorithm == AlgorithmNone {
		return raw
	}
	return math.Max(raw, s.cfg.MinWeight)
}

func (s *Store) emitUpdate(from, to string, actor domain.Actor, weight float64) {
	for _, fn := range s.onUpdate {
		fn(from, to, actor, weight)
	}
}

func (s *Store) emitDecay(res DecayResult) {
	for _, fn := range s.onDecay {
		fn(res)
	}
}

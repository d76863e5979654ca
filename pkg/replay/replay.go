package replay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/aretw0/cairn"
	"github.com/aretw0/cairn/internal/logging"
	"github.com/aretw0/cairn/pkg/domain"
)

// DefaultTopK is the candidate window a prediction must place the
// actual destination in to count as a hit.
const DefaultTopK = 3

// Replayer drives an engine through an ordered event log.
type Replayer struct {
	engine *cairn.Engine
	topK   int
	actor  domain.Actor
	logger *slog.Logger
}

// Option configures a Replayer.
type Option func(*Replayer)

// WithTopK sets the hit window size. Values below one are ignored.
func WithTopK(k int) Option {
	return func(r *Replayer) {
		if k > 0 {
			r.topK = k
		}
	}
}

// WithActor scores and records every event under one actor, overriding
// whatever actor each log row carries.
func WithActor(actor domain.Actor) Option {
	return func(r *Replayer) {
		r.actor = actor
	}
}

// WithLogger sets the structured logger. The default discards.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Replayer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a Replayer around the engine.
func New(engine *cairn.Engine, opts ...Option) *Replayer {
	r := &Replayer{
		engine: engine,
		topK:   DefaultTopK,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run feeds the events through the engine in order and returns the
// accuracy report.
//
// Rows that are not scoreable transitions (wrong event type, missing
// endpoints, unknown actor) are counted as skipped; rows naming a pair
// the graph refuses are counted as rejected. Both keep the run going.
// Run stops early only on context cancellation or an engine failure
// that is not a graph refusal. A row without a type is treated as a
// transition, so hand-written logs only need "from" and "to".
func (r *Replayer) Run(ctx context.Context, events []domain.ActionEvent) (*Report, error) {
	report := &Report{TopK: r.topK}
	perNode := make(map[string]*NodeReport)

	for i, ev := range events {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		report.Events++

		if ev.Type != "" && ev.Type != domain.EventTransition {
			report.Skipped++
			continue
		}
		if ev.From == "" || ev.To == "" {
			report.Skipped++
			continue
		}
		actor := r.actor
		if actor == "" {
			actor = ev.Actor
		}
		if actor == "" {
			actor = domain.ActorUser
		}
		if !actor.Valid() {
			r.logger.Debug("skipping row with unknown actor",
				"index", i, "actor", string(actor))
			report.Skipped++
			continue
		}

		// Score with the weights as they stood before this event.
		warm := r.engine.WarmupComplete()
		candidates := r.engine.PredictNext(ev.From, domain.PredictContext{
			Actor: actor,
			Count: r.topK,
		})
		hit := false
		for _, c := range candidates {
			if c == ev.To {
				hit = true
				break
			}
		}

		err := r.engine.RecordTransition(ctx, ev.From, ev.To, domain.RecordContext{
			Actor:     actor,
			SessionID: ev.SessionID,
			Metadata:  ev.Metadata,
		})
		if err != nil {
			if errors.Is(err, domain.ErrInvalidTransition) {
				r.logger.Debug("log names a pair outside the graph",
					"index", i, "from", ev.From, "to", ev.To)
				report.Rejected++
				continue
			}
			return nil, fmt.Errorf("record event %d: %w", i, err)
		}

		if !warm {
			report.Warmup++
			continue
		}
		report.Scored++
		node := perNode[ev.From]
		if node == nil {
			node = &NodeReport{Node: ev.From}
			perNode[ev.From] = node
		}
		node.Scored++
		if hit {
			report.Hits++
			node.Hits++
		}
	}

	if report.Scored > 0 {
		report.HitRate = float64(report.Hits) / float64(report.Scored)
	}
	report.Nodes = make([]NodeReport, 0, len(perNode))
	for _, n := range perNode {
		if n.Scored > 0 {
			n.HitRate = float64(n.Hits) / float64(n.Scored)
		}
		report.Nodes = append(report.Nodes, *n)
	}
	sort.Slice(report.Nodes, func(i, j int) bool {
		a, b := report.Nodes[i], report.Nodes[j]
		if a.Scored != b.Scored {
			return a.Scored > b.Scored
		}
		return a.Node < b.Node
	})

	r.logger.Info("replay finished",
		"events", report.Events,
		"scored", report.Scored,
		"hits", report.Hits,
		"rejected", report.Rejected)
	return report, nil
}

// ReadLog decodes a JSONL event log. Whitespace between rows is
// tolerated, as are pretty-printed multi-line objects.
func ReadLog(rd io.Reader) ([]domain.ActionEvent, error) {
	dec := json.NewDecoder(rd)
	var events []domain.ActionEvent
	for {
		var ev domain.ActionEvent
		if err := dec.Decode(&ev); err != nil {
			if errors.Is(err, io.EOF) {
				return events, nil
			}
			return nil, fmt.Errorf("event %d: %w", len(events)+1, err)
		}
		events = append(events, ev)
	}
}

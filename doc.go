/*
Package cairn is an adaptive prediction engine for workflow graphs: it learns from observed
transitions between workflow states and predicts the most likely next actions.

It separates the immutable rule set (the transition graph) from the learned behavior (a
decaying weight overlay), so the same workflow definition can serve many users or tenants,
each with their own learned patterns.

# Concept

Cairn treats a workflow as a directed graph of nodes. The graph says what is allowed; the
engine observes what actually happens. Every recorded transition reinforces its edge, and
weights decay over time so the engine tracks current habits instead of accumulated history.
Predictions rank the outgoing edges of a node by declared weight plus learned weight, and
the analysis passes read the same data to surface loops, bottlenecks and automation
candidates.

# Key Features

  - Validated Learning: only transitions the graph declares can be recorded; everything
    else is rejected before any state changes.
  - Lazy Decay: weights decay on read, not on a timer. An idle engine does no work.
  - Session Tracking: per-actor sessions with idle timeout, history chains and
    truncation strategies.
  - Pluggable Persistence: snapshot and event stores are small interfaces with
    in-memory, file and Redis adapters included.
  - Observability: typed notification channels for transitions, predictions, weight
    updates, decay, sessions, detected patterns and errors.

# Usage

Declare the graph, record what happens, ask what comes next.

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/aretw0/cairn"
		"github.com/aretw0/cairn/pkg/domain"
	)

	func main() {
		eng, err := cairn.New(cairn.WithTransitions(
			domain.Transition{From: "inbox", To: "triage"},
			domain.Transition{From: "triage", To: "reply"},
			domain.Transition{From: "triage", To: "archive"},
		))
		if err != nil {
			log.Fatal(err)
		}

		ctx := context.Background()
		for i := 0; i < 3; i++ {
			if err := eng.RecordTransition(ctx, "triage", "archive", domain.RecordContext{}); err != nil {
				log.Fatal(err)
			}
		}

		// The learned habit ranks first.
		fmt.Println(eng.PredictNext("triage", domain.PredictContext{}))
	}

For shared multi-tenant deployments, build one graph with the graph package and pass it to
several engines via WithGraph; the graph is immutable and safe to share, while each engine
keeps its own weights and sessions.
*/
package cairn

package runtime

import (
	"time"

	"github.com/aretw0/cairn/pkg/analyzer"
	"github.com/aretw0/cairn/pkg/domain"
)

// Analysis passthroughs. The analyzer itself is lock-free, so the
// engine runs it under its own mutex to keep analysis reads from
// interleaving with weight writes, then emits pattern notifications
// once the mutex is released.

// StronglyConnectedComponents returns the graph's SCCs.
func (e *Engine) StronglyConnectedComponents() []analyzer.SCC {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.an.StronglyConnectedComponents()
}

// Loops returns every multi-node SCC classified against the current
// weights.
func (e *Engine) Loops() []analyzer.Loop {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.an.FindLoops()
}

// Bottlenecks returns nodes whose incoming traffic piles up against
// their outgoing capacity.
func (e *Engine) Bottlenecks() []analyzer.Bottleneck {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.an.FindBottlenecks()
}

// ClassifyEdges labels every transition from a DFS walk (tree, back,
// forward, cross). Back edges indicate cycles.
func (e *Engine) ClassifyEdges() []analyzer.ClassifiedEdge {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.an.ClassifyEdges()
}

// AutomationCandidates returns repeated sequences worth automating and
// emits one pattern notification per candidate.
func (e *Engine) AutomationCandidates() []analyzer.Opportunity {
	e.mu.Lock()
	opps := e.an.FindAutomationCandidates()
	now := e.now()
	e.mu.Unlock()

	e.emitPatterns(opps, now)
	return opps
}

// AnalysisSummary aggregates the full analysis: SCCs, loops,
// bottlenecks, automation candidates and the top patterns. The
// summary's top patterns emit pattern notifications, same as
// AutomationCandidates does for the full list.
func (e *Engine) AnalysisSummary() analyzer.Summary {
	e.mu.Lock()
	sum := e.an.Summary()
	now := e.now()
	e.mu.Unlock()

	e.emitPatterns(sum.TopPatterns, now)
	return sum
}

func (e *Engine) emitPatterns(opps []analyzer.Opportunity, now time.Time) {
	for _, o := range opps {
		emit(e.logger, &e.patternSubs, domain.PatternEvent{
			Kind:         o.Kind,
			Nodes:        o.Nodes,
			AvgFrequency: o.AvgFrequency,
			Confidence:   o.Confidence,
			Timestamp:    now,
		})
	}
}

package analyzer

import (
	"sort"

	"github.com/aretw0/cairn/pkg/domain"
)

// Frequency grades. A sequence repeating over 20 times on average can
// run on a schedule; over 10, on a trigger. The scheduled grade also
// anchors the confidence scale.
const (
	scheduledThreshold = 20
	triggeredThreshold = 10
)

// Opportunity is a repeated multi-node sequence worth automating.
type Opportunity struct {
	// Kind grades the candidate: scheduled runs on its own cadence,
	// triggered reacts to a condition, robotic needs a human to
	// confirm each round.
	Kind         domain.PatternKind `json:"kind"`
	Nodes        []string           `json:"nodes"`
	AvgFrequency float64            `json:"avg_frequency"`
	Confidence   float64            `json:"confidence"`
}

// FindAutomationCandidates inspects every SCC inside the configured
// size range. Components whose average intra-edge weight reaches the
// repetition threshold become opportunities, graded by how often they
// repeat; each one is also delivered to the registered pattern hooks.
// Results are sorted by frequency descending.
func (a *Analyzer) FindAutomationCandidates() []Opportunity {
	var result []Opportunity

	for _, scc := range a.StronglyConnectedComponents() {
		size := len(scc.Nodes)
		if size < a.cfg.MinPatternSize || size > a.cfg.MaxPatternSize {
			continue
		}

		avg := a.avgIntraWeight(scc)
		if avg < a.cfg.MinRepetitions {
			continue
		}

		kind := domain.PatternRobotic
		switch {
		case avg > scheduledThreshold:
			kind = domain.PatternScheduled
		case avg > triggeredThreshold:
			kind = domain.PatternTriggered
		}

		op := Opportunity{
			Kind:         kind,
			Nodes:        scc.Nodes,
			AvgFrequency: avg,
			Confidence:   min(avg/scheduledThreshold, 1),
		}
		result = append(result, op)

		a.emitPattern(domain.PatternEvent{
			Kind:         op.Kind,
			Nodes:        op.Nodes,
			AvgFrequency: op.AvgFrequency,
			Confidence:   op.Confidence,
			Timestamp:    a.now(),
		})
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].AvgFrequency > result[j].AvgFrequency
	})
	return result
}

// avgIntraWeight averages the predictive weight over the component's
// internal edges.
func (a *Analyzer) avgIntraWeight(scc SCC) float64 {
	members := make(map[string]bool, len(scc.Nodes))
	for _, n := range scc.Nodes {
		members[n] = true
	}

	var total float64
	edges := 0
	for _, n := range scc.Nodes {
		for _, e := range a.graph.Transitions(n) {
			if members[e.To] {
				total += a.edgeWeight(e.From, e.To)
				edges++
			}
		}
	}
	if edges == 0 {
		return 0
	}
	return total / float64(edges)
}

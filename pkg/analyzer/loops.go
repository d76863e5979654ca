package analyzer

import "github.com/aretw0/cairn/pkg/domain"

// Loop is a multi-node SCC with its weight profile and classification
// flags. A loop can carry several classifications at once.
type Loop struct {
	SCC SCC `json:"scc"`

	// IntraWeight sums predictive weight over edges inside the loop,
	// InterWeight over edges leaving it.
	IntraWeight float64 `json:"intra_weight"`
	InterWeight float64 `json:"inter_weight"`
	// AvgWeight is IntraWeight divided by the number of intra edges.
	AvgWeight float64 `json:"avg_weight"`

	// Hot: the loop is traversed often (AvgWeight at or above the
	// hot threshold).
	Hot bool `json:"hot"`
	// Infinite: no edge leaves the component.
	Infinite bool `json:"infinite"`
	// Unproductive: looping back outweighs moving forward by more
	// than the configured ratio.
	Unproductive bool `json:"unproductive"`
	// Hierarchical: the node set is a strict subset of another
	// component's node set.
	Hierarchical bool `json:"hierarchical"`
	// Automatable: driven by the system actor, or by the user actor
	// heavily enough to script.
	Automatable bool `json:"automatable"`
}

// FindLoops classifies every SCC with at least two nodes.
func (a *Analyzer) FindLoops() []Loop {
	sccs := a.StronglyConnectedComponents()

	var loops []Loop
	for _, scc := range sccs {
		if len(scc.Nodes) < 2 {
			continue
		}
		loops = append(loops, a.classifyLoop(scc, sccs))
	}
	return loops
}

// FindInfiniteLoops returns only the loops with no way out.
func (a *Analyzer) FindInfiniteLoops() []Loop {
	var out []Loop
	for _, l := range a.FindLoops() {
		if l.Infinite {
			out = append(out, l)
		}
	}
	return out
}

// FindHotLoops returns only the loops traversed often.
func (a *Analyzer) FindHotLoops() []Loop {
	var out []Loop
	for _, l := range a.FindLoops() {
		if l.Hot {
			out = append(out, l)
		}
	}
	return out
}

func (a *Analyzer) classifyLoop(scc SCC, all []SCC) Loop {
	members := make(map[string]bool, len(scc.Nodes))
	for _, n := range scc.Nodes {
		members[n] = true
	}

	var intra, inter float64
	var systemIntra, userIntra float64
	intraEdges := 0
	for _, n := range scc.Nodes {
		for _, e := range a.graph.Transitions(n) {
			if members[e.To] {
				intra += a.edgeWeight(e.From, e.To)
				systemIntra += a.actorWeight(e.From, e.To, domain.ActorSystem)
				userIntra += a.actorWeight(e.From, e.To, domain.ActorUser)
				intraEdges++
			} else {
				inter += a.edgeWeight(e.From, e.To)
			}
		}
	}

	avg := 0.0
	if intraEdges > 0 {
		avg = intra / float64(intraEdges)
	}

	return Loop{
		SCC:          scc,
		IntraWeight:  intra,
		InterWeight:  inter,
		AvgWeight:    avg,
		Hot:          avg >= a.cfg.HotLoopThreshold,
		Infinite:     len(scc.ExitPoints) == 0,
		Unproductive: intra > a.cfg.UnproductiveRatio*inter,
		Hierarchical: a.isStrictSubset(scc, all),
		Automatable:  systemIntra > 0 || userIntra > a.cfg.AutomationUserThreshold,
	}
}

// isStrictSubset reports whether another component strictly contains
// this one's node set. Maximal SCCs from a single pass are disjoint,
// so this only fires when callers compare components from different
// analyses (for example before and after a graph reload).
func (a *Analyzer) isStrictSubset(scc SCC, all []SCC) bool {
	for _, other := range all {
		if other.ID == scc.ID || len(other.Nodes) <= len(scc.Nodes) {
			continue
		}
		contained := true
		for _, n := range scc.Nodes {
			if !other.Contains(n) {
				contained = false
				break
			}
		}
		if contained {
			return true
		}
	}
	return false
}

package analyzer

// Summary aggregates one full analysis pass.
type Summary struct {
	SCCs          int     `json:"sccs"`
	Loops         int     `json:"loops"`
	Bottlenecks   int     `json:"bottlenecks"`
	Opportunities int     `json:"opportunities"`
	AvgOutDegree  float64 `json:"avg_out_degree"`
	// TopPatterns holds at most the five highest-frequency automation
	// candidates.
	TopPatterns []Opportunity `json:"top_patterns"`
}

// Summary runs every detector once and aggregates the counts.
func (a *Analyzer) Summary() Summary {
	sccs := a.StronglyConnectedComponents()
	loops := a.FindLoops()
	bottlenecks := a.FindBottlenecks()
	opportunities := a.FindAutomationCandidates()

	ids := a.graph.NodeIDs()
	totalOut := 0
	for _, id := range ids {
		totalOut += len(a.graph.Transitions(id))
	}
	avgOut := 0.0
	if len(ids) > 0 {
		avgOut = float64(totalOut) / float64(len(ids))
	}

	top := opportunities
	if len(top) > 5 {
		top = top[:5]
	}

	return Summary{
		SCCs:          len(sccs),
		Loops:         len(loops),
		Bottlenecks:   len(bottlenecks),
		Opportunities: len(opportunities),
		AvgOutDegree:  avgOut,
		TopPatterns:   top,
	}
}

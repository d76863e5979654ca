package analyzer

import "sort"

// Bottleneck is a node where traffic piles up: plenty flows in, far
// less flows out.
type Bottleneck struct {
	Node            string  `json:"node"`
	IncomingTraffic float64 `json:"incoming_traffic"`
	OutgoingTraffic float64 `json:"outgoing_traffic"`
	CongestionScore float64 `json:"congestion_score"`
}

// FindBottlenecks sums the predictive weight in and out of every node.
// A node qualifies when incoming traffic reaches the traffic threshold
// and the congestion score (incoming over outgoing, or the incoming
// total itself when nothing flows out) exceeds the configured ratio.
// Results are sorted by congestion score descending.
func (a *Analyzer) FindBottlenecks() []Bottleneck {
	var result []Bottleneck

	for _, id := range a.graph.NodeIDs() {
		var in, out float64
		for _, e := range a.graph.TransitionsTo(id) {
			in += a.edgeWeight(e.From, e.To)
		}
		for _, e := range a.graph.Transitions(id) {
			out += a.edgeWeight(e.From, e.To)
		}

		score := in
		if out > 0 {
			score = in / out
		}

		if in >= a.cfg.TrafficThreshold && score > a.cfg.CongestionRatio {
			result = append(result, Bottleneck{
				Node:            id,
				IncomingTraffic: in,
				OutgoingTraffic: out,
				CongestionScore: score,
			})
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CongestionScore > result[j].CongestionScore
	})
	return result
}

package domain

// ConfidenceFactors breaks a candidate's confidence into its inputs.
// Every factor is normalized to 0..1 against a fixed scale.
type ConfidenceFactors struct {
	// Frequency reflects how often this transition has been recorded.
	Frequency float64 `json:"frequency"`
	// Recency reflects how recently the transition's weight was updated.
	Recency float64 `json:"recency"`
	// Engagement comes from the activity tracker; 0.5 when none is set.
	Engagement float64 `json:"engagement"`
	// SampleSize reflects total recorded transitions against the warmup
	// threshold.
	SampleSize float64 `json:"sample_size"`
}

// Candidate is one ranked "next action" suggestion. Confidence is the
// learned share of the score (predictive/combined, capped at 1, zero
// when the combined weight is zero).
type Candidate struct {
	To               string            `json:"to"`
	Score            float64           `json:"score"`
	BaseWeight       float64           `json:"base_weight"`
	PredictiveWeight float64           `json:"predictive_weight"`
	Confidence       float64           `json:"confidence"`
	Factors          ConfidenceFactors `json:"factors"`
}

// Prediction is the detailed result of a predictNext call.
type Prediction struct {
	Node            string      `json:"node"`
	Candidates      []Candidate `json:"candidates"`
	WarmupComplete  bool        `json:"warmup_complete"`
	TransitionCount uint64      `json:"transition_count"`
}

// Targets returns just the destination IDs in ranked order.
func (p *Prediction) Targets() []string {
	out := make([]string, len(p.Candidates))
	for i, c := range p.Candidates {
		out[i] = c.To
	}
	return out
}

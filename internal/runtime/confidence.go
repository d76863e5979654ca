package runtime

import (
	"time"

	"github.com/aretw0/cairn/pkg/domain"
)

// Fixed normalization scales for the confidence factors.
const (
	// frequencyScale is the update count at which the frequency factor
	// saturates.
	frequencyScale = 20.0
	// recencyWindow is the age at which a weight update stops counting
	// as recent. Falls off linearly from 1 to 0 across the window.
	recencyWindow = 24 * time.Hour
)

// candidateLocked turns one ranked transition into a prediction
// candidate. Confidence is the learned share of the combined score;
// the factors break down where that learning came from. Caller holds
// the mutex.
func (e *Engine) candidateLocked(wt domain.WeightedTransition, actor domain.Actor, now time.Time, total uint64) domain.Candidate {
	c := domain.Candidate{
		To:               wt.To,
		Score:            wt.CombinedWeight,
		BaseWeight:       wt.BaseWeight,
		PredictiveWeight: wt.PredictiveWeight,
	}
	if wt.CombinedWeight > 0 {
		c.Confidence = min(1, wt.PredictiveWeight/wt.CombinedWeight)
	}

	f := domain.ConfidenceFactors{Engagement: 0.5}
	if info, ok := e.store.Info(wt.From, wt.To, actor); ok {
		f.Frequency = min(1, float64(info.UpdateCount)/frequencyScale)
		f.Recency = clamp01(1 - float64(now.Sub(info.LastUpdated))/float64(recencyWindow))
	}
	if e.tracker != nil {
		if v, ok := e.tracker.Engagement(actor, wt.From, wt.To); ok {
			f.Engagement = clamp01(v)
		}
	}
	if e.warmupThreshold > 0 {
		f.SampleSize = min(1, float64(total)/float64(e.warmupThreshold))
	}
	c.Factors = f
	return c
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

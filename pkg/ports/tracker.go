package ports

import "github.com/aretw0/cairn/pkg/domain"

// ActivityTracker supplies the engagement factor for prediction
// confidence. Implementations observe user activity out of band (input
// cadence, focus changes, whatever the host application can see) and
// distill it to a 0..1 score.
//
// Engagement is called on the prediction hot path while the engine
// holds its lock, so implementations must be fast and must not call
// back into the engine. The second return is false when the tracker
// has no signal for the pair yet; the engine then falls back to a
// neutral 0.5.
type ActivityTracker interface {
	Engagement(actor domain.Actor, from, to string) (float64, bool)

	// State names the tracker's current activity level, for logging
	// and diagnostics. Free-form, e.g. "active", "idle".
	State() string
}

package schema

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/aretw0/cairn/pkg/domain"
)

// Version is the current snapshot format version. Decoding accepts
// snapshots up to and including this version.
const Version = 1

// Snapshot is the portable export of learned weight state.
type Snapshot struct {
	// Version of the snapshot format, not of the data inside.
	Version int `json:"version"`
	// ExportedAt records when the weights were captured. Restoring
	// applies decay for the time elapsed since.
	ExportedAt time.Time `json:"exported_at"`
	// ModelID fingerprints the graph the weights were learned on.
	ModelID string `json:"model_id,omitempty"`
	// Decay is the configuration the weights were maintained under.
	Decay DecayConfig `json:"decay_config"`
	// Weights holds one entry per (from, to, actor) triple.
	Weights []WeightEntry `json:"weights"`
	// Encrypted holds the sealed payload when the snapshot was written
	// through the encryption middleware. The visible fields above form
	// the envelope; all learning state lives inside.
	Encrypted string `json:"encrypted,omitempty"`
}

// WeightEntry is a single learned weight.
type WeightEntry struct {
	From        string       `json:"from"`
	To          string       `json:"to"`
	Actor       domain.Actor `json:"actor"`
	Weight      float64      `json:"weight"`
	LastUpdated time.Time    `json:"last_updated"`
	UpdateCount uint64       `json:"update_count"`
}

// DecayConfig mirrors the weight store configuration inside a
// snapshot, with the half-life as a human-readable duration.
type DecayConfig struct {
	Algorithm   string   `json:"algorithm"`
	DecayFactor float64  `json:"decay_factor"`
	HalfLife    Duration `json:"half_life"`
	MinWeight   float64  `json:"min_weight"`
}

// Duration wraps time.Duration so snapshots carry "24h0m0s" instead of
// raw nanosecond counts.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value, err)
		}
		*d = Duration(parsed)
		return nil
	case float64:
		// Tolerate raw nanoseconds from hand-written snapshots.
		*d = Duration(time.Duration(value))
		return nil
	default:
		return fmt.Errorf("invalid duration: expected string, got %T", v)
	}
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

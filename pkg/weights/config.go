package weights

import (
	"fmt"
	"time"
)

// Algorithm selects how stored weights lose value over time.
type Algorithm string

const (
	// AlgorithmHalfLife halves a weight every HalfLife, continuously.
	AlgorithmHalfLife Algorithm = "halflife"
	// AlgorithmEWMA multiplies by DecayFactor once per full elapsed hour.
	AlgorithmEWMA Algorithm = "ewma"
	// AlgorithmLinear subtracts a fixed amount per elapsed hour.
	AlgorithmLinear Algorithm = "linear"
	// AlgorithmNone disables decay entirely.
	AlgorithmNone Algorithm = "none"
)

// Valid reports whether the algorithm is one of the known modes.
func (a Algorithm) Valid() bool {
	switch a {
	case AlgorithmHalfLife, AlgorithmEWMA, AlgorithmLinear, AlgorithmNone:
		return true
	}
	return false
}

// Default tuning. Chosen for daily-rhythm workloads: yesterday's
// habits count half as much as today's.
const (
	DefaultDecayFactor = 0.9
	DefaultHalfLife    = 24 * time.Hour
	DefaultMinWeight   = 0.001
	// linearRatePerHour is the fixed hourly loss under AlgorithmLinear.
	linearRatePerHour = 0.001
)

// Config tunes the decay behaviour of a Store.
type Config struct {
	// Algorithm selects the decay mode. Defaults to halflife.
	Algorithm Algorithm `json:"algorithm" yaml:"algorithm" mapstructure:"algorithm"`
	// DecayFactor is the per-hour multiplier under ewma.
	DecayFactor float64 `json:"decay_factor" yaml:"decay_factor" mapstructure:"decay_factor"`
	// HalfLife is the time for a weight to halve under halflife.
	HalfLife time.Duration `json:"half_life" yaml:"half_life" mapstructure:"half_life"`
	// MinWeight is the prune floor. Reads of live entries never
	// return less; maintenance passes delete entries that fall under.
	MinWeight float64 `json:"min_weight" yaml:"min_weight" mapstructure:"min_weight"`
}

// DefaultConfig returns the standard tuning.
func DefaultConfig() Config {
	return Config{
		Algorithm:   AlgorithmHalfLife,
		DecayFactor: DefaultDecayFactor,
		HalfLife:    DefaultHalfLife,
		MinWeight:   DefaultMinWeight,
	}
}

// Validate rejects configurations the decay math cannot work with.
func (c Config) Validate() error {
	if c.Algorithm != "" && !c.Algorithm.Valid() {
		return fmt.Errorf("weights: unknown decay algorithm %q", c.Algorithm)
	}
	if c.DecayFactor < 0 || c.DecayFactor > 1 {
		return fmt.Errorf("weights: decay factor %v outside [0, 1]", c.DecayFactor)
	}
	if c.HalfLife < 0 {
		return fmt.Errorf("weights: negative half-life %v", c.HalfLife)
	}
	if c.MinWeight < 0 {
		return fmt.Errorf("weights: negative min weight %v", c.MinWeight)
	}
	return nil
}

// withDefaults fills zero values with the standard tuning.
func (c Config) withDefaults() Config {
	if c.Algorithm == "" {
		c.Algorithm = AlgorithmHalfLife
	}
	if c.DecayFactor == 0 {
		c.DecayFactor = DefaultDecayFactor
	}
	if c.HalfLife == 0 {
		c.HalfLife = DefaultHalfLife
	}
	if c.MinWeight == 0 {
		c.MinWeight = DefaultMinWeight
	}
	return c
}

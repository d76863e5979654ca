package analyzer

// Config tunes the pattern detectors. Zero values take defaults.
type Config struct {
	// HotLoopThreshold is the average intra-loop weight that marks a
	// loop as hot.
	HotLoopThreshold float64 `json:"hot_loop_threshold" yaml:"hot_loop_threshold" mapstructure:"hot_loop_threshold"`
	// UnproductiveRatio marks a loop unproductive when loop-back
	// weight exceeds forward weight by more than this factor.
	UnproductiveRatio float64 `json:"unproductive_ratio" yaml:"unproductive_ratio" mapstructure:"unproductive_ratio"`
	// AutomationUserThreshold is the user-actor intra-loop weight
	// above which a loop counts as automatable.
	AutomationUserThreshold float64 `json:"automation_user_threshold" yaml:"automation_user_threshold" mapstructure:"automation_user_threshold"`
	// TrafficThreshold is the minimum incoming traffic for a node to
	// qualify as a bottleneck.
	TrafficThreshold float64 `json:"traffic_threshold" yaml:"traffic_threshold" mapstructure:"traffic_threshold"`
	// CongestionRatio is the incoming/outgoing ratio a bottleneck
	// must exceed.
	CongestionRatio float64 `json:"congestion_ratio" yaml:"congestion_ratio" mapstructure:"congestion_ratio"`
	// MinPatternSize and MaxPatternSize bound the component sizes
	// considered for automation.
	MinPatternSize int `json:"min_pattern_size" yaml:"min_pattern_size" mapstructure:"min_pattern_size"`
	MaxPatternSize int `json:"max_pattern_size" yaml:"max_pattern_size" mapstructure:"max_pattern_size"`
	// MinRepetitions is the average frequency a component must reach
	// to count as an automation candidate.
	MinRepetitions float64 `json:"min_repetitions" yaml:"min_repetitions" mapstructure:"min_repetitions"`
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		HotLoopThreshold:        5,
		UnproductiveRatio:       3,
		AutomationUserThreshold: 10,
		TrafficThreshold:        10,
		CongestionRatio:         2,
		MinPatternSize:          2,
		MaxPatternSize:          10,
		MinRepetitions:          5,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.HotLoopThreshold == 0 {
		c.HotLoopThreshold = def.HotLoopThreshold
	}
	if c.UnproductiveRatio == 0 {
		c.UnproductiveRatio = def.UnproductiveRatio
	}
	if c.AutomationUserThreshold == 0 {
		c.AutomationUserThreshold = def.AutomationUserThreshold
	}
	if c.TrafficThreshold == 0 {
		c.TrafficThreshold = def.TrafficThreshold
	}
	if c.CongestionRatio == 0 {
		c.CongestionRatio = def.CongestionRatio
	}
	if c.MinPatternSize == 0 {
		c.MinPatternSize = def.MinPatternSize
	}
	if c.MaxPatternSize == 0 {
		c.MaxPatternSize = def.MaxPatternSize
	}
	if c.MinRepetitions == 0 {
		c.MinRepetitions = def.MinRepetitions
	}
	return c
}

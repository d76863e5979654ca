package domain

// Actor identifies who performs a transition.
type Actor string

const (
	ActorUser       Actor = "user"
	ActorSystem     Actor = "system"
	ActorAutomation Actor = "automation"
)

// Actors lists every known actor in declaration order.
func Actors() []Actor {
	return []Actor{ActorUser, ActorSystem, ActorAutomation}
}

// Valid reports whether the actor is one of the known values.
func (a Actor) Valid() bool {
	switch a {
	case ActorUser, ActorSystem, ActorAutomation:
		return true
	}
	return false
}

// MetaGuard is the metadata key holding a transition's guard expression.
// Guards are stored and syntax-checked only; the engine never evaluates them.
const MetaGuard = "guard"

// Transition is a directed, authored rule from one node to another.
// Identity is the (From, To) pair: a graph holds at most one transition
// per directed pair, and the actor is an attribute of that rule.
type Transition struct {
	From       string         `json:"from" yaml:"from"`
	To         string         `json:"to" yaml:"to"`
	BaseWeight float64        `json:"base_weight,omitempty" yaml:"weight,omitempty"`
	Actor      Actor          `json:"actor,omitempty" yaml:"actor,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Guard returns the stored guard expression, if any.
func (t Transition) Guard() string {
	if t.Metadata == nil {
		return ""
	}
	g, _ := t.Metadata[MetaGuard].(string)
	return g
}

// Key returns the canonical "from->to" identity of the transition.
func (t Transition) Key() string {
	return TransitionKey(t.From, t.To)
}

// TransitionKey builds the canonical identity string for a directed pair.
func TransitionKey(from, to string) string {
	return from + "->" + to
}

// WeightedTransition is an outgoing transition annotated with the
// adaptive overlay: the authored base weight, the learned (decayed)
// predictive weight, and their sum used for ranking.
type WeightedTransition struct {
	From             string  `json:"from"`
	To               string  `json:"to"`
	Actor            Actor   `json:"actor"`
	BaseWeight       float64 `json:"base_weight"`
	PredictiveWeight float64 `json:"predictive_weight"`
	CombinedWeight   float64 `json:"combined_weight"`
}

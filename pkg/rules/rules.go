// Package rules runs named validation rules against a graph, beyond
// what construction-time validation covers. A registry ships with
// built-in rules for guard syntax and reachability; callers register
// their own for project conventions.
package rules

import (
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/cairn/internal/validator"
	"github.com/aretw0/cairn/pkg/graph"
)

// Built-in rule names.
const (
	RuleGuardSyntax  = "guard-syntax"
	RuleReachability = "reachability"
)

// Finding codes produced by the built-in rules.
const (
	FindingBadGuard    = "bad_guard"
	FindingUnreachable = "unreachable"
)

// Func checks one property of a graph and returns findings.
type Func func(g *graph.Graph) []graph.Finding

// Registry manages named rules. Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	rules map[string]Func
}

// NewRegistry creates a registry preloaded with the built-in rules.
func NewRegistry() *Registry {
	r := &Registry{rules: make(map[string]Func)}
	r.Register(RuleGuardSyntax, checkGuardSyntax)
	r.Register(RuleReachability, checkReachability)
	return r
}

// Register adds a rule. An existing rule with the same name is
// overwritten.
func (r *Registry) Register(name string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules[name] = fn
}

// Names returns the registered rule names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.rules))
	for name := range r.rules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run executes one rule by name.
func (r *Registry) Run(name string, g *graph.Graph) ([]graph.Finding, error) {
	r.mu.RLock()
	fn, ok := r.rules[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("rule not found: %s", name)
	}
	return fn(g), nil
}

// RunAll executes every registered rule in name order and concatenates
// the findings.
func (r *Registry) RunAll(g *graph.Graph) []graph.Finding {
	var findings []graph.Finding
	for _, name := range r.Names() {
		r.mu.RLock()
		fn := r.rules[name]
		r.mu.RUnlock()
		findings = append(findings, fn(g)...)
	}
	return findings
}

// checkGuardSyntax verifies stored guard expressions have balanced
// quotes, parentheses and brackets. Guards are never evaluated; the
// check catches authoring typos before a downstream consumer trips on
// them.
func checkGuardSyntax(g *graph.Graph) []graph.Finding {
	var findings []graph.Finding
	for _, id := range g.NodeIDs() {
		for _, t := range g.Transitions(id) {
			guard := t.Guard()
			if guard == "" {
				continue
			}
			if err := checkBalanced(guard); err != nil {
				findings = append(findings, graph.Finding{
					Severity: graph.SeverityError,
					Code:     FindingBadGuard,
					Message:  fmt.Sprintf("transition %q -> %q: guard %q: %v", t.From, t.To, guard, err),
					NodeID:   t.From,
				})
			}
		}
	}
	return findings
}

// checkReachability reports nodes no start node can reach. Unreachable
// nodes still predict fine once visited, so this is a warning, not an
// error.
func checkReachability(g *graph.Graph) []graph.Finding {
	var findings []graph.Finding
	for _, id := range validator.Unreachable(g) {
		findings = append(findings, graph.Finding{
			Severity: graph.SeverityWarning,
			Code:     FindingUnreachable,
			Message:  fmt.Sprintf("node %q is not reachable from any start node", id),
			NodeID:   id,
		})
	}
	return findings
}

func checkBalanced(expr string) error {
	var (
		stack   []rune
		quote   rune
		escaped bool
	)

	for _, r := range expr {
		if quote != 0 {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == quote:
				quote = 0
			}
			continue
		}

		switch r {
		case '\'', '"':
			quote = r
		case '(', '[':
			stack = append(stack, r)
		case ')':
			if len(stack) == 0 || stack[len(stack)-1] != '(' {
				return fmt.Errorf("unmatched %c", r)
			}
			stack = stack[:len(stack)-1]
		case ']':
			if len(stack) == 0 || stack[len(stack)-1] != '[' {
				return fmt.Errorf("unmatched %c", r)
			}
			stack = stack[:len(stack)-1]
		}
	}

	if quote != 0 {
		return fmt.Errorf("unterminated %c quote", quote)
	}
	if len(stack) > 0 {
		return fmt.Errorf("unclosed %c", stack[len(stack)-1])
	}
	return nil
}

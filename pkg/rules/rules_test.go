package rules_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/cairn/pkg/domain"
	"github.com/aretw0/cairn/pkg/graph"
	"github.com/aretw0/cairn/pkg/rules"
)

func guarded(from, to, guard string) domain.Transition {
	return domain.Transition{
		From:     from,
		To:       to,
		Metadata: map[string]any{domain.MetaGuard: guard},
	}
}

func TestRegistry_BuiltIns(t *testing.T) {
	r := rules.NewRegistry()
	assert.Equal(t, []string{rules.RuleGuardSyntax, rules.RuleReachability}, r.Names())
}

func TestRegistry_Run(t *testing.T) {
	r := rules.NewRegistry()

	t.Run("Unknown Rule", func(t *testing.T) {
		g, err := graph.New([]domain.Transition{{From: "a", To: "b"}})
		require.NoError(t, err)

		_, err = r.Run("made-up", g)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rule not found")
	})

	t.Run("Clean Graph Has No Findings", func(t *testing.T) {
		g, err := graph.New([]domain.Transition{
			{From: "start", To: "a"},
			guarded("a", "b", "role == 'admin' && items[0] > 1"),
		})
		require.NoError(t, err)

		for _, name := range r.Names() {
			findings, err := r.Run(name, g)
			require.NoError(t, err)
			assert.Empty(t, findings, name)
		}
	})
}

func TestGuardSyntaxRule(t *testing.T) {
	r := rules.NewRegistry()

	cases := []struct {
		name  string
		guard string
		bad   bool
	}{
		{"Balanced Expression", "(count > 3) && tags[0] == 'urgent'", false},
		{"Escaped Quote", `owner == 'O\'Brien'`, false},
		{"Brackets Inside Quotes", `note == "(ignore ["`, false},
		{"Unclosed Paren", "(count > 3", true},
		{"Unmatched Bracket", "tags]0[", true},
		{"Unterminated Quote", "owner == 'admin", true},
		{"Mismatched Pair", "(tags[0)]", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g, err := graph.New([]domain.Transition{
				{From: "start", To: "a"},
				guarded("a", "b", tc.guard),
			})
			require.NoError(t, err)

			findings, err := r.Run(rules.RuleGuardSyntax, g)
			require.NoError(t, err)

			if tc.bad {
				require.Len(t, findings, 1)
				assert.Equal(t, rules.FindingBadGuard, findings[0].Code)
				assert.Equal(t, graph.SeverityError, findings[0].Severity)
				assert.Contains(t, findings[0].Message, tc.guard)
			} else {
				assert.Empty(t, findings)
			}
		})
	}
}

func TestReachabilityRule(t *testing.T) {
	r := rules.NewRegistry()

	g, err := graph.New([]domain.Transition{
		{From: "start", To: "a"},
		{From: "island", To: "atoll"},
		{From: "atoll", To: "island"},
	})
	require.NoError(t, err)

	findings, err := r.Run(rules.RuleReachability, g)
	require.NoError(t, err)
	require.Len(t, findings, 2)

	for _, f := range findings {
		assert.Equal(t, rules.FindingUnreachable, f.Code)
		assert.Equal(t, graph.SeverityWarning, f.Severity)
	}
	assert.Equal(t, "island", findings[0].NodeID)
	assert.Equal(t, "atoll", findings[1].NodeID)
}

func TestRegistry_CustomRule(t *testing.T) {
	r := rules.NewRegistry()
	r.Register("no-self-loops", func(g *graph.Graph) []graph.Finding {
		var findings []graph.Finding
		for _, id := range g.NodeIDs() {
			if g.HasTransition(id, id) {
				findings = append(findings, graph.Finding{
					Severity: graph.SeverityError,
					Code:     "self_loop",
					Message:  "node " + id + " transitions to itself",
					NodeID:   id,
				})
			}
		}
		return findings
	})

	g, err := graph.New([]domain.Transition{
		{From: "start", To: "refresh"},
		{From: "refresh", To: "refresh"},
	})
	require.NoError(t, err)

	findings := r.RunAll(g)

	codes := make([]string, 0, len(findings))
	for _, f := range findings {
		codes = append(codes, f.Code)
	}
	assert.Contains(t, codes, "self_loop", "custom rules run alongside built-ins")
}

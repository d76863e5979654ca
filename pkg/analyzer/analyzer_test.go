package analyzer_test

import (
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/cairn/pkg/analyzer"
	"github.com/aretw0/cairn/pkg/domain"
	"github.com/aretw0/cairn/pkg/graph"
	"github.com/aretw0/cairn/pkg/weights"
)

// newAnalyzer builds an analyzer over a decay-free store so threshold
// comparisons in tests are exact.
func newAnalyzer(t *testing.T, transitions []domain.Transition, opts ...analyzer.Option) (*analyzer.Analyzer, *weights.Store) {
	t.Helper()
	g, err := graph.New(transitions, graph.SkipValidation())
	require.NoError(t, err)
	s, err := weights.New(g, weights.Config{Algorithm: weights.AlgorithmNone})
	require.NoError(t, err)
	return analyzer.New(g, s, opts...), s
}

func seed(t *testing.T, s *weights.Store, from, to string, actor domain.Actor, w float64) {
	t.Helper()
	_, err := s.SetWeight(from, to, actor, w)
	require.NoError(t, err)
}

func TestAnalyzer_PureCycle(t *testing.T) {
	// A three-node cycle with no way in or out.
	a, _ := newAnalyzer(t, []domain.Transition{
		{From: "a", To: "b"},
		{From: "b", To: "c"},
		{From: "c", To: "a"},
	})

	sccs := a.StronglyConnectedComponents()
	require.Len(t, sccs, 1)
	assert.Equal(t, []string{"a", "b", "c"}, sccs[0].Nodes)
	assert.Empty(t, sccs[0].EntryPoints)
	assert.Empty(t, sccs[0].ExitPoints)

	infinite := a.FindInfiniteLoops()
	require.Len(t, infinite, 1)
	assert.Equal(t, []string{"a", "b", "c"}, infinite[0].SCC.Nodes)
}

func TestAnalyzer_EntryAndExitPoints(t *testing.T) {
	a, _ := newAnalyzer(t, []domain.Transition{
		{From: "y", To: "a"}, // into the loop
		{From: "a", To: "b"},
		{From: "b", To: "a"},
		{From: "b", To: "x"}, // out of the loop
	})

	sccs := a.StronglyConnectedComponents()

	var loop *analyzer.SCC
	for i := range sccs {
		if len(sccs[i].Nodes) == 2 {
			loop = &sccs[i]
		}
	}
	require.NotNil(t, loop)
	assert.Equal(t, []string{"a", "b"}, loop.Nodes)
	// Entry points are members; exit points are outsiders.
	assert.Equal(t, []string{"a"}, loop.EntryPoints)
	assert.Equal(t, []string{"x"}, loop.ExitPoints)
}

func TestAnalyzer_TarjanKosarajuEquivalence(t *testing.T) {
	a, _ := newAnalyzer(t, []domain.Transition{
		{From: "a", To: "b"},
		{From: "b", To: "a"},
		{From: "b", To: "c"},
		{From: "c", To: "d"},
		{From: "d", To: "c"},
		{From: "d", To: "e"},
		{From: "e", To: "f"},
	})

	canon := func(sccs []analyzer.SCC) []string {
		keys := make([]string, 0, len(sccs))
		for _, s := range sccs {
			keys = append(keys, strings.Join(s.Nodes, ","))
		}
		sort.Strings(keys)
		return keys
	}

	tarjan := canon(a.StronglyConnectedComponents())
	kosaraju := canon(a.StronglyConnectedComponentsKosaraju())
	assert.Equal(t, tarjan, kosaraju)
	assert.Contains(t, tarjan, "a,b")
	assert.Contains(t, tarjan, "c,d")
}

func TestAnalyzer_SelfLoopIsNotALoop(t *testing.T) {
	a, _ := newAnalyzer(t, []domain.Transition{
		{From: "a", To: "a"},
		{From: "a", To: "b"},
	})
	assert.Empty(t, a.FindLoops())
}

func TestAnalyzer_LoopClassification(t *testing.T) {
	cycle := []domain.Transition{
		{From: "a", To: "b"},
		{From: "b", To: "a"},
		{From: "b", To: "out"},
	}

	t.Run("Cold Quiet Loop", func(t *testing.T) {
		a, s := newAnalyzer(t, cycle)
		seed(t, s, "a", "b", domain.ActorUser, 1)
		seed(t, s, "b", "a", domain.ActorUser, 1)
		seed(t, s, "b", "out", domain.ActorUser, 5)

		loops := a.FindLoops()
		require.Len(t, loops, 1)
		l := loops[0]
		assert.False(t, l.Hot)
		assert.False(t, l.Infinite)
		assert.False(t, l.Unproductive) // 2 <= 3*5
		assert.False(t, l.Automatable)
		assert.InDelta(t, 1.0, l.AvgWeight, 1e-9)
	})

	t.Run("Hot Unproductive Loop", func(t *testing.T) {
		a, s := newAnalyzer(t, cycle)
		seed(t, s, "a", "b", domain.ActorUser, 8)
		seed(t, s, "b", "a", domain.ActorUser, 8)
		seed(t, s, "b", "out", domain.ActorUser, 2)

		loops := a.FindLoops()
		require.Len(t, loops, 1)
		l := loops[0]
		assert.True(t, l.Hot)          // avg 8 >= 5
		assert.True(t, l.Unproductive) // 16 > 3*2
		assert.True(t, l.Automatable)  // user 16 > 10
		assert.InDelta(t, 16.0, l.IntraWeight, 1e-9)
		assert.InDelta(t, 2.0, l.InterWeight, 1e-9)
	})

	t.Run("System Actor Marks Automatable", func(t *testing.T) {
		a, s := newAnalyzer(t, cycle)
		seed(t, s, "a", "b", domain.ActorSystem, 0.5)

		loops := a.FindLoops()
		require.Len(t, loops, 1)
		assert.True(t, loops[0].Automatable)
		assert.False(t, loops[0].Hot)
	})
}

func TestAnalyzer_EdgeClassification(t *testing.T) {
	a, _ := newAnalyzer(t, []domain.Transition{
		{From: "a", To: "b"},
		{From: "a", To: "c"},
		{From: "b", To: "c"},
		{From: "c", To: "a"},
		{From: "d", To: "c"},
	})

	edges := a.ClassifyEdges()
	assert.Equal(t, []analyzer.ClassifiedEdge{
		{From: "a", To: "b", Class: analyzer.EdgeTree},
		{From: "b", To: "c", Class: analyzer.EdgeTree},
		{From: "c", To: "a", Class: analyzer.EdgeBack},
		{From: "a", To: "c", Class: analyzer.EdgeForward},
		{From: "d", To: "c", Class: analyzer.EdgeCross},
	}, edges)

	assert.True(t, a.HasCycle())
}

func TestAnalyzer_AcyclicHasNoBackEdges(t *testing.T) {
	a, _ := newAnalyzer(t, []domain.Transition{
		{From: "a", To: "b"},
		{From: "b", To: "c"},
	})
	assert.False(t, a.HasCycle())
	for _, e := range a.ClassifyEdges() {
		assert.NotEqual(t, analyzer.EdgeBack, e.Class)
	}
}

func TestAnalyzer_Bottlenecks(t *testing.T) {
	a, s := newAnalyzer(t, []domain.Transition{
		{From: "p", To: "hub"},
		{From: "q", To: "hub"},
		{From: "hub", To: "out"},
		{From: "p", To: "sink"},
		{From: "q", To: "sink"},
	})
	// hub: 12 in, 2 out -> congestion 6.
	seed(t, s, "p", "hub", domain.ActorUser, 6)
	seed(t, s, "q", "hub", domain.ActorUser, 6)
	seed(t, s, "hub", "out", domain.ActorUser, 2)
	// sink: 11 in, nothing out -> score is the incoming total.
	seed(t, s, "p", "sink", domain.ActorUser, 5)
	seed(t, s, "q", "sink", domain.ActorUser, 6)

	found := a.FindBottlenecks()
	require.Len(t, found, 2)

	// Sorted by congestion score descending: sink (11) beats hub (6).
	assert.Equal(t, "sink", found[0].Node)
	assert.InDelta(t, 11.0, found[0].CongestionScore, 1e-9)
	assert.Zero(t, found[0].OutgoingTraffic)

	assert.Equal(t, "hub", found[1].Node)
	assert.InDelta(t, 6.0, found[1].CongestionScore, 1e-9)
}

func TestAnalyzer_BottleneckThresholds(t *testing.T) {
	a, s := newAnalyzer(t, []domain.Transition{
		{From: "p", To: "busy"},
		{From: "busy", To: "out"},
	})
	// Heavy but balanced traffic is not congestion.
	seed(t, s, "p", "busy", domain.ActorUser, 50)
	seed(t, s, "busy", "out", domain.ActorUser, 40)
	assert.Empty(t, a.FindBottlenecks())

	// Congested but light traffic stays under the radar.
	seed(t, s, "p", "busy", domain.ActorUser, 9)
	seed(t, s, "busy", "out", domain.ActorUser, 1)
	assert.Empty(t, a.FindBottlenecks())
}

func TestAnalyzer_AutomationCandidates(t *testing.T) {
	cycle := []domain.Transition{
		{From: "a", To: "b"},
		{From: "b", To: "a"},
		{From: "b", To: "out"},
	}

	t.Run("Below Repetition Threshold", func(t *testing.T) {
		a, s := newAnalyzer(t, cycle)
		seed(t, s, "a", "b", domain.ActorUser, 4)
		seed(t, s, "b", "a", domain.ActorUser, 4)
		assert.Empty(t, a.FindAutomationCandidates())
	})

	t.Run("Robotic", func(t *testing.T) {
		a, s := newAnalyzer(t, cycle)
		seed(t, s, "a", "b", domain.ActorUser, 6)
		seed(t, s, "b", "a", domain.ActorUser, 6)

		ops := a.FindAutomationCandidates()
		require.Len(t, ops, 1)
		assert.Equal(t, domain.PatternRobotic, ops[0].Kind)
		assert.InDelta(t, 6.0, ops[0].AvgFrequency, 1e-9)
		assert.InDelta(t, 0.3, ops[0].Confidence, 1e-9)
	})

	t.Run("Triggered", func(t *testing.T) {
		a, s := newAnalyzer(t, cycle)
		seed(t, s, "a", "b", domain.ActorUser, 15)
		seed(t, s, "b", "a", domain.ActorUser, 15)

		ops := a.FindAutomationCandidates()
		require.Len(t, ops, 1)
		assert.Equal(t, domain.PatternTriggered, ops[0].Kind)
		assert.InDelta(t, 0.75, ops[0].Confidence, 1e-9)
	})

	t.Run("Scheduled With Clamped Confidence", func(t *testing.T) {
		a, s := newAnalyzer(t, cycle)
		seed(t, s, "a", "b", domain.ActorUser, 25)
		seed(t, s, "b", "a", domain.ActorUser, 25)

		ops := a.FindAutomationCandidates()
		require.Len(t, ops, 1)
		assert.Equal(t, domain.PatternScheduled, ops[0].Kind)
		assert.InDelta(t, 1.0, ops[0].Confidence, 1e-9)
	})

	t.Run("Pattern Hook Fires", func(t *testing.T) {
		var events []domain.PatternEvent
		a, s := newAnalyzer(t, cycle, analyzer.WithPatternHook(func(ev domain.PatternEvent) {
			events = append(events, ev)
		}))
		seed(t, s, "a", "b", domain.ActorUser, 12)
		seed(t, s, "b", "a", domain.ActorUser, 12)

		a.FindAutomationCandidates()
		require.Len(t, events, 1)
		assert.Equal(t, domain.PatternTriggered, events[0].Kind)
		assert.Equal(t, []string{"a", "b"}, events[0].Nodes)
		assert.False(t, events[0].Timestamp.IsZero())
	})

	t.Run("Size Range Excludes Large Components", func(t *testing.T) {
		a, _ := newAnalyzer(t, cycle, analyzer.WithConfig(analyzer.Config{MaxPatternSize: 1}))
		// MinPatternSize defaults to 2, so 2..1 admits nothing.
		assert.Empty(t, a.FindAutomationCandidates())
	})
}

func TestAnalyzer_Summary(t *testing.T) {
	a, s := newAnalyzer(t, []domain.Transition{
		{From: "a", To: "b"},
		{From: "b", To: "a"},
		{From: "b", To: "hub"},
		{From: "c", To: "hub"},
		{From: "hub", To: "done"},
	})
	seed(t, s, "a", "b", domain.ActorUser, 12)
	seed(t, s, "b", "a", domain.ActorUser, 12)
	seed(t, s, "b", "hub", domain.ActorUser, 6)
	seed(t, s, "c", "hub", domain.ActorUser, 6)
	seed(t, s, "hub", "done", domain.ActorUser, 1)

	sum := a.Summary()
	assert.Equal(t, 4, sum.SCCs) // {a,b} plus three singletons
	assert.Equal(t, 1, sum.Loops)
	assert.Equal(t, 1, sum.Bottlenecks)
	assert.Equal(t, 1, sum.Opportunities)
	assert.InDelta(t, 1.0, sum.AvgOutDegree, 1e-9) // 5 edges over 5 nodes
	require.Len(t, sum.TopPatterns, 1)
	assert.Equal(t, domain.PatternTriggered, sum.TopPatterns[0].Kind)
}

func TestAnalyzer_Determinism(t *testing.T) {
	transitions := []domain.Transition{
		{From: "a", To: "b"},
		{From: "b", To: "c"},
		{From: "c", To: "a"},
		{From: "c", To: "d"},
		{From: "d", To: "e"},
		{From: "e", To: "d"},
	}
	a, _ := newAnalyzer(t, transitions)

	first := a.StronglyConnectedComponents()
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, a.StronglyConnectedComponents())
	}
	firstEdges := a.ClassifyEdges()
	for i := 0; i < 5; i++ {
		assert.Equal(t, firstEdges, a.ClassifyEdges())
	}
}

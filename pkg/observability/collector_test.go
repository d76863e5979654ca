package observability

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/cairn"
	"github.com/aretw0/cairn/pkg/domain"
)

// fakeEngine hands each subscription's callback back to the test so
// streams that are hard to provoke through the real engine (patterns,
// decay removals) can be fired directly.
type fakeEngine struct {
	transition func(domain.TransitionEvent)
	prediction func(domain.PredictionEvent)
	weight     func(domain.WeightUpdateEvent)
	decay      func(domain.DecayEvent)
	session    func(domain.SessionEvent)
	pattern    func(domain.PatternEvent)
	failure    func(error)
}

func (f *fakeEngine) OnTransition(fn func(domain.TransitionEvent)) func() {
	f.transition = fn
	return func() { f.transition = nil }
}

func (f *fakeEngine) OnPrediction(fn func(domain.PredictionEvent)) func() {
	f.prediction = fn
	return func() { f.prediction = nil }
}

func (f *fakeEngine) OnWeightUpdate(fn func(domain.WeightUpdateEvent)) func() {
	f.weight = fn
	return func() { f.weight = nil }
}

func (f *fakeEngine) OnDecay(fn func(domain.DecayEvent)) func() {
	f.decay = fn
	return func() { f.decay = nil }
}

func (f *fakeEngine) OnSession(fn func(domain.SessionEvent)) func() {
	f.session = fn
	return func() { f.session = nil }
}

func (f *fakeEngine) OnPattern(fn func(domain.PatternEvent)) func() {
	f.pattern = fn
	return func() { f.pattern = nil }
}

func (f *fakeEngine) OnError(fn func(error)) func() {
	f.failure = fn
	return func() { f.failure = nil }
}

func histogramSamples(t *testing.T, h prometheus.Histogram) uint64 {
	t.Helper()
	pb := &dto.Metric{}
	require.NoError(t, h.Write(pb))
	return pb.GetHistogram().GetSampleCount()
}

func TestCollector_Bind(t *testing.T) {
	c := New(prometheus.NewRegistry())
	fake := &fakeEngine{}
	c.Bind(fake)

	fake.transition(domain.TransitionEvent{
		From: "login", To: "inbox",
		Context: domain.RecordContext{Actor: domain.ActorUser},
	})
	fake.transition(domain.TransitionEvent{
		From: "inbox", To: "archive",
		Context: domain.RecordContext{Actor: domain.ActorAutomation},
	})
	fake.prediction(domain.PredictionEvent{Node: "inbox", Elapsed: 40 * time.Microsecond})
	fake.weight(domain.WeightUpdateEvent{From: "login", To: "inbox", Weight: 1})
	fake.decay(domain.DecayEvent{Touched: 7, Removed: 3})
	fake.pattern(domain.PatternEvent{Kind: domain.PatternRobotic})
	fake.pattern(domain.PatternEvent{Kind: domain.PatternRobotic})
	fake.failure(domain.NewInvalidTransition("inbox", "login"))

	assert.Equal(t, 1.0, testutil.ToFloat64(c.transitions.WithLabelValues("user")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.transitions.WithLabelValues("automation")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.predictions))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.weightUpdates))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.decayRuns))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.decayRemoved))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.patterns.WithLabelValues("robotic")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.errors.WithLabelValues("invalid_transition")))
	assert.EqualValues(t, 1, histogramSamples(t, c.latency))
}

func TestCollector_SessionGauge(t *testing.T) {
	c := New(prometheus.NewRegistry())
	fake := &fakeEngine{}
	c.Bind(fake)

	started := domain.SessionEvent{Session: domain.SessionInfo{ID: "s1", Active: true}}
	fake.session(started)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.activeSessions))

	fake.session(domain.SessionEvent{
		Session: domain.SessionInfo{ID: "s1", EndReason: domain.EndTimeout},
		Reason:  domain.EndTimeout,
	})
	assert.Equal(t, 0.0, testutil.ToFloat64(c.activeSessions))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.sessionsEnded.WithLabelValues("timeout")))

	// A resume reopens the session and counts like a start.
	fake.session(started)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.activeSessions))
}

func TestCollector_Unbind(t *testing.T) {
	c := New(prometheus.NewRegistry())
	fake := &fakeEngine{}
	unbind := c.Bind(fake)

	fake.prediction(domain.PredictionEvent{Node: "inbox"})
	unbind()

	require.Nil(t, fake.prediction)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.predictions))
}

func TestCollector_UnknownErrorCode(t *testing.T) {
	c := New(prometheus.NewRegistry())
	fake := &fakeEngine{}
	c.Bind(fake)

	fake.failure(context.DeadlineExceeded)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.errors.WithLabelValues("internal")))
}

// The remaining tests drive a real engine to prove the subscription
// wiring end to end.

func newBoundEngine(t *testing.T) (*cairn.Engine, *Collector) {
	t.Helper()
	e, err := cairn.New(cairn.WithTransitions(
		domain.Transition{From: "login", To: "inbox"},
		domain.Transition{From: "inbox", To: "triage"},
	))
	require.NoError(t, err)

	c := New(prometheus.NewRegistry())
	c.Bind(e)
	return e, c
}

func TestCollector_WithEngine(t *testing.T) {
	ctx := context.Background()
	e, c := newBoundEngine(t)

	require.NoError(t, e.RecordTransition(ctx, "login", "inbox", domain.RecordContext{}))
	require.NoError(t, e.RecordTransition(ctx, "inbox", "triage", domain.RecordContext{
		Actor: domain.ActorAutomation,
	}))
	e.PredictNext("login", domain.PredictContext{})
	e.ApplyDecay()

	assert.Equal(t, 1.0, testutil.ToFloat64(c.transitions.WithLabelValues("user")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.transitions.WithLabelValues("automation")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.weightUpdates))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.predictions))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.decayRuns))
	assert.EqualValues(t, 1, histogramSamples(t, c.latency))

	err := e.RecordTransition(ctx, "triage", "login", domain.RecordContext{})
	require.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.errors.WithLabelValues("invalid_transition")))
}

func TestCollector_WithEngineSessions(t *testing.T) {
	ctx := context.Background()
	e, c := newBoundEngine(t)

	first, err := e.StartSession(ctx, domain.ActorUser, "")
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.activeSessions))

	// Starting again for the same actor abandons the first session.
	second, err := e.StartSession(ctx, domain.ActorUser, "")
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.activeSessions))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.sessionsEnded.WithLabelValues("abandoned")))

	_, err = e.EndSession(ctx, second.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 0.0, testutil.ToFloat64(c.activeSessions))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.sessionsEnded.WithLabelValues("completed")))

	_, err = e.ResumeSession(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.activeSessions))
}

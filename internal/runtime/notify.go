package runtime

import (
	"log/slog"
	"sync"

	"github.com/aretw0/cairn/pkg/domain"
)

// registry is an insertion-ordered listener set. Subscribing returns a
// closure that removes exactly the registered entry, so the same
// function can be subscribed twice and removed once. Emission iterates
// a snapshot taken under the registry lock; a listener unsubscribing
// (or subscribing) mid-emission cannot corrupt the iteration.
type registry[T any] struct {
	mu      sync.Mutex
	nextID  int
	order   []int
	entries map[int]func(T)
}

func (r *registry[T]) subscribe(fn func(T)) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.entries == nil {
		r.entries = make(map[int]func(T))
	}
	id := r.nextID
	r.nextID++
	r.entries[id] = fn
	r.order = append(r.order, id)

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if _, ok := r.entries[id]; !ok {
			return
		}
		delete(r.entries, id)
		for i, v := range r.order {
			if v == id {
				r.order = append(r.order[:i], r.order[i+1:]...)
				break
			}
		}
	}
}

func (r *registry[T]) snapshot() []func(T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fns := make([]func(T), 0, len(r.order))
	for _, id := range r.order {
		fns = append(fns, r.entries[id])
	}
	return fns
}

// emit delivers ev to every listener in subscription order, on the
// calling goroutine. A panicking listener is recovered and logged so
// the remaining listeners still run. Callers must not hold the engine
// mutex: a listener is allowed to call back into the engine.
func emit[T any](logger *slog.Logger, r *registry[T], ev T) {
	for _, fn := range r.snapshot() {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("notification listener panicked", slog.Any("panic", rec))
				}
			}()
			fn(ev)
		}()
	}
}

// OnTransition subscribes to recorded transitions. The returned func
// unsubscribes.
func (e *Engine) OnTransition(fn func(domain.TransitionEvent)) func() {
	return e.transitionSubs.subscribe(fn)
}

// OnPrediction subscribes to served predictions.
func (e *Engine) OnPrediction(fn func(domain.PredictionEvent)) func() {
	return e.predictionSubs.subscribe(fn)
}

// OnWeightUpdate subscribes to weight changes.
func (e *Engine) OnWeightUpdate(fn func(domain.WeightUpdateEvent)) func() {
	return e.weightSubs.subscribe(fn)
}

// OnDecay subscribes to explicit decay passes.
func (e *Engine) OnDecay(fn func(domain.DecayEvent)) func() {
	return e.decaySubs.subscribe(fn)
}

// OnSession subscribes to session lifecycle changes (start, resume,
// end). An ended session carries its end reason.
func (e *Engine) OnSession(fn func(domain.SessionEvent)) func() {
	return e.sessionSubs.subscribe(fn)
}

// OnPattern subscribes to automation patterns discovered by analysis
// runs.
func (e *Engine) OnPattern(fn func(domain.PatternEvent)) func() {
	return e.patternSubs.subscribe(fn)
}

// OnError subscribes to the error channel. Every structural error the
// engine returns to a caller is also delivered here, after the failed
// call has returned.
func (e *Engine) OnError(fn func(error)) func() {
	return e.errorSubs.subscribe(fn)
}

// emitError pushes err to error listeners. Safe to call with the
// engine mutex released only.
func (e *Engine) emitError(err error) {
	emit(e.logger, &e.errorSubs, err)
}

// Package weights implements the adaptive weight overlay on top of an
// immutable transition graph.
//
// The store keeps one decayable entry per (from, to, actor) triple.
// Decay is computed lazily at read time and during explicit ApplyDecay
// passes; there are no background timers. Reads never mutate storage,
// so two reads at the same instant always agree.
//
// The store is not safe for concurrent use on its own. The runtime
// engine serializes access; standalone users must do the same.
package weights

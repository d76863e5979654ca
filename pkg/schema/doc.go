// Package schema defines the portable snapshot format for learned
// weight state.
//
// A Snapshot captures every live predictive weight together with the
// decay configuration that produced it and a fingerprint of the model
// it was learned on. Snapshots round-trip through JSON, so they can be
// written to disk, shipped between hosts, or stored in Redis, and
// restored into a fresh engine without losing what was learned.
//
// Basic usage:
//
//	snap := engine.Export()
//	data, err := schema.Marshal(snap)
//
//	restored, err := schema.Unmarshal(data)
//	if err := engine.Import(restored); err != nil {
//	    // version or model mismatch
//	}
//
// The format is versioned. Decoding rejects snapshots written by a
// newer format version; restoring onto a different model is the
// engine's call (it compares ModelID against its own fingerprint).
package schema

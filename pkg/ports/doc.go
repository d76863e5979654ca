/*
Package ports defines the driven ports (interfaces) for the cairn
engine.

These interfaces decouple the core from external implementations, so
the engine works with any snapshot backend, event sink, definition
source or activity tracker without knowing which one is wired in.

# Key Interfaces

  - Source: loads a graph definition (memory, files, loam, YAML).
  - SnapshotStore: persists and restores learned weight snapshots.
  - EventStore: appends and queries the transition event history.
  - ActivityTracker: supplies engagement scores for confidence math.

Contract test suites (RunSnapshotStoreContract, RunEventStoreContract)
verify that an implementation honors the documented semantics; every
adapter in pkg/adapters runs them.
*/
package ports

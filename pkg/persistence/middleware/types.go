// Package middleware decorates persistence ports with cross-cutting
// behavior: encryption at rest for weight snapshots and masking of
// sensitive event metadata. Middlewares compose by wrapping; the last
// wrapper applied sees calls first.
package middleware

import "github.com/aretw0/cairn/pkg/ports"

// Middleware wraps a SnapshotStore to add behavior.
type Middleware func(ports.SnapshotStore) ports.SnapshotStore

// EventMiddleware wraps an EventStore to add behavior.
type EventMiddleware func(ports.EventStore) ports.EventStore

package memory

import (
	"context"
	"sync"

	"github.com/aretw0/cairn/pkg/domain"
	"github.com/aretw0/cairn/pkg/ports"
)

// EventStore implements ports.EventStore as an append-only slice.
// Safe for concurrent use.
type EventStore struct {
	events []domain.ActionEvent
	mu     sync.RWMutex
}

// NewEventStore creates a new in-memory event store.
func NewEventStore() *EventStore {
	return &EventStore{}
}

// Append stores one event. Metadata is copied so later mutation by the
// caller can't reach the stored event.
func (s *EventStore) Append(ctx context.Context, ev domain.ActionEvent) error {
	ev.Metadata = cloneMetadata(ev.Metadata)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

// Query returns matching events in append order, which is
// chronological as long as callers append in order. Limit keeps the
// most recent matches.
func (s *EventStore) Query(ctx context.Context, filter ports.EventFilter) ([]domain.ActionEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.ActionEvent
	for _, ev := range s.events {
		if filter.Matches(ev) {
			out = append(out, ev)
		}
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[len(out)-filter.Limit:]
	}
	for i := range out {
		out[i].Metadata = cloneMetadata(out[i].Metadata)
	}
	return out, nil
}

// Count returns the number of matching events, ignoring Limit.
func (s *EventStore) Count(ctx context.Context, filter ports.EventFilter) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n uint64
	for _, ev := range s.events {
		if filter.Matches(ev) {
			n++
		}
	}
	return n, nil
}

// Len reports the total number of stored events.
func (s *EventStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

func cloneMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return nil
	}
	copied := make(map[string]any, len(meta))
	for k, v := range meta {
		copied[k] = v
	}
	return copied
}

package ports

import (
	"context"
	"time"

	"github.com/aretw0/cairn/pkg/domain"
)

// EventFilter narrows event queries. Zero fields match everything.
type EventFilter struct {
	SessionID string             `json:"session_id,omitempty"`
	Actor     domain.Actor       `json:"actor,omitempty"`
	From      string             `json:"from,omitempty"`
	To        string             `json:"to,omitempty"`
	Types     []domain.EventType `json:"types,omitempty"`
	Since     time.Time          `json:"since,omitempty"`
	Until     time.Time          `json:"until,omitempty"`
	// Limit bounds the result to the most recent N events. 0 means
	// unbounded.
	Limit int `json:"limit,omitempty"`
}

// Matches reports whether an event passes the filter, ignoring Limit.
func (f EventFilter) Matches(ev domain.ActionEvent) bool {
	if f.SessionID != "" && ev.SessionID != f.SessionID {
		return false
	}
	if f.Actor != "" && ev.Actor != f.Actor {
		return false
	}
	if f.From != "" && ev.From != f.From {
		return false
	}
	if f.To != "" && ev.To != f.To {
		return false
	}
	if len(f.Types) > 0 {
		found := false
		for _, t := range f.Types {
			if ev.Type == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if !f.Since.IsZero() && ev.Timestamp.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && ev.Timestamp.After(f.Until) {
		return false
	}
	return true
}

// EventStore is the append-only sink for action events. The engine
// appends as a side effect of recording when a store is configured;
// queries simply forward.
type EventStore interface {
	// Append stores one event. Events are immutable once appended.
	Append(ctx context.Context, ev domain.ActionEvent) error

	// Query returns matching events in chronological order, bounded
	// by the filter's limit (most recent kept).
	Query(ctx context.Context, filter EventFilter) ([]domain.ActionEvent, error)

	// Count returns the number of matching events, ignoring Limit.
	Count(ctx context.Context, filter EventFilter) (uint64, error)
}

package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/aretw0/cairn/pkg/domain"
	"github.com/aretw0/cairn/pkg/ports"
)

const eventsFile = "events.jsonl"

// EventStore implements ports.EventStore as an append-only JSON Lines
// log at <BasePath>/events.jsonl. Queries scan the whole file, which
// is fine for the log sizes a single node produces; the redis adapter
// covers anything bigger.
type EventStore struct {
	BasePath string
	mu       sync.Mutex
}

// NewEventStore creates a store rooted at basePath. An empty path
// defaults to ".cairn".
func NewEventStore(basePath string) *EventStore {
	if basePath == "" {
		basePath = ".cairn"
	}
	return &EventStore{BasePath: basePath}
}

// Append writes one event as a JSON line.
func (s *EventStore) Append(ctx context.Context, ev domain.ActionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.BasePath, 0755); err != nil {
		return fmt.Errorf("file: ensure directory: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(s.BasePath, eventsFile),
		os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("file: open event log: %w", err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(ev); err != nil {
		return fmt.Errorf("file: append event: %w", err)
	}
	return nil
}

// Query returns matching events in chronological order. A positive
// filter.Limit keeps the most recent matches. A missing log reads as
// empty.
func (s *EventStore) Query(ctx context.Context, filter ports.EventFilter) ([]domain.ActionEvent, error) {
	events, err := s.scan(filter)
	if err != nil {
		return nil, err
	}
	if filter.Limit > 0 && len(events) > filter.Limit {
		events = events[len(events)-filter.Limit:]
	}
	return events, nil
}

// Count returns the number of matching events, ignoring filter.Limit.
func (s *EventStore) Count(ctx context.Context, filter ports.EventFilter) (uint64, error) {
	events, err := s.scan(filter)
	if err != nil {
		return 0, err
	}
	return uint64(len(events)), nil
}

func (s *EventStore) scan(filter ports.EventFilter) ([]domain.ActionEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(filepath.Join(s.BasePath, eventsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("file: open event log: %w", err)
	}
	defer f.Close()

	var out []domain.ActionEvent
	dec := json.NewDecoder(f)
	for {
		var ev domain.ActionEvent
		if err := dec.Decode(&ev); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("file: decode event log: %w", err)
		}
		if filter.Matches(ev) {
			out = append(out, ev)
		}
	}

	// Appends are chronological in practice; imported logs may not be.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

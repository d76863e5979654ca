// Package redis persists snapshots and events in Redis, for
// deployments where several processes share one learned state.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/cairn/pkg/domain"
	"github.com/aretw0/cairn/pkg/ports"
	"github.com/aretw0/cairn/pkg/schema"
)

// Store implements both ports.SnapshotStore and ports.EventStore over
// one Redis client. The snapshot is a JSON blob at <prefix>snapshot;
// events live in a sorted set at <prefix>events scored by their
// timestamp, which makes time-range queries a single ZRANGEBYSCORE.
type Store struct {
	client    *backend.Client
	prefix    string
	ttl       time.Duration
	retention time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix sets the key prefix. Default "cairn:".
func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// WithTTL sets an expiration on the stored snapshot. Zero keeps it
// forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

// WithRetention caps the age of stored events. Older entries are
// trimmed lazily on append. Zero keeps everything.
func WithRetention(d time.Duration) Option {
	return func(s *Store) { s.retention = d }
}

// New creates a Store with its own client.
func New(address, password string, db int, opts ...Option) *Store {
	client := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(client, opts...)
}

// NewFromClient creates a Store over an existing client. The caller
// keeps ownership of the client unless Close is used.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	s := &Store{
		client: client,
		prefix: "cairn:",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) snapshotKey() string { return s.prefix + "snapshot" }
func (s *Store) eventsKey() string   { return s.prefix + "events" }

// Save stores the snapshot as JSON, with the configured TTL.
func (s *Store) Save(ctx context.Context, snap *schema.Snapshot) error {
	if snap == nil {
		return fmt.Errorf("redis: save nil snapshot")
	}
	data, err := schema.Marshal(snap)
	if err != nil {
		return fmt.Errorf("redis: marshal snapshot: %w", err)
	}
	if err := s.client.Set(ctx, s.snapshotKey(), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis: save snapshot: %w", err)
	}
	return nil
}

// Load reads and validates the stored snapshot. An absent key maps to
// domain.ErrSnapshotNotFound.
func (s *Store) Load(ctx context.Context) (*schema.Snapshot, error) {
	val, err := s.client.Get(ctx, s.snapshotKey()).Result()
	if err != nil {
		if err == backend.Nil {
			return nil, domain.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("redis: load snapshot: %w", err)
	}
	snap, err := schema.Unmarshal([]byte(val))
	if err != nil {
		return nil, fmt.Errorf("redis: parse snapshot: %w", err)
	}
	return snap, nil
}

// Append adds one event to the sorted set and, when retention is
// configured, trims entries that aged out. Both run in one pipeline.
func (s *Store) Append(ctx context.Context, ev domain.ActionEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("redis: marshal event: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.ZAdd(ctx, s.eventsKey(), backend.Z{
		Score:  float64(ev.Timestamp.UnixNano()),
		Member: data,
	})
	if s.retention > 0 {
		cutoff := time.Now().Add(-s.retention).UnixNano()
		pipe.ZRemRangeByScore(ctx, s.eventsKey(), "-inf", strconv.FormatInt(cutoff, 10))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: append event: %w", err)
	}
	return nil
}

// Query returns matching events in chronological order. The time range
// is answered by the sorted set; remaining filter fields are applied
// client-side. A positive filter.Limit keeps the most recent matches.
func (s *Store) Query(ctx context.Context, filter ports.EventFilter) ([]domain.ActionEvent, error) {
	events, err := s.scan(ctx, filter)
	if err != nil {
		return nil, err
	}
	if filter.Limit > 0 && len(events) > filter.Limit {
		events = events[len(events)-filter.Limit:]
	}
	return events, nil
}

// Count returns the number of matching events, ignoring filter.Limit.
func (s *Store) Count(ctx context.Context, filter ports.EventFilter) (uint64, error) {
	events, err := s.scan(ctx, filter)
	if err != nil {
		return 0, err
	}
	return uint64(len(events)), nil
}

func (s *Store) scan(ctx context.Context, filter ports.EventFilter) ([]domain.ActionEvent, error) {
	min, max := "-inf", "+inf"
	if !filter.Since.IsZero() {
		min = strconv.FormatInt(filter.Since.UnixNano(), 10)
	}
	if !filter.Until.IsZero() {
		max = strconv.FormatInt(filter.Until.UnixNano(), 10)
	}

	members, err := s.client.ZRangeByScore(ctx, s.eventsKey(), &backend.ZRangeBy{
		Min: min,
		Max: max,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: query events: %w", err)
	}

	var out []domain.ActionEvent
	for _, m := range members {
		var ev domain.ActionEvent
		if err := json.Unmarshal([]byte(m), &ev); err != nil {
			return nil, fmt.Errorf("redis: decode stored event: %w", err)
		}
		if filter.Matches(ev) {
			out = append(out, ev)
		}
	}

	// Scores arrive ordered; equal scores order by member bytes, so
	// settle ties on the decoded timestamp.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

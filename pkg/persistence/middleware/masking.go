package middleware

import (
	"context"
	"regexp"

	"github.com/aretw0/cairn/pkg/domain"
	"github.com/aretw0/cairn/pkg/ports"
)

const masked = "***"

type maskingStore struct {
	next     ports.EventStore
	patterns []*regexp.Regexp
}

// NewMaskingMiddleware returns an event middleware that replaces the
// values of metadata keys matching any pattern with "***" before the
// event reaches the underlying store. Patterns are regular expressions
// matched against keys at every nesting depth; a key match on a nested
// map masks the whole map. Compilation panics on an invalid pattern,
// like regexp.MustCompile.
func NewMaskingMiddleware(patternStrings []string) EventMiddleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.EventStore) ports.EventStore {
		return &maskingStore{next: next, patterns: patterns}
	}
}

// Append masks a detached copy; the caller's event is never modified.
func (m *maskingStore) Append(ctx context.Context, ev domain.ActionEvent) error {
	if len(ev.Metadata) > 0 {
		ev.Metadata = deepCopyMap(ev.Metadata)
		maskMap(ev.Metadata, m.patterns)
	}
	return m.next.Append(ctx, ev)
}

func (m *maskingStore) Query(ctx context.Context, filter ports.EventFilter) ([]domain.ActionEvent, error) {
	return m.next.Query(ctx, filter)
}

func (m *maskingStore) Count(ctx context.Context, filter ports.EventFilter) (uint64, error) {
	return m.next.Count(ctx, filter)
}

func deepCopyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if sub, ok := v.(map[string]any); ok {
			out[k] = deepCopyMap(sub)
		} else {
			out[k] = v
		}
	}
	return out
}

func maskMap(m map[string]any, patterns []*regexp.Regexp) {
	for k, v := range m {
		if matchesAny(k, patterns) {
			m[k] = masked
			continue
		}
		if sub, ok := v.(map[string]any); ok {
			maskMap(sub, patterns)
		}
	}
}

func matchesAny(key string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}

package runtime

import (
	"sort"

	"github.com/aretw0/cairn/pkg/domain"
)

// truncateEvents keeps at most limit events from a session log,
// returning them in chronological order. Callers guarantee
// len(events) > limit and a known strategy.
//
// recency keeps the newest events. frequency keeps the events of the
// most repeated (from,to) pairs, newest first within a pair, which
// preserves recurring routines at the cost of one-off steps. hybrid
// reserves half the budget for the newest events and fills the rest by
// frequency from what remains.
func truncateEvents(events []domain.ActionEvent, limit int, strategy domain.TruncateStrategy) []domain.ActionEvent {
	switch strategy {
	case domain.TruncateFrequency:
		return keepByFrequency(events, limit)
	case domain.TruncateHybrid:
		recent := (limit + 1) / 2
		newest := events[len(events)-recent:]
		rest := keepByFrequency(events[:len(events)-recent], limit-recent)
		return append(rest, newest...)
	default:
		return events[len(events)-limit:]
	}
}

// keepByFrequency scores each event by how often its (from,to) pair
// occurs in the log; session boundary events score zero and are
// evicted first. Among equal scores, newer events win. The kept events
// come back in their original chronological order.
func keepByFrequency(events []domain.ActionEvent, limit int) []domain.ActionEvent {
	if limit <= 0 {
		return nil
	}
	if len(events) <= limit {
		return append([]domain.ActionEvent(nil), events...)
	}

	counts := make(map[string]int)
	for _, ev := range events {
		if ev.Type == domain.EventTransition {
			counts[ev.From+"->"+ev.To]++
		}
	}
	score := func(ev domain.ActionEvent) int {
		if ev.Type != domain.EventTransition {
			return 0
		}
		return counts[ev.From+"->"+ev.To]
	}

	idx := make([]int, len(events))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool {
		sa, sb := score(events[idx[a]]), score(events[idx[b]])
		if sa != sb {
			return sa > sb
		}
		return idx[a] > idx[b]
	})

	kept := idx[:limit]
	sort.Ints(kept)
	out := make([]domain.ActionEvent, 0, limit)
	for _, i := range kept {
		out = append(out, events[i])
	}
	return out
}

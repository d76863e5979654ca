package runtime

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/cairn/pkg/domain"
)

// sessionEntry is the engine-private state of one session. It is the
// sole owner of the session data; activeByActor is only a lookup index
// and is updated whenever a session starts, ends or is abandoned.
type sessionEntry struct {
	id           string
	actor        domain.Actor
	startTime    time.Time
	lastActivity time.Time
	nodeHistory  []string
	events       []domain.ActionEvent
	active       bool
	endReason    domain.EndReason
}

// info snapshots the entry for callers. Slices are copied so callers
// cannot reach engine state.
func (s *sessionEntry) info() domain.SessionInfo {
	return domain.SessionInfo{
		ID:           s.id,
		Actor:        s.actor,
		StartTime:    s.startTime,
		LastActivity: s.lastActivity,
		NodeHistory:  append([]string(nil), s.nodeHistory...),
		Active:       s.active,
		EndReason:    s.endReason,
	}
}

// sessionEnd carries everything flushEnds needs once the mutex is
// released: the ended session's snapshot and its session_end event.
type sessionEnd struct {
	info  domain.SessionInfo
	event domain.ActionEvent
}

// endLocked marks the session ended, drops it from the active index
// and appends a session_end event to its log. Caller holds the mutex.
func (e *Engine) endLocked(s *sessionEntry, reason domain.EndReason, now time.Time) sessionEnd {
	s.active = false
	s.endReason = reason
	if id, ok := e.activeByActor[s.actor]; ok && id == s.id {
		delete(e.activeByActor, s.actor)
	}

	ev := domain.ActionEvent{
		ID:             uuid.NewString(),
		SessionID:      s.id,
		Actor:          s.actor,
		Timestamp:      now,
		SessionElapsed: now.Sub(s.startTime),
		Type:           domain.EventSessionEnd,
		Metadata:       map[string]any{"reason": string(reason)},
	}
	if len(s.events) > 0 {
		ev.Duration = now.Sub(s.events[len(s.events)-1].Timestamp)
	}
	s.events = append(s.events, ev)

	return sessionEnd{info: s.info(), event: ev}
}

// expireIfIdleLocked applies the lazy timeout: a session idle longer
// than the configured timeout is ended with reason "timeout" as a side
// effect of the read that noticed it. Returns nil when the session is
// not active or not idle enough. Caller holds the mutex.
func (e *Engine) expireIfIdleLocked(s *sessionEntry, now time.Time) *sessionEnd {
	if !s.active {
		return nil
	}
	if now.Sub(s.lastActivity) <= e.sessionTimeout {
		return nil
	}
	end := e.endLocked(s, domain.EndTimeout, now)
	return &end
}

// flushEnds persists and emits session endings collected under the
// mutex. Must be called with the mutex released.
func (e *Engine) flushEnds(ctx context.Context, ends []sessionEnd) {
	for _, end := range ends {
		e.appendEvent(ctx, end.event)
		emit(e.logger, &e.sessionSubs, domain.SessionEvent{
			Session:   end.info,
			Reason:    end.info.EndReason,
			Timestamp: end.event.Timestamp,
		})
		e.logger.Debug("session ended",
			"session_id", end.info.ID, "reason", string(end.info.EndReason))
	}
}

// appendEventLocked attaches a transition event to the named session
// if that session exists and is still active after the lazy timeout
// check. It fills the event's duration fields, advances lastActivity
// and extends the node history. Caller holds the mutex.
func (e *Engine) appendEventLocked(sessionID string, ev *domain.ActionEvent, now time.Time) (bool, []sessionEnd) {
	s, ok := e.sessions[sessionID]
	if !ok {
		return false, nil
	}
	if end := e.expireIfIdleLocked(s, now); end != nil {
		return false, []sessionEnd{*end}
	}
	if !s.active {
		return false, nil
	}

	ev.SessionElapsed = now.Sub(s.startTime)
	if len(s.events) > 0 {
		ev.Duration = now.Sub(s.events[len(s.events)-1].Timestamp)
	}
	s.events = append(s.events, *ev)
	s.lastActivity = now
	s.nodeHistory = append(s.nodeHistory, ev.To)
	return true, nil
}

// StartSession begins tracking a session for an actor. An empty id
// gets a generated UUID; an explicit id that already exists (active or
// ended) fails with DuplicateSession. If the actor already has an
// active session it is first ended with reason "abandoned" (at most
// one active session per actor).
func (e *Engine) StartSession(ctx context.Context, actor domain.Actor, id string) (domain.SessionInfo, error) {
	if !e.sessionTracking {
		return domain.SessionInfo{}, fmt.Errorf("session tracking is disabled")
	}
	if actor == "" {
		actor = domain.ActorUser
	}
	if id == "" {
		id = uuid.NewString()
	}

	e.mu.Lock()
	if _, exists := e.sessions[id]; exists {
		e.mu.Unlock()
		err := domain.NewDuplicateSession(id)
		e.emitError(err)
		return domain.SessionInfo{}, err
	}

	now := e.now()
	var ends []sessionEnd
	if prevID, ok := e.activeByActor[actor]; ok {
		prev := e.sessions[prevID]
		if end := e.expireIfIdleLocked(prev, now); end != nil {
			ends = append(ends, *end)
		} else if prev.active {
			ends = append(ends, e.endLocked(prev, domain.EndAbandoned, now))
		}
	}

	s := &sessionEntry{
		id:           id,
		actor:        actor,
		startTime:    now,
		lastActivity: now,
		active:       true,
	}
	startEv := domain.ActionEvent{
		ID:        uuid.NewString(),
		SessionID: id,
		Actor:     actor,
		Timestamp: now,
		Type:      domain.EventSessionStart,
	}
	s.events = append(s.events, startEv)
	e.sessions[id] = s
	e.activeByActor[actor] = id
	info := s.info()
	e.mu.Unlock()

	e.flushEnds(ctx, ends)
	e.appendEvent(ctx, startEv)
	emit(e.logger, &e.sessionSubs, domain.SessionEvent{Session: info, Timestamp: now})
	e.logger.Debug("session started", "session_id", id, "actor", string(actor))
	return info, nil
}

// EndSession ends an active session. Ending an unknown id fails with
// SessionNotFound; ending a session that already ended (including one
// that just timed out) fails with SessionAlreadyEnded. An empty reason
// defaults to "completed".
func (e *Engine) EndSession(ctx context.Context, id string, reason domain.EndReason) (domain.SessionInfo, error) {
	e.mu.Lock()
	s, ok := e.sessions[id]
	if !ok {
		e.mu.Unlock()
		err := domain.NewSessionNotFound(id)
		e.emitError(err)
		return domain.SessionInfo{}, err
	}

	now := e.now()
	if end := e.expireIfIdleLocked(s, now); end != nil {
		e.mu.Unlock()
		e.flushEnds(ctx, []sessionEnd{*end})
		err := domain.NewSessionAlreadyEnded(id)
		e.emitError(err)
		return domain.SessionInfo{}, err
	}
	if !s.active {
		e.mu.Unlock()
		err := domain.NewSessionAlreadyEnded(id)
		e.emitError(err)
		return domain.SessionInfo{}, err
	}

	if reason == "" {
		reason = domain.EndCompleted
	}
	end := e.endLocked(s, reason, now)
	e.mu.Unlock()

	e.flushEnds(ctx, []sessionEnd{end})
	return end.info, nil
}

// ResumeSession reactivates an ended session, displacing any other
// active session of the same actor (reason "abandoned"). Resuming a
// session that is still active just refreshes its activity. Unknown
// ids fail with SessionNotFound.
func (e *Engine) ResumeSession(ctx context.Context, id string) (domain.SessionInfo, error) {
	e.mu.Lock()
	s, ok := e.sessions[id]
	if !ok {
		e.mu.Unlock()
		err := domain.NewSessionNotFound(id)
		e.emitError(err)
		return domain.SessionInfo{}, err
	}

	now := e.now()
	var ends []sessionEnd
	if end := e.expireIfIdleLocked(s, now); end != nil {
		ends = append(ends, *end)
	}
	if s.active {
		s.lastActivity = now
		info := s.info()
		e.mu.Unlock()
		return info, nil
	}

	if prevID, ok := e.activeByActor[s.actor]; ok && prevID != id {
		prev := e.sessions[prevID]
		if end := e.expireIfIdleLocked(prev, now); end != nil {
			ends = append(ends, *end)
		} else if prev.active {
			ends = append(ends, e.endLocked(prev, domain.EndAbandoned, now))
		}
	}

	s.active = true
	s.endReason = ""
	s.lastActivity = now
	e.activeByActor[s.actor] = id
	info := s.info()
	e.mu.Unlock()

	e.flushEnds(ctx, ends)
	emit(e.logger, &e.sessionSubs, domain.SessionEvent{Session: info, Timestamp: now})
	e.logger.Debug("session resumed", "session_id", id, "actor", string(info.Actor))
	return info, nil
}

// ActiveSession returns the actor's active session, if any. The read
// applies the lazy timeout: an idle session is ended here and reported
// as absent.
func (e *Engine) ActiveSession(ctx context.Context, actor domain.Actor) (domain.SessionInfo, bool) {
	if actor == "" {
		actor = domain.ActorUser
	}

	e.mu.Lock()
	id, ok := e.activeByActor[actor]
	if !ok {
		e.mu.Unlock()
		return domain.SessionInfo{}, false
	}
	s := e.sessions[id]
	now := e.now()
	if end := e.expireIfIdleLocked(s, now); end != nil {
		e.mu.Unlock()
		e.flushEnds(ctx, []sessionEnd{*end})
		return domain.SessionInfo{}, false
	}
	info := s.info()
	e.mu.Unlock()
	return info, true
}

// Session returns any session by id, active or ended, applying the
// lazy timeout first. Unknown ids fail with SessionNotFound.
func (e *Engine) Session(ctx context.Context, id string) (domain.SessionInfo, error) {
	e.mu.Lock()
	s, ok := e.sessions[id]
	if !ok {
		e.mu.Unlock()
		err := domain.NewSessionNotFound(id)
		e.emitError(err)
		return domain.SessionInfo{}, err
	}
	now := e.now()
	var ends []sessionEnd
	if end := e.expireIfIdleLocked(s, now); end != nil {
		ends = append(ends, *end)
	}
	info := s.info()
	e.mu.Unlock()

	e.flushEnds(ctx, ends)
	return info, nil
}

// Sessions lists every tracked session ordered by start time, applying
// the lazy timeout to each.
func (e *Engine) Sessions(ctx context.Context) []domain.SessionInfo {
	e.mu.Lock()
	now := e.now()
	var ends []sessionEnd
	infos := make([]domain.SessionInfo, 0, len(e.sessions))
	for _, s := range e.sessions {
		if end := e.expireIfIdleLocked(s, now); end != nil {
			ends = append(ends, *end)
		}
		infos = append(infos, s.info())
	}
	e.mu.Unlock()

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].StartTime.Equal(infos[j].StartTime) {
			return infos[i].ID < infos[j].ID
		}
		return infos[i].StartTime.Before(infos[j].StartTime)
	})
	e.flushEnds(ctx, ends)
	return infos
}

// SessionChain merges the transition events of all of an actor's
// sessions into one chronological stream, optionally bounded by a time
// range, capped at opts.Limit (engine default when zero) keeping the
// most recent.
func (e *Engine) SessionChain(actor domain.Actor, opts domain.ChainOptions) []domain.ActionEvent {
	if actor == "" {
		actor = domain.ActorUser
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = e.chainLimit
	}

	e.mu.Lock()
	owned := make([]*sessionEntry, 0, len(e.sessions))
	for _, s := range e.sessions {
		if s.actor == actor {
			owned = append(owned, s)
		}
	}
	sort.Slice(owned, func(i, j int) bool {
		if owned[i].startTime.Equal(owned[j].startTime) {
			return owned[i].id < owned[j].id
		}
		return owned[i].startTime.Before(owned[j].startTime)
	})

	var chain []domain.ActionEvent
	for _, s := range owned {
		for _, ev := range s.events {
			if ev.Type != domain.EventTransition {
				continue
			}
			if !opts.Since.IsZero() && ev.Timestamp.Before(opts.Since) {
				continue
			}
			if !opts.Until.IsZero() && ev.Timestamp.After(opts.Until) {
				continue
			}
			ev.Metadata = cloneMeta(ev.Metadata)
			chain = append(chain, ev)
		}
	}
	e.mu.Unlock()

	sort.SliceStable(chain, func(i, j int) bool {
		return chain[i].Timestamp.Before(chain[j].Timestamp)
	})
	if len(chain) > limit {
		chain = chain[len(chain)-limit:]
	}
	return chain
}

// TruncateChain bounds one session's stored event list to the
// configured cap using the given eviction strategy (default recency).
// Returns the number of events dropped.
func (e *Engine) TruncateChain(sessionID string, strategy domain.TruncateStrategy) (int, error) {
	if strategy == "" {
		strategy = domain.TruncateRecency
	}
	switch strategy {
	case domain.TruncateRecency, domain.TruncateFrequency, domain.TruncateHybrid:
	default:
		return 0, fmt.Errorf("unknown truncate strategy %q", strategy)
	}

	e.mu.Lock()
	s, ok := e.sessions[sessionID]
	if !ok {
		e.mu.Unlock()
		err := domain.NewSessionNotFound(sessionID)
		e.emitError(err)
		return 0, err
	}

	dropped := 0
	if len(s.events) > e.truncateLimit {
		kept := truncateEvents(s.events, e.truncateLimit, strategy)
		dropped = len(s.events) - len(kept)
		s.events = kept
	}
	e.mu.Unlock()

	if dropped > 0 {
		e.logger.Debug("session chain truncated",
			"session_id", sessionID, "dropped", dropped, "strategy", string(strategy))
	}
	return dropped, nil
}

func cloneMeta(meta map[string]any) map[string]any {
	if meta == nil {
		return nil
	}
	copied := make(map[string]any, len(meta))
	for k, v := range meta {
		copied[k] = v
	}
	return copied
}

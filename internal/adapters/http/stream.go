package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/aretw0/cairn"
	"github.com/aretw0/cairn/pkg/domain"
)

// Event kinds clients can filter on with ?watch=.
const (
	kindTransitions = "transitions"
	kindPredictions = "predictions"
	kindSessions    = "sessions"
)

type message struct {
	kind string
	data []byte
}

// broadcaster fans live engine activity out to SSE subscribers.
type broadcaster struct {
	logger *slog.Logger

	mu          sync.RWMutex
	subscribers map[chan<- message]struct{}
}

func newBroadcaster(logger *slog.Logger) *broadcaster {
	return &broadcaster{
		logger:      logger,
		subscribers: make(map[chan<- message]struct{}),
	}
}

// bind forwards the engine's notification streams into the broadcaster
// for the lifetime of the handler.
func (b *broadcaster) bind(e *cairn.Engine) {
	e.OnTransition(func(ev domain.TransitionEvent) { b.broadcast(kindTransitions, ev) })
	e.OnPrediction(func(ev domain.PredictionEvent) { b.broadcast(kindPredictions, ev) })
	e.OnSession(func(ev domain.SessionEvent) { b.broadcast(kindSessions, ev) })
}

func (b *broadcaster) subscribe() (chan message, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan message, 10)
	b.subscribers[ch] = struct{}{}

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subscribers[ch]; ok {
			delete(b.subscribers, ch)
			close(ch)
		}
	}
}

func (b *broadcaster) broadcast(kind string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		b.logger.Error("stream payload marshal failed", "kind", kind, "error", err)
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers {
		select {
		case ch <- message{kind: kind, data: data}:
		default:
			// Drop for slow clients rather than blocking the engine.
			b.logger.Warn("sse client buffer full, dropping message", "kind", kind)
		}
	}
}

// streamActivity handles the GET /stream request (SSE).
func (s *Server) streamActivity(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("stream: flushing not supported")
		return
	}

	var watch *string
	if err := bindQuery(r, "watch", &watch); err != nil {
		s.badRequest(w, err.Error())
		return
	}
	keep := map[string]bool{}
	if watch != nil {
		for _, kind := range strings.Split(*watch, ",") {
			keep[strings.TrimSpace(kind)] = true
		}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.streams.subscribe()
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("sse client disconnected")
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if len(keep) > 0 && !keep[msg.kind] {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.kind, msg.data)
			flusher.Flush()
		}
	}
}

// watchDefinition handles the GET /watch request (SSE). One reload
// event is emitted each time the definition source changes on disk.
func (s *Server) watchDefinition(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("watch: flushing not supported")
		return
	}

	events, err := s.engine.Watch(r.Context())
	if err != nil {
		s.writeJSON(w, http.StatusNotImplemented, &domain.Error{
			Code:    "unsupported",
			Message: err.Error(),
		})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: reload\ndata: %s\n\n", event)
			flusher.Flush()
		}
	}
}

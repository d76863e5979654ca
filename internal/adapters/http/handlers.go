package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	presentation "github.com/aretw0/cairn/internal/presentation/graph"
	"github.com/aretw0/cairn/pkg/domain"
	"github.com/aretw0/cairn/pkg/graph"
	"github.com/aretw0/cairn/pkg/ports"
	"github.com/aretw0/cairn/pkg/schema"
	"github.com/aretw0/cairn/pkg/weights"
)

// bindQuery binds one form-style query parameter into dest, which must
// be a pointer. An absent parameter leaves dest untouched.
func bindQuery(r *http.Request, name string, dest any) error {
	return runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), dest)
}

// decodeBody decodes a JSON request body into dest. An empty body is
// not an error; handlers with required fields check those themselves.
func decodeBody(r *http.Request, dest any) error {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

type recordRequest struct {
	From      string         `json:"from"`
	To        string         `json:"to"`
	Actor     string         `json:"actor,omitempty"`
	SessionID string         `json:"session_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// recordTransition handles the POST /transitions request.
func (s *Server) recordTransition(w http.ResponseWriter, r *http.Request) {
	var req recordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.badRequest(w, "invalid request body")
		return
	}
	if req.From == "" || req.To == "" {
		s.badRequest(w, "from and to are required")
		return
	}
	actor := domain.Actor(req.Actor)
	if actor != "" && !actor.Valid() {
		s.badRequest(w, fmt.Sprintf("unknown actor %q", req.Actor))
		return
	}

	rc := domain.RecordContext{
		Actor:     actor,
		SessionID: req.SessionID,
		Metadata:  req.Metadata,
	}
	if err := s.engine.RecordTransition(r.Context(), req.From, req.To, rc); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// predictNext handles the GET /predictions/{node} request.
func (s *Server) predictNext(w http.ResponseWriter, r *http.Request) {
	node := chi.URLParam(r, "node")

	var (
		actor    *string
		count    *int
		detailed *bool
	)
	if err := bindQuery(r, "actor", &actor); err != nil {
		s.badRequest(w, err.Error())
		return
	}
	if err := bindQuery(r, "count", &count); err != nil {
		s.badRequest(w, err.Error())
		return
	}
	if err := bindQuery(r, "detailed", &detailed); err != nil {
		s.badRequest(w, err.Error())
		return
	}

	if !s.engine.Graph().HasNode(node) {
		s.writeError(w, domain.NewNodeNotFound(node))
		return
	}

	pc := domain.PredictContext{}
	if actor != nil {
		a := domain.Actor(*actor)
		if !a.Valid() {
			s.badRequest(w, fmt.Sprintf("unknown actor %q", *actor))
			return
		}
		pc.Actor = a
	}
	if count != nil {
		pc.Count = *count
	}

	if detailed != nil && *detailed {
		s.writeJSON(w, http.StatusOK, s.engine.PredictNextDetailed(node, pc))
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"node":       node,
		"candidates": orEmpty(s.engine.PredictNext(node, pc)),
	})
}

// listSessions handles the GET /sessions request.
func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, orEmpty(s.engine.Sessions(r.Context())))
}

// startSession handles the POST /sessions request.
func (s *Server) startSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Actor string `json:"actor"`
		ID    string `json:"id"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.badRequest(w, "invalid request body")
		return
	}
	actor := domain.Actor(req.Actor)
	if actor != "" && !actor.Valid() {
		s.badRequest(w, fmt.Sprintf("unknown actor %q", req.Actor))
		return
	}

	info, err := s.engine.StartSession(r.Context(), actor, req.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, info)
}

// getSession handles the GET /sessions/{id} request.
func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	info, err := s.engine.Session(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, info)
}

// endSession handles the POST /sessions/{id}/end request.
func (s *Server) endSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.badRequest(w, "invalid request body")
		return
	}
	reason := domain.EndReason(req.Reason)
	switch reason {
	case "", domain.EndCompleted, domain.EndAbandoned, domain.EndTimeout:
	default:
		s.badRequest(w, fmt.Sprintf("unknown end reason %q", req.Reason))
		return
	}

	info, err := s.engine.EndSession(r.Context(), chi.URLParam(r, "id"), reason)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, info)
}

// resumeSession handles the POST /sessions/{id}/resume request.
func (s *Server) resumeSession(w http.ResponseWriter, r *http.Request) {
	info, err := s.engine.ResumeSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, info)
}

// truncateChain handles the POST /sessions/{id}/truncate request.
func (s *Server) truncateChain(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Strategy string `json:"strategy"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.badRequest(w, "invalid request body")
		return
	}
	strategy := domain.TruncateStrategy(req.Strategy)
	switch strategy {
	case "", domain.TruncateRecency, domain.TruncateFrequency, domain.TruncateHybrid:
	default:
		s.badRequest(w, fmt.Sprintf("unknown truncate strategy %q", req.Strategy))
		return
	}

	dropped, err := s.engine.TruncateChain(chi.URLParam(r, "id"), strategy)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int{"dropped": dropped})
}

// getChain handles the GET /chain request.
func (s *Server) getChain(w http.ResponseWriter, r *http.Request) {
	var (
		actor        *string
		since, until *time.Time
		limit        *int
	)
	if err := bindQuery(r, "actor", &actor); err != nil {
		s.badRequest(w, err.Error())
		return
	}
	if err := bindQuery(r, "since", &since); err != nil {
		s.badRequest(w, err.Error())
		return
	}
	if err := bindQuery(r, "until", &until); err != nil {
		s.badRequest(w, err.Error())
		return
	}
	if err := bindQuery(r, "limit", &limit); err != nil {
		s.badRequest(w, err.Error())
		return
	}

	a := domain.Actor("")
	if actor != nil {
		a = domain.Actor(*actor)
		if !a.Valid() {
			s.badRequest(w, fmt.Sprintf("unknown actor %q", *actor))
			return
		}
	}
	opts := domain.ChainOptions{}
	if since != nil {
		opts.Since = *since
	}
	if until != nil {
		opts.Until = *until
	}
	if limit != nil {
		opts.Limit = *limit
	}

	s.writeJSON(w, http.StatusOK, orEmpty(s.engine.SessionChain(a, opts)))
}

// queryEvents handles the GET /events request.
func (s *Server) queryEvents(w http.ResponseWriter, r *http.Request) {
	var (
		sessionID, actor, from, to, eventType *string
		limit                                 *int
	)
	if err := bindQuery(r, "session_id", &sessionID); err != nil {
		s.badRequest(w, err.Error())
		return
	}
	if err := bindQuery(r, "actor", &actor); err != nil {
		s.badRequest(w, err.Error())
		return
	}
	if err := bindQuery(r, "from", &from); err != nil {
		s.badRequest(w, err.Error())
		return
	}
	if err := bindQuery(r, "to", &to); err != nil {
		s.badRequest(w, err.Error())
		return
	}
	if err := bindQuery(r, "type", &eventType); err != nil {
		s.badRequest(w, err.Error())
		return
	}
	if err := bindQuery(r, "limit", &limit); err != nil {
		s.badRequest(w, err.Error())
		return
	}

	filter := ports.EventFilter{}
	if sessionID != nil {
		filter.SessionID = *sessionID
	}
	if actor != nil {
		a := domain.Actor(*actor)
		if !a.Valid() {
			s.badRequest(w, fmt.Sprintf("unknown actor %q", *actor))
			return
		}
		filter.Actor = a
	}
	if from != nil {
		filter.From = *from
	}
	if to != nil {
		filter.To = *to
	}
	if eventType != nil {
		et := domain.EventType(*eventType)
		switch et {
		case domain.EventTransition, domain.EventSessionStart, domain.EventSessionEnd:
		default:
			s.badRequest(w, fmt.Sprintf("unknown event type %q", *eventType))
			return
		}
		filter.Types = []domain.EventType{et}
	}
	if limit != nil {
		filter.Limit = *limit
	}

	events, err := s.engine.Events(r.Context(), filter)
	if err != nil {
		s.writeError(w, err)
		return
	}

	// Count ignores the limit so clients can page.
	unbounded := filter
	unbounded.Limit = 0
	count, err := s.engine.EventCount(r.Context(), unbounded)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"events": orEmpty(events),
		"count":  count,
	})
}

// getAnalysisSummary handles the GET /analysis/summary request.
func (s *Server) getAnalysisSummary(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.engine.AnalysisSummary())
}

// getLoops handles the GET /analysis/loops request.
func (s *Server) getLoops(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, orEmpty(s.engine.Loops()))
}

// getBottlenecks handles the GET /analysis/bottlenecks request.
func (s *Server) getBottlenecks(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, orEmpty(s.engine.Bottlenecks()))
}

// getAutomationCandidates handles the GET /analysis/automation request.
func (s *Server) getAutomationCandidates(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, orEmpty(s.engine.AutomationCandidates()))
}

// getSCCs handles the GET /analysis/scc request.
func (s *Server) getSCCs(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, orEmpty(s.engine.StronglyConnectedComponents()))
}

// getGraph handles the GET /graph request.
func (s *Server) getGraph(w http.ResponseWriter, r *http.Request) {
	g := s.engine.Graph()
	def := graph.Definition{
		Nodes:      g.Nodes(),
		Procedures: g.Procedures(),
	}
	for _, n := range g.Nodes() {
		def.Transitions = append(def.Transitions, g.Transitions(n.ID)...)
	}
	s.writeJSON(w, http.StatusOK, def)
}

// getGraphStats handles the GET /graph/stats request.
func (s *Server) getGraphStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.engine.Graph().Stats())
}

// validateGraph handles the GET /graph/validation request.
func (s *Server) validateGraph(w http.ResponseWriter, r *http.Request) {
	findings := s.engine.Graph().Validate()
	valid := true
	for _, f := range findings {
		if f.Severity == graph.SeverityError {
			valid = false
			break
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"valid":    valid,
		"findings": orEmpty(findings),
	})
}

// getGraphMermaid handles the GET /graph/mermaid request.
func (s *Server) getGraphMermaid(w http.ResponseWriter, r *http.Request) {
	var (
		withWeights, highlights *bool
		actor                   *string
	)
	if err := bindQuery(r, "weights", &withWeights); err != nil {
		s.badRequest(w, err.Error())
		return
	}
	if err := bindQuery(r, "actor", &actor); err != nil {
		s.badRequest(w, err.Error())
		return
	}
	if err := bindQuery(r, "highlights", &highlights); err != nil {
		s.badRequest(w, err.Error())
		return
	}

	var opts []presentation.Option
	if withWeights != nil && *withWeights {
		a := domain.ActorUser
		if actor != nil {
			a = domain.Actor(*actor)
			if !a.Valid() {
				s.badRequest(w, fmt.Sprintf("unknown actor %q", *actor))
				return
			}
		}
		opts = append(opts, presentation.WithWeights(func(from, to string) float64 {
			return s.engine.Weight(from, to, a)
		}))
	}
	if highlights != nil && *highlights {
		var bottlenecks []string
		for _, b := range s.engine.Bottlenecks() {
			bottlenecks = append(bottlenecks, b.Node)
		}
		var loopNodes []string
		for _, l := range s.engine.Loops() {
			loopNodes = append(loopNodes, l.SCC.Nodes...)
		}
		opts = append(opts,
			presentation.WithBottlenecks(bottlenecks...),
			presentation.WithLoopNodes(loopNodes...),
		)
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, presentation.GenerateMermaid(s.engine.Graph(), opts...))
}

// exportWeights handles the GET /weights/export request.
func (s *Server) exportWeights(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.engine.Export())
}

// importWeights handles the POST /weights/import request.
func (s *Server) importWeights(w http.ResponseWriter, r *http.Request) {
	var snap schema.Snapshot
	if err := json.NewDecoder(r.Body).Decode(&snap); err != nil {
		s.badRequest(w, "invalid snapshot body")
		return
	}
	if err := s.engine.Import(&snap); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// applyDecay handles the POST /weights/decay request.
func (s *Server) applyDecay(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.engine.ApplyDecay())
}

// preloadWeights handles the POST /weights/preload request.
func (s *Server) preloadWeights(w http.ResponseWriter, r *http.Request) {
	var records []weights.PreloadRecord
	if err := json.NewDecoder(r.Body).Decode(&records); err != nil {
		s.badRequest(w, "invalid preload body")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int{"applied": s.engine.Preload(records)})
}

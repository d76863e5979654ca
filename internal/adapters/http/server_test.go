package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/cairn"
	"github.com/aretw0/cairn/pkg/adapters/memory"
	"github.com/aretw0/cairn/pkg/domain"
	"github.com/aretw0/cairn/pkg/graph"
)

func newTestEngine(t *testing.T, opts ...cairn.Option) *cairn.Engine {
	t.Helper()
	opts = append([]cairn.Option{
		cairn.WithTransitions(
			domain.Transition{From: "login", To: "inbox"},
			domain.Transition{From: "inbox", To: "triage"},
			domain.Transition{From: "triage", To: "reply"},
			domain.Transition{From: "reply", To: "inbox"},
		),
		cairn.WithEventStore(memory.NewEventStore()),
	}, opts...)
	engine, err := cairn.New(opts...)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	return engine
}

func newTestHandler(t *testing.T, opts ...cairn.Option) (http.Handler, *cairn.Engine) {
	t.Helper()
	engine := newTestEngine(t, opts...)
	handler, err := NewHandler(engine)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	return handler, engine
}

func do(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dest any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), dest); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
}

func errorCodeOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Code string `json:"code"`
	}
	decode(t, w, &resp)
	return resp.Code
}

func TestGetHealth(t *testing.T) {
	handler, _ := newTestHandler(t)

	w := do(t, handler, "GET", "/healthz", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp map[string]string
	decode(t, w, &resp)
	if resp["status"] != "ok" {
		t.Errorf("expected status ok, got %q", resp["status"])
	}
}

func TestGetInfo(t *testing.T) {
	handler, engine := newTestHandler(t)

	w := do(t, handler, "GET", "/info", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp map[string]string
	decode(t, w, &resp)
	if resp["app"] != "cairn-http" {
		t.Errorf("expected app cairn-http, got %q", resp["app"])
	}
	if resp["version"] == "" || strings.ContainsAny(resp["version"], " \n") {
		t.Errorf("expected trimmed version, got %q", resp["version"])
	}
	if resp["api_version"] != "1.0.0" {
		t.Errorf("expected api_version 1.0.0, got %q", resp["api_version"])
	}
	if resp["model_id"] != engine.ModelID() {
		t.Errorf("expected model_id %q, got %q", engine.ModelID(), resp["model_id"])
	}
}

func TestRecordTransition(t *testing.T) {
	handler, engine := newTestHandler(t)

	w := do(t, handler, "POST", "/transitions", map[string]any{"from": "login", "to": "inbox"})
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", w.Code, w.Body.String())
	}
	if engine.TransitionCount() != 1 {
		t.Errorf("expected 1 recorded transition, got %d", engine.TransitionCount())
	}
}

func TestRecordTransitionRejections(t *testing.T) {
	handler, _ := newTestHandler(t)

	// Undeclared pair.
	w := do(t, handler, "POST", "/transitions", map[string]any{"from": "triage", "to": "login"})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
	if code := errorCodeOf(t, w); code != "invalid_transition" {
		t.Errorf("expected invalid_transition, got %q", code)
	}

	// Unknown actor.
	w = do(t, handler, "POST", "/transitions", map[string]any{"from": "login", "to": "inbox", "actor": "robot"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown actor, got %d", w.Code)
	}

	// Missing required fields.
	w = do(t, handler, "POST", "/transitions", map[string]any{"from": "login"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing to, got %d", w.Code)
	}

	// Malformed body.
	req := httptest.NewRequest("POST", "/transitions", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed body, got %d", rec.Code)
	}
}

func TestPredictNext(t *testing.T) {
	handler, engine := newTestHandler(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := engine.RecordTransition(ctx, "inbox", "triage", domain.RecordContext{}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	w := do(t, handler, "GET", "/predictions/inbox?actor=user&count=2", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Node       string   `json:"node"`
		Candidates []string `json:"candidates"`
	}
	decode(t, w, &resp)
	if resp.Node != "inbox" {
		t.Errorf("expected node inbox, got %q", resp.Node)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0] != "triage" {
		t.Errorf("expected triage as first candidate, got %v", resp.Candidates)
	}

	// Detailed view carries scores and warmup state.
	w = do(t, handler, "GET", "/predictions/inbox?detailed=true", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var detailed domain.Prediction
	decode(t, w, &detailed)
	if len(detailed.Candidates) == 0 {
		t.Fatal("expected detailed candidates")
	}
	if detailed.Candidates[0].To != "triage" {
		t.Errorf("expected triage first, got %q", detailed.Candidates[0].To)
	}
	if detailed.TransitionCount != 3 {
		t.Errorf("expected transition count 3, got %d", detailed.TransitionCount)
	}
}

func TestPredictNextRejections(t *testing.T) {
	handler, _ := newTestHandler(t)

	w := do(t, handler, "GET", "/predictions/nowhere", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if code := errorCodeOf(t, w); code != "node_not_found" {
		t.Errorf("expected node_not_found, got %q", code)
	}

	w = do(t, handler, "GET", "/predictions/inbox?actor=robot", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown actor, got %d", w.Code)
	}

	w = do(t, handler, "GET", "/predictions/inbox?count=many", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for non-integer count, got %d", w.Code)
	}
}

func TestSessionLifecycle(t *testing.T) {
	handler, _ := newTestHandler(t)

	w := do(t, handler, "POST", "/sessions", map[string]any{"actor": "user", "id": "sess-1"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var info domain.SessionInfo
	decode(t, w, &info)
	if info.ID != "sess-1" || !info.Active {
		t.Errorf("expected active sess-1, got %+v", info)
	}

	w = do(t, handler, "GET", "/sessions/sess-1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	w = do(t, handler, "GET", "/sessions", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var all []domain.SessionInfo
	decode(t, w, &all)
	if len(all) != 1 {
		t.Fatalf("expected 1 session, got %d", len(all))
	}

	w = do(t, handler, "POST", "/sessions/sess-1/end", map[string]any{"reason": "abandoned"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	decode(t, w, &info)
	if info.Active || info.EndReason != domain.EndAbandoned {
		t.Errorf("expected abandoned session, got %+v", info)
	}

	w = do(t, handler, "POST", "/sessions/sess-1/resume", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	decode(t, w, &info)
	if !info.Active {
		t.Error("expected resumed session to be active")
	}
}

func TestSessionErrors(t *testing.T) {
	handler, _ := newTestHandler(t)

	w := do(t, handler, "GET", "/sessions/ghost", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown session, got %d", w.Code)
	}

	w = do(t, handler, "POST", "/sessions", map[string]any{"id": "sess-1"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}

	// IDs stay taken for the engine's whole lifetime.
	w = do(t, handler, "POST", "/sessions", map[string]any{"id": "sess-1"})
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409 for duplicate id, got %d", w.Code)
	}
	if code := errorCodeOf(t, w); code != "duplicate_session" {
		t.Errorf("expected duplicate_session, got %q", code)
	}

	w = do(t, handler, "POST", "/sessions/sess-1/end", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	w = do(t, handler, "POST", "/sessions/sess-1/end", nil)
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409 for double end, got %d", w.Code)
	}

	w = do(t, handler, "POST", "/sessions/sess-1/end", map[string]any{"reason": "rage_quit"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown reason, got %d", w.Code)
	}

	w = do(t, handler, "POST", "/sessions", map[string]any{"actor": "robot"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown actor, got %d", w.Code)
	}
}

func TestTruncateChain(t *testing.T) {
	handler, engine := newTestHandler(t)
	ctx := context.Background()
	if _, err := engine.StartSession(ctx, domain.ActorUser, "sess-1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	rc := domain.RecordContext{SessionID: "sess-1"}
	if err := engine.RecordTransition(ctx, "login", "inbox", rc); err != nil {
		t.Fatalf("record: %v", err)
	}

	w := do(t, handler, "POST", "/sessions/sess-1/truncate", map[string]any{"strategy": "recency"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp map[string]int
	decode(t, w, &resp)
	if resp["dropped"] != 0 {
		t.Errorf("expected nothing dropped under the cap, got %d", resp["dropped"])
	}

	w = do(t, handler, "POST", "/sessions/sess-1/truncate", map[string]any{"strategy": "oldest"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown strategy, got %d", w.Code)
	}

	w = do(t, handler, "POST", "/sessions/ghost/truncate", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown session, got %d", w.Code)
	}
}

func TestGetChain(t *testing.T) {
	handler, engine := newTestHandler(t)
	ctx := context.Background()
	if _, err := engine.StartSession(ctx, domain.ActorUser, "sess-1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	rc := domain.RecordContext{SessionID: "sess-1"}
	for _, step := range [][2]string{{"login", "inbox"}, {"inbox", "triage"}} {
		if err := engine.RecordTransition(ctx, step[0], step[1], rc); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	w := do(t, handler, "GET", "/chain?actor=user", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var chain []domain.ActionEvent
	decode(t, w, &chain)
	if len(chain) < 2 {
		t.Fatalf("expected at least 2 chain events, got %d", len(chain))
	}

	w = do(t, handler, "GET", "/chain?limit=1", nil)
	decode(t, w, &chain)
	if len(chain) != 1 {
		t.Errorf("expected limit to cap the chain at 1, got %d", len(chain))
	}

	since := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
	w = do(t, handler, "GET", "/chain?since="+since, nil)
	decode(t, w, &chain)
	if len(chain) != 0 {
		t.Errorf("expected empty chain for a future window, got %d", len(chain))
	}

	w = do(t, handler, "GET", "/chain?since=yesterday", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed time, got %d", w.Code)
	}
}

func TestQueryEvents(t *testing.T) {
	handler, engine := newTestHandler(t)
	ctx := context.Background()
	if _, err := engine.StartSession(ctx, domain.ActorUser, "sess-1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	rc := domain.RecordContext{SessionID: "sess-1"}
	for _, step := range [][2]string{{"login", "inbox"}, {"inbox", "triage"}} {
		if err := engine.RecordTransition(ctx, step[0], step[1], rc); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	w := do(t, handler, "GET", "/events?type=transition&session_id=sess-1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Events []domain.ActionEvent `json:"events"`
		Count  uint64               `json:"count"`
	}
	decode(t, w, &resp)
	if len(resp.Events) != 2 || resp.Count != 2 {
		t.Errorf("expected 2 transition events, got %d (count %d)", len(resp.Events), resp.Count)
	}
	for _, ev := range resp.Events {
		if ev.Type != domain.EventTransition {
			t.Errorf("expected transition events only, got %q", ev.Type)
		}
	}

	// Count is unbounded even when limit truncates the page.
	w = do(t, handler, "GET", "/events?type=transition&limit=1", nil)
	decode(t, w, &resp)
	if len(resp.Events) != 1 || resp.Count != 2 {
		t.Errorf("expected 1 event with count 2, got %d (count %d)", len(resp.Events), resp.Count)
	}

	w = do(t, handler, "GET", "/events?type=teleport", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown type, got %d", w.Code)
	}
}

func TestGraphEndpoints(t *testing.T) {
	handler, _ := newTestHandler(t)

	w := do(t, handler, "GET", "/graph", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var def graph.Definition
	decode(t, w, &def)
	if len(def.Nodes) != 4 || len(def.Transitions) != 4 {
		t.Errorf("expected 4 nodes and 4 transitions, got %d and %d", len(def.Nodes), len(def.Transitions))
	}

	w = do(t, handler, "GET", "/graph/stats", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var stats graph.Stats
	decode(t, w, &stats)
	if stats.Nodes != 4 || stats.Transitions != 4 {
		t.Errorf("unexpected stats %+v", stats)
	}

	w = do(t, handler, "GET", "/graph/validation", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var validation struct {
		Valid    bool            `json:"valid"`
		Findings []graph.Finding `json:"findings"`
	}
	decode(t, w, &validation)
	if !validation.Valid {
		t.Errorf("expected a valid graph, findings: %+v", validation.Findings)
	}
}

func TestGraphMermaid(t *testing.T) {
	handler, engine := newTestHandler(t)
	if err := engine.RecordTransition(context.Background(), "login", "inbox", domain.RecordContext{}); err != nil {
		t.Fatalf("record: %v", err)
	}

	w := do(t, handler, "GET", "/graph/mermaid", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("expected text/plain, got %q", ct)
	}
	body := w.Body.String()
	if !strings.Contains(body, "graph TD") {
		t.Error("expected mermaid header")
	}
	if strings.Contains(body, "1.00") {
		t.Error("expected no weight labels without weights=true")
	}

	w = do(t, handler, "GET", "/graph/mermaid?weights=true&actor=user&highlights=true", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `-- "1.00" -->`) {
		t.Errorf("expected learned weight label, got:\n%s", w.Body.String())
	}

	w = do(t, handler, "GET", "/graph/mermaid?weights=maybe", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for non-boolean weights, got %d", w.Code)
	}
}

func TestAnalysisEndpoints(t *testing.T) {
	handler, _ := newTestHandler(t)

	w := do(t, handler, "GET", "/analysis/summary", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var summary struct {
		SCCs int `json:"sccs"`
	}
	decode(t, w, &summary)
	// The inbox -> triage -> reply cycle plus the login singleton.
	if summary.SCCs != 2 {
		t.Errorf("expected 2 components, got %d", summary.SCCs)
	}

	w = do(t, handler, "GET", "/analysis/scc", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var sccs []struct {
		Nodes []string `json:"nodes"`
	}
	decode(t, w, &sccs)
	if len(sccs) != 2 {
		t.Fatalf("expected 2 components, got %+v", sccs)
	}
	largest := 0
	for _, c := range sccs {
		if len(c.Nodes) > largest {
			largest = len(c.Nodes)
		}
	}
	if largest != 3 {
		t.Errorf("expected a 3-node cycle component, got %+v", sccs)
	}

	for _, path := range []string{"/analysis/loops", "/analysis/bottlenecks", "/analysis/automation"} {
		w = do(t, handler, "GET", path, nil)
		if w.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, w.Code)
		}
		if !strings.HasPrefix(strings.TrimSpace(w.Body.String()), "[") {
			t.Errorf("%s: expected a JSON array, got %q", path, w.Body.String())
		}
	}
}

func TestWeightsRoundTrip(t *testing.T) {
	handler, engine := newTestHandler(t)
	if err := engine.RecordTransition(context.Background(), "login", "inbox", domain.RecordContext{}); err != nil {
		t.Fatalf("record: %v", err)
	}

	w := do(t, handler, "GET", "/weights/export", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var snap map[string]any
	decode(t, w, &snap)
	weights, ok := snap["weights"].([]any)
	if !ok || len(weights) != 1 {
		t.Fatalf("expected 1 exported weight, got %v", snap["weights"])
	}

	w = do(t, handler, "POST", "/weights/import", snap)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", w.Code, w.Body.String())
	}

	snap["version"] = 999
	w = do(t, handler, "POST", "/weights/import", snap)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for foreign schema version, got %d", w.Code)
	}
	if code := errorCodeOf(t, w); code != "model_mismatch" {
		t.Errorf("expected model_mismatch, got %q", code)
	}

	req := httptest.NewRequest("POST", "/weights/import", strings.NewReader("{broken"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed snapshot, got %d", rec.Code)
	}
}

func TestDecayAndPreload(t *testing.T) {
	handler, engine := newTestHandler(t)

	w := do(t, handler, "POST", "/weights/preload", []map[string]any{
		{"from": "login", "to": "inbox", "count": 5},
		{"from": "inbox", "to": "triage", "actor": "automation", "count": 2},
		{"from": "nowhere", "to": "inbox", "count": 9},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var applied map[string]int
	decode(t, w, &applied)
	// The undeclared pair is skipped.
	if applied["applied"] != 2 {
		t.Errorf("expected 2 applied records, got %d", applied["applied"])
	}
	// Decay between preload and read shaves a hair off the stored 5.
	if got := engine.Weight("login", "inbox", domain.ActorUser); got < 4.99 || got > 5.01 {
		t.Errorf("expected preloaded weight near 5, got %v", got)
	}

	w = do(t, handler, "POST", "/weights/decay", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var result struct {
		Scanned int `json:"scanned"`
	}
	decode(t, w, &result)
	if result.Scanned != 2 {
		t.Errorf("expected 2 scanned entries, got %d", result.Scanned)
	}

	req := httptest.NewRequest("POST", "/weights/preload", strings.NewReader("{}"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for non-array body, got %d", rec.Code)
	}
}

func TestStreamActivity(t *testing.T) {
	handler, engine := newTestHandler(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wSub := httptest.NewRecorder()
	reqSub := httptest.NewRequest("GET", "/stream?watch=transitions", nil).WithContext(ctx)

	go func() {
		handler.ServeHTTP(wSub, reqSub)
	}()

	time.Sleep(100 * time.Millisecond) // Wait for subscription to register

	w := do(t, handler, "POST", "/transitions", map[string]any{"from": "login", "to": "inbox"})
	if w.Code != http.StatusNoContent {
		t.Fatalf("record failed: %d %s", w.Code, w.Body.String())
	}
	// Predictions are filtered out by ?watch=transitions.
	engine.PredictNext("inbox", domain.PredictContext{})

	time.Sleep(100 * time.Millisecond)
	cancel()
	time.Sleep(50 * time.Millisecond)

	output := wSub.Body.String()
	if !strings.Contains(output, "event: ping") {
		t.Error("expected initial ping")
	}
	if !strings.Contains(output, "event: transitions") {
		t.Errorf("expected a transition event, got:\n%s", output)
	}
	if !strings.Contains(output, `"from":"login"`) {
		t.Errorf("expected transition payload, got:\n%s", output)
	}
	if strings.Contains(output, "event: predictions") {
		t.Errorf("expected predictions to be filtered out, got:\n%s", output)
	}
}

func TestWatchDefinition(t *testing.T) {
	// Without a source there is nothing to watch.
	handler, _ := newTestHandler(t)
	w := do(t, handler, "GET", "/watch", nil)
	if w.Code != http.StatusNotImplemented {
		t.Fatalf("expected 501, got %d", w.Code)
	}

	def := &graph.Definition{Transitions: []domain.Transition{
		{From: "login", To: "inbox"},
	}}
	src := memory.NewSource(def)
	engine, err := cairn.New(cairn.WithSource(src))
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	watchable, err := NewHandler(engine)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wSub := httptest.NewRecorder()
	reqSub := httptest.NewRequest("GET", "/watch", nil).WithContext(ctx)

	go func() {
		watchable.ServeHTTP(wSub, reqSub)
	}()

	time.Sleep(100 * time.Millisecond)
	src.Update(def)
	time.Sleep(100 * time.Millisecond)
	cancel()
	time.Sleep(50 * time.Millisecond)

	output := wSub.Body.String()
	if !strings.Contains(output, "event: ping") {
		t.Error("expected initial ping")
	}
	if !strings.Contains(output, "event: reload") {
		t.Errorf("expected a reload event, got:\n%s", output)
	}
}

func TestContractAndDocs(t *testing.T) {
	if _, err := loadContract(); err != nil {
		t.Fatalf("embedded contract does not validate: %v", err)
	}

	handler, _ := newTestHandler(t)

	w := do(t, handler, "GET", "/openapi.yaml", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "openapi: 3.0.3") {
		t.Error("expected the raw contract body")
	}

	w = do(t, handler, "GET", "/docs", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "swagger-ui") {
		t.Error("expected the Swagger UI page")
	}
}

func TestCORS(t *testing.T) {
	handler, _ := newTestHandler(t)

	req := httptest.NewRequest("OPTIONS", "/transitions", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200 for preflight, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("expected wildcard origin, got %q", got)
	}
}

func TestMetricsRoute(t *testing.T) {
	engine := newTestEngine(t)
	stub := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("# metrics"))
	})
	handler, err := NewHandler(engine, WithMetricsHandler(stub))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}

	w := do(t, handler, "GET", "/metrics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Body.String() != "# metrics" {
		t.Errorf("expected the injected handler to serve, got %q", w.Body.String())
	}

	// Without the option the route is absent.
	bare, _ := newTestHandler(t)
	w = do(t, bare, "GET", "/metrics", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 without a metrics handler, got %d", w.Code)
	}
}

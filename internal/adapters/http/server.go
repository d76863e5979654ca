package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"

	"github.com/aretw0/cairn"
	"github.com/aretw0/cairn/internal/logging"
)

// Server exposes a cairn engine over HTTP. The route tree mirrors the
// embedded contract served at /openapi.yaml; /docs renders it with
// Swagger UI.
type Server struct {
	engine   *cairn.Engine
	logger   *slog.Logger
	contract *openapi3.T
	streams  *broadcaster
	metrics  http.Handler
}

// Option configures the handler.
type Option func(*Server)

// WithLogger sets the request logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithMetricsHandler mounts h at /metrics. Pass promhttp.HandlerFor
// over the registry the observability collector registered into.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// NewHandler builds the full route tree for the engine. The embedded
// contract is parsed and validated here so drift between the YAML and
// the handlers surfaces at startup, not on the first /docs visit.
func NewHandler(engine *cairn.Engine, opts ...Option) (http.Handler, error) {
	contract, err := loadContract()
	if err != nil {
		return nil, err
	}

	s := &Server{
		engine:   engine,
		logger:   logging.NewNop(),
		contract: contract,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.streams = newBroadcaster(s.logger)
	s.streams.bind(engine)

	r := chi.NewRouter()

	r.Get("/healthz", s.getHealth)
	r.Get("/info", s.getInfo)
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(contractYAML)
	})
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(swaggerHTML))
	})
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}

	r.Post("/transitions", s.recordTransition)
	r.Get("/predictions/{node}", s.predictNext)

	r.Get("/sessions", s.listSessions)
	r.Post("/sessions", s.startSession)
	r.Get("/sessions/{id}", s.getSession)
	r.Post("/sessions/{id}/end", s.endSession)
	r.Post("/sessions/{id}/resume", s.resumeSession)
	r.Post("/sessions/{id}/truncate", s.truncateChain)
	r.Get("/chain", s.getChain)
	r.Get("/events", s.queryEvents)

	r.Get("/analysis/summary", s.getAnalysisSummary)
	r.Get("/analysis/loops", s.getLoops)
	r.Get("/analysis/bottlenecks", s.getBottlenecks)
	r.Get("/analysis/automation", s.getAutomationCandidates)
	r.Get("/analysis/scc", s.getSCCs)

	r.Get("/graph", s.getGraph)
	r.Get("/graph/stats", s.getGraphStats)
	r.Get("/graph/validation", s.validateGraph)
	r.Get("/graph/mermaid", s.getGraphMermaid)

	r.Get("/weights/export", s.exportWeights)
	r.Post("/weights/import", s.importWeights)
	r.Post("/weights/decay", s.applyDecay)
	r.Post("/weights/preload", s.preloadWeights)

	r.Get("/watch", s.watchDefinition)
	r.Get("/stream", s.streamActivity)

	return enableCORS(r), nil
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Custom-Header")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// getHealth handles the GET /healthz request.
func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// getInfo handles the GET /info request.
func (s *Server) getInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if s.contract.Info != nil {
		apiVersion = s.contract.Info.Version
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":         "cairn-http",
		"version":     strings.TrimSpace(cairn.Version),
		"api_version": apiVersion,
		"model_id":    s.engine.ModelID(),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}

// orEmpty keeps list responses as JSON arrays even when nothing
// matched.
func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>Cairn API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/cairn"
	"github.com/aretw0/cairn/internal/dto"
	"github.com/aretw0/cairn/pkg/analyzer"
	"github.com/aretw0/cairn/pkg/domain"
	"github.com/aretw0/cairn/pkg/graph"
	"github.com/aretw0/cairn/pkg/schema"
)

// RecordResponse aligns with the HTTP adapter's record behavior and
// reports the engine's running total.
type RecordResponse struct {
	Recorded        bool   `json:"recorded" jsonschema_description:"Whether the transition was accepted"`
	TransitionCount uint64 `json:"transition_count" jsonschema_description:"Total transitions recorded by this engine"`
}

// Server exposes a cairn engine as an MCP server.
type Server struct {
	engine    *cairn.Engine
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP server instance over the engine.
func NewServer(engine *cairn.Engine) *Server {
	s := &Server{
		engine:    engine,
		mcpServer: server.NewMCPServer("cairn-mcp", strings.TrimSpace(cairn.Version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)

	go func() {
		slog.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		// Create a timeout context for the graceful shutdown
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		fmt.Println("\nShutdown signal received, shutting down server...")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		slog.Debug("CORS Middleware", "method", r.Method, "path", r.URL.Path)
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With, Baggage, Sentry-Trace")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	// TOOL: record_transition
	recordTool := mcp.NewTool("record_transition",
		mcp.WithDescription("Record one observed transition so the engine learns from it."),
		mcp.WithString("from", mcp.Required(), mcp.Description("Source node ID")),
		mcp.WithString("to", mcp.Required(), mcp.Description("Destination node ID")),
		mcp.WithString("actor", mcp.Description("Who performed it: user, system or automation (defaults to user)")),
		mcp.WithString("session_id", mcp.Description("Session to attach the transition to (optional)")),
		mcp.WithString("metadata", mcp.Description("JSON object of transition metadata (optional)")),
		mcp.WithOutputSchema[RecordResponse](),
	)
	s.mcpServer.AddTool(recordTool, mcp.NewStructuredToolHandler(s.handleRecordTransition))

	// TOOL: predict_next
	predictTool := mcp.NewTool("predict_next",
		mcp.WithDescription("Predict the most likely next nodes from the given node."),
		mcp.WithString("node", mcp.Required(), mcp.Description("Current node ID")),
		mcp.WithString("actor", mcp.Description("Actor lane to predict for (defaults to user)")),
		mcp.WithNumber("count", mcp.Description("Maximum number of candidates (engine default when omitted)")),
		mcp.WithOutputSchema[domain.Prediction](),
	)
	s.mcpServer.AddTool(predictTool, mcp.NewStructuredToolHandler(s.handlePredictNext))

	// TOOL: start_session
	startTool := mcp.NewTool("start_session",
		mcp.WithDescription("Start a tracked session. Starting while the actor has an active session abandons the old one."),
		mcp.WithString("actor", mcp.Description("Session owner: user, system or automation (defaults to user)")),
		mcp.WithString("id", mcp.Description("Explicit session ID (generated when omitted)")),
		mcp.WithOutputSchema[domain.SessionInfo](),
	)
	s.mcpServer.AddTool(startTool, mcp.NewStructuredToolHandler(s.handleStartSession))

	// TOOL: end_session
	endTool := mcp.NewTool("end_session",
		mcp.WithDescription("End an active session."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithString("reason", mcp.Description("completed, abandoned or timeout (defaults to completed)")),
		mcp.WithOutputSchema[domain.SessionInfo](),
	)
	s.mcpServer.AddTool(endTool, mcp.NewStructuredToolHandler(s.handleEndSession))

	// TOOL: get_summary
	summaryTool := mcp.NewTool("get_summary",
		mcp.WithDescription("Run the full graph analysis: components, loops, bottlenecks and automation candidates."),
		mcp.WithOutputSchema[analyzer.Summary](),
	)
	s.mcpServer.AddTool(summaryTool, mcp.NewStructuredToolHandler(s.handleGetSummary))

	// TOOL: export_weights
	exportTool := mcp.NewTool("export_weights",
		mcp.WithDescription("Export the learned weights as a versioned snapshot."),
		mcp.WithOutputSchema[schema.Snapshot](),
	)
	s.mcpServer.AddTool(exportTool, mcp.NewStructuredToolHandler(s.handleExportWeights))
}

// Handler methods for structured tools

type recordArgs struct {
	From      string `mapstructure:"from"`
	To        string `mapstructure:"to"`
	Actor     string `mapstructure:"actor"`
	SessionID string `mapstructure:"session_id"`
}

func (s *Server) handleRecordTransition(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (RecordResponse, error) {
	var in recordArgs
	if err := dto.Decode(args, &in); err != nil {
		return RecordResponse{}, fmt.Errorf("invalid arguments: %w", err)
	}
	if in.From == "" || in.To == "" {
		return RecordResponse{}, fmt.Errorf("from and to are required")
	}
	actor := domain.Actor(in.Actor)
	if actor != "" && !actor.Valid() {
		return RecordResponse{}, fmt.Errorf("unknown actor %q", in.Actor)
	}

	var metadata map[string]any
	if metaStr, ok := args["metadata"].(string); ok && metaStr != "" {
		if err := json.Unmarshal([]byte(metaStr), &metadata); err != nil {
			return RecordResponse{}, fmt.Errorf("metadata is not a JSON object: %w", err)
		}
	}

	rc := domain.RecordContext{
		Actor:     actor,
		SessionID: in.SessionID,
		Metadata:  metadata,
	}
	if err := s.engine.RecordTransition(ctx, in.From, in.To, rc); err != nil {
		return RecordResponse{}, fmt.Errorf("record failed: %w", err)
	}

	return RecordResponse{
		Recorded:        true,
		TransitionCount: s.engine.TransitionCount(),
	}, nil
}

type predictArgs struct {
	Node  string `mapstructure:"node"`
	Actor string `mapstructure:"actor"`
	Count int    `mapstructure:"count"`
}

func (s *Server) handlePredictNext(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (domain.Prediction, error) {
	var in predictArgs
	if err := dto.Decode(args, &in); err != nil {
		return domain.Prediction{}, fmt.Errorf("invalid arguments: %w", err)
	}
	if in.Node == "" {
		return domain.Prediction{}, fmt.Errorf("node is required")
	}
	if !s.engine.Graph().HasNode(in.Node) {
		return domain.Prediction{}, fmt.Errorf("node %q does not exist", in.Node)
	}
	actor := domain.Actor(in.Actor)
	if actor != "" && !actor.Valid() {
		return domain.Prediction{}, fmt.Errorf("unknown actor %q", in.Actor)
	}

	p := s.engine.PredictNextDetailed(in.Node, domain.PredictContext{
		Actor: actor,
		Count: in.Count,
	})
	return *p, nil
}

type sessionArgs struct {
	ID     string `mapstructure:"id"`
	Actor  string `mapstructure:"actor"`
	Reason string `mapstructure:"reason"`
}

func (s *Server) handleStartSession(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (domain.SessionInfo, error) {
	var in sessionArgs
	if err := dto.Decode(args, &in); err != nil {
		return domain.SessionInfo{}, fmt.Errorf("invalid arguments: %w", err)
	}
	actor := domain.Actor(in.Actor)
	if actor != "" && !actor.Valid() {
		return domain.SessionInfo{}, fmt.Errorf("unknown actor %q", in.Actor)
	}

	info, err := s.engine.StartSession(ctx, actor, in.ID)
	if err != nil {
		return domain.SessionInfo{}, fmt.Errorf("start failed: %w", err)
	}
	return info, nil
}

func (s *Server) handleEndSession(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (domain.SessionInfo, error) {
	var in sessionArgs
	if err := dto.Decode(args, &in); err != nil {
		return domain.SessionInfo{}, fmt.Errorf("invalid arguments: %w", err)
	}
	if in.ID == "" {
		return domain.SessionInfo{}, fmt.Errorf("id is required")
	}
	reason := domain.EndReason(in.Reason)
	switch reason {
	case "", domain.EndCompleted, domain.EndAbandoned, domain.EndTimeout:
	default:
		return domain.SessionInfo{}, fmt.Errorf("unknown end reason %q", in.Reason)
	}

	info, err := s.engine.EndSession(ctx, in.ID, reason)
	if err != nil {
		return domain.SessionInfo{}, fmt.Errorf("end failed: %w", err)
	}
	return info, nil
}

func (s *Server) handleGetSummary(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (analyzer.Summary, error) {
	return s.engine.AnalysisSummary(), nil
}

func (s *Server) handleExportWeights(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (schema.Snapshot, error) {
	return *s.engine.Export(), nil
}

func (s *Server) registerResources() {
	// EXPOSE: cairn://graph
	s.mcpServer.AddResource(mcp.NewResource("cairn://graph", "Current Graph Definition",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		g := s.engine.Graph()
		def := graph.Definition{
			Nodes:      g.Nodes(),
			Procedures: g.Procedures(),
		}
		for _, n := range g.Nodes() {
			def.Transitions = append(def.Transitions, g.Transitions(n.ID)...)
		}
		jsonBytes, err := json.Marshal(def)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal graph: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "cairn://graph",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}

package mcp

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/amanrag/internal/answer"
	"github.com/Aman-CERP/amanrag/internal/index"
	"github.com/Aman-CERP/amanrag/internal/search"
	"github.com/Aman-CERP/amanrag/internal/store"
	"github.com/Aman-CERP/amanrag/internal/telemetry"
)

// ServerName is the implementation name reported to MCP clients.
const ServerName = "amanrag"

// Engine answers questions; *answer.Assembler implements it.
type Engine interface {
	Query(ctx context.Context, question string, opts answer.QueryOptions) (*answer.Answer, error)
}

// Retriever ranks passages; *search.Retriever implements it.
type Retriever interface {
	Retrieve(ctx context.Context, question string, opts search.Options) (*search.Retrieval, error)
}

// Index reports on the passage collection; *index.Coordinator implements it.
type Index interface {
	Status(ctx context.Context) (*index.Status, error)
	Sources(ctx context.Context) ([]store.SourceInfo, error)
}

// QueryLog records answered questions; *telemetry.QueryLog implements it.
type QueryLog interface {
	Record(ctx context.Context, question, mode string, sources int) error
	Stats(ctx context.Context, limit int) (*telemetry.QueryStats, error)
}

// Config holds the tool defaults.
type Config struct {
	// Defaults are applied to every ask/retrieve call before the tool arguments.
	Defaults answer.QueryOptions
	Version  string
}

// Option configures a Server.
type Option func(*Server)

// WithQueryLog records asked questions and exposes the query_stats resource.
func WithQueryLog(l QueryLog) Option {
	return func(s *Server) { s.queryLog = l }
}

// WithLogger overrides slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// Server is the MCP server. It bridges AI clients with the answer engine.
type Server struct {
	mcp       *mcp.Server
	engine    Engine
	retriever Retriever
	index     Index
	queryLog  QueryLog
	config    Config
	logger    *slog.Logger
}

// NewServer creates a new MCP server with the ask, retrieve and index_status
// tools registered.
func NewServer(engine Engine, retriever Retriever, idx Index, cfg Config, opts ...Option) (*Server, error) {
	if engine == nil {
		return nil, errors.New("answer engine is required")
	}
	if retriever == nil {
		return nil, errors.New("retriever is required")
	}
	if idx == nil {
		return nil, errors.New("index is required")
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}

	s := &Server{
		engine:    engine,
		retriever: retriever,
		index:     idx,
		config:    cfg,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{Name: ServerName, Version: cfg.Version},
		nil, // capabilities are inferred from registered tools/resources
	)
	s.registerTools()
	s.registerResources()

	return s, nil
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question from the indexed passages. Returns the answer with the sources it was grounded on and a quality score. Set use_rag=false to answer without retrieval.",
	}, s.mcpAskHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "retrieve",
		Description: "Find the passages most relevant to a query using hybrid keyword and vector search, without generating an answer. Use to inspect evidence or cite sources directly.",
	}, s.mcpRetrieveHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "index_status",
		Description: "Report how many passages, vectors and sources are indexed and which embedding model is active.",
	}, s.mcpIndexStatusHandler)

	s.logger.Debug("mcp_tools_registered", slog.Int("count", 3))
}

// askOptions layers the tool arguments over the configured defaults.
func (s *Server) askOptions(in AskInput) answer.QueryOptions {
	opts := s.config.Defaults
	opts.ChatHistory = nil
	if in.K > 0 {
		opts.K = in.K
	}
	if in.UseRAG != nil {
		opts.UseRAG = *in.UseRAG
	}
	if in.UseHybridSearch != nil {
		opts.UseHybridSearch = *in.UseHybridSearch
	}
	if in.VectorWeight != nil {
		w := *in.VectorWeight
		opts.VectorWeight = &w
	}
	if in.ExpandQuery != nil {
		opts.EnableQueryExpansion = *in.ExpandQuery
	}
	if len(in.Tags) > 0 {
		opts.Tags = in.Tags
	}
	if in.SystemPrompt != "" {
		opts.SystemPrompt = in.SystemPrompt
	}
	return opts
}

// retrieveOptions maps retrieve arguments to search options. Retrieval is
// never disabled here; use_hybrid_search=false selects vector-only ranking.
func (s *Server) retrieveOptions(in RetrieveInput) search.Options {
	d := s.config.Defaults
	hybrid := d.UseHybridSearch
	if in.UseHybridSearch != nil {
		hybrid = *in.UseHybridSearch
	}
	defaultK := d.K
	if defaultK <= 0 {
		defaultK = search.DefaultK
	}
	opts := search.Options{
		Mode:         search.ModeFor(true, hybrid),
		K:            clampLimit(in.K, defaultK, 1, search.MaxK),
		Multiplier:   d.SearchMultiplier,
		VectorWeight: d.VectorWeight,
		ExpandQuery:  d.EnableQueryExpansion,
		Tags:         d.Tags,
	}
	if in.VectorWeight != nil {
		w := *in.VectorWeight
		opts.VectorWeight = &w
	}
	if in.ExpandQuery != nil {
		opts.ExpandQuery = *in.ExpandQuery
	}
	if len(in.Tags) > 0 {
		opts.Tags = in.Tags
	}
	return opts
}

// mcpAskHandler is the MCP SDK handler for the ask tool.
func (s *Server) mcpAskHandler(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (
	*mcp.CallToolResult,
	AskOutput,
	error,
) {
	if strings.TrimSpace(input.Question) == "" {
		return nil, AskOutput{}, NewInvalidParamsError("question parameter is required and must not be blank")
	}

	requestID := uuid.NewString()
	start := time.Now()
	opts := s.askOptions(input)

	ans, err := s.engine.Query(ctx, input.Question, opts)
	if err != nil {
		s.logger.Warn("mcp_ask_failed",
			slog.String("request_id", requestID),
			slog.Duration("duration", time.Since(start)),
			slog.String("error", err.Error()))
		return nil, AskOutput{}, MapError(err)
	}

	out := toAskOutput(ans)
	s.logger.Info("mcp_ask_completed",
		slog.String("request_id", requestID),
		slog.String("mode", out.Mode),
		slog.Int("sources", len(out.Sources)),
		slog.Duration("duration", time.Since(start)))
	s.recordQuery(ctx, input.Question, out.Mode, len(out.Sources))

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: FormatAnswer(out)}},
	}, out, nil
}

// mcpRetrieveHandler is the MCP SDK handler for the retrieve tool.
func (s *Server) mcpRetrieveHandler(ctx context.Context, _ *mcp.CallToolRequest, input RetrieveInput) (
	*mcp.CallToolResult,
	RetrieveOutput,
	error,
) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, RetrieveOutput{}, NewInvalidParamsError("query parameter is required and must not be blank")
	}

	retrieval, err := s.retriever.Retrieve(ctx, input.Query, s.retrieveOptions(input))
	if err != nil {
		return nil, RetrieveOutput{}, MapError(err)
	}

	out := RetrieveOutput{
		Queries:  retrieval.Queries,
		Passages: make([]PassageOutput, 0, len(retrieval.Results)),
	}
	for _, r := range retrieval.Results {
		out.Passages = append(out.Passages, ToPassageOutput(r))
	}
	s.logger.Debug("mcp_retrieve_completed",
		slog.Int("queries", len(out.Queries)),
		slog.Int("passages", len(out.Passages)))

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: FormatPassages(input.Query, out)}},
	}, out, nil
}

// mcpIndexStatusHandler is the MCP SDK handler for the index_status tool.
func (s *Server) mcpIndexStatusHandler(ctx context.Context, _ *mcp.CallToolRequest, _ IndexStatusInput) (
	*mcp.CallToolResult,
	*IndexStatusOutput,
	error,
) {
	st, err := s.index.Status(ctx)
	if err != nil {
		return nil, nil, MapError(err)
	}
	return nil, toIndexStatus(st, s.config.Version), nil
}

func (s *Server) recordQuery(ctx context.Context, question, mode string, sources int) {
	if s.queryLog == nil {
		return
	}
	if err := s.queryLog.Record(context.WithoutCancel(ctx), question, mode, sources); err != nil {
		s.logger.Warn("query_log_record_failed", slog.String("error", err.Error()))
	}
}

// Serve runs the server over stdio until ctx is cancelled or the client
// disconnects.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("mcp_server_started", slog.String("transport", "stdio"))
	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("mcp_server_stopped", slog.String("error", err.Error()))
		return err
	}
	s.logger.Info("mcp_server_stopped")
	return nil
}

package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/notedex/notedex/internal/engine"
	"github.com/notedex/notedex/internal/index"
	"github.com/notedex/notedex/internal/store"
	"github.com/notedex/notedex/pkg/version"
)

// Server is the MCP server for notedex. It bridges AI clients with the
// search engine and the note store.
type Server struct {
	mcp      *mcp.Server
	engine   *engine.Engine
	store    store.Store
	logger   *slog.Logger
	rootPath string
}

// ToolInfo contains information about a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

// ResourceInfo contains information about a resource.
type ResourceInfo struct {
	URI      string
	Name     string
	MIMEType string
}

// ResourceContent contains the content of a resource.
type ResourceContent struct {
	URI      string
	Content  string
	MIMEType string
}

// NewServer creates a new MCP server. The store may be nil, in which
// case no note resources are exposed. rootPath is used for vault
// detection in the status tool.
func NewServer(eng *engine.Engine, st store.Store, rootPath string) (*Server, error) {
	if eng == nil {
		return nil, errors.New("engine is required")
	}

	s := &Server{
		engine:   eng,
		store:    st,
		rootPath: rootPath,
		logger:   slog.Default(),
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "notedex",
			Version: version.Version,
		},
		nil,
	)

	s.registerTools()

	return s, nil
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Info returns the server name and version.
func (s *Server) Info() (name, ver string) {
	return "notedex", version.Version
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	return []ToolInfo{
		{
			Name:        "search",
			Description: "Search the note index by keyword. Returns ranked chunks with title, link, and snippet so you can quote or follow up on the source note.",
		},
		{
			Name:        "status",
			Description: "Report the index shape (docs, chunks, terms), the last build, and query metrics. Use before searching to verify an index exists.",
		},
		{
			Name:        "rebuild",
			Description: "Rebuild the index from the note files and stored notes. Run after notes changed outside a watch session.",
		},
	}
}

// CallTool invokes a tool by name with the given arguments.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case "search":
		return s.handleSearchTool(ctx, args)
	case "status":
		return s.handleStatusTool(ctx)
	case "rebuild":
		return s.handleRebuildTool(ctx)
	default:
		return nil, NewMethodNotFoundError(name)
	}
}

// handleSearchTool handles the search tool invocation. Returns
// markdown-formatted results.
func (s *Server) handleSearchTool(ctx context.Context, args map[string]any) (string, error) {
	start := time.Now()
	requestID := generateRequestID()

	query, ok := args["query"].(string)
	if !ok || strings.TrimSpace(query) == "" {
		return "", NewInvalidParamsError("query parameter is required and must be a non-empty string")
	}

	limit := clampLimit(0, index.DefaultTopK, 1, maxToolLimit)
	if l, ok := args["limit"].(float64); ok {
		limit = clampLimit(int(l), index.DefaultTopK, 1, maxToolLimit)
	}

	s.logger.Info("tool_search_started",
		slog.String("request_id", requestID),
		slog.String("query", query),
		slog.Int("limit", limit))

	results, err := s.engine.Search(ctx, query, limit)
	duration := time.Since(start)

	if err != nil {
		s.logger.Error("tool_search_failed",
			slog.String("request_id", requestID),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return "", MapError(err)
	}

	s.logger.Info("tool_search_completed",
		slog.String("request_id", requestID),
		slog.Duration("duration", duration),
		slog.Int("result_count", len(results)))

	return FormatSearchResults(query, results), nil
}

// handleStatusTool handles the status tool invocation.
func (s *Server) handleStatusTool(ctx context.Context) (*StatusOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, MapError(err)
	}

	detector := NewVaultDetector(s.rootPath, s.logger)

	return &StatusOutput{
		Vault: *detector.Detect(),
		Index: s.engine.Status(),
	}, nil
}

// handleRebuildTool handles the rebuild tool invocation.
func (s *Server) handleRebuildTool(ctx context.Context) (*engine.BuildStats, error) {
	start := time.Now()
	requestID := generateRequestID()

	s.logger.Info("tool_rebuild_started",
		slog.String("request_id", requestID))

	stats, err := s.engine.Rebuild(ctx)
	duration := time.Since(start)

	if err != nil {
		s.logger.Error("tool_rebuild_failed",
			slog.String("request_id", requestID),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	s.logger.Info("tool_rebuild_completed",
		slog.String("request_id", requestID),
		slog.Duration("duration", duration),
		slog.Int("docs", stats.Docs),
		slog.Int("chunks", stats.Chunks))

	return stats, nil
}

// registerTools registers all tools with the MCP server.
func (s *Server) registerTools() {
	s.logger.Debug("registering MCP tools")

	tools := s.ListTools()

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        tools[0].Name,
		Description: tools[0].Description,
	}, s.mcpSearchHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        tools[1].Name,
		Description: tools[1].Description,
	}, s.mcpStatusHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        tools[2].Name,
		Description: tools[2].Description,
	}, s.mcpRebuildHandler)

	s.logger.Info("mcp_tools_registered", slog.Int("count", len(tools)))
}

// mcpSearchHandler is the MCP SDK handler for the search tool.
func (s *Server) mcpSearchHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (
	*mcp.CallToolResult,
	SearchOutput,
	error,
) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, SearchOutput{}, NewInvalidParamsError("query parameter is required")
	}

	limit := clampLimit(input.Limit, index.DefaultTopK, 1, maxToolLimit)

	results, err := s.engine.Search(ctx, input.Query, limit)
	if err != nil {
		return nil, SearchOutput{}, MapError(err)
	}

	output := SearchOutput{
		Query:   input.Query,
		Count:   len(results),
		Results: make([]SearchResultOutput, 0, len(results)),
	}
	for _, r := range results {
		output.Results = append(output.Results, toResultOutput(r))
	}

	return nil, output, nil
}

// mcpStatusHandler is the MCP SDK handler for the status tool.
func (s *Server) mcpStatusHandler(ctx context.Context, _ *mcp.CallToolRequest, _ StatusInput) (
	*mcp.CallToolResult,
	*StatusOutput,
	error,
) {
	output, err := s.handleStatusTool(ctx)
	if err != nil {
		return nil, nil, err
	}
	return nil, output, nil
}

// mcpRebuildHandler is the MCP SDK handler for the rebuild tool.
func (s *Server) mcpRebuildHandler(ctx context.Context, _ *mcp.CallToolRequest, _ RebuildInput) (
	*mcp.CallToolResult,
	*engine.BuildStats,
	error,
) {
	stats, err := s.handleRebuildTool(ctx)
	if err != nil {
		return nil, nil, err
	}
	return nil, stats, nil
}

// Serve runs the server over stdio until the context is canceled.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("mcp_server_started", slog.String("transport", "stdio"))

	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("mcp_server_stopped",
			slog.String("error", err.Error()))
		return err
	}

	s.logger.Info("mcp_server_stopped")
	return nil
}

// Close releases server resources. The MCP server itself stops when
// its context is canceled.
func (s *Server) Close() error {
	return nil
}

// generateRequestID creates a short unique request ID for log correlation.
func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// Package mcp exposes the monitor's own operations — list properties, list
// extractors, run a trace, query accumulated facts — as an MCP tool
// surface, so an agent drives property-based exploration the same way it
// would drive any other MCP server.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"propmon/internal/config"
	"propmon/internal/factindex"
	"propmon/internal/hostbrowser"
	"propmon/internal/monitor"
)

// Tool describes the contract for MCP tool implementations.
type Tool interface {
	Name() string
	Description() string
	InputSchema() map[string]interface{}
	Execute(ctx context.Context, args map[string]interface{}) (interface{}, error)
}

// Server wires the MCP runtime to one loaded specification's Monitor, its
// fact index, and a host builder used to launch run-trace sessions.
type Server struct {
	cfg       config.Config
	monitor   *monitor.Monitor
	facts     *factindex.Store
	newHost   func(ctx context.Context) (*hostbrowser.Host, error)
	tools     map[string]Tool
	mcpServer *mcpserver.MCPServer
}

// NewServer constructs the MCP server and registers all tools.
func NewServer(cfg config.Config, mon *monitor.Monitor, facts *factindex.Store, newHost func(ctx context.Context) (*hostbrowser.Host, error)) *Server {
	mcpSrv := mcpserver.NewMCPServer(
		cfg.Server.Name,
		cfg.Server.Version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithLogging(),
		mcpserver.WithPromptCapabilities(false),
		mcpserver.WithRecovery(),
	)

	server := &Server{
		cfg:       cfg,
		monitor:   mon,
		facts:     facts,
		newHost:   newHost,
		tools:     make(map[string]Tool),
		mcpServer: mcpSrv,
	}
	server.registerAllTools()
	return server
}

// Start launches the stdio server (the CLI/agent default transport).
func (s *Server) Start(ctx context.Context) error {
	stdio := mcpserver.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// sseShutdownGrace bounds how long StartSSE waits for in-flight requests to
// drain once its context is canceled.
const sseShutdownGrace = 5 * time.Second

// StartSSE hosts the server over HTTP using SSE endpoints, blocking until
// the listener stops. A background goroutine watches ctx and asks the
// server to shut down once it's canceled; ListenAndServe's own return
// (http.ErrServerClosed on a clean shutdown, or a real bind/accept error
// otherwise) is what this call actually returns.
func (s *Server) StartSSE(ctx context.Context, port int) error {
	sseServer := mcpserver.NewSSEServer(s.mcpServer, mcpserver.WithBaseURL("http://localhost:"+strconv.Itoa(port)))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{
		Addr:    ":" + strconv.Itoa(port),
		Handler: mux,
	}

	go awaitShutdown(ctx, httpServer)

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// awaitShutdown blocks until ctx is canceled, then gives httpServer up to
// sseShutdownGrace to drain before returning; ListenAndServe's caller
// observes the result as http.ErrServerClosed.
func awaitShutdown(ctx context.Context, httpServer *http.Server) {
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), sseShutdownGrace)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
}

// ExecuteTool executes a tool directly (used by tests).
func (s *Server) ExecuteTool(name string, args map[string]interface{}) (interface{}, error) {
	tool, exists := s.tools[name]
	if !exists {
		return nil, fmt.Errorf("tool not found: %s", name)
	}
	return tool.Execute(context.Background(), args)
}

func (s *Server) registerAllTools() {
	s.registerTool(&ListPropertiesTool{monitor: s.monitor})
	s.registerTool(&ListExtractorsTool{monitor: s.monitor})
	s.registerTool(&RunTraceTool{
		monitor:      s.monitor,
		facts:        s.facts,
		newHost:      s.newHost,
		walkerSeed:   s.cfg.Walker.Seed,
		traceDir:     s.cfg.Trace.Dir,
		maxFileBytes: s.cfg.Trace.MaxFileBytes,
	})
	s.registerTool(&QueryFactsTool{facts: s.facts})
}

func (s *Server) registerTool(tool Tool) {
	s.tools[tool.Name()] = tool
	mcpTool := mcp.NewToolWithRawSchema(tool.Name(), tool.Description(), rawInputSchema(tool))
	s.mcpServer.AddTool(mcpTool, wrapTool(tool))
}

// rawInputSchema marshals a tool's schema, falling back to the minimal
// valid JSON Schema object when a tool author hands back something that
// doesn't marshal (a struct with a cyclical or unexported-only type, say).
func rawInputSchema(tool Tool) json.RawMessage {
	schema, err := json.Marshal(tool.InputSchema())
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return schema
}

// wrapTool adapts a Tool to the mcp-go handler signature: it doesn't need
// the Server, only the single Tool it's closing over.
func wrapTool(tool Tool) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		if args == nil {
			args = map[string]interface{}{}
		}

		result, err := tool.Execute(ctx, args)
		if err != nil {
			return failureResult(fmt.Sprintf("tool %s failed: %v", tool.Name(), err)), nil
		}
		return successResult(marshalToolPayload(tool.Name(), result)), nil
	}
}

func failureResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(message)},
		IsError: true,
	}
}

func successResult(payload []byte) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(string(payload))},
		IsError: false,
	}
}

// toolErrorPayload is the JSON shape returned in place of a tool's own
// result when that result can't be marshaled.
type toolErrorPayload struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// marshalToolPayload marshals result, and on failure marshals a
// toolErrorPayload describing the failure instead; if even that fails
// (it shouldn't — toolErrorPayload has no exotic field types), it falls
// back to a hand-written JSON literal so callers always get valid JSON.
func marshalToolPayload(toolName string, result interface{}) []byte {
	if payload, err := json.Marshal(result); err == nil {
		return payload
	} else if fallback, fallbackErr := json.Marshal(toolErrorPayload{
		Success: false,
		Error:   fmt.Sprintf("tool %s returned non-serializable payload: %v", toolName, err),
	}); fallbackErr == nil {
		return fallback
	}
	return []byte(fmt.Sprintf(`{"success":false,"error":"tool %s failed to encode payload"}`, toolName))
}

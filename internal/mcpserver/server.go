// Package mcpserver serves the tool registry over the Model Context Protocol
// on stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"xcodemcp/internal/domain"
	"xcodemcp/internal/tool"
)

// Server adapts a tool.Registry to an MCP server.
type Server struct {
	mcp      *server.MCPServer
	registry *tool.Registry
	logger   *slog.Logger
}

// New registers every tool of reg with a new MCP server.
func New(name, version string, reg *tool.Registry, logger *slog.Logger) (*Server, error) {
	s := &Server{
		mcp: server.NewMCPServer(
			name,
			version,
			server.WithToolCapabilities(true),
			server.WithRecovery(),
		),
		registry: reg,
		logger:   logger,
	}
	for _, def := range reg.Definitions() {
		raw, err := json.Marshal(def.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("encode schema for %s: %w", def.Name, err)
		}
		s.mcp.AddTool(mcp.NewToolWithRawSchema(def.Name, def.Description, raw), s.handler(def.Name))
	}
	logger.Debug("mcp tools registered", "count", len(reg.Names()))
	return s, nil
}

// ServeStdio reads requests from in and writes responses to out until ctx
// is cancelled or in is closed.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(log.New(slogWriter{s.logger}, "", 0))
	return stdio.Listen(ctx, in, out)
}

func (s *Server) handler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		resp := s.registry.Call(ctx, name, req.GetArguments())
		return ToResult(resp), nil
	}
}

// ToResult converts a response envelope into an MCP call result. Next steps
// are rendered as a trailing text block.
func ToResult(resp domain.ToolResponse) *mcp.CallToolResult {
	res := &mcp.CallToolResult{IsError: resp.IsError}
	for _, c := range resp.Content {
		switch c.Type {
		case "image":
			res.Content = append(res.Content, mcp.NewImageContent(c.Data, c.MimeType))
		default:
			res.Content = append(res.Content, mcp.NewTextContent(c.Text))
		}
	}
	if len(resp.NextSteps) > 0 {
		res.Content = append(res.Content, mcp.NewTextContent(RenderNextSteps(resp.NextSteps)))
	}
	if len(res.Content) == 0 {
		res.Content = []mcp.Content{mcp.NewTextContent("")}
	}
	return res
}

// RenderNextSteps lists next steps by priority.
func RenderNextSteps(steps []domain.NextStep) string {
	sorted := append([]domain.NextStep(nil), steps...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority < sorted[j].Priority })

	var b strings.Builder
	b.WriteString("Next steps:")
	for i, st := range sorted {
		fmt.Fprintf(&b, "\n%d. %s: %s", i+1, st.Label, st.Tool)
		if len(st.Params) > 0 {
			params, err := json.Marshal(st.Params)
			if err == nil {
				b.WriteString(" " + string(params))
			}
		}
	}
	return b.String()
}

// slogWriter forwards the stdio server's log.Logger output to slog.
type slogWriter struct {
	logger *slog.Logger
}

func (w slogWriter) Write(p []byte) (int, error) {
	w.logger.Error("mcp stdio", "msg", strings.TrimSpace(string(p)))
	return len(p), nil
}

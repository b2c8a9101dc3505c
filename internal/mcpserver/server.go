// Package mcpserver serves the tool registry over the Model Context Protocol.
package mcpserver

import (
	"context"
	"io"
	stdlog "log"

	"risk_desk/internal/session"
	"risk_desk/internal/tools"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
)

// Server exposes every registry tool to one MCP client. All calls share a
// single session, which lives as long as the process.
type Server struct {
	mcp      *server.MCPServer
	registry *tools.Registry
	session  *session.Session
	log      zerolog.Logger
}

// New registers every tool in reg on a fresh MCP server.
func New(reg *tools.Registry, version string, log zerolog.Logger) *Server {
	s := &Server{
		mcp:      server.NewMCPServer("risk-desk", version, server.WithToolCapabilities(true)),
		registry: reg,
		session:  session.New(nil),
		log:      log.With().Str("component", "mcp").Logger(),
	}

	for _, t := range reg.List() {
		s.mcp.AddTool(toMCPTool(t), s.handler(t.Name))
	}
	return s
}

// Session returns the session all calls run against.
func (s *Server) Session() *session.Session {
	return s.session
}

// Serve speaks JSON-RPC over in and out until ctx is cancelled or in closes.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(stdlog.New(s.log, "", 0))

	s.log.Info().Int("tools", len(s.registry.List())).Str("session", s.session.ID).Msg("MCP stdio server listening")
	return stdio.Listen(ctx, in, out)
}

func (s *Server) handler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		res := s.registry.Call(ctx, s.session, name, tools.Args(request.GetArguments()))
		if !res.OK {
			s.log.Debug().Str("tool", name).Str("error", res.Error).Msg("Tool call failed")
			return errorResult(res.JSON()), nil
		}
		return textResult(res.JSON()), nil
	}
}

func toMCPTool(t tools.Tool) mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(t.Description)}
	for _, p := range t.Params {
		props := []mcp.PropertyOption{mcp.Description(p.Description)}
		if p.Required {
			props = append(props, mcp.Required())
		}

		switch p.Type {
		case tools.TypeNumber, tools.TypeInteger:
			if v, ok := p.Default.(float64); ok {
				props = append(props, mcp.DefaultNumber(v))
			}
			opts = append(opts, mcp.WithNumber(p.Name, props...))
		case tools.TypeBoolean:
			if v, ok := p.Default.(bool); ok {
				props = append(props, mcp.DefaultBool(v))
			}
			opts = append(opts, mcp.WithBoolean(p.Name, props...))
		case tools.TypeArray:
			items := "string"
			if p.Items == "object" {
				items = "object"
			}
			props = append(props, mcp.Items(map[string]any{"type": items}))
			opts = append(opts, mcp.WithArray(p.Name, props...))
		default:
			if v, ok := p.Default.(string); ok {
				props = append(props, mcp.DefaultString(v))
			}
			opts = append(opts, mcp.WithString(p.Name, props...))
		}
	}
	return mcp.NewTool(t.Name, opts...)
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(message),
		},
		IsError: true,
	}
}

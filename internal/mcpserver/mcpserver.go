// Package mcpserver exposes the dispatcher's tools to MCP clients over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"

	mcpgo "github.com/felixgeelhaar/mcp-go"

	"github.com/petasbytes/fsagent/internal/dispatch"
	"github.com/petasbytes/fsagent/internal/logging"
)

// Config names the server to connecting clients.
type Config struct {
	Name         string
	Version      string
	Instructions string
}

// Server wraps an mcp-go server whose tools all route through one Dispatcher.
type Server struct {
	srv        *mcpgo.Server
	dispatcher *dispatch.Dispatcher
}

// New registers every dispatcher tool on a fresh MCP server.
func New(d *dispatch.Dispatcher, cfg Config) *Server {
	if cfg.Name == "" {
		cfg.Name = "fsagent"
	}
	info := mcpgo.ServerInfo{
		Name:        cfg.Name,
		Version:     cfg.Version,
		Description: "File tools confined to a single safe root directory",
		Capabilities: mcpgo.Capabilities{
			Tools: true,
		},
	}
	var opts []mcpgo.Option
	if cfg.Instructions != "" {
		opts = append(opts, mcpgo.WithInstructions(cfg.Instructions))
	}

	s := &Server{srv: mcpgo.NewServer(info, opts...), dispatcher: d}
	for _, def := range d.Definitions() {
		s.srv.Tool(def.Name).
			Description(def.Description).
			Handler(Handler(d, def.Name))
	}
	return s
}

// Server returns the underlying mcp-go server.
func (s *Server) Server() *mcpgo.Server { return s.srv }

// ServeStdio serves until ctx is cancelled or stdin closes.
func (s *Server) ServeStdio(ctx context.Context) error {
	logging.Info().
		Add(logging.Component("mcp")).
		Add(logging.Int("tools", len(s.dispatcher.Definitions()))).
		Msg("serving over stdio")
	return mcpgo.ServeStdio(ctx, s.srv)
}

// Handler adapts one tool to the mcp-go handler shape. A failed call returns
// the ToolError JSON as the error text so clients see the code.
func Handler(d *dispatch.Dispatcher, name string) func(context.Context, json.RawMessage) (string, error) {
	return func(ctx context.Context, input json.RawMessage) (string, error) {
		res := d.Dispatch(ctx, dispatch.ToolRequest{Tool: name, Arguments: input})
		if !res.Success {
			return "", errors.New(res.Content())
		}
		return res.Content(), nil
	}
}

package action

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// MCP transport names accepted in configuration.
const (
	MCPTransportStdio = "stdio"
	MCPTransportHTTP  = "streamable-http"
)

// MCPServer describes one Model Context Protocol server whose tools become
// dispatchable actions.
type MCPServer struct {
	// Name identifies the server in logs and in collision-resolved action
	// names. Must be unique.
	Name string

	// Transport is MCPTransportStdio or MCPTransportHTTP.
	Transport string

	// Command is the executable plus arguments for stdio servers, split on
	// spaces.
	Command string

	// URL is the endpoint for streamable-http servers.
	URL string

	// Env holds extra environment variables for stdio servers.
	Env map[string]string
}

// RegisterMCP connects to each configured server, lists its tools, and
// registers every tool as an action handler named after the uppercased tool
// name. A name collision falls back to SERVER_TOOL. The returned closers
// shut the sessions down; call them in reverse during shutdown.
func RegisterMCP(ctx context.Context, d *Dispatcher, servers []MCPServer) ([]func() error, error) {
	client := mcpsdk.NewClient(
		&mcpsdk.Implementation{Name: "cade-actions", Version: "1.0.0"},
		nil,
	)

	var closers []func() error
	for _, srv := range servers {
		session, tools, err := connectMCP(ctx, client, srv)
		if err != nil {
			for _, c := range closers {
				_ = c()
			}
			return nil, err
		}
		closers = append(closers, session.Close)

		for _, tool := range tools {
			h := mcpHandler(session, tool)
			if err := d.Register(h); err != nil {
				h.Name = strings.ToUpper(srv.Name) + "_" + h.Name
				if err := d.Register(h); err != nil {
					slog.Warn("skipping MCP tool, name conflict",
						"server", srv.Name, "tool", tool.Name, "error", err)
					continue
				}
			}
			slog.Info("registered MCP action", "server", srv.Name, "action", h.Name)
		}
	}
	return closers, nil
}

func connectMCP(ctx context.Context, client *mcpsdk.Client, srv MCPServer) (*mcpsdk.ClientSession, []mcpsdk.Tool, error) {
	if srv.Name == "" {
		return nil, nil, fmt.Errorf("mcp: server config must have a name")
	}

	var transport mcpsdk.Transport
	switch srv.Transport {
	case MCPTransportStdio:
		fields := strings.Fields(srv.Command)
		if len(fields) == 0 {
			return nil, nil, fmt.Errorf("mcp: stdio server %q requires a Command", srv.Name)
		}
		cmd := exec.CommandContext(ctx, fields[0], fields[1:]...)
		for k, v := range srv.Env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
		transport = &mcpsdk.CommandTransport{Command: cmd}

	case MCPTransportHTTP:
		if srv.URL == "" {
			return nil, nil, fmt.Errorf("mcp: streamable-http server %q requires a URL", srv.Name)
		}
		transport = &mcpsdk.StreamableClientTransport{Endpoint: srv.URL}

	default:
		return nil, nil, fmt.Errorf("mcp: unknown transport %q for server %q", srv.Transport, srv.Name)
	}

	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("mcp: connect to server %q: %w", srv.Name, err)
	}

	var tools []mcpsdk.Tool
	for tool, err := range session.Tools(ctx, nil) {
		if err != nil {
			_ = session.Close()
			return nil, nil, fmt.Errorf("mcp: list tools for server %q: %w", srv.Name, err)
		}
		tools = append(tools, *tool)
	}
	return session, tools, nil
}

func mcpHandler(session *mcpsdk.ClientSession, tool mcpsdk.Tool) Handler {
	name := strings.ToUpper(tool.Name)
	return Handler{
		Name:        name,
		Description: tool.Description,
		Run: func(ctx context.Context, args string) (string, error) {
			var argsMap map[string]any
			if args != "" && args != "{}" {
				if err := json.Unmarshal([]byte(args), &argsMap); err != nil {
					return "", fmt.Errorf("invalid args JSON: %w", err)
				}
			}

			result, err := session.CallTool(ctx, &mcpsdk.CallToolParams{
				Name:      tool.Name,
				Arguments: argsMap,
			})
			if err != nil {
				return "", err
			}

			var sb strings.Builder
			for _, c := range result.Content {
				if tc, ok := c.(*mcpsdk.TextContent); ok {
					sb.WriteString(tc.Text)
				}
			}
			if result.IsError {
				return "", fmt.Errorf("tool reported an error: %s", sb.String())
			}
			return sb.String(), nil
		},
	}
}

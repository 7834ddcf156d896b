package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// MCPRegistry backs the Tool Registry collaborator with an MCP server
// reached over SSE. It is only constructed when tool_registry.enabled is
// set; by default the Router never references it.
type MCPRegistry struct {
	client *client.Client
}

// NewMCPRegistry connects to the MCP server at address and performs the MCP
// initialize handshake.
func NewMCPRegistry(ctx context.Context, address string) (*MCPRegistry, error) {
	c, err := client.NewSSEMCPClient(address)
	if err != nil {
		return nil, fmt.Errorf("tools: connecting to mcp server: %w", err)
	}
	if err := c.Start(ctx); err != nil {
		return nil, fmt.Errorf("tools: starting mcp client: %w", err)
	}
	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "voice-relay", Version: "0.1.0"}
	if _, err := c.Initialize(ctx, initReq); err != nil {
		return nil, fmt.Errorf("tools: mcp initialize: %w", err)
	}
	return &MCPRegistry{client: c}, nil
}

// ListTools returns the tool names the MCP server currently exposes.
func (r *MCPRegistry) ListTools(ctx context.Context) ([]string, error) {
	resp, err := r.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("tools: list tools: %w", err)
	}
	names := make([]string, 0, len(resp.Tools))
	for _, t := range resp.Tools {
		names = append(names, t.Name)
	}
	return names, nil
}

// Call invokes name via the MCP server's tools/call method.
func (r *MCPRegistry) Call(ctx context.Context, name string, params map[string]interface{}) (interface{}, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = params

	resp, err := r.client.CallTool(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("tools: call %s: %w", name, err)
	}
	if resp.IsError {
		return nil, fmt.Errorf("tools: %s returned an error result", name)
	}
	return resp.Content, nil
}

// Close shuts down the underlying MCP client connection.
func (r *MCPRegistry) Close() error {
	return r.client.Close()
}

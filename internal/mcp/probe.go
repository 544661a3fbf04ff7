package mcp

import (
	"context"
	"fmt"
	"sort"

	"github.com/mark3labs/mcp-go/client"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
)

// ProbeResult describes a tool server that answered initialize and tools/list
type ProbeResult struct {
	ServerName    string
	ServerVersion string
	Protocol      string
	Tools         []string
}

// Probe launches the server, performs the MCP handshake and lists its tools.
// It lets a user check the tool server before spending an agent run on it.
func Probe(ctx context.Context, spec ServerSpec, clientVersion string) (*ProbeResult, error) {
	env := make([]string, 0, len(spec.Env))
	for k, v := range spec.Env {
		env = append(env, k+"="+v)
	}

	c, err := client.NewStdioMCPClient(spec.Command, env, spec.Args...)
	if err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", spec.Command, err)
	}
	defer c.Close()

	var initReq mcpgo.InitializeRequest
	initReq.Params.ProtocolVersion = mcpgo.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcpgo.Implementation{
		Name:    "google-tasks-agent",
		Version: clientVersion,
	}
	initResult, err := c.Initialize(ctx, initReq)
	if err != nil {
		return nil, fmt.Errorf("mcp initialize failed: %w", err)
	}

	toolsResult, err := c.ListTools(ctx, mcpgo.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("mcp tools/list failed: %w", err)
	}

	result := &ProbeResult{
		ServerName:    initResult.ServerInfo.Name,
		ServerVersion: initResult.ServerInfo.Version,
		Protocol:      initResult.ProtocolVersion,
	}
	for _, tool := range toolsResult.Tools {
		result.Tools = append(result.Tools, tool.Name)
	}
	sort.Strings(result.Tools)
	return result, nil
}

// MissingTools returns the names in required that the probe did not report
func (r *ProbeResult) MissingTools(required []string) []string {
	have := make(map[string]bool, len(r.Tools))
	for _, name := range r.Tools {
		have[name] = true
	}
	var missing []string
	for _, name := range required {
		if !have[name] {
			missing = append(missing, name)
		}
	}
	return missing
}

// WorkflowTools are the tool server calls the instruction script relies on
var WorkflowTools = []string{
	"gmail_search_messages",
	"gmail_read_message",
	"calendar_list_events",
	"tasks_list_tasklists",
	"tasks_list_tasks",
	"tasks_create_task",
}

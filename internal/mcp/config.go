// Package mcp describes the external tool server the agent is allowed to use
// and can probe it directly over stdio.
package mcp

import (
	"encoding/json"
	"fmt"
)

// ServerSpec is a stdio MCP server the agent runtime should launch
type ServerSpec struct {
	Name    string
	Command string
	Args    []string
	Env     map[string]string
}

type serverEntry struct {
	Command string            `json:"command"`
	Args    []string          `json:"args"`
	Env     map[string]string `json:"env,omitempty"`
}

// ConfigJSON renders the {"mcpServers": {...}} document accepted by
// `claude --mcp-config`
func ConfigJSON(specs ...ServerSpec) (string, error) {
	servers := make(map[string]serverEntry, len(specs))
	for _, s := range specs {
		if s.Name == "" || s.Command == "" {
			return "", fmt.Errorf("mcp server spec needs a name and a command: %+v", s)
		}
		if _, dup := servers[s.Name]; dup {
			return "", fmt.Errorf("duplicate mcp server name %q", s.Name)
		}
		args := s.Args
		if args == nil {
			args = []string{}
		}
		servers[s.Name] = serverEntry{Command: s.Command, Args: args, Env: s.Env}
	}

	data, err := json.Marshal(map[string]any{"mcpServers": servers})
	if err != nil {
		return "", fmt.Errorf("failed to marshal mcp config: %w", err)
	}
	return string(data), nil
}

// AllowedToolPattern is the tool filter that admits every tool of one server
func AllowedToolPattern(serverName string) string {
	return "mcp__" + serverName + "__*"
}

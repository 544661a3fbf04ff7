package mcp

import (
	"context"
	"encoding/json"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestConfigJSON(t *testing.T) {
	out, err := ConfigJSON(ServerSpec{
		Name:    "google",
		Command: "node",
		Args:    []string{"/opt/google-mcp/dist/index.js"},
	})
	if err != nil {
		t.Fatalf("ConfigJSON failed: %v", err)
	}

	var doc struct {
		MCPServers map[string]struct {
			Command string            `json:"command"`
			Args    []string          `json:"args"`
			Env     map[string]string `json:"env"`
		} `json:"mcpServers"`
	}
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	google, ok := doc.MCPServers["google"]
	if !ok {
		t.Fatalf("google server missing: %s", out)
	}
	if google.Command != "node" || !reflect.DeepEqual(google.Args, []string{"/opt/google-mcp/dist/index.js"}) {
		t.Errorf("unexpected entry: %+v", google)
	}
	if google.Env != nil {
		t.Errorf("env should be omitted when empty, got %v", google.Env)
	}
}

func TestConfigJSON_Invalid(t *testing.T) {
	if _, err := ConfigJSON(ServerSpec{Name: "google"}); err == nil {
		t.Error("expected error for missing command")
	}
	if _, err := ConfigJSON(ServerSpec{Name: "a", Command: "x"}, ServerSpec{Name: "a", Command: "y"}); err == nil {
		t.Error("expected error for duplicate names")
	}
}

func TestAllowedToolPattern(t *testing.T) {
	if got := AllowedToolPattern("google"); got != "mcp__google__*" {
		t.Errorf("AllowedToolPattern = %q", got)
	}
}

func TestProbe_MissingCommand(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := Probe(ctx, ServerSpec{
		Name:    "google",
		Command: filepath.Join(t.TempDir(), "no-such-server"),
	}, "test")
	if err == nil {
		t.Fatal("expected error for a server binary that does not exist")
	}
}

func TestProbeResult_MissingTools(t *testing.T) {
	r := &ProbeResult{Tools: []string{"gmail_read_message", "gmail_search_messages"}}
	missing := r.MissingTools([]string{"gmail_search_messages", "tasks_create_task"})
	if !reflect.DeepEqual(missing, []string{"tasks_create_task"}) {
		t.Errorf("MissingTools = %v", missing)
	}
}

package executive

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vthunder/google-tasks-agent/internal/logging"
)

// DefaultPrompt is the user turn; the workflow itself lives in the system prompt
const DefaultPrompt = "Execute the workflow."

// Config holds the agent runtime settings for one exchange
type Config struct {
	// Binary is the claude CLI (default: claude)
	Binary string
	// Model to use; empty means the CLI default
	Model string
	// MaxTurns bounds the agent's internal tool-call loop
	MaxTurns int
	// MCPConfig is the JSON document passed to --mcp-config
	MCPConfig string
	// AllowedTools restricts the agent to these tool patterns
	AllowedTools []string
	// WorkDir for the claude process
	WorkDir string
	// Prompt overrides DefaultPrompt
	Prompt string
}

// Client performs one-shot request/response exchanges with the agent runtime.
// It does no semantic validation of what comes back.
type Client struct {
	cfg Config
	log *logging.Logger
}

// NewClient creates an agent client
func NewClient(cfg Config, log *logging.Logger) *Client {
	if cfg.Binary == "" {
		cfg.Binary = "claude"
	}
	if cfg.Prompt == "" {
		cfg.Prompt = DefaultPrompt
	}
	return &Client{cfg: cfg, log: log.With("executive")}
}

// Run sends the instructions and output schema to a fresh claude session and
// waits for its result event. There is no retry: an error result fails with
// *AgentError, an exchange without output fails with ErrNoResult.
func (c *Client) Run(ctx context.Context, instructions string, schema json.RawMessage) (*Reply, error) {
	sessionID := uuid.NewString()
	args := c.buildArgs(sessionID, instructions, schema)

	cmd := exec.CommandContext(ctx, c.cfg.Binary, args...)
	if c.cfg.WorkDir != "" {
		cmd.Dir = c.cfg.WorkDir
	}
	cmd.Env = os.Environ()
	// The CLI spawns the MCP server; an interrupt must take the whole tree down
	cmd.Cancel = func() error {
		return terminateTree(cmd.Process.Pid)
	}
	cmd.WaitDelay = 5 * time.Second

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stderr pipe: %w", err)
	}

	c.log.Info("Starting agent session %s (max_turns=%d, instructions=%d chars)",
		sessionID, c.cfg.MaxTurns, len(instructions))

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", c.cfg.Binary, err)
	}

	var wg sync.WaitGroup
	var stderrBuf strings.Builder
	var outcome *streamOutcome
	var streamErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		outcome, streamErr = c.readStream(stdout)
	}()
	go func() {
		defer wg.Done()
		c.readStderr(stderr, &stderrBuf)
	}()
	wg.Wait()

	waitErr := cmd.Wait()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("agent session interrupted: %w", ctxErr)
	}
	if streamErr != nil {
		c.log.Warn("Stream read error: %v", streamErr)
	}

	if outcome.result == nil {
		if waitErr != nil {
			if stderrBuf.Len() > 0 {
				return nil, fmt.Errorf("claude exited with error: %w\nstderr: %s", waitErr, stderrBuf.String())
			}
			return nil, fmt.Errorf("claude exited with error: %w", waitErr)
		}
		return nil, ErrNoResult
	}
	if waitErr != nil && !outcome.result.IsError {
		c.log.Warn("claude exited with %v after a successful result", waitErr)
	}

	reply, err := outcome.reply()
	if err != nil {
		return nil, err
	}
	if reply.Usage != nil {
		c.log.Info("Agent session finished: turns=%d tools=%d input=%d output=%d cost=$%.4f duration=%dms",
			reply.Usage.NumTurns, reply.ToolCalls, reply.Usage.TotalInputTokens(),
			reply.Usage.OutputTokens, reply.Usage.CostUSD, reply.Usage.DurationMs)
	}
	return reply, nil
}

func (c *Client) buildArgs(sessionID, instructions string, schema json.RawMessage) []string {
	args := []string{
		"--print",
		"--output-format", "stream-json",
		"--verbose", // Required by claude CLI when using --print with stream-json
		"--session-id", sessionID,
		"--permission-mode", "bypassPermissions",
		"--system-prompt", instructions,
	}
	if c.cfg.MaxTurns > 0 {
		args = append(args, "--max-turns", strconv.Itoa(c.cfg.MaxTurns))
	}
	if c.cfg.MCPConfig != "" {
		args = append(args, "--mcp-config", c.cfg.MCPConfig, "--strict-mcp-config")
	}
	if len(c.cfg.AllowedTools) > 0 {
		args = append(args, "--allowedTools", strings.Join(c.cfg.AllowedTools, ","))
	}
	if len(schema) > 0 {
		args = append(args, "--json-schema", string(schema))
	}
	if c.cfg.Model != "" {
		args = append(args, "--model", c.cfg.Model)
	}
	// Prompt as positional argument, last
	return append(args, c.cfg.Prompt)
}

// streamOutcome accumulates what matters from the event stream
type streamOutcome struct {
	result    *StreamEvent
	toolCalls int
}

func (o *streamOutcome) reply() (*Reply, error) {
	ev := o.result

	var text string
	if len(ev.Result) > 0 {
		if err := json.Unmarshal(ev.Result, &text); err != nil {
			// Some runtimes put the object itself in result
			text = string(ev.Result)
		}
	}

	if ev.IsError || strings.HasPrefix(ev.SubType, "error") {
		msg := text
		if msg == "" {
			msg = ev.Error
		}
		if msg == "" {
			msg = "(no message)"
		}
		return nil, &AgentError{Subtype: ev.SubType, Message: msg}
	}

	reply := &Reply{ToolCalls: o.toolCalls, Usage: usageOf(ev)}
	switch {
	case hasValue(ev.StructuredOutput):
		reply.Structured = ev.StructuredOutput
	case strings.TrimSpace(text) != "":
		reply.Text = text
	default:
		return nil, ErrNoResult
	}
	return reply, nil
}

func hasValue(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s != "" && s != "null"
}

func usageOf(ev *StreamEvent) *SessionUsage {
	u := &SessionUsage{
		NumTurns:   ev.NumTurns,
		DurationMs: ev.DurationMs,
		CostUSD:    ev.TotalCostUSD,
	}
	if ev.Usage != nil {
		u.InputTokens = ev.Usage.InputTokens
		u.OutputTokens = ev.Usage.OutputTokens
		u.CacheCreationInputTokens = ev.Usage.CacheCreationInputTokens
		u.CacheReadInputTokens = ev.Usage.CacheReadInputTokens
	}
	return u
}

// readStream parses Claude's stream-json output, keeping the last result event
func (c *Client) readStream(r io.Reader) (*streamOutcome, error) {
	scanner := bufio.NewScanner(r)
	// Tool results can carry whole emails
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	outcome := &streamOutcome{}
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var event StreamEvent
		if err := json.Unmarshal(line, &event); err != nil {
			c.log.Debug("Failed to parse event: %v", err)
			continue
		}

		switch event.Type {
		case "result":
			ev := event
			outcome.result = &ev
		case "assistant":
			for _, name := range toolUses(event.Message) {
				outcome.toolCalls++
				c.log.Debug("Tool call: %s", name)
			}
			if event.Error != "" {
				c.log.Warn("Assistant error: %s", event.Error)
			}
		case "system":
			if event.SubType == "init" {
				c.log.Debug("Session initialized")
			}
		}
	}

	if err := scanner.Err(); err != nil {
		// Keep the pipe drained so the child can exit
		io.Copy(io.Discard, r)
		if errors.Is(err, bufio.ErrTooLong) {
			return outcome, fmt.Errorf("stream line exceeded buffer: %w", err)
		}
		return outcome, err
	}
	return outcome, nil
}

// toolUses lists tool names in an assistant message's content blocks
func toolUses(message json.RawMessage) []string {
	if len(message) == 0 {
		return nil
	}
	var msg struct {
		Content []struct {
			Type string `json:"type"`
			Name string `json:"name"`
		} `json:"content"`
	}
	if err := json.Unmarshal(message, &msg); err != nil {
		return nil
	}
	var names []string
	for _, block := range msg.Content {
		if block.Type == "tool_use" {
			names = append(names, block.Name)
		}
	}
	return names
}

// maxStderrCapture bounds the stderr kept for error messages
const maxStderrCapture = 64 * 1024

// readStderr captures up to maxStderrCapture bytes of stderr and drains the rest
func (c *Client) readStderr(r io.Reader, buf *strings.Builder) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		c.log.Debug("stderr: %s", logging.Truncate(line, 500))
		if buf.Len() < maxStderrCapture {
			buf.WriteString(logging.Truncate(line, maxStderrCapture-buf.Len()) + "\n")
		}
	}
	if err := scanner.Err(); err != nil {
		c.log.Debug("stderr read stopped: %v", err)
		io.Copy(io.Discard, r)
	}
}

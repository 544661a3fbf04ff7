package executive

import (
	"encoding/json"
	"errors"
)

// ErrNoResult means the exchange finished without structured output or text
var ErrNoResult = errors.New("agent did not return a result")

// AgentError is an error result reported by the agent runtime itself
type AgentError struct {
	Subtype string
	Message string
}

func (e *AgentError) Error() string {
	if e.Subtype != "" {
		return "agent returned error (" + e.Subtype + "): " + e.Message
	}
	return "agent returned error: " + e.Message
}

// SessionUsage holds token usage metrics from a Claude session
type SessionUsage struct {
	InputTokens              int     `json:"input_tokens"`
	OutputTokens             int     `json:"output_tokens"`
	CacheCreationInputTokens int     `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     int     `json:"cache_read_input_tokens"`
	NumTurns                 int     `json:"num_turns"`
	DurationMs               int     `json:"duration_ms"`
	CostUSD                  float64 `json:"total_cost_usd"`
}

// TotalInputTokens returns the total input tokens including cache operations
func (u *SessionUsage) TotalInputTokens() int {
	return u.InputTokens + u.CacheCreationInputTokens + u.CacheReadInputTokens
}

// StreamEvent represents a Claude stream-json event
type StreamEvent struct {
	Type             string          `json:"type"`
	SubType          string          `json:"subtype,omitempty"`
	Message          json.RawMessage `json:"message,omitempty"`
	Result           json.RawMessage `json:"result,omitempty"`
	StructuredOutput json.RawMessage `json:"structured_output,omitempty"`
	IsError          bool            `json:"is_error,omitempty"`
	Error            string          `json:"error,omitempty"`
	NumTurns         int             `json:"num_turns,omitempty"`
	DurationMs       int             `json:"duration_ms,omitempty"`
	TotalCostUSD     float64         `json:"total_cost_usd,omitempty"`
	Usage            *struct {
		InputTokens              int `json:"input_tokens"`
		OutputTokens             int `json:"output_tokens"`
		CacheCreationInputTokens int `json:"cache_creation_input_tokens"`
		CacheReadInputTokens     int `json:"cache_read_input_tokens"`
	} `json:"usage,omitempty"`
}

// Reply is the outcome of one exchange. Exactly one of Structured and Text is
// set on success.
type Reply struct {
	Structured json.RawMessage
	Text       string
	Usage      *SessionUsage
	ToolCalls  int
}

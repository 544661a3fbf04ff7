package result

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/vthunder/google-tasks-agent/internal/types"
)

// Reply is the validated content of one agent run
type Reply struct {
	ProcessedMessageIDs        []string
	ProcessedSecondaryEventIDs []string
	ActionItems                []types.ActionItem
	Summary                    types.Summary
}

// Parser validates agent output against the override rules
type Parser struct {
	rules []Rule
}

// NewParser creates a parser that forces task creation for the given sender patterns
func NewParser(highPrioritySenders []string) *Parser {
	return &Parser{rules: TaskRules(highPrioritySenders)}
}

// wireReply mirrors the output schema. Items stay loosely typed so one odd
// field does not discard the whole run.
type wireReply struct {
	ProcessedMessageIDs        []string         `json:"processed_message_ids"`
	ProcessedSecondaryEventIDs []string         `json:"processed_secondary_event_ids"`
	ActionItems                []map[string]any `json:"action_items"`
	Summary                    types.Summary    `json:"summary"`
}

// ParseText extracts the JSON object from a text reply and parses it
func (p *Parser) ParseText(text string, notifiedAt time.Time) (*Reply, error) {
	obj, err := ExtractObject(text)
	if err != nil {
		return nil, err
	}
	return p.Parse(obj, notifiedAt)
}

// Parse decodes a JSON object reply. notifiedAt stamps every item.
func (p *Parser) Parse(obj json.RawMessage, notifiedAt time.Time) (*Reply, error) {
	var wire wireReply
	if err := json.Unmarshal(obj, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}

	reply := &Reply{
		ProcessedMessageIDs:        nonNil(wire.ProcessedMessageIDs),
		ProcessedSecondaryEventIDs: nonNil(wire.ProcessedSecondaryEventIDs),
		ActionItems:                make([]types.ActionItem, 0, len(wire.ActionItems)),
		Summary:                    wire.Summary,
	}
	for _, raw := range wire.ActionItems {
		reply.ActionItems = append(reply.ActionItems, p.item(raw, notifiedAt))
	}
	return reply, nil
}

func (p *Parser) item(raw map[string]any, notifiedAt time.Time) types.ActionItem {
	item := types.ActionItem{
		ID:             stringField(raw, "id", ""),
		Subject:        stringField(raw, "subject", "(unknown)"),
		Sender:         stringField(raw, "sender", "(unknown)"),
		Priority:       types.ParsePriority(stringField(raw, "priority", "")),
		Action:         stringField(raw, "action", ""),
		NotifiedAt:     notifiedAt,
		DueDate:        optionalString(raw, "due_date"),
		CreateTask:     boolField(raw, "create_task"),
		TaskCreated:    boolField(raw, "task_created"),
		SourceType:     types.ParseSourceType(stringField(raw, "source_type", "")),
		RelatedMeeting: optionalString(raw, "related_meeting"),
		Group:          optionalString(raw, "group"),
	}
	item.CreateTask = ApplyRules(item, p.rules)
	return item
}

func stringField(raw map[string]any, key, fallback string) string {
	if s, ok := raw[key].(string); ok {
		return s
	}
	return fallback
}

func optionalString(raw map[string]any, key string) *string {
	s, ok := raw[key].(string)
	if !ok || strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

func boolField(raw map[string]any, key string) bool {
	b, _ := raw[key].(bool)
	return b
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

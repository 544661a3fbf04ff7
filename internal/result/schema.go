package result

import "encoding/json"

// outputSchema is the JSON schema the agent runtime is asked to satisfy
const outputSchema = `{
  "type": "object",
  "properties": {
    "processed_message_ids": {"type": "array", "items": {"type": "string"}},
    "processed_secondary_event_ids": {"type": "array", "items": {"type": "string"}},
    "action_items": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "id": {"type": "string"},
          "subject": {"type": "string"},
          "sender": {"type": "string"},
          "priority": {"type": "string", "enum": ["HIGH", "MEDIUM", "LOW"]},
          "action": {"type": "string"},
          "due_date": {"type": ["string", "null"]},
          "create_task": {"type": "boolean"},
          "task_created": {"type": "boolean"},
          "source_type": {"type": "string", "enum": ["email", "gemini_notes", "calendar_prep", "starred"]},
          "related_meeting": {"type": ["string", "null"]},
          "group": {"type": ["string", "null"]}
        },
        "required": ["id", "subject", "sender", "priority", "action", "create_task", "task_created", "source_type"]
      }
    },
    "summary": {
      "type": "object",
      "properties": {
        "emails_scanned": {"type": "integer"},
        "action_items_found": {"type": "integer"},
        "tasks_created": {"type": "integer"},
        "duplicates_skipped": {"type": "integer"},
        "secondary_tasks_created": {"type": "integer"},
        "tasks_grouped": {"type": "integer"}
      },
      "required": ["emails_scanned", "action_items_found", "tasks_created", "duplicates_skipped", "secondary_tasks_created", "tasks_grouped"]
    }
  },
  "required": ["processed_message_ids", "processed_secondary_event_ids", "action_items", "summary"]
}`

// OutputSchema returns a compact copy of the reply schema
func OutputSchema() json.RawMessage {
	var v any
	if err := json.Unmarshal([]byte(outputSchema), &v); err != nil {
		panic("result: invalid output schema: " + err.Error())
	}
	compact, _ := json.Marshal(v)
	return compact
}

package result

import (
	"errors"
	"testing"
)

func TestExtractObject_JSONFence(t *testing.T) {
	text := "Here is the result:\n```json\n{\"action_items\": []}\n```\n"

	got, err := ExtractObject(text)
	if err != nil {
		t.Fatalf("ExtractObject failed: %v", err)
	}
	if string(got) != `{"action_items": []}` {
		t.Errorf("got %q", got)
	}
}

func TestExtractObject_PlainFence(t *testing.T) {
	text := "```\n{\"summary\": {\"emails_scanned\": 2}}\n```"

	got, err := ExtractObject(text)
	if err != nil {
		t.Fatalf("ExtractObject failed: %v", err)
	}
	if string(got) != `{"summary": {"emails_scanned": 2}}` {
		t.Errorf("got %q", got)
	}
}

func TestExtractObject_LabelledNonJSONFenceFallsBackToBraces(t *testing.T) {
	text := "```javascript\n{\"action_items\": []}\n```"

	got, err := ExtractObject(text)
	if err != nil {
		t.Fatalf("ExtractObject failed: %v", err)
	}
	if string(got) != `{"action_items": []}` {
		t.Errorf("got %q", got)
	}
}

func TestExtractObject_BracesWithProse(t *testing.T) {
	text := `Done. {"processed_message_ids": ["a"], "action_items": []} Let me know if you need more.`

	got, err := ExtractObject(text)
	if err != nil {
		t.Fatalf("ExtractObject failed: %v", err)
	}
	if string(got) != `{"processed_message_ids": ["a"], "action_items": []}` {
		t.Errorf("got %q", got)
	}
}

func TestExtractObject_Raw(t *testing.T) {
	got, err := ExtractObject("  {\"action_items\":[]}  ")
	if err != nil {
		t.Fatalf("ExtractObject failed: %v", err)
	}
	if string(got) != `{"action_items":[]}` {
		t.Errorf("got %q", got)
	}
}

func TestExtractObject_Malformed(t *testing.T) {
	cases := []string{
		"I could not complete the workflow.",
		"",
		"```json\nnot json\n```",
		"[1, 2, 3]",
		"null",
		"} backwards {",
	}
	for _, text := range cases {
		if _, err := ExtractObject(text); !errors.Is(err, ErrMalformedReply) {
			t.Errorf("ExtractObject(%q) err = %v, want ErrMalformedReply", text, err)
		}
	}
}

func TestStrategies_Individually(t *testing.T) {
	if _, ok := jsonFence("no fences"); ok {
		t.Error("jsonFence applied without a fence")
	}
	if _, ok := jsonFence("```json\n{}"); ok {
		t.Error("jsonFence applied to an unterminated fence")
	}
	if got, ok := anyFence("a ```yaml\nx: 1\n``` b"); !ok || got != "yaml\nx: 1" {
		t.Errorf("anyFence = %q, %v", got, ok)
	}
	if got, ok := braceSpan("x {a} y {b} z"); !ok || got != "{a} y {b}" {
		t.Errorf("braceSpan = %q, %v", got, ok)
	}
	if _, ok := rawText("   \n"); ok {
		t.Error("rawText applied to blank input")
	}
}

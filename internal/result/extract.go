// Package result turns the agent's reply into validated action items.
// Everything here is pure: no I/O, no clock, no logging.
package result

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrMalformedReply means no extraction strategy produced a JSON object
var ErrMalformedReply = errors.New("malformed agent reply")

const fence = "```"

// Strategy proposes the part of a reply that should hold the JSON object.
// ok is false when the strategy does not apply to the text.
type Strategy struct {
	Name    string
	Extract func(text string) (candidate string, ok bool)
}

// Strategies are tried in order; the first candidate that decodes wins
var Strategies = []Strategy{
	{Name: "json-fence", Extract: jsonFence},
	{Name: "any-fence", Extract: anyFence},
	{Name: "braces", Extract: braceSpan},
	{Name: "raw", Extract: rawText},
}

// ExtractObject pulls a JSON object out of a possibly fenced or noisy reply
func ExtractObject(text string) (json.RawMessage, error) {
	for _, s := range Strategies {
		candidate, ok := s.Extract(text)
		if !ok {
			continue
		}
		if isObject(candidate) {
			return json.RawMessage(candidate), nil
		}
	}
	return nil, ErrMalformedReply
}

func isObject(s string) bool {
	var obj map[string]json.RawMessage
	return json.Unmarshal([]byte(s), &obj) == nil && obj != nil
}

// jsonFence returns the interior of the first ```json block
func jsonFence(text string) (string, bool) {
	start := strings.Index(text, fence+"json")
	if start == -1 {
		return "", false
	}
	start += len(fence + "json")
	end := strings.Index(text[start:], fence)
	if end == -1 {
		return "", false
	}
	return strings.TrimSpace(text[start : start+end]), true
}

// anyFence returns the interior of the first fenced block, label included
func anyFence(text string) (string, bool) {
	start := strings.Index(text, fence)
	if start == -1 {
		return "", false
	}
	start += len(fence)
	end := strings.Index(text[start:], fence)
	if end == -1 {
		return "", false
	}
	return strings.TrimSpace(text[start : start+end]), true
}

// braceSpan returns everything from the first { to the last }
func braceSpan(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

func rawText(text string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	return trimmed, trimmed != ""
}

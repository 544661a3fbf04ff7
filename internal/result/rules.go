package result

import (
	"strings"

	"github.com/vthunder/google-tasks-agent/internal/types"
)

// Rule forces task creation when its predicate holds
type Rule struct {
	Name  string
	Force func(item types.ActionItem) bool
}

// TaskRules builds the ordered override rules for the given sender patterns
func TaskRules(highPrioritySenders []string) []Rule {
	patterns := make([]string, 0, len(highPrioritySenders))
	for _, p := range highPrioritySenders {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			patterns = append(patterns, p)
		}
	}

	return []Rule{
		{Name: "high-priority", Force: func(item types.ActionItem) bool {
			return item.Priority == types.PriorityHigh
		}},
		{Name: "gemini-notes", Force: func(item types.ActionItem) bool {
			return item.SourceType == types.SourceGeminiNotes
		}},
		{Name: "starred", Force: func(item types.ActionItem) bool {
			return item.SourceType == types.SourceStarred
		}},
		{Name: "high-priority-sender", Force: func(item types.ActionItem) bool {
			sender := strings.ToLower(item.Sender)
			for _, p := range patterns {
				if strings.Contains(sender, p) {
					return true
				}
			}
			return false
		}},
	}
}

// ApplyRules folds the rules over the agent's create_task value. The result
// only ever moves from false to true.
func ApplyRules(item types.ActionItem, rules []Rule) bool {
	create := item.CreateTask
	for _, r := range rules {
		if create {
			break
		}
		create = r.Force(item)
	}
	return create
}

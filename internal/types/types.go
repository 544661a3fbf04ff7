package types

import (
	"strings"
	"time"
)

// Priority is the urgency the agent assigned to an action item
type Priority string

const (
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
)

// ParsePriority normalises a reported priority; unknown or empty values become MEDIUM
func ParsePriority(s string) Priority {
	switch p := Priority(strings.ToUpper(strings.TrimSpace(s))); p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return p
	default:
		return PriorityMedium
	}
}

// SourceType records where an action item was found
type SourceType string

const (
	SourceEmail        SourceType = "email"
	SourceGeminiNotes  SourceType = "gemini_notes"
	SourceCalendarPrep SourceType = "calendar_prep"
	SourceStarred      SourceType = "starred"
)

// ParseSourceType normalises a reported source type; unknown or empty values become email
func ParseSourceType(s string) SourceType {
	switch st := SourceType(strings.ToLower(strings.TrimSpace(s))); st {
	case SourceEmail, SourceGeminiNotes, SourceCalendarPrep, SourceStarred:
		return st
	default:
		return SourceEmail
	}
}

// ActionItem is one unit of work extracted from an email, calendar event or note
type ActionItem struct {
	ID             string     `json:"id"`
	Subject        string     `json:"subject"`
	Sender         string     `json:"sender"`
	Priority       Priority   `json:"priority"`
	Action         string     `json:"action"`
	NotifiedAt     time.Time  `json:"notified_at"`
	DueDate        *string    `json:"due_date"` // YYYY-MM-DD
	CreateTask     bool       `json:"create_task"`
	TaskCreated    bool       `json:"task_created"` // as reported by the agent, never verified
	SourceType     SourceType `json:"source_type"`
	RelatedMeeting *string    `json:"related_meeting"`
	Group          *string    `json:"group"` // parent task label when grouped
}

// Summary holds the counters the agent reports at the end of a run
type Summary struct {
	EmailsScanned         int `json:"emails_scanned"`
	ActionItemsFound      int `json:"action_items_found"`
	TasksCreated          int `json:"tasks_created"`
	DuplicatesSkipped     int `json:"duplicates_skipped"`
	SecondaryTasksCreated int `json:"secondary_tasks_created"`
	TasksGrouped          int `json:"tasks_grouped"`
}

// CountBySource tallies items per source type, in first-seen order
func CountBySource(items []ActionItem) ([]SourceType, map[SourceType]int) {
	var order []SourceType
	counts := make(map[SourceType]int)
	for _, item := range items {
		if _, ok := counts[item.SourceType]; !ok {
			order = append(order, item.SourceType)
		}
		counts[item.SourceType]++
	}
	return order, counts
}

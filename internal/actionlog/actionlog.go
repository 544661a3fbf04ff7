// Package actionlog appends action items to a human-readable Markdown log.
package actionlog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vthunder/google-tasks-agent/internal/logging"
	"github.com/vthunder/google-tasks-agent/internal/types"
)

const header = "# Email Action Items Log\n\nThis file tracks action items extracted from emails.\n\n---\n\n"

var priorityBadges = map[types.Priority]string{
	types.PriorityHigh:   "[!]",
	types.PriorityMedium: "[~]",
	types.PriorityLow:    "[.]",
}

var sourceBadges = map[types.SourceType]string{
	types.SourceGeminiNotes:  "[notes]",
	types.SourceCalendarPrep: "[cal]",
	types.SourceStarred:      "[star]",
	types.SourceEmail:        "[mail]",
}

// Log is an append-only Markdown file
type Log struct {
	path string
	log  *logging.Logger
}

// New creates a log writer for path
func New(path string, log *logging.Logger) *Log {
	return &Log{path: path, log: log.With("actionlog")}
}

// Path returns the log file path
func (l *Log) Path() string {
	return l.path
}

// Append writes one dated section for the batch. An empty batch writes nothing.
func (l *Log) Append(items []types.ActionItem, at time.Time) error {
	if len(items) == 0 {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0700); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open action log: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat action log: %w", err)
	}

	var b strings.Builder
	if info.Size() == 0 {
		b.WriteString(header)
	}
	b.WriteString(Section(items, at))

	if _, err := f.WriteString(b.String()); err != nil {
		return fmt.Errorf("failed to write action log: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close action log: %w", err)
	}

	l.log.Info("Appended %d items to action log", len(items))
	return nil
}

// Section renders the Markdown for one batch
func Section(items []types.ActionItem, at time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", at.Format("2006-01-02 15:04"))

	for _, item := range items {
		fmt.Fprintf(&b, "- %s %s **%s**: %s\n", PriorityBadge(item.Priority), SourceBadge(item.SourceType), item.Priority, item.Action)
		fmt.Fprintf(&b, "  - From: %s\n", item.Sender)
		fmt.Fprintf(&b, "  - Subject: %s\n", item.Subject)
		if item.RelatedMeeting != nil {
			fmt.Fprintf(&b, "  - Meeting: %s\n", *item.RelatedMeeting)
		}
		if item.DueDate != nil {
			fmt.Fprintf(&b, "  - Due: %s\n", *item.DueDate)
		}
		if item.Group != nil {
			fmt.Fprintf(&b, "  - Group: %s\n", *item.Group)
		}
		switch {
		case item.TaskCreated:
			b.WriteString("  - Created in Google Tasks\n")
		case item.CreateTask:
			b.WriteString("  - Flagged for Google Tasks (not created)\n")
		}
		fmt.Fprintf(&b, "  - Email ID: `%s`\n\n", item.ID)
	}

	b.WriteString("---\n\n")
	return b.String()
}

// PriorityBadge returns the short marker for a priority
func PriorityBadge(p types.Priority) string {
	if badge, ok := priorityBadges[p]; ok {
		return badge
	}
	return "[?]"
}

// SourceBadge returns the short marker for a source type
func SourceBadge(s types.SourceType) string {
	if badge, ok := sourceBadges[s]; ok {
		return badge
	}
	return "[mail]"
}

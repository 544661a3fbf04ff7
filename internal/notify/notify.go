// Package notify tells the user about newly found action items.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/emersion/go-message/mail"

	"github.com/vthunder/google-tasks-agent/internal/types"
)

const (
	maxActionChars = 50
	maxSenderChars = 30
)

// Notifier delivers a summary of a batch of action items
type Notifier interface {
	Notify(ctx context.Context, items []types.ActionItem) error
}

var priorityIcons = map[types.Priority]string{
	types.PriorityHigh:   "[!]",
	types.PriorityMedium: "[~]",
	types.PriorityLow:    "[.]",
}

// Format renders the notification title and body, listing at most max items
func Format(items []types.ActionItem, max int) (title, body string) {
	title = fmt.Sprintf("Email Action Items (%d new)", len(items))

	var lines []string
	for i, item := range items {
		if i >= max {
			break
		}
		icon, ok := priorityIcons[item.Priority]
		if !ok {
			icon = "[?]"
		}
		lines = append(lines, fmt.Sprintf("%s %s: %s", icon, item.Priority, truncate(item.Action, maxActionChars, "...")))
		lines = append(lines, "   From: "+truncate(DisplayName(item.Sender), maxSenderChars, ""))
	}
	if len(items) > max {
		lines = append(lines, fmt.Sprintf("   ... and %d more", len(items)-max))
	}
	return title, strings.Join(lines, "\n")
}

// DisplayName returns the phrase of an address ("Jane Doe <jane@x>" -> "Jane Doe"),
// or the bare address when there is none
func DisplayName(sender string) string {
	if addr, err := mail.ParseAddress(sender); err == nil {
		if addr.Name != "" {
			return addr.Name
		}
		return addr.Address
	}
	name, _, _ := strings.Cut(sender, "<")
	return strings.TrimSpace(name)
}

func truncate(s string, n int, suffix string) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + suffix
}

// Multi fans a notification out to several notifiers
type Multi []Notifier

// Notify calls every notifier, even after a failure, and joins the errors
func (m Multi) Notify(ctx context.Context, items []types.ActionItem) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, items); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

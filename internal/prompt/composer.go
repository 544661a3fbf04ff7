// Package prompt builds the workflow instructions given to the agent runtime.
package prompt

import (
	"fmt"
	"strings"
	"time"

	"github.com/vthunder/google-tasks-agent/internal/config"
)

const (
	// seenMessageTail and seenSecondaryTail bound how many seen ids are sent
	seenMessageTail   = 200
	seenSecondaryTail = 100

	geminiMaxResults    = 10
	secondaryMaxResults = 50
)

// Params are the per-run inputs to Build
type Params struct {
	SeenMessageIDs        []string
	SeenSecondaryEventIDs []string
	DryRun                bool
	Force                 bool
	Now                   time.Time
}

// Composer renders the workflow instructions for a configuration
type Composer struct {
	cfg *config.Config
}

// NewComposer creates a composer
func NewComposer(cfg *config.Config) *Composer {
	return &Composer{cfg: cfg}
}

// Build renders the full instruction text
func (c *Composer) Build(p Params) string {
	now := p.Now.UTC()
	if p.Now.IsZero() {
		now = time.Now().UTC()
	}
	timeMin := now.Format("2006-01-02T15:04:05Z")
	timeMax := now.AddDate(0, 0, c.cfg.CalendarDays).Format("2006-01-02T15:04:05Z")

	var b strings.Builder
	b.WriteString("You are an email and calendar monitoring agent. Your job is to scan emails and calendar events, identify action items, and create Google Tasks.\n\n")
	fmt.Fprintf(&b, "TODAY'S DATE: %s\n\n", now.Format("2006-01-02"))

	b.WriteString(seenFilter(p))
	b.WriteString("\n\nExecute the following workflow:\n\n")

	c.writeGather(&b, timeMin, timeMax)
	c.writeAnalysis(&b)
	c.writeSecondary(&b, p.DryRun)
	c.writeTasks(&b, p.DryRun)
	writeReturnShape(&b)

	return b.String()
}

func seenFilter(p Params) string {
	if p.Force {
		return "FORCE MODE: Process ALL messages regardless of whether they have been seen before."
	}
	return fmt.Sprintf(`PREVIOUSLY SEEN MESSAGE IDS (skip these):
[%s]

PREVIOUSLY SEEN SECONDARY CALENDAR EVENT IDS (skip these):
[%s]

Only process messages and events whose IDs are NOT in the lists above.`,
		quoteList(tail(p.SeenMessageIDs, seenMessageTail)),
		quoteList(tail(p.SeenSecondaryEventIDs, seenSecondaryTail)))
}

// stepLetters hands out A, B, C, ... in order
type stepLetters struct{ next byte }

func (s *stepLetters) take() string {
	l := string(rune('A' + s.next))
	s.next++
	return l
}

func (c *Composer) writeGather(b *strings.Builder, timeMin, timeMax string) {
	var letters stepLetters

	b.WriteString("STEP 1: GATHER DATA\n")
	fmt.Fprintf(b, `%s. Fetch recent inbox emails:
   - Call gmail_search_messages with query="in:inbox" and maxResults=%d
   - Read each NEW message (not in seen IDs) with gmail_read_message
`, letters.take(), c.cfg.MaxEmails)

	if c.cfg.CalendarEnabled {
		fmt.Fprintf(b, `
%s. Fetch upcoming calendar events for context:
   - Call calendar_list_events with calendarId="primary", timeMin="%s", timeMax="%s", maxResults=%d
   - These events provide context for email analysis (meeting prep, deadlines, etc.)
`, letters.take(), timeMin, timeMax, config.MaxCalendarInPrompt)
	}

	if c.cfg.SecondaryCalendarsEnabled {
		for i, id := range c.cfg.SecondaryCalendarIDs() {
			fmt.Fprintf(b, `
%s. Fetch secondary calendar events (calendar %d):
   - Call calendar_list_events with calendarId="%s", timeMin="%s", timeMax="%s", maxResults=%d
   - Keep only events whose IDs are NOT in the seen secondary calendar event IDs list
`, letters.take(), i+1, id, timeMin, timeMax, secondaryMaxResults)
		}
	}

	fmt.Fprintf(b, `
%s. Fetch Gemini meeting notes:
   - Call gmail_search_messages with query="from:%s" and maxResults=%d
   - Read each NEW message with gmail_read_message
`, letters.take(), config.GeminiNotesSender, geminiMaxResults)

	if c.cfg.StarredEnabled {
		fmt.Fprintf(b, `
%s. Fetch starred emails:
   - Call gmail_search_messages with query="is:starred" and maxResults=%d
   - Read each new starred email with gmail_read_message
   - Mark these as source_type="starred" during analysis
`, letters.take(), c.cfg.MaxStarred)
	}
	b.WriteString("\n")
}

func (c *Composer) writeAnalysis(b *strings.Builder) {
	names := UserNames(c.cfg.UserEmail)
	namesStr := "unknown"
	if len(names) > 0 {
		namesStr = strings.Join(names, ", ")
	}

	fmt.Fprintf(b, `STEP 2: ANALYZE EMAILS FOR ACTION ITEMS
For each new email you read, analyze it for action items requiring the recipient's attention.

SPECIAL INSTRUCTIONS FOR STARRED EMAILS:
- Emails that were found via "is:starred" search have been explicitly starred by the user
- ALWAYS create a task for starred emails; the user has indicated these need action
- Set source_type to "starred"
- Set create_task to true
- If the action isn't clear, create "Follow up on: [subject]"

SPECIAL INSTRUCTIONS FOR GEMINI MEETING NOTES:
- Emails from %s are AI-generated meeting summaries
- Look in the "Suggested next steps" section for action items
- ONLY extract items specifically assigned to the recipient
- The recipient's name variations to look for: %s
- Set source_type to "gemini_notes"
- Include the meeting name in related_meeting field

CALENDAR CORRELATION:
- Check if any emails relate to upcoming calendar events
- If an email discusses preparation, materials, or deadlines for an upcoming meeting, flag it
- Set source_type to "calendar_prep" if it's preparation for an upcoming meeting
- Include the meeting name in related_meeting field

GROUPING:
- When several action items belong to the same thread, meeting or deliverable, give them the same short "group" label
- Create ONE task per group (title from the most important item, other items listed in the notes)
- Count items folded into another task in summary.tasks_grouped
- Use null for group when an item stands alone

For each action item, determine:
- id: The email ID it came from
- subject: The email subject
- sender: The sender email/name
- action: Clear, concise task. Format: "[Verb] [specific deliverable]" (under 60 chars)
- priority: HIGH / MEDIUM / LOW
- due_date: YYYY-MM-DD format or null. Infer from context:
  - "next week" = next Monday
  - "by Friday" = this Friday
  - "tomorrow" = tomorrow's date
  - "by end of week" = this Friday
  - "before [meeting]" = day before that meeting
  - If preparation needed for an upcoming event, due = day before
- create_task: true/false
- source_type: "email", "gemini_notes", "calendar_prep", or "starred"
- related_meeting: Meeting name if applicable, or null
- group: Group label or null

Set create_task to TRUE if ANY of these apply:
- HIGH priority
- From high-priority senders: %s
- Has a specific deadline
- Email is starred
- From Gemini meeting notes with the recipient's name assigned
- Preparation needed for an upcoming meeting
- Concur expense requiring the recipient's approval (not generic alerts)

Do NOT create action items for:
- Newsletters or promotional emails
- FYI notifications with no action needed
- Action items assigned to OTHER people in meeting notes
- Already-completed items
- Generic Concur alerts (e.g., "expense report approved", "payment processed")

`, config.GeminiNotesSender, namesStr, strings.Join(c.cfg.HighPrioritySenders(), ", "))
}

func (c *Composer) writeSecondary(b *strings.Builder, dryRun bool) {
	b.WriteString("STEP 3: PROCESS SECONDARY CALENDAR EVENTS\n")
	ids := c.cfg.SecondaryCalendarIDs()
	if !c.cfg.SecondaryCalendarsEnabled || len(ids) == 0 {
		b.WriteString("Secondary calendar processing is disabled. Skip this step.\n\n")
		return
	}
	b.WriteString(`For each NEW event fetched from a secondary calendar:
- Skip events with titles containing PTO, vacation, out of office, or OOO patterns
`)
	if dryRun || !c.cfg.TasksEnabled {
		b.WriteString(`- Do NOT create any Google Tasks. List the events a task would be created for in your reply.
- Add every processed event ID to processed_secondary_event_ids
- Keep summary.secondary_tasks_created at 0
`)
	} else {
		b.WriteString(`- Create a Google Task with the event title and due date set to the event start date
- Notes should include "Source: Secondary Calendar (<calendar id>)\nPriority: MEDIUM"
- Add every processed event ID to processed_secondary_event_ids
- Count the tasks created here in summary.secondary_tasks_created
`)
	}
	b.WriteString("Secondary calendars: ")
	b.WriteString(quoteList(ids))
	b.WriteString("\n\n")
}

func (c *Composer) writeTasks(b *strings.Builder, dryRun bool) {
	switch {
	case dryRun:
		b.WriteString(`STEP 4: SKIP TASK CREATION (DRY RUN MODE)
Do NOT create any Google Tasks. Just report what would be created.

`)
	case c.cfg.TasksEnabled:
		target := fmt.Sprintf("find the list named %q (case-insensitive)", c.cfg.TaskListName)
		if c.cfg.TaskListID != "" {
			target = fmt.Sprintf("use the task list ID %q directly", c.cfg.TaskListID)
		}
		fmt.Fprintf(b, `STEP 4: CREATE GOOGLE TASKS
For each action item with create_task=true:
1. Call tasks_list_tasklists and %s.
   - Fall back to the first available list if not found
2. Call tasks_list_tasks on that list. Skip any item whose action matches an existing incomplete task
   and count it in summary.duplicates_skipped.
3. Call tasks_create_task for each remaining item (one per group) with:
   - title: The action text (max 1000 chars)
   - notes: "Source: [subject]\nPriority: [priority]\n\nOpen email: https://mail.google.com/mail/u/0/#all/[email_id]"
   - due: The due_date in RFC 3339 format (e.g., "2026-02-15T00:00:00.000Z") if available
   - taskListId: The task list ID found above
4. Set task_created=true only on items whose task was actually created.

`, target)
	default:
		b.WriteString(`STEP 4: SKIP TASK CREATION (DISABLED)
Task creation is disabled. Skip this step.

`)
	}
}

func writeReturnShape(b *strings.Builder) {
	b.WriteString(`STEP 5: RETURN RESULTS
Return your results as a JSON object with this exact structure:
{
  "processed_message_ids": ["id1", "id2", ...],
  "processed_secondary_event_ids": ["eid1", "eid2", ...],
  "action_items": [
    {
      "id": "email_id",
      "subject": "Email subject",
      "sender": "sender@example.com",
      "priority": "HIGH",
      "action": "Review Q4 budget proposal",
      "due_date": "2026-02-15",
      "create_task": true,
      "task_created": true,
      "source_type": "email",
      "related_meeting": null,
      "group": null
    }
  ],
  "summary": {
    "emails_scanned": 15,
    "action_items_found": 3,
    "tasks_created": 2,
    "duplicates_skipped": 0,
    "secondary_tasks_created": 1,
    "tasks_grouped": 0
  }
}

IMPORTANT: Return ONLY the JSON object as your final message, no other text.`)
}

// UserNames derives name variations from an email address for matching
// assignees in meeting notes
func UserNames(email string) []string {
	if email == "" {
		return nil
	}
	local := strings.ToLower(strings.SplitN(email, "@", 2)[0])
	names := []string{local}

	if strings.Contains(local, ".") {
		parts := strings.Split(local, ".")
		names = append(names, parts...)
		names = append(names, strings.Join(parts, " "))
	} else if len(local) > 3 {
		// jdoe -> doe
		names = append(names, local[1:])
	}
	return names
}

func tail(ids []string, n int) []string {
	if len(ids) <= n {
		return ids
	}
	return ids[len(ids)-n:]
}

func quoteList(ids []string) string {
	quoted := make([]string, len(ids))
	for i, id := range ids {
		quoted[i] = `"` + id + `"`
	}
	return strings.Join(quoted, ", ")
}

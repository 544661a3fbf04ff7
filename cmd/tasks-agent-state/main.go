// tasks-agent-state inspects the google-tasks-agent state file, action items
// and run history.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/pflag"

	"github.com/vthunder/google-tasks-agent/internal/actionlog"
	"github.com/vthunder/google-tasks-agent/internal/config"
	"github.com/vthunder/google-tasks-agent/internal/history"
	"github.com/vthunder/google-tasks-agent/internal/logging"
	"github.com/vthunder/google-tasks-agent/internal/state"
	"github.com/vthunder/google-tasks-agent/internal/types"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Width(18)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))

	priorityStyles = map[types.Priority]lipgloss.Style{
		types.PriorityHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		types.PriorityMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		types.PriorityLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	store := state.NewStore(cfg.StateFile(), config.MaxSeenIDs, logging.Discard())
	inspector := state.NewInspector(store)

	cmd := "summary"
	var args []string
	if len(os.Args) > 1 {
		cmd = os.Args[1]
		args = os.Args[2:]
	}

	switch cmd {
	case "summary", "":
		handleSummary(inspector, cfg)
	case "health":
		handleHealth(inspector)
	case "seen":
		handleSeen(store, args)
	case "items":
		handleItems(store)
	case "history":
		handleHistory(cfg, args)
	case "reset":
		handleReset(inspector, args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`tasks-agent-state - Inspect google-tasks-agent state

Usage: tasks-agent-state <command> [options]

Commands:
  summary                 Overview of the state file (default)
  health                  Run health checks with recommendations

  seen                    List seen message ids (oldest first)
  seen --secondary        List seen secondary calendar event ids
  seen --limit=N          Show only the newest N ids

  items                   Show action items from the last run

  history [n]             Show the last n runs (default 10)

  reset --yes             Forget all seen ids (next run rescans everything)

Environment:
  GOOGLE_TASKS_AGENT_HOME_DIR  State directory (default: ~/.google-tasks-agent)`)
}

func row(label string, value any) {
	fmt.Printf("%s %v\n", labelStyle.Render(label), value)
}

func handleSummary(inspector *state.Inspector, cfg *config.Config) {
	summary := inspector.Summary()

	fmt.Println(headingStyle.Render("State Summary"))
	row("State file:", summary.Path)
	if !summary.Exists {
		fmt.Println(warnStyle.Render("No state file yet"))
		return
	}
	row("Mode:", summary.Mode)
	row("Seen messages:", fmt.Sprintf("%d / %d", summary.SeenMessages, config.MaxSeenIDs))
	row("Seen secondary:", fmt.Sprintf("%d / %d", summary.SeenSecondary, config.MaxSeenIDs))
	if summary.LastCheck != nil {
		row("Last check:", fmt.Sprintf("%s (%s ago)", summary.LastCheck.Local().Format("2006-01-02 15:04"),
			time.Since(*summary.LastCheck).Round(time.Minute)))
	} else {
		row("Last check:", "never")
	}
	row("Last items:", summary.LastItems)
	for _, source := range []types.SourceType{types.SourceEmail, types.SourceGeminiNotes, types.SourceCalendarPrep, types.SourceStarred} {
		if n := summary.LastItemsBySource[source]; n > 0 {
			row("  "+string(source)+":", n)
		}
	}
	row("Tasks created:", fmt.Sprintf("%d of %d requested", summary.LastTasksCreated, summary.LastTasksRequested))
	row("Action log:", cfg.ActionItemsFile())
}

func handleHealth(inspector *state.Inspector) {
	health := inspector.Health()

	fmt.Println(headingStyle.Render("Health Check"))
	if health.Status == "healthy" {
		fmt.Println(okStyle.Render("Status: healthy"))
	} else {
		fmt.Println(warnStyle.Render("Status: " + health.Status))
	}

	if len(health.Warnings) > 0 {
		fmt.Println("\nWarnings:")
		for _, w := range health.Warnings {
			fmt.Printf("  - %s\n", warnStyle.Render(w))
		}
	}
	if len(health.Recommendations) > 0 {
		fmt.Println("\nRecommendations:")
		for _, r := range health.Recommendations {
			fmt.Printf("  - %s\n", r)
		}
	}
}

func handleSeen(store *state.Store, args []string) {
	var secondary bool
	var limit int
	flagSet := pflag.NewFlagSet("seen", pflag.ContinueOnError)
	flagSet.BoolVar(&secondary, "secondary", false, "list secondary calendar event ids")
	flagSet.IntVar(&limit, "limit", 0, "show only the newest N ids")
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	st := store.Load()
	ids := st.SeenMessageIDs
	if secondary {
		ids = st.SeenSecondaryEventIDs
	}
	if limit > 0 && len(ids) > limit {
		ids = ids[len(ids)-limit:]
	}
	for _, id := range ids {
		fmt.Println(id)
	}
}

func handleItems(store *state.Store) {
	st := store.Load()
	if len(st.LastActionItems) == 0 {
		fmt.Println("No action items from the last run")
		return
	}

	fmt.Println(headingStyle.Render(fmt.Sprintf("Last run: %d action items", len(st.LastActionItems))))
	for _, item := range st.LastActionItems {
		style, ok := priorityStyles[item.Priority]
		if !ok {
			style = lipgloss.NewStyle()
		}
		fmt.Printf("%s %s %s\n",
			style.Render(actionlog.PriorityBadge(item.Priority)+" "+string(item.Priority)),
			actionlog.SourceBadge(item.SourceType),
			item.Action)
		fmt.Printf("    From: %s | Subject: %s\n", item.Sender, logging.Truncate(item.Subject, 60))

		var extra []string
		if item.DueDate != nil {
			extra = append(extra, "due "+*item.DueDate)
		}
		if item.RelatedMeeting != nil {
			extra = append(extra, "meeting "+*item.RelatedMeeting)
		}
		switch {
		case item.TaskCreated:
			extra = append(extra, okStyle.Render("task created"))
		case item.CreateTask:
			extra = append(extra, warnStyle.Render("task requested, not created"))
		}
		if len(extra) > 0 {
			fmt.Printf("    %s\n", strings.Join(extra, ", "))
		}
	}
}

func handleHistory(cfg *config.Config, args []string) {
	n := 10
	if len(args) > 0 {
		parsed, err := strconv.Atoi(args[0])
		if err != nil || parsed <= 0 {
			fmt.Fprintf(os.Stderr, "Error: invalid count %q\n", args[0])
			os.Exit(1)
		}
		n = parsed
	}

	if _, err := os.Stat(cfg.HistoryDB()); err != nil {
		fmt.Println("No run history yet")
		return
	}
	db, err := history.Open(cfg.HistoryDB())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	runs, err := db.Recent(context.Background(), n)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if len(runs) == 0 {
		fmt.Println("No run history yet")
		return
	}

	fmt.Println(headingStyle.Render(fmt.Sprintf("Last %d runs", len(runs))))
	for _, r := range runs {
		s := r.Summary
		flags := ""
		if r.Force {
			flags = " " + warnStyle.Render("[force]")
		}
		fmt.Printf("%s  %5s  scanned=%d items=%d tasks=%d dup=%d secondary=%d grouped=%d%s\n",
			r.FinishedAt.Local().Format("2006-01-02 15:04"),
			r.FinishedAt.Sub(r.StartedAt).Round(time.Second),
			s.EmailsScanned, s.ActionItemsFound, s.TasksCreated, s.DuplicatesSkipped,
			s.SecondaryTasksCreated, s.TasksGrouped, flags)
	}
}

func handleReset(inspector *state.Inspector, args []string) {
	var yes bool
	flagSet := pflag.NewFlagSet("reset", pflag.ContinueOnError)
	flagSet.BoolVar(&yes, "yes", false, "confirm the reset")
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if !yes {
		fmt.Fprintln(os.Stderr, "Refusing to reset without --yes: the next run will rescan every message")
		os.Exit(1)
	}

	if err := inspector.Reset(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("State reset")
}

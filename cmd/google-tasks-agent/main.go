// google-tasks-agent runs one pass of the mail and calendar scan: it asks the
// agent runtime to find action items, records what was processed and tells the
// user about anything new. Schedule it with cron or launchd.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/vthunder/google-tasks-agent/internal/actionlog"
	"github.com/vthunder/google-tasks-agent/internal/agent"
	"github.com/vthunder/google-tasks-agent/internal/config"
	"github.com/vthunder/google-tasks-agent/internal/executive"
	"github.com/vthunder/google-tasks-agent/internal/history"
	"github.com/vthunder/google-tasks-agent/internal/logging"
	"github.com/vthunder/google-tasks-agent/internal/mcp"
	"github.com/vthunder/google-tasks-agent/internal/notify"
	"github.com/vthunder/google-tasks-agent/internal/profiling"
	"github.com/vthunder/google-tasks-agent/internal/prompt"
	"github.com/vthunder/google-tasks-agent/internal/reconcile"
	"github.com/vthunder/google-tasks-agent/internal/result"
	"github.com/vthunder/google-tasks-agent/internal/state"
)

var version = "0.3.0"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var dryRun, force, checkServer, showVersion bool

	flagSet := pflag.NewFlagSet("google-tasks-agent", pflag.ContinueOnError)
	flagSet.BoolVar(&dryRun, "dry-run", false, "run without creating tasks or updating state")
	flagSet.BoolVar(&force, "force", false, "process all emails, ignoring seen state")
	flagSet.BoolVar(&checkServer, "check-server", false, "start the MCP tool server, list its tools and exit")
	flagSet.BoolVar(&showVersion, "version", false, "print the version and exit")
	flagSet.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: google-tasks-agent [flags]\n\nFlags:\n%s", flagSet.FlagUsages())
	}

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}
	if showVersion {
		fmt.Printf("google-tasks-agent %s\n", version)
		return 0
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	log, closer, err := logging.Open(cfg.LogFile(), cfg.Debug || dryRun)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := mcp.ServerSpec{
		Name:    config.ToolServerName,
		Command: cfg.MCPServerCommand,
		Args:    []string{cfg.MCPServerPath},
	}

	if checkServer {
		return runCheckServer(ctx, server, log)
	}

	log.Info("Google Tasks Agent %s starting...", version)
	if dryRun {
		log.Info("DRY RUN MODE - no tasks created, no state updated")
	}
	if force {
		log.Info("FORCE MODE - processing all emails")
	}

	runner, cleanup, err := buildRunner(cfg, server, log)
	if err != nil {
		log.Error("Startup failed: %v", err)
		return 1
	}
	defer cleanup()

	err = runner.Run(ctx, agent.Options{DryRun: dryRun, Force: force})
	if ctx.Err() != nil {
		log.Info("Interrupted by user")
		return 0
	}
	if err != nil {
		log.Error("Agent failed: %v", err)
		return 1
	}
	return 0
}

// buildRunner wires the pipeline. cleanup releases the history database and
// the timings file.
func buildRunner(cfg *config.Config, server mcp.ServerSpec, log *logging.Logger) (*agent.Runner, func(), error) {
	if cfg.MCPServerPath == "" {
		return nil, nil, errors.New("MCP server path is not set (GOOGLE_TASKS_AGENT_MCP_SERVER_PATH)")
	}
	if _, err := os.Stat(cfg.MCPServerPath); err != nil {
		return nil, nil, fmt.Errorf("MCP server not found: %w", err)
	}
	if err := os.MkdirAll(cfg.HomeDir, 0700); err != nil {
		return nil, nil, fmt.Errorf("failed to create %s: %w", cfg.HomeDir, err)
	}

	mcpConfig, err := mcp.ConfigJSON(server)
	if err != nil {
		return nil, nil, err
	}

	store := state.NewStore(cfg.StateFile(), config.MaxSeenIDs, log)
	actions := actionlog.New(cfg.ActionItemsFile(), log)

	notifiers := notify.Multi{notify.NewDesktop(config.MaxItemsInNotification, cfg.ActionItemsFile(), log)}
	if cfg.DiscordToken != "" && cfg.DiscordChannelID != "" {
		discord, err := notify.NewDiscord(cfg.DiscordToken, cfg.DiscordChannelID, config.MaxItemsInNotification, log)
		if err != nil {
			log.Warn("Discord notifications disabled: %v", err)
		} else {
			notifiers = append(notifiers, discord)
		}
	}

	deps := reconcile.Deps{State: store, Notifier: notifiers, ActionLog: actions}
	var closers []func() error
	if db, err := history.Open(cfg.HistoryDB()); err != nil {
		log.Warn("Run history disabled: %v", err)
	} else {
		deps.History = db
		closers = append(closers, db.Close)
	}

	profiler, err := profiling.Open(profiling.ParseLevel(cfg.ProfileLevel), cfg.TimingsFile())
	if err != nil {
		log.Warn("Stage timings disabled: %v", err)
	} else {
		closers = append(closers, profiler.Close)
	}
	cleanup := func() {
		for _, c := range closers {
			c()
		}
	}

	client := executive.NewClient(executive.Config{
		Binary:       cfg.ClaudeBinary,
		Model:        cfg.Model,
		MaxTurns:     cfg.MaxTurns,
		MCPConfig:    mcpConfig,
		AllowedTools: []string{mcp.AllowedToolPattern(server.Name)},
		WorkDir:      cfg.HomeDir,
	}, log)

	runner := agent.NewRunner(
		store,
		prompt.NewComposer(cfg),
		client,
		result.NewParser(cfg.HighPrioritySenders()),
		reconcile.New(deps, log),
		log,
	).WithProfiler(profiler)
	return runner, cleanup, nil
}

func runCheckServer(ctx context.Context, server mcp.ServerSpec, log *logging.Logger) int {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	log.Info("Probing MCP server: %s %s", server.Command, strings.Join(server.Args, " "))
	probe, err := mcp.Probe(ctx, server, version)
	if err != nil {
		log.Error("MCP server check failed: %v", err)
		return 1
	}

	fmt.Printf("Server:   %s %s (protocol %s)\n", probe.ServerName, probe.ServerVersion, probe.Protocol)
	fmt.Printf("Tools:    %d\n", len(probe.Tools))
	for _, name := range probe.Tools {
		fmt.Printf("  %s\n", name)
	}

	if missing := probe.MissingTools(mcp.WorkflowTools); len(missing) > 0 {
		fmt.Printf("Missing:  %s\n", strings.Join(missing, ", "))
		return 1
	}
	fmt.Println("All workflow tools available")
	return 0
}

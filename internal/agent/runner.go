// Package agent wires one run of the pipeline: load state, compose the
// instructions, invoke the agent, parse its reply and reconcile.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vthunder/google-tasks-agent/internal/executive"
	"github.com/vthunder/google-tasks-agent/internal/logging"
	"github.com/vthunder/google-tasks-agent/internal/profiling"
	"github.com/vthunder/google-tasks-agent/internal/prompt"
	"github.com/vthunder/google-tasks-agent/internal/reconcile"
	"github.com/vthunder/google-tasks-agent/internal/result"
	"github.com/vthunder/google-tasks-agent/internal/state"
	"github.com/vthunder/google-tasks-agent/internal/types"
)

const replyExcerptChars = 500

// Invoker performs one exchange with the agent runtime
type Invoker interface {
	Run(ctx context.Context, instructions string, schema json.RawMessage) (*executive.Reply, error)
}

// StateLoader reads the prior run state
type StateLoader interface {
	Load() state.RunState
}

// Options are the per-run switches from the command line
type Options struct {
	DryRun bool
	Force  bool
}

// Runner executes the pipeline once per Run call
type Runner struct {
	state      StateLoader
	composer   *prompt.Composer
	invoker    Invoker
	parser     *result.Parser
	reconciler *reconcile.Reconciler
	profiler   *profiling.Profiler
	log        *logging.Logger
	now        func() time.Time
}

// NewRunner creates a runner from its stages
func NewRunner(st StateLoader, composer *prompt.Composer, invoker Invoker, parser *result.Parser, reconciler *reconcile.Reconciler, log *logging.Logger) *Runner {
	return &Runner{
		state:      st,
		composer:   composer,
		invoker:    invoker,
		parser:     parser,
		reconciler: reconciler,
		log:        log.With("agent"),
		now:        time.Now,
	}
}

// WithProfiler records stage timings for every run
func (r *Runner) WithProfiler(p *profiling.Profiler) *Runner {
	r.profiler = p
	return r
}

// Run executes one pass. Any error means nothing was persisted.
func (r *Runner) Run(ctx context.Context, opts Options) error {
	started := r.now()
	runID := uuid.NewString()

	r.log.Info("============================================================")
	r.log.Info("Starting run %s (dry_run=%v, force=%v)", runID, opts.DryRun, opts.Force)

	done := r.profiler.Start(runID, "load_state")
	prior := r.state.Load()
	done(map[string]any{"seen_messages": len(prior.SeenMessageIDs)})
	lastCheck := "never"
	if prior.LastCheck != nil {
		lastCheck = prior.LastCheck.Format(time.RFC3339)
	}
	r.log.Info("Loaded state: %d seen messages, %d seen secondary events, last check %s",
		len(prior.SeenMessageIDs), len(prior.SeenSecondaryEventIDs), lastCheck)

	done = r.profiler.Start(runID, "compose")
	instructions := r.composer.Build(prompt.Params{
		SeenMessageIDs:        prior.SeenMessageIDs,
		SeenSecondaryEventIDs: prior.SeenSecondaryEventIDs,
		DryRun:                opts.DryRun,
		Force:                 opts.Force,
		Now:                   started,
	})
	done(map[string]any{"chars": len(instructions)})
	r.log.Debug("Instructions (%d chars): %s", len(instructions), logging.Truncate(instructions, replyExcerptChars))

	done = r.profiler.Start(runID, "invoke")
	reply, err := r.invoker.Run(ctx, instructions, result.OutputSchema())
	done(invokeMetadata(reply, err))
	if err != nil {
		var agentErr *executive.AgentError
		switch {
		case errors.As(err, &agentErr):
			r.log.Error("Agent reported an error: %s", agentErr.Message)
		case errors.Is(err, executive.ErrNoResult):
			r.log.Error("Agent returned no result")
		}
		return fmt.Errorf("agent run failed: %w", err)
	}

	done = r.profiler.Start(runID, "parse")
	parsed, err := r.parse(reply)
	if err != nil {
		done(map[string]any{"error": err.Error()})
		return err
	}
	done(map[string]any{"items": len(parsed.ActionItems)})

	r.logOutcome(parsed)

	// An interrupt after the agent finished still aborts before anything is written
	if err := ctx.Err(); err != nil {
		return err
	}

	batch := reconcile.Batch{
		RunID:                      runID,
		StartedAt:                  started,
		Force:                      opts.Force,
		Items:                      parsed.ActionItems,
		ProcessedMessageIDs:        parsed.ProcessedMessageIDs,
		ProcessedSecondaryEventIDs: parsed.ProcessedSecondaryEventIDs,
		Summary:                    parsed.Summary,
	}
	done = r.profiler.StartWithMetadata(runID, "reconcile", map[string]any{"dry_run": opts.DryRun})
	_, err = r.reconciler.Reconcile(ctx, prior, batch, opts.DryRun)
	done()
	if err != nil {
		return err
	}

	if opts.DryRun {
		r.log.Info("DRY RUN: State not updated")
	}
	r.log.Info("Run %s complete in %s", runID, r.now().Sub(started).Round(time.Millisecond))
	return nil
}

func invokeMetadata(reply *executive.Reply, err error) map[string]any {
	if err != nil {
		return map[string]any{"error": err.Error()}
	}
	md := map[string]any{"tool_calls": reply.ToolCalls, "structured": len(reply.Structured) > 0}
	if u := reply.Usage; u != nil {
		md["turns"] = u.NumTurns
		md["input_tokens"] = u.TotalInputTokens()
		md["output_tokens"] = u.OutputTokens
		md["cost_usd"] = u.CostUSD
	}
	return md
}

// parse prefers structured output and falls back to extracting from text
func (r *Runner) parse(reply *executive.Reply) (*result.Reply, error) {
	notifiedAt := r.now()

	var parsed *result.Reply
	var err error
	var raw string
	if len(reply.Structured) > 0 {
		raw = string(reply.Structured)
		parsed, err = r.parser.Parse(reply.Structured, notifiedAt)
	} else {
		raw = reply.Text
		parsed, err = r.parser.ParseText(reply.Text, notifiedAt)
	}
	if err != nil {
		r.log.Error("Failed to parse agent reply: %v", err)
		r.log.Error("Reply excerpt: %s", logging.Truncate(raw, replyExcerptChars))
		return nil, fmt.Errorf("failed to parse agent reply: %w", err)
	}
	return parsed, nil
}

func (r *Runner) logOutcome(parsed *result.Reply) {
	s := parsed.Summary
	r.log.Info("Summary: %d emails scanned, %d action items, %d tasks created, %d duplicates skipped, %d secondary tasks, %d grouped",
		s.EmailsScanned, s.ActionItemsFound, s.TasksCreated, s.DuplicatesSkipped, s.SecondaryTasksCreated, s.TasksGrouped)

	if len(parsed.ActionItems) == 0 {
		r.log.Info("No new action items")
		return
	}

	order, counts := types.CountBySource(parsed.ActionItems)
	for _, source := range order {
		r.log.Info("  %s: %d", source, counts[source])
	}
	for _, item := range parsed.ActionItems {
		r.log.Debug("  [%s] %s (from %s, create_task=%v, task_created=%v)",
			item.Priority, item.Action, item.Sender, item.CreateTask, item.TaskCreated)
	}
}

// Package reconcile folds one run's outcome into the persisted state and
// triggers the side effects of a non-dry run.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/vthunder/google-tasks-agent/internal/history"
	"github.com/vthunder/google-tasks-agent/internal/logging"
	"github.com/vthunder/google-tasks-agent/internal/notify"
	"github.com/vthunder/google-tasks-agent/internal/state"
	"github.com/vthunder/google-tasks-agent/internal/types"
)

// StateSaver persists the run state
type StateSaver interface {
	Save(st state.RunState) error
}

// ActionLog records a batch of items for the user
type ActionLog interface {
	Append(items []types.ActionItem, at time.Time) error
}

// Recorder keeps run history
type Recorder interface {
	Record(ctx context.Context, run history.Run) error
}

// Deps are the reconciler's collaborators. Notifier, ActionLog and History
// are optional; State is required.
type Deps struct {
	State     StateSaver
	Notifier  notify.Notifier
	ActionLog ActionLog
	History   Recorder
}

// Batch is what one agent run produced
type Batch struct {
	RunID                      string
	StartedAt                  time.Time
	Force                      bool
	Items                      []types.ActionItem
	ProcessedMessageIDs        []string
	ProcessedSecondaryEventIDs []string
	Summary                    types.Summary
}

// Reconciler merges a batch into the prior state
type Reconciler struct {
	deps Deps
	log  *logging.Logger
	now  func() time.Time
}

// New creates a reconciler
func New(deps Deps, log *logging.Logger) *Reconciler {
	return &Reconciler{deps: deps, log: log.With("reconcile"), now: time.Now}
}

// Reconcile applies the batch. In dry-run mode nothing is written anywhere and
// the prior state is returned as is. Otherwise notification, action log and
// history are best-effort; only a failed save is an error.
func (r *Reconciler) Reconcile(ctx context.Context, prior state.RunState, batch Batch, dryRun bool) (state.RunState, error) {
	if dryRun {
		return prior, nil
	}

	now := r.now()

	if len(batch.Items) > 0 {
		if r.deps.Notifier != nil {
			if err := r.deps.Notifier.Notify(ctx, batch.Items); err != nil {
				r.log.Warn("Notification failed: %v", err)
			}
		}
		if r.deps.ActionLog != nil {
			if err := r.deps.ActionLog.Append(batch.Items, now); err != nil {
				r.log.Warn("Failed to append to action log: %v", err)
			}
		}
	}

	items := batch.Items
	if items == nil {
		items = []types.ActionItem{}
	}
	next := state.RunState{
		SeenMessageIDs:        Union(prior.SeenMessageIDs, batch.ProcessedMessageIDs),
		SeenSecondaryEventIDs: Union(prior.SeenSecondaryEventIDs, batch.ProcessedSecondaryEventIDs),
		LastCheck:             &now,
		LastActionItems:       items,
	}

	if err := r.deps.State.Save(next); err != nil {
		return prior, fmt.Errorf("failed to save state: %w", err)
	}
	r.log.Info("State saved: %d seen messages, %d seen secondary events",
		len(next.SeenMessageIDs), len(next.SeenSecondaryEventIDs))

	if r.deps.History != nil {
		run := history.Run{
			ID:         batch.RunID,
			StartedAt:  batch.StartedAt,
			FinishedAt: now,
			Force:      batch.Force,
			Summary:    batch.Summary,
			Items:      items,
		}
		if err := r.deps.History.Record(ctx, run); err != nil {
			r.log.Warn("Failed to record run history: %v", err)
		}
	}

	return next, nil
}

// Union appends the ids in next that are not already in prior, keeping the
// order of both so the oldest ids stay at the front
func Union(prior, next []string) []string {
	out := make([]string, 0, len(prior)+len(next))
	seen := make(map[string]bool, len(prior)+len(next))
	for _, list := range [][]string{prior, next} {
		for _, id := range list {
			if seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

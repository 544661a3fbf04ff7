package reconcile

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/vthunder/google-tasks-agent/internal/history"
	"github.com/vthunder/google-tasks-agent/internal/logging"
	"github.com/vthunder/google-tasks-agent/internal/state"
	"github.com/vthunder/google-tasks-agent/internal/types"
)

var fixedNow = time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)

type fakeSaver struct {
	saved []state.RunState
	err   error
}

func (f *fakeSaver) Save(st state.RunState) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, st)
	return nil
}

type fakeNotifier struct {
	calls int
	err   error
}

func (f *fakeNotifier) Notify(context.Context, []types.ActionItem) error {
	f.calls++
	return f.err
}

type fakeLog struct {
	batches [][]types.ActionItem
	err     error
}

func (f *fakeLog) Append(items []types.ActionItem, _ time.Time) error {
	f.batches = append(f.batches, items)
	return f.err
}

type fakeRecorder struct {
	runs []history.Run
}

func (f *fakeRecorder) Record(_ context.Context, run history.Run) error {
	f.runs = append(f.runs, run)
	return nil
}

type fixture struct {
	saver    *fakeSaver
	notifier *fakeNotifier
	log      *fakeLog
	recorder *fakeRecorder
	r        *Reconciler
}

func newFixture() *fixture {
	f := &fixture{
		saver:    &fakeSaver{},
		notifier: &fakeNotifier{},
		log:      &fakeLog{},
		recorder: &fakeRecorder{},
	}
	f.r = New(Deps{State: f.saver, Notifier: f.notifier, ActionLog: f.log, History: f.recorder}, logging.Discard())
	f.r.now = func() time.Time { return fixedNow }
	return f
}

func sampleBatch() Batch {
	return Batch{
		RunID:                      "run-1",
		Items:                      []types.ActionItem{{ID: "b", Action: "Reply", Priority: types.PriorityHigh}},
		ProcessedMessageIDs:        []string{"b", "c"},
		ProcessedSecondaryEventIDs: []string{"e1"},
		Summary:                    types.Summary{EmailsScanned: 2, ActionItemsFound: 1},
	}
}

func TestReconcile_MergesAndSaves(t *testing.T) {
	f := newFixture()
	prior := state.Empty()
	prior.SeenMessageIDs = []string{"a", "b"}

	next, err := f.r.Reconcile(context.Background(), prior, sampleBatch(), false)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	if !reflect.DeepEqual(next.SeenMessageIDs, []string{"a", "b", "c"}) {
		t.Errorf("SeenMessageIDs = %v, want [a b c]", next.SeenMessageIDs)
	}
	if !reflect.DeepEqual(next.SeenSecondaryEventIDs, []string{"e1"}) {
		t.Errorf("SeenSecondaryEventIDs = %v", next.SeenSecondaryEventIDs)
	}
	if next.LastCheck == nil || !next.LastCheck.Equal(fixedNow) {
		t.Errorf("LastCheck = %v", next.LastCheck)
	}
	if len(f.saver.saved) != 1 || !reflect.DeepEqual(f.saver.saved[0], next) {
		t.Error("expected the returned state to be saved once")
	}
	if f.notifier.calls != 1 || len(f.log.batches) != 1 {
		t.Errorf("notify=%d appends=%d, want 1 each", f.notifier.calls, len(f.log.batches))
	}
	if len(f.recorder.runs) != 1 || f.recorder.runs[0].ID != "run-1" || !f.recorder.runs[0].FinishedAt.Equal(fixedNow) {
		t.Errorf("unexpected history: %+v", f.recorder.runs)
	}
}

func TestReconcile_Idempotent(t *testing.T) {
	f := newFixture()
	batch := sampleBatch()

	first, err := f.r.Reconcile(context.Background(), state.Empty(), batch, false)
	if err != nil {
		t.Fatalf("first Reconcile failed: %v", err)
	}
	second, err := f.r.Reconcile(context.Background(), first, batch, false)
	if err != nil {
		t.Fatalf("second Reconcile failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("reconciling the same batch twice changed the state:\n%+v\n%+v", first, second)
	}
}

func TestReconcile_DryRunWritesNothing(t *testing.T) {
	f := newFixture()
	prior := state.Empty()
	prior.SeenMessageIDs = []string{"a"}

	got, err := f.r.Reconcile(context.Background(), prior, sampleBatch(), true)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if !reflect.DeepEqual(got, prior) {
		t.Errorf("dry run should return prior state, got %+v", got)
	}
	if len(f.saver.saved) != 0 || f.notifier.calls != 0 || len(f.log.batches) != 0 || len(f.recorder.runs) != 0 {
		t.Error("dry run must not save, notify, append or record")
	}
}

func TestReconcile_NoItemsSkipsSideEffects(t *testing.T) {
	f := newFixture()
	batch := sampleBatch()
	batch.Items = nil

	next, err := f.r.Reconcile(context.Background(), state.Empty(), batch, false)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if f.notifier.calls != 0 || len(f.log.batches) != 0 {
		t.Error("empty batch should not notify or append")
	}
	if next.LastActionItems == nil || len(next.LastActionItems) != 0 {
		t.Errorf("LastActionItems = %#v, want empty slice", next.LastActionItems)
	}
	if len(f.saver.saved) != 1 {
		t.Error("state must still be saved")
	}
}

func TestReconcile_CollaboratorFailuresDoNotBlockSave(t *testing.T) {
	f := newFixture()
	f.notifier.err = errors.New("notify-send crashed")
	f.log.err = errors.New("disk full")

	if _, err := f.r.Reconcile(context.Background(), state.Empty(), sampleBatch(), false); err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if len(f.saver.saved) != 1 {
		t.Error("state must be saved despite collaborator failures")
	}
}

func TestReconcile_SaveFailure(t *testing.T) {
	f := newFixture()
	saveErr := errors.New("read-only filesystem")
	f.saver.err = saveErr
	prior := state.Empty()

	got, err := f.r.Reconcile(context.Background(), prior, sampleBatch(), false)
	if !errors.Is(err, saveErr) {
		t.Fatalf("expected wrapped save error, got %v", err)
	}
	if !reflect.DeepEqual(got, prior) {
		t.Error("failed save should return the prior state")
	}
	if len(f.recorder.runs) != 0 {
		t.Error("history should not record a run whose state was not saved")
	}
}

func TestReconcile_WithRealStore(t *testing.T) {
	store := state.NewStore(filepath.Join(t.TempDir(), "state.json"), 500, logging.Discard())
	r := New(Deps{State: store}, logging.Discard())
	r.now = func() time.Time { return fixedNow }

	if _, err := r.Reconcile(context.Background(), store.Load(), sampleBatch(), false); err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	loaded := store.Load()
	if !reflect.DeepEqual(loaded.SeenMessageIDs, []string{"b", "c"}) {
		t.Errorf("persisted SeenMessageIDs = %v", loaded.SeenMessageIDs)
	}
	if len(loaded.LastActionItems) != 1 || loaded.LastActionItems[0].ID != "b" {
		t.Errorf("persisted items = %+v", loaded.LastActionItems)
	}
}

func TestUnion(t *testing.T) {
	cases := []struct {
		prior, next, want []string
	}{
		{[]string{"a", "b"}, []string{"b", "c"}, []string{"a", "b", "c"}},
		{nil, []string{"x", "x"}, []string{"x"}},
		{[]string{"a"}, nil, []string{"a"}},
		{nil, nil, []string{}},
	}
	for _, c := range cases {
		if got := Union(c.prior, c.next); !reflect.DeepEqual(got, c.want) {
			t.Errorf("Union(%v, %v) = %v, want %v", c.prior, c.next, got, c.want)
		}
	}
}

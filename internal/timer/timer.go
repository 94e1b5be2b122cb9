package timer

import (
	"context"
	"log"
	"sync"
	"time"
)

// Timer is the cooperative clock for one (worker, project task) pair. It
// ticks on a fixed interval, never blocks on the store before updating the
// local elapsed time, warns when the session approaches the task's budget,
// and stops itself locally at the budget. The local stop does not close the
// time entry; the authoritative close comes from completing the task or from
// the cutoff sweep, so an offline cutoff never loses the entry.
type Timer struct {
	mu     sync.Mutex
	state  State
	warned bool

	budgetHours float64
	warnRatio   float64

	store StateStore
	clock func() time.Time

	// onWarn fires once per session at the approaching-limit threshold;
	// onAutoStop fires when the timer clamps itself at the budget.
	onWarn     func(State)
	onAutoStop func(State)
}

// New creates a started timer for a worker on a project task and persists
// its initial state immediately. budgetHours <= 0 disables the budget
// checks.
func New(projectTaskID, userID uint64, budgetHours, warnRatio float64, store StateStore, clock func() time.Time) (*Timer, error) {
	t := &Timer{
		budgetHours: budgetHours,
		warnRatio:   warnRatio,
		store:       store,
		clock:       clock,
		state: State{
			ProjectTaskID: projectTaskID,
			UserID:        userID,
			IsTracking:    true,
			StartTime:     clock(),
			ElapsedMs:     0,
		},
	}
	if err := t.persist(); err != nil {
		return nil, err
	}
	return t, nil
}

// Restore rebuilds a timer from a recovered state. The recovery predicate
// has already been applied by the caller.
func Restore(state State, budgetHours, warnRatio float64, store StateStore, clock func() time.Time) *Timer {
	t := &Timer{
		budgetHours: budgetHours,
		warnRatio:   warnRatio,
		store:       store,
		clock:       clock,
		state:       state,
	}
	// A restored session close to the budget should not warn again on the
	// very first tick unless it crosses the threshold now.
	if budgetHours > 0 && float64(state.ElapsedMs) >= warnRatio*budgetHours*msPerHour {
		t.warned = true
	}
	return t
}

// OnWarn registers the approaching-limit callback.
func (t *Timer) OnWarn(fn func(State)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onWarn = fn
}

// OnAutoStop registers the local-stop callback.
func (t *Timer) OnAutoStop(fn func(State)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onAutoStop = fn
}

// State returns a snapshot of the timer.
func (t *Timer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Tick recomputes the elapsed time against now and applies the budget
// policy. Persistence failures are non-fatal: the local clock always moves
// first and the state is written again on the next boundary.
func (t *Timer) Tick(now time.Time) {
	t.mu.Lock()

	if !t.state.IsTracking {
		t.mu.Unlock()
		return
	}

	t.state.ElapsedMs = now.Sub(t.state.StartTime).Milliseconds()

	var warnFn, stopFn func(State)
	if t.budgetHours > 0 {
		maxElapsedMs := int64(t.budgetHours * msPerHour)
		warnAtMs := int64(t.warnRatio * t.budgetHours * msPerHour)

		if !t.warned && t.state.ElapsedMs >= warnAtMs {
			t.warned = true
			warnFn = t.onWarn
		}
		if t.state.ElapsedMs >= maxElapsedMs {
			t.state.ElapsedMs = maxElapsedMs
			t.state.IsTracking = false
			stopFn = t.onAutoStop
		}
	}

	snapshot := t.state
	t.mu.Unlock()

	if err := t.persist(); err != nil {
		log.Printf("timer: failed to persist state for task %d: %v", snapshot.ProjectTaskID, err)
	}
	if warnFn != nil {
		warnFn(snapshot)
	}
	if stopFn != nil {
		stopFn(snapshot)
	}
}

// Pause freezes the elapsed time and persists it. The underlying time entry
// stays open so work can resume.
func (t *Timer) Pause() error {
	t.mu.Lock()
	if t.state.IsTracking {
		t.state.ElapsedMs = t.clock().Sub(t.state.StartTime).Milliseconds()
		t.state.IsTracking = false
	}
	t.mu.Unlock()
	return t.persist()
}

// Resume continues a paused timer, shifting the start time so the frozen
// elapsed is preserved.
func (t *Timer) Resume() error {
	t.mu.Lock()
	if !t.state.IsTracking {
		t.state.StartTime = t.clock().Add(-time.Duration(t.state.ElapsedMs) * time.Millisecond)
		t.state.IsTracking = true
	}
	t.mu.Unlock()
	return t.persist()
}

// Stop finalizes the timer and returns the worked hours. The state is
// persisted one final time before the caller clears it, so a cancellation
// mid-stop never leaves a partial state behind.
func (t *Timer) Stop() (float64, error) {
	t.mu.Lock()
	if t.state.IsTracking {
		t.state.ElapsedMs = t.clock().Sub(t.state.StartTime).Milliseconds()
		t.state.IsTracking = false
	}
	hours := t.state.ElapsedHours()
	t.mu.Unlock()

	if err := t.persist(); err != nil {
		return hours, err
	}
	return hours, nil
}

// Run drives the timer on a fixed interval until the context is cancelled
// or the timer stops tracking.
func (t *Timer) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Tick(t.clock())
			if !t.State().IsTracking {
				return
			}
		}
	}
}

func (t *Timer) persist() error {
	t.mu.Lock()
	t.state.SavedAt = t.clock()
	snapshot := t.state
	t.mu.Unlock()
	return t.store.Save(snapshot)
}

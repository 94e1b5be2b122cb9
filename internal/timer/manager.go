package timer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/worktrackhq/work-tracking-api/internal/models"
	"github.com/worktrackhq/work-tracking-api/internal/repository"
	"github.com/worktrackhq/work-tracking-api/internal/services"
	"gorm.io/gorm"
)

var (
	// ErrTimerRunning is returned when a worker starts a second timer while
	// one is still open (running or paused) on any task.
	ErrTimerRunning = errors.New("a timer is already open for this worker")

	// ErrNoTimer is returned when pausing or stopping without a timer.
	ErrNoTimer = errors.New("no timer open for this worker")
)

// Options configures a Manager.
type Options struct {
	WarnRatio    float64
	TickInterval time.Duration
	StateMaxAge  time.Duration
}

type managedTimer struct {
	timer  *Timer
	cancel context.CancelFunc
}

// Manager enforces the single-timer-per-worker discipline and bridges
// timers to the time-entry ledger: starting a timer opens an entry, stopping
// it closes the entry with the timer's hours. Persisted states are recovered
// on construction so timers survive process restarts.
type Manager struct {
	mu       sync.Mutex
	timers   map[uint64]*managedTimer
	starting map[uint64]struct{}

	store    StateStore
	entries  *services.TimeEntryService
	taskRepo repository.ProjectTaskRepository
	opts     Options
	clock    func() time.Time
}

// NewManager creates a Manager and recovers persisted timer states.
func NewManager(
	store StateStore,
	entries *services.TimeEntryService,
	taskRepo repository.ProjectTaskRepository,
	opts Options,
) (*Manager, error) {
	m := &Manager{
		timers:   make(map[uint64]*managedTimer),
		starting: make(map[uint64]struct{}),
		store:    store,
		entries:  entries,
		taskRepo: taskRepo,
		opts:     opts,
		clock:    time.Now,
	}
	if err := m.recover(); err != nil {
		return nil, err
	}
	return m, nil
}

// SetClock overrides the manager's clock (used for testing). Must be called
// before any timers exist.
func (m *Manager) SetClock(now func() time.Time) {
	m.clock = now
}

// Start begins tracking for a worker on a project task. It opens a time
// entry in the store first; repository.ErrOpenEntryExists is surfaced
// unchanged so the caller can offer to resume the existing session.
func (m *Manager) Start(projectTaskID, userID uint64) (State, error) {
	m.mu.Lock()
	if existing, ok := m.timers[userID]; ok {
		state := existing.timer.State()
		if state.ProjectTaskID == projectTaskID && !state.IsTracking {
			// Same task, paused: resume rather than opening a duplicate.
			err := existing.timer.Resume()
			if err == nil {
				m.runLocked(userID, existing)
			}
			state = existing.timer.State()
			m.mu.Unlock()
			return state, err
		}
		m.mu.Unlock()
		return state, ErrTimerRunning
	}
	// Reserve the worker's slot before releasing the lock: the budget and
	// ledger work below runs unlocked, and a concurrent start must not slip
	// through the empty-map check in the meantime.
	if _, ok := m.starting[userID]; ok {
		m.mu.Unlock()
		return State{}, ErrTimerRunning
	}
	m.starting[userID] = struct{}{}
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		delete(m.starting, userID)
		m.mu.Unlock()
	}()

	budget, err := m.resolveBudget(projectTaskID)
	if err != nil {
		return State{}, err
	}

	if _, err := m.entries.StartWork(projectTaskID, userID); err != nil {
		return State{}, err
	}

	t, err := New(projectTaskID, userID, budget, m.opts.WarnRatio, m.store, m.clock)
	if err != nil {
		return State{}, err
	}
	m.attachCallbacks(t)

	m.mu.Lock()
	defer m.mu.Unlock()
	mt := &managedTimer{timer: t}
	m.timers[userID] = mt
	m.runLocked(userID, mt)
	return t.State(), nil
}

// Pause freezes the worker's timer without closing the time entry.
func (m *Manager) Pause(userID uint64) (State, error) {
	m.mu.Lock()
	mt, ok := m.timers[userID]
	if !ok {
		m.mu.Unlock()
		return State{}, ErrNoTimer
	}
	if mt.cancel != nil {
		mt.cancel()
		mt.cancel = nil
	}
	m.mu.Unlock()

	if err := mt.timer.Pause(); err != nil {
		return mt.timer.State(), err
	}
	return mt.timer.State(), nil
}

// Stop finalizes the worker's timer: the elapsed time becomes the entry's
// hours, the entry is closed, and the persisted state is cleared. When the
// cutoff sweep closed the session first, the stop still succeeds: the
// timer and its state are discarded and the returned entry is nil. When the
// store write fails the timer and its state are kept so the stop can be
// retried; the local elapsed time is never lost.
func (m *Manager) Stop(userID uint64) (*models.TimeEntry, *services.TaskHours, error) {
	m.mu.Lock()
	mt, ok := m.timers[userID]
	if !ok {
		m.mu.Unlock()
		return nil, nil, ErrNoTimer
	}
	if mt.cancel != nil {
		mt.cancel()
		mt.cancel = nil
	}
	m.mu.Unlock()

	hours, err := mt.timer.Stop()
	if err != nil {
		log.Printf("timer: failed to persist final state for user %d: %v", userID, err)
	}

	state := mt.timer.State()
	entry, taskHours, err := m.entries.StopWork(state.ProjectTaskID, userID, &hours)
	switch {
	case errors.Is(err, services.ErrNoOpenEntry):
		// The sweep (or another closer) already closed the session; the
		// conditional close makes the losing write a no-op, so the stop
		// just reports the final numbers and releases the timer.
		entry = nil
		taskHours, err = m.entries.TaskHoursFor(state.ProjectTaskID)
		if err != nil {
			return nil, nil, err
		}
	case err != nil:
		// Keep the timer so the caller can retry the stop; the frozen
		// elapsed time survives in the persisted state.
		return nil, nil, err
	}

	m.mu.Lock()
	delete(m.timers, userID)
	m.mu.Unlock()

	if err := m.store.Clear(userID, state.ProjectTaskID); err != nil {
		log.Printf("timer: failed to clear state for user %d: %v", userID, err)
	}

	return entry, taskHours, nil
}

// Status returns the worker's timer state and the task budget it runs
// against. ok is false when no timer is open.
func (m *Manager) Status(userID uint64) (State, float64, bool) {
	m.mu.Lock()
	mt, ok := m.timers[userID]
	m.mu.Unlock()
	if !ok {
		return State{}, 0, false
	}

	state := mt.timer.State()
	budget, err := m.resolveBudget(state.ProjectTaskID)
	if err != nil {
		budget = 0
	}
	return state, budget, true
}

// Close stops every tick loop. Timer states stay persisted for recovery.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mt := range m.timers {
		if mt.cancel != nil {
			mt.cancel()
			mt.cancel = nil
		}
	}
}

// recover restores persisted timer states that pass the recovery predicate
// and discards the rest.
func (m *Manager) recover() error {
	states, err := m.store.List()
	if err != nil {
		return fmt.Errorf("failed to list timer states: %w", err)
	}

	now := m.clock()
	for _, state := range states {
		budget, err := m.resolveBudget(state.ProjectTaskID)
		if err != nil {
			budget = 0
		}

		if !Recoverable(state, now, budget, m.opts.StateMaxAge) {
			if err := m.store.Clear(state.UserID, state.ProjectTaskID); err != nil {
				log.Printf("timer: failed to discard stale state for user %d: %v", state.UserID, err)
			}
			continue
		}

		t := Restore(state, budget, m.opts.WarnRatio, m.store, m.clock)
		m.attachCallbacks(t)

		m.mu.Lock()
		mt := &managedTimer{timer: t}
		m.timers[state.UserID] = mt
		if state.IsTracking {
			m.runLocked(state.UserID, mt)
		}
		m.mu.Unlock()

		log.Printf("timer: recovered state for user %d on task %d (tracking=%v)",
			state.UserID, state.ProjectTaskID, state.IsTracking)
	}
	return nil
}

// runLocked launches the tick loop for a timer. Caller holds m.mu.
func (m *Manager) runLocked(userID uint64, mt *managedTimer) {
	ctx, cancel := context.WithCancel(context.Background())
	mt.cancel = cancel
	go mt.timer.Run(ctx, m.opts.TickInterval)
}

func (m *Manager) attachCallbacks(t *Timer) {
	t.OnWarn(func(s State) {
		log.Printf("timer: user %d approaching budget on task %d (%.2fh elapsed)",
			s.UserID, s.ProjectTaskID, s.ElapsedHours())
	})
	t.OnAutoStop(func(s State) {
		log.Printf("timer: user %d reached budget on task %d, clock stopped locally",
			s.UserID, s.ProjectTaskID)
	})
}

// resolveBudget looks up the task's resolved estimated hours; 0 means no
// budget is known.
func (m *Manager) resolveBudget(projectTaskID uint64) (float64, error) {
	task, err := m.taskRepo.FindByID(projectTaskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, services.ErrProjectTaskNotFound
		}
		return 0, fmt.Errorf("failed to resolve task budget: %w", err)
	}
	return task.EstimatedHours, nil
}

package timer

import "time"

const msPerHour = 3_600_000

// State is the persisted snapshot of one cooperative timer. It mirrors at
// most one open time entry the timer itself created; the entry in the store
// stays authoritative.
type State struct {
	ProjectTaskID uint64    `json:"project_task_id"`
	UserID        uint64    `json:"user_id"`
	IsTracking    bool      `json:"is_tracking"`
	StartTime     time.Time `json:"start_time"`
	ElapsedMs     int64     `json:"elapsed_ms"`
	SavedAt       time.Time `json:"saved_at"`
}

// ElapsedHours converts the tracked elapsed time to hours.
func (s State) ElapsedHours() float64 {
	return float64(s.ElapsedMs) / msPerHour
}

// Recoverable decides whether a persisted timer state may be restored after
// a reload or crash. A state is restored only when it is younger than maxAge
// and, when a budget is known, its elapsed time has not yet reached the
// budget. This bounds how long a stale or impossible timer can resurrect
// itself. budgetHours <= 0 means no budget is known.
func Recoverable(state State, now time.Time, budgetHours float64, maxAge time.Duration) bool {
	if state.SavedAt.IsZero() {
		return false
	}
	if now.Sub(state.SavedAt) >= maxAge {
		return false
	}
	if budgetHours > 0 && float64(state.ElapsedMs) >= budgetHours*msPerHour {
		return false
	}
	return true
}

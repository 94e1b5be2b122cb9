package models

import "time"

// TimeEntry is one contiguous work session logged against a catalog task
// within a project. EndTime is nil while the session is open; once set the
// entry is append-only. No soft delete: the ledger survives task removal.
type TimeEntry struct {
	ID          uint64     `gorm:"primarykey" json:"id"`
	TaskID      uint64     `gorm:"not null;index:idx_time_entries_key" json:"task_id"`
	ProjectID   uint64     `gorm:"not null;index:idx_time_entries_key" json:"project_id"`
	UserID      uint64     `gorm:"not null;index:idx_time_entries_key" json:"user_id"`
	StartTime   time.Time  `gorm:"not null" json:"start_time"`
	EndTime     *time.Time `gorm:"index" json:"end_time"`
	Hours       *float64   `json:"hours"`
	Description string     `gorm:"type:text" json:"description"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Relations
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// IsOpen reports whether the session is still running.
func (e *TimeEntry) IsOpen() bool {
	return e.EndTime == nil
}

// WorkedHours returns the session duration in hours. Closed entries use the
// stored hours when positive and otherwise recompute from the timestamps,
// guarding against rows written with a missing or zero duration. Open
// entries are measured live against now.
func (e *TimeEntry) WorkedHours(now time.Time) float64 {
	if e.EndTime == nil {
		return now.Sub(e.StartTime).Hours()
	}
	if e.Hours != nil && *e.Hours > 0 {
		return *e.Hours
	}
	return e.EndTime.Sub(e.StartTime).Hours()
}

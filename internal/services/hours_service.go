package services

import (
	"fmt"
	"math"
	"time"

	"github.com/worktrackhq/work-tracking-api/internal/models"
	"github.com/worktrackhq/work-tracking-api/internal/repository"
)

// HoursService aggregates worked hours from the time-entry ledger. Closed
// entries use their stored duration (recomputed from timestamps when
// missing); open entries contribute live, so in-progress work is visible
// before it is persisted.
type HoursService struct {
	entryRepo repository.TimeEntryRepository
	now       func() time.Time
}

// NewHoursService creates a new HoursService.
func NewHoursService(entryRepo repository.TimeEntryRepository) *HoursService {
	return &HoursService{
		entryRepo: entryRepo,
		now:       time.Now,
	}
}

// SetClock overrides the aggregator's clock (used for testing).
func (s *HoursService) SetClock(now func() time.Time) {
	s.now = now
}

// TotalHours sums worked hours for a task within a project across all users,
// or for a single user when userID is non-nil.
func (s *HoursService) TotalHours(taskID, projectID uint64, userID *uint64) (float64, error) {
	entries, err := s.entryRepo.ListByTask(taskID, projectID, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to list entries: %w", err)
	}

	now := s.now()
	total := 0.0
	for i := range entries {
		total += entries[i].WorkedHours(now)
	}
	return total, nil
}

// FirstStartTime returns the earliest logged start time for a task within a
// project, used to backfill the task's start date.
func (s *HoursService) FirstStartTime(taskID, projectID uint64) (*time.Time, error) {
	return s.entryRepo.FirstStartTime(taskID, projectID)
}

// TaskHours bundles the aggregate numbers the UI needs for display.
type TaskHours struct {
	TotalHours         float64 `json:"total_hours"`
	ProgressPercentage int     `json:"progress_percentage"`
}

// TaskHoursFor computes the logged total and the derived progress for a
// project task.
func (s *HoursService) TaskHoursFor(task *models.ProjectTask) (*TaskHours, error) {
	total, err := s.TotalHours(task.TaskID, task.ProjectID, nil)
	if err != nil {
		return nil, err
	}

	return &TaskHours{
		TotalHours:         total,
		ProgressPercentage: ProgressPercentage(task, total),
	}, nil
}

// ProgressPercentage derives progress from logged hours against the resolved
// estimate. A completed task is always 100 regardless of logged hours. With
// no estimate the stored (manually reported) progress stands; progress is
// never derived from wall-clock time alone.
func ProgressPercentage(task *models.ProjectTask, totalHours float64) int {
	if task.Status == models.ProjectTaskStatusCompleted {
		return 100
	}
	if task.EstimatedHours <= 0 {
		return clampProgress(task.ProgressPercentage)
	}

	progress := int(math.Round(totalHours / task.EstimatedHours * 100))
	return clampProgress(progress)
}

func clampProgress(progress int) int {
	if progress < 0 {
		return 0
	}
	if progress > 100 {
		return 100
	}
	return progress
}

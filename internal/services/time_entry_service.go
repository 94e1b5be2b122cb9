package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/worktrackhq/work-tracking-api/internal/models"
	"github.com/worktrackhq/work-tracking-api/internal/repository"
	"gorm.io/gorm"
)

var (
	// ErrNoOpenEntry is returned when stopping work with no running session.
	ErrNoOpenEntry = errors.New("no open time entry for this task")
)

// TimeEntryService opens and closes work sessions on behalf of workers. It
// owns the coupling between the ledger and the task lifecycle: starting work
// on an assigned task moves it into progress, and stopping work refreshes
// the task's derived progress.
type TimeEntryService struct {
	entryRepo repository.TimeEntryRepository
	taskRepo  repository.ProjectTaskRepository
	lifecycle *LifecycleService
	hours     *HoursService
	now       func() time.Time
}

// NewTimeEntryService creates a new TimeEntryService.
func NewTimeEntryService(
	entryRepo repository.TimeEntryRepository,
	taskRepo repository.ProjectTaskRepository,
	lifecycle *LifecycleService,
	hours *HoursService,
) *TimeEntryService {
	return &TimeEntryService{
		entryRepo: entryRepo,
		taskRepo:  taskRepo,
		lifecycle: lifecycle,
		hours:     hours,
		now:       time.Now,
	}
}

// SetClock overrides the service's clock (used for testing).
func (s *TimeEntryService) SetClock(now func() time.Time) {
	s.now = now
}

// StartWork opens a new time entry for a worker on a project task. When the
// primary assignee starts work on an assigned task, the task moves into
// progress. Returns repository.ErrOpenEntryExists when a session is already
// running, so the caller can offer to resume it instead.
func (s *TimeEntryService) StartWork(projectTaskID, userID uint64) (*models.TimeEntry, error) {
	task, err := s.findTask(projectTaskID)
	if err != nil {
		return nil, err
	}

	if err := s.lifecycle.EnsureCanLogTime(task, userID); err != nil {
		return nil, err
	}

	if task.AssignedTo != nil && *task.AssignedTo == userID &&
		task.Status == models.ProjectTaskStatusAssigned {
		if task, err = s.lifecycle.Start(projectTaskID, userID); err != nil {
			return nil, err
		}
	}
	if task.Status != models.ProjectTaskStatusInProgress {
		return nil, fmt.Errorf("%w: cannot log time on a %s task", ErrInvalidTransition, task.Status)
	}

	entry := &models.TimeEntry{
		TaskID:    task.TaskID,
		ProjectID: task.ProjectID,
		UserID:    userID,
		StartTime: s.now(),
	}
	if err := s.entryRepo.Open(entry); err != nil {
		if errors.Is(err, repository.ErrOpenEntryExists) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to open entry: %w", err)
	}

	if err := s.backfillStartDate(task); err != nil {
		return nil, err
	}

	return entry, nil
}

// StopWork closes the worker's open entry on a project task. When hours is
// nil the duration is computed from the session timestamps. The task's
// derived progress is refreshed so the caller can update the display without
// a full reload.
func (s *TimeEntryService) StopWork(projectTaskID, userID uint64, hours *float64) (*models.TimeEntry, *TaskHours, error) {
	task, err := s.findTask(projectTaskID)
	if err != nil {
		return nil, nil, err
	}

	entry, err := s.entryRepo.FindOpen(task.TaskID, task.ProjectID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrNoOpenEntry
		}
		return nil, nil, fmt.Errorf("failed to find open entry: %w", err)
	}

	now := s.now()
	worked := now.Sub(entry.StartTime).Hours()
	if hours != nil {
		worked = *hours
	}

	// The close is conditional on the entry still being open; losing the
	// race against the cutoff sweep is not an error.
	if _, err := s.entryRepo.Close(entry.ID, now, &worked, ""); err != nil {
		return nil, nil, fmt.Errorf("failed to close entry: %w", err)
	}

	closed, err := s.entryRepo.FindByID(entry.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to reload entry: %w", err)
	}

	taskHours, err := s.refreshProgress(task)
	if err != nil {
		return nil, nil, err
	}

	return closed, taskHours, nil
}

// TaskHoursFor reports the aggregate hours and derived progress for a
// project task.
func (s *TimeEntryService) TaskHoursFor(projectTaskID uint64) (*TaskHours, error) {
	task, err := s.findTask(projectTaskID)
	if err != nil {
		return nil, err
	}
	return s.hours.TaskHoursFor(task)
}

// OpenEntry returns the worker's running session on a project task, or
// ErrNoOpenEntry when there is none.
func (s *TimeEntryService) OpenEntry(projectTaskID, userID uint64) (*models.TimeEntry, error) {
	task, err := s.findTask(projectTaskID)
	if err != nil {
		return nil, err
	}

	entry, err := s.entryRepo.FindOpen(task.TaskID, task.ProjectID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoOpenEntry
		}
		return nil, fmt.Errorf("failed to find open entry: %w", err)
	}
	return entry, nil
}

// backfillStartDate stamps the task's start date the first time any work is
// logged against it.
func (s *TimeEntryService) backfillStartDate(task *models.ProjectTask) error {
	if task.StartDate != nil {
		return nil
	}

	first, err := s.hours.FirstStartTime(task.TaskID, task.ProjectID)
	if err != nil {
		return fmt.Errorf("failed to resolve first start time: %w", err)
	}
	if first == nil {
		return nil
	}

	task.StartDate = first
	if err := s.taskRepo.Update(task); err != nil {
		return fmt.Errorf("failed to backfill start date: %w", err)
	}
	return nil
}

// refreshProgress recomputes the derived progress from logged hours and
// persists it when the task is still live.
func (s *TimeEntryService) refreshProgress(task *models.ProjectTask) (*TaskHours, error) {
	total, err := s.hours.TotalHours(task.TaskID, task.ProjectID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate hours: %w", err)
	}

	progress := ProgressPercentage(task, total)
	if !task.IsFinished() && task.EstimatedHours > 0 && progress != task.ProgressPercentage {
		task.ProgressPercentage = progress
		if err := s.taskRepo.Update(task); err != nil {
			return nil, fmt.Errorf("failed to update progress: %w", err)
		}
	}

	return &TaskHours{TotalHours: total, ProgressPercentage: progress}, nil
}

func (s *TimeEntryService) findTask(projectTaskID uint64) (*models.ProjectTask, error) {
	task, err := s.taskRepo.FindByID(projectTaskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectTaskNotFound
		}
		return nil, fmt.Errorf("failed to find project task: %w", err)
	}
	return task, nil
}

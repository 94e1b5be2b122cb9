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
	ErrProjectTaskNotFound = errors.New("project task not found")
	ErrAssignmentRequired  = errors.New("assignment required")
	ErrInvalidTransition   = errors.New("transition not allowed from the current status")
	ErrNotAssignee         = errors.New("only the assigned worker can perform this action")
	ErrNotCollaborator     = errors.New("user is not assigned to or collaborating on this task")
	ErrTaskFinished        = errors.New("task is already completed or cancelled")
)

// CompletionDescription is stamped on entries that are end-stamped as a side
// effect of completing their task and carry no description of their own.
const CompletionDescription = "closed on completion"

// LifecycleService implements the project task state machine:
// pending -> assigned -> in_progress -> completed, with cancelled reachable
// from any non-terminal state and in_progress -> assigned when a worker
// returns a task. Completion is the shared idempotent finalize routine used
// by both user actions and the cutoff sweep.
type LifecycleService struct {
	taskRepo  repository.ProjectTaskRepository
	projRepo  repository.ProjectRepository
	entryRepo repository.TimeEntryRepository
	hours     *HoursService
	now       func() time.Time
}

// NewLifecycleService creates a new LifecycleService.
func NewLifecycleService(
	taskRepo repository.ProjectTaskRepository,
	projRepo repository.ProjectRepository,
	entryRepo repository.TimeEntryRepository,
	hours *HoursService,
) *LifecycleService {
	return &LifecycleService{
		taskRepo:  taskRepo,
		projRepo:  projRepo,
		entryRepo: entryRepo,
		hours:     hours,
		now:       time.Now,
	}
}

// SetClock overrides the service's clock (used for testing).
func (s *LifecycleService) SetClock(now func() time.Time) {
	s.now = now
}

// Assign assigns a worker to a task. Allowed from pending and assigned;
// reassignment of an in-progress task requires the worker to return it
// first.
func (s *LifecycleService) Assign(projectTaskID, assigneeID uint64) (*models.ProjectTask, error) {
	task, err := s.find(projectTaskID)
	if err != nil {
		return nil, err
	}

	switch task.Status {
	case models.ProjectTaskStatusPending, models.ProjectTaskStatusAssigned:
	default:
		return nil, fmt.Errorf("%w: cannot assign a %s task", ErrInvalidTransition, task.Status)
	}

	task.AssignedTo = &assigneeID
	task.Status = models.ProjectTaskStatusAssigned

	if err := s.taskRepo.Update(task); err != nil {
		return nil, fmt.Errorf("failed to assign task: %w", err)
	}
	return task, nil
}

// Start moves an assigned task into progress. The started-by stamp is
// written only on the first entry into in_progress; re-entries after a
// return keep the original stamp.
func (s *LifecycleService) Start(projectTaskID, actorID uint64) (*models.ProjectTask, error) {
	task, err := s.find(projectTaskID)
	if err != nil {
		return nil, err
	}

	if task.AssignedTo == nil {
		return nil, ErrAssignmentRequired
	}
	if *task.AssignedTo != actorID {
		return nil, ErrNotAssignee
	}

	switch task.Status {
	case models.ProjectTaskStatusInProgress:
		return task, nil
	case models.ProjectTaskStatusAssigned:
	default:
		return nil, fmt.Errorf("%w: cannot start a %s task", ErrInvalidTransition, task.Status)
	}

	task.Status = models.ProjectTaskStatusInProgress
	if task.StartedAt == nil {
		now := s.now()
		task.StartedBy = &actorID
		task.StartedAt = &now
	}

	if err := s.taskRepo.Update(task); err != nil {
		return nil, fmt.Errorf("failed to start task: %w", err)
	}
	return task, nil
}

// Return moves an in-progress task back to assigned without touching the
// logged time. Work can be picked up again later.
func (s *LifecycleService) Return(projectTaskID, actorID uint64) (*models.ProjectTask, error) {
	task, err := s.find(projectTaskID)
	if err != nil {
		return nil, err
	}

	if task.Status != models.ProjectTaskStatusInProgress {
		return nil, fmt.Errorf("%w: cannot return a %s task", ErrInvalidTransition, task.Status)
	}
	if task.AssignedTo == nil || *task.AssignedTo != actorID {
		return nil, ErrNotAssignee
	}

	task.Status = models.ProjectTaskStatusAssigned
	if err := s.taskRepo.Update(task); err != nil {
		return nil, fmt.Errorf("failed to return task: %w", err)
	}
	return task, nil
}

// Cancel cancels a task. No entry-closing side effects; cancelled tasks are
// excluded from project completion accounting.
func (s *LifecycleService) Cancel(projectTaskID uint64) (*models.ProjectTask, error) {
	task, err := s.find(projectTaskID)
	if err != nil {
		return nil, err
	}

	switch task.Status {
	case models.ProjectTaskStatusPending,
		models.ProjectTaskStatusAssigned,
		models.ProjectTaskStatusInProgress:
	default:
		return nil, fmt.Errorf("%w: cannot cancel a %s task", ErrInvalidTransition, task.Status)
	}

	task.Status = models.ProjectTaskStatusCancelled
	if err := s.taskRepo.Update(task); err != nil {
		return nil, fmt.Errorf("failed to cancel task: %w", err)
	}
	return task, nil
}

// Complete finalizes a task: it closes every still-open entry for the
// task+project, resolves the final actual hours, and performs the
// conditional completion write. Both a worker stopping manually and the
// cutoff sweep land here, so the whole routine is idempotent: the second
// caller finds the entries closed and the status already completed, and
// writes nothing.
func (s *LifecycleService) Complete(projectTaskID, actorID uint64, explicitHours *float64) (*models.ProjectTask, error) {
	task, err := s.find(projectTaskID)
	if err != nil {
		return nil, err
	}

	if task.AssignedTo == nil {
		return nil, ErrAssignmentRequired
	}

	now := s.now()

	openEntries, err := s.entryRepo.ListOpenByTask(task.TaskID, task.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list open entries: %w", err)
	}
	for i := range openEntries {
		if _, err := s.entryRepo.Close(openEntries[i].ID, now, nil, CompletionDescription); err != nil {
			return nil, fmt.Errorf("failed to close entry %d: %w", openEntries[i].ID, err)
		}
	}

	actualHours := task.ActualHours
	if explicitHours != nil {
		actualHours = *explicitHours
	} else {
		total, err := s.hours.TotalHours(task.TaskID, task.ProjectID, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to aggregate hours: %w", err)
		}
		if total > actualHours {
			actualHours = total
		}
	}

	completed, err := s.taskRepo.MarkCompleted(task.ID, actorID, now, actualHours)
	if err != nil {
		return nil, fmt.Errorf("failed to complete task: %w", err)
	}

	if completed {
		if err := s.checkProjectCompletion(task.ProjectID); err != nil {
			return nil, err
		}
	}

	return s.find(projectTaskID)
}

// UpdateProgress records manually reported progress. Only meaningful before
// the task reaches a terminal state; the value is clamped to [0,100].
func (s *LifecycleService) UpdateProgress(projectTaskID, actorID uint64, progress int) (*models.ProjectTask, error) {
	task, err := s.find(projectTaskID)
	if err != nil {
		return nil, err
	}

	if task.IsFinished() {
		return nil, ErrTaskFinished
	}
	if err := s.EnsureCanLogTime(task, actorID); err != nil {
		return nil, err
	}

	task.ProgressPercentage = clampProgress(progress)
	if err := s.taskRepo.Update(task); err != nil {
		return nil, fmt.Errorf("failed to update progress: %w", err)
	}
	return task, nil
}

// AddCollaborator adds a secondary worker allowed to log time on the task.
func (s *LifecycleService) AddCollaborator(projectTaskID, actorID, userID uint64) error {
	task, err := s.find(projectTaskID)
	if err != nil {
		return err
	}

	if task.IsFinished() {
		return ErrTaskFinished
	}
	if task.AssignedTo == nil || *task.AssignedTo != actorID {
		return ErrNotAssignee
	}

	collaborator := &models.TaskCollaborator{
		ProjectTaskID: projectTaskID,
		UserID:        userID,
		AddedBy:       actorID,
		AddedAt:       s.now(),
	}
	if err := s.taskRepo.AddCollaborator(collaborator); err != nil {
		return fmt.Errorf("failed to add collaborator: %w", err)
	}
	return nil
}

// RemoveCollaborator removes a secondary worker from the task.
func (s *LifecycleService) RemoveCollaborator(projectTaskID, actorID, userID uint64) error {
	task, err := s.find(projectTaskID)
	if err != nil {
		return err
	}

	if task.AssignedTo == nil || *task.AssignedTo != actorID {
		return ErrNotAssignee
	}

	if err := s.taskRepo.RemoveCollaborator(projectTaskID, userID); err != nil {
		return fmt.Errorf("failed to remove collaborator: %w", err)
	}
	return nil
}

// EnsureCanLogTime verifies that a user may log work on the task: either the
// primary assignee, or a collaborator once the task is in progress.
func (s *LifecycleService) EnsureCanLogTime(task *models.ProjectTask, userID uint64) error {
	if task.AssignedTo != nil && *task.AssignedTo == userID {
		return nil
	}

	if task.Status != models.ProjectTaskStatusInProgress {
		return ErrNotCollaborator
	}
	if _, err := s.taskRepo.FindCollaborator(task.ID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotCollaborator
		}
		return fmt.Errorf("failed to check collaborator: %w", err)
	}
	return nil
}

// checkProjectCompletion marks the parent project completed once every
// non-cancelled task in it is completed.
func (s *LifecycleService) checkProjectCompletion(projectID uint64) error {
	remaining, err := s.taskRepo.CountUnfinishedByProject(projectID)
	if err != nil {
		return fmt.Errorf("failed to count unfinished tasks: %w", err)
	}
	if remaining > 0 {
		return nil
	}

	if _, err := s.projRepo.MarkCompleted(projectID); err != nil {
		return fmt.Errorf("failed to complete project: %w", err)
	}
	return nil
}

func (s *LifecycleService) find(projectTaskID uint64) (*models.ProjectTask, error) {
	task, err := s.taskRepo.FindByID(projectTaskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectTaskNotFound
		}
		return nil, fmt.Errorf("failed to find project task: %w", err)
	}
	return task, nil
}

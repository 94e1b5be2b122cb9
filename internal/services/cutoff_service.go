package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/worktrackhq/work-tracking-api/internal/models"
	"github.com/worktrackhq/work-tracking-api/internal/repository"
	"gorm.io/gorm"
)

// CutoffDescription is stamped on entries force-closed by the sweep.
const CutoffDescription = "auto-closed: time budget exceeded"

// CutoffPolicy holds the budget policy knobs. GraceFactor widens the
// resolved estimate; FallbackHours caps unestimated work.
type CutoffPolicy struct {
	GraceFactor   float64
	FallbackHours float64
}

// SweepDetail describes one entry force-closed by a sweep.
type SweepDetail struct {
	EntryID       uint64  `json:"entry_id"`
	TaskID        uint64  `json:"task_id"`
	ProjectTaskID uint64  `json:"project_task_id"`
	ProjectID     uint64  `json:"project_id"`
	UserID        uint64  `json:"user_id"`
	WorkedHours   float64 `json:"worked_hours"`
	MaxHours      float64 `json:"max_hours"`
	ExcessHours   float64 `json:"excess_hours"`
}

// SweepResult summarizes one cutoff sweep.
type SweepResult struct {
	ExceededCount  int           `json:"exceeded_count"`
	MonitoredCount int           `json:"monitored_count"`
	SkippedCount   int           `json:"skipped_count"`
	Details        []SweepDetail `json:"details"`
}

// CutoffService force-closes work sessions that exceed their task's time
// budget and completes the task as a side effect. The sweep is stateless and
// idempotent: it only performs conditional writes, so overlapping sweeps and
// races with manual stops resolve to first-closer-wins.
type CutoffService struct {
	entryRepo repository.TimeEntryRepository
	taskRepo  repository.ProjectTaskRepository
	lifecycle *LifecycleService
	policy    CutoffPolicy
	now       func() time.Time
}

// NewCutoffService creates a new CutoffService.
func NewCutoffService(
	entryRepo repository.TimeEntryRepository,
	taskRepo repository.ProjectTaskRepository,
	lifecycle *LifecycleService,
	policy CutoffPolicy,
) *CutoffService {
	return &CutoffService{
		entryRepo: entryRepo,
		taskRepo:  taskRepo,
		lifecycle: lifecycle,
		policy:    policy,
		now:       time.Now,
	}
}

// SetClock overrides the service's clock (used for testing).
func (s *CutoffService) SetClock(now func() time.Time) {
	s.now = now
}

// MaxHours computes the allowed budget for a project task: the resolved
// estimate widened by the grace factor, or the fixed fallback for
// unestimated work.
func (s *CutoffService) MaxHours(task *models.ProjectTask) float64 {
	if task.EstimatedHours > 0 {
		return task.EstimatedHours * s.policy.GraceFactor
	}
	return s.policy.FallbackHours
}

// Sweep scans every open entry system-wide and force-closes the ones whose
// worked time exceeds their task's budget, completing the task afterwards.
// Failures are isolated per entry: a missing task or a transient store error
// skips that entry and the sweep continues; the entry is retried on the next
// cadence.
func (s *CutoffService) Sweep(ctx context.Context) (*SweepResult, error) {
	entries, err := s.entryRepo.ListOpen()
	if err != nil {
		return nil, fmt.Errorf("failed to list open entries: %w", err)
	}

	now := s.now()
	result := &SweepResult{Details: []SweepDetail{}}

	for i := range entries {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		entry := &entries[i]
		detail, err := s.sweepEntry(entry, now)
		if err != nil {
			log.Printf("cutoff sweep: skipping entry %d: %v", entry.ID, err)
			result.SkippedCount++
			continue
		}
		if detail == nil {
			result.MonitoredCount++
			continue
		}

		result.ExceededCount++
		result.Details = append(result.Details, *detail)
	}

	return result, nil
}

// sweepEntry applies the budget check to a single open entry. Returns nil
// when the entry is within budget and should simply stay monitored.
func (s *CutoffService) sweepEntry(entry *models.TimeEntry, now time.Time) (*SweepDetail, error) {
	task, err := s.taskRepo.FindByTaskAndProject(entry.TaskID, entry.ProjectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("project task for task %d in project %d not found", entry.TaskID, entry.ProjectID)
		}
		return nil, fmt.Errorf("failed to resolve project task: %w", err)
	}

	maxHours := s.MaxHours(task)
	workedHours := now.Sub(entry.StartTime).Hours()
	if workedHours <= maxHours {
		return nil, nil
	}

	closed, err := s.entryRepo.Close(entry.ID, now, &workedHours, CutoffDescription)
	if err != nil {
		return nil, fmt.Errorf("failed to close entry: %w", err)
	}
	if !closed {
		// Someone else (a manual stop or an overlapping sweep) closed the
		// entry first; nothing left to enforce here.
		return nil, nil
	}

	// Completing an already-completed task is a no-op inside the shared
	// finalize routine, so a concurrent user completion is safe.
	if _, err := s.lifecycle.Complete(task.ID, entry.UserID, nil); err != nil {
		return nil, fmt.Errorf("failed to complete task %d: %w", task.ID, err)
	}

	return &SweepDetail{
		EntryID:       entry.ID,
		TaskID:        entry.TaskID,
		ProjectTaskID: task.ID,
		ProjectID:     entry.ProjectID,
		UserID:        entry.UserID,
		WorkedHours:   workedHours,
		MaxHours:      maxHours,
		ExcessHours:   workedHours - maxHours,
	}, nil
}

package dto

import (
	"time"

	"github.com/worktrackhq/work-tracking-api/internal/models"
	"github.com/worktrackhq/work-tracking-api/internal/timer"
)

// TaskDTO represents a catalog task in API responses
type TaskDTO struct {
	ID                 uint64  `json:"id"`
	Title              string  `json:"title"`
	Description        string  `json:"description"`
	Category           string  `json:"category"`
	BaseEstimatedHours float64 `json:"base_estimated_hours"`
}

// CollaboratorDTO represents a task collaborator in API responses
type CollaboratorDTO struct {
	UserID  uint64    `json:"user_id"`
	AddedBy uint64    `json:"added_by"`
	AddedAt time.Time `json:"added_at"`
}

// ProjectTaskDTO represents a project task in API responses
type ProjectTaskDTO struct {
	ID                 uint64                   `json:"id"`
	ProjectID          uint64                   `json:"project_id"`
	TaskID             uint64                   `json:"task_id"`
	Status             models.ProjectTaskStatus `json:"status"`
	AssignedTo         *uint64                  `json:"assigned_to"`
	EstimatedHours     float64                  `json:"estimated_hours"`
	ActualHours        float64                  `json:"actual_hours"`
	ProgressPercentage int                      `json:"progress_percentage"`
	StartDate          *time.Time               `json:"start_date"`
	EndDate            *time.Time               `json:"end_date"`
	StartedBy          *uint64                  `json:"started_by"`
	StartedAt          *time.Time               `json:"started_at"`
	CompletedBy        *uint64                  `json:"completed_by"`
	CompletedAt        *time.Time               `json:"completed_at"`
	Notes              string                   `json:"notes"`
	TaskOrder          int                      `json:"task_order"`
	Task               *TaskDTO                 `json:"task,omitempty"`
	Collaborators      []CollaboratorDTO        `json:"collaborators,omitempty"`
}

// TimeEntryDTO represents a work session in API responses
type TimeEntryDTO struct {
	ID          uint64     `json:"id"`
	TaskID      uint64     `json:"task_id"`
	ProjectID   uint64     `json:"project_id"`
	UserID      uint64     `json:"user_id"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     *time.Time `json:"end_time"`
	Hours       *float64   `json:"hours"`
	Description string     `json:"description"`
}

// TimerStatusDTO represents a cooperative timer in API responses. The
// approaching-limit flag mirrors the client-side 90% warning.
type TimerStatusDTO struct {
	ProjectTaskID    uint64    `json:"project_task_id"`
	IsTracking       bool      `json:"is_tracking"`
	StartTime        time.Time `json:"start_time"`
	ElapsedMs        int64     `json:"elapsed_ms"`
	BudgetHours      float64   `json:"budget_hours"`
	ApproachingLimit bool      `json:"approaching_limit"`
}

// ToTaskDTO converts a catalog task model to its API shape
func ToTaskDTO(task models.Task) TaskDTO {
	return TaskDTO{
		ID:                 task.ID,
		Title:              task.Title,
		Description:        task.Description,
		Category:           task.Category,
		BaseEstimatedHours: task.BaseEstimatedHours,
	}
}

// ToProjectTaskDTO converts a project task model to its API shape
func ToProjectTaskDTO(task models.ProjectTask) ProjectTaskDTO {
	result := ProjectTaskDTO{
		ID:                 task.ID,
		ProjectID:          task.ProjectID,
		TaskID:             task.TaskID,
		Status:             task.Status,
		AssignedTo:         task.AssignedTo,
		EstimatedHours:     task.EstimatedHours,
		ActualHours:        task.ActualHours,
		ProgressPercentage: task.ProgressPercentage,
		StartDate:          task.StartDate,
		EndDate:            task.EndDate,
		StartedBy:          task.StartedBy,
		StartedAt:          task.StartedAt,
		CompletedBy:        task.CompletedBy,
		CompletedAt:        task.CompletedAt,
		Notes:              task.Notes,
		TaskOrder:          task.TaskOrder,
	}

	if task.Task.ID != 0 {
		taskDTO := ToTaskDTO(task.Task)
		result.Task = &taskDTO
	}
	for _, collaborator := range task.Collaborators {
		result.Collaborators = append(result.Collaborators, CollaboratorDTO{
			UserID:  collaborator.UserID,
			AddedBy: collaborator.AddedBy,
			AddedAt: collaborator.AddedAt,
		})
	}

	return result
}

// ToTimeEntryDTO converts a time entry model to its API shape
func ToTimeEntryDTO(entry models.TimeEntry) TimeEntryDTO {
	return TimeEntryDTO{
		ID:          entry.ID,
		TaskID:      entry.TaskID,
		ProjectID:   entry.ProjectID,
		UserID:      entry.UserID,
		StartTime:   entry.StartTime,
		EndTime:     entry.EndTime,
		Hours:       entry.Hours,
		Description: entry.Description,
	}
}

// ToTimerStatusDTO converts a timer state and its budget to the API shape
func ToTimerStatusDTO(state timer.State, budgetHours, warnRatio float64) TimerStatusDTO {
	return TimerStatusDTO{
		ProjectTaskID:    state.ProjectTaskID,
		IsTracking:       state.IsTracking,
		StartTime:        state.StartTime,
		ElapsedMs:        state.ElapsedMs,
		BudgetHours:      budgetHours,
		ApproachingLimit: budgetHours > 0 && state.ElapsedHours() >= warnRatio*budgetHours,
	}
}

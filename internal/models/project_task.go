package models

import (
	"time"

	"gorm.io/gorm"
)

type ProjectTaskStatus string

const (
	ProjectTaskStatusPending    ProjectTaskStatus = "pending"
	ProjectTaskStatusAssigned   ProjectTaskStatus = "assigned"
	ProjectTaskStatusInProgress ProjectTaskStatus = "in_progress"
	ProjectTaskStatusCompleted  ProjectTaskStatus = "completed"
	ProjectTaskStatusCancelled  ProjectTaskStatus = "cancelled"
)

// ProjectTask is a catalog Task attached to a project. It carries the
// resolved time budget and the lifecycle state of the actual work.
// Invariant: status in_progress or completed requires AssignedTo non-nil.
type ProjectTask struct {
	ID                 uint64            `gorm:"primarykey" json:"id"`
	ProjectID          uint64            `gorm:"not null;index" json:"project_id"`
	TaskID             uint64            `gorm:"not null;index" json:"task_id"`
	Status             ProjectTaskStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	AssignedTo         *uint64           `gorm:"index" json:"assigned_to"`
	EstimatedHours     float64           `gorm:"not null;default:0" json:"estimated_hours"`
	ActualHours        float64           `gorm:"not null;default:0" json:"actual_hours"`
	ProgressPercentage int               `gorm:"not null;default:0" json:"progress_percentage"`
	StartDate          *time.Time        `json:"start_date"`
	EndDate            *time.Time        `json:"end_date"`
	StartedBy          *uint64           `json:"started_by"`
	StartedAt          *time.Time        `json:"started_at"`
	CompletedBy        *uint64           `json:"completed_by"`
	CompletedAt        *time.Time        `json:"completed_at"`
	Notes              string            `gorm:"type:text" json:"notes"`
	TaskOrder          int               `gorm:"not null;default:0" json:"task_order"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
	DeletedAt          gorm.DeletedAt    `gorm:"index" json:"-"`

	// Relations
	Project       Project            `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Task          Task               `gorm:"foreignKey:TaskID" json:"task,omitempty"`
	Assignee      *User              `gorm:"foreignKey:AssignedTo" json:"assignee,omitempty"`
	Collaborators []TaskCollaborator `gorm:"foreignKey:ProjectTaskID" json:"collaborators,omitempty"`
}

// IsFinished reports whether the task is in a terminal state.
func (t *ProjectTask) IsFinished() bool {
	return t.Status == ProjectTaskStatusCompleted || t.Status == ProjectTaskStatusCancelled
}

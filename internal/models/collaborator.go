package models

import (
	"time"

	"gorm.io/gorm"
)

// TaskCollaborator is a secondary worker allowed to log time on a project
// task once it is in progress. Collaborators never drive transitions; only
// the primary assignee does.
type TaskCollaborator struct {
	ProjectTaskID uint64         `gorm:"primarykey" json:"project_task_id"`
	UserID        uint64         `gorm:"primarykey" json:"user_id"`
	AddedBy       uint64         `gorm:"not null" json:"added_by"`
	AddedAt       time.Time      `json:"added_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	ProjectTask ProjectTask `gorm:"foreignKey:ProjectTaskID" json:"project_task,omitempty"`
	User        User        `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

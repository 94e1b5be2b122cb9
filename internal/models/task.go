package models

import (
	"time"

	"gorm.io/gorm"
)

// Task is a catalog entry describing a kind of work. Its base estimate is
// per module of work; the effective budget is resolved when the task is
// attached to a project.
type Task struct {
	ID                 uint64         `gorm:"primarykey" json:"id"`
	Title              string         `gorm:"not null" json:"title"`
	Description        string         `gorm:"type:text" json:"description"`
	Category           string         `gorm:"type:varchar(100)" json:"category"`
	BaseEstimatedHours float64        `gorm:"not null;default:0" json:"base_estimated_hours"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
}

package repository

import (
	"github.com/worktrackhq/work-tracking-api/internal/models"
	"gorm.io/gorm"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create creates a new catalog task
func (r *GormTaskRepository) Create(task *models.Task) error {
	return r.db.Create(task).Error
}

// FindByID finds a catalog task by ID
func (r *GormTaskRepository) FindByID(id uint64) (*models.Task, error) {
	var task models.Task
	if err := r.db.First(&task, id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// List lists catalog tasks, optionally filtered by category
func (r *GormTaskRepository) List(category string) ([]models.Task, error) {
	var tasks []models.Task
	query := r.db.Order("category ASC, title ASC")
	if category != "" {
		query = query.Where("category = ?", category)
	}
	if err := query.Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// Update updates a catalog task
func (r *GormTaskRepository) Update(task *models.Task) error {
	return r.db.Save(task).Error
}

package repository

import (
	"time"

	"github.com/worktrackhq/work-tracking-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormProjectTaskRepository is a GORM implementation of ProjectTaskRepository
type GormProjectTaskRepository struct {
	db *gorm.DB
}

// NewProjectTaskRepository creates a new ProjectTaskRepository
func NewProjectTaskRepository(db *gorm.DB) ProjectTaskRepository {
	return &GormProjectTaskRepository{db: db}
}

// Create creates a new project task
func (r *GormProjectTaskRepository) Create(task *models.ProjectTask) error {
	return r.db.Create(task).Error
}

// FindByID finds a project task by ID with optional preloading
func (r *GormProjectTaskRepository) FindByID(id uint64, preload ...string) (*models.ProjectTask, error) {
	var task models.ProjectTask
	query := r.db

	for _, p := range preload {
		query = query.Preload(p)
	}

	if err := query.First(&task, id).Error; err != nil {
		return nil, err
	}

	return &task, nil
}

// FindByTaskAndProject finds the project task referencing a catalog task
// within a project
func (r *GormProjectTaskRepository) FindByTaskAndProject(taskID, projectID uint64) (*models.ProjectTask, error) {
	var task models.ProjectTask
	err := r.db.
		Where("task_id = ? AND project_id = ?", taskID, projectID).
		First(&task).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// ListByProject lists a project's tasks ordered by task_order
func (r *GormProjectTaskRepository) ListByProject(projectID uint64) ([]models.ProjectTask, error) {
	var tasks []models.ProjectTask
	err := r.db.
		Where("project_id = ?", projectID).
		Order("task_order ASC, id ASC").
		Preload("Task").
		Preload("Assignee").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// Update updates a project task
func (r *GormProjectTaskRepository) Update(task *models.ProjectTask) error {
	return r.db.Save(task).Error
}

// MarkCompleted performs the conditional completion write. The WHERE guard
// on status makes the completion stamp first-writer-wins, so a user stop and
// a cutoff sweep racing on the same task complete it exactly once.
func (r *GormProjectTaskRepository) MarkCompleted(id, completedBy uint64, completedAt time.Time, actualHours float64) (bool, error) {
	result := r.db.Model(&models.ProjectTask{}).
		Where("id = ? AND status <> ?", id, models.ProjectTaskStatusCompleted).
		Updates(map[string]interface{}{
			"status":              models.ProjectTaskStatusCompleted,
			"actual_hours":        actualHours,
			"progress_percentage": 100,
			"end_date":            completedAt,
			"completed_by":        completedBy,
			"completed_at":        completedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// CountUnfinishedByProject counts tasks that are neither completed nor
// cancelled within a project. Cancelled tasks are excluded from project
// completion accounting.
func (r *GormProjectTaskRepository) CountUnfinishedByProject(projectID uint64) (int64, error) {
	var count int64
	err := r.db.Model(&models.ProjectTask{}).
		Where("project_id = ? AND status NOT IN ?", projectID,
			[]models.ProjectTaskStatus{
				models.ProjectTaskStatusCompleted,
				models.ProjectTaskStatusCancelled,
			}).
		Count(&count).Error
	return count, err
}

// AddCollaborator adds a secondary worker to a project task, reviving a
// previously removed record when one exists
func (r *GormProjectTaskRepository) AddCollaborator(collaborator *models.TaskCollaborator) error {
	return r.db.
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "project_task_id"}, {Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"deleted_at": gorm.Expr("NULL"),
			}),
		}).
		Create(collaborator).Error
}

// RemoveCollaborator removes a secondary worker from a project task
func (r *GormProjectTaskRepository) RemoveCollaborator(projectTaskID, userID uint64) error {
	return r.db.
		Where("project_task_id = ? AND user_id = ?", projectTaskID, userID).
		Delete(&models.TaskCollaborator{}).Error
}

// FindCollaborator finds a specific collaborator record
func (r *GormProjectTaskRepository) FindCollaborator(projectTaskID, userID uint64) (*models.TaskCollaborator, error) {
	var collaborator models.TaskCollaborator
	err := r.db.
		Where("project_task_id = ? AND user_id = ?", projectTaskID, userID).
		First(&collaborator).Error
	if err != nil {
		return nil, err
	}
	return &collaborator, nil
}

package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/worktrackhq/work-tracking-api/internal/models"
	"gorm.io/gorm"
)

// ErrOpenEntryExists is returned when opening a second concurrent entry for
// the same (task, project, user) key.
var ErrOpenEntryExists = errors.New("time entry repository: an open entry already exists for this task")

// GormTimeEntryRepository is a GORM implementation of TimeEntryRepository
type GormTimeEntryRepository struct {
	db *gorm.DB
}

// NewTimeEntryRepository creates a new TimeEntryRepository
func NewTimeEntryRepository(db *gorm.DB) TimeEntryRepository {
	return &GormTimeEntryRepository{db: db}
}

// Open creates a new open entry, enforcing at most one open entry per
// (task, project, user). The check and insert run in one transaction so the
// repository stays the sole writer of the invariant.
func (r *GormTimeEntryRepository) Open(entry *models.TimeEntry) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&models.TimeEntry{}).
			Where("task_id = ? AND project_id = ? AND user_id = ? AND end_time IS NULL",
				entry.TaskID, entry.ProjectID, entry.UserID).
			Count(&count).Error
		if err != nil {
			return fmt.Errorf("failed to check open entries: %w", err)
		}
		if count > 0 {
			return ErrOpenEntryExists
		}

		return tx.Create(entry).Error
	})
}

// Close end-stamps an open entry. The WHERE end_time IS NULL guard makes the
// write first-closer-wins: the losing caller in a race with the cutoff sweep
// sees zero rows affected and treats it as already closed.
func (r *GormTimeEntryRepository) Close(entryID uint64, endTime time.Time, hours *float64, fallbackDescription string) (bool, error) {
	updates := map[string]interface{}{
		"end_time": endTime,
	}
	if hours != nil {
		updates["hours"] = *hours
	}
	if fallbackDescription != "" {
		updates["description"] = gorm.Expr(
			"CASE WHEN description = '' THEN ? ELSE description END",
			fallbackDescription,
		)
	}

	result := r.db.Model(&models.TimeEntry{}).
		Where("id = ? AND end_time IS NULL", entryID).
		Updates(updates)
	if result.Error != nil {
		return false, fmt.Errorf("failed to close entry %d: %w", entryID, result.Error)
	}

	return result.RowsAffected > 0, nil
}

// FindByID finds an entry by ID
func (r *GormTimeEntryRepository) FindByID(id uint64) (*models.TimeEntry, error) {
	var entry models.TimeEntry
	if err := r.db.First(&entry, id).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// FindOpen finds the open entry for a (task, project, user) key
func (r *GormTimeEntryRepository) FindOpen(taskID, projectID, userID uint64) (*models.TimeEntry, error) {
	var entry models.TimeEntry
	err := r.db.
		Where("task_id = ? AND project_id = ? AND user_id = ? AND end_time IS NULL",
			taskID, projectID, userID).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListByTask lists all entries for a task within a project
func (r *GormTimeEntryRepository) ListByTask(taskID, projectID uint64, userID *uint64) ([]models.TimeEntry, error) {
	var entries []models.TimeEntry
	query := r.db.Where("task_id = ? AND project_id = ?", taskID, projectID)
	if userID != nil {
		query = query.Where("user_id = ?", *userID)
	}
	if err := query.Order("start_time ASC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// ListOpen lists every open entry system-wide
func (r *GormTimeEntryRepository) ListOpen() ([]models.TimeEntry, error) {
	var entries []models.TimeEntry
	if err := r.db.Where("end_time IS NULL").Order("start_time ASC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// ListOpenByTask lists open entries for a task within a project
func (r *GormTimeEntryRepository) ListOpenByTask(taskID, projectID uint64) ([]models.TimeEntry, error) {
	var entries []models.TimeEntry
	err := r.db.
		Where("task_id = ? AND project_id = ? AND end_time IS NULL", taskID, projectID).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// FirstStartTime returns the earliest start time logged for a task within a
// project, or nil when no entries exist
func (r *GormTimeEntryRepository) FirstStartTime(taskID, projectID uint64) (*time.Time, error) {
	var entry models.TimeEntry
	err := r.db.
		Where("task_id = ? AND project_id = ?", taskID, projectID).
		Order("start_time ASC").
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry.StartTime, nil
}

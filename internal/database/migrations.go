package database

import (
	"fmt"

	"gorm.io/gorm"
)

// AddIndexes adds performance-critical indexes to the database
func AddIndexes(db *gorm.DB) error {
	indexes := []struct {
		table   string
		name    string
		columns string
	}{
		// Project task indexes for lifecycle queries and sweeps
		{"project_tasks", "idx_project_tasks_project_id", "project_id"},
		{"project_tasks", "idx_project_tasks_status", "status"},
		{"project_tasks", "idx_project_tasks_assigned_to", "assigned_to"},

		// Time entry indexes: the open-entry scan is the hot path of the
		// cutoff sweep, and the key lookup backs the single-open invariant.
		{"time_entries", "idx_time_entries_open", "end_time"},
		{"time_entries", "idx_time_entries_task_project", "task_id, project_id"},

		// Collaborator lookups
		{"task_collaborators", "idx_task_collaborators_user_id", "user_id"},
	}

	for _, idx := range indexes {
		// Check if index already exists
		var count int64
		err := db.Raw(`
			SELECT COUNT(*)
			FROM pg_indexes
			WHERE tablename = ? AND indexname = ?
		`, idx.table, idx.name).Count(&count).Error

		if err != nil {
			return fmt.Errorf("failed to check index %s: %w", idx.name, err)
		}

		if count > 0 {
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}

	return nil
}

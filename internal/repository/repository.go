package repository

import (
	"time"

	"github.com/worktrackhq/work-tracking-api/internal/models"
)

// TimeEntryRepository defines the interface for the work-session ledger.
// It is the sole writer of time entries and enforces the single-open-entry
// invariant per (task, project, user).
type TimeEntryRepository interface {
	// Open creates a new open entry. Returns ErrOpenEntryExists when an
	// open entry already exists for the same (task, project, user).
	Open(entry *models.TimeEntry) error

	// Close end-stamps an open entry. The update is conditional on the
	// entry still being open; the boolean reports whether this call closed
	// it. Closing an already-closed entry is a no-op, not an error.
	// fallbackDescription is applied only when the entry has none.
	Close(entryID uint64, endTime time.Time, hours *float64, fallbackDescription string) (bool, error)

	// FindByID finds an entry by ID
	FindByID(id uint64) (*models.TimeEntry, error)

	// FindOpen finds the open entry for a (task, project, user) key, if any
	FindOpen(taskID, projectID, userID uint64) (*models.TimeEntry, error)

	// ListByTask lists all entries for a task within a project, optionally
	// restricted to a single user when userID is non-nil
	ListByTask(taskID, projectID uint64, userID *uint64) ([]models.TimeEntry, error)

	// ListOpen lists every open entry system-wide (the sweep's input)
	ListOpen() ([]models.TimeEntry, error)

	// ListOpenByTask lists open entries for a task within a project
	ListOpenByTask(taskID, projectID uint64) ([]models.TimeEntry, error)

	// FirstStartTime returns the earliest start time logged for a task
	// within a project, or nil when no entries exist
	FirstStartTime(taskID, projectID uint64) (*time.Time, error)
}

// ProjectTaskRepository defines the interface for project task data access
type ProjectTaskRepository interface {
	// Create creates a new project task
	Create(task *models.ProjectTask) error

	// FindByID finds a project task by ID with optional preloading
	FindByID(id uint64, preload ...string) (*models.ProjectTask, error)

	// FindByTaskAndProject finds the project task referencing a catalog
	// task within a project
	FindByTaskAndProject(taskID, projectID uint64) (*models.ProjectTask, error)

	// ListByProject lists a project's tasks ordered by task_order
	ListByProject(projectID uint64) ([]models.ProjectTask, error)

	// Update updates a project task
	Update(task *models.ProjectTask) error

	// MarkCompleted performs the conditional completion write. It only
	// applies when the task is not yet completed; the boolean reports
	// whether this call completed it.
	MarkCompleted(id, completedBy uint64, completedAt time.Time, actualHours float64) (bool, error)

	// CountUnfinishedByProject counts tasks that are neither completed nor
	// cancelled within a project
	CountUnfinishedByProject(projectID uint64) (int64, error)

	// AddCollaborator adds a secondary worker to a project task
	AddCollaborator(collaborator *models.TaskCollaborator) error

	// RemoveCollaborator removes a secondary worker from a project task
	RemoveCollaborator(projectTaskID, userID uint64) error

	// FindCollaborator finds a specific collaborator record
	FindCollaborator(projectTaskID, userID uint64) (*models.TaskCollaborator, error)
}

// TaskRepository defines the interface for catalog task data access
type TaskRepository interface {
	// Create creates a new catalog task
	Create(task *models.Task) error

	// FindByID finds a catalog task by ID
	FindByID(id uint64) (*models.Task, error)

	// List lists catalog tasks, optionally filtered by category
	List(category string) ([]models.Task, error)

	// Update updates a catalog task (administrative edits only)
	Update(task *models.Task) error
}

// ProjectRepository defines the interface for project data access
type ProjectRepository interface {
	// Create creates a new project
	Create(project *models.Project) error

	// FindByID finds a project by ID
	FindByID(id uint64) (*models.Project, error)

	// List lists all projects
	List() ([]models.Project, error)

	// Update updates a project
	Update(project *models.Project) error

	// MarkCompleted conditionally marks a project completed; the boolean
	// reports whether this call changed the status.
	MarkCompleted(id uint64) (bool, error)
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(user *models.User) error

	// FindByID finds a user by ID
	FindByID(id uint64) (*models.User, error)

	// FindByUsername finds a user by username
	FindByUsername(username string) (*models.User, error)
}

package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/worktrackhq/work-tracking-api/internal/database"
	apierrors "github.com/worktrackhq/work-tracking-api/internal/errors"
	"github.com/worktrackhq/work-tracking-api/internal/models"
)

// ContextKeyProjectTask is the gin context key under which the resolved
// project task is stored.
const ContextKeyProjectTask = "project_task"

// RequireProjectTask resolves the :id route parameter into a project task
// and stores it in the context for the handler.
func RequireProjectTask() gin.HandlerFunc {
	return func(c *gin.Context) {
		taskIDStr := c.Param("id")
		taskID, err := strconv.ParseUint(taskIDStr, 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid project task ID")
			c.Abort()
			return
		}

		if _, exists := GetUserID(c); !exists {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		var task models.ProjectTask
		if err := database.GetDB().
			Preload("Task").
			Preload("Assignee").
			Preload("Collaborators").
			First(&task, taskID).Error; err != nil {
			apierrors.NotFound(c, "Project task not found")
			c.Abort()
			return
		}

		c.Set(ContextKeyProjectTask, task)
		c.Next()
	}
}

// GetProjectTask retrieves the resolved project task from the context.
func GetProjectTask(c *gin.Context) (models.ProjectTask, bool) {
	value, exists := c.Get(ContextKeyProjectTask)
	if !exists {
		return models.ProjectTask{}, false
	}
	task, ok := value.(models.ProjectTask)
	return task, ok
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/worktrackhq/work-tracking-api/internal/dto"
	apierrors "github.com/worktrackhq/work-tracking-api/internal/errors"
	"github.com/worktrackhq/work-tracking-api/internal/middleware"
	"github.com/worktrackhq/work-tracking-api/internal/services"
)

// ProjectTaskHandler exposes the task lifecycle state machine over HTTP.
// Every mutating route resolves the acting user from the session so the
// engine can attribute transitions.
type ProjectTaskHandler struct {
	lifecycle *services.LifecycleService
	hours     *services.HoursService
}

// NewProjectTaskHandler creates a new ProjectTaskHandler.
func NewProjectTaskHandler(lifecycle *services.LifecycleService, hours *services.HoursService) *ProjectTaskHandler {
	return &ProjectTaskHandler{
		lifecycle: lifecycle,
		hours:     hours,
	}
}

// GetProjectTask returns the project task resolved by the middleware.
func (h *ProjectTaskHandler) GetProjectTask(c *gin.Context) {
	task, ok := middleware.GetProjectTask(c)
	if !ok {
		apierrors.InternalError(c, "Project task not found in context")
		return
	}

	c.JSON(http.StatusOK, dto.ToProjectTaskDTO(task))
}

// AssignTask assigns a worker to the task.
func (h *ProjectTaskHandler) AssignTask(c *gin.Context) {
	task, ok := middleware.GetProjectTask(c)
	if !ok {
		apierrors.InternalError(c, "Project task not found in context")
		return
	}

	type AssignRequest struct {
		UserID uint64 `json:"user_id" binding:"required"`
	}

	var req AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	updated, err := h.lifecycle.Assign(task.ID, req.UserID)
	if err != nil {
		respondLifecycleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToProjectTaskDTO(*updated))
}

// SelfAssignTask assigns the acting user to the task.
func (h *ProjectTaskHandler) SelfAssignTask(c *gin.Context) {
	task, ok := middleware.GetProjectTask(c)
	if !ok {
		apierrors.InternalError(c, "Project task not found in context")
		return
	}
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	updated, err := h.lifecycle.Assign(task.ID, userID)
	if err != nil {
		respondLifecycleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToProjectTaskDTO(*updated))
}

// StartTask moves the task into progress.
func (h *ProjectTaskHandler) StartTask(c *gin.Context) {
	task, ok := middleware.GetProjectTask(c)
	if !ok {
		apierrors.InternalError(c, "Project task not found in context")
		return
	}
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	updated, err := h.lifecycle.Start(task.ID, userID)
	if err != nil {
		respondLifecycleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToProjectTaskDTO(*updated))
}

// CompleteTask finalizes the task, closing any open work sessions.
func (h *ProjectTaskHandler) CompleteTask(c *gin.Context) {
	task, ok := middleware.GetProjectTask(c)
	if !ok {
		apierrors.InternalError(c, "Project task not found in context")
		return
	}
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	type CompleteRequest struct {
		ActualHours *float64 `json:"actual_hours"`
	}

	var req CompleteRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			apierrors.BadRequest(c, "Invalid request body")
			return
		}
	}

	updated, err := h.lifecycle.Complete(task.ID, userID, req.ActualHours)
	if err != nil {
		respondLifecycleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToProjectTaskDTO(*updated))
}

// CancelTask cancels the task.
func (h *ProjectTaskHandler) CancelTask(c *gin.Context) {
	task, ok := middleware.GetProjectTask(c)
	if !ok {
		apierrors.InternalError(c, "Project task not found in context")
		return
	}

	updated, err := h.lifecycle.Cancel(task.ID)
	if err != nil {
		respondLifecycleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToProjectTaskDTO(*updated))
}

// ReturnTask moves an in-progress task back to assigned, keeping logged time.
func (h *ProjectTaskHandler) ReturnTask(c *gin.Context) {
	task, ok := middleware.GetProjectTask(c)
	if !ok {
		apierrors.InternalError(c, "Project task not found in context")
		return
	}
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	updated, err := h.lifecycle.Return(task.ID, userID)
	if err != nil {
		respondLifecycleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToProjectTaskDTO(*updated))
}

// UpdateProgress records manually reported progress.
func (h *ProjectTaskHandler) UpdateProgress(c *gin.Context) {
	task, ok := middleware.GetProjectTask(c)
	if !ok {
		apierrors.InternalError(c, "Project task not found in context")
		return
	}
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	type ProgressRequest struct {
		ProgressPercentage *int `json:"progress_percentage" binding:"required"`
	}

	var req ProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	updated, err := h.lifecycle.UpdateProgress(task.ID, userID, *req.ProgressPercentage)
	if err != nil {
		respondLifecycleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToProjectTaskDTO(*updated))
}

// AddCollaborator adds a secondary worker to the task.
func (h *ProjectTaskHandler) AddCollaborator(c *gin.Context) {
	task, ok := middleware.GetProjectTask(c)
	if !ok {
		apierrors.InternalError(c, "Project task not found in context")
		return
	}
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	type CollaboratorRequest struct {
		UserID uint64 `json:"user_id" binding:"required"`
	}

	var req CollaboratorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	if err := h.lifecycle.AddCollaborator(task.ID, userID, req.UserID); err != nil {
		respondLifecycleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Collaborator added"})
}

// RemoveCollaborator removes a secondary worker from the task.
func (h *ProjectTaskHandler) RemoveCollaborator(c *gin.Context) {
	task, ok := middleware.GetProjectTask(c)
	if !ok {
		apierrors.InternalError(c, "Project task not found in context")
		return
	}
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	collaboratorID, ok := parseIDParam(c, "userId")
	if !ok {
		return
	}

	if err := h.lifecycle.RemoveCollaborator(task.ID, userID, collaboratorID); err != nil {
		respondLifecycleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Collaborator removed"})
}

// GetTaskHours returns the aggregated hours and derived progress for a task.
func (h *ProjectTaskHandler) GetTaskHours(c *gin.Context) {
	task, ok := middleware.GetProjectTask(c)
	if !ok {
		apierrors.InternalError(c, "Project task not found in context")
		return
	}

	taskHours, err := h.hours.TaskHoursFor(&task)
	if err != nil {
		apierrors.InternalError(c, "Failed to aggregate hours")
		return
	}

	c.JSON(http.StatusOK, taskHours)
}

func respondLifecycleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrProjectTaskNotFound):
		apierrors.NotFound(c, "Project task not found")
	case errors.Is(err, services.ErrAssignmentRequired):
		apierrors.InvalidOperation(c, "assignment required")
	case errors.Is(err, services.ErrInvalidTransition):
		apierrors.InvalidOperation(c, err.Error())
	case errors.Is(err, services.ErrNotAssignee),
		errors.Is(err, services.ErrNotCollaborator):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrTaskFinished):
		apierrors.InvalidOperation(c, err.Error())
	default:
		apierrors.InternalError(c, "")
	}
}

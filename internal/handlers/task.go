package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/worktrackhq/work-tracking-api/internal/dto"
	apierrors "github.com/worktrackhq/work-tracking-api/internal/errors"
	"github.com/worktrackhq/work-tracking-api/internal/models"
	"github.com/worktrackhq/work-tracking-api/internal/repository"
)

// TaskHandler coordinates catalog task HTTP handlers.
type TaskHandler struct {
	taskRepo repository.TaskRepository
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(taskRepo repository.TaskRepository) *TaskHandler {
	return &TaskHandler{
		taskRepo: taskRepo,
	}
}

// CreateTask creates a new catalog task
func (h *TaskHandler) CreateTask(c *gin.Context) {
	type CreateTaskRequest struct {
		Title              string  `json:"title" binding:"required"`
		Description        string  `json:"description"`
		Category           string  `json:"category"`
		BaseEstimatedHours float64 `json:"base_estimated_hours"`
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}
	if req.BaseEstimatedHours < 0 {
		apierrors.BadRequest(c, "base_estimated_hours cannot be negative")
		return
	}

	task := &models.Task{
		Title:              req.Title,
		Description:        req.Description,
		Category:           req.Category,
		BaseEstimatedHours: req.BaseEstimatedHours,
	}
	if err := h.taskRepo.Create(task); err != nil {
		apierrors.InternalError(c, "Failed to create task")
		return
	}

	c.JSON(http.StatusCreated, dto.ToTaskDTO(*task))
}

// ListTasks returns catalog tasks, optionally filtered by category
func (h *TaskHandler) ListTasks(c *gin.Context) {
	tasks, err := h.taskRepo.List(c.Query("category"))
	if err != nil {
		apierrors.InternalError(c, "Failed to fetch tasks")
		return
	}

	result := make([]dto.TaskDTO, 0, len(tasks))
	for _, task := range tasks {
		result = append(result, dto.ToTaskDTO(task))
	}

	c.JSON(http.StatusOK, gin.H{"tasks": result})
}

// GetTask returns a catalog task by ID
func (h *TaskHandler) GetTask(c *gin.Context) {
	taskID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	task, err := h.taskRepo.FindByID(taskID)
	if err != nil {
		apierrors.NotFound(c, "Task not found")
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

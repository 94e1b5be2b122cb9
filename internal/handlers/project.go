package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/worktrackhq/work-tracking-api/internal/database"
	"github.com/worktrackhq/work-tracking-api/internal/dto"
	apierrors "github.com/worktrackhq/work-tracking-api/internal/errors"
	"github.com/worktrackhq/work-tracking-api/internal/models"
	"github.com/worktrackhq/work-tracking-api/internal/repository"
	"github.com/worktrackhq/work-tracking-api/internal/utils"
)

// ProjectHandler coordinates project HTTP handlers. Projects are simple
// data entry; the interesting behavior (automatic completion) lives in the
// lifecycle service.
type ProjectHandler struct {
	projectRepo repository.ProjectRepository
	taskRepo    repository.TaskRepository
	ptRepo      repository.ProjectTaskRepository
}

// NewProjectHandler creates a new ProjectHandler.
func NewProjectHandler(
	projectRepo repository.ProjectRepository,
	taskRepo repository.TaskRepository,
	ptRepo repository.ProjectTaskRepository,
) *ProjectHandler {
	return &ProjectHandler{
		projectRepo: projectRepo,
		taskRepo:    taskRepo,
		ptRepo:      ptRepo,
	}
}

// CreateProject creates a new project
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	type CreateProjectRequest struct {
		Name        string `json:"name" binding:"required"`
		ModuleCount int    `json:"module_count"`
	}

	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}
	if req.ModuleCount <= 0 {
		req.ModuleCount = 1
	}

	project := &models.Project{
		Name:        req.Name,
		Status:      models.ProjectStatusActive,
		ModuleCount: req.ModuleCount,
	}
	if err := h.projectRepo.Create(project); err != nil {
		apierrors.InternalError(c, "Failed to create project")
		return
	}

	c.JSON(http.StatusCreated, project)
}

// ListProjects returns all projects with pagination
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	params := utils.ParsePageParams(c)

	var total int64
	if err := database.GetDB().Model(&models.Project{}).Count(&total).Error; err != nil {
		apierrors.InternalError(c, "Failed to count projects")
		return
	}

	var projects []models.Project
	err := database.GetDB().
		Order("created_at DESC").
		Scopes(database.Paginate(params)).
		Find(&projects).Error
	if err != nil {
		apierrors.InternalError(c, "Failed to fetch projects")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"projects": projects,
		"pagination": utils.PageMeta{
			Page:  params.Page,
			Limit: params.Limit,
			Total: total,
		},
	})
}

// GetProject returns a project by ID
func (h *ProjectHandler) GetProject(c *gin.Context) {
	projectID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	project, err := h.projectRepo.FindByID(projectID)
	if err != nil {
		apierrors.NotFound(c, "Project not found")
		return
	}

	c.JSON(http.StatusOK, project)
}

// AttachTask attaches a catalog task to a project, resolving the effective
// time budget: base estimate times the project's module count, unless an
// explicit override is supplied.
func (h *ProjectHandler) AttachTask(c *gin.Context) {
	projectID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	type AttachTaskRequest struct {
		TaskID         uint64   `json:"task_id" binding:"required"`
		EstimatedHours *float64 `json:"estimated_hours"`
		Notes          string   `json:"notes"`
		TaskOrder      int      `json:"task_order"`
	}

	var req AttachTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	project, err := h.projectRepo.FindByID(projectID)
	if err != nil {
		apierrors.NotFound(c, "Project not found")
		return
	}
	task, err := h.taskRepo.FindByID(req.TaskID)
	if err != nil {
		apierrors.NotFound(c, "Catalog task not found")
		return
	}

	estimated := task.BaseEstimatedHours * float64(project.ModuleCount)
	if req.EstimatedHours != nil {
		estimated = *req.EstimatedHours
	}

	projectTask := &models.ProjectTask{
		ProjectID:      project.ID,
		TaskID:         task.ID,
		Status:         models.ProjectTaskStatusPending,
		EstimatedHours: estimated,
		Notes:          req.Notes,
		TaskOrder:      req.TaskOrder,
	}
	if err := h.ptRepo.Create(projectTask); err != nil {
		apierrors.InternalError(c, "Failed to attach task")
		return
	}

	c.JSON(http.StatusCreated, dto.ToProjectTaskDTO(*projectTask))
}

// ListProjectTasks returns a project's tasks ordered by task order
func (h *ProjectHandler) ListProjectTasks(c *gin.Context) {
	projectID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	tasks, err := h.ptRepo.ListByProject(projectID)
	if err != nil {
		apierrors.InternalError(c, "Failed to fetch project tasks")
		return
	}

	result := make([]dto.ProjectTaskDTO, 0, len(tasks))
	for _, task := range tasks {
		result = append(result, dto.ToProjectTaskDTO(task))
	}

	c.JSON(http.StatusOK, gin.H{"tasks": result})
}

func parseIDParam(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid "+name+" parameter")
		return 0, false
	}
	return id, true
}

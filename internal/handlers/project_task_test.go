package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
	"github.com/worktrackhq/work-tracking-api/internal/constants"
	"github.com/worktrackhq/work-tracking-api/internal/database"
	"github.com/worktrackhq/work-tracking-api/internal/dto"
	"github.com/worktrackhq/work-tracking-api/internal/middleware"
	"github.com/worktrackhq/work-tracking-api/internal/models"
	"github.com/worktrackhq/work-tracking-api/internal/repository"
	"github.com/worktrackhq/work-tracking-api/internal/services"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// ProjectTaskHandlerTestSuite defines the test suite for ProjectTaskHandler
type ProjectTaskHandlerTestSuite struct {
	suite.Suite
	db          *gorm.DB
	handler     *ProjectTaskHandler
	router      *gin.Engine
	currentUser uint64
}

// SetupTest runs before each test
func (suite *ProjectTaskHandlerTestSuite) SetupTest() {
	var err error

	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)

	err = suite.db.AutoMigrate(
		&models.User{},
		&models.Project{},
		&models.Task{},
		&models.ProjectTask{},
		&models.TaskCollaborator{},
		&models.TimeEntry{},
	)
	suite.Require().NoError(err)

	database.SetDB(suite.db)

	entryRepo := repository.NewTimeEntryRepository(suite.db)
	taskRepo := repository.NewProjectTaskRepository(suite.db)
	projRepo := repository.NewProjectRepository(suite.db)
	hours := services.NewHoursService(entryRepo)
	lifecycle := services.NewLifecycleService(taskRepo, projRepo, entryRepo, hours)
	suite.handler = NewProjectTaskHandler(lifecycle, hours)

	gin.SetMode(gin.TestMode)
	suite.router = gin.New()

	// Simulate the session middleware by injecting the suite's acting user
	authed := suite.router.Group("/api/project-tasks")
	authed.Use(func(c *gin.Context) {
		c.Set(constants.ContextKeyUserID, suite.currentUser)
		c.Next()
	})
	authed.Use(middleware.RequireProjectTask())
	authed.GET("/:id", suite.handler.GetProjectTask)
	authed.POST("/:id/assign", suite.handler.AssignTask)
	authed.POST("/:id/self-assign", suite.handler.SelfAssignTask)
	authed.POST("/:id/start", suite.handler.StartTask)
	authed.POST("/:id/complete", suite.handler.CompleteTask)
	authed.POST("/:id/cancel", suite.handler.CancelTask)
	authed.POST("/:id/return", suite.handler.ReturnTask)
	authed.PATCH("/:id/progress", suite.handler.UpdateProgress)
	authed.POST("/:id/collaborators", suite.handler.AddCollaborator)
	authed.DELETE("/:id/collaborators/:userId", suite.handler.RemoveCollaborator)
	authed.GET("/:id/hours", suite.handler.GetTaskHours)
}

// TearDownTest runs after each test
func (suite *ProjectTaskHandlerTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *ProjectTaskHandlerTestSuite) createUser(username string) *models.User {
	user := &models.User{Username: username, PasswordHash: "hashedpassword"}
	suite.Require().NoError(suite.db.Create(user).Error)
	return user
}

func (suite *ProjectTaskHandlerTestSuite) createProjectTask(status models.ProjectTaskStatus, assignedTo *uint64) *models.ProjectTask {
	project := &models.Project{Name: "website", Status: models.ProjectStatusActive, ModuleCount: 2}
	suite.Require().NoError(suite.db.Create(project).Error)
	task := &models.Task{Title: "implement api", BaseEstimatedHours: 5}
	suite.Require().NoError(suite.db.Create(task).Error)

	pt := &models.ProjectTask{
		ProjectID:      project.ID,
		TaskID:         task.ID,
		Status:         status,
		AssignedTo:     assignedTo,
		EstimatedHours: 10,
	}
	suite.Require().NoError(suite.db.Create(pt).Error)
	return pt
}

func (suite *ProjectTaskHandlerTestSuite) request(method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		suite.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	suite.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *ProjectTaskHandlerTestSuite) errorCode(w *httptest.ResponseRecorder) string {
	var resp struct {
		Code string `json:"code"`
	}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Code
}

func (suite *ProjectTaskHandlerTestSuite) TestGetProjectTask() {
	worker := suite.createUser("worker")
	suite.currentUser = worker.ID
	pt := suite.createProjectTask(models.ProjectTaskStatusPending, nil)

	w := suite.request(http.MethodGet, fmt.Sprintf("/api/project-tasks/%d", pt.ID), nil)
	suite.Equal(http.StatusOK, w.Code)

	var resp dto.ProjectTaskDTO
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal(pt.ID, resp.ID)
	suite.Equal(models.ProjectTaskStatusPending, resp.Status)
	suite.Require().NotNil(resp.Task)
	suite.Equal("implement api", resp.Task.Title)
}

func (suite *ProjectTaskHandlerTestSuite) TestGetProjectTaskNotFound() {
	suite.currentUser = suite.createUser("worker").ID

	w := suite.request(http.MethodGet, "/api/project-tasks/9999", nil)
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *ProjectTaskHandlerTestSuite) TestAssignTask() {
	manager := suite.createUser("manager")
	worker := suite.createUser("worker")
	suite.currentUser = manager.ID
	pt := suite.createProjectTask(models.ProjectTaskStatusPending, nil)

	w := suite.request(http.MethodPost, fmt.Sprintf("/api/project-tasks/%d/assign", pt.ID),
		gin.H{"user_id": worker.ID})
	suite.Equal(http.StatusOK, w.Code)

	var resp dto.ProjectTaskDTO
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal(models.ProjectTaskStatusAssigned, resp.Status)
	suite.Require().NotNil(resp.AssignedTo)
	suite.Equal(worker.ID, *resp.AssignedTo)
}

func (suite *ProjectTaskHandlerTestSuite) TestSelfAssignTask() {
	worker := suite.createUser("worker")
	suite.currentUser = worker.ID
	pt := suite.createProjectTask(models.ProjectTaskStatusPending, nil)

	w := suite.request(http.MethodPost, fmt.Sprintf("/api/project-tasks/%d/self-assign", pt.ID), nil)
	suite.Equal(http.StatusOK, w.Code)

	var resp dto.ProjectTaskDTO
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Require().NotNil(resp.AssignedTo)
	suite.Equal(worker.ID, *resp.AssignedTo)
}

func (suite *ProjectTaskHandlerTestSuite) TestStartTaskByNonAssignee() {
	worker := suite.createUser("worker")
	other := suite.createUser("other")
	suite.currentUser = other.ID
	pt := suite.createProjectTask(models.ProjectTaskStatusAssigned, &worker.ID)

	w := suite.request(http.MethodPost, fmt.Sprintf("/api/project-tasks/%d/start", pt.ID), nil)
	suite.Equal(http.StatusForbidden, w.Code)
	suite.Equal("FORBIDDEN", suite.errorCode(w))
}

func (suite *ProjectTaskHandlerTestSuite) TestStartUnassignedTask() {
	suite.currentUser = suite.createUser("worker").ID
	pt := suite.createProjectTask(models.ProjectTaskStatusPending, nil)

	w := suite.request(http.MethodPost, fmt.Sprintf("/api/project-tasks/%d/start", pt.ID), nil)
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal("INVALID_OPERATION", suite.errorCode(w))
}

func (suite *ProjectTaskHandlerTestSuite) TestCompleteTask() {
	worker := suite.createUser("worker")
	suite.currentUser = worker.ID
	pt := suite.createProjectTask(models.ProjectTaskStatusInProgress, &worker.ID)

	w := suite.request(http.MethodPost, fmt.Sprintf("/api/project-tasks/%d/complete", pt.ID),
		gin.H{"actual_hours": 6.5})
	suite.Equal(http.StatusOK, w.Code)

	var resp dto.ProjectTaskDTO
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal(models.ProjectTaskStatusCompleted, resp.Status)
	suite.Equal(100, resp.ProgressPercentage)
	suite.InDelta(6.5, resp.ActualHours, 1e-6)
}

func (suite *ProjectTaskHandlerTestSuite) TestCancelCompletedTaskRejected() {
	worker := suite.createUser("worker")
	suite.currentUser = worker.ID
	pt := suite.createProjectTask(models.ProjectTaskStatusCompleted, &worker.ID)

	w := suite.request(http.MethodPost, fmt.Sprintf("/api/project-tasks/%d/cancel", pt.ID), nil)
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal("INVALID_OPERATION", suite.errorCode(w))
}

func (suite *ProjectTaskHandlerTestSuite) TestReturnTask() {
	worker := suite.createUser("worker")
	suite.currentUser = worker.ID
	pt := suite.createProjectTask(models.ProjectTaskStatusInProgress, &worker.ID)

	w := suite.request(http.MethodPost, fmt.Sprintf("/api/project-tasks/%d/return", pt.ID), nil)
	suite.Equal(http.StatusOK, w.Code)

	var resp dto.ProjectTaskDTO
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal(models.ProjectTaskStatusAssigned, resp.Status)
	suite.Require().NotNil(resp.AssignedTo)
}

func (suite *ProjectTaskHandlerTestSuite) TestUpdateProgress() {
	worker := suite.createUser("worker")
	suite.currentUser = worker.ID
	pt := suite.createProjectTask(models.ProjectTaskStatusInProgress, &worker.ID)

	w := suite.request(http.MethodPatch, fmt.Sprintf("/api/project-tasks/%d/progress", pt.ID),
		gin.H{"progress_percentage": 60})
	suite.Equal(http.StatusOK, w.Code)

	var resp dto.ProjectTaskDTO
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal(60, resp.ProgressPercentage)
}

func (suite *ProjectTaskHandlerTestSuite) TestAddCollaborator() {
	worker := suite.createUser("worker")
	helper := suite.createUser("helper")
	suite.currentUser = worker.ID
	pt := suite.createProjectTask(models.ProjectTaskStatusInProgress, &worker.ID)

	w := suite.request(http.MethodPost, fmt.Sprintf("/api/project-tasks/%d/collaborators", pt.ID),
		gin.H{"user_id": helper.ID})
	suite.Equal(http.StatusOK, w.Code)

	var count int64
	suite.db.Model(&models.TaskCollaborator{}).
		Where("project_task_id = ? AND user_id = ?", pt.ID, helper.ID).
		Count(&count)
	suite.Equal(int64(1), count)
}

func (suite *ProjectTaskHandlerTestSuite) TestRemoveCollaborator() {
	worker := suite.createUser("worker")
	helper := suite.createUser("helper")
	suite.currentUser = worker.ID
	pt := suite.createProjectTask(models.ProjectTaskStatusInProgress, &worker.ID)

	w := suite.request(http.MethodPost, fmt.Sprintf("/api/project-tasks/%d/collaborators", pt.ID),
		gin.H{"user_id": helper.ID})
	suite.Require().Equal(http.StatusOK, w.Code)

	w = suite.request(http.MethodDelete,
		fmt.Sprintf("/api/project-tasks/%d/collaborators/%d", pt.ID, helper.ID), nil)
	suite.Equal(http.StatusOK, w.Code)

	var count int64
	suite.db.Model(&models.TaskCollaborator{}).
		Where("project_task_id = ? AND user_id = ?", pt.ID, helper.ID).
		Count(&count)
	suite.Equal(int64(0), count)
}

func (suite *ProjectTaskHandlerTestSuite) TestGetTaskHours() {
	worker := suite.createUser("worker")
	suite.currentUser = worker.ID
	pt := suite.createProjectTask(models.ProjectTaskStatusInProgress, &worker.ID)

	start := time.Now().Add(-5 * time.Hour)
	end := start.Add(5 * time.Hour)
	hours := 5.0
	entry := &models.TimeEntry{
		TaskID:    pt.TaskID,
		ProjectID: pt.ProjectID,
		UserID:    worker.ID,
		StartTime: start,
		EndTime:   &end,
		Hours:     &hours,
	}
	suite.Require().NoError(suite.db.Create(entry).Error)

	w := suite.request(http.MethodGet, fmt.Sprintf("/api/project-tasks/%d/hours", pt.ID), nil)
	suite.Equal(http.StatusOK, w.Code)

	var resp services.TaskHours
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.InDelta(5.0, resp.TotalHours, 1e-6)
	suite.Equal(50, resp.ProgressPercentage)
}

func TestProjectTaskHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(ProjectTaskHandlerTestSuite))
}

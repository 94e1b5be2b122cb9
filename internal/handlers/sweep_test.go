package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
	"github.com/worktrackhq/work-tracking-api/internal/models"
	"github.com/worktrackhq/work-tracking-api/internal/repository"
	"github.com/worktrackhq/work-tracking-api/internal/services"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// SweepHandlerTestSuite defines the test suite for SweepHandler
type SweepHandlerTestSuite struct {
	suite.Suite
	db        *gorm.DB
	entryRepo repository.TimeEntryRepository
	router    *gin.Engine
}

// SetupTest runs before each test
func (suite *SweepHandlerTestSuite) SetupTest() {
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

	suite.entryRepo = repository.NewTimeEntryRepository(suite.db)
	taskRepo := repository.NewProjectTaskRepository(suite.db)
	projRepo := repository.NewProjectRepository(suite.db)
	hours := services.NewHoursService(suite.entryRepo)
	lifecycle := services.NewLifecycleService(taskRepo, projRepo, suite.entryRepo, hours)
	cutoff := services.NewCutoffService(suite.entryRepo, taskRepo, lifecycle, services.CutoffPolicy{
		GraceFactor:   1.2,
		FallbackHours: 2,
	})

	gin.SetMode(gin.TestMode)
	suite.router = gin.New()
	suite.router.POST("/api/cutoff-sweep", NewSweepHandler(cutoff).RunSweep)
}

// TearDownTest runs after each test
func (suite *SweepHandlerTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *SweepHandlerTestSuite) seedExceededTask() {
	user := &models.User{Username: "worker", PasswordHash: "hashed"}
	suite.Require().NoError(suite.db.Create(user).Error)
	project := &models.Project{Name: "p", Status: models.ProjectStatusActive, ModuleCount: 1}
	suite.Require().NoError(suite.db.Create(project).Error)
	task := &models.Task{Title: "t", BaseEstimatedHours: 10}
	suite.Require().NoError(suite.db.Create(task).Error)

	pt := &models.ProjectTask{
		ProjectID:      project.ID,
		TaskID:         task.ID,
		Status:         models.ProjectTaskStatusInProgress,
		AssignedTo:     &user.ID,
		EstimatedHours: 10,
	}
	suite.Require().NoError(suite.db.Create(pt).Error)

	entry := &models.TimeEntry{
		TaskID:    task.ID,
		ProjectID: project.ID,
		UserID:    user.ID,
		StartTime: time.Now().Add(-13 * time.Hour),
	}
	suite.Require().NoError(suite.entryRepo.Open(entry))
}

func (suite *SweepHandlerTestSuite) runSweep() *httptest.ResponseRecorder {
	req, err := http.NewRequest(http.MethodPost, "/api/cutoff-sweep", nil)
	suite.Require().NoError(err)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *SweepHandlerTestSuite) TestRunSweepClosesExceededEntries() {
	suite.seedExceededTask()

	w := suite.runSweep()
	suite.Equal(http.StatusOK, w.Code)

	var result services.SweepResult
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &result))
	suite.Equal(1, result.ExceededCount)
	suite.Require().Len(result.Details, 1)
	suite.InDelta(12.0, result.Details[0].MaxHours, 1e-6)
}

func (suite *SweepHandlerTestSuite) TestRunSweepEmptyLedger() {
	w := suite.runSweep()
	suite.Equal(http.StatusOK, w.Code)

	var result services.SweepResult
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &result))
	suite.Equal(0, result.ExceededCount)
	suite.Empty(result.Details)
}

func TestSweepHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(SweepHandlerTestSuite))
}

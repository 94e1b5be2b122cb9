package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/worktrackhq/work-tracking-api/internal/models"
	"github.com/worktrackhq/work-tracking-api/internal/repository"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// HoursServiceTestSuite defines the test suite for HoursService
type HoursServiceTestSuite struct {
	suite.Suite
	db        *gorm.DB
	entryRepo repository.TimeEntryRepository
	service   *HoursService
	now       time.Time
}

// SetupTest runs before each test
func (suite *HoursServiceTestSuite) SetupTest() {
	var err error

	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)

	err = suite.db.AutoMigrate(&models.User{}, &models.TimeEntry{})
	suite.Require().NoError(err)

	suite.entryRepo = repository.NewTimeEntryRepository(suite.db)
	suite.service = NewHoursService(suite.entryRepo)

	suite.now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	suite.service.SetClock(func() time.Time { return suite.now })
}

// TearDownTest runs after each test
func (suite *HoursServiceTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *HoursServiceTestSuite) createUser(username string) *models.User {
	user := &models.User{Username: username, PasswordHash: "hashed"}
	suite.Require().NoError(suite.db.Create(user).Error)
	return user
}

func (suite *HoursServiceTestSuite) closedEntry(taskID, projectID, userID uint64, start time.Time, durationHours float64, storedHours *float64) {
	end := start.Add(time.Duration(durationHours * float64(time.Hour)))
	entry := &models.TimeEntry{
		TaskID:    taskID,
		ProjectID: projectID,
		UserID:    userID,
		StartTime: start,
		EndTime:   &end,
		Hours:     storedHours,
	}
	suite.Require().NoError(suite.db.Create(entry).Error)
}

func (suite *HoursServiceTestSuite) TestTotalHoursSumsClosedEntries() {
	user := suite.createUser("worker")
	suite.closedEntry(1, 1, user.ID, suite.now.Add(-8*time.Hour), 2, nil)
	stored := 1.5
	suite.closedEntry(1, 1, user.ID, suite.now.Add(-5*time.Hour), 3, &stored)

	// Stored hours win over the timestamp span when present
	total, err := suite.service.TotalHours(1, 1, nil)
	suite.Require().NoError(err)
	suite.InDelta(3.5, total, 1e-6)
}

func (suite *HoursServiceTestSuite) TestTotalHoursRecomputesZeroStoredHours() {
	user := suite.createUser("worker")
	zero := 0.0
	suite.closedEntry(1, 1, user.ID, suite.now.Add(-4*time.Hour), 2, &zero)

	total, err := suite.service.TotalHours(1, 1, nil)
	suite.Require().NoError(err)
	suite.InDelta(2.0, total, 1e-6)
}

func (suite *HoursServiceTestSuite) TestTotalHoursIncludesOpenEntryLive() {
	user := suite.createUser("worker")
	suite.closedEntry(1, 1, user.ID, suite.now.Add(-8*time.Hour), 2, nil)
	open := &models.TimeEntry{
		TaskID:    1,
		ProjectID: 1,
		UserID:    user.ID,
		StartTime: suite.now.Add(-90 * time.Minute),
	}
	suite.Require().NoError(suite.entryRepo.Open(open))

	total, err := suite.service.TotalHours(1, 1, nil)
	suite.Require().NoError(err)
	suite.InDelta(3.5, total, 1e-6)

	// The open entry keeps growing with the clock
	suite.now = suite.now.Add(30 * time.Minute)
	total, err = suite.service.TotalHours(1, 1, nil)
	suite.Require().NoError(err)
	suite.InDelta(4.0, total, 1e-6)
}

func (suite *HoursServiceTestSuite) TestTotalHoursFiltersByUser() {
	alice := suite.createUser("alice")
	bob := suite.createUser("bob")
	suite.closedEntry(1, 1, alice.ID, suite.now.Add(-8*time.Hour), 2, nil)
	suite.closedEntry(1, 1, bob.ID, suite.now.Add(-6*time.Hour), 3, nil)

	total, err := suite.service.TotalHours(1, 1, &alice.ID)
	suite.Require().NoError(err)
	suite.InDelta(2.0, total, 1e-6)

	total, err = suite.service.TotalHours(1, 1, nil)
	suite.Require().NoError(err)
	suite.InDelta(5.0, total, 1e-6)
}

func (suite *HoursServiceTestSuite) TestTotalHoursScopedByProject() {
	user := suite.createUser("worker")
	suite.closedEntry(1, 1, user.ID, suite.now.Add(-8*time.Hour), 2, nil)
	suite.closedEntry(1, 2, user.ID, suite.now.Add(-6*time.Hour), 3, nil)

	total, err := suite.service.TotalHours(1, 1, nil)
	suite.Require().NoError(err)
	suite.InDelta(2.0, total, 1e-6)
}

func (suite *HoursServiceTestSuite) TestFirstStartTime() {
	user := suite.createUser("worker")
	earliest := suite.now.Add(-10 * time.Hour)
	suite.closedEntry(1, 1, user.ID, suite.now.Add(-4*time.Hour), 1, nil)
	suite.closedEntry(1, 1, user.ID, earliest, 2, nil)

	first, err := suite.service.FirstStartTime(1, 1)
	suite.Require().NoError(err)
	suite.Require().NotNil(first)
	suite.True(first.Equal(earliest))
}

func (suite *HoursServiceTestSuite) TestFirstStartTimeEmpty() {
	first, err := suite.service.FirstStartTime(1, 1)
	suite.Require().NoError(err)
	suite.Nil(first)
}

func (suite *HoursServiceTestSuite) TestTaskHoursForDerivesProgress() {
	user := suite.createUser("worker")
	suite.closedEntry(2, 1, user.ID, suite.now.Add(-8*time.Hour), 5, nil)

	task := &models.ProjectTask{
		TaskID:         2,
		ProjectID:      1,
		Status:         models.ProjectTaskStatusInProgress,
		EstimatedHours: 10,
	}
	hours, err := suite.service.TaskHoursFor(task)
	suite.Require().NoError(err)
	suite.InDelta(5.0, hours.TotalHours, 1e-6)
	suite.Equal(50, hours.ProgressPercentage)
}

func TestHoursServiceTestSuite(t *testing.T) {
	suite.Run(t, new(HoursServiceTestSuite))
}

func TestProgressPercentage(t *testing.T) {
	tests := []struct {
		name       string
		task       *models.ProjectTask
		totalHours float64
		want       int
	}{
		{
			name:       "derived from estimate",
			task:       &models.ProjectTask{Status: models.ProjectTaskStatusInProgress, EstimatedHours: 10},
			totalHours: 5,
			want:       50,
		},
		{
			name:       "rounded",
			task:       &models.ProjectTask{Status: models.ProjectTaskStatusInProgress, EstimatedHours: 3},
			totalHours: 1,
			want:       33,
		},
		{
			name:       "capped at 100",
			task:       &models.ProjectTask{Status: models.ProjectTaskStatusInProgress, EstimatedHours: 10},
			totalHours: 25,
			want:       100,
		},
		{
			name:       "completed is always 100",
			task:       &models.ProjectTask{Status: models.ProjectTaskStatusCompleted, EstimatedHours: 10},
			totalHours: 1,
			want:       100,
		},
		{
			name:       "no estimate keeps reported progress",
			task:       &models.ProjectTask{Status: models.ProjectTaskStatusInProgress, ProgressPercentage: 40},
			totalHours: 50,
			want:       40,
		},
		{
			name:       "no estimate clamps reported progress",
			task:       &models.ProjectTask{Status: models.ProjectTaskStatusInProgress, ProgressPercentage: 130},
			totalHours: 0,
			want:       100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ProgressPercentage(tt.task, tt.totalHours))
		})
	}
}

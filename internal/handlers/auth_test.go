package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
	"github.com/worktrackhq/work-tracking-api/internal/database"
	"github.com/worktrackhq/work-tracking-api/internal/middleware"
	"github.com/worktrackhq/work-tracking-api/internal/models"
	"github.com/worktrackhq/work-tracking-api/internal/repository"
	"github.com/worktrackhq/work-tracking-api/internal/services"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// AuthHandlerTestSuite defines the test suite for AuthHandler
type AuthHandlerTestSuite struct {
	suite.Suite
	db      *gorm.DB
	handler *AuthHandler
	router  *gin.Engine
}

// SetupTest runs before each test
func (suite *AuthHandlerTestSuite) SetupTest() {
	var err error

	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)

	err = suite.db.AutoMigrate(&models.User{})
	suite.Require().NoError(err)

	database.SetDB(suite.db)

	authService := services.NewAuthService(repository.NewUserRepository(suite.db))
	suite.handler = NewAuthHandler(authService)

	gin.SetMode(gin.TestMode)
	suite.router = gin.New()

	store := cookie.NewStore([]byte("test-secret"))
	suite.router.Use(sessions.Sessions("worktrack_session", store))

	auth := suite.router.Group("/api/auth")
	auth.POST("/signup", suite.handler.Signup)
	auth.POST("/login", suite.handler.Login)
	auth.POST("/logout", suite.handler.Logout)
	auth.GET("/me", middleware.RequireAuth(), suite.handler.GetCurrentUser)
}

// TearDownTest runs after each test
func (suite *AuthHandlerTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *AuthHandlerTestSuite) postJSON(path string, body interface{}, cookies []*http.Cookie) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		suite.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(http.MethodPost, path, &buf)
	suite.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *AuthHandlerTestSuite) TestSignup() {
	w := suite.postJSON("/api/auth/signup", gin.H{
		"username": "alice",
		"password": "correcthorse",
	}, nil)
	suite.Equal(http.StatusCreated, w.Code)

	var resp struct {
		ID       uint64 `json:"id"`
		Username string `json:"username"`
	}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal("alice", resp.Username)
	suite.NotZero(resp.ID)
}

func (suite *AuthHandlerTestSuite) TestSignupDuplicateUsername() {
	w := suite.postJSON("/api/auth/signup", gin.H{"username": "alice", "password": "correcthorse"}, nil)
	suite.Equal(http.StatusCreated, w.Code)

	w = suite.postJSON("/api/auth/signup", gin.H{"username": "alice", "password": "batterystaple"}, nil)
	suite.Equal(http.StatusConflict, w.Code)
}

func (suite *AuthHandlerTestSuite) TestSignupShortPassword() {
	w := suite.postJSON("/api/auth/signup", gin.H{"username": "alice", "password": "short"}, nil)
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *AuthHandlerTestSuite) TestLoginAndGetCurrentUser() {
	w := suite.postJSON("/api/auth/signup", gin.H{"username": "alice", "password": "correcthorse"}, nil)
	suite.Require().Equal(http.StatusCreated, w.Code)

	w = suite.postJSON("/api/auth/login", gin.H{"username": "alice", "password": "correcthorse"}, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	suite.Require().NotEmpty(cookies)

	req, err := http.NewRequest(http.MethodGet, "/api/auth/me", nil)
	suite.Require().NoError(err)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	me := httptest.NewRecorder()
	suite.router.ServeHTTP(me, req)
	suite.Equal(http.StatusOK, me.Code)

	var resp struct {
		Username string `json:"username"`
	}
	suite.Require().NoError(json.Unmarshal(me.Body.Bytes(), &resp))
	suite.Equal("alice", resp.Username)
}

func (suite *AuthHandlerTestSuite) TestLoginWrongPassword() {
	w := suite.postJSON("/api/auth/signup", gin.H{"username": "alice", "password": "correcthorse"}, nil)
	suite.Require().Equal(http.StatusCreated, w.Code)

	w = suite.postJSON("/api/auth/login", gin.H{"username": "alice", "password": "wrongpassword"}, nil)
	suite.Equal(http.StatusUnauthorized, w.Code)
}

func (suite *AuthHandlerTestSuite) TestGetCurrentUserWithoutSession() {
	req, err := http.NewRequest(http.MethodGet, "/api/auth/me", nil)
	suite.Require().NoError(err)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	suite.Equal(http.StatusUnauthorized, w.Code)
}

func (suite *AuthHandlerTestSuite) TestLogout() {
	w := suite.postJSON("/api/auth/signup", gin.H{"username": "alice", "password": "correcthorse"}, nil)
	suite.Require().Equal(http.StatusCreated, w.Code)
	w = suite.postJSON("/api/auth/login", gin.H{"username": "alice", "password": "correcthorse"}, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	cookies := w.Result().Cookies()

	w = suite.postJSON("/api/auth/logout", nil, cookies)
	suite.Equal(http.StatusOK, w.Code)
}

func TestAuthHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(AuthHandlerTestSuite))
}

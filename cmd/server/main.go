package main

import (
	"context"
	"log"

	"github.com/gin-contrib/sessions"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/worktrackhq/work-tracking-api/internal/config"
	"github.com/worktrackhq/work-tracking-api/internal/database"
	"github.com/worktrackhq/work-tracking-api/internal/handlers"
	"github.com/worktrackhq/work-tracking-api/internal/middleware"
	"github.com/worktrackhq/work-tracking-api/internal/repository"
	"github.com/worktrackhq/work-tracking-api/internal/scheduler"
	"github.com/worktrackhq/work-tracking-api/internal/services"
	"github.com/worktrackhq/work-tracking-api/internal/timer"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	// Connect to database
	if err := database.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize Gin router
	r := gin.Default()

	// Setup session middleware with Redis
	redisAddr := cfg.RedisHost + ":" + cfg.RedisPort
	store, err := redisStore.NewStore(
		10,        // Redis pool size
		"tcp",     // network type
		redisAddr, // Redis address from config
		"",        // username (empty for default user)
		"",        // password (empty = no password)
		[]byte(cfg.SessionSecret), // authentication key
	)
	if err != nil {
		log.Fatalf("Failed to create Redis store: %v", err)
	}
	isProduction := cfg.GinMode == "release"
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   isProduction,
		SameSite: 2, // SameSite=Lax
	})
	r.Use(sessions.Sessions("worktrack_session", store))

	// Initialize repositories
	db := database.GetDB()
	userRepo := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	projectTaskRepo := repository.NewProjectTaskRepository(db)
	entryRepo := repository.NewTimeEntryRepository(db)

	// Initialize services
	authService := services.NewAuthService(userRepo)
	hoursService := services.NewHoursService(entryRepo)
	lifecycleService := services.NewLifecycleService(projectTaskRepo, projectRepo, entryRepo, hoursService)
	entryService := services.NewTimeEntryService(entryRepo, projectTaskRepo, lifecycleService, hoursService)
	cutoffService := services.NewCutoffService(entryRepo, projectTaskRepo, lifecycleService, services.CutoffPolicy{
		GraceFactor:   cfg.CutoffGraceFactor,
		FallbackHours: cfg.CutoffFallbackHours,
	})

	// Initialize the cooperative timer manager, recovering persisted states
	timerStore, err := timer.NewFileStateStore(cfg.TimerStateDir)
	if err != nil {
		log.Fatalf("Failed to create timer state store: %v", err)
	}
	timerManager, err := timer.NewManager(timerStore, entryService, projectTaskRepo, timer.Options{
		WarnRatio:    cfg.TimerWarnRatio,
		TickInterval: cfg.TimerTickInterval,
		StateMaxAge:  cfg.TimerStateMaxAge,
	})
	if err != nil {
		log.Fatalf("Failed to initialize timer manager: %v", err)
	}
	defer timerManager.Close()

	// Start the cutoff scheduler
	schedulerCtx, stopScheduler := context.WithCancel(context.Background())
	defer stopScheduler()
	go scheduler.NewRunner(cutoffService, cfg.SweepInterval).Run(schedulerCtx)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	projectHandler := handlers.NewProjectHandler(projectRepo, taskRepo, projectTaskRepo)
	taskHandler := handlers.NewTaskHandler(taskRepo)
	projectTaskHandler := handlers.NewProjectTaskHandler(lifecycleService, hoursService)
	timerHandler := handlers.NewTimerHandler(timerManager, cfg.TimerWarnRatio)
	sweepHandler := handlers.NewSweepHandler(cutoffService)

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "Work Tracking API is running",
		})
	})

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/signup", authHandler.Signup)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", middleware.RequireAuth(), authHandler.GetCurrentUser)
		}

		// Project routes (protected)
		projects := api.Group("/projects")
		projects.Use(middleware.RequireAuth())
		{
			projects.POST("", projectHandler.CreateProject)
			projects.GET("", projectHandler.ListProjects)
			projects.GET("/:id", projectHandler.GetProject)
			projects.POST("/:id/tasks", projectHandler.AttachTask)
			projects.GET("/:id/tasks", projectHandler.ListProjectTasks)
		}

		// Catalog task routes (protected)
		tasks := api.Group("/tasks")
		tasks.Use(middleware.RequireAuth())
		{
			tasks.POST("", taskHandler.CreateTask)
			tasks.GET("", taskHandler.ListTasks)
			tasks.GET("/:id", taskHandler.GetTask)
		}

		// Project task lifecycle routes (protected)
		projectTasks := api.Group("/project-tasks")
		projectTasks.Use(middleware.RequireAuth())
		{
			projectTasks.GET("/:id", middleware.RequireProjectTask(), projectTaskHandler.GetProjectTask)
			projectTasks.POST("/:id/assign", middleware.RequireProjectTask(), projectTaskHandler.AssignTask)
			projectTasks.POST("/:id/self-assign", middleware.RequireProjectTask(), projectTaskHandler.SelfAssignTask)
			projectTasks.POST("/:id/start", middleware.RequireProjectTask(), projectTaskHandler.StartTask)
			projectTasks.POST("/:id/complete", middleware.RequireProjectTask(), projectTaskHandler.CompleteTask)
			projectTasks.POST("/:id/cancel", middleware.RequireProjectTask(), projectTaskHandler.CancelTask)
			projectTasks.POST("/:id/return", middleware.RequireProjectTask(), projectTaskHandler.ReturnTask)
			projectTasks.PATCH("/:id/progress", middleware.RequireProjectTask(), projectTaskHandler.UpdateProgress)
			projectTasks.POST("/:id/collaborators", middleware.RequireProjectTask(), projectTaskHandler.AddCollaborator)
			projectTasks.DELETE("/:id/collaborators/:userId", middleware.RequireProjectTask(), projectTaskHandler.RemoveCollaborator)
			projectTasks.GET("/:id/hours", middleware.RequireProjectTask(), projectTaskHandler.GetTaskHours)
		}

		// Timer routes (protected, scoped to the session user)
		timers := api.Group("/timer")
		timers.Use(middleware.RequireAuth())
		{
			timers.POST("/start", timerHandler.StartTimer)
			timers.POST("/pause", timerHandler.PauseTimer)
			timers.POST("/stop", timerHandler.StopTimer)
			timers.GET("/status", timerHandler.TimerStatus)
		}

		// Cutoff sweep trigger (protected)
		api.POST("/cutoff-sweep", middleware.RequireAuth(), sweepHandler.RunSweep)
	}

	// Start server
	log.Println("Server starting on :8080")
	if err := r.Run(":8080"); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

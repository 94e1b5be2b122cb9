package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/worktrackhq/work-tracking-api/internal/dto"
	apierrors "github.com/worktrackhq/work-tracking-api/internal/errors"
	"github.com/worktrackhq/work-tracking-api/internal/middleware"
	"github.com/worktrackhq/work-tracking-api/internal/repository"
	"github.com/worktrackhq/work-tracking-api/internal/services"
	"github.com/worktrackhq/work-tracking-api/internal/timer"
)

// TimerHandler exposes the cooperative timer over HTTP. All routes operate
// on the session user's own timer.
type TimerHandler struct {
	manager   *timer.Manager
	warnRatio float64
}

// NewTimerHandler creates a new TimerHandler.
func NewTimerHandler(manager *timer.Manager, warnRatio float64) *TimerHandler {
	return &TimerHandler{
		manager:   manager,
		warnRatio: warnRatio,
	}
}

// StartTimer starts (or resumes) the user's timer on a project task.
func (h *TimerHandler) StartTimer(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	type StartRequest struct {
		ProjectTaskID uint64 `json:"project_task_id" binding:"required"`
	}

	var req StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	if _, err := h.manager.Start(req.ProjectTaskID, userID); err != nil {
		respondTimerError(c, err)
		return
	}

	state, budget, _ := h.manager.Status(userID)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"timer":   dto.ToTimerStatusDTO(state, budget, h.warnRatio),
	})
}

// PauseTimer freezes the user's timer without closing the work session.
func (h *TimerHandler) PauseTimer(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	if _, err := h.manager.Pause(userID); err != nil {
		respondTimerError(c, err)
		return
	}

	state, budget, _ := h.manager.Status(userID)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"timer":   dto.ToTimerStatusDTO(state, budget, h.warnRatio),
	})
}

// StopTimer finalizes the user's timer, closing the work session and
// reporting the refreshed aggregate hours.
func (h *TimerHandler) StopTimer(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	entry, taskHours, err := h.manager.Stop(userID)
	if err != nil {
		respondTimerError(c, err)
		return
	}

	// entry is nil when the session was already closed (by the cutoff sweep
	// or a concurrent stop); the stop still succeeded.
	resp := gin.H{
		"success": true,
		"hours":   taskHours,
	}
	if entry != nil {
		resp["entry"] = dto.ToTimeEntryDTO(*entry)
	}
	c.JSON(http.StatusOK, resp)
}

// TimerStatus returns the user's current timer state.
func (h *TimerHandler) TimerStatus(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	state, budget, ok := h.manager.Status(userID)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"active": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"active": true,
		"timer":  dto.ToTimerStatusDTO(state, budget, h.warnRatio),
	})
}

func respondTimerError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, timer.ErrTimerRunning):
		apierrors.Conflict(c, "A timer is already open; stop it before starting another")
	case errors.Is(err, repository.ErrOpenEntryExists):
		apierrors.Conflict(c, "An open work session already exists for this task; resume it instead")
	case errors.Is(err, timer.ErrNoTimer):
		apierrors.NotFound(c, "No timer open for this user")
	case errors.Is(err, services.ErrNoOpenEntry):
		apierrors.NotFound(c, "No open work session for this task")
	case errors.Is(err, services.ErrProjectTaskNotFound):
		apierrors.NotFound(c, "Project task not found")
	case errors.Is(err, services.ErrAssignmentRequired),
		errors.Is(err, services.ErrInvalidTransition):
		apierrors.InvalidOperation(c, err.Error())
	case errors.Is(err, services.ErrNotAssignee),
		errors.Is(err, services.ErrNotCollaborator):
		apierrors.Forbidden(c, err.Error())
	default:
		apierrors.InternalError(c, "")
	}
}

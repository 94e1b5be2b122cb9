package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apierrors "github.com/worktrackhq/work-tracking-api/internal/errors"
	"github.com/worktrackhq/work-tracking-api/internal/services"
)

// SweepHandler exposes the cutoff sweep as an HTTP trigger, for operators
// and external cron schedulers. The sweep is idempotent, so triggering it
// while the internal scheduler is mid-run is safe.
type SweepHandler struct {
	cutoff *services.CutoffService
}

// NewSweepHandler creates a new SweepHandler.
func NewSweepHandler(cutoff *services.CutoffService) *SweepHandler {
	return &SweepHandler{
		cutoff: cutoff,
	}
}

// RunSweep runs one cutoff sweep and returns its summary.
func (h *SweepHandler) RunSweep(c *gin.Context) {
	result, err := h.cutoff.Sweep(c.Request.Context())
	if err != nil {
		apierrors.InternalError(c, "Sweep failed")
		return
	}

	c.JSON(http.StatusOK, result)
}

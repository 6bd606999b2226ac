package server

import (
	"net/http"
	"time"

	"github.com/brightops/usagesync/internal/reconciler"
	"github.com/gin-gonic/gin"
)

type reconcileStatusResponse struct {
	State     reconciler.JobState    `json:"state"`
	StartedAt *time.Time             `json:"startedAt,omitempty"`
	LastRun   *reconciler.RunSummary `json:"lastRun,omitempty"`
}

// TriggerReconcile starts a background reconciliation run. A second
// trigger while one is active answers 409.
func (s *Server) TriggerReconcile(c *gin.Context) {
	if err := s.reconcilerSvc.StartAsync(reconciler.TriggerManual); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "started"})
}

func (s *Server) ReconcileStatus(c *gin.Context) {
	state, startedAt, last := s.reconcilerSvc.Job().Status()

	resp := reconcileStatusResponse{State: state, LastRun: last}
	if state == reconciler.JobStateRunning {
		resp.StartedAt = &startedAt
	}
	c.JSON(http.StatusOK, resp)
}

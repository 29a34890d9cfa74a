package server

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/costlens/internal/datewindow"
	enginedomain "github.com/smallbiznis/costlens/internal/engine/domain"
)

type createRunRequest struct {
	TenantID string `json:"tenant_id" binding:"required"`
	Domain   string `json:"domain" binding:"required"`
	Start    string `json:"start" binding:"required"`
	End      string `json:"end" binding:"required"`
}

type runResponse struct {
	ID          string `json:"id"`
	TenantID    string `json:"tenant_id"`
	Domain      string `json:"domain"`
	WindowStart string `json:"window_start"`
	WindowEnd   string `json:"window_end"`
	Status      string `json:"status"`
	RowsWritten int64  `json:"rows_written"`
	Error       string `json:"error,omitempty"`
	StartedAt   string `json:"started_at"`
	FinishedAt  string `json:"finished_at,omitempty"`
}

func toRunResponse(run *enginedomain.PipelineRun) runResponse {
	resp := runResponse{
		ID:          run.ID,
		TenantID:    run.TenantID.String(),
		Domain:      run.Domain,
		WindowStart: run.WindowStart.Format(time.DateOnly),
		WindowEnd:   run.WindowEnd.Format(time.DateOnly),
		Status:      string(run.Status),
		RowsWritten: run.RowsWritten,
		Error:       run.Error,
		StartedAt:   run.StartedAt.Format(time.RFC3339),
	}
	if run.FinishedAt != nil {
		resp.FinishedAt = run.FinishedAt.Format(time.RFC3339)
	}
	return resp
}

func (s *Server) createRun(c *gin.Context) {
	var req createRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, fmt.Errorf("%w: %s", datewindow.ErrInvalidWindow, err.Error()))
		return
	}

	tenantID, err := snowflake.ParseString(req.TenantID)
	if err != nil {
		AbortWithError(c, fmt.Errorf("%w: %s", enginedomain.ErrInvalidTenant, req.TenantID))
		return
	}
	window, err := datewindow.Parse(req.Start, req.End)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	run, err := s.engineSvc.Run(c.Request.Context(), tenantID, req.Domain, window)
	if err != nil && run == nil {
		AbortWithError(c, err)
		return
	}
	// A failed run still has a registry row worth returning.
	status := http.StatusCreated
	if run.Status == enginedomain.RunStatusFailed {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, toRunResponse(run))
}

func (s *Server) listRuns(c *gin.Context) {
	tenantID, err := snowflake.ParseString(c.Query("tenant_id"))
	if err != nil {
		AbortWithError(c, fmt.Errorf("%w: %s", enginedomain.ErrInvalidTenant, c.Query("tenant_id")))
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	runs, err := s.engineSvc.ListRuns(c.Request.Context(), tenantID, limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	out := make([]runResponse, 0, len(runs))
	for _, run := range runs {
		out = append(out, toRunResponse(run))
	}
	c.JSON(http.StatusOK, gin.H{"runs": out})
}

func (s *Server) getRun(c *gin.Context) {
	run, err := s.engineSvc.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRunResponse(run))
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nitindhyani1996/recon-backend/internal/api/dto"
	"github.com/nitindhyani1996/recon-backend/internal/application/service"
)

// RunsHandler manages live reconciliation jobs.
type RunsHandler struct {
	service *service.ReconService
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(svc *service.ReconService) *RunsHandler {
	return &RunsHandler{service: svc}
}

// Start handles POST /api/v1/matching-engine/runs.
func (h *RunsHandler) Start(c *gin.Context) {
	var req dto.StartRunRequest
	// An empty body starts a run with defaults.
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, dto.BadRequestError("invalid run payload: "+err.Error()))
			return
		}
	}

	jobID, err := h.service.StartRun(c.Request.Context(), service.RunRequest{
		Owner:    req.AddedBy,
		Category: req.RuleCategory,
		RuleID:   req.RuleID,
	})
	if err != nil {
		c.JSON(http.StatusConflict, dto.ConflictError(err.Error()))
		return
	}

	c.JSON(http.StatusAccepted, dto.StartRunResponse{
		JobID:  jobID,
		Status: string(service.StatusPending),
	})
}

// List handles GET /api/v1/matching-engine/runs.
func (h *RunsHandler) List(c *gin.Context) {
	jobs := h.service.ListRuns()

	out := make([]dto.RunResponse, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, toRunResponse(job))
	}
	c.JSON(http.StatusOK, out)
}

// Get handles GET /api/v1/matching-engine/runs/:jobId.
func (h *RunsHandler) Get(c *gin.Context) {
	job, err := h.service.GetRun(c.Param("jobId"))
	if err != nil {
		c.JSON(http.StatusNotFound, dto.NotFoundError("run"))
		return
	}
	c.JSON(http.StatusOK, toRunResponse(job))
}

// Cancel handles DELETE /api/v1/matching-engine/runs/:jobId.
func (h *RunsHandler) Cancel(c *gin.Context) {
	if err := h.service.CancelRun(c.Param("jobId")); err != nil {
		c.JSON(http.StatusConflict, dto.ConflictError(err.Error()))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": string(service.StatusCancelled)})
}

func toRunResponse(job *service.RunJob) dto.RunResponse {
	resp := dto.RunResponse{
		JobID:       job.ID,
		Status:      string(job.Status),
		Phase:       job.Progress.CurrentPhase,
		StartedAt:   job.StartedAt,
		CompletedAt: job.CompletedAt,
	}
	if job.Result != nil {
		resp.Result = &dto.RunResultResponse{
			Reference:        job.Result.Reference,
			TotalRecords:     job.Result.TotalRecords,
			Matched:          job.Result.Matched,
			PartiallyMatched: job.Result.PartiallyMatched,
			Unmatched:        job.Result.Unmatched,
		}
	}
	if job.Error != nil {
		resp.Error = job.Error.Error()
	}
	return resp
}

package handler

import (
	"log/slog"
	"net/http"

	"github.com/cuongbtq/fieldops-be/internal/api/dto"
	"github.com/cuongbtq/fieldops-be/internal/jobs"
	"github.com/gin-gonic/gin"
)

// JobHandler handles job-related HTTP requests
type JobHandler struct {
	logger *slog.Logger
	jobs   *jobs.Service
}

// NewJobHandler creates a new JobHandler instance
func NewJobHandler(deps *Dependencies) *JobHandler {
	return &JobHandler{
		logger: deps.Logger,
		jobs:   deps.Jobs,
	}
}

// CreateJob handles POST /api/v1/jobs
func (h *JobHandler) CreateJob(c *gin.Context) {
	var req dto.CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	job, err := h.jobs.Create(c.Request.Context(), req.ToInput(), Actor(c).ID)
	if err != nil {
		respondError(c, h.logger, "Failed to create job", err)
		return
	}

	c.JSON(http.StatusCreated, job)
}

// GetJob handles GET /api/v1/jobs/:job_id
func (h *JobHandler) GetJob(c *gin.Context) {
	id, ok := pathID(c, "job_id")
	if !ok {
		return
	}

	job, err := h.jobs.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, "Failed to get job", err)
		return
	}

	c.JSON(http.StatusOK, job)
}

// ListJobs handles GET /api/v1/jobs
func (h *JobHandler) ListJobs(c *gin.Context) {
	var req dto.ListJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, "Invalid query parameters", err)
		return
	}

	list, err := h.jobs.List(c.Request.Context(), req.ToFilter())
	if err != nil {
		respondError(c, h.logger, "Failed to list jobs", err)
		return
	}

	c.JSON(http.StatusOK, dto.ListJobsResponse{
		Jobs:  list,
		Count: len(list),
	})
}

// UpdateJob handles PATCH /api/v1/jobs/:job_id. Status changes go through
// the status endpoints only.
func (h *JobHandler) UpdateJob(c *gin.Context) {
	id, ok := pathID(c, "job_id")
	if !ok {
		return
	}

	var req dto.UpdateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}
	if req.Status != nil {
		badRequest(c, "status cannot be changed here, use PATCH /api/v1/jobs/:job_id/status", nil)
		return
	}

	job, err := h.jobs.Update(c.Request.Context(), id, req.ToPatch(), Actor(c).ID)
	if err != nil {
		respondError(c, h.logger, "Failed to update job", err)
		return
	}

	c.JSON(http.StatusOK, job)
}

// AssignJob handles POST /api/v1/jobs/:job_id/assign
func (h *JobHandler) AssignJob(c *gin.Context) {
	id, ok := pathID(c, "job_id")
	if !ok {
		return
	}

	var req dto.AssignJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	job, err := h.jobs.Assign(c.Request.Context(), id, *req.UserID)
	if err != nil {
		respondError(c, h.logger, "Failed to assign job", err)
		return
	}

	c.JSON(http.StatusOK, job)
}

// DeleteJob handles DELETE /api/v1/jobs/:job_id
func (h *JobHandler) DeleteJob(c *gin.Context) {
	id, ok := pathID(c, "job_id")
	if !ok {
		return
	}

	if err := h.jobs.Delete(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, "Failed to delete job", err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetHistory handles GET /api/v1/jobs/:job_id/history
func (h *JobHandler) GetHistory(c *gin.Context) {
	id, ok := pathID(c, "job_id")
	if !ok {
		return
	}

	records, err := h.jobs.History(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, "Failed to get job history", err)
		return
	}

	c.JSON(http.StatusOK, dto.HistoryResponse{
		JobID:       id,
		Transitions: records,
	})
}

// GetSummary handles GET /api/v1/dashboard/summary
func (h *JobHandler) GetSummary(c *gin.Context) {
	sum, err := h.jobs.Summary(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "Failed to get job summary", err)
		return
	}

	c.JSON(http.StatusOK, sum)
}
